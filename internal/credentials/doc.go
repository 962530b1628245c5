// Package credentials obtains short-lived shop tokens from the auth
// service and caches them until shortly before expiry. The leeway keeps
// a token that is about to expire from being handed to a long upload.
package credentials
