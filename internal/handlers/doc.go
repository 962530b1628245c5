// Package handlers implements the HTTP surface: the publish endpoint,
// job history, health probes, version info, and API key authentication.
package handlers
