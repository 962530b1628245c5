// Package fetch downloads explainer videos from their source URLs to
// local scratch files. Redirects are followed manually with a bounded
// hop count so a misbehaving source cannot loop forever, and a partial
// file is always removed when the download fails.
package fetch
