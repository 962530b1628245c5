// Package middleware provides the HTTP middleware chain for the publisher:
// W3C Extended Log Format request logging and Prometheus request metrics.
package middleware
