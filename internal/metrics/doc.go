// Package metrics defines the Prometheus collectors exported by the video
// publisher.
//
// All metrics are registered on the default registry using promauto. They
// are exposed via promhttp on the dedicated metrics listener; see main.go.
package metrics
