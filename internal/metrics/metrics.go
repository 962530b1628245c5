package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_publisher_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "video_publisher_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_publisher_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Pipeline metrics
var (
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_publisher_pipeline_runs_total",
			Help: "Total number of publish pipeline runs by outcome",
		},
		[]string{"outcome"}, // "success", "success_unmerged", or the error kind
	)

	PipelineRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "video_publisher_pipeline_run_duration_seconds",
			Help:    "End-to-end publish pipeline duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200},
		},
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "video_publisher_pipeline_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"stage"}, // "fetch", "merge", "upload_target", "upload", "metadata_patch", "poster"
	)

	PipelineRunsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_publisher_pipeline_runs_in_flight",
			Help: "Number of publish pipelines currently running",
		},
	)

	ScratchArtifactsLeaked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_publisher_scratch_artifacts_leaked_total",
			Help: "Scratch artifacts whose deletion failed during cleanup",
		},
	)
)

// Transcoder metrics
var (
	FFmpegRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_publisher_ffmpeg_runs_total",
			Help: "Total number of ffmpeg invocations",
		},
		[]string{"status"}, // "success", "error"
	)

	FFmpegRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "video_publisher_ffmpeg_run_duration_seconds",
			Help:    "ffmpeg invocation duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)
)

// Transfer metrics
var (
	FetchBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_publisher_fetch_bytes_total",
			Help: "Total bytes downloaded from explainer sources",
		},
	)

	FetchRedirectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_publisher_fetch_redirects_total",
			Help: "Total redirects followed while fetching explainer videos",
		},
	)

	UploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_publisher_upload_bytes_total",
			Help: "Total bytes uploaded to the object store",
		},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_publisher_uploads_total",
			Help: "Total object store uploads by mode and status",
		},
		[]string{"mode", "status"}, // mode: "post", "put"
	)
)

// Credential cache metrics
var (
	CredentialCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_publisher_credential_cache_hits_total",
			Help: "Credential requests served from the cache",
		},
	)

	CredentialCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_publisher_credential_cache_misses_total",
			Help: "Credential requests that required a provider round trip",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_publisher_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "video_publisher_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_publisher_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Authentication metrics
var (
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_publisher_auth_attempts_total",
			Help: "Total number of API key authentication attempts",
		},
		[]string{"status"}, // "success", "failure", "disabled"
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "video_publisher_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric.
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
