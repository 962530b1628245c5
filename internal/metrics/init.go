package metrics

// InitializeMetrics pre-populates the expected label combinations so every
// metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, outcome := range []string{"success", "success_unmerged", "validation", "credential",
		"fetch", "merge", "upload_target", "upload", "metadata_patch", "internal"} {
		PipelineRunsTotal.WithLabelValues(outcome)
	}

	for _, stage := range []string{"fetch", "merge", "upload_target", "upload", "metadata_patch", "poster"} {
		PipelineStageDuration.WithLabelValues(stage)
	}

	for _, status := range []string{"success", "error"} {
		FFmpegRunsTotal.WithLabelValues(status)
	}

	for _, mode := range []string{"post", "put"} {
		UploadsTotal.WithLabelValues(mode, "success")
		UploadsTotal.WithLabelValues(mode, "error")
	}

	for _, op := range []string{"initialize_schema", "insert_job", "finish_job",
		"get_job", "list_jobs", "list_api_keys", "insert_api_key", "delete_api_key"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, status := range []string{"success", "failure", "disabled"} {
		AuthAttemptsTotal.WithLabelValues(status)
	}
}
