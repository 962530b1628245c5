package handlers

import (
	"net/http"
	"strings"

	"video-publisher/internal/logging"
	"video-publisher/internal/metrics"
)

// openPaths never require an API key.
var openPaths = []string{"/health", "/healthz", "/livez", "/readyz", "/version", "/metrics"}

// RequireAPIKey wraps next with X-API-Key authentication. When no keys
// are configured, authentication is open; registering the first key via
// the apikey tool closes it.
func (h *Handler) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, path := range openPaths {
			if strings.HasPrefix(r.URL.Path, path) {
				next.ServeHTTP(w, r)
				return
			}
		}

		hasKeys, err := h.db.HasAPIKeys()
		if err != nil {
			logging.Error("failed to check API keys: %v", err)
			writeJSONError(w, http.StatusInternalServerError, "internal", "authentication unavailable")
			return
		}
		if !hasKeys {
			metrics.AuthAttemptsTotal.WithLabelValues("disabled").Inc()
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get("X-API-Key")
		if key == "" {
			metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
			writeJSONError(w, http.StatusUnauthorized, "credential", "missing X-API-Key header")
			return
		}

		ok, err := h.db.VerifyAPIKey(key)
		if err != nil {
			logging.Error("failed to verify API key: %v", err)
			writeJSONError(w, http.StatusInternalServerError, "internal", "authentication unavailable")
			return
		}
		if !ok {
			metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
			writeJSONError(w, http.StatusUnauthorized, "credential", "invalid API key")
			return
		}

		metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
		next.ServeHTTP(w, r)
	})
}
