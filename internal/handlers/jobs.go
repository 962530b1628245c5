package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"video-publisher/internal/database"
)

// ListJobs handles GET /api/jobs.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeJSONError(w, http.StatusBadRequest, "validation", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	jobs, err := h.db.ListJobs(limit)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal", "failed to list jobs")
		return
	}
	if jobs == nil {
		jobs = []*database.Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

// GetJob handles GET /api/jobs/{id}.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	job, err := h.db.GetJob(id)
	if errors.Is(err, database.ErrJobNotFound) {
		writeJSONError(w, http.StatusNotFound, "not_found", "no job with id "+id)
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}
