package handlers

import (
	"encoding/json"
	"net/http"

	"video-publisher/internal/logging"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// errorBody is the machine-readable error shape every failure returns.
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// writeJSONError writes a structured error response.
func writeJSONError(w http.ResponseWriter, status int, kind, detail string) {
	writeJSON(w, status, errorBody{Error: detail, Kind: kind})
}
