package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"video-publisher/internal/database"
	"video-publisher/internal/logging"
	"video-publisher/internal/pipeline"
	"video-publisher/internal/scratch"
)

// memoryThreshold is how much of a multipart body is held in memory
// before the parser spills to temp files.
const memoryThreshold = 32 << 20

var validSeverities = map[string]bool{
	"green":  true,
	"yellow": true,
	"red":    true,
}

// publishResponse is the success body of POST /api/publish.
type publishResponse struct {
	JobID       string `json:"jobId"`
	Merged      bool   `json:"merged"`
	Uploaded    bool   `json:"uploaded"`
	ObjectKey   string `json:"objectKey,omitempty"`
	PatchFailed bool   `json:"patchFailed,omitempty"`
}

// Publish handles POST /api/publish: a multipart request carrying the
// task video and its identifying fields.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes)

	if err := r.ParseMultipartForm(memoryThreshold); err != nil {
		writeJSONError(w, http.StatusBadRequest, string(pipeline.KindValidation),
			fmt.Sprintf("invalid multipart request: %v", err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				logging.Warn("failed to remove multipart temp files: %v", err)
			}
		}
	}()

	req, kind, detail := h.parsePublishForm(r)
	if detail != "" {
		writeJSONError(w, http.StatusBadRequest, kind, detail)
		return
	}

	job := &database.Job{
		ID:            uuid.New().String(),
		ShopID:        req.ShopID,
		RepairOrderID: req.RepairOrderID,
		TaskID:        req.TaskID,
		ExplainerID:   req.ExplainerID,
		Finding:       req.Finding,
		Severity:      req.Severity,
		StartedAt:     time.Now().UTC(),
	}
	if err := h.db.InsertJob(job); err != nil {
		// History is not worth failing a publish over.
		logging.Error("failed to record job %s: %v", job.ID, err)
	}

	logging.Info("publish job %s started (shop=%s task=%s explainer=%q)",
		job.ID, req.ShopID, req.TaskID, req.ExplainerID)

	result, err := h.pipeline.Run(r.Context(), req)

	job.Merged = result.Merged
	job.Uploaded = result.Uploaded
	job.ObjectKey = result.ObjectKey
	if err != nil {
		job.ErrorKind = string(pipeline.KindOf(err))
		job.ErrorDetail = err.Error()
	}
	if dbErr := h.db.FinishJob(job); dbErr != nil {
		logging.Error("failed to finish job record %s: %v", job.ID, dbErr)
	}

	if err != nil {
		logging.Error("publish job %s failed: %v", job.ID, err)
		writeJSONError(w, pipeline.StatusCode(err), string(pipeline.KindOf(err)), err.Error())
		return
	}

	logging.Info("publish job %s done (merged=%v objectKey=%s)", job.ID, result.Merged, result.ObjectKey)
	writeJSON(w, http.StatusOK, publishResponse{
		JobID:       job.ID,
		Merged:      result.Merged,
		Uploaded:    result.Uploaded,
		ObjectKey:   result.ObjectKey,
		PatchFailed: result.PatchFailed,
	})
}

// parsePublishForm validates the multipart form and saves the video to a
// scratch artifact. A non-empty detail return means validation failed.
func (h *Handler) parsePublishForm(r *http.Request) (req pipeline.Request, kind, detail string) {
	kind = string(pipeline.KindValidation)

	required := []string{"shopId", "repairOrderId", "taskId", "finding", "severity"}
	var missing []string
	for _, field := range required {
		if r.FormValue(field) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return req, kind, "missing required fields: " + strings.Join(missing, ", ")
	}

	severity := strings.ToLower(r.FormValue("severity"))
	if !validSeverities[severity] {
		return req, kind, fmt.Sprintf("severity must be green, yellow, or red; got %q", r.FormValue("severity"))
	}

	file, header, err := r.FormFile("video")
	if err != nil {
		return req, kind, "missing required file field: video"
	}
	defer file.Close()
	if header.Size == 0 {
		return req, kind, "video file is empty"
	}

	source, err := h.scratch.Allocate(scratch.KindSourceUpload, ".mp4")
	if err != nil {
		return req, "internal", fmt.Sprintf("failed to allocate scratch space: %v", err)
	}

	if err := saveUpload(file, source.Path); err != nil {
		h.scratch.ReleaseAll([]scratch.Artifact{source})
		return req, "internal", fmt.Sprintf("failed to save uploaded video: %v", err)
	}

	return pipeline.Request{
		SourcePath:    source.Path,
		ShopID:        r.FormValue("shopId"),
		RepairOrderID: r.FormValue("repairOrderId"),
		TaskID:        r.FormValue("taskId"),
		Finding:       r.FormValue("finding"),
		Severity:      severity,
		ExplainerID:   r.FormValue("explainerId"),
	}, "", ""
}

func saveUpload(src io.Reader, destPath string) error {
	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return err
	}
	return out.Sync()
}
