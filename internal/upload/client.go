package upload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"video-publisher/internal/logging"
	"video-publisher/internal/metrics"
)

// errorBodyLimit bounds how much of a rejection body is kept for
// diagnostics.
const errorBodyLimit = 512

// Target describes where and how to deliver the final video. A Target
// with form fields or an object key uses presigned POST; a bare URL uses
// presigned PUT.
type Target struct {
	URL       string
	Fields    []FormField
	ObjectKey string
}

// IsPost reports whether the target is a presigned POST form.
func (t Target) IsPost() bool {
	return len(t.Fields) > 0 || t.ObjectKey != ""
}

// UploadError describes a delivery the object store rejected.
type UploadError struct {
	StatusCode int
	Body       string
}

func (e *UploadError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upload rejected with status %d", e.StatusCode)
	}
	return fmt.Sprintf("upload rejected with status %d: %s", e.StatusCode, e.Body)
}

// Client delivers files to presigned upload targets.
type Client struct {
	httpClient *http.Client
}

// NewClient returns a Client. Uploads can legitimately take minutes, so
// no client-level timeout is set; the caller's context bounds the request.
func NewClient() *Client {
	return &Client{httpClient: &http.Client{}}
}

// Upload delivers the file at filePath to the target, choosing POST or
// PUT from the target's shape.
func (c *Client) Upload(ctx context.Context, target Target, filePath, contentType string) error {
	if target.IsPost() {
		return c.uploadPost(ctx, target, filePath, contentType)
	}
	return c.uploadPut(ctx, target, filePath, contentType)
}

func (c *Client) uploadPost(ctx context.Context, target Target, filePath, contentType string) error {
	form, err := buildForm(target.Fields, target.ObjectKey, contentType, filePath)
	if err != nil {
		return err
	}

	body, closer, err := form.open()
	if err != nil {
		return err
	}
	defer closer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, body)
	if err != nil {
		return fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.contentType)
	req.ContentLength = form.contentLength()

	return c.send(req, "post", form.contentLength())
}

func (c *Client) uploadPut(ctx context.Context, target Target, filePath, contentType string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open upload file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat upload file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target.URL, file)
	if err != nil {
		return fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = info.Size()

	return c.send(req, "put", info.Size())
}

func (c *Client) send(req *http.Request, mode string, size int64) error {
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(mode, "transport_error").Inc()
		return fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	metrics.UploadsTotal.WithLabelValues(mode, strconv.Itoa(resp.StatusCode)).Inc()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		metrics.UploadBytesTotal.Add(float64(size))
		logging.Info("uploaded %d bytes via %s in %s", size, mode, time.Since(start).Round(time.Millisecond))
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	return &UploadError{StatusCode: resp.StatusCode, Body: string(body)}
}
