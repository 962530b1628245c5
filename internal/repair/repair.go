package repair

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"video-publisher/internal/upload"
)

// Client talks to the repair order API on behalf of a shop.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a repair API client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// TaskRef identifies one repair task.
type TaskRef struct {
	ShopID        string
	RepairOrderID string
	TaskID        string
}

func (r TaskRef) path() string {
	return fmt.Sprintf("/shops/%s/repair-orders/%s/tasks/%s",
		url.PathEscape(r.ShopID), url.PathEscape(r.RepairOrderID), url.PathEscape(r.TaskID))
}

// CreateUploadTarget asks the API for a presigned upload target for the
// task's video.
func (c *Client) CreateUploadTarget(ctx context.Context, token string, ref TaskRef, fileName string) (upload.Target, error) {
	payload, err := json.Marshal(map[string]string{"fileName": fileName})
	if err != nil {
		return upload.Target{}, fmt.Errorf("failed to encode upload target request: %w", err)
	}

	endpoint := c.baseURL + ref.path() + "/uploads"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return upload.Target{}, fmt.Errorf("failed to build upload target request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return upload.Target{}, fmt.Errorf("upload target request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return upload.Target{}, fmt.Errorf("upload target request returned status %d: %s", resp.StatusCode, body)
	}

	target, err := decodeTarget(resp.Body)
	if err != nil {
		return upload.Target{}, fmt.Errorf("failed to decode upload target: %w", err)
	}
	if target.URL == "" {
		return upload.Target{}, fmt.Errorf("upload target response missing url")
	}
	return target, nil
}

// Metadata is the task state recorded after a publish.
type Metadata struct {
	Finding  string `json:"finding"`
	Severity string `json:"severity"`
}

// PatchMetadata updates the task's finding and severity.
func (c *Client) PatchMetadata(ctx context.Context, token string, ref TaskRef, meta Metadata) error {
	payload, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	endpoint := c.baseURL + ref.path()
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build metadata request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("metadata patch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("metadata patch returned status %d: %s", resp.StatusCode, body)
	}
	return nil
}

// decodeTarget reads an upload target response at the token level so the
// fields object keeps its server-sent order.
func decodeTarget(r io.Reader) (upload.Target, error) {
	dec := json.NewDecoder(r)

	if err := expectDelim(dec, '{'); err != nil {
		return upload.Target{}, err
	}

	var target upload.Target
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return upload.Target{}, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return upload.Target{}, fmt.Errorf("unexpected token %v in upload target", keyTok)
		}

		switch key {
		case "url":
			if err := dec.Decode(&target.URL); err != nil {
				return upload.Target{}, err
			}
		case "objectKey":
			if err := dec.Decode(&target.ObjectKey); err != nil {
				return upload.Target{}, err
			}
		case "fields":
			fields, err := decodeFields(dec)
			if err != nil {
				return upload.Target{}, err
			}
			target.Fields = fields
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return upload.Target{}, err
			}
		}
	}

	if err := expectDelim(dec, '}'); err != nil {
		return upload.Target{}, err
	}
	return target, nil
}

func decodeFields(dec *json.Decoder) ([]upload.FormField, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var fields []upload.FormField
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v in fields", keyTok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("field %q is not a string: %w", key, err)
		}
		fields = append(fields, upload.FormField{Name: key, Value: value})
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return fields, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}
