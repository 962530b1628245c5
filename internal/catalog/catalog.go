package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrNotFound is returned when no explainer exists for an id.
var ErrNotFound = errors.New("explainer not found")

// Explainer describes a catalog entry.
type Explainer struct {
	ID          string `json:"id"`
	SourceURL   string `json:"sourceUrl"`
	DisplayName string `json:"displayName"`
}

// Client queries the explainer catalog.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a catalog client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Lookup fetches the explainer with the given id.
func (c *Client) Lookup(ctx context.Context, id string) (*Explainer, error) {
	endpoint := c.baseURL + "/explainers/" + url.PathEscape(id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("catalog lookup of %s returned status %d: %s", id, resp.StatusCode, body)
	}

	var e Explainer
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}
	if e.SourceURL == "" {
		return nil, fmt.Errorf("catalog entry %s has no source URL", id)
	}
	if e.ID == "" {
		e.ID = id
	}
	return &e, nil
}
