package credentials

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNoCredential is returned when the auth service declines to issue a
// token for the shop.
var ErrNoCredential = errors.New("no credential issued")

// Credential is a bearer token scoped to one shop.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// Provider issues credentials for a shop.
type Provider interface {
	Issue(ctx context.Context, shopID string) (Credential, error)
}

// HTTPProvider requests tokens from the auth service over HTTP.
type HTTPProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPProvider returns a Provider backed by the auth service at baseURL.
func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type tokenRequest struct {
	ShopID string `json:"shopId"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"` // seconds
}

// Issue requests a fresh token for shopID.
func (p *HTTPProvider) Issue(ctx context.Context, shopID string) (Credential, error) {
	payload, err := json.Marshal(tokenRequest{ShopID: shopID})
	if err != nil {
		return Credential{}, fmt.Errorf("failed to encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/token", bytes.NewReader(payload))
	if err != nil {
		return Credential{}, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Credential{}, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound:
		return Credential{}, fmt.Errorf("%w for shop %s (status %d)", ErrNoCredential, shopID, resp.StatusCode)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return Credential{}, fmt.Errorf("token request for shop %s returned status %d: %s", shopID, resp.StatusCode, body)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return Credential{}, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.Token == "" {
		return Credential{}, fmt.Errorf("%w for shop %s: empty token", ErrNoCredential, shopID)
	}

	return Credential{
		Token:     tr.Token,
		ExpiresAt: time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}, nil
}
