package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"video-publisher/internal/logging"
	"video-publisher/internal/metrics"
	"video-publisher/internal/streaming"
)

// DefaultRedirectLimit bounds how many 301/302 hops a download follows.
const DefaultRedirectLimit = 5

// Fetcher downloads remote files to disk.
type Fetcher struct {
	client        *http.Client
	redirectLimit int
	idleTimeout   time.Duration
}

// New returns a Fetcher with the given redirect hop limit. Redirects are
// handled by the Fetcher itself, not the transport, so the hop count and
// each intermediate status are observable.
func New(redirectLimit int) *Fetcher {
	if redirectLimit <= 0 {
		redirectLimit = DefaultRedirectLimit
	}
	return &Fetcher{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		redirectLimit: redirectLimit,
		idleTimeout:   streaming.DefaultIdleTimeout,
	}
}

// Download streams the resource at rawURL into destPath. On any failure
// the partial file is removed before returning.
func (f *Fetcher) Download(ctx context.Context, rawURL, destPath string) (err error) {
	resp, err := f.get(ctx, rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("fetch of %s returned status %d", rawURL, resp.StatusCode)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create download file: %w", err)
	}

	defer func() {
		out.Close()
		if err != nil {
			if rmErr := os.Remove(destPath); rmErr != nil && !os.IsNotExist(rmErr) {
				logging.Warn("failed to remove partial download %s: %v", destPath, rmErr)
			}
		}
	}()

	written, err := streaming.CopyWithIdleTimeout(ctx, out, resp.Body, f.idleTimeout)
	if err != nil {
		return fmt.Errorf("download of %s failed after %d bytes: %w", rawURL, written, err)
	}
	if err = out.Sync(); err != nil {
		return fmt.Errorf("failed to sync download file: %w", err)
	}

	metrics.FetchBytesTotal.Add(float64(written))
	logging.Debug("downloaded %d bytes from %s", written, rawURL)
	return nil
}

// get performs the request, following up to redirectLimit 301/302 hops.
func (f *Fetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	current := rawURL

	for hop := 0; ; hop++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current, nil)
		if err != nil {
			return nil, fmt.Errorf("invalid fetch URL %q: %w", current, err)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch of %s failed: %w", current, err)
		}

		if resp.StatusCode != http.StatusMovedPermanently && resp.StatusCode != http.StatusFound {
			return resp, nil
		}

		location := resp.Header.Get("Location")
		resp.Body.Close()

		if hop+1 > f.redirectLimit {
			return nil, fmt.Errorf("fetch of %s exceeded %d redirects", rawURL, f.redirectLimit)
		}
		if location == "" {
			return nil, fmt.Errorf("fetch of %s redirected without a Location header", current)
		}

		next, err := resolveLocation(current, location)
		if err != nil {
			return nil, err
		}

		metrics.FetchRedirectsTotal.Inc()
		logging.Debug("following redirect %d: %s -> %s", hop+1, current, next)
		current = next
	}
}

// resolveLocation resolves a possibly-relative Location header against
// the URL that issued the redirect.
func resolveLocation(base, location string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid redirect base %q: %w", base, err)
	}
	locURL, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("invalid redirect location %q: %w", location, err)
	}
	return baseURL.ResolveReference(locURL).String(), nil
}
