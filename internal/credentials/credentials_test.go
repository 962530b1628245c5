package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPProviderIssue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		var req tokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Error(err)
		}
		if req.ShopID != "shop-9" {
			t.Errorf("Unexpected shop id: %s", req.ShopID)
		}
		if err := json.NewEncoder(w).Encode(tokenResponse{Token: "tok-abc", ExpiresIn: 3600}); err != nil {
			t.Error(err)
		}
	}))
	defer server.Close()

	p := NewHTTPProvider(server.URL, 5*time.Second)
	cred, err := p.Issue(context.Background(), "shop-9")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if cred.Token != "tok-abc" {
		t.Errorf("Unexpected token: %s", cred.Token)
	}
	if remaining := time.Until(cred.ExpiresAt); remaining < 59*time.Minute || remaining > 61*time.Minute {
		t.Errorf("Unexpected expiry: %s away", remaining)
	}
}

func TestHTTPProviderNoCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	p := NewHTTPProvider(server.URL, 5*time.Second)
	_, err := p.Issue(context.Background(), "shop-1")
	if !errors.Is(err, ErrNoCredential) {
		t.Errorf("Expected ErrNoCredential, got %v", err)
	}
}

// fakeProvider counts issuance and hands out fixed-lifetime tokens.
type fakeProvider struct {
	calls int
	now   func() time.Time
	life  time.Duration
	err   error
}

func (f *fakeProvider) Issue(ctx context.Context, shopID string) (Credential, error) {
	f.calls++
	if f.err != nil {
		return Credential{}, f.err
	}
	return Credential{Token: "tok", ExpiresAt: f.now().Add(f.life)}, nil
}

func TestCacheReusesWithinTTL(t *testing.T) {
	clock := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }

	provider := &fakeProvider{now: now, life: time.Hour}
	cache := NewCache(provider, 50*time.Minute, time.Minute, now)

	for i := 0; i < 3; i++ {
		if _, err := cache.Issue(context.Background(), "shop-1"); err != nil {
			t.Fatal(err)
		}
	}
	if provider.calls != 1 {
		t.Errorf("Expected 1 provider call, got %d", provider.calls)
	}
}

func TestCacheRefreshesNearExpiry(t *testing.T) {
	clock := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }

	provider := &fakeProvider{now: now, life: time.Hour}
	cache := NewCache(provider, 50*time.Minute, time.Minute, now)

	if _, err := cache.Issue(context.Background(), "shop-1"); err != nil {
		t.Fatal(err)
	}

	// Advance to within the leeway of the 50-minute capped expiry.
	clock = clock.Add(49*time.Minute + 30*time.Second)
	if _, err := cache.Issue(context.Background(), "shop-1"); err != nil {
		t.Fatal(err)
	}
	if provider.calls != 2 {
		t.Errorf("Expected refresh near expiry, got %d provider calls", provider.calls)
	}
}

func TestCacheKeysPerShop(t *testing.T) {
	clock := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }

	provider := &fakeProvider{now: now, life: time.Hour}
	cache := NewCache(provider, 50*time.Minute, time.Minute, now)

	if _, err := cache.Issue(context.Background(), "shop-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Issue(context.Background(), "shop-2"); err != nil {
		t.Fatal(err)
	}
	if provider.calls != 2 {
		t.Errorf("Expected one call per shop, got %d", provider.calls)
	}
}

func TestCacheDoesNotCacheFailures(t *testing.T) {
	clock := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }

	provider := &fakeProvider{now: now, err: ErrNoCredential}
	cache := NewCache(provider, 50*time.Minute, time.Minute, now)

	for i := 0; i < 2; i++ {
		if _, err := cache.Issue(context.Background(), "shop-1"); !errors.Is(err, ErrNoCredential) {
			t.Fatalf("Expected ErrNoCredential, got %v", err)
		}
	}
	if provider.calls != 2 {
		t.Errorf("Failures must not be cached; got %d provider calls", provider.calls)
	}
}

func TestCacheInvalidate(t *testing.T) {
	clock := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }

	provider := &fakeProvider{now: now, life: time.Hour}
	cache := NewCache(provider, 50*time.Minute, time.Minute, now)

	if _, err := cache.Issue(context.Background(), "shop-1"); err != nil {
		t.Fatal(err)
	}
	cache.Invalidate("shop-1")
	if _, err := cache.Issue(context.Background(), "shop-1"); err != nil {
		t.Fatal(err)
	}
	if provider.calls != 2 {
		t.Errorf("Expected re-issue after invalidate, got %d calls", provider.calls)
	}
}
