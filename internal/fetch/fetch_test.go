package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDownloadDirect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("video bytes")); err != nil {
			t.Error(err)
		}
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "out.mp4")
	f := New(5)

	if err := f.Download(context.Background(), server.URL, dest); err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "video bytes" {
		t.Errorf("Unexpected content: %q", data)
	}
}

func TestDownloadFollowsRedirect(t *testing.T) {
	var finalHits int
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/middle", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/middle", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		finalHits++
		if _, err := w.Write([]byte("redirected content")); err != nil {
			t.Error(err)
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "out.mp4")
	f := New(5)

	if err := f.Download(context.Background(), server.URL+"/start", dest); err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if finalHits != 1 {
		t.Errorf("Expected 1 hit on final URL, got %d", finalHits)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "redirected content" {
		t.Errorf("Unexpected content: %q", data)
	}
}

func TestDownloadRedirectLoopBounded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "out.mp4")
	f := New(3)

	err := f.Download(context.Background(), server.URL+"/loop", dest)
	if err == nil {
		t.Fatal("Expected error for redirect loop")
	}
	if !strings.Contains(err.Error(), "redirects") {
		t.Errorf("Expected redirect limit error, got: %v", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("No file should exist after a failed download")
	}
}

func TestDownloadAcceptsAny2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		if _, err := w.Write([]byte("accepted body")); err != nil {
			t.Error(err)
		}
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "out.mp4")
	f := New(5)

	if err := f.Download(context.Background(), server.URL, dest); err != nil {
		t.Fatalf("Download must accept any 2xx status: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "accepted body" {
		t.Errorf("Unexpected content: %q", data)
	}
}

func TestDownloadNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "out.mp4")
	f := New(5)

	err := f.Download(context.Background(), server.URL, dest)
	if err == nil {
		t.Fatal("Expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("Expected status in error, got: %v", err)
	}
}

func TestDownloadRemovesPartialFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("short")); err != nil {
			return
		}
		// Abort the connection mid-body.
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			conn.Close()
		}
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "out.mp4")
	f := New(5)

	if err := f.Download(context.Background(), server.URL, dest); err == nil {
		t.Fatal("Expected error for truncated body")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("Partial file was not removed after failure")
	}
}

func TestResolveLocation(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		location string
		want     string
	}{
		{"absolute", "https://a.example/x", "https://b.example/y", "https://b.example/y"},
		{"relative path", "https://a.example/dir/file", "other", "https://a.example/dir/other"},
		{"root relative", "https://a.example/dir/file", "/top", "https://a.example/top"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveLocation(tt.base, tt.location)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("resolveLocation(%q, %q) = %q, want %q", tt.base, tt.location, got, tt.want)
			}
		})
	}
}
