package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "video.mp4")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFormContentLengthIsExact(t *testing.T) {
	path := writeTestFile(t, "0123456789")

	form, err := buildForm(
		[]FormField{{Name: "policy", Value: "abc"}, {Name: "signature", Value: "def"}},
		"videos/task-1/final.mp4",
		"video/mp4",
		path,
	)
	if err != nil {
		t.Fatalf("buildForm failed: %v", err)
	}

	body, closer, err := form.open()
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()

	var buf bytes.Buffer
	n, err := io.Copy(&buf, body)
	if err != nil {
		t.Fatal(err)
	}

	if n != form.contentLength() {
		t.Errorf("Declared length %d, actual body %d", form.contentLength(), n)
	}
}

func TestFormFieldOrdering(t *testing.T) {
	path := writeTestFile(t, "data")

	form, err := buildForm(
		[]FormField{{Name: "zeta", Value: "1"}, {Name: "alpha", Value: "2"}},
		"the-key",
		"video/mp4",
		path,
	)
	if err != nil {
		t.Fatal(err)
	}

	prefix := string(form.prefix)
	zeta := strings.Index(prefix, `name="zeta"`)
	alpha := strings.Index(prefix, `name="alpha"`)
	key := strings.Index(prefix, `name="key"`)
	ct := strings.Index(prefix, `name="Content-Type"`)
	file := strings.Index(prefix, `name="file"`)

	for name, idx := range map[string]int{"zeta": zeta, "alpha": alpha, "key": key, "Content-Type": ct, "file": file} {
		if idx < 0 {
			t.Fatalf("Field %q missing from form prefix", name)
		}
	}
	if !(zeta < alpha && alpha < key && key < ct && ct < file) {
		t.Errorf("Fields out of order: zeta=%d alpha=%d key=%d ct=%d file=%d", zeta, alpha, key, ct, file)
	}
}

func TestUploadPost(t *testing.T) {
	var receivedKey, receivedPolicy string
	var receivedFile []byte
	var receivedLength int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedLength = r.ContentLength
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm failed: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		receivedKey = r.FormValue("key")
		receivedPolicy = r.FormValue("policy")

		f, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile failed: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		receivedFile, _ = io.ReadAll(f)

		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	path := writeTestFile(t, "video payload")
	client := NewClient()

	target := Target{
		URL:       server.URL,
		Fields:    []FormField{{Name: "policy", Value: "signed-policy"}},
		ObjectKey: "videos/task-1/final.mp4",
	}

	if err := client.Upload(context.Background(), target, path, "video/mp4"); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if receivedKey != "videos/task-1/final.mp4" {
		t.Errorf("Unexpected key: %q", receivedKey)
	}
	if receivedPolicy != "signed-policy" {
		t.Errorf("Unexpected policy: %q", receivedPolicy)
	}
	if string(receivedFile) != "video payload" {
		t.Errorf("Unexpected file content: %q", receivedFile)
	}
	if receivedLength <= 0 {
		t.Error("Request did not carry a Content-Length")
	}
}

func TestFormFilePartCarriesFileName(t *testing.T) {
	var receivedName string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm failed: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile failed: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		receivedName = header.Filename
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "task-42-poster.jpg")
	if err := os.WriteFile(path, []byte("jpeg bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	client := NewClient()
	target := Target{URL: server.URL, ObjectKey: "posters/task-42-poster.jpg"}

	if err := client.Upload(context.Background(), target, path, "image/jpeg"); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if receivedName != "task-42-poster.jpg" {
		t.Errorf("File part filename = %q, want %q", receivedName, "task-42-poster.jpg")
	}
}

func TestUploadPut(t *testing.T) {
	var receivedBody []byte
	var receivedMethod, receivedType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedMethod = r.Method
		receivedType = r.Header.Get("Content-Type")
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	path := writeTestFile(t, "raw put body")
	client := NewClient()

	if err := client.Upload(context.Background(), Target{URL: server.URL}, path, "video/mp4"); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if receivedMethod != http.MethodPut {
		t.Errorf("Expected PUT, got %s", receivedMethod)
	}
	if receivedType != "video/mp4" {
		t.Errorf("Unexpected content type: %q", receivedType)
	}
	if string(receivedBody) != "raw put body" {
		t.Errorf("Unexpected body: %q", receivedBody)
	}
}

func TestUploadRejectionCarriesStatusAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		if _, err := w.Write([]byte("<Error>SignatureDoesNotMatch</Error>")); err != nil {
			t.Error(err)
		}
	}))
	defer server.Close()

	path := writeTestFile(t, "data")
	client := NewClient()

	err := client.Upload(context.Background(), Target{URL: server.URL}, path, "video/mp4")
	var uploadErr *UploadError
	if !errors.As(err, &uploadErr) {
		t.Fatalf("Expected *UploadError, got %v", err)
	}
	if uploadErr.StatusCode != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", uploadErr.StatusCode)
	}
	if !strings.Contains(uploadErr.Body, "SignatureDoesNotMatch") {
		t.Errorf("Expected rejection body, got %q", uploadErr.Body)
	}
}

func TestTargetModeSelection(t *testing.T) {
	tests := []struct {
		name   string
		target Target
		isPost bool
	}{
		{"fields only", Target{Fields: []FormField{{Name: "a", Value: "b"}}}, true},
		{"key only", Target{ObjectKey: "k"}, true},
		{"bare url", Target{URL: "https://example.com/put"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.target.IsPost(); got != tt.isPost {
				t.Errorf("IsPost() = %v, want %v", got, tt.isPost)
			}
		})
	}
}
