package scratch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAllocateProducesFreshPaths(t *testing.T) {
	m := NewManager(t.TempDir())

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		a, err := m.Allocate(KindIntermediate, ".ts")
		if err != nil {
			t.Fatalf("Allocate failed: %v", err)
		}
		if seen[a.Path] {
			t.Fatalf("Duplicate path allocated: %s", a.Path)
		}
		seen[a.Path] = true

		if _, err := os.Stat(a.Path); !os.IsNotExist(err) {
			t.Errorf("Allocated path already exists: %s", a.Path)
		}
	}
}

func TestAllocateExtensionHandling(t *testing.T) {
	m := NewManager(t.TempDir())

	tests := []struct {
		name string
		kind Kind
		ext  string
		want string
	}{
		{"with dot", KindFinalOutput, ".mp4", ".mp4"},
		{"without dot", KindDownloaded, "mp4", ".mp4"},
		{"empty", KindSourceUpload, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := m.Allocate(tt.kind, tt.ext)
			if err != nil {
				t.Fatalf("Allocate failed: %v", err)
			}
			if tt.want != "" && !strings.HasSuffix(a.Path, tt.want) {
				t.Errorf("Expected suffix %q, got %s", tt.want, a.Path)
			}
			if !strings.Contains(filepath.Base(a.Path), string(tt.kind)) {
				t.Errorf("Expected kind %q in name, got %s", tt.kind, a.Path)
			}
		})
	}
}

func TestReleaseAllDeletesEverything(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	var artifacts []Artifact
	for i := 0; i < 5; i++ {
		a, err := m.Allocate(KindIntermediate, ".ts")
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(a.Path, []byte("data"), 0o644); err != nil {
			t.Fatal(err)
		}
		artifacts = append(artifacts, a)
	}

	m.ReleaseAll(artifacts)

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty scratch dir after release, found %d entries", len(entries))
	}
}

func TestReleaseAllToleratesMissingFiles(t *testing.T) {
	m := NewManager(t.TempDir())

	a, err := m.Allocate(KindDownloaded, ".mp4")
	if err != nil {
		t.Fatal(err)
	}

	// Never created on disk; release must not panic or log spuriously.
	m.ReleaseAll([]Artifact{a, {}, {Path: filepath.Join(m.Dir(), "never-existed.ts"), Kind: KindIntermediate}})
}

func TestReleaseAllContinuesPastFailures(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	// A non-empty directory cannot be removed with os.Remove, simulating a
	// deletion failure in the middle of the set.
	blocked := filepath.Join(dir, "blocked")
	if err := os.MkdirAll(filepath.Join(blocked, "child"), 0o755); err != nil {
		t.Fatal(err)
	}

	good, err := m.Allocate(KindFinalOutput, ".mp4")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(good.Path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	m.ReleaseAll([]Artifact{
		{Path: blocked, Kind: KindIntermediate},
		good,
	})

	if _, err := os.Stat(good.Path); !os.IsNotExist(err) {
		t.Error("Artifact after the failing one was not released")
	}
}
