package scratch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"video-publisher/internal/logging"
	"video-publisher/internal/metrics"
)

// Kind tags an artifact with its role in the pipeline lifecycle.
type Kind string

const (
	// KindSourceUpload is the inbound video as saved from the request body.
	KindSourceUpload Kind = "source-upload"
	// KindDownloaded is an explainer video fetched from the catalog source.
	KindDownloaded Kind = "downloaded"
	// KindIntermediate is a normalized merge-stage output.
	KindIntermediate Kind = "intermediate"
	// KindFinalOutput is the merged deliverable.
	KindFinalOutput Kind = "final-output"
)

// Artifact is a transient file created for one pipeline invocation.
type Artifact struct {
	Path string
	Kind Kind
}

// Manager allocates and releases artifacts inside a single scratch directory.
// It holds no per-invocation state; callers track the artifacts they allocate.
type Manager struct {
	dir string
}

// NewManager returns a Manager rooted at dir. The directory must exist and
// be writable; startup validates this.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// Dir returns the scratch directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Allocate reserves a fresh, collision-resistant path for an artifact of the
// given kind. The file itself is not created. ext may be given with or
// without a leading dot.
func (m *Manager) Allocate(kind Kind, ext string) (Artifact, error) {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	// Nanosecond timestamp plus a random suffix; the loop guards against the
	// astronomically unlikely collision with a pre-existing file.
	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("%s-%d-%s%s", kind, time.Now().UnixNano(), shortID(), ext)
		path := filepath.Join(m.dir, name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return Artifact{Path: path, Kind: kind}, nil
		}
	}
	return Artifact{}, fmt.Errorf("could not allocate a fresh %s path in %s", kind, m.dir)
}

// ReleaseAll deletes every given artifact. A failed deletion is logged and
// counted but never stops the remaining deletions; ReleaseAll itself never
// fails, since callers typically run it while handling another error.
func (m *Manager) ReleaseAll(artifacts []Artifact) {
	for _, a := range artifacts {
		if a.Path == "" {
			continue
		}
		if err := os.Remove(a.Path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			metrics.ScratchArtifactsLeaked.Inc()
			logging.Warn("failed to remove %s artifact %s: %v", a.Kind, a.Path, err)
		} else {
			logging.Debug("removed %s artifact %s", a.Kind, a.Path)
		}
	}
}

func shortID() string {
	return strings.SplitN(uuid.New().String(), "-", 2)[0]
}
