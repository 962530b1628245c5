package poster

import (
	"context"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"

	"video-publisher/internal/ffmpeg"
	"video-publisher/internal/scratch"
)

// Poster geometry. Wide enough for list views, small enough to load
// instantly.
const (
	maxWidth    = 640
	maxHeight   = 360
	jpegQuality = 85
)

// frameOffset is where in the video the poster frame is taken from.
// The first second is often a fade-in or a black frame.
const frameOffset = "00:00:01"

// Generator produces poster images from videos.
type Generator struct {
	runner  *ffmpeg.Runner
	scratch *scratch.Manager
}

// NewGenerator returns a Generator using the given ffmpeg runner and
// scratch manager.
func NewGenerator(runner *ffmpeg.Runner, sm *scratch.Manager) *Generator {
	return &Generator{runner: runner, scratch: sm}
}

// Generate extracts a frame from videoPath and writes a scaled JPEG
// poster as a new intermediate artifact, which the caller must release.
func (g *Generator) Generate(ctx context.Context, videoPath string) (scratch.Artifact, error) {
	raw, err := g.scratch.Allocate(scratch.KindIntermediate, ".png")
	if err != nil {
		return scratch.Artifact{}, err
	}
	defer g.scratch.ReleaseAll([]scratch.Artifact{raw})

	err = g.runner.Run(ctx,
		"-y",
		"-ss", frameOffset,
		"-i", videoPath,
		"-frames:v", "1",
		raw.Path,
	)
	if err != nil {
		return scratch.Artifact{}, fmt.Errorf("failed to extract poster frame: %w", err)
	}

	frame, err := imaging.Open(raw.Path)
	if err != nil {
		return scratch.Artifact{}, fmt.Errorf("failed to read poster frame: %w", err)
	}

	out, err := g.scratch.Allocate(scratch.KindIntermediate, ".jpg")
	if err != nil {
		return scratch.Artifact{}, err
	}

	scaled := scalePoster(frame)
	if err := imaging.Save(scaled, out.Path, imaging.JPEGQuality(jpegQuality)); err != nil {
		g.scratch.ReleaseAll([]scratch.Artifact{out})
		return scratch.Artifact{}, fmt.Errorf("failed to write poster: %w", err)
	}

	if _, err := os.Stat(out.Path); err != nil {
		return scratch.Artifact{}, fmt.Errorf("poster file missing after save: %w", err)
	}
	return out, nil
}

// scalePoster fits the frame inside the poster bounds, preserving aspect
// ratio and never upscaling.
func scalePoster(frame image.Image) image.Image {
	bounds := frame.Bounds()
	if bounds.Dx() <= maxWidth && bounds.Dy() <= maxHeight {
		return frame
	}
	return imaging.Fit(frame, maxWidth, maxHeight, imaging.Lanczos)
}
