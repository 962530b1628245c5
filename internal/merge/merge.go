package merge

import (
	"context"
	"fmt"
	"time"

	"video-publisher/internal/logging"
	"video-publisher/internal/metrics"
	"video-publisher/internal/scratch"
)

// Normalization target. Every input is letterboxed into this frame so
// the transport-stream concat never sees a geometry or codec mismatch.
const (
	frameWidth  = 1280
	frameHeight = 720
	videoCRF    = "23"
	audioRate   = "44100"
	audioBits   = "128k"
)

// Runner executes ffmpeg invocations. *ffmpeg.Runner satisfies it.
type Runner interface {
	Run(ctx context.Context, args ...string) error
}

// Engine merges two videos through normalized intermediates.
type Engine struct {
	runner  Runner
	scratch *scratch.Manager
}

// NewEngine returns an Engine using the given ffmpeg runner and scratch
// manager.
func NewEngine(runner Runner, sm *scratch.Manager) *Engine {
	return &Engine{runner: runner, scratch: sm}
}

// Merge concatenates primaryPath followed by explainerPath into a new
// final-output artifact and returns it. The two intermediates are always
// released before Merge returns, on success and failure alike; the
// returned artifact is the caller's to release.
func (e *Engine) Merge(ctx context.Context, primaryPath, explainerPath string) (scratch.Artifact, error) {
	start := time.Now()

	primaryTS, err := e.scratch.Allocate(scratch.KindIntermediate, ".ts")
	if err != nil {
		return scratch.Artifact{}, err
	}
	explainerTS, err := e.scratch.Allocate(scratch.KindIntermediate, ".ts")
	if err != nil {
		return scratch.Artifact{}, err
	}
	defer e.scratch.ReleaseAll([]scratch.Artifact{primaryTS, explainerTS})

	if err := e.normalize(ctx, primaryPath, primaryTS.Path); err != nil {
		return scratch.Artifact{}, fmt.Errorf("failed to normalize primary video: %w", err)
	}
	if err := e.normalize(ctx, explainerPath, explainerTS.Path); err != nil {
		return scratch.Artifact{}, fmt.Errorf("failed to normalize explainer video: %w", err)
	}

	output, err := e.scratch.Allocate(scratch.KindFinalOutput, ".mp4")
	if err != nil {
		return scratch.Artifact{}, err
	}

	if err := e.concatenate(ctx, primaryTS.Path, explainerTS.Path, output.Path); err != nil {
		e.scratch.ReleaseAll([]scratch.Artifact{output})
		return scratch.Artifact{}, fmt.Errorf("failed to concatenate videos: %w", err)
	}

	metrics.PipelineStageDuration.WithLabelValues("merge").Observe(time.Since(start).Seconds())
	logging.Info("merged %s + %s in %s", primaryPath, explainerPath, time.Since(start).Round(time.Millisecond))
	return output, nil
}

func (e *Engine) normalize(ctx context.Context, input, output string) error {
	return e.runner.Run(ctx, normalizeArgs(input, output)...)
}

func (e *Engine) concatenate(ctx context.Context, primary, explainer, output string) error {
	return e.runner.Run(ctx, concatArgs(primary, explainer, output)...)
}

// normalizeArgs re-encodes input into the common frame and codecs as an
// MPEG-TS intermediate. TS is chosen because two streams with identical
// parameters can be concatenated at the container level without
// re-encoding.
func normalizeArgs(input, output string) []string {
	vf := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1",
		frameWidth, frameHeight, frameWidth, frameHeight,
	)

	return []string{
		"-y",
		"-i", input,
		"-vf", vf,
		"-c:v", "libx264",
		"-crf", videoCRF,
		"-preset", "medium",
		"-c:a", "aac",
		"-ar", audioRate,
		"-ac", "2",
		"-b:a", audioBits,
		"-f", "mpegts",
		output,
	}
}

// concatArgs joins two normalized transport streams, primary first, and
// remuxes into MP4 with the moov atom up front for immediate playback.
func concatArgs(primary, explainer, output string) []string {
	return []string{
		"-y",
		"-i", fmt.Sprintf("concat:%s|%s", primary, explainer),
		"-c", "copy",
		"-movflags", "+faststart",
		output,
	}
}
