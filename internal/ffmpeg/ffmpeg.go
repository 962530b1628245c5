package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"video-publisher/internal/logging"
	"video-publisher/internal/metrics"
)

// tailLimit bounds how much trailing stderr is kept for diagnostics.
// ffmpeg prints its actual error in the last few lines, so a short tail
// is enough and keeps logs and error records small.
const tailLimit = 200

// progressPattern matches the time= field of ffmpeg's periodic progress lines.
var progressPattern = regexp.MustCompile(`time=(\d+:\d{2}:\d{2}\.\d+)`)

// ProcessError describes an ffmpeg invocation that exited non-zero.
type ProcessError struct {
	ExitCode int
	Tail     string
}

func (e *ProcessError) Error() string {
	if e.Tail == "" {
		return fmt.Sprintf("ffmpeg exited with code %d", e.ExitCode)
	}
	return fmt.Sprintf("ffmpeg exited with code %d: %s", e.ExitCode, e.Tail)
}

// Runner executes ffmpeg commands. A zero timeout means the caller's
// context alone bounds the run.
type Runner struct {
	binary  string
	timeout time.Duration
}

// NewRunner returns a Runner using the given binary name or path and a
// per-invocation timeout.
func NewRunner(binary string, timeout time.Duration) *Runner {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Runner{binary: binary, timeout: timeout}
}

// Run invokes ffmpeg with the given arguments and waits for completion.
// Progress reported on stderr is logged at debug level; it never influences
// control flow. On non-zero exit the returned error wraps a *ProcessError
// carrying the exit code and a bounded stderr tail.
func (r *Runner) Run(ctx context.Context, args ...string) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.binary, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to open ffmpeg stderr: %w", err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	logging.Debug("ffmpeg started: %s %s", r.binary, strings.Join(args, " "))

	tail := scanStderr(stderr)

	err = cmd.Wait()
	duration := time.Since(start)
	metrics.FFmpegRunDuration.Observe(duration.Seconds())

	if err != nil {
		metrics.FFmpegRunsTotal.WithLabelValues("error").Inc()

		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("ffmpeg timed out after %s: %w", duration.Round(time.Second), ctx.Err())
		}
		if ctx.Err() == context.Canceled {
			return ctx.Err()
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("ffmpeg failed: %w", &ProcessError{
				ExitCode: exitErr.ExitCode(),
				Tail:     tail,
			})
		}
		return fmt.Errorf("ffmpeg failed: %w", err)
	}

	metrics.FFmpegRunsTotal.WithLabelValues("success").Inc()
	logging.Debug("ffmpeg finished in %s", duration.Round(time.Millisecond))
	return nil
}

// scanStderr drains ffmpeg's stderr, logging progress lines and returning
// the trailing output for diagnostics. ffmpeg terminates progress updates
// with carriage returns, so the scanner splits on both \r and \n.
func scanStderr(r io.Reader) string {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)
	scanner.Split(scanLinesCR)

	var tail string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if m := progressPattern.FindStringSubmatch(line); m != nil {
			logging.Debug("ffmpeg progress: time=%s", m[1])
		}
		tail = appendTail(tail, line)
	}
	return tail
}

// appendTail keeps a rolling window of the most recent stderr text.
func appendTail(tail, line string) string {
	if tail == "" {
		tail = line
	} else {
		tail = tail + " | " + line
	}
	if len(tail) > tailLimit {
		tail = tail[len(tail)-tailLimit:]
	}
	return tail
}

// scanLinesCR is like bufio.ScanLines but also treats a bare carriage
// return as a line terminator, which is how ffmpeg emits progress.
func scanLinesCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i, b := range data {
		if b == '\n' || b == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
