// Package memory tunes the Go runtime's soft memory limit from the
// container's memory budget. The publisher shares its cgroup with ffmpeg
// child processes, so only a fraction of the budget is given to the Go
// heap and the rest is left as headroom for transcodes.
package memory

import (
	"os"
	"runtime/debug"
	"strconv"

	"video-publisher/internal/logging"
)

// defaultRatio is the share of the container budget granted to the Go
// heap. ffmpeg working memory takes the remainder.
const defaultRatio = 0.5

// ConfigureFromEnv sets GOMEMLIMIT from MEMORY_LIMIT_BYTES when present.
// MEMORY_RATIO overrides the heap share. Returns the applied limit, or 0
// when none was configured.
func ConfigureFromEnv() int64 {
	raw := os.Getenv("MEMORY_LIMIT_BYTES")
	if raw == "" {
		logging.Debug("MEMORY_LIMIT_BYTES not set; leaving GOMEMLIMIT alone")
		return 0
	}

	total, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || total <= 0 {
		logging.Warn("invalid MEMORY_LIMIT_BYTES %q; leaving GOMEMLIMIT alone", raw)
		return 0
	}

	ratio := defaultRatio
	if rawRatio := os.Getenv("MEMORY_RATIO"); rawRatio != "" {
		parsed, err := strconv.ParseFloat(rawRatio, 64)
		if err != nil || parsed <= 0 || parsed > 1 {
			logging.Warn("invalid MEMORY_RATIO %q; using default %.2f", rawRatio, ratio)
		} else {
			ratio = parsed
		}
	}

	limit := int64(float64(total) * ratio)
	debug.SetMemoryLimit(limit)
	logging.Info("GOMEMLIMIT set to %d bytes (%.0f%% of %d; remainder reserved for ffmpeg)",
		limit, ratio*100, total)
	return limit
}
