package memory

import (
	"runtime/debug"
	"testing"
)

func TestConfigureFromEnvUnset(t *testing.T) {
	t.Setenv("MEMORY_LIMIT_BYTES", "")
	if got := ConfigureFromEnv(); got != 0 {
		t.Errorf("Expected no limit when unset, got %d", got)
	}
}

func TestConfigureFromEnvDefaultRatio(t *testing.T) {
	prev := debug.SetMemoryLimit(-1)
	defer debug.SetMemoryLimit(prev)

	t.Setenv("MEMORY_LIMIT_BYTES", "1000000000")
	t.Setenv("MEMORY_RATIO", "")

	if got := ConfigureFromEnv(); got != 500000000 {
		t.Errorf("Expected 500000000, got %d", got)
	}
}

func TestConfigureFromEnvCustomRatio(t *testing.T) {
	prev := debug.SetMemoryLimit(-1)
	defer debug.SetMemoryLimit(prev)

	t.Setenv("MEMORY_LIMIT_BYTES", "1000000000")
	t.Setenv("MEMORY_RATIO", "0.25")

	if got := ConfigureFromEnv(); got != 250000000 {
		t.Errorf("Expected 250000000, got %d", got)
	}
}

func TestConfigureFromEnvInvalidValues(t *testing.T) {
	t.Setenv("MEMORY_LIMIT_BYTES", "not-a-number")
	if got := ConfigureFromEnv(); got != 0 {
		t.Errorf("Expected no limit for invalid value, got %d", got)
	}

	prev := debug.SetMemoryLimit(-1)
	defer debug.SetMemoryLimit(prev)

	t.Setenv("MEMORY_LIMIT_BYTES", "1000000")
	t.Setenv("MEMORY_RATIO", "7")
	if got := ConfigureFromEnv(); got != 500000 {
		t.Errorf("Out-of-range ratio must fall back to default, got %d", got)
	}
}
