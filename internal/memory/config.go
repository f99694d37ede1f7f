package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"
	"strings"

	"asciier/internal/logging"

	"github.com/dustin/go-humanize"
)

// DefaultMemoryRatio is the share of the container limit given to the Go
// heap. The rest is left for ffmpeg children and libvips buffers, which the
// Go runtime cannot see.
const DefaultMemoryRatio = 0.75

// ConfigResult reports what ConfigureFromEnv did.
type ConfigResult struct {
	Configured     bool
	Source         string // "GOMEMLIMIT", "MEMORY_LIMIT" or "none"
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// ConfigureFromEnv sets the Go memory limit from the container limit. Call it
// at the top of main, before the codec and pipeline allocate.
//
// GOMEMLIMIT wins when set. Otherwise MEMORY_LIMIT (bytes, or a size such as
// "2GiB") is scaled by MEMORY_RATIO, default 0.75.
func ConfigureFromEnv() ConfigResult {
	return configure(os.Getenv, debug.SetMemoryLimit)
}

func configure(getenv func(string) string, setLimit func(int64) int64) ConfigResult {
	if v := getenv("GOMEMLIMIT"); v != "" {
		result := ConfigResult{Source: "GOMEMLIMIT"}
		if limit := setLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", v)
		return result
	}

	raw := strings.TrimSpace(getenv("MEMORY_LIMIT"))
	if raw == "" {
		logging.Debug("MEMORY_LIMIT not set, leaving GOMEMLIMIT unset")
		return ConfigResult{Source: "none"}
	}

	containerLimit, err := humanize.ParseBytes(raw)
	if err != nil || containerLimit == 0 || containerLimit > math.MaxInt64 {
		logging.Warn("Ignoring MEMORY_LIMIT %q: not a byte size", raw)
		return ConfigResult{Source: "none"}
	}

	ratio := DefaultMemoryRatio
	if v := getenv("MEMORY_RATIO"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		switch {
		case err != nil:
			logging.Warn("Ignoring MEMORY_RATIO %q: %v", v, err)
		case parsed <= 0 || parsed > 1:
			logging.Warn("Ignoring MEMORY_RATIO %q: must be in (0, 1]", v)
		default:
			ratio = parsed
		}
	}

	goLimit := int64(float64(containerLimit) * ratio)
	setLimit(goLimit)

	logging.Info("Configured GOMEMLIMIT: %s (%.0f%% of %s container limit)",
		humanize.IBytes(uint64(goLimit)), ratio*100, humanize.IBytes(containerLimit))

	return ConfigResult{
		Configured:     true,
		Source:         "MEMORY_LIMIT",
		ContainerLimit: int64(containerLimit),
		GoMemLimit:     goLimit,
		Ratio:          ratio,
	}
}
