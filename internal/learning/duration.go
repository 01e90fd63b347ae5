package learning

import (
	"math"
	"strconv"
	"strings"
)

// DefaultDurationSeconds is used when a submodule has no usable duration
const DefaultDurationSeconds = 60

// ParseDuration converts "mm:ss" or "hh:mm:ss" to seconds.
// Empty, malformed or non-positive durations yield DefaultDurationSeconds.
func ParseDuration(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultDurationSeconds
	}

	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return DefaultDurationSeconds
	}

	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return DefaultDurationSeconds
		}
		total = total*60 + n
	}

	if total <= 0 {
		return DefaultDurationSeconds
	}
	return total
}

// CompletionThreshold is floor(80% of the expected duration)
func CompletionThreshold(expectedSeconds int) int {
	return expectedSeconds * 4 / 5
}

// CompletionPercentage is min(100, 100 * watched / expected)
func CompletionPercentage(watchTimeSeconds, expectedSeconds int) float64 {
	if expectedSeconds <= 0 {
		expectedSeconds = DefaultDurationSeconds
	}
	return math.Min(100, 100*float64(watchTimeSeconds)/float64(expectedSeconds))
}
