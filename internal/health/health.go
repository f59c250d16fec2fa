// Package health classifies device liveness and formats relative ages from
// the loosely formatted timestamps the care API emits. Parse failures are
// contained here: every function returns a sentinel value instead of an error.
package health

import (
	"fmt"
	"strings"
	"time"
)

// DefaultThreshold is how recent the last heartbeat must be for a device to
// count as up.
const DefaultThreshold = 30 * time.Minute

// Unknown is rendered for missing or unparsable timestamps.
const Unknown = "—"

// The server mixes RFC 3339 with zone-less 'YYYY-MM-DD HH:MM:SS' forms.
// Zone-less values are taken as UTC.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// ParseTimestamp parses a care API timestamp, normalizing a space separator
// to 'T' first. The second return is false for empty or unparsable input.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	s = strings.Replace(s, " ", "T", 1)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsUp reports whether ts is within threshold of now. Missing or unparsable
// timestamps are down. A non-positive threshold selects DefaultThreshold.
// There is deliberately no sign check: a slightly future timestamp from clock
// skew still counts as up.
func IsUp(ts string, now time.Time, threshold time.Duration) bool {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	t, ok := ParseTimestamp(ts)
	if !ok {
		return false
	}
	return now.Sub(t) <= threshold
}

// TimeAgo renders a human relative age: "45s ago", "12m ago", "3h ago",
// "2d ago". Future timestamps render as "in 45s" and so on. Unparsable input
// renders Unknown. Bucket boundaries are 60s, 3600s and 86400s against the
// absolute difference.
func TimeAgo(ts string, now time.Time) string {
	t, ok := ParseTimestamp(ts)
	if !ok {
		return Unknown
	}
	diff := now.Sub(t)
	future := diff < 0
	if future {
		diff = -diff
	}

	sec := int64(diff / time.Second)
	var n int64
	var unit string
	switch {
	case sec < 60:
		n, unit = sec, "s"
	case sec < 3600:
		n, unit = sec/60, "m"
	case sec < 86400:
		n, unit = sec/3600, "h"
	default:
		n, unit = sec/86400, "d"
	}

	if future {
		return fmt.Sprintf("in %d%s", n, unit)
	}
	return fmt.Sprintf("%d%s ago", n, unit)
}
