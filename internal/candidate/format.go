package candidate

import (
	"fmt"
	"time"
)

const (
	minute = 60
	hour   = 60 * minute
	day    = 24 * hour
)

// FormatDuration renders seconds at day, hour, minute or second
// granularity. Values are integer-divided, never rounded. Non-positive
// durations render as "0s".
func FormatDuration(seconds int64) string {
	switch {
	case seconds <= 0:
		return "0s"
	case seconds < minute:
		return fmt.Sprintf("%ds", seconds)
	case seconds < hour:
		return fmt.Sprintf("%dm", seconds/minute)
	case seconds < day:
		return fmt.Sprintf("%dh", seconds/hour)
	default:
		return fmt.Sprintf("%dd", seconds/day)
	}
}

// FormatAge renders how long before now the epoch timestamp ts was.
func FormatAge(ts int64, now time.Time) string {
	if ts == 0 {
		return "unknown"
	}
	diff := now.Unix() - ts
	if diff < 0 {
		return "just now"
	}
	return FormatDuration(diff) + " ago"
}
