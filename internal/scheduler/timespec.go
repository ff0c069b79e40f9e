package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseTimeSpec parses a Slurm time value.
//
// Accepted forms: MM, MM:SS, HH:MM:SS, D-HH, D-HH:MM, D-HH:MM:SS.
// An empty string is zero.
func ParseTimeSpec(timeStr string) (time.Duration, error) {
	timeStr = strings.TrimSpace(timeStr)
	if timeStr == "" {
		return 0, nil
	}
	invalid := fmt.Errorf("%w: %s", ErrInvalidTimeFormat, timeStr)

	var days int64
	hms := timeStr
	hasDays := false
	if dayPart, rest, ok := strings.Cut(hms, "-"); ok {
		d, err := strconv.ParseInt(dayPart, 10, 64)
		if err != nil || d < 0 {
			return 0, invalid
		}
		days = d
		hms = strings.TrimSpace(rest)
		hasDays = true
	}

	var fields []int64
	if hms != "" {
		for _, part := range strings.Split(hms, ":") {
			n, err := strconv.ParseInt(part, 10, 64)
			if err != nil || n < 0 {
				return 0, invalid
			}
			fields = append(fields, n)
		}
	}

	var hours, minutes, seconds int64
	switch {
	case len(fields) == 3:
		hours, minutes, seconds = fields[0], fields[1], fields[2]
	case len(fields) == 2 && hasDays:
		hours, minutes = fields[0], fields[1]
	case len(fields) == 2:
		minutes, seconds = fields[0], fields[1]
	case len(fields) == 1 && hasDays:
		hours = fields[0]
	case len(fields) == 1:
		minutes = fields[0]
	case len(fields) == 0 && hasDays:
	default:
		return 0, invalid
	}

	total := time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second
	return total, nil
}

// FormatTimeSpec formats a duration as [D-]HH:MM:SS, truncated to seconds.
// Non-positive durations format as the empty string.
func FormatTimeSpec(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	total := int64(d.Seconds())
	days := total / (24 * 3600)
	rem := total % (24 * 3600)
	hours := rem / 3600
	rem %= 3600
	minutes := rem / 60
	seconds := rem % 60
	if days > 0 {
		return fmt.Sprintf("%d-%02d:%02d:%02d", days, hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
