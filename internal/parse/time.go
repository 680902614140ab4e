package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// UnparseableMinutes sorts after every valid minutes-since-midnight value.
const UnparseableMinutes = 9999

var clockRe = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)

// ConvertTo24h turns "9:30pm", "11am" or "14:00" into "HH:MM".
// 12am maps to 00 and 12pm to 12. Input that does not look like a time is returned unchanged.
func ConvertTo24h(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return raw
	}

	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return raw
	}
	minute := 0
	if m[2] != "" {
		if minute, err = strconv.Atoi(m[2]); err != nil || minute > 59 {
			return raw
		}
	}

	switch m[3] {
	case "am", "pm":
		if hour < 1 || hour > 12 {
			return raw
		}
		if m[3] == "pm" && hour != 12 {
			hour += 12
		} else if m[3] == "am" && hour == 12 {
			hour = 0
		}
	default:
		// Bare hours without a suffix are ambiguous.
		if m[2] == "" || hour > 23 {
			return raw
		}
	}

	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// TimeToMinutes returns minutes since midnight, or UnparseableMinutes.
func TimeToMinutes(raw string) int {
	t := ConvertTo24h(raw)
	h, m, ok := strings.Cut(t, ":")
	if !ok {
		return UnparseableMinutes
	}
	hour, err := strconv.Atoi(h)
	if err != nil || len(m) != 2 {
		return UnparseableMinutes
	}
	minute, err := strconv.Atoi(m)
	if err != nil || hour > 23 || minute > 59 {
		return UnparseableMinutes
	}
	return hour*60 + minute
}
