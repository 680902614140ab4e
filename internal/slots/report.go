package slots

import (
	"fmt"
	"io"
	"strings"
	"time"
)

const reportWidth = 70

// Report writes the availability listing grouped by start time. slots should already be sorted.
func Report(w io.Writer, date time.Time, daysAhead int, slots []Slot) {
	rule := strings.Repeat("=", reportWidth)

	fmt.Fprintf(w, "\n%s\n  CHECKING AVAILABILITY FOR: %s\n%s\n", rule, date.Format("Monday, January 02, 2006"), rule)
	fmt.Fprintf(w, "  (%d days in advance)\n", daysAhead)
	fmt.Fprintf(w, "\n%s\n  AVAILABLE ROOMS (sorted by time)\n%s\n\n", rule, rule)

	if len(slots) == 0 {
		fmt.Fprintln(w, "  No rooms available matching your preferences")
	} else {
		current := ""
		for i, s := range slots {
			if i == 0 || s.Time != current {
				if i > 0 {
					fmt.Fprintln(w)
				}
				current = s.Time
				fmt.Fprintf(w, "  [%s] %s\n", s.Time24(), s.Time)
			}
			fmt.Fprintf(w, "    • Room %s (%d-person)\n", s.Room, s.Capacity)
		}
	}

	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Total: %d rooms available\n", len(slots))
	fmt.Fprintln(w, rule)
}
