package parse

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	roomRe  = regexp.MustCompile(`(?i)^(?:room|rm\.?)(?:\s+(.*))?$`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// SlotLabel holds the structured data parsed from a calendar slot's title attribute.
type SlotLabel struct {
	Time   string // display time, e.g. "10:00am"
	Date   string // e.g. "Monday, January 15, 2025"
	Room   string // room identifier without the "Room" prefix
	Status string // trailing availability word, e.g. "Available"
}

// ParseSlotLabel parses titles of the form
// "<time> <weekday>, <month> <day>, <year> - Room <id> - Available".
// The "Room" prefix is optional.
func ParseSlotLabel(raw string) (SlotLabel, error) {
	s := strings.TrimSpace(spaceRe.ReplaceAllString(raw, " "))

	parts := strings.Split(s, " - ")
	head := strings.Fields(parts[0])
	if len(head) == 0 {
		return SlotLabel{}, fmt.Errorf("unable to parse slot label: %q", raw)
	}
	if len(parts) < 2 {
		return SlotLabel{}, fmt.Errorf("slot label has no room part: %q", raw)
	}

	room := strings.TrimSpace(parts[1])
	if m := roomRe.FindStringSubmatch(room); m != nil {
		room = strings.TrimSpace(m[1])
	}
	if room == "" {
		return SlotLabel{}, fmt.Errorf("slot label has an empty room: %q", raw)
	}

	var status string
	if len(parts) > 2 {
		status = strings.TrimSpace(parts[len(parts)-1])
	}

	return SlotLabel{
		Time:   head[0],
		Date:   strings.Join(head[1:], " "),
		Room:   room,
		Status: status,
	}, nil
}
