package slots

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"library-room-booker/internal/logging"
	"library-room-booker/internal/parse"
)

// Capacities maps room numbers to the number of people the room seats.
var Capacities = map[string]int{
	// 2-person study rooms
	"603": 2, "604": 2,
	// 1-person study rooms
	"315": 1, "316": 1, "322": 1, "323": 1, "324": 1, "325": 1,
	"326": 1, "327": 1, "328": 1, "329": 1, "330": 1, "331": 1, "332": 1,
}

// CapacityOf returns the known capacity of room, or 1 for unknown rooms.
func CapacityOf(room string) int {
	if c, ok := Capacities[room]; ok {
		return c
	}
	return 1
}

// Slot is one bookable (room, start time) pair found on the calendar.
type Slot struct {
	Room     string `json:"room"`
	Capacity int    `json:"capacity"`
	Time     string `json:"time"`
	Date     string `json:"date"`
	Title    string `json:"title"`
	// Selector resolves to the clickable calendar link for this slot.
	Selector string `json:"-"`
}

// Time24 returns the start time in HH:MM form, or the raw time if it cannot be parsed.
func (s Slot) Time24() string {
	return parse.ConvertTo24h(s.Time)
}

// Minutes returns the start time as minutes since midnight.
func (s Slot) Minutes() int {
	return parse.TimeToMinutes(s.Time)
}

// IsAvailableLabel reports whether a title marks a free slot.
func IsAvailableLabel(title string) bool {
	return strings.Contains(title, "Available") && !strings.Contains(title, "Unavailable")
}

// Parse extracts every available slot from the calendar HTML, in page order.
// Links whose title cannot be parsed are logged and skipped.
func Parse(html string, log *logging.Logger) ([]Slot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse calendar html: %w", err)
	}

	var found []Slot
	doc.Find("a[title]").Each(func(i int, s *goquery.Selection) {
		title, _ := s.Attr("title")
		if !IsAvailableLabel(title) {
			return
		}

		label, err := parse.ParseSlotLabel(title)
		if err != nil {
			log.Debugf("Error parsing slot %q: %v", title, err)
			return
		}

		found = append(found, Slot{
			Room:     label.Room,
			Capacity: CapacityOf(label.Room),
			Time:     label.Time,
			Date:     label.Date,
			Title:    title,
			Selector: linkSelector(title),
		})
		log.Debugf("Found available slot: %s", title)
	})
	return found, nil
}

func linkSelector(title string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(title)
	return `a[title="` + escaped + `"]`
}

// First returns the first slot, which is the one booked.
func First(slots []Slot) (Slot, bool) {
	if len(slots) == 0 {
		return Slot{}, false
	}
	return slots[0], true
}

// SortByTime returns a copy sorted by time of day. Unparseable times go last;
// equal times keep page order.
func SortByTime(slots []Slot) []Slot {
	sorted := make([]Slot, len(slots))
	copy(sorted, slots)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Minutes() < sorted[j].Minutes()
	})
	return sorted
}
