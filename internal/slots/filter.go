package slots

import (
	"github.com/gobwas/glob"

	"library-room-booker/config"
	"library-room-booker/internal/parse"
)

// Preferences describes which slots are acceptable. It is read-only after construction.
type Preferences struct {
	// Capacity of 0 accepts any room size.
	Capacity       int
	PreferredRooms []string
	ExcludedRooms  []string
	// PreferredTimes are HH:MM start times. Empty accepts any time.
	PreferredTimes []string
	DurationHours  float64
	DaysInAdvance  int
}

// PreferencesFromConfig copies the room and time preferences out of cfg.
func PreferencesFromConfig(cfg *config.Config) Preferences {
	return Preferences{
		Capacity:       cfg.RoomPreferences.Capacity,
		PreferredRooms: append([]string(nil), cfg.RoomPreferences.PreferredRooms...),
		ExcludedRooms:  append([]string(nil), cfg.RoomPreferences.ExcludedRooms...),
		PreferredTimes: append([]string(nil), cfg.TimePreferences.PreferredStartTimes...),
		DurationHours:  cfg.TimePreferences.BookingDurationHours,
		DaysInAdvance:  cfg.TimePreferences.DaysInAdvance,
	}
}

// Rejection names the filter that dropped a slot.
type Rejection string

const (
	Accepted        Rejection = ""
	RejectCapacity  Rejection = "capacity"
	RejectExcluded  Rejection = "excluded"
	RejectNotListed Rejection = "not preferred"
	RejectTime      Rejection = "start time"
)

// Matcher applies Preferences to slots. Room lists accept exact ids or glob patterns such as "32?".
type Matcher struct {
	prefs     Preferences
	preferred roomSet
	excluded  roomSet
	times     map[string]bool
}

// NewMatcher compiles prefs.
func NewMatcher(prefs Preferences) *Matcher {
	m := &Matcher{
		prefs:     prefs,
		preferred: newRoomSet(prefs.PreferredRooms),
		excluded:  newRoomSet(prefs.ExcludedRooms),
	}
	if len(prefs.PreferredTimes) > 0 {
		m.times = make(map[string]bool, len(prefs.PreferredTimes))
		for _, t := range prefs.PreferredTimes {
			m.times[parse.ConvertTo24h(t)] = true
		}
	}
	return m
}

// Check runs the filters in order and stops at the first mismatch.
func (m *Matcher) Check(s Slot) Rejection {
	if m.prefs.Capacity > 0 && CapacityOf(s.Room) != m.prefs.Capacity {
		return RejectCapacity
	}
	if m.excluded.contains(s.Room) {
		return RejectExcluded
	}
	if !m.preferred.empty() && !m.preferred.contains(s.Room) {
		return RejectNotListed
	}
	if m.times != nil && !m.times[s.Time24()] {
		return RejectTime
	}
	return Accepted
}

// Filter keeps the slots accepted by prefs, preserving page order.
func Filter(slots []Slot, prefs Preferences) []Slot {
	m := NewMatcher(prefs)
	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		if m.Check(s) == Accepted {
			out = append(out, s)
		}
	}
	return out
}

type roomSet struct {
	exact    map[string]bool
	patterns []glob.Glob
}

func newRoomSet(rooms []string) roomSet {
	rs := roomSet{exact: make(map[string]bool, len(rooms))}
	for _, r := range rooms {
		rs.exact[r] = true
		if g, err := glob.Compile(r); err == nil {
			rs.patterns = append(rs.patterns, g)
		}
	}
	return rs
}

func (rs roomSet) empty() bool {
	return len(rs.exact) == 0
}

func (rs roomSet) contains(room string) bool {
	if rs.exact[room] {
		return true
	}
	for _, g := range rs.patterns {
		if g.Match(room) {
			return true
		}
	}
	return false
}
