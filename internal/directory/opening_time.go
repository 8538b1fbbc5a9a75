package directory

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Purpose says what an opening time is for.
type Purpose string

const (
	PurposeOffice    Purpose = "office"
	PurposeTelephone Purpose = "telephone"
)

// Weekday is a lower-case English day name as stored.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// Weekdays lists the days in display order.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// ParseWeekday accepts a day name in any case.
func ParseWeekday(s string) (Weekday, bool) {
	d := Weekday(strings.ToLower(strings.TrimSpace(s)))
	for _, w := range Weekdays {
		if w == d {
			return d, true
		}
	}
	return "", false
}

// TimeOfDay is a wall-clock time as seconds after midnight.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS" with two-digit fields.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	limits := []int{23, 59, 59}
	var secs int
	for i, p := range parts {
		if len(p) != 2 {
			return 0, fmt.Errorf("invalid time of day %q", s)
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("invalid time of day %q", s)
		}
		secs = secs*60 + n
	}
	if len(parts) == 2 {
		secs *= 60
	}
	return TimeOfDay(secs), nil
}

// NewTimeOfDay builds a TimeOfDay from its parts.
func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay(hour*3600 + minute*60 + second)
}

// Parts splits t into hour, minute and second.
func (t TimeOfDay) Parts() (hour, minute, second int) {
	s := int(t)
	return s / 3600, (s % 3600) / 60, s % 60
}

func (t TimeOfDay) String() string {
	h, m, s := t.Parts()
	if s != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// MarshalText renders the time as "HH:MM".
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// OpeningTime is one session [Opens, Closes) on a day.
type OpeningTime struct {
	OfficeID string    `json:"office_id"`
	Purpose  Purpose   `json:"opening_time_for"`
	Day      Weekday   `json:"day_of_week"`
	Opens    TimeOfDay `json:"opens"`
	Closes   TimeOfDay `json:"closes"`
}

// Valid reports whether the session closes strictly after it opens.
func (o OpeningTime) Valid() bool {
	return o.Closes > o.Opens
}

// Session is the display form of an opening time.
type Session struct {
	Opens  TimeOfDay `json:"opens"`
	Closes TimeOfDay `json:"closes"`
}

// GroupOpeningTimes collects the sessions for one purpose by day. Every
// weekday is present; each day's sessions are sorted by opening time.
func GroupOpeningTimes(entries []OpeningTime, purpose Purpose) map[Weekday][]Session {
	grouped := make(map[Weekday][]Session, len(Weekdays))
	for _, d := range Weekdays {
		grouped[d] = []Session{}
	}
	for _, e := range entries {
		if e.Purpose != purpose {
			continue
		}
		grouped[e.Day] = append(grouped[e.Day], Session{Opens: e.Opens, Closes: e.Closes})
	}
	for _, sessions := range grouped {
		sort.SliceStable(sessions, func(i, j int) bool {
			return sessions[i].Opens < sessions[j].Opens
		})
	}
	return grouped
}
