// Package phenomenon composes occurrences for calendar-independent or
// multi-calendar temporal patterns: seasons, astronomy, weather, tides,
// holidays. Unlike events, phenomena carry no bounds and are assumed to
// recur indefinitely.
package phenomenon

import (
	"sort"

	"github.com/okian/almanac/internal/domain/hook"
	"github.com/okian/almanac/internal/domain/repeat"
	"github.com/okian/almanac/internal/domain/schema"
	"github.com/okian/almanac/internal/domain/timestamp"
)

// Category tags what kind of pattern a phenomenon describes.
type Category string

// Phenomenon categories.
const (
	CategorySeason    Category = "season"
	CategoryAstronomy Category = "astronomy"
	CategoryWeather   Category = "weather"
	CategoryTide      Category = "tide"
	CategoryHoliday   Category = "holiday"
	CategoryCustom    Category = "custom"
)

// Visibility scopes which calendars observe a phenomenon.
type Visibility string

// Visibility modes.
const (
	VisibilityAllCalendars Visibility = "all_calendars"
	VisibilitySelected     Visibility = "selected"
)

// TimePolicy mirrors the event tri-state window policy.
type TimePolicy string

// Time policies.
const (
	PolicyAllDay TimePolicy = "all_day"
	PolicyFixed  TimePolicy = "fixed"
	PolicyOffset TimePolicy = "offset"
)

// StartTime is the fixed-policy wall-clock position.
type StartTime struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Second int `json:"second,omitempty"`
}

// Effect is an opaque payload handed to external systems when a phenomenon
// occurrence wins conflict resolution.
type Effect struct {
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	AppliesTo []string       `json:"applies_to,omitempty"`
}

// DefaultPriority is used when a phenomenon does not set one.
const DefaultPriority = 0

// Phenomenon is a recurring temporal pattern scoped to one, several or all
// calendars.
type Phenomenon struct {
	ID                   string            `json:"id"`
	Name                 string            `json:"name"`
	Category             Category          `json:"category"`
	Visibility           Visibility        `json:"visibility"`
	AppliesToCalendarIDs []string          `json:"applies_to_calendar_ids,omitempty"`
	Rule                 repeat.Rule       `json:"-"`
	TimePolicy           TimePolicy        `json:"time_policy"`
	StartTime            *StartTime        `json:"start_time,omitempty"`
	OffsetMinutes        int               `json:"offset_minutes,omitempty"`
	DurationMinutes      *int              `json:"duration_minutes,omitempty"`
	Effects              []Effect          `json:"effects,omitempty"`
	Priority             int               `json:"priority"`
	Tags                 []string          `json:"tags,omitempty"`
	Notes                string            `json:"notes,omitempty"`
	Hooks                []hook.Descriptor `json:"hooks,omitempty"`
	SchemaVersion        string            `json:"schema_version,omitempty"`
}

// Occurrence is one concrete instance of a phenomenon on one calendar.
type Occurrence struct {
	PhenomenonID    string
	Name            string
	CalendarID      string
	Start           timestamp.Timestamp
	End             timestamp.Timestamp
	Category        Category
	Priority        int
	DurationMinutes int
	Hooks           []hook.Descriptor
	Effects         []Effect
	Source          *Phenomenon
}

// VisibleForCalendar reports whether the phenomenon applies to calendarID.
// Applying this filter is the caller's responsibility; occurrence
// computation does not consult it.
func VisibleForCalendar(p *Phenomenon, calendarID string) bool {
	if p.Visibility == VisibilityAllCalendars {
		return true
	}
	for _, id := range p.AppliesToCalendarIDs {
		if id == calendarID {
			return true
		}
	}
	return false
}

// CompareByPriority orders phenomena by priority descending, name ascending.
func CompareByPriority(a, b *Phenomenon) int {
	if a.Priority != b.Priority {
		return b.Priority - a.Priority
	}
	switch {
	case a.Name < b.Name:
		return -1
	case a.Name > b.Name:
		return 1
	default:
		return 0
	}
}

// SortOccurrences orders occurrences by start timestamp ascending.
func SortOccurrences(s *schema.Schema, occurrences []Occurrence) []Occurrence {
	sorted := make([]Occurrence, len(occurrences))
	copy(sorted, occurrences)
	sort.SliceStable(sorted, func(i, j int) bool {
		return timestamp.Compare(s, sorted[i].Start, sorted[j].Start) < 0
	})
	return sorted
}

// FilterUpcoming keeps occurrences starting at or after from, sorted.
func FilterUpcoming(s *schema.Schema, occurrences []Occurrence, from timestamp.Timestamp) []Occurrence {
	var kept []Occurrence
	for _, occ := range occurrences {
		if timestamp.Compare(s, occ.Start, from) >= 0 {
			kept = append(kept, occ)
		}
	}
	return SortOccurrences(s, kept)
}
