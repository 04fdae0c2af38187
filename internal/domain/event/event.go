// Package event turns single and recurring calendar event definitions into
// concrete occurrences with a start, end and duration.
package event

import (
	"github.com/okian/almanac/internal/domain/hook"
	"github.com/okian/almanac/internal/domain/repeat"
	"github.com/okian/almanac/internal/domain/timestamp"
)

// Kind discriminates the two event shapes.
type Kind string

// Event kinds.
const (
	KindSingle    Kind = "single"
	KindRecurring Kind = "recurring"
)

// TimePolicy determines how a rule-produced base timestamp becomes a
// start/end window.
type TimePolicy string

// Time policies for recurring events.
const (
	PolicyAllDay TimePolicy = "all_day"
	PolicyFixed  TimePolicy = "fixed"
	PolicyOffset TimePolicy = "offset"
)

// TimeOfDay is a wall-clock position within a schema day.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Second int `json:"second,omitempty"`
}

// Bounds restrict the active window of a recurring event. Either side may be
// nil for an open end.
type Bounds struct {
	Start *timestamp.Timestamp `json:"start,omitempty"`
	End   *timestamp.Timestamp `json:"end,omitempty"`
}

// Event is a single or recurring calendar event. Kind selects which of the
// optional fields are meaningful: Date/AllDay/StartTime/EndTime for single
// events, Rule/TimePolicy/OffsetMinutes/Bounds for recurring ones.
type Event struct {
	ID          string            `json:"id"`
	CalendarID  string            `json:"calendar_id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Category    string            `json:"category,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Priority    int               `json:"priority,omitempty"`
	Hooks       []hook.Descriptor `json:"hooks,omitempty"`

	Kind Kind `json:"kind"`

	// Single.
	Date      timestamp.Timestamp `json:"date,omitzero"`
	AllDay    bool                `json:"all_day,omitempty"`
	StartTime *TimeOfDay          `json:"start_time,omitempty"`
	EndTime   *TimeOfDay          `json:"end_time,omitempty"`

	// Recurring.
	Rule          repeat.Rule `json:"-"`
	TimePolicy    TimePolicy  `json:"time_policy,omitempty"`
	OffsetMinutes int         `json:"offset_minutes,omitempty"`
	Bounds        *Bounds     `json:"bounds,omitempty"`

	// Shared: explicit duration wins over any derived one.
	DurationMinutes *int `json:"duration_minutes,omitempty"`
}

// Occurrence is one concrete, time-bounded instance of an event. It is
// ephemeral: produced per query and never stored by this engine.
type Occurrence struct {
	EventID         string
	CalendarID      string
	Kind            Kind
	Title           string
	Category        string
	Start           timestamp.Timestamp
	End             timestamp.Timestamp
	DurationMinutes int
	AllDay          bool
	Priority        int
	Hooks           []hook.Descriptor
	Source          *Event
}

// SortedHooks returns the event's hooks in dispatch order.
func (e *Event) SortedHooks() []hook.Descriptor {
	if len(e.Hooks) == 0 {
		return nil
	}
	return hook.SortByPriority(e.Hooks)
}
