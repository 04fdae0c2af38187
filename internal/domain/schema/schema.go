// Package schema describes the static shape of a custom calendar: its month
// table, week length, time granularity and epoch reference.
//
// A Schema is constructed and owned by callers; everything in this package
// is a pure lookup over it.
package schema

import "fmt"

// Default time granularity used when a schema carries no overrides.
const (
	DefaultHoursPerDay      = 24
	DefaultMinutesPerHour   = 60
	DefaultSecondsPerMinute = 60
	DefaultMinuteStep       = 1
)

// Month is a single entry in a schema's ordered month table.
type Month struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Length int    `json:"length"`
}

// Epoch is the schema's reference date, defined as weekday 0.
type Epoch struct {
	Year    int    `json:"year"`
	MonthID string `json:"month_id"`
	Day     int    `json:"day"`
}

// TimeDefinition is the fully resolved time granularity of a schema.
// It is derived on demand and never stored redundantly.
type TimeDefinition struct {
	HoursPerDay      int
	MinutesPerHour   int
	SecondsPerMinute int
	MinuteStep       int
}

// MinutesPerDay returns the number of minutes in one schema day.
func (d TimeDefinition) MinutesPerDay() int {
	return d.HoursPerDay * d.MinutesPerHour
}

// Schema is the static description of a calendar. Month ids must be unique
// within a schema; a day value is valid only within [1, month.Length].
type Schema struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	DaysPerWeek int     `json:"days_per_week"`
	Months      []Month `json:"months"`

	// Optional granularity overrides; zero means "use the default".
	HoursPerDay      int `json:"hours_per_day,omitempty"`
	MinutesPerHour   int `json:"minutes_per_hour,omitempty"`
	SecondsPerMinute int `json:"seconds_per_minute,omitempty"`
	MinuteStep       int `json:"minute_step,omitempty"`

	Epoch         Epoch  `json:"epoch"`
	SchemaVersion string `json:"schema_version"`
}

// TotalDaysInYear sums the month lengths.
func (s *Schema) TotalDaysInYear() int {
	total := 0
	for _, m := range s.Months {
		total += m.Length
	}
	return total
}

// MonthByID returns the month with the given id.
func (s *Schema) MonthByID(monthID string) (Month, error) {
	for _, m := range s.Months {
		if m.ID == monthID {
			return m, nil
		}
	}
	return Month{}, fmt.Errorf("%w: %q in schema %q", ErrUnknownMonth, monthID, s.ID)
}

// MonthIndex returns the position of monthID in the schema's month order,
// or -1 if the id is unknown.
func (s *Schema) MonthIndex(monthID string) int {
	for i, m := range s.Months {
		if m.ID == monthID {
			return i
		}
	}
	return -1
}

// MonthByIndex returns the month at the given position.
func (s *Schema) MonthByIndex(index int) (Month, bool) {
	if index < 0 || index >= len(s.Months) {
		return Month{}, false
	}
	return s.Months[index], true
}

// MonthLength returns the number of days in the given month.
func (s *Schema) MonthLength(monthID string) (int, error) {
	m, err := s.MonthByID(monthID)
	if err != nil {
		return 0, err
	}
	return m.Length, nil
}

// ClampDay clamps day into [1, month length] for the given month.
func (s *Schema) ClampDay(monthID string, day int) (int, error) {
	length, err := s.MonthLength(monthID)
	if err != nil {
		return 0, err
	}
	if day < 1 {
		return 1, nil
	}
	if day > length {
		return length, nil
	}
	return day, nil
}

// TimeDefinition resolves the schema's overrides over the defaults.
func (s *Schema) TimeDefinition() TimeDefinition {
	d := TimeDefinition{
		HoursPerDay:      DefaultHoursPerDay,
		MinutesPerHour:   DefaultMinutesPerHour,
		SecondsPerMinute: DefaultSecondsPerMinute,
		MinuteStep:       DefaultMinuteStep,
	}
	if s.HoursPerDay > 0 {
		d.HoursPerDay = s.HoursPerDay
	}
	if s.MinutesPerHour > 0 {
		d.MinutesPerHour = s.MinutesPerHour
	}
	if s.SecondsPerMinute > 0 {
		d.SecondsPerMinute = s.SecondsPerMinute
	}
	if s.MinuteStep > 0 {
		d.MinuteStep = s.MinuteStep
	}
	return d
}

// Validate checks the structural invariants callers must uphold.
func (s *Schema) Validate() error {
	if len(s.Months) == 0 {
		return fmt.Errorf("%w: schema %q has no months", ErrInvalidSchema, s.ID)
	}
	if s.DaysPerWeek <= 0 {
		return fmt.Errorf("%w: schema %q has days_per_week %d", ErrInvalidSchema, s.ID, s.DaysPerWeek)
	}
	seen := make(map[string]struct{}, len(s.Months))
	for _, m := range s.Months {
		if m.Length <= 0 {
			return fmt.Errorf("%w: month %q has length %d", ErrInvalidSchema, m.ID, m.Length)
		}
		if _, dup := seen[m.ID]; dup {
			return fmt.Errorf("%w: duplicate month id %q", ErrInvalidSchema, m.ID)
		}
		seen[m.ID] = struct{}{}
	}
	em, err := s.MonthByID(s.Epoch.MonthID)
	if err != nil {
		return fmt.Errorf("%w: epoch references %q", ErrInvalidSchema, s.Epoch.MonthID)
	}
	if s.Epoch.Day < 1 || s.Epoch.Day > em.Length {
		return fmt.Errorf("%w: epoch day %d outside month %q", ErrInvalidSchema, s.Epoch.Day, em.ID)
	}
	return nil
}

// Mod returns the non-negative remainder of value modulo divisor. Used for
// every wraparound computation in the engine.
func Mod(value, divisor int) int {
	return ((value % divisor) + divisor) % divisor
}
