// Package repeat evaluates recurrence rules against a calendar schema. The
// rule set is a closed sum type; astronomical and custom variants delegate
// to strategies injected per call, keeping the evaluator side-effect free.
package repeat

import (
	"fmt"

	"github.com/okian/almanac/internal/domain/schema"
	"github.com/okian/almanac/internal/domain/timestamp"
)

// Rule is the sealed recurrence sum type. The concrete variants below are
// the only implementations; the marker method keeps the set closed.
type Rule interface {
	isRule()
}

// AnnualOffset qualifies once per year at a fixed month and day.
type AnnualOffset struct {
	MonthID string `json:"month_id"`
	Day     int    `json:"day"`
}

// MonthlyPosition qualifies once per month, either on a fixed day-of-month
// (clamped to the month's length) or on the Nth occurrence of a weekday.
// Exactly one of the two modes must be set: Day > 0, or Nth > 0 with
// Weekday in [0, daysPerWeek).
type MonthlyPosition struct {
	Day     int `json:"day,omitempty"`
	Nth     int `json:"nth,omitempty"`
	Weekday int `json:"weekday,omitempty"`
}

// WeeklyDayIndex qualifies on a specific weekday every Interval weeks,
// counted from the anchor timestamp's week.
type WeeklyDayIndex struct {
	DayIndex int                 `json:"day_index"`
	Interval int                 `json:"interval"`
	Anchor   timestamp.Timestamp `json:"anchor"`
}

// Astronomical delegates to an injected calculator (solstices, equinoxes,
// lunar phases and similar).
type Astronomical struct {
	Source              string `json:"source"`
	ReferenceCalendarID string `json:"reference_calendar_id,omitempty"`
	OffsetMinutes       int    `json:"offset_minutes,omitempty"`
}

// Custom delegates to an injected generator identified by RuleID.
type Custom struct {
	RuleID string         `json:"rule_id"`
	Config map[string]any `json:"config,omitempty"`
}

func (AnnualOffset) isRule()    {}
func (MonthlyPosition) isRule() {}
func (WeeklyDayIndex) isRule()  {}
func (Astronomical) isRule()    {}
func (Custom) isRule()          {}

// Validate checks a rule's own parameters against the schema. Violations
// are ErrInvalidRule; they indicate a caller bug or corrupt data.
func Validate(s *schema.Schema, r Rule) error {
	switch rule := r.(type) {
	case AnnualOffset:
		if rule.Day < 1 {
			return fmt.Errorf("%w: annual offset day %d", ErrInvalidRule, rule.Day)
		}
		if _, err := s.MonthByID(rule.MonthID); err != nil {
			return fmt.Errorf("%w: annual offset month %q not in schema %q", ErrInvalidRule, rule.MonthID, s.ID)
		}
		return nil
	case MonthlyPosition:
		return validateMonthlyPosition(s, rule)
	case WeeklyDayIndex:
		if rule.Interval < 1 {
			return fmt.Errorf("%w: weekly interval %d", ErrInvalidRule, rule.Interval)
		}
		if rule.DayIndex < 0 || rule.DayIndex >= s.DaysPerWeek {
			return fmt.Errorf("%w: day index %d outside week of %d days", ErrInvalidRule, rule.DayIndex, s.DaysPerWeek)
		}
		if _, err := s.MonthByID(rule.Anchor.MonthID); err != nil {
			return fmt.Errorf("%w: anchor month %q not in schema %q", ErrInvalidRule, rule.Anchor.MonthID, s.ID)
		}
		return nil
	case Astronomical:
		if rule.Source == "" {
			return fmt.Errorf("%w: astronomical rule without source", ErrInvalidRule)
		}
		return nil
	case Custom:
		if rule.RuleID == "" {
			return fmt.Errorf("%w: custom rule without id", ErrInvalidRule)
		}
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedRule, r)
	}
}

func validateMonthlyPosition(s *schema.Schema, rule MonthlyPosition) error {
	fixed := rule.Day > 0
	nth := rule.Nth > 0
	switch {
	case fixed && nth:
		return fmt.Errorf("%w: monthly position sets both day and nth-weekday modes", ErrInvalidRule)
	case !fixed && !nth:
		return fmt.Errorf("%w: monthly position sets neither day nor nth-weekday mode", ErrInvalidRule)
	case fixed:
		// A day beyond every month's length can never land unclamped and
		// signals a corrupt rule rather than an intentional clamp.
		maxLength := 0
		for _, m := range s.Months {
			if m.Length > maxLength {
				maxLength = m.Length
			}
		}
		if rule.Day > maxLength {
			return fmt.Errorf("%w: day %d exceeds every month length in schema %q", ErrInvalidRule, rule.Day, s.ID)
		}
		return nil
	default:
		if rule.Weekday < 0 || rule.Weekday >= s.DaysPerWeek {
			return fmt.Errorf("%w: weekday %d outside week of %d days", ErrInvalidRule, rule.Weekday, s.DaysPerWeek)
		}
		maxSlots := 0
		for _, m := range s.Months {
			if slots := (m.Length + s.DaysPerWeek - 1) / s.DaysPerWeek; slots > maxSlots {
				maxSlots = slots
			}
		}
		if rule.Nth > maxSlots {
			return fmt.Errorf("%w: no month in schema %q fits %d occurrences of a weekday", ErrInvalidRule, s.ID, rule.Nth)
		}
		return nil
	}
}
