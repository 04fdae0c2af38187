package timestamp

import (
	"fmt"

	"github.com/okian/almanac/internal/domain/schema"
)

// Unit selects the granularity of an Advance call.
type Unit string

// Supported advance units.
const (
	UnitDay    Unit = "day"
	UnitHour   Unit = "hour"
	UnitMinute Unit = "minute"
)

// Advance moves t by amount units, carrying across day, month and year
// boundaries. Negative amounts move backward; remainders are always
// normalized to be non-negative with the carry adjusted accordingly.
//
// Day advancement preserves the input's precision. Hour and minute
// advancement raise precision to at least the unit's own level but never
// discard finer components the input already carried.
func Advance(s *schema.Schema, t Timestamp, amount int, unit Unit) (Timestamp, error) {
	switch unit {
	case UnitDay:
		return advanceDays(s, t, amount)
	case UnitHour:
		return advanceHours(s, t, amount)
	case UnitMinute:
		return advanceMinutes(s, t, amount)
	default:
		return Timestamp{}, fmt.Errorf("%w: %q", ErrUnknownUnit, unit)
	}
}

// advanceDays recomputes the date through absolute-day arithmetic so month
// and year wraparound share one code path with the converters.
func advanceDays(s *schema.Schema, t Timestamp, days int) (Timestamp, error) {
	abs, err := AbsoluteDay(s, t)
	if err != nil {
		return Timestamp{}, err
	}
	moved, err := FromAbsoluteDay(s, t.CalendarID, abs+days)
	if err != nil {
		return Timestamp{}, err
	}
	switch t.Precision {
	case PrecisionHour:
		return NewHour(t.CalendarID, moved.Year, moved.MonthID, moved.Day, t.Hour), nil
	case PrecisionMinute:
		return NewMinute(t.CalendarID, moved.Year, moved.MonthID, moved.Day, t.Hour, t.Minute), nil
	default:
		return moved, nil
	}
}

func advanceHours(s *schema.Schema, t Timestamp, hours int) (Timestamp, error) {
	hoursPerDay := s.TimeDefinition().HoursPerDay
	total := t.HourOrZero() + hours
	carriedDays := floorDiv(total, hoursPerDay)
	hour := total - carriedDays*hoursPerDay

	base := t
	if carriedDays != 0 {
		moved, err := advanceDays(s, t, carriedDays)
		if err != nil {
			return Timestamp{}, err
		}
		base = moved
	}
	if t.Precision == PrecisionMinute {
		return NewMinute(t.CalendarID, base.Year, base.MonthID, base.Day, hour, t.Minute), nil
	}
	return NewHour(t.CalendarID, base.Year, base.MonthID, base.Day, hour), nil
}

func advanceMinutes(s *schema.Schema, t Timestamp, minutes int) (Timestamp, error) {
	minutesPerHour := s.TimeDefinition().MinutesPerHour
	total := t.MinuteOrZero() + minutes
	carriedHours := floorDiv(total, minutesPerHour)
	minute := total - carriedHours*minutesPerHour

	base := t
	if carriedHours != 0 {
		moved, err := advanceHours(s, t, carriedHours)
		if err != nil {
			return Timestamp{}, err
		}
		base = moved
	}
	return NewMinute(t.CalendarID, base.Year, base.MonthID, base.Day, base.HourOrZero(), minute), nil
}
