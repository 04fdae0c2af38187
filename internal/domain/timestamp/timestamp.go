// Package timestamp provides calendar timestamps and schema-aware arithmetic
// over them. Timestamps are immutable value objects; every operation returns
// a fresh value.
package timestamp

import (
	"fmt"

	"github.com/okian/almanac/internal/domain/schema"
)

// Precision declares which optional fields of a Timestamp are meaningful.
type Precision string

// Supported precisions.
const (
	PrecisionDay    Precision = "day"
	PrecisionHour   Precision = "hour"
	PrecisionMinute Precision = "minute"
)

// Timestamp is a point on a custom calendar. Hour is meaningful for hour and
// minute precision; Minute only for minute precision. Day is 1-based.
type Timestamp struct {
	CalendarID string    `json:"calendar_id"`
	Year       int       `json:"year"`
	MonthID    string    `json:"month_id"`
	Day        int       `json:"day"`
	Hour       int       `json:"hour,omitempty"`
	Minute     int       `json:"minute,omitempty"`
	Precision  Precision `json:"precision"`
}

// NewDay builds a day-precision timestamp.
func NewDay(calendarID string, year int, monthID string, day int) Timestamp {
	return Timestamp{CalendarID: calendarID, Year: year, MonthID: monthID, Day: day, Precision: PrecisionDay}
}

// NewHour builds an hour-precision timestamp.
func NewHour(calendarID string, year int, monthID string, day, hour int) Timestamp {
	return Timestamp{CalendarID: calendarID, Year: year, MonthID: monthID, Day: day, Hour: hour, Precision: PrecisionHour}
}

// NewMinute builds a minute-precision timestamp.
func NewMinute(calendarID string, year int, monthID string, day, hour, minute int) Timestamp {
	return Timestamp{CalendarID: calendarID, Year: year, MonthID: monthID, Day: day, Hour: hour, Minute: minute, Precision: PrecisionMinute}
}

// HourOrZero returns the hour component, defaulting to 0 below hour precision.
func (t Timestamp) HourOrZero() int {
	if t.Precision == PrecisionHour || t.Precision == PrecisionMinute {
		return t.Hour
	}
	return 0
}

// MinuteOrZero returns the minute component, defaulting to 0 below minute
// precision.
func (t Timestamp) MinuteOrZero() int {
	if t.Precision == PrecisionMinute {
		return t.Minute
	}
	return 0
}

// Compare orders a and b on the given schema: year, then month by schema
// month order, then day, hour and minute (missing components read as 0).
// Month ids unknown to the schema fall back to lexicographic order, so the
// result is a total order for any fixed schema.
func Compare(s *schema.Schema, a, b Timestamp) int {
	if a.Year != b.Year {
		return a.Year - b.Year
	}
	if a.MonthID != b.MonthID {
		ai := s.MonthIndex(a.MonthID)
		bi := s.MonthIndex(b.MonthID)
		if ai == -1 || bi == -1 {
			if a.MonthID < b.MonthID {
				return -1
			}
			return 1
		}
		return ai - bi
	}
	if a.Day != b.Day {
		return a.Day - b.Day
	}
	if ha, hb := a.HourOrZero(), b.HourOrZero(); ha != hb {
		return ha - hb
	}
	return a.MinuteOrZero() - b.MinuteOrZero()
}

// Format renders a timestamp for display. The caller supplies the month's
// display name; the month id is used when monthName is empty.
func Format(t Timestamp, monthName string) string {
	month := monthName
	if month == "" {
		month = t.MonthID
	}
	switch t.Precision {
	case PrecisionHour:
		return fmt.Sprintf("Year %d, Day %d of %s, %02d:00", t.Year, t.Day, month, t.Hour)
	case PrecisionMinute:
		return fmt.Sprintf("Year %d, Day %d of %s, %02d:%02d", t.Year, t.Day, month, t.Hour, t.Minute)
	default:
		return fmt.Sprintf("Year %d, Day %d of %s", t.Year, t.Day, month)
	}
}

// DayOfYear returns the 1-based day-of-year for the timestamp's date.
func DayOfYear(s *schema.Schema, t Timestamp) (int, error) {
	index := s.MonthIndex(t.MonthID)
	if index == -1 {
		return 0, fmt.Errorf("%w: %q in schema %q", schema.ErrUnknownMonth, t.MonthID, s.ID)
	}
	days := 0
	for i := 0; i < index; i++ {
		days += s.Months[i].Length
	}
	return days + t.Day, nil
}

// ResolveDayOfYear maps a 1-based day-of-year back to a month id and day.
func ResolveDayOfYear(s *schema.Schema, dayOfYear int) (monthID string, day int, err error) {
	if dayOfYear < 1 || dayOfYear > s.TotalDaysInYear() {
		return "", 0, fmt.Errorf("%w: %d in schema %q", schema.ErrDayOfYearRange, dayOfYear, s.ID)
	}
	remaining := dayOfYear
	for _, m := range s.Months {
		if remaining <= m.Length {
			return m.ID, remaining, nil
		}
		remaining -= m.Length
	}
	return "", 0, fmt.Errorf("%w: %d in schema %q", schema.ErrDayOfYearRange, dayOfYear, s.ID)
}

// FromDayOfYear builds a day-precision timestamp from a year and day-of-year.
func FromDayOfYear(s *schema.Schema, calendarID string, year, dayOfYear int) (Timestamp, error) {
	monthID, day, err := ResolveDayOfYear(s, dayOfYear)
	if err != nil {
		return Timestamp{}, err
	}
	return NewDay(calendarID, year, monthID, day), nil
}

// AbsoluteDay converts a timestamp to a single signed day count relative to
// the start of the epoch year. FromAbsoluteDay is its exact inverse.
func AbsoluteDay(s *schema.Schema, t Timestamp) (int, error) {
	dayOfYear, err := DayOfYear(s, t)
	if err != nil {
		return 0, err
	}
	return (t.Year-s.Epoch.Year)*s.TotalDaysInYear() + dayOfYear - 1, nil
}

// FromAbsoluteDay converts a signed absolute day back into a day-precision
// timestamp, with correct wraparound for days before the epoch year.
func FromAbsoluteDay(s *schema.Schema, calendarID string, absoluteDay int) (Timestamp, error) {
	daysPerYear := s.TotalDaysInYear()
	yearOffset := floorDiv(absoluteDay, daysPerYear)
	dayOfYearIndex := absoluteDay - yearOffset*daysPerYear
	return FromDayOfYear(s, calendarID, s.Epoch.Year+yearOffset, dayOfYearIndex+1)
}

// Weekday returns the weekday index of t, with the schema epoch defined as
// weekday 0.
func Weekday(s *schema.Schema, t Timestamp) (int, error) {
	abs, err := AbsoluteDay(s, t)
	if err != nil {
		return 0, err
	}
	epoch := NewDay(t.CalendarID, s.Epoch.Year, s.Epoch.MonthID, s.Epoch.Day)
	epochAbs, err := AbsoluteDay(s, epoch)
	if err != nil {
		return 0, err
	}
	return schema.Mod(abs-epochAbs, s.DaysPerWeek), nil
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
