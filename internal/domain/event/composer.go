package event

import (
	"context"

	"github.com/okian/almanac/internal/domain/repeat"
	"github.com/okian/almanac/internal/domain/schema"
	"github.com/okian/almanac/internal/domain/timestamp"
)

// NextOccurrence resolves the first occurrence of ev strictly after start
// (or at start when opts.IncludeStart). A nil result means the event has no
// further occurrence, which for recurring events includes exhausted bounds.
func NextOccurrence(ctx context.Context, s *schema.Schema, calendarID string, ev *Event, start timestamp.Timestamp, opts repeat.Options, svcs repeat.Services) (*Occurrence, error) {
	if ev.Kind == KindSingle {
		if cmp := timestamp.Compare(s, ev.Date, start); cmp > 0 || (cmp == 0 && opts.IncludeStart) {
			return buildSingle(s, ev)
		}
		return nil, nil
	}

	effectiveStart := clampToBoundsStart(s, ev, start)
	cursor, err := repeat.Next(ctx, s, calendarID, ev.Rule, effectiveStart, opts, svcs)
	if err != nil {
		return nil, err
	}

	for cursor != nil && !withinBounds(s, ev.Bounds, *cursor) {
		if ev.Bounds == nil || ev.Bounds.End == nil {
			return nil, nil
		}
		if timestamp.Compare(s, *cursor, *ev.Bounds.End) >= 0 {
			return nil, nil
		}
		step, err := repeat.Next(ctx, s, calendarID, ev.Rule, *cursor, repeat.Options{}, svcs)
		if err != nil {
			return nil, err
		}
		if step != nil && timestamp.Compare(s, *step, *cursor) == 0 {
			return nil, nil
		}
		cursor = step
	}
	if cursor == nil {
		return nil, nil
	}
	return buildRecurring(s, calendarID, ev, *cursor)
}

// OccurrencesInRange resolves every occurrence of ev within [rangeStart,
// rangeEnd], ascending. Reversed ranges are normalized.
func OccurrencesInRange(ctx context.Context, s *schema.Schema, calendarID string, ev *Event, rangeStart, rangeEnd timestamp.Timestamp, opts repeat.Options, svcs repeat.Services) ([]Occurrence, error) {
	start, end := rangeStart, rangeEnd
	if timestamp.Compare(s, start, end) > 0 {
		start, end = end, start
	}

	if ev.Kind == KindSingle {
		cmpStart := timestamp.Compare(s, ev.Date, start)
		afterStart := cmpStart > 0 || (cmpStart == 0 && opts.IncludeStart)
		if !afterStart || timestamp.Compare(s, ev.Date, end) > 0 {
			return nil, nil
		}
		occ, err := buildSingle(s, ev)
		if err != nil {
			return nil, err
		}
		return []Occurrence{*occ}, nil
	}

	effectiveStart := clampToBoundsStart(s, ev, start)
	bases, err := repeat.InRange(ctx, s, calendarID, ev.Rule, effectiveStart, end, opts, svcs)
	if err != nil {
		return nil, err
	}

	var out []Occurrence
	for _, base := range bases {
		if !withinBounds(s, ev.Bounds, base) {
			continue
		}
		occ, err := buildRecurring(s, calendarID, ev, base)
		if err != nil {
			return nil, err
		}
		out = append(out, *occ)
	}
	return out, nil
}

// clampToBoundsStart lifts the search start up to bounds.start so rules are
// never evaluated before the event becomes active.
func clampToBoundsStart(s *schema.Schema, ev *Event, start timestamp.Timestamp) timestamp.Timestamp {
	if ev.Bounds == nil || ev.Bounds.Start == nil {
		return start
	}
	if timestamp.Compare(s, start, *ev.Bounds.Start) >= 0 {
		return start
	}
	return *ev.Bounds.Start
}

func withinBounds(s *schema.Schema, bounds *Bounds, ts timestamp.Timestamp) bool {
	if bounds == nil {
		return true
	}
	if bounds.Start != nil && timestamp.Compare(s, ts, *bounds.Start) < 0 {
		return false
	}
	if bounds.End != nil && timestamp.Compare(s, ts, *bounds.End) > 0 {
		return false
	}
	return true
}

func buildSingle(s *schema.Schema, ev *Event) (*Occurrence, error) {
	def := s.TimeDefinition()
	base := ev.Date

	start := base
	if !ev.AllDay {
		h, m := base.HourOrZero(), base.MinuteOrZero()
		if ev.StartTime != nil {
			h, m = ev.StartTime.Hour, ev.StartTime.Minute
		}
		start = timestamp.NewMinute(base.CalendarID, base.Year, base.MonthID, base.Day, h, m)
	}

	duration := 0
	switch {
	case ev.DurationMinutes != nil:
		duration = *ev.DurationMinutes
	case ev.EndTime != nil:
		duration = durationFromTimes(ev.StartTime, *ev.EndTime, base, def)
	}
	if duration <= 0 && ev.AllDay {
		duration = def.MinutesPerDay()
	}

	end, err := windowEnd(s, start, duration)
	if err != nil {
		return nil, err
	}
	return &Occurrence{
		EventID:         ev.ID,
		CalendarID:      ev.CalendarID,
		Kind:            KindSingle,
		Title:           ev.Title,
		Category:        ev.Category,
		Start:           start,
		End:             end,
		DurationMinutes: duration,
		AllDay:          ev.AllDay,
		Priority:        ev.Priority,
		Hooks:           ev.SortedHooks(),
		Source:          ev,
	}, nil
}

func buildRecurring(s *schema.Schema, calendarID string, ev *Event, base timestamp.Timestamp) (*Occurrence, error) {
	def := s.TimeDefinition()

	var start timestamp.Timestamp
	duration := 0
	if ev.DurationMinutes != nil {
		duration = *ev.DurationMinutes
	}

	switch ev.TimePolicy {
	case PolicyAllDay:
		start = base
		if ev.DurationMinutes == nil {
			duration = def.MinutesPerDay()
		}
	case PolicyFixed:
		h, m := 0, 0
		if ev.StartTime != nil {
			h, m = ev.StartTime.Hour, ev.StartTime.Minute
		}
		start = timestamp.NewMinute(calendarID, base.Year, base.MonthID, base.Day, h, m)
	default:
		// Offset policy; also the fallback the original engine applied to
		// unknown policies on events.
		moved, err := timestamp.Advance(s, base, ev.OffsetMinutes, timestamp.UnitMinute)
		if err != nil {
			return nil, err
		}
		start = moved
	}

	end, err := windowEnd(s, start, duration)
	if err != nil {
		return nil, err
	}
	return &Occurrence{
		EventID:         ev.ID,
		CalendarID:      calendarID,
		Kind:            KindRecurring,
		Title:           ev.Title,
		Category:        ev.Category,
		Start:           start,
		End:             end,
		DurationMinutes: duration,
		AllDay:          ev.TimePolicy == PolicyAllDay,
		Priority:        ev.Priority,
		Hooks:           ev.SortedHooks(),
		Source:          ev,
	}, nil
}

// durationFromTimes derives a duration from start/end time-of-day. An end
// before the start wraps past midnight into the following day.
func durationFromTimes(startTime *TimeOfDay, endTime TimeOfDay, base timestamp.Timestamp, def schema.TimeDefinition) int {
	startMinutes := base.HourOrZero()*def.MinutesPerHour + base.MinuteOrZero()
	if startTime != nil {
		startMinutes = startTime.Hour*def.MinutesPerHour + startTime.Minute
	}
	endMinutes := endTime.Hour*def.MinutesPerHour + endTime.Minute

	raw := endMinutes - startMinutes
	if raw < 0 {
		raw += def.MinutesPerDay()
	}
	return raw
}

func windowEnd(s *schema.Schema, start timestamp.Timestamp, duration int) (timestamp.Timestamp, error) {
	if duration <= 0 {
		return start, nil
	}
	return timestamp.Advance(s, start, duration, timestamp.UnitMinute)
}
