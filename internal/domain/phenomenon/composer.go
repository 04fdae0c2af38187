package phenomenon

import (
	"context"
	"fmt"

	"github.com/okian/almanac/internal/domain/hook"
	"github.com/okian/almanac/internal/domain/repeat"
	"github.com/okian/almanac/internal/domain/schema"
	"github.com/okian/almanac/internal/domain/timestamp"
)

// NextOccurrence resolves the first occurrence of p on calendarID strictly
// after start (or at start when opts.IncludeStart). Phenomena have no
// bounds: every timestamp the rule yields becomes an occurrence.
func NextOccurrence(ctx context.Context, s *schema.Schema, calendarID string, p *Phenomenon, start timestamp.Timestamp, opts repeat.Options, svcs repeat.Services) (*Occurrence, error) {
	base, err := repeat.Next(ctx, s, calendarID, p.Rule, start, opts, svcs)
	if err != nil {
		return nil, err
	}
	if base == nil {
		return nil, nil
	}
	return build(s, calendarID, p, *base)
}

// OccurrencesInRange resolves every occurrence of p within [rangeStart,
// rangeEnd], ascending.
func OccurrencesInRange(ctx context.Context, s *schema.Schema, calendarID string, p *Phenomenon, rangeStart, rangeEnd timestamp.Timestamp, opts repeat.Options, svcs repeat.Services) ([]Occurrence, error) {
	bases, err := repeat.InRange(ctx, s, calendarID, p.Rule, rangeStart, rangeEnd, opts, svcs)
	if err != nil {
		return nil, err
	}
	out := make([]Occurrence, 0, len(bases))
	for _, base := range bases {
		occ, err := build(s, calendarID, p, base)
		if err != nil {
			return nil, err
		}
		out = append(out, *occ)
	}
	return out, nil
}

func build(s *schema.Schema, calendarID string, p *Phenomenon, base timestamp.Timestamp) (*Occurrence, error) {
	start, end, duration, err := applyTimePolicy(s, calendarID, p, base)
	if err != nil {
		return nil, err
	}
	return &Occurrence{
		PhenomenonID:    p.ID,
		Name:            p.Name,
		CalendarID:      calendarID,
		Start:           start,
		End:             end,
		Category:        p.Category,
		Priority:        p.Priority,
		DurationMinutes: duration,
		Hooks:           hook.SortByPriority(p.Hooks),
		Effects:         p.Effects,
		Source:          p,
	}, nil
}

// applyTimePolicy projects a rule-produced base timestamp into a window.
// This deliberately duplicates the event composer's projection: the two
// policies differ in small ways (fixed start times are clamped to the
// schema's hour/minute ranges here) and evolve independently.
func applyTimePolicy(s *schema.Schema, calendarID string, p *Phenomenon, base timestamp.Timestamp) (start, end timestamp.Timestamp, duration int, err error) {
	def := s.TimeDefinition()

	switch p.TimePolicy {
	case PolicyAllDay:
		start = base
		duration = def.MinutesPerDay()
		if p.DurationMinutes != nil {
			duration = *p.DurationMinutes
		}
	case PolicyFixed:
		st := StartTime{}
		if p.StartTime != nil {
			st = *p.StartTime
		}
		h := clamp(st.Hour, 0, def.HoursPerDay-1)
		m := clamp(st.Minute, 0, def.MinutesPerHour-1)
		start = timestamp.NewMinute(calendarID, base.Year, base.MonthID, base.Day, h, m)
		if p.DurationMinutes != nil {
			duration = *p.DurationMinutes
		}
	case PolicyOffset:
		start, err = timestamp.Advance(s, base, p.OffsetMinutes, timestamp.UnitMinute)
		if err != nil {
			return timestamp.Timestamp{}, timestamp.Timestamp{}, 0, err
		}
		if p.DurationMinutes != nil {
			duration = *p.DurationMinutes
		}
	default:
		return timestamp.Timestamp{}, timestamp.Timestamp{}, 0, fmt.Errorf("%w: %q", ErrUnsupportedTimePolicy, p.TimePolicy)
	}

	end = start
	if duration > 0 {
		end, err = timestamp.Advance(s, start, duration, timestamp.UnitMinute)
		if err != nil {
			return timestamp.Timestamp{}, timestamp.Timestamp{}, 0, err
		}
	}
	return start, end, duration, nil
}

func clamp(value, minVal, maxVal int) int {
	if value < minVal {
		return minVal
	}
	if value > maxVal {
		return maxVal
	}
	return value
}
