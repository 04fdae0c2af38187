package repeat

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/almanac/internal/domain/schema"
	"github.com/okian/almanac/internal/domain/timestamp"
)

// maxMonthScan bounds the month-by-month search so degenerate weekday
// alignments terminate with "no occurrence" instead of spinning.
const maxMonthScan = 600

// Next returns the first timestamp qualifying under r strictly after start,
// or at start when opts.IncludeStart. A nil result with a nil error means
// the rule has no further occurrence; that is a normal outcome, not a
// failure.
func Next(ctx context.Context, s *schema.Schema, calendarID string, r Rule, start timestamp.Timestamp, opts Options, svcs Services) (*timestamp.Timestamp, error) {
	if err := Validate(s, r); err != nil {
		return nil, err
	}
	return next(ctx, s, calendarID, r, start, opts, svcs)
}

func next(ctx context.Context, s *schema.Schema, calendarID string, r Rule, start timestamp.Timestamp, opts Options, svcs Services) (*timestamp.Timestamp, error) {
	switch rule := r.(type) {
	case AnnualOffset:
		return nextAnnual(s, calendarID, rule, start, opts.IncludeStart)
	case MonthlyPosition:
		return nextMonthly(s, calendarID, rule, start, opts.IncludeStart)
	case WeeklyDayIndex:
		return nextWeekly(s, calendarID, rule, start, opts.IncludeStart)
	case Astronomical:
		if svcs.Astronomical == nil {
			return nil, fmt.Errorf("%w: astronomical calculator", ErrMissingService)
		}
		raw, err := svcs.Astronomical.NextOccurrence(ctx, s, calendarID, rule, start, opts)
		if err != nil {
			return nil, fmt.Errorf("astronomical calculator: %w", err)
		}
		return enforceAfter(s, raw, start, opts.IncludeStart), nil
	case Custom:
		if svcs.Custom == nil {
			return nil, fmt.Errorf("%w: custom rule resolver", ErrMissingService)
		}
		raw, err := svcs.Custom.NextOccurrence(ctx, s, calendarID, rule, start, opts)
		if err != nil {
			return nil, fmt.Errorf("custom rule resolver: %w", err)
		}
		return enforceAfter(s, raw, start, opts.IncludeStart), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedRule, r)
	}
}

// InRange returns all qualifying timestamps within [start, end] in ascending
// order. A reversed range is normalized first; opts.IncludeStart applies to
// the range start the same way it does for Next.
func InRange(ctx context.Context, s *schema.Schema, calendarID string, r Rule, rangeStart, rangeEnd timestamp.Timestamp, opts Options, svcs Services) ([]timestamp.Timestamp, error) {
	if err := Validate(s, r); err != nil {
		return nil, err
	}

	start, end := rangeStart, rangeEnd
	if timestamp.Compare(s, start, end) > 0 {
		start, end = end, start
	}

	switch rule := r.(type) {
	case Astronomical:
		if svcs.Astronomical == nil {
			return nil, fmt.Errorf("%w: astronomical calculator", ErrMissingService)
		}
		raw, err := svcs.Astronomical.OccurrencesInRange(ctx, s, calendarID, rule, start, end, opts)
		if err != nil {
			return nil, fmt.Errorf("astronomical calculator: %w", err)
		}
		return enforceWindow(s, raw, start, end, opts), nil
	case Custom:
		if svcs.Custom == nil {
			return nil, fmt.Errorf("%w: custom rule resolver", ErrMissingService)
		}
		raw, err := svcs.Custom.OccurrencesInRange(ctx, s, calendarID, rule, start, end, opts)
		if err != nil {
			return nil, fmt.Errorf("custom rule resolver: %w", err)
		}
		return enforceWindow(s, raw, start, end, opts), nil
	default:
		return collectInRange(ctx, s, calendarID, r, start, end, opts, svcs)
	}
}

func collectInRange(ctx context.Context, s *schema.Schema, calendarID string, r Rule, start, end timestamp.Timestamp, opts Options, svcs Services) ([]timestamp.Timestamp, error) {
	var out []timestamp.Timestamp
	cursor, err := next(ctx, s, calendarID, r, start, opts, svcs)
	if err != nil {
		return nil, err
	}

	for cursor != nil && timestamp.Compare(s, *cursor, end) <= 0 {
		out = append(out, *cursor)
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
		step, err := next(ctx, s, calendarID, r, *cursor, Options{}, svcs)
		if err != nil {
			return nil, err
		}
		// A rule that stalls on the same timestamp would never leave the
		// window; stop instead of looping.
		if step != nil && timestamp.Compare(s, *step, *cursor) == 0 {
			break
		}
		cursor = step
	}
	return out, nil
}

func nextAnnual(s *schema.Schema, calendarID string, rule AnnualOffset, start timestamp.Timestamp, includeStart bool) (*timestamp.Timestamp, error) {
	day, err := s.ClampDay(rule.MonthID, rule.Day)
	if err != nil {
		return nil, err
	}
	candidate := timestamp.NewDay(calendarID, start.Year, rule.MonthID, day)
	if cmp := timestamp.Compare(s, candidate, start); cmp > 0 || (cmp == 0 && includeStart) {
		return &candidate, nil
	}
	following := timestamp.NewDay(calendarID, start.Year+1, rule.MonthID, day)
	return &following, nil
}

func nextMonthly(s *schema.Schema, calendarID string, rule MonthlyPosition, start timestamp.Timestamp, includeStart bool) (*timestamp.Timestamp, error) {
	index := s.MonthIndex(start.MonthID)
	if index == -1 {
		return nil, fmt.Errorf("%w: %q in schema %q", schema.ErrUnknownMonth, start.MonthID, s.ID)
	}

	year := start.Year
	for scanned := 0; scanned < maxMonthScan; scanned++ {
		month := s.Months[index]
		day, ok, err := monthlyCandidateDay(s, calendarID, rule, year, month)
		if err != nil {
			return nil, err
		}
		if ok {
			candidate := timestamp.NewDay(calendarID, year, month.ID, day)
			if cmp := timestamp.Compare(s, candidate, start); cmp > 0 || (cmp == 0 && includeStart) {
				return &candidate, nil
			}
		}
		index++
		if index == len(s.Months) {
			index = 0
			year++
		}
	}
	return nil, nil
}

// monthlyCandidateDay resolves the rule's day within one concrete month, or
// reports that the month has no qualifying day (short month without an Nth
// weekday slot).
func monthlyCandidateDay(s *schema.Schema, calendarID string, rule MonthlyPosition, year int, month schema.Month) (int, bool, error) {
	if rule.Day > 0 {
		if rule.Day > month.Length {
			return month.Length, true, nil
		}
		return rule.Day, true, nil
	}

	firstWeekday, err := timestamp.Weekday(s, timestamp.NewDay(calendarID, year, month.ID, 1))
	if err != nil {
		return 0, false, err
	}
	day := 1 + schema.Mod(rule.Weekday-firstWeekday, s.DaysPerWeek) + (rule.Nth-1)*s.DaysPerWeek
	if day > month.Length {
		return 0, false, nil
	}
	return day, true, nil
}

func nextWeekly(s *schema.Schema, calendarID string, rule WeeklyDayIndex, start timestamp.Timestamp, includeStart bool) (*timestamp.Timestamp, error) {
	absStart, err := timestamp.AbsoluteDay(s, start)
	if err != nil {
		return nil, err
	}
	anchorAbs, err := timestamp.AbsoluteDay(s, rule.Anchor)
	if err != nil {
		return nil, fmt.Errorf("%w: anchor: %v", ErrInvalidRule, err)
	}
	epochAbs, err := timestamp.AbsoluteDay(s, timestamp.NewDay(calendarID, s.Epoch.Year, s.Epoch.MonthID, s.Epoch.Day))
	if err != nil {
		return nil, err
	}

	// First day with the rule's weekday on or after the anchor; qualifying
	// days repeat from there in interval-week steps, in both directions.
	base := anchorAbs + schema.Mod(rule.DayIndex-schema.Mod(anchorAbs-epochAbs, s.DaysPerWeek), s.DaysPerWeek)

	lower := absStart + 1
	if includeStart {
		lower = absStart
	}
	step := rule.Interval * s.DaysPerWeek
	candidate := base + ceilDiv(lower-base, step)*step

	result, err := timestamp.FromAbsoluteDay(s, calendarID, candidate)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// enforceAfter discards calculator output that lands on or before the search
// start in violation of the includeStart contract.
func enforceAfter(s *schema.Schema, raw *timestamp.Timestamp, start timestamp.Timestamp, includeStart bool) *timestamp.Timestamp {
	if raw == nil {
		return nil
	}
	if cmp := timestamp.Compare(s, *raw, start); cmp > 0 || (cmp == 0 && includeStart) {
		return raw
	}
	return nil
}

// enforceWindow filters, orders and caps calculator output so injected
// services cannot leak timestamps outside the requested window.
func enforceWindow(s *schema.Schema, raw []timestamp.Timestamp, start, end timestamp.Timestamp, opts Options) []timestamp.Timestamp {
	var out []timestamp.Timestamp
	for _, ts := range raw {
		cmpStart := timestamp.Compare(s, ts, start)
		if cmpStart < 0 || (cmpStart == 0 && !opts.IncludeStart) {
			continue
		}
		if timestamp.Compare(s, ts, end) > 0 {
			continue
		}
		out = append(out, ts)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return timestamp.Compare(s, out[i], out[j]) < 0
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

func ceilDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) == (b < 0) {
		q++
	}
	return q
}
