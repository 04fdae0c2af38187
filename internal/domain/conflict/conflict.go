// Package conflict groups temporally overlapping occurrences and picks
// exactly one active occurrence per group by priority, deterministically
// suppressing the rest.
package conflict

import (
	"sort"

	"github.com/okian/almanac/internal/domain/event"
	"github.com/okian/almanac/internal/domain/hook"
	"github.com/okian/almanac/internal/domain/phenomenon"
	"github.com/okian/almanac/internal/domain/schema"
	"github.com/okian/almanac/internal/domain/timestamp"
)

// SourceKind tags where a normalized occurrence came from.
type SourceKind string

// Occurrence sources.
const (
	SourceEventSingle    SourceKind = "event_single"
	SourceEventRecurring SourceKind = "event_recurring"
	SourcePhenomenon     SourceKind = "phenomenon"
)

// TemporalOccurrence is the normalized shape both composers reduce to for
// conflict detection.
type TemporalOccurrence struct {
	SourceKind SourceKind
	SourceID   string
	CalendarID string
	Label      string
	Start      timestamp.Timestamp
	End        timestamp.Timestamp
	Priority   int
	Hooks      []hook.Descriptor
	Effects    []phenomenon.Effect
}

// Window is the time span covered by a conflict group.
type Window struct {
	Start timestamp.Timestamp
	End   timestamp.Timestamp
}

// Group is a maximal set of occurrences whose windows transitively overlap.
type Group struct {
	Window      Window
	Occurrences []TemporalOccurrence
}

// Resolution is the outcome of priority resolution for one group.
type Resolution struct {
	Window           Window
	Ordered          []TemporalOccurrence
	Active           TemporalOccurrence
	Suppressed       []TemporalOccurrence
	TriggeredHooks   []hook.Descriptor
	TriggeredEffects []phenomenon.Effect
}

// FromEventOccurrence normalizes an event occurrence. Event-sourced
// occurrences carry no effects.
func FromEventOccurrence(occ *event.Occurrence) TemporalOccurrence {
	kind := SourceEventRecurring
	if occ.Kind == event.KindSingle {
		kind = SourceEventSingle
	}
	return TemporalOccurrence{
		SourceKind: kind,
		SourceID:   occ.EventID,
		CalendarID: occ.CalendarID,
		Label:      occ.Title,
		Start:      occ.Start,
		End:        occ.End,
		Priority:   occ.Priority,
		Hooks:      occ.Hooks,
	}
}

// FromPhenomenonOccurrence normalizes a phenomenon occurrence.
func FromPhenomenonOccurrence(occ *phenomenon.Occurrence) TemporalOccurrence {
	return TemporalOccurrence{
		SourceKind: SourcePhenomenon,
		SourceID:   occ.PhenomenonID,
		CalendarID: occ.CalendarID,
		Label:      occ.Name,
		Start:      occ.Start,
		End:        occ.End,
		Priority:   occ.Priority,
		Hooks:      occ.Hooks,
		Effects:    occ.Effects,
	}
}

// Detect partitions occurrences into conflict groups. The input is sorted by
// (start asc, priority desc, source id asc) for determinism; a sweep then
// joins an occurrence to the running group while its start lies strictly
// before the group's running end in absolute minutes.
func Detect(s *schema.Schema, occurrences []TemporalOccurrence) ([]Group, error) {
	if len(occurrences) == 0 {
		return nil, nil
	}

	sorted := make([]TemporalOccurrence, len(occurrences))
	copy(sorted, occurrences)
	sort.SliceStable(sorted, func(i, j int) bool {
		if cmp := timestamp.Compare(s, sorted[i].Start, sorted[j].Start); cmp != 0 {
			return cmp < 0
		}
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority > sorted[j].Priority
		}
		return sorted[i].SourceID < sorted[j].SourceID
	})

	var groups []Group
	var current []TemporalOccurrence
	currentEnd := 0

	for _, occ := range sorted {
		startMinutes, err := absoluteMinutes(s, occ.Start)
		if err != nil {
			return nil, err
		}
		endMinutes, err := absoluteMinutes(s, occ.End)
		if err != nil {
			return nil, err
		}
		if endMinutes < startMinutes {
			endMinutes = startMinutes
		}

		switch {
		case len(current) == 0:
			current = []TemporalOccurrence{occ}
			currentEnd = endMinutes
		case startMinutes < currentEnd:
			current = append(current, occ)
			if endMinutes > currentEnd {
				currentEnd = endMinutes
			}
		default:
			groups = append(groups, closeGroup(s, current))
			current = []TemporalOccurrence{occ}
			currentEnd = endMinutes
		}
	}
	groups = append(groups, closeGroup(s, current))
	return groups, nil
}

// ResolveByPriority picks the active occurrence of each group: priority
// descending, then start ascending, then source id ascending. The active
// occurrence's hooks (sorted) and effects become the triggered set.
func ResolveByPriority(s *schema.Schema, groups []Group) []Resolution {
	out := make([]Resolution, 0, len(groups))
	for _, group := range groups {
		ordered := make([]TemporalOccurrence, len(group.Occurrences))
		copy(ordered, group.Occurrences)
		sort.SliceStable(ordered, func(i, j int) bool {
			if ordered[i].Priority != ordered[j].Priority {
				return ordered[i].Priority > ordered[j].Priority
			}
			if cmp := timestamp.Compare(s, ordered[i].Start, ordered[j].Start); cmp != 0 {
				return cmp < 0
			}
			return ordered[i].SourceID < ordered[j].SourceID
		})

		active := ordered[0]
		out = append(out, Resolution{
			Window:           group.Window,
			Ordered:          ordered,
			Active:           active,
			Suppressed:       ordered[1:],
			TriggeredHooks:   hook.SortByPriority(active.Hooks),
			TriggeredEffects: active.Effects,
		})
	}
	return out
}

func closeGroup(s *schema.Schema, members []TemporalOccurrence) Group {
	end := members[0].End
	for _, occ := range members[1:] {
		if timestamp.Compare(s, occ.End, end) > 0 {
			end = occ.End
		}
	}
	return Group{
		Window:      Window{Start: members[0].Start, End: end},
		Occurrences: members,
	}
}

func absoluteMinutes(s *schema.Schema, ts timestamp.Timestamp) (int, error) {
	def := s.TimeDefinition()
	abs, err := timestamp.AbsoluteDay(s, ts)
	if err != nil {
		return 0, err
	}
	return abs*def.MinutesPerDay() + ts.HourOrZero()*def.MinutesPerHour + ts.MinuteOrZero(), nil
}
