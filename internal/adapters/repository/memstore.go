package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/okian/almanac/internal/domain/event"
	"github.com/okian/almanac/internal/domain/phenomenon"
	"github.com/okian/almanac/internal/domain/schema"
)

// defaultInitialCapacity pre-sizes the registry maps.
const defaultInitialCapacity = 64

// MemoryStore implements Store with plain maps behind a RWMutex. List
// methods return deterministic id order so occurrence queries are stable.
type MemoryStore struct {
	mu sync.RWMutex

	initialCapacity int

	calendars map[string]*schema.Schema
	events    map[string]*event.Event
	phenomena map[string]*phenomenon.Phenomenon
}

// NewMemoryStore creates an empty registry with configuration options.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		initialCapacity: defaultInitialCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.calendars = make(map[string]*schema.Schema, s.initialCapacity)
	s.events = make(map[string]*event.Event, s.initialCapacity)
	s.phenomena = make(map[string]*phenomenon.Phenomenon, s.initialCapacity)
	return s
}

// PutCalendar registers or replaces a calendar schema.
func (s *MemoryStore) PutCalendar(_ context.Context, cal *schema.Schema) error {
	if cal.ID == "" {
		return fmt.Errorf("%w: calendar", ErrMissingID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calendars[cal.ID] = cal
	return nil
}

// Calendar returns the schema with the given id.
func (s *MemoryStore) Calendar(_ context.Context, id string) (*schema.Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cal, ok := s.calendars[id]
	if !ok {
		return nil, fmt.Errorf("%w: calendar %q", ErrNotFound, id)
	}
	return cal, nil
}

// PutEvent registers or replaces an event.
func (s *MemoryStore) PutEvent(_ context.Context, e *event.Event) error {
	if e.ID == "" {
		return fmt.Errorf("%w: event", ErrMissingID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = e
	return nil
}

// Event returns the event with the given id.
func (s *MemoryStore) Event(_ context.Context, id string) (*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("%w: event %q", ErrNotFound, id)
	}
	return e, nil
}

// EventsForCalendar returns all events on a calendar, ordered by id.
func (s *MemoryStore) EventsForCalendar(_ context.Context, calendarID string) []*event.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*event.Event
	for _, e := range s.events {
		if e.CalendarID == calendarID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PutPhenomenon registers or replaces a phenomenon.
func (s *MemoryStore) PutPhenomenon(_ context.Context, p *phenomenon.Phenomenon) error {
	if p.ID == "" {
		return fmt.Errorf("%w: phenomenon", ErrMissingID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phenomena[p.ID] = p
	return nil
}

// Phenomenon returns the phenomenon with the given id.
func (s *MemoryStore) Phenomenon(_ context.Context, id string) (*phenomenon.Phenomenon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.phenomena[id]
	if !ok {
		return nil, fmt.Errorf("%w: phenomenon %q", ErrNotFound, id)
	}
	return p, nil
}

// PhenomenaForCalendar returns the phenomena visible on a calendar, ordered
// by id.
func (s *MemoryStore) PhenomenaForCalendar(_ context.Context, calendarID string) []*phenomenon.Phenomenon {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*phenomenon.Phenomenon
	for _, p := range s.phenomena {
		if phenomenon.VisibleForCalendar(p, calendarID) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Counts reports registry sizes.
func (s *MemoryStore) Counts(_ context.Context) (calendars, events, phenomena int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.calendars), len(s.events), len(s.phenomena)
}
