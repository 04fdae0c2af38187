// Package repository defines the in-memory registry the service reads
// calendars, events and phenomena from. The engine itself never touches it;
// persistence beyond process lifetime is an external concern.
package repository

import (
	"context"

	"github.com/okian/almanac/internal/domain/event"
	"github.com/okian/almanac/internal/domain/phenomenon"
	"github.com/okian/almanac/internal/domain/schema"
)

// Store provides keyed access to registered definitions. Put operations are
// upserts keyed by id.
type Store interface {
	// PutCalendar registers or replaces a calendar schema.
	PutCalendar(ctx context.Context, s *schema.Schema) error
	// Calendar returns the schema with the given id.
	// Returns ErrNotFound if the id is unknown.
	Calendar(ctx context.Context, id string) (*schema.Schema, error)

	// PutEvent registers or replaces an event.
	PutEvent(ctx context.Context, e *event.Event) error
	// Event returns the event with the given id.
	Event(ctx context.Context, id string) (*event.Event, error)
	// EventsForCalendar returns all events on a calendar, ordered by id.
	EventsForCalendar(ctx context.Context, calendarID string) []*event.Event

	// PutPhenomenon registers or replaces a phenomenon.
	PutPhenomenon(ctx context.Context, p *phenomenon.Phenomenon) error
	// Phenomenon returns the phenomenon with the given id.
	Phenomenon(ctx context.Context, id string) (*phenomenon.Phenomenon, error)
	// PhenomenaForCalendar returns the phenomena visible on a calendar,
	// ordered by id.
	PhenomenaForCalendar(ctx context.Context, calendarID string) []*phenomenon.Phenomenon

	// Counts reports registry sizes for stats and metrics.
	Counts(ctx context.Context) (calendars, events, phenomena int)
}
