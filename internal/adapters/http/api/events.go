package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/almanac/internal/domain/event"
	"github.com/okian/almanac/internal/domain/hook"
)

// EventsHandler handles event registration requests.
type EventsHandler struct {
	deps Dependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// eventRequest mirrors the wire schema for POST /events.
type eventRequest struct {
	ID          string            `json:"id,omitempty"`
	CalendarID  string            `json:"calendar_id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Category    string            `json:"category,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Priority    int               `json:"priority,omitempty"`
	Hooks       []hook.Descriptor `json:"hooks,omitempty"`

	Kind string `json:"kind"`

	// Single.
	Date      *wireTimestamp   `json:"date,omitempty"`
	AllDay    bool             `json:"all_day,omitempty"`
	StartTime *event.TimeOfDay `json:"start_time,omitempty"`
	EndTime   *event.TimeOfDay `json:"end_time,omitempty"`

	// Recurring.
	Rule          *wireRule    `json:"rule,omitempty"`
	TimePolicy    string       `json:"time_policy,omitempty"`
	OffsetMinutes int          `json:"offset_minutes,omitempty"`
	Bounds        *boundsShape `json:"bounds,omitempty"`

	DurationMinutes *int `json:"duration_minutes,omitempty"`
}

type boundsShape struct {
	Start *wireTimestamp `json:"start,omitempty"`
	End   *wireTimestamp `json:"end,omitempty"`
}

func (e eventRequest) validate() error {
	switch {
	case strings.TrimSpace(e.CalendarID) == "":
		return errors.New("missing calendar_id")
	case strings.TrimSpace(e.Title) == "":
		return errors.New("missing title")
	}
	switch e.Kind {
	case string(event.KindSingle):
		if e.Date == nil {
			return errors.New("single event needs a date")
		}
	case string(event.KindRecurring):
		if e.Rule == nil {
			return errors.New("recurring event needs a rule")
		}
	default:
		return errors.New("kind must be single or recurring")
	}
	return nil
}

func (e eventRequest) toEvent() (*event.Event, error) {
	rule, err := e.Rule.toRule(e.CalendarID)
	if err != nil {
		return nil, err
	}
	ev := &event.Event{
		ID:              e.ID,
		CalendarID:      e.CalendarID,
		Title:           e.Title,
		Description:     e.Description,
		Category:        e.Category,
		Tags:            e.Tags,
		Priority:        e.Priority,
		Hooks:           e.Hooks,
		Kind:            event.Kind(e.Kind),
		AllDay:          e.AllDay,
		StartTime:       e.StartTime,
		EndTime:         e.EndTime,
		Rule:            rule,
		TimePolicy:      event.TimePolicy(e.TimePolicy),
		OffsetMinutes:   e.OffsetMinutes,
		DurationMinutes: e.DurationMinutes,
	}
	if e.Date != nil {
		ev.Date = e.Date.toTimestamp(e.CalendarID)
	}
	if e.Bounds != nil {
		bounds := &event.Bounds{}
		if e.Bounds.Start != nil {
			start := e.Bounds.Start.toTimestamp(e.CalendarID)
			bounds.Start = &start
		}
		if e.Bounds.End != nil {
			end := e.Bounds.End.toTimestamp(e.CalendarID)
			bounds.End = &end
		}
		ev.Bounds = bounds
	}
	return ev, nil
}

// HandlePostEvent handles POST /events requests.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	ev, err := req.toEvent()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	id, err := h.deps.RegisterEvent(r.Context(), ev)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id, Status: "registered"})
}
