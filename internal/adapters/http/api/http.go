// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/almanac/internal/domain/conflict"
	"github.com/okian/almanac/internal/domain/event"
	"github.com/okian/almanac/internal/domain/phenomenon"
	"github.com/okian/almanac/internal/domain/repeat"
	"github.com/okian/almanac/internal/domain/schema"
	"github.com/okian/almanac/internal/domain/timestamp"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RegisterCalendar(ctx context.Context, cal *schema.Schema) (string, error)
	RegisterEvent(ctx context.Context, ev *event.Event) (string, error)
	RegisterPhenomenon(ctx context.Context, p *phenomenon.Phenomenon) (string, error)
	Occurrences(ctx context.Context, calendarID string, from, to timestamp.Timestamp, limit int) ([]conflict.TemporalOccurrence, error)
	Conflicts(ctx context.Context, calendarID string, from, to timestamp.Timestamp) ([]conflict.Resolution, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	calendarsHandler   *CalendarsHandler
	eventsHandler      *EventsHandler
	phenomenaHandler   *PhenomenaHandler
	occurrencesHandler *OccurrencesHandler
	conflictsHandler   *ConflictsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		calendarsHandler:   NewCalendarsHandler(deps),
		eventsHandler:      NewEventsHandler(deps),
		phenomenaHandler:   NewPhenomenaHandler(deps),
		occurrencesHandler: NewOccurrencesHandler(deps),
		conflictsHandler:   NewConflictsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/calendars", MetricsMiddleware(s.calendarsHandler.HandlePostCalendar, "calendars"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("/phenomena", MetricsMiddleware(s.phenomenaHandler.HandlePostPhenomenon, "phenomena"))
	mux.HandleFunc("/occurrences", MetricsMiddleware(s.occurrencesHandler.HandleGetOccurrences, "occurrences"))
	mux.HandleFunc("/conflicts", MetricsMiddleware(s.conflictsHandler.HandleGetConflicts, "conflicts"))
}

// wireTimestamp is the JSON shape of a calendar timestamp. Precision follows
// from which optional components are present: a minute implies an hour, an
// hour alone means hour precision, neither means day precision.
type wireTimestamp struct {
	Year   int    `json:"year"`
	Month  string `json:"month"`
	Day    int    `json:"day"`
	Hour   *int   `json:"hour,omitempty"`
	Minute *int   `json:"minute,omitempty"`
}

func (t wireTimestamp) toTimestamp(calendarID string) timestamp.Timestamp {
	switch {
	case t.Minute != nil:
		hour := 0
		if t.Hour != nil {
			hour = *t.Hour
		}
		return timestamp.NewMinute(calendarID, t.Year, t.Month, t.Day, hour, *t.Minute)
	case t.Hour != nil:
		return timestamp.NewHour(calendarID, t.Year, t.Month, t.Day, *t.Hour)
	default:
		return timestamp.NewDay(calendarID, t.Year, t.Month, t.Day)
	}
}

func fromTimestamp(ts timestamp.Timestamp) wireTimestamp {
	out := wireTimestamp{Year: ts.Year, Month: ts.MonthID, Day: ts.Day}
	switch ts.Precision {
	case timestamp.PrecisionMinute:
		hour, minute := ts.Hour, ts.Minute
		out.Hour, out.Minute = &hour, &minute
	case timestamp.PrecisionHour:
		hour := ts.Hour
		out.Hour = &hour
	}
	return out
}

// parseQueryTimestamp reads "year-month-day" with an optional "THH:MM" or
// "THH" suffix, e.g. "12-harvest-3T08:30". Month ids containing dashes are
// handled by splitting on the first and last dash of the date part.
func parseQueryTimestamp(calendarID, raw string) (timestamp.Timestamp, error) {
	datePart := raw
	timePart := ""
	if idx := strings.IndexByte(raw, 'T'); idx >= 0 {
		datePart, timePart = raw[:idx], raw[idx+1:]
	}

	first := strings.IndexByte(datePart, '-')
	last := strings.LastIndexByte(datePart, '-')
	if first < 0 || first == last {
		return timestamp.Timestamp{}, fmt.Errorf("%w: timestamp %q", ErrBadRequest, raw)
	}
	var year, day int
	if _, err := fmt.Sscanf(datePart[:first], "%d", &year); err != nil {
		return timestamp.Timestamp{}, fmt.Errorf("%w: year in %q", ErrBadRequest, raw)
	}
	if _, err := fmt.Sscanf(datePart[last+1:], "%d", &day); err != nil {
		return timestamp.Timestamp{}, fmt.Errorf("%w: day in %q", ErrBadRequest, raw)
	}
	monthID := datePart[first+1 : last]
	if monthID == "" {
		return timestamp.Timestamp{}, fmt.Errorf("%w: month in %q", ErrBadRequest, raw)
	}

	if timePart == "" {
		return timestamp.NewDay(calendarID, year, monthID, day), nil
	}
	var hour, minute int
	if n, _ := fmt.Sscanf(timePart, "%d:%d", &hour, &minute); n == 2 {
		return timestamp.NewMinute(calendarID, year, monthID, day, hour, minute), nil
	}
	if _, err := fmt.Sscanf(timePart, "%d", &hour); err == nil {
		return timestamp.NewHour(calendarID, year, monthID, day, hour), nil
	}
	return timestamp.Timestamp{}, fmt.Errorf("%w: time in %q", ErrBadRequest, raw)
}

// wireRule is the tagged JSON shape of a recurrence rule.
type wireRule struct {
	Type string `json:"type"`

	// annual_offset
	MonthID string `json:"month_id,omitempty"`
	Day     int    `json:"day,omitempty"`

	// monthly_position (Day doubles as the fixed-day mode)
	Nth     int `json:"nth,omitempty"`
	Weekday int `json:"weekday,omitempty"`

	// weekly_day_index
	DayIndex int            `json:"day_index,omitempty"`
	Interval int            `json:"interval,omitempty"`
	Anchor   *wireTimestamp `json:"anchor,omitempty"`

	// astronomical
	Source              string `json:"source,omitempty"`
	ReferenceCalendarID string `json:"reference_calendar_id,omitempty"`
	OffsetMinutes       int    `json:"offset_minutes,omitempty"`

	// custom
	RuleID string         `json:"rule_id,omitempty"`
	Config map[string]any `json:"config,omitempty"`
}

func (r *wireRule) toRule(calendarID string) (repeat.Rule, error) {
	if r == nil {
		return nil, nil
	}
	switch r.Type {
	case "annual_offset":
		return repeat.AnnualOffset{MonthID: r.MonthID, Day: r.Day}, nil
	case "monthly_position":
		return repeat.MonthlyPosition{Day: r.Day, Nth: r.Nth, Weekday: r.Weekday}, nil
	case "weekly_day_index":
		if r.Anchor == nil {
			return nil, fmt.Errorf("%w: weekly rule needs an anchor", ErrBadRequest)
		}
		return repeat.WeeklyDayIndex{
			DayIndex: r.DayIndex,
			Interval: r.Interval,
			Anchor:   r.Anchor.toTimestamp(calendarID),
		}, nil
	case "astronomical":
		return repeat.Astronomical{
			Source:              r.Source,
			ReferenceCalendarID: r.ReferenceCalendarID,
			OffsetMinutes:       r.OffsetMinutes,
		}, nil
	case "custom":
		return repeat.Custom{RuleID: r.RuleID, Config: r.Config}, nil
	default:
		return nil, fmt.Errorf("%w: unknown rule type %q", ErrBadRequest, r.Type)
	}
}

// occurrenceResponse is the normalized occurrence read shape.
type occurrenceResponse struct {
	SourceKind string        `json:"source_kind"`
	SourceID   string        `json:"source_id"`
	CalendarID string        `json:"calendar_id"`
	Label      string        `json:"label"`
	Start      wireTimestamp `json:"start"`
	End        wireTimestamp `json:"end"`
	Priority   int           `json:"priority"`
}

func fromTemporalOccurrence(occ conflict.TemporalOccurrence) occurrenceResponse {
	return occurrenceResponse{
		SourceKind: string(occ.SourceKind),
		SourceID:   occ.SourceID,
		CalendarID: occ.CalendarID,
		Label:      occ.Label,
		Start:      fromTimestamp(occ.Start),
		End:        fromTimestamp(occ.End),
		Priority:   occ.Priority,
	}
}

type idResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isNotFound allows the API to translate upstream not-found errors to 404.
// This stays generic to avoid tight coupling with specific packages.
func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}

// isBadRequest classifies validation failures from the domain layer.
func isBadRequest(err error) bool {
	return errors.Is(err, ErrBadRequest) ||
		errors.Is(err, repeat.ErrInvalidRule) ||
		errors.Is(err, schema.ErrInvalidSchema) ||
		errors.Is(err, schema.ErrUnknownMonth)
}
