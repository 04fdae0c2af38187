package api

import (
	"encoding/json"
	"net/http"

	"github.com/okian/almanac/internal/domain/schema"
)

// CalendarsHandler handles calendar registration requests.
type CalendarsHandler struct {
	deps Dependencies
}

// NewCalendarsHandler creates a new calendars handler.
func NewCalendarsHandler(deps Dependencies) *CalendarsHandler {
	return &CalendarsHandler{deps: deps}
}

// HandlePostCalendar handles POST /calendars requests. The body is the
// calendar schema itself.
func (h *CalendarsHandler) HandlePostCalendar(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_calendar"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var cal schema.Schema
	if err := json.NewDecoder(r.Body).Decode(&cal); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	id, err := h.deps.RegisterCalendar(r.Context(), &cal)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id, Status: "registered"})
}
