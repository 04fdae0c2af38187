package api

import (
	"net/http"
	"strconv"

	"github.com/okian/almanac/internal/domain/timestamp"
)

// OccurrencesHandler handles occurrence range queries.
type OccurrencesHandler struct {
	deps Dependencies
}

// NewOccurrencesHandler creates a new occurrences handler.
func NewOccurrencesHandler(deps Dependencies) *OccurrencesHandler {
	return &OccurrencesHandler{deps: deps}
}

type occurrencesResponse struct {
	CalendarID  string               `json:"calendar_id"`
	Occurrences []occurrenceResponse `json:"occurrences"`
}

// rangeQuery reads the calendar/from/to triple shared by the range endpoints.
func rangeQuery(r *http.Request) (calendarID string, from, to timestamp.Timestamp, err error) {
	calendarID = r.URL.Query().Get("calendar")
	if calendarID == "" {
		return "", timestamp.Timestamp{}, timestamp.Timestamp{}, NewKind("api.range_query", ErrBadRequest)
	}
	from, err = parseQueryTimestamp(calendarID, r.URL.Query().Get("from"))
	if err != nil {
		return "", timestamp.Timestamp{}, timestamp.Timestamp{}, err
	}
	to, err = parseQueryTimestamp(calendarID, r.URL.Query().Get("to"))
	if err != nil {
		return "", timestamp.Timestamp{}, timestamp.Timestamp{}, err
	}
	return calendarID, from, to, nil
}

// HandleGetOccurrences handles GET /occurrences?calendar=&from=&to=&limit=
// requests.
func (h *OccurrencesHandler) HandleGetOccurrences(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	calendarID, from, to, err := rangeQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind("api.get_occurrences", ErrBadRequest))
			return
		}
	}

	occs, err := h.deps.Occurrences(r.Context(), calendarID, from, to, limit)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		if isBadRequest(err) {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}

	out := occurrencesResponse{
		CalendarID:  calendarID,
		Occurrences: make([]occurrenceResponse, 0, len(occs)),
	}
	for _, occ := range occs {
		out.Occurrences = append(out.Occurrences, fromTemporalOccurrence(occ))
	}
	writeJSON(w, http.StatusOK, out)
}
