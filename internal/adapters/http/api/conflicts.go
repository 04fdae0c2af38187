package api

import (
	"net/http"

	"github.com/okian/almanac/internal/domain/conflict"
	"github.com/okian/almanac/internal/domain/hook"
	"github.com/okian/almanac/internal/domain/phenomenon"
)

// ConflictsHandler handles conflict range queries.
type ConflictsHandler struct {
	deps Dependencies
}

// NewConflictsHandler creates a new conflicts handler.
func NewConflictsHandler(deps Dependencies) *ConflictsHandler {
	return &ConflictsHandler{deps: deps}
}

type windowShape struct {
	Start wireTimestamp `json:"start"`
	End   wireTimestamp `json:"end"`
}

type resolutionResponse struct {
	Window           windowShape          `json:"window"`
	Active           occurrenceResponse   `json:"active"`
	Suppressed       []occurrenceResponse `json:"suppressed,omitempty"`
	TriggeredHooks   []hook.Descriptor    `json:"triggered_hooks,omitempty"`
	TriggeredEffects []phenomenon.Effect  `json:"triggered_effects,omitempty"`
}

type conflictsResponse struct {
	CalendarID  string               `json:"calendar_id"`
	Resolutions []resolutionResponse `json:"resolutions"`
}

func fromResolution(res conflict.Resolution) resolutionResponse {
	out := resolutionResponse{
		Window: windowShape{
			Start: fromTimestamp(res.Window.Start),
			End:   fromTimestamp(res.Window.End),
		},
		Active:           fromTemporalOccurrence(res.Active),
		TriggeredHooks:   res.TriggeredHooks,
		TriggeredEffects: res.TriggeredEffects,
	}
	for _, occ := range res.Suppressed {
		out.Suppressed = append(out.Suppressed, fromTemporalOccurrence(occ))
	}
	return out
}

// HandleGetConflicts handles GET /conflicts?calendar=&from=&to= requests.
func (h *ConflictsHandler) HandleGetConflicts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	calendarID, from, to, err := rangeQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	resolutions, err := h.deps.Conflicts(r.Context(), calendarID, from, to)
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

	out := conflictsResponse{
		CalendarID:  calendarID,
		Resolutions: make([]resolutionResponse, 0, len(resolutions)),
	}
	for _, res := range resolutions {
		out.Resolutions = append(out.Resolutions, fromResolution(res))
	}
	writeJSON(w, http.StatusOK, out)
}
