package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/almanac/internal/domain/hook"
	"github.com/okian/almanac/internal/domain/phenomenon"
)

// PhenomenaHandler handles phenomenon registration requests.
type PhenomenaHandler struct {
	deps Dependencies
}

// NewPhenomenaHandler creates a new phenomena handler.
func NewPhenomenaHandler(deps Dependencies) *PhenomenaHandler {
	return &PhenomenaHandler{deps: deps}
}

// phenomenonRequest mirrors the wire schema for POST /phenomena.
type phenomenonRequest struct {
	ID                   string                `json:"id,omitempty"`
	Name                 string                `json:"name"`
	Category             string                `json:"category"`
	Visibility           string                `json:"visibility,omitempty"`
	AppliesToCalendarIDs []string              `json:"applies_to_calendar_ids,omitempty"`
	Rule                 *wireRule             `json:"rule"`
	RuleCalendarID       string                `json:"rule_calendar_id,omitempty"`
	TimePolicy           string                `json:"time_policy,omitempty"`
	StartTime            *phenomenon.StartTime `json:"start_time,omitempty"`
	OffsetMinutes        int                   `json:"offset_minutes,omitempty"`
	DurationMinutes      *int                  `json:"duration_minutes,omitempty"`
	Effects              []phenomenon.Effect   `json:"effects,omitempty"`
	Priority             int                   `json:"priority,omitempty"`
	Tags                 []string              `json:"tags,omitempty"`
	Notes                string                `json:"notes,omitempty"`
	Hooks                []hook.Descriptor     `json:"hooks,omitempty"`
}

func (p phenomenonRequest) validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return errors.New("missing name")
	case p.Rule == nil:
		return errors.New("missing rule")
	}
	if p.Visibility == string(phenomenon.VisibilitySelected) && len(p.AppliesToCalendarIDs) == 0 {
		return errors.New("selected visibility needs applies_to_calendar_ids")
	}
	return nil
}

func (p phenomenonRequest) toPhenomenon() (*phenomenon.Phenomenon, error) {
	// Weekly anchors inside the rule need a calendar to resolve against; use
	// the declared rule calendar, falling back to the first pinned one.
	ruleCalendar := p.RuleCalendarID
	if ruleCalendar == "" && len(p.AppliesToCalendarIDs) > 0 {
		ruleCalendar = p.AppliesToCalendarIDs[0]
	}
	rule, err := p.Rule.toRule(ruleCalendar)
	if err != nil {
		return nil, err
	}
	return &phenomenon.Phenomenon{
		ID:                   p.ID,
		Name:                 p.Name,
		Category:             phenomenon.Category(p.Category),
		Visibility:           phenomenon.Visibility(p.Visibility),
		AppliesToCalendarIDs: p.AppliesToCalendarIDs,
		Rule:                 rule,
		TimePolicy:           phenomenon.TimePolicy(p.TimePolicy),
		StartTime:            p.StartTime,
		OffsetMinutes:        p.OffsetMinutes,
		DurationMinutes:      p.DurationMinutes,
		Effects:              p.Effects,
		Priority:             p.Priority,
		Tags:                 p.Tags,
		Notes:                p.Notes,
		Hooks:                p.Hooks,
	}, nil
}

// HandlePostPhenomenon handles POST /phenomena requests.
func (h *PhenomenaHandler) HandlePostPhenomenon(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_phenomenon"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req phenomenonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	p, err := req.toPhenomenon()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	id, err := h.deps.RegisterPhenomenon(r.Context(), p)
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
