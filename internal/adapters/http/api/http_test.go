package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/almanac/internal/domain/conflict"
	"github.com/okian/almanac/internal/domain/event"
	"github.com/okian/almanac/internal/domain/phenomenon"
	"github.com/okian/almanac/internal/domain/repeat"
	"github.com/okian/almanac/internal/domain/schema"
	"github.com/okian/almanac/internal/domain/timestamp"
	. "github.com/smartystreets/goconvey/convey"
)

// stubDeps records what handlers pass through and returns canned results.
type stubDeps struct {
	calendar   *schema.Schema
	event      *event.Event
	phenomenon *phenomenon.Phenomenon

	occurrences []conflict.TemporalOccurrence
	resolutions []conflict.Resolution

	lastLimit int
	err       error
}

func (d *stubDeps) RegisterCalendar(_ context.Context, cal *schema.Schema) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	d.calendar = cal
	return cal.ID, nil
}

func (d *stubDeps) RegisterEvent(_ context.Context, ev *event.Event) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	d.event = ev
	return ev.ID, nil
}

func (d *stubDeps) RegisterPhenomenon(_ context.Context, p *phenomenon.Phenomenon) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	d.phenomenon = p
	return p.ID, nil
}

func (d *stubDeps) Occurrences(_ context.Context, _ string, _, _ timestamp.Timestamp, limit int) ([]conflict.TemporalOccurrence, error) {
	d.lastLimit = limit
	return d.occurrences, d.err
}

func (d *stubDeps) Conflicts(_ context.Context, _ string, _, _ timestamp.Timestamp) ([]conflict.Resolution, error) {
	return d.resolutions, d.err
}

type stubStats struct{}

func (stubStats) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true}
}

func newTestMux(deps *stubDeps) *http.ServeMux {
	mux := http.NewServeMux()
	NewServer(deps, stubStats{}).Register(context.Background(), mux)
	return mux
}

func doRequest(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestPostCalendar(t *testing.T) {
	Convey("Given the calendars endpoint", t, func() {
		deps := &stubDeps{}
		mux := newTestMux(deps)

		Convey("A valid schema registers", func() {
			body := `{"id":"harptos","days_per_week":10,"months":[{"id":"hammer","name":"Hammer","length":30}],"epoch":{"year":1,"month_id":"hammer","day":1}}`
			rec := doRequest(mux, http.MethodPost, "/calendars", body)
			So(rec.Code, ShouldEqual, http.StatusCreated)

			var resp idResponse
			So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.ID, ShouldEqual, "harptos")
			So(resp.Status, ShouldEqual, "registered")
			So(deps.calendar.Months, ShouldHaveLength, 1)
		})

		Convey("Malformed JSON is a bad request", func() {
			rec := doRequest(mux, http.MethodPost, "/calendars", `{"id":`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("A registration failure is a bad request", func() {
			deps.err = fmt.Errorf("%w: empty month table", schema.ErrInvalidSchema)
			rec := doRequest(mux, http.MethodPost, "/calendars", `{"id":"x"}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Non-POST methods are rejected", func() {
			rec := doRequest(mux, http.MethodGet, "/calendars", "")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestPostEvent(t *testing.T) {
	Convey("Given the events endpoint", t, func() {
		deps := &stubDeps{}
		mux := newTestMux(deps)

		Convey("A single event registers with its date", func() {
			body := `{"id":"e1","calendar_id":"harptos","title":"Midwinter Feast","kind":"single","date":{"year":1,"month":"hammer","day":3,"hour":18,"minute":30}}`
			rec := doRequest(mux, http.MethodPost, "/events", body)
			So(rec.Code, ShouldEqual, http.StatusCreated)
			So(deps.event.Date, ShouldResemble, timestamp.NewMinute("harptos", 1, "hammer", 3, 18, 30))
		})

		Convey("A recurring event decodes its tagged rule", func() {
			body := `{"id":"e2","calendar_id":"harptos","title":"Market","kind":"recurring","time_policy":"all_day","rule":{"type":"weekly_day_index","day_index":2,"interval":1,"anchor":{"year":1,"month":"hammer","day":1}}}`
			rec := doRequest(mux, http.MethodPost, "/events", body)
			So(rec.Code, ShouldEqual, http.StatusCreated)

			rule, ok := deps.event.Rule.(repeat.WeeklyDayIndex)
			So(ok, ShouldBeTrue)
			So(rule.DayIndex, ShouldEqual, 2)
			So(rule.Anchor, ShouldResemble, timestamp.NewDay("harptos", 1, "hammer", 1))
		})

		Convey("Validation failures are bad requests", func() {
			cases := []string{
				`{"title":"no calendar","kind":"single","date":{"year":1,"month":"m","day":1}}`,
				`{"calendar_id":"c","kind":"single","date":{"year":1,"month":"m","day":1}}`,
				`{"calendar_id":"c","title":"t","kind":"sometimes"}`,
				`{"calendar_id":"c","title":"t","kind":"single"}`,
				`{"calendar_id":"c","title":"t","kind":"recurring"}`,
				`{"calendar_id":"c","title":"t","kind":"recurring","rule":{"type":"lunar_cycle"}}`,
				`{"calendar_id":"c","title":"t","kind":"recurring","rule":{"type":"weekly_day_index","day_index":1,"interval":1}}`,
			}
			for _, body := range cases {
				rec := doRequest(mux, http.MethodPost, "/events", body)
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			}
		})

		Convey("An unknown calendar maps to 404", func() {
			deps.err = fmt.Errorf("not found: calendar %q", "nope")
			body := `{"calendar_id":"nope","title":"t","kind":"single","date":{"year":1,"month":"m","day":1}}`
			rec := doRequest(mux, http.MethodPost, "/events", body)
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestPostPhenomenon(t *testing.T) {
	Convey("Given the phenomena endpoint", t, func() {
		deps := &stubDeps{}
		mux := newTestMux(deps)

		Convey("A phenomenon registers with effects", func() {
			body := `{"id":"p1","name":"Long Night","category":"astronomy","rule":{"type":"annual_offset","month_id":"hammer","day":15},"time_policy":"all_day","effects":[{"type":"light_level","payload":{"value":"dark"}}]}`
			rec := doRequest(mux, http.MethodPost, "/phenomena", body)
			So(rec.Code, ShouldEqual, http.StatusCreated)
			So(deps.phenomenon.Effects, ShouldHaveLength, 1)
			So(deps.phenomenon.Rule, ShouldResemble, repeat.AnnualOffset{MonthID: "hammer", Day: 15})
		})

		Convey("Selected visibility needs pinned calendars", func() {
			body := `{"name":"Local Custom","visibility":"selected","rule":{"type":"custom","rule_id":"r1"}}`
			rec := doRequest(mux, http.MethodPost, "/phenomena", body)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("A missing rule is a bad request", func() {
			rec := doRequest(mux, http.MethodPost, "/phenomena", `{"name":"No Rule"}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestGetOccurrences(t *testing.T) {
	Convey("Given the occurrences endpoint", t, func() {
		deps := &stubDeps{occurrences: []conflict.TemporalOccurrence{
			{
				SourceKind: conflict.SourceEventSingle,
				SourceID:   "e1",
				CalendarID: "harptos",
				Label:      "Feast",
				Start:      timestamp.NewMinute("harptos", 1, "hammer", 3, 18, 0),
				End:        timestamp.NewMinute("harptos", 1, "hammer", 3, 20, 0),
				Priority:   5,
			},
		}}
		mux := newTestMux(deps)

		Convey("A valid range query returns normalized occurrences", func() {
			rec := doRequest(mux, http.MethodGet, "/occurrences?calendar=harptos&from=1-hammer-1&to=1-hammer-30&limit=10", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(deps.lastLimit, ShouldEqual, 10)

			var resp occurrencesResponse
			So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.CalendarID, ShouldEqual, "harptos")
			So(resp.Occurrences, ShouldHaveLength, 1)
			So(resp.Occurrences[0].SourceID, ShouldEqual, "e1")
			So(resp.Occurrences[0].Start.Hour, ShouldNotBeNil)
			So(*resp.Occurrences[0].Start.Hour, ShouldEqual, 18)
		})

		Convey("Missing or malformed parameters are bad requests", func() {
			cases := []string{
				"/occurrences?from=1-hammer-1&to=1-hammer-30",
				"/occurrences?calendar=c&from=nodashes&to=1-hammer-30",
				"/occurrences?calendar=c&from=1-hammer-1&to=1-hammer-30&limit=-1",
				"/occurrences?calendar=c&from=1-hammer-1&to=1-hammer-30&limit=ten",
			}
			for _, target := range cases {
				rec := doRequest(mux, http.MethodGet, target, "")
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			}
		})

		Convey("An unknown calendar maps to 404", func() {
			deps.err = fmt.Errorf("not found: calendar %q", "c")
			rec := doRequest(mux, http.MethodGet, "/occurrences?calendar=c&from=1-hammer-1&to=1-hammer-30", "")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Only GET is served", func() {
			rec := doRequest(mux, http.MethodPost, "/occurrences?calendar=c&from=1-hammer-1&to=1-hammer-30", "")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestGetConflicts(t *testing.T) {
	Convey("Given the conflicts endpoint", t, func() {
		active := conflict.TemporalOccurrence{
			SourceKind: conflict.SourcePhenomenon,
			SourceID:   "p1",
			CalendarID: "harptos",
			Label:      "Eclipse",
			Start:      timestamp.NewDay("harptos", 1, "hammer", 3),
			End:        timestamp.NewDay("harptos", 1, "hammer", 3),
			Priority:   9,
		}
		suppressed := active
		suppressed.SourceID = "e1"
		suppressed.Priority = 1

		deps := &stubDeps{resolutions: []conflict.Resolution{{
			Window:     conflict.Window{Start: active.Start, End: active.End},
			Active:     active,
			Suppressed: []conflict.TemporalOccurrence{suppressed},
		}}}
		mux := newTestMux(deps)

		Convey("Resolutions serialize with active and suppressed sets", func() {
			rec := doRequest(mux, http.MethodGet, "/conflicts?calendar=harptos&from=1-hammer-1&to=1-hammer-30", "")
			So(rec.Code, ShouldEqual, http.StatusOK)

			var resp conflictsResponse
			So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.Resolutions, ShouldHaveLength, 1)
			So(resp.Resolutions[0].Active.SourceID, ShouldEqual, "p1")
			So(resp.Resolutions[0].Suppressed, ShouldHaveLength, 1)
			So(resp.Resolutions[0].Suppressed[0].SourceID, ShouldEqual, "e1")
		})
	})
}

func TestParseQueryTimestamp(t *testing.T) {
	Convey("Given query timestamp parsing", t, func() {
		Convey("Day, hour and minute precision all parse", func() {
			ts, err := parseQueryTimestamp("cal", "12-harvest-3")
			So(err, ShouldBeNil)
			So(ts, ShouldResemble, timestamp.NewDay("cal", 12, "harvest", 3))

			ts, err = parseQueryTimestamp("cal", "12-harvest-3T08")
			So(err, ShouldBeNil)
			So(ts, ShouldResemble, timestamp.NewHour("cal", 12, "harvest", 3, 8))

			ts, err = parseQueryTimestamp("cal", "12-harvest-3T08:30")
			So(err, ShouldBeNil)
			So(ts, ShouldResemble, timestamp.NewMinute("cal", 12, "harvest", 3, 8, 30))
		})

		Convey("Month ids containing dashes survive", func() {
			ts, err := parseQueryTimestamp("cal", "3-high-sun-14")
			So(err, ShouldBeNil)
			So(ts.MonthID, ShouldEqual, "high-sun")
			So(ts.Day, ShouldEqual, 14)
		})

		Convey("Garbage is rejected", func() {
			for _, raw := range []string{"", "nodashes", "1-harvest", "x-harvest-3", "1-harvest-y", "1--3", "1-harvest-3Tnoon"} {
				_, err := parseQueryTimestamp("cal", raw)
				So(err, ShouldWrap, ErrBadRequest)
			}
		})
	})
}

func TestStatsAndHealth(t *testing.T) {
	Convey("Given the operational endpoints", t, func() {
		mux := newTestMux(&stubDeps{})

		Convey("Stats returns the provider's snapshot", func() {
			rec := doRequest(mux, http.MethodGet, "/stats", "")
			So(rec.Code, ShouldEqual, http.StatusOK)

			var stats map[string]interface{}
			So(json.Unmarshal(rec.Body.Bytes(), &stats), ShouldBeNil)
			So(stats["started"], ShouldEqual, true)
		})

		Convey("Healthz serves the metrics exposition", func() {
			rec := doRequest(mux, http.MethodGet, "/healthz", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
		})
	})
}
