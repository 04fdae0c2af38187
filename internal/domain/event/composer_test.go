package event_test

import (
	"context"
	"testing"

	"github.com/okian/almanac/internal/domain/event"
	"github.com/okian/almanac/internal/domain/hook"
	"github.com/okian/almanac/internal/domain/repeat"
	"github.com/okian/almanac/internal/domain/schema"
	"github.com/okian/almanac/internal/domain/timestamp"
	. "github.com/smartystreets/goconvey/convey"
)

const calID = "harptos-lite"

func twoMonthSchema() *schema.Schema {
	return &schema.Schema{
		ID:          calID,
		DaysPerWeek: 5,
		Months: []schema.Month{
			{ID: "m1", Name: "First Seed", Length: 10},
			{ID: "m2", Name: "High Sun", Length: 5},
		},
		Epoch: schema.Epoch{Year: 1, MonthID: "m1", Day: 1},
	}
}

func intPtr(v int) *int { return &v }

func TestSingleEventOccurrences(t *testing.T) {
	Convey("Given a single event", t, func() {
		ctx := context.Background()
		s := twoMonthSchema()

		Convey("A dated event before the search start yields nothing", func() {
			ev := &event.Event{ID: "e1", CalendarID: calID, Kind: event.KindSingle, Date: timestamp.NewDay(calID, 1, "m1", 3)}
			occ, err := event.NextOccurrence(ctx, s, calID, ev, timestamp.NewDay(calID, 1, "m1", 5), repeat.Options{}, repeat.Services{})
			So(err, ShouldBeNil)
			So(occ, ShouldBeNil)
		})

		Convey("The event date itself needs IncludeStart", func() {
			ev := &event.Event{ID: "e1", CalendarID: calID, Kind: event.KindSingle, Date: timestamp.NewDay(calID, 1, "m1", 3)}

			occ, err := event.NextOccurrence(ctx, s, calID, ev, ev.Date, repeat.Options{}, repeat.Services{})
			So(err, ShouldBeNil)
			So(occ, ShouldBeNil)

			occ, err = event.NextOccurrence(ctx, s, calID, ev, ev.Date, repeat.Options{IncludeStart: true}, repeat.Services{})
			So(err, ShouldBeNil)
			So(occ, ShouldNotBeNil)
			So(occ.EventID, ShouldEqual, "e1")
			So(occ.Kind, ShouldEqual, event.KindSingle)
		})

		Convey("An all-day event spans the whole schema day", func() {
			ev := &event.Event{
				ID:         "e1",
				CalendarID: calID,
				Kind:       event.KindSingle,
				Date:       timestamp.NewDay(calID, 1, "m1", 3),
				AllDay:     true,
			}
			occs, err := event.OccurrencesInRange(ctx, s, calID, ev, timestamp.NewDay(calID, 1, "m1", 1), timestamp.NewDay(calID, 1, "m2", 5), repeat.Options{IncludeStart: true}, repeat.Services{})
			So(err, ShouldBeNil)
			So(occs, ShouldHaveLength, 1)
			So(occs[0].AllDay, ShouldBeTrue)
			So(occs[0].Start, ShouldResemble, timestamp.NewDay(calID, 1, "m1", 3))
			So(occs[0].DurationMinutes, ShouldEqual, 1440)
			So(occs[0].End, ShouldResemble, timestamp.NewMinute(calID, 1, "m1", 4, 0, 0))
		})

		Convey("Start and end times produce a timed window", func() {
			ev := &event.Event{
				ID:         "e1",
				CalendarID: calID,
				Kind:       event.KindSingle,
				Date:       timestamp.NewDay(calID, 1, "m1", 3),
				StartTime:  &event.TimeOfDay{Hour: 9, Minute: 30},
				EndTime:    &event.TimeOfDay{Hour: 11, Minute: 0},
			}
			occ, err := event.NextOccurrence(ctx, s, calID, ev, timestamp.NewDay(calID, 1, "m1", 1), repeat.Options{}, repeat.Services{})
			So(err, ShouldBeNil)
			So(occ.Start, ShouldResemble, timestamp.NewMinute(calID, 1, "m1", 3, 9, 30))
			So(occ.DurationMinutes, ShouldEqual, 90)
			So(occ.End, ShouldResemble, timestamp.NewMinute(calID, 1, "m1", 3, 11, 0))
		})

		Convey("An explicit duration wins over a derived one", func() {
			ev := &event.Event{
				ID:              "e1",
				CalendarID:      calID,
				Kind:            event.KindSingle,
				Date:            timestamp.NewDay(calID, 1, "m1", 3),
				StartTime:       &event.TimeOfDay{Hour: 9, Minute: 0},
				EndTime:         &event.TimeOfDay{Hour: 11, Minute: 0},
				DurationMinutes: intPtr(15),
			}
			occ, err := event.NextOccurrence(ctx, s, calID, ev, timestamp.NewDay(calID, 1, "m1", 1), repeat.Options{}, repeat.Services{})
			So(err, ShouldBeNil)
			So(occ.DurationMinutes, ShouldEqual, 15)
		})

		Convey("An end before the start wraps past midnight", func() {
			ev := &event.Event{
				ID:         "e1",
				CalendarID: calID,
				Kind:       event.KindSingle,
				Date:       timestamp.NewDay(calID, 1, "m1", 3),
				StartTime:  &event.TimeOfDay{Hour: 22, Minute: 0},
				EndTime:    &event.TimeOfDay{Hour: 2, Minute: 0},
			}
			occ, err := event.NextOccurrence(ctx, s, calID, ev, timestamp.NewDay(calID, 1, "m1", 1), repeat.Options{}, repeat.Services{})
			So(err, ShouldBeNil)
			So(occ.DurationMinutes, ShouldEqual, 240)
			So(occ.End, ShouldResemble, timestamp.NewMinute(calID, 1, "m1", 4, 2, 0))
		})
	})
}

func TestRecurringEventOccurrences(t *testing.T) {
	Convey("Given a recurring event", t, func() {
		ctx := context.Background()
		s := twoMonthSchema()
		rule := repeat.AnnualOffset{MonthID: "m1", Day: 3}

		Convey("All-day policy spans each base day", func() {
			ev := &event.Event{ID: "e1", Kind: event.KindRecurring, Rule: rule, TimePolicy: event.PolicyAllDay}
			occs, err := event.OccurrencesInRange(ctx, s, calID, ev, timestamp.NewDay(calID, 1, "m1", 1), timestamp.NewDay(calID, 2, "m2", 5), repeat.Options{}, repeat.Services{})
			So(err, ShouldBeNil)
			So(occs, ShouldHaveLength, 2)
			So(occs[0].Start, ShouldResemble, timestamp.NewDay(calID, 1, "m1", 3))
			So(occs[0].AllDay, ShouldBeTrue)
			So(occs[0].DurationMinutes, ShouldEqual, 1440)
			So(occs[1].Start, ShouldResemble, timestamp.NewDay(calID, 2, "m1", 3))
		})

		Convey("Fixed policy pins the start time of day", func() {
			ev := &event.Event{
				ID:              "e1",
				Kind:            event.KindRecurring,
				Rule:            rule,
				TimePolicy:      event.PolicyFixed,
				StartTime:       &event.TimeOfDay{Hour: 18, Minute: 0},
				DurationMinutes: intPtr(120),
			}
			occ, err := event.NextOccurrence(ctx, s, calID, ev, timestamp.NewDay(calID, 1, "m1", 1), repeat.Options{}, repeat.Services{})
			So(err, ShouldBeNil)
			So(occ.Start, ShouldResemble, timestamp.NewMinute(calID, 1, "m1", 3, 18, 0))
			So(occ.End, ShouldResemble, timestamp.NewMinute(calID, 1, "m1", 3, 20, 0))
			So(occ.AllDay, ShouldBeFalse)
		})

		Convey("Offset policy shifts the base by minutes", func() {
			ev := &event.Event{
				ID:            "e1",
				Kind:          event.KindRecurring,
				Rule:          rule,
				TimePolicy:    event.PolicyOffset,
				OffsetMinutes: 90,
			}
			occ, err := event.NextOccurrence(ctx, s, calID, ev, timestamp.NewDay(calID, 1, "m1", 1), repeat.Options{}, repeat.Services{})
			So(err, ShouldBeNil)
			So(occ.Start, ShouldResemble, timestamp.NewMinute(calID, 1, "m1", 3, 1, 30))
			So(occ.End, ShouldResemble, occ.Start)
		})

		Convey("Bounds clamp the active window", func() {
			boundsStart := timestamp.NewDay(calID, 2, "m1", 1)
			boundsEnd := timestamp.NewDay(calID, 3, "m2", 5)
			ev := &event.Event{
				ID:         "e1",
				Kind:       event.KindRecurring,
				Rule:       rule,
				TimePolicy: event.PolicyAllDay,
				Bounds:     &event.Bounds{Start: &boundsStart, End: &boundsEnd},
			}

			// Searching before the bounds starts at the bounds.
			occ, err := event.NextOccurrence(ctx, s, calID, ev, timestamp.NewDay(calID, 0, "m1", 1), repeat.Options{}, repeat.Services{})
			So(err, ShouldBeNil)
			So(occ.Start, ShouldResemble, timestamp.NewDay(calID, 2, "m1", 3))

			// Searching past the bounds end finds nothing.
			occ, err = event.NextOccurrence(ctx, s, calID, ev, timestamp.NewDay(calID, 3, "m2", 5), repeat.Options{}, repeat.Services{})
			So(err, ShouldBeNil)
			So(occ, ShouldBeNil)

			occs, err := event.OccurrencesInRange(ctx, s, calID, ev, timestamp.NewDay(calID, 0, "m1", 1), timestamp.NewDay(calID, 5, "m2", 5), repeat.Options{}, repeat.Services{})
			So(err, ShouldBeNil)
			So(occs, ShouldHaveLength, 2)
			So(occs[0].Start, ShouldResemble, timestamp.NewDay(calID, 2, "m1", 3))
			So(occs[1].Start, ShouldResemble, timestamp.NewDay(calID, 3, "m1", 3))
		})

		Convey("Hooks come out sorted for dispatch", func() {
			ev := &event.Event{
				ID:         "e1",
				Kind:       event.KindRecurring,
				Rule:       rule,
				TimePolicy: event.PolicyAllDay,
				Hooks: []hook.Descriptor{
					{ID: "h-low", Type: hook.TypeScript, Priority: 1},
					{ID: "h-high", Type: hook.TypeWebhook, Priority: 9},
				},
			}
			occ, err := event.NextOccurrence(ctx, s, calID, ev, timestamp.NewDay(calID, 1, "m1", 1), repeat.Options{}, repeat.Services{})
			So(err, ShouldBeNil)
			So(occ.Hooks, ShouldHaveLength, 2)
			So(occ.Hooks[0].ID, ShouldEqual, "h-high")
			So(occ.Hooks[1].ID, ShouldEqual, "h-low")
		})
	})
}
