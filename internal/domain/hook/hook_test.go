package hook_test

import (
	"testing"

	"github.com/okian/almanac/internal/domain/hook"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSortByPriority(t *testing.T) {
	Convey("Given a set of hook descriptors", t, func() {
		hooks := []hook.Descriptor{
			{ID: "b", Type: hook.TypeScript, Priority: 1},
			{ID: "a", Type: hook.TypeWebhook, Priority: 1},
			{ID: "c", Type: hook.TypeCartographerEvent, Priority: 9},
		}

		Convey("Sorting orders by priority descending then id ascending", func() {
			sorted := hook.SortByPriority(hooks)
			So(sorted[0].ID, ShouldEqual, "c")
			So(sorted[1].ID, ShouldEqual, "a")
			So(sorted[2].ID, ShouldEqual, "b")
		})

		Convey("The input slice is left untouched", func() {
			_ = hook.SortByPriority(hooks)
			So(hooks[0].ID, ShouldEqual, "b")
		})

		Convey("Empty input yields an empty copy", func() {
			So(hook.SortByPriority(nil), ShouldHaveLength, 0)
		})
	})
}
