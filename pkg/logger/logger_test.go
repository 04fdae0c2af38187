package logger

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerLifecycle(t *testing.T) {
	Convey("Given the logging facade", t, func() {
		So(Init(), ShouldBeNil)

		Convey("Get returns a usable logger", func() {
			l := Get()
			So(l, ShouldNotBeNil)

			ctx := context.Background()
			l.Debug(ctx, "debug message")
			l.Info(ctx, "info message", String("key", "value"), Int("n", 1))
			l.Warn(ctx, "warn message", Any("payload", map[string]int{"a": 1}))
			l.Error(ctx, "error message", Error(errors.New("boom")))
		})

		Convey("Named loggers chain groups", func() {
			l := Named("worker").Named("dispatch")
			So(l, ShouldNotBeNil)
			l.Info(context.Background(), "named message")
		})

		Convey("Sync is a safe no-op", func() {
			So(Sync(), ShouldBeNil)
		})
	})
}

func TestLevelControl(t *testing.T) {
	Convey("Given level configuration", t, func() {
		So(Init(), ShouldBeNil)

		Convey("Known level names parse case-insensitively", func() {
			for _, name := range []string{"debug", "INFO", "warn", "Warning", "error", ""} {
				So(SetLevelString(name), ShouldBeNil)
			}
		})

		Convey("Unknown level names are rejected", func() {
			So(SetLevelString("loud"), ShouldNotBeNil)
		})

		Convey("SetLevel updates the shared level var", func() {
			SetLevel(slog.LevelError)
			So(levelVar.Level(), ShouldEqual, slog.LevelError)
			SetLevel(slog.LevelInfo)
		})
	})
}

func TestFieldConstructors(t *testing.T) {
	Convey("Given field constructors", t, func() {
		So(String("k", "v"), ShouldResemble, Field{Key: "k", Value: "v"})
		So(Int("k", 3), ShouldResemble, Field{Key: "k", Value: 3})

		err := errors.New("boom")
		So(Error(err).Key, ShouldEqual, "error")
		So(Error(err).Value, ShouldEqual, err)
	})
}
