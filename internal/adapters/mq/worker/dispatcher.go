package worker

import (
	"context"

	"github.com/okian/almanac/pkg/logger"
)

// LogDispatcher is the default Dispatcher. It logs every hook and effect it
// receives instead of delivering them anywhere.
type LogDispatcher struct {
	logger logger.Logger
}

// NewLogDispatcher creates a dispatcher that records deliveries in the log.
func NewLogDispatcher() *LogDispatcher {
	return &LogDispatcher{logger: logger.Get().Named("dispatcher")}
}

// Dispatch logs the record's hooks in their priority order.
func (d *LogDispatcher) Dispatch(ctx context.Context, rec Dispatch) error {
	for _, h := range rec.Hooks {
		d.logger.Info(ctx, "hook triggered",
			logger.String("hookID", h.ID),
			logger.String("hookType", string(h.Type)),
			logger.String("sourceID", rec.SourceID),
			logger.String("sourceKind", rec.SourceKind),
			logger.String("calendarID", rec.CalendarID),
		)
	}
	for _, e := range rec.Effects {
		d.logger.Info(ctx, "effect active",
			logger.String("effectType", e.Type),
			logger.String("sourceID", rec.SourceID),
			logger.String("calendarID", rec.CalendarID),
		)
	}
	return nil
}
