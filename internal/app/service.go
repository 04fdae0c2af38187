// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	dispatchqueue "github.com/okian/almanac/internal/adapters/mq/queue"
	workerpool "github.com/okian/almanac/internal/adapters/mq/worker"
	"github.com/okian/almanac/internal/adapters/repository"
	"github.com/okian/almanac/internal/domain/conflict"
	"github.com/okian/almanac/internal/domain/event"
	"github.com/okian/almanac/internal/domain/phenomenon"
	"github.com/okian/almanac/internal/domain/repeat"
	"github.com/okian/almanac/internal/domain/schema"
	"github.com/okian/almanac/internal/domain/timestamp"
	"github.com/okian/almanac/pkg/logger"
	"github.com/okian/almanac/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultQueueSize         = 4096
	defaultMaxRangeLimit     = 1000
	defaultDefaultRangeLimit = 100
)

// Service implements the API dependencies for the almanac engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	queue      dispatchqueue.Queue
	workerPool *workerpool.Pool
	dispatcher workerpool.Dispatcher
	services   repeat.Services

	// Configuration
	workerCount       int
	queueSize         int
	maxRangeLimit     int
	defaultRangeLimit int

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of dispatch workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the dispatch queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithRangeLimits sets the default and maximum occurrence query limits.
func WithRangeLimits(defaultLimit, maxLimit int) Option {
	return func(s *Service) {
		if defaultLimit > 0 {
			s.defaultRangeLimit = defaultLimit
		}
		if maxLimit > 0 {
			s.maxRangeLimit = maxLimit
		}
	}
}

// WithRepeatServices injects the astronomical calculator and custom rule
// resolver used by rule evaluation.
func WithRepeatServices(svcs repeat.Services) Option {
	return func(s *Service) {
		s.services = svcs
	}
}

// WithDispatcher sets a custom hook dispatcher.
func WithDispatcher(d workerpool.Dispatcher) Option {
	return func(s *Service) {
		if d != nil {
			s.dispatcher = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:       runtime.NumCPU() * 2,
		queueSize:         defaultQueueSize,
		maxRangeLimit:     defaultMaxRangeLimit,
		defaultRangeLimit: defaultDefaultRangeLimit,
		stopCh:            make(chan struct{}),
		logger:            nil, // Will be replaced when service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting almanac service...")

	s.store = repository.NewMemoryStore()
	s.queue = dispatchqueue.NewInMemoryQueue(
		dispatchqueue.WithCapacity(s.queueSize),
		dispatchqueue.WithBufferSize(s.queueSize),
	)
	if s.dispatcher == nil {
		s.dispatcher = workerpool.NewLogDispatcher()
	}

	s.workerPool = workerpool.NewPool(s.workerCount, s.queue, s.dispatcher)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "almanac service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping almanac service...")

	if s.workerPool != nil {
		s.workerPool.Stop()
	}

	if q, ok := s.queue.(*dispatchqueue.InMemoryQueue); ok {
		_ = q.Close()
	}

	select {
	case <-s.stopCh:
		// Channel already closed
	default:
		close(s.stopCh)
	}

	s.started = false
	s.logger.Info(context.Background(), "almanac service stopped")
}

// RegisterCalendar validates and stores a calendar schema. A blank id is
// assigned one.
func (s *Service) RegisterCalendar(ctx context.Context, cal *schema.Schema) (string, error) {
	if cal.ID == "" {
		cal.ID = uuid.NewString()
	}
	if err := cal.Validate(); err != nil {
		return "", fmt.Errorf("register calendar: %w", err)
	}
	if err := s.store.PutCalendar(ctx, cal); err != nil {
		return "", err
	}
	s.logger.Debug(ctx, "calendar registered",
		logger.String("calendarID", cal.ID),
		logger.Int("months", len(cal.Months)),
	)
	return cal.ID, nil
}

// RegisterEvent validates and stores an event. The referenced calendar must
// exist, and recurring events must carry a valid rule.
func (s *Service) RegisterEvent(ctx context.Context, ev *event.Event) (string, error) {
	cal, err := s.store.Calendar(ctx, ev.CalendarID)
	if err != nil {
		return "", fmt.Errorf("register event: %w", err)
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	switch ev.Kind {
	case event.KindSingle:
		if _, err := cal.MonthByID(ev.Date.MonthID); err != nil {
			return "", fmt.Errorf("register event: %w", err)
		}
	case event.KindRecurring:
		if ev.Rule == nil {
			return "", fmt.Errorf("register event: %w: recurring event needs a rule", repeat.ErrInvalidRule)
		}
		if err := repeat.Validate(cal, ev.Rule); err != nil {
			return "", fmt.Errorf("register event: %w", err)
		}
	default:
		return "", fmt.Errorf("register event: unknown kind %q", ev.Kind)
	}

	if err := s.store.PutEvent(ctx, ev); err != nil {
		return "", err
	}
	s.logger.Debug(ctx, "event registered",
		logger.String("eventID", ev.ID),
		logger.String("calendarID", ev.CalendarID),
		logger.String("kind", string(ev.Kind)),
	)
	return ev.ID, nil
}

// RegisterPhenomenon validates and stores a phenomenon.
func (s *Service) RegisterPhenomenon(ctx context.Context, p *phenomenon.Phenomenon) (string, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Visibility == "" {
		p.Visibility = phenomenon.VisibilityAllCalendars
	}
	if p.Rule == nil {
		return "", fmt.Errorf("register phenomenon: %w: phenomenon needs a rule", repeat.ErrInvalidRule)
	}

	// Rule validity is checked against each calendar the phenomenon is pinned
	// to; all-calendar phenomena are validated lazily at query time because
	// the set of calendars is open.
	for _, calendarID := range p.AppliesToCalendarIDs {
		cal, err := s.store.Calendar(ctx, calendarID)
		if err != nil {
			return "", fmt.Errorf("register phenomenon: %w", err)
		}
		if err := repeat.Validate(cal, p.Rule); err != nil {
			return "", fmt.Errorf("register phenomenon: %w", err)
		}
	}

	if err := s.store.PutPhenomenon(ctx, p); err != nil {
		return "", err
	}
	s.logger.Debug(ctx, "phenomenon registered",
		logger.String("phenomenonID", p.ID),
		logger.String("category", string(p.Category)),
	)
	return p.ID, nil
}

// Occurrences returns the merged, normalized occurrence stream of a calendar
// within [from, to], ordered by start, then priority descending, then source
// id. limit <= 0 applies the configured default.
func (s *Service) Occurrences(ctx context.Context, calendarID string, from, to timestamp.Timestamp, limit int) ([]conflict.TemporalOccurrence, error) {
	start := time.Now()
	defer func() {
		metrics.RecordEvaluationLatency(float64(time.Since(start).Milliseconds()))
	}()

	cal, err := s.store.Calendar(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	limit = s.clampLimit(limit)

	merged, err := s.collect(ctx, cal, calendarID, from, to, limit)
	if err != nil {
		return nil, err
	}

	sortOccurrences(cal, merged)
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// Conflicts computes the conflict resolutions of a calendar within [from, to]
// and enqueues a hook dispatch for each group's active occurrence.
func (s *Service) Conflicts(ctx context.Context, calendarID string, from, to timestamp.Timestamp) ([]conflict.Resolution, error) {
	cal, err := s.store.Calendar(ctx, calendarID)
	if err != nil {
		return nil, err
	}

	merged, err := s.collect(ctx, cal, calendarID, from, to, s.maxRangeLimit)
	if err != nil {
		return nil, err
	}

	groups, err := conflict.Detect(cal, merged)
	if err != nil {
		return nil, err
	}
	for range groups {
		metrics.RecordConflictGroup()
	}

	resolutions := conflict.ResolveByPriority(cal, groups)
	for _, res := range resolutions {
		if len(res.TriggeredHooks) == 0 && len(res.TriggeredEffects) == 0 {
			continue
		}
		ok := s.queue.Enqueue(ctx, dispatchqueue.Dispatch{
			SourceID:   res.Active.SourceID,
			SourceKind: string(res.Active.SourceKind),
			CalendarID: calendarID,
			Start:      res.Active.Start,
			Hooks:      res.TriggeredHooks,
			Effects:    res.TriggeredEffects,
		})
		if !ok {
			s.logger.Warn(ctx, "dispatch queue full, hook delivery skipped",
				logger.String("sourceID", res.Active.SourceID),
			)
		}
	}
	return resolutions, nil
}

// collect composes and normalizes event and phenomenon occurrences for one
// calendar.
func (s *Service) collect(ctx context.Context, cal *schema.Schema, calendarID string, from, to timestamp.Timestamp, limit int) ([]conflict.TemporalOccurrence, error) {
	opts := repeat.Options{IncludeStart: true, Limit: limit}

	var merged []conflict.TemporalOccurrence

	for _, ev := range s.store.EventsForCalendar(ctx, calendarID) {
		if ev.Kind == event.KindRecurring {
			metrics.RecordRuleEvaluated(ruleVariant(ev.Rule))
		}
		occs, err := event.OccurrencesInRange(ctx, cal, calendarID, ev, from, to, opts, s.services)
		if err != nil {
			metrics.RecordRuleError(ruleVariant(ev.Rule))
			return nil, fmt.Errorf("event %s: %w", ev.ID, err)
		}
		for i := range occs {
			merged = append(merged, conflict.FromEventOccurrence(&occs[i]))
			metrics.RecordOccurrenceComposed("event")
		}
	}

	for _, p := range s.store.PhenomenaForCalendar(ctx, calendarID) {
		metrics.RecordRuleEvaluated(ruleVariant(p.Rule))
		occs, err := phenomenon.OccurrencesInRange(ctx, cal, calendarID, p, from, to, opts, s.services)
		if err != nil {
			metrics.RecordRuleError(ruleVariant(p.Rule))
			return nil, fmt.Errorf("phenomenon %s: %w", p.ID, err)
		}
		for i := range occs {
			merged = append(merged, conflict.FromPhenomenonOccurrence(&occs[i]))
			metrics.RecordOccurrenceComposed("phenomenon")
		}
	}

	return merged, nil
}

// ruleVariant labels a rule for metrics.
func ruleVariant(r repeat.Rule) string {
	switch r.(type) {
	case repeat.AnnualOffset:
		return "annual_offset"
	case repeat.MonthlyPosition:
		return "monthly_position"
	case repeat.WeeklyDayIndex:
		return "weekly_day_index"
	case repeat.Astronomical:
		return "astronomical"
	case repeat.Custom:
		return "custom"
	default:
		return "unknown"
	}
}

func (s *Service) clampLimit(limit int) int {
	if limit <= 0 {
		return s.defaultRangeLimit
	}
	if limit > s.maxRangeLimit {
		return s.maxRangeLimit
	}
	return limit
}

func sortOccurrences(cal *schema.Schema, occs []conflict.TemporalOccurrence) {
	sort.SliceStable(occs, func(i, j int) bool {
		if cmp := timestamp.Compare(cal, occs[i].Start, occs[j].Start); cmp != 0 {
			return cmp < 0
		}
		if occs[i].Priority != occs[j].Priority {
			return occs[i].Priority > occs[j].Priority
		}
		return occs[i].SourceID < occs[j].SourceID
	})
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}

	if s.started {
		calendars, events, phenomena := s.store.Counts(ctx)
		queueLen := s.queue.Len(ctx)

		stats["calendars"] = calendars
		stats["events"] = events
		stats["phenomena"] = phenomena
		stats["queueLength"] = queueLen

		metrics.UpdateRegistryCounts(calendars, events, phenomena)
		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.workerCount)
	}

	return stats
}
