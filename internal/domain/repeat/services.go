package repeat

import (
	"context"

	"github.com/okian/almanac/internal/domain/schema"
	"github.com/okian/almanac/internal/domain/timestamp"
)

// Options control a single evaluator call.
type Options struct {
	// IncludeStart lets a timestamp equal to the search start qualify.
	IncludeStart bool
	// Limit caps range enumeration; 0 means unlimited.
	Limit int
}

// AstronomicalCalculator resolves astronomical rule variants. Implementations
// live outside this core; the evaluator only enforces start, includeStart and
// ordering on their output.
type AstronomicalCalculator interface {
	NextOccurrence(ctx context.Context, s *schema.Schema, calendarID string, rule Astronomical, start timestamp.Timestamp, opts Options) (*timestamp.Timestamp, error)
	OccurrencesInRange(ctx context.Context, s *schema.Schema, calendarID string, rule Astronomical, start, end timestamp.Timestamp, opts Options) ([]timestamp.Timestamp, error)
}

// CustomRuleResolver resolves caller-defined custom rules. Same contract as
// AstronomicalCalculator; a custom rule may legitimately terminate, in which
// case NextOccurrence returns nil.
type CustomRuleResolver interface {
	NextOccurrence(ctx context.Context, s *schema.Schema, calendarID string, rule Custom, start timestamp.Timestamp, opts Options) (*timestamp.Timestamp, error)
	OccurrencesInRange(ctx context.Context, s *schema.Schema, calendarID string, rule Custom, start, end timestamp.Timestamp, opts Options) ([]timestamp.Timestamp, error)
}

// Services bundles the injected strategies. Both fields are optional until a
// rule of the matching variant is evaluated.
type Services struct {
	Astronomical AstronomicalCalculator
	Custom       CustomRuleResolver
}
