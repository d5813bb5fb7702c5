package recurrence

import (
	"io"
	"log/slog"
	"time"
)

// DefaultMaxIterations caps the bounded searches (Last, Next). Reaching the
// cap is a "no result" outcome, not an error.
const DefaultMaxIterations = 10000

// EvaluatorConfig holds tuning options for an Evaluator
type EvaluatorConfig struct {
	// MaxIterations caps Last and Next. Zero means DefaultMaxIterations.
	MaxIterations int
	// Ceiling is the instant above which Last stops looking. Zero means
	// MaxFutureInstant.
	Ceiling time.Time
	// Skip drops candidates before any strategy sees them. Optional.
	Skip func(time.Time) bool
}

// DefaultEvaluatorConfig supplies the values NewEvaluator uses for unset
// fields.
var DefaultEvaluatorConfig = EvaluatorConfig{
	MaxIterations: DefaultMaxIterations,
	Ceiling:       MaxFutureInstant,
}

func (c EvaluatorConfig) normalize() EvaluatorConfig {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultEvaluatorConfig.MaxIterations
	}
	if c.Ceiling.IsZero() {
		c.Ceiling = DefaultEvaluatorConfig.Ceiling
	}
	return c
}

// InstanceOptions configures NewInstance.
type InstanceOptions struct {
	// ReferenceEvent supplies the start, duration and kind copied onto every
	// occurrence. When nil the rule's DTSTART is used with a zero duration.
	ReferenceEvent *CalendarEvent
	// Timezone is the IANA zone the rule's wall clock is expressed in. Empty
	// means UTC with no normalization. Ignored when DTSTART carries a TZID.
	Timezone string
	// Exclude lists system instants that never produce an occurrence.
	Exclude []time.Time
	// MaxIterations overrides DefaultMaxIterations.
	MaxIterations int
	// Logger receives debug output. Defaults to a discarding logger.
	Logger *slog.Logger
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
