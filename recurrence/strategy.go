package recurrence

import (
	"time"

	"github.com/samber/mo"
)

// Strategy visits candidate occurrences in ascending order. Accept returns
// false to stop the iteration; Result reports the strategy's answer.
type Strategy interface {
	Accept(candidate time.Time) bool
	Result() mo.Option[time.Time]
}

// LastStrategy records the most recent occurrence at or below Ceiling,
// giving up after MaxIterations occurrences.
type LastStrategy struct {
	Ceiling       time.Time
	MaxIterations int

	seen int
	last mo.Option[time.Time]
}

// NewLastStrategy returns a LastStrategy with the given bounds.
func NewLastStrategy(ceiling time.Time, maxIterations int) *LastStrategy {
	return &LastStrategy{Ceiling: ceiling, MaxIterations: maxIterations}
}

func (s *LastStrategy) Accept(candidate time.Time) bool {
	if candidate.After(s.Ceiling) {
		return false
	}
	s.seen++
	s.last = mo.Some(candidate)
	return s.seen < s.MaxIterations
}

func (s *LastStrategy) Result() mo.Option[time.Time] {
	return s.last
}

// Exhausted reports whether the iteration cap was reached.
func (s *LastStrategy) Exhausted() bool {
	return s.seen >= s.MaxIterations
}

// NextStrategy finds the first occurrence at or after From.
type NextStrategy struct {
	From          time.Time
	MaxIterations int

	seen  int
	found mo.Option[time.Time]
}

// NewNextStrategy returns a NextStrategy with the given bounds.
func NewNextStrategy(from time.Time, maxIterations int) *NextStrategy {
	return &NextStrategy{From: from, MaxIterations: maxIterations}
}

func (s *NextStrategy) Accept(candidate time.Time) bool {
	s.seen++
	if candidate.Before(s.From) {
		return s.seen < s.MaxIterations
	}
	s.found = mo.Some(candidate)
	return false
}

func (s *NextStrategy) Result() mo.Option[time.Time] {
	return s.found
}

// Exhausted reports whether the cap was reached without a result.
func (s *NextStrategy) Exhausted() bool {
	return s.found.IsAbsent() && s.seen >= s.MaxIterations
}

// AnyStrategy stops at the first occurrence within [Min, Max].
type AnyStrategy struct {
	Min time.Time
	Max time.Time

	found mo.Option[time.Time]
}

// NewAnyStrategy returns an AnyStrategy for the inclusive window.
func NewAnyStrategy(min, max time.Time) *AnyStrategy {
	return &AnyStrategy{Min: min, Max: max}
}

func (s *AnyStrategy) Accept(candidate time.Time) bool {
	if candidate.Before(s.Min) {
		return true
	}
	if !candidate.After(s.Max) {
		s.found = mo.Some(candidate)
	}
	return false
}

func (s *AnyStrategy) Result() mo.Option[time.Time] {
	return s.found
}

// BetweenStrategy collects every occurrence between Min and Max.
type BetweenStrategy struct {
	Min       time.Time
	Max       time.Time
	Inclusive bool

	occurrences []time.Time
}

// NewBetweenStrategy returns a collecting strategy for the window.
func NewBetweenStrategy(min, max time.Time, inclusive bool) *BetweenStrategy {
	return &BetweenStrategy{Min: min, Max: max, Inclusive: inclusive}
}

func (s *BetweenStrategy) Accept(candidate time.Time) bool {
	if candidate.Before(s.Min) || (!s.Inclusive && candidate.Equal(s.Min)) {
		return true
	}
	if candidate.After(s.Max) || (!s.Inclusive && candidate.Equal(s.Max)) {
		return false
	}
	s.occurrences = append(s.occurrences, candidate)
	return true
}

func (s *BetweenStrategy) Result() mo.Option[time.Time] {
	if len(s.occurrences) == 0 {
		return mo.None[time.Time]()
	}
	return mo.Some(s.occurrences[len(s.occurrences)-1])
}

// Occurrences returns the collected instants in ascending order.
func (s *BetweenStrategy) Occurrences() []time.Time {
	return s.occurrences
}

// BeforeStrategy finds the last occurrence before At.
type BeforeStrategy struct {
	At        time.Time
	Inclusive bool

	last mo.Option[time.Time]
}

// NewBeforeStrategy returns a BeforeStrategy.
func NewBeforeStrategy(at time.Time, inclusive bool) *BeforeStrategy {
	return &BeforeStrategy{At: at, Inclusive: inclusive}
}

func (s *BeforeStrategy) Accept(candidate time.Time) bool {
	if candidate.After(s.At) || (!s.Inclusive && candidate.Equal(s.At)) {
		return false
	}
	s.last = mo.Some(candidate)
	return true
}

func (s *BeforeStrategy) Result() mo.Option[time.Time] {
	return s.last
}

// projectedStrategy hands its inner strategy the image of every candidate
// under project, so comparisons and results are in the projected space.
// project must be non-decreasing.
type projectedStrategy struct {
	Strategy
	project func(time.Time) time.Time
}

func (p projectedStrategy) Accept(candidate time.Time) bool {
	return p.Strategy.Accept(p.project(candidate))
}
