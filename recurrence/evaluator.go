package recurrence

import (
	"slices"
	"time"

	"github.com/samber/mo"
	"github.com/teambition/rrule-go"
)

// Evaluator enumerates the occurrences of a rule set in ascending order and
// answers queries through Strategy visitors. Every time it handles lives in
// the evaluator's own space: normalized base instants for zone-normalized
// rules, plain instants otherwise.
//
// An Evaluator is immutable; each query builds fresh iterators, so it is
// safe for concurrent use.
type Evaluator struct {
	dtstart time.Time
	rules   []*rrule.RRule
	exrules []*rrule.RRule
	rdates  []time.Time
	config  EvaluatorConfig
}

// NewEvaluator builds an evaluator anchored at dtstart. Every rule's
// Dtstart is replaced with dtstart.
func NewEvaluator(dtstart time.Time, rules, exrules []rrule.ROption, rdates []time.Time, config EvaluatorConfig) (*Evaluator, error) {
	if dtstart.IsZero() {
		return nil, configError("evaluator needs a start instant", nil)
	}
	if len(rules) == 0 {
		return nil, parseError("rule set has no RRULE line", nil)
	}

	e := &Evaluator{
		dtstart: dtstart.Truncate(time.Second),
		config:  config.normalize(),
	}
	build := func(opts []rrule.ROption) ([]*rrule.RRule, error) {
		out := make([]*rrule.RRule, 0, len(opts))
		for _, opt := range opts {
			opt.Dtstart = e.dtstart
			r, err := rrule.NewRRule(opt)
			if err != nil {
				return nil, parseError("invalid rule options", err)
			}
			out = append(out, r)
		}
		return out, nil
	}

	var err error
	if e.rules, err = build(rules); err != nil {
		return nil, err
	}
	if e.exrules, err = build(exrules); err != nil {
		return nil, err
	}

	e.rdates = slices.Clone(rdates)
	slices.SortFunc(e.rdates, func(a, b time.Time) int { return a.Compare(b) })
	return e, nil
}

// DTStart returns the anchor of the evaluator.
func (e *Evaluator) DTStart() time.Time {
	return e.dtstart
}

// Location returns the location the evaluator computes wall clocks in.
func (e *Evaluator) Location() *time.Location {
	return e.dtstart.Location()
}

// MaxIterations returns the cap used by Last and Next.
func (e *Evaluator) MaxIterations() int {
	return e.config.MaxIterations
}

// IsForever reports whether some rule has neither COUNT nor UNTIL.
func (e *Evaluator) IsForever() bool {
	for _, r := range e.rules {
		if r.OrigOptions.Count == 0 && r.OrigOptions.Until.IsZero() {
			return true
		}
	}
	return false
}

// Until returns the latest UNTIL when every rule carries one.
func (e *Evaluator) Until() mo.Option[time.Time] {
	var until time.Time
	for _, r := range e.rules {
		u := r.OrigOptions.Until
		if u.IsZero() {
			return mo.None[time.Time]()
		}
		if u.After(until) {
			until = u
		}
	}
	return mo.Some(until)
}

// Iterate feeds occurrences to s until it declines one or the rule set is
// exhausted, and returns s's result.
func (e *Evaluator) Iterate(s Strategy) mo.Option[time.Time] {
	next := e.iterator()
	for {
		t, ok := next()
		if !ok {
			break
		}
		if e.config.Skip != nil && e.config.Skip(t) {
			continue
		}
		if !s.Accept(t) {
			break
		}
	}
	return s.Result()
}

// Last returns the final occurrence below the ceiling, bounded by the
// iteration cap. Forever rules yield the last occurrence seen when the cap
// was hit.
func (e *Evaluator) Last() mo.Option[time.Time] {
	return e.Iterate(NewLastStrategy(e.config.Ceiling, e.config.MaxIterations))
}

// Next returns the first occurrence at or after from, or None when none is
// found within the iteration cap.
func (e *Evaluator) Next(from time.Time) mo.Option[time.Time] {
	return e.Iterate(NewNextStrategy(from, e.config.MaxIterations))
}

// Any reports whether at least one occurrence lies within [min, max].
func (e *Evaluator) Any(min, max time.Time) bool {
	return e.Iterate(NewAnyStrategy(min, max)).IsPresent()
}

// Between returns the occurrences between min and max.
func (e *Evaluator) Between(min, max time.Time, inclusive bool) []time.Time {
	s := NewBetweenStrategy(min, max, inclusive)
	e.Iterate(s)
	return s.Occurrences()
}

// Before returns the last occurrence before t.
func (e *Evaluator) Before(t time.Time, inclusive bool) mo.Option[time.Time] {
	return e.Iterate(NewBeforeStrategy(t, inclusive))
}

// All returns every occurrence of a bounded rule set.
func (e *Evaluator) All() ([]time.Time, error) {
	if e.IsForever() {
		return nil, &Error{Type: ErrorTypeUnboundedExpansion, Message: "cannot enumerate a rule without COUNT or UNTIL"}
	}
	return e.Between(time.Time{}, MaxFutureInstant, true), nil
}

// iterator merges the RRULE and RDATE streams and removes EXRULE matches.
func (e *Evaluator) iterator() rrule.Next {
	sources := make([]rrule.Next, 0, len(e.rules)+1)
	for _, r := range e.rules {
		sources = append(sources, r.Iterator())
	}
	if len(e.rdates) > 0 {
		sources = append(sources, sliceIterator(e.rdates))
	}
	merged := mergeIterators(sources)
	if len(e.exrules) == 0 {
		return merged
	}

	exSources := make([]rrule.Next, 0, len(e.exrules))
	for _, r := range e.exrules {
		exSources = append(exSources, r.Iterator())
	}
	excluded := newPeekIterator(mergeIterators(exSources))

	return func() (time.Time, bool) {
		for {
			t, ok := merged()
			if !ok {
				return time.Time{}, false
			}
			for excluded.ok && excluded.head.Before(t) {
				excluded.advance()
			}
			if excluded.ok && excluded.head.Equal(t) {
				continue
			}
			return t, true
		}
	}
}

type peekIterator struct {
	next rrule.Next
	head time.Time
	ok   bool
}

func newPeekIterator(next rrule.Next) *peekIterator {
	p := &peekIterator{next: next}
	p.advance()
	return p
}

func (p *peekIterator) advance() {
	p.head, p.ok = p.next()
}

// mergeIterators merges ascending iterators into one ascending iterator
// without duplicates.
func mergeIterators(sources []rrule.Next) rrule.Next {
	if len(sources) == 1 {
		return sources[0]
	}
	heads := make([]*peekIterator, len(sources))
	for i, s := range sources {
		heads[i] = newPeekIterator(s)
	}

	var last time.Time
	started := false
	return func() (time.Time, bool) {
		for {
			var min *peekIterator
			for _, h := range heads {
				if h.ok && (min == nil || h.head.Before(min.head)) {
					min = h
				}
			}
			if min == nil {
				return time.Time{}, false
			}
			t := min.head
			min.advance()
			if started && t.Equal(last) {
				continue
			}
			last, started = t, true
			return t, true
		}
	}
}

func sliceIterator(ts []time.Time) rrule.Next {
	i := 0
	return func() (time.Time, bool) {
		if i >= len(ts) {
			return time.Time{}, false
		}
		t := ts[i]
		i++
		return t, true
	}
}
