package recurrence

import (
	"log/slog"
	"time"

	"github.com/samber/mo"
	"github.com/teambition/rrule-go"

	"github.com/cyp0633/caldate/timezone"
)

// Instance binds a rule set to a reference event and a timezone. It is
// immutable after construction and safe for concurrent use.
type Instance struct {
	set       RuleSet
	evaluator *Evaluator
	reference CalendarEvent

	// zone is present when the evaluator runs in normalized base space.
	zone mo.Option[*timezone.Normalizer]
	// calendar resolves local calendar days: the configured zone, the
	// rule's own TZID zone, or UTC.
	calendar *timezone.Normalizer
	// ruleLoc is set when DTSTART carries a TZID.
	ruleLoc *time.Location

	exclude *ExclusionSet
	logger  *slog.Logger
}

// ExpandOptions selects the window of an expansion. With neither field set
// the whole recurrence is expanded, which requires a bounded rule.
type ExpandOptions struct {
	Range       *Range
	RangeParams *RangeParams
}

// ParseInstance parses text and builds an Instance from it.
func ParseInstance(text string, opts InstanceOptions) (*Instance, error) {
	set, err := ParseRuleSet(text)
	if err != nil {
		return nil, err
	}
	return NewInstance(set, opts)
}

// NewInstance builds an Instance.
//
// The evaluator's start is resolved in this order:
//  1. a DTSTART with TZID is used as is, and the Timezone option is ignored;
//  2. with a Timezone, the reference event start (or a UTC DTSTART) is
//     shifted into base space, while a floating DTSTART already is a wall
//     clock and is used directly;
//  3. without a Timezone the start is read as UTC.
//
// A set with no start at all fails with ErrConfiguration.
func NewInstance(set RuleSet, opts InstanceOptions) (*Instance, error) {
	if len(set.RRules) == 0 {
		return nil, parseError("rule set has no RRULE line", nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = discardLogger()
	}

	i := &Instance{
		set:     set,
		logger:  logger,
		exclude: NewExclusionSet(opts.Exclude...),
	}

	if opts.ReferenceEvent != nil {
		if err := opts.ReferenceEvent.Validate(); err != nil {
			return nil, err
		}
		i.reference = *opts.ReferenceEvent
	}

	zone, err := timezone.Load(opts.Timezone)
	if err != nil {
		return nil, configError("invalid timezone", err)
	}

	if set.DTStart != nil && set.DTStart.Form == FormZoned {
		i.ruleLoc = set.DTStart.Time.Location()
		i.calendar = timezone.New(i.ruleLoc)
		i.zone = mo.None[*timezone.Normalizer]()
		if z, ok := zone.Get(); ok && z.Name() != set.DTStart.TZID {
			logger.Debug("rule carries its own timezone, ignoring configured timezone",
				"rule_tzid", set.DTStart.TZID,
				"timezone", z.Name())
		}
	} else {
		i.zone = zone
		i.calendar = zone.OrElse(timezone.New(time.UTC))
	}

	start, err := i.resolveStart()
	if err != nil {
		return nil, err
	}

	if i.reference.StartsAt.IsZero() {
		i.reference.StartsAt = i.fromEvaluator(start)
	}
	for _, ex := range set.ExDates {
		i.exclude.Add(i.dateToSystem(ex))
	}

	rules := make([]rrule.ROption, len(set.RRules))
	for n, r := range set.RRules {
		rules[n] = i.ruleToEvaluator(r)
	}
	exrules := make([]rrule.ROption, len(set.ExRules))
	for n, r := range set.ExRules {
		exrules[n] = i.ruleToEvaluator(r)
	}
	rdates := make([]time.Time, len(set.RDates))
	for n, d := range set.RDates {
		rdates[n] = i.dateToEvaluator(d)
	}

	i.evaluator, err = NewEvaluator(start, rules, exrules, rdates, EvaluatorConfig{
		MaxIterations: opts.MaxIterations,
		Skip:          i.excluded,
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("recurrence instance created",
		"rules", len(set.RRules),
		"dtstart", i.evaluator.DTStart(),
		"normalized", i.zone.IsPresent(),
		"forever", i.evaluator.IsForever(),
		"exclusions", i.exclude.Len())
	return i, nil
}

func (i *Instance) resolveStart() (time.Time, error) {
	if i.ruleLoc != nil {
		return i.set.DTStart.Time, nil
	}
	if !i.reference.StartsAt.IsZero() {
		return i.toEvaluator(i.reference.StartsAt), nil
	}
	if i.set.DTStart != nil {
		return i.dateToEvaluator(*i.set.DTStart), nil
	}
	return time.Time{}, configError("no start instant: set DTSTART or a reference event", nil)
}

// toEvaluator moves a system instant into evaluator space.
func (i *Instance) toEvaluator(t time.Time) time.Time {
	if z, ok := i.zone.Get(); ok {
		return z.ToNormalizedBase(t).Time()
	}
	if i.ruleLoc != nil {
		return t.In(i.ruleLoc)
	}
	return t.UTC()
}

// fromEvaluator moves an evaluator instant back into system space.
func (i *Instance) fromEvaluator(t time.Time) time.Time {
	if z, ok := i.zone.Get(); ok {
		return z.FromNormalizedBase(timezone.Base(t))
	}
	return t
}

// dateToEvaluator converts a parsed rule value into evaluator space.
// Floating values are wall clocks of the instance's calendar zone.
func (i *Instance) dateToEvaluator(v DateValue) time.Time {
	if v.IsAbsolute() {
		return i.toEvaluator(v.Time)
	}
	if i.ruleLoc != nil {
		return wallClockIn(v.Time, i.ruleLoc)
	}
	return v.Time.UTC()
}

// dateToSystem converts a parsed rule value into system space.
func (i *Instance) dateToSystem(v DateValue) time.Time {
	if v.IsAbsolute() {
		return v.Time
	}
	if i.ruleLoc != nil {
		return wallClockIn(v.Time, i.ruleLoc)
	}
	return i.fromEvaluator(v.Time.UTC())
}

func (i *Instance) ruleToEvaluator(r Rule) rrule.ROption {
	opt := r.Options
	if !opt.Until.IsZero() {
		opt.Until = i.dateToEvaluator(DateValue{Time: opt.Until, Form: r.UntilForm})
	}
	return opt
}

func (i *Instance) excluded(t time.Time) bool {
	return i.exclude.Contains(i.fromEvaluator(t))
}

func wallClockIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	return time.Date(y, m, d, hh, mm, ss, t.Nanosecond(), loc)
}

// RuleSet returns the parsed rule set.
func (i *Instance) RuleSet() RuleSet {
	return i.set
}

// ReferenceEvent returns the event copied onto every occurrence.
func (i *Instance) ReferenceEvent() CalendarEvent {
	return i.reference
}

// Timezone returns the calendar zone of the recurrence.
func (i *Instance) Timezone() *time.Location {
	return i.calendar.Location()
}

// Normalized reports whether the evaluator runs in normalized base space.
func (i *Instance) Normalized() bool {
	return i.zone.IsPresent()
}

// IsForever reports whether the recurrence has no final occurrence.
func (i *Instance) IsForever() bool {
	return i.evaluator.IsForever()
}

// Exclusions returns a copy of the excluded instants.
func (i *Instance) Exclusions() *ExclusionSet {
	return i.exclude.Clone()
}

// Evaluator exposes the underlying evaluator. Its instants are in evaluator
// space.
func (i *Instance) Evaluator() *Evaluator {
	return i.evaluator
}

func (i *Instance) event(evaluatorStart time.Time) CalendarEvent {
	return i.reference.withStart(i.fromEvaluator(evaluatorStart))
}

// NextOccurrenceFrom returns the first occurrence starting at or after from.
// None means no occurrence was found within the iteration cap.
func (i *Instance) NextOccurrenceFrom(from time.Time) mo.Option[CalendarEvent] {
	next := i.iterate(NewNextStrategy(from, i.evaluator.MaxIterations()))
	t, ok := next.Get()
	if !ok {
		i.logger.Debug("no next occurrence", "from", from, "max_iterations", i.evaluator.MaxIterations())
		return mo.None[CalendarEvent]()
	}
	return mo.Some(i.reference.withStart(t))
}

// iterate runs s over the occurrences mapped to system space.
func (i *Instance) iterate(s Strategy) mo.Option[time.Time] {
	return i.evaluator.Iterate(projectedStrategy{Strategy: s, project: i.fromEvaluator})
}

// NextOccurrence returns the first occurrence at or after the current time.
func (i *Instance) NextOccurrence() mo.Option[CalendarEvent] {
	return i.NextOccurrenceFrom(time.Now())
}

// HasOccurrenceInRange reports whether an occurrence starts within r.
func (i *Instance) HasOccurrenceInRange(r Range) bool {
	if r.End.Before(r.Start) {
		return false
	}
	return i.iterate(NewAnyStrategy(r.Start, r.End)).IsPresent()
}

// Expand returns the occurrences within the requested window, ascending and
// inclusive of both ends. Expanding a forever rule without a window fails
// with ErrUnboundedExpansion.
func (i *Instance) Expand(opts ExpandOptions) (Expansion, error) {
	var window *Range
	switch {
	case opts.Range != nil:
		window = opts.Range
	case opts.RangeParams != nil:
		r, err := opts.RangeParams.Resolve(i.calendar)
		if err != nil {
			return Expansion{}, err
		}
		window = &r
	}

	var (
		starts []time.Time
		used   Range
	)
	if window != nil {
		if err := window.validate(); err != nil {
			return Expansion{}, err
		}
		used = *window
		s := NewBetweenStrategy(window.Start, window.End, true)
		i.iterate(s)
		starts = s.Occurrences()
	} else {
		if i.evaluator.IsForever() {
			return Expansion{}, &Error{
				Type:    ErrorTypeUnboundedExpansion,
				Message: "expand needs a range for a rule without COUNT or UNTIL",
			}
		}
		all, err := i.evaluator.All()
		if err != nil {
			return Expansion{}, err
		}
		starts = make([]time.Time, len(all))
		for n, t := range all {
			starts[n] = i.fromEvaluator(t)
		}
		used = Range{Start: i.reference.StartsAt, End: i.reference.StartsAt}
		if len(starts) > 0 {
			used.Start = starts[0]
			used.End = starts[len(starts)-1]
		}
	}

	events := make([]CalendarEvent, 0, len(starts))
	for _, t := range starts {
		if i.exclude.Contains(t) {
			continue
		}
		// Wall clocks inside a DST gap resolve onto the next valid instant.
		if n := len(events); n > 0 && !t.After(events[n-1].StartsAt) {
			continue
		}
		events = append(events, i.reference.withStart(t))
	}
	return Expansion{RangeUsed: used, Events: events}, nil
}

// DateRange returns the span of the recurrence. Bounded rules report their
// final occurrence; forever rules end at MaxFutureInstant.
func (i *Instance) DateRange() DateRange {
	start := i.fromEvaluator(i.evaluator.DTStart())
	if i.evaluator.IsForever() {
		return DateRange{
			Start:                 start,
			End:                   MaxFutureInstant,
			Forever:               true,
			FinalOccurrenceEndsAt: mo.None[time.Time](),
		}
	}

	var last mo.Option[time.Time]
	if until, ok := i.evaluator.Until().Get(); ok {
		last = i.evaluator.Before(until, true)
	} else {
		last = i.evaluator.Last()
	}

	final := i.reference.withStart(start)
	if t, ok := last.Get(); ok {
		final = i.event(t)
	} else {
		i.logger.Debug("bounded rule has no occurrences", "dtstart", start)
	}
	return DateRange{
		Start:                 start,
		End:                   final.StartsAt,
		FinalOccurrenceEndsAt: mo.Some(final.End()),
	}
}
