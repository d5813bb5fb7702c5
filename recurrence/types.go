package recurrence

import (
	"time"

	"github.com/samber/mo"
)

// MaxFutureInstant bounds searches over rules without a natural end. It is
// the end of a forever DateRange and must never drive real scheduling.
var MaxFutureInstant = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)

const minutesPerDay = 24 * 60

// EventKind tells how an event's duration is measured.
type EventKind int

const (
	// KindTime events last an exact number of minutes.
	KindTime EventKind = iota
	// KindDays events last whole calendar days. The duration is still stored
	// in minutes.
	KindDays
)

func (k EventKind) String() string {
	if k == KindDays {
		return "days"
	}
	return "time"
}

// CalendarEvent is a single dated event.
type CalendarEvent struct {
	StartsAt        time.Time
	DurationMinutes int
	Kind            EventKind
}

// Validate checks the event's invariants.
func (e CalendarEvent) Validate() error {
	if e.DurationMinutes < 0 {
		return configError("event duration must not be negative", nil)
	}
	return nil
}

// Duration returns the nominal length of the event.
func (e CalendarEvent) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// End returns the instant the event ends. Days events advance the wall clock
// of StartsAt's location, so a day spanning a DST change keeps its calendar
// length.
func (e CalendarEvent) End() time.Time {
	if e.Kind != KindDays {
		return e.StartsAt.Add(e.Duration())
	}
	days := e.DurationMinutes / minutesPerDay
	rest := time.Duration(e.DurationMinutes%minutesPerDay) * time.Minute
	return e.StartsAt.AddDate(0, 0, days).Add(rest)
}

// withStart copies e onto a new start.
func (e CalendarEvent) withStart(t time.Time) CalendarEvent {
	e.StartsAt = t
	return e
}

// Range is an inclusive window of instants.
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies within r, both ends included.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

func (r Range) validate() error {
	if r.End.Before(r.Start) {
		return configError("range end is before range start", nil)
	}
	return nil
}

// DateRange describes the span covered by a recurrence.
type DateRange struct {
	Start time.Time
	// End is the start of the final occurrence, or MaxFutureInstant when
	// Forever is set.
	End     time.Time
	Forever bool
	// FinalOccurrenceEndsAt is the end of the final occurrence. Absent for
	// forever rules.
	FinalOccurrenceEndsAt mo.Option[time.Time]
}

// Expansion is the result of Instance.Expand.
type Expansion struct {
	RangeUsed Range
	Events    []CalendarEvent
}

// Starts returns the start instants of the expanded events.
func (e Expansion) Starts() []time.Time {
	out := make([]time.Time, len(e.Events))
	for i, ev := range e.Events {
		out[i] = ev.StartsAt
	}
	return out
}
