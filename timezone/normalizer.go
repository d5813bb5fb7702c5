// Package timezone converts between system instants and the normalized UTC
// base space used to drive a UTC-only recurrence evaluator.
//
// A normalized base instant is the UTC instant whose UTC wall-clock fields
// equal the wall-clock fields of the original instant in the target zone.
// "Monday 09:00 America/Chicago" becomes "Monday 09:00 UTC" in base space,
// which keeps the evaluator's day/hour arithmetic aligned with the local
// calendar regardless of DST.
package timezone

import (
	"fmt"
	"time"

	"github.com/samber/mo"
)

// transitionWindow bounds how far apart the offsets sampled around a wall
// clock time may be. Zones do not change offset twice within a day.
const transitionWindow = 24 * time.Hour

// NormalizedInstant is an instant expressed in base space. It is a distinct
// type so a system instant cannot be handed to the evaluator by accident.
type NormalizedInstant struct {
	t time.Time
	// offset is the zone offset ToNormalizedBase applied. It is absent for
	// values wrapped with Base and for values shifted with Add or AddDate.
	offset mo.Option[time.Duration]
}

// Base wraps an instant that is already in base space, such as a value
// produced by the evaluator.
func Base(t time.Time) NormalizedInstant {
	return NormalizedInstant{t: t.UTC()}
}

// Time returns the base space instant. Its UTC fields are the local wall clock.
func (n NormalizedInstant) Time() time.Time {
	return n.t
}

// IsZero reports whether n wraps the zero time.
func (n NormalizedInstant) IsZero() bool {
	return n.t.IsZero()
}

// AddDate shifts the wall clock by calendar days, months and years.
func (n NormalizedInstant) AddDate(years, months, days int) NormalizedInstant {
	return NormalizedInstant{t: n.t.AddDate(years, months, days)}
}

// Add shifts the wall clock by d.
func (n NormalizedInstant) Add(d time.Duration) NormalizedInstant {
	return NormalizedInstant{t: n.t.Add(d)}
}

// Before reports whether n is before o.
func (n NormalizedInstant) Before(o NormalizedInstant) bool {
	return n.t.Before(o.t)
}

// Equal reports whether n and o denote the same base instant.
func (n NormalizedInstant) Equal(o NormalizedInstant) bool {
	return n.t.Equal(o.t)
}

func (n NormalizedInstant) String() string {
	return n.t.Format("2006-01-02T15:04:05") + " (base)"
}

// Normalizer converts instants for one IANA zone.
type Normalizer struct {
	loc *time.Location
}

// New returns a Normalizer for loc. A nil loc is treated as UTC.
func New(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc}
}

// Load resolves an IANA zone name. An empty name yields None: no
// normalization is configured and callers must handle that case
// themselves instead of running an identity conversion.
func Load(name string) (mo.Option[*Normalizer], error) {
	if name == "" {
		return mo.None[*Normalizer](), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return mo.None[*Normalizer](), fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	return mo.Some(New(loc)), nil
}

// MustLoad is like Load but panics on unknown zones. Intended for tests and
// package-level variables.
func MustLoad(name string) *Normalizer {
	n, err := Load(name)
	if err != nil {
		panic(err)
	}
	return n.OrElse(nil)
}

// Location returns the target zone.
func (z *Normalizer) Location() *time.Location {
	return z.loc
}

// Name returns the IANA name of the target zone.
func (z *Normalizer) Name() string {
	return z.loc.String()
}

// Offset returns the zone's UTC offset at t.
func (z *Normalizer) Offset(t time.Time) time.Duration {
	_, off := t.In(z.loc).Zone()
	return time.Duration(off) * time.Second
}

// ToNormalizedBase shifts t by the zone offset in effect at t. The offset is
// kept so FromNormalizedBase returns t exactly, even inside a DST fold.
func (z *Normalizer) ToNormalizedBase(t time.Time) NormalizedInstant {
	off := z.Offset(t)
	return NormalizedInstant{t: t.UTC().Add(off), offset: mo.Some(off)}
}

// FromNormalizedBase is the inverse of ToNormalizedBase.
//
// Values produced by ToNormalizedBase map back to their source instant.
// Otherwise a wall clock that occurs twice (DST fold) resolves to the earlier
// instant, and a wall clock that does not exist (DST gap) is pushed forward
// by the size of the gap.
func (z *Normalizer) FromNormalizedBase(n NormalizedInstant) time.Time {
	base := n.t
	if off, ok := n.offset.Get(); ok {
		return base.Add(-off).In(z.loc)
	}
	before := z.Offset(base.Add(-transitionWindow))
	after := z.Offset(base.Add(transitionWindow))

	var (
		result time.Time
		found  bool
	)
	for _, off := range []time.Duration{before, after} {
		candidate := base.Add(-off)
		if z.Offset(candidate) != off {
			continue
		}
		if !found || candidate.Before(result) {
			result = candidate
			found = true
		}
	}
	if !found {
		result = base.Add(-before)
	}
	return result.In(z.loc)
}

// StartOfDay returns the first instant of the local calendar day containing t.
func (z *Normalizer) StartOfDay(t time.Time) time.Time {
	b := z.ToNormalizedBase(t).Time()
	day := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return z.FromNormalizedBase(Base(day))
}
