package recurrence

import (
	"slices"
	"time"
)

type instantKey struct {
	sec  int64
	nsec int
}

func keyOf(t time.Time) instantKey {
	return instantKey{sec: t.Unix(), nsec: t.Nanosecond()}
}

// ExclusionSet is a set of excluded instants. Membership ignores location
// and monotonic readings.
type ExclusionSet struct {
	m map[instantKey]time.Time
}

// NewExclusionSet returns a set holding the given instants.
func NewExclusionSet(instants ...time.Time) *ExclusionSet {
	s := &ExclusionSet{m: make(map[instantKey]time.Time, len(instants))}
	for _, t := range instants {
		s.Add(t)
	}
	return s
}

// Add inserts t. Adding an instant already present is a no-op.
func (s *ExclusionSet) Add(t time.Time) {
	if s.m == nil {
		s.m = make(map[instantKey]time.Time)
	}
	s.m[keyOf(t)] = t.UTC()
}

// Contains reports whether t is excluded.
func (s *ExclusionSet) Contains(t time.Time) bool {
	if s == nil || len(s.m) == 0 {
		return false
	}
	_, ok := s.m[keyOf(t)]
	return ok
}

// Len returns the number of distinct excluded instants.
func (s *ExclusionSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.m)
}

// Instants returns the excluded instants in ascending order.
func (s *ExclusionSet) Instants() []time.Time {
	if s == nil {
		return nil
	}
	out := make([]time.Time, 0, len(s.m))
	for _, t := range s.m {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
	return out
}

// Clone returns an independent copy of s.
func (s *ExclusionSet) Clone() *ExclusionSet {
	c := NewExclusionSet()
	if s == nil {
		return c
	}
	for k, v := range s.m {
		c.m[k] = v
	}
	return c
}
