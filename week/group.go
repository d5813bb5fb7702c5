package week

import (
	"slices"
	"time"

	"github.com/samber/mo"
)

// Group is the items falling into one week, in input order.
type Group[B any] struct {
	Week  Code
	Items []B
}

// GroupConfig configures NewGroupFactory. CodeFactory wins over Config when
// both are set.
type GroupConfig[B any] struct {
	CodeFactory CodeFactory
	Config      Config
	// DateReader returns the date an item is grouped by. Items without one
	// go to UnknownCode.
	DateReader func(B) mo.Option[time.Time]
}

// GroupFactory buckets items by week.
type GroupFactory[B any] func([]B) []Group[B]

// NewGroupFactory returns a GroupFactory. Groups are ordered by the first
// appearance of their code in the input, not numerically; use SortGroups
// for numeric order.
func NewGroupFactory[B any](cfg GroupConfig[B]) GroupFactory[B] {
	codeFor := cfg.CodeFactory
	if codeFor == nil {
		codeFor = NewCodeFactory(cfg.Config)
	}
	return groupBy(func(item B) Code {
		if cfg.DateReader == nil {
			return UnknownCode
		}
		t, ok := cfg.DateReader(item).Get()
		if !ok {
			return UnknownCode
		}
		return codeFor(t)
	})
}

func groupBy[B any](code func(B) Code) GroupFactory[B] {
	return func(items []B) []Group[B] {
		var groups []Group[B]
		index := make(map[Code]int)
		for _, item := range items {
			c := code(item)
			n, ok := index[c]
			if !ok {
				n = len(groups)
				index[c] = n
				groups = append(groups, Group[B]{Week: c})
			}
			groups[n].Items = append(groups[n].Items, item)
		}
		return groups
	}
}

// SortGroups orders groups by code in place. UnknownCode sorts first.
func SortGroups[B any](groups []Group[B]) {
	slices.SortStableFunc(groups, func(a, b Group[B]) int {
		return int(a.Week) - int(b.Week)
	})
}
