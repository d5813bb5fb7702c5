// Package week maps dates to calendar-week codes and buckets items by week.
//
// A Code is year*100+week. The week-numbering year of a date is the year
// whose week 1 contains it, so the last days of December may belong to
// week 1 of the following year, and under ISO numbering the first days of
// January may belong to the last week of the previous one.
package week

import (
	"fmt"
	"time"

	"github.com/cyp0633/caldate/timezone"
)

const day = 24 * time.Hour

// Code identifies one calendar week as year*100+week.
type Code int

// UnknownCode groups items that carry no date.
const UnknownCode Code = 0

// MakeCode encodes a week-numbering year and a 1-based week.
func MakeCode(year, week int) Code {
	return Code(year*100 + week)
}

// Year returns the week-numbering year.
func (c Code) Year() int {
	return int(c) / 100
}

// Week returns the week within the year, 1 to 53.
func (c Code) Week() int {
	return int(c) % 100
}

// IsUnknown reports whether c is UnknownCode.
func (c Code) IsUnknown() bool {
	return c == UnknownCode
}

func (c Code) String() string {
	if c.IsUnknown() {
		return "unknown"
	}
	return fmt.Sprintf("%04d-W%02d", c.Year(), c.Week())
}

// Config controls how weeks are numbered.
type Config struct {
	// Timezone is the zone whose local calendar defines days. Nil means UTC.
	Timezone *timezone.Normalizer
	// WeekStartsOn is the first day of each week.
	WeekStartsOn time.Weekday
	// FirstWeekContainsDate is the January day that week 1 always contains,
	// 1 to 7. Zero means 1.
	FirstWeekContainsDate int
}

// DefaultConfig numbers weeks from Sunday, with week 1 being the week that
// contains January 1.
func DefaultConfig() Config {
	return Config{WeekStartsOn: time.Sunday, FirstWeekContainsDate: 1}
}

// ISOConfig numbers weeks per ISO 8601: Monday start, week 1 contains
// January 4.
func ISOConfig() Config {
	return Config{WeekStartsOn: time.Monday, FirstWeekContainsDate: 4}
}

// InZone returns a copy of c computing days in z.
func (c Config) InZone(z *timezone.Normalizer) Config {
	c.Timezone = z
	return c
}

func (c Config) zone() *timezone.Normalizer {
	if c.Timezone == nil {
		return timezone.New(time.UTC)
	}
	return c.Timezone
}

func (c Config) firstWeekContainsDate() int {
	if c.FirstWeekContainsDate < 1 || c.FirstWeekContainsDate > 7 {
		return 1
	}
	return c.FirstWeekContainsDate
}

// localDay returns midnight UTC of t's local calendar day.
func (c Config) localDay(t time.Time) time.Time {
	b := c.zone().ToNormalizedBase(t).Time()
	return time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
}

// toSystem converts a local midnight back to an instant.
func (c Config) toSystem(localDay time.Time) time.Time {
	return c.zone().FromNormalizedBase(timezone.Base(localDay))
}

// startOfWeek works on local days.
func (c Config) startOfWeek(d time.Time) time.Time {
	back := (int(d.Weekday()) - int(c.WeekStartsOn) + 7) % 7
	return d.AddDate(0, 0, -back)
}

// startOfWeekYear returns the first local day of week 1 of year.
func (c Config) startOfWeekYear(year int) time.Time {
	anchor := time.Date(year, time.January, c.firstWeekContainsDate(), 0, 0, 0, 0, time.UTC)
	return c.startOfWeek(anchor)
}

func (c Config) weekYear(d time.Time) int {
	year := d.Year()
	if !d.Before(c.startOfWeekYear(year + 1)) {
		return year + 1
	}
	if !d.Before(c.startOfWeekYear(year)) {
		return year
	}
	return year - 1
}

func (c Config) codeForLocalDay(d time.Time) Code {
	year := c.weekYear(d)
	weeks := int(c.startOfWeek(d).Sub(c.startOfWeekYear(year)) / (7 * day))
	return MakeCode(year, weeks+1)
}

// CodeFor returns the week code of t's local calendar day.
func CodeFor(t time.Time, cfg Config) Code {
	return cfg.codeForLocalDay(cfg.localDay(t))
}

// WeekStart returns the first instant of the local week containing t.
func WeekStart(t time.Time, cfg Config) time.Time {
	return cfg.toSystem(cfg.startOfWeek(cfg.localDay(t)))
}

// WeekEnd returns the last instant of the local week containing t.
func WeekEnd(t time.Time, cfg Config) time.Time {
	next := cfg.startOfWeek(cfg.localDay(t)).AddDate(0, 0, 7)
	return cfg.toSystem(next).Add(-time.Nanosecond)
}

// CodesForCalendarMonth returns, in order and without duplicates, the codes
// of every week that overlaps the local calendar month containing t.
func CodesForCalendarMonth(t time.Time, cfg Config) []Code {
	d := cfg.localDay(t)
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	var codes []Code
	for w := cfg.startOfWeek(first); !w.After(last); w = w.AddDate(0, 0, 7) {
		code := cfg.codeForLocalDay(w)
		if len(codes) == 0 || codes[len(codes)-1] != code {
			codes = append(codes, code)
		}
	}
	return codes
}

// CodeFactory maps an instant to its week code.
type CodeFactory func(time.Time) Code

// NewCodeFactory binds cfg into a CodeFactory.
func NewCodeFactory(cfg Config) CodeFactory {
	return func(t time.Time) Code {
		return CodeFor(t, cfg)
	}
}

// DateFactory maps a week code back to the first instant of that week.
type DateFactory func(Code) time.Time

// NewDateFactory returns the inverse of NewCodeFactory(cfg). UnknownCode
// maps to the zero time.
func NewDateFactory(cfg Config) DateFactory {
	return func(c Code) time.Time {
		if c.IsUnknown() {
			return time.Time{}
		}
		start := cfg.startOfWeekYear(c.Year()).AddDate(0, 0, 7*(c.Week()-1))
		return cfg.toSystem(start)
	}
}
