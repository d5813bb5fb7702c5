package week

import (
	"time"

	"github.com/samber/mo"

	"github.com/cyp0633/caldate/timezone"
)

// DateCellIndex is a day offset from a schedule's start date.
type DateCellIndex int

// DateBlockIndex addresses a block of cells by the offset of its first day.
// It resolves to a date exactly like a DateCellIndex.
type DateBlockIndex = DateCellIndex

// DateCellTiming anchors day indexes. Start is the instant of index 0;
// Timezone names the zone whose calendar the days follow, empty for UTC.
type DateCellTiming struct {
	Start    time.Time
	Timezone string
}

// DateFor returns the instant of index i: Start advanced by i calendar days
// on the timing's local wall clock.
func (t DateCellTiming) DateFor(i DateCellIndex) (time.Time, error) {
	z, err := t.zone()
	if err != nil {
		return time.Time{}, err
	}
	b := z.ToNormalizedBase(t.Start).AddDate(0, 0, int(i))
	return z.FromNormalizedBase(b), nil
}

func (t DateCellTiming) zone() (*timezone.Normalizer, error) {
	z, err := timezone.Load(t.Timezone)
	if err != nil {
		return nil, err
	}
	return z.OrElse(timezone.New(time.UTC)), nil
}

// IndexCodeFactory maps a day index to its week code.
type IndexCodeFactory func(DateCellIndex) Code

// NewDateCellIndexCodeFactory returns a factory resolving indexes against
// timing. Unless cfg sets its own zone, weeks follow the timing's zone.
func NewDateCellIndexCodeFactory(timing DateCellTiming, cfg Config) (IndexCodeFactory, error) {
	z, err := timing.zone()
	if err != nil {
		return nil, err
	}
	if cfg.Timezone == nil {
		cfg.Timezone = z
	}
	start := z.ToNormalizedBase(timing.Start)
	return func(i DateCellIndex) Code {
		return CodeFor(z.FromNormalizedBase(start.AddDate(0, 0, int(i))), cfg)
	}, nil
}

// NewDateCellIndexGroupFactory groups items addressed by day index. Items
// without an index go to UnknownCode.
func NewDateCellIndexGroupFactory[B any](timing DateCellTiming, cfg Config, indexReader func(B) mo.Option[DateCellIndex]) (GroupFactory[B], error) {
	codeFor, err := NewDateCellIndexCodeFactory(timing, cfg)
	if err != nil {
		return nil, err
	}
	return groupBy(func(item B) Code {
		i, ok := indexReader(item).Get()
		if !ok {
			return UnknownCode
		}
		return codeFor(i)
	}), nil
}

// NewDateBlockIndexGroupFactory is NewDateCellIndexGroupFactory for items
// addressed by block.
func NewDateBlockIndexGroupFactory[B any](timing DateCellTiming, cfg Config, indexReader func(B) mo.Option[DateBlockIndex]) (GroupFactory[B], error) {
	return NewDateCellIndexGroupFactory(timing, cfg, indexReader)
}
