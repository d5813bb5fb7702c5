package recurrence

import (
	"time"

	"github.com/cyp0633/caldate/timezone"
)

// RangeType is the calendar unit of a RangeParams window.
type RangeType string

const (
	RangeDay   RangeType = "day"
	RangeWeek  RangeType = "week"
	RangeMonth RangeType = "month"
)

// RangeParams describes a window by calendar unit instead of explicit
// instants, e.g. "the week containing Date and the following one".
type RangeParams struct {
	Type RangeType
	Date time.Time
	// Distance is the number of units covered. Zero means one.
	Distance int
	// WeekStartsOn applies to RangeWeek.
	WeekStartsOn time.Weekday
}

// Resolve turns p into an inclusive Range using z's local calendar. The end
// is the last nanosecond before the following unit starts.
func (p RangeParams) Resolve(z *timezone.Normalizer) (Range, error) {
	if z == nil {
		z = timezone.New(time.UTC)
	}
	if p.Date.IsZero() {
		return Range{}, configError("range params need a date", nil)
	}
	distance := p.Distance
	if distance <= 0 {
		distance = 1
	}

	b := z.ToNormalizedBase(p.Date).Time()
	day := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)

	var start, end time.Time
	switch p.Type {
	case RangeDay, "":
		start = day
		end = start.AddDate(0, 0, distance)
	case RangeWeek:
		back := (int(day.Weekday()) - int(p.WeekStartsOn) + 7) % 7
		start = day.AddDate(0, 0, -back)
		end = start.AddDate(0, 0, 7*distance)
	case RangeMonth:
		start = time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, distance, 0)
	default:
		return Range{}, configError("unknown range type "+string(p.Type), nil)
	}

	return Range{
		Start: z.FromNormalizedBase(timezone.Base(start)),
		End:   z.FromNormalizedBase(timezone.Base(end)).Add(-time.Nanosecond),
	}, nil
}
