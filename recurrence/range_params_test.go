package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyp0633/caldate/timezone"
)

func TestRangeParams_Resolve(t *testing.T) {
	tests := []struct {
		name      string
		params    RangeParams
		zone      *timezone.Normalizer
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "Day",
			params:    RangeParams{Type: RangeDay, Date: utc(time.January, 10, 15)},
			wantStart: utc(time.January, 10, 0),
			wantEnd:   utc(time.January, 11, 0),
		},
		{
			name:      "Default type is day",
			params:    RangeParams{Date: utc(time.January, 10, 15), Distance: 3},
			wantStart: utc(time.January, 10, 0),
			wantEnd:   utc(time.January, 13, 0),
		},
		{
			name:      "Week starting Monday",
			params:    RangeParams{Type: RangeWeek, Date: utc(time.January, 14, 12), WeekStartsOn: time.Monday},
			wantStart: utc(time.January, 8, 0),
			wantEnd:   utc(time.January, 15, 0),
		},
		{
			name:      "Two weeks starting Sunday",
			params:    RangeParams{Type: RangeWeek, Date: utc(time.January, 10, 12), Distance: 2},
			wantStart: utc(time.January, 7, 0),
			wantEnd:   utc(time.January, 21, 0),
		},
		{
			name:      "Month in Berlin",
			params:    RangeParams{Type: RangeMonth, Date: utc(time.March, 15, 12)},
			zone:      timezone.MustLoad("Europe/Berlin"),
			wantStart: utc(time.February, 29, 23),
			wantEnd:   utc(time.March, 31, 22),
		},
		{
			name:      "Day of spring forward in Chicago",
			params:    RangeParams{Type: RangeDay, Date: utc(time.March, 10, 12)},
			zone:      timezone.MustLoad("America/Chicago"),
			wantStart: utc(time.March, 10, 6),
			wantEnd:   utc(time.March, 11, 5),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := tt.params.Resolve(tt.zone)
			require.NoError(t, err)
			assert.True(t, tt.wantStart.Equal(r.Start), "start: got %s want %s", r.Start.UTC(), tt.wantStart)
			end := tt.wantEnd.Add(-time.Nanosecond)
			assert.True(t, end.Equal(r.End), "end: got %s want %s", r.End.UTC(), end)
		})
	}
}

func TestRangeParams_ResolveErrors(t *testing.T) {
	_, err := RangeParams{Type: RangeWeek}.Resolve(nil)
	assert.True(t, errors.Is(err, ErrConfiguration))

	_, err = RangeParams{Type: "fortnight", Date: utc(time.January, 1, 0)}.Resolve(nil)
	assert.True(t, errors.Is(err, ErrConfiguration))
}
