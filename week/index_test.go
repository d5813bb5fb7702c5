package week

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyp0633/caldate/timezone"
)

func TestDateCellTiming_DateFor(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	timing := DateCellTiming{
		Start:    time.Date(2024, time.March, 9, 9, 0, 0, 0, chicago),
		Timezone: "America/Chicago",
	}

	tests := []struct {
		index DateCellIndex
		want  time.Time
	}{
		{index: 0, want: time.Date(2024, time.March, 9, 15, 0, 0, 0, time.UTC)},
		{index: 1, want: time.Date(2024, time.March, 10, 14, 0, 0, 0, time.UTC)},
		{index: -1, want: time.Date(2024, time.March, 8, 15, 0, 0, 0, time.UTC)},
		{index: 30, want: time.Date(2024, time.April, 8, 14, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, err := timing.DateFor(tt.index)
		require.NoError(t, err)
		assert.True(t, tt.want.Equal(got), "index %d: got %s want %s", tt.index, got.UTC(), tt.want)
	}
}

func TestDateCellIndexCodeFactory(t *testing.T) {
	// Index 0 is Saturday 23:30 in Chicago but already Sunday in UTC.
	timing := DateCellTiming{
		Start:    time.Date(2022, time.January, 2, 5, 30, 0, 0, time.UTC),
		Timezone: "America/Chicago",
	}

	codeFor, err := NewDateCellIndexCodeFactory(timing, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, Code(202201), codeFor(0), "weeks follow the timing's zone")
	assert.Equal(t, Code(202202), codeFor(1))

	utcWeeks, err := NewDateCellIndexCodeFactory(timing, DefaultConfig().InZone(timezone.New(time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, Code(202202), utcWeeks(0))
}

func TestDateCellIndexCodeFactory_BadZone(t *testing.T) {
	_, err := NewDateCellIndexCodeFactory(DateCellTiming{Start: time.Now(), Timezone: "Nowhere/Land"}, DefaultConfig())
	assert.Error(t, err)

	_, err = DateCellTiming{Start: time.Now(), Timezone: "Nowhere/Land"}.DateFor(1)
	assert.Error(t, err)
}
