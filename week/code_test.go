package week

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyp0633/caldate/timezone"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCodeFor(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		cfg  Config
		want Code
	}{
		{name: "Sunday after New Year", t: date(2022, time.January, 2), cfg: DefaultConfig(), want: 202202},
		{name: "New Year Saturday", t: date(2022, time.January, 1), cfg: DefaultConfig(), want: 202201},
		{name: "December day in week 1", t: date(2021, time.December, 31), cfg: DefaultConfig(), want: 202201},
		{name: "December 26 starts week 1", t: date(2021, time.December, 26), cfg: DefaultConfig(), want: 202201},
		{name: "Week 53", t: date(2022, time.December, 25), cfg: DefaultConfig(), want: 202253},
		{name: "Mid year", t: date(2024, time.July, 4), cfg: DefaultConfig(), want: 202427},
		{name: "ISO Sunday in last week of prior year", t: date(2022, time.January, 2), cfg: ISOConfig(), want: 202152},
		{name: "ISO Monday week 1", t: date(2022, time.January, 3), cfg: ISOConfig(), want: 202201},
		{name: "ISO week 53", t: date(2020, time.December, 31), cfg: ISOConfig(), want: 202053},
		{name: "ISO January in week 53", t: date(2021, time.January, 1), cfg: ISOConfig(), want: 202053},
		{name: "ISO December in week 1", t: date(2024, time.December, 30), cfg: ISOConfig(), want: 202501},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeFor(tt.t, tt.cfg))
		})
	}
}

func TestCodeFor_NextWeek(t *testing.T) {
	for _, cfg := range []Config{DefaultConfig(), ISOConfig()} {
		for d := date(2022, time.January, 2); d.Year() == 2022 && d.Month() < time.December; d = d.AddDate(0, 0, 3) {
			this := CodeFor(d, cfg)
			next := CodeFor(d.AddDate(0, 0, 7), cfg)
			if this.Year() == next.Year() {
				assert.Equal(t, this+1, next, "date %s", d.Format(time.DateOnly))
			}
		}
	}
}

func TestCodeFor_Timezone(t *testing.T) {
	// 2022-01-02 03:00 UTC is still Saturday evening in Chicago.
	at := time.Date(2022, time.January, 2, 3, 0, 0, 0, time.UTC)
	cfg := DefaultConfig()

	assert.Equal(t, Code(202202), CodeFor(at, cfg))
	assert.Equal(t, Code(202201), CodeFor(at, cfg.InZone(timezone.MustLoad("America/Chicago"))))
}

func TestCode(t *testing.T) {
	c := MakeCode(2022, 3)
	assert.Equal(t, Code(202203), c)
	assert.Equal(t, 2022, c.Year())
	assert.Equal(t, 3, c.Week())
	assert.Equal(t, "2022-W03", c.String())
	assert.False(t, c.IsUnknown())
	assert.True(t, UnknownCode.IsUnknown())
	assert.Equal(t, "unknown", UnknownCode.String())
}

func TestWeekStartEnd(t *testing.T) {
	at := time.Date(2022, time.January, 5, 13, 0, 0, 0, time.UTC)

	assert.True(t, date(2022, time.January, 2).Equal(WeekStart(at, DefaultConfig())))
	assert.True(t, date(2022, time.January, 9).Add(-time.Nanosecond).Equal(WeekEnd(at, DefaultConfig())))
	assert.True(t, date(2022, time.January, 3).Equal(WeekStart(at, ISOConfig())))

	berlin := ISOConfig().InZone(timezone.MustLoad("Europe/Berlin"))
	assert.True(t, time.Date(2022, time.January, 2, 23, 0, 0, 0, time.UTC).Equal(WeekStart(at, berlin)))
}

func TestCodesForCalendarMonth(t *testing.T) {
	at := date(2022, time.January, 15)

	assert.Equal(t, []Code{202201, 202202, 202203, 202204, 202205, 202206}, CodesForCalendarMonth(at, DefaultConfig()))
	assert.Equal(t, []Code{202152, 202201, 202202, 202203, 202204, 202205}, CodesForCalendarMonth(at, ISOConfig()))

	// February 2015 starts on a Sunday and fills exactly four weeks.
	assert.Len(t, CodesForCalendarMonth(date(2015, time.February, 10), DefaultConfig()), 4)
}

func TestDateFactory(t *testing.T) {
	t.Run("Known weeks", func(t *testing.T) {
		assert.True(t, date(2022, time.January, 2).Equal(NewDateFactory(DefaultConfig())(202202)))
		assert.True(t, date(2021, time.December, 26).Equal(NewDateFactory(DefaultConfig())(202201)))
		assert.True(t, date(2021, time.January, 4).Equal(NewDateFactory(ISOConfig())(202101)))
		assert.True(t, NewDateFactory(DefaultConfig())(UnknownCode).IsZero())
	})

	t.Run("Zone aware", func(t *testing.T) {
		cfg := ISOConfig().InZone(timezone.MustLoad("Europe/Berlin"))
		got := NewDateFactory(cfg)(MakeCode(2024, 1))
		assert.True(t, time.Date(2023, time.December, 31, 23, 0, 0, 0, time.UTC).Equal(got), "got %s", got.UTC())
	})

	t.Run("Inverse of the code factory", func(t *testing.T) {
		for _, cfg := range []Config{DefaultConfig(), ISOConfig(), ISOConfig().InZone(timezone.MustLoad("America/Chicago"))} {
			codeFor := NewCodeFactory(cfg)
			dateFor := NewDateFactory(cfg)
			for m := date(2019, time.December, 1); m.Year() < 2026; m = m.AddDate(0, 1, 0) {
				for _, c := range CodesForCalendarMonth(m, cfg) {
					require.Equal(t, c, codeFor(dateFor(c)), "code %s", c)
				}
			}
		}
	})
}

func TestConfig_FirstWeekContainsDateDefault(t *testing.T) {
	cfg := Config{WeekStartsOn: time.Sunday}
	assert.Equal(t, CodeFor(date(2022, time.January, 2), DefaultConfig()), CodeFor(date(2022, time.January, 2), cfg))
}
