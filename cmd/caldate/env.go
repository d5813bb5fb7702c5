package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/cyp0633/caldate/internal/config"
	"github.com/cyp0633/caldate/internal/icsio"
	"github.com/cyp0633/caldate/recurrence"
	"github.com/cyp0633/caldate/week"
)

// env is the state shared by every command: resolved configuration, logger
// and output.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	loc    *time.Location
	out    io.Writer
	cache  *recurrence.InstanceCache
}

func loadEnv(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	if c.IsSet("tz") {
		cfg.Timezone = c.String("tz")
	}
	if c.IsSet("week-start") {
		cfg.WeekStart = c.String("week-start")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", cfg.Timezone, err)
	}

	e := &env{
		cfg:    cfg,
		logger: setupLogger(cfg.LogLevel),
		loc:    loc,
		out:    c.App.Writer,
	}
	e.cache = recurrence.NewInstanceCache(recurrence.CacheConfig{
		TTL:        cfg.Cache.TTL,
		MaxEntries: cfg.Cache.MaxEntries,
		Logger:     e.logger,
	})
	e.logger.Debug("configuration loaded",
		"timezone", cfg.Timezone,
		"week_start", cfg.WeekStart,
		"max_iterations", cfg.MaxIterations)
	return e, nil
}

var timeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseTime accepts RFC 3339 instants, or local wall clock times read in
// the configured timezone.
func (e *env) parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, e.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q: use RFC 3339 or YYYY-MM-DD[THH:MM[:SS]]", s)
}

// timeFlag parses the named flag, or returns fallback when it is not set.
func (e *env) timeFlag(c *cli.Context, name string, fallback time.Time) (time.Time, error) {
	if !c.IsSet(name) {
		return fallback, nil
	}
	t, err := e.parseTime(c.String(name))
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	return t, nil
}

func (e *env) close() {
	e.cache.Close()
}

func (e *env) format(t time.Time) string {
	return t.In(e.loc).Format(time.RFC3339)
}

func (e *env) weekConfig() (week.Config, error) {
	return e.cfg.WeekConfig()
}

func ruleFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{Name: "rule", Aliases: []string{"r"}, Usage: "Rule line (RRULE:, EXRULE:, RDATE:, EXDATE:, DTSTART:). Repeatable."},
		&cli.StringFlag{Name: "ics", Usage: "Read the recurrence from an iCalendar file instead of --rule."},
		&cli.StringFlag{Name: "uid", Usage: "UID of the event to use from --ics. Defaults to the only recurring event."},
		&cli.StringFlag{Name: "start", Usage: "Start of the reference event."},
		&cli.IntFlag{Name: "duration", Usage: "Reference event duration in minutes."},
		&cli.BoolFlag{Name: "days", Usage: "The reference event spans whole days."},
		&cli.StringSliceFlag{Name: "exclude", Usage: "Instant that never produces an occurrence. Repeatable."},
	}
}

// instance builds the recurrence described by the rule flags.
func (e *env) instance(c *cli.Context) (*recurrence.Instance, error) {
	opts := recurrence.InstanceOptions{
		Timezone:      e.cfg.Timezone,
		MaxIterations: e.cfg.MaxIterations,
		Logger:        e.logger,
	}
	for _, s := range c.StringSlice("exclude") {
		t, err := e.parseTime(s)
		if err != nil {
			return nil, fmt.Errorf("--exclude: %w", err)
		}
		opts.Exclude = append(opts.Exclude, t)
	}

	if path := c.String("ics"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		events, err := icsio.ReadEvents(f)
		if err != nil {
			return nil, err
		}
		ev, err := icsio.FindEvent(events, c.String("uid"))
		if err != nil {
			return nil, err
		}
		return recurrence.InstanceFromComponent(ev.Component, opts)
	}

	rules := c.StringSlice("rule")
	if len(rules) == 0 {
		return nil, fmt.Errorf("either --rule or --ics is required")
	}

	ref := recurrence.CalendarEvent{DurationMinutes: c.Int("duration")}
	if c.Bool("days") {
		ref.Kind = recurrence.KindDays
		if !c.IsSet("duration") {
			ref.DurationMinutes = 24 * 60
		}
	}
	start, err := e.timeFlag(c, "start", time.Time{})
	if err != nil {
		return nil, err
	}
	ref.StartsAt = start
	opts.ReferenceEvent = &ref

	return e.cache.GetOrParse(strings.Join(rules, "\n"), opts)
}
