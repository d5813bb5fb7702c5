package main

import (
	"fmt"
	"time"

	"github.com/samber/mo"
	"github.com/urfave/cli/v2"

	"github.com/cyp0633/caldate/internal/icsio"
	"github.com/cyp0633/caldate/recurrence"
	"github.com/cyp0633/caldate/week"
)

func expandCommand() *cli.Command {
	return &cli.Command{
		Name:  "expand",
		Usage: "List the occurrences of a recurrence.",
		Flags: append(ruleFlags(),
			&cli.StringFlag{Name: "from", Usage: "Window start. Requires --to."},
			&cli.StringFlag{Name: "to", Usage: "Window end, inclusive."},
			&cli.StringFlag{Name: "unit", Usage: "Calendar window instead of --from/--to: day, week or month."},
			&cli.StringFlag{Name: "date", Usage: "A date inside the --unit window. Defaults to now."},
			&cli.IntFlag{Name: "distance", Value: 1, Usage: "Number of --unit windows."},
			&cli.StringFlag{Name: "format", Value: "text", Usage: "Output format: text or ics."},
			&cli.StringFlag{Name: "summary", Usage: "SUMMARY of exported events (--format ics)."},
			&cli.BoolFlag{Name: "by-week", Usage: "Group text output by calendar week."},
		),
		Action: func(c *cli.Context) error {
			e, err := loadEnv(c)
			if err != nil {
				return err
			}
			defer e.close()
			inst, err := e.instance(c)
			if err != nil {
				return err
			}

			opts, err := e.expandOptions(c)
			if err != nil {
				return err
			}
			exp, err := inst.Expand(opts)
			if err != nil {
				return err
			}
			e.logger.Debug("expanded recurrence", "events", len(exp.Events))

			switch c.String("format") {
			case "ics":
				return icsio.WriteExpansion(e.out, exp, icsio.WriteOptions{
					ProductID: e.cfg.ProductID,
					Summary:   c.String("summary"),
				})
			case "text":
			default:
				return fmt.Errorf("unknown format %q", c.String("format"))
			}

			if !c.Bool("by-week") {
				for _, ev := range exp.Events {
					e.printEvent(ev)
				}
				return nil
			}

			wc, err := e.weekConfig()
			if err != nil {
				return err
			}
			group := week.NewGroupFactory(week.GroupConfig[recurrence.CalendarEvent]{
				Config: wc,
				DateReader: func(ev recurrence.CalendarEvent) mo.Option[time.Time] {
					return mo.Some(ev.StartsAt)
				},
			})
			for _, g := range group(exp.Events) {
				fmt.Fprintf(e.out, "%d %s\n", int(g.Week), g.Week)
				for _, ev := range g.Items {
					fmt.Fprint(e.out, "  ")
					e.printEvent(ev)
				}
			}
			return nil
		},
	}
}

func (e *env) expandOptions(c *cli.Context) (recurrence.ExpandOptions, error) {
	var opts recurrence.ExpandOptions
	switch {
	case c.IsSet("unit"):
		date, err := e.timeFlag(c, "date", time.Now())
		if err != nil {
			return opts, err
		}
		wc, err := e.weekConfig()
		if err != nil {
			return opts, err
		}
		opts.RangeParams = &recurrence.RangeParams{
			Type:         recurrence.RangeType(c.String("unit")),
			Date:         date,
			Distance:     c.Int("distance"),
			WeekStartsOn: wc.WeekStartsOn,
		}
	case c.IsSet("from") || c.IsSet("to"):
		if !c.IsSet("from") || !c.IsSet("to") {
			return opts, fmt.Errorf("--from and --to must be given together")
		}
		from, err := e.timeFlag(c, "from", time.Time{})
		if err != nil {
			return opts, err
		}
		to, err := e.timeFlag(c, "to", time.Time{})
		if err != nil {
			return opts, err
		}
		opts.Range = &recurrence.Range{Start: from, End: to}
	}
	return opts, nil
}

func (e *env) printEvent(ev recurrence.CalendarEvent) {
	fmt.Fprintf(e.out, "%s %s %s\n", e.format(ev.StartsAt), e.format(ev.End()), ev.Kind)
}

func nextCommand() *cli.Command {
	return &cli.Command{
		Name:  "next",
		Usage: "Print the first occurrence at or after --from.",
		Flags: append(ruleFlags(),
			&cli.StringFlag{Name: "from", Usage: "Search start. Defaults to now."},
		),
		Action: func(c *cli.Context) error {
			e, err := loadEnv(c)
			if err != nil {
				return err
			}
			defer e.close()
			inst, err := e.instance(c)
			if err != nil {
				return err
			}
			from, err := e.timeFlag(c, "from", time.Now())
			if err != nil {
				return err
			}

			next, ok := inst.NextOccurrenceFrom(from).Get()
			if !ok {
				fmt.Fprintln(e.out, "none")
				return nil
			}
			e.printEvent(next)
			return nil
		},
	}
}

func rangeCommand() *cli.Command {
	return &cli.Command{
		Name:  "range",
		Usage: "Print the span of a recurrence.",
		Flags: ruleFlags(),
		Action: func(c *cli.Context) error {
			e, err := loadEnv(c)
			if err != nil {
				return err
			}
			defer e.close()
			inst, err := e.instance(c)
			if err != nil {
				return err
			}

			dr := inst.DateRange()
			fmt.Fprintf(e.out, "start: %s\n", e.format(dr.Start))
			if dr.Forever {
				fmt.Fprintln(e.out, "end: forever")
				return nil
			}
			fmt.Fprintf(e.out, "end: %s\n", e.format(dr.End))
			if final, ok := dr.FinalOccurrenceEndsAt.Get(); ok {
				fmt.Fprintf(e.out, "final occurrence ends: %s\n", e.format(final))
			}
			return nil
		},
	}
}

func occursCommand() *cli.Command {
	return &cli.Command{
		Name:  "occurs",
		Usage: "Report whether an occurrence starts within [--from, --to].",
		Flags: append(ruleFlags(),
			&cli.StringFlag{Name: "from", Required: true, Usage: "Window start."},
			&cli.StringFlag{Name: "to", Required: true, Usage: "Window end, inclusive."},
		),
		Action: func(c *cli.Context) error {
			e, err := loadEnv(c)
			if err != nil {
				return err
			}
			defer e.close()
			inst, err := e.instance(c)
			if err != nil {
				return err
			}
			from, err := e.timeFlag(c, "from", time.Time{})
			if err != nil {
				return err
			}
			to, err := e.timeFlag(c, "to", time.Time{})
			if err != nil {
				return err
			}

			if inst.HasOccurrenceInRange(recurrence.Range{Start: from, End: to}) {
				fmt.Fprintln(e.out, "yes")
			} else {
				fmt.Fprintln(e.out, "no")
			}
			return nil
		},
	}
}

func weekCommand() *cli.Command {
	return &cli.Command{
		Name:  "week",
		Usage: "Print the week code of a date and the bounds of its week.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "date", Usage: "Date to look up. Defaults to now."},
		},
		Action: func(c *cli.Context) error {
			e, err := loadEnv(c)
			if err != nil {
				return err
			}
			defer e.close()
			wc, err := e.weekConfig()
			if err != nil {
				return err
			}
			date, err := e.timeFlag(c, "date", time.Now())
			if err != nil {
				return err
			}

			code := week.CodeFor(date, wc)
			fmt.Fprintf(e.out, "%d %s %s %s\n", int(code), code,
				e.format(week.WeekStart(date, wc)), e.format(week.WeekEnd(date, wc)))
			return nil
		},
	}
}

func monthCommand() *cli.Command {
	return &cli.Command{
		Name:  "month",
		Usage: "Print the week codes overlapping the month of a date.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "date", Usage: "A date in the month. Defaults to now."},
		},
		Action: func(c *cli.Context) error {
			e, err := loadEnv(c)
			if err != nil {
				return err
			}
			defer e.close()
			wc, err := e.weekConfig()
			if err != nil {
				return err
			}
			date, err := e.timeFlag(c, "date", time.Now())
			if err != nil {
				return err
			}

			startOf := week.NewDateFactory(wc)
			for _, code := range week.CodesForCalendarMonth(date, wc) {
				fmt.Fprintf(e.out, "%d %s\n", int(code), e.format(startOf(code)))
			}
			return nil
		},
	}
}
