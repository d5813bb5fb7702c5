// Package icsio reads recurring events from iCalendar data and writes
// expansions back out as iCalendar.
package icsio

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"github.com/cyp0633/caldate/recurrence"
)

// DefaultProductID is used when WriteOptions.ProductID is empty.
const DefaultProductID = "-//Caldate//Go Calendar//EN"

// ReadEvents decodes one calendar and returns its VEVENTs.
func ReadEvents(r io.Reader) ([]ical.Event, error) {
	cal, err := ical.NewDecoder(r).Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode calendar: %w", err)
	}
	events := cal.Events()
	if len(events) == 0 {
		return nil, fmt.Errorf("no events found in calendar")
	}
	return events, nil
}

// RecurringEvents returns the events that carry an RRULE.
func RecurringEvents(events []ical.Event) []ical.Event {
	var out []ical.Event
	for _, ev := range events {
		if ev.Props.Get(ical.PropRecurrenceRule) != nil {
			out = append(out, ev)
		}
	}
	return out
}

// FindEvent returns the event with the given UID, or the only recurring
// event when uid is empty.
func FindEvent(events []ical.Event, uid string) (*ical.Event, error) {
	if uid == "" {
		recurring := RecurringEvents(events)
		switch len(recurring) {
		case 0:
			return nil, fmt.Errorf("no recurring events found in calendar")
		case 1:
			return &recurring[0], nil
		default:
			return nil, fmt.Errorf("multiple recurring events found in calendar, pick one by UID")
		}
	}
	for i := range events {
		if v, err := events[i].Props.Text(ical.PropUID); err == nil && v == uid {
			return &events[i], nil
		}
	}
	return nil, fmt.Errorf("event %q not found", uid)
}

// WriteOptions controls WriteExpansion.
type WriteOptions struct {
	ProductID string
	// Summary is copied onto every exported event.
	Summary string
	// Now is the DTSTAMP of every event. Zero means time.Now.
	Now time.Time
	// NewUID generates event UIDs. Defaults to random UUIDs.
	NewUID func() string
}

// WriteExpansion encodes every expanded occurrence as its own VEVENT.
func WriteExpansion(w io.Writer, exp recurrence.Expansion, opts WriteOptions) error {
	if opts.ProductID == "" {
		opts.ProductID = DefaultProductID
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.NewUID == nil {
		opts.NewUID = uuid.NewString
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, opts.ProductID)

	for _, ev := range exp.Events {
		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, opts.NewUID())
		event.Props.SetDateTime(ical.PropDateTimeStamp, opts.Now.UTC())
		if ev.Kind == recurrence.KindDays {
			event.Props.SetDate(ical.PropDateTimeStart, ev.StartsAt)
			event.Props.SetDate(ical.PropDateTimeEnd, ev.End())
		} else {
			event.Props.SetDateTime(ical.PropDateTimeStart, ev.StartsAt.UTC())
			event.Props.SetDateTime(ical.PropDateTimeEnd, ev.End().UTC())
		}
		if opts.Summary != "" {
			event.Props.SetText(ical.PropSummary, opts.Summary)
		}
		cal.Children = append(cal.Children, event.Component)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

// ExpansionToICS is WriteExpansion into a string.
func ExpansionToICS(exp recurrence.Expansion, opts WriteOptions) (string, error) {
	var buf bytes.Buffer
	if err := WriteExpansion(&buf, exp, opts); err != nil {
		return "", err
	}
	return buf.String(), nil
}
