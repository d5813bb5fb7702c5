package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"
)

// propExceptionRule is not exported by go-ical.
const propExceptionRule = "EXRULE"

// ComponentRecurrence is the recurrence data carried by a VEVENT or VTODO.
type ComponentRecurrence struct {
	RuleSet RuleSet
	// Reference holds the component's duration and kind. Its start is left
	// zero so the rule's DTSTART anchors the instance.
	Reference CalendarEvent
	// Timezone is DTSTART's TZID, if any.
	Timezone string
}

// RecurrenceFromComponent extracts RRULE, EXRULE, RDATE, EXDATE and DTSTART
// from an iCalendar component.
func RecurrenceFromComponent(comp *ical.Component) (ComponentRecurrence, error) {
	var out ComponentRecurrence
	if comp == nil {
		return out, parseError("nil component", nil)
	}

	var lines []string
	dtstart := comp.Props.Get(ical.PropDateTimeStart)
	if dtstart != nil && dtstart.Value != "" {
		lines = append(lines, propLine(dtstart))
		out.Timezone = dtstart.Params.Get(ical.ParamTimezoneID)
	}
	for _, name := range []string{ical.PropRecurrenceRule, propExceptionRule, ical.PropRecurrenceDates, ical.PropExceptionDates} {
		for _, p := range comp.Props.Values(name) {
			if p.Value == "" {
				continue
			}
			lines = append(lines, propLine(&p))
		}
	}

	set, err := ParseRuleLines(lines)
	if err != nil {
		return out, err
	}
	out.RuleSet = set

	ref, err := referenceFromComponent(comp, dtstart)
	if err != nil {
		return out, err
	}
	out.Reference = ref
	return out, nil
}

// InstanceFromComponent builds an Instance from a component. The reference
// event in opts, if any, is replaced by the component's own.
func InstanceFromComponent(comp *ical.Component, opts InstanceOptions) (*Instance, error) {
	rec, err := RecurrenceFromComponent(comp)
	if err != nil {
		return nil, err
	}
	opts.ReferenceEvent = &rec.Reference
	if opts.Timezone == "" {
		opts.Timezone = rec.Timezone
	}
	return NewInstance(rec.RuleSet, opts)
}

func propLine(p *ical.Prop) string {
	var b strings.Builder
	b.WriteString(p.Name)
	for _, key := range []string{ical.ParamTimezoneID, ical.ParamValue} {
		if v := p.Params.Get(key); v != "" {
			fmt.Fprintf(&b, ";%s=%s", key, v)
		}
	}
	b.WriteString(":")
	b.WriteString(p.Value)
	return b.String()
}

// referenceFromComponent derives duration and kind from DTEND, DURATION or
// the all-day default of one day.
func referenceFromComponent(comp *ical.Component, dtstart *ical.Prop) (CalendarEvent, error) {
	ref := CalendarEvent{Kind: KindTime}
	if dtstart == nil {
		return ref, nil
	}
	if strings.EqualFold(dtstart.Params.Get(ical.ParamValue), "DATE") || !strings.Contains(dtstart.Value, "T") {
		ref.Kind = KindDays
	}

	start, err := comp.Props.DateTime(ical.PropDateTimeStart, time.UTC)
	if err != nil {
		return ref, parseError("invalid DTSTART", err)
	}

	var length time.Duration
	switch {
	case comp.Props.Get(ical.PropDateTimeEnd) != nil:
		end, err := comp.Props.DateTime(ical.PropDateTimeEnd, time.UTC)
		if err != nil {
			return ref, parseError("invalid DTEND", err)
		}
		length = end.Sub(start)
		if ref.Kind == KindDays && length <= 0 {
			length = 24 * time.Hour
		}
	case comp.Props.Get(ical.PropDuration) != nil:
		length, err = comp.Props.Get(ical.PropDuration).Duration()
		if err != nil {
			return ref, parseError("invalid DURATION", err)
		}
	case ref.Kind == KindDays:
		length = 24 * time.Hour
	}

	if length < 0 {
		return ref, configError("component ends before it starts", nil)
	}
	ref.DurationMinutes = int(length / time.Minute)
	return ref, nil
}
