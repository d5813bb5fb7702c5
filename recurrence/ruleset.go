package recurrence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// Line names understood by ParseRuleSet.
const (
	lineDTStart = "DTSTART"
	lineRRule   = "RRULE"
	lineExRule  = "EXRULE"
	lineRDate   = "RDATE"
	lineExDate  = "EXDATE"
)

const (
	layoutUTC      = "20060102T150405Z"
	layoutFloating = "20060102T150405"
	layoutDate     = "20060102"
)

// DateForm is the textual form a date value was written in.
type DateForm int

const (
	// FormUTC values end in "Z" and denote an absolute instant.
	FormUTC DateForm = iota
	// FormFloating values carry no zone and denote a wall clock.
	FormFloating
	// FormZoned values carry a TZID parameter.
	FormZoned
	// FormDate values are VALUE=DATE days, a floating midnight.
	FormDate
)

// DateValue is a parsed DTSTART/RDATE/EXDATE/UNTIL value. Floating and date
// values keep their wall clock in the UTC fields of Time.
type DateValue struct {
	Time time.Time
	Form DateForm
	TZID string
}

// IsAbsolute reports whether the value denotes a fixed instant.
func (v DateValue) IsAbsolute() bool {
	return v.Form == FormUTC || v.Form == FormZoned
}

// Rule is one RRULE or EXRULE line.
type Rule struct {
	Text    string
	Options rrule.ROption
	// UntilForm is the form UNTIL was written in; meaningful only when
	// Options.Until is set.
	UntilForm DateForm
}

// IsForever reports whether the rule has neither COUNT nor UNTIL.
func (r Rule) IsForever() bool {
	return r.Options.Count == 0 && r.Options.Until.IsZero()
}

// RuleSet is a parsed set of recurrence lines.
type RuleSet struct {
	DTStart *DateValue
	RRules  []Rule
	ExRules []Rule
	RDates  []DateValue
	ExDates []DateValue
}

// IsForever reports whether any RRULE is unbounded.
func (s RuleSet) IsForever() bool {
	for _, r := range s.RRules {
		if r.IsForever() {
			return true
		}
	}
	return false
}

// Lines renders the set back to its line form.
func (s RuleSet) Lines() []string {
	var out []string
	if s.DTStart != nil {
		out = append(out, formatDateLine(lineDTStart, []DateValue{*s.DTStart}))
	}
	for _, r := range s.RRules {
		out = append(out, lineRRule+":"+r.Text)
	}
	for _, r := range s.ExRules {
		out = append(out, lineExRule+":"+r.Text)
	}
	if len(s.RDates) > 0 {
		out = append(out, formatDateLine(lineRDate, s.RDates))
	}
	if len(s.ExDates) > 0 {
		out = append(out, formatDateLine(lineExDate, s.ExDates))
	}
	return out
}

func (s RuleSet) String() string {
	return strings.Join(s.Lines(), "\n")
}

// ParseRuleSet parses newline separated recurrence text. A line without a
// property name is read as an RRULE value.
func ParseRuleSet(text string) (RuleSet, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return ParseRuleLines(strings.Split(text, "\n"))
}

// ParseRuleLines parses recurrence lines. At least one RRULE is required.
func ParseRuleLines(lines []string) (RuleSet, error) {
	var set RuleSet
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		name, params, value, err := splitLine(line)
		if err != nil {
			return RuleSet{}, err
		}

		switch name {
		case lineDTStart:
			if set.DTStart != nil {
				return RuleSet{}, parseError("duplicate DTSTART", nil)
			}
			values, err := parseDateValues(value, params)
			if err != nil {
				return RuleSet{}, parseError("invalid DTSTART "+value, err)
			}
			if len(values) != 1 {
				return RuleSet{}, parseError("DTSTART must hold exactly one value", nil)
			}
			set.DTStart = &values[0]
		case lineRRule, lineExRule:
			rule, err := parseRule(value)
			if err != nil {
				return RuleSet{}, err
			}
			if name == lineRRule {
				set.RRules = append(set.RRules, rule)
			} else {
				set.ExRules = append(set.ExRules, rule)
			}
		case lineRDate, lineExDate:
			values, err := parseDateValues(value, params)
			if err != nil {
				return RuleSet{}, parseError(fmt.Sprintf("invalid %s %s", name, value), err)
			}
			if name == lineRDate {
				set.RDates = append(set.RDates, values...)
			} else {
				set.ExDates = append(set.ExDates, values...)
			}
		default:
			return RuleSet{}, parseError("unsupported property "+name, nil)
		}
	}

	if len(set.RRules) == 0 {
		return RuleSet{}, parseError("rule set has no RRULE line", nil)
	}
	return set, nil
}

// splitLine splits "NAME;PARAM=X:VALUE". Bare rule values such as
// "FREQ=DAILY" are returned as RRULE lines.
func splitLine(line string) (name string, params map[string]string, value string, err error) {
	colon := strings.Index(line, ":")
	if colon < 0 {
		if strings.Contains(strings.ToUpper(line), "FREQ=") {
			return lineRRule, nil, line, nil
		}
		return "", nil, "", parseError("line has no property name: "+line, nil)
	}

	head, value := line[:colon], line[colon+1:]
	parts := strings.Split(head, ";")
	name = strings.ToUpper(strings.TrimSpace(parts[0]))
	if len(parts) > 1 {
		params = make(map[string]string, len(parts)-1)
		for _, p := range parts[1:] {
			k, v, ok := strings.Cut(p, "=")
			if !ok {
				return "", nil, "", parseError("malformed parameter "+p, nil)
			}
			params[strings.ToUpper(strings.TrimSpace(k))] = strings.Trim(strings.TrimSpace(v), `"`)
		}
	}
	return name, params, strings.TrimSpace(value), nil
}

func parseRule(value string) (Rule, error) {
	if value == "" {
		return Rule{}, parseError("empty rule", nil)
	}
	// Rule part names and values are case-insensitive.
	value = strings.ToUpper(value)

	untilForm := FormUTC
	hasFreq := false
	for _, part := range strings.Split(value, ";") {
		k, v, _ := strings.Cut(part, "=")
		switch strings.ToUpper(strings.TrimSpace(k)) {
		case "FREQ":
			hasFreq = true
		case "UNTIL":
			untilForm = dateForm(strings.TrimSpace(v), nil)
		case "INTERVAL":
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err != nil || n < 1 {
				return Rule{}, parseError("INTERVAL must be a positive integer: "+v, err)
			}
		case "DTSTART":
			return Rule{}, parseError("DTSTART belongs on its own line", nil)
		}
	}
	if !hasFreq {
		return Rule{}, parseError("rule has no FREQ: "+value, nil)
	}

	opt, err := rrule.StrToROption(value)
	if err != nil {
		return Rule{}, parseError("invalid rule "+value, err)
	}
	if opt.Count < 0 {
		return Rule{}, parseError("COUNT must not be negative", nil)
	}
	return Rule{Text: value, Options: *opt, UntilForm: untilForm}, nil
}

func dateForm(v string, params map[string]string) DateForm {
	switch {
	case strings.EqualFold(params["VALUE"], "DATE") || len(v) == len(layoutDate):
		return FormDate
	case strings.HasSuffix(v, "Z"):
		return FormUTC
	case params["TZID"] != "":
		return FormZoned
	default:
		return FormFloating
	}
}

func parseDateValues(value string, params map[string]string) ([]DateValue, error) {
	var out []DateValue
	for _, raw := range strings.Split(value, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		v, err := parseDateValue(raw, params)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, errors.New("no date values")
	}
	return out, nil
}

func parseDateValue(raw string, params map[string]string) (DateValue, error) {
	form := dateForm(raw, params)
	switch form {
	case FormDate:
		t, err := time.Parse(layoutDate, raw)
		return DateValue{Time: t, Form: form}, err
	case FormUTC:
		t, err := time.Parse(layoutUTC, raw)
		return DateValue{Time: t, Form: form}, err
	case FormZoned:
		tzid := params["TZID"]
		loc, err := time.LoadLocation(tzid)
		if err != nil {
			return DateValue{}, fmt.Errorf("unknown TZID %q: %w", tzid, err)
		}
		t, err := time.ParseInLocation(layoutFloating, raw, loc)
		return DateValue{Time: t, Form: form, TZID: tzid}, err
	default:
		t, err := time.Parse(layoutFloating, raw)
		return DateValue{Time: t, Form: form}, err
	}
}

func formatDateLine(name string, values []DateValue) string {
	first := values[0]
	head := name
	switch first.Form {
	case FormZoned:
		head += ";TZID=" + first.TZID
	case FormDate:
		head += ";VALUE=DATE"
	}
	parts := make([]string, len(values))
	for i, v := range values {
		switch v.Form {
		case FormUTC:
			parts[i] = v.Time.UTC().Format(layoutUTC)
		case FormDate:
			parts[i] = v.Time.Format(layoutDate)
		default:
			parts[i] = v.Time.Format(layoutFloating)
		}
	}
	return head + ":" + strings.Join(parts, ",")
}
