package recurrence

import (
	"fmt"
)

// ErrorType classifies recurrence failures.
type ErrorType string

const (
	ErrorTypeRuleParse          ErrorType = "rule_parse"
	ErrorTypeConfiguration      ErrorType = "configuration"
	ErrorTypeUnboundedExpansion ErrorType = "unbounded_expansion"
)

// Error is returned by every fallible operation in this package. Use
// errors.Is against the sentinels below to classify it.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message == "" && e.Err == nil:
		return string(e.Type)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same type, so errors.Is(err, ErrRuleParse)
// holds for every parse failure regardless of its message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

var (
	// ErrRuleParse reports malformed or missing RRULE text.
	ErrRuleParse = &Error{Type: ErrorTypeRuleParse}
	// ErrConfiguration reports a recurrence without a resolvable start.
	ErrConfiguration = &Error{Type: ErrorTypeConfiguration}
	// ErrUnboundedExpansion reports an expansion of a forever rule without a window.
	ErrUnboundedExpansion = &Error{Type: ErrorTypeUnboundedExpansion}
)

func parseError(msg string, err error) error {
	return &Error{Type: ErrorTypeRuleParse, Message: msg, Err: err}
}

func configError(msg string, err error) error {
	return &Error{Type: ErrorTypeConfiguration, Message: msg, Err: err}
}
