package event

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes event-processing failures.
type ErrorCode string

const (
	// ErrCodeUnknownPath indicates a segment matches no collection or action.
	ErrCodeUnknownPath ErrorCode = "UNKNOWN_PATH"

	// ErrCodeUnknownID indicates an identifier segment does not resolve.
	ErrCodeUnknownID ErrorCode = "UNKNOWN_ID"

	// ErrCodeDuplicateID indicates an add or rename collides with an existing id.
	ErrCodeDuplicateID ErrorCode = "DUPLICATE_ID"

	// ErrCodeMalformedPayload indicates the payload does not decode into the expected record.
	ErrCodeMalformedPayload ErrorCode = "MALFORMED_PAYLOAD"

	// ErrCodeInvariantViolation indicates the mutation would break referential integrity.
	ErrCodeInvariantViolation ErrorCode = "INVARIANT_VIOLATION"

	// ErrCodePayloadPresence indicates a payload was supplied where none is expected, or vice versa.
	ErrCodePayloadPresence ErrorCode = "PAYLOAD_PRESENCE_MISMATCH"
)

// Sentinels for errors.Is. An *Error matches the sentinel with the same code.
var (
	ErrUnknownPath        = &Error{Code: ErrCodeUnknownPath}
	ErrUnknownID          = &Error{Code: ErrCodeUnknownID}
	ErrDuplicateID        = &Error{Code: ErrCodeDuplicateID}
	ErrMalformedPayload   = &Error{Code: ErrCodeMalformedPayload}
	ErrInvariantViolation = &Error{Code: ErrCodeInvariantViolation}
	ErrPayloadPresence    = &Error{Code: ErrCodePayloadPresence}
)

// Error is a failure to interpret or apply an event.
//
// Errors are produced before any mutation: a failed event always leaves the
// target collection untouched.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Path is the full path of the event being processed, when known.
	Path []string

	// Err is an optional underlying cause (e.g. a decode error).
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Path) > 0 {
		fmt.Fprintf(&b, " (path=%s)", strings.Join(e.Path, "/"))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same Code, so errors.Is(err, ErrUnknownID)
// works regardless of message or path.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// CodeOf extracts the error code, or "" if err is not an *Error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// WithPath returns err annotated with the event path if it is an *Error
// that does not carry one yet. Other errors are returned unchanged.
func WithPath(err error, path []string) error {
	var ee *Error
	if !errors.As(err, &ee) || len(ee.Path) > 0 {
		return err
	}
	cp := *ee
	cp.Path = append([]string(nil), path...)
	return &cp
}

// UnknownPath creates an UNKNOWN_PATH error for the given component.
func UnknownPath(component string, rest []string) *Error {
	return &Error{
		Code:    ErrCodeUnknownPath,
		Message: fmt.Sprintf("`%s` cannot process path %q", component, strings.Join(rest, "/")),
	}
}

// UnknownID creates an UNKNOWN_ID error.
func UnknownID(category, id string) *Error {
	return &Error{
		Code:    ErrCodeUnknownID,
		Message: fmt.Sprintf("%s `%s` does not exist", category, id),
	}
}

// DuplicateID creates a DUPLICATE_ID error.
func DuplicateID(category, id string) *Error {
	return &Error{
		Code:    ErrCodeDuplicateID,
		Message: fmt.Sprintf("%s `%s` already exists", category, id),
	}
}

// MalformedPayload creates a MALFORMED_PAYLOAD error wrapping cause.
func MalformedPayload(component string, cause error) *Error {
	return &Error{
		Code:    ErrCodeMalformedPayload,
		Message: fmt.Sprintf("`%s` received an invalid payload", component),
		Err:     cause,
	}
}

// InvariantViolation creates an INVARIANT_VIOLATION error.
func InvariantViolation(format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeInvariantViolation,
		Message: fmt.Sprintf(format, args...),
	}
}

// PayloadPresence creates a PAYLOAD_PRESENCE_MISMATCH error.
func PayloadPresence(component string, expected bool) *Error {
	msg := fmt.Sprintf("`%s` expects no payload", component)
	if expected {
		msg = fmt.Sprintf("`%s` expects a payload", component)
	}
	return &Error{Code: ErrCodePayloadPresence, Message: msg}
}
