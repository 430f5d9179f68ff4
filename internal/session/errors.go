package session

import (
	"errors"
	"fmt"
)

// Error is a failure detected by the controller itself, as opposed to an
// *event.Error raised by the sketch. When the failure was caused by an
// event error, Err holds it and event.CodeOf still reports its code.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Event is the rendered event being processed, when known.
	Event string

	// Err is the underlying cause.
	Err error
}

// ErrorCode categorizes controller errors.
type ErrorCode string

const (
	// ErrCodeNothingToUndo indicates Undo was called with an empty undo stack.
	ErrCodeNothingToUndo ErrorCode = "NOTHING_TO_UNDO"

	// ErrCodeNothingToRedo indicates Redo was called with an empty redo stack.
	ErrCodeNothingToRedo ErrorCode = "NOTHING_TO_REDO"

	// ErrCodeCascadeRejected indicates a step of a Restart expansion failed
	// on the dry run. The live sketch was not touched.
	ErrCodeCascadeRejected ErrorCode = "CASCADE_REJECTED"

	// ErrCodeCascadeLimit indicates a Restart expansion exceeded the step quota.
	ErrCodeCascadeLimit ErrorCode = "CASCADE_LIMIT"

	// ErrCodeJournal indicates an outcome could not be journaled.
	ErrCodeJournal ErrorCode = "JOURNAL_FAILED"

	// ErrCodeReplayDiverged indicates a journaled event produced a
	// different outcome kind on replay.
	ErrCodeReplayDiverged ErrorCode = "REPLAY_DIVERGED"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Event != "" {
		msg = fmt.Sprintf("%s (event=%s)", msg, e.Event)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func hasCode(err error, codes ...ErrorCode) bool {
	var se *Error
	if !errors.As(err, &se) {
		return false
	}
	for _, c := range codes {
		if se.Code == c {
			return true
		}
	}
	return false
}

// IsHistoryEmpty reports whether err is a NOTHING_TO_UNDO or NOTHING_TO_REDO error.
func IsHistoryEmpty(err error) bool {
	return hasCode(err, ErrCodeNothingToUndo, ErrCodeNothingToRedo)
}

// IsCascadeError reports whether err came from expanding a Restart.
func IsCascadeError(err error) bool {
	return hasCode(err, ErrCodeCascadeRejected, ErrCodeCascadeLimit)
}

// IsReplayDivergence reports whether err is a REPLAY_DIVERGED error.
func IsReplayDivergence(err error) bool {
	return hasCode(err, ErrCodeReplayDiverged)
}

func newCascadeError(ev fmt.Stringer, cause error) *Error {
	return &Error{
		Code:    ErrCodeCascadeRejected,
		Message: "cascade cannot be applied",
		Event:   ev.String(),
		Err:     cause,
	}
}

func newJournalError(ev fmt.Stringer, seq int64, cause error) *Error {
	return &Error{
		Code:    ErrCodeJournal,
		Message: fmt.Sprintf("outcome at seq %d was applied but not journaled", seq),
		Event:   ev.String(),
		Err:     cause,
	}
}
