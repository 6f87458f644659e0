package timecard

import (
	"errors"
	"fmt"
)

// Timecard domain errors
var (
	// Interval errors
	ErrInvalidInterval = errors.New("invalid time interval")

	// Clock errors
	ErrAlreadyClockedIn  = errors.New("shift has already been clocked in")
	ErrNotClockedIn      = errors.New("shift has not been clocked in yet")
	ErrAlreadyClockedOut = errors.New("shift has already been clocked out")

	// Break errors
	ErrBreakAlreadyOpen  = errors.New("a break is already in progress")
	ErrNoOpenBreak       = errors.New("no break is in progress")
	ErrBreakStillOpen    = errors.New("close the current break before clocking out")
	ErrBreakLimitReached = errors.New("maximum number of breaks reached")

	// General errors
	ErrInvalidTransition = errors.New("shift status does not allow this action")
	ErrShiftNotFound     = errors.New("shift record not found")
	ErrShiftInProgress   = errors.New("shift is still in progress")
	ErrInvalidStatus     = errors.New("invalid shift status")
)

// IntervalError describes a rejected interval. It matches ErrInvalidInterval
// and, when set, the more specific Reason.
type IntervalError struct {
	Op     string
	Reason error
	Detail string
}

func (e *IntervalError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, ErrInvalidInterval.Error())
	if e.Reason != nil {
		msg += ": " + e.Reason.Error()
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *IntervalError) Unwrap() []error {
	if e.Reason == nil {
		return []error{ErrInvalidInterval}
	}
	return []error{ErrInvalidInterval, e.Reason}
}

func intervalError(op string, reason error, detail string) error {
	return &IntervalError{Op: op, Reason: reason, Detail: detail}
}
