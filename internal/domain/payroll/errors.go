package payroll

import (
	"errors"
	"fmt"
)

var (
	ErrReportNotFound      = errors.New("monthly report not found")
	ErrInvalidPeriod       = errors.New("invalid payroll period")
	ErrEmployeeMismatch    = errors.New("shift belongs to a different employee")
	ErrShiftOutsidePeriod  = errors.New("shift is outside the report period")
	ErrNothingToApprove    = errors.New("no pending shifts to approve")
	ErrPartialBatchFailure = errors.New("approval failed, nothing was approved")
	ErrShiftNotApproved    = errors.New("shift is not approved")

	// ErrReportVersionConflict means a newer version was stored concurrently.
	ErrReportVersionConflict = errors.New("monthly report was updated concurrently")
)

// PartialBatchError is returned when only part of an approval batch persisted.
// The report is not rewritten; Failed lists the shifts the caller should retry.
type PartialBatchError struct {
	Persisted []string
	Failed    []string
	Cause     error
}

func (e *PartialBatchError) Error() string {
	msg := fmt.Sprintf("%s: %d of %d shift updates did not persist",
		ErrPartialBatchFailure.Error(), len(e.Failed), len(e.Failed)+len(e.Persisted))
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *PartialBatchError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrPartialBatchFailure}
	}
	return []error{ErrPartialBatchFailure, e.Cause}
}
