package response

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cmlabs-hris/timecard-payroll/internal/domain/paypolicy"
	"github.com/cmlabs-hris/timecard-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/timecard-payroll/internal/domain/timecard"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/jwt"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/validator"
	holidaysvc "github.com/cmlabs-hris/timecard-payroll/internal/service/holiday"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	// Partial approval: tell the caller exactly which shifts to retry
	var partial *payroll.PartialBatchError
	if errors.As(err, &partial) {
		ConflictWithDetails(w, "PARTIAL_BATCH_FAILURE", payroll.ErrPartialBatchFailure.Error(), map[string]string{
			"persisted": strings.Join(partial.Persisted, ","),
			"failed":    strings.Join(partial.Failed, ","),
		})
		return
	}

	var intervalErr *timecard.IntervalError
	if errors.As(err, &intervalErr) {
		UnprocessableEntity(w, "INVALID_INTERVAL", intervalErr.Error(), nil)
		return
	}

	switch {
	// Auth errors
	case errors.Is(err, jwt.ErrMissingClaims), errors.Is(err, jwt.ErrInvalidToken):
		Unauthorized(w, "Invalid or missing token")
	case errors.Is(err, jwt.ErrManagerRequired):
		Forbidden(w, "Manager access required")

	// Policy errors
	case errors.Is(err, paypolicy.ErrPolicyMissing):
		UnprocessableEntity(w, "POLICY_MISSING", err.Error(), nil)
	case errors.Is(err, paypolicy.ErrOverrideNotFound):
		NotFound(w, "Pay override not found")
	case errors.Is(err, holidaysvc.ErrRuleNotFound):
		NotFound(w, "Holiday rule not found")

	// Timecard errors
	case errors.Is(err, timecard.ErrShiftNotFound):
		NotFound(w, "Shift not found")
	case errors.Is(err, timecard.ErrAlreadyClockedIn),
		errors.Is(err, timecard.ErrAlreadyClockedOut),
		errors.Is(err, timecard.ErrBreakAlreadyOpen),
		errors.Is(err, timecard.ErrInvalidTransition):
		Conflict(w, err.Error())
	case errors.Is(err, timecard.ErrNotClockedIn),
		errors.Is(err, timecard.ErrNoOpenBreak),
		errors.Is(err, timecard.ErrBreakStillOpen),
		errors.Is(err, timecard.ErrBreakLimitReached),
		errors.Is(err, timecard.ErrShiftInProgress),
		errors.Is(err, timecard.ErrInvalidInterval),
		errors.Is(err, timecard.ErrInvalidStatus):
		UnprocessableEntity(w, "INVALID_SHIFT_STATE", err.Error(), nil)

	// Payroll errors
	case errors.Is(err, payroll.ErrReportNotFound):
		NotFound(w, "Monthly report not found")
	case errors.Is(err, payroll.ErrNothingToApprove):
		Conflict(w, err.Error())
	case errors.Is(err, payroll.ErrReportVersionConflict):
		Conflict(w, err.Error())
	case errors.Is(err, payroll.ErrInvalidPeriod):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, payroll.ErrEmployeeMismatch),
		errors.Is(err, payroll.ErrShiftOutsidePeriod),
		errors.Is(err, payroll.ErrShiftNotApproved):
		UnprocessableEntity(w, "RECONCILE_REJECTED", err.Error(), nil)

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
