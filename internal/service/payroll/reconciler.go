package payroll

import (
	"fmt"
	"sort"
	"time"

	"github.com/cmlabs-hris/timecard-payroll/internal/domain/paypolicy"
	"github.com/cmlabs-hris/timecard-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/timecard-payroll/internal/domain/timecard"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/holiday"
)

type ReconcileInput struct {
	OrganizationID string
	EmployeeID     string
	Period         payroll.Period
	// NewlyApproved holds only shifts whose approval actually persisted.
	NewlyApproved []timecard.ShiftRecord
	// AlreadyApproved is the employee's approved history for the period, excluding NewlyApproved.
	AlreadyApproved []timecard.ShiftRecord
	Policy          *paypolicy.PayPolicy
	Override        *paypolicy.EmployeePayOverride
	Calendar        holiday.Calendar
	// Previous is the currently stored report, nil if none exists yet.
	Previous   *payroll.MonthlyReport
	ApprovedAt time.Time
	ApprovedBy string
}

// Reconcile builds the next report version from the union, by shift ID, of
// the approved history and the new batch. Stored totals of the previous
// report are never reused, so a retry or a rebuild converges on the same sums.
func Reconcile(in ReconcileInput) (payroll.MonthlyReport, error) {
	if in.Policy == nil {
		return payroll.MonthlyReport{}, paypolicy.ErrPolicyMissing
	}
	if !in.Period.Valid() {
		return payroll.MonthlyReport{}, fmt.Errorf("%w: %s", payroll.ErrInvalidPeriod, in.Period)
	}

	union := make(map[string]timecard.ShiftRecord, len(in.AlreadyApproved)+len(in.NewlyApproved))
	for _, group := range [][]timecard.ShiftRecord{in.AlreadyApproved, in.NewlyApproved} {
		for _, shift := range group {
			if shift.EmployeeID != in.EmployeeID {
				return payroll.MonthlyReport{}, fmt.Errorf("shift %s: %w", shift.ID, payroll.ErrEmployeeMismatch)
			}
			if !in.Period.Contains(shift.DateKey) {
				return payroll.MonthlyReport{}, fmt.Errorf("shift %s on %s: %w", shift.ID, shift.DateKey, payroll.ErrShiftOutsidePeriod)
			}
			if shift.Status != timecard.StatusApproved {
				return payroll.MonthlyReport{}, fmt.Errorf("shift %s is %s: %w", shift.ID, shift.Status, payroll.ErrShiftNotApproved)
			}
			union[shift.ID] = shift
		}
	}

	ids := make([]string, 0, len(union))
	for id := range union {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	report := payroll.MonthlyReport{
		OrganizationID: in.OrganizationID,
		EmployeeID:     in.EmployeeID,
		Period:         in.Period,
		ShiftIDs:       ids,
		TimecardCount:  len(ids),
		Status:         payroll.ReportStatusConfirmed,
		Version:        1,
		ApprovedAt:     in.ApprovedAt,
		ApprovedBy:     in.ApprovedBy,
	}
	if in.Previous != nil {
		report.ID = in.Previous.ID
		report.Version = in.Previous.Version + 1
		report.CreatedAt = in.Previous.CreatedAt
	}

	workDays := make(map[string]struct{})
	for _, id := range ids {
		shift := union[id]
		b, err := Compute(shift, in.Policy, in.Override, in.Calendar)
		if err != nil {
			return payroll.MonthlyReport{}, fmt.Errorf("failed to reconcile %s: %w", payroll.ReportKey{
				OrganizationID: in.OrganizationID, EmployeeID: in.EmployeeID, Period: in.Period,
			}, err)
		}
		report.Totals.Add(b)
		workDays[shift.DateKey] = struct{}{}
	}

	report.WorkDays = len(workDays)
	report.PayableTotal = report.Totals.Payable()
	return report, nil
}
