package payroll

import (
	"fmt"
	"sort"
	"time"

	"github.com/cmlabs-hris/timecard-payroll/internal/domain/paypolicy"
	"github.com/cmlabs-hris/timecard-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/timecard-payroll/internal/domain/timecard"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/holiday"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type AggregateOptions struct {
	Calendar holiday.Calendar
	// CloseAt, when set, closes in-progress shifts (and their open break) at
	// that instant for this computation only. Otherwise they are skipped.
	CloseAt *time.Time
	// Locale selects the collation used to order employees by name.
	Locale language.Tag
}

type AggregateResult struct {
	// Applications are ordered by employee display name, then employee ID.
	Applications       []payroll.AggregatedApplication
	InProgressShiftIDs []string
}

// ByEmployee indexes the applications by employee ID.
func (r AggregateResult) ByEmployee() map[string]payroll.AggregatedApplication {
	out := make(map[string]payroll.AggregatedApplication, len(r.Applications))
	for _, a := range r.Applications {
		out[a.EmployeeID] = a
	}
	return out
}

// Aggregate sums the breakdowns of pending shifts per employee. Drafts,
// approved and rejected shifts are ignored. Money is summed exactly and the
// payable total is rounded once per employee.
func Aggregate(shifts []timecard.ShiftRecord, policy *paypolicy.PayPolicy, overrides map[string]paypolicy.EmployeePayOverride, opts AggregateOptions) (AggregateResult, error) {
	if policy == nil {
		return AggregateResult{}, paypolicy.ErrPolicyMissing
	}

	var result AggregateResult
	apps := make(map[string]*payroll.AggregatedApplication)
	days := make(map[string]map[string]*payroll.DayGroup)

	for _, shift := range shifts {
		if shift.Status != timecard.StatusPending {
			continue
		}

		if shift.ClockOut == nil {
			if opts.CloseAt == nil || shift.ClockIn == nil || !opts.CloseAt.After(*shift.ClockIn) {
				result.InProgressShiftIDs = append(result.InProgressShiftIDs, shift.ID)
				continue
			}
			shift = closeAt(shift, *opts.CloseAt)
		}

		var override *paypolicy.EmployeePayOverride
		if o, ok := overrides[shift.EmployeeID]; ok {
			override = &o
		}

		b, err := Compute(shift, policy, override, opts.Calendar)
		if err != nil {
			return AggregateResult{}, fmt.Errorf("failed to aggregate employee %s: %w", shift.EmployeeID, err)
		}

		app, ok := apps[shift.EmployeeID]
		if !ok {
			app = &payroll.AggregatedApplication{
				EmployeeID:   shift.EmployeeID,
				EmployeeName: shift.DisplayName(),
			}
			apps[shift.EmployeeID] = app
			days[shift.EmployeeID] = make(map[string]*payroll.DayGroup)
		}

		day, ok := days[shift.EmployeeID][shift.DateKey]
		if !ok {
			day = &payroll.DayGroup{DateKey: shift.DateKey}
			days[shift.EmployeeID][shift.DateKey] = day
		}
		day.Shifts = append(day.Shifts, payroll.ShiftBreakdown{ShiftID: shift.ID, DateKey: shift.DateKey, Breakdown: b})
		day.Totals.Add(b)

		app.Totals.Add(b)
		app.TimecardCount++
	}

	for employeeID, app := range apps {
		for _, day := range days[employeeID] {
			sort.Slice(day.Shifts, func(i, j int) bool { return day.Shifts[i].ShiftID < day.Shifts[j].ShiftID })
			app.Days = append(app.Days, *day)
		}
		sort.Slice(app.Days, func(i, j int) bool { return app.Days[i].DateKey < app.Days[j].DateKey })
		app.WorkDays = len(app.Days)
		app.PayableTotal = app.Totals.Payable()
		result.Applications = append(result.Applications, *app)
	}

	sortApplications(result.Applications, opts.Locale)
	sort.Strings(result.InProgressShiftIDs)
	return result, nil
}

func sortApplications(apps []payroll.AggregatedApplication, locale language.Tag) {
	col := collate.New(locale, collate.IgnoreCase)
	sort.SliceStable(apps, func(i, j int) bool {
		if c := col.CompareString(apps[i].EmployeeName, apps[j].EmployeeName); c != 0 {
			return c < 0
		}
		return apps[i].EmployeeID < apps[j].EmployeeID
	})
}

// closeAt returns a copy of an in-progress shift ended at the given instant.
func closeAt(shift timecard.ShiftRecord, at time.Time) timecard.ShiftRecord {
	c := shift.Clone()
	if open := c.OpenBreak(); open != nil {
		if at.Before(open.StartAt) {
			at = open.StartAt
		}
		end := at
		open.EndAt = &end
	}
	c.ClockOut = &at
	return c
}
