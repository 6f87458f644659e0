package payroll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/timecard-payroll/internal/domain/paypolicy"
	"github.com/cmlabs-hris/timecard-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/timecard-payroll/internal/domain/timecard"
	"github.com/cmlabs-hris/timecard-payroll/internal/mocks"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/holiday"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/jwt"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/lock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

const (
	shiftA = "0190f5a0-0000-7000-8000-00000000000a"
	shiftB = "0190f5a0-0000-7000-8000-00000000000b"
	shiftC = "0190f5a0-0000-7000-8000-00000000000c"
)

type serviceFixture struct {
	ctx       context.Context
	shifts    *mocks.ShiftRepository
	policies  *mocks.PayPolicyRepository
	reports   *mocks.ReportRepository
	calendars *mocks.CalendarSource
	notifier  *mocks.Notifier
	svc       *PayrollServiceImpl
}

func newServiceFixture(t *testing.T) *serviceFixture {
	f := &serviceFixture{
		ctx:       mocks.ContextWithClaims(t, jwt.Claims{UserID: "manager-1", OrganizationID: "org-1", Role: jwt.RoleManager}),
		shifts:    new(mocks.ShiftRepository),
		policies:  new(mocks.PayPolicyRepository),
		reports:   new(mocks.ReportRepository),
		calendars: new(mocks.CalendarSource),
		notifier:  new(mocks.Notifier),
	}
	f.svc = NewPayrollService(f.shifts, f.policies, f.reports, f.calendars, lock.NewKeyed(), f.notifier, language.English).(*PayrollServiceImpl)
	f.svc.now = func() time.Time { return at("2024-05-31 18:00") }

	f.calendars.On("Calendar", mock.Anything, "org-1", mock.Anything, mock.Anything).Return(holiday.None, nil).Maybe()
	return f
}

func (f *serviceFixture) withPolicy() {
	f.policies.On("GetPayPolicy", mock.Anything, "org-1").Return(*flatPolicy(), nil)
}

// withReconcileState stubs what the reconciler reads for emp-1 in May 2024.
func (f *serviceFixture) withReconcileState(history []timecard.ShiftRecord, previous *payroll.MonthlyReport) {
	f.withEmployeeState("emp-1", history, previous)
}

func (f *serviceFixture) withEmployeeState(employeeID string, history []timecard.ShiftRecord, previous *payroll.MonthlyReport) {
	f.shifts.On("ListApprovedShifts", mock.Anything, "org-1", employeeID, "2024-05-01", "2024-05-31").Return(history, nil)
	if previous != nil {
		f.reports.On("GetReport", mock.Anything, "org-1", employeeID, may2024).Return(*previous, nil)
	} else {
		f.reports.On("GetReport", mock.Anything, "org-1", employeeID, may2024).Return(payroll.MonthlyReport{}, payroll.ErrReportNotFound)
	}
	f.policies.On("GetEmployeeOverride", mock.Anything, "org-1", employeeID).Return(paypolicy.EmployeePayOverride{}, paypolicy.ErrOverrideNotFound)
}

// captureReport records the report handed to WriteMonthlyReport and echoes it back.
func (f *serviceFixture) captureReport() *payroll.MonthlyReport {
	written := new(payroll.MonthlyReport)
	f.reports.On("WriteMonthlyReport", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { *written = args.Get(1).(payroll.MonthlyReport) }).
		Return(payroll.MonthlyReport{ID: "report-1", OrganizationID: "org-1", EmployeeID: "emp-1", Period: may2024}, nil)
	return written
}

func TestPayrollService_Approve(t *testing.T) {
	f := newServiceFixture(t)
	f.withPolicy()

	a := newShift(shiftA, "emp-1", "2024-05-06 09:00", "2024-05-06 17:00", withBreak("2024-05-06 12:00", "2024-05-06 13:00"))
	b := newShift(shiftB, "emp-1", "2024-05-07 09:00", "2024-05-07 13:00")
	f.shifts.On("ListByIDs", mock.Anything, "org-1", []string{shiftA, shiftB}).Return([]timecard.ShiftRecord{a, b}, nil)
	f.withReconcileState(nil, nil)
	f.shifts.On("WriteShiftStatusBatch", mock.Anything, "org-1", mock.MatchedBy(func(updates []timecard.StatusUpdate) bool {
		return len(updates) == 2 &&
			updates[0].FromStatus == timecard.StatusPending &&
			updates[0].Status == timecard.StatusApproved &&
			updates[0].ClockOut == nil
	})).Return([]string{shiftA, shiftB}, nil)
	written := f.captureReport()
	f.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(e payroll.Event) bool {
		return e.Type == payroll.EventReportConfirmed && e.OrganizationID == "org-1"
	})).Return(nil).Once()

	resp, err := f.svc.Approve(f.ctx, payroll.ApproveShiftsRequest{ShiftIDs: []string{shiftA, shiftB, shiftA}})
	require.NoError(t, err)

	assert.Equal(t, []string{shiftA, shiftB}, resp.ApprovedShiftIDs)
	assert.Len(t, resp.Reports, 1)

	assert.Equal(t, 1, written.Version)
	assert.Equal(t, []string{shiftA, shiftB}, written.ShiftIDs)
	assert.Equal(t, 2, written.WorkDays)
	assert.Equal(t, "manager-1", written.ApprovedBy)
	assert.True(t, dec("12100").Equal(written.PayableTotal), "payable = %s", written.PayableTotal)

	f.shifts.AssertExpectations(t)
	f.reports.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestPayrollService_Approve_PartialBatchWritesNoReport(t *testing.T) {
	f := newServiceFixture(t)
	f.withPolicy()

	a := newShift(shiftA, "emp-1", "2024-05-06 09:00", "2024-05-06 17:00")
	b := newShift(shiftB, "emp-1", "2024-05-07 09:00", "2024-05-07 13:00")
	f.shifts.On("ListByIDs", mock.Anything, "org-1", []string{shiftA, shiftB}).Return([]timecard.ShiftRecord{a, b}, nil)
	f.withReconcileState(nil, nil)
	f.shifts.On("WriteShiftStatusBatch", mock.Anything, "org-1", mock.Anything).Return([]string{shiftA}, errors.New("serialization failure"))

	_, err := f.svc.Approve(f.ctx, payroll.ApproveShiftsRequest{ShiftIDs: []string{shiftA, shiftB}})
	require.Error(t, err)
	assert.ErrorIs(t, err, payroll.ErrPartialBatchFailure)

	var partial *payroll.PartialBatchError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, []string{shiftA}, partial.Persisted)
	assert.Equal(t, []string{shiftB}, partial.Failed)

	f.reports.AssertNotCalled(t, "WriteMonthlyReport", mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestPayrollService_Approve_RetryAfterPartialFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.withPolicy()

	// A persisted on the first attempt, B did not
	a := approvedShift(shiftA, "emp-1", "2024-05-06 09:00", "2024-05-06 17:00")
	b := newShift(shiftB, "emp-1", "2024-05-07 09:00", "2024-05-07 13:00")
	f.shifts.On("ListByIDs", mock.Anything, "org-1", []string{shiftA, shiftB}).Return([]timecard.ShiftRecord{a, b}, nil)
	f.shifts.On("ListByIDs", mock.Anything, "org-1", []string{shiftB}).Return([]timecard.ShiftRecord{b}, nil)
	f.withReconcileState([]timecard.ShiftRecord{a}, nil)
	f.shifts.On("WriteShiftStatusBatch", mock.Anything, "org-1", mock.Anything).Return([]string{shiftB}, nil)
	written := f.captureReport()
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)

	resp, err := f.svc.Approve(f.ctx, payroll.ApproveShiftsRequest{ShiftIDs: []string{shiftA, shiftB}})
	require.NoError(t, err)

	assert.Equal(t, []string{shiftB}, resp.ApprovedShiftIDs)
	assert.Equal(t, 1, written.Version)
	assert.Equal(t, []string{shiftA, shiftB}, written.ShiftIDs)
	// 480 + 240 minutes at 1100/h
	assert.True(t, dec("13200").Equal(written.PayableTotal), "payable = %s", written.PayableTotal)
}

func TestPayrollService_Approve_FailsClosedWithoutPolicy(t *testing.T) {
	f := newServiceFixture(t)
	f.policies.On("GetPayPolicy", mock.Anything, "org-1").Return(paypolicy.PayPolicy{}, paypolicy.ErrPolicyMissing)

	_, err := f.svc.Approve(f.ctx, payroll.ApproveShiftsRequest{ShiftIDs: []string{shiftA}})
	assert.ErrorIs(t, err, paypolicy.ErrPolicyMissing)

	f.shifts.AssertNotCalled(t, "ListByIDs", mock.Anything, mock.Anything, mock.Anything)
	f.shifts.AssertNotCalled(t, "WriteShiftStatusBatch", mock.Anything, mock.Anything, mock.Anything)
}

func TestPayrollService_Approve_ComputeFailureWritesNothing(t *testing.T) {
	f := newServiceFixture(t)
	f.withPolicy()

	broken := newShift(shiftA, "emp-1", "2024-05-06 17:00", "2024-05-06 09:00")
	f.shifts.On("ListByIDs", mock.Anything, "org-1", []string{shiftA}).Return([]timecard.ShiftRecord{broken}, nil)
	f.withReconcileState(nil, nil)

	_, err := f.svc.Approve(f.ctx, payroll.ApproveShiftsRequest{ShiftIDs: []string{shiftA}})
	assert.ErrorIs(t, err, timecard.ErrInvalidInterval)

	f.shifts.AssertNotCalled(t, "WriteShiftStatusBatch", mock.Anything, mock.Anything, mock.Anything)
	f.reports.AssertNotCalled(t, "WriteMonthlyReport", mock.Anything, mock.Anything)
}

func TestPayrollService_Approve_RetryReturnsStoredReport(t *testing.T) {
	f := newServiceFixture(t)
	f.withPolicy()

	a := approvedShift(shiftA, "emp-1", "2024-05-06 09:00", "2024-05-06 17:00")
	f.shifts.On("ListByIDs", mock.Anything, "org-1", []string{shiftA}).Return([]timecard.ShiftRecord{a}, nil)
	f.withReconcileState([]timecard.ShiftRecord{a}, &payroll.MonthlyReport{
		ID: "report-1", OrganizationID: "org-1", EmployeeID: "emp-1", Period: may2024,
		Version: 1, ShiftIDs: []string{shiftA}, PayableTotal: dec("8800"),
	})

	resp, err := f.svc.Approve(f.ctx, payroll.ApproveShiftsRequest{ShiftIDs: []string{shiftA}})
	require.NoError(t, err)

	assert.Empty(t, resp.ApprovedShiftIDs)
	require.Len(t, resp.Reports, 1)
	assert.Equal(t, "report-1", resp.Reports[0].ID)
	assert.Equal(t, 1, resp.Reports[0].Version)

	f.shifts.AssertNotCalled(t, "WriteShiftStatusBatch", mock.Anything, mock.Anything, mock.Anything)
	f.reports.AssertNotCalled(t, "WriteMonthlyReport", mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestPayrollService_Approve_NothingLeftToApprove(t *testing.T) {
	f := newServiceFixture(t)
	f.withPolicy()

	// pending when the request arrived, rejected by the time the lock is held
	a := newShift(shiftA, "emp-1", "2024-05-06 09:00", "2024-05-06 17:00")
	rejected := a.Clone()
	rejected.Status = timecard.StatusRejected
	f.shifts.On("ListByIDs", mock.Anything, "org-1", []string{shiftA}).Return([]timecard.ShiftRecord{a}, nil).Once()
	f.shifts.On("ListByIDs", mock.Anything, "org-1", []string{shiftA}).Return([]timecard.ShiftRecord{rejected}, nil).Once()
	f.withReconcileState(nil, nil)

	_, err := f.svc.Approve(f.ctx, payroll.ApproveShiftsRequest{ShiftIDs: []string{shiftA}})
	assert.ErrorIs(t, err, payroll.ErrNothingToApprove)

	f.shifts.AssertNotCalled(t, "WriteShiftStatusBatch", mock.Anything, mock.Anything, mock.Anything)
	f.reports.AssertNotCalled(t, "WriteMonthlyReport", mock.Anything, mock.Anything)
}

func TestPayrollService_Approve_RepairsReportMissingApprovedShifts(t *testing.T) {
	f := newServiceFixture(t)
	f.withPolicy()

	// statuses persisted earlier but the report write was lost
	a := approvedShift(shiftA, "emp-1", "2024-05-06 09:00", "2024-05-06 17:00")
	b := approvedShift(shiftB, "emp-1", "2024-05-07 09:00", "2024-05-07 13:00")
	previous := &payroll.MonthlyReport{ID: "report-1", Version: 3, ShiftIDs: []string{shiftA}}
	f.shifts.On("ListByIDs", mock.Anything, "org-1", []string{shiftB}).Return([]timecard.ShiftRecord{b}, nil)
	f.withReconcileState([]timecard.ShiftRecord{a, b}, previous)
	written := f.captureReport()
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)

	resp, err := f.svc.Approve(f.ctx, payroll.ApproveShiftsRequest{ShiftIDs: []string{shiftB}})
	require.NoError(t, err)

	assert.Empty(t, resp.ApprovedShiftIDs)
	assert.Len(t, resp.Reports, 1)
	assert.Equal(t, 4, written.Version)
	assert.Equal(t, "report-1", written.ID)
	assert.Equal(t, []string{shiftA, shiftB}, written.ShiftIDs)
	f.shifts.AssertNotCalled(t, "WriteShiftStatusBatch", mock.Anything, mock.Anything, mock.Anything)
}

func TestPayrollService_Approve_ClosesInProgressShift(t *testing.T) {
	f := newServiceFixture(t)
	f.withPolicy()

	open := newShift(shiftC, "emp-1", "2024-05-31 09:00", "", withBreak("2024-05-31 17:30", ""))
	f.shifts.On("ListByIDs", mock.Anything, "org-1", []string{shiftC}).Return([]timecard.ShiftRecord{open}, nil)
	f.withReconcileState(nil, nil)
	f.shifts.On("WriteShiftStatusBatch", mock.Anything, "org-1", mock.MatchedBy(func(updates []timecard.StatusUpdate) bool {
		if len(updates) != 1 || updates[0].ClockOut == nil || len(updates[0].Breaks) != 1 {
			return false
		}
		return updates[0].ClockOut.Equal(at("2024-05-31 18:00")) && updates[0].Breaks[0].EndAt != nil
	})).Return([]string{shiftC}, nil)
	written := f.captureReport()
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Approve(f.ctx, payroll.ApproveShiftsRequest{ShiftIDs: []string{shiftC}})
	require.NoError(t, err)

	// 09:00-18:00 with a 30 minute break
	assert.Equal(t, 510, written.Totals.NetMinutes)
	f.shifts.AssertExpectations(t)
}

func TestPayrollService_Approve_UnknownShift(t *testing.T) {
	f := newServiceFixture(t)
	f.withPolicy()
	f.shifts.On("ListByIDs", mock.Anything, "org-1", []string{shiftA}).Return([]timecard.ShiftRecord(nil), nil)

	_, err := f.svc.Approve(f.ctx, payroll.ApproveShiftsRequest{ShiftIDs: []string{shiftA}})
	assert.ErrorIs(t, err, timecard.ErrShiftNotFound)
}

func TestPayrollService_Approve_RejectsInvalidRequest(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Approve(f.ctx, payroll.ApproveShiftsRequest{ShiftIDs: []string{"not-a-uuid"}})
	assert.Error(t, err)
	f.policies.AssertNotCalled(t, "GetPayPolicy", mock.Anything, mock.Anything)
}

func TestPayrollService_Approve_RequiresClaims(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Approve(context.Background(), payroll.ApproveShiftsRequest{ShiftIDs: []string{shiftA}})
	assert.Error(t, err)
}

func TestPayrollService_Preview(t *testing.T) {
	f := newServiceFixture(t)
	f.withPolicy()

	a := newShift(shiftA, "emp-1", "2024-05-06 09:00", "2024-05-06 17:00")
	open := newShift(shiftC, "emp-1", "2024-05-31 09:00", "")
	f.shifts.On("ListShifts", mock.Anything, mock.MatchedBy(func(filter timecard.ShiftFilter) bool {
		return filter.OrganizationID == "org-1" && filter.From == "2024-05-01" && filter.To == "2024-05-31" &&
			len(filter.Statuses) == 1 && filter.Statuses[0] == timecard.StatusPending
	})).Return([]timecard.ShiftRecord{a, open}, nil)
	f.policies.On("ListEmployeeOverrides", mock.Anything, "org-1", []string{"emp-1"}).Return([]paypolicy.EmployeePayOverride(nil), nil)

	resp, err := f.svc.Preview(f.ctx, payroll.PreviewRequest{From: "2024-05-01", To: "2024-05-31"})
	require.NoError(t, err)

	require.Len(t, resp.Applications, 1)
	assert.Equal(t, 1, resp.Applications[0].TimecardCount)
	assert.True(t, dec("8800").Equal(resp.Applications[0].PayableTotal))
	assert.Equal(t, []string{shiftC}, resp.InProgressShiftIDs)
	f.shifts.AssertNotCalled(t, "WriteShiftStatusBatch", mock.Anything, mock.Anything, mock.Anything)
}

func TestPayrollService_RebuildReport(t *testing.T) {
	const employeeID = "0190f5a0-0000-7000-8000-0000000000e1"

	t.Run("recomputes from approved shifts", func(t *testing.T) {
		f := newServiceFixture(t)
		f.withPolicy()
		a := approvedShift(shiftA, employeeID, "2024-05-06 09:00", "2024-05-06 12:00")
		f.withEmployeeState(employeeID, []timecard.ShiftRecord{a}, &payroll.MonthlyReport{ID: "report-1", Version: 2, ShiftIDs: []string{shiftA}})
		written := f.captureReport()
		f.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)

		_, err := f.svc.RebuildReport(f.ctx, payroll.RebuildReportRequest{EmployeeID: employeeID, Period: "2024-05"})
		require.NoError(t, err)
		assert.Equal(t, 3, written.Version)
		assert.Equal(t, "report-1", written.ID)
		assert.True(t, dec("3300").Equal(written.PayableTotal), "payable = %s", written.PayableTotal)
	})

	t.Run("nothing to rebuild", func(t *testing.T) {
		f := newServiceFixture(t)
		f.withPolicy()
		f.withEmployeeState(employeeID, nil, nil)

		_, err := f.svc.RebuildReport(f.ctx, payroll.RebuildReportRequest{EmployeeID: employeeID, Period: "2024-05"})
		assert.ErrorIs(t, err, payroll.ErrReportNotFound)
		f.reports.AssertNotCalled(t, "WriteMonthlyReport", mock.Anything, mock.Anything)
	})
}

func TestPayrollService_LiveForOrganization(t *testing.T) {
	f := newServiceFixture(t)
	f.withPolicy()

	open := newShift(shiftC, "emp-1", "2024-05-31 15:00", "", withBreak("2024-05-31 16:00", "2024-05-31 16:30"), withName("Aiko"))
	f.shifts.On("ListInProgress", mock.Anything, "org-1").Return([]timecard.ShiftRecord{open}, nil)
	f.policies.On("ListEmployeeOverrides", mock.Anything, "org-1", []string{"emp-1"}).Return([]paypolicy.EmployeePayOverride(nil), nil)

	live, err := f.svc.LiveForOrganization(context.Background(), "org-1")
	require.NoError(t, err)
	require.Len(t, live, 1)

	assert.Equal(t, "Aiko", live[0].EmployeeName)
	assert.False(t, live[0].OnBreak)
	assert.Equal(t, 180, live[0].Breakdown.TotalMinutes)
	assert.Equal(t, 150, live[0].Breakdown.NetMinutes)
	f.reports.AssertNotCalled(t, "WriteMonthlyReport", mock.Anything, mock.Anything)
}
