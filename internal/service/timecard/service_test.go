package timecard

import (
	"fmt"
	"testing"
	"time"

	"github.com/cmlabs-hris/timecard-payroll/internal/domain/paypolicy"
	"github.com/cmlabs-hris/timecard-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/timecard-payroll/internal/domain/timecard"
	"github.com/cmlabs-hris/timecard-payroll/internal/mocks"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/jwt"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const shiftID = "0190f5a0-0000-7000-8000-000000000001"

var (
	employee = jwt.Claims{UserID: "user-1", EmployeeID: "emp-1", OrganizationID: "org-1", Role: jwt.RoleEmployee}
	manager  = jwt.Claims{UserID: "user-9", EmployeeID: "emp-9", OrganizationID: "org-1", Role: jwt.RoleManager}
)

type fixture struct {
	shifts   *mocks.ShiftRepository
	policies *mocks.PayPolicyRepository
	notifier *mocks.Notifier
	svc      *TimecardServiceImpl
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		shifts:   new(mocks.ShiftRepository),
		policies: new(mocks.PayPolicyRepository),
		notifier: new(mocks.Notifier),
		// 2024-05-06 16:30 UTC is 2024-05-07 01:30 in Tokyo
		clock: time.Date(2024, 5, 6, 16, 30, 0, 0, time.UTC),
	}
	f.svc = NewTimecardService(f.shifts, f.policies, f.notifier, 2).(*TimecardServiceImpl)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func openShift(clockIn time.Time) timecard.ShiftRecord {
	return timecard.ShiftRecord{
		ID:             shiftID,
		OrganizationID: "org-1",
		EmployeeID:     "emp-1",
		DateKey:        clockIn.Format(timecard.DateKeyLayout),
		ClockIn:        &clockIn,
		Status:         timecard.StatusDraft,
	}
}

func TestTimecardService_ClockIn(t *testing.T) {
	f := newFixture(t)
	ctx := mocks.ContextWithClaims(t, employee)
	wage := decimal.RequireFromString("1350")

	f.shifts.On("GetOpenShift", mock.Anything, "emp-1", "org-1").Return(timecard.ShiftRecord{}, timecard.ErrShiftNotFound)
	f.policies.On("GetPayPolicy", mock.Anything, "org-1").Return(paypolicy.PayPolicy{Timezone: "Asia/Tokyo"}, nil)
	f.policies.On("GetEmployeeOverride", mock.Anything, "org-1", "emp-1").Return(paypolicy.EmployeePayOverride{HourlyWage: &wage}, nil)
	f.shifts.On("Create", mock.Anything, mock.MatchedBy(func(s timecard.ShiftRecord) bool {
		return s.DateKey == "2024-05-07" &&
			s.Status == timecard.StatusDraft &&
			s.ClockIn != nil && s.ClockIn.Equal(f.clock) &&
			s.HourlyWage != nil && s.HourlyWage.Equal(wage)
	})).Return(openShift(f.clock), nil)

	resp, err := f.svc.ClockIn(ctx)
	require.NoError(t, err)
	assert.Equal(t, shiftID, resp.ID)
	f.shifts.AssertExpectations(t)
}

func TestTimecardService_ClockIn_WithoutPolicyUsesDefaultTimezone(t *testing.T) {
	f := newFixture(t)
	ctx := mocks.ContextWithClaims(t, employee)

	f.shifts.On("GetOpenShift", mock.Anything, "emp-1", "org-1").Return(timecard.ShiftRecord{}, timecard.ErrShiftNotFound)
	f.policies.On("GetPayPolicy", mock.Anything, "org-1").Return(paypolicy.PayPolicy{}, paypolicy.ErrPolicyMissing)
	f.policies.On("GetEmployeeOverride", mock.Anything, "org-1", "emp-1").Return(paypolicy.EmployeePayOverride{}, paypolicy.ErrOverrideNotFound)
	f.shifts.On("Create", mock.Anything, mock.MatchedBy(func(s timecard.ShiftRecord) bool {
		return s.DateKey == "2024-05-07" && s.HourlyWage == nil
	})).Return(openShift(f.clock), nil)

	_, err := f.svc.ClockIn(ctx)
	require.NoError(t, err)
	f.shifts.AssertExpectations(t)
}

func TestTimecardService_ClockIn_Twice(t *testing.T) {
	f := newFixture(t)
	ctx := mocks.ContextWithClaims(t, employee)
	f.shifts.On("GetOpenShift", mock.Anything, "emp-1", "org-1").Return(openShift(f.clock.Add(-time.Hour)), nil)

	_, err := f.svc.ClockIn(ctx)
	assert.ErrorIs(t, err, timecard.ErrAlreadyClockedIn)
	f.shifts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestTimecardService_ClockIn_RequiresEmployee(t *testing.T) {
	f := newFixture(t)
	ctx := mocks.ContextWithClaims(t, jwt.Claims{UserID: "user-1", OrganizationID: "org-1", Role: jwt.RoleOwner})

	_, err := f.svc.ClockIn(ctx)
	assert.ErrorIs(t, err, jwt.ErrMissingClaims)
}

func TestTimecardService_BreaksAndClockOut(t *testing.T) {
	f := newFixture(t)
	ctx := mocks.ContextWithClaims(t, employee)
	shift := openShift(f.clock.Add(-3 * time.Hour))

	f.shifts.On("GetOpenShift", mock.Anything, "emp-1", "org-1").Return(shift, nil).Once()
	f.shifts.On("Update", mock.Anything, mock.Anything, timecard.StatusDraft).Return(nil)

	resp, err := f.svc.StartBreak(ctx)
	require.NoError(t, err)
	assert.True(t, resp.OnBreak)

	// clock-out is refused while the break is open
	onBreak := openShift(f.clock.Add(-3 * time.Hour))
	onBreak.Breaks = []timecard.BreakPeriod{{StartAt: f.clock}}
	f.shifts.On("GetOpenShift", mock.Anything, "emp-1", "org-1").Return(onBreak, nil).Once()
	_, err = f.svc.ClockOut(ctx)
	assert.ErrorIs(t, err, timecard.ErrBreakStillOpen)

	f.clock = f.clock.Add(30 * time.Minute)
	f.shifts.On("GetOpenShift", mock.Anything, "emp-1", "org-1").Return(onBreak, nil).Once()
	resp, err = f.svc.EndBreak(ctx)
	require.NoError(t, err)
	assert.False(t, resp.OnBreak)
	require.Len(t, resp.Breaks, 1)
	assert.Equal(t, f.clock, *resp.Breaks[0].EndAt)

	done := onBreak.Clone()
	end := f.clock
	done.Breaks[0].EndAt = &end
	f.clock = f.clock.Add(2 * time.Hour)
	f.shifts.On("GetOpenShift", mock.Anything, "emp-1", "org-1").Return(done, nil).Once()
	resp, err = f.svc.ClockOut(ctx)
	require.NoError(t, err)
	require.NotNil(t, resp.ClockOut)
	assert.Equal(t, f.clock, *resp.ClockOut)

	f.shifts.AssertNumberOfCalls(t, "Update", 3)
}

func TestTimecardService_BreakLimitFromConfig(t *testing.T) {
	f := newFixture(t)
	ctx := mocks.ContextWithClaims(t, employee)

	shift := openShift(f.clock.Add(-5 * time.Hour))
	for i := range 2 {
		start := f.clock.Add(time.Duration(-4+i) * time.Hour)
		end := start.Add(10 * time.Minute)
		shift.Breaks = append(shift.Breaks, timecard.BreakPeriod{StartAt: start, EndAt: &end})
	}
	f.shifts.On("GetOpenShift", mock.Anything, "emp-1", "org-1").Return(shift, nil)

	_, err := f.svc.StartBreak(ctx)
	assert.ErrorIs(t, err, timecard.ErrBreakLimitReached)
	f.shifts.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestTimecardService_ActionsWithoutOpenShift(t *testing.T) {
	f := newFixture(t)
	ctx := mocks.ContextWithClaims(t, employee)
	f.shifts.On("GetOpenShift", mock.Anything, "emp-1", "org-1").Return(timecard.ShiftRecord{}, timecard.ErrShiftNotFound)

	_, err := f.svc.StartBreak(ctx)
	assert.ErrorIs(t, err, timecard.ErrNotClockedIn)
	_, err = f.svc.ClockOut(ctx)
	assert.ErrorIs(t, err, timecard.ErrNotClockedIn)
}

func TestTimecardService_Submit(t *testing.T) {
	f := newFixture(t)
	shift := openShift(f.clock.Add(-8 * time.Hour))
	out := f.clock
	shift.ClockOut = &out
	f.shifts.On("GetByID", mock.Anything, shiftID, "org-1").Return(shift, nil)
	f.shifts.On("Update", mock.Anything, mock.MatchedBy(func(s timecard.ShiftRecord) bool {
		return s.Status == timecard.StatusPending
	}), timecard.StatusDraft).Return(nil)

	resp, err := f.svc.Submit(mocks.ContextWithClaims(t, employee), shiftID)
	require.NoError(t, err)
	assert.Equal(t, timecard.StatusPending, resp.Status)

	// someone else's shift is invisible to a plain employee
	other := jwt.Claims{UserID: "user-2", EmployeeID: "emp-2", OrganizationID: "org-1", Role: jwt.RoleEmployee}
	_, err = f.svc.Submit(mocks.ContextWithClaims(t, other), shiftID)
	assert.ErrorIs(t, err, timecard.ErrShiftNotFound)
}

func TestTimecardService_Reject(t *testing.T) {
	f := newFixture(t)
	ctx := mocks.ContextWithClaims(t, manager)
	shift := openShift(f.clock.Add(-8 * time.Hour))
	shift.Status = timecard.StatusPending
	f.shifts.On("GetByID", mock.Anything, shiftID, "org-1").Return(shift, nil)
	f.shifts.On("WriteShiftStatusBatch", mock.Anything, "org-1", mock.MatchedBy(func(updates []timecard.StatusUpdate) bool {
		return len(updates) == 1 &&
			updates[0].FromStatus == timecard.StatusPending &&
			updates[0].Status == timecard.StatusRejected &&
			*updates[0].RejectionReason == "wrong day"
	})).Return([]string{shiftID}, nil)
	f.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(e payroll.Event) bool {
		return e.Type == payroll.EventShiftsRejected
	})).Return(nil)

	resp, err := f.svc.Reject(ctx, timecard.RejectShiftRequest{ID: shiftID, Reason: "wrong day"})
	require.NoError(t, err)
	assert.Equal(t, timecard.StatusRejected, resp.Status)
	f.notifier.AssertExpectations(t)
}

func TestTimecardService_Reject_LosesRaceWithApproval(t *testing.T) {
	f := newFixture(t)
	ctx := mocks.ContextWithClaims(t, manager)
	shift := openShift(f.clock.Add(-8 * time.Hour))
	shift.Status = timecard.StatusPending
	f.shifts.On("GetByID", mock.Anything, shiftID, "org-1").Return(shift, nil)
	f.shifts.On("WriteShiftStatusBatch", mock.Anything, "org-1", mock.Anything).Return([]string{}, nil)

	_, err := f.svc.Reject(ctx, timecard.RejectShiftRequest{ID: shiftID, Reason: "wrong day"})
	assert.ErrorIs(t, err, timecard.ErrInvalidTransition)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestTimecardService_Correct(t *testing.T) {
	f := newFixture(t)
	ctx := mocks.ContextWithClaims(t, manager)

	in := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	out := in.Add(8 * time.Hour)
	shift := openShift(in)
	shift.ClockOut = &out
	shift.Status = timecard.StatusApproved
	f.shifts.On("GetByID", mock.Anything, shiftID, "org-1").Return(shift, nil)
	f.shifts.On("Update", mock.Anything, mock.Anything, timecard.StatusApproved).Return(nil)

	correctedOut := in.Add(7 * time.Hour)
	resp, err := f.svc.Correct(ctx, timecard.CorrectShiftRequest{ID: shiftID, ClockIn: &in, ClockOut: &correctedOut})
	require.NoError(t, err)
	assert.Equal(t, timecard.StatusApproved, resp.Status)
	assert.Equal(t, correctedOut, *resp.ClockOut)

	inverted := in.Add(-time.Hour)
	_, err = f.svc.Correct(ctx, timecard.CorrectShiftRequest{ID: shiftID, ClockIn: &in, ClockOut: &inverted})
	assert.ErrorIs(t, err, timecard.ErrInvalidInterval)
	f.shifts.AssertNumberOfCalls(t, "Update", 1)
}

func TestTimecardService_ClockOut_AfterConcurrentApproval(t *testing.T) {
	f := newFixture(t)
	ctx := mocks.ContextWithClaims(t, employee)

	// submitted while still clocked in; a manager approves before the clock-out lands
	shift := openShift(f.clock.Add(-8 * time.Hour))
	shift.Status = timecard.StatusPending
	f.shifts.On("GetOpenShift", mock.Anything, "emp-1", "org-1").Return(shift, nil)
	f.shifts.On("Update", mock.Anything, mock.MatchedBy(func(s timecard.ShiftRecord) bool {
		return s.Status == timecard.StatusPending && s.ApprovedAt == nil
	}), timecard.StatusPending).Return(fmt.Errorf("%w: shift is now approved", timecard.ErrInvalidTransition))

	_, err := f.svc.ClockOut(ctx)
	assert.ErrorIs(t, err, timecard.ErrInvalidTransition)
	f.shifts.AssertExpectations(t)
}

func TestTimecardService_Correct_PendingShiftApprovedMeanwhile(t *testing.T) {
	f := newFixture(t)
	ctx := mocks.ContextWithClaims(t, manager)

	in := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	out := in.Add(8 * time.Hour)
	shift := openShift(in)
	shift.ClockOut = &out
	shift.Status = timecard.StatusPending
	f.shifts.On("GetByID", mock.Anything, shiftID, "org-1").Return(shift, nil)
	f.shifts.On("Update", mock.Anything, mock.Anything, timecard.StatusPending).
		Return(fmt.Errorf("%w: shift is now approved", timecard.ErrInvalidTransition))

	correctedOut := in.Add(7 * time.Hour)
	_, err := f.svc.Correct(ctx, timecard.CorrectShiftRequest{ID: shiftID, ClockIn: &in, ClockOut: &correctedOut})
	assert.ErrorIs(t, err, timecard.ErrInvalidTransition)
}

func TestTimecardService_ListShifts_ScopesEmployees(t *testing.T) {
	f := newFixture(t)
	f.shifts.On("ListShifts", mock.Anything, mock.MatchedBy(func(q timecard.ShiftFilter) bool {
		return q.EmployeeID != nil && *q.EmployeeID == "emp-1"
	})).Return([]timecard.ShiftRecord{openShift(f.clock)}, nil)

	// an employee asking for another employee still only sees their own shifts
	resp, err := f.svc.ListShifts(mocks.ContextWithClaims(t, employee), timecard.ListShiftsFilter{EmployeeID: "0190f5a0-0000-7000-8000-0000000000e2"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Total)

	f.shifts.On("ListShifts", mock.Anything, mock.MatchedBy(func(q timecard.ShiftFilter) bool {
		return q.EmployeeID == nil && len(q.Statuses) == 1 && q.Statuses[0] == timecard.StatusPending
	})).Return([]timecard.ShiftRecord(nil), nil)

	resp, err = f.svc.ListShifts(mocks.ContextWithClaims(t, manager), timecard.ListShiftsFilter{Status: "pending"})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Total)
	assert.NotNil(t, resp.Shifts)
}

func TestTimecardService_GetShift_RejectsMalformedID(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetShift(mocks.ContextWithClaims(t, employee), "42")
	assert.Error(t, err)
	f.shifts.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything, mock.Anything)
}
