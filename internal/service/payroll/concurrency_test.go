package payroll

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/timecard-payroll/internal/domain/paypolicy"
	"github.com/cmlabs-hris/timecard-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/timecard-payroll/internal/domain/timecard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memoryStore keeps shifts and reports in memory so concurrent approvals
// observe each other's writes. Report writes apply the same version guard
// as the database.
type memoryStore struct {
	timecard.ShiftRepository
	payroll.ReportRepository

	mu       sync.Mutex
	shifts   map[string]timecard.ShiftRecord
	reports  map[payroll.ReportKey]payroll.MonthlyReport
	versions []int
}

func newMemoryStore(shifts ...timecard.ShiftRecord) *memoryStore {
	m := &memoryStore{
		shifts:  make(map[string]timecard.ShiftRecord),
		reports: make(map[payroll.ReportKey]payroll.MonthlyReport),
	}
	for _, s := range shifts {
		m.shifts[s.ID] = s
	}
	return m
}

func (m *memoryStore) ListByIDs(_ context.Context, organizationID string, ids []string) ([]timecard.ShiftRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []timecard.ShiftRecord
	for _, id := range ids {
		if s, ok := m.shifts[id]; ok && s.OrganizationID == organizationID {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

func (m *memoryStore) ListApprovedShifts(_ context.Context, organizationID, employeeID, from, to string) ([]timecard.ShiftRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []timecard.ShiftRecord
	for _, s := range m.shifts {
		if s.OrganizationID == organizationID && s.EmployeeID == employeeID &&
			s.Status == timecard.StatusApproved && s.DateKey >= from && s.DateKey <= to {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

func (m *memoryStore) WriteShiftStatusBatch(_ context.Context, organizationID string, updates []timecard.StatusUpdate) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	persisted := []string{}
	for _, u := range updates {
		s, ok := m.shifts[u.ShiftID]
		if !ok || s.OrganizationID != organizationID || s.Status != u.FromStatus {
			continue
		}
		s.Status = u.Status
		s.ApprovedAt = u.ApprovedAt
		s.ApprovedBy = u.ApprovedBy
		if u.ClockOut != nil {
			s.ClockOut = u.ClockOut
		}
		m.shifts[u.ShiftID] = s
		persisted = append(persisted, u.ShiftID)
	}
	return persisted, nil
}

func (m *memoryStore) GetReport(_ context.Context, organizationID, employeeID string, period payroll.Period) (payroll.MonthlyReport, error) {
	m.mu.Lock()
	r, ok := m.reports[payroll.ReportKey{OrganizationID: organizationID, EmployeeID: employeeID, Period: period}]
	m.mu.Unlock()

	// widen the read-modify-write window
	time.Sleep(5 * time.Millisecond)
	if !ok {
		return payroll.MonthlyReport{}, payroll.ErrReportNotFound
	}
	return r, nil
}

func (m *memoryStore) WriteMonthlyReport(_ context.Context, report payroll.MonthlyReport) (payroll.MonthlyReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := payroll.ReportKey{OrganizationID: report.OrganizationID, EmployeeID: report.EmployeeID, Period: report.Period}
	if report.Version != m.reports[key].Version+1 {
		return payroll.MonthlyReport{}, payroll.ErrReportVersionConflict
	}
	if report.ID == "" {
		report.ID = "report-1"
	}
	m.reports[key] = report
	m.versions = append(m.versions, report.Version)
	return report, nil
}

func TestPayrollService_Approve_ConcurrentBatchesForSameMonth(t *testing.T) {
	f := newServiceFixture(t)
	f.withPolicy()
	f.policies.On("GetEmployeeOverride", mock.Anything, "org-1", "emp-1").Return(paypolicy.EmployeePayOverride{}, paypolicy.ErrOverrideNotFound)
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)

	store := newMemoryStore(
		newShift(shiftA, "emp-1", "2024-05-06 09:00", "2024-05-06 17:00"),
		newShift(shiftB, "emp-1", "2024-05-07 09:00", "2024-05-07 13:00"),
	)
	f.svc.shiftRepo = store
	f.svc.reportRepo = store

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{shiftA, shiftB} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.Approve(f.ctx, payroll.ApproveShiftsRequest{ShiftIDs: []string{id}})
		}()
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, []int{1, 2}, store.versions)

	report, err := store.GetReport(context.Background(), "org-1", "emp-1", may2024)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Version)
	assert.ElementsMatch(t, []string{shiftA, shiftB}, report.ShiftIDs)
	assert.Equal(t, 2, report.WorkDays)
	// 480 + 240 minutes at 1100/h
	assert.True(t, dec("13200").Equal(report.PayableTotal), "payable = %s", report.PayableTotal)
}
