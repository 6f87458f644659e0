// Package mocks holds testify mocks of the repository and collaborator
// interfaces, shared by the service tests.
package mocks

import (
	"context"
	"time"

	"github.com/cmlabs-hris/timecard-payroll/internal/domain/paypolicy"
	"github.com/cmlabs-hris/timecard-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/timecard-payroll/internal/domain/timecard"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/holiday"
	"github.com/stretchr/testify/mock"
)

type ShiftRepository struct {
	mock.Mock
}

func (m *ShiftRepository) Create(ctx context.Context, shift timecard.ShiftRecord) (timecard.ShiftRecord, error) {
	args := m.Called(ctx, shift)
	return args.Get(0).(timecard.ShiftRecord), args.Error(1)
}

func (m *ShiftRepository) GetByID(ctx context.Context, id string, organizationID string) (timecard.ShiftRecord, error) {
	args := m.Called(ctx, id, organizationID)
	return args.Get(0).(timecard.ShiftRecord), args.Error(1)
}

func (m *ShiftRepository) GetOpenShift(ctx context.Context, employeeID string, organizationID string) (timecard.ShiftRecord, error) {
	args := m.Called(ctx, employeeID, organizationID)
	return args.Get(0).(timecard.ShiftRecord), args.Error(1)
}

func (m *ShiftRepository) Update(ctx context.Context, shift timecard.ShiftRecord, fromStatus timecard.Status) error {
	return m.Called(ctx, shift, fromStatus).Error(0)
}

func (m *ShiftRepository) ListShifts(ctx context.Context, filter timecard.ShiftFilter) ([]timecard.ShiftRecord, error) {
	args := m.Called(ctx, filter)
	shifts, _ := args.Get(0).([]timecard.ShiftRecord)
	return shifts, args.Error(1)
}

func (m *ShiftRepository) ListByIDs(ctx context.Context, organizationID string, ids []string) ([]timecard.ShiftRecord, error) {
	args := m.Called(ctx, organizationID, ids)
	shifts, _ := args.Get(0).([]timecard.ShiftRecord)
	return shifts, args.Error(1)
}

func (m *ShiftRepository) ListApprovedShifts(ctx context.Context, organizationID, employeeID, from, to string) ([]timecard.ShiftRecord, error) {
	args := m.Called(ctx, organizationID, employeeID, from, to)
	shifts, _ := args.Get(0).([]timecard.ShiftRecord)
	return shifts, args.Error(1)
}

func (m *ShiftRepository) ListInProgress(ctx context.Context, organizationID string) ([]timecard.ShiftRecord, error) {
	args := m.Called(ctx, organizationID)
	shifts, _ := args.Get(0).([]timecard.ShiftRecord)
	return shifts, args.Error(1)
}

func (m *ShiftRepository) WriteShiftStatusBatch(ctx context.Context, organizationID string, updates []timecard.StatusUpdate) ([]string, error) {
	args := m.Called(ctx, organizationID, updates)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

type PayPolicyRepository struct {
	mock.Mock
}

func (m *PayPolicyRepository) GetPayPolicy(ctx context.Context, organizationID string) (paypolicy.PayPolicy, error) {
	args := m.Called(ctx, organizationID)
	return args.Get(0).(paypolicy.PayPolicy), args.Error(1)
}

func (m *PayPolicyRepository) UpsertPayPolicy(ctx context.Context, policy paypolicy.PayPolicy) (paypolicy.PayPolicy, error) {
	args := m.Called(ctx, policy)
	return args.Get(0).(paypolicy.PayPolicy), args.Error(1)
}

func (m *PayPolicyRepository) GetEmployeeOverride(ctx context.Context, organizationID, employeeID string) (paypolicy.EmployeePayOverride, error) {
	args := m.Called(ctx, organizationID, employeeID)
	return args.Get(0).(paypolicy.EmployeePayOverride), args.Error(1)
}

func (m *PayPolicyRepository) ListEmployeeOverrides(ctx context.Context, organizationID string, employeeIDs []string) ([]paypolicy.EmployeePayOverride, error) {
	args := m.Called(ctx, organizationID, employeeIDs)
	overrides, _ := args.Get(0).([]paypolicy.EmployeePayOverride)
	return overrides, args.Error(1)
}

func (m *PayPolicyRepository) UpsertEmployeeOverride(ctx context.Context, override paypolicy.EmployeePayOverride) (paypolicy.EmployeePayOverride, error) {
	args := m.Called(ctx, override)
	return args.Get(0).(paypolicy.EmployeePayOverride), args.Error(1)
}

type ReportRepository struct {
	mock.Mock
}

func (m *ReportRepository) GetReport(ctx context.Context, organizationID, employeeID string, period payroll.Period) (payroll.MonthlyReport, error) {
	args := m.Called(ctx, organizationID, employeeID, period)
	return args.Get(0).(payroll.MonthlyReport), args.Error(1)
}

func (m *ReportRepository) WriteMonthlyReport(ctx context.Context, report payroll.MonthlyReport) (payroll.MonthlyReport, error) {
	args := m.Called(ctx, report)
	return args.Get(0).(payroll.MonthlyReport), args.Error(1)
}

func (m *ReportRepository) ListReports(ctx context.Context, organizationID string, period payroll.Period) ([]payroll.MonthlyReport, error) {
	args := m.Called(ctx, organizationID, period)
	reports, _ := args.Get(0).([]payroll.MonthlyReport)
	return reports, args.Error(1)
}

func (m *ReportRepository) ListReportVersions(ctx context.Context, organizationID, employeeID string, period payroll.Period) ([]payroll.MonthlyReport, error) {
	args := m.Called(ctx, organizationID, employeeID, period)
	reports, _ := args.Get(0).([]payroll.MonthlyReport)
	return reports, args.Error(1)
}

// CalendarSource returns the same calendar for every range.
type CalendarSource struct {
	mock.Mock
}

func (m *CalendarSource) Calendar(ctx context.Context, organizationID string, from, to time.Time) (holiday.Calendar, error) {
	args := m.Called(ctx, organizationID, from, to)
	cal, _ := args.Get(0).(holiday.Calendar)
	return cal, args.Error(1)
}

type Notifier struct {
	mock.Mock
}

func (m *Notifier) Notify(ctx context.Context, event payroll.Event) error {
	return m.Called(ctx, event).Error(0)
}
