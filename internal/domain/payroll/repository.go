package payroll

import "context"

// ReportRepository persists monthly reports. Writes for the same
// (organization, employee, period) overwrite; every version is also kept in history.
type ReportRepository interface {
	GetReport(ctx context.Context, organizationID, employeeID string, period Period) (MonthlyReport, error)
	WriteMonthlyReport(ctx context.Context, report MonthlyReport) (MonthlyReport, error)
	ListReports(ctx context.Context, organizationID string, period Period) ([]MonthlyReport, error)
	ListReportVersions(ctx context.Context, organizationID, employeeID string, period Period) ([]MonthlyReport, error)
}
