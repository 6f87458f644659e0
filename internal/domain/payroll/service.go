package payroll

import "context"

// PayrollService runs the approval workflow over the breakdown engine.
type PayrollService interface {
	// Preview aggregates pending shifts without writing anything
	Preview(ctx context.Context, req PreviewRequest) (PreviewResponse, error)

	// Approve approves a batch of pending shifts and rewrites the affected monthly reports
	Approve(ctx context.Context, req ApproveShiftsRequest) (ApproveShiftsResponse, error)

	// RebuildReport recomputes a monthly report from its approved shifts
	RebuildReport(ctx context.Context, req RebuildReportRequest) (MonthlyReportResponse, error)

	GetReport(ctx context.Context, employeeID string, period string) (MonthlyReportResponse, error)
	ListReports(ctx context.Context, filter ReportFilter) ([]MonthlyReportResponse, error)
	ListReportVersions(ctx context.Context, employeeID string, period string) ([]MonthlyReportResponse, error)

	// Live returns presentation-only breakdowns of the organization's in-progress shifts
	Live(ctx context.Context) ([]LiveBreakdownResponse, error)
	LiveForOrganization(ctx context.Context, organizationID string) ([]LiveBreakdownResponse, error)
}
