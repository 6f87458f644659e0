package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/timecard-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type reportRepository struct {
	db *database.DB
}

func NewReportRepository(db *database.DB) payroll.ReportRepository {
	return &reportRepository{db: db}
}

func encodeTotals(t payroll.Totals) ([]byte, error) {
	return json.Marshal(payroll.NewTotalsResponse(t))
}

func decodeTotals(b []byte) (payroll.Totals, error) {
	var t payroll.TotalsResponse
	if err := json.Unmarshal(b, &t); err != nil {
		return payroll.Totals{}, err
	}
	return payroll.Totals{
		TotalMinutes:    t.TotalMinutes,
		BreakMinutes:    t.BreakMinutes,
		NetMinutes:      t.NetMinutes,
		NightMinutes:    t.NightMinutes,
		OvertimeMinutes: t.OvertimeMinutes,
		Base:            t.Base,
		Night:           t.Night,
		Overtime:        t.Overtime,
		Holiday:         t.Holiday,
		Transport:       t.Transport,
		Total:           t.Total,
	}, nil
}

type reportScanner struct {
	report payroll.MonthlyReport
	year   int
	month  int
	status string
	totals []byte
}

func (s *reportScanner) finish() (payroll.MonthlyReport, error) {
	s.report.Period = payroll.Period{Year: s.year, Month: time.Month(s.month)}
	s.report.Status = payroll.ReportStatus(s.status)
	totals, err := decodeTotals(s.totals)
	if err != nil {
		return payroll.MonthlyReport{}, fmt.Errorf("decode totals of report %s: %w", s.report.ID, err)
	}
	s.report.Totals = totals
	return s.report, nil
}

const reportSelect = `
	SELECT r.id, r.organization_id, r.employee_id, r.year, r.month, r.totals, r.payable_total,
		r.work_days, r.timecard_count, r.shift_ids, r.status, r.version,
		r.approved_at, r.approved_by, r.created_at, r.updated_at, e.full_name
	FROM monthly_reports r
	LEFT JOIN employees e ON e.id = r.employee_id`

func scanReport(row pgx.Row) (payroll.MonthlyReport, error) {
	var s reportScanner
	err := row.Scan(
		&s.report.ID, &s.report.OrganizationID, &s.report.EmployeeID, &s.year, &s.month, &s.totals, &s.report.PayableTotal,
		&s.report.WorkDays, &s.report.TimecardCount, &s.report.ShiftIDs, &s.status, &s.report.Version,
		&s.report.ApprovedAt, &s.report.ApprovedBy, &s.report.CreatedAt, &s.report.UpdatedAt, &s.report.EmployeeName,
	)
	if err != nil {
		return payroll.MonthlyReport{}, err
	}
	return s.finish()
}

func (r *reportRepository) GetReport(ctx context.Context, organizationID, employeeID string, period payroll.Period) (payroll.MonthlyReport, error) {
	q := GetQuerier(ctx, r.db)

	query := reportSelect + `
		WHERE r.organization_id = $1 AND r.employee_id = $2 AND r.year = $3 AND r.month = $4
	`

	report, err := scanReport(q.QueryRow(ctx, query, organizationID, employeeID, period.Year, int(period.Month)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.MonthlyReport{}, payroll.ErrReportNotFound
		}
		return payroll.MonthlyReport{}, fmt.Errorf("failed to get monthly report: %w", err)
	}
	return report, nil
}

// WriteMonthlyReport overwrites the current report and appends the version to
// history. The write only lands if the stored version is the one directly
// preceding report.Version.
func (r *reportRepository) WriteMonthlyReport(ctx context.Context, report payroll.MonthlyReport) (payroll.MonthlyReport, error) {
	totals, err := encodeTotals(report.Totals)
	if err != nil {
		return payroll.MonthlyReport{}, fmt.Errorf("encode totals: %w", err)
	}
	if report.ID == "" {
		report.ID = uuid.Must(uuid.NewV7()).String()
	}
	if report.ShiftIDs == nil {
		report.ShiftIDs = []string{}
	}

	err = WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		upsert := `
			INSERT INTO monthly_reports (
				id, organization_id, employee_id, year, month, totals, payable_total,
				work_days, timecard_count, shift_ids, status, version, approved_at, approved_by
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (organization_id, employee_id, year, month) DO UPDATE SET
				totals = EXCLUDED.totals,
				payable_total = EXCLUDED.payable_total,
				work_days = EXCLUDED.work_days,
				timecard_count = EXCLUDED.timecard_count,
				shift_ids = EXCLUDED.shift_ids,
				status = EXCLUDED.status,
				version = EXCLUDED.version,
				approved_at = EXCLUDED.approved_at,
				approved_by = EXCLUDED.approved_by,
				updated_at = NOW()
			WHERE monthly_reports.version = EXCLUDED.version - 1
			RETURNING id, created_at, updated_at
		`

		err := tx.QueryRow(ctx, upsert,
			report.ID, report.OrganizationID, report.EmployeeID, report.Period.Year, int(report.Period.Month),
			totals, report.PayableTotal, report.WorkDays, report.TimecardCount, report.ShiftIDs,
			string(report.Status), report.Version, report.ApprovedAt, report.ApprovedBy,
		).Scan(&report.ID, &report.CreatedAt, &report.UpdatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return payroll.ErrReportVersionConflict
			}
			return fmt.Errorf("failed to upsert monthly report: %w", err)
		}

		history := `
			INSERT INTO monthly_report_versions (
				report_id, version, organization_id, employee_id, year, month, totals, payable_total,
				work_days, timecard_count, shift_ids, status, approved_at, approved_by
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		`

		_, err = tx.Exec(ctx, history,
			report.ID, report.Version, report.OrganizationID, report.EmployeeID, report.Period.Year, int(report.Period.Month),
			totals, report.PayableTotal, report.WorkDays, report.TimecardCount, report.ShiftIDs,
			string(report.Status), report.ApprovedAt, report.ApprovedBy,
		)
		if err != nil {
			return fmt.Errorf("failed to record report version: %w", err)
		}
		return nil
	})
	if err != nil {
		return payroll.MonthlyReport{}, err
	}
	return report, nil
}

func (r *reportRepository) ListReports(ctx context.Context, organizationID string, period payroll.Period) ([]payroll.MonthlyReport, error) {
	q := GetQuerier(ctx, r.db)

	query := reportSelect + `
		WHERE r.organization_id = $1 AND r.year = $2 AND r.month = $3
		ORDER BY e.full_name NULLS LAST, r.employee_id
	`

	rows, err := q.Query(ctx, query, organizationID, period.Year, int(period.Month))
	if err != nil {
		return nil, fmt.Errorf("failed to list monthly reports: %w", err)
	}
	defer rows.Close()

	var reports []payroll.MonthlyReport
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan monthly report: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func (r *reportRepository) ListReportVersions(ctx context.Context, organizationID, employeeID string, period payroll.Period) ([]payroll.MonthlyReport, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT v.report_id, v.organization_id, v.employee_id, v.year, v.month, v.totals, v.payable_total,
			v.work_days, v.timecard_count, v.shift_ids, v.status, v.version,
			v.approved_at, v.approved_by, v.created_at, v.created_at, e.full_name
		FROM monthly_report_versions v
		LEFT JOIN employees e ON e.id = v.employee_id
		WHERE v.organization_id = $1 AND v.employee_id = $2 AND v.year = $3 AND v.month = $4
		ORDER BY v.version
	`

	rows, err := q.Query(ctx, query, organizationID, employeeID, period.Year, int(period.Month))
	if err != nil {
		return nil, fmt.Errorf("failed to list report versions: %w", err)
	}
	defer rows.Close()

	var versions []payroll.MonthlyReport
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report version: %w", err)
		}
		versions = append(versions, report)
	}
	return versions, rows.Err()
}
