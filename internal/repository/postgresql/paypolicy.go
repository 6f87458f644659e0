package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/timecard-payroll/internal/domain/paypolicy"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type payPolicyRepository struct {
	db *database.DB
}

func NewPayPolicyRepository(db *database.DB) paypolicy.PayPolicyRepository {
	return &payPolicyRepository{db: db}
}

const payPolicyColumns = `
	id, organization_id, default_hourly_wage, timezone,
	night_enabled, night_rate, night_window_start, night_window_end,
	overtime_enabled, overtime_rate, overtime_daily_threshold_minutes,
	holiday_enabled, holiday_rate, holiday_includes_weekend,
	transport_enabled, transport_default_per_shift,
	created_at, updated_at`

func scanPayPolicy(row pgx.Row) (paypolicy.PayPolicy, error) {
	var p paypolicy.PayPolicy
	var nightStart, nightEnd int
	err := row.Scan(
		&p.ID, &p.OrganizationID, &p.DefaultHourlyWage, &p.Timezone,
		&p.NightPremium.Enabled, &p.NightPremium.Rate, &nightStart, &nightEnd,
		&p.OvertimePremium.Enabled, &p.OvertimePremium.Rate, &p.OvertimePremium.DailyThresholdMinutes,
		&p.HolidayPremium.Enabled, &p.HolidayPremium.Rate, &p.HolidayPremium.IncludesWeekend,
		&p.TransportAllowance.Enabled, &p.TransportAllowance.DefaultPerShift,
		&p.CreatedAt, &p.UpdatedAt,
	)
	p.NightPremium.WindowStart = paypolicy.TimeOfDay(nightStart)
	p.NightPremium.WindowEnd = paypolicy.TimeOfDay(nightEnd)
	return p, err
}

// ========== POLICY ==========

func (r *payPolicyRepository) GetPayPolicy(ctx context.Context, organizationID string) (paypolicy.PayPolicy, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payPolicyColumns + ` FROM pay_policies WHERE organization_id = $1`

	p, err := scanPayPolicy(q.QueryRow(ctx, query, organizationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return paypolicy.PayPolicy{}, paypolicy.ErrPolicyMissing
		}
		return paypolicy.PayPolicy{}, fmt.Errorf("failed to get pay policy: %w", err)
	}
	return p, nil
}

func (r *payPolicyRepository) UpsertPayPolicy(ctx context.Context, policy paypolicy.PayPolicy) (paypolicy.PayPolicy, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO pay_policies (
			id, organization_id, default_hourly_wage, timezone,
			night_enabled, night_rate, night_window_start, night_window_end,
			overtime_enabled, overtime_rate, overtime_daily_threshold_minutes,
			holiday_enabled, holiday_rate, holiday_includes_weekend,
			transport_enabled, transport_default_per_shift
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (organization_id) DO UPDATE SET
			default_hourly_wage = EXCLUDED.default_hourly_wage,
			timezone = EXCLUDED.timezone,
			night_enabled = EXCLUDED.night_enabled,
			night_rate = EXCLUDED.night_rate,
			night_window_start = EXCLUDED.night_window_start,
			night_window_end = EXCLUDED.night_window_end,
			overtime_enabled = EXCLUDED.overtime_enabled,
			overtime_rate = EXCLUDED.overtime_rate,
			overtime_daily_threshold_minutes = EXCLUDED.overtime_daily_threshold_minutes,
			holiday_enabled = EXCLUDED.holiday_enabled,
			holiday_rate = EXCLUDED.holiday_rate,
			holiday_includes_weekend = EXCLUDED.holiday_includes_weekend,
			transport_enabled = EXCLUDED.transport_enabled,
			transport_default_per_shift = EXCLUDED.transport_default_per_shift,
			updated_at = NOW()
		RETURNING ` + payPolicyColumns

	id := policy.ID
	if id == "" {
		id = uuid.Must(uuid.NewV7()).String()
	}

	saved, err := scanPayPolicy(q.QueryRow(ctx, query,
		id, policy.OrganizationID, policy.DefaultHourlyWage, policy.Timezone,
		policy.NightPremium.Enabled, policy.NightPremium.Rate, int(policy.NightPremium.WindowStart), int(policy.NightPremium.WindowEnd),
		policy.OvertimePremium.Enabled, policy.OvertimePremium.Rate, policy.OvertimePremium.DailyThresholdMinutes,
		policy.HolidayPremium.Enabled, policy.HolidayPremium.Rate, policy.HolidayPremium.IncludesWeekend,
		policy.TransportAllowance.Enabled, policy.TransportAllowance.DefaultPerShift,
	))
	if err != nil {
		return paypolicy.PayPolicy{}, fmt.Errorf("failed to upsert pay policy: %w", err)
	}
	return saved, nil
}

// ========== OVERRIDES ==========

func (r *payPolicyRepository) GetEmployeeOverride(ctx context.Context, organizationID, employeeID string) (paypolicy.EmployeePayOverride, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT organization_id, employee_id, hourly_wage, transport_allowance_per_shift, updated_at
		FROM employee_pay_overrides
		WHERE organization_id = $1 AND employee_id = $2
	`

	var o paypolicy.EmployeePayOverride
	err := q.QueryRow(ctx, query, organizationID, employeeID).Scan(
		&o.OrganizationID, &o.EmployeeID, &o.HourlyWage, &o.TransportAllowancePerShift, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return paypolicy.EmployeePayOverride{}, paypolicy.ErrOverrideNotFound
		}
		return paypolicy.EmployeePayOverride{}, fmt.Errorf("failed to get pay override: %w", err)
	}
	return o, nil
}

func (r *payPolicyRepository) ListEmployeeOverrides(ctx context.Context, organizationID string, employeeIDs []string) ([]paypolicy.EmployeePayOverride, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT organization_id, employee_id, hourly_wage, transport_allowance_per_shift, updated_at
		FROM employee_pay_overrides
		WHERE organization_id = $1 AND employee_id = ANY($2::uuid[])
	`

	rows, err := q.Query(ctx, query, organizationID, employeeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list pay overrides: %w", err)
	}
	defer rows.Close()

	var overrides []paypolicy.EmployeePayOverride
	for rows.Next() {
		var o paypolicy.EmployeePayOverride
		if err := rows.Scan(&o.OrganizationID, &o.EmployeeID, &o.HourlyWage, &o.TransportAllowancePerShift, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pay override: %w", err)
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

func (r *payPolicyRepository) UpsertEmployeeOverride(ctx context.Context, override paypolicy.EmployeePayOverride) (paypolicy.EmployeePayOverride, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO employee_pay_overrides (organization_id, employee_id, hourly_wage, transport_allowance_per_shift)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (organization_id, employee_id) DO UPDATE SET
			hourly_wage = EXCLUDED.hourly_wage,
			transport_allowance_per_shift = EXCLUDED.transport_allowance_per_shift,
			updated_at = NOW()
		RETURNING organization_id, employee_id, hourly_wage, transport_allowance_per_shift, updated_at
	`

	var o paypolicy.EmployeePayOverride
	err := q.QueryRow(ctx, query,
		override.OrganizationID, override.EmployeeID, override.HourlyWage, override.TransportAllowancePerShift,
	).Scan(&o.OrganizationID, &o.EmployeeID, &o.HourlyWage, &o.TransportAllowancePerShift, &o.UpdatedAt)
	if err != nil {
		return paypolicy.EmployeePayOverride{}, fmt.Errorf("failed to upsert pay override: %w", err)
	}
	return o, nil
}
