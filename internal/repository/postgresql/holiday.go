package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/database"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/holiday"
	holidaysvc "github.com/cmlabs-hris/timecard-payroll/internal/service/holiday"
	"github.com/google/uuid"
)

type holidayRepository struct {
	db *database.DB
}

func NewHolidayRepository(db *database.DB) holidaysvc.Repository {
	return &holidayRepository{db: db}
}

func (r *holidayRepository) ListHolidayRules(ctx context.Context, organizationID string) ([]holiday.Rule, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, organization_id, name, date, recurrence_rule
		FROM holiday_rules
		WHERE organization_id = $1
		ORDER BY date, name
	`

	rows, err := q.Query(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holiday rules: %w", err)
	}
	defer rows.Close()

	var rules []holiday.Rule
	for rows.Next() {
		var rule holiday.Rule
		if err := rows.Scan(&rule.ID, &rule.OrganizationID, &rule.Name, &rule.Date, &rule.RecurrenceRule); err != nil {
			return nil, fmt.Errorf("failed to scan holiday rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *holidayRepository) CreateHolidayRule(ctx context.Context, rule holiday.Rule) (holiday.Rule, error) {
	q := GetQuerier(ctx, r.db)

	if rule.ID == "" {
		rule.ID = uuid.Must(uuid.NewV7()).String()
	}

	query := `
		INSERT INTO holiday_rules (id, organization_id, name, date, recurrence_rule)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := q.Exec(ctx, query, rule.ID, rule.OrganizationID, rule.Name, rule.Date, rule.RecurrenceRule); err != nil {
		return holiday.Rule{}, fmt.Errorf("failed to create holiday rule: %w", err)
	}
	return rule, nil
}

func (r *holidayRepository) DeleteHolidayRule(ctx context.Context, id, organizationID string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM holiday_rules WHERE id = $1 AND organization_id = $2`, id, organizationID)
	if err != nil {
		return fmt.Errorf("failed to delete holiday rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return holidaysvc.ErrRuleNotFound
	}
	return nil
}
