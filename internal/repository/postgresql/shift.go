package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/timecard-payroll/internal/domain/timecard"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type shiftRepository struct {
	db *database.DB
}

func NewShiftRepository(db *database.DB) timecard.ShiftRepository {
	return &shiftRepository{db: db}
}

const shiftSelect = `
	SELECT s.id, s.organization_id, s.employee_id, s.date_key, s.clock_in, s.clock_out,
		s.breaks, s.hourly_wage, s.status, s.approved_at, s.approved_by, s.rejection_reason,
		s.created_at, s.updated_at, e.full_name
	FROM shifts s
	LEFT JOIN employees e ON e.id = s.employee_id`

// scanShift decodes one row and rejects records that violate the shift invariants.
func scanShift(row pgx.Row) (timecard.ShiftRecord, error) {
	var s timecard.ShiftRecord
	var breaksBytes []byte
	var status string
	err := row.Scan(
		&s.ID, &s.OrganizationID, &s.EmployeeID, &s.DateKey, &s.ClockIn, &s.ClockOut,
		&breaksBytes, &s.HourlyWage, &status, &s.ApprovedAt, &s.ApprovedBy, &s.RejectionReason,
		&s.CreatedAt, &s.UpdatedAt, &s.EmployeeName,
	)
	if err != nil {
		return timecard.ShiftRecord{}, err
	}
	s.Status = timecard.Status(status)
	if len(breaksBytes) > 0 {
		if err := json.Unmarshal(breaksBytes, &s.Breaks); err != nil {
			return timecard.ShiftRecord{}, fmt.Errorf("decode breaks of shift %s: %w", s.ID, err)
		}
	}
	if err := s.Validate(); err != nil {
		return timecard.ShiftRecord{}, fmt.Errorf("stored shift %s: %w", s.ID, err)
	}
	return s, nil
}

func collectShifts(rows pgx.Rows) ([]timecard.ShiftRecord, error) {
	defer rows.Close()

	var shifts []timecard.ShiftRecord
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shifts: %w", err)
	}
	return shifts, nil
}

func marshalBreaks(breaks []timecard.BreakPeriod) ([]byte, error) {
	if breaks == nil {
		breaks = []timecard.BreakPeriod{}
	}
	return json.Marshal(breaks)
}

func (r *shiftRepository) Create(ctx context.Context, shift timecard.ShiftRecord) (timecard.ShiftRecord, error) {
	q := GetQuerier(ctx, r.db)

	if shift.ID == "" {
		shift.ID = uuid.Must(uuid.NewV7()).String()
	}
	breaks, err := marshalBreaks(shift.Breaks)
	if err != nil {
		return timecard.ShiftRecord{}, fmt.Errorf("encode breaks: %w", err)
	}

	query := `
		INSERT INTO shifts (id, organization_id, employee_id, date_key, clock_in, clock_out, breaks, hourly_wage, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err = q.QueryRow(ctx, query,
		shift.ID, shift.OrganizationID, shift.EmployeeID, shift.DateKey,
		shift.ClockIn, shift.ClockOut, breaks, shift.HourlyWage, string(shift.Status),
	).Scan(&shift.CreatedAt, &shift.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "uk_shifts_open_per_employee") {
			return timecard.ShiftRecord{}, timecard.ErrAlreadyClockedIn
		}
		if strings.Contains(err.Error(), "chk_shifts_interval") {
			return timecard.ShiftRecord{}, timecard.ErrInvalidInterval
		}
		return timecard.ShiftRecord{}, fmt.Errorf("failed to create shift: %w", err)
	}
	return shift, nil
}

func (r *shiftRepository) GetByID(ctx context.Context, id string, organizationID string) (timecard.ShiftRecord, error) {
	q := GetQuerier(ctx, r.db)

	s, err := scanShift(q.QueryRow(ctx, shiftSelect+` WHERE s.id = $1 AND s.organization_id = $2`, id, organizationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timecard.ShiftRecord{}, timecard.ErrShiftNotFound
		}
		return timecard.ShiftRecord{}, fmt.Errorf("failed to get shift: %w", err)
	}
	return s, nil
}

func (r *shiftRepository) GetOpenShift(ctx context.Context, employeeID string, organizationID string) (timecard.ShiftRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := shiftSelect + `
		WHERE s.employee_id = $1 AND s.organization_id = $2
			AND s.clock_in IS NOT NULL AND s.clock_out IS NULL
		LIMIT 1
	`

	s, err := scanShift(q.QueryRow(ctx, query, employeeID, organizationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timecard.ShiftRecord{}, timecard.ErrShiftNotFound
		}
		return timecard.ShiftRecord{}, fmt.Errorf("failed to get open shift: %w", err)
	}
	return s, nil
}

func (r *shiftRepository) Update(ctx context.Context, shift timecard.ShiftRecord, fromStatus timecard.Status) error {
	q := GetQuerier(ctx, r.db)

	breaks, err := marshalBreaks(shift.Breaks)
	if err != nil {
		return fmt.Errorf("encode breaks: %w", err)
	}

	query := `
		UPDATE shifts SET
			clock_in = $1, clock_out = $2, breaks = $3, status = $4,
			approved_at = $5, approved_by = $6, rejection_reason = $7,
			updated_at = NOW()
		WHERE id = $8 AND organization_id = $9 AND status = $10
	`

	tag, err := q.Exec(ctx, query,
		shift.ClockIn, shift.ClockOut, breaks, string(shift.Status),
		shift.ApprovedAt, shift.ApprovedBy, shift.RejectionReason,
		shift.ID, shift.OrganizationID, string(fromStatus),
	)
	if err != nil {
		if strings.Contains(err.Error(), "chk_shifts_interval") {
			return timecard.ErrInvalidInterval
		}
		return fmt.Errorf("failed to update shift: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Either the shift is gone or its status changed after it was read.
	var current string
	err = q.QueryRow(ctx, `SELECT status FROM shifts WHERE id = $1 AND organization_id = $2`,
		shift.ID, shift.OrganizationID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timecard.ErrShiftNotFound
		}
		return fmt.Errorf("failed to check shift status: %w", err)
	}
	return fmt.Errorf("%w: shift is now %s", timecard.ErrInvalidTransition, current)
}

func (r *shiftRepository) ListShifts(ctx context.Context, filter timecard.ShiftFilter) ([]timecard.ShiftRecord, error) {
	q := GetQuerier(ctx, r.db)

	conditions := []string{"s.organization_id = $1"}
	args := []any{filter.OrganizationID}
	argIdx := 2

	if filter.EmployeeID != nil {
		conditions = append(conditions, fmt.Sprintf("s.employee_id = $%d", argIdx))
		args = append(args, *filter.EmployeeID)
		argIdx++
	}
	if filter.From != "" {
		conditions = append(conditions, fmt.Sprintf("s.date_key >= $%d", argIdx))
		args = append(args, filter.From)
		argIdx++
	}
	if filter.To != "" {
		conditions = append(conditions, fmt.Sprintf("s.date_key <= $%d", argIdx))
		args = append(args, filter.To)
		argIdx++
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		conditions = append(conditions, fmt.Sprintf("s.status = ANY($%d)", argIdx))
		args = append(args, statuses)
	}

	query := shiftSelect + " WHERE " + strings.Join(conditions, " AND ") +
		" ORDER BY s.date_key, s.employee_id, s.clock_in NULLS LAST, s.id"

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list shifts: %w", err)
	}
	return collectShifts(rows)
}

func (r *shiftRepository) ListByIDs(ctx context.Context, organizationID string, ids []string) ([]timecard.ShiftRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := GetQuerier(ctx, r.db)

	query := shiftSelect + ` WHERE s.organization_id = $1 AND s.id = ANY($2::uuid[]) ORDER BY s.date_key, s.id`

	rows, err := q.Query(ctx, query, organizationID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list shifts by id: %w", err)
	}
	return collectShifts(rows)
}

func (r *shiftRepository) ListApprovedShifts(ctx context.Context, organizationID, employeeID, from, to string) ([]timecard.ShiftRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := shiftSelect + `
		WHERE s.organization_id = $1 AND s.employee_id = $2
			AND s.status = 'approved' AND s.date_key BETWEEN $3 AND $4
		ORDER BY s.date_key, s.clock_in, s.id
	`

	rows, err := q.Query(ctx, query, organizationID, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved shifts: %w", err)
	}
	return collectShifts(rows)
}

func (r *shiftRepository) ListInProgress(ctx context.Context, organizationID string) ([]timecard.ShiftRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := shiftSelect + `
		WHERE s.organization_id = $1 AND s.clock_in IS NOT NULL AND s.clock_out IS NULL
		ORDER BY s.clock_in, s.id
	`

	rows, err := q.Query(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list in-progress shifts: %w", err)
	}
	return collectShifts(rows)
}

// WriteShiftStatusBatch queues one guarded UPDATE per entry. A row whose status
// moved on since it was read simply returns nothing and is reported as not written.
// A hard error aborts the implicit batch transaction, so nothing is reported as written.
func (r *shiftRepository) WriteShiftStatusBatch(ctx context.Context, organizationID string, updates []timecard.StatusUpdate) ([]string, error) {
	if len(updates) == 0 {
		return nil, nil
	}
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE shifts SET
			status = $1,
			clock_out = COALESCE($2, clock_out),
			breaks = COALESCE($3::jsonb, breaks),
			approved_at = $4,
			approved_by = $5,
			rejection_reason = $6,
			updated_at = NOW()
		WHERE id = $7 AND organization_id = $8 AND status = $9
		RETURNING id
	`

	batch := &pgx.Batch{}
	for _, u := range updates {
		var breaks []byte
		if u.Breaks != nil {
			encoded, err := json.Marshal(u.Breaks)
			if err != nil {
				return nil, fmt.Errorf("encode breaks of shift %s: %w", u.ShiftID, err)
			}
			breaks = encoded
		}
		batch.Queue(query,
			string(u.Status), u.ClockOut, breaks, u.ApprovedAt, u.ApprovedBy, u.RejectionReason,
			u.ShiftID, organizationID, string(u.FromStatus),
		)
	}

	results := q.SendBatch(ctx, batch)
	written := make([]string, 0, len(updates))
	for _, u := range updates {
		var id string
		err := results.QueryRow().Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			_ = results.Close()
			return nil, fmt.Errorf("failed to write status of shift %s: %w", u.ShiftID, err)
		}
		written = append(written, id)
	}
	if err := results.Close(); err != nil {
		return nil, fmt.Errorf("failed to commit status batch: %w", err)
	}
	return written, nil
}
