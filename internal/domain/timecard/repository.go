package timecard

import (
	"context"
	"time"
)

// ShiftFilter narrows ListShifts. From and To are inclusive date keys.
type ShiftFilter struct {
	OrganizationID string
	EmployeeID     *string
	From           string
	To             string
	Statuses       []Status
}

// StatusUpdate is one entry of an approval or rejection batch.
type StatusUpdate struct {
	ShiftID         string
	FromStatus      Status
	Status          Status
	ClockOut        *time.Time
	Breaks          []BreakPeriod
	ApprovedAt      *time.Time
	ApprovedBy      *string
	RejectionReason *string
}

// ShiftRepository defines data access for shift records.
// All reads are scoped by organization.
type ShiftRepository interface {
	Create(ctx context.Context, shift ShiftRecord) (ShiftRecord, error)

	GetByID(ctx context.Context, id string, organizationID string) (ShiftRecord, error)

	// GetOpenShift returns the employee's shift that has a clock-in but no clock-out.
	GetOpenShift(ctx context.Context, employeeID string, organizationID string) (ShiftRecord, error)

	// Update persists times, breaks and status of an existing shift, but only
	// while the stored status still equals fromStatus. A shift whose status
	// moved on since it was read yields ErrInvalidTransition.
	Update(ctx context.Context, shift ShiftRecord, fromStatus Status) error

	ListShifts(ctx context.Context, filter ShiftFilter) ([]ShiftRecord, error)

	ListByIDs(ctx context.Context, organizationID string, ids []string) ([]ShiftRecord, error)

	// ListApprovedShifts returns approved shifts for one employee whose date key lies in [from, to].
	ListApprovedShifts(ctx context.Context, organizationID, employeeID, from, to string) ([]ShiftRecord, error)

	// ListInProgress returns every clocked-in, not clocked-out shift of the organization.
	ListInProgress(ctx context.Context, organizationID string) ([]ShiftRecord, error)

	// WriteShiftStatusBatch applies each update only if the shift still holds FromStatus.
	// It returns the IDs that were actually written; the remainder failed.
	WriteShiftStatusBatch(ctx context.Context, organizationID string, updates []StatusUpdate) ([]string, error)
}
