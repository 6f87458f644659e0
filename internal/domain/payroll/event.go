package payroll

import (
	"context"
	"time"
)

const (
	EventReportConfirmed = "payroll.report_confirmed"
	EventShiftsRejected  = "payroll.shifts_rejected"
	EventTimecardLive    = "timecard.live"
)

// Event is a change notification for UI refresh and downstream consumers.
// It never carries data the engine depends on.
type Event struct {
	Type           string    `json:"type"`
	OrganizationID string    `json:"organization_id"`
	EmployeeID     string    `json:"employee_id,omitempty"`
	Payload        any       `json:"payload,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Notifier delivers events. Delivery failures must not undo the operation that produced them.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}
