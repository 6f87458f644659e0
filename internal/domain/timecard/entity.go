package timecard

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDraft    Status = "draft"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// DefaultMaxBreaks bounds the number of breaks per shift when no limit is configured.
const DefaultMaxBreaks = 5

// DateKeyLayout is the layout of ShiftRecord.DateKey.
const DateKeyLayout = "2006-01-02"

var transitions = map[Status][]Status{
	StatusDraft:   {StatusPending},
	StatusPending: {StatusApproved, StatusRejected},
}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further status change is possible.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// BreakPeriod - A pause inside a shift. EndAt is nil while the break is open.
type BreakPeriod struct {
	StartAt time.Time  `json:"start_at"`
	EndAt   *time.Time `json:"end_at,omitempty"`
}

func (b BreakPeriod) Open() bool {
	return b.EndAt == nil
}

// Duration is zero for an open break.
func (b BreakPeriod) Duration() time.Duration {
	if b.EndAt == nil {
		return 0
	}
	return b.EndAt.Sub(b.StartAt)
}

// ShiftRecord - One clock-in to clock-out episode for one employee on one calendar day.
type ShiftRecord struct {
	ID              string
	OrganizationID  string
	EmployeeID      string
	DateKey         string
	ClockIn         *time.Time
	ClockOut        *time.Time
	Breaks          []BreakPeriod
	HourlyWage      *decimal.Decimal
	Status          Status
	ApprovedAt      *time.Time
	ApprovedBy      *string
	RejectionReason *string
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// Joined
	EmployeeName *string
}

// Completed reports whether both ends of the worked interval are recorded.
func (s ShiftRecord) Completed() bool {
	return s.ClockIn != nil && s.ClockOut != nil
}

// OpenBreak returns the break currently in progress, if any.
func (s *ShiftRecord) OpenBreak() *BreakPeriod {
	if n := len(s.Breaks); n > 0 && s.Breaks[n-1].Open() {
		return &s.Breaks[n-1]
	}
	return nil
}

// DisplayName falls back to the employee ID when no name was joined.
func (s ShiftRecord) DisplayName() string {
	if s.EmployeeName != nil && *s.EmployeeName != "" {
		return *s.EmployeeName
	}
	return s.EmployeeID
}

// Clone returns a copy that shares no mutable state with s.
func (s ShiftRecord) Clone() ShiftRecord {
	c := s
	if s.Breaks != nil {
		c.Breaks = make([]BreakPeriod, len(s.Breaks))
		copy(c.Breaks, s.Breaks)
	}
	return c
}
