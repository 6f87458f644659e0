package timecard

import (
	"time"

	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========================================
// SHIFT DTOs
// ========================================

type BreakPayload struct {
	StartAt time.Time  `json:"start_at" validate:"required"`
	EndAt   *time.Time `json:"end_at,omitempty"`
}

type CorrectShiftRequest struct {
	ID       string         `json:"-"`
	ClockIn  *time.Time     `json:"clock_in" validate:"required"`
	ClockOut *time.Time     `json:"clock_out,omitempty"`
	Breaks   []BreakPayload `json:"breaks" validate:"max=20,dive"`
}

func (r *CorrectShiftRequest) Validate() error {
	var errs validator.ValidationErrors
	if !validator.IsValidUUID(r.ID) {
		errs = append(errs, validator.ValidationError{Field: "id", Message: "must be a valid UUID"})
	}
	if err := validator.Struct(r); err != nil {
		tagErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		errs = append(errs, tagErrs...)
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// BreakPeriods converts the payload into domain breaks.
func (r *CorrectShiftRequest) BreakPeriods() []BreakPeriod {
	out := make([]BreakPeriod, 0, len(r.Breaks))
	for _, b := range r.Breaks {
		out = append(out, BreakPeriod{StartAt: b.StartAt, EndAt: b.EndAt})
	}
	return out
}

type RejectShiftRequest struct {
	ID     string `json:"-"`
	Reason string `json:"reason" validate:"required,max=500"`
}

func (r *RejectShiftRequest) Validate() error {
	var errs validator.ValidationErrors
	if !validator.IsValidUUID(r.ID) {
		errs = append(errs, validator.ValidationError{Field: "id", Message: "must be a valid UUID"})
	}
	if err := validator.Struct(r); err != nil {
		tagErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		errs = append(errs, tagErrs...)
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ListShiftsFilter struct {
	EmployeeID string `json:"employee_id" validate:"omitempty,uuid"`
	From       string `json:"from" validate:"omitempty,datekey"`
	To         string `json:"to" validate:"omitempty,datekey"`
	Status     string `json:"status" validate:"omitempty,oneof=draft pending approved rejected"`
}

func (f *ListShiftsFilter) Validate() error {
	if err := validator.Struct(f); err != nil {
		return err
	}
	if f.From != "" && f.To != "" && f.From > f.To {
		return validator.ValidationErrors{{Field: "to", Message: "must not be before from"}}
	}
	return nil
}

type BreakResponse struct {
	StartAt time.Time  `json:"start_at"`
	EndAt   *time.Time `json:"end_at,omitempty"`
}

type ShiftResponse struct {
	ID              string           `json:"id"`
	EmployeeID      string           `json:"employee_id"`
	EmployeeName    *string          `json:"employee_name,omitempty"`
	DateKey         string           `json:"date_key"`
	ClockIn         *time.Time       `json:"clock_in,omitempty"`
	ClockOut        *time.Time       `json:"clock_out,omitempty"`
	Breaks          []BreakResponse  `json:"breaks"`
	HourlyWage      *decimal.Decimal `json:"hourly_wage,omitempty"`
	Status          Status           `json:"status"`
	OnBreak         bool             `json:"on_break"`
	ApprovedAt      *time.Time       `json:"approved_at,omitempty"`
	ApprovedBy      *string          `json:"approved_by,omitempty"`
	RejectionReason *string          `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func NewShiftResponse(s ShiftRecord) ShiftResponse {
	breaks := make([]BreakResponse, 0, len(s.Breaks))
	for _, b := range s.Breaks {
		breaks = append(breaks, BreakResponse{StartAt: b.StartAt, EndAt: b.EndAt})
	}
	return ShiftResponse{
		ID:              s.ID,
		EmployeeID:      s.EmployeeID,
		EmployeeName:    s.EmployeeName,
		DateKey:         s.DateKey,
		ClockIn:         s.ClockIn,
		ClockOut:        s.ClockOut,
		Breaks:          breaks,
		HourlyWage:      s.HourlyWage,
		Status:          s.Status,
		OnBreak:         s.OpenBreak() != nil,
		ApprovedAt:      s.ApprovedAt,
		ApprovedBy:      s.ApprovedBy,
		RejectionReason: s.RejectionReason,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

type ListShiftsResponse struct {
	Shifts []ShiftResponse `json:"shifts"`
	Total  int             `json:"total"`
}
