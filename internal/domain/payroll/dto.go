package payroll

import (
	"time"

	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== REQUEST DTOs ==========

type PreviewRequest struct {
	From       string     `json:"from" validate:"required,datekey"`
	To         string     `json:"to" validate:"required,datekey"`
	EmployeeID string     `json:"employee_id" validate:"omitempty,uuid"`
	CloseAt    *time.Time `json:"close_at,omitempty"`
}

func (r *PreviewRequest) Validate() error {
	if err := validator.Struct(r); err != nil {
		return err
	}
	if r.From > r.To {
		return validator.ValidationErrors{{Field: "to", Message: "must not be before from"}}
	}
	return nil
}

type ApproveShiftsRequest struct {
	ShiftIDs []string `json:"shift_ids" validate:"required,min=1,max=500,dive,uuid"`
}

func (r *ApproveShiftsRequest) Validate() error {
	return validator.Struct(r)
}

type RebuildReportRequest struct {
	EmployeeID string `json:"employee_id" validate:"required,uuid"`
	Period     string `json:"period" validate:"required,yearmonth"`
}

func (r *RebuildReportRequest) Validate() error {
	return validator.Struct(r)
}

type ReportFilter struct {
	EmployeeID string `json:"employee_id" validate:"omitempty,uuid"`
	Period     string `json:"period" validate:"required,yearmonth"`
}

func (f *ReportFilter) Validate() error {
	return validator.Struct(f)
}

// ========== RESPONSE DTOs ==========

type BreakdownResponse struct {
	TotalMinutes    int             `json:"total_minutes"`
	BreakMinutes    int             `json:"break_minutes"`
	NetMinutes      int             `json:"net_minutes"`
	NightMinutes    int             `json:"night_minutes"`
	OvertimeMinutes int             `json:"overtime_minutes"`
	IsHoliday       bool            `json:"is_holiday"`
	HourlyWage      decimal.Decimal `json:"hourly_wage"`
	Base            decimal.Decimal `json:"base"`
	Night           decimal.Decimal `json:"night"`
	Overtime        decimal.Decimal `json:"overtime"`
	Holiday         decimal.Decimal `json:"holiday"`
	Transport       decimal.Decimal `json:"transport"`
	Total           decimal.Decimal `json:"total"`
}

func NewBreakdownResponse(b Breakdown) BreakdownResponse {
	return BreakdownResponse{
		TotalMinutes:    b.TotalMinutes,
		BreakMinutes:    b.BreakMinutes,
		NetMinutes:      b.NetMinutes,
		NightMinutes:    b.NightMinutes,
		OvertimeMinutes: b.OvertimeMinutes,
		IsHoliday:       b.IsHoliday,
		HourlyWage:      b.HourlyWage,
		Base:            b.Base,
		Night:           b.Night,
		Overtime:        b.Overtime,
		Holiday:         b.Holiday,
		Transport:       b.Transport,
		Total:           b.Total,
	}
}

type TotalsResponse struct {
	TotalMinutes    int             `json:"total_minutes"`
	BreakMinutes    int             `json:"break_minutes"`
	NetMinutes      int             `json:"net_minutes"`
	NightMinutes    int             `json:"night_minutes"`
	OvertimeMinutes int             `json:"overtime_minutes"`
	Base            decimal.Decimal `json:"base"`
	Night           decimal.Decimal `json:"night"`
	Overtime        decimal.Decimal `json:"overtime"`
	Holiday         decimal.Decimal `json:"holiday"`
	Transport       decimal.Decimal `json:"transport"`
	Total           decimal.Decimal `json:"total"`
}

func NewTotalsResponse(t Totals) TotalsResponse {
	return TotalsResponse{
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
	}
}

type ShiftBreakdownResponse struct {
	ShiftID   string            `json:"shift_id"`
	Breakdown BreakdownResponse `json:"breakdown"`
}

type DayGroupResponse struct {
	DateKey string                   `json:"date_key"`
	Shifts  []ShiftBreakdownResponse `json:"shifts"`
	Totals  TotalsResponse           `json:"totals"`
}

type AggregatedApplicationResponse struct {
	EmployeeID    string             `json:"employee_id"`
	EmployeeName  string             `json:"employee_name"`
	Days          []DayGroupResponse `json:"days"`
	Totals        TotalsResponse     `json:"totals"`
	PayableTotal  decimal.Decimal    `json:"payable_total"`
	WorkDays      int                `json:"work_days"`
	TimecardCount int                `json:"timecard_count"`
}

func NewAggregatedApplicationResponse(a AggregatedApplication) AggregatedApplicationResponse {
	days := make([]DayGroupResponse, 0, len(a.Days))
	for _, d := range a.Days {
		shifts := make([]ShiftBreakdownResponse, 0, len(d.Shifts))
		for _, s := range d.Shifts {
			shifts = append(shifts, ShiftBreakdownResponse{ShiftID: s.ShiftID, Breakdown: NewBreakdownResponse(s.Breakdown)})
		}
		days = append(days, DayGroupResponse{DateKey: d.DateKey, Shifts: shifts, Totals: NewTotalsResponse(d.Totals)})
	}
	return AggregatedApplicationResponse{
		EmployeeID:    a.EmployeeID,
		EmployeeName:  a.EmployeeName,
		Days:          days,
		Totals:        NewTotalsResponse(a.Totals),
		PayableTotal:  a.PayableTotal,
		WorkDays:      a.WorkDays,
		TimecardCount: a.TimecardCount,
	}
}

type PreviewResponse struct {
	Applications       []AggregatedApplicationResponse `json:"applications"`
	InProgressShiftIDs []string                        `json:"in_progress_shift_ids"`
}

type MonthlyReportResponse struct {
	ID            string          `json:"id"`
	EmployeeID    string          `json:"employee_id"`
	EmployeeName  *string         `json:"employee_name,omitempty"`
	Period        string          `json:"period"`
	Totals        TotalsResponse  `json:"totals"`
	PayableTotal  decimal.Decimal `json:"payable_total"`
	WorkDays      int             `json:"work_days"`
	TimecardCount int             `json:"timecard_count"`
	ShiftIDs      []string        `json:"shift_ids"`
	Status        ReportStatus    `json:"status"`
	Version       int             `json:"version"`
	ApprovedAt    time.Time       `json:"approved_at"`
	ApprovedBy    string          `json:"approved_by"`
}

func NewMonthlyReportResponse(r MonthlyReport) MonthlyReportResponse {
	return MonthlyReportResponse{
		ID:            r.ID,
		EmployeeID:    r.EmployeeID,
		EmployeeName:  r.EmployeeName,
		Period:        r.Period.String(),
		Totals:        NewTotalsResponse(r.Totals),
		PayableTotal:  r.PayableTotal,
		WorkDays:      r.WorkDays,
		TimecardCount: r.TimecardCount,
		ShiftIDs:      r.ShiftIDs,
		Status:        r.Status,
		Version:       r.Version,
		ApprovedAt:    r.ApprovedAt,
		ApprovedBy:    r.ApprovedBy,
	}
}

type ApproveShiftsResponse struct {
	ApprovedShiftIDs []string                `json:"approved_shift_ids"`
	Reports          []MonthlyReportResponse `json:"reports"`
}

type LiveBreakdownResponse struct {
	ShiftID      string            `json:"shift_id"`
	EmployeeID   string            `json:"employee_id"`
	EmployeeName string            `json:"employee_name"`
	DateKey      string            `json:"date_key"`
	OnBreak      bool              `json:"on_break"`
	Breakdown    BreakdownResponse `json:"breakdown"`
	ComputedAt   time.Time         `json:"computed_at"`
}
