package paypolicy

import (
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== POLICY DTOs ==========

type NightPremiumPayload struct {
	Enabled     bool            `json:"enabled"`
	Rate        decimal.Decimal `json:"rate"`
	WindowStart string          `json:"window_start" validate:"omitempty,hhmm"`
	WindowEnd   string          `json:"window_end" validate:"omitempty,hhmm"`
}

type OvertimePremiumPayload struct {
	Enabled               bool            `json:"enabled"`
	Rate                  decimal.Decimal `json:"rate"`
	DailyThresholdMinutes int             `json:"daily_threshold_minutes" validate:"gte=0,max=1440"`
}

type HolidayPremiumPayload struct {
	Enabled         bool            `json:"enabled"`
	Rate            decimal.Decimal `json:"rate"`
	IncludesWeekend bool            `json:"includes_weekend"`
}

type TransportAllowancePayload struct {
	Enabled         bool            `json:"enabled"`
	DefaultPerShift decimal.Decimal `json:"default_per_shift"`
}

type UpdatePayPolicyRequest struct {
	DefaultHourlyWage  decimal.Decimal           `json:"default_hourly_wage"`
	Timezone           string                    `json:"timezone" validate:"omitempty,timezone"`
	NightPremium       NightPremiumPayload       `json:"night_premium"`
	OvertimePremium    OvertimePremiumPayload    `json:"overtime_premium"`
	HolidayPremium     HolidayPremiumPayload     `json:"holiday_premium"`
	TransportAllowance TransportAllowancePayload `json:"transport_allowance"`
}

func (r *UpdatePayPolicyRequest) Validate() error {
	var errs validator.ValidationErrors
	if err := validator.Struct(r); err != nil {
		tagErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		errs = append(errs, tagErrs...)
	}

	if !r.DefaultHourlyWage.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "default_hourly_wage", Message: "must be greater than zero"})
	}
	if r.NightPremium.Rate.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "night_premium.rate", Message: "must be non-negative"})
	}
	if r.NightPremium.Enabled && (r.NightPremium.WindowStart == "" || r.NightPremium.WindowEnd == "") {
		errs = append(errs, validator.ValidationError{Field: "night_premium.window", Message: "window_start and window_end are required when enabled"})
	}
	if r.OvertimePremium.Rate.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "overtime_premium.rate", Message: "must be non-negative"})
	}
	if r.HolidayPremium.Rate.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "holiday_premium.rate", Message: "must be non-negative"})
	}
	if r.TransportAllowance.DefaultPerShift.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "transport_allowance.default_per_shift", Message: "must be non-negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ToEntity converts a validated request into a policy for organizationID.
func (r *UpdatePayPolicyRequest) ToEntity(organizationID string) (PayPolicy, error) {
	policy := PayPolicy{
		OrganizationID:    organizationID,
		DefaultHourlyWage: r.DefaultHourlyWage,
		Timezone:          r.Timezone,
		OvertimePremium: OvertimePremium{
			Enabled:               r.OvertimePremium.Enabled,
			Rate:                  r.OvertimePremium.Rate,
			DailyThresholdMinutes: r.OvertimePremium.DailyThresholdMinutes,
		},
		HolidayPremium: HolidayPremium{
			Enabled:         r.HolidayPremium.Enabled,
			Rate:            r.HolidayPremium.Rate,
			IncludesWeekend: r.HolidayPremium.IncludesWeekend,
		},
		TransportAllowance: TransportAllowance{
			Enabled:         r.TransportAllowance.Enabled,
			DefaultPerShift: r.TransportAllowance.DefaultPerShift,
		},
		NightPremium: NightPremium{
			Enabled: r.NightPremium.Enabled,
			Rate:    r.NightPremium.Rate,
		},
	}
	if policy.Timezone == "" {
		policy.Timezone = DefaultTimezone
	}

	if r.NightPremium.WindowStart != "" {
		start, err := ParseTimeOfDay(r.NightPremium.WindowStart)
		if err != nil {
			return PayPolicy{}, err
		}
		policy.NightPremium.WindowStart = start
	}
	if r.NightPremium.WindowEnd != "" {
		end, err := ParseTimeOfDay(r.NightPremium.WindowEnd)
		if err != nil {
			return PayPolicy{}, err
		}
		policy.NightPremium.WindowEnd = end
	}

	return policy, nil
}

type PayPolicyResponse struct {
	ID                 string                    `json:"id"`
	OrganizationID     string                    `json:"organization_id"`
	DefaultHourlyWage  decimal.Decimal           `json:"default_hourly_wage"`
	Timezone           string                    `json:"timezone"`
	NightPremium       NightPremiumPayload       `json:"night_premium"`
	OvertimePremium    OvertimePremiumPayload    `json:"overtime_premium"`
	HolidayPremium     HolidayPremiumPayload     `json:"holiday_premium"`
	TransportAllowance TransportAllowancePayload `json:"transport_allowance"`
}

func NewPayPolicyResponse(p PayPolicy) PayPolicyResponse {
	return PayPolicyResponse{
		ID:                p.ID,
		OrganizationID:    p.OrganizationID,
		DefaultHourlyWage: p.DefaultHourlyWage,
		Timezone:          p.Timezone,
		NightPremium: NightPremiumPayload{
			Enabled:     p.NightPremium.Enabled,
			Rate:        p.NightPremium.Rate,
			WindowStart: p.NightPremium.WindowStart.String(),
			WindowEnd:   p.NightPremium.WindowEnd.String(),
		},
		OvertimePremium: OvertimePremiumPayload{
			Enabled:               p.OvertimePremium.Enabled,
			Rate:                  p.OvertimePremium.Rate,
			DailyThresholdMinutes: p.OvertimePremium.DailyThresholdMinutes,
		},
		HolidayPremium: HolidayPremiumPayload{
			Enabled:         p.HolidayPremium.Enabled,
			Rate:            p.HolidayPremium.Rate,
			IncludesWeekend: p.HolidayPremium.IncludesWeekend,
		},
		TransportAllowance: TransportAllowancePayload{
			Enabled:         p.TransportAllowance.Enabled,
			DefaultPerShift: p.TransportAllowance.DefaultPerShift,
		},
	}
}

// ========== OVERRIDE DTOs ==========

type UpsertOverrideRequest struct {
	EmployeeID                 string           `json:"-"`
	HourlyWage                 *decimal.Decimal `json:"hourly_wage,omitempty"`
	TransportAllowancePerShift *decimal.Decimal `json:"transport_allowance_per_shift,omitempty"`
}

func (r *UpsertOverrideRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "is required"})
	}
	if r.HourlyWage != nil && !r.HourlyWage.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "hourly_wage", Message: "must be greater than zero"})
	}
	if r.TransportAllowancePerShift != nil && r.TransportAllowancePerShift.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "transport_allowance_per_shift", Message: "must be non-negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type OverrideResponse struct {
	EmployeeID                 string           `json:"employee_id"`
	HourlyWage                 *decimal.Decimal `json:"hourly_wage,omitempty"`
	TransportAllowancePerShift *decimal.Decimal `json:"transport_allowance_per_shift,omitempty"`
}
