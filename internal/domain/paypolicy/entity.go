package paypolicy

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
)

// DefaultTimezone is used when an organization has not configured one.
const DefaultTimezone = "Asia/Tokyo"

// TimeOfDay is a wall-clock time expressed as minutes after local midnight.
type TimeOfDay int

const minutesPerDay = 24 * 60

// ParseTimeOfDay parses "HH:MM" (24h). "24:00" is accepted as end of day.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	if len(s) != 5 || h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return TimeOfDay(h*60 + m), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Duration returns the offset from midnight.
func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t) * time.Minute
}

// Valid reports whether t lies within [00:00, 24:00].
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t <= minutesPerDay
}

type NightPremium struct {
	Enabled     bool
	Rate        decimal.Decimal
	WindowStart TimeOfDay
	WindowEnd   TimeOfDay
}

// Wraps reports whether the window crosses midnight.
func (n NightPremium) Wraps() bool {
	return n.WindowStart > n.WindowEnd
}

type OvertimePremium struct {
	Enabled               bool
	Rate                  decimal.Decimal
	DailyThresholdMinutes int
}

type HolidayPremium struct {
	Enabled         bool
	Rate            decimal.Decimal
	IncludesWeekend bool
}

type TransportAllowance struct {
	Enabled         bool
	DefaultPerShift decimal.Decimal
}

// PayPolicy - Organization wage rules. Treated as an immutable value once loaded.
type PayPolicy struct {
	ID                 string
	OrganizationID     string
	DefaultHourlyWage  decimal.Decimal
	Timezone           string
	NightPremium       NightPremium
	OvertimePremium    OvertimePremium
	HolidayPremium     HolidayPremium
	TransportAllowance TransportAllowance
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Location resolves the policy timezone, falling back to DefaultTimezone and then UTC.
func (p PayPolicy) Location() *time.Location {
	name := p.Timezone
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// EmployeePayOverride - Per-employee values that take precedence over the policy defaults.
type EmployeePayOverride struct {
	OrganizationID             string
	EmployeeID                 string
	HourlyWage                 *decimal.Decimal
	TransportAllowancePerShift *decimal.Decimal
	UpdatedAt                  time.Time
}
