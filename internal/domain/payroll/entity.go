package payroll

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Breakdown - Time and money computed for one shift. Monetary fields are exact;
// rounding happens only on aggregated totals.
type Breakdown struct {
	TotalMinutes    int
	BreakMinutes    int
	NetMinutes      int
	NightMinutes    int
	OvertimeMinutes int
	IsHoliday       bool
	HourlyWage      decimal.Decimal
	Base            decimal.Decimal
	Night           decimal.Decimal
	Overtime        decimal.Decimal
	Holiday         decimal.Decimal
	Transport       decimal.Decimal
	Total           decimal.Decimal
}

// Totals - Exact sums of many breakdowns.
type Totals struct {
	TotalMinutes    int
	BreakMinutes    int
	NetMinutes      int
	NightMinutes    int
	OvertimeMinutes int
	Base            decimal.Decimal
	Night           decimal.Decimal
	Overtime        decimal.Decimal
	Holiday         decimal.Decimal
	Transport       decimal.Decimal
	Total           decimal.Decimal
}

func (t *Totals) Add(b Breakdown) {
	t.TotalMinutes += b.TotalMinutes
	t.BreakMinutes += b.BreakMinutes
	t.NetMinutes += b.NetMinutes
	t.NightMinutes += b.NightMinutes
	t.OvertimeMinutes += b.OvertimeMinutes
	t.Base = t.Base.Add(b.Base)
	t.Night = t.Night.Add(b.Night)
	t.Overtime = t.Overtime.Add(b.Overtime)
	t.Holiday = t.Holiday.Add(b.Holiday)
	t.Transport = t.Transport.Add(b.Transport)
	t.Total = t.Total.Add(b.Total)
}

// Payable is the summed total rounded to a whole currency unit.
func (t Totals) Payable() decimal.Decimal {
	return t.Total.Round(0)
}

// ShiftBreakdown pairs a shift with its computed breakdown.
type ShiftBreakdown struct {
	ShiftID   string
	DateKey   string
	Breakdown Breakdown
}

// DayGroup - Shifts of one employee on one calendar day, for display.
type DayGroup struct {
	DateKey string
	Shifts  []ShiftBreakdown
	Totals  Totals
}

// AggregatedApplication - Candidate totals for one employee's pending shifts.
type AggregatedApplication struct {
	EmployeeID    string
	EmployeeName  string
	Days          []DayGroup
	Totals        Totals
	PayableTotal  decimal.Decimal
	WorkDays      int
	TimecardCount int
}

// ShiftIDs lists every shift contributing to the application, in day order.
func (a AggregatedApplication) ShiftIDs() []string {
	ids := make([]string, 0, a.TimecardCount)
	for _, d := range a.Days {
		for _, s := range d.Shifts {
			ids = append(ids, s.ShiftID)
		}
	}
	return ids
}

// Period - A calendar month.
type Period struct {
	Year  int
	Month time.Month
}

// ParsePeriod parses "YYYY-MM".
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

// PeriodOf returns the month containing a YYYY-MM-DD date key.
func PeriodOf(dateKey string) (Period, error) {
	t, err := time.Parse("2006-01-02", dateKey)
	if err != nil {
		return Period{}, fmt.Errorf("%w: date key %q", ErrInvalidPeriod, dateKey)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

func (p Period) Valid() bool {
	return p.Year > 0 && p.Month >= time.January && p.Month <= time.December
}

// Range returns the first and last date keys of the month.
func (p Period) Range() (string, string) {
	first := time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first.Format("2006-01-02"), last.Format("2006-01-02")
}

// Contains reports whether dateKey falls inside the month.
func (p Period) Contains(dateKey string) bool {
	other, err := PeriodOf(dateKey)
	return err == nil && other == p
}

// ReportStatus enum
type ReportStatus string

const (
	ReportStatusConfirmed ReportStatus = "confirmed"
)

// MonthlyReport - Approved totals for one employee and month. Every approval
// writes a new version recomputed from the approved shifts themselves.
type MonthlyReport struct {
	ID             string
	OrganizationID string
	EmployeeID     string
	Period         Period
	Totals         Totals
	PayableTotal   decimal.Decimal
	WorkDays       int
	TimecardCount  int
	ShiftIDs       []string
	Status         ReportStatus
	Version        int
	ApprovedAt     time.Time
	ApprovedBy     string
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// Joined fields
	EmployeeName *string
}

// ReportKey identifies the single-writer scope of a monthly report.
type ReportKey struct {
	OrganizationID string
	EmployeeID     string
	Period         Period
}

func (k ReportKey) String() string {
	return fmt.Sprintf("payroll:report:%s:%s:%s", k.OrganizationID, k.EmployeeID, k.Period)
}
