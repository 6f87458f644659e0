package payroll

import (
	"time"

	"github.com/cmlabs-hris/timecard-payroll/internal/domain/paypolicy"
	"github.com/cmlabs-hris/timecard-payroll/internal/domain/timecard"
	"github.com/shopspring/decimal"
)

func at(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr[T any](v T) *T { return &v }

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// flatPolicy pays 1100/h with every premium disabled, evaluated in UTC.
func flatPolicy() *paypolicy.PayPolicy {
	return &paypolicy.PayPolicy{
		OrganizationID:    "org-1",
		DefaultHourlyWage: dec("1100"),
		Timezone:          "UTC",
	}
}

func nightWindow(start, end string) paypolicy.NightPremium {
	s, err := paypolicy.ParseTimeOfDay(start)
	if err != nil {
		panic(err)
	}
	e, err := paypolicy.ParseTimeOfDay(end)
	if err != nil {
		panic(err)
	}
	return paypolicy.NightPremium{Enabled: true, Rate: dec("0.25"), WindowStart: s, WindowEnd: e}
}

type shiftOpt func(*timecard.ShiftRecord)

func withBreak(start, end string) shiftOpt {
	return func(s *timecard.ShiftRecord) {
		b := timecard.BreakPeriod{StartAt: at(start)}
		if end != "" {
			b.EndAt = ptr(at(end))
		}
		s.Breaks = append(s.Breaks, b)
	}
}

func withStatus(status timecard.Status) shiftOpt {
	return func(s *timecard.ShiftRecord) { s.Status = status }
}

func withName(name string) shiftOpt {
	return func(s *timecard.ShiftRecord) { s.EmployeeName = &name }
}

func withWage(w string) shiftOpt {
	return func(s *timecard.ShiftRecord) { s.HourlyWage = ptr(dec(w)) }
}

// newShift builds a pending shift; clockOut "" leaves it in progress.
func newShift(id, employeeID, clockIn, clockOut string, opts ...shiftOpt) timecard.ShiftRecord {
	in := at(clockIn)
	s := timecard.ShiftRecord{
		ID:             id,
		OrganizationID: "org-1",
		EmployeeID:     employeeID,
		DateKey:        in.Format(timecard.DateKeyLayout),
		ClockIn:        &in,
		Status:         timecard.StatusPending,
	}
	if clockOut != "" {
		s.ClockOut = ptr(at(clockOut))
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func approvedShift(id, employeeID, clockIn, clockOut string, opts ...shiftOpt) timecard.ShiftRecord {
	return newShift(id, employeeID, clockIn, clockOut, append(opts, withStatus(timecard.StatusApproved))...)
}
