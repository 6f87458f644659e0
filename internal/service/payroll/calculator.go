package payroll

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/timecard-payroll/internal/domain/paypolicy"
	"github.com/cmlabs-hris/timecard-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/timecard-payroll/internal/domain/timecard"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/holiday"
	"github.com/shopspring/decimal"
)

var minutesPerHour = decimal.NewFromInt(60)

// Compute returns the breakdown of a completed shift. It is pure: the same
// inputs always give the same result, and nothing is read from the clock.
func Compute(shift timecard.ShiftRecord, policy *paypolicy.PayPolicy, override *paypolicy.EmployeePayOverride, cal holiday.Calendar) (payroll.Breakdown, error) {
	if shift.ClockOut == nil {
		return payroll.Breakdown{}, fmt.Errorf("compute shift %s: %w", shift.ID, timecard.ErrShiftInProgress)
	}
	return compute(shift, policy, override, cal, *shift.ClockOut)
}

// ComputeLive computes a presentation-only breakdown of an in-progress shift,
// using now in place of the missing clock-out. The result must not be persisted.
func ComputeLive(shift timecard.ShiftRecord, policy *paypolicy.PayPolicy, override *paypolicy.EmployeePayOverride, cal holiday.Calendar, now time.Time) (payroll.Breakdown, error) {
	end := now
	if shift.ClockOut != nil {
		end = *shift.ClockOut
	}
	if shift.ClockIn != nil && end.Before(*shift.ClockIn) {
		end = *shift.ClockIn
	}
	return compute(shift, policy, override, cal, end)
}

func compute(shift timecard.ShiftRecord, policy *paypolicy.PayPolicy, override *paypolicy.EmployeePayOverride, cal holiday.Calendar, end time.Time) (payroll.Breakdown, error) {
	if policy == nil {
		return payroll.Breakdown{}, paypolicy.ErrPolicyMissing
	}
	if shift.ClockIn == nil {
		return payroll.Breakdown{}, fmt.Errorf("compute shift %s: %w", shift.ID, timecard.ErrNotClockedIn)
	}
	if err := shift.Validate(); err != nil {
		return payroll.Breakdown{}, fmt.Errorf("compute shift %s: %w", shift.ID, err)
	}
	if cal == nil {
		cal = holiday.None
	}

	start := *shift.ClockIn
	loc := policy.Location()
	wage := effectiveWage(shift, policy, override)

	var breaks time.Duration
	for _, b := range shift.Breaks {
		breaks += b.Duration()
	}

	b := payroll.Breakdown{
		TotalMinutes: minutes(end.Sub(start)),
		BreakMinutes: minutes(breaks),
		HourlyWage:   wage,
	}
	b.NetMinutes = max(b.TotalMinutes-b.BreakMinutes, 0)
	b.Base = pay(wage, b.NetMinutes)

	if np := policy.NightPremium; np.Enabled {
		b.NightMinutes = nightMinutes(start, end, np, loc)
		b.Night = pay(wage, b.NightMinutes).Mul(np.Rate)
	}

	if op := policy.OvertimePremium; op.Enabled {
		b.OvertimeMinutes = max(b.NetMinutes-op.DailyThresholdMinutes, 0)
		b.Overtime = pay(wage, b.OvertimeMinutes).Mul(op.Rate)
	}

	day, err := time.ParseInLocation(timecard.DateKeyLayout, shift.DateKey, loc)
	if err != nil {
		return payroll.Breakdown{}, fmt.Errorf("compute shift %s: %w", shift.ID, err)
	}
	hp := policy.HolidayPremium
	b.IsHoliday = cal.IsHoliday(day) || (hp.IncludesWeekend && isWeekend(day))
	if hp.Enabled && b.IsHoliday {
		b.Holiday = pay(wage, b.NetMinutes).Mul(hp.Rate)
	}

	if ta := policy.TransportAllowance; ta.Enabled {
		b.Transport = ta.DefaultPerShift
		if override != nil && override.TransportAllowancePerShift != nil {
			b.Transport = *override.TransportAllowancePerShift
		}
	}

	b.Total = b.Base.Add(b.Night).Add(b.Overtime).Add(b.Holiday).Add(b.Transport)
	return b, nil
}

// effectiveWage: shift snapshot, then employee override, then policy default.
func effectiveWage(shift timecard.ShiftRecord, policy *paypolicy.PayPolicy, override *paypolicy.EmployeePayOverride) decimal.Decimal {
	if shift.HourlyWage != nil {
		return *shift.HourlyWage
	}
	if override != nil && override.HourlyWage != nil {
		return *override.HourlyWage
	}
	return policy.DefaultHourlyWage
}

// pay is wage * minutes / 60, multiplied before dividing to keep whole results exact.
func pay(wage decimal.Decimal, mins int) decimal.Decimal {
	if mins == 0 {
		return decimal.Zero
	}
	return wage.Mul(decimal.NewFromInt(int64(mins))).Div(minutesPerHour)
}

func minutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}

func isWeekend(day time.Time) bool {
	wd := day.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// nightMinutes sums the overlap of [start, end) with every occurrence of the
// night window on the local days the shift touches. A window that wraps
// midnight is split into [windowStart, 24:00) and [00:00, windowEnd).
func nightMinutes(start, end time.Time, np paypolicy.NightPremium, loc *time.Location) int {
	if !end.After(start) || np.WindowStart == np.WindowEnd {
		return 0
	}

	type piece struct{ from, to paypolicy.TimeOfDay }
	var pieces []piece
	if np.Wraps() {
		pieces = []piece{{np.WindowStart, 24 * 60}, {0, np.WindowEnd}}
	} else {
		pieces = []piece{{np.WindowStart, np.WindowEnd}}
	}

	ls := start.In(loc)
	le := end.In(loc)
	day := time.Date(ls.Year(), ls.Month(), ls.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -1)
	last := time.Date(le.Year(), le.Month(), le.Day(), 0, 0, 0, 0, loc)

	var total time.Duration
	for !day.After(last) {
		for _, p := range pieces {
			wStart := atTimeOfDay(day, p.from, loc)
			wEnd := atTimeOfDay(day, p.to, loc)
			total += overlap(start, end, wStart, wEnd)
		}
		day = day.AddDate(0, 0, 1)
	}
	return minutes(total)
}

func atTimeOfDay(day time.Time, t paypolicy.TimeOfDay, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), int(t)/60, int(t)%60, 0, 0, loc)
}

func overlap(aStart, aEnd, bStart, bEnd time.Time) time.Duration {
	from := aStart
	if bStart.After(from) {
		from = bStart
	}
	to := aEnd
	if bEnd.Before(to) {
		to = bEnd
	}
	if !to.After(from) {
		return 0
	}
	return to.Sub(from)
}
