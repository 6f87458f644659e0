package holiday

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

const layout = "2006-01-02"

// Calendar answers whether a local calendar day is a regional holiday.
type Calendar interface {
	IsHoliday(day time.Time) bool
}

// Rule is one configured holiday. Date is the first (or only) occurrence;
// RecurrenceRule, when set, is an RFC 5545 RRULE anchored at Date.
type Rule struct {
	ID             string
	OrganizationID string
	Name           string
	Date           string
	RecurrenceRule *string
}

type none struct{}

func (none) IsHoliday(time.Time) bool { return false }

// None is a calendar without holidays.
var None Calendar = none{}

// Set is a calendar backed by a day-key lookup table.
type Set struct {
	days map[string]string
}

// NewSet expands rules into the concrete days falling inside [from, to].
func NewSet(rules []Rule, from, to time.Time) (*Set, error) {
	from = truncateDay(from)
	to = truncateDay(to)
	s := &Set{days: make(map[string]string)}

	for _, rule := range rules {
		start, err := time.Parse(layout, rule.Date)
		if err != nil {
			return nil, fmt.Errorf("holiday %q: invalid date %q: %w", rule.Name, rule.Date, err)
		}

		if rule.RecurrenceRule == nil || *rule.RecurrenceRule == "" {
			if !start.Before(from) && !start.After(to) {
				s.days[rule.Date] = rule.Name
			}
			continue
		}

		opt, err := rrule.StrToROption(*rule.RecurrenceRule)
		if err != nil {
			return nil, fmt.Errorf("holiday %q: invalid recurrence rule: %w", rule.Name, err)
		}
		opt.Dtstart = start

		rr, err := rrule.NewRRule(*opt)
		if err != nil {
			return nil, fmt.Errorf("holiday %q: invalid recurrence rule: %w", rule.Name, err)
		}

		for _, occurrence := range rr.Between(from, to, true) {
			s.days[occurrence.Format(layout)] = rule.Name
		}
	}

	return s, nil
}

func (s *Set) IsHoliday(day time.Time) bool {
	_, ok := s.days[day.Format(layout)]
	return ok
}

// Name returns the holiday name for day, if any.
func (s *Set) Name(day time.Time) (string, bool) {
	name, ok := s.days[day.Format(layout)]
	return name, ok
}

func (s *Set) Len() int {
	return len(s.days)
}

// Union reports a holiday when any member does.
type Union []Calendar

func (u Union) IsHoliday(day time.Time) bool {
	for _, c := range u {
		if c != nil && c.IsHoliday(day) {
			return true
		}
	}
	return false
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
