package timecard

import (
	"fmt"
	"time"
)

func (s *ShiftRecord) ensureEditable() error {
	if s.Status != StatusDraft && s.Status != StatusPending {
		return fmt.Errorf("%w: shift is %s", ErrInvalidTransition, s.Status)
	}
	return nil
}

// ClockInAt records the start of the shift.
func (s *ShiftRecord) ClockInAt(at time.Time) error {
	if err := s.ensureEditable(); err != nil {
		return err
	}
	if s.ClockIn != nil {
		return ErrAlreadyClockedIn
	}
	s.ClockIn = &at
	return nil
}

// StartBreak opens a new break at the given instant. maxBreaks <= 0 selects DefaultMaxBreaks.
func (s *ShiftRecord) StartBreak(at time.Time, maxBreaks int) error {
	if err := s.ensureEditable(); err != nil {
		return err
	}
	if s.ClockIn == nil {
		return ErrNotClockedIn
	}
	if s.ClockOut != nil {
		return ErrAlreadyClockedOut
	}
	if s.OpenBreak() != nil {
		return intervalError("start break", ErrBreakAlreadyOpen, "")
	}
	if maxBreaks <= 0 {
		maxBreaks = DefaultMaxBreaks
	}
	if len(s.Breaks) >= maxBreaks {
		return fmt.Errorf("%w: limit is %d", ErrBreakLimitReached, maxBreaks)
	}
	if at.Before(*s.ClockIn) {
		return intervalError("start break", nil, "break starts before clock-in")
	}
	if n := len(s.Breaks); n > 0 && at.Before(*s.Breaks[n-1].EndAt) {
		return intervalError("start break", nil, "break overlaps the previous one")
	}

	s.Breaks = append(s.Breaks, BreakPeriod{StartAt: at})
	return nil
}

// EndBreak closes the open break.
func (s *ShiftRecord) EndBreak(at time.Time) error {
	if err := s.ensureEditable(); err != nil {
		return err
	}
	open := s.OpenBreak()
	if open == nil {
		return ErrNoOpenBreak
	}
	if at.Before(open.StartAt) {
		return intervalError("end break", nil, "break ends before it starts")
	}
	open.EndAt = &at
	return nil
}

// ClockOutAt records the end of the shift. Every break must be closed first.
func (s *ShiftRecord) ClockOutAt(at time.Time) error {
	if err := s.ensureEditable(); err != nil {
		return err
	}
	if s.ClockIn == nil {
		return ErrNotClockedIn
	}
	if s.ClockOut != nil {
		return ErrAlreadyClockedOut
	}
	if s.OpenBreak() != nil {
		return ErrBreakStillOpen
	}
	if !at.After(*s.ClockIn) {
		return intervalError("clock out", nil, "clock-out must be after clock-in")
	}
	s.ClockOut = &at
	return nil
}

// Submit moves a draft to pending so it can be picked up for approval.
func (s *ShiftRecord) Submit() error {
	if !s.Status.CanTransitionTo(StatusPending) {
		return fmt.Errorf("%w: cannot submit a %s shift", ErrInvalidTransition, s.Status)
	}
	if s.ClockIn == nil {
		return ErrNotClockedIn
	}
	s.Status = StatusPending
	return nil
}

// Approve marks a pending shift approved. A shift still in progress is closed
// at the approval instant, together with any open break, so the persisted
// interval is always bounded. It reports whether a clock-out was synthesized.
func (s *ShiftRecord) Approve(at time.Time, approvedBy string) (bool, error) {
	if !s.Status.CanTransitionTo(StatusApproved) {
		return false, fmt.Errorf("%w: cannot approve a %s shift", ErrInvalidTransition, s.Status)
	}
	if s.ClockIn == nil {
		return false, ErrNotClockedIn
	}

	synthesized := false
	if s.ClockOut == nil {
		if !at.After(*s.ClockIn) {
			return false, intervalError("approve", nil, "approval precedes clock-in")
		}
		end := at
		if open := s.OpenBreak(); open != nil {
			if end.Before(open.StartAt) {
				end = open.StartAt
			}
			breakEnd := end
			open.EndAt = &breakEnd
		}
		s.ClockOut = &end
		synthesized = true
	}

	s.Status = StatusApproved
	s.ApprovedAt = &at
	s.ApprovedBy = &approvedBy
	s.RejectionReason = nil
	return synthesized, nil
}

// Reject marks a pending shift rejected with a reason.
func (s *ShiftRecord) Reject(at time.Time, rejectedBy, reason string) error {
	if !s.Status.CanTransitionTo(StatusRejected) {
		return fmt.Errorf("%w: cannot reject a %s shift", ErrInvalidTransition, s.Status)
	}
	s.Status = StatusRejected
	s.ApprovedAt = &at
	s.ApprovedBy = &rejectedBy
	s.RejectionReason = &reason
	return nil
}

// Correct replaces the recorded times in place. The status is left untouched,
// so an approved shift stays approved and its monthly report is only refreshed
// by the next approval for that employee and month.
func (s *ShiftRecord) Correct(clockIn time.Time, clockOut *time.Time, breaks []BreakPeriod) error {
	candidate := s.Clone()
	candidate.ClockIn = &clockIn
	candidate.ClockOut = clockOut
	candidate.Breaks = append([]BreakPeriod(nil), breaks...)

	if candidate.Status == StatusApproved && clockOut == nil {
		return intervalError("correct", nil, "an approved shift needs a clock-out")
	}
	if err := candidate.Validate(); err != nil {
		return err
	}

	*s = candidate
	return nil
}

// Validate rejects impossible states: inverted intervals, overlapping or
// unordered breaks, more than one open break, or an open break after clock-out.
func (s *ShiftRecord) Validate() error {
	if !s.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, s.Status)
	}
	if _, err := time.Parse(DateKeyLayout, s.DateKey); err != nil {
		return intervalError("validate", nil, fmt.Sprintf("date key %q is not YYYY-MM-DD", s.DateKey))
	}
	if s.ClockIn == nil {
		if s.ClockOut != nil || len(s.Breaks) > 0 {
			return ErrNotClockedIn
		}
		return nil
	}
	if s.ClockOut != nil && !s.ClockOut.After(*s.ClockIn) {
		return intervalError("validate", nil, "clock-out must be after clock-in")
	}

	prevEnd := *s.ClockIn
	for i, b := range s.Breaks {
		if b.StartAt.Before(prevEnd) {
			return intervalError("validate", nil, fmt.Sprintf("break %d starts before the previous interval ends", i+1))
		}
		if b.Open() {
			if i != len(s.Breaks)-1 {
				return intervalError("validate", ErrBreakAlreadyOpen, fmt.Sprintf("break %d is open but not the last", i+1))
			}
			if s.ClockOut != nil {
				return intervalError("validate", ErrBreakStillOpen, "")
			}
			continue
		}
		if b.EndAt.Before(b.StartAt) {
			return intervalError("validate", nil, fmt.Sprintf("break %d ends before it starts", i+1))
		}
		if s.ClockOut != nil && b.EndAt.After(*s.ClockOut) {
			return intervalError("validate", nil, fmt.Sprintf("break %d ends after clock-out", i+1))
		}
		prevEnd = *b.EndAt
	}
	return nil
}
