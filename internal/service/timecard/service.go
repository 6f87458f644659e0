package timecard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/timecard-payroll/internal/domain/paypolicy"
	"github.com/cmlabs-hris/timecard-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/timecard-payroll/internal/domain/timecard"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/jwt"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/validator"
)

type TimecardServiceImpl struct {
	shiftRepo  timecard.ShiftRepository
	policyRepo paypolicy.PayPolicyRepository
	notifier   payroll.Notifier
	maxBreaks  int
	now        func() time.Time
}

func NewTimecardService(
	shiftRepo timecard.ShiftRepository,
	policyRepo paypolicy.PayPolicyRepository,
	notifier payroll.Notifier,
	maxBreaks int,
) timecard.TimecardService {
	return &TimecardServiceImpl{
		shiftRepo:  shiftRepo,
		policyRepo: policyRepo,
		notifier:   notifier,
		maxBreaks:  maxBreaks,
		now:        time.Now,
	}
}

// employeeClaims returns the caller's claims, which must identify an employee.
func employeeClaims(ctx context.Context) (jwt.Claims, error) {
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return jwt.Claims{}, err
	}
	if claims.EmployeeID == "" {
		return jwt.Claims{}, fmt.Errorf("%w: employee_id", jwt.ErrMissingClaims)
	}
	return claims, nil
}

// ========== CLOCK ACTIONS ==========

// ClockIn implements timecard.TimecardService.
func (s *TimecardServiceImpl) ClockIn(ctx context.Context) (timecard.ShiftResponse, error) {
	claims, err := employeeClaims(ctx)
	if err != nil {
		return timecard.ShiftResponse{}, err
	}

	_, err = s.shiftRepo.GetOpenShift(ctx, claims.EmployeeID, claims.OrganizationID)
	if err == nil {
		return timecard.ShiftResponse{}, timecard.ErrAlreadyClockedIn
	}
	if !errors.Is(err, timecard.ErrShiftNotFound) {
		return timecard.ShiftResponse{}, fmt.Errorf("failed to check open shift: %w", err)
	}

	// Clocking in never depends on a configured policy; without one the
	// default timezone decides the date key.
	policy, err := s.policyRepo.GetPayPolicy(ctx, claims.OrganizationID)
	if err != nil && !errors.Is(err, paypolicy.ErrPolicyMissing) {
		return timecard.ShiftResponse{}, fmt.Errorf("failed to get pay policy: %w", err)
	}

	override, err := s.policyRepo.GetEmployeeOverride(ctx, claims.OrganizationID, claims.EmployeeID)
	if err != nil && !errors.Is(err, paypolicy.ErrOverrideNotFound) {
		return timecard.ShiftResponse{}, fmt.Errorf("failed to get pay override: %w", err)
	}

	now := s.now().UTC()
	shift := timecard.ShiftRecord{
		OrganizationID: claims.OrganizationID,
		EmployeeID:     claims.EmployeeID,
		DateKey:        now.In(policy.Location()).Format(timecard.DateKeyLayout),
		HourlyWage:     override.HourlyWage,
		Status:         timecard.StatusDraft,
	}
	if err := shift.ClockInAt(now); err != nil {
		return timecard.ShiftResponse{}, err
	}

	created, err := s.shiftRepo.Create(ctx, shift)
	if err != nil {
		return timecard.ShiftResponse{}, fmt.Errorf("failed to create shift: %w", err)
	}

	slog.Info("Clocked in", "shift_id", created.ID, "employee_id", created.EmployeeID, "date_key", created.DateKey)
	return timecard.NewShiftResponse(created), nil
}

// StartBreak implements timecard.TimecardService.
func (s *TimecardServiceImpl) StartBreak(ctx context.Context) (timecard.ShiftResponse, error) {
	return s.mutateOpenShift(ctx, func(shift *timecard.ShiftRecord, now time.Time) error {
		return shift.StartBreak(now, s.maxBreaks)
	})
}

// EndBreak implements timecard.TimecardService.
func (s *TimecardServiceImpl) EndBreak(ctx context.Context) (timecard.ShiftResponse, error) {
	return s.mutateOpenShift(ctx, func(shift *timecard.ShiftRecord, now time.Time) error {
		return shift.EndBreak(now)
	})
}

// ClockOut implements timecard.TimecardService.
func (s *TimecardServiceImpl) ClockOut(ctx context.Context) (timecard.ShiftResponse, error) {
	return s.mutateOpenShift(ctx, func(shift *timecard.ShiftRecord, now time.Time) error {
		return shift.ClockOutAt(now)
	})
}

func (s *TimecardServiceImpl) mutateOpenShift(ctx context.Context, apply func(*timecard.ShiftRecord, time.Time) error) (timecard.ShiftResponse, error) {
	claims, err := employeeClaims(ctx)
	if err != nil {
		return timecard.ShiftResponse{}, err
	}

	shift, err := s.shiftRepo.GetOpenShift(ctx, claims.EmployeeID, claims.OrganizationID)
	if err != nil {
		if errors.Is(err, timecard.ErrShiftNotFound) {
			return timecard.ShiftResponse{}, timecard.ErrNotClockedIn
		}
		return timecard.ShiftResponse{}, fmt.Errorf("failed to get open shift: %w", err)
	}

	fromStatus := shift.Status
	if err := apply(&shift, s.now().UTC()); err != nil {
		return timecard.ShiftResponse{}, err
	}
	if err := s.shiftRepo.Update(ctx, shift, fromStatus); err != nil {
		return timecard.ShiftResponse{}, fmt.Errorf("failed to update shift: %w", err)
	}
	return timecard.NewShiftResponse(shift), nil
}

// ========== SUBMISSION & REVIEW ==========

// Submit implements timecard.TimecardService.
func (s *TimecardServiceImpl) Submit(ctx context.Context, id string) (timecard.ShiftResponse, error) {
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return timecard.ShiftResponse{}, err
	}
	if !validator.IsValidUUID(id) {
		return timecard.ShiftResponse{}, validator.ValidationErrors{{Field: "id", Message: "must be a valid UUID"}}
	}

	shift, err := s.visibleShift(ctx, claims, id)
	if err != nil {
		return timecard.ShiftResponse{}, err
	}
	fromStatus := shift.Status
	if err := shift.Submit(); err != nil {
		return timecard.ShiftResponse{}, err
	}
	if err := s.shiftRepo.Update(ctx, shift, fromStatus); err != nil {
		return timecard.ShiftResponse{}, fmt.Errorf("failed to submit shift: %w", err)
	}
	return timecard.NewShiftResponse(shift), nil
}

// Reject implements timecard.TimecardService. The write only applies while
// the shift is still pending, so it cannot undo a concurrent approval.
func (s *TimecardServiceImpl) Reject(ctx context.Context, req timecard.RejectShiftRequest) (timecard.ShiftResponse, error) {
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return timecard.ShiftResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return timecard.ShiftResponse{}, err
	}

	shift, err := s.shiftRepo.GetByID(ctx, req.ID, claims.OrganizationID)
	if err != nil {
		return timecard.ShiftResponse{}, err
	}
	if err := shift.Reject(s.now().UTC(), claims.UserID, req.Reason); err != nil {
		return timecard.ShiftResponse{}, err
	}

	persisted, err := s.shiftRepo.WriteShiftStatusBatch(ctx, claims.OrganizationID, []timecard.StatusUpdate{{
		ShiftID:         shift.ID,
		FromStatus:      timecard.StatusPending,
		Status:          timecard.StatusRejected,
		ApprovedAt:      shift.ApprovedAt,
		ApprovedBy:      shift.ApprovedBy,
		RejectionReason: shift.RejectionReason,
	}})
	if err != nil {
		return timecard.ShiftResponse{}, fmt.Errorf("failed to reject shift: %w", err)
	}
	if len(persisted) == 0 {
		return timecard.ShiftResponse{}, fmt.Errorf("%w: shift is no longer pending", timecard.ErrInvalidTransition)
	}

	if err := s.notifier.Notify(ctx, payroll.Event{
		Type:           payroll.EventShiftsRejected,
		OrganizationID: shift.OrganizationID,
		EmployeeID:     shift.EmployeeID,
		Payload:        timecard.NewShiftResponse(shift),
		OccurredAt:     *shift.ApprovedAt,
	}); err != nil {
		slog.Error("Failed to notify shift rejection", "shift_id", shift.ID, "error", err)
	}

	return timecard.NewShiftResponse(shift), nil
}

// Correct implements timecard.TimecardService.
func (s *TimecardServiceImpl) Correct(ctx context.Context, req timecard.CorrectShiftRequest) (timecard.ShiftResponse, error) {
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return timecard.ShiftResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return timecard.ShiftResponse{}, err
	}

	shift, err := s.shiftRepo.GetByID(ctx, req.ID, claims.OrganizationID)
	if err != nil {
		return timecard.ShiftResponse{}, err
	}
	if shift.Status == timecard.StatusRejected {
		return timecard.ShiftResponse{}, fmt.Errorf("%w: cannot correct a rejected shift", timecard.ErrInvalidTransition)
	}

	fromStatus := shift.Status
	if err := shift.Correct(req.ClockIn.UTC(), utcPtr(req.ClockOut), req.BreakPeriods()); err != nil {
		return timecard.ShiftResponse{}, err
	}
	if err := s.shiftRepo.Update(ctx, shift, fromStatus); err != nil {
		return timecard.ShiftResponse{}, fmt.Errorf("failed to correct shift: %w", err)
	}

	if shift.Status == timecard.StatusApproved {
		slog.Warn("Approved shift corrected, monthly report needs a rebuild",
			"shift_id", shift.ID,
			"employee_id", shift.EmployeeID,
			"date_key", shift.DateKey,
			"corrected_by", claims.UserID,
		)
	}
	return timecard.NewShiftResponse(shift), nil
}

// ========== QUERIES ==========

// GetShift implements timecard.TimecardService.
func (s *TimecardServiceImpl) GetShift(ctx context.Context, id string) (timecard.ShiftResponse, error) {
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return timecard.ShiftResponse{}, err
	}
	if !validator.IsValidUUID(id) {
		return timecard.ShiftResponse{}, validator.ValidationErrors{{Field: "id", Message: "must be a valid UUID"}}
	}

	shift, err := s.visibleShift(ctx, claims, id)
	if err != nil {
		return timecard.ShiftResponse{}, err
	}
	return timecard.NewShiftResponse(shift), nil
}

// ListShifts implements timecard.TimecardService. Employees only ever see their own shifts.
func (s *TimecardServiceImpl) ListShifts(ctx context.Context, filter timecard.ListShiftsFilter) (timecard.ListShiftsResponse, error) {
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return timecard.ListShiftsResponse{}, err
	}
	if err := filter.Validate(); err != nil {
		return timecard.ListShiftsResponse{}, err
	}

	query := timecard.ShiftFilter{
		OrganizationID: claims.OrganizationID,
		From:           filter.From,
		To:             filter.To,
	}
	switch {
	case !claims.CanManage():
		query.EmployeeID = &claims.EmployeeID
	case filter.EmployeeID != "":
		query.EmployeeID = &filter.EmployeeID
	}
	if filter.Status != "" {
		query.Statuses = []timecard.Status{timecard.Status(filter.Status)}
	}

	shifts, err := s.shiftRepo.ListShifts(ctx, query)
	if err != nil {
		return timecard.ListShiftsResponse{}, fmt.Errorf("failed to list shifts: %w", err)
	}

	resp := timecard.ListShiftsResponse{
		Shifts: make([]timecard.ShiftResponse, 0, len(shifts)),
		Total:  len(shifts),
	}
	for _, shift := range shifts {
		resp.Shifts = append(resp.Shifts, timecard.NewShiftResponse(shift))
	}
	return resp, nil
}

// visibleShift loads a shift the caller may see. Other employees' shifts are
// reported as not found.
func (s *TimecardServiceImpl) visibleShift(ctx context.Context, claims jwt.Claims, id string) (timecard.ShiftRecord, error) {
	shift, err := s.shiftRepo.GetByID(ctx, id, claims.OrganizationID)
	if err != nil {
		return timecard.ShiftRecord{}, err
	}
	if !claims.CanManage() && shift.EmployeeID != claims.EmployeeID {
		return timecard.ShiftRecord{}, timecard.ErrShiftNotFound
	}
	return shift, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
