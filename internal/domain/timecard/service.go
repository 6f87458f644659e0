package timecard

import "context"

// TimecardService drives the shift lifecycle for the authenticated employee and managers.
type TimecardService interface {
	// ClockIn opens today's shift for the caller
	ClockIn(ctx context.Context) (ShiftResponse, error)

	StartBreak(ctx context.Context) (ShiftResponse, error)
	EndBreak(ctx context.Context) (ShiftResponse, error)
	ClockOut(ctx context.Context) (ShiftResponse, error)

	// Submit moves one of the caller's drafts to pending
	Submit(ctx context.Context, id string) (ShiftResponse, error)

	// Reject rejects a pending shift (manager)
	Reject(ctx context.Context, req RejectShiftRequest) (ShiftResponse, error)

	// Correct edits recorded times in place without changing status (manager)
	Correct(ctx context.Context, req CorrectShiftRequest) (ShiftResponse, error)

	GetShift(ctx context.Context, id string) (ShiftResponse, error)
	ListShifts(ctx context.Context, filter ListShiftsFilter) (ListShiftsResponse, error)
}
