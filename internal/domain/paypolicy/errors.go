package paypolicy

import "errors"

var (
	ErrPolicyMissing    = errors.New("organization has no pay policy configured")
	ErrOverrideNotFound = errors.New("employee pay override not found")
	ErrInvalidTimeOfDay = errors.New("invalid time of day, expected HH:MM")
	ErrInvalidTimezone  = errors.New("invalid timezone")
)
