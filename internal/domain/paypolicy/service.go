package paypolicy

import "context"

// PayPolicyService manages the organization policy and per-employee overrides.
type PayPolicyService interface {
	GetPolicy(ctx context.Context) (PayPolicyResponse, error)
	UpdatePolicy(ctx context.Context, req UpdatePayPolicyRequest) (PayPolicyResponse, error)
	UpsertOverride(ctx context.Context, req UpsertOverrideRequest) (OverrideResponse, error)
}
