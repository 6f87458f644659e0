package paypolicy

import "context"

// PayPolicyRepository defines data access for pay policies and employee overrides.
// All methods include organizationID to prevent cross-organization access.
type PayPolicyRepository interface {
	// GetPayPolicy returns ErrPolicyMissing when the organization has none.
	GetPayPolicy(ctx context.Context, organizationID string) (PayPolicy, error)
	UpsertPayPolicy(ctx context.Context, policy PayPolicy) (PayPolicy, error)

	// GetEmployeeOverride returns ErrOverrideNotFound when the employee has none.
	GetEmployeeOverride(ctx context.Context, organizationID, employeeID string) (EmployeePayOverride, error)
	ListEmployeeOverrides(ctx context.Context, organizationID string, employeeIDs []string) ([]EmployeePayOverride, error)
	UpsertEmployeeOverride(ctx context.Context, override EmployeePayOverride) (EmployeePayOverride, error)
}
