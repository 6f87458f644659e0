package paypolicy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/timecard-payroll/internal/domain/paypolicy"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/jwt"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/validator"
)

type PayPolicyServiceImpl struct {
	paypolicy.PayPolicyRepository
}

func NewPayPolicyService(repo paypolicy.PayPolicyRepository) paypolicy.PayPolicyService {
	return &PayPolicyServiceImpl{PayPolicyRepository: repo}
}

// GetPolicy implements paypolicy.PayPolicyService.
func (s *PayPolicyServiceImpl) GetPolicy(ctx context.Context) (paypolicy.PayPolicyResponse, error) {
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return paypolicy.PayPolicyResponse{}, err
	}

	policy, err := s.PayPolicyRepository.GetPayPolicy(ctx, claims.OrganizationID)
	if err != nil {
		return paypolicy.PayPolicyResponse{}, err
	}
	return paypolicy.NewPayPolicyResponse(policy), nil
}

// UpdatePolicy implements paypolicy.PayPolicyService. The new policy applies to
// every computation from now on, including approvals of older shifts.
func (s *PayPolicyServiceImpl) UpdatePolicy(ctx context.Context, req paypolicy.UpdatePayPolicyRequest) (paypolicy.PayPolicyResponse, error) {
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return paypolicy.PayPolicyResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return paypolicy.PayPolicyResponse{}, err
	}

	policy, err := req.ToEntity(claims.OrganizationID)
	if err != nil {
		return paypolicy.PayPolicyResponse{}, validator.ValidationErrors{{Field: "night_premium.window", Message: err.Error()}}
	}

	saved, err := s.PayPolicyRepository.UpsertPayPolicy(ctx, policy)
	if err != nil {
		return paypolicy.PayPolicyResponse{}, fmt.Errorf("failed to save pay policy: %w", err)
	}

	slog.Info("Pay policy updated", "organization_id", saved.OrganizationID, "updated_by", claims.UserID)
	return paypolicy.NewPayPolicyResponse(saved), nil
}

// UpsertOverride implements paypolicy.PayPolicyService.
func (s *PayPolicyServiceImpl) UpsertOverride(ctx context.Context, req paypolicy.UpsertOverrideRequest) (paypolicy.OverrideResponse, error) {
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return paypolicy.OverrideResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return paypolicy.OverrideResponse{}, err
	}

	saved, err := s.PayPolicyRepository.UpsertEmployeeOverride(ctx, paypolicy.EmployeePayOverride{
		OrganizationID:             claims.OrganizationID,
		EmployeeID:                 req.EmployeeID,
		HourlyWage:                 req.HourlyWage,
		TransportAllowancePerShift: req.TransportAllowancePerShift,
	})
	if err != nil {
		return paypolicy.OverrideResponse{}, fmt.Errorf("failed to save pay override: %w", err)
	}

	return paypolicy.OverrideResponse{
		EmployeeID:                 saved.EmployeeID,
		HourlyWage:                 saved.HourlyWage,
		TransportAllowancePerShift: saved.TransportAllowancePerShift,
	}, nil
}
