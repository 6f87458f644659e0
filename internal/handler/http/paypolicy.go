package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/timecard-payroll/internal/domain/paypolicy"
	"github.com/cmlabs-hris/timecard-payroll/internal/handler/http/response"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/holiday"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/jwt"
	holidaysvc "github.com/cmlabs-hris/timecard-payroll/internal/service/holiday"
	"github.com/go-chi/chi/v5"
)

// HolidayRules manages the organization holiday calendar.
type HolidayRules interface {
	ListRules(ctx context.Context, organizationID string) ([]holiday.Rule, error)
	AddRule(ctx context.Context, organizationID string, req holidaysvc.CreateRuleRequest) (holiday.Rule, error)
	DeleteRule(ctx context.Context, organizationID, id string) error
}

type PayPolicyHandler interface {
	Get(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	UpsertOverride(w http.ResponseWriter, r *http.Request)

	ListHolidays(w http.ResponseWriter, r *http.Request)
	CreateHoliday(w http.ResponseWriter, r *http.Request)
	DeleteHoliday(w http.ResponseWriter, r *http.Request)
}

type payPolicyHandlerImpl struct {
	payPolicyService paypolicy.PayPolicyService
	holidays         HolidayRules
}

func NewPayPolicyHandler(payPolicyService paypolicy.PayPolicyService, holidays HolidayRules) PayPolicyHandler {
	return &payPolicyHandlerImpl{
		payPolicyService: payPolicyService,
		holidays:         holidays,
	}
}

type holidayRuleResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Date           string  `json:"date"`
	RecurrenceRule *string `json:"recurrence_rule,omitempty"`
}

func newHolidayRuleResponse(rule holiday.Rule) holidayRuleResponse {
	return holidayRuleResponse{
		ID:             rule.ID,
		Name:           rule.Name,
		Date:           rule.Date,
		RecurrenceRule: rule.RecurrenceRule,
	}
}

// Get implements PayPolicyHandler.
func (h *payPolicyHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	result, err := h.payPolicyService.GetPolicy(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Update implements PayPolicyHandler.
func (h *payPolicyHandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	var req paypolicy.UpdatePayPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payPolicyService.UpdatePolicy(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Pay policy updated", result)
}

// UpsertOverride implements PayPolicyHandler.
func (h *payPolicyHandlerImpl) UpsertOverride(w http.ResponseWriter, r *http.Request) {
	var req paypolicy.UpsertOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.EmployeeID = chi.URLParam(r, "employeeID")

	result, err := h.payPolicyService.UpsertOverride(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Pay override saved", result)
}

// ListHolidays implements PayPolicyHandler.
func (h *payPolicyHandlerImpl) ListHolidays(w http.ResponseWriter, r *http.Request) {
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	rules, err := h.holidays.ListRules(r.Context(), claims.OrganizationID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	results := make([]holidayRuleResponse, 0, len(rules))
	for _, rule := range rules {
		results = append(results, newHolidayRuleResponse(rule))
	}
	response.Success(w, results)
}

// CreateHoliday implements PayPolicyHandler.
func (h *payPolicyHandlerImpl) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var req holidaysvc.CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	rule, err := h.holidays.AddRule(r.Context(), claims.OrganizationID, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Holiday rule created", newHolidayRuleResponse(rule))
}

// DeleteHoliday implements PayPolicyHandler.
func (h *payPolicyHandlerImpl) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if err := h.holidays.DeleteRule(r.Context(), claims.OrganizationID, chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Holiday rule deleted", nil)
}
