package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/timecard-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/timecard-payroll/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type PayrollHandler interface {
	Preview(w http.ResponseWriter, r *http.Request)
	Approve(w http.ResponseWriter, r *http.Request)
	RebuildReport(w http.ResponseWriter, r *http.Request)
	GetReport(w http.ResponseWriter, r *http.Request)
	ListReports(w http.ResponseWriter, r *http.Request)
	ListReportVersions(w http.ResponseWriter, r *http.Request)
	Live(w http.ResponseWriter, r *http.Request)
}

type payrollHandlerImpl struct {
	payrollService payroll.PayrollService
}

func NewPayrollHandler(payrollService payroll.PayrollService) PayrollHandler {
	return &payrollHandlerImpl{
		payrollService: payrollService,
	}
}

// reportKeyFromPath reads and validates /{employeeID}/{period}.
func reportKeyFromPath(r *http.Request) (payroll.RebuildReportRequest, error) {
	key := payroll.RebuildReportRequest{
		EmployeeID: chi.URLParam(r, "employeeID"),
		Period:     chi.URLParam(r, "period"),
	}
	return key, key.Validate()
}

// Preview implements PayrollHandler.
func (h *payrollHandlerImpl) Preview(w http.ResponseWriter, r *http.Request) {
	var req payroll.PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.payrollService.Preview(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Approve implements PayrollHandler.
func (h *payrollHandlerImpl) Approve(w http.ResponseWriter, r *http.Request) {
	var req payroll.ApproveShiftsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.payrollService.Approve(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Shifts approved", result)
}

// RebuildReport implements PayrollHandler.
func (h *payrollHandlerImpl) RebuildReport(w http.ResponseWriter, r *http.Request) {
	req, err := reportKeyFromPath(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.payrollService.RebuildReport(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Report rebuilt", result)
}

// GetReport implements PayrollHandler.
func (h *payrollHandlerImpl) GetReport(w http.ResponseWriter, r *http.Request) {
	key, err := reportKeyFromPath(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.payrollService.GetReport(r.Context(), key.EmployeeID, key.Period)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ListReports implements PayrollHandler.
func (h *payrollHandlerImpl) ListReports(w http.ResponseWriter, r *http.Request) {
	filter := payroll.ReportFilter{
		EmployeeID: r.URL.Query().Get("employee_id"),
		Period:     chi.URLParam(r, "period"),
	}

	if err := filter.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	results, err := h.payrollService.ListReports(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, results)
}

// ListReportVersions implements PayrollHandler.
func (h *payrollHandlerImpl) ListReportVersions(w http.ResponseWriter, r *http.Request) {
	key, err := reportKeyFromPath(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	results, err := h.payrollService.ListReportVersions(r.Context(), key.EmployeeID, key.Period)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, results)
}

// Live implements PayrollHandler.
func (h *payrollHandlerImpl) Live(w http.ResponseWriter, r *http.Request) {
	results, err := h.payrollService.Live(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, results)
}
