package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/timecard-payroll/internal/domain/timecard"
	"github.com/cmlabs-hris/timecard-payroll/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type TimecardHandler interface {
	ClockIn(w http.ResponseWriter, r *http.Request)
	StartBreak(w http.ResponseWriter, r *http.Request)
	EndBreak(w http.ResponseWriter, r *http.Request)
	ClockOut(w http.ResponseWriter, r *http.Request)
	Submit(w http.ResponseWriter, r *http.Request)
	Reject(w http.ResponseWriter, r *http.Request)
	Correct(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
}

type timecardHandlerImpl struct {
	timecardService timecard.TimecardService
}

func NewTimecardHandler(timecardService timecard.TimecardService) TimecardHandler {
	return &timecardHandlerImpl{
		timecardService: timecardService,
	}
}

// ClockIn implements TimecardHandler.
func (h *timecardHandlerImpl) ClockIn(w http.ResponseWriter, r *http.Request) {
	result, err := h.timecardService.ClockIn(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Clock in successful", result)
}

// StartBreak implements TimecardHandler.
func (h *timecardHandlerImpl) StartBreak(w http.ResponseWriter, r *http.Request) {
	result, err := h.timecardService.StartBreak(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Break started", result)
}

// EndBreak implements TimecardHandler.
func (h *timecardHandlerImpl) EndBreak(w http.ResponseWriter, r *http.Request) {
	result, err := h.timecardService.EndBreak(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Break ended", result)
}

// ClockOut implements TimecardHandler.
func (h *timecardHandlerImpl) ClockOut(w http.ResponseWriter, r *http.Request) {
	result, err := h.timecardService.ClockOut(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Clock out successful", result)
}

// Submit implements TimecardHandler.
func (h *timecardHandlerImpl) Submit(w http.ResponseWriter, r *http.Request) {
	result, err := h.timecardService.Submit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Shift submitted for approval", result)
}

// Reject implements TimecardHandler.
func (h *timecardHandlerImpl) Reject(w http.ResponseWriter, r *http.Request) {
	var req timecard.RejectShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.ID = chi.URLParam(r, "id")

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.timecardService.Reject(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Shift rejected", result)
}

// Correct implements TimecardHandler.
func (h *timecardHandlerImpl) Correct(w http.ResponseWriter, r *http.Request) {
	var req timecard.CorrectShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.ID = chi.URLParam(r, "id")

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.timecardService.Correct(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Shift corrected", result)
}

// Get implements TimecardHandler.
func (h *timecardHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	result, err := h.timecardService.GetShift(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// List implements TimecardHandler.
func (h *timecardHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := timecard.ListShiftsFilter{
		EmployeeID: query.Get("employee_id"),
		From:       query.Get("from"),
		To:         query.Get("to"),
		Status:     query.Get("status"),
	}

	if err := filter.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	results, err := h.timecardService.ListShifts(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, results)
}
