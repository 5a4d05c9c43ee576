package webapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"trainplan/pkg/generator"
	"trainplan/pkg/orchestrator"
	"trainplan/pkg/plan"
)

// raceDateFormat is the wire format for race dates.
const raceDateFormat = "2006-01-02"

// CreatePlanRequest is the POST /plan body. The form submits every field as a
// string, so numeric fields arrive as numeric strings.
type CreatePlanRequest struct {
	RaceDate string `json:"raceDate"`
	GoalTime struct {
		Hours   string `json:"hours"`
		Minutes string `json:"minutes"`
		Seconds string `json:"seconds"`
	} `json:"goalTime"`
	CurrentMileage string `json:"currentMileage"`
	Email          string `json:"email"`
}

// CreatePlanResponse is the POST /plan response.
type CreatePlanResponse struct {
	RequestID  string `json:"requestId"`
	TotalWeeks int    `json:"totalWeeks"`
}

// AdvancePlanRequest is the PUT /plan body.
type AdvancePlanRequest struct {
	RequestID  string `json:"requestId"`
	WeekNumber int    `json:"weekNumber"`
}

// AdvancePlanResponse is the PUT /plan response.
type AdvancePlanResponse struct {
	Status      plan.Status `json:"status"`
	WeekPlan    string      `json:"weekPlan"`
	CurrentWeek int         `json:"currentWeek"`
	TotalWeeks  int         `json:"totalWeeks"`
}

// PlanStatusResponse is the GET /plan response.
type PlanStatusResponse struct {
	Status      plan.Status       `json:"status"`
	CurrentWeek int               `json:"currentWeek"`
	TotalWeeks  int               `json:"totalWeeks"`
	Weeks       map[string]string `json:"weeks"`
	StartTime   time.Time         `json:"startTime"`
	Error       string            `json:"error,omitempty"`
}

// handleCreatePlan implements POST /plan.
func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	in, err := parseCreateRequest(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	created, err := s.orch.Initialize(r.Context(), in)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreatePlanResponse{
		RequestID:  created.ID,
		TotalWeeks: created.TotalWeeks,
	})
}

// handleAdvancePlan implements PUT /plan.
func (s *Server) handleAdvancePlan(w http.ResponseWriter, r *http.Request) {
	var req AdvancePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.RequestID == "" {
		writeError(w, http.StatusBadRequest, "requestId is required", "")
		return
	}
	if req.WeekNumber == 0 {
		writeError(w, http.StatusBadRequest, "weekNumber is required", "")
		return
	}

	updated, err := s.orch.AdvanceWeek(r.Context(), req.RequestID, req.WeekNumber)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AdvancePlanResponse{
		Status:      updated.Status,
		WeekPlan:    updated.Weeks[updated.CurrentWeek],
		CurrentWeek: updated.CurrentWeek,
		TotalWeeks:  updated.TotalWeeks,
	})
}

// handleGetPlan implements GET /plan?requestId=...
func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	requestID := r.URL.Query().Get("requestId")
	if requestID == "" {
		writeError(w, http.StatusBadRequest, "requestId query parameter is required", "")
		return
	}

	req, err := s.orch.GetStatus(r.Context(), requestID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	weeks := make(map[string]string, len(req.Weeks))
	for index, text := range req.Weeks {
		weeks[strconv.Itoa(index)] = text
	}

	writeJSON(w, http.StatusOK, PlanStatusResponse{
		Status:      req.Status,
		CurrentWeek: req.CurrentWeek,
		TotalWeeks:  req.TotalWeeks,
		Weeks:       weeks,
		StartTime:   req.StartTime,
		Error:       req.Error,
	})
}

// handleArchivedPlan implements GET /plan/archive?requestId=... It serves the
// archived copy of a completed plan after the live record has expired.
func (s *Server) handleArchivedPlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	requestID := r.URL.Query().Get("requestId")
	if requestID == "" {
		writeError(w, http.StatusBadRequest, "requestId query parameter is required", "")
		return
	}

	entry, err := s.orch.GetArchived(r.Context(), requestID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// writeDomainError translates domain failures to status codes: validation 400,
// not-found 404, state conflict 409, generation timeout 408, backend failure
// 500, anything unexpected 500.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var genErr *generator.GenerationError

	switch {
	case errors.Is(err, orchestrator.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation error", err.Error())
	case errors.Is(err, orchestrator.ErrNotFound):
		writeError(w, http.StatusNotFound, "plan request not found", err.Error())
	case errors.Is(err, orchestrator.ErrStateConflict):
		writeError(w, http.StatusConflict, "state conflict", err.Error())
	case errors.As(err, &genErr):
		if genErr.Kind == generator.KindTimeout {
			writeError(w, http.StatusRequestTimeout, "generation timed out", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "generation failed", err.Error())
	default:
		s.logger.Error("unexpected error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}

// parseCreateRequest validates field presence and converts the string-typed
// form fields. Semantic validation happens in the orchestrator.
func parseCreateRequest(req *CreatePlanRequest) (orchestrator.InitializeInput, error) {
	var in orchestrator.InitializeInput

	if req.RaceDate == "" {
		return in, errors.New("raceDate is required")
	}
	if req.Email == "" {
		return in, errors.New("email is required")
	}
	if req.CurrentMileage == "" {
		return in, errors.New("currentMileage is required")
	}

	raceDate, err := time.Parse(raceDateFormat, req.RaceDate)
	if err != nil {
		return in, errors.New("raceDate must be an ISO date (YYYY-MM-DD)")
	}

	hours, err := parseField("goalTime.hours", req.GoalTime.Hours)
	if err != nil {
		return in, err
	}
	minutes, err := parseField("goalTime.minutes", req.GoalTime.Minutes)
	if err != nil {
		return in, err
	}
	seconds, err := parseField("goalTime.seconds", req.GoalTime.Seconds)
	if err != nil {
		return in, err
	}

	mileage, err := strconv.ParseFloat(req.CurrentMileage, 64)
	if err != nil {
		return in, errors.New("currentMileage must be numeric")
	}

	in.RaceDate = raceDate
	in.GoalTime = plan.GoalTime{Hours: hours, Minutes: minutes, Seconds: seconds}
	in.CurrentMileage = mileage
	in.Email = req.Email
	return in, nil
}

func parseField(name, value string) (int, error) {
	if value == "" {
		return 0, errors.New(name + " is required")
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.New(name + " must be numeric")
	}
	return n, nil
}
