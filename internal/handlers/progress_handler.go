package handlers

import (
	"net/http"

	"learnportal/internal/models"
	"learnportal/internal/service"
)

// ProgressHandler serves the progress, access and quiz attempt API
type ProgressHandler struct {
	progressService *service.ProgressService
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(progressService *service.ProgressService) *ProgressHandler {
	return &ProgressHandler{
		progressService: progressService,
	}
}

// requireStudent rejects writes from callers whose progress is not tracked
func requireStudent(w http.ResponseWriter, r *http.Request) (*models.Identity, bool) {
	identity := GetIdentityFromContext(r.Context())
	if identity == nil {
		respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
		return nil, false
	}
	if !identity.IsStudent() {
		respondWithError(w, http.StatusForbidden, "Progress is only tracked for students", "", nil)
		return nil, false
	}
	return identity, true
}

// targetStudent resolves whose data a read refers to. Students only see their
// own; staff may name another student.
func targetStudent(w http.ResponseWriter, r *http.Request, requested string) (string, bool) {
	identity := GetIdentityFromContext(r.Context())
	if identity == nil {
		respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
		return "", false
	}
	if requested == "" || requested == identity.StudentID {
		return identity.StudentID, true
	}
	if !identity.IsStaff() {
		respondWithError(w, http.StatusForbidden, ErrForbidden, "", nil)
		return "", false
	}
	return requested, true
}

// StartProgress registers that the student opened a submodule
func (h *ProgressHandler) StartProgress(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireStudent(w, r)
	if !ok {
		return
	}

	var req models.StartProgressRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if err := h.progressService.StartProgress(identity.StudentID, req.SubModuleID); err != nil {
		respondWithServiceError(w, "Error starting progress", err)
		return
	}
	respondJSON(w, http.StatusOK, models.StatusResponse{Status: "started"})
}

// UpdateProgress records a watch time heartbeat
func (h *ProgressHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireStudent(w, r)
	if !ok {
		return
	}

	var req models.UpdateProgressRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	progress, err := h.progressService.UpdateProgress(identity.StudentID, &req)
	if err != nil {
		respondWithServiceError(w, "Error updating progress", err)
		return
	}
	respondJSON(w, http.StatusOK, progress)
}

// CompleteProgress marks a submodule completed and returns the module aggregate
func (h *ProgressHandler) CompleteProgress(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireStudent(w, r)
	if !ok {
		return
	}

	var req models.CompleteProgressRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	mp, err := h.progressService.CompleteProgress(r.Context(), identity, req.SubModuleID)
	if err != nil {
		respondWithServiceError(w, "Error completing progress", err)
		return
	}
	respondJSON(w, http.StatusOK, mp)
}

// GetModuleProgress returns the module aggregate for the caller, or for the
// student named by ?studentId= when the caller is staff
func (h *ProgressHandler) GetModuleProgress(w http.ResponseWriter, r *http.Request) {
	studentID, ok := targetStudent(w, r, r.URL.Query().Get("studentId"))
	if !ok {
		return
	}

	mp, err := h.progressService.GetModuleProgress(studentID, r.PathValue("moduleId"))
	if err != nil {
		respondWithServiceError(w, "Error fetching module progress", err)
		return
	}
	respondJSON(w, http.StatusOK, mp)
}

// GetSubModuleProgress returns progress on one submodule
func (h *ProgressHandler) GetSubModuleProgress(w http.ResponseWriter, r *http.Request) {
	studentID, ok := targetStudent(w, r, r.URL.Query().Get("studentId"))
	if !ok {
		return
	}

	progress, err := h.progressService.GetSubModuleProgress(studentID, r.PathValue("subModuleId"))
	if err != nil {
		respondWithServiceError(w, "Error fetching submodule progress", err)
		return
	}
	respondJSON(w, http.StatusOK, progress)
}

// CheckAccess reports whether the caller may open a submodule
func (h *ProgressHandler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	identity := GetIdentityFromContext(r.Context())
	if identity == nil {
		respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
		return
	}

	decision, err := h.progressService.CheckAccess(identity, r.PathValue("subModuleId"))
	if err != nil {
		respondWithServiceError(w, "Error checking access", err)
		return
	}
	respondJSON(w, http.StatusOK, decision)
}

// GetQuizAttempts lists a student's quiz attempts
func (h *ProgressHandler) GetQuizAttempts(w http.ResponseWriter, r *http.Request) {
	studentID, ok := targetStudent(w, r, r.PathValue("studentId"))
	if !ok {
		return
	}

	attempts, err := h.progressService.GetQuizAttempts(studentID)
	if err != nil {
		respondWithServiceError(w, "Error fetching quiz attempts", err)
		return
	}
	if attempts == nil {
		attempts = []models.QuizAttempt{}
	}
	respondJSON(w, http.StatusOK, attempts)
}

// SubmitQuizAttempt records the student's single attempt at a module quiz
func (h *ProgressHandler) SubmitQuizAttempt(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireStudent(w, r)
	if !ok {
		return
	}

	var req models.SubmitQuizAttemptRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	attempt, err := h.progressService.SubmitQuizAttempt(identity.StudentID, &req)
	if err != nil {
		respondWithServiceError(w, "Error submitting quiz attempt", err)
		return
	}
	respondJSON(w, http.StatusCreated, attempt)
}

// GetModule returns module metadata with its ordered submodules
func (h *ProgressHandler) GetModule(w http.ResponseWriter, r *http.Request) {
	module, err := h.progressService.GetModule(r.PathValue("moduleId"))
	if err != nil {
		respondWithServiceError(w, "Error fetching module", err)
		return
	}
	respondJSON(w, http.StatusOK, module)
}
