package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"learnportal/internal/models"
	"learnportal/internal/service"
	"learnportal/internal/validation"
)

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}

	respondJSON(w, status, models.ErrorResponse{Error: userMsg})
}

func respondWithValidationError(w http.ResponseWriter, verrs validation.Errors) {
	fields := make([]models.FieldError, len(verrs))
	for i, fe := range verrs {
		fields[i] = models.FieldError{Field: fe.Field, Message: fe.Message}
	}
	respondJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: ErrInvalidRequest, Fields: fields})
}

// respondWithServiceError maps service errors onto HTTP statuses. Anything
// unrecognised is logged and reported as a 500.
func respondWithServiceError(w http.ResponseWriter, logMsg string, err error) {
	switch {
	case errors.Is(err, service.ErrModuleNotFound),
		errors.Is(err, service.ErrSubModuleNotFound),
		errors.Is(err, service.ErrQuizNotFound):
		respondWithError(w, http.StatusNotFound, err.Error(), "", nil)
	case errors.Is(err, service.ErrAccessDenied):
		respondWithError(w, http.StatusForbidden, "Complete the previous submodule first", "", nil)
	case errors.Is(err, service.ErrQuizAlreadyAttempted):
		respondWithError(w, http.StatusConflict, "Quiz already attempted", "", nil)
	case errors.Is(err, service.ErrModuleIncomplete):
		respondWithError(w, http.StatusConflict, "Complete every submodule before taking the quiz", "", nil)
	default:
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, logMsg, err)
	}
}

// decodeRequest reads a JSON body into dst and validates it. It writes the
// error response itself and returns false when the request is unusable.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return false
	}

	if err := validation.Struct(dst); err != nil {
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			respondWithValidationError(w, verrs)
			return false
		}
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error validating request", err)
		return false
	}
	return true
}
