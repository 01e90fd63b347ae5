package models

// StartProgressRequest registers that a student opened a submodule
type StartProgressRequest struct {
	SubModuleID string `json:"subModuleId" validate:"required,max=64"`
}

// UpdateProgressRequest is a watch time heartbeat
type UpdateProgressRequest struct {
	SubModuleID          string  `json:"subModuleId" validate:"required,max=64"`
	WatchTimeSeconds     int     `json:"watchTimeSeconds" validate:"min=0"`
	CompletionPercentage float64 `json:"completionPercentage" validate:"min=0,max=100"`
	Sequence             int64   `json:"sequence" validate:"min=0"`
}

// CompleteProgressRequest marks a submodule completed
type CompleteProgressRequest struct {
	SubModuleID string `json:"subModuleId" validate:"required,max=64"`
}

// SubmitQuizAttemptRequest records a finished quiz
type SubmitQuizAttemptRequest struct {
	QuizGroupID string  `json:"quizGroupId" validate:"required,max=64"`
	SubModuleID string  `json:"subModuleId" validate:"omitempty,max=64"`
	Score       float64 `json:"score" validate:"min=0,max=100"`
}

// FieldError describes one invalid request field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx API response
type ErrorResponse struct {
	Error  string       `json:"error"`
	Fields []FieldError `json:"fields,omitempty"`
}

// StatusResponse acknowledges a write
type StatusResponse struct {
	Status string `json:"status"`
}
