package handlers

const (
	maxRequestBody = 64 << 10

	ErrInvalidJSON         = "Invalid JSON body"
	ErrInvalidRequest      = "Invalid request"
	ErrUnauthorized        = "Unauthorized"
	ErrForbidden           = "Forbidden"
	ErrTooManyRequests     = "Too many requests"
	ErrInternalServerError = "Internal server error"
)
