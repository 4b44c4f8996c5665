package domain

import "errors"

// Sentinel errors shared by the repositories, services and handlers.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrInvalidInput  = errors.New("invalid input")
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResponse builds an ErrorResponse with optional details.
func NewErrorResponse(message string, details any) ErrorResponse {
	return ErrorResponse{Error: message, Details: details}
}
