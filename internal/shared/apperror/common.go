package apperror

import (
	"fmt"
	"net/http"
)

var (
	ErrNotFound = New(
		CodeNotFound,
		"Resource not found",
		http.StatusNotFound,
	)

	ErrForbidden = New(
		CodeForbidden,
		"You do not have permission to access this resource",
		http.StatusForbidden,
	)

	ErrInternal = New(
		CodeInternalError,
		"Internal server error",
		http.StatusInternalServerError,
	)

	ErrUnauthorized = New(
		CodeUnauthorized,
		"Authentication is required",
		http.StatusUnauthorized,
	)

	ErrInvalidInput = New(
		CodeValidation,
		"Validation error",
		http.StatusBadRequest,
	)
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validation builds a VALIDATION_ERROR carrying every field violation.
func Validation(fields ...FieldError) *AppError {
	return ErrInvalidInput.WithDetails(fields)
}

func RequiredField(field string) FieldError {
	return FieldError{Field: field, Message: fmt.Sprintf("%s is required", field)}
}

func InvalidField(field string) FieldError {
	return FieldError{Field: field, Message: fmt.Sprintf("%s is invalid", field)}
}
