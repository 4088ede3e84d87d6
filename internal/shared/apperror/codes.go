package apperror

const (
	// Client errors (4xx)
	CodeValidation   = "VALIDATION_ERROR"
	CodeInvalidRange = "INVALID_RANGE"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeTooMany      = "TOO_MANY_REQUESTS"
	CodeKeyReused    = "IDEMPOTENCY_KEY_REUSED"

	// Server errors (5xx)
	CodeInternalError = "INTERNAL_ERROR"
)
