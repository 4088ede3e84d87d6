package apperror

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// formatFieldName turns start_date or startDate into "Start Date".
func formatFieldName(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r == '_' {
			b.WriteRune(' ')
			continue
		}
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return cases.Title(language.English).String(b.String())
}

// MapValidationError converts a binding error into a VALIDATION_ERROR listing every
// rejected field. Malformed JSON yields a single body-level violation.
func MapValidationError(err error) *AppError {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return Validation(FieldError{Field: "body", Message: "request body is not valid JSON"})
	}

	fields := make([]FieldError, 0, len(errs))
	for _, e := range errs {
		name := e.Field()
		human := formatFieldName(name)
		switch e.Tag() {
		case "required":
			fields = append(fields, FieldError{Field: name, Message: human + " is required"})
		case "notblank":
			fields = append(fields, FieldError{Field: name, Message: human + " must not be blank"})
		case "email":
			fields = append(fields, FieldError{Field: name, Message: human + " must be a valid email address"})
		case "min":
			fields = append(fields, FieldError{Field: name, Message: human + " must be at least " + e.Param() + " characters"})
		case "max":
			fields = append(fields, FieldError{Field: name, Message: human + " must be at most " + e.Param() + " characters"})
		case "oneof":
			fields = append(fields, FieldError{Field: name, Message: human + " must be one of: " + strings.ReplaceAll(e.Param(), " ", ", ")})
		default:
			fields = append(fields, FieldError{Field: name, Message: human + " is invalid"})
		}
	}
	return Validation(fields...)
}
