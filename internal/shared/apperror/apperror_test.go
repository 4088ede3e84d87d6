package apperror_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"go-leave/internal/shared/apperror"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestToHTTP(t *testing.T) {
	t.Run("app error keeps code and status", func(t *testing.T) {
		err := apperror.New(apperror.CodeNotFound, "leave not found", http.StatusNotFound)

		got := apperror.ToHTTP(fmt.Errorf("lookup: %w", err))

		assert.Equal(t, http.StatusNotFound, got.Status)
		assert.Equal(t, apperror.CodeNotFound, got.Code)
		assert.Equal(t, "leave not found", got.Message)
	})

	t.Run("plain error is opaque", func(t *testing.T) {
		got := apperror.ToHTTP(errors.New("pq: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, got.Status)
		assert.Equal(t, "INTERNAL_ERROR", got.Code)
		assert.Equal(t, "Internal server error", got.Message)
		assert.Nil(t, got.Details)
	})
}

func TestWrap(t *testing.T) {
	cause := errors.New("boom")
	err := apperror.Wrap(cause, apperror.CodeInternalError, "store failed", http.StatusInternalServerError)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "store failed: boom", err.Error())
	assert.Nil(t, apperror.Wrap(nil, "", "", 0))
}

type sample struct {
	StartDate string `json:"start_date" validate:"required"`
	Reason    string `json:"reason" validate:"max=3"`
}

func TestMapValidationError(t *testing.T) {
	t.Run("lists every field", func(t *testing.T) {
		v := validator.New()
		err := v.Struct(sample{Reason: "too long"})

		appErr := apperror.MapValidationError(err)

		assert.Equal(t, apperror.CodeValidation, appErr.Code)
		fields, ok := appErr.Details.([]apperror.FieldError)
		assert.True(t, ok)
		assert.Len(t, fields, 2)
		assert.Equal(t, "Start Date is required", fields[0].Message)
		assert.Equal(t, "Reason must be at most 3 characters", fields[1].Message)
	})

	t.Run("non validator error", func(t *testing.T) {
		appErr := apperror.MapValidationError(errors.New("unexpected EOF"))

		assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
		fields := appErr.Details.([]apperror.FieldError)
		assert.Equal(t, "body", fields[0].Field)
	})
}

func TestValidation_DoesNotMutateSentinel(t *testing.T) {
	err := apperror.Validation(apperror.RequiredField("reason"))

	assert.Len(t, err.Details, 1)
	assert.Nil(t, apperror.ErrInvalidInput.Details)
}
