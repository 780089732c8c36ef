package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		setup    func() *AppError
		expected string
	}{
		{
			name: "ErrorWithoutCause",
			setup: func() *AppError {
				return New(ErrorTypeValidation, "device token is required")
			},
			expected: "VALIDATION_ERROR: device token is required",
		},
		{
			name: "ErrorWithCause",
			setup: func() *AppError {
				return Wrap(ErrorTypeTransport, "relay batch failed", fmt.Errorf("connection reset"))
			},
			expected: "TRANSPORT_ERROR: relay batch failed (caused by: connection reset)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.setup().Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("original error")
	err := NewDatabaseError("insert failed", cause)

	assert.Equal(t, cause, err.Unwrap())
	assert.Nil(t, NewNotFoundError("missing").Unwrap())
}

func TestTypeOf_WrappedChain(t *testing.T) {
	inner := NewExternalAPIError("treatment API returned status 502", nil)
	wrapped := fmt.Errorf("resolve state for u1: %w", inner)

	assert.Equal(t, ErrorTypeExternalAPI, TypeOf(wrapped))
	assert.True(t, IsExternalAPIError(wrapped))
	assert.False(t, IsDatabaseError(wrapped))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(fmt.Errorf("plain")))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(nil))
}

func TestErrorType_String(t *testing.T) {
	tests := map[ErrorType]string{
		ErrorTypeValidation:    "VALIDATION_ERROR",
		ErrorTypeNotFound:      "NOT_FOUND_ERROR",
		ErrorTypeAlreadyExists: "ALREADY_EXISTS_ERROR",
		ErrorTypeDatabase:      "DATABASE_ERROR",
		ErrorTypeExternalAPI:   "EXTERNAL_API_ERROR",
		ErrorTypeTransport:     "TRANSPORT_ERROR",
		ErrorTypeConfiguration: "CONFIGURATION_ERROR",
		ErrorTypeUnknown:       "UNKNOWN_ERROR",
	}

	for errType, expected := range tests {
		assert.Equal(t, expected, errType.String())
	}
}

func TestIsHelpers(t *testing.T) {
	assert.True(t, IsValidationError(NewValidationError("x")))
	assert.True(t, IsNotFoundError(NewNotFoundError("x")))
	assert.True(t, IsAlreadyExistsError(NewAlreadyExistsError("x")))
	assert.True(t, IsTransportError(NewTransportError("x", nil)))
	assert.True(t, IsConfigurationError(NewConfigurationError("x", nil)))
	assert.False(t, IsValidationError(nil))
}
