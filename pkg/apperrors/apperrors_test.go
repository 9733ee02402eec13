package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       ErrorCode
		httpStatus int
	}{
		{"validation", NewValidationError("roomId is required"), ErrCodeValidation, http.StatusBadRequest},
		{"conflict", NewConflictError("room already exists"), ErrCodeConflict, http.StatusConflict},
		{"not found", NewNotFoundError("room r1"), ErrCodeNotFound, http.StatusNotFound},
		{"protocol", NewProtocolError("unknown action"), ErrCodeProtocol, http.StatusBadRequest},
		{"upstream", NewUpstreamError("sfu call failed", nil), ErrCodeUpstream, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestNotFoundError_Message(t *testing.T) {
	err := NewNotFoundError("room r1")
	assert.Equal(t, "room r1 not found", err.Message)
}

func TestError_IncludesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewUpstreamError("sfu request failed", cause)

	assert.Contains(t, err.Error(), "UPSTREAM_ERROR")
	assert.Contains(t, err.Error(), "connection refused")
	assert.ErrorIs(t, err, cause)
}

func TestGetAppError_ThroughWrapping(t *testing.T) {
	inner := NewConflictError("room already exists")
	wrapped := fmt.Errorf("handling createRoom: %w", inner)

	require.True(t, IsAppError(wrapped))
	got := GetAppError(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, ErrCodeConflict, got.Code)
}

func TestGetAppError_PlainError(t *testing.T) {
	err := errors.New("plain")
	assert.False(t, IsAppError(err))
	assert.Nil(t, GetAppError(err))
}
