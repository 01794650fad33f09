package application_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-chat/internal/application"
	"voice-chat/internal/domain"
)

func TestClassifyGatewayError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind domain.ErrorKind
		wantMsg  string
	}{
		{
			name:     "unauthorized",
			err:      &domain.GatewayError{StatusCode: 401, Message: `messages API error 401: {"type":"authentication_error"}`},
			wantKind: domain.ErrorGatewayAuth,
			wantMsg:  "Invalid API key",
		},
		{
			name:     "rate limited",
			err:      errors.New("HTTP 429 Too Many Requests"),
			wantKind: domain.ErrorGatewayRateLimited,
			wantMsg:  "Rate limited. Please wait.",
		},
		{
			name:     "timeout mixed case",
			err:      errors.New("Read Timeout"),
			wantKind: domain.ErrorGatewayTimeout,
			wantMsg:  "Request timed out. Please try again.",
		},
		{
			name:     "timed out",
			err:      errors.New("connect timed out"),
			wantKind: domain.ErrorGatewayTimeout,
			wantMsg:  "Request timed out. Please try again.",
		},
		{
			name:     "deadline",
			err:      fmt.Errorf("posting message: %w", errors.New("context deadline exceeded")),
			wantKind: domain.ErrorGatewayTimeout,
			wantMsg:  "Request timed out. Please try again.",
		},
		{
			name:     "unresolved host",
			err:      errors.New("Unable to resolve host \"api.anthropic.com\""),
			wantKind: domain.ErrorGatewayNetworkUnreachable,
			wantMsg:  "No internet connection",
		},
		{
			name:     "no such host",
			err:      errors.New("dial tcp: lookup api.anthropic.com: no such host"),
			wantKind: domain.ErrorGatewayNetworkUnreachable,
			wantMsg:  "No internet connection",
		},
		{
			name:     "empty response",
			err:      &domain.GatewayError{Message: "empty response from assistant", Err: domain.ErrEmptyResponse},
			wantKind: domain.ErrorGatewayEmptyResponse,
			wantMsg:  "Empty response from assistant",
		},
		{
			name:     "other",
			err:      errors.New("HTTP 500 overloaded"),
			wantKind: domain.ErrorGatewayOther,
			wantMsg:  "HTTP 500 overloaded",
		},
		{
			name:     "blank",
			err:      errors.New("  "),
			wantKind: domain.ErrorGatewayOther,
			wantMsg:  "An error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := application.ClassifyGatewayError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantMsg, got.UserMessage)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassifyGatewayError_StatusBeatsTimeout(t *testing.T) {
	got := application.ClassifyGatewayError(errors.New("401 after timeout"))
	assert.Equal(t, domain.ErrorGatewayAuth, got.Kind)
}

func TestClassifyGatewayError_Nil(t *testing.T) {
	assert.Nil(t, application.ClassifyGatewayError(nil))
}
