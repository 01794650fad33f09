package application

import (
	"errors"
	"strings"

	"voice-chat/internal/domain"
)

const (
	MessageCaptureUnavailable = "Speech recognition not available on this device"
	MessageInvalidAPIKey      = "Invalid API key"
	MessageRateLimited        = "Rate limited. Please wait."
	MessageTimeout            = "Request timed out. Please try again."
	MessageNoInternet         = "No internet connection"
	MessageEmptyResponse      = "Empty response from assistant"
	MessageGenericError       = "An error occurred"
	MessageNoSpeech           = "No speech detected. Please try again."
)

var networkUnreachableMarkers = []string{
	"Unable to resolve host",
	"No address associated",
	"no such host",
	"network is unreachable",
	"connection refused",
}

// ClassifyGatewayError maps a gateway failure onto the error taxonomy by
// inspecting its message. Gateways report failures uninterpreted, so status
// codes and transport hints are matched as substrings.
func ClassifyGatewayError(err error) *domain.ConversationError {
	if err == nil {
		return nil
	}

	message := err.Error()
	lower := strings.ToLower(message)

	classified := func(kind domain.ErrorKind, userMessage string) *domain.ConversationError {
		return &domain.ConversationError{Kind: kind, UserMessage: userMessage, Err: err}
	}

	switch {
	case strings.Contains(message, "401"):
		return classified(domain.ErrorGatewayAuth, MessageInvalidAPIKey)
	case strings.Contains(message, "429"):
		return classified(domain.ErrorGatewayRateLimited, MessageRateLimited)
	case strings.Contains(lower, "timeout"),
		strings.Contains(lower, "timed out"),
		strings.Contains(lower, "deadline exceeded"):
		return classified(domain.ErrorGatewayTimeout, MessageTimeout)
	case containsAny(message, networkUnreachableMarkers):
		return classified(domain.ErrorGatewayNetworkUnreachable, MessageNoInternet)
	case errors.Is(err, domain.ErrEmptyResponse):
		return classified(domain.ErrorGatewayEmptyResponse, MessageEmptyResponse)
	}

	if strings.TrimSpace(message) == "" {
		return classified(domain.ErrorGatewayOther, MessageGenericError)
	}
	return classified(domain.ErrorGatewayOther, message)
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
