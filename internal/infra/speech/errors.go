package speech

import (
	"context"
	"errors"
	"net"
	"os"

	"voice-chat/internal/application"
	"voice-chat/internal/infra/audio"
	"voice-chat/internal/infra/openai"
)

// ErrorCode classifies why a capture session failed.
type ErrorCode int

const (
	ErrorUnknown ErrorCode = iota
	ErrorAudio
	ErrorClient
	ErrorInsufficientPermissions
	ErrorNetwork
	ErrorNetworkTimeout
	ErrorNoMatch
	ErrorRecognizerBusy
	ErrorServer
	ErrorSpeechTimeout
	ErrorUnavailable
)

// Message is the text shown to the user for the code.
func (c ErrorCode) Message() string {
	switch c {
	case ErrorAudio:
		return "Audio recording error"
	case ErrorClient:
		return "Client error"
	case ErrorInsufficientPermissions:
		return "Microphone permission required"
	case ErrorNetwork:
		return "Network error. Please check your connection."
	case ErrorNetworkTimeout:
		return "Network timeout. Please try again."
	case ErrorNoMatch:
		return "No speech detected. Please try again."
	case ErrorRecognizerBusy:
		return "Recognition service busy. Please wait."
	case ErrorServer:
		return "Server error. Please try again."
	case ErrorSpeechTimeout:
		return "No speech heard. Please try again."
	case ErrorUnavailable:
		return "Speech recognition not available on this device"
	default:
		return "Speech recognition error. Please try again."
	}
}

func classify(err error) ErrorCode {
	var statusErr *openai.HTTPStatusError
	var netErr net.Error

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorSpeechTimeout
	case errors.Is(err, application.ErrTranscriptionDisabled):
		return ErrorClient
	case errors.Is(err, os.ErrPermission):
		return ErrorInsufficientPermissions
	case errors.Is(err, audio.ErrSourceClosed):
		return ErrorAudio
	case errors.As(err, &statusErr):
		if statusErr.StatusCode == 429 {
			return ErrorRecognizerBusy
		}
		return ErrorServer
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return ErrorNetworkTimeout
		}
		return ErrorNetwork
	}
	return ErrorUnknown
}
