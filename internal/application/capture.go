package application

import "voice-chat/internal/domain"

// SpeechCapture turns the user's voice into text. Sessions report progress
// on the Events channel; an error event may arrive at any point, including
// before ready.
type SpeechCapture interface {
	Available() bool
	// Start begins a capture session. It is a no-op while one is active.
	Start()
	Stop()
	Cancel()
	Close() error
	Events() <-chan domain.CaptureEvent
}
