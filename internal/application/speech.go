package application

import (
	"context"
	"errors"
)

// ErrTranscriptionDisabled is returned by NoopSTT for audio payloads.
var ErrTranscriptionDisabled = errors.New("speech-to-text not configured: set speech.openai_api_key to enable audio transcription")

type SpeechToText interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// NoopSTT is used for text-only capture sources. It fails when handed actual audio.
type NoopSTT struct{}

func (n *NoopSTT) Transcribe(ctx context.Context, audio []byte) (string, error) {
	return "", ErrTranscriptionDisabled
}
