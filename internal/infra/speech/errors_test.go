package speech

import (
	"context"
	"fmt"
	"net"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"voice-chat/internal/application"
	"voice-chat/internal/infra/audio"
	"voice-chat/internal/infra/openai"
)

type timeoutError struct{ timeout bool }

func (e timeoutError) Error() string   { return "i/o" }
func (e timeoutError) Timeout() bool   { return e.timeout }
func (e timeoutError) Temporary() bool { return false }

var _ net.Error = timeoutError{}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorCode
	}{
		{context.DeadlineExceeded, ErrorSpeechTimeout},
		{fmt.Errorf("transcribing: %w", application.ErrTranscriptionDisabled), ErrorClient},
		{&os.PathError{Op: "open", Path: "/dev/audio", Err: os.ErrPermission}, ErrorInsufficientPermissions},
		{audio.ErrSourceClosed, ErrorAudio},
		{&openai.HTTPStatusError{StatusCode: 429}, ErrorRecognizerBusy},
		{&openai.HTTPStatusError{StatusCode: 500}, ErrorServer},
		{timeoutError{timeout: true}, ErrorNetworkTimeout},
		{timeoutError{}, ErrorNetwork},
		{fmt.Errorf("something odd"), ErrorUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, classify(tt.err), tt.err.Error())
	}
}

func TestErrorCode_Message(t *testing.T) {
	assert.Equal(t, "No speech detected. Please try again.", ErrorNoMatch.Message())
	assert.Equal(t, "Microphone permission required", ErrorInsufficientPermissions.Message())
	assert.Equal(t, "Speech recognition error. Please try again.", ErrorUnknown.Message())
}
