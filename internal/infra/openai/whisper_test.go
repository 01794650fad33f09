package openai_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-chat/internal/infra"
	"voice-chat/internal/infra/openai"
)

func TestWhisperClient_Transcribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "en", r.FormValue("language"))

		file, _, err := r.FormFile("file")
		if assert.NoError(t, err) {
			data, _ := io.ReadAll(file)
			assert.Equal(t, "RIFF-audio", string(data))
		}

		io.WriteString(w, `{"text":"  what's the weather  "}`)
	}))
	defer server.Close()

	client := openai.NewWhisperClientWithURL("test-key", "en", server.URL)
	text, err := client.Transcribe(context.Background(), []byte("RIFF-audio"))

	require.NoError(t, err)
	assert.Equal(t, "what's the weather", text)
}

func TestWhisperClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := openai.NewWhisperClientWithURL("wrong", "", server.URL)
	_, err := client.Transcribe(context.Background(), []byte("audio"))

	var statusErr *openai.HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.False(t, infra.IsRetryable(err))
	assert.EqualValues(t, 1, calls.Load())
}

func TestWhisperClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, `{"text":"second time lucky"}`)
	}))
	defer server.Close()

	client := openai.NewWhisperClientWithURL("test-key", "", server.URL)
	text, err := client.Transcribe(context.Background(), []byte("audio"))

	require.NoError(t, err)
	assert.Equal(t, "second time lucky", text)
	assert.EqualValues(t, 2, calls.Load())
}
