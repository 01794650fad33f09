package audio_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-chat/internal/infra/audio"
)

func newTestSource(token string) *audio.HTTPSource {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return audio.NewHTTPSource("127.0.0.1:0", token, logger)
}

func TestHTTPSource_NextUtterance(t *testing.T) {
	source := newTestSource("")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() {
		time.Sleep(50 * time.Millisecond)
		source.Inject([]byte("fake audio data"))
	}()

	received, err := source.NextUtterance(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("fake audio data"), received)
}

func TestHTTPSource_NextUtteranceHonorsContext(t *testing.T) {
	source := newTestSource("")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := source.NextUtterance(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHTTPSource_StopClosesQueue(t *testing.T) {
	source := newTestSource("")
	require.NoError(t, source.Start(context.Background()))
	require.NoError(t, source.Stop())

	_, err := source.NextUtterance(context.Background())
	assert.ErrorIs(t, err, audio.ErrSourceClosed)
}

func TestHTTPSource_AudioEndpoint(t *testing.T) {
	source := newTestSource("")

	req := httptest.NewRequest(http.MethodPost, "/audio", bytes.NewReader([]byte("test audio content")))
	rec := httptest.NewRecorder()
	source.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)

	received, err := source.NextUtterance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("test audio content"), received)
}

func TestHTTPSource_TextEndpoint(t *testing.T) {
	source := newTestSource("")

	req := httptest.NewRequest(http.MethodPost, "/text", strings.NewReader("what time is it"))
	rec := httptest.NewRecorder()
	source.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	received, err := source.NextUtterance(context.Background())
	require.NoError(t, err)

	text, ok := audio.IsTextPayload(received)
	require.True(t, ok)
	assert.Equal(t, "what time is it", text)
}

func TestHTTPSource_EmptyBody(t *testing.T) {
	source := newTestSource("")

	for _, path := range []string{"/audio", "/text"} {
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(nil))
		rec := httptest.NewRecorder()
		source.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestHTTPSource_QueueFull(t *testing.T) {
	source := newTestSource("")

	for i := 0; i < 10; i++ {
		require.True(t, source.Inject([]byte("x")))
	}
	assert.False(t, source.Inject([]byte("overflow")))

	req := httptest.NewRequest(http.MethodPost, "/audio", strings.NewReader("more"))
	rec := httptest.NewRecorder()
	source.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHTTPSource_RequiresToken(t *testing.T) {
	source := newTestSource("secret")

	tests := []struct {
		name     string
		header   string
		query    string
		wantCode int
	}{
		{name: "missing", wantCode: http.StatusUnauthorized},
		{name: "wrong header", header: "nope", wantCode: http.StatusUnauthorized},
		{name: "header", header: "secret", wantCode: http.StatusAccepted},
		{name: "query", query: "?token=secret", wantCode: http.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/text"+tt.query, strings.NewReader("hello"))
			if tt.header != "" {
				req.Header.Set("X-Auth-Token", tt.header)
			}
			rec := httptest.NewRecorder()
			source.Handler().ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestHTTPSource_Health(t *testing.T) {
	source := newTestSource("")

	rec := httptest.NewRecorder()
	source.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	require.NoError(t, source.Start(context.Background()))
	defer source.Stop()

	rec = httptest.NewRecorder()
	source.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"running":true`)
}

func TestTextPayload(t *testing.T) {
	text, ok := audio.IsTextPayload(audio.TextPayload("hello there"))
	assert.True(t, ok)
	assert.Equal(t, "hello there", text)

	_, ok = audio.IsTextPayload([]byte("RIFF....WAVE"))
	assert.False(t, ok)
}
