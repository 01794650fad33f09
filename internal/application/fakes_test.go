package application_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"voice-chat/internal/application"
	"voice-chat/internal/domain"
)

type fakeCapture struct {
	mu        sync.Mutex
	available bool
	starts    int
	stops     int
	cancels   int
	closed    bool
	events    chan domain.CaptureEvent
}

func newFakeCapture(available bool) *fakeCapture {
	return &fakeCapture{available: available, events: make(chan domain.CaptureEvent, 8)}
}

func (f *fakeCapture) Available() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available
}

func (f *fakeCapture) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
}

func (f *fakeCapture) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeCapture) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
}

func (f *fakeCapture) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeCapture) Events() <-chan domain.CaptureEvent { return f.events }

func (f *fakeCapture) counts() (starts, stops, cancels int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops, f.cancels
}

type gatewayCall struct {
	history  []domain.Turn
	userText string
}

type gatewayReply struct {
	text string
	err  error
}

// fakeGateway answers from respond, or blocks on replies when respond is nil.
type fakeGateway struct {
	mu      sync.Mutex
	calls   []gatewayCall
	respond func(call gatewayCall) (string, error)
	replies chan gatewayReply
}

func (g *fakeGateway) Send(ctx context.Context, history []domain.Turn, userText string) (string, error) {
	call := gatewayCall{history: history, userText: userText}

	g.mu.Lock()
	g.calls = append(g.calls, call)
	respond := g.respond
	g.mu.Unlock()

	if respond != nil {
		return respond(call)
	}

	select {
	case r := <-g.replies:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (g *fakeGateway) Calls() []gatewayCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]gatewayCall(nil), g.calls...)
}

func replyWith(text string) func(gatewayCall) (string, error) {
	return func(gatewayCall) (string, error) { return text, nil }
}

func failWith(err error) func(gatewayCall) (string, error) {
	return func(gatewayCall) (string, error) { return "", err }
}

type harness struct {
	orch       *application.Orchestrator
	capture    *fakeCapture
	gateway    *fakeGateway
	transcript *application.Transcript
}

func newHarness(t *testing.T, capture *fakeCapture, gateway *fakeGateway, transcript *application.Transcript) *harness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := application.NewOrchestrator(capture, gateway, transcript, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = orch.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("orchestrator did not stop")
		}
	})

	return &harness{orch: orch, capture: capture, gateway: gateway, transcript: transcript}
}

func (h *harness) waitForState(t *testing.T, want domain.ConversationState) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.orch.State() == want
	}, 2*time.Second, 5*time.Millisecond, "waiting for state %s, have %s", want, h.orch.State())
}

// speak taps the mic, waits for listening and delivers text as the capture result.
func (h *harness) speak(t *testing.T, text string) {
	t.Helper()
	h.orch.MicTap()
	h.waitForState(t, domain.Listening())
	h.capture.events <- domain.CaptureReadyEvent()
	h.capture.events <- domain.CaptureResultEvent(text)
}

// sync blocks until every intent sent before it has been handled.
func (h *harness) sync(t *testing.T) {
	t.Helper()
	_, stops, _ := h.capture.counts()
	h.orch.Stop()
	require.Eventually(t, func() bool {
		_, now, _ := h.capture.counts()
		return now > stops
	}, 2*time.Second, 5*time.Millisecond)
}
