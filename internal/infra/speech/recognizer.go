package speech

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"voice-chat/internal/application"
	"voice-chat/internal/domain"
	"voice-chat/internal/infra/audio"
)

const DefaultListenTimeout = 30 * time.Second

// Recognizer implements application.SpeechCapture on top of an audio source
// and a speech-to-text client. One session waits for one utterance.
type Recognizer struct {
	source        application.AudioSource
	stt           application.SpeechToText
	logger        *slog.Logger
	listenTimeout time.Duration

	events chan domain.CaptureEvent
	done   chan struct{}

	mu      sync.Mutex
	opened  bool
	closed  bool
	session *session

	sessions conc.WaitGroup
}

type session struct {
	cancel     context.CancelFunc
	stopListen context.CancelFunc
	cancelled  bool
}

func NewRecognizer(source application.AudioSource, stt application.SpeechToText, listenTimeout time.Duration, logger *slog.Logger) *Recognizer {
	if stt == nil {
		stt = &application.NoopSTT{}
	}
	if listenTimeout <= 0 {
		listenTimeout = DefaultListenTimeout
	}
	return &Recognizer{
		source:        source,
		stt:           stt,
		logger:        logger,
		listenTimeout: listenTimeout,
		events:        make(chan domain.CaptureEvent, 16),
		done:          make(chan struct{}),
	}
}

// Open starts the underlying audio source. Until it succeeds the recognizer
// reports itself unavailable.
func (r *Recognizer) Open(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.opened {
		return nil
	}
	if err := r.source.Start(ctx); err != nil {
		return fmt.Errorf("starting %s source: %w", r.source.Name(), err)
	}
	r.opened = true
	return nil
}

func (r *Recognizer) Available() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.opened && !r.closed
}

func (r *Recognizer) Events() <-chan domain.CaptureEvent {
	return r.events
}

func (r *Recognizer) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.session != nil {
		return
	}
	if !r.opened {
		r.sessions.Go(func() { r.emit(domain.CaptureErrorEvent(ErrorUnavailable.Message())) })
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	listenCtx, stopListen := context.WithTimeout(ctx, r.listenTimeout)
	s := &session{cancel: cancel, stopListen: stopListen}
	r.session = s

	r.logger.Debug("starting capture session", "source", r.source.Name())
	r.sessions.Go(func() { r.run(ctx, listenCtx, s) })
}

// Stop stops listening. An utterance already received is still transcribed.
func (r *Recognizer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		r.session.stopListen()
	}
}

// Cancel abandons the current session without emitting anything further.
func (r *Recognizer) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cancelLocked()
}

func (r *Recognizer) cancelLocked() {
	if r.session == nil {
		return
	}
	r.session.cancelled = true
	r.session.cancel()
	r.session = nil
}

func (r *Recognizer) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.cancelLocked()
	close(r.done)
	opened := r.opened
	r.mu.Unlock()

	r.sessions.Wait()
	close(r.events)

	if opened {
		if err := r.source.Stop(); err != nil {
			return fmt.Errorf("stopping %s source: %w", r.source.Name(), err)
		}
	}
	return nil
}

func (r *Recognizer) run(ctx, listenCtx context.Context, s *session) {
	defer s.cancel()

	r.emit(domain.CaptureReadyEvent())

	data, err := r.source.NextUtterance(listenCtx)
	s.stopListen()
	if err != nil {
		if r.finish(s) {
			return
		}
		if ctx.Err() == nil && listenCtx.Err() == context.Canceled {
			// stopped by the caller before anything was said
			r.emit(domain.CaptureEndedEvent())
			return
		}
		r.fail(err)
		return
	}

	r.emit(domain.CaptureEndedEvent())

	text, isText := audio.IsTextPayload(data)
	if !isText {
		text, err = r.stt.Transcribe(ctx, data)
	}

	if r.finish(s) {
		return
	}
	if err != nil {
		r.fail(err)
		return
	}

	text = strings.TrimSpace(text)
	if text == "" {
		r.emit(domain.CaptureErrorEvent(ErrorNoMatch.Message()))
		return
	}
	r.logger.Debug("utterance recognized", "chars", len(text))
	r.emit(domain.CaptureResultEvent(text))
}

// finish marks s inactive so a new session may start. It reports whether s
// was cancelled, in which case nothing more should be emitted.
func (r *Recognizer) finish(s *session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == s {
		r.session = nil
	}
	return s.cancelled
}

func (r *Recognizer) fail(err error) {
	code := classify(err)
	r.logger.Warn("capture session failed", "code", code, "error", err)
	r.emit(domain.CaptureErrorEvent(code.Message()))
}

func (r *Recognizer) emit(ev domain.CaptureEvent) {
	select {
	case r.events <- ev:
	case <-r.done:
	}
}
