package application

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"voice-chat/internal/domain"
)

const MessageCaptureError = "Speech recognition error. Please try again."

type intent int

const (
	intentMicTap intent = iota
	intentRetry
	intentAskAnother
	intentStop
	intentReset
)

func (i intent) String() string {
	switch i {
	case intentMicTap:
		return "mic_tap"
	case intentRetry:
		return "retry"
	case intentAskAnother:
		return "ask_another"
	case intentStop:
		return "stop"
	case intentReset:
		return "reset"
	default:
		return "unknown"
	}
}

type exchangeResult struct {
	requestID  string
	generation uint64
	userText   string
	reply      string
	err        error
}

// Orchestrator is the conversation state machine. Every transition runs on
// the goroutine executing Run; intents, capture events and gateway results
// are funneled into it through channels.
type Orchestrator struct {
	capture    SpeechCapture
	gateway    Gateway
	transcript *Transcript
	state      *StateCell
	logger     *slog.Logger

	intents chan intent
	results chan exchangeResult
	done    chan struct{}

	// owned by the Run goroutine
	pending    string
	hasPending bool
	inflight   bool
	generation uint64

	calls conc.WaitGroup
}

func NewOrchestrator(
	capture SpeechCapture,
	gateway Gateway,
	transcript *Transcript,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		capture:    capture,
		gateway:    gateway,
		transcript: transcript,
		state:      NewStateCell(domain.Idle()),
		logger:     logger,
		intents:    make(chan intent, 16),
		results:    make(chan exchangeResult),
		done:       make(chan struct{}),
	}
}

// Run drives the state machine until ctx is cancelled. It must be called once.
func (o *Orchestrator) Run(ctx context.Context) error {
	events := o.capture.Events()

	o.logger.Info("conversation orchestrator started", "max_turns", o.transcript.MaxTurns())

	for {
		select {
		case <-ctx.Done():
			o.shutdown()
			return ctx.Err()

		case in := <-o.intents:
			o.handleIntent(ctx, in)

		case ev, ok := <-events:
			if !ok {
				o.logger.Warn("capture event stream closed")
				events = nil
				continue
			}
			o.handleCapture(ctx, ev)

		case res := <-o.results:
			o.handleResult(res)
		}
	}
}

func (o *Orchestrator) shutdown() {
	close(o.done)
	o.calls.Wait()
	o.state.close()
	if err := o.capture.Close(); err != nil {
		o.logger.Error("closing speech capture", "error", err)
	}
	o.logger.Info("conversation orchestrator stopped")
}

func (o *Orchestrator) MicTap()     { o.send(intentMicTap) }
func (o *Orchestrator) Retry()      { o.send(intentRetry) }
func (o *Orchestrator) AskAnother() { o.send(intentAskAnother) }

// Stop halts speech capture, e.g. when the app is backgrounded. The
// conversation state and any in-flight request are left alone.
func (o *Orchestrator) Stop() { o.send(intentStop) }

// Reset clears the conversation and returns to idle.
func (o *Orchestrator) Reset() { o.send(intentReset) }

func (o *Orchestrator) send(in intent) {
	select {
	case o.intents <- in:
	case <-o.done:
		o.logger.Debug("dropping intent after shutdown", "intent", in)
	}
}

func (o *Orchestrator) State() domain.ConversationState {
	return o.state.Load()
}

func (o *Orchestrator) Subscribe() (<-chan domain.ConversationState, func()) {
	return o.state.Subscribe()
}

func (o *Orchestrator) History() []domain.Turn {
	return o.transcript.Snapshot()
}

func (o *Orchestrator) HistorySize() int {
	return o.transcript.Len()
}

func (o *Orchestrator) handleIntent(ctx context.Context, in intent) {
	current := o.state.Load()

	switch in {
	case intentMicTap:
		if o.inflight || current.Phase == domain.PhaseLoading {
			o.logger.Debug("ignoring mic tap while a request is in flight")
			return
		}
		if !o.capture.Available() {
			o.logger.Warn("speech capture unavailable")
			o.transition(domain.Failed(MessageCaptureUnavailable))
			return
		}
		o.capture.Start()
		o.transition(domain.Listening())

	case intentRetry:
		if o.inflight || current.Phase == domain.PhaseLoading || current.Phase == domain.PhaseListening {
			o.logger.Debug("ignoring retry", "state", current)
			return
		}
		if !o.hasPending {
			o.transition(domain.Idle())
			return
		}
		o.logger.Info("retrying last message")
		o.beginExchange(ctx, o.pending)

	case intentAskAnother:
		if current.Phase != domain.PhaseResponded {
			o.logger.Debug("ignoring ask another", "state", current)
			return
		}
		o.transition(domain.Idle())

	case intentStop:
		o.logger.Info("stopping speech capture")
		o.capture.Stop()

	case intentReset:
		o.capture.Cancel()
		o.transcript.Clear()
		o.pending = ""
		o.hasPending = false
		o.generation++
		o.logger.Info("conversation cleared")
		o.transition(domain.Idle())
	}
}

func (o *Orchestrator) handleCapture(ctx context.Context, ev domain.CaptureEvent) {
	current := o.state.Load()
	if current.Phase != domain.PhaseListening {
		o.logger.Debug("dropping capture event", "kind", ev.Kind, "state", current)
		return
	}

	switch ev.Kind {
	case domain.CaptureReady:
		o.logger.Debug("capture ready")

	case domain.CaptureEnded:
		o.logger.Debug("end of capture")

	case domain.CaptureResult:
		text := strings.TrimSpace(ev.Text)
		if text == "" {
			o.transition(domain.Failed(MessageNoSpeech))
			return
		}
		o.pending = text
		o.hasPending = true
		o.beginExchange(ctx, text)

	case domain.CaptureError:
		message := ev.Text
		if strings.TrimSpace(message) == "" {
			message = MessageCaptureError
		}
		o.logger.Warn("capture failed", "kind", domain.ErrorCapture, "message", message)
		o.transition(domain.Failed(message))
	}
}

func (o *Orchestrator) beginExchange(ctx context.Context, userText string) {
	if o.inflight {
		o.logger.Warn("request already in flight, not sending")
		return
	}

	history := o.transcript.Snapshot()
	result := exchangeResult{
		requestID:  uuid.NewString(),
		generation: o.generation,
		userText:   userText,
	}

	o.inflight = true
	o.transition(domain.Loading())
	o.logger.Info("sending message", "request_id", result.requestID, "history_turns", len(history))

	o.calls.Go(func() {
		result.reply, result.err = o.gateway.Send(ctx, history, userText)
		if result.err == nil && result.reply == "" {
			result.err = &domain.GatewayError{Message: domain.ErrEmptyResponse.Error(), Err: domain.ErrEmptyResponse}
		}

		select {
		case o.results <- result:
		case <-o.done:
		}
	})
}

func (o *Orchestrator) handleResult(res exchangeResult) {
	o.inflight = false

	if res.generation != o.generation {
		o.logger.Info("discarding reply for a cleared conversation", "request_id", res.requestID)
		return
	}

	if res.err != nil {
		o.rollback(res)
		classified := ClassifyGatewayError(res.err)
		o.logger.Warn("message failed",
			"request_id", res.requestID,
			"kind", classified.Kind,
			"error", res.err,
		)
		o.transition(domain.Failed(classified.UserMessage))
		return
	}

	o.transcript.Append(domain.UserTurn(res.userText))
	o.transcript.Append(domain.AssistantTurn(res.reply))
	o.logger.Info("received reply",
		"request_id", res.requestID,
		"history_turns", o.transcript.Len(),
	)
	o.transition(domain.Responded(res.reply))
}

// rollback drops the user turn of a failed exchange. User turns are only
// committed together with their reply, so this removes nothing unless the
// transcript ends in this exchange's user turn; assistant turns are never
// touched.
func (o *Orchestrator) rollback(res exchangeResult) {
	last, ok := o.transcript.Last()
	if !ok || last.Role != domain.RoleUser || last.Content != res.userText {
		return
	}
	o.transcript.RemoveLast()
	o.logger.Debug("rolled back user turn", "request_id", res.requestID)
}

func (o *Orchestrator) transition(next domain.ConversationState) {
	prev := o.state.Load()
	o.state.set(next)
	o.logger.Debug("state changed", "from", prev, "to", next)
}
