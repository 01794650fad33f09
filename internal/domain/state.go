package domain

import "fmt"

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseListening Phase = "listening"
	PhaseLoading   Phase = "loading"
	PhaseResponded Phase = "responded"
	PhaseFailed    Phase = "failed"
)

// ConversationState is what the rendering surface shows. Text carries the
// reply when responded and the user-facing message when failed.
type ConversationState struct {
	Phase Phase  `json:"phase"`
	Text  string `json:"text,omitempty"`
}

func Idle() ConversationState      { return ConversationState{Phase: PhaseIdle} }
func Listening() ConversationState { return ConversationState{Phase: PhaseListening} }
func Loading() ConversationState   { return ConversationState{Phase: PhaseLoading} }

func Responded(text string) ConversationState {
	return ConversationState{Phase: PhaseResponded, Text: text}
}

func Failed(message string) ConversationState {
	return ConversationState{Phase: PhaseFailed, Text: message}
}

func (s ConversationState) String() string {
	if s.Text == "" {
		return string(s.Phase)
	}
	return fmt.Sprintf("%s(%q)", s.Phase, s.Text)
}
