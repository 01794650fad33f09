package domain

type CaptureEventKind string

const (
	CaptureReady  CaptureEventKind = "ready"
	CaptureEnded  CaptureEventKind = "end"
	CaptureResult CaptureEventKind = "result"
	CaptureError  CaptureEventKind = "error"
)

// CaptureEvent is emitted by a speech capture session. Text holds the
// recognized utterance for results and a human-readable message for errors.
type CaptureEvent struct {
	Kind CaptureEventKind
	Text string
}

func CaptureReadyEvent() CaptureEvent { return CaptureEvent{Kind: CaptureReady} }
func CaptureEndedEvent() CaptureEvent { return CaptureEvent{Kind: CaptureEnded} }

func CaptureResultEvent(text string) CaptureEvent {
	return CaptureEvent{Kind: CaptureResult, Text: text}
}

func CaptureErrorEvent(message string) CaptureEvent {
	return CaptureEvent{Kind: CaptureError, Text: message}
}
