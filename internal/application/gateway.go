package application

import (
	"context"

	"voice-chat/internal/domain"
)

// Gateway sends history plus a new user utterance to the remote model and
// returns the reply text. Implementations call the endpoint exactly once and
// never mutate history.
type Gateway interface {
	Send(ctx context.Context, history []domain.Turn, userText string) (string, error)
}
