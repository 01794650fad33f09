package application

import "context"

// AudioSource yields one recorded utterance per NextUtterance call. Payloads
// prefixed with domain.TextUtterancePrefix carry text instead of audio.
type AudioSource interface {
	Start(ctx context.Context) error
	Stop() error
	NextUtterance(ctx context.Context) ([]byte, error)
	Name() string
}
