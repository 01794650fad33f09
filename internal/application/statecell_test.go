package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-chat/internal/domain"
)

func TestStateCell_SubscribeDeliversCurrent(t *testing.T) {
	cell := NewStateCell(domain.Idle())

	updates, unsubscribe := cell.Subscribe()
	defer unsubscribe()

	assert.Equal(t, domain.Idle(), <-updates)
}

func TestStateCell_SlowReaderGetsLatest(t *testing.T) {
	cell := NewStateCell(domain.Idle())
	updates, unsubscribe := cell.Subscribe()
	defer unsubscribe()

	cell.set(domain.Listening())
	cell.set(domain.Loading())
	cell.set(domain.Responded("done"))

	assert.Equal(t, domain.Responded("done"), cell.Load())
	assert.Equal(t, domain.Responded("done"), <-updates)
	select {
	case s := <-updates:
		t.Fatalf("unexpected extra state %s", s)
	default:
	}
}

func TestStateCell_Unsubscribe(t *testing.T) {
	cell := NewStateCell(domain.Idle())
	updates, unsubscribe := cell.Subscribe()
	<-updates

	unsubscribe()
	unsubscribe()
	cell.set(domain.Listening())

	_, ok := <-updates
	assert.False(t, ok)
}

func TestStateCell_CloseEndsSubscriptions(t *testing.T) {
	cell := NewStateCell(domain.Idle())
	first, unsubFirst := cell.Subscribe()
	second, unsubSecond := cell.Subscribe()

	cell.close()

	for _, ch := range []<-chan domain.ConversationState{first, second} {
		<-ch
		_, ok := <-ch
		require.False(t, ok)
	}

	// unsubscribing after close must not panic
	unsubFirst()
	unsubSecond()
}
