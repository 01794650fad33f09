package application

import (
	"sync"

	"voice-chat/internal/domain"
)

// StateCell publishes the current conversation state to any number of
// readers. Only the orchestrator loop writes to it.
type StateCell struct {
	mu     sync.RWMutex
	state  domain.ConversationState
	subs   map[int]chan domain.ConversationState
	nextID int
}

func NewStateCell(initial domain.ConversationState) *StateCell {
	return &StateCell{
		state: initial,
		subs:  make(map[int]chan domain.ConversationState),
	}
}

func (c *StateCell) Load() domain.ConversationState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.state
}

// Subscribe returns a channel that always holds the most recent state and a
// func that ends the subscription. The current state is delivered first.
// Slow readers skip intermediate states.
func (c *StateCell) Subscribe() (<-chan domain.ConversationState, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++

	ch := make(chan domain.ConversationState, 1)
	ch <- c.state
	c.subs[id] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
	return ch, unsubscribe
}

func (c *StateCell) set(state domain.ConversationState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = state
	for _, sub := range c.subs {
		select {
		case <-sub:
		default:
		}
		sub <- state
	}
}

// close ends every subscription.
func (c *StateCell) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, sub := range c.subs {
		delete(c.subs, id)
		close(sub)
	}
}
