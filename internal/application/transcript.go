package application

import (
	"sync"

	"github.com/jinzhu/copier"

	"voice-chat/internal/domain"
)

// Transcript is the bounded, ordered log of turns used as model context.
// Only the orchestrator mutates it; surfaces may read concurrently.
type Transcript struct {
	mu       sync.RWMutex
	turns    []domain.Turn
	maxTurns int
}

func NewTranscript(maxTurns int) *Transcript {
	if maxTurns <= 0 {
		maxTurns = domain.MaxTurns
	}
	return &Transcript{maxTurns: maxTurns}
}

// Append adds turn to the end and trims the oldest turns past the bound.
func (t *Transcript) Append(turn domain.Turn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.turns = append(t.turns, turn)
	t.trimLocked()
}

func (t *Transcript) Trim() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.trimLocked()
}

func (t *Transcript) trimLocked() {
	for len(t.turns) > t.maxTurns {
		t.turns[0] = domain.Turn{}
		t.turns = t.turns[1:]
	}
}

// RemoveLast pops the newest turn. It reports false when the transcript is empty.
func (t *Transcript) RemoveLast() (domain.Turn, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.turns) == 0 {
		return domain.Turn{}, false
	}
	last := t.turns[len(t.turns)-1]
	t.turns = t.turns[:len(t.turns)-1]
	return last, true
}

// Last returns the newest turn without removing it.
func (t *Transcript) Last() (domain.Turn, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.turns) == 0 {
		return domain.Turn{}, false
	}
	return t.turns[len(t.turns)-1], true
}

// Snapshot returns an independent copy, oldest turn first.
func (t *Transcript) Snapshot() []domain.Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snapshot := make([]domain.Turn, 0, len(t.turns))
	if err := copier.Copy(&snapshot, t.turns); err != nil {
		// copier only fails on mismatched kinds, which cannot happen here
		snapshot = append(snapshot[:0], t.turns...)
	}
	return snapshot
}

func (t *Transcript) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.turns = nil
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.turns)
}

func (t *Transcript) MaxTurns() int {
	return t.maxTurns
}
