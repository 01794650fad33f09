package terminal

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"voice-chat/internal/infra/surface"
)

// Run shows the terminal surface until the user quits or ctx is cancelled.
func Run(ctx context.Context, conversation surface.Conversation) error {
	states, unsubscribe := conversation.Subscribe()
	defer unsubscribe()

	p := tea.NewProgram(NewModel(conversation, states), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running terminal surface: %w", err)
	}
	return nil
}
