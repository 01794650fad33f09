package domain

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message exchanged in a conversation.
type Turn struct {
	Role    Role
	Content string
}

func UserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content}
}

func AssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content}
}

// MaxTurns is the default bound on how many turns are sent as context.
const MaxTurns = 10

// TextUtterancePrefix marks a capture payload that already carries text (vs audio).
const TextUtterancePrefix = "__TEXT__:"
