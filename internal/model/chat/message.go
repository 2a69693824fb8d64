package chat

import (
	"errors"
	"fmt"
	"strings"
)

// Role tags a message with its author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

var (
	ErrEmptyConversation = errors.New("messages are required")
	ErrInvalidRole       = errors.New("invalid message role")
	ErrEmptyContent      = errors.New("message content is required")
)

// Message is a single turn of the transcript.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// SystemMessage builds an instruction message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user turn.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant turn.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// IsDialogue reports whether the message is a user or assistant turn.
func (m Message) IsDialogue() bool {
	return m.Role == RoleUser || m.Role == RoleAssistant
}

// Same reports whether two messages carry the same role and content.
func (m Message) Same(other Message) bool {
	return m.Role == other.Role && m.Content == other.Content
}

// validateInbound checks a message supplied by the browser. Only dialogue turns
// are accepted; instruction messages are injected server side.
func validateInbound(idx int, m Message) error {
	if !m.IsDialogue() {
		return fmt.Errorf("message %d: %w: %q", idx, ErrInvalidRole, m.Role)
	}
	if strings.TrimSpace(m.Content) == "" {
		return fmt.Errorf("message %d: %w", idx, ErrEmptyContent)
	}
	return nil
}
