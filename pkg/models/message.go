package models

import (
	"fmt"
	"strings"
	"time"
)

// Role indicates the message author type.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ParseRole validates a role string.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// Message is one turn in a conversation.
type Message struct {
	ID        Id                `json:"id"`
	Role      Role              `json:"role"`
	Content   []ContentBlock    `json:"content"`
	CreatedAt time.Time         `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// NewMessage builds a message with a fresh id and timestamp.
func NewMessage(role Role, blocks ...ContentBlock) Message {
	return Message{
		ID:        NewId(),
		Role:      role,
		Content:   blocks,
		CreatedAt: time.Now().UTC(),
	}
}

// UserText builds a user message holding a single text block.
func UserText(text string) Message {
	return NewMessage(RoleUser, Text(text))
}

// AssistantText builds an assistant message holding a single text block.
func AssistantText(text string) Message {
	return NewMessage(RoleAssistant, Text(text))
}

// SystemText builds a system message holding a single text block.
func SystemText(text string) Message {
	return NewMessage(RoleSystem, Text(text))
}

// ToolResults builds a tool message from result blocks.
func ToolResults(results ...ContentBlock) Message {
	return NewMessage(RoleTool, results...)
}

// Text concatenates the text blocks of the message.
func (m Message) Text() string {
	var sb strings.Builder
	for _, b := range m.Content {
		if b.Type == BlockText {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// ToolUses returns the tool_use blocks in order.
func (m Message) ToolUses() []ContentBlock {
	var uses []ContentBlock
	for _, b := range m.Content {
		if b.Type == BlockToolUse {
			uses = append(uses, b)
		}
	}
	return uses
}

// HasToolUse reports whether the message contains any tool_use block.
func (m Message) HasToolUse() bool {
	for _, b := range m.Content {
		if b.Type == BlockToolUse {
			return true
		}
	}
	return false
}
