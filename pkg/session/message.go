package session

import "encoding/json"

// Role identifies the author of a message.
type Role string

// Standard message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message is one conversation turn in a session's history.
//
// History is append-only within a turn. Ordering is significant: helpers
// like LastUserMessage scan from the end of the slice.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// ToolCalls is set on assistant messages that request tool invocations.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID and Name are set on tool-role messages carrying a result.
	ToolCallID string `json:"tool_call_id,omitempty"`
	Name       string `json:"name,omitempty"`
}

// ToolCall is a structured tool invocation requested by the assistant.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// User creates a user-authored message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Assistant creates an assistant-authored message.
func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// System creates a system-authored message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// ToolResult creates a tool-role message answering the given call.
func ToolResult(callID, name, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID, Name: name}
}

// LastUserMessage returns the most recent user-authored message,
// scanning from the end of the history. The second return is false
// if the history contains no user message.
func LastUserMessage(history []Message) (Message, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleUser {
			return history[i], true
		}
	}
	return Message{}, false
}

// LastAssistantMessage returns the most recent assistant-authored message.
func LastAssistantMessage(history []Message) (Message, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleAssistant {
			return history[i], true
		}
	}
	return Message{}, false
}
