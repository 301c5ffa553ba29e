package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Conversation roles used in message content.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry of the append-only conversation history. After it has
// been appended to a ConversationState it must be treated as immutable.
//
// Author records the graph node that produced the message (router,
// info_specialist, enter_booking, ...) or "user" for inbound queries.
type Message struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
	Content   Content   `json:"content"`
}

// NewMessage creates a message authored by 'author' with the given content.
func NewMessage(author string, content Content) Message {
	return Message{
		ID:        NewID(),
		Author:    author,
		Timestamp: time.Now().UTC(),
		Content:   content,
	}
}

// NewUserMessage creates a user-authored text message.
func NewUserMessage(text string) Message {
	return NewMessage(RoleUser, Content{Role: RoleUser, Parts: []Part{TextPart{Text: text}}})
}

// NewAssistantMessage creates an assistant message with a single text part.
func NewAssistantMessage(author, text string) Message {
	return NewMessage(author, Content{Role: RoleAssistant, Parts: []Part{TextPart{Text: text}}})
}

// NewFunctionResponseMessage records the outcome of a previously emitted function call.
// If err is non-nil its message is copied into the response Error field.
func NewFunctionResponseMessage(author, id, functionName string, result any, err error) Message {
	fr := FunctionResponse{ID: id, Name: functionName, Response: result}
	if err != nil {
		fr.Error = err.Error()
	}
	return NewMessage(author, Content{Role: RoleTool, Parts: []Part{FunctionResponsePart{FunctionResponse: fr}}})
}

// NewID generates a new unique identifier for messages and synthetic call ids.
func NewID() string { return uuid.NewString() }

// FunctionCalls returns any FunctionCall parts contained within the message
// preserving their original order.
func (m Message) FunctionCalls() []FunctionCall {
	var calls []FunctionCall
	for _, p := range m.Content.Parts {
		if fc, ok := p.(FunctionCallPart); ok {
			calls = append(calls, fc.FunctionCall)
		}
	}
	return calls
}

// FunctionResponses returns any FunctionResponse parts contained within the
// message preserving their original order.
func (m Message) FunctionResponses() []FunctionResponse {
	var responses []FunctionResponse
	for _, p := range m.Content.Parts {
		if fr, ok := p.(FunctionResponsePart); ok {
			responses = append(responses, fr.FunctionResponse)
		}
	}
	return responses
}

// Text concatenates all text parts.
func (m Message) Text() string {
	var sb strings.Builder
	for _, p := range m.Content.Parts {
		if tp, ok := p.(TextPart); ok {
			sb.WriteString(tp.Text)
		}
	}
	return sb.String()
}

// IsActionable reports whether the message carries at least one function call
// or a non-blank text payload.
func (m Message) IsActionable() bool {
	return len(m.FunctionCalls()) > 0 || strings.TrimSpace(m.Text()) != ""
}
