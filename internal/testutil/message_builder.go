package testutil

import (
	"encoding/json"
	"time"

	"github.com/hupe1980/carebook/core"
)

// MessageBuilder provides a fluent helper for constructing messages in tests.
// Example:
//
//	msg := NewMessageBuilder().Author("router").Call("to_get_info", map[string]any{"request": "x"}).Build()
//
// Chain only the parts you need; sensible defaults are applied.
type MessageBuilder struct {
	author string
	id     string
	role   string
	parts  []core.Part
	ts     time.Time
}

// NewMessageBuilder creates a builder with default author "assistant".
func NewMessageBuilder() *MessageBuilder {
	return &MessageBuilder{author: core.RoleAssistant, role: core.RoleAssistant}
}

// Author sets the author (node) name (chainable).
func (b *MessageBuilder) Author(a string) *MessageBuilder { b.author = a; return b }

// ID overrides the auto-generated message ID (chainable).
func (b *MessageBuilder) ID(id string) *MessageBuilder { b.id = id; return b }

// At overrides the timestamp (chainable).
func (b *MessageBuilder) At(ts time.Time) *MessageBuilder { b.ts = ts; return b }

// UserText appends a text part and sets role to user (chainable).
func (b *MessageBuilder) UserText(t string) *MessageBuilder {
	b.role = core.RoleUser
	b.author = core.RoleUser
	b.parts = append(b.parts, core.TextPart{Text: t})
	return b
}

// Text appends an assistant text part (chainable).
func (b *MessageBuilder) Text(t string) *MessageBuilder {
	b.parts = append(b.parts, core.TextPart{Text: t})
	return b
}

// Call appends a function call part with JSON encoded args (chainable). The
// call id defaults to "call-<name>".
func (b *MessageBuilder) Call(name string, args map[string]any) *MessageBuilder {
	return b.CallWithID("call-"+name, name, args)
}

// CallWithID appends a function call part with an explicit id (chainable).
func (b *MessageBuilder) CallWithID(id, name string, args map[string]any) *MessageBuilder {
	raw, _ := json.Marshal(args)
	b.role = core.RoleAssistant
	b.parts = append(b.parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: id, Name: name, Arguments: string(raw)}})
	return b
}

// Response appends a function response part and sets role to tool (chainable).
func (b *MessageBuilder) Response(id, name string, result any) *MessageBuilder {
	b.role = core.RoleTool
	b.parts = append(b.parts, core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{ID: id, Name: name, Response: result}})
	return b
}

// Content returns only the content of the message under construction.
func (b *MessageBuilder) Content() core.Content {
	parts := make([]core.Part, len(b.parts))
	copy(parts, b.parts)
	return core.Content{Role: b.role, Parts: parts}
}

// Build finalizes and returns the constructed message.
func (b *MessageBuilder) Build() core.Message {
	msg := core.NewMessage(b.author, b.Content())
	if b.id != "" {
		msg.ID = b.id
	}
	if !b.ts.IsZero() {
		msg.Timestamp = b.ts
	}
	return msg
}
