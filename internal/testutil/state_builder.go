package testutil

import "github.com/hupe1980/carebook/core"

// StateBuilder helps build conversation states for tests.
type StateBuilder struct {
	threadID string
	messages []core.Message
	stack    []core.DialogContext
}

// NewStateBuilder creates a new StateBuilder for the given thread id.
func NewStateBuilder(threadID string) *StateBuilder {
	return &StateBuilder{threadID: threadID}
}

// Message appends a message to the history (chainable).
func (b *StateBuilder) Message(m core.Message) *StateBuilder {
	b.messages = append(b.messages, m)
	return b
}

// UserText appends a user text message (chainable).
func (b *StateBuilder) UserText(t string) *StateBuilder {
	return b.Message(core.NewUserMessage(t))
}

// Push pushes a dialog context (chainable).
func (b *StateBuilder) Push(c core.DialogContext) *StateBuilder {
	b.stack = core.Push(b.stack, c)
	return b
}

// Build constructs the state.
func (b *StateBuilder) Build() *core.ConversationState {
	s := core.NewConversationState(b.threadID)
	s.Append(b.messages...)
	for _, c := range b.stack {
		s.ApplyStackUpdate(core.PushUpdate(c))
	}
	return s
}
