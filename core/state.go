package core

import (
	"context"
	"time"
)

// ConversationState is the unit of persisted session data: the message
// history plus the dialog stack for one thread.
//
// Contract:
//   - Messages only grow by Append; existing entries are never rewritten
//   - DialogStack only changes through ApplyStackUpdate
//   - Clone performs deep copies of slices for safe divergence
//
// A ConversationState is not safe for concurrent mutation. The engine holds
// the per-thread lock for the whole turn and works on a clone.
type ConversationState struct {
	ThreadID    string          `json:"thread_id"`
	Messages    []Message       `json:"messages"`
	DialogStack []DialogContext `json:"dialog_stack"`
	Created     time.Time       `json:"created"`
	Updated     time.Time       `json:"updated"`
}

// NewConversationState creates an empty state for threadID.
func NewConversationState(threadID string) *ConversationState {
	now := time.Now().UTC()
	return &ConversationState{
		ThreadID:    threadID,
		Messages:    []Message{},
		DialogStack: []DialogContext{},
		Created:     now,
		Updated:     now,
	}
}

// Append extends the history.
func (s *ConversationState) Append(msgs ...Message) {
	if len(msgs) == 0 {
		return
	}
	s.Messages = append(s.Messages, msgs...)
	s.Updated = time.Now().UTC()
}

// ApplyStackUpdate mutates the dialog stack.
func (s *ConversationState) ApplyStackUpdate(u StackUpdate) {
	if u.Op == StackNoop {
		return
	}
	s.DialogStack = ApplyStackUpdate(s.DialogStack, u)
	s.Updated = time.Now().UTC()
}

// Current returns the active dialog context.
func (s *ConversationState) Current() DialogContext { return Current(s.DialogStack) }

// LastMessage returns the most recent message, if any.
func (s *ConversationState) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// Contents returns the history as provider-neutral content.
func (s *ConversationState) Contents() []Content {
	out := make([]Content, 0, len(s.Messages))
	for _, m := range s.Messages {
		out = append(out, m.Content)
	}
	return out
}

// Clone returns a deep copy of the state safe for independent mutation.
func (s *ConversationState) Clone() *ConversationState {
	clone := &ConversationState{
		ThreadID:    s.ThreadID,
		Messages:    make([]Message, len(s.Messages)),
		DialogStack: make([]DialogContext, len(s.DialogStack)),
		Created:     s.Created,
		Updated:     s.Updated,
	}
	copy(clone.Messages, s.Messages)
	copy(clone.DialogStack, s.DialogStack)
	for i := range clone.Messages {
		parts := make([]Part, len(clone.Messages[i].Content.Parts))
		copy(parts, clone.Messages[i].Content.Parts)
		clone.Messages[i].Content.Parts = parts
	}
	return clone
}

// Trim bounds the history to roughly max messages and returns how many were
// dropped. The retained window always starts at a user message so that no
// tool response is separated from the call that produced it. When the most
// recent max messages contain no user message the window is widened back to
// the last one. max <= 0 disables trimming.
func (s *ConversationState) Trim(max int) int {
	if max <= 0 || len(s.Messages) <= max {
		return 0
	}

	cut := -1
	for i := len(s.Messages) - max; i < len(s.Messages); i++ {
		if s.Messages[i].Content.Role == RoleUser {
			cut = i
			break
		}
	}
	if cut < 0 {
		for i := len(s.Messages) - max - 1; i >= 0; i-- {
			if s.Messages[i].Content.Role == RoleUser {
				cut = i
				break
			}
		}
	}
	if cut <= 0 {
		return 0
	}

	kept := make([]Message, len(s.Messages)-cut)
	copy(kept, s.Messages[cut:])
	s.Messages = kept
	return cut
}

// ConversationStore persists conversation states keyed by thread id.
// Load returns ErrSessionNotFound for unknown threads.
type ConversationStore interface {
	Load(ctx context.Context, threadID string) (*ConversationState, error)
	Save(ctx context.Context, state *ConversationState) error
	Delete(ctx context.Context, threadID string) error
}
