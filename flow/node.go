package flow

import (
	"context"
	"time"

	"github.com/hupe1980/carebook/core"
	"github.com/hupe1980/carebook/logging"
)

// NodeID names a node of the routing graph.
type NodeID string

// Nodes of the hospital routing graph.
const (
	NodeRouter       NodeID = "router"
	NodeEnterInfo    NodeID = "enter_info"
	NodeInfo         NodeID = "info_specialist"
	NodeInfoTools    NodeID = "info_tools"
	NodeEnterBooking NodeID = "enter_booking"
	NodeBooking      NodeID = "booking_specialist"
	NodeBookingTools NodeID = "booking_tools"
	NodeLeaveSkill   NodeID = "leave_skill"

	// End is the terminal pseudo-node; reaching it ends the turn.
	End NodeID = "terminal"
)

func (id NodeID) String() string { return string(id) }

// Update is the effect of one node execution.
type Update struct {
	Messages []core.Message
	Stack    core.StackUpdate
}

// Apply appends the messages and applies the stack update to state.
func (u Update) Apply(state *core.ConversationState) {
	state.Append(u.Messages...)
	state.ApplyStackUpdate(u.Stack)
}

// Env carries per-turn settings shared by all nodes. Nodes require a non-nil
// Env; Logger and OnToolCall are optional.
type Env struct {
	ThreadID    string
	Logger      logging.Logger
	ToolTimeout time.Duration
	// OnToolCall is invoked after every tool execution.
	OnToolCall func(tool string, elapsed time.Duration, err error)
}

func (e *Env) logger() logging.Logger {
	if e.Logger == nil {
		return logging.NoOpLogger{}
	}
	return e.Logger
}

func (e *Env) toolCalled(name string, elapsed time.Duration, err error) {
	if e.OnToolCall != nil {
		e.OnToolCall(name, elapsed, err)
	}
}

// Node is one step of the routing graph. Run must not modify state.
type Node interface {
	ID() NodeID
	Run(ctx context.Context, env *Env, state *core.ConversationState) (Update, error)
}
