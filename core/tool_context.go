package core

import (
	"context"
	"fmt"

	"github.com/hupe1980/carebook/logging"
)

// ToolContext provides a constrained surface for tool implementations invoked
// by an assistant. It carries the cancellation context of the tool call, the
// thread and call identifiers, and records hand-off signals raised by signal
// tools without touching the conversation state directly.
type ToolContext struct {
	ctx            context.Context
	threadID       string
	agentName      string
	functionCallID string

	transferTo *DialogContext
	escalated  bool

	logger *callLogger
}

// NewToolContext constructs a tool context for a single function call.
func NewToolContext(ctx context.Context, threadID, agentName, functionCallID string, logger logging.Logger) *ToolContext {
	return &ToolContext{
		ctx:            ctx,
		threadID:       threadID,
		agentName:      agentName,
		functionCallID: functionCallID,
		logger:         newCallLogger(logger, threadID, agentName, functionCallID),
	}
}

// Logger returns a logger bound to the thread, agent and call ids.
func (tc *ToolContext) Logger() logging.Logger { return tc.logger }

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// ThreadID returns the conversation thread of the invocation.
func (tc *ToolContext) ThreadID() string { return tc.threadID }

// FunctionCallID returns the function call ID associated with the tool invocation.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// AgentName returns the node name of the calling assistant.
func (tc *ToolContext) AgentName() string { return tc.agentName }

// TransferToAgent signals a hand-off to the given dialog context.
func (tc *ToolContext) TransferToAgent(target DialogContext) {
	tc.transferTo = &target
	tc.logger.Info("tool.transfer.request", "to_context", target)
}

// Escalate signals that the active specialist is done or gives up.
func (tc *ToolContext) Escalate() {
	tc.escalated = true
	tc.logger.Info("tool.escalate.request")
}

// TransferTarget returns the requested hand-off target, if any.
func (tc *ToolContext) TransferTarget() (DialogContext, bool) {
	if tc.transferTo == nil {
		return "", false
	}
	return *tc.transferTo, true
}

// Escalated reports whether Escalate was called.
func (tc *ToolContext) Escalated() bool { return tc.escalated }

// Validate performs a structural sanity check of the context.
func (tc *ToolContext) Validate() error {
	if tc.ctx == nil || tc.threadID == "" || tc.functionCallID == "" {
		return fmt.Errorf("invalid ToolContext")
	}

	return nil
}
