package flow

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/hupe1980/carebook/agent"
	"github.com/hupe1980/carebook/core"
	"github.com/hupe1980/carebook/model"
	"github.com/hupe1980/carebook/tool"
)

// ToolsNode executes the domain tool calls of the last specialist message.
// Calls run sequentially in message order so booking writes of one message
// apply in the order the model issued them.
type ToolsNode struct {
	id         NodeID
	descriptor *agent.Descriptor
}

// NewToolsNode creates the tools node of a specialist.
func NewToolsNode(id NodeID, d *agent.Descriptor) *ToolsNode {
	return &ToolsNode{id: id, descriptor: d}
}

// ID implements Node.
func (n *ToolsNode) ID() NodeID { return n.id }

// Run implements Node. Every call gets exactly one result message; validation
// and execution failures become error results the specialist can read. Only
// a cancelled or expired turn context fails the node.
func (n *ToolsNode) Run(ctx context.Context, env *Env, state *core.ConversationState) (Update, error) {
	last, ok := state.LastMessage()
	if !ok {
		return Update{}, &core.RoutingError{Node: n.id.String(), Reason: "no tool calls to execute"}
	}

	calls := last.FunctionCalls()
	msgs := make([]core.Message, 0, len(calls))

	for _, fc := range calls {
		if err := ctx.Err(); err != nil {
			return Update{}, err
		}

		result, err := n.execute(ctx, env, fc)
		if err != nil && ctx.Err() != nil {
			return Update{}, ctx.Err()
		}

		msgs = append(msgs, core.NewFunctionResponseMessage(n.id.String(), fc.ID, fc.Name, result, err))
	}

	return Update{Messages: msgs}, nil
}

func (n *ToolsNode) execute(ctx context.Context, env *Env, fc core.FunctionCall) (result any, err error) {
	start := time.Now()
	logger := env.logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("flow.tool.panic", "node", n.id, "tool", fc.Name, "recover", r, "stack", string(debug.Stack()))
			result, err = nil, tool.NewToolError(fc.Name, fmt.Sprintf("internal error: %v", r), tool.CodePanic)
		}

		env.toolCalled(fc.Name, time.Since(start), err)
		logger.Info("flow.tool.executed", "node", n.id, "tool", fc.Name, "fc_id", fc.ID, "duration_ms", time.Since(start).Milliseconds(), "error", err != nil)
	}()

	t, ok := n.descriptor.Tool(fc.Name)
	if !ok {
		return nil, tool.NewToolError(fc.Name, "tool not available to "+n.descriptor.Name, tool.CodeUnknown)
	}

	if tool.SignalOf(t).Kind != tool.SignalNone {
		return NotExecutedResult, nil
	}

	args, err := model.ParseArguments(fc.Arguments)
	if err != nil {
		return nil, &tool.ToolError{Tool: fc.Name, Message: err.Error(), Code: tool.CodeValidation}
	}

	callCtx := ctx
	if env.ToolTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, env.ToolTimeout)
		defer cancel()
	}

	tc := core.NewToolContext(callCtx, env.ThreadID, n.id.String(), fc.ID, logger)

	result, err = t.Call(tc, args)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, tool.NewToolError(fc.Name, "tool timed out", tool.CodeExecution)
	}

	return result, err
}
