package flow

import (
	"context"
	"fmt"

	"github.com/hupe1980/carebook/agent"
	"github.com/hupe1980/carebook/core"
	"github.com/hupe1980/carebook/model"
	"github.com/hupe1980/carebook/tool"
)

// NotExecutedResult answers calls that were skipped because another call in
// the same message decided the route.
const NotExecutedResult = "Not executed: another call in the same message changed the dialog."

// AssistantNode runs an assistant and appends its reply.
type AssistantNode struct {
	id        NodeID
	assistant *agent.Assistant
}

// NewAssistantNode wraps a.
func NewAssistantNode(id NodeID, a *agent.Assistant) *AssistantNode {
	return &AssistantNode{id: id, assistant: a}
}

// ID implements Node.
func (n *AssistantNode) ID() NodeID { return n.id }

// Run implements Node.
func (n *AssistantNode) Run(ctx context.Context, env *Env, state *core.ConversationState) (Update, error) {
	msg, err := n.assistant.Invoke(ctx, state)
	if err != nil {
		return Update{}, err
	}

	env.logger().Debug("flow.assistant.reply",
		"node", n.id,
		"text_len", len(msg.Text()),
		"calls", len(msg.FunctionCalls()),
	)

	return Update{Messages: []core.Message{msg}}, nil
}

// EntryNode answers the hand-off call of the router with the specialist
// announcement and pushes the specialist onto the dialog stack.
type EntryNode struct {
	id     NodeID
	target core.DialogContext
	router *agent.Descriptor
}

// NewEntryNode creates the entry node of target.
func NewEntryNode(id NodeID, target core.DialogContext, router *agent.Descriptor) *EntryNode {
	return &EntryNode{id: id, target: target, router: router}
}

// ID implements Node.
func (n *EntryNode) ID() NodeID { return n.id }

// Run implements Node.
func (n *EntryNode) Run(ctx context.Context, env *Env, state *core.ConversationState) (Update, error) {
	last, ok := state.LastMessage()
	if !ok {
		return Update{}, &core.RoutingError{Node: n.id.String(), Reason: "no message to hand off"}
	}

	dec := Classify(last, n.router)
	if dec.Kind != DecisionHandoff || dec.Target != n.target {
		return Update{}, &core.RoutingError{Node: n.id.String(), Reason: fmt.Sprintf("expected hand-off to %s, got %s", n.target, dec.Kind)}
	}

	t, _ := n.router.Tool(dec.Call.Name)

	result, tc, err := callSignalTool(ctx, env, n.id, t, dec.Call)
	if err != nil {
		return Update{}, err
	}

	target, ok := tc.TransferTarget()
	if !ok || target != n.target {
		return Update{}, &core.RoutingError{Node: n.id.String(), Reason: fmt.Sprintf("tool %s did not transfer to %s", dec.Call.Name, n.target)}
	}

	env.logger().Info("flow.handoff", "node", n.id, "to", target, "tool", dec.Call.Name)

	msgs := []core.Message{core.NewFunctionResponseMessage(n.id.String(), dec.Call.ID, dec.Call.Name, result, nil)}
	msgs = append(msgs, notExecuted(n.id, last, dec.Call.ID)...)

	return Update{Messages: msgs, Stack: core.PushUpdate(target)}, nil
}

// LeaveSkillNode answers the escalate call of the active specialist, pops the
// dialog stack and returns control to the router.
type LeaveSkillNode struct {
	descriptors *agent.Descriptors
}

// NewLeaveSkillNode creates the leave_skill node.
func NewLeaveSkillNode(ds *agent.Descriptors) *LeaveSkillNode {
	return &LeaveSkillNode{descriptors: ds}
}

// ID implements Node.
func (n *LeaveSkillNode) ID() NodeID { return NodeLeaveSkill }

// Run implements Node.
func (n *LeaveSkillNode) Run(ctx context.Context, env *Env, state *core.ConversationState) (Update, error) {
	last, ok := state.LastMessage()
	if !ok {
		return Update{}, &core.RoutingError{Node: NodeLeaveSkill.String(), Reason: "no message to escalate"}
	}

	d, ok := n.descriptors.ForContext(state.Current())
	if !ok {
		return Update{}, &core.RoutingError{Node: NodeLeaveSkill.String(), Reason: fmt.Sprintf("no assistant for %q", state.Current())}
	}

	dec := Classify(last, d)
	if dec.Kind != DecisionEscalate {
		return Update{}, &core.RoutingError{Node: NodeLeaveSkill.String(), Reason: fmt.Sprintf("expected escalation, got %s", dec.Kind)}
	}

	t, _ := d.Tool(dec.Call.Name)

	result, tc, err := callSignalTool(ctx, env, NodeLeaveSkill, t, dec.Call)
	if err != nil {
		return Update{}, err
	}

	if !tc.Escalated() {
		return Update{}, &core.RoutingError{Node: NodeLeaveSkill.String(), Reason: fmt.Sprintf("tool %s did not escalate", dec.Call.Name)}
	}

	env.logger().Info("flow.escalate", "from", state.Current(), "reason", dec.Reason)

	msgs := []core.Message{core.NewFunctionResponseMessage(NodeLeaveSkill.String(), dec.Call.ID, dec.Call.Name, result, nil)}
	msgs = append(msgs, notExecuted(NodeLeaveSkill, last, dec.Call.ID)...)

	return Update{Messages: msgs, Stack: core.PopUpdate()}, nil
}

// callSignalTool runs a control-flow tool and returns its tool context so the
// caller can read the transfer or escalation it recorded.
func callSignalTool(ctx context.Context, env *Env, node NodeID, t tool.Tool, fc core.FunctionCall) (any, *core.ToolContext, error) {
	args, err := model.ParseArguments(fc.Arguments)
	if err != nil {
		// Hand-off arguments are advisory.
		args = map[string]any{}
	}

	tc := core.NewToolContext(ctx, env.ThreadID, node.String(), fc.ID, env.logger())
	if err := tc.Validate(); err != nil {
		return nil, nil, &core.RoutingError{Node: node.String(), Reason: err.Error()}
	}

	result, err := t.Call(tc, args)
	if err != nil {
		return nil, nil, err
	}

	return result, tc, nil
}

// notExecuted answers every call of msg other than handled.
func notExecuted(node NodeID, msg core.Message, handled string) []core.Message {
	var out []core.Message
	for _, fc := range msg.FunctionCalls() {
		if fc.ID == handled {
			continue
		}
		out = append(out, core.NewFunctionResponseMessage(node.String(), fc.ID, fc.Name, NotExecutedResult, nil))
	}
	return out
}

// PendingCalls returns the calls of the last assistant message that have no
// tool result yet.
func PendingCalls(state *core.ConversationState) []core.FunctionCall {
	answered := map[string]bool{}

	for i := len(state.Messages) - 1; i >= 0; i-- {
		m := state.Messages[i]
		switch m.Content.Role {
		case core.RoleTool:
			for _, fr := range m.FunctionResponses() {
				answered[fr.ID] = true
			}
		case core.RoleAssistant:
			var pending []core.FunctionCall
			for _, fc := range m.FunctionCalls() {
				if !answered[fc.ID] {
					pending = append(pending, fc)
				}
			}
			return pending
		default:
			return nil
		}
	}

	return nil
}

// CloseTurn answers calls left pending when a turn ends (for example an
// escalate call issued by the router itself) so the history stays well
// formed for the next model request.
func CloseTurn(state *core.ConversationState) []core.Message {
	var out []core.Message
	for _, fc := range PendingCalls(state) {
		out = append(out, core.NewFunctionResponseMessage(End.String(), fc.ID, fc.Name, NotExecutedResult, nil))
	}
	return out
}

// Answer returns the text of the most recent assistant message.
func Answer(state *core.ConversationState) string {
	for i := len(state.Messages) - 1; i >= 0; i-- {
		m := state.Messages[i]
		switch m.Content.Role {
		case core.RoleAssistant:
			return m.Text()
		case core.RoleUser:
			return ""
		}
	}
	return ""
}
