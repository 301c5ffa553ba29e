package flow

import (
	"fmt"

	"github.com/hupe1980/carebook/agent"
	"github.com/hupe1980/carebook/core"
	"github.com/hupe1980/carebook/model"
)

// NewHospitalGraph wires the router, the information and booking
// specialists, their entry and tools nodes and leave_skill into a validated
// graph. assistantOpts apply to all three assistants.
func NewHospitalGraph(ds *agent.Descriptors, llm model.Model, assistantOpts ...func(o *agent.AssistantOptions)) (*Graph, error) {
	g := NewGraph()

	nodes := []Node{
		NewAssistantNode(NodeRouter, agent.NewAssistant(ds.Router, llm, assistantOpts...)),
		NewEntryNode(NodeEnterInfo, core.ContextInfo, ds.Router),
		NewAssistantNode(NodeInfo, agent.NewAssistant(ds.Info, llm, assistantOpts...)),
		NewToolsNode(NodeInfoTools, ds.Info),
		NewEntryNode(NodeEnterBooking, core.ContextBooking, ds.Router),
		NewAssistantNode(NodeBooking, agent.NewAssistant(ds.Booking, llm, assistantOpts...)),
		NewToolsNode(NodeBookingTools, ds.Booking),
		NewLeaveSkillNode(ds),
	}

	for _, n := range nodes {
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
	}

	g.SetEntry(RouteStart, NodeRouter, NodeInfo, NodeBooking)

	g.AddConditionalEdges(NodeRouter, RouteRouter(ds.Router), NodeEnterInfo, NodeEnterBooking, End)

	g.AddEdge(NodeEnterInfo, NodeInfo)
	g.AddConditionalEdges(NodeInfo, RouteSpecialist(NodeInfo, NodeInfoTools, ds.Info), NodeInfoTools, NodeLeaveSkill, End)
	g.AddEdge(NodeInfoTools, NodeInfo)

	g.AddEdge(NodeEnterBooking, NodeBooking)
	g.AddConditionalEdges(NodeBooking, RouteSpecialist(NodeBooking, NodeBookingTools, ds.Booking), NodeBookingTools, NodeLeaveSkill, End)
	g.AddEdge(NodeBookingTools, NodeBooking)

	g.AddEdge(NodeLeaveSkill, NodeRouter)

	if err := g.Validate(); err != nil {
		return nil, err
	}

	return g, nil
}

// RouteStart resumes the specialist on top of the dialog stack, or the router.
func RouteStart(state *core.ConversationState) (NodeID, error) {
	switch state.Current() {
	case core.ContextInfo:
		return NodeInfo, nil
	case core.ContextBooking:
		return NodeBooking, nil
	default:
		return NodeRouter, nil
	}
}

// RouteRouter routes after the router spoke: hand-offs go to the entry node
// of the target specialist; replies and escalations end the turn.
func RouteRouter(router *agent.Descriptor) RouteFunc {
	return func(state *core.ConversationState) (NodeID, error) {
		dec, err := lastDecision(NodeRouter, state, router)
		if err != nil {
			return "", err
		}

		switch dec.Kind {
		case DecisionReply, DecisionEscalate:
			return End, nil
		case DecisionHandoff:
			switch dec.Target {
			case core.ContextInfo:
				return NodeEnterInfo, nil
			case core.ContextBooking:
				return NodeEnterBooking, nil
			}
			return "", &core.RoutingError{Node: NodeRouter.String(), Reason: fmt.Sprintf("hand-off to unknown context %q", dec.Target)}
		default:
			return "", routingFailure(NodeRouter, dec)
		}
	}
}

// RouteSpecialist routes after a specialist spoke. Escalation wins over
// domain tool calls issued in the same message.
func RouteSpecialist(node, tools NodeID, d *agent.Descriptor) RouteFunc {
	return func(state *core.ConversationState) (NodeID, error) {
		dec, err := lastDecision(node, state, d)
		if err != nil {
			return "", err
		}

		switch dec.Kind {
		case DecisionReply:
			return End, nil
		case DecisionEscalate:
			return NodeLeaveSkill, nil
		case DecisionDomainTools:
			return tools, nil
		default:
			return "", routingFailure(node, dec)
		}
	}
}

func lastDecision(node NodeID, state *core.ConversationState, d *agent.Descriptor) (Decision, error) {
	last, ok := state.LastMessage()
	if !ok {
		return Decision{}, &core.RoutingError{Node: node.String(), Reason: "empty history"}
	}
	return Classify(last, d), nil
}

func routingFailure(node NodeID, dec Decision) error {
	if dec.Kind == DecisionUnknown {
		return &core.RoutingError{Node: node.String(), Reason: fmt.Sprintf("unknown tool %q", dec.Tool)}
	}
	return &core.RoutingError{Node: node.String(), Reason: fmt.Sprintf("unexpected %s decision", dec.Kind)}
}
