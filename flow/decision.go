package flow

import (
	"github.com/hupe1980/carebook/agent"
	"github.com/hupe1980/carebook/core"
	"github.com/hupe1980/carebook/model"
	"github.com/hupe1980/carebook/tool"
)

// DecisionKind enumerates the closed set of assistant outcomes.
type DecisionKind int

const (
	// DecisionReply is a free-text answer for the user.
	DecisionReply DecisionKind = iota
	// DecisionHandoff delegates to a specialist.
	DecisionHandoff
	// DecisionEscalate hands control back to the router.
	DecisionEscalate
	// DecisionDomainTools requests schedule tool executions.
	DecisionDomainTools
	// DecisionUnknown names a tool the assistant does not have.
	DecisionUnknown
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionReply:
		return "reply"
	case DecisionHandoff:
		return "handoff"
	case DecisionEscalate:
		return "escalate"
	case DecisionDomainTools:
		return "domain_tools"
	case DecisionUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Decision is the classification of an assistant message.
type Decision struct {
	Kind DecisionKind
	// Target is the specialist of a hand-off.
	Target core.DialogContext
	// Call is the hand-off or escalate call that decided the route.
	Call core.FunctionCall
	// Calls holds the domain tool calls, in message order.
	Calls []core.FunctionCall
	// Reason is the escalation reason, if any.
	Reason string
	// Tool is the offending name for DecisionUnknown.
	Tool string
}

// Classify maps an assistant message onto a Decision using the tool set of
// the descriptor that produced it.
//
// Precedence: a call to a tool the descriptor does not have yields
// DecisionUnknown; otherwise an escalate call wins over everything else,
// then the first hand-off call, then domain tools. A message without calls
// is a reply.
func Classify(msg core.Message, d *agent.Descriptor) Decision {
	calls := msg.FunctionCalls()
	if len(calls) == 0 {
		return Decision{Kind: DecisionReply}
	}

	var (
		escalate *core.FunctionCall
		handoff  *core.FunctionCall
		target   core.DialogContext
		domain   []core.FunctionCall
	)

	for i := range calls {
		fc := calls[i]

		t, ok := d.Tool(fc.Name)
		if !ok {
			return Decision{Kind: DecisionUnknown, Tool: fc.Name, Call: fc}
		}

		switch sig := tool.SignalOf(t); sig.Kind {
		case tool.SignalEscalate:
			if escalate == nil {
				escalate = &fc
			}
		case tool.SignalHandoff:
			if handoff == nil {
				handoff = &fc
				target = sig.Target
			}
		default:
			domain = append(domain, fc)
		}
	}

	switch {
	case escalate != nil:
		args, _ := model.ParseArguments(escalate.Arguments)
		return Decision{Kind: DecisionEscalate, Call: *escalate, Reason: tool.EscalationReason(args)}
	case handoff != nil:
		return Decision{Kind: DecisionHandoff, Call: *handoff, Target: target}
	default:
		return Decision{Kind: DecisionDomainTools, Calls: domain}
	}
}
