package agent

import (
	"fmt"

	"github.com/hupe1980/carebook/core"
	"github.com/hupe1980/carebook/model"
	"github.com/hupe1980/carebook/schedule"
	"github.com/hupe1980/carebook/tool"
)

// Descriptor describes one assistant: the node it runs as, the dialog context
// it serves, its instruction template and the tools it may call. Descriptors
// are immutable after construction.
type Descriptor struct {
	Name        string
	Context     core.DialogContext
	Instruction Instruction
	Tools       *tool.Registry
}

// ToolDefinitions converts the tool set into model tool definitions.
func (d *Descriptor) ToolDefinitions() []model.ToolDefinition {
	tools := d.Tools.List()
	defs := make([]model.ToolDefinition, len(tools))

	for i, t := range tools {
		defs[i] = model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		}
	}

	return defs
}

// Tool looks up a tool by name.
func (d *Descriptor) Tool(name string) (tool.Tool, bool) { return d.Tools.Get(name) }

// Descriptors is the fixed set of assistants of the hospital front desk.
type Descriptors struct {
	Router  *Descriptor
	Info    *Descriptor
	Booking *Descriptor
}

// NewDescriptors builds the router and both specialists over store.
func NewDescriptors(store schedule.Store) (*Descriptors, error) {
	st := tool.NewScheduleTools(store)

	router, err := tool.NewRegistry(
		tool.NewToAppointmentBookingAssistant(),
		tool.NewToGetInfo(),
		tool.NewToPrimaryBookingAssistant(),
		tool.NewCompleteOrEscalate(),
	)
	if err != nil {
		return nil, fmt.Errorf("router tools: %w", err)
	}

	info, err := tool.NewRegistry(append(st.InfoTools(), tool.NewCompleteOrEscalate())...)
	if err != nil {
		return nil, fmt.Errorf("info tools: %w", err)
	}

	booking, err := tool.NewRegistry(append(st.BookingTools(), tool.NewCompleteOrEscalate())...)
	if err != nil {
		return nil, fmt.Errorf("booking tools: %w", err)
	}

	return &Descriptors{
		Router: &Descriptor{
			Name:        core.ContextRouter.String(),
			Context:     core.ContextRouter,
			Instruction: NewInstructionFromText(RouterPrompt),
			Tools:       router,
		},
		Info: &Descriptor{
			Name:        core.ContextInfo.String(),
			Context:     core.ContextInfo,
			Instruction: NewInstructionFromText(InfoPrompt),
			Tools:       info,
		},
		Booking: &Descriptor{
			Name:        core.ContextBooking.String(),
			Context:     core.ContextBooking,
			Instruction: NewInstructionFromText(BookingPrompt),
			Tools:       booking,
		},
	}, nil
}

// ForContext returns the descriptor serving c.
func (ds *Descriptors) ForContext(c core.DialogContext) (*Descriptor, bool) {
	switch c {
	case core.ContextRouter:
		return ds.Router, true
	case core.ContextInfo:
		return ds.Info, true
	case core.ContextBooking:
		return ds.Booking, true
	}
	return nil, false
}

// All returns the descriptors in router, info, booking order.
func (ds *Descriptors) All() []*Descriptor {
	return []*Descriptor{ds.Router, ds.Info, ds.Booking}
}
