package tool

import (
	"fmt"
	"strings"

	"github.com/hupe1980/carebook/core"
	"github.com/hupe1980/carebook/internal/util"
	"github.com/hupe1980/carebook/schedule"
)

// Names of the control-flow tools understood by the routing engine.
const (
	ToGetInfoName                     = "ToGetInfo"
	ToAppointmentBookingAssistantName = "ToAppointmentBookingAssistant"
	ToPrimaryBookingAssistantName     = "ToPrimaryBookingAssistant"
	CompleteOrEscalateName            = "CompleteOrEscalate"
)

// GetInfoArgs is the hand-off payload for the information specialist.
type GetInfoArgs struct {
	DesiredDate    string  `json:"desired_date" description:"The desired date for booking (DD-MM-YYYY)" pattern:"^\\d{2}-\\d{2}-\\d{4}$"`
	Specialization *string `json:"specialization,omitempty" description:"The desired specialization of the doctor"`
	DoctorName     *string `json:"doctor_name,omitempty" description:"The desired doctor name for booking"`
	Request        string  `json:"request" description:"Any additional information or requests from the user regarding the appointment."`
}

// BookingArgs is the hand-off payload for the booking specialist.
type BookingArgs struct {
	Date                 string `json:"date" description:"The date for setting, cancelling or rescheduling the appointment (DD-MM-YYYY HH:MM)" pattern:"^\\d{2}-\\d{2}-\\d{4} \\d{2}:\\d{2}$"`
	IdentificationNumber int64  `json:"identification_number" description:"The 7-8 digit identification number of the patient"`
	DoctorName           string `json:"doctor_number" description:"The name of the doctor"`
	Request              string `json:"request" description:"Any additional information or requests from the user regarding the appointment."`
}

// PrimaryBookingArgs is the minimal hand-off payload for the booking specialist.
type PrimaryBookingArgs struct {
	Request string `json:"request" description:"Any necessary followup questions the appointment booking assistant should clarify before proceeding."`
}

// EscalateArgs is the payload of CompleteOrEscalate.
type EscalateArgs struct {
	Cancel *bool  `json:"cancel,omitempty" description:"True when the current task is done or abandoned (default true)"`
	Reason string `json:"reason" description:"Why control returns to the primary assistant"`
}

// HandoffTool delegates the dialog to a specialist. Its arguments are
// advisory: they are echoed into the announcement the specialist reads, and
// malformed fields never block the hand-off.
type HandoffTool struct {
	name        string
	description string
	parameters  map[string]any
	target      core.DialogContext
	title       string
}

var _ Signaler = (*HandoffTool)(nil)

// NewHandoffTool creates a hand-off tool to target. title is the human name of
// the specialist used in the announcement text.
func NewHandoffTool(name, description string, argsStruct any, target core.DialogContext, title string) *HandoffTool {
	return &HandoffTool{
		name:        name,
		description: description,
		parameters:  util.CreateSchema(argsStruct),
		target:      target,
		title:       title,
	}
}

// NewToGetInfo returns the router tool delegating availability lookups.
func NewToGetInfo() *HandoffTool {
	t := NewHandoffTool(ToGetInfoName,
		"Get information of doctor availability via name or specialization.",
		GetInfoArgs{}, core.ContextInfo, InfoAssistantTitle)
	props := t.parameters["properties"].(map[string]any)
	props["specialization"].(map[string]any)["enum"] = schedule.Specializations()
	props["doctor_name"].(map[string]any)["enum"] = schedule.DoctorNames()
	return t
}

// NewToAppointmentBookingAssistant returns the router tool delegating
// bookings, cancellations and reschedules with the details already known.
func NewToAppointmentBookingAssistant() *HandoffTool {
	t := NewHandoffTool(ToAppointmentBookingAssistantName,
		"Transfer work to a specialized assistant to handle appointment bookings, cancellations and reschedules.",
		BookingArgs{}, core.ContextBooking, BookingAssistantTitle)
	props := t.parameters["properties"].(map[string]any)
	props["identification_number"].(map[string]any)["minimum"] = 1000000
	props["identification_number"].(map[string]any)["maximum"] = 99999999
	return t
}

// NewToPrimaryBookingAssistant returns the router tool delegating to the
// booking specialist when details still have to be collected.
func NewToPrimaryBookingAssistant() *HandoffTool {
	return NewHandoffTool(ToPrimaryBookingAssistantName,
		"Transfers work to a specialized assistant to handle patient appointment booking, updates and cancellations.",
		PrimaryBookingArgs{}, core.ContextBooking, BookingAssistantTitle)
}

// Specialist titles used in hand-off announcements.
const (
	InfoAssistantTitle    = "Get Information Assistant"
	BookingAssistantTitle = "Appointment Assistant"
)

// Name implements Tool.
func (t *HandoffTool) Name() string { return t.name }

// Description implements Tool.
func (t *HandoffTool) Description() string { return t.description }

// Parameters implements Tool.
func (t *HandoffTool) Parameters() map[string]any { return t.parameters }

// Signal implements Signaler.
func (t *HandoffTool) Signal() Signal { return Signal{Kind: SignalHandoff, Target: t.target} }

// Call records the transfer and returns the announcement the specialist sees
// as the result of the hand-off call.
func (t *HandoffTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	tc.TransferToAgent(t.target)

	var sb strings.Builder
	fmt.Fprintf(&sb, "The assistant is now the %s. Reflect on the above conversation between the host assistant and the user. ", t.title)
	sb.WriteString("The user's intent is unsatisfied. Use the provided tools to assist the user. ")
	fmt.Fprintf(&sb, "Remember, you are %s, and the task is not complete until after you have successfully invoked the appropriate tool. ", t.title)
	sb.WriteString("If the user changes their mind or needs help for other tasks, call the CompleteOrEscalate function to let the primary host assistant take control. ")
	sb.WriteString("Do not mention who you are - just act as the proxy for the assistant.")

	if err := util.ValidateParameters(args, t.parameters); err != nil {
		fmt.Fprintf(&sb, "\nNote: the hand-off details were incomplete (%v); ask the user for what is missing.", err)
	}
	if req, ok := args["request"].(string); ok && strings.TrimSpace(req) != "" {
		fmt.Fprintf(&sb, "\nRequest: %s", req)
	}

	return sb.String(), nil
}

// EscalateTool implements CompleteOrEscalate.
type EscalateTool struct {
	parameters map[string]any
}

var _ Signaler = (*EscalateTool)(nil)

// NewCompleteOrEscalate creates the escalation tool shared by all specialists
// (and offered to the router, where it simply ends the turn).
func NewCompleteOrEscalate() *EscalateTool {
	return &EscalateTool{parameters: util.CreateSchema(EscalateArgs{})}
}

// Name implements Tool.
func (t *EscalateTool) Name() string { return CompleteOrEscalateName }

// Description implements Tool.
func (t *EscalateTool) Description() string {
	return "A tool to mark the current task as completed and/or to escalate control of the dialog to the main assistant, " +
		"who can re-route the dialog based on the user's needs."
}

// Parameters implements Tool.
func (t *EscalateTool) Parameters() map[string]any { return t.parameters }

// Signal implements Signaler.
func (t *EscalateTool) Signal() Signal { return Signal{Kind: SignalEscalate} }

// Call records the escalation and returns the resume message the router sees.
func (t *EscalateTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	tc.Escalate()

	msg := "Resuming dialog with the host assistant. Please reflect on the past conversation and assist the user as needed."
	if reason, ok := args["reason"].(string); ok && strings.TrimSpace(reason) != "" {
		msg += " Reason: " + reason
	}
	return msg, nil
}

// EscalationReason extracts the reason argument of a CompleteOrEscalate call.
func EscalationReason(args map[string]any) string {
	reason, _ := args["reason"].(string)
	return reason
}
