// Package tool implements the function calling subsystem that lets assistants
// invoke structured capabilities (schedule lookups, bookings, hand-offs) with
// schema validated arguments and consistent error handling.
package tool

import (
	"fmt"

	"github.com/hupe1980/carebook/core"
	"github.com/hupe1980/carebook/internal/util"
)

// Tool defines the interface for extending assistant capabilities with
// external functions.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters
//   - Handle errors gracefully
//   - Be safe for concurrent use
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool does.
	// It is provided to the model to help it decide when to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	// It is used for argument validation and model function calling.
	Parameters() map[string]any

	// Call executes the tool with decoded JSON arguments.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// SignalKind classifies control-flow tools.
type SignalKind int

const (
	// SignalNone marks ordinary domain tools.
	SignalNone SignalKind = iota
	// SignalHandoff delegates the dialog to a specialist.
	SignalHandoff
	// SignalEscalate returns the dialog to the router.
	SignalEscalate
)

// Signal describes the routing intent of a control-flow tool.
type Signal struct {
	Kind   SignalKind
	Target core.DialogContext // set for SignalHandoff
}

// Signaler is implemented by tools that steer the dialog instead of touching
// the schedule. Tools that do not implement it are domain tools.
type Signaler interface {
	Signal() Signal
}

// SignalOf returns the signal of t, or SignalNone for domain tools.
func SignalOf(t Tool) Signal {
	if s, ok := t.(Signaler); ok {
		return s.Signal()
	}
	return Signal{Kind: SignalNone}
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// Error codes carried by ToolError.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodeUnknown    = "UNKNOWN_TOOL"
	CodeStoreBusy  = "STORE_BUSY"
	CodePanic      = "PANIC"
)

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
