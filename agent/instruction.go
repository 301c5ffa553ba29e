package agent

import (
	"time"

	"github.com/hupe1980/carebook/core"
	"github.com/hupe1980/carebook/internal/util"
	"github.com/hupe1980/carebook/schedule"
)

// InstructionContext is the data available when rendering instructions.
type InstructionContext struct {
	Now         time.Time
	ThreadID    string
	DialogState core.DialogContext
}

// Provider supplies dynamic instruction text at runtime.
type Provider interface {
	Instruction(InstructionContext) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Providers.
type Func func(InstructionContext) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(ic InstructionContext) (string, error) { return f(ic) }

// Instruction represents either a static template or a dynamic provider.
//
// Static text is rendered with text/template and may reference {{.Today}}
// (DD-MM-YYYY), {{.Year}}, {{.ThreadID}} and {{.DialogState}}.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static template.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(InstructionContext) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic returns true if the instruction is backed by a static template.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// Resolve returns the instruction text, invoking the provider if needed.
func (i Instruction) Resolve(ic InstructionContext) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(ic)
	}

	if ic.Now.IsZero() {
		ic.Now = time.Now()
	}

	return util.RenderTemplate(i.text, map[string]any{
		"Today":       ic.Now.Format(schedule.DateLayout),
		"Year":        ic.Now.Year(),
		"ThreadID":    ic.ThreadID,
		"DialogState": ic.DialogState.String(),
	})
}
