package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/carebook/core"
)

// Step is one scripted reply: either a response or an error.
type Step struct {
	Content core.Content
	Err     error
}

// TextStep returns a step replying with plain text.
func TextStep(text string) Step {
	return Step{Content: core.Content{Role: core.RoleAssistant, Parts: []core.Part{core.TextPart{Text: text}}}}
}

// CallStep returns a step replying with a single function call.
func CallStep(id, name, args string) Step {
	return Step{Content: core.Content{Role: core.RoleAssistant, Parts: []core.Part{
		core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: id, Name: name, Arguments: args}},
	}}}
}

// ErrorStep returns a step failing with err.
func ErrorStep(err error) Step { return Step{Err: err} }

// ScriptedModel is a deterministic in-memory Model that replays a queue of
// steps, one per Generate call. It records every request it receives, which
// makes it the workhorse of engine and assistant tests.
type ScriptedModel struct {
	mu       sync.Mutex
	info     Info
	steps    []Step
	requests []Request
}

// NewScriptedModel constructs a ScriptedModel replaying steps in order.
func NewScriptedModel(steps ...Step) *ScriptedModel {
	return &ScriptedModel{
		info:  Info{Name: "scripted", Provider: "scripted", SupportsTools: true},
		steps: steps,
	}
}

// Enqueue appends further steps.
func (m *ScriptedModel) Enqueue(steps ...Step) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, steps...)
}

// Requests returns a copy of the recorded requests.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Remaining returns the number of unconsumed steps.
func (m *ScriptedModel) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.steps)
}

// Generate implements Model.
func (m *ScriptedModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.requests = append(m.requests, req)
	var (
		step Step
		ok   bool
	)
	if len(m.steps) > 0 {
		step, m.steps, ok = m.steps[0], m.steps[1:], true
	}
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)

		if err := ctx.Err(); err != nil {
			errCh <- err
			return
		}
		if !ok {
			errCh <- fmt.Errorf("scripted model exhausted")
			return
		}
		if step.Err != nil {
			errCh <- step.Err
			return
		}
		respCh <- Response{ID: core.NewID(), Content: step.Content, FinishReason: "stop"}
	}()

	return respCh, errCh
}

// Info implements Model.
func (m *ScriptedModel) Info() Info { return m.info }
