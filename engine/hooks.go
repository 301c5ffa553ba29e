package engine

import (
	"sync"
	"time"

	"github.com/hupe1980/carebook/core"
	"github.com/hupe1980/carebook/logging"
)

// HookType defines the lifecycle points at which hooks run.
//
// Hooks are observers: they cannot alter the turn and run synchronously on
// the goroutine of the turn, so they must be fast.
type HookType string

const (
	// HookTurnStart runs after the thread lock was acquired.
	HookTurnStart HookType = "turn_start"

	// HookTurnEnd runs once per turn with the outcome.
	HookTurnEnd HookType = "turn_end"

	// HookNode runs after every node execution.
	HookNode HookType = "node"

	// HookModelCall runs after every language model call, including retries.
	HookModelCall HookType = "model_call"

	// HookToolCall runs after every domain tool execution.
	HookToolCall HookType = "tool_call"
)

// HookEvent describes one lifecycle event.
type HookEvent struct {
	// Type indicates which lifecycle point triggered the hook.
	Type HookType

	// ThreadID is empty for model calls.
	ThreadID string

	// Name is the node for HookNode, the agent for HookModelCall and the
	// tool for HookToolCall.
	Name string

	// Steps is the number of node executions of the turn (HookTurnEnd).
	Steps int

	// DialogState is the active context after the turn (HookTurnEnd).
	DialogState core.DialogContext

	Elapsed time.Duration
	Err     error
}

// Hook is a lifecycle observer.
type Hook interface {
	// Type returns the hook type this implementation handles.
	Type() HookType

	// Execute observes ev.
	Execute(ev HookEvent)
}

// FunctionHook wraps a function as a Hook.
//
// Example:
//
//	hook := engine.NewFunctionHook(engine.HookTurnEnd, func(ev engine.HookEvent) {
//	    fmt.Println("turn took", ev.Elapsed)
//	})
type FunctionHook struct {
	hookType HookType
	fn       func(ev HookEvent)
}

// NewFunctionHook creates a function-based hook.
func NewFunctionHook(hookType HookType, fn func(ev HookEvent)) *FunctionHook {
	return &FunctionHook{hookType: hookType, fn: fn}
}

// Type returns the hook type this function handles.
func (h *FunctionHook) Type() HookType { return h.hookType }

// Execute calls the wrapped function.
func (h *FunctionHook) Execute(ev HookEvent) {
	if h.fn != nil {
		h.fn(ev)
	}
}

// HookManager organizes and executes hooks.
//
// Hooks of one type run in registration order. Registration is safe for
// concurrent use with Fire, though it is meant to happen before the first turn.
type HookManager struct {
	mu    sync.RWMutex
	hooks map[HookType][]Hook
}

// NewHookManager creates an empty manager.
func NewHookManager() *HookManager {
	return &HookManager{hooks: make(map[HookType][]Hook)}
}

// Register adds hooks.
func (m *HookManager) Register(hooks ...Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, h := range hooks {
		m.hooks[h.Type()] = append(m.hooks[h.Type()], h)
	}
}

// Fire runs every hook registered for ev.Type.
func (m *HookManager) Fire(ev HookEvent) {
	if m == nil {
		return
	}

	m.mu.RLock()
	hooks := m.hooks[ev.Type]
	m.mu.RUnlock()

	for _, h := range hooks {
		h.Execute(ev)
	}
}

// LoggingHooks returns hooks writing turn, tool and model events to logger
// through the TurnLogger helpers.
func LoggingHooks(logger *logging.TurnLogger) []Hook {
	return []Hook{
		NewFunctionHook(HookTurnEnd, func(ev HookEvent) {
			logger.LogTurn(ev.ThreadID, ev.Steps, ev.Elapsed, ev.DialogState.String(), ev.Err)
		}),
		NewFunctionHook(HookToolCall, func(ev HookEvent) {
			logger.WithThread(ev.ThreadID).LogToolCall(ev.Name, ev.Elapsed, ev.Err == nil, ev.Err)
		}),
		NewFunctionHook(HookModelCall, func(ev HookEvent) {
			logger.LogModelCall(ev.Name, 0, ev.Elapsed, ev.Err == nil, ev.Err)
		}),
	}
}
