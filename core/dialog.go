package core

// DialogContext names the assistant that currently owns the conversation.
type DialogContext string

// Dialog contexts. ContextRouter is the implicit base of every stack.
const (
	ContextRouter  DialogContext = "router"
	ContextInfo    DialogContext = "info_specialist"
	ContextBooking DialogContext = "booking_specialist"
)

// Valid reports whether c belongs to the fixed context vocabulary.
func (c DialogContext) Valid() bool {
	switch c {
	case ContextRouter, ContextInfo, ContextBooking:
		return true
	}
	return false
}

// IsSpecialist reports whether c is one of the specialist contexts.
func (c DialogContext) IsSpecialist() bool {
	return c == ContextInfo || c == ContextBooking
}

// String implements fmt.Stringer.
func (c DialogContext) String() string { return string(c) }

// StackOp enumerates dialog stack mutations.
type StackOp int

const (
	// StackNoop leaves the stack unchanged.
	StackNoop StackOp = iota
	// StackPush enters a context.
	StackPush
	// StackPop leaves the active context.
	StackPop
)

// StackUpdate is the only way nodes mutate the dialog stack.
type StackUpdate struct {
	Op      StackOp
	Context DialogContext // used by StackPush only
}

// PushUpdate returns an update entering c.
func PushUpdate(c DialogContext) StackUpdate { return StackUpdate{Op: StackPush, Context: c} }

// PopUpdate returns an update leaving the active context.
func PopUpdate() StackUpdate { return StackUpdate{Op: StackPop} }

// Push returns a new stack with c on top.
func Push(stack []DialogContext, c DialogContext) []DialogContext {
	out := make([]DialogContext, len(stack), len(stack)+1)
	copy(out, stack)
	return append(out, c)
}

// Pop returns a new stack without its top element. Popping an empty stack
// yields an empty stack.
func Pop(stack []DialogContext) []DialogContext {
	if len(stack) == 0 {
		return []DialogContext{}
	}
	out := make([]DialogContext, len(stack)-1)
	copy(out, stack[:len(stack)-1])
	return out
}

// Current returns the top of the stack, or ContextRouter when it is empty.
func Current(stack []DialogContext) DialogContext {
	if len(stack) == 0 {
		return ContextRouter
	}
	return stack[len(stack)-1]
}

// ApplyStackUpdate applies u to stack and returns the resulting stack.
func ApplyStackUpdate(stack []DialogContext, u StackUpdate) []DialogContext {
	switch u.Op {
	case StackPush:
		return Push(stack, u.Context)
	case StackPop:
		return Pop(stack)
	default:
		out := make([]DialogContext, len(stack))
		copy(out, stack)
		return out
	}
}
