// Package flow implements the routing graph of the hospital front desk.
//
// A turn walks a fixed graph of nodes: the router and the two specialists
// (assistant nodes), an entry node per specialist that announces a hand-off
// and pushes the dialog stack, a tools node per specialist that executes
// domain tool calls, and leave_skill which pops the stack and returns control
// to the router. After every assistant node the last message is classified
// into a closed Decision (reply, hand-off, escalate, domain tools, unknown)
// and the conditional edges pick the next node from it.
//
// Nodes never mutate the conversation state directly; they return an Update
// (messages to append plus a dialog stack update) that the caller applies.
package flow
