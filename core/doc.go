// Package core provides the foundational domain types used by carebook:
//
//   - Content / Part / Message (provider-neutral conversation records)
//   - ConversationState and the ConversationStore contract
//   - DialogContext and the pure dialog stack operations (Push, Pop, Current)
//   - ToolContext (scoped execution surface for tools)
//   - The turn error taxonomy (RoutingError, AdapterFailure, TurnError)
//
// The package keeps implementation concerns (persistence, graph execution,
// concrete assistants) out of scope, exposing small types and interfaces so
// that stores, model adapters and transports can be swapped independently.
package core
