// Package engine runs conversation turns over the carebook routing graph.
//
// The Engine is the orchestration layer between transports (HTTP, CLI, MCP)
// and the flow package. It owns everything that spans a whole turn:
//
//   - Checkpointing: the state of a thread is loaded from a
//     core.ConversationStore, mutated as a private clone and saved only when
//     the turn reaches the terminal node. Failed turns leave the stored state
//     untouched.
//   - Concurrency: turns of one thread are serialized by a reference counted
//     per-thread lock; turns of different threads run in parallel, bounded by
//     Config.MaxConcurrentTurns.
//   - Limits: Config.TurnTimeout bounds a turn, Config.ToolTimeout each tool
//     call and Config.RecursionLimit the number of node executions.
//   - Errors: every failure is returned as *core.TurnError. Panics inside a
//     node are recovered into the turn error.
//   - Hooks: a HookManager observes turn, node, model and tool events. The
//     metrics package and LoggingHooks are built on it.
//
// # Turn lifecycle
//
//  1. acquire a concurrency slot and the thread lock
//  2. load (or create) the state, clone it and append the user query
//  3. walk the graph from its entry route until flow.End
//  4. take the last assistant text as the answer, answer dangling calls,
//     trim the history and save
//
// # Usage
//
//	eng, err := engine.New(descriptors, llm, func(o *engine.Options) {
//	    o.Store = session.NewInMemoryStore()
//	    o.Logger = logger
//	})
//	if err != nil {
//	    return err
//	}
//
//	reply, err := eng.Ask(ctx, "111222", "Is dr john doe free on 01-08-2025?")
//	if err != nil {
//	    var turnErr *core.TurnError
//	    errors.As(err, &turnErr)
//	    return err
//	}
//	fmt.Println(reply.Answer, reply.DialogState)
package engine
