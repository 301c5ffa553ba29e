package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/carebook/agent"
	"github.com/hupe1980/carebook/core"
	"github.com/hupe1980/carebook/flow"
	"github.com/hupe1980/carebook/logging"
	"github.com/hupe1980/carebook/model"
	"github.com/hupe1980/carebook/session"
)

// ErrEmptyQuery is returned by Ask for blank queries.
var ErrEmptyQuery = errors.New("query must not be empty")

// ErrEmptyThreadID is returned by Ask when no thread id is given.
var ErrEmptyThreadID = errors.New("thread id must not be empty")

// Config defines tuning parameters for the Engine.
//
// Example:
//
//	cfg := engine.DefaultConfig
//	cfg.RecursionLimit = 40
//	cfg.TurnTimeout = 2 * time.Minute
type Config struct {
	// RecursionLimit bounds the node executions of one turn. A turn that
	// exceeds it fails with a RoutingError wrapping ErrStepLimitExceeded.
	RecursionLimit int

	// TurnTimeout bounds a whole turn, including every model and tool call.
	// 0 disables the timeout.
	TurnTimeout time.Duration

	// ToolTimeout bounds a single tool call. 0 disables the timeout.
	ToolTimeout time.Duration

	// MaxHistoryMessages trims the persisted history at the end of each
	// turn. 0 keeps the full history.
	MaxHistoryMessages int

	// MaxEmptyRetries bounds the re-prompts after an empty model reply.
	MaxEmptyRetries int

	// MaxAdapterRetries bounds the retries after a provider failure.
	MaxAdapterRetries int

	// RetryBackoff is the linear backoff unit between adapter retries.
	RetryBackoff time.Duration

	// MaxConcurrentTurns limits turns that run simultaneously across all
	// threads. 0 means unlimited.
	MaxConcurrentTurns int

	// Stream requests streamed model responses.
	Stream bool
}

// DefaultConfig provides the production defaults.
var DefaultConfig = Config{
	RecursionLimit:     25,
	TurnTimeout:        90 * time.Second,
	ToolTimeout:        15 * time.Second,
	MaxHistoryMessages: 60,
	MaxEmptyRetries:    3,
	MaxAdapterRetries:  2,
	RetryBackoff:       500 * time.Millisecond,
	MaxConcurrentTurns: 64,
}

// Options configures an Engine instance using the functional options pattern.
//
// Example:
//
//	eng, err := engine.New(descriptors, llm, func(o *engine.Options) {
//	    o.Store = redisStore
//	    o.Logger = logger
//	})
type Options struct {
	// Config contains the operational parameters. Defaults to DefaultConfig.
	Config Config

	// Store persists conversation states. Defaults to an in-memory store.
	Store core.ConversationStore

	// Logger defaults to NoOpLogger.
	Logger logging.Logger

	// Hooks observes the turn lifecycle. Optional.
	Hooks *HookManager

	// Clock is used to render the date into instructions. Defaults to time.Now.
	Clock func() time.Time
}

// Reply is the outcome of a successful turn.
type Reply struct {
	Answer      string             `json:"answer"`
	DialogState core.DialogContext `json:"dialog_state"`
	ThreadID    string             `json:"-"`
}

// Engine runs conversation turns over a routing graph.
//
// Each call to Ask runs one turn: the stored state of the thread is loaded,
// the query is appended, the graph is walked from its entry until the
// terminal node and the resulting state replaces the stored one. Turns of
// one thread are serialized; turns of different threads run in parallel up
// to MaxConcurrentTurns. A failing turn never touches the stored state.
type Engine struct {
	graph  *flow.Graph
	store  core.ConversationStore
	logger logging.Logger
	hooks  *HookManager
	config Config

	sem   chan struct{}
	locks *threadLocks

	// Active turns by thread id, used by Cancel.
	active   map[string]context.CancelFunc
	activeMu sync.Mutex
}

// New builds the hospital routing graph over ds and llm and returns an
// engine running it.
func New(ds *agent.Descriptors, llm model.Model, optFns ...func(o *Options)) (*Engine, error) {
	opts := buildOptions(optFns)

	hooks := opts.Hooks
	graph, err := flow.NewHospitalGraph(ds, llm, func(o *agent.AssistantOptions) {
		o.MaxEmptyRetries = opts.Config.MaxEmptyRetries
		o.MaxAdapterRetries = opts.Config.MaxAdapterRetries
		o.RetryBackoff = opts.Config.RetryBackoff
		o.Stream = opts.Config.Stream
		o.Logger = opts.Logger
		o.Clock = opts.Clock
		o.OnModelCall = func(agentName string, elapsed time.Duration, err error) {
			hooks.Fire(HookEvent{Type: HookModelCall, Name: agentName, Elapsed: elapsed, Err: err})
		}
	})
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	return newEngine(graph, opts), nil
}

// NewWithGraph returns an engine running a custom graph. Options that
// configure assistants (retries, clock, streaming) have no effect here; they
// belong to the nodes of graph.
func NewWithGraph(graph *flow.Graph, optFns ...func(o *Options)) (*Engine, error) {
	if err := graph.Validate(); err != nil {
		return nil, err
	}
	return newEngine(graph, buildOptions(optFns)), nil
}

func buildOptions(optFns []func(o *Options)) Options {
	opts := Options{
		Config: DefaultConfig,
		Logger: logging.NoOpLogger{},
		Clock:  time.Now,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Store == nil {
		opts.Store = session.NewInMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Hooks == nil {
		opts.Hooks = NewHookManager()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return opts
}

func newEngine(graph *flow.Graph, opts Options) *Engine {
	var sem chan struct{}
	if opts.Config.MaxConcurrentTurns > 0 {
		sem = make(chan struct{}, opts.Config.MaxConcurrentTurns)
	}

	return &Engine{
		graph:  graph,
		store:  opts.Store,
		logger: opts.Logger,
		hooks:  opts.Hooks,
		config: opts.Config,
		sem:    sem,
		locks:  newThreadLocks(),
		active: make(map[string]context.CancelFunc),
	}
}

// Graph returns the routing graph.
func (e *Engine) Graph() *flow.Graph { return e.graph }

// Hooks returns the hook manager.
func (e *Engine) Hooks() *HookManager { return e.hooks }

// Ask runs one turn of threadID with the user query.
//
// Every failure is returned as *core.TurnError; errors.As exposes the cause
// (*core.RoutingError, *core.AdapterFailure, context errors, store errors).
// ErrEmptyQuery and ErrEmptyThreadID are returned unwrapped before any work.
func (e *Engine) Ask(ctx context.Context, threadID, query string) (Reply, error) {
	if strings.TrimSpace(threadID) == "" {
		return Reply{}, ErrEmptyThreadID
	}
	if strings.TrimSpace(query) == "" {
		return Reply{}, ErrEmptyQuery
	}

	// Turns queued behind a busy thread hold no concurrency slot.
	unlock, err := e.locks.lock(ctx, threadID)
	if err != nil {
		return Reply{}, &core.TurnError{ThreadID: threadID, Err: err}
	}
	defer unlock()

	if e.sem != nil {
		select {
		case e.sem <- struct{}{}:
			defer func() { <-e.sem }()
		case <-ctx.Done():
			return Reply{}, &core.TurnError{ThreadID: threadID, Err: ctx.Err()}
		}
	}

	if e.config.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.TurnTimeout)
		defer cancel()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.activeMu.Lock()
	e.active[threadID] = cancel
	e.activeMu.Unlock()

	defer func() {
		e.activeMu.Lock()
		delete(e.active, threadID)
		e.activeMu.Unlock()
	}()

	start := time.Now()
	e.hooks.Fire(HookEvent{Type: HookTurnStart, ThreadID: threadID})
	e.logger.Debug("engine.turn.start", "thread_id", threadID)

	reply, steps, err := e.turn(ctx, threadID, query)

	e.hooks.Fire(HookEvent{
		Type:        HookTurnEnd,
		ThreadID:    threadID,
		Steps:       steps,
		DialogState: reply.DialogState,
		Elapsed:     time.Since(start),
		Err:         err,
	})

	if err != nil {
		e.logger.Error("engine.turn.failed", "thread_id", threadID, "step_count", steps, "error", err)
		return Reply{}, &core.TurnError{ThreadID: threadID, Err: err}
	}

	e.logger.Info("engine.turn.completed", "thread_id", threadID, "step_count", steps, "dialog_state", reply.DialogState, "duration_ms", time.Since(start).Milliseconds())

	return reply, nil
}

// Cancel aborts the running turn of threadID and reports whether one was
// running. The aborted turn fails with context.Canceled.
func (e *Engine) Cancel(threadID string) bool {
	e.activeMu.Lock()
	defer e.activeMu.Unlock()

	cancel, ok := e.active[threadID]
	if ok {
		cancel()
	}
	return ok
}

// State returns a copy of the stored state of threadID, or
// core.ErrSessionNotFound.
func (e *Engine) State(ctx context.Context, threadID string) (*core.ConversationState, error) {
	return e.store.Load(ctx, threadID)
}

// Reset deletes the stored state of threadID. It waits for a running turn
// of the thread to finish.
func (e *Engine) Reset(ctx context.Context, threadID string) error {
	unlock, err := e.locks.lock(ctx, threadID)
	if err != nil {
		return err
	}
	defer unlock()

	return e.store.Delete(ctx, threadID)
}

func (e *Engine) turn(ctx context.Context, threadID, query string) (Reply, int, error) {
	stored, err := e.store.Load(ctx, threadID)
	switch {
	case errors.Is(err, core.ErrSessionNotFound):
		stored = core.NewConversationState(threadID)
	case err != nil:
		return Reply{}, 0, fmt.Errorf("load state: %w", err)
	}

	state := stored.Clone()
	state.Append(core.NewUserMessage(query))

	env := &flow.Env{
		ThreadID:    threadID,
		Logger:      e.logger,
		ToolTimeout: e.config.ToolTimeout,
		OnToolCall: func(name string, elapsed time.Duration, err error) {
			e.hooks.Fire(HookEvent{Type: HookToolCall, ThreadID: threadID, Name: name, Elapsed: elapsed, Err: err})
		},
	}

	limiter := core.NewStepLimiter(e.config.RecursionLimit)

	id, err := e.graph.Start(state)
	if err != nil {
		return Reply{}, 0, err
	}

	for id != flow.End {
		if err := ctx.Err(); err != nil {
			return Reply{}, limiter.Count(), err
		}

		if err := limiter.Increment(id.String()); err != nil {
			return Reply{}, limiter.Count(), err
		}

		node, ok := e.graph.Node(id)
		if !ok {
			return Reply{}, limiter.Count(), &core.RoutingError{Node: id.String(), Reason: "node not registered", Err: flow.ErrUnknownNode}
		}

		start := time.Now()
		update, err := e.runNode(ctx, env, node, state)
		e.hooks.Fire(HookEvent{Type: HookNode, ThreadID: threadID, Name: id.String(), Elapsed: time.Since(start), Err: err})
		if err != nil {
			return Reply{}, limiter.Count(), fmt.Errorf("node %s: %w", id, err)
		}

		update.Apply(state)

		e.logger.Debug("engine.node.completed", "thread_id", threadID, "node", id, "dialog_state", state.Current(), "steps_remaining", limiter.Remaining())

		id, err = e.graph.Next(id, state)
		if err != nil {
			return Reply{}, limiter.Count(), err
		}
	}

	answer := flow.Answer(state)
	state.Append(flow.CloseTurn(state)...)

	if dropped := state.Trim(e.config.MaxHistoryMessages); dropped > 0 {
		e.logger.Debug("engine.history.trimmed", "thread_id", threadID, "dropped", dropped)
	}

	if err := e.store.Save(ctx, state); err != nil {
		return Reply{}, limiter.Count(), fmt.Errorf("save state: %w", err)
	}

	return Reply{Answer: answer, DialogState: state.Current(), ThreadID: threadID}, limiter.Count(), nil
}

// runNode executes node and converts a panic into an error.
func (e *Engine) runNode(ctx context.Context, env *flow.Env, node flow.Node, state *core.ConversationState) (update flow.Update, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("engine.node.panic", "thread_id", env.ThreadID, "node", node.ID(), "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("node panicked: %v", r)
		}
	}()

	return node.Run(ctx, env, state)
}
