// Package carebook provides a high-level façade over the routing engine, the
// appointment schedule and the conversation store. Most applications interact
// with this package by:
//  1. Creating a Carebook via New() with a model and a schedule store, or via
//     NewFromConfig() from a loaded config.Config
//  2. Calling Ask once per user message of a thread
//  3. Closing it on shutdown
package carebook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/carebook/agent"
	"github.com/hupe1980/carebook/config"
	"github.com/hupe1980/carebook/core"
	"github.com/hupe1980/carebook/engine"
	"github.com/hupe1980/carebook/logging"
	"github.com/hupe1980/carebook/model"
	"github.com/hupe1980/carebook/model/anthropic"
	"github.com/hupe1980/carebook/model/gemini"
	"github.com/hupe1980/carebook/model/openai"
	"github.com/hupe1980/carebook/schedule"
	"github.com/hupe1980/carebook/session"
	"github.com/hupe1980/carebook/session/redis"
)

// Options configures a Carebook instance.
type Options struct {
	// EngineConfig holds the orchestrator limits. Defaults to engine.DefaultConfig.
	EngineConfig engine.Config

	// Model answers for every assistant. Required.
	Model model.Model

	// Schedule backs the domain tools. Required.
	Schedule schedule.Store

	// ConversationStore persists thread states. Defaults to an in-memory store.
	ConversationStore core.ConversationStore

	// Hooks observe the turn lifecycle, e.g. metrics.Metrics.Hooks().
	Hooks []engine.Hook

	// Logger defaults to NoOpLogger.
	Logger logging.Logger

	// Clock renders the current date into instructions. Defaults to time.Now.
	Clock func() time.Time

	// closers are released by Close in reverse order.
	closers []io.Closer
}

// Carebook aggregates the engine and the stores it runs on.
type Carebook struct {
	opts   Options
	engine *engine.Engine
}

// New creates a Carebook. Model and Schedule must be set.
func New(optFns ...func(o *Options)) (*Carebook, error) {
	opts := Options{
		EngineConfig: engine.DefaultConfig,
		Logger:       logging.NoOpLogger{},
		Clock:        time.Now,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Model == nil {
		return nil, errors.New("carebook: model is required")
	}
	if opts.Schedule == nil {
		return nil, errors.New("carebook: schedule store is required")
	}
	if opts.ConversationStore == nil {
		opts.ConversationStore = session.NewInMemoryStore()
	}

	ds, err := agent.NewDescriptors(opts.Schedule)
	if err != nil {
		return nil, fmt.Errorf("build descriptors: %w", err)
	}

	hooks := engine.NewHookManager()
	hooks.Register(opts.Hooks...)

	eng, err := engine.New(ds, opts.Model, func(o *engine.Options) {
		o.Config = opts.EngineConfig
		o.Store = opts.ConversationStore
		o.Logger = opts.Logger
		o.Hooks = hooks
		o.Clock = opts.Clock
	})
	if err != nil {
		return nil, err
	}

	return &Carebook{opts: opts, engine: eng}, nil
}

// NewFromConfig opens the schedule database, seeds it, builds the model
// adapter and the conversation store described by cfg and returns a Carebook
// owning them. extra options are applied last.
func NewFromConfig(ctx context.Context, cfg *config.Config, extra ...func(o *Options)) (*Carebook, error) {
	sched, err := OpenSchedule(ctx, cfg)
	if err != nil {
		return nil, err
	}

	llm, err := NewModel(ctx, cfg)
	if err != nil {
		_ = sched.Close()
		return nil, err
	}

	store, storeCloser, err := NewConversationStore(ctx, cfg)
	if err != nil {
		_ = sched.Close()
		return nil, err
	}

	cb, err := New(append([]func(o *Options){func(o *Options) {
		o.EngineConfig = EngineConfig(cfg)
		o.Model = llm
		o.Schedule = sched
		o.ConversationStore = store
		o.closers = []io.Closer{sched}
		if storeCloser != nil {
			o.closers = append(o.closers, storeCloser)
		}
	}}, extra...)...)
	if err != nil {
		_ = sched.Close()
		if storeCloser != nil {
			_ = storeCloser.Close()
		}
		return nil, err
	}

	return cb, nil
}

// Ask runs one turn of threadID.
func (c *Carebook) Ask(ctx context.Context, threadID, query string) (engine.Reply, error) {
	return c.engine.Ask(ctx, threadID, query)
}

// Reset forgets the conversation of threadID.
func (c *Carebook) Reset(ctx context.Context, threadID string) error {
	return c.engine.Reset(ctx, threadID)
}

// State returns a copy of the stored state of threadID.
func (c *Carebook) State(ctx context.Context, threadID string) (*core.ConversationState, error) {
	return c.engine.State(ctx, threadID)
}

// Engine exposes the underlying engine.
func (c *Carebook) Engine() *engine.Engine { return c.engine }

// Model exposes the model shared by the assistants.
func (c *Carebook) Model() model.Model { return c.opts.Model }

// Schedule exposes the schedule store.
func (c *Carebook) Schedule() schedule.Store { return c.opts.Schedule }

// Close releases the stores opened by NewFromConfig.
func (c *Carebook) Close() error {
	var errs []error
	for i := len(c.opts.closers) - 1; i >= 0; i-- {
		if err := c.opts.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// EngineConfig maps cfg onto the orchestrator limits.
func EngineConfig(cfg *config.Config) engine.Config {
	ec := engine.DefaultConfig
	ec.RecursionLimit = cfg.RecursionLimit
	ec.TurnTimeout = cfg.TurnTimeout
	ec.ToolTimeout = cfg.ToolTimeout
	ec.MaxHistoryMessages = cfg.MaxHistoryMessages
	ec.MaxEmptyRetries = cfg.MaxEmptyRetries
	ec.MaxAdapterRetries = cfg.MaxAdapterRetries
	ec.MaxConcurrentTurns = cfg.MaxConcurrentTurns
	ec.Stream = cfg.Stream
	return ec
}

// OpenSchedule opens the SQLite schedule at cfg.DBPath and seeds the
// configured range. Seeding keeps existing rows.
func OpenSchedule(ctx context.Context, cfg *config.Config) (*schedule.SQLiteStore, error) {
	from, to, err := SeedRange(cfg)
	if err != nil {
		return nil, err
	}

	store, err := schedule.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	if _, err := schedule.Seed(ctx, store, from, to); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("seed schedule: %w", err)
	}

	return store, nil
}

// SeedRange parses the configured seeding range.
func SeedRange(cfg *config.Config) (time.Time, time.Time, error) {
	from, err := schedule.ParseDate(cfg.SeedFrom)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("seed_from: %w", err)
	}
	to, err := schedule.ParseDate(cfg.SeedTo)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("seed_to: %w", err)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("seed_to %s is before seed_from %s", cfg.SeedTo, cfg.SeedFrom)
	}
	return from, to, nil
}

// NewModel builds the model adapter of cfg.Provider.
func NewModel(ctx context.Context, cfg *config.Config) (model.Model, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return gemini.NewModel(ctx, func(o *gemini.Options) {
			o.APIKey = cfg.APIKey
			o.Temperature = float32(cfg.Temperature)
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
		})
	case config.ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			o.APIKey = cfg.APIKey
			o.Temperature = cfg.Temperature
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
		}), nil
	case config.ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.APIKey = cfg.APIKey
			o.Temperature = cfg.Temperature
			if cfg.Model != "" {
				o.Model = sdkanthropic.Model(cfg.Model)
			}
		}), nil
	case config.ProviderScripted:
		return model.NewScriptedModel(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// NewConversationStore returns the Redis store when cfg.RedisAddr is set and
// an in-memory LRU otherwise. The closer is nil for the in-memory store.
func NewConversationStore(ctx context.Context, cfg *config.Config) (core.ConversationStore, io.Closer, error) {
	if !cfg.UsesRedis() {
		return session.NewInMemoryStore(func(o *session.InMemoryOptions) {
			if cfg.SessionCacheSize > 0 {
				o.Capacity = cfg.SessionCacheSize
			}
			o.TTL = cfg.SessionTTL
		}), nil, nil
	}

	store := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, redis.WithTTL(cfg.SessionTTL))
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
	}

	return store, store, nil
}
