// Package redis provides a core.ConversationStore backed by Redis so that
// several server instances can share conversation threads.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/hupe1980/carebook/core"
)

// DefaultPrefix namespaces thread keys.
const DefaultPrefix = "carebook:thread:"

// Store implements core.ConversationStore using Redis. States are stored as
// JSON documents; a sorted set indexes the known threads by expiry.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

var _ core.ConversationStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithTTL sets the expiration of idle threads. 0 keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New connects to the Redis server at address.
func New(address, password string, db int, opts ...Option) *Store {
	return NewFromClient(backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	}), opts...)
}

// NewFromClient wraps an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) key(threadID string) string {
	return s.prefix + threadID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Save implements core.ConversationStore.
func (s *Store) Save(ctx context.Context, state *core.ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	// Index score is the expiry time; far future without TTL.
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(state.ThreadID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: state.ThreadID})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save thread %s: %w", state.ThreadID, err)
	}

	return nil
}

// Load implements core.ConversationStore.
func (s *Store) Load(ctx context.Context, threadID string) (*core.ConversationState, error) {
	val, err := s.client.Get(ctx, s.key(threadID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, core.ErrSessionNotFound
		}
		return nil, fmt.Errorf("load thread %s: %w", threadID, err)
	}

	var state core.ConversationState
	if err := json.Unmarshal(val, &state); err != nil {
		return nil, fmt.Errorf("unmarshal thread %s: %w", threadID, err)
	}

	if state.Messages == nil {
		state.Messages = []core.Message{}
	}
	if state.DialogStack == nil {
		state.DialogStack = []core.DialogContext{}
	}

	return &state, nil
}

// Delete implements core.ConversationStore.
func (s *Store) Delete(ctx context.Context, threadID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(threadID))
	pipe.ZRem(ctx, s.indexKey(), threadID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete thread %s: %w", threadID, err)
	}
	return nil
}

// List returns the ids of live threads, pruning expired index entries.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("(%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("prune expired threads: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}

	return ids, nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}
