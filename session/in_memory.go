package session

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/hupe1980/carebook/core"
)

// Defaults of the in-memory store.
const (
	DefaultCapacity = 1024
	DefaultTTL      = 24 * time.Hour
)

// InMemoryOptions configures an InMemoryStore.
type InMemoryOptions struct {
	// Capacity bounds the number of retained threads; the least recently
	// used thread is evicted first. 0 means unbounded.
	Capacity int
	// TTL expires threads that were not saved for this long. 0 disables expiry.
	TTL time.Duration
	// OnEvict is called when a thread is evicted or expires.
	OnEvict func(threadID string)
}

// InMemoryStore is a volatile core.ConversationStore backed by an expirable
// LRU cache. It is safe for concurrent access and best suited for tests or
// single-instance deployments. States are cloned on the way in and out so
// callers never share memory with the store.
type InMemoryStore struct {
	cache *expirable.LRU[string, *core.ConversationState]
}

var _ core.ConversationStore = (*InMemoryStore)(nil)

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore(optFns ...func(o *InMemoryOptions)) *InMemoryStore {
	opts := InMemoryOptions{
		Capacity: DefaultCapacity,
		TTL:      DefaultTTL,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var onEvict expirable.EvictCallback[string, *core.ConversationState]
	if opts.OnEvict != nil {
		onEvict = func(key string, _ *core.ConversationState) { opts.OnEvict(key) }
	}

	return &InMemoryStore{
		cache: expirable.NewLRU[string, *core.ConversationState](opts.Capacity, onEvict, opts.TTL),
	}
}

// Load implements core.ConversationStore.
func (s *InMemoryStore) Load(_ context.Context, threadID string) (*core.ConversationState, error) {
	state, ok := s.cache.Get(threadID)
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	return state.Clone(), nil
}

// Save implements core.ConversationStore.
func (s *InMemoryStore) Save(_ context.Context, state *core.ConversationState) error {
	s.cache.Add(state.ThreadID, state.Clone())
	return nil
}

// Delete implements core.ConversationStore.
func (s *InMemoryStore) Delete(_ context.Context, threadID string) error {
	s.cache.Remove(threadID)
	return nil
}

// Len returns the number of retained threads.
func (s *InMemoryStore) Len() int { return s.cache.Len() }
