package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/carebook/core"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := NewFromClient(client, opts...)
	t.Cleanup(func() { _ = store.Close() })

	return store, mr
}

func TestStore_RoundTrip(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))

	_, err := store.Load(ctx, "t1")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	state := core.NewConversationState("t1")
	state.Append(
		core.NewUserMessage("book me"),
		core.NewAssistantMessage("router", "sure"),
	)
	state.ApplyStackUpdate(core.PushUpdate(core.ContextBooking))
	require.NoError(t, store.Save(ctx, state))

	assert.True(t, mr.Exists(DefaultPrefix+"t1"))

	loaded, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", loaded.ThreadID)
	assert.Equal(t, []core.DialogContext{core.ContextBooking}, loaded.DialogStack)
	require.Len(t, loaded.Messages, 2)
	assert.Equal(t, "book me", loaded.Messages[0].Text())
	assert.Equal(t, "sure", loaded.Messages[1].Text())
	assert.Equal(t, "router", loaded.Messages[1].Author)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, ids)

	require.NoError(t, store.Delete(ctx, "t1"))
	_, err = store.Load(ctx, "t1")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestStore_EmptyStateLoadsNonNilSlices(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, core.NewConversationState("empty")))

	loaded, err := store.Load(ctx, "empty")
	require.NoError(t, err)
	assert.NotNil(t, loaded.Messages)
	assert.NotNil(t, loaded.DialogStack)
	assert.Equal(t, core.ContextRouter, loaded.Current())
}

func TestStore_TTL(t *testing.T) {
	store, mr := newTestStore(t, WithTTL(time.Minute), WithPrefix("test:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, core.NewConversationState("t1")))
	assert.Equal(t, time.Minute, mr.TTL("test:t1"))

	mr.FastForward(2 * time.Minute)

	_, err := store.Load(ctx, "t1")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestStore_CorruptDocument(t *testing.T) {
	store, mr := newTestStore(t)

	require.NoError(t, mr.Set(DefaultPrefix+"bad", "{not json"))

	_, err := store.Load(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrSessionNotFound)
}
