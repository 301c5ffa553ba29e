package engine

import (
	"context"
	"sync"
)

// threadLocks hands out one lock per thread id. Entries are reference
// counted and dropped once no turn holds or waits for them.
type threadLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

// lockEntry is a one-slot semaphore so waiters can give up on ctx.
type lockEntry struct {
	ch   chan struct{}
	refs int
}

func newThreadLocks() *threadLocks {
	return &threadLocks{entries: make(map[string]*lockEntry)}
}

// lock blocks until the caller owns threadID or ctx is done. On success it
// returns the release func.
func (l *threadLocks) lock(ctx context.Context, threadID string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.entries[threadID]
	if !ok {
		entry = &lockEntry{ch: make(chan struct{}, 1)}
		l.entries[threadID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(threadID, entry)
		return nil, ctx.Err()
	}

	return func() {
		<-entry.ch
		l.release(threadID, entry)
	}, nil
}

func (l *threadLocks) release(threadID string, entry *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, threadID)
	}
}

// size returns the number of live entries.
func (l *threadLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
