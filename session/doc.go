// Package session houses implementations of core.ConversationStore, the
// checkpoint store of conversation states keyed by thread id.
//
// InMemoryStore keeps states in an expirable LRU cache. The redis
// sub-package stores JSON encoded states with a key TTL so several server
// instances can share conversations.
package session
