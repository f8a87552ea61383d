package store

import (
	"sync"

	"github.com/google/uuid"
)

// LockTable is a storage node's per-key write lock table. A primary write
// handler must try_acquire the key's lock before mutating Map and release
// it when done; a concurrent writer for the same key is rejected
// immediately rather than queued (spec.md §4.4, §5 — "one wins the lock;
// the other is rejected with ERROR locked").
//
// Availability is defined directly off this table (spec.md §8 invariant
// 8): a node is available exactly when LockTable is empty.
type LockTable struct {
	mu      sync.Mutex
	holders map[string]uuid.UUID
}

// NewLockTable creates an empty lock table.
func NewLockTable() *LockTable {
	return &LockTable{holders: make(map[string]uuid.UUID)}
}

// TryAcquire attempts to lock key for the calling write handler. On
// success it returns a fresh holder token and true; the caller must pass
// that token to Release. On failure (key already locked) it returns false.
func (l *LockTable) TryAcquire(key string) (uuid.UUID, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, locked := l.holders[key]; locked {
		return uuid.UUID{}, false
	}
	token := uuid.New()
	l.holders[key] = token
	return token, true
}

// Release drops key's lock if held by token. Releasing with a mismatched
// or absent token is a no-op — a handler can never release a lock it
// doesn't hold.
func (l *LockTable) Release(key string, token uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if held, ok := l.holders[key]; ok && held == token {
		delete(l.holders, key)
	}
}

// Empty reports whether the lock table currently holds no locks — the
// storage node's availability signal.
func (l *LockTable) Empty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.holders) == 0
}

// Size returns the number of keys currently locked.
func (l *LockTable) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.holders)
}
