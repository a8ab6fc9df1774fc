package indexer

import "sync/atomic"

// IndexLock admits one indexing run at a time without blocking callers.
// The zero value is unlocked.
type IndexLock struct {
	running atomic.Bool
}

// TryAcquire reports whether the caller now owns the lock
func (l *IndexLock) TryAcquire() bool {
	return l.running.CompareAndSwap(false, true)
}

// Release frees the lock. Only the owner may call it.
func (l *IndexLock) Release() {
	l.running.Store(false)
}

// Running reports whether a run holds the lock
func (l *IndexLock) Running() bool {
	return l.running.Load()
}
