package indexer

import "sync/atomic"

// IndexLock guards a project against overlapping index runs. Unlike a
// mutex it never blocks: a caller that loses the race reports "busy".
type IndexLock struct {
	state atomic.Int32 // 0 = idle, 1 = indexing
}

// TryAcquire takes the lock and reports whether it succeeded
func (l *IndexLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release releases the lock. Only the holder may call it.
func (l *IndexLock) Release() {
	l.state.Store(0)
}

// Busy reports whether a run holds the lock
func (l *IndexLock) Busy() bool {
	return l.state.Load() == 1
}
