package scope

import (
	"sync"

	"github.com/fuguevm/fuguevm/vm/types"
)

// Future is a single-shot completion cell: exactly one Complete call
// is ever valid, and any number of readers may block on GetValue until
// it happens. A mutex paired with a condition variable rather than a
// channel, since readers need clone-on-read of an already-stored
// result, not consumption.
type Future struct {
	mu     sync.Mutex
	cond   *sync.Cond
	done   bool
	result types.RValue
}

// NewFuture creates an incomplete future.
func NewFuture() *Future {
	f := &Future{}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Complete resolves the future to v. Calling Complete more than once
// is a programming error (a future represents exactly one
// computation), so it panics rather than silently overwriting.
func (f *Future) Complete(v types.RValue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done {
		panic("scope: future completed more than once")
	}
	f.result = v
	f.done = true
	f.cond.Broadcast()
}

// GetValue blocks until the future completes, then returns a deep copy
// of its result — every reader gets its own clone, never a shared
// alias.
func (f *Future) GetValue() types.RValue {
	f.mu.Lock()
	for !f.done {
		f.cond.Wait()
	}
	v := f.result
	f.mu.Unlock()
	return v.Clone()
}

// IsDone reports whether the future has completed, without blocking.
func (f *Future) IsDone() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}
