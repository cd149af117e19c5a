package scope_test

import (
	"sync"
	"testing"
	"time"

	"github.com/fuguevm/fuguevm/vm/scope"
	"github.com/fuguevm/fuguevm/vm/types"
)

// TestFuture_BlocksThenBroadcasts: GetValue
// called before Complete blocks, and every concurrent and subsequent
// caller observes the completed value once Complete runs.
func TestFuture_BlocksThenBroadcasts(t *testing.T) {
	fut := scope.NewFuture()

	const readers = 5
	results := make([]types.RValue, readers)
	var wg sync.WaitGroup
	wg.Add(readers)
	for i := 0; i < readers; i++ {
		i := i
		go func() {
			defer wg.Done()
			results[i] = fut.GetValue()
		}()
	}

	// Give readers a chance to block before completing, without making
	// the test's correctness depend on timing (all the assertions below
	// hold regardless of how long this sleep turns out to be).
	time.Sleep(20 * time.Millisecond)
	if fut.IsDone() {
		t.Fatal("future reported done before Complete was called")
	}

	fut.Complete(types.NewInteger(99))
	wg.Wait()

	for i, r := range results {
		if r.Kind() != types.Integer || r.Int() != 99 {
			t.Fatalf("reader %d: expected Integer 99, got %s", i, r.String())
		}
	}
	if !fut.IsDone() {
		t.Fatal("future should report done after Complete")
	}
}

// TestFuture_CompleteTwicePanics covers the "exactly one Complete" rule.
func TestFuture_CompleteTwicePanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected a panic on the second Complete call")
		}
	}()
	fut := scope.NewFuture()
	fut.Complete(types.NewInteger(1))
	fut.Complete(types.NewInteger(2))
}
