package scope_test

import (
	"testing"

	"github.com/fuguevm/fuguevm/vm/scope"
	"github.com/fuguevm/fuguevm/vm/types"
)

// TestValueStack_PushPopParity: pushing then popping regions in strict
// LIFO order returns
// the stack to its starting height.
func TestValueStack_PushPopParity(t *testing.T) {
	s := scope.NewValueStack()
	if s.CurrentTop() != 0 {
		t.Fatalf("expected empty stack, got top=%d", s.CurrentTop())
	}
	s.Push(4)
	s.Push(8)
	if s.CurrentTop() != 12 {
		t.Fatalf("expected top=12, got %d", s.CurrentTop())
	}
	s.Pop(8)
	s.Pop(4)
	if s.CurrentTop() != 0 {
		t.Fatalf("expected balanced stack, got top=%d", s.CurrentTop())
	}
}

func TestValueStack_PopUnderflowPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected a panic popping more bytes than present")
		}
	}()
	s := scope.NewValueStack()
	s.Push(4)
	s.Pop(8)
}

// TestActivatedScope_EnterExitParity: every
// enter on the same stack is matched by exactly one exit, restoring the
// stack to its pre-enter height, and nested scopes must unwind in LIFO
// order.
func TestActivatedScope_EnterExitParity(t *testing.T) {
	stack := scope.NewValueStack()
	tuples := types.NewRegistry(types.Tuple, false)
	records := types.NewRegistry(types.Record, true)
	pools := scope.Pools{Strings: types.NewStringPool(), Buffers: types.NewBufferPool(), Arrays: types.NewArrayPool()}

	outerDesc := scope.NewScopeDescription("outer", nil)
	if err := outerDesc.AddVariable("x", types.Integer); err != nil {
		t.Fatal(err)
	}
	innerDesc := scope.NewScopeDescription("inner", nil)
	if err := innerDesc.AddVariable("y", types.Integer); err != nil {
		t.Fatal(err)
	}

	outer := scope.EnterOnStack(outerDesc, nil, stack, tuples, records, pools)
	inner := scope.EnterOnStack(innerDesc, outer, stack, tuples, records, pools)

	if err := outer.Write("x", types.NewInteger(1), tuples, records); err != nil {
		t.Fatal(err)
	}
	if err := inner.Write("y", types.NewInteger(2), tuples, records); err != nil {
		t.Fatal(err)
	}

	inner.Exit()
	outer.Exit()

	if stack.CurrentTop() != 0 {
		t.Fatalf("expected stack balanced after matching exits, got top=%d", stack.CurrentTop())
	}
}

// TestActivatedScope_ExitOutOfOrderPanics covers the other half of
// TestActivatedScope_EnterExitParity: exiting out of LIFO order is an
// internal bug and panics
// rather than silently corrupting the stack.
func TestActivatedScope_ExitOutOfOrderPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected a panic exiting scopes out of LIFO order")
		}
	}()
	stack := scope.NewValueStack()
	tuples := types.NewRegistry(types.Tuple, false)
	records := types.NewRegistry(types.Record, true)
	pools := scope.Pools{Strings: types.NewStringPool(), Buffers: types.NewBufferPool(), Arrays: types.NewArrayPool()}

	outerDesc := scope.NewScopeDescription("outer", nil)
	innerDesc := scope.NewScopeDescription("inner", nil)
	if err := innerDesc.AddVariable("y", types.Integer); err != nil {
		t.Fatal(err)
	}

	outer := scope.EnterOnStack(outerDesc, nil, stack, tuples, records, pools)
	scope.EnterOnStack(innerDesc, outer, stack, tuples, records, pools)

	outer.Exit() // inner is still on top: out-of-order, must panic
}
