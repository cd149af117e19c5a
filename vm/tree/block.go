package tree

import (
	"github.com/fuguevm/fuguevm/vm/scope"
	"github.com/fuguevm/fuguevm/vm/types"
)

// Block is an ordered sequence of operations, optionally bound to its
// own scope. ScopeDesc is nil for blocks that share
// their enclosing scope (e.g. a single-statement if-body written
// without braces in the surface syntax); when non-nil, EntersScope
// controls whether RunBlock activates it fresh each time (the common
// case) or whether the caller has already activated it and merely
// handed it to this Block (used for a parallel-for chunk body,
// re-entered against a scope the chunk partitioner already owns).
type Block struct {
	Ops         []Operation
	ScopeDesc   *scope.ScopeDescription
	OwnsScope   bool // Exit the activated scope when this Block returns
	EntersScope bool
	HeapBound   bool // activate ScopeDesc on the heap rather than the stack
}

// NewBlock builds a Block that shares its caller's scope.
func NewBlock(ops ...Operation) *Block {
	return &Block{Ops: ops}
}

// NewScopedBlock builds a Block that activates its own scope on entry
// and tears it down on exit.
func NewScopedBlock(desc *scope.ScopeDescription, heapBound bool, ops ...Operation) *Block {
	return &Block{Ops: ops, ScopeDesc: desc, OwnsScope: true, EntersScope: true, HeapBound: heapBound}
}

// RunBlock executes all of b's operations in order against ec,
// starting at the first. It implements scope.Executable so a
// ResponseMapEntry can hold a Block without package scope depending
// on package tree.
func (b *Block) RunBlock(ec *scope.ExecutionContext) scope.FlowResult {
	return b.runFrom(ec, 0)
}

// RunBlockFrom is RunBlock starting at instruction index skip.
func (b *Block) RunBlockFrom(ec *scope.ExecutionContext, skip int) scope.FlowResult {
	return b.runFrom(ec, skip)
}

// RunBlockPreEntered runs b's operations against ec without activating
// b's own scope: the surrounding construct has already entered it and
// bound ec.Scope accordingly (a function invocation ghosting its
// parameter frame into the body scope, or a message handler doing the
// same).
func (b *Block) RunBlockPreEntered(ec *scope.ExecutionContext) scope.FlowResult {
	return b.runOps(ec, 0)
}

func (b *Block) runFrom(ec *scope.ExecutionContext, skip int) scope.FlowResult {
	inner := ec
	if b.EntersScope && b.ScopeDesc != nil {
		var activated *scope.ActivatedScope
		pools := scope.Pools{Strings: ec.Prog.Strings(), Buffers: ec.Prog.Buffers(), Arrays: ec.Prog.Arrays()}
		if b.HeapBound {
			activated = scope.EnterOnHeap(b.ScopeDesc, ec.Scope, scope.NewHeapFrame(), ec.Prog.Tuples(), ec.Prog.Records(), pools)
		} else {
			activated = scope.EnterOnStack(b.ScopeDesc, ec.Scope, ec.Stack, ec.Prog.Tuples(), ec.Prog.Records(), pools)
		}
		inner = ec.WithScope(activated)
		if b.OwnsScope {
			defer activated.Exit()
		}
	}
	flow := b.runOps(inner, skip)
	ec.Flow = flow
	return flow
}

func (b *Block) runOps(ec *scope.ExecutionContext, skip int) scope.FlowResult {
	ec.Flow = scope.Normal
	for i := skip; i < len(b.Ops); i++ {
		b.Ops[i].ExecuteFast(ec)
		if ec.Flow != scope.Normal {
			break
		}
	}
	return ec.Flow
}

// ExecuteBlock is an Operation wrapping a nested Block, used when a
// block appears as a single step inside a larger block.
type ExecuteBlock struct {
	noValue
	zeroParams
	Body *Block
}

func (e *ExecuteBlock) ExecuteFast(ec *scope.ExecutionContext) { e.Body.RunBlock(ec) }
func (e *ExecuteBlock) ExecuteAndStore(ec *scope.ExecutionContext) types.RValue {
	e.ExecuteFast(ec)
	return types.NullValue
}
