package tree

import (
	"github.com/fuguevm/fuguevm/vm/scope"
	"github.com/fuguevm/fuguevm/vm/types"
)

// PushOperand evaluates Source and materializes its result onto the
// value stack using the declared type-to-stack encoding. A composite
// result lands as its members in
// reverse declared order followed by the type-ID header; the byte
// count pushed is recorded on the operation so the consuming scope can
// pop exactly that many bytes.
//
// There is no special case for a nested list-constructor: operations
// hold their children directly and communicate results as RValues, so
// a BuildArray child produces one Array value and PushOperand pushes
// its 32-bit handle exactly once.
type PushOperand struct {
	zeroParams
	Source Operation

	pushed int
}

func (n *PushOperand) ReturnKind() types.Kind { return n.Source.ReturnKind() }

// Pushed reports the byte count of the most recent execution's push.
func (n *PushOperand) Pushed() int { return n.pushed }

func (n *PushOperand) ExecuteFast(ec *scope.ExecutionContext) { n.ExecuteAndStore(ec) }

func (n *PushOperand) ExecuteAndStore(ec *scope.ExecutionContext) types.RValue {
	v := n.Source.ExecuteAndStore(ec)
	pools := scope.Pools{Strings: ec.Prog.Strings(), Buffers: ec.Prog.Buffers(), Arrays: ec.Prog.Arrays()}
	n.pushed = scope.PushRValue(ec.Stack, v, ec.Prog.Tuples(), ec.Prog.Records(), pools)
	return v
}
