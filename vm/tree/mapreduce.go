package tree

import (
	"github.com/fuguevm/fuguevm/vm/scope"
	"github.com/fuguevm/fuguevm/vm/types"
)

// MapArray applies Body to every element of Source in turn, binding
// each element to ElementParam in a freshly activated FnScope, and
// collects the Body's Return value into a new array.
type MapArray struct {
	zeroParams
	Source            Operation
	ElementParam      string
	FnScope           *scope.ScopeDescription
	Body              *Block
	ResultElementKind types.Kind
}

func (n *MapArray) ReturnKind() types.Kind { return types.Array }

func (n *MapArray) ExecuteFast(ec *scope.ExecutionContext) { n.ExecuteAndStore(ec) }

func (n *MapArray) ExecuteAndStore(ec *scope.ExecutionContext) types.RValue {
	elems := n.Source.ExecuteAndStore(ec).ArrayElements()
	out := make([]types.RValue, len(elems))
	pools := scope.Pools{Strings: ec.Prog.Strings(), Buffers: ec.Prog.Buffers(), Arrays: ec.Prog.Arrays()}
	tuples, records := ec.Prog.Tuples(), ec.Prog.Records()
	for i, e := range elems {
		activated := scope.EnterOnStack(n.FnScope, ec.Scope, ec.Stack, tuples, records, pools)
		if err := activated.Write(n.ElementParam, e, tuples, records); err != nil {
			panic(err)
		}
		inner := ec.WithScope(activated)
		inner.Flow = scope.Normal
		n.Body.RunBlock(inner)
		if inner.Flow == scope.Return && len(inner.ReturnValues) > 0 {
			out[i] = inner.ReturnValues[0]
		} else {
			out[i] = types.NullValue
		}
		activated.Exit()
	}
	return types.NewArray(n.ResultElementKind, out)
}

// ReduceArray folds Body over Source's elements starting from Initial,
// binding the running accumulator to AccParam and the current element
// to ElementParam in a freshly activated FnScope each step.
type ReduceArray struct {
	zeroParams
	Source       Operation
	Initial      Operation
	AccParam     string
	ElementParam string
	FnScope      *scope.ScopeDescription
	Body         *Block
	ResultKind   types.Kind
}

func (n *ReduceArray) ReturnKind() types.Kind { return n.ResultKind }

func (n *ReduceArray) ExecuteFast(ec *scope.ExecutionContext) { n.ExecuteAndStore(ec) }

func (n *ReduceArray) ExecuteAndStore(ec *scope.ExecutionContext) types.RValue {
	acc := n.Initial.ExecuteAndStore(ec)
	elems := n.Source.ExecuteAndStore(ec).ArrayElements()
	pools := scope.Pools{Strings: ec.Prog.Strings(), Buffers: ec.Prog.Buffers(), Arrays: ec.Prog.Arrays()}
	tuples, records := ec.Prog.Tuples(), ec.Prog.Records()
	for _, e := range elems {
		activated := scope.EnterOnStack(n.FnScope, ec.Scope, ec.Stack, tuples, records, pools)
		if err := activated.Write(n.AccParam, acc, tuples, records); err != nil {
			panic(err)
		}
		if err := activated.Write(n.ElementParam, e, tuples, records); err != nil {
			panic(err)
		}
		inner := ec.WithScope(activated)
		inner.Flow = scope.Normal
		n.Body.RunBlock(inner)
		if inner.Flow == scope.Return && len(inner.ReturnValues) > 0 {
			acc = inner.ReturnValues[0]
		}
		activated.Exit()
	}
	return acc
}
