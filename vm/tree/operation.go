/*
Package tree implements the operation tree: the executable
representation a loaded program is compiled into, its flow-control
result propagation, function invocation (direct and indirect), and the
arithmetic/comparison/bitwise/logical/array operation set.

It depends on package scope (for ActivatedScope, ExecutionContext,
FlowResult) and package types (for RValue, Kind, the type registries);
neither of those packages depends back on tree.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package tree

import (
	"github.com/npillmayer/schuko/tracing"

	"github.com/fuguevm/fuguevm/internal/vmtrace"
	"github.com/fuguevm/fuguevm/vm/scope"
	"github.com/fuguevm/fuguevm/vm/types"
)

func tracer() tracing.Trace {
	return vmtrace.Select(vmtrace.KeyTree)
}

// Operation is one node of the operation tree: it can
// run purely for effect (ExecuteFast) or run and hand back a value
// (ExecuteAndStore), and it statically declares the return kind it
// produces (Null for operations that never produce a value) and how
// many stack parameters it consumes when pushed as part of a larger
// expression.
//
// Token and Payload are the introspection surface external tools
// (validator, serializer, extension catalog) read without
// re-implementing dispatch: Token is a stable string
// identifying the node's kind, Payload the node's one characteristic
// value. Traversal lives in traverse.go.
type Operation interface {
	ExecuteFast(ec *scope.ExecutionContext)
	ExecuteAndStore(ec *scope.ExecutionContext) types.RValue
	ReturnKind() types.Kind
	StackParams() int
	Token() string
	Payload() Payload
}

// EvalRValue lets any Operation satisfy scope.Evaluable, so an
// Operation can back a Future's unevaluated computation directly.
type evalAdapter struct{ op Operation }

func (a evalAdapter) EvalRValue(ec *scope.ExecutionContext) types.RValue {
	return a.op.ExecuteAndStore(ec)
}

// AsEvaluable wraps op so it satisfies scope.Evaluable.
func AsEvaluable(op Operation) scope.Evaluable { return evalAdapter{op: op} }

// noValue is embedded by operations that never produce a retained
// value (control structures, statements): ReturnKind is Null and
// ExecuteAndStore runs the operation then hands back NullValue.
type noValue struct{}

func (noValue) ReturnKind() types.Kind { return types.Null }

// zeroParams is embedded by operations that take no stack parameters.
type zeroParams struct{}

func (zeroParams) StackParams() int { return 0 }
