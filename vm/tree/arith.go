package tree

import (
	"fmt"

	"github.com/fuguevm/fuguevm/vm/scope"
	"github.com/fuguevm/fuguevm/vm/types"
)

// Operator is the closed set of binary operators a Compound operation
// may fold over.
type Operator int

const (
	Add Operator = iota
	Sub
	Mul
	Div
	Mod
	Eq
	Neq
	Lt
	Le
	Gt
	Ge
	And
	Or
	BitAnd
	BitOr
	BitXor
	ShiftLeft
	ShiftRight
	Concat
)

func (o Operator) isComparison() bool {
	return o == Eq || o == Neq || o == Lt || o == Le || o == Gt || o == Ge
}

func (o Operator) isLogical() bool { return o == And || o == Or }

// Compound folds Op left-to-right across Operands, evaluated in order.
// Each pairwise application supports scalar-scalar, scalar-array
// (broadcast across every element), and array-array (element-wise,
// equal length required) combinations.
type Compound struct {
	zeroParams
	Op       Operator
	Operands []Operation
}

func (n *Compound) ReturnKind() types.Kind {
	switch {
	case n.Op.isComparison() || n.Op.isLogical():
		return types.Boolean
	case n.Op == Concat:
		return types.String
	default:
		return types.Null // numeric result kind depends on the operands' runtime kinds
	}
}

func (n *Compound) ExecuteFast(ec *scope.ExecutionContext) { n.ExecuteAndStore(ec) }

func (n *Compound) ExecuteAndStore(ec *scope.ExecutionContext) types.RValue {
	if len(n.Operands) == 0 {
		panic("tree: Compound with no operands")
	}
	acc := n.Operands[0].ExecuteAndStore(ec)
	for _, operand := range n.Operands[1:] {
		acc = applyPair(ec, n.Op, acc, operand.ExecuteAndStore(ec))
	}
	return acc
}

func applyPair(ec *scope.ExecutionContext, op Operator, a, b types.RValue) types.RValue {
	if a.Kind() == types.Array || b.Kind() == types.Array {
		return applyArrayPair(ec, op, a, b)
	}
	if op == Concat {
		return concatScalars(ec, a, b)
	}
	if op.isLogical() {
		return applyLogical(op, a, b)
	}
	if op.isComparison() {
		return types.NewBoolean(compareScalars(op, a, b))
	}
	return applyArithmetic(op, a, b)
}

func applyArrayPair(ec *scope.ExecutionContext, op Operator, a, b types.RValue) types.RValue {
	aIsArray := a.Kind() == types.Array
	bIsArray := b.Kind() == types.Array
	switch {
	case aIsArray && bIsArray:
		ae, be := a.ArrayElements(), b.ArrayElements()
		if len(ae) != len(be) {
			panic(fmt.Sprintf("tree: array/array operator requires equal length (got %d and %d)", len(ae), len(be)))
		}
		out := make([]types.RValue, len(ae))
		for i := range ae {
			out[i] = applyPair(ec, op, ae[i], be[i])
		}
		return types.NewArray(a.ArrayElementKind(), out)
	case aIsArray:
		ae := a.ArrayElements()
		out := make([]types.RValue, len(ae))
		for i := range ae {
			out[i] = applyPair(ec, op, ae[i], b)
		}
		return types.NewArray(a.ArrayElementKind(), out)
	default: // bIsArray
		be := b.ArrayElements()
		out := make([]types.RValue, len(be))
		for i := range be {
			out[i] = applyPair(ec, op, a, be[i])
		}
		return types.NewArray(b.ArrayElementKind(), out)
	}
}

func asFloat(v types.RValue) float32 {
	switch v.Kind() {
	case types.Real:
		return v.Real()
	case types.Integer, types.Integer16, types.Boolean, types.TaskHandle:
		return float32(v.Int())
	default:
		panic(fmt.Sprintf("tree: operand of kind %s is not numeric", v.Kind()))
	}
}

func isFloatOperand(v types.RValue) bool { return v.Kind() == types.Real }

func applyArithmetic(op Operator, a, b types.RValue) types.RValue {
	if isFloatOperand(a) || isFloatOperand(b) {
		x, y := asFloat(a), asFloat(b)
		switch op {
		case Add:
			return types.NewReal(x + y)
		case Sub:
			return types.NewReal(x - y)
		case Mul:
			return types.NewReal(x * y)
		case Div:
			return types.NewReal(x / y)
		default:
			panic(fmt.Sprintf("tree: operator %d not defined for Real operands", op))
		}
	}
	x, y := a.Int(), b.Int()
	switch op {
	case Add:
		return types.NewInteger(x + y)
	case Sub:
		return types.NewInteger(x - y)
	case Mul:
		return types.NewInteger(x * y)
	case Div:
		return types.NewInteger(x / y)
	case Mod:
		return types.NewInteger(x % y)
	case BitAnd:
		return types.NewInteger(x & y)
	case BitOr:
		return types.NewInteger(x | y)
	case BitXor:
		return types.NewInteger(x ^ y)
	case ShiftLeft:
		return types.NewInteger(x << uint32(y))
	case ShiftRight:
		return types.NewInteger(x >> uint32(y))
	default:
		panic(fmt.Sprintf("tree: unhandled arithmetic operator %d", op))
	}
}

func compareScalars(op Operator, a, b types.RValue) bool {
	if a.Kind() == types.String && b.Kind() == types.String {
		switch op {
		case Eq:
			return a.StringHandle() == b.StringHandle()
		case Neq:
			return a.StringHandle() != b.StringHandle()
		default:
			panic(fmt.Sprintf("tree: ordering operator %d not defined for String operands", op))
		}
	}
	if op == Eq {
		return a.Equal(b)
	}
	if op == Neq {
		return !a.Equal(b)
	}
	x, y := asFloat(a), asFloat(b)
	switch op {
	case Lt:
		return x < y
	case Le:
		return x <= y
	case Gt:
		return x > y
	case Ge:
		return x >= y
	default:
		panic(fmt.Sprintf("tree: unhandled comparison operator %d", op))
	}
}

func applyLogical(op Operator, a, b types.RValue) types.RValue {
	switch op {
	case And:
		return types.NewBoolean(a.Bool() && b.Bool())
	case Or:
		return types.NewBoolean(a.Bool() || b.Bool())
	default:
		panic(fmt.Sprintf("tree: unhandled logical operator %d", op))
	}
}

func concatScalars(ec *scope.ExecutionContext, a, b types.RValue) types.RValue {
	as := renderForConcat(ec, a)
	bs := renderForConcat(ec, b)
	return types.NewString(ec.Prog.Strings().Intern(as + bs))
}

func renderForConcat(ec *scope.ExecutionContext, v types.RValue) string {
	if v.Kind() == types.String {
		s, _ := ec.Prog.Strings().Get(v.StringHandle())
		return s
	}
	return v.String()
}

// Not negates a single Boolean operand. Kept separate from Compound
// since it is the one unary, not variadic, operator in the closed
// set.
type Not struct {
	zeroParams
	Operand Operation
}

func (n *Not) ReturnKind() types.Kind { return types.Boolean }

func (n *Not) ExecuteFast(ec *scope.ExecutionContext) { n.ExecuteAndStore(ec) }

func (n *Not) ExecuteAndStore(ec *scope.ExecutionContext) types.RValue {
	return types.NewBoolean(!n.Operand.ExecuteAndStore(ec).Bool())
}

// BitNot complements a single Integer/Integer16 operand.
type BitNot struct {
	zeroParams
	Operand Operation
}

func (n *BitNot) ReturnKind() types.Kind { return types.Integer }

func (n *BitNot) ExecuteFast(ec *scope.ExecutionContext) { n.ExecuteAndStore(ec) }

func (n *BitNot) ExecuteAndStore(ec *scope.ExecutionContext) types.RValue {
	return types.NewInteger(^n.Operand.ExecuteAndStore(ec).Int())
}
