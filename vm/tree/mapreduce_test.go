package tree_test

import (
	"fmt"
	"testing"

	"github.com/fuguevm/fuguevm/vm/scope"
	"github.com/fuguevm/fuguevm/vm/tree"
	"github.com/fuguevm/fuguevm/vm/types"
)

// testProgram is a minimal scope.Program stand-in for package-level
// tests that need an ExecutionContext but not a full *vm.Program
// lifecycle.
type testProgram struct {
	strings *types.StringPool
	buffers *types.BufferPool
	arrays  *types.ArrayPool
	tuples  *types.Registry
	records *types.Registry
	debug   []string
}

func newTestProgram() *testProgram {
	return &testProgram{
		strings: types.NewStringPool(),
		buffers: types.NewBufferPool(),
		arrays:  types.NewArrayPool(),
		tuples:  types.NewRegistry(types.Tuple, false),
		records: types.NewRegistry(types.Record, true),
	}
}

func (p *testProgram) Strings() *types.StringPool { return p.strings }
func (p *testProgram) Buffers() *types.BufferPool { return p.buffers }
func (p *testProgram) Arrays() *types.ArrayPool   { return p.arrays }
func (p *testProgram) Tuples() *types.Registry    { return p.tuples }
func (p *testProgram) Records() *types.Registry   { return p.records }
func (p *testProgram) WriteDebug(s string)        { p.debug = append(p.debug, s) }
func (p *testProgram) ReadLine() (string, error)  { return "", fmt.Errorf("no line reader in test") }

func newTestContext() (*scope.ExecutionContext, *testProgram) {
	prog := newTestProgram()
	stack := scope.NewValueStack()
	root := scope.EnterOnStack(scope.NewScopeDescription("root", nil), nil, stack, prog.tuples, prog.records,
		scope.Pools{Strings: prog.strings, Buffers: prog.buffers, Arrays: prog.arrays})
	ec := scope.NewExecutionContext(prog, root, stack)
	return ec, prog
}

func intArray(vals ...int32) tree.Operation {
	elems := make([]tree.Operation, len(vals))
	for i, v := range vals {
		elems[i] = &tree.Literal{Value: types.NewInteger(v)}
	}
	return &tree.BuildArray{ElementKind: types.Integer, Elements: elems}
}

// TestMapArray_Identity: map(identity, A)
// returns an array equal to A with the same element type.
func TestMapArray_Identity(t *testing.T) {
	ec, _ := newTestContext()

	fnScope := scope.NewScopeDescription("map.fn", nil)
	if err := fnScope.AddVariable("x", types.Integer); err != nil {
		t.Fatal(err)
	}

	m := &tree.MapArray{
		Source:       intArray(1, 2, 3, 4, 5),
		ElementParam: "x",
		FnScope:      fnScope,
		Body: &tree.Block{Ops: []tree.Operation{
			&tree.ReturnOp{Values: []tree.Operation{&tree.ReadVariable{Name: "x", Kind: types.Integer}}},
		}},
		ResultElementKind: types.Integer,
	}

	result := m.ExecuteAndStore(ec)
	if result.Kind() != types.Array || result.ArrayElementKind() != types.Integer {
		t.Fatalf("expected an Integer array, got %s", result.String())
	}
	elems := result.ArrayElements()
	want := []int32{1, 2, 3, 4, 5}
	if len(elems) != len(want) {
		t.Fatalf("expected %d elements, got %d", len(want), len(elems))
	}
	for i, w := range want {
		if elems[i].Int() != w {
			t.Fatalf("element %d: expected %d, got %d", i, w, elems[i].Int())
		}
	}
}

// TestReduceArray_LeftFold: for a
// commutative-associative op, reduce folds from the first element
// leftward. Subtraction (non-commutative) is used to pin down that the
// fold order is specifically left-to-right, not merely "some order".
func TestReduceArray_LeftFold(t *testing.T) {
	ec, _ := newTestContext()

	fnScope := scope.NewScopeDescription("reduce.fn", nil)
	if err := fnScope.AddVariable("acc", types.Integer); err != nil {
		t.Fatal(err)
	}
	if err := fnScope.AddVariable("x", types.Integer); err != nil {
		t.Fatal(err)
	}

	r := &tree.ReduceArray{
		Source:       intArray(1, 2, 3, 4),
		Initial:      &tree.Literal{Value: types.NewInteger(100)},
		AccParam:     "acc",
		ElementParam: "x",
		FnScope:      fnScope,
		Body: &tree.Block{Ops: []tree.Operation{
			&tree.ReturnOp{Values: []tree.Operation{
				&tree.Compound{Op: tree.Sub, Operands: []tree.Operation{
					&tree.ReadVariable{Name: "acc", Kind: types.Integer},
					&tree.ReadVariable{Name: "x", Kind: types.Integer},
				}},
			}},
		}},
		ResultKind: types.Integer,
	}

	result := r.ExecuteAndStore(ec)
	// ((((100-1)-2)-3)-4) = 90, the unambiguous left-fold result; a
	// right-fold or any other grouping would produce a different value.
	if result.Int() != 90 {
		t.Fatalf("expected left-fold result 90, got %d", result.Int())
	}

	sum := &tree.ReduceArray{
		Source:       intArray(1, 2, 3, 4, 5),
		Initial:      &tree.Literal{Value: types.NewInteger(0)},
		AccParam:     "acc",
		ElementParam: "x",
		FnScope:      fnScope,
		Body: &tree.Block{Ops: []tree.Operation{
			&tree.ReturnOp{Values: []tree.Operation{
				&tree.Compound{Op: tree.Add, Operands: []tree.Operation{
					&tree.ReadVariable{Name: "acc", Kind: types.Integer},
					&tree.ReadVariable{Name: "x", Kind: types.Integer},
				}},
			}},
		}},
		ResultKind: types.Integer,
	}
	if got := sum.ExecuteAndStore(ec).Int(); got != 15 {
		t.Fatalf("expected sum 15, got %d", got)
	}
}
