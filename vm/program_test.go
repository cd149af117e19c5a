package vm_test

import (
	"errors"
	"testing"

	"github.com/fuguevm/fuguevm/vm"
	"github.com/fuguevm/fuguevm/vm/scope"
	"github.com/fuguevm/fuguevm/vm/tree"
	"github.com/fuguevm/fuguevm/vm/types"
)

// buildEntrypointProgram wires a *vm.Program whose global scope is
// empty and whose only function is `entrypoint`, running body.
func buildEntrypointProgram(body *tree.Block) *vm.Program {
	prog := vm.NewProgram()
	prog.GlobalScopeDesc = scope.NewScopeDescription("global", nil)
	entryParams := scope.NewScopeDescription("entrypoint.params", nil)
	prog.Functions["entrypoint"] = &tree.Function{
		Name:       "entrypoint",
		Sig:        &types.FunctionSignature{},
		ParamScope: entryParams,
		Body:       body,
	}
	return prog
}

// TestSquareCall: square(7), returned directly, must come back as
// Integer 49.
func TestSquareCall(t *testing.T) {
	squareParams := scope.NewScopeDescription("square.params", nil)
	if err := squareParams.AddVariable("x", types.Integer); err != nil {
		t.Fatal(err)
	}
	squareFn := &tree.Function{
		Name: "square",
		Sig: &types.FunctionSignature{
			Params:  []types.ParamSpec{{Kind: types.Integer}},
			Returns: []types.ParamSpec{{Kind: types.Integer}},
		},
		ParamScope: squareParams,
		Body: &tree.Block{Ops: []tree.Operation{
			&tree.ReturnOp{Values: []tree.Operation{
				&tree.Compound{Op: tree.Mul, Operands: []tree.Operation{
					&tree.ReadVariable{Name: "x", Kind: types.Integer},
					&tree.ReadVariable{Name: "x", Kind: types.Integer},
				}},
			}},
		}},
	}

	body := &tree.Block{Ops: []tree.Operation{
		&tree.ReturnOp{Values: []tree.Operation{
			&tree.Invoke{FuncName: "square", Args: []tree.Operation{
				&tree.Literal{Value: types.NewInteger(7)},
			}, ResultKind: types.Integer},
		}},
	}}

	prog := buildEntrypointProgram(body)
	prog.Functions["square"] = squareFn

	result, err := prog.Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Kind() != types.Integer || result.Int() != 49 {
		t.Fatalf("expected Integer 49, got %s", result.String())
	}
}

// TestStringInterningAndLength: two identical literal occurrences of
// "hello" share one pool handle, and length("hello") yields Integer 5.
func TestStringInterningAndLength(t *testing.T) {
	prog := vm.NewProgram()
	prog.GlobalScopeDesc = scope.NewScopeDescription("global", nil)

	h1 := prog.Strings().Intern("hello")
	h2 := prog.Strings().Intern("hello")
	if h1 != h2 {
		t.Fatalf("expected identical handles for identical literals, got %d and %d", h1, h2)
	}

	body := &tree.Block{Ops: []tree.Operation{
		&tree.ReturnOp{Values: []tree.Operation{
			&tree.StringLength{Source: &tree.Literal{Value: types.NewString(h1)}},
		}},
	}}
	prog.Functions["entrypoint"] = &tree.Function{
		Name:       "entrypoint",
		Sig:        &types.FunctionSignature{},
		ParamScope: scope.NewScopeDescription("entrypoint.params", nil),
		Body:       body,
	}

	result, err := prog.Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Kind() != types.Integer || result.Int() != 5 {
		t.Fatalf("expected Integer 5, got %s", result.String())
	}
}

// classifyBody builds an if/elseif/else chain classifying its input:
// 0 -> "zero", 1 -> "one", 2 -> "two", else -> "other".
func classifyBody(prog *vm.Program, input int32) *tree.Block {
	zero := prog.Strings().Intern("zero")
	one := prog.Strings().Intern("one")
	two := prog.Strings().Intern("two")
	other := prog.Strings().Intern("other")

	chain := &tree.ElseIf{
		Cond: &tree.Compound{Op: tree.Eq, Operands: []tree.Operation{
			&tree.Literal{Value: types.NewInteger(input)}, &tree.Literal{Value: types.NewInteger(0)},
		}},
		Body: &tree.Block{Ops: []tree.Operation{
			&tree.ReturnOp{Values: []tree.Operation{&tree.Literal{Value: types.NewString(zero)}}},
		}},
		Next: &tree.ElseIf{
			Cond: &tree.Compound{Op: tree.Eq, Operands: []tree.Operation{
				&tree.Literal{Value: types.NewInteger(input)}, &tree.Literal{Value: types.NewInteger(1)},
			}},
			Body: &tree.Block{Ops: []tree.Operation{
				&tree.ReturnOp{Values: []tree.Operation{&tree.Literal{Value: types.NewString(one)}}},
			}},
			Next: &tree.ElseIf{
				Cond: &tree.Compound{Op: tree.Eq, Operands: []tree.Operation{
					&tree.Literal{Value: types.NewInteger(input)}, &tree.Literal{Value: types.NewInteger(2)},
				}},
				Body: &tree.Block{Ops: []tree.Operation{
					&tree.ReturnOp{Values: []tree.Operation{&tree.Literal{Value: types.NewString(two)}}},
				}},
				Next: &tree.ElseIf{
					Body: &tree.Block{Ops: []tree.Operation{
						&tree.ReturnOp{Values: []tree.Operation{&tree.Literal{Value: types.NewString(other)}}},
					}},
				},
			},
		},
	}
	return &tree.Block{Ops: []tree.Operation{&tree.ElseIfWrapper{Chain: chain}}}
}

// TestIfElseIfElseDispatch drives the if/else-if/else chain for both
// named inputs (2 -> "two", 7 -> "other").
func TestIfElseIfElseDispatch(t *testing.T) {
	cases := []struct {
		input int32
		want  string
	}{
		{2, "two"},
		{7, "other"},
	}
	for _, c := range cases {
		prog := vm.NewProgram()
		prog.GlobalScopeDesc = scope.NewScopeDescription("global", nil)
		body := classifyBody(prog, c.input)
		prog.Functions["entrypoint"] = &tree.Function{
			Name:       "entrypoint",
			Sig:        &types.FunctionSignature{},
			ParamScope: scope.NewScopeDescription("entrypoint.params", nil),
			Body:       body,
		}
		result, err := prog.Execute()
		if err != nil {
			t.Fatalf("input %d: Execute: %v", c.input, err)
		}
		got, ok := prog.Strings().Get(result.StringHandle())
		if !ok || got != c.want {
			t.Fatalf("input %d: expected %q, got %q", c.input, c.want, got)
		}
	}
}

// TestTupleReturn: a function
// returning named (a, b) has its call result readable as `.a +.b`.
func TestTupleReturn(t *testing.T) {
	prog := vm.NewProgram()
	prog.GlobalScopeDesc = scope.NewScopeDescription("global", nil)

	returnScope := scope.NewScopeDescription("pair.returns", nil)
	if err := returnScope.AddVariable("a", types.Integer); err != nil {
		t.Fatal(err)
	}
	if err := returnScope.AddVariable("b", types.Integer); err != nil {
		t.Fatal(err)
	}
	tupleID := prog.Tuples().Register(returnScope.ReturnMemberSpecs())

	pairFn := &tree.Function{
		Name:        "pair",
		Sig:         &types.FunctionSignature{Returns: []types.ParamSpec{{Kind: types.Tuple, TupleID: tupleID}}},
		ParamScope:  scope.NewScopeDescription("pair.params", nil),
		ReturnScope: returnScope,
		Body: &tree.Block{Ops: []tree.Operation{
			&tree.ReturnOp{Values: []tree.Operation{
				&tree.Literal{Value: types.NewInteger(3)},
				&tree.Literal{Value: types.NewInteger(4)},
			}},
		}},
	}

	body := &tree.Block{Ops: []tree.Operation{
		&tree.ReturnOp{Values: []tree.Operation{
			&tree.Compound{Op: tree.Add, Operands: []tree.Operation{
				&tree.MemberAccess{
					Source: &tree.Invoke{FuncName: "pair", ResultKind: types.Tuple},
					Name:   "a", Kind: types.Integer,
				},
				&tree.MemberAccess{
					Source: &tree.Invoke{FuncName: "pair", ResultKind: types.Tuple},
					Name:   "b", Kind: types.Integer,
				},
			}},
		}},
	}}

	prog.Functions["entrypoint"] = &tree.Function{
		Name:       "entrypoint",
		Sig:        &types.FunctionSignature{},
		ParamScope: scope.NewScopeDescription("entrypoint.params", nil),
		Body:       body,
	}
	prog.Functions["pair"] = pairFn

	result, err := prog.Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Kind() != types.Integer || result.Int() != 7 {
		t.Fatalf("expected Integer 7, got %s", result.String())
	}
}

// TestExecute_StackBalance: a normally
// terminating program leaves the primary stack empty, verified here by
// simply observing Execute returns no error for a program whose
// entrypoint enters and exits several nested scopes via ordinary calls.
func TestExecute_StackBalance(t *testing.T) {
	innerParams := scope.NewScopeDescription("inner.params", nil)
	if err := innerParams.AddVariable("n", types.Integer); err != nil {
		t.Fatal(err)
	}
	inner := &tree.Function{
		Name:       "inner",
		Sig:        &types.FunctionSignature{Params: []types.ParamSpec{{Kind: types.Integer}}, Returns: []types.ParamSpec{{Kind: types.Integer}}},
		ParamScope: innerParams,
		Body: &tree.Block{Ops: []tree.Operation{
			&tree.ReturnOp{Values: []tree.Operation{
				&tree.Compound{Op: tree.Add, Operands: []tree.Operation{
					&tree.ReadVariable{Name: "n", Kind: types.Integer},
					&tree.Literal{Value: types.NewInteger(1)},
				}},
			}},
		}},
	}

	body := &tree.Block{Ops: []tree.Operation{
		&tree.ReturnOp{Values: []tree.Operation{
			&tree.Invoke{FuncName: "inner", Args: []tree.Operation{
				&tree.Invoke{FuncName: "inner", Args: []tree.Operation{
					&tree.Literal{Value: types.NewInteger(40)},
				}, ResultKind: types.Integer},
			}, ResultKind: types.Integer},
		}},
	}}

	prog := buildEntrypointProgram(body)
	prog.Functions["inner"] = inner

	result, err := prog.Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Int() != 42 {
		t.Fatalf("expected Integer 42, got %s", result.String())
	}
}

// TestExecute_NoEntrypoint asserts Execute reports an InternalFailure
// *vm.Error rather than panicking uncontrolled when the loader forgot
// to register `entrypoint`.
func TestExecute_NoEntrypoint(t *testing.T) {
	prog := vm.NewProgram()
	prog.GlobalScopeDesc = scope.NewScopeDescription("global", nil)
	_, err := prog.Execute()
	if err == nil {
		t.Fatal("expected an error for a program with no entrypoint")
	}
	verr, ok := err.(*vm.Error)
	if !ok {
		t.Fatalf("expected *vm.Error, got %T", err)
	}
	if verr.Kind != vm.InternalFailure {
		t.Fatalf("expected InternalFailure, got %v", verr.Kind)
	}
}

// TestInvokeWithExternalParams covers the native-marshalling entry
// point: the caller's
// argument region is laid out in reverse declared order, decoded with
// the VM's own per-kind encoding, and the call runs on a private stack
// so the primary stack's balance is untouched.
func TestInvokeWithExternalParams(t *testing.T) {
	subParams := scope.NewScopeDescription("sub.params", nil)
	if err := subParams.AddVariable("a", types.Integer); err != nil {
		t.Fatal(err)
	}
	if err := subParams.AddVariable("b", types.Integer); err != nil {
		t.Fatal(err)
	}
	subFn := &tree.Function{
		Name: "sub",
		Sig: &types.FunctionSignature{
			Params:  []types.ParamSpec{{Kind: types.Integer}, {Kind: types.Integer}},
			Returns: []types.ParamSpec{{Kind: types.Integer}},
		},
		ParamScope: subParams,
		Body: &tree.Block{Ops: []tree.Operation{
			&tree.ReturnOp{Values: []tree.Operation{
				&tree.Compound{Op: tree.Sub, Operands: []tree.Operation{
					&tree.ReadVariable{Name: "a", Kind: types.Integer},
					&tree.ReadVariable{Name: "b", Kind: types.Integer},
				}},
			}},
		}},
	}

	prog := buildEntrypointProgram(&tree.Block{Ops: []tree.Operation{
		&tree.ReturnOp{Values: []tree.Operation{&tree.Literal{Value: types.NewInteger(0)}}},
	}})
	prog.Functions["sub"] = subFn
	if _, err := prog.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	// Reverse declared order: b at offset 0, a after it.
	region := make([]byte, 8)
	region[0] = 3  // b = 3
	region[4] = 10 // a = 10
	result, err := prog.InvokeWithExternalParams("sub", region)
	if err != nil {
		t.Fatalf("InvokeWithExternalParams: %v", err)
	}
	if result.Kind() != types.Integer || result.Int() != 7 {
		t.Fatalf("expected sub(10, 3) = Integer 7, got %s", result.String())
	}

	if _, err := prog.InvokeWithExternalParams("nosuch", region); err == nil {
		t.Fatal("expected an error invoking an unknown function externally")
	}
	if _, err := prog.InvokeWithExternalParams("sub", region[:4]); err == nil {
		t.Fatal("expected an error for an undersized external region")
	}
}

// TestGhostedParameterResolution drives a function whose body block
// owns a scope of its own: the body's local resolves against that
// scope, the parameter resolves through the ghost set pushed at
// invocation, and free names still resolve against the defining
// scope's function table.
func TestGhostedParameterResolution(t *testing.T) {
	addParams := scope.NewScopeDescription("addFive.params", nil)
	if err := addParams.AddVariable("x", types.Integer); err != nil {
		t.Fatal(err)
	}
	bodyDesc := scope.NewScopeDescription("addFive.body", nil)
	if err := bodyDesc.AddVariable("y", types.Integer); err != nil {
		t.Fatal(err)
	}
	addFn := &tree.Function{
		Name: "addFive",
		Sig: &types.FunctionSignature{
			Params:  []types.ParamSpec{{Kind: types.Integer}},
			Returns: []types.ParamSpec{{Kind: types.Integer}},
		},
		ParamScope: addParams,
		Body: tree.NewScopedBlock(bodyDesc, false,
			&tree.WriteVariable{Name: "y", Value: &tree.Literal{Value: types.NewInteger(5)}},
			&tree.ReturnOp{Values: []tree.Operation{
				&tree.Compound{Op: tree.Add, Operands: []tree.Operation{
					&tree.ReadVariable{Name: "x", Kind: types.Integer},
					&tree.ReadVariable{Name: "y", Kind: types.Integer},
				}},
			}},
		),
	}

	body := &tree.Block{Ops: []tree.Operation{
		&tree.ReturnOp{Values: []tree.Operation{
			&tree.Invoke{FuncName: "addFive", Args: []tree.Operation{
				&tree.Literal{Value: types.NewInteger(37)},
			}, ResultKind: types.Integer},
		}},
	}}
	prog := buildEntrypointProgram(body)
	prog.Functions["addFive"] = addFn

	result, err := prog.Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Kind() != types.Integer || result.Int() != 42 {
		t.Fatalf("expected Integer 42, got %s", result.String())
	}
}

// TestBodyShadowingParameterFails: a body scope declaring the same
// name as one of its parameters collides when the parameter frame is
// ghosted in at invocation, and the program fails with a
// duplicate-identifier error instead of silently shadowing.
func TestBodyShadowingParameterFails(t *testing.T) {
	params := scope.NewScopeDescription("shadow.params", nil)
	if err := params.AddVariable("x", types.Integer); err != nil {
		t.Fatal(err)
	}
	bodyDesc := scope.NewScopeDescription("shadow.body", nil)
	if err := bodyDesc.AddVariable("x", types.Integer); err != nil {
		t.Fatal(err)
	}
	shadowFn := &tree.Function{
		Name:       "shadow",
		Sig:        &types.FunctionSignature{Params: []types.ParamSpec{{Kind: types.Integer}}},
		ParamScope: params,
		Body: tree.NewScopedBlock(bodyDesc, false,
			&tree.ReturnOp{Values: []tree.Operation{&tree.ReadVariable{Name: "x", Kind: types.Integer}}},
		),
	}

	body := &tree.Block{Ops: []tree.Operation{
		&tree.ReturnOp{Values: []tree.Operation{
			&tree.Invoke{FuncName: "shadow", Args: []tree.Operation{
				&tree.Literal{Value: types.NewInteger(1)},
			}, ResultKind: types.Integer},
		}},
	}}
	prog := buildEntrypointProgram(body)
	prog.Functions["shadow"] = shadowFn

	_, err := prog.Execute()
	if err == nil {
		t.Fatal("expected a duplicate-identifier error, got success")
	}
	var verr *vm.Error
	if !errors.As(err, &verr) || verr.Kind != vm.DuplicateIdentifier {
		t.Fatalf("expected DuplicateIdentifier, got %v", err)
	}
}
