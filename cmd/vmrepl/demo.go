package main

import (
	"github.com/fuguevm/fuguevm/vm"
	"github.com/fuguevm/fuguevm/vm/scope"
	"github.com/fuguevm/fuguevm/vm/tree"
	"github.com/fuguevm/fuguevm/vm/types"
)

// buildDemoProgram constructs a small runnable program by hand, since
// the VM core has no source loader of its own. It declares `square(x)`
// and an entrypoint that computes square(7), so `:run` has something
// to execute out of the box.
func buildDemoProgram() *vm.Program {
	prog := vm.NewProgram()
	prog.GlobalScopeDesc = scope.NewScopeDescription("global", nil)

	squareParams := scope.NewScopeDescription("square.params", nil)
	if err := squareParams.AddVariable("x", types.Integer); err != nil {
		panic(err)
	}
	prog.Functions["square"] = &tree.Function{
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

	entryParams := scope.NewScopeDescription("entrypoint.params", nil)
	prog.Functions["entrypoint"] = &tree.Function{
		Name:       "entrypoint",
		Sig:        &types.FunctionSignature{Returns: []types.ParamSpec{{Kind: types.Integer}}},
		ParamScope: entryParams,
		Body: &tree.Block{Ops: []tree.Operation{
			&tree.ReturnOp{Values: []tree.Operation{
				&tree.Invoke{FuncName: "square", Args: []tree.Operation{
					&tree.Literal{Value: types.NewInteger(7)},
				}, ResultKind: types.Integer},
			}},
		}},
	}
	return prog
}
