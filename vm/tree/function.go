package tree

import (
	"github.com/fuguevm/fuguevm/vm/scope"
	"github.com/fuguevm/fuguevm/vm/types"
)

// Function is the concrete invocable value the VM carries as a
// Function-kind RValue. It implements
// types.FunctionValue so it can be stored inside an RValue and passed
// around package types without types depending back on tree.
//
// A Function pairs a fixed parameter/return signature with an
// activated lexical closure (DefiningScope) and a Block body.
type Function struct {
	Name          string
	Sig           *types.FunctionSignature
	ParamScope    *scope.ScopeDescription
	ReturnScope   *scope.ScopeDescription // named return-values scope; nil for a function with at most one return value
	Body          *Block
	DefiningScope *scope.ActivatedScope // lexical closure: the scope the function was declared in
	HeapBound     bool
}

// Signature implements types.FunctionValue.
func (f *Function) Signature() *types.FunctionSignature { return f.Sig }

// Identity implements types.FunctionValue.
func (f *Function) Identity() string { return f.Name }

// Call is the exported form of call, used directly by package vm to
// invoke the program's entrypoint with an execution context.
func (f *Function) Call(ec *scope.ExecutionContext, argValues []types.RValue, refSources []scope.Storage) []types.RValue {
	return f.call(ec, argValues, refSources)
}

// anonymousBodyDesc backs the body scope of a function whose Block
// declares no scope of its own: entering it reserves no storage, but
// every invocation still gets a fresh ghost-set holder, which is what
// keeps recursion from aliasing an outer call's parameter frame.
var anonymousBodyDesc = scope.NewScopeDescription("body", nil)

// call is the shared invocation procedure behind Invoke and
// InvokeIndirect: bind positional value arguments and by-reference
// arguments into a fresh parameter frame, activate the body's own
// scope against the function's defining (lexical) scope — not the
// caller's scope, so a function's free variables always resolve
// against where it was declared — ghost the parameter frame into the
// body scope, run the body, and collect whatever ReturnOp produced.
//
// The parameter frame is a bare scope (no lexical parent): the body
// sees it only through the ghost set pushed onto the body's own
// activated scope. GhostInto also enforces the duplicate-identifier
// discipline, so a body declaring the same name as one of its
// parameters fails fast rather than silently shadowing it. ReturnOp
// values ride directly on ExecutionContext.ReturnValues; an activated
// return frame is never needed, since packEffectiveTuple assembles
// the multi-return tuple from those values.
func (f *Function) call(ec *scope.ExecutionContext, argValues []types.RValue, refSources []scope.Storage) []types.RValue {
	pools := scope.Pools{Strings: ec.Prog.Strings(), Buffers: ec.Prog.Buffers(), Arrays: ec.Prog.Arrays()}
	tuples, records := ec.Prog.Tuples(), ec.Prog.Records()

	var paramScope *scope.ActivatedScope
	if f.HeapBound {
		paramScope = scope.EnterOnHeap(f.ParamScope, nil, scope.NewHeapFrame(), tuples, records, pools)
	} else {
		paramScope = scope.EnterOnStack(f.ParamScope, nil, ec.Stack, tuples, records, pools)
	}

	vi, ri := 0, 0
	for _, m := range f.ParamScope.Members {
		switch m.Role {
		case scope.RoleVariable:
			if vi < len(argValues) {
				if err := paramScope.Write(m.Name, argValues[vi], tuples, records); err != nil {
					panic(err)
				}
				vi++
			}
		case scope.RoleReference:
			if ri < len(refSources) {
				paramScope.BindToStack(m.Name, refSources[ri])
				ri++
			}
		}
	}

	bodyDesc := f.Body.ScopeDesc
	preEntered := bodyDesc != nil
	if bodyDesc == nil {
		bodyDesc = anonymousBodyDesc
	}
	var bodyScope *scope.ActivatedScope
	if preEntered && f.Body.HeapBound {
		bodyScope = scope.EnterOnHeap(bodyDesc, f.DefiningScope, scope.NewHeapFrame(), tuples, records, pools)
	} else {
		bodyScope = scope.EnterOnStack(bodyDesc, f.DefiningScope, ec.Stack, tuples, records, pools)
	}
	mark := bodyScope.GhostMark()
	paramScope.GhostScopeInto(bodyScope)

	bodyCtx := ec.WithScope(bodyScope)
	if preEntered {
		f.Body.RunBlockPreEntered(bodyCtx)
	} else {
		f.Body.RunBlock(bodyCtx)
	}

	var result []types.RValue
	if bodyCtx.Flow == scope.Return {
		result = bodyCtx.ReturnValues
	}
	bodyScope.UnGhost(mark)
	bodyScope.Exit()
	paramScope.Exit()
	return f.packEffectiveTuple(tuples, result)
}

// packEffectiveTuple resolves a multi-return call to its effective
// tuple: a function declaring more than one named return value
// has its positional ReturnOp values packed into a single Tuple RValue
// whose field names come from ReturnScope, so callers can read `.a`,
// `.b`, etc. straight off the call result. A
// function with zero or one return value is left untouched — "a
// single-variable return emits the value directly; an empty return
// emits Null".
func (f *Function) packEffectiveTuple(tuples *types.Registry, result []types.RValue) []types.RValue {
	if f.ReturnScope == nil {
		return result
	}
	names := f.ReturnScope.ReturnMemberSpecs()
	switch len(names) {
	case 0:
		return []types.RValue{types.NullValue}
	case 1:
		return result
	}
	id, ok := scope.EffectiveTupleID(f.ReturnScope, tuples)
	if !ok {
		panic("tree: function " + f.Name + ": no registered tuple type matches its return-values scope (internal loader error)")
	}
	members := make([]types.Member, len(names))
	for i, n := range names {
		var v types.RValue
		if i < len(result) {
			v = result[i]
		}
		members[i] = types.Member{Name: n.Name, Value: v}
	}
	return []types.RValue{types.NewTuple(id, members)}
}

// Invoke calls a statically named function, resolved through the
// current scope chain (a nested function definition, a function-bound
// variable, or a function-valued constant).
type Invoke struct {
	zeroParams
	FuncName   string
	Args       []Operation
	RefArgs    []string
	ResultKind types.Kind
}

func (n *Invoke) ReturnKind() types.Kind { return n.ResultKind }

func (n *Invoke) ExecuteFast(ec *scope.ExecutionContext) { n.ExecuteAndStore(ec) }

func (n *Invoke) ExecuteAndStore(ec *scope.ExecutionContext) types.RValue {
	results := n.ExecuteMulti(ec)
	if len(results) > 0 {
		return results[0]
	}
	return types.NullValue
}

// ExecuteMulti runs the call and returns every value ReturnOp
// produced; effective-tuple packing consumes this directly rather
// than just the first value.
func (n *Invoke) ExecuteMulti(ec *scope.ExecutionContext) []types.RValue {
	fn, err := ec.Scope.ResolveFunction(n.FuncName)
	if err != nil {
		panic(err)
	}
	concrete, ok := fn.(*Function)
	if !ok {
		panic("tree: Invoke: resolved function value is not a *tree.Function")
	}
	return concrete.call(ec, evalArgs(ec, n.Args), resolveRefs(ec, n.RefArgs))
}

// InvokeIndirect calls a function reached through an arbitrary
// expression (e.g. a function-typed variable read back from a tuple
// member, or returned by another call) rather than a bare name.
type InvokeIndirect struct {
	zeroParams
	Target     Operation
	Args       []Operation
	RefArgs    []string
	ResultKind types.Kind
}

func (n *InvokeIndirect) ReturnKind() types.Kind { return n.ResultKind }

func (n *InvokeIndirect) ExecuteFast(ec *scope.ExecutionContext) { n.ExecuteAndStore(ec) }

func (n *InvokeIndirect) ExecuteAndStore(ec *scope.ExecutionContext) types.RValue {
	results := n.ExecuteMulti(ec)
	if len(results) > 0 {
		return results[0]
	}
	return types.NullValue
}

// ExecuteMulti is InvokeIndirect's multi-return counterpart.
func (n *InvokeIndirect) ExecuteMulti(ec *scope.ExecutionContext) []types.RValue {
	targetVal := n.Target.ExecuteAndStore(ec)
	fn := targetVal.Function()
	if fn == nil {
		panic("tree: InvokeIndirect: target did not evaluate to a bound function")
	}
	concrete, ok := fn.(*Function)
	if !ok {
		panic("tree: InvokeIndirect: resolved function value is not a *tree.Function")
	}
	return concrete.call(ec, evalArgs(ec, n.Args), resolveRefs(ec, n.RefArgs))
}

func evalArgs(ec *scope.ExecutionContext, args []Operation) []types.RValue {
	vals := make([]types.RValue, len(args))
	for i, a := range args {
		vals[i] = a.ExecuteAndStore(ec)
	}
	return vals
}

func resolveRefs(ec *scope.ExecutionContext, names []string) []scope.Storage {
	if len(names) == 0 {
		return nil
	}
	sources := make([]scope.Storage, len(names))
	for i, name := range names {
		st, err := ec.Scope.ResolveVariable(name)
		if err != nil {
			panic(err)
		}
		sources[i] = st
	}
	return sources
}
