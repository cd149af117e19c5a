/*
Package vm implements the Program object and global-initialization
lifecycle that ties the scope, type, and concurrency subsystems
together into one runnable unit:
construction resets the per-program type registries and handle pools,
Execute runs the optional global-init block into a heap frame the
program owns for its whole lifetime, then looks up and invokes
`entrypoint`.

Package vm is the root of the module's dependency graph: it owns the
one type (Program) that every subsystem's own Program interface is
written against, and nothing below it imports back up.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package vm

import (
	"errors"
	"fmt"

	"github.com/npillmayer/schuko/tracing"
	"golang.org/x/sync/errgroup"

	"github.com/fuguevm/fuguevm/internal/vmtrace"
	"github.com/fuguevm/fuguevm/vm/concurrency"
	"github.com/fuguevm/fuguevm/vm/host"
	"github.com/fuguevm/fuguevm/vm/scope"
	"github.com/fuguevm/fuguevm/vm/tree"
	"github.com/fuguevm/fuguevm/vm/types"
)

func tracer() tracing.Trace {
	return vmtrace.Select(vmtrace.KeyProgram)
}

// entrypointName is the single, fixed name Program.Execute resolves
// and invokes once the global scope and global-init block have run.
const entrypointName = "entrypoint"

// Program owns everything constructed by the loader before execution
// begins: the global scope description and its optional init block,
// the named function table, the tuple/record type registries, the
// three handle pools, and the thread-pool/task registry. Exactly one
// Program is built per run; its registries and pools are fields of
// this struct rather than process-globals, so no process-wide
// single-instance counter is needed and a future host could run
// several programs side by side.
type Program struct {
	GlobalScopeDesc *scope.ScopeDescription
	GlobalInit      *tree.Block // optional; nil if the program declares no global-init block
	Functions       map[string]*tree.Function

	tuples  *types.Registry
	records *types.Registry
	strings *types.StringPool
	buffers *types.BufferPool
	arrays  *types.ArrayPool

	concurrency *concurrency.Runtime

	PreExec host.PreExecHook // optional; called with no arguments just before entrypoint invocation
	Debug   host.DebugWriter // optional; defaults to discarding debug writes
	Lines   host.LineReader  // optional; ReadLine fails if unset
	Dialog  host.ErrorDialog // optional; defaults to a no-op sink

	globalScope *scope.ActivatedScope
	globalHeap  *scope.HeapFrame
	stack       *scope.ValueStack
}

// NewProgram constructs an empty Program with freshly allocated
// tuple/record registries and string/buffer/array pools, so no state
// leaks between consecutive program loads.
func NewProgram() *Program {
	return &Program{
		Functions: make(map[string]*tree.Function),
		tuples:    types.NewRegistry(types.Tuple, false),
		records:   types.NewRegistry(types.Record, true),
		strings:   types.NewStringPool(),
		buffers:   types.NewBufferPool(),
		arrays:    types.NewArrayPool(),
		stack:     scope.NewValueStack(),
	}
}

// The following methods implement scope.Program, the minimal view
// package scope and package tree need of their owning program.
func (p *Program) Strings() *types.StringPool { return p.strings }
func (p *Program) Buffers() *types.BufferPool { return p.buffers }
func (p *Program) Arrays() *types.ArrayPool   { return p.arrays }
func (p *Program) Tuples() *types.Registry    { return p.tuples }
func (p *Program) Records() *types.Registry   { return p.records }

// WriteDebug routes a debug-tagged write through the host collaborator
// , silently discarding it if none was installed.
func (p *Program) WriteDebug(s string) {
	if p.Debug != nil {
		p.Debug.WriteDebug(s)
	}
}

// ReadLine routes a blocking line-read through the host
// collaborator.
func (p *Program) ReadLine() (string, error) {
	if p.Lines == nil {
		return "", fmt.Errorf("vm: no LineReader host collaborator installed")
	}
	return p.Lines.ReadLine()
}

// Concurrency returns the task/thread-pool runtime, available only
// between Execute's setup and teardown (nil before Execute runs).
func (p *Program) Concurrency() *concurrency.Runtime { return p.concurrency }

// Stack returns the primary execution stack, owned by the program's
// top-level execution; each forked task gets its own.
func (p *Program) Stack() *scope.ValueStack { return p.stack }

// GlobalScope returns the activated global scope, available once
// Execute has run at least partially (nil beforehand). Exposed for
// host tooling such as cmd/vmrepl's `:dump` introspection command,
// which has no other way to reach inside a finished run.
func (p *Program) GlobalScope() *scope.ActivatedScope { return p.globalScope }

// reportError routes a fatal *Error through the host's error-dialog
// sink,
// falling back to nothing if no dialog collaborator was installed (the
// caller still receives the error as a Go return value either way).
func (p *Program) reportError(err *Error) {
	if p.Dialog != nil {
		p.Dialog.Show(err.Kind.Prologue(), err.Message)
	}
}

// Execute runs the program exactly once: it invokes
// the pre-execution hook (if any), activates the global scope, runs
// the global-init block (if any) into a heap frame the program keeps
// for its own lifetime, looks up and invokes `entrypoint`, waits for
// every spawned task to finish, asserts the primary stack returned to
// empty, and returns
// entrypoint's result.
func (p *Program) Execute() (result types.RValue, err error) {
	defer func() {
		if r := recover(); r != nil {
			verr := toError(r)
			p.reportError(verr)
			err = verr
		}
	}()

	if p.PreExec != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					panic(Wrap(InternalFailure, fmt.Errorf("%v", r), "pre-execution hook panicked"))
				}
			}()
			p.PreExec()
		}()
	}

	group := &errgroup.Group{}
	p.concurrency = concurrency.NewRuntime(group)
	defer p.concurrency.Pools().CloseAll()

	pools := scope.Pools{Strings: p.strings, Buffers: p.buffers, Arrays: p.arrays}
	if p.GlobalScopeDesc == nil {
		panic(Newf(InternalFailure, "program has no global scope description"))
	}
	p.globalHeap = scope.NewHeapFrame()
	p.globalScope = scope.EnterOnHeap(p.GlobalScopeDesc, nil, p.globalHeap, p.tuples, p.records, pools)

	// Every function with no lexical closure of its own defaults to
	// closing over the global scope, so top-level functions resolve
	// global variables and response maps. A function that was built as
	// a true nested closure keeps whatever DefiningScope its loader
	// already assigned. Each function is also registered in the global
	// description's nested-function table, which is what name
	// resolution (Invoke, InvokeIndirect via a read variable) actually
	// consults; registration runs the same duplicate-identifier check
	// as any other declaration.
	for name, fn := range p.Functions {
		if fn.DefiningScope == nil {
			fn.DefiningScope = p.globalScope
		}
		if _, ok := p.GlobalScopeDesc.NestedFunctions[name]; ok {
			continue
		}
		if err := p.GlobalScopeDesc.AddNestedFunction(name, fn); err != nil {
			panic(Wrap(DuplicateIdentifier, err, "registering function %q", name))
		}
	}

	ec := scope.NewExecutionContext(p, p.globalScope, p.stack)

	if p.GlobalInit != nil {
		tracer().Debugf("running global-init block")
		p.GlobalInit.RunBlock(ec)
		ec.Flow = scope.Normal
	}

	entry, ok := p.Functions[entrypointName]
	if !ok {
		panic(Newf(InternalFailure, "no function named %q", entrypointName))
	}
	tracer().Debugf("invoking entrypoint")
	results := entry.Call(ec, nil, nil)

	if err := group.Wait(); err != nil {
		panic(Wrap(Execution, err, "a spawned task failed"))
	}

	if p.stack.CurrentTop() != 0 {
		panic(Newf(InternalFailure, "primary stack not empty at program exit (height=%d)", p.stack.CurrentTop()))
	}

	if len(results) == 0 {
		return types.NullValue, nil
	}
	return results[0], nil
}

// InvokeWithExternalParams implements host.FunctionInvoker: the
// native marshalling layer hands
// over a memory region holding the named function's arguments in
// reverse declared order; the region is decoded with the VM's own
// per-kind stack encoding, the function runs on a private stack, and
// its result comes back as a single RValue (the effective tuple, for a
// multi-return function). Only callable while the program's global
// scope is active, i.e. from a host callback fired during Execute or
// against a program that has finished executing.
func (p *Program) InvokeWithExternalParams(functionName string, externalParams []byte) (result types.RValue, err error) {
	defer func() {
		if r := recover(); r != nil {
			verr := toError(r)
			p.reportError(verr)
			result, err = types.NullValue, verr
		}
	}()

	if p.globalScope == nil {
		return types.NullValue, Newf(InternalFailure, "external invocation of %q before the global scope was activated", functionName)
	}
	fn, ok := p.Functions[functionName]
	if !ok {
		return types.NullValue, Newf(MissingVariable, "no function named %q", functionName)
	}
	pools := scope.Pools{Strings: p.strings, Buffers: p.buffers, Arrays: p.arrays}
	args, rerr := scope.ReadExternalParams(fn.ParamScope, externalParams, p.tuples, p.records, pools)
	if rerr != nil {
		verr := Wrap(NotImplemented, rerr, "cannot marshal external parameters for %q", functionName)
		p.reportError(verr)
		return types.NullValue, verr
	}

	// A native caller may arrive on any host thread, concurrently with
	// the program's own execution; the call gets a private stack so the
	// primary stack's balance invariant is untouched.
	ec := scope.NewExecutionContext(p, p.globalScope, scope.NewValueStack())
	results := fn.Call(ec, args, nil)
	if len(results) == 0 {
		return types.NullValue, nil
	}
	return results[0], nil
}

// toError normalizes a recovered panic value into an *Error: a
// *vm.Error panic is passed through, the scope subsystem's typed
// errors map onto their taxonomy kinds, and any other panic (a
// programmer assertion failure deeper in the tree/scope/types
// packages) is wrapped as InternalFailure, keeping the closed error
// taxonomy intact at the program's outermost boundary.
func toError(r interface{}) *Error {
	if verr, ok := r.(*Error); ok {
		return verr
	}
	if err, ok := r.(error); ok {
		var dup *scope.DuplicateIdentifierError
		if errors.As(err, &dup) {
			return Wrap(DuplicateIdentifier, err, "name collision")
		}
		var unresolved *scope.UnresolvedIdentifierError
		if errors.As(err, &unresolved) {
			return Wrap(MissingVariable, err, "unresolved identifier")
		}
		return Wrap(InternalFailure, err, "unhandled error")
	}
	return Newf(InternalFailure, "%v", r)
}
