package scope

import "github.com/fuguevm/fuguevm/vm/types"

// FlowResult is the mutable flow-control signal threaded through block
// execution: Normal execution falls through to the next
// operation; Break unwinds to the nearest enclosing loop; Return
// unwinds to the nearest enclosing function invocation;
// ExitElseIfWrapper unwinds exactly one level of an if/else-if chain
// without escaping the function.
type FlowResult int

const (
	Normal FlowResult = iota
	Break
	ExitElseIfWrapper
	Return
)

func (f FlowResult) String() string {
	switch f {
	case Normal:
		return "normal"
	case Break:
		return "break"
	case ExitElseIfWrapper:
		return "exit-else-if-wrapper"
	case Return:
		return "return"
	default:
		return "flow(?)"
	}
}

// Program is the minimal view of the owning program that scope-level
// and tree-level operations need: the shared handle pools and type
// registries, plus the host collaborators consulted by debug/line I/O
// operations. The concrete *vm.Program implements this; it is declared
// here (rather than scope importing package vm) to keep the import
// graph acyclic — vm is the top of the dependency graph, scope sits
// well below it.
type Program interface {
	Strings() *types.StringPool
	Buffers() *types.BufferPool
	Arrays() *types.ArrayPool
	Tuples() *types.Registry
	Records() *types.Registry

	// WriteDebug and ReadLine delegate to the host collaborators: a
	// transcript writer and an interactive line
	// reader, neither of which the VM core implements itself.
	WriteDebug(s string)
	ReadLine() (string, error)
}

// ExecutionContext carries the references every running operation
// needs: the owning program, the scope currently
// activated, the stack currently in scope, and the mutable flow-control
// result operations consult after executing a block.
type ExecutionContext struct {
	Prog  Program
	Scope *ActivatedScope
	Stack *ValueStack
	Flow  FlowResult

	// TaskID identifies the task this context runs inside. Zero for
	// the program's top-level execution, which is not a forked task.
	TaskID int32

	// ReturnValues carries the values of the most recently executed
	// Return operation up to the invoking Function.Invoke, which reads
	// it immediately after Flow settles to Return and before any
	// further operation can overwrite it.
	ReturnValues []types.RValue
}

// NewExecutionContext builds a fresh context bound to prog/scope/stack,
// with flow-control reset to Normal.
func NewExecutionContext(prog Program, sc *ActivatedScope, stack *ValueStack) *ExecutionContext {
	return &ExecutionContext{Prog: prog, Scope: sc, Stack: stack, Flow: Normal}
}

// WithScope returns a shallow copy of ec bound to a different activated
// scope (used when entering a nested block's own scope while keeping
// the same stack and flow state).
func (ec *ExecutionContext) WithScope(sc *ActivatedScope) *ExecutionContext {
	cp := *ec
	cp.Scope = sc
	return &cp
}
