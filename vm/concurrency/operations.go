package concurrency

import (
	"github.com/fuguevm/fuguevm/vm/scope"
	"github.com/fuguevm/fuguevm/vm/tree"
	"github.com/fuguevm/fuguevm/vm/types"
)

// GetTaskCallerOp returns the TaskHandle of the task that spawned the
// current task's chain, walking the activated-scope parent links.
type GetTaskCallerOp struct{}

func (GetTaskCallerOp) ReturnKind() types.Kind                 { return types.TaskHandle }
func (GetTaskCallerOp) StackParams() int                       { return 0 }
func (GetTaskCallerOp) ExecuteFast(ec *scope.ExecutionContext) {}
func (GetTaskCallerOp) ExecuteAndStore(ec *scope.ExecutionContext) types.RValue {
	return ec.Scope.TaskOrigin()
}

// GetMessageSenderOp returns the TaskHandle of the sender of the most
// recently accepted message.
type GetMessageSenderOp struct{}

func (GetMessageSenderOp) ReturnKind() types.Kind                 { return types.TaskHandle }
func (GetMessageSenderOp) StackParams() int                       { return 0 }
func (GetMessageSenderOp) ExecuteFast(ec *scope.ExecutionContext) {}
func (GetMessageSenderOp) ExecuteAndStore(ec *scope.ExecutionContext) types.RValue {
	return ec.Scope.LastMessageOrigin()
}

// SpawnTaskOp starts Body as a new task,
// returning the new task's handle. The new task's root scope is
// activated against DefiningScope (its lexical closure, typically the
// global scope), with its TaskOrigin stamped to the spawning task's
// own handle so GetTaskCaller resolves inside it.
type SpawnTaskOp struct {
	Rt            *Runtime
	TaskName      string // optional; registers the task for by-name message sends
	DefiningScope *scope.ActivatedScope
	BodyDesc      *scope.ScopeDescription
	Body          *tree.Block
}

func (n *SpawnTaskOp) ReturnKind() types.Kind                 { return types.TaskHandle }
func (n *SpawnTaskOp) StackParams() int                       { return 0 }
func (n *SpawnTaskOp) ExecuteFast(ec *scope.ExecutionContext) { n.ExecuteAndStore(ec) }

func (n *SpawnTaskOp) ExecuteAndStore(ec *scope.ExecutionContext) types.RValue {
	callerHandle := types.NullValue
	if ec.TaskID != 0 {
		// The spawning task's own identity, if this ExecutionContext is
		// itself running inside a task (vs. the program's top-level
		// execution, which has no task handle of its own).
		callerHandle = types.NewTaskHandle(ec.TaskID)
	}
	t := n.Rt.Spawn(ec, func(taskCtx *scope.ExecutionContext, task *Task) error {
		pools := scope.Pools{Strings: ec.Prog.Strings(), Buffers: ec.Prog.Buffers(), Arrays: ec.Prog.Arrays()}
		activated := scope.EnterOnStack(n.BodyDesc, n.DefiningScope, taskCtx.Stack, ec.Prog.Tuples(), ec.Prog.Records(), pools)
		activated.SetTaskOrigin(callerHandle)
		task.Scope = activated
		taskCtx.Scope = activated
		n.Body.RunBlock(taskCtx)
		activated.Exit()
		return nil
	})
	if n.TaskName != "" {
		n.Rt.SetTaskName(t, n.TaskName)
	}
	return t.Handle()
}

// SpawnPoolWorkOp forks a work item onto a named thread pool: rather
// than owning a whole worker of its own, the body is enqueued on
// PoolName's fixed worker set and runs
// when a worker frees up. The work item still gets a full task
// identity — its own stack, inbox, and handle — so it can exchange
// messages like any forked task; the handle is this operation's
// result.
type SpawnPoolWorkOp struct {
	Rt            *Runtime
	PoolName      string
	Workers       int // pool size if PoolName does not exist yet
	TaskName      string
	DefiningScope *scope.ActivatedScope
	BodyDesc      *scope.ScopeDescription
	Body          *tree.Block
}

func (n *SpawnPoolWorkOp) ReturnKind() types.Kind { return types.TaskHandle }
func (n *SpawnPoolWorkOp) StackParams() int       { return 0 }

func (n *SpawnPoolWorkOp) ExecuteFast(ec *scope.ExecutionContext) { n.ExecuteAndStore(ec) }

func (n *SpawnPoolWorkOp) ExecuteAndStore(ec *scope.ExecutionContext) types.RValue {
	callerHandle := types.NullValue
	if ec.TaskID != 0 {
		callerHandle = types.NewTaskHandle(ec.TaskID)
	}
	workers := n.Workers
	if workers < 1 {
		workers = 1
	}
	pool := n.Rt.pools.GetOrCreate(n.PoolName, workers)
	stack := scope.NewValueStack()
	t := n.Rt.allocTask(stack)
	if n.TaskName != "" {
		n.Rt.SetTaskName(t, n.TaskName)
	}
	prog := ec.Prog
	defining := n.DefiningScope
	pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				tracer().Errorf("pool work item %d: %v", t.ID, r)
			}
		}()
		taskCtx := &scope.ExecutionContext{Prog: prog, Stack: stack, Flow: scope.Normal, TaskID: t.ID}
		pools := scope.Pools{Strings: prog.Strings(), Buffers: prog.Buffers(), Arrays: prog.Arrays()}
		activated := scope.EnterOnStack(n.BodyDesc, defining, stack, prog.Tuples(), prog.Records(), pools)
		activated.SetTaskOrigin(callerHandle)
		t.Scope = activated
		taskCtx.Scope = activated
		n.Body.RunBlock(taskCtx)
		activated.Exit()
	})
	return t.Handle()
}

// SpawnFutureOp evaluates Body asynchronously and binds the result to
// a Future stored under VarName in the current scope, to be
// transparently resolved on the next read.
// VarName must have been declared with
// ScopeDescription.AddFutureVariable. The computation runs on a
// dedicated goroutine by default, or on PoolName's thread pool when
// one is named.
type SpawnFutureOp struct {
	VarName  string
	Body     tree.Operation
	Rt       *Runtime // required only for the pool-scheduled form
	PoolName string   // optional; empty means a dedicated goroutine
	Workers  int      // pool size if PoolName does not exist yet
}

func (n *SpawnFutureOp) ReturnKind() types.Kind { return types.Null }
func (n *SpawnFutureOp) StackParams() int       { return 0 }

func (n *SpawnFutureOp) ExecuteFast(ec *scope.ExecutionContext) {
	fut, ok := ec.Scope.FutureFor(n.VarName)
	if !ok {
		// First scheduling of this future: create its completion cell
		// and bind it to the declared member, so every subsequent read
		// of VarName resolves through it (BindFuture panics if VarName
		// was never declared as a future variable).
		fut = scope.NewFuture()
		ec.Scope.BindFuture(n.VarName, fut)
	}
	// The future's body gets its own stack, since stack usage is not
	// shared across goroutines; its lexical scope is still the scope
	// it closed over.
	compute := func() {
		childStack := scope.NewValueStack()
		childCtx := &scope.ExecutionContext{Prog: ec.Prog, Scope: ec.Scope, Stack: childStack, Flow: scope.Normal, TaskID: ec.TaskID}
		fut.Complete(n.Body.ExecuteAndStore(childCtx))
	}
	if n.PoolName != "" {
		workers := n.Workers
		if workers < 1 {
			workers = 1
		}
		n.Rt.pools.GetOrCreate(n.PoolName, workers).Submit(compute)
		return
	}
	go compute()
}

func (n *SpawnFutureOp) ExecuteAndStore(ec *scope.ExecutionContext) types.RValue {
	n.ExecuteFast(ec)
	return types.NullValue
}
