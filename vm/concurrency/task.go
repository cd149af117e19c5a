/*
Package concurrency implements the VM's concurrency model:
goroutine-per-task execution, named thread pools, single-shot futures,
a typed inter-task message bus with pattern-matched response maps, and
chunked parallel-for.

It depends on packages scope, types, and tree (Block/Operation, to run
task bodies and response-map handlers); none of those depend back on
concurrency.

golang.org/x/sync/errgroup supplies the "wait for every spawned task,
collect the first error" discipline: a worker failure surfaces as one
structured error from Program.Execute instead of a dialog box raced
from an arbitrary thread.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package concurrency

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/npillmayer/schuko/tracing"
	"golang.org/x/sync/errgroup"

	"github.com/fuguevm/fuguevm/internal/vmtrace"
	"github.com/fuguevm/fuguevm/vm/scope"
	"github.com/fuguevm/fuguevm/vm/types"
)

func tracer() tracing.Trace {
	return vmtrace.Select(vmtrace.KeyConcurrency)
}

// Task is one OS-thread-backed unit of concurrent execution: its own
// value stack, its own inbox, and a stable handle other tasks address
// it by.
type Task struct {
	ID    int32
	Name  string // optional; set when the spawning operation named the task
	Stack *scope.ValueStack
	Inbox *Inbox
	Scope *scope.ActivatedScope
}

// Handle returns the task's identity as a TaskHandle RValue.
func (t *Task) Handle() types.RValue { return types.NewTaskHandle(t.ID) }

// Runtime owns every live task and named thread pool for one Program,
// plus the errgroup used to wait for all spawned tasks to finish and
// collect the first error.
type Runtime struct {
	mu     sync.Mutex
	nextID int32
	tasks  map[int32]*Task
	byName map[string]*Task
	pools  *Registry
	group  *errgroup.Group
}

// NewRuntime creates an empty concurrency runtime bound to group,
// which the owning Program creates fresh for each Execute and waits on
// before returning.
func NewRuntime(group *errgroup.Group) *Runtime {
	return &Runtime{
		nextID: 1,
		tasks:  make(map[int32]*Task),
		byName: make(map[string]*Task),
		pools:  NewRegistry(),
		group:  group,
	}
}

// Pools returns the named thread-pool registry, for Program teardown
// (CloseAll) and for operations (ParallelFor) that submit chunk work.
func (rt *Runtime) Pools() *Registry { return rt.pools }

func (rt *Runtime) allocTask(stack *scope.ValueStack) *Task {
	id := atomic.AddInt32(&rt.nextID, 1) - 1
	t := &Task{ID: id, Stack: stack, Inbox: NewInbox()}
	rt.mu.Lock()
	rt.tasks[id] = t
	rt.mu.Unlock()
	return t
}

// Lookup returns the live task registered under id.
func (rt *Runtime) Lookup(id int32) (*Task, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	t, ok := rt.tasks[id]
	return t, ok
}

// SetTaskName registers t under name, making it addressable by a
// by-name message send. A later registration under the same name
// takes over the name.
func (rt *Runtime) SetTaskName(t *Task, name string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	t.Name = name
	rt.byName[name] = t
}

// LookupByName returns the live task registered under name.
func (rt *Runtime) LookupByName(name string) (*Task, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	t, ok := rt.byName[name]
	return t, ok
}

// ResolveTarget maps a send target to a task: a TaskHandle value is
// looked up by id, a String value by the interned name it refers to.
func (rt *Runtime) ResolveTarget(target types.RValue, strings *types.StringPool) (*Task, error) {
	switch target.Kind() {
	case types.String:
		name, ok := strings.Get(target.StringHandle())
		if !ok {
			return nil, fmt.Errorf("concurrency: send target names unknown string handle %d", target.StringHandle())
		}
		t, ok := rt.LookupByName(name)
		if !ok {
			return nil, fmt.Errorf("concurrency: send to unknown task name %q", name)
		}
		return t, nil
	default:
		t, ok := rt.Lookup(target.Int())
		if !ok {
			return nil, fmt.Errorf("concurrency: send to unknown task handle %d", target.Int())
		}
		return t, nil
	}
}

// Spawn starts body as a fresh task: a new OS goroutine owning its own
// value stack and inbox, tracked by rt's errgroup so Program.Execute
// can wait for every spawned task and surface the first error any of
// them returns. Spawn itself activates no scope and sets no task
// origin; body does both on the task's context.
func (rt *Runtime) Spawn(parent *scope.ExecutionContext, body func(ec *scope.ExecutionContext, task *Task) error) *Task {
	stack := scope.NewValueStack()
	t := rt.allocTask(stack)
	rt.group.Go(func() (err error) {
		// A fatal condition raised mid-task (a duplicate identifier, an
		// unresolved name) terminates this task only; it surfaces as
		// the task's error instead of tearing the process down.
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("task %d: %v", t.ID, r)
				tracer().Errorf("%v", err)
			}
		}()
		taskCtx := &scope.ExecutionContext{Prog: parent.Prog, Stack: stack, Flow: scope.Normal, TaskID: t.ID}
		tracer().Debugf("task %d: spawned", t.ID)
		err = body(taskCtx, t)
		if err != nil {
			tracer().Errorf("task %d: %v", t.ID, err)
		}
		return err
	})
	return t
}
