package concurrency

import (
	"fmt"
	"sync"

	"github.com/fuguevm/fuguevm/vm/scope"
	"github.com/fuguevm/fuguevm/vm/tree"
	"github.com/fuguevm/fuguevm/vm/types"
)

// Message is one typed inter-task message: the sending
// task's handle, a name matched against a receiver's response map, and
// a positional payload. The original design backs a message's payload
// with a heap-frame allocation; here it is carried directly as an
// RValue slice, a Go-idiomatic simplification of the same "typed,
// ordered payload" contract (each RValue is independently clonable and
// needs no separate packing step, since this implementation never
// serializes a message to bytes for cross-task transport — both tasks
// share one address space).
type Message struct {
	Sender  int32
	Name    string
	Payload []types.RValue
}

// Inbox is a task's MPSC mailbox: any number of senders, exactly one
// receiver (the owning task's AcceptMessage calls). Receive implements
// a discard-on-no-match discipline: messages are scanned in arrival
// order, and any message that matches no pattern offered to the
// current Receive call is dropped rather than left queued for a future
// call with a different response map. A receive with no matching
// message blocks indefinitely; there is no timeout.
type Inbox struct {
	mu    sync.Mutex
	cond  *sync.Cond
	queue []*Message
}

// NewInbox creates an empty inbox.
func NewInbox() *Inbox {
	ib := &Inbox{}
	ib.cond = sync.NewCond(&ib.mu)
	return ib
}

// Send enqueues m and wakes any blocked receiver.
func (ib *Inbox) Send(m *Message) {
	ib.mu.Lock()
	ib.queue = append(ib.queue, m)
	ib.cond.Broadcast()
	ib.mu.Unlock()
}

// Receive blocks until a message matching match arrives, discarding
// every non-matching message it passes over along the way.
func (ib *Inbox) Receive(match func(*Message) bool) *Message {
	ib.mu.Lock()
	defer ib.mu.Unlock()
	for {
		for len(ib.queue) > 0 {
			m := ib.queue[0]
			ib.queue = ib.queue[1:]
			if match(m) {
				return m
			}
			tracer().Debugf("inbox: discarded unmatched message %q from task %d", m.Name, m.Sender)
		}
		ib.cond.Wait()
	}
}

// AcceptMessageOp is the tree.Operation that blocks the current task
// until a message matching rm's entries arrives, binds its payload
// into the matching entry's parameter scope, and runs the entry's
// body. It lives in package
// concurrency (rather than tree) because it needs Task/Inbox, and
// concurrency is free to depend on tree; satisfying tree.Operation
// lets it appear directly inside an ordinary Block.
type AcceptMessageOp struct {
	Rt              *Runtime
	Task            *Task // optional; resolved from the context's TaskID when nil
	ResponseMapName string
}

// ReturnKind implements tree.Operation; AcceptMessage never produces a
// retained value of its own.
func (n *AcceptMessageOp) ReturnKind() types.Kind { return types.Null }

// StackParams implements tree.Operation.
func (n *AcceptMessageOp) StackParams() int { return 0 }

func (n *AcceptMessageOp) ExecuteFast(ec *scope.ExecutionContext) {
	rm, err := ec.Scope.ResolveResponseMap(n.ResponseMapName)
	if err != nil {
		panic(err)
	}
	receiveAndDispatch(ec, currentTask(n.Rt, n.Task, ec), rm.Entries)
}

func (n *AcceptMessageOp) ExecuteAndStore(ec *scope.ExecutionContext) types.RValue {
	n.ExecuteFast(ec)
	return types.NullValue
}

// AcceptSingleOp is the single-entry receive form: it carries its one
// message pattern inline rather than resolving a named response map
// from the surrounding scope.
type AcceptSingleOp struct {
	Rt    *Runtime
	Task  *Task // optional; resolved from the context's TaskID when nil
	Entry scope.ResponseMapEntry
}

func (n *AcceptSingleOp) ReturnKind() types.Kind { return types.Null }
func (n *AcceptSingleOp) StackParams() int       { return 0 }

func (n *AcceptSingleOp) ExecuteFast(ec *scope.ExecutionContext) {
	receiveAndDispatch(ec, currentTask(n.Rt, n.Task, ec), []scope.ResponseMapEntry{n.Entry})
}

func (n *AcceptSingleOp) ExecuteAndStore(ec *scope.ExecutionContext) types.RValue {
	n.ExecuteFast(ec)
	return types.NullValue
}

// currentTask resolves the task a receive operation runs inside:
// either pinned on the operation at load time, or looked up from the
// context's TaskID.
func currentTask(rt *Runtime, pinned *Task, ec *scope.ExecutionContext) *Task {
	if pinned != nil {
		return pinned
	}
	t, ok := rt.Lookup(ec.TaskID)
	if !ok {
		panic(fmt.Sprintf("concurrency: accept outside any registered task (context task id %d)", ec.TaskID))
	}
	return t
}

// handlerBodyDesc backs the body scope of a response-map entry whose
// block declares no scope of its own, giving every dispatch a fresh
// ghost-set holder (see tree.Function's anonymous body scope for the
// same arrangement on the call path).
var handlerBodyDesc = scope.NewScopeDescription("handler", nil)

// receiveAndDispatch is the blocking receive shared by both accept
// forms: pull messages until one matches a candidate entry by name and
// payload types (non-matching messages are discarded), bind the
// payload into the entry's parameter frame, ghost that frame into the
// body's activated scope, record the sender as the body's
// last-message-origin, and run the entry's body. Ghosting rather than
// parent-chaining keeps the parameter frame out of lexical resolution
// and makes a handler body that declares one of its payload names a
// fatal duplicate-identifier error.
func receiveAndDispatch(ec *scope.ExecutionContext, task *Task, entries []scope.ResponseMapEntry) {
	payloadMatches := func(e *scope.ResponseMapEntry, m *Message) bool {
		if len(e.PayloadTypes) != len(m.Payload) {
			return false
		}
		for i, pd := range e.PayloadTypes {
			got := m.Payload[i].Kind()
			if pd.IsArray {
				if got != types.Array || m.Payload[i].ArrayElementKind() != pd.ElementKind {
					return false
				}
				continue
			}
			if got != pd.Kind {
				return false
			}
		}
		return true
	}
	matchEntry := func(m *Message) (*scope.ResponseMapEntry, bool) {
		for i := range entries {
			e := &entries[i]
			if e.MessageName == m.Name && payloadMatches(e, m) {
				return e, true
			}
		}
		return nil, false
	}
	var entry *scope.ResponseMapEntry
	msg := task.Inbox.Receive(func(m *Message) bool {
		e, ok := matchEntry(m)
		entry = e
		return ok
	})

	pools := scope.Pools{Strings: ec.Prog.Strings(), Buffers: ec.Prog.Buffers(), Arrays: ec.Prog.Arrays()}
	tuples, records := ec.Prog.Tuples(), ec.Prog.Records()
	paramScope := scope.EnterOnStack(entry.ParamScope, nil, ec.Stack, tuples, records, pools)
	for i, pd := range entry.PayloadTypes {
		if err := paramScope.Write(pd.Name, msg.Payload[i], tuples, records); err != nil {
			panic(err)
		}
	}

	bodyBlock, _ := entry.Body.(*tree.Block)
	bodyDesc := handlerBodyDesc
	preEntered := false
	if bodyBlock != nil && bodyBlock.ScopeDesc != nil {
		bodyDesc = bodyBlock.ScopeDesc
		preEntered = true
	}
	bodyScope := scope.EnterOnStack(bodyDesc, ec.Scope, ec.Stack, tuples, records, pools)
	mark := bodyScope.GhostMark()
	paramScope.GhostScopeInto(bodyScope)
	bodyScope.SetLastMessageOrigin(types.NewTaskHandle(msg.Sender))

	bodyCtx := ec.WithScope(bodyScope)
	if preEntered {
		bodyBlock.RunBlockPreEntered(bodyCtx)
	} else {
		bodyCtx.Flow = scope.Normal
		entry.Body.RunBlock(bodyCtx)
	}
	bodyScope.UnGhost(mark)
	bodyScope.Exit()
	paramScope.Exit()
}

// SendMessage delivers a message from sender to the task addressed by
// target, a TaskHandle. name and payload are evaluated by the caller;
// SendMessage itself is a thin convenience used by the SendMessageOp
// tree operation.
func SendMessage(rt *Runtime, target types.RValue, sender int32, name string, payload []types.RValue) error {
	t, err := rt.resolveSendTarget(target)
	if err != nil {
		return err
	}
	t.Inbox.Send(&Message{Sender: sender, Name: name, Payload: payload})
	return nil
}

// resolveSendTarget resolves a by-handle target without a string pool;
// by-name sends go through Runtime.ResolveTarget, which needs one.
func (rt *Runtime) resolveSendTarget(target types.RValue) (*Task, error) {
	if target.Kind() == types.String {
		return nil, fmt.Errorf("concurrency: by-name send requires a string pool; use SendMessageOp or Runtime.ResolveTarget")
	}
	t, ok := rt.Lookup(target.Int())
	if !ok {
		return nil, fmt.Errorf("concurrency: send to unknown task handle %d", target.Int())
	}
	return t, nil
}

// SendMessageOp is the tree.Operation evaluating a target expression —
// a task handle, or a string naming a registered task — plus payload
// expressions, then delivering the message.
type SendMessageOp struct {
	Rt         *Runtime
	SenderID   int32 // optional; zero means the context's own TaskID
	Target     tree.Operation
	Name       string
	PayloadOps []tree.Operation
}

func (n *SendMessageOp) ReturnKind() types.Kind { return types.Null }
func (n *SendMessageOp) StackParams() int       { return 0 }

func (n *SendMessageOp) ExecuteFast(ec *scope.ExecutionContext) {
	target := n.Target.ExecuteAndStore(ec)
	vals := make([]types.RValue, len(n.PayloadOps))
	for i, p := range n.PayloadOps {
		vals[i] = p.ExecuteAndStore(ec)
	}
	t, err := n.Rt.ResolveTarget(target, ec.Prog.Strings())
	if err != nil {
		panic(err)
	}
	sender := n.SenderID
	if sender == 0 {
		sender = ec.TaskID
	}
	t.Inbox.Send(&Message{Sender: sender, Name: n.Name, Payload: vals})
}

func (n *SendMessageOp) ExecuteAndStore(ec *scope.ExecutionContext) types.RValue {
	n.ExecuteFast(ec)
	return types.NullValue
}
