package scope

import (
	"fmt"

	"github.com/emirpasic/gods/lists/arraylist"

	"github.com/fuguevm/fuguevm/vm/types"
)

// ghostEntry is one entry of the ghost-set stack: an identifier made
// resolvable from a scope other than the lexical parent chain, and the
// scope it resolves into. Most commonly used
// to make a callee's parameter-passing scope and return-frame visible
// to the invoked function's body without splicing them permanently
// into the static parent chain.
type ghostEntry struct {
	name   string
	origin *ActivatedScope
}

// ActivatedScope is a live instantiation of a ScopeDescription: storage
// bound either to a ValueStack region or a HeapFrame region, a ghost
// set stack for transient cross-scope visibility, a parent link for
// lexical lookup, and task/message-origin bookkeeping consulted by
// GetTaskCaller/GetMessageSender.
//
// The ghost-set stack is an arraylist.List of ghost entries, pushed
// and popped in strict LIFO order around each invocation.
type ActivatedScope struct {
	desc   *ScopeDescription
	parent *ActivatedScope

	stack *ValueStack // non-nil iff this scope is stack-bound
	heap  *HeapFrame  // non-nil iff this scope is heap-bound

	baseOffset    int
	enterSize     int
	memberOffsets map[string]int

	refTargets map[[2]interface{}]Storage
	fnValues   map[[2]interface{}]types.FunctionValue
	futures    map[[2]interface{}]*Future

	strings *types.StringPool
	buffers *types.BufferPool
	arrays  *types.ArrayPool

	ghosts *arraylist.List // of ghostEntry

	taskOrigin        types.RValue // TaskHandle RValue of the task that spawned this scope's chain, or NullValue
	lastMessageOrigin types.RValue // TaskHandle RValue of the most recent AcceptMessage sender, or NullValue
}

// Pools bundles the three per-program handle pools an activated scope
// needs to resolve/allocate String, Buffer, and Array storage.
type Pools struct {
	Strings *types.StringPool
	Buffers *types.BufferPool
	Arrays  *types.ArrayPool
}

// EnterOnStack activates desc as a fresh region of stack, pushing
// storage for every declared variable member in order and returning
// the new ActivatedScope. parent is the lexical parent for name
// resolution (nil for the program's global scope).
func EnterOnStack(desc *ScopeDescription, parent *ActivatedScope, stack *ValueStack, tuples, records *types.Registry, pools Pools) *ActivatedScope {
	ac := &ActivatedScope{
		desc:          desc,
		parent:        parent,
		stack:         stack,
		memberOffsets: make(map[string]int),
		refTargets:    make(map[[2]interface{}]Storage),
		fnValues:      make(map[[2]interface{}]types.FunctionValue),
		futures:       make(map[[2]interface{}]*Future),
		strings:       pools.Strings,
		buffers:       pools.Buffers,
		arrays:        pools.Arrays,
		ghosts:        arraylist.New(),
		taskOrigin:    types.NullValue,
	}
	if parent != nil {
		ac.taskOrigin = parent.taskOrigin
		ac.lastMessageOrigin = parent.lastMessageOrigin
	}
	ac.baseOffset = stack.CurrentTop()
	for _, m := range desc.Members {
		if m.Role != RoleVariable {
			continue
		}
		sz := m.storageSize(tuples, records)
		off := stack.Push(sz)
		ac.memberOffsets[m.Name] = off
	}
	ac.enterSize = stack.CurrentTop() - ac.baseOffset
	tracer().Debugf("enter scope %q on stack: base=%d size=%d", desc.Name, ac.baseOffset, ac.enterSize)
	return ac
}

// EnterOnHeap activates desc against a (possibly pre-existing) heap
// frame, used for the program's global scope and for any scope
// explicitly declared heap-bound.
func EnterOnHeap(desc *ScopeDescription, parent *ActivatedScope, heap *HeapFrame, tuples, records *types.Registry, pools Pools) *ActivatedScope {
	ac := &ActivatedScope{
		desc:          desc,
		parent:        parent,
		heap:          heap,
		memberOffsets: make(map[string]int),
		refTargets:    make(map[[2]interface{}]Storage),
		fnValues:      make(map[[2]interface{}]types.FunctionValue),
		futures:       make(map[[2]interface{}]*Future),
		strings:       pools.Strings,
		buffers:       pools.Buffers,
		arrays:        pools.Arrays,
		ghosts:        arraylist.New(),
		taskOrigin:    types.NullValue,
	}
	for _, m := range desc.Members {
		if m.Role != RoleVariable {
			continue
		}
		sz := m.storageSize(tuples, records)
		off := heap.Alloc(sz)
		ac.memberOffsets[m.Name] = off
	}
	tracer().Debugf("enter scope %q on heap: size=%d", desc.Name, heap.Size())
	return ac
}

// Exit pops this scope's reserved stack region, enforcing strict LIFO
// discipline. No-op for
// heap-bound scopes, whose storage is released only when their whole
// heap frame is discarded.
func (ac *ActivatedScope) Exit() {
	if ac.stack == nil {
		return
	}
	if ac.stack.CurrentTop() != ac.baseOffset+ac.enterSize {
		panic(fmt.Sprintf("scope: exiting %q out of LIFO order (top=%d, expected=%d)",
			ac.desc.Name, ac.stack.CurrentTop(), ac.baseOffset+ac.enterSize))
	}
	ac.stack.Pop(ac.enterSize)
}

func (ac *ActivatedScope) region() backing {
	if ac.stack != nil {
		return ac.stack
	}
	return ac.heap
}

// storageFor builds a Storage view for a declared member, panicking if
// the member does not exist in this scope's own description (callers
// resolve across scopes first, then bind against whichever
// ActivatedScope owns the match).
func (ac *ActivatedScope) storageFor(m MemberDecl) Storage {
	off, ok := ac.memberOffsets[m.Name]
	if !ok {
		panic(fmt.Sprintf("scope: %q has no bound storage for member %q", ac.desc.Name, m.Name))
	}
	return Storage{region: ac.region(), offset: off, decl: m, owner: ac}
}

// GhostInto pushes a ghost entry making name resolve into origin's
// scope from ac, without altering ac's lexical parent chain. Used when
// invoking a function (and when dispatching a response-map message) to
// expose the parameter frame's identifiers to the body scope. The name
// being introduced is checked against every other name already visible
// from ac — earlier ghost entries, ac's own declarations, and the
// whole parent chain — and a collision is fatal.
func (ac *ActivatedScope) GhostInto(name string, origin *ActivatedScope) {
	if ac.ghostCollides(name) {
		panic(&DuplicateIdentifierError{Name: name, Scope: ac.desc.Name})
	}
	ac.ghosts.Add(ghostEntry{name: name, origin: origin})
}

// ghostCollides reports whether introducing name as a ghost on ac
// would shadow an identifier already visible from ac: a prior ghost
// entry, a declaration in ac's own description chain, or anything the
// runtime parent chain (including its ghosts) resolves.
func (ac *ActivatedScope) ghostCollides(name string) bool {
	for i := ac.ghosts.Size() - 1; i >= 0; i-- {
		v, _ := ac.ghosts.Get(i)
		if v.(ghostEntry).name == name {
			return true
		}
	}
	for s := ac.desc; s != nil; s = s.Parent {
		if s.declaredHere(name) {
			return true
		}
	}
	if ac.parent != nil {
		return ac.parent.ghostCollides(name)
	}
	return false
}

// GhostScopeInto maps every identifier src introduces — members,
// nested functions, constants, response maps — into target's ghost
// set, so a body scope sees its parameter frame without that frame
// appearing in the lexical parent chain. Callers bracket it with
// GhostMark/UnGhost so recursion never aliases an outer invocation's
// frame.
func (src *ActivatedScope) GhostScopeInto(target *ActivatedScope) {
	for _, m := range src.desc.Members {
		target.GhostInto(m.Name, src)
	}
	for name := range src.desc.NestedFunctions {
		target.GhostInto(name, src)
	}
	for name := range src.desc.Constants {
		target.GhostInto(name, src)
	}
	for name := range src.desc.ResponseMaps {
		target.GhostInto(name, src)
	}
}

// GhostMark returns the current ghost-stack depth, to be passed to
// UnGhost for symmetric teardown.
func (ac *ActivatedScope) GhostMark() int { return ac.ghosts.Size() }

// UnGhost pops ghost entries back down to mark (LIFO), called when an
// invocation returns.
func (ac *ActivatedScope) UnGhost(mark int) {
	for ac.ghosts.Size() > mark {
		ac.ghosts.Remove(ac.ghosts.Size() - 1)
	}
}

// resolveGhost searches the ghost stack most-recent-first.
func (ac *ActivatedScope) resolveGhost(name string) (*ActivatedScope, bool) {
	for i := ac.ghosts.Size() - 1; i >= 0; i-- {
		v, _ := ac.ghosts.Get(i)
		ge := v.(ghostEntry)
		if ge.name == name {
			return ge.origin, true
		}
	}
	return nil, false
}

// ResolveVariable finds the member named name, consulting ghosts first,
// then this scope's own members, then the lexical parent chain.
func (ac *ActivatedScope) ResolveVariable(name string) (Storage, error) {
	if origin, ok := ac.resolveGhost(name); ok {
		return origin.ResolveVariable(name)
	}
	if m, ok := ac.desc.Member(name); ok {
		return ac.storageFor(m), nil
	}
	if ac.parent != nil {
		return ac.parent.ResolveVariable(name)
	}
	return Storage{}, &UnresolvedIdentifierError{Name: name}
}

// ResolveFunction finds a function value bound to name: a
// RoleFunctionValue/RoleFunctionSignature variable, a nested function
// definition, or a function-valued constant, in that search order
// across ghosts, this scope, and ancestors.
func (ac *ActivatedScope) ResolveFunction(name string) (types.FunctionValue, error) {
	if origin, ok := ac.resolveGhost(name); ok {
		return origin.ResolveFunction(name)
	}
	if m, ok := ac.desc.Member(name); ok && (m.Role == RoleFunctionValue || m.Role == RoleFunctionSignature) {
		fn := ac.fnValues[sideKey(ac.region(), ac.memberOffsets[name])]
		if fn != nil {
			return fn, nil
		}
	}
	if fn, ok := ac.desc.NestedFunctions[name]; ok {
		return fn, nil
	}
	if c, ok := ac.desc.Constants[name]; ok && c.Kind() == types.Function {
		return c.Function(), nil
	}
	if ac.parent != nil {
		return ac.parent.ResolveFunction(name)
	}
	return nil, &UnresolvedIdentifierError{Name: name}
}

// ResolveResponseMap finds a named response map, walking ghosts then
// ancestors.
func (ac *ActivatedScope) ResolveResponseMap(name string) (*ResponseMapDef, error) {
	if origin, ok := ac.resolveGhost(name); ok {
		return origin.ResolveResponseMap(name)
	}
	if rm, ok := ac.desc.ResponseMaps[name]; ok {
		return rm, nil
	}
	if ac.parent != nil {
		return ac.parent.ResolveResponseMap(name)
	}
	return nil, &UnresolvedIdentifierError{Name: name}
}

// UnresolvedIdentifierError reports a name that could not be found in
// the ghost set, the scope itself, or any ancestor.
type UnresolvedIdentifierError struct{ Name string }

func (e *UnresolvedIdentifierError) Error() string {
	return fmt.Sprintf("unresolved identifier %q", e.Name)
}

// FutureFor returns the Future object bound to a future-declared
// member, for the spawning operation to Complete once its computation
// finishes.
func (ac *ActivatedScope) FutureFor(name string) (*Future, bool) {
	m, ok := ac.desc.Member(name)
	if !ok || !m.IsFuture {
		return nil, false
	}
	fut, ok := ac.futures[sideKey(ac.region(), ac.memberOffsets[name])]
	return fut, ok
}

// BindFuture attaches fut to a future-declared variable member, to be
// consulted transparently on every subsequent read.
func (ac *ActivatedScope) BindFuture(name string, fut *Future) {
	m, ok := ac.desc.Member(name)
	if !ok || !m.IsFuture {
		panic(fmt.Sprintf("scope: BindFuture(%q): not a future-declared member", name))
	}
	ac.futures[sideKey(ac.region(), ac.memberOffsets[name])] = fut
}

// BindToStack binds a reference or function-value parameter member of
// ac to the given source storage/function, used when a function
// invocation sets up its parameter scope.
func (ac *ActivatedScope) BindToStack(name string, source Storage) {
	m, ok := ac.desc.Member(name)
	if !ok || m.Role != RoleReference {
		panic(fmt.Sprintf("scope: BindToStack(%q): not a reference member", name))
	}
	ac.storageFor(m).BindReference(source)
}

// BindFunctionParam binds a function-typed or function-signature
// parameter member to a concrete FunctionValue.
func (ac *ActivatedScope) BindFunctionParam(name string, fn types.FunctionValue) {
	m, ok := ac.desc.Member(name)
	if !ok || (m.Role != RoleFunctionValue && m.Role != RoleFunctionSignature) {
		panic(fmt.Sprintf("scope: BindFunctionParam(%q): not a function-typed member", name))
	}
	ac.fnValues[sideKey(ac.region(), ac.memberOffsets[name])] = fn
}

// PopVariableOffStack reads back and removes the topmost stack-bound
// variable member of ac — used by Push operations that build a
// composite value by assembling its members on the stack in reverse
// order, then collapsing them into a single RValue.
func (ac *ActivatedScope) PopVariableOffStack(name string, tuples, records *types.Registry) types.RValue {
	m, ok := ac.desc.Member(name)
	if !ok {
		panic(fmt.Sprintf("scope: PopVariableOffStack(%q): no such member", name))
	}
	st := ac.storageFor(m)
	return st.ReadRValue(tuples, records)
}

// Read/Write convenience wrappers bound to this scope's pools, so tree
// operations do not need to thread registries through every call.
func (ac *ActivatedScope) Read(name string, tuples, records *types.Registry) (types.RValue, error) {
	st, err := ac.ResolveVariable(name)
	if err != nil {
		return types.RValue{}, err
	}
	return st.ReadRValue(tuples, records), nil
}

func (ac *ActivatedScope) Write(name string, v types.RValue, tuples, records *types.Registry) error {
	st, err := ac.ResolveVariable(name)
	if err != nil {
		return err
	}
	st.WriteRValue(v, tuples, records)
	return nil
}

// TaskOrigin returns the TaskHandle RValue of the task that spawned
// this scope's task, or NullValue at the
// root.
func (ac *ActivatedScope) TaskOrigin() types.RValue { return ac.taskOrigin }

// SetTaskOrigin stamps the spawning task handle on a freshly entered
// task-root scope.
func (ac *ActivatedScope) SetTaskOrigin(v types.RValue) { ac.taskOrigin = v }

// LastMessageOrigin returns the TaskHandle RValue of the sender of the
// most recently accepted message.
func (ac *ActivatedScope) LastMessageOrigin() types.RValue { return ac.lastMessageOrigin }

// SetLastMessageOrigin records the sender of a just-accepted message.
func (ac *ActivatedScope) SetLastMessageOrigin(v types.RValue) { ac.lastMessageOrigin = v }

// Strings, Buffers, Arrays expose the pools this scope was activated
// with, for operations (string concatenation, array construction) that
// need to allocate directly.
func (ac *ActivatedScope) Strings() *types.StringPool { return ac.strings }
func (ac *ActivatedScope) Buffers() *types.BufferPool { return ac.buffers }
func (ac *ActivatedScope) Arrays() *types.ArrayPool   { return ac.arrays }

// Parent returns the lexical parent scope, or nil at the root.
func (ac *ActivatedScope) Parent() *ActivatedScope { return ac.parent }

// Description returns the template this scope was activated from.
func (ac *ActivatedScope) Description() *ScopeDescription { return ac.desc }

// Dump renders a human-readable snapshot of this scope's bound
// variables, for debug tooling. It returns plain strings; the vmrepl
// command prints them line by line rather than this package
// depending on a presentation library directly.
func (ac *ActivatedScope) Dump(tuples, records *types.Registry) []string {
	lines := make([]string, 0, len(ac.desc.Members))
	for _, m := range ac.desc.Members {
		if m.Role != RoleVariable {
			lines = append(lines, fmt.Sprintf("%s: <%s, unread>", m.Name, m.Role))
			continue
		}
		v := ac.storageFor(m).ReadRValue(tuples, records)
		lines = append(lines, fmt.Sprintf("%s = %s", m.Name, v.String()))
	}
	return lines
}
