/*
Package scope implements the lexical-scope model (ScopeDescription,
ActivatedScope, ghost linkages) together with the explicit value-stack
and heap-frame storage disciplines that back local variables.

A scope exists twice: as an immutable ScopeDescription built at load
time (the template: declared members, side tables, parent link) and as
an ActivatedScope created on every entry (the live binding of those
members to a stack or heap-frame region). Ghost sets make a caller's
parameter and return frames visible inside an invoked function's body
without splicing them into the lexical parent chain.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package scope

import (
	"fmt"

	"github.com/npillmayer/schuko/tracing"

	"github.com/fuguevm/fuguevm/internal/vmtrace"
	"github.com/fuguevm/fuguevm/vm/types"
)

func tracer() tracing.Trace {
	return vmtrace.Select(vmtrace.KeyScope)
}

// Role distinguishes how a declared scope member is bound.
type Role int

const (
	RoleVariable Role = iota
	RoleReference
	RoleFunctionValue     // a variable slot whose value is a bound function
	RoleFunctionSignature // a first-class function-signature parameter slot
)

func (r Role) String() string {
	switch r {
	case RoleVariable:
		return "variable"
	case RoleReference:
		return "reference"
	case RoleFunctionValue:
		return "function-value"
	case RoleFunctionSignature:
		return "function-signature"
	default:
		return "role(?)"
	}
}

// MemberDecl is one declared member of a scope. Variables, references,
// function-typed parameters, and first-class function-signature slots
// all live in this single ordering, which is the declared order used
// both for name resolution and for stack binding.
type MemberDecl struct {
	Name        string
	Role        Role
	Kind        types.Kind
	IsArray     bool
	ElementKind types.Kind
	TupleID     types.TypeID
	RecordID    types.TypeID
	Signature   *types.FunctionSignature // valid iff Role is FunctionValue/FunctionSignature
	IsFuture    bool                     // Role == RoleVariable and the slot resolves transparently through a Future on read
}

// storageSize returns the number of bytes this member occupies inline
// when bound to the stack or a heap frame (a reference or a function
// binding is always pointer/handle sized regardless of the kind it
// refers to).
func (m MemberDecl) storageSize(tuples, records *types.Registry) int {
	if m.Role == RoleReference || m.Role == RoleFunctionValue || m.Role == RoleFunctionSignature {
		return types.Function.StorageSize()
	}
	if m.IsArray {
		return types.Array.StorageSize()
	}
	switch m.Kind {
	case types.Tuple:
		d, ok := tuples.Lookup(m.TupleID)
		if !ok {
			panic(fmt.Sprintf("scope: member %q references unregistered tuple id %d", m.Name, m.TupleID))
		}
		return d.Size
	case types.Record:
		d, ok := records.Lookup(m.RecordID)
		if !ok {
			panic(fmt.Sprintf("scope: member %q references unregistered record id %d", m.Name, m.RecordID))
		}
		return d.Size
	default:
		return m.Kind.StorageSize()
	}
}

// ResponseMapEntry is one (message-name, payload-type-list, body,
// parameter-scope) tuple of a response map.
type ResponseMapEntry struct {
	MessageName  string
	PayloadTypes []MemberDecl // payload shape, reusing MemberDecl for per-field kind/array/tuple hints
	Body         Executable
	ParamScope   *ScopeDescription
}

// ResponseMapDef is a named, scope-declared set of message patterns.
type ResponseMapDef struct {
	Name    string
	Entries []ResponseMapEntry
}

// Executable is implemented by tree.Block. It is declared here (rather
// than scope importing package tree) so that a ResponseMapEntry can
// hold a runnable body without creating an import cycle:
// package tree depends on package scope, never the reverse.
type Executable interface {
	RunBlock(ec *ExecutionContext) FlowResult
}

// Evaluable is implemented by a single tree.Operation that produces a
// value; used to back a Future's unevaluated computation.
type Evaluable interface {
	EvalRValue(ec *ExecutionContext) types.RValue
}

// ScopeDescription is the immutable lexical-scope template created
// during load. Once execution begins no description may be mutated;
// Freeze enforces this with a panic on further mutation attempts
// rather than requiring every call site to thread an error return
// through scope construction (a load-time programmer error, not a
// runtime user error).
type ScopeDescription struct {
	Name    string
	Parent  *ScopeDescription
	Members []MemberDecl

	TupleHints  map[string]types.TypeID
	RecordHints map[string]types.TypeID

	// FunctionBindings records, for every identifier in this scope
	// that is function-typed (whether a RoleFunctionValue member, a
	// nested function definition, or a function-valued constant), its
	// signature — so resolution (e.g. InvokeIndirect's return-type/
	// arity reporting) never has to read back an RValue to learn a
	// callee's shape, even when the scope registered it as a
	// variable-bound function value.
	FunctionBindings map[string]*types.FunctionSignature

	// NestedFunctions holds function definitions declared within this
	// scope and resolvable by name without a stack slot.
	NestedFunctions map[string]types.FunctionValue

	ResponseMaps map[string]*ResponseMapDef
	Constants    map[string]types.RValue

	frozen bool
}

// NewScopeDescription creates an empty, mutable scope description.
func NewScopeDescription(name string, parent *ScopeDescription) *ScopeDescription {
	return &ScopeDescription{
		Name:             name,
		Parent:           parent,
		TupleHints:       make(map[string]types.TypeID),
		RecordHints:      make(map[string]types.TypeID),
		FunctionBindings: make(map[string]*types.FunctionSignature),
		NestedFunctions:  make(map[string]types.FunctionValue),
		ResponseMaps:     make(map[string]*ResponseMapDef),
		Constants:        make(map[string]types.RValue),
	}
}

// Freeze marks the description immutable; called once by the loader
// right before execution starts.
func (d *ScopeDescription) Freeze() { d.frozen = true }

func (d *ScopeDescription) checkMutable(what string) {
	if d.frozen {
		panic(fmt.Sprintf("scope: cannot %s on frozen description %q", what, d.Name))
	}
}

// declaredHere reports whether name is already introduced anywhere in this
// scope (any name-introducing table), without looking at parents.
func (d *ScopeDescription) declaredHere(name string) bool {
	for _, m := range d.Members {
		if m.Name == name {
			return true
		}
	}
	if _, ok := d.NestedFunctions[name]; ok {
		return true
	}
	if _, ok := d.ResponseMaps[name]; ok {
		return true
	}
	if _, ok := d.Constants[name]; ok {
		return true
	}
	if _, ok := d.TupleHints[name]; ok {
		return true
	}
	if _, ok := d.RecordHints[name]; ok {
		return true
	}
	return false
}

// checkDuplicate implements the description-side half of the
// duplicate-identifier discipline: checked recursively across parent
// descriptions at build time. Collisions across frames that only meet
// at runtime — a parameter frame ghosted into a body scope whose
// description declares the same name — are caught by
// ActivatedScope.GhostInto, since ghost sets do not exist until a
// function is invoked or a message is dispatched.
func (d *ScopeDescription) checkDuplicate(name string) error {
	for s := d; s != nil; s = s.Parent {
		if s.declaredHere(name) {
			return &DuplicateIdentifierError{Name: name, Scope: s.Name}
		}
	}
	return nil
}

// DuplicateIdentifierError reports a name collision detected during
// scope setup.
type DuplicateIdentifierError struct {
	Name  string
	Scope string
}

func (e *DuplicateIdentifierError) Error() string {
	return fmt.Sprintf("duplicate identifier %q (collides with a declaration visible from scope %q)", e.Name, e.Scope)
}

// AddVariable declares a plain variable member.
func (d *ScopeDescription) AddVariable(name string, kind types.Kind) error {
	return d.addMember(MemberDecl{Name: name, Role: RoleVariable, Kind: kind})
}

// AddArrayVariable declares an array-typed variable member.
func (d *ScopeDescription) AddArrayVariable(name string, elemKind types.Kind) error {
	return d.addMember(MemberDecl{Name: name, Role: RoleVariable, Kind: types.Array, IsArray: true, ElementKind: elemKind})
}

// AddTupleVariable declares a tuple-typed variable member.
func (d *ScopeDescription) AddTupleVariable(name string, id types.TypeID) error {
	if err := d.addMember(MemberDecl{Name: name, Role: RoleVariable, Kind: types.Tuple, TupleID: id}); err != nil {
		return err
	}
	d.TupleHints[name] = id
	return nil
}

// AddRecordVariable declares a record-typed variable member.
func (d *ScopeDescription) AddRecordVariable(name string, id types.TypeID) error {
	if err := d.addMember(MemberDecl{Name: name, Role: RoleVariable, Kind: types.Record, RecordID: id}); err != nil {
		return err
	}
	d.RecordHints[name] = id
	return nil
}

// AddFutureVariable declares a variable member whose value resolves
// through a Future: the first read blocks until the future completes,
// then returns a clone of its result.
func (d *ScopeDescription) AddFutureVariable(name string, kind types.Kind) error {
	return d.addMember(MemberDecl{Name: name, Role: RoleVariable, Kind: kind, IsFuture: true})
}

// AddReference declares a by-reference parameter member.
func (d *ScopeDescription) AddReference(name string, kind types.Kind) error {
	return d.addMember(MemberDecl{Name: name, Role: RoleReference, Kind: kind})
}

// AddFunctionValue declares a member whose value is a bound
// function.
func (d *ScopeDescription) AddFunctionValue(name string, sig *types.FunctionSignature) error {
	if err := d.addMember(MemberDecl{Name: name, Role: RoleFunctionValue, Kind: types.Function, Signature: sig}); err != nil {
		return err
	}
	d.FunctionBindings[name] = sig
	return nil
}

// AddFunctionSignatureSlot declares a first-class function-signature
// parameter slot.
func (d *ScopeDescription) AddFunctionSignatureSlot(name string, sig *types.FunctionSignature) error {
	if err := d.addMember(MemberDecl{Name: name, Role: RoleFunctionSignature, Kind: types.Function, Signature: sig}); err != nil {
		return err
	}
	d.FunctionBindings[name] = sig
	return nil
}

func (d *ScopeDescription) addMember(m MemberDecl) error {
	d.checkMutable("add member")
	if err := d.checkDuplicate(m.Name); err != nil {
		return err
	}
	d.Members = append(d.Members, m)
	tracer().Debugf("scope %q: declared %s %q", d.Name, m.Role, m.Name)
	return nil
}

// AddNestedFunction registers a nested function definition, resolvable
// by name without a stack slot.
func (d *ScopeDescription) AddNestedFunction(name string, fn types.FunctionValue) error {
	d.checkMutable("add nested function")
	if err := d.checkDuplicate(name); err != nil {
		return err
	}
	d.NestedFunctions[name] = fn
	d.FunctionBindings[name] = fn.Signature()
	return nil
}

// AddResponseMap registers a named response map.
func (d *ScopeDescription) AddResponseMap(rm *ResponseMapDef) error {
	d.checkMutable("add response map")
	if err := d.checkDuplicate(rm.Name); err != nil {
		return err
	}
	d.ResponseMaps[rm.Name] = rm
	return nil
}

// AddConstant registers a named constant value.
func (d *ScopeDescription) AddConstant(name string, v types.RValue) error {
	d.checkMutable("add constant")
	if err := d.checkDuplicate(name); err != nil {
		return err
	}
	d.Constants[name] = v
	return nil
}

// Member looks up a declared member by name in this description only
// (no parent walk); used by stack-binding code that already knows
// which description it is binding against.
func (d *ScopeDescription) Member(name string) (MemberDecl, bool) {
	for _, m := range d.Members {
		if m.Name == name {
			return m, true
		}
	}
	return MemberDecl{}, false
}

// TotalStackSize returns the number of bytes `enter` must reserve for
// every non-reference, non-function-signature variable member, in
// declared order.
func (d *ScopeDescription) TotalStackSize(tuples, records *types.Registry) int {
	total := 0
	for _, m := range d.Members {
		if m.Role != RoleVariable {
			continue
		}
		total += m.storageSize(tuples, records)
	}
	return total
}
