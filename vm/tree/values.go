package tree

import (
	"fmt"

	"github.com/fuguevm/fuguevm/vm/scope"
	"github.com/fuguevm/fuguevm/vm/types"
)

// Literal produces a fixed RValue.
type Literal struct {
	noValue
	zeroParams
	Value types.RValue
}

func (n *Literal) ExecuteFast(ec *scope.ExecutionContext)                  {}
func (n *Literal) ExecuteAndStore(ec *scope.ExecutionContext) types.RValue { return n.Value }
func (n *Literal) ReturnKind() types.Kind                                  { return n.Value.Kind() }

// ReadVariable resolves name against the current scope chain (ghosts,
// own members, lexical ancestors) and returns its current value,
// transparently resolving through a Future if the member was declared
// as one.
type ReadVariable struct {
	zeroParams
	Name string
	Kind types.Kind
}

func (n *ReadVariable) ReturnKind() types.Kind { return n.Kind }

func (n *ReadVariable) ExecuteFast(ec *scope.ExecutionContext) {
	n.ExecuteAndStore(ec)
}

func (n *ReadVariable) ExecuteAndStore(ec *scope.ExecutionContext) types.RValue {
	v, err := ec.Scope.Read(n.Name, ec.Prog.Tuples(), ec.Prog.Records())
	if err != nil {
		panic(fmt.Sprintf("tree: ReadVariable %q: %v", n.Name, err))
	}
	return v
}

// WriteVariable evaluates Value and assigns it to Name, resolved
// through the scope chain.
type WriteVariable struct {
	noValue
	zeroParams
	Name  string
	Value Operation
}

func (n *WriteVariable) ExecuteFast(ec *scope.ExecutionContext) {
	v := n.Value.ExecuteAndStore(ec)
	if err := ec.Scope.Write(n.Name, v, ec.Prog.Tuples(), ec.Prog.Records()); err != nil {
		panic(fmt.Sprintf("tree: WriteVariable %q: %v", n.Name, err))
	}
}

func (n *WriteVariable) ExecuteAndStore(ec *scope.ExecutionContext) types.RValue {
	n.ExecuteFast(ec)
	return types.NullValue
}

// BuildTuple assembles a Tuple RValue from its field operations in
// declared order. Reverse-order member layout only matters when a
// composite is bound to raw stack storage, which scope.Storage and
// scope.PushRValue handle internally.
type BuildTuple struct {
	zeroParams
	TypeID      types.TypeID
	FieldNames  []string
	FieldValues []Operation
}

func (n *BuildTuple) ReturnKind() types.Kind { return types.Tuple }

func (n *BuildTuple) ExecuteFast(ec *scope.ExecutionContext) { n.ExecuteAndStore(ec) }

func (n *BuildTuple) ExecuteAndStore(ec *scope.ExecutionContext) types.RValue {
	members := make([]types.Member, len(n.FieldNames))
	for i, name := range n.FieldNames {
		members[i] = types.Member{Name: name, Value: n.FieldValues[i].ExecuteAndStore(ec)}
	}
	return types.NewTuple(n.TypeID, members)
}

// BuildRecord is BuildTuple's Record-kind counterpart.
type BuildRecord struct {
	zeroParams
	TypeID      types.TypeID
	FieldNames  []string
	FieldValues []Operation
}

func (n *BuildRecord) ReturnKind() types.Kind { return types.Record }

func (n *BuildRecord) ExecuteFast(ec *scope.ExecutionContext) { n.ExecuteAndStore(ec) }

func (n *BuildRecord) ExecuteAndStore(ec *scope.ExecutionContext) types.RValue {
	members := make([]types.Member, len(n.FieldNames))
	for i, name := range n.FieldNames {
		members[i] = types.Member{Name: name, Value: n.FieldValues[i].ExecuteAndStore(ec)}
	}
	return types.NewRecord(n.TypeID, members)
}

// MemberAccess reads a single named member out of a Tuple/Record
// result.
type MemberAccess struct {
	zeroParams
	Source Operation
	Name   string
	Kind   types.Kind
}

func (n *MemberAccess) ReturnKind() types.Kind { return n.Kind }

func (n *MemberAccess) ExecuteFast(ec *scope.ExecutionContext) { n.ExecuteAndStore(ec) }

func (n *MemberAccess) ExecuteAndStore(ec *scope.ExecutionContext) types.RValue {
	v := n.Source.ExecuteAndStore(ec)
	m, ok := v.Member(n.Name)
	if !ok {
		panic(fmt.Sprintf("tree: MemberAccess: no member %q on %s", n.Name, v.String()))
	}
	return m
}

// BuildArray assembles an Array RValue, the "list constructor special
// case" of Push operations: unlike BuildTuple/
// BuildRecord, every element shares one Kind and the result carries no
// backing pool handle until it is assigned to a variable.
type BuildArray struct {
	zeroParams
	ElementKind types.Kind
	Elements    []Operation
}

func (n *BuildArray) ReturnKind() types.Kind { return types.Array }

func (n *BuildArray) ExecuteFast(ec *scope.ExecutionContext) { n.ExecuteAndStore(ec) }

func (n *BuildArray) ExecuteAndStore(ec *scope.ExecutionContext) types.RValue {
	elems := make([]types.RValue, len(n.Elements))
	for i, e := range n.Elements {
		elems[i] = e.ExecuteAndStore(ec)
	}
	return types.NewArray(n.ElementKind, elems)
}

// ArrayIndex reads element Index of Source.
type ArrayIndex struct {
	zeroParams
	Source Operation
	Index  Operation
}

func (n *ArrayIndex) ReturnKind() types.Kind { return types.Null } // element kind known only at runtime; callers consult the RValue

func (n *ArrayIndex) ExecuteFast(ec *scope.ExecutionContext) { n.ExecuteAndStore(ec) }

func (n *ArrayIndex) ExecuteAndStore(ec *scope.ExecutionContext) types.RValue {
	arr := n.Source.ExecuteAndStore(ec)
	idx := n.Index.ExecuteAndStore(ec).Int()
	elems := arr.ArrayElements()
	if idx < 0 || int(idx) >= len(elems) {
		panic(fmt.Sprintf("tree: ArrayIndex: index %d out of bounds (len=%d)", idx, len(elems)))
	}
	return elems[idx]
}

// ArrayLength returns the element count of Source.
type ArrayLength struct {
	zeroParams
	Source Operation
}

func (n *ArrayLength) ReturnKind() types.Kind { return types.Integer }

func (n *ArrayLength) ExecuteFast(ec *scope.ExecutionContext) { n.ExecuteAndStore(ec) }

func (n *ArrayLength) ExecuteAndStore(ec *scope.ExecutionContext) types.RValue {
	arr := n.Source.ExecuteAndStore(ec)
	return types.NewInteger(int32(len(arr.ArrayElements())))
}

// StringLength returns the character count of a String-kind RValue.
type StringLength struct {
	zeroParams
	Source Operation
}

func (n *StringLength) ReturnKind() types.Kind { return types.Integer }

func (n *StringLength) ExecuteFast(ec *scope.ExecutionContext) { n.ExecuteAndStore(ec) }

func (n *StringLength) ExecuteAndStore(ec *scope.ExecutionContext) types.RValue {
	v := n.Source.ExecuteAndStore(ec)
	s, ok := ec.Prog.Strings().Get(v.StringHandle())
	if !ok {
		panic(fmt.Sprintf("tree: StringLength: handle %d is not live", v.StringHandle()))
	}
	return types.NewInteger(int32(len(s)))
}

// DebugWrite writes a string to the host's debug-tagged output
// stream.
type DebugWrite struct {
	noValue
	zeroParams
	Value Operation
}

func (n *DebugWrite) ExecuteFast(ec *scope.ExecutionContext) {
	v := n.Value.ExecuteAndStore(ec)
	var s string
	if v.Kind() == types.String {
		s, _ = ec.Prog.Strings().Get(v.StringHandle())
	} else {
		s = v.String()
	}
	ec.Prog.WriteDebug(s)
}

func (n *DebugWrite) ExecuteAndStore(ec *scope.ExecutionContext) types.RValue {
	n.ExecuteFast(ec)
	return types.NullValue
}

// ReadLine reads a line from the host's interactive input, interning
// the result as a String RValue.
type ReadLine struct {
	zeroParams
}

func (n *ReadLine) ReturnKind() types.Kind { return types.String }

func (n *ReadLine) ExecuteFast(ec *scope.ExecutionContext) { n.ExecuteAndStore(ec) }

func (n *ReadLine) ExecuteAndStore(ec *scope.ExecutionContext) types.RValue {
	line, err := ec.Prog.ReadLine()
	if err != nil {
		line = ""
	}
	return types.NewString(ec.Prog.Strings().Intern(line))
}
