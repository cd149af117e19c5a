package types

import (
	"bytes"
	"fmt"
)

// FunctionValue is a bound function pointer as it is carried inside an
// RValue or a Function-kind stack slot. The concrete implementation
// (an invocable operation-tree function) lives in package tree, which
// depends on types; types must not depend back on tree, so the
// invocation mechanism itself is abstracted behind this interface.
type FunctionValue interface {
	Signature() *FunctionSignature
	Identity() string // stable name/token for equality and debug printing
}

// Member is one named field of a Tuple or Record RValue, in declared
// order.
type Member struct {
	Name  string
	Value RValue
}

// RValue is a tagged value used as a transport between operations when
// data temporarily leaves stack storage: a Kind tag plus the one
// payload field that Kind selects.
type RValue struct {
	kind Kind

	i32 int32   // Integer, Integer16 (sign-extended), Boolean (0/1), TaskHandle (as int32)
	f32 float32 // Real

	strHandle Handle // String
	bufHandle Handle // Buffer

	arrElemKind Kind
	arrElems    []RValue // Array elements, always populated
	arrHandle   Handle   // Array: backing handle once the value has escaped to a variable; InvalidHandle until then

	typeID  TypeID
	members []Member // Tuple / Record, in declared order

	addr uint64 // Address: raw pointer-sized value opaque to this package

	fn FunctionValue // Function
}

// NullValue is the canonical Null RValue.
var NullValue = RValue{kind: Null}

// NewInteger builds an Integer RValue.
func NewInteger(v int32) RValue { return RValue{kind: Integer, i32: v} }

// NewInteger16 builds an Integer16 RValue.
func NewInteger16(v int16) RValue { return RValue{kind: Integer16, i32: int32(v)} }

// NewReal builds a Real RValue.
func NewReal(v float32) RValue { return RValue{kind: Real, f32: v} }

// NewBoolean builds a Boolean RValue.
func NewBoolean(v bool) RValue {
	var i int32
	if v {
		i = 1
	}
	return RValue{kind: Boolean, i32: i}
}

// NewString builds a String RValue from an interned-pool handle.
func NewString(h Handle) RValue { return RValue{kind: String, strHandle: h} }

// NewBuffer builds a Buffer RValue from a buffer-pool handle.
func NewBuffer(h Handle) RValue { return RValue{kind: Buffer, bufHandle: h} }

// NewTaskHandle builds a TaskHandle RValue.
func NewTaskHandle(v int32) RValue { return RValue{kind: TaskHandle, i32: v} }

// NewAddress builds an Address RValue (raw pointer for member-reference binding).
func NewAddress(v uint64) RValue { return RValue{kind: Address, addr: v} }

// NewFunction builds a Function RValue bound to fn.
func NewFunction(fn FunctionValue) RValue { return RValue{kind: Function, fn: fn} }

// NewArray builds an Array RValue from a slice of elements of a
// uniform element kind. No backing handle is allocated yet; one is
// created lazily by EnsureArrayHandle when the value escapes via
// variable assignment.
func NewArray(elemKind Kind, elems []RValue) RValue {
	return RValue{kind: Array, arrElemKind: elemKind, arrElems: elems}
}

// NewArrayHandle builds an Array RValue that already carries a backing
// pool handle (e.g. read back from a variable).
func NewArrayHandle(elemKind Kind, elems []RValue, h Handle) RValue {
	return RValue{kind: Array, arrElemKind: elemKind, arrElems: elems, arrHandle: h}
}

// NewTuple builds a Tuple RValue for the given registered type ID.
func NewTuple(id TypeID, members []Member) RValue {
	return RValue{kind: Tuple, typeID: id, members: members}
}

// NewRecord builds a Record RValue for the given registered type ID.
func NewRecord(id TypeID, members []Member) RValue {
	return RValue{kind: Record, typeID: id, members: members}
}

// Kind reports the RValue's tag.
func (v RValue) Kind() Kind { return v.kind }

// Int returns the Integer/Integer16/TaskHandle/Boolean payload.
func (v RValue) Int() int32 { return v.i32 }

// Bool returns the Boolean payload as a bool.
func (v RValue) Bool() bool { return v.i32 != 0 }

// Real returns the Real payload.
func (v RValue) Real() float32 { return v.f32 }

// StringHandle returns the interned-string handle.
func (v RValue) StringHandle() Handle { return v.strHandle }

// BufferHandle returns the buffer-pool handle.
func (v RValue) BufferHandle() Handle { return v.bufHandle }

// ArrayHandle returns the backing array-pool handle, or InvalidHandle
// if the array has not yet escaped to variable storage.
func (v RValue) ArrayHandle() Handle { return v.arrHandle }

// ArrayElementKind returns the element kind of an Array RValue.
func (v RValue) ArrayElementKind() Kind { return v.arrElemKind }

// ArrayElements returns the element slice of an Array RValue. Callers
// must not mutate the returned slice in place; RValue is meant to be
// used as if immutable once constructed.
func (v RValue) ArrayElements() []RValue { return v.arrElems }

// WithArrayHandle returns a copy of v with its backing handle set.
// Used when an Array RValue escapes via variable assignment.
func (v RValue) WithArrayHandle(h Handle) RValue {
	v.arrHandle = h
	return v
}

// TypeID returns the tuple/record type ID.
func (v RValue) TypeID() TypeID { return v.typeID }

// Members returns the ordered member list of a Tuple/Record RValue.
func (v RValue) Members() []Member { return v.members }

// Member looks up a named member by name, recursion-free (one level).
func (v RValue) Member(name string) (RValue, bool) {
	for _, m := range v.members {
		if m.Name == name {
			return m.Value, true
		}
	}
	return RValue{}, false
}

// Address returns the raw pointer-sized Address payload.
func (v RValue) Address() uint64 { return v.addr }

// Function returns the bound FunctionValue.
func (v RValue) Function() FunctionValue { return v.fn }

// Clone returns a deep copy of v. Futures hand out a Clone of their
// stored result to every reader,
// since multiple readers must not alias the same backing slices/maps.
func (v RValue) Clone() RValue {
	c := v
	if v.arrElems != nil {
		c.arrElems = make([]RValue, len(v.arrElems))
		for i, e := range v.arrElems {
			c.arrElems[i] = e.Clone()
		}
	}
	if v.members != nil {
		c.members = make([]Member, len(v.members))
		for i, m := range v.members {
			c.members[i] = Member{Name: m.Name, Value: m.Value.Clone()}
		}
	}
	return c
}

// Equal implements value-equality: primitives by value, tuples/records
// recursively by name, arrays element-wise.
func (v RValue) Equal(other RValue) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case Null:
		return true
	case Integer, Integer16, Boolean, TaskHandle:
		return v.i32 == other.i32
	case Real:
		return v.f32 == other.f32
	case String:
		return v.strHandle == other.strHandle
	case Buffer:
		return v.bufHandle == other.bufHandle
	case Function:
		return v.fn != nil && other.fn != nil && v.fn.Identity() == other.fn.Identity()
	case Address:
		return v.addr == other.addr
	case Array:
		if v.arrElemKind != other.arrElemKind || len(v.arrElems) != len(other.arrElems) {
			return false
		}
		for i := range v.arrElems {
			if !v.arrElems[i].Equal(other.arrElems[i]) {
				return false
			}
		}
		return true
	case Tuple, Record:
		if v.typeID != other.typeID || len(v.members) != len(other.members) {
			return false
		}
		for _, m := range v.members {
			om, ok := other.Member(m.Name)
			if !ok || !m.Value.Equal(om) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (v RValue) String() string {
	switch v.kind {
	case Null:
		return "null"
	case Integer:
		return fmt.Sprintf("%d", v.i32)
	case Integer16:
		return fmt.Sprintf("%d", int16(v.i32))
	case Real:
		return fmt.Sprintf("%g", v.f32)
	case Boolean:
		return fmt.Sprintf("%v", v.i32 != 0)
	case String:
		return fmt.Sprintf("<str#%d>", v.strHandle)
	case Buffer:
		return fmt.Sprintf("<buf#%d>", v.bufHandle)
	case Function:
		if v.fn == nil {
			return "<fn nil>"
		}
		return fmt.Sprintf("<fn %s>", v.fn.Identity())
	case Address:
		return fmt.Sprintf("<addr 0x%x>", v.addr)
	case TaskHandle:
		return fmt.Sprintf("<task#%d>", v.i32)
	case Array:
		var b bytes.Buffer
		b.WriteString("[")
		for i, e := range v.arrElems {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(e.String())
		}
		b.WriteString("]")
		return b.String()
	case Tuple, Record:
		var b bytes.Buffer
		b.WriteString("{")
		for i, m := range v.members {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%s", m.Name, m.Value.String())
		}
		b.WriteString("}")
		return b.String()
	default:
		return "<?>"
	}
}
