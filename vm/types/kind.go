/*
Package types implements the VM's runtime type system: the closed set
of primitive value kinds, the tuple and record type registries, the
RValue transport representation, and the three handle pools (string,
buffer, array).

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package types

import "fmt"

// Kind is the closed set of primitive value kinds a stack slot or
// RValue may carry.
//
//go:generate stringer -type Kind
type Kind int8

const (
	Null Kind = iota
	Integer
	Integer16
	Real
	Boolean
	String
	Function
	Address
	TaskHandle
	Buffer
	Array
	Tuple
	Record
)

// wordSize is the size in bytes of a type-ID header and of a raw
// pointer used for function-value and address storage.
const wordSize = 8

// StorageSize returns the number of bytes a value of this kind
// occupies inline on the value stack or in a packed heap frame.
// Composite kinds (Tuple, Record) do not have a fixed size here; use
// the registered Descriptor's Size instead.
func (k Kind) StorageSize() int {
	switch k {
	case Null:
		return 0
	case Integer:
		return 4
	case Integer16:
		return 2
	case Real:
		return 4
	case Boolean:
		return 1
	case String, Buffer, Array, TaskHandle:
		return 4 // 32-bit handle
	case Function, Address:
		return wordSize
	case Tuple, Record:
		panic(fmt.Sprintf("types.Kind.StorageSize: %s has no fixed size, use the descriptor", k))
	default:
		panic(fmt.Sprintf("types.Kind.StorageSize: unhandled kind %d", k))
	}
}

// IsNumeric reports whether arithmetic operations are defined for k.
func (k Kind) IsNumeric() bool {
	return k == Integer || k == Integer16 || k == Real
}

// IsComposite reports whether k requires a registry lookup to resolve
// its member layout.
func (k Kind) IsComposite() bool {
	return k == Tuple || k == Record
}
