// Hand-maintained stringer output for Kind; regenerate with
// `stringer -type Kind` if the enum changes.

package types

import "strconv"

func (k Kind) String() string {
	switch k {
	case Null:
		return "Null"
	case Integer:
		return "Integer"
	case Integer16:
		return "Integer16"
	case Real:
		return "Real"
	case Boolean:
		return "Boolean"
	case String:
		return "String"
	case Function:
		return "Function"
	case Address:
		return "Address"
	case TaskHandle:
		return "TaskHandle"
	case Buffer:
		return "Buffer"
	case Array:
		return "Array"
	case Tuple:
		return "Tuple"
	case Record:
		return "Record"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}
