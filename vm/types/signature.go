package types

import (
	"bytes"
)

// ParamSpec is one parameter (or one return value) of a function
// signature: a primitive or composite kind, flags for reference/array
// passing, and type hints that disambiguate a composite kind.
type ParamSpec struct {
	Kind        Kind
	IsReference bool
	IsArray     bool
	TupleID     TypeID             // valid iff Kind == Tuple
	RecordID    TypeID             // valid iff Kind == Record
	ElementKind Kind               // valid iff IsArray
	Nested      *FunctionSignature // valid iff Kind == Function (a function-typed parameter)
}

// Equal reports whether two parameter specs match exactly: kind,
// flags, and every type hint, pairwise.
func (p ParamSpec) Equal(o ParamSpec) bool {
	if p.Kind != o.Kind || p.IsReference != o.IsReference || p.IsArray != o.IsArray {
		return false
	}
	switch {
	case p.Kind == Tuple:
		return p.TupleID == o.TupleID
	case p.Kind == Record:
		return p.RecordID == o.RecordID
	case p.IsArray:
		return p.ElementKind == o.ElementKind
	case p.Kind == Function:
		if p.Nested == nil || o.Nested == nil {
			return p.Nested == o.Nested
		}
		return p.Nested.Equal(*o.Nested)
	default:
		return true
	}
}

func (p ParamSpec) String() string {
	s := p.Kind.String()
	if p.IsArray {
		s = "[]" + p.ElementKind.String()
	}
	if p.IsReference {
		s = "ref " + s
	}
	return s
}

// FunctionSignature describes a function's ordered parameter and
// return types.
type FunctionSignature struct {
	Params  []ParamSpec
	Returns []ParamSpec
}

// Equal reports whether two signatures match: ordered parameter and
// return types, matched pairwise.
func (s FunctionSignature) Equal(o FunctionSignature) bool {
	if len(s.Params) != len(o.Params) || len(s.Returns) != len(o.Returns) {
		return false
	}
	for i := range s.Params {
		if !s.Params[i].Equal(o.Params[i]) {
			return false
		}
	}
	for i := range s.Returns {
		if !s.Returns[i].Equal(o.Returns[i]) {
			return false
		}
	}
	return true
}

func (s FunctionSignature) String() string {
	var b bytes.Buffer
	b.WriteString("(")
	for i, p := range s.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteString(") -> (")
	for i, r := range s.Returns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(r.String())
	}
	b.WriteString(")")
	return b.String()
}

// Arity returns the number of parameters the signature expects.
func (s FunctionSignature) Arity() int { return len(s.Params) }
