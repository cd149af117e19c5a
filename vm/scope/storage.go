package scope

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/fuguevm/fuguevm/vm/types"
)

// backing is satisfied by both ValueStack and HeapFrame: a byte region
// addressable by offset. Storage is written against this interface so
// the same encode/decode logic serves stack-bound and heap-bound
// variables alike.
type backing interface {
	Bytes(offset, n int) []byte
}

// Storage is a bound view onto one scope member's bytes: either a
// region of a ValueStack or of a HeapFrame, at a fixed offset, typed by
// the member's declaration.
//
// Function-valued and by-reference members cannot be packed into raw
// bytes without reflect/unsafe (an RValue's FunctionValue field, and a
// reference's target *Storage, are ordinary Go interface/pointer
// values, not POD data) — for those two roles scope entry reserves no
// bytes in the region (see TotalStackSize); the actual value lives in
// a side table on the owning ActivatedScope, keyed by this Storage's
// region+offset.
type Storage struct {
	region backing
	offset int
	decl   MemberDecl
	owner  *ActivatedScope
}

func sideKey(region backing, offset int) [2]interface{} {
	return [2]interface{}{region, offset}
}

// ReadRValue decodes the value currently held in this storage.
func (s Storage) ReadRValue(tuples, records *types.Registry) types.RValue {
	switch s.decl.Role {
	case RoleReference:
		target, ok := s.owner.refTargets[sideKey(s.region, s.offset)]
		if !ok {
			panic(fmt.Sprintf("scope: reference %q read before binding", s.decl.Name))
		}
		return target.ReadRValue(tuples, records)
	case RoleFunctionValue, RoleFunctionSignature:
		fn := s.owner.fnValues[sideKey(s.region, s.offset)]
		if fn == nil {
			return types.NullValue
		}
		return types.NewFunction(fn)
	}

	if s.decl.IsFuture {
		if fut, ok := s.owner.futures[sideKey(s.region, s.offset)]; ok {
			return fut.GetValue()
		}
		// Declared but not yet bound to a spawned computation: reads
		// before the spawning operation runs are a loader-level bug,
		// not a runtime condition callers should have to check for.
		panic(fmt.Sprintf("scope: future member %q read before binding", s.decl.Name))
	}

	if s.decl.IsArray {
		buf := s.region.Bytes(s.offset, 4)
		h := types.Handle(binary.LittleEndian.Uint32(buf))
		if h == types.InvalidHandle {
			return types.NewArray(s.decl.ElementKind, nil)
		}
		elemKind, elems, _ := s.owner.arrays.Get(h)
		return types.NewArrayHandle(elemKind, elems, h)
	}

	switch s.decl.Kind {
	case types.Integer:
		buf := s.region.Bytes(s.offset, 4)
		return types.NewInteger(int32(binary.LittleEndian.Uint32(buf)))
	case types.Integer16:
		buf := s.region.Bytes(s.offset, 2)
		return types.NewInteger16(int16(binary.LittleEndian.Uint16(buf)))
	case types.Real:
		buf := s.region.Bytes(s.offset, 4)
		return types.NewReal(math.Float32frombits(binary.LittleEndian.Uint32(buf)))
	case types.Boolean:
		buf := s.region.Bytes(s.offset, 1)
		return types.NewBoolean(buf[0] != 0)
	case types.String:
		buf := s.region.Bytes(s.offset, 4)
		return types.NewString(types.Handle(binary.LittleEndian.Uint32(buf)))
	case types.Buffer:
		buf := s.region.Bytes(s.offset, 4)
		return types.NewBuffer(types.Handle(binary.LittleEndian.Uint32(buf)))
	case types.TaskHandle:
		buf := s.region.Bytes(s.offset, 4)
		return types.NewTaskHandle(int32(binary.LittleEndian.Uint32(buf)))
	case types.Address:
		buf := s.region.Bytes(s.offset, 8)
		return types.NewAddress(binary.LittleEndian.Uint64(buf))
	case types.Tuple, types.Record:
		return s.readComposite(tuples, records)
	default:
		panic(fmt.Sprintf("scope: storage read: unhandled kind %s", s.decl.Kind))
	}
}

func (s Storage) readComposite(tuples, records *types.Registry) types.RValue {
	id := s.decl.TupleID
	registry := tuples
	if s.decl.Kind == types.Record {
		id = s.decl.RecordID
		registry = records
	}
	desc, ok := registry.Lookup(id)
	if !ok {
		panic(fmt.Sprintf("scope: storage read: unregistered composite type id %d", id))
	}
	members := make([]types.Member, len(desc.Members))
	for i, ms := range desc.Members {
		memberStorage := Storage{
			region: s.region,
			offset: s.offset + desc.Offsets[i],
			decl: MemberDecl{
				Name: ms.Name, Role: RoleVariable, Kind: ms.Kind,
				IsArray: ms.IsArray, ElementKind: ms.ElementKind,
				TupleID: ms.TupleID, RecordID: ms.RecordID,
			},
			owner: s.owner,
		}
		members[i] = types.Member{Name: ms.Name, Value: memberStorage.ReadRValue(tuples, records)}
	}
	if s.decl.Kind == types.Tuple {
		return types.NewTuple(id, members)
	}
	return types.NewRecord(id, members)
}

// WriteRValue encodes v into this storage. An Array RValue that has
// not yet escaped to a pool-backed handle is assigned a fresh one from
// the owning scope's array pool first.
func (s Storage) WriteRValue(v types.RValue, tuples, records *types.Registry) {
	switch s.decl.Role {
	case RoleReference:
		target, ok := s.owner.refTargets[sideKey(s.region, s.offset)]
		if !ok {
			panic(fmt.Sprintf("scope: reference %q written before binding", s.decl.Name))
		}
		target.WriteRValue(v, tuples, records)
		return
	case RoleFunctionValue, RoleFunctionSignature:
		s.owner.fnValues[sideKey(s.region, s.offset)] = v.Function()
		return
	}

	if s.decl.IsFuture {
		panic(fmt.Sprintf("scope: future member %q cannot be assigned directly, only completed by its spawning operation", s.decl.Name))
	}

	if s.decl.IsArray {
		h := v.ArrayHandle()
		if h == types.InvalidHandle {
			h = s.owner.arrays.Add(v.ArrayElementKind(), v.ArrayElements())
		} else {
			s.owner.arrays.Set(h, v.ArrayElements())
		}
		buf := s.region.Bytes(s.offset, 4)
		binary.LittleEndian.PutUint32(buf, uint32(h))
		return
	}

	switch s.decl.Kind {
	case types.Integer:
		buf := s.region.Bytes(s.offset, 4)
		binary.LittleEndian.PutUint32(buf, uint32(v.Int()))
	case types.Integer16:
		buf := s.region.Bytes(s.offset, 2)
		binary.LittleEndian.PutUint16(buf, uint16(int16(v.Int())))
	case types.Real:
		buf := s.region.Bytes(s.offset, 4)
		binary.LittleEndian.PutUint32(buf, math.Float32bits(v.Real()))
	case types.Boolean:
		buf := s.region.Bytes(s.offset, 1)
		if v.Bool() {
			buf[0] = 1
		} else {
			buf[0] = 0
		}
	case types.String:
		buf := s.region.Bytes(s.offset, 4)
		binary.LittleEndian.PutUint32(buf, uint32(v.StringHandle()))
	case types.Buffer:
		buf := s.region.Bytes(s.offset, 4)
		binary.LittleEndian.PutUint32(buf, uint32(v.BufferHandle()))
	case types.TaskHandle:
		buf := s.region.Bytes(s.offset, 4)
		binary.LittleEndian.PutUint32(buf, uint32(v.Int()))
	case types.Address:
		buf := s.region.Bytes(s.offset, 8)
		binary.LittleEndian.PutUint64(buf, v.Address())
	case types.Tuple, types.Record:
		s.writeComposite(v, tuples, records)
	default:
		panic(fmt.Sprintf("scope: storage write: unhandled kind %s", s.decl.Kind))
	}
}

func (s Storage) writeComposite(v types.RValue, tuples, records *types.Registry) {
	id := s.decl.TupleID
	registry := tuples
	if s.decl.Kind == types.Record {
		id = s.decl.RecordID
		registry = records
	}
	desc, ok := registry.Lookup(id)
	if !ok {
		panic(fmt.Sprintf("scope: storage write: unregistered composite type id %d", id))
	}
	for i, ms := range desc.Members {
		mv, ok := v.Member(ms.Name)
		if !ok {
			panic(fmt.Sprintf("scope: storage write: value missing member %q", ms.Name))
		}
		memberStorage := Storage{
			region: s.region,
			offset: s.offset + desc.Offsets[i],
			decl: MemberDecl{
				Name: ms.Name, Role: RoleVariable, Kind: ms.Kind,
				IsArray: ms.IsArray, ElementKind: ms.ElementKind,
				TupleID: ms.TupleID, RecordID: ms.RecordID,
			},
			owner: s.owner,
		}
		memberStorage.WriteRValue(mv, tuples, records)
	}
}

// BindReference points a reference member at another member's
// storage; a reference parameter binds to the caller's variable.
func (s Storage) BindReference(target Storage) {
	if s.decl.Role != RoleReference {
		panic(fmt.Sprintf("scope: BindReference called on non-reference member %q", s.decl.Name))
	}
	s.owner.refTargets[sideKey(s.region, s.offset)] = target
}
