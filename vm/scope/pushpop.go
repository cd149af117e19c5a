package scope

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/fuguevm/fuguevm/vm/types"
)

// PushRValue encodes v onto stack using the declared type-to-stack
// encoding:
// fixed-size primitives inline, strings/buffers/arrays as 32-bit
// handles, composites as their members in reverse declared order
// followed by the word-sized type-ID header. Returns the total number
// of bytes pushed, which a matching Pop must release.
//
// An Array RValue without a backing pool handle is assigned one first,
// exactly as variable assignment does.
func PushRValue(stack *ValueStack, v types.RValue, tuples, records *types.Registry, pools Pools) int {
	switch v.Kind() {
	case types.Null:
		return 0
	case types.Tuple:
		return pushComposite(stack, v, tuples, tuples, records, pools)
	case types.Record:
		return pushComposite(stack, v, records, tuples, records, pools)
	case types.Array:
		h := v.ArrayHandle()
		if h == types.InvalidHandle {
			h = pools.Arrays.Add(v.ArrayElementKind(), v.ArrayElements())
		}
		return pushUint32(stack, uint32(h))
	case types.Integer, types.TaskHandle:
		return pushUint32(stack, uint32(v.Int()))
	case types.Integer16:
		off := stack.Push(2)
		binary.LittleEndian.PutUint16(stack.Bytes(off, 2), uint16(int16(v.Int())))
		return 2
	case types.Real:
		return pushUint32(stack, math.Float32bits(v.Real()))
	case types.Boolean:
		off := stack.Push(1)
		b := stack.Bytes(off, 1)
		if v.Bool() {
			b[0] = 1
		} else {
			b[0] = 0
		}
		return 1
	case types.String:
		return pushUint32(stack, uint32(v.StringHandle()))
	case types.Buffer:
		return pushUint32(stack, uint32(v.BufferHandle()))
	case types.Address:
		off := stack.Push(8)
		binary.LittleEndian.PutUint64(stack.Bytes(off, 8), v.Address())
		return 8
	default:
		panic(fmt.Sprintf("scope: cannot push value of kind %s onto the raw stack", v.Kind()))
	}
}

func pushUint32(stack *ValueStack, u uint32) int {
	off := stack.Push(4)
	binary.LittleEndian.PutUint32(stack.Bytes(off, 4), u)
	return 4
}

func pushComposite(stack *ValueStack, v types.RValue, registry, tuples, records *types.Registry, pools Pools) int {
	desc, ok := registry.Lookup(v.TypeID())
	if !ok {
		panic(fmt.Sprintf("scope: push of composite with unregistered type id %d", v.TypeID()))
	}
	total := 0
	for i := len(desc.Members) - 1; i >= 0; i-- {
		mv, ok := v.Member(desc.Members[i].Name)
		if !ok {
			panic(fmt.Sprintf("scope: push of composite missing member %q", desc.Members[i].Name))
		}
		total += PushRValue(stack, mv, tuples, records, pools)
	}
	off := stack.Push(8)
	binary.LittleEndian.PutUint64(stack.Bytes(off, 8), uint64(v.TypeID()))
	return total + 8
}
