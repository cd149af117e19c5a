package scope

import (
	"fmt"

	"github.com/fuguevm/fuguevm/vm/types"
)

// externalRegion adapts a caller-supplied byte slice to the backing
// interface so Storage's decoders can read straight out of it.
type externalRegion []byte

func (r externalRegion) Bytes(offset, n int) []byte {
	if offset < 0 || offset+n > len(r) {
		panic(fmt.Sprintf("scope: external region [%d,%d) out of bounds (len=%d)", offset, offset+n, len(r)))
	}
	return r[offset : offset+n]
}

// ReadExternalParams decodes a function's positional arguments from a
// caller-supplied memory region laid out in reverse declared order, so
// the region matches the host ABI's argument order. The returned slice
// is in declared order, ready to hand to Function.Call.
//
// Only plain variable members can cross this boundary: a by-reference
// or function-typed parameter has no raw-byte representation a native
// caller could have produced, and is rejected.
func ReadExternalParams(desc *ScopeDescription, region []byte, tuples, records *types.Registry, pools Pools) ([]types.RValue, error) {
	owner := &ActivatedScope{
		desc:          desc,
		memberOffsets: make(map[string]int),
		refTargets:    make(map[[2]interface{}]Storage),
		fnValues:      make(map[[2]interface{}]types.FunctionValue),
		futures:       make(map[[2]interface{}]*Future),
		strings:       pools.Strings,
		buffers:       pools.Buffers,
		arrays:        pools.Arrays,
		taskOrigin:    types.NullValue,
	}
	backing := externalRegion(region)
	values := make([]types.RValue, len(desc.Members))
	offset := 0
	for i := len(desc.Members) - 1; i >= 0; i-- {
		m := desc.Members[i]
		if m.Role != RoleVariable {
			return nil, fmt.Errorf("scope: external invocation cannot bind %s parameter %q", m.Role, m.Name)
		}
		sz := m.storageSize(tuples, records)
		if offset+sz > len(region) {
			return nil, fmt.Errorf("scope: external region too small for parameter %q (need %d more bytes, %d left)",
				m.Name, sz, len(region)-offset)
		}
		st := Storage{region: backing, offset: offset, decl: m, owner: owner}
		values[i] = st.ReadRValue(tuples, records)
		offset += sz
	}
	return values, nil
}
