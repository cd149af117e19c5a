package scope

import (
	"github.com/fuguevm/fuguevm/vm/types"
)

// ReturnMemberSpecs extracts the named (member-name, member-type) pairs
// of a function's return-values scope, in declared order, for
// effective-tuple resolution.
func (d *ScopeDescription) ReturnMemberSpecs() []types.MemberSpec {
	members := make([]types.MemberSpec, 0, len(d.Members))
	for _, m := range d.Members {
		if m.Role != RoleVariable {
			continue
		}
		members = append(members, types.MemberSpec{
			Name:        m.Name,
			Kind:        m.Kind,
			TupleID:     m.TupleID,
			RecordID:    m.RecordID,
			IsArray:     m.IsArray,
			ElementKind: m.ElementKind,
		})
	}
	return members
}

// EffectiveTupleID resolves the registered tuple type that packages a
// function's multiple return values as a single composite: returnScope
// is the
// function's return-values scope, whose declared member names become
// the tuple's field names (so a caller can read `.a`/`.b` off the
// result exactly as if it had been declared as an ordinary tuple
// variable). The loader is responsible for having registered the
// matching tuple type in advance (every call-site/return-shape
// combination is known statically); a miss here is therefore an
// internal error, not a user-facing one.
func EffectiveTupleID(returnScope *ScopeDescription, tuples *types.Registry) (types.TypeID, bool) {
	return tuples.FindMatching(returnScope.ReturnMemberSpecs())
}
