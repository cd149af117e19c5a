package types_test

import (
	"testing"

	"github.com/fuguevm/fuguevm/vm/types"
)

// TestRegistry_Idempotence: registering
// the same descriptor twice returns the same ID, and descriptors that
// differ in any member name or type get distinct IDs.
func TestRegistry_Idempotence(t *testing.T) {
	r := types.NewRegistry(types.Tuple, false)

	members := []types.MemberSpec{
		{Name: "a", Kind: types.Integer},
		{Name: "b", Kind: types.Integer},
	}
	id1 := r.Register(members)
	id2 := r.Register(members)
	if id1 != id2 {
		t.Fatalf("expected identical IDs for identical descriptors, got %d and %d", id1, id2)
	}

	renamed := []types.MemberSpec{
		{Name: "a", Kind: types.Integer},
		{Name: "c", Kind: types.Integer},
	}
	id3 := r.Register(renamed)
	if id3 == id1 {
		t.Fatalf("expected a distinct ID for a descriptor differing only in member name, got %d", id3)
	}

	retyped := []types.MemberSpec{
		{Name: "a", Kind: types.Integer},
		{Name: "b", Kind: types.Real},
	}
	id4 := r.Register(retyped)
	if id4 == id1 || id4 == id3 {
		t.Fatalf("expected a distinct ID for a descriptor differing only in member type, got %d", id4)
	}
}

// TestRegistry_FindMatching covers the lookup-only half of idempotence:
// FindMatching reports a hit for an already-registered shape and a miss
// for one that was never registered.
func TestRegistry_FindMatching(t *testing.T) {
	r := types.NewRegistry(types.Tuple, false)
	members := []types.MemberSpec{{Name: "a", Kind: types.Integer}}
	registered := r.Register(members)

	found, ok := r.FindMatching(members)
	if !ok || found != registered {
		t.Fatalf("expected FindMatching to report the registered ID %d, got %d (ok=%v)", registered, found, ok)
	}

	_, ok = r.FindMatching([]types.MemberSpec{{Name: "never-registered", Kind: types.Boolean}})
	if ok {
		t.Fatal("expected FindMatching to report no match for an unregistered shape")
	}
}

// TestRegistry_TuplesRejectNestedComposites: tuple descriptors never
// contain nested composites.
func TestRegistry_TuplesRejectNestedComposites(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected a panic registering a tuple member of Record kind")
		}
	}()
	r := types.NewRegistry(types.Tuple, false)
	r.Register([]types.MemberSpec{{Name: "nested", Kind: types.Record, RecordID: 1}})
}
