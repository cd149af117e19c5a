package types

import (
	"fmt"
	"sync"

	"github.com/cnf/structhash"
	"github.com/npillmayer/schuko/tracing"

	"github.com/fuguevm/fuguevm/internal/vmtrace"
)

// tracer traces with key 'vm.types'.
func tracer() tracing.Trace {
	return vmtrace.Select(vmtrace.KeyTypes)
}

// MemberSpec is one (member-name, member-type) pair of a tuple or
// record descriptor.
type MemberSpec struct {
	Name        string
	Kind        Kind
	TupleID     TypeID // valid iff Kind == Tuple
	RecordID    TypeID // valid iff Kind == Record
	IsArray     bool
	ElementKind Kind // valid iff IsArray
}

func (m MemberSpec) equalType(o MemberSpec) bool {
	if m.Kind != o.Kind || m.IsArray != o.IsArray {
		return false
	}
	switch {
	case m.Kind == Tuple:
		return m.TupleID == o.TupleID
	case m.Kind == Record:
		return m.RecordID == o.RecordID
	case m.IsArray:
		return m.ElementKind == o.ElementKind
	default:
		return true
	}
}

// Descriptor is a registered tuple or record type: its ordered member
// list plus precomputed byte offsets and total storage size.
type Descriptor struct {
	ID      TypeID
	Members []MemberSpec
	Offsets []int
	Size    int // total bytes, including the word-sized type-ID header
}

func (d *Descriptor) sameMembers(members []MemberSpec) bool {
	if len(d.Members) != len(members) {
		return false
	}
	for i, m := range d.Members {
		if m.Name != members[i].Name || !m.equalType(members[i]) {
			return false
		}
	}
	return true
}

// memberStorageSize returns the number of bytes a member occupies
// inline inside a composite's layout. Nested tuples/records use the
// sub-type's total size (looked up in the owning registry); function
// members use the pointer size.
func memberStorageSize(m MemberSpec, registry *Registry) int {
	if m.IsArray {
		return Array.StorageSize()
	}
	switch m.Kind {
	case Tuple:
		d, ok := registry.byID(m.TupleID)
		if !ok {
			panic(fmt.Sprintf("types: member %q references unregistered tuple id %d", m.Name, m.TupleID))
		}
		return d.Size
	case Record:
		d, ok := registry.byID(m.RecordID)
		if !ok {
			panic(fmt.Sprintf("types: member %q references unregistered record id %d", m.Name, m.RecordID))
		}
		return d.Size
	default:
		return m.Kind.StorageSize()
	}
}

// Registry is a tuple or record type table: a monotonically
// increasing TypeID keyed map of descriptors, with registration
// idempotent under structural equivalence. There are two Registry
// instances per Program (one for tuples, one for records) rather than
// one process-global pair; see DESIGN.md's Open Question decision on
// per-program registries.
//
// Registration deduplicates descriptors by structural content: a
// structhash over the member sequence narrows the search to a short
// candidate list, then a pairwise equality check makes the final
// decision is always a pairwise equality check, so a hash collision
// can never fuse two structurally different descriptors.
type Registry struct {
	kind        Kind // Tuple or Record, for error messages / sameMembers cross-checks
	allowNested bool

	mu        sync.Mutex
	nextID    TypeID
	byHash    map[string][]*Descriptor
	byIDTable map[TypeID]*Descriptor
}

// NewRegistry creates an empty registry for either Tuple or Record
// types. allowNested controls whether members may themselves be Tuple
// or Record kinds (true for records; tuples never contain nested
// composites).
func NewRegistry(kind Kind, allowNested bool) *Registry {
	return &Registry{
		kind:        kind,
		allowNested: allowNested,
		nextID:      1, // ID 0 is reserved as "invalid"
		byHash:      make(map[string][]*Descriptor),
		byIDTable:   make(map[TypeID]*Descriptor),
	}
}

func (r *Registry) hashFor(members []MemberSpec) string {
	h, err := structhash.Hash(struct {
		Kind    Kind
		Members []MemberSpec
	}{Kind: r.kind, Members: members}, 1)
	if err != nil {
		// structhash.Hash only fails on unhashable input, which a
		// []MemberSpec of plain value fields never produces.
		panic(err)
	}
	return h
}

// Register looks up an existing descriptor matching members by
// (name, type) sequence; if found, returns its existing ID. Otherwise
// it allocates a fresh ID, precomputes offsets/size, and stores the
// new descriptor.
func (r *Registry) Register(members []MemberSpec) TypeID {
	if !r.allowNested {
		for _, m := range members {
			if m.Kind.IsComposite() {
				panic(fmt.Sprintf("types: tuple member %q may not be a nested composite", m.Name))
			}
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	h := r.hashFor(members)
	for _, cand := range r.byHash[h] {
		if cand.sameMembers(members) {
			tracer().Debugf("register %s: existing id=%d (hash hit)", r.kind, cand.ID)
			return cand.ID
		}
	}
	d := &Descriptor{ID: r.nextID, Members: members}
	offsets := make([]int, len(members))
	size := wordSize // type-ID header
	for i, m := range members {
		offsets[i] = size
		size += memberStorageSize(m, r)
	}
	d.Offsets = offsets
	d.Size = size
	r.nextID++
	r.byHash[h] = append(r.byHash[h], d)
	r.byIDTable[d.ID] = d
	tracer().Debugf("register %s: new id=%d size=%d", r.kind, d.ID, d.Size)
	return d.ID
}

func (r *Registry) byID(id TypeID) (*Descriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byIDTable[id]
	return d, ok
}

// Lookup returns the descriptor for a registered type ID.
func (r *Registry) Lookup(id TypeID) (*Descriptor, bool) {
	return r.byID(id)
}

// FindMatching searches for a descriptor matching members without
// registering a new one; used by the scope subsystem's
// "effective-tuple" resolution, where a registry miss
// is a fatal internal error because the loader was responsible for
// registering the matching type in advance.
func (r *Registry) FindMatching(members []MemberSpec) (TypeID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.hashFor(members)
	for _, cand := range r.byHash[h] {
		if cand.sameMembers(members) {
			return cand.ID, true
		}
	}
	return InvalidTypeID, false
}
