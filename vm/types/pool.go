package types

import (
	"sync"

	"github.com/emirpasic/gods/sets/treeset"
)

// handleComparator orders Handle values for the live-handle treeset.
// Written out directly rather than adapting one of gods/utils's
// generated numeric comparators, since Handle is a named uint32 and
// the stock comparators expect plain built-in types.
func handleComparator(a, b interface{}) int {
	ha, hb := a.(Handle), b.(Handle)
	switch {
	case ha < hb:
		return -1
	case ha > hb:
		return 1
	default:
		return 0
	}
}

// StringPool is the process-... per-Program interned string pool,
// keyed by monotonic handle. Strings are
// de-duplicated by value: two identical literals share one handle
// (invariant 5).
type StringPool struct {
	mu      sync.RWMutex
	nextID  Handle
	byValue map[string]Handle
	content map[Handle]string
	live    *treeset.Set
}

// NewStringPool creates an empty string pool.
func NewStringPool() *StringPool {
	return &StringPool{
		nextID:  1,
		byValue: make(map[string]Handle),
		content: make(map[Handle]string),
		live:    treeset.NewWith(handleComparator),
	}
}

// Intern returns the handle for s, allocating a fresh one on first
// sight and reusing it on every subsequent call with the same value.
func (p *StringPool) Intern(s string) Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.byValue[s]; ok {
		return h
	}
	h := p.nextID
	p.nextID++
	p.byValue[s] = h
	p.content[h] = s
	p.live.Add(h)
	return h
}

// Get returns a read-only view of the string at handle h.
func (p *StringPool) Get(h Handle) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.content[h]
	return s, ok
}

// Clear empties the pool; done when a Program is constructed.
func (p *StringPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID = 1
	p.byValue = make(map[string]Handle)
	p.content = make(map[Handle]string)
	p.live = treeset.NewWith(handleComparator)
}

// Stats reports entry count and total byte size, for memory-usage
// reporting by debug tooling.
func (p *StringPool) Stats() (count int, bytes int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, s := range p.content {
		bytes += len(s)
	}
	return len(p.content), bytes
}

// IsLive reports whether h was ever issued by this pool and not since
// Clear-ed; an O(log n) membership check (via the ordered treeset,
// rather than a second map) backing debug assertions that a handle
// read off a variable or RValue still denotes a pool entry.
func (p *StringPool) IsLive(h Handle) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.live.Contains(h)
}

// BufferPool owns byte-buffer entries, each a (byte-array, size) pair.
type BufferPool struct {
	mu      sync.RWMutex
	nextID  Handle
	content map[Handle][]byte
	live    *treeset.Set
}

// NewBufferPool creates an empty buffer pool.
func NewBufferPool() *BufferPool {
	return &BufferPool{
		nextID:  1,
		content: make(map[Handle][]byte),
		live:    treeset.NewWith(handleComparator),
	}
}

// Add copies data into a fresh pool entry and returns its handle.
func (p *BufferPool) Add(data []byte) Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	h := p.nextID
	p.nextID++
	cp := make([]byte, len(data))
	copy(cp, data)
	p.content[h] = cp
	p.live.Add(h)
	return h
}

// Set replaces the content at an existing handle.
func (p *BufferPool) Set(h Handle, data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	p.content[h] = cp
}

// Get returns a read-only view of the buffer at handle h.
func (p *BufferPool) Get(h Handle) ([]byte, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	b, ok := p.content[h]
	return b, ok
}

// Clear empties the pool.
func (p *BufferPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID = 1
	p.content = make(map[Handle][]byte)
	p.live = treeset.NewWith(handleComparator)
}

// Stats reports entry count and total byte size.
func (p *BufferPool) Stats() (count int, bytes int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, b := range p.content {
		bytes += len(b)
	}
	return len(p.content), bytes
}

// IsLive reports whether h was ever issued by this pool and not since
// Clear-ed.
func (p *BufferPool) IsLive(h Handle) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.live.Contains(h)
}

// arrayEntry is one array-pool entry: the element payload and the
// element kind the handle was created with. The element kind is
// immutable for the handle's lifetime.
type arrayEntry struct {
	elemKind Kind
	elems    []RValue
}

// ArrayPool owns array entries, reporting element size and count from
// the stored element kind.
type ArrayPool struct {
	mu      sync.RWMutex
	nextID  Handle
	content map[Handle]*arrayEntry
	live    *treeset.Set
}

// NewArrayPool creates an empty array pool.
func NewArrayPool() *ArrayPool {
	return &ArrayPool{
		nextID:  1,
		content: make(map[Handle]*arrayEntry),
		live:    treeset.NewWith(handleComparator),
	}
}

// Add stores a fresh array entry and returns its handle.
func (p *ArrayPool) Add(elemKind Kind, elems []RValue) Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	h := p.nextID
	p.nextID++
	cp := make([]RValue, len(elems))
	copy(cp, elems)
	p.content[h] = &arrayEntry{elemKind: elemKind, elems: cp}
	p.live.Add(h)
	return h
}

// Set replaces the element content at an existing handle. The element
// kind may not change (invariant 6).
func (p *ArrayPool) Set(h Handle, elems []RValue) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.content[h]
	if !ok {
		return
	}
	cp := make([]RValue, len(elems))
	copy(cp, elems)
	e.elems = cp
}

// Get returns the element kind and a read-only view of the elements
// at handle h.
func (p *ArrayPool) Get(h Handle) (Kind, []RValue, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.content[h]
	if !ok {
		return Null, nil, false
	}
	return e.elemKind, e.elems, true
}

// Len returns the element count stored at handle h.
func (p *ArrayPool) Len(h Handle) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.content[h]
	if !ok {
		return 0
	}
	return len(e.elems)
}

// Clear empties the pool.
func (p *ArrayPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID = 1
	p.content = make(map[Handle]*arrayEntry)
	p.live = treeset.NewWith(handleComparator)
}

// Stats reports entry count and total element-byte footprint.
func (p *ArrayPool) Stats() (count int, bytes int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, e := range p.content {
		bytes += len(e.elems) * e.elemKind.StorageSize()
	}
	return len(p.content), bytes
}

// IsLive reports whether h was ever issued by this pool and not since
// Clear-ed.
func (p *ArrayPool) IsLive(h Handle) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.live.Contains(h)
}
