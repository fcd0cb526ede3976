package factory

import "unsafe"

// LayoutEntry describes one level of a prototype chain: its name (for
// diagnostics) and its static size/alignment, known at compile time per
// spec.md §4.7.
type LayoutEntry struct {
	Name  string
	Size  uintptr
	Align uintptr
}

// ChainSpec is the fixed-order list of layout entries for one concrete
// DOM type's inheritance chain, root first (e.g. EventTarget, Node,
// Element, HTMLElement, HTMLInputElement).
type ChainSpec []LayoutEntry

// Chain is a single contiguous allocation holding every level of one
// prototype chain. Level 0 is the root (no `_proto`); the last level is
// the leaf (the concrete type).
type Chain struct {
	spec    ChainSpec
	slab    []byte
	offsets []uintptr
	pool    *Pool
	freed   bool
}

// Allocate carves out one chain from p sized and aligned per spec,
// advancing an offset for each level the way §4.7 describes: "advance an
// offset aligned to that type, reserve its size".
func (p *Pool) Allocate(spec ChainSpec) *Chain {
	total, offsets := layoutChain(spec)
	return &Chain{
		spec:    spec,
		slab:    p.get(int(total)),
		offsets: offsets,
		pool:    p,
	}
}

func layoutChain(spec ChainSpec) (uintptr, []uintptr) {
	var offset uintptr
	offsets := make([]uintptr, len(spec))
	for i, entry := range spec {
		offset = alignUp(offset, entry.Align)
		offsets[i] = offset
		offset += entry.Size
	}
	return offset, offsets
}

func alignUp(offset, align uintptr) uintptr {
	if align <= 1 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// Levels reports how many entries are in the chain.
func (c *Chain) Levels() int { return len(c.spec) }

// Pointer returns the raw memory for the level-th entry in the chain
// (0 == root). Callers cast this to the concrete type at that level.
func (c *Chain) Pointer(level int) unsafe.Pointer {
	return unsafe.Pointer(&c.slab[c.offsets[level]])
}

// ProtoPointer returns the `_proto` pointer for level: the memory of the
// entry immediately below it in the chain, or nil at the root.
func (c *Chain) ProtoPointer(level int) unsafe.Pointer {
	if level == 0 {
		return nil
	}
	return c.Pointer(level - 1)
}

// Root returns the chain's root-level pointer (EventTarget, in the DOM
// chain named by §4.7).
func (c *Chain) Root() unsafe.Pointer { return c.Pointer(0) }

// Leaf returns the chain's leaf-level pointer (the concrete type).
func (c *Chain) Leaf() unsafe.Pointer { return c.Pointer(len(c.spec) - 1) }

// NameAt reports the type name recorded for a given level, for
// diagnostics and the `_type` variant introspection named in §4.7.
func (c *Chain) NameAt(level int) string { return c.spec[level].Name }

// Destroy frees the entire chain as one block, per §4.7 ("destroy(leaf)
// ... frees the block as one"). The Chain's own bookkeeping already
// carries the total length and alignment computed at Allocate time, so no
// root-ward walk is needed to recover them; this is strictly a tighter
// (O(1) rather than O(depth)) realization of the stated contract.
// Destroy is idempotent: a second call is a no-op.
func (c *Chain) Destroy() {
	if c.freed {
		return
	}
	c.freed = true
	c.pool.put(c.slab)
	c.slab = nil
	c.offsets = nil
}
