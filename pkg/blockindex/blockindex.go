// Package blockindex implements the BlockDescriptor value type and the
// per-store forward/reverse BlockIndex, including the block insertion
// algorithm that is the central invariant-preserving routine of the whole
// library.
//
// Cross-tree ownership of BlockDescriptors is handled by Go's garbage
// collector rather than manual reference counting: a *BlockDescriptor can
// simply be referenced by the forward map, the reverse map, both, or
// neither, and is reclaimed once nothing references it. The insertion
// algorithm below performs its tree mutations without ever needing to ask
// "is this value still owned by the other tree" before dropping a
// reference, because the garbage collector answers that question for
// free. See DESIGN.md for more on this design choice.
package blockindex

import "github.com/deploymenttheory/go-vshadow/pkg/codec"

// blockSize mirrors codec.BlockSize; both the forward index (keyed by
// original offset) and the reverse index (keyed by relative offset) quantize
// their keys to this alignment.
const blockSize = codec.BlockSize

// BlockDescriptor is one 16 KiB block mapping: where the content for
// OriginalOffset lives, either directly (Offset, store-relative), via a
// forwarder (RelativeOffset, to be resolved in a newer store), or via an
// overlay covering only some of the 512-byte sub-blocks.
type BlockDescriptor struct {
	OriginalOffset uint64
	RelativeOffset uint64
	Offset         uint64
	Flags          uint32
	// Bitmap enumerates, for an overlay descriptor, which of the 32
	// contiguous 512-byte sub-ranges of the 16 KiB block are defined by
	// this descriptor (bit i == sub-block i present).
	Bitmap uint32
	// Overlay is the secondary descriptor chained beneath a primary
	// descriptor at the same original-offset slot, or nil.
	Overlay *BlockDescriptor
}

// IsForwarder reports whether d marks that its content must be fetched
// from a newer store at RelativeOffset.
func (d *BlockDescriptor) IsForwarder() bool {
	return d.Flags&codec.FlagIsForwarder != 0
}

// IsOverlay reports whether d is an overlay descriptor (a 512-byte
// sub-bitmap rather than a full 16 KiB block).
func (d *BlockDescriptor) IsOverlay() bool {
	return d.Flags&codec.FlagIsOverlay != 0
}

// FromEntry constructs a BlockDescriptor from a decoded codec.BlockListEntry.
func FromEntry(e codec.BlockListEntry) *BlockDescriptor {
	return &BlockDescriptor{
		OriginalOffset: e.OriginalOffset,
		RelativeOffset: e.RelativeOffset,
		Offset:         e.Offset,
		Flags:          e.Flags,
		Bitmap:         e.Bitmap,
	}
}

func slotKey(offset uint64) uint64 {
	return offset &^ (blockSize - 1)
}

// Index holds the forward (by original offset) and reverse (by relative
// offset) BlockDescriptor indexes for a single store.
type Index struct {
	forward map[uint64]*BlockDescriptor
	reverse map[uint64]*BlockDescriptor
}

// New returns an empty Index.
func New() *Index {
	return &Index{
		forward: make(map[uint64]*BlockDescriptor),
		reverse: make(map[uint64]*BlockDescriptor),
	}
}

// LookupForward returns the descriptor whose 16-KiB-aligned original-offset
// slot contains offset.
func (ix *Index) LookupForward(offset uint64) (*BlockDescriptor, bool) {
	d, ok := ix.forward[slotKey(offset)]
	return d, ok
}

// LookupReverse returns the descriptor whose 16-KiB-aligned relative-offset
// slot contains offset.
func (ix *Index) LookupReverse(offset uint64) (*BlockDescriptor, bool) {
	d, ok := ix.reverse[slotKey(offset)]
	return d, ok
}

// ForwardLen returns the number of occupied original-offset slots in the
// forward index. A slot holding only an overlay counts once; an overlay
// chained beneath a primary is not counted separately.
func (ix *Index) ForwardLen() int {
	return len(ix.forward)
}

// ReverseLen returns the number of forwarder descriptors in the reverse
// index.
func (ix *Index) ReverseLen() int {
	return len(ix.reverse)
}

// Insert ingests a newly decoded descriptor into the forward and reverse
// indexes. Insert does not retain in: it takes a private copy before
// mutating it, so the caller's buffer can be reused.
//
// Insert never fails: a descriptor that should not be inserted (NOT_USED,
// or a self-referential forwarder) is silently discarded.
func (ix *Index) Insert(in *BlockDescriptor) {
	// Step 1: discard unused.
	if in.Flags&codec.FlagNotUsed != 0 {
		return
	}

	// Step 2: operate on a private copy.
	d := new(BlockDescriptor)
	*d = *in
	d.Overlay = nil

	// Step 3: forwarder collision / chain shortening.
	if !d.IsOverlay() {
		if existing, ok := ix.reverse[slotKey(d.OriginalOffset)]; ok {
			d.OriginalOffset = existing.OriginalOffset
			delete(ix.reverse, slotKey(existing.RelativeOffset))
		}
	}

	// Step 4: discard self-referential forwarders.
	if d.IsForwarder() && d.OriginalOffset == d.RelativeOffset {
		return
	}

	// Step 5: insert into the forward index.
	key := slotKey(d.OriginalOffset)
	existing, hasExisting := ix.forward[key]
	if !hasExisting {
		ix.forward[key] = d
	} else if d.IsOverlay() {
		slot := existing
		if !existing.IsOverlay() {
			slot = existing.Overlay
		}
		if slot != nil {
			slot.Bitmap |= d.Bitmap
		} else {
			existing.Overlay = d
		}
		// Overlay merges never touch the reverse index (overlays are
		// never forwarders), so we are done.
		return
	} else {
		if existing.IsOverlay() {
			d.Overlay = existing
		} else {
			d.Overlay = existing.Overlay
		}
		ix.forward[key] = d
	}

	// Step 6: insert into the reverse index if this is a forwarder.
	if d.IsForwarder() {
		ix.reverse[slotKey(d.RelativeOffset)] = d
	}
}
