// Package codec decodes the little-endian, fixed-layout on-disk records of
// the VSS store area: the volume header, catalog header and entries, store
// block headers, block-list entries, and block-range entries. Every
// decoder validates magic (where present), version,
// record type, and payload size, in the manner of
// apfs/pkg/container.ReadNXSuperblock / ReadOMapPhys: manual
// binary.LittleEndian field extraction plus explicit bounds and tag
// checks, returning a *vserrors.Error with a stable Kind on failure.
package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-vshadow/pkg/guid"
	"github.com/deploymenttheory/go-vshadow/pkg/vserrors"
)

// BlockSize is the fixed unit of both catalog/store metadata blocks and
// data blocks throughout the format.
const BlockSize = 16384

// Signature is the 16-byte VSS identifier found at the start of the volume
// header, every catalog block, and every store block.
var Signature = [16]byte{
	0x6b, 0x87, 0x08, 0x38, 0x76, 0xc1, 0x48, 0x4e,
	0xb7, 0xae, 0x04, 0x04, 0x6e, 0x6c, 0xc7, 0x52,
}

// CheckSignature reports whether b begins with the VSS magic GUID.
func CheckSignature(b []byte) bool {
	if len(b) < len(Signature) {
		return false
	}
	for i, want := range Signature {
		if b[i] != want {
			return false
		}
	}
	return true
}

// Record types, shared between the catalog header and store block headers.
const (
	RecordTypeCatalog         = 2
	RecordTypeStoreHeader     = 3
	RecordTypeVolumeHeader    = 4
	RecordTypeStoreIndex      = 5
	RecordTypeStoreBitmap     = 6
	RecordTypeStoreBlockRange = 7
)

// Catalog entry types.
const (
	CatalogEntryTypePadding0     = 0
	CatalogEntryTypePadding1     = 1
	CatalogEntryTypeStoreIdentity = 2
	CatalogEntryTypeStoreLocations = 3
)

// VolumeHeaderSize is the fixed size of the volume header record.
const VolumeHeaderSize = 512

// VolumeHeader is the decoded 512-byte volume header.
type VolumeHeader struct {
	Version                uint32
	RecordType             uint32
	Offset                 uint64
	CatalogOffset          uint64
	MaximumSize            uint64
	VolumeIdentifier       guid.GUID
	StoreVolumeIdentifier  guid.GUID
}

// DecodeVolumeHeader decodes the volume header from b, which must be at
// least VolumeHeaderSize bytes.
func DecodeVolumeHeader(b []byte) (VolumeHeader, error) {
	var h VolumeHeader
	if len(b) < VolumeHeaderSize {
		return h, vserrors.New(vserrors.Io, fmt.Sprintf("volume header: need %d bytes, got %d", VolumeHeaderSize, len(b)))
	}
	if !CheckSignature(b) {
		return h, vserrors.New(vserrors.UnsupportedFormat, "volume header: bad magic")
	}
	le := binary.LittleEndian
	h.Version = le.Uint32(b[16:20])
	h.RecordType = le.Uint32(b[20:24])
	h.Offset = le.Uint64(b[24:32])
	h.CatalogOffset = le.Uint64(b[48:56])
	h.MaximumSize = le.Uint64(b[56:64])

	if h.Version != 1 && h.Version != 2 {
		return h, vserrors.New(vserrors.UnsupportedFormat, fmt.Sprintf("volume header: unsupported version %d", h.Version))
	}
	if h.RecordType != RecordTypeVolumeHeader {
		return h, vserrors.New(vserrors.UnsupportedFormat, fmt.Sprintf("volume header: unexpected record type %d", h.RecordType))
	}

	vid, err := guid.Parse(b[64:80])
	if err != nil {
		return h, vserrors.Wrap(vserrors.Io, "volume header: volume identifier", err)
	}
	h.VolumeIdentifier = vid

	svid, err := guid.Parse(b[80:96])
	if err != nil {
		return h, vserrors.Wrap(vserrors.Io, "volume header: store-volume identifier", err)
	}
	h.StoreVolumeIdentifier = svid

	return h, nil
}

// BlockHeaderSize is the fixed size of the 128-byte header shared by
// catalog blocks and store blocks.
const BlockHeaderSize = 128

// BlockHeader is the common 128-byte header of a catalog block or store
// block: magic, version, record type, and chain-navigation offsets.
type BlockHeader struct {
	Version        uint32
	RecordType     uint32
	RelativeOffset uint64
	Offset         uint64
	NextOffset     uint64
}

// DecodeCatalogHeader decodes a catalog block's 128-byte header from b.
func DecodeCatalogHeader(b []byte) (BlockHeader, error) {
	h, err := decodeBlockHeader(b, "catalog header")
	if err != nil {
		return h, err
	}
	if h.RecordType != RecordTypeCatalog {
		return h, vserrors.New(vserrors.UnsupportedFormat, fmt.Sprintf("catalog header: unexpected record type %d", h.RecordType))
	}
	return h, nil
}

// DecodeStoreBlockHeader decodes a store block's 128-byte header from b. It
// accepts any of the STORE_HEADER/STORE_BITMAP/STORE_INDEX/
// STORE_BLOCK_RANGE record types; callers check for the specific type they
// expect.
func DecodeStoreBlockHeader(b []byte) (BlockHeader, error) {
	h, err := decodeBlockHeader(b, "store block header")
	if err != nil {
		return h, err
	}
	switch h.RecordType {
	case RecordTypeStoreHeader, RecordTypeStoreBitmap, RecordTypeStoreIndex, RecordTypeStoreBlockRange:
	default:
		return h, vserrors.New(vserrors.UnsupportedFormat, fmt.Sprintf("store block header: unexpected record type %d", h.RecordType))
	}
	return h, nil
}

func decodeBlockHeader(b []byte, what string) (BlockHeader, error) {
	var h BlockHeader
	if len(b) < BlockHeaderSize {
		return h, vserrors.New(vserrors.Io, fmt.Sprintf("%s: need %d bytes, got %d", what, BlockHeaderSize, len(b)))
	}
	if !CheckSignature(b) {
		return h, vserrors.New(vserrors.UnsupportedFormat, fmt.Sprintf("%s: bad magic", what))
	}
	le := binary.LittleEndian
	h.Version = le.Uint32(b[16:20])
	h.RecordType = le.Uint32(b[20:24])
	if h.Version != 1 {
		return h, vserrors.New(vserrors.UnsupportedFormat, fmt.Sprintf("%s: unsupported version %d", what, h.Version))
	}
	h.RelativeOffset = le.Uint64(b[24:32])
	h.Offset = le.Uint64(b[32:40])
	h.NextOffset = le.Uint64(b[40:48])
	return h, nil
}

// CatalogEntrySize is the fixed size of one catalog entry.
const CatalogEntrySize = 128

// CatalogEntryKind distinguishes the decoded catalog entry's payload.
type CatalogEntryKind int

const (
	// CatalogEntryPadding is a type 0 or type 1 entry carrying no data.
	CatalogEntryPadding CatalogEntryKind = iota
	// CatalogEntryIdentity is a type 2 entry (store identity).
	CatalogEntryIdentity
	// CatalogEntryLocations is a type 3 entry (store locations).
	CatalogEntryLocations
)

// CatalogEntry is a decoded 128-byte catalog entry.
// block").
type CatalogEntry struct {
	Kind CatalogEntryKind

	// Populated for CatalogEntryIdentity.
	VolumeSize   uint64
	StoreGUID    guid.GUID
	CreationTime uint64 // raw FILETIME ticks; see pkg/filetime

	// Populated for CatalogEntryLocations.
	BlockListOffset        uint64
	StoreHeaderOffset      uint64
	BlockRangeListOffset   uint64
	BitmapOffset           uint64
	PreviousBitmapOffset   uint64
}

// DecodeCatalogEntry decodes one 128-byte catalog entry from b.
func DecodeCatalogEntry(b []byte) (CatalogEntry, error) {
	var e CatalogEntry
	if len(b) < CatalogEntrySize {
		return e, vserrors.New(vserrors.Io, fmt.Sprintf("catalog entry: need %d bytes, got %d", CatalogEntrySize, len(b)))
	}
	le := binary.LittleEndian
	entryType := le.Uint64(b[0:8])

	switch entryType {
	case CatalogEntryTypePadding0, CatalogEntryTypePadding1:
		e.Kind = CatalogEntryPadding
		return e, nil
	case CatalogEntryTypeStoreIdentity:
		e.Kind = CatalogEntryIdentity
		e.VolumeSize = le.Uint64(b[8:16])
		g, err := guid.Parse(b[16:32])
		if err != nil {
			return e, vserrors.Wrap(vserrors.Io, "catalog entry: store guid", err)
		}
		e.StoreGUID = g
		e.CreationTime = le.Uint64(b[48:56])
		return e, nil
	case CatalogEntryTypeStoreLocations:
		e.Kind = CatalogEntryLocations
		e.BlockListOffset = le.Uint64(b[8:16])
		g, err := guid.Parse(b[16:32])
		if err != nil {
			return e, vserrors.Wrap(vserrors.Io, "catalog entry: store guid", err)
		}
		e.StoreGUID = g
		e.StoreHeaderOffset = le.Uint64(b[32:40])
		e.BlockRangeListOffset = le.Uint64(b[40:48])
		e.BitmapOffset = le.Uint64(b[48:56])
		e.PreviousBitmapOffset = le.Uint64(b[72:80])
		return e, nil
	default:
		return e, vserrors.New(vserrors.UnsupportedFormat, fmt.Sprintf("catalog entry: unsupported entry type %d", entryType))
	}
}

// BlockListEntrySize is the fixed size of one block-list entry.
const BlockListEntrySize = 32

// Block descriptor flag bits.
const (
	FlagIsForwarder uint32 = 0x01
	FlagIsOverlay   uint32 = 0x02
	FlagNotUsed     uint32 = 0x04
)

// BlockListEntry is a decoded 32-byte block-list entry, the on-disk form
// of a BlockDescriptor before it is inserted into a store's BlockIndex.
type BlockListEntry struct {
	OriginalOffset uint64
	RelativeOffset uint64
	Offset         uint64
	Flags          uint32
	Bitmap         uint32
}

// DecodeBlockListEntry decodes a 32-byte block-list entry from b.
//
// An all-zero entry is a legal "empty" sentinel and is reported distinctly
// via the empty return value rather than as an error or as a
// zero-valued-but-real entry.
//
// A forwarder (IS_FORWARDER set) with a nonzero Offset field violates the
// invariant that a forwarder's offset must be 0, and is reported as
// UnsupportedFormat.
func DecodeBlockListEntry(b []byte) (entry BlockListEntry, empty bool, err error) {
	if len(b) < BlockListEntrySize {
		return entry, false, vserrors.New(vserrors.Io, fmt.Sprintf("block-list entry: need %d bytes, got %d", BlockListEntrySize, len(b)))
	}
	if isAllZero(b[:BlockListEntrySize]) {
		return entry, true, nil
	}
	le := binary.LittleEndian
	entry.OriginalOffset = le.Uint64(b[0:8])
	entry.RelativeOffset = le.Uint64(b[8:16])
	entry.Offset = le.Uint64(b[16:24])
	entry.Flags = le.Uint32(b[24:28])
	entry.Bitmap = le.Uint32(b[28:32])

	if entry.Flags&FlagIsForwarder != 0 && entry.Offset != 0 {
		return entry, false, vserrors.New(vserrors.UnsupportedFormat, "block-list entry: forwarder with nonzero offset")
	}
	if entry.Flags&FlagIsForwarder != 0 && entry.Flags&FlagIsOverlay != 0 {
		return entry, false, vserrors.New(vserrors.UnsupportedFormat, "block-list entry: forwarder and overlay both set")
	}
	return entry, false, nil
}

// BlockRangeEntrySize is the fixed size of one block-range entry.
const BlockRangeEntrySize = 24

// BlockRangeEntry is a decoded 24-byte block-range-list entry. These are
// parsed for completeness and recorded, but not consumed by the read
// engine; see DESIGN.md.
type BlockRangeEntry struct {
	Offset         uint64
	RelativeOffset uint64
	Size           uint64
}

// DecodeBlockRangeEntry decodes a 24-byte block-range entry from b. An
// all-zero entry is reported as empty, the same way as block-list entries.
func DecodeBlockRangeEntry(b []byte) (entry BlockRangeEntry, empty bool, err error) {
	if len(b) < BlockRangeEntrySize {
		return entry, false, vserrors.New(vserrors.Io, fmt.Sprintf("block-range entry: need %d bytes, got %d", BlockRangeEntrySize, len(b)))
	}
	if isAllZero(b[:BlockRangeEntrySize]) {
		return entry, true, nil
	}
	le := binary.LittleEndian
	entry.Offset = le.Uint64(b[0:8])
	entry.RelativeOffset = le.Uint64(b[8:16])
	entry.Size = le.Uint64(b[16:24])
	return entry, false, nil
}

// StoreInformationOffset is the byte offset, within a STORE_HEADER store
// block, at which the store information payload begins (immediately after
// the 128-byte common block header).
const StoreInformationOffset = BlockHeaderSize

// StoreInformationSize is the fixed size of the store information payload.
const StoreInformationSize = 64

// StoreInformation is the decoded store information payload of a
// STORE_HEADER store block: the shadow copy identifier, copy set
// identifier, and attribute flags.
type StoreInformation struct {
	CopyIdentifier    guid.GUID
	CopySetIdentifier guid.GUID
	Type              uint32
	Provider          uint32
	AttributeFlags    uint32
}

// DecodeStoreInformation decodes the store information payload from b,
// which must begin at StoreInformationOffset within the containing store
// block and be at least StoreInformationSize bytes long.
func DecodeStoreInformation(b []byte) (StoreInformation, error) {
	var si StoreInformation
	if len(b) < StoreInformationSize {
		return si, vserrors.New(vserrors.Io, fmt.Sprintf("store information: need %d bytes, got %d", StoreInformationSize, len(b)))
	}
	le := binary.LittleEndian
	g, err := guid.Parse(b[16:32])
	if err != nil {
		return si, vserrors.Wrap(vserrors.Io, "store information: copy identifier", err)
	}
	si.CopyIdentifier = g
	g, err = guid.Parse(b[32:48])
	if err != nil {
		return si, vserrors.Wrap(vserrors.Io, "store information: copy set identifier", err)
	}
	si.CopySetIdentifier = g
	si.Type = le.Uint32(b[48:52])
	si.Provider = le.Uint32(b[52:56])
	si.AttributeFlags = le.Uint32(b[56:60])
	return si, nil
}

func isAllZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
