package volume

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-vshadow/pkg/codec"
	"github.com/deploymenttheory/go-vshadow/pkg/guid"
)

type memSource struct{ data []byte }

func newMemSource(size int) *memSource { return &memSource{data: make([]byte, size)} }

func (m *memSource) ReadAt(p []byte, off int64) error {
	copy(p, m.data[off:off+int64(len(p))])
	return nil
}
func (m *memSource) Size() (int64, error)      { return int64(len(m.data)), nil }
func (m *memSource) Close() error              { return nil }
func (m *memSource) put(off uint64, b []byte)  { copy(m.data[off:], b) }
func (m *memSource) fill(off uint64, n int, v byte) {
	for i := 0; i < n; i++ {
		m.data[int(off)+i] = v
	}
}

const bs = codec.BlockSize

func blockHeader(recordType uint32, next uint64) []byte {
	b := make([]byte, codec.BlockHeaderSize)
	copy(b[0:16], codec.Signature[:])
	le := binary.LittleEndian
	le.PutUint32(b[16:20], 1)
	le.PutUint32(b[20:24], recordType)
	le.PutUint64(b[40:48], next)
	return b
}

func volumeHeaderBlock(catalogOffset, maxSize uint64) []byte {
	b := make([]byte, codec.VolumeHeaderSize)
	copy(b[0:16], codec.Signature[:])
	le := binary.LittleEndian
	le.PutUint32(b[16:20], 1)
	le.PutUint32(b[20:24], codec.RecordTypeVolumeHeader)
	le.PutUint64(b[48:56], catalogOffset)
	le.PutUint64(b[56:64], maxSize)
	return b
}

func catalogBlock(entries ...[]byte) []byte {
	b := make([]byte, bs)
	copy(b, blockHeader(codec.RecordTypeCatalog, 0))
	off := codec.BlockHeaderSize
	for _, e := range entries {
		copy(b[off:], e)
		off += len(e)
	}
	return b
}

func identityEntry(id guid.GUID, volumeSize, creationTime uint64) []byte {
	b := make([]byte, codec.CatalogEntrySize)
	le := binary.LittleEndian
	le.PutUint64(b[0:8], codec.CatalogEntryTypeStoreIdentity)
	le.PutUint64(b[8:16], volumeSize)
	copy(b[16:32], id.Bytes())
	le.PutUint64(b[48:56], creationTime)
	return b
}

func locationsEntry(id guid.GUID, blockListOffset, bitmapOffset uint64) []byte {
	b := make([]byte, codec.CatalogEntrySize)
	le := binary.LittleEndian
	le.PutUint64(b[0:8], codec.CatalogEntryTypeStoreLocations)
	le.PutUint64(b[8:16], blockListOffset)
	copy(b[16:32], id.Bytes())
	le.PutUint64(b[48:56], bitmapOffset)
	return b
}

func bitmapBlock(setBits []int) []byte {
	b := make([]byte, bs)
	copy(b, blockHeader(codec.RecordTypeStoreBitmap, 0))
	payload := b[codec.BlockHeaderSize:]
	for _, bit := range setBits {
		word := bit / 32
		off := word * 4
		val := binary.LittleEndian.Uint32(payload[off : off+4])
		val |= 1 << uint(bit%32)
		binary.LittleEndian.PutUint32(payload[off:off+4], val)
	}
	return b
}

func blockListBlock(entries []codec.BlockListEntry) []byte {
	b := make([]byte, bs)
	copy(b, blockHeader(codec.RecordTypeStoreIndex, 0))
	payload := b[codec.BlockHeaderSize:]
	le := binary.LittleEndian
	for i, e := range entries {
		off := i * codec.BlockListEntrySize
		le.PutUint64(payload[off:off+8], e.OriginalOffset)
		le.PutUint64(payload[off+8:off+16], e.RelativeOffset)
		le.PutUint64(payload[off+16:off+24], e.Offset)
		le.PutUint32(payload[off+24:off+28], e.Flags)
		le.PutUint32(payload[off+28:off+32], e.Bitmap)
	}
	return b
}

func TestOpenAndReadStore(t *testing.T) {
	src := newMemSource(10 * bs)

	id, _ := guid.ParseString("3808876b-c176-4e48-b7ae-04046e6cc752")

	src.put(0, volumeHeaderBlock(bs, 4*bs))
	src.put(bs, catalogBlock(
		identityEntry(id, bs, 1000),
		locationsEntry(id, 3*bs, 2*bs),
	))
	src.put(2*bs, bitmapBlock([]int{0}))
	src.put(3*bs, blockListBlock([]codec.BlockListEntry{
		{OriginalOffset: 0, Offset: 4 * bs},
	}))
	src.fill(4*bs, bs, 0x77)

	v, err := Open(src)
	require.NoError(t, err)
	defer v.Close()

	assert.Equal(t, 1, v.StoreCount())

	s, err := v.Store(0)
	require.NoError(t, err)
	assert.Equal(t, id, s.Identifier())

	buf := make([]byte, 32)
	n, err := s.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 32, n)
	for _, b := range buf {
		assert.Equal(t, byte(0x77), b)
	}

	got, err := v.StoreByIdentifier(id)
	require.NoError(t, err)
	assert.Same(t, s, got)
}

func TestOpenCloseRejectsFurtherUse(t *testing.T) {
	src := newMemSource(2 * bs)
	src.put(0, volumeHeaderBlock(bs, bs))
	src.put(bs, catalogBlock())

	v, err := Open(src)
	require.NoError(t, err)
	require.NoError(t, v.Close())

	_, err = v.Size()
	assert.Error(t, err)
}
