package catalog

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-vshadow/pkg/codec"
	"github.com/deploymenttheory/go-vshadow/pkg/guid"
	"github.com/deploymenttheory/go-vshadow/pkg/vsslog"
)

type memSource struct{ data []byte }

func newMemSource(size int) *memSource { return &memSource{data: make([]byte, size)} }

func (m *memSource) ReadAt(p []byte, off int64) error {
	copy(p, m.data[off:off+int64(len(p))])
	return nil
}
func (m *memSource) Size() (int64, error) { return int64(len(m.data)), nil }
func (m *memSource) Close() error         { return nil }
func (m *memSource) put(off uint64, b []byte) { copy(m.data[off:], b) }

const bs = codec.BlockSize

func catalogHeader(next uint64) []byte {
	b := make([]byte, codec.BlockHeaderSize)
	copy(b[0:16], codec.Signature[:])
	le := binary.LittleEndian
	le.PutUint32(b[16:20], 1)
	le.PutUint32(b[20:24], codec.RecordTypeCatalog)
	le.PutUint64(b[40:48], next)
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

func locationsEntry(id guid.GUID, blockListOffset, storeHeaderOffset, blockRangeOffset, bitmapOffset, prevBitmapOffset uint64) []byte {
	b := make([]byte, codec.CatalogEntrySize)
	le := binary.LittleEndian
	le.PutUint64(b[0:8], codec.CatalogEntryTypeStoreLocations)
	le.PutUint64(b[8:16], blockListOffset)
	copy(b[16:32], id.Bytes())
	le.PutUint64(b[32:40], storeHeaderOffset)
	le.PutUint64(b[40:48], blockRangeOffset)
	le.PutUint64(b[48:56], bitmapOffset)
	le.PutUint64(b[72:80], prevBitmapOffset)
	return b
}

func TestLoadPairsIdentityAndLocationsSortedByCreationTime(t *testing.T) {
	src := newMemSource(4 * bs)

	idOlder, _ := guid.ParseString("11111111-1111-1111-1111-111111111111")
	idNewer, _ := guid.ParseString("22222222-2222-2222-2222-222222222222")

	block := catalogHeader(0)
	payload := make([]byte, 0, bs-codec.BlockHeaderSize)
	// Intentionally write the newer store's identity first, to confirm
	// Load sorts by creation time rather than catalog order.
	payload = append(payload, identityEntry(idNewer, 2*bs, 2000)...)
	payload = append(payload, locationsEntry(idNewer, 0x1000, 0, 0, 0, 0)...)
	payload = append(payload, identityEntry(idOlder, bs, 1000)...)
	payload = append(payload, locationsEntry(idOlder, 0x2000, 0, 0, 0, 0)...)

	full := append(block, payload...)
	full = append(full, make([]byte, bs-len(full))...)
	src.put(bs, full)

	stores, err := Load(src, bs, uint64(4*bs), vsslog.Discard(), nil)
	require.NoError(t, err)
	require.Len(t, stores, 2)

	assert.Equal(t, idOlder, stores[0].Identifier())
	assert.Equal(t, idNewer, stores[1].Identifier())
	assert.Nil(t, stores[0].Previous())
	assert.Equal(t, stores[1], stores[0].Next())
	assert.Equal(t, stores[0], stores[1].Previous())
	assert.Nil(t, stores[1].Next())
	assert.True(t, stores[0].HasInVolumeData())
	assert.True(t, stores[1].HasInVolumeData())
}

func TestLoadSkipsOrphanLocationsEntry(t *testing.T) {
	src := newMemSource(2 * bs)
	id, _ := guid.ParseString("33333333-3333-3333-3333-333333333333")
	unknown, _ := guid.ParseString("44444444-4444-4444-4444-444444444444")

	block := catalogHeader(0)
	payload := identityEntry(id, bs, 1000)
	payload = append(payload, locationsEntry(unknown, 0x1000, 0, 0, 0, 0)...)

	full := append(block, payload...)
	full = append(full, make([]byte, bs-len(full))...)
	src.put(bs, full)

	stores, err := Load(src, bs, uint64(2*bs), vsslog.Discard(), nil)
	require.NoError(t, err)
	require.Len(t, stores, 1)
	assert.False(t, stores[0].HasInVolumeData())
}
