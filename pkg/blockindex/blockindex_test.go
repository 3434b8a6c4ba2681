package blockindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-vshadow/pkg/codec"
)

func direct(original, offset uint64) *BlockDescriptor {
	return &BlockDescriptor{OriginalOffset: original, Offset: offset}
}

func forwarder(original, relative uint64) *BlockDescriptor {
	return &BlockDescriptor{OriginalOffset: original, RelativeOffset: relative, Flags: codec.FlagIsForwarder}
}

func overlay(original uint64, bitmap uint32) *BlockDescriptor {
	return &BlockDescriptor{OriginalOffset: original, Offset: original + 1, Flags: codec.FlagIsOverlay, Bitmap: bitmap}
}

func TestInsertRegular(t *testing.T) {
	ix := New()
	ix.Insert(direct(0, 0x1000))

	d, ok := ix.LookupForward(0)
	require.True(t, ok)
	assert.Equal(t, uint64(0x1000), d.Offset)
	assert.Equal(t, 0, ix.ReverseLen())
}

func TestInsertOverlayThenPrimary(t *testing.T) {
	ix := New()
	ix.Insert(overlay(0, 0x0000000F))
	ix.Insert(direct(0, 0x2000))

	d, ok := ix.LookupForward(0)
	require.True(t, ok)
	assert.False(t, d.IsOverlay())
	require.NotNil(t, d.Overlay)
	assert.Equal(t, uint32(0x0000000F), d.Overlay.Bitmap)
}

func TestInsertPrimaryThenOverlay(t *testing.T) {
	ix := New()
	ix.Insert(direct(0, 0x2000))
	ix.Insert(overlay(0, 0x0000000F))

	d, ok := ix.LookupForward(0)
	require.True(t, ok)
	require.NotNil(t, d.Overlay)
	assert.Equal(t, uint32(0x0000000F), d.Overlay.Bitmap)
}

func TestInsertOverlayOrExpansion(t *testing.T) {
	ix := New()
	ix.Insert(overlay(0, 0x00000001))
	ix.Insert(overlay(0, 0x00000002))

	d, ok := ix.LookupForward(0)
	require.True(t, ok)
	assert.True(t, d.IsOverlay())
	assert.Equal(t, uint32(0x00000003), d.Bitmap)
}

func TestInsertOverlayOrExpansionUnderPrimary(t *testing.T) {
	ix := New()
	ix.Insert(direct(0, 0x2000))
	ix.Insert(overlay(0, 0x00000001))
	ix.Insert(overlay(0, 0x00000002))

	d, ok := ix.LookupForward(0)
	require.True(t, ok)
	require.NotNil(t, d.Overlay)
	assert.Equal(t, uint32(0x00000003), d.Overlay.Bitmap)
}

func TestInsertForwarderChainShortening(t *testing.T) {
	ix := New()
	// original offset 0 forwards to 0x4000, then that location is itself
	// reassigned directly: the new primary at 0x4000 must absorb the
	// original-offset-0 forwarding, shortening the chain to one hop.
	ix.Insert(forwarder(0, 0x4000))
	ix.Insert(direct(0x4000, 0x9000))

	d, ok := ix.LookupForward(0)
	require.True(t, ok)
	assert.Equal(t, uint64(0), d.OriginalOffset)
	assert.Equal(t, uint64(0x9000), d.Offset)
	assert.False(t, d.IsForwarder())

	_, stillForwarded := ix.LookupReverse(0x4000)
	assert.False(t, stillForwarded)
}

func TestInsertSelfLoopDiscarded(t *testing.T) {
	ix := New()
	ix.Insert(forwarder(0x4000, 0x4000))

	_, ok := ix.LookupForward(0x4000)
	assert.False(t, ok)
	assert.Equal(t, 0, ix.ForwardLen())
	assert.Equal(t, 0, ix.ReverseLen())
}

func TestInsertIdempotent(t *testing.T) {
	ix := New()
	d := direct(0, 0x1000)
	ix.Insert(d)
	ix.Insert(d)

	assert.Equal(t, 1, ix.ForwardLen())
}

func TestInsertNotUsedDiscarded(t *testing.T) {
	ix := New()
	ix.Insert(&BlockDescriptor{OriginalOffset: 0, Offset: 0x1000, Flags: codec.FlagNotUsed})

	_, ok := ix.LookupForward(0)
	assert.False(t, ok)
}

func TestInsertDoesNotMutateCallerCopy(t *testing.T) {
	ix := New()
	d := forwarder(0, 0x4000)
	ix.Insert(d)

	// Insert must take its own copy; mutating the caller's buffer
	// afterward should not affect the index.
	d.RelativeOffset = 0xFFFF

	got, ok := ix.LookupForward(0)
	require.True(t, ok)
	assert.Equal(t, uint64(0x4000), got.RelativeOffset)
}

func TestInsertReverseIndexForwarder(t *testing.T) {
	ix := New()
	ix.Insert(forwarder(0, 0x4000))

	d, ok := ix.LookupReverse(0x4000)
	require.True(t, ok)
	assert.Equal(t, uint64(0), d.OriginalOffset)
}
