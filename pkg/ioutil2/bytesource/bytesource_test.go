package bytesource

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderAtSourceReadAt(t *testing.T) {
	data := []byte("0123456789")
	src := NewReaderAtSource(bytes.NewReader(data), int64(len(data)))

	buf := make([]byte, 4)
	err := src.ReadAt(buf, 2)
	require.NoError(t, err)
	assert.Equal(t, "2345", string(buf))

	size, err := src.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(10), size)
}

func TestReaderAtSourceShortReadIsError(t *testing.T) {
	data := []byte("short")
	src := NewReaderAtSource(bytes.NewReader(data), int64(len(data)))

	buf := make([]byte, 10)
	err := src.ReadAt(buf, 0)
	assert.Error(t, err)
}

func TestReaderAtSourceNegativeOffset(t *testing.T) {
	src := NewReaderAtSource(bytes.NewReader([]byte("data")), 4)
	err := src.ReadAt(make([]byte, 1), -1)
	assert.Error(t, err)
}

func TestOffsetView(t *testing.T) {
	data := []byte("0123456789")
	parent := NewReaderAtSource(bytes.NewReader(data), int64(len(data)))
	view := Offset(parent, 3, 4) // bytes "3456"

	size, err := view.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(4), size)

	buf := make([]byte, 2)
	err = view.ReadAt(buf, 1)
	require.NoError(t, err)
	assert.Equal(t, "45", string(buf))
}

func TestOffsetViewOutOfBounds(t *testing.T) {
	data := []byte("0123456789")
	parent := NewReaderAtSource(bytes.NewReader(data), int64(len(data)))
	view := Offset(parent, 3, 4)

	err := view.ReadAt(make([]byte, 4), 1)
	assert.Error(t, err)
}
