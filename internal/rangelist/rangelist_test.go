package rangelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRangeAtOffset(t *testing.T) {
	l := New()
	l.Append(0, 100, nil)
	l.Append(200, 50, nil)

	r, ok := l.RangeAtOffset(50)
	assert.True(t, ok)
	assert.Equal(t, uint64(0), r.Start)

	_, ok = l.RangeAtOffset(150)
	assert.False(t, ok)

	r, ok = l.RangeAtOffset(249)
	assert.True(t, ok)
	assert.Equal(t, uint64(200), r.Start)

	_, ok = l.RangeAtOffset(250)
	assert.False(t, ok)
}

func TestCoversEmptyList(t *testing.T) {
	l := New()
	assert.False(t, l.Covers(0))
	assert.Equal(t, 0, l.Len())
}

func TestAppendZeroSizeIgnored(t *testing.T) {
	l := New()
	l.Append(10, 0, nil)
	assert.Equal(t, 0, l.Len())
}

func TestRangeEnd(t *testing.T) {
	r := Range{Start: 10, Size: 5}
	assert.Equal(t, uint64(15), r.End())
	assert.True(t, r.Contains(10))
	assert.True(t, r.Contains(14))
	assert.False(t, r.Contains(15))
}
