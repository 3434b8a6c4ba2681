package guid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndString(t *testing.T) {
	// On-disk bytes for 3808876b-c176-4e48-b7ae-04046e6cc752, matching the
	// mixed-endian GUID used as the VSS magic in pkg/codec.
	b := []byte{
		0x6b, 0x87, 0x08, 0x38,
		0x76, 0xc1,
		0x48, 0x4e,
		0xb7, 0xae, 0x04, 0x04, 0x6e, 0x6c, 0xc7, 0x52,
	}
	g, err := Parse(b)
	require.NoError(t, err)
	assert.Equal(t, "3808876b-c176-4e48-b7ae-04046e6cc752", g.String())
}

func TestParseStringRoundTrip(t *testing.T) {
	s := "3808876b-c176-4e48-b7ae-04046e6cc752"
	g, err := ParseString(s)
	require.NoError(t, err)
	assert.Equal(t, s, g.String())
	assert.Equal(t, g, FromUUID(g.UUID()))
}

func TestIsZero(t *testing.T) {
	assert.True(t, Zero.IsZero())
	g, _ := ParseString("3808876b-c176-4e48-b7ae-04046e6cc752")
	assert.False(t, g.IsZero())
}

func TestParseTooShort(t *testing.T) {
	_, err := Parse(make([]byte, 8))
	assert.Error(t, err)
}
