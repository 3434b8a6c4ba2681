// Package guid decodes the 16-byte little-endian Microsoft GUIDs embedded
// in VSS on-disk records (volume identifier, store-volume identifier,
// per-store identifier). The 16-byte VSS magic signature has the same
// shape but is not handled here: pkg/codec compares it as an opaque byte
// string.
package guid

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// Size is the on-disk size of a GUID in bytes.
const Size = 16

// GUID is a Microsoft-style mixed-endian GUID: Data1 (uint32) and Data2/
// Data3 (uint16) are little-endian on disk, Data4 (8 bytes) is an opaque
// byte string compared as-is.
type GUID [Size]byte

// Zero is the all-zero GUID.
var Zero GUID

// Parse decodes a GUID from its 16-byte on-disk little-endian
// representation. It returns an error if b is shorter than Size.
func Parse(b []byte) (GUID, error) {
	var g GUID
	if len(b) < Size {
		return g, fmt.Errorf("guid: need %d bytes, got %d", Size, len(b))
	}
	copy(g[:], b[:Size])
	return g, nil
}

// Bytes returns the raw 16-byte on-disk representation.
func (g GUID) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, g[:])
	return out
}

// IsZero reports whether g is the all-zero GUID.
func (g GUID) IsZero() bool {
	return g == Zero
}

// UUID converts g to a github.com/google/uuid.UUID in standard RFC 4122
// big-endian field order, swapping Data1/Data2/Data3 from the on-disk
// little-endian order. Useful for display and for CLI flag parsing, which
// uses the standard UUID string form.
func (g GUID) UUID() uuid.UUID {
	var u uuid.UUID
	binary.BigEndian.PutUint32(u[0:4], binary.LittleEndian.Uint32(g[0:4]))
	binary.BigEndian.PutUint16(u[4:6], binary.LittleEndian.Uint16(g[4:6]))
	binary.BigEndian.PutUint16(u[6:8], binary.LittleEndian.Uint16(g[6:8]))
	copy(u[8:16], g[8:16])
	return u
}

// String renders g in standard 8-4-4-4-12 hyphenated form.
func (g GUID) String() string {
	return g.UUID().String()
}

// FromUUID converts a standard uuid.UUID back into the on-disk mixed-endian
// GUID representation.
func FromUUID(u uuid.UUID) GUID {
	var g GUID
	binary.LittleEndian.PutUint32(g[0:4], binary.BigEndian.Uint32(u[0:4]))
	binary.LittleEndian.PutUint16(g[4:6], binary.BigEndian.Uint16(u[4:6]))
	binary.LittleEndian.PutUint16(g[6:8], binary.BigEndian.Uint16(u[6:8]))
	copy(g[8:16], u[8:16])
	return g
}

// ParseString parses a standard hyphenated UUID string into a GUID.
func ParseString(s string) (GUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Zero, fmt.Errorf("guid: %w", err)
	}
	return FromUUID(u), nil
}
