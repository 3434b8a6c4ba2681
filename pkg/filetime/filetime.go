// Package filetime converts the 64-bit little-endian Windows FILETIME
// values embedded in VSS catalog entries (100-nanosecond intervals since
// 1601-01-01 UTC) to and from time.Time.
package filetime

import "time"

// epochOffset is the number of 100ns intervals between the FILETIME epoch
// (1601-01-01 UTC) and the Unix epoch (1970-01-01 UTC).
const epochOffset = 116444736000000000

// FILETIME is the raw on-disk 100ns-tick counter.
type FILETIME uint64

// Time converts ft to a UTC time.Time.
func (ft FILETIME) Time() time.Time {
	ticks := int64(ft) - epochOffset
	sec := ticks / 10000000
	nsec := (ticks % 10000000) * 100
	return time.Unix(sec, nsec).UTC()
}

// FromTime converts t to a FILETIME, truncating to 100ns resolution.
func FromTime(t time.Time) FILETIME {
	u := t.UTC()
	ticks := u.Unix()*10000000 + int64(u.Nanosecond())/100
	return FILETIME(ticks + epochOffset)
}
