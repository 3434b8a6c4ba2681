// Package rangelist implements a generic ordered half-open interval list:
// a sorted, non-overlapping slice of intervals searched by binary search,
// giving O(log N) range-at-offset lookup (see DESIGN.md).
package rangelist

import "sort"

// Range is one half-open interval [Start, Start+Size) with an opaque
// payload.
type Range struct {
	Start   uint64
	Size    uint64
	Payload interface{}
}

// End returns the exclusive end of the range.
func (r Range) End() uint64 {
	return r.Start + r.Size
}

// Contains reports whether offset falls within [Start, End).
func (r Range) Contains(offset uint64) bool {
	return offset >= r.Start && offset < r.End()
}

// List is an ordered, non-overlapping set of Ranges.
type List struct {
	ranges []Range
}

// New returns an empty List.
func New() *List {
	return &List{}
}

// Append adds a range to the end of the list. Callers (the bitmap walkers
// in pkg/store) are expected to emit ranges in increasing offset order, the
// same way the current/previous bitmap chains are walked in increasing
// original-offset order; Append does not re-sort.
func (l *List) Append(start, size uint64, payload interface{}) {
	if size == 0 {
		return
	}
	l.ranges = append(l.ranges, Range{Start: start, Size: size, Payload: payload})
}

// Len returns the number of ranges in the list.
func (l *List) Len() int {
	return len(l.ranges)
}

// At returns the i'th range.
func (l *List) At(i int) Range {
	return l.ranges[i]
}

// RangeAtOffset returns the range covering offset, if any, via binary
// search over the sorted start offsets.
func (l *List) RangeAtOffset(offset uint64) (Range, bool) {
	// Find the last range whose Start <= offset.
	i := sort.Search(len(l.ranges), func(i int) bool {
		return l.ranges[i].Start > offset
	})
	if i == 0 {
		return Range{}, false
	}
	r := l.ranges[i-1]
	if r.Contains(offset) {
		return r, true
	}
	return Range{}, false
}

// Covers reports whether offset is covered by any range in the list; an
// empty list covers nothing. The "no previous bitmap covers everything"
// rule is not applied here: pkg/store represents a missing previous bitmap
// as a nil list, and its read engine treats a nil list as covering every
// offset.
func (l *List) Covers(offset uint64) bool {
	_, ok := l.RangeAtOffset(offset)
	return ok
}
