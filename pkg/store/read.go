package store

import (
	"io"

	"github.com/deploymenttheory/go-vshadow/pkg/blockindex"
	"github.com/deploymenttheory/go-vshadow/pkg/codec"
	"github.com/deploymenttheory/go-vshadow/pkg/vserrors"
)

// ReadAt resolves [offset, offset+len(buf)) to a sequence of 16 KiB-bounded
// sub-ranges, dispatching each to the correct backing store, the live
// volume, or zero, following forwarder chains recursively across the store
// chain.
//
// ReadAt returns a clean EOF (0, nil) once offset reaches or exceeds the
// store's volume size. It never returns a partial read alongside an error:
// on error, the bytes already written into buf up to that point are
// discarded from the return count.
func (s *Store) ReadAt(buf []byte, offset int64) (int, error) {
	if offset < 0 {
		return 0, vserrors.New(vserrors.Argument, "negative offset")
	}
	if uint64(offset) >= s.VolumeSize() {
		return 0, nil
	}
	n, err := s.readAt(buf, uint64(offset), s)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// readAt is the recursive engine entry point; active is the store the
// caller originally requested, carried through unchanged across delegation
// so only it is eligible for the zero-fill rule.
func (s *Store) readAt(buf []byte, offset uint64, active *Store) (int, error) {
	if err := s.ensureBlockDescriptorsLoaded(); err != nil {
		return 0, err
	}

	total := 0
	length := len(buf)

	for length > 0 {
		if s.abort.Aborted() {
			return total, vserrors.New(vserrors.Cancelled, "read aborted")
		}

		relative := offset % codec.BlockSize
		slotBase := offset - relative
		blockSize := uint64(codec.BlockSize - relative)

		s.mu.RLock()
		d, found := s.index.LookupForward(slotBase)
		var dCopy blockindex.BlockDescriptor
		if found {
			dCopy = *d
			if d.Overlay != nil {
				ov := *d.Overlay
				dCopy.Overlay = &ov
			}
		}
		_, inReverse := s.index.LookupReverse(slotBase)
		inCurrentBitmap := s.blockOffsetList.Covers(slotBase)
		inPreviousBitmap := s.previousBlockOffsetList == nil || s.previousBlockOffsetList.Covers(slotBase)
		s.mu.RUnlock()

		n := uint64(length)
		if blockSize < n {
			n = blockSize
		}

		var (
			readFromSource bool
			sourcePhysical uint64
			delegate       *Store
			delegatePhys   uint64
			zeroFill       bool
			notFound       = !found
		)

		if found {
			primary, overlay := splitPrimaryOverlay(&dCopy)

			resolvePrimary := func() (isForwarder bool, physical uint64, ok bool) {
				if primary == nil {
					return false, 0, false
				}
				if primary.IsForwarder() {
					return true, primary.RelativeOffset + relative, true
				}
				return false, primary.Offset + relative, true
			}

			if overlay != nil {
				runLen, setBit := overlayRun(overlay.Bitmap, relative, n)
				n = runLen
				if setBit {
					sourcePhysical = overlay.Offset + relative
					readFromSource = true
				} else if isFwd, phys, ok := resolvePrimary(); ok {
					if isFwd && s.next != nil {
						delegate = s.next
						delegatePhys = phys
					} else {
						sourcePhysical = phys
						readFromSource = true
					}
				} else if active == s {
					// Only candidate was the overlay and this store is
					// the one originally requested: fall back to the
					// live volume, matching the "otherwise" branch.
					sourcePhysical = offset
					readFromSource = true
				} else {
					// Only candidate was the overlay and this is not the
					// active store: treat as not found.
					notFound = true
				}
			} else if isFwd, phys, ok := resolvePrimary(); ok {
				if isFwd && s.next != nil {
					delegate = s.next
					delegatePhys = phys
				} else {
					sourcePhysical = phys
					readFromSource = true
				}
			}
		}

		if notFound {
			switch {
			case s.next != nil:
				delegate = s.next
				delegatePhys = offset
			case active == s && !inReverse && inCurrentBitmap && inPreviousBitmap:
				zeroFill = true
			default:
				sourcePhysical = offset
				readFromSource = true
			}
		}

		dst := buf[total : total+int(n)]
		var err error
		switch {
		case delegate != nil:
			var got int
			got, err = delegate.readAt(dst, delegatePhys, active)
			if err == nil && uint64(got) != n {
				err = vserrors.New(vserrors.Io, "short delegated read")
			}
		case zeroFill:
			for i := range dst {
				dst[i] = 0
			}
		case readFromSource:
			err = s.source.ReadAt(dst, int64(sourcePhysical))
		default:
			err = vserrors.New(vserrors.State, "read engine: no resolution for sub-range")
		}
		if err != nil {
			return total, err
		}

		total += int(n)
		offset += n
		length -= int(n)
	}

	return total, nil
}

// splitPrimaryOverlay separates a found forward-index entry into its
// primary descriptor (nil if d itself is a bare overlay with no sibling
// primary) and overlay descriptor (nil if none).
func splitPrimaryOverlay(d *blockindex.BlockDescriptor) (primary, overlay *blockindex.BlockDescriptor) {
	if d.IsOverlay() {
		return nil, d
	}
	return d, d.Overlay
}

// overlayRun determines, for a read starting `relative` bytes into the 16
// KiB block with at most `max` bytes remaining in the request, how many
// bytes belong to the same set/clear run of the overlay's 512-byte
// sub-block bitmap starting at that position, and whether that run is
// "set" (overlay data present) or "clear" (falls through to the primary).
func overlayRun(bitmap uint32, relative uint64, max uint64) (runLen uint64, set bool) {
	const subSize = 512
	subIndex := int(relative / subSize)
	set = bitmap&(1<<uint(subIndex)) != 0

	end := uint64(subIndex+1) * subSize
	for subIndex+1 < 32 {
		nextSet := bitmap&(1<<uint(subIndex+1)) != 0
		if nextSet != set {
			break
		}
		subIndex++
		end = uint64(subIndex+1) * subSize
	}

	runLen = end - relative
	if runLen > max {
		runLen = max
	}
	if runLen == 0 {
		runLen = max
	}
	return runLen, set
}

// Read and Seek implement io.Reader and io.Seeker over a per-store cursor
// (Store.cursor). Concurrent reads on the same store are serialized via the
// store's lock because each store maintains a single cursor.

// Seek implements io.Seeker. Seeking past the end of the volume is legal;
// only a negative resulting offset is an error.
func (s *Store) Seek(offset int64, whence int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = s.cursor
	case io.SeekEnd:
		base = int64(s.VolumeSize())
	default:
		return 0, vserrors.New(vserrors.Argument, "invalid whence")
	}

	newOffset := base + offset
	if newOffset < 0 {
		return 0, vserrors.New(vserrors.Argument, "negative resulting offset")
	}
	s.cursor = newOffset
	return newOffset, nil
}

// Read implements io.Reader against the store's cursor.
func (s *Store) Read(p []byte) (int, error) {
	s.mu.Lock()
	cur := s.cursor
	s.mu.Unlock()

	n, err := s.ReadAt(p, cur)
	if err != nil {
		return n, err
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}

	s.mu.Lock()
	s.cursor += int64(n)
	s.mu.Unlock()
	return n, nil
}
