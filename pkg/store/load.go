package store

import (
	"fmt"

	"github.com/deploymenttheory/go-vshadow/internal/rangelist"
	"github.com/deploymenttheory/go-vshadow/pkg/blockindex"
	"github.com/deploymenttheory/go-vshadow/pkg/codec"
	"github.com/deploymenttheory/go-vshadow/pkg/vserrors"
)

// ensureBlockDescriptorsLoaded lazily loads a store's bitmap, block-list,
// and block-range chains using a double-checked-locking pattern: a
// lock-free fast path checks the atomic "loaded" flag, and a write-locked
// slow path re-checks it after acquiring the lock before doing the actual
// chain walks.
func (s *Store) ensureBlockDescriptorsLoaded() error {
	if s.blockDescriptorsRead.Load() {
		return s.postLoadError()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.blockDescriptorsRead.Load() {
		return s.postLoadError()
	}

	if !s.hasInVolumeData {
		s.index = blockindex.New()
		s.blockOffsetList = rangelist.New()
		s.previousBlockOffsetList = rangelist.New()
		s.blockDescriptorsRead.Store(true)
		return nil
	}

	if err := s.loadLocked(); err != nil {
		s.unreadable = true
		s.loadErr = err
		s.blockDescriptorsRead.Store(true)
		s.logger.Error(err, "store block descriptor load failed; store is now header-only", "store", s.id.String())
		return unreadableErr()
	}

	s.blockDescriptorsRead.Store(true)
	return nil
}

func (s *Store) postLoadError() error {
	if s.unreadable {
		return unreadableErr()
	}
	return nil
}

// loadLocked walks every chain needed to populate the store's block index
// and range lists. Caller holds s.mu.
func (s *Store) loadLocked() error {
	s.index = blockindex.New()

	currentList, err := s.walkBitmapChain(s.locations.BitmapOffset)
	if err != nil {
		return fmt.Errorf("current bitmap chain: %w", err)
	}
	s.blockOffsetList = currentList

	if s.locations.PreviousBitmapOffset == 0 {
		// No previous bitmap chain: every offset is trivially "in the
		// previous bitmap". Represented as a nil list; see inPreviousBitmap.
		s.previousBlockOffsetList = nil
	} else {
		previousList, err := s.walkBitmapChain(s.locations.PreviousBitmapOffset)
		if err != nil {
			return fmt.Errorf("previous bitmap chain: %w", err)
		}
		s.previousBlockOffsetList = previousList
	}

	views, err := s.walkBlockListChain(s.locations.BlockListOffset)
	if err != nil {
		return fmt.Errorf("block list chain: %w", err)
	}
	s.blockViews = views

	if s.locations.BlockRangeListOffset != 0 {
		if _, err := s.walkBlockRangeChain(s.locations.BlockRangeListOffset); err != nil {
			return fmt.Errorf("block range list chain: %w", err)
		}
	}

	return nil
}

// walkBitmapChain follows a chain of STORE_BITMAP blocks starting at
// offset, accumulating a range list of [cursor_start, cursor) runs of set
// bits, each bit representing one codec.BlockSize-aligned slot of the
// original volume.
func (s *Store) walkBitmapChain(offset uint64) (*rangelist.List, error) {
	list := rangelist.New()
	if offset == 0 {
		return list, nil
	}

	var cursor uint64
	var runStart uint64
	inRun := false

	for offset != 0 {
		if s.abort.Aborted() {
			return nil, vserrors.New(vserrors.Cancelled, "bitmap chain walk aborted")
		}

		block := make([]byte, codec.BlockSize)
		if err := s.source.ReadAt(block, int64(offset)); err != nil {
			return nil, err
		}

		hdr, err := codec.DecodeStoreBlockHeader(block)
		if err != nil {
			return nil, err
		}
		if hdr.RecordType != codec.RecordTypeStoreBitmap {
			return nil, vserrors.New(vserrors.UnsupportedFormat, fmt.Sprintf("bitmap chain: unexpected record type %d", hdr.RecordType))
		}

		payload := block[codec.BlockHeaderSize:]
		for i := 0; i+4 <= len(payload); i += 4 {
			word := uint32(payload[i]) | uint32(payload[i+1])<<8 | uint32(payload[i+2])<<16 | uint32(payload[i+3])<<24
			for bit := 0; bit < 32; bit++ {
				set := word&(1<<uint(bit)) != 0
				if set && !inRun {
					runStart = cursor
					inRun = true
				} else if !set && inRun {
					list.Append(runStart, cursor-runStart, nil)
					inRun = false
				}
				cursor += codec.BlockSize
			}
		}

		offset = hdr.NextOffset
	}

	if inRun {
		list.Append(runStart, cursor-runStart, nil)
	}

	return list, nil
}

// walkBlockListChain follows a chain of STORE_INDEX blocks starting at
// offset, decoding each 32-byte block-list entry and inserting it into the
// store's BlockIndex.
func (s *Store) walkBlockListChain(offset uint64) ([]BlockView, error) {
	var views []BlockView
	if offset == 0 {
		return views, nil
	}

	for offset != 0 {
		if s.abort.Aborted() {
			return nil, vserrors.New(vserrors.Cancelled, "block list chain walk aborted")
		}

		block := make([]byte, codec.BlockSize)
		if err := s.source.ReadAt(block, int64(offset)); err != nil {
			return nil, err
		}

		hdr, err := codec.DecodeStoreBlockHeader(block)
		if err != nil {
			return nil, err
		}
		if hdr.RecordType != codec.RecordTypeStoreIndex {
			return nil, vserrors.New(vserrors.UnsupportedFormat, fmt.Sprintf("block list chain: unexpected record type %d", hdr.RecordType))
		}

		payload := block[codec.BlockHeaderSize:]
		for i := 0; i+codec.BlockListEntrySize <= len(payload); i += codec.BlockListEntrySize {
			entry, empty, err := codec.DecodeBlockListEntry(payload[i : i+codec.BlockListEntrySize])
			if err != nil {
				return nil, err
			}
			if empty {
				continue
			}
			d := blockindex.FromEntry(entry)
			s.index.Insert(d)
			if d.Flags&codec.FlagNotUsed == 0 {
				views = append(views, BlockView{
					OriginalOffset: entry.OriginalOffset,
					RelativeOffset: entry.RelativeOffset,
					Offset:         entry.Offset,
					Flags:          entry.Flags,
					Bitmap:         entry.Bitmap,
				})
			}
		}

		offset = hdr.NextOffset
	}

	return views, nil
}

// walkBlockRangeChain follows a chain of STORE_BLOCK_RANGE blocks starting
// at offset, decoding each 24-byte entry. These are parsed and returned for
// completeness but intentionally not consumed by the read engine; see
// DESIGN.md.
func (s *Store) walkBlockRangeChain(offset uint64) ([]codec.BlockRangeEntry, error) {
	var entries []codec.BlockRangeEntry
	if offset == 0 {
		return entries, nil
	}

	for offset != 0 {
		if s.abort.Aborted() {
			return nil, vserrors.New(vserrors.Cancelled, "block range chain walk aborted")
		}

		block := make([]byte, codec.BlockSize)
		if err := s.source.ReadAt(block, int64(offset)); err != nil {
			return nil, err
		}

		hdr, err := codec.DecodeStoreBlockHeader(block)
		if err != nil {
			return nil, err
		}
		if hdr.RecordType != codec.RecordTypeStoreBlockRange {
			return nil, vserrors.New(vserrors.UnsupportedFormat, fmt.Sprintf("block range chain: unexpected record type %d", hdr.RecordType))
		}

		payload := block[codec.BlockHeaderSize:]
		for i := 0; i+codec.BlockRangeEntrySize <= len(payload); i += codec.BlockRangeEntrySize {
			entry, empty, err := codec.DecodeBlockRangeEntry(payload[i : i+codec.BlockRangeEntrySize])
			if err != nil {
				return nil, err
			}
			if empty {
				continue
			}
			entries = append(entries, entry)
			s.logger.Trace("block range entry recorded (not applied)", "offset", entry.Offset, "relative_offset", entry.RelativeOffset, "size", entry.Size)
		}

		offset = hdr.NextOffset
	}

	return entries, nil
}

// EnsureHeaderLoaded loads the store information payload (shadow copy
// identifier, copy set identifier, attribute flags) from the STORE_HEADER
// block at locations.StoreHeaderOffset, if not already loaded. It is
// independent of block-descriptor loading: a caller can learn a store's
// copy identifiers without paying for the full bitmap/block-list walk.
func (s *Store) EnsureHeaderLoaded() error {
	s.mu.RLock()
	if s.headerLoaded {
		defer s.mu.RUnlock()
		return s.headerErr
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.headerLoaded {
		return s.headerErr
	}

	err := s.loadHeaderLocked()
	s.headerLoaded = true
	s.headerErr = err
	return err
}

func (s *Store) loadHeaderLocked() error {
	if !s.hasInVolumeData || s.locations.StoreHeaderOffset == 0 {
		return noLocationsErr()
	}

	block := make([]byte, codec.BlockSize)
	if err := s.source.ReadAt(block, int64(s.locations.StoreHeaderOffset)); err != nil {
		return err
	}

	hdr, err := codec.DecodeStoreBlockHeader(block)
	if err != nil {
		return err
	}
	if hdr.RecordType != codec.RecordTypeStoreHeader {
		return vserrors.New(vserrors.UnsupportedFormat, fmt.Sprintf("store header: unexpected record type %d", hdr.RecordType))
	}

	payloadStart := codec.StoreInformationOffset
	if len(block) < payloadStart+codec.StoreInformationSize {
		return vserrors.New(vserrors.Io, "store header: truncated store information payload")
	}
	info, err := codec.DecodeStoreInformation(block[payloadStart : payloadStart+codec.StoreInformationSize])
	if err != nil {
		return err
	}

	s.copyIdentifier = info.CopyIdentifier
	s.copySetIdentifier = info.CopySetIdentifier
	s.hasCopyIdentifier = true
	s.attributeFlags = info.AttributeFlags
	return nil
}
