// Package store implements per-snapshot store identity and metadata, lazy
// loading of the block-descriptor indexes and range lists, and the
// byte-range read engine that dispatches each 16 KiB sub-range to the
// correct backing store, the live volume, or zero.
package store

import (
	"sync"
	"sync/atomic"

	"github.com/deploymenttheory/go-vshadow/internal/rangelist"
	"github.com/deploymenttheory/go-vshadow/pkg/blockindex"
	"github.com/deploymenttheory/go-vshadow/pkg/filetime"
	"github.com/deploymenttheory/go-vshadow/pkg/guid"
	"github.com/deploymenttheory/go-vshadow/pkg/ioutil2/bytesource"
	"github.com/deploymenttheory/go-vshadow/pkg/vsslog"
	"github.com/deploymenttheory/go-vshadow/pkg/vssopts"
)

// BlockView is the read-only public view of one decoded block descriptor,
// returned by Store.Block for introspection.
type BlockView struct {
	OriginalOffset uint64
	RelativeOffset uint64
	Offset         uint64
	Flags          uint32
	Bitmap         uint32
}

// Locations holds the per-store metadata block offsets decoded from a
// catalog type-3 (locations) entry.
type Locations struct {
	BlockListOffset      uint64
	StoreHeaderOffset    uint64
	BlockRangeListOffset uint64
	BitmapOffset         uint64
	PreviousBitmapOffset uint64
}

// Store is one snapshot: identity fields known from catalog load, plus
// lazily-populated block indexes, range lists, and store-header metadata.
type Store struct {
	mu sync.RWMutex

	source bytesource.Source
	logger *vsslog.Logger
	abort  *vssopts.AbortToken

	id              guid.GUID
	volumeSize      uint64
	liveVolumeSize  uint64
	creationTime    filetime.FILETIME
	hasInVolumeData bool

	locations Locations

	headerLoaded      bool
	headerErr         error
	copyIdentifier    guid.GUID
	copySetIdentifier guid.GUID
	hasCopyIdentifier bool
	attributeFlags    uint32

	blockDescriptorsRead atomic.Bool
	loadErr              error
	unreadable           bool

	index                   *blockindex.Index
	blockOffsetList         *rangelist.List
	previousBlockOffsetList *rangelist.List
	blockViews              []BlockView

	previous *Store
	next     *Store

	// cursor backs the io.Reader/io.Seeker surface in read.go; unused by
	// ReadAt, which is stateless.
	cursor int64
}

// New constructs a Store from its catalog type-2 identity fields. Until its
// type-3 locations are applied via SetLocations it has no in-volume data:
// its block index stays empty and reads resolve through newer stores or
// the live volume.
func New(id guid.GUID, volumeSize uint64, creationTime filetime.FILETIME, source bytesource.Source, liveVolumeSize uint64, logger *vsslog.Logger, abort *vssopts.AbortToken) *Store {
	if logger == nil {
		logger = vsslog.Discard()
	}
	return &Store{
		source:         source,
		logger:         logger,
		abort:          abort,
		id:             id,
		volumeSize:     volumeSize,
		liveVolumeSize: liveVolumeSize,
		creationTime:   creationTime,
	}
}

// SetLocations applies a catalog type-3 entry's metadata block offsets,
// promoting the store to "has in-volume data".
func (s *Store) SetLocations(loc Locations) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations = loc
	s.hasInVolumeData = true
}

// SetChain links s between its creation-time neighbors.
func (s *Store) SetChain(previous, next *Store) {
	s.previous = previous
	s.next = next
}

// Next returns the next (newer) store in creation order, or nil.
func (s *Store) Next() *Store { return s.next }

// Previous returns the previous (older) store in creation order, or nil.
func (s *Store) Previous() *Store { return s.previous }

// Identifier returns the store's GUID.
func (s *Store) Identifier() guid.GUID { return s.id }

// CreationTime returns the store's creation FILETIME.
func (s *Store) CreationTime() filetime.FILETIME { return s.creationTime }

// HasInVolumeData reports whether this store's catalog type-3 entry has
// been applied, i.e. whether it has any data of its own in the VSS area.
func (s *Store) HasInVolumeData() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasInVolumeData
}

// VolumeSize returns the logical volume size as of this snapshot's
// creation time (the catalog type-2 entry's volume size field).
func (s *Store) VolumeSize() uint64 {
	return s.volumeSize
}

// Size returns the size of the underlying live volume, matching
// libvshadow's store_get_size (which delegates to the volume's size
// rather than the per-store snapshot size).
func (s *Store) Size() uint64 {
	return s.liveVolumeSize
}

// AttributeFlags returns the store information attribute flags, lazily
// loading the store header if needed; see EnsureHeaderLoaded. Returns 0 if
// the header is unavailable.
func (s *Store) AttributeFlags() uint32 {
	_ = s.EnsureHeaderLoaded()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attributeFlags
}

// CopyIdentifier returns the shadow copy identifier and whether it is
// available (it is unavailable until the store header has been loaded). It
// attempts to lazily load the store header; a load failure simply means
// the identifier stays unavailable, it is not propagated as an error.
func (s *Store) CopyIdentifier() (guid.GUID, bool) {
	_ = s.EnsureHeaderLoaded()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyIdentifier, s.hasCopyIdentifier
}

// CopySetIdentifier returns the shadow copy set identifier and whether it
// is available, with the same lazy-load behavior as CopyIdentifier.
func (s *Store) CopySetIdentifier() (guid.GUID, bool) {
	_ = s.EnsureHeaderLoaded()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copySetIdentifier, s.hasCopyIdentifier
}

// BlockCount returns the number of block descriptors enumerated while
// loading this store. Triggers a load if one has not happened yet.
func (s *Store) BlockCount() (int, error) {
	if err := s.ensureBlockDescriptorsLoaded(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blockViews), nil
}

// Block returns the i'th enumerated block descriptor.
func (s *Store) Block(i int) (BlockView, error) {
	if err := s.ensureBlockDescriptorsLoaded(); err != nil {
		return BlockView{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.blockViews) {
		return BlockView{}, outOfRange(i, len(s.blockViews))
	}
	return s.blockViews[i], nil
}
