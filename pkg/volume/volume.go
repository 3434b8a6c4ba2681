// Package volume implements Volume: the top-level handle that decodes the
// volume header, loads the catalog, and exposes the ordered list of
// per-snapshot stores.
package volume

import (
	"sync"

	"github.com/deploymenttheory/go-vshadow/pkg/catalog"
	"github.com/deploymenttheory/go-vshadow/pkg/codec"
	"github.com/deploymenttheory/go-vshadow/pkg/guid"
	"github.com/deploymenttheory/go-vshadow/pkg/ioutil2/bytesource"
	"github.com/deploymenttheory/go-vshadow/pkg/store"
	"github.com/deploymenttheory/go-vshadow/pkg/vserrors"
	"github.com/deploymenttheory/go-vshadow/pkg/vsslog"
	"github.com/deploymenttheory/go-vshadow/pkg/vssopts"
)

// Volume is an opened VSS-bearing volume: its header identity and the
// ordered, chained set of stores found in its catalog.
type Volume struct {
	mu sync.RWMutex

	source bytesource.Source
	opts   vssopts.Options

	header codec.VolumeHeader
	stores []*store.Store

	closed bool
}

// Open decodes the volume header at the configured volume offset, loads
// the catalog chain, and returns a ready-to-use Volume. src is addressed
// with volume-relative offsets; callers embedding VSS inside a larger
// image should wrap their source with bytesource.Offset first, or pass
// vssopts.WithVolumeOffset to have Open do it.
func Open(src bytesource.Source, opts ...vssopts.Option) (*Volume, error) {
	o := vssopts.Apply(opts...)

	effective := src
	if o.VolumeOffset != 0 {
		size, err := src.Size()
		if err != nil {
			return nil, err
		}
		effective = bytesource.Offset(src, o.VolumeOffset, size-o.VolumeOffset)
	}

	size, err := effective.Size()
	if err != nil {
		return nil, err
	}

	block := make([]byte, codec.VolumeHeaderSize)
	if err := effective.ReadAt(block, 0); err != nil {
		return nil, err
	}
	hdr, err := codec.DecodeVolumeHeader(block)
	if err != nil {
		return nil, err
	}

	stores, err := catalog.Load(effective, hdr.CatalogOffset, uint64(size), o.Logger, o.AbortToken)
	if err != nil {
		return nil, err
	}

	o.Logger.Info("volume opened", "volume_identifier", hdr.VolumeIdentifier.String(), "store_count", len(stores))

	return &Volume{
		source: effective,
		opts:   o,
		header: hdr,
		stores: stores,
	}, nil
}

// Close releases the underlying byte source. A Volume must not be used
// after Close.
func (v *Volume) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	v.closed = true
	return v.source.Close()
}

// Identifier returns the volume's own GUID (distinct from any store's
// identifier).
func (v *Volume) Identifier() guid.GUID {
	return v.header.VolumeIdentifier
}

// StoreVolumeIdentifier returns the identifier of the volume's shadow copy
// storage area.
func (v *Volume) StoreVolumeIdentifier() guid.GUID {
	return v.header.StoreVolumeIdentifier
}

// Size returns the live volume's size in bytes.
func (v *Volume) Size() (uint64, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.closed {
		return 0, vserrors.New(vserrors.State, "volume is closed")
	}
	n, err := v.source.Size()
	if err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// StoreCount returns the number of stores found in the catalog.
func (v *Volume) StoreCount() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.stores)
}

// Store returns the i'th store in creation-time order (0 is oldest).
func (v *Volume) Store(i int) (*store.Store, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.closed {
		return nil, vserrors.New(vserrors.State, "volume is closed")
	}
	if i < 0 || i >= len(v.stores) {
		return nil, vserrors.New(vserrors.Argument, "store index out of range")
	}
	return v.stores[i], nil
}

// StoreIdentifier returns the i'th store's GUID without needing a full
// *store.Store lookup.
func (v *Volume) StoreIdentifier(i int) (guid.GUID, error) {
	s, err := v.Store(i)
	if err != nil {
		return guid.Zero, err
	}
	return s.Identifier(), nil
}

// StoreByIdentifier returns the store with the given GUID, or an Argument
// error if none matches.
func (v *Volume) StoreByIdentifier(id guid.GUID) (*store.Store, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.closed {
		return nil, vserrors.New(vserrors.State, "volume is closed")
	}
	for _, s := range v.stores {
		if s.Identifier() == id {
			return s, nil
		}
	}
	return nil, vserrors.New(vserrors.Argument, "no store with that identifier")
}

// ReadVolume reads len(buf) bytes of the live (current) volume at offset,
// bypassing every store, for direct access to the present-day volume
// contents. The store read engine does not call it; it reads the same
// byte source directly.
func (v *Volume) ReadVolume(buf []byte, offset int64) error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.closed {
		return vserrors.New(vserrors.State, "volume is closed")
	}
	return v.source.ReadAt(buf, offset)
}
