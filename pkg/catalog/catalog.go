// Package catalog walks the chain of catalog blocks rooted at the volume
// header's catalog offset, pairing each store's type-2 (identity) and
// type-3 (locations) entries by GUID into a chained, creation-time-ordered
// list of *store.Store values.
package catalog

import (
	"sort"

	"github.com/deploymenttheory/go-vshadow/pkg/codec"
	"github.com/deploymenttheory/go-vshadow/pkg/filetime"
	"github.com/deploymenttheory/go-vshadow/pkg/guid"
	"github.com/deploymenttheory/go-vshadow/pkg/ioutil2/bytesource"
	"github.com/deploymenttheory/go-vshadow/pkg/store"
	"github.com/deploymenttheory/go-vshadow/pkg/vserrors"
	"github.com/deploymenttheory/go-vshadow/pkg/vsslog"
	"github.com/deploymenttheory/go-vshadow/pkg/vssopts"
)

// Load walks the catalog block chain starting at catalogOffset, decoding
// every entry and assembling the full set of stores. The returned slice is
// ordered by creation time ascending and already chained via
// Store.SetChain.
//
// A locations entry (type 3) whose GUID does not match any identity entry
// (type 2) already seen is logged and skipped rather than failing the
// whole load: a single corrupt or out-of-order catalog entry should not
// make every other snapshot in the volume unreachable.
func Load(source bytesource.Source, catalogOffset uint64, liveVolumeSize uint64, logger *vsslog.Logger, abort *vssopts.AbortToken) ([]*store.Store, error) {
	if logger == nil {
		logger = vsslog.Discard()
	}

	byID := make(map[guid.GUID]*store.Store)
	var order []*store.Store
	var lastIdentity *store.Store

	offset := catalogOffset
	for offset != 0 {
		if abort.Aborted() {
			return nil, vserrors.New(vserrors.Cancelled, "catalog chain walk aborted")
		}

		block := make([]byte, codec.BlockSize)
		if err := source.ReadAt(block, int64(offset)); err != nil {
			return nil, err
		}

		hdr, err := codec.DecodeCatalogHeader(block)
		if err != nil {
			return nil, err
		}

		payload := block[codec.BlockHeaderSize:]
		for i := 0; i+codec.CatalogEntrySize <= len(payload); i += codec.CatalogEntrySize {
			entry, err := codec.DecodeCatalogEntry(payload[i : i+codec.CatalogEntrySize])
			if err != nil {
				logger.Error(err, "catalog entry skipped")
				continue
			}

			switch entry.Kind {
			case codec.CatalogEntryPadding:
				// No data.

			case codec.CatalogEntryIdentity:
				s := store.New(entry.StoreGUID, entry.VolumeSize, filetime.FILETIME(entry.CreationTime), source, liveVolumeSize, logger, abort)
				if _, dup := byID[entry.StoreGUID]; dup {
					logger.Error(vserrors.New(vserrors.UnsupportedFormat, "duplicate store identity entry"), "replacing previous entry", "store", entry.StoreGUID.String())
				}
				byID[entry.StoreGUID] = s
				order = append(order, s)
				lastIdentity = s

			case codec.CatalogEntryLocations:
				s, ok := byID[entry.StoreGUID]
				if !ok {
					logger.Error(vserrors.New(vserrors.UnsupportedFormat, "locations entry with no matching identity entry"), "entry skipped", "store", entry.StoreGUID.String())
					continue
				}
				if lastIdentity != s {
					logger.Debug("identity/locations entries are not adjacent in the catalog", "store", entry.StoreGUID.String())
				}
				s.SetLocations(store.Locations{
					BlockListOffset:      entry.BlockListOffset,
					StoreHeaderOffset:    entry.StoreHeaderOffset,
					BlockRangeListOffset: entry.BlockRangeListOffset,
					BitmapOffset:         entry.BitmapOffset,
					PreviousBitmapOffset: entry.PreviousBitmapOffset,
				})
			}
		}

		offset = hdr.NextOffset
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].CreationTime() < order[j].CreationTime()
	})

	for i, s := range order {
		var prev, next *store.Store
		if i > 0 {
			prev = order[i-1]
		}
		if i+1 < len(order) {
			next = order[i+1]
		}
		s.SetChain(prev, next)
	}

	return order, nil
}
