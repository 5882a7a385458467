package scone

import "github.com/samber/lo"

// ModelReference is a pointer to a model payload in a BGL: the GUID it
// was placed under, the BGL file it lives in, and its byte range
// within that file (§3).
type ModelReference struct {
	Guid       Guid
	SourceFile string
	ByteOffset int64
	ByteSize   int64
}

// ModelIndex is pass 2's product: every model reference actually
// needed (because some placement referenced its GUID), grouped by the
// tile each of its placements falls in.
type ModelIndex struct {
	ReferencesByTile map[TileIndex][]ModelReference
}

// BuildModelIndex joins the model records collected in pass 1 against
// the placements collected in the same pass, keeping only references
// whose GUID was actually placed somewhere, and grouping by the tile
// index of each placement that uses it (§3's ModelReferencesByTile,
// §8 "every model reference ... has guid ∈ PlacementsByGuid").
func BuildModelIndex(placementsByGuid map[Guid][]LibraryPlacement, modelRecords []ModelRecordRef) ModelIndex {
	index := ModelIndex{ReferencesByTile: make(map[TileIndex][]ModelReference)}

	referencesByGuid := lo.GroupBy(modelRecords, func(r ModelRecordRef) Guid { return r.Guid })

	for guid, placements := range placementsByGuid {
		refs, ok := referencesByGuid[guid]
		if !ok {
			continue
		}

		tiles := lo.Uniq(lo.FilterMap(placements, func(p LibraryPlacement, _ int) (TileIndex, bool) {
			tile, err := p.TileIndex()
			return tile, err == nil
		}))

		for _, tile := range tiles {
			for _, ref := range refs {
				index.ReferencesByTile[tile] = append(index.ReferencesByTile[tile], ModelReference{
					Guid:       ref.Guid,
					SourceFile: ref.SourceFile,
					ByteOffset: ref.ByteOffset,
					ByteSize:   ref.ByteSize,
				})
			}
		}
	}

	return index
}

// PlacementsByGuid groups library placements by GUID, the pass-1
// product ModelIndex joins against (§3).
func PlacementsByGuid(placements []LibraryPlacement) map[Guid][]LibraryPlacement {
	return lo.GroupBy(placements, func(p LibraryPlacement) Guid { return p.Guid })
}
