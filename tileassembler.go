package scone

import (
	"log"
	"sort"
	"sync"
)

// TileInstance is one mesh primitive instanced into a tile, already
// carrying the combined node-local * placement world transform.
type TileInstance struct {
	Mesh      MeshBuilder
	Transform Mat4
}

// TileScene is everything TileAssembler gathered for one tile, ready
// to hand to GltfEmitter and/or AcEmitter (§4.9).
type TileScene struct {
	TileIndex TileIndex

	CenterLat float64
	CenterLon float64
	CenterAlt float64

	GltfInstances []TileInstance
	AcInstances   []TileInstance
}

// BglSource resolves a ModelReference's raw bytes, reopening the
// source BGL file if it isn't already held open. Kept as an interface
// so the assembler doesn't need to know about TileDB VFS details.
type BglSource interface {
	ModelBytes(ref ModelReference) ([]byte, error)
}

// bglFileCache opens each BGL referenced by a tile's models at most
// once and serves ModelBytes from whichever file a reference names.
// Safe for concurrent use by a tile worker pool: distinct tiles
// commonly share source BGLs (a library placed across many tiles), so
// the open map is guarded rather than given one per worker.
type bglFileCache struct {
	configUri string
	mu        sync.Mutex
	open      map[string]*BglFile
}

func newBglFileCache(configUri string) *bglFileCache {
	return &bglFileCache{configUri: configUri, open: make(map[string]*BglFile)}
}

func (c *bglFileCache) ModelBytes(ref ModelReference) ([]byte, error) {
	c.mu.Lock()
	f, ok := c.open[ref.SourceFile]
	if !ok {
		var err error
		f, err = OpenBGL(ref.SourceFile, c.configUri)
		if err != nil {
			c.mu.Unlock()
			return nil, err
		}
		c.open[ref.SourceFile] = f
	}
	c.mu.Unlock()

	return f.ModelBytes(ModelRecordRef{
		Guid:       ref.Guid,
		SourceFile: ref.SourceFile,
		ByteOffset: ref.ByteOffset,
		ByteSize:   ref.ByteSize,
	})
}

func (c *bglFileCache) Close() {
	for _, f := range c.open {
		f.Close()
	}
}

// AssembleTile implements §4.9: for a tile's set of model references,
// import each model's scene once, then instance it at every
// placement in the tile that shares its GUID. References are visited
// largest-byte-size first (heavier models favored, per §4.9's
// deterministic ordering).
func AssembleTile(
	tileIndex TileIndex,
	modelRefs []ModelReference,
	placementsByGuid map[Guid][]LibraryPlacement,
	source BglSource,
	assetIndex *AssetIndex,
	flags *AbortFlags,
	emitGltf, emitAc3d bool,
) TileScene {
	scene := TileScene{TileIndex: tileIndex}
	scene.CenterLat, scene.CenterLon, scene.CenterAlt = tileCenter(tileIndex, placementsByGuid)

	sorted := append([]ModelReference(nil), modelRefs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ByteSize > sorted[j].ByteSize })

	for _, ref := range sorted {
		if flags != nil && flags.ShouldCancel() {
			return TileScene{}
		}
		if flags != nil && flags.ShouldSave() {
			break
		}

		neutral, ok := importModel(ref, source, assetIndex)
		if !ok {
			continue
		}

		for _, placement := range placementsByGuid[ref.Guid] {
			tile, err := placement.TileIndex()
			if err != nil || tile != tileIndex {
				continue
			}

			gltfPlacement := PlacementTransform(placement, scene.CenterLat, scene.CenterLon, scene.CenterAlt)

			for _, instance := range neutral.Instances {
				combined := Mul4(instance.Transform, gltfPlacement)
				if !IsFiniteMat4(combined) {
					continue
				}

				if emitGltf {
					scene.GltfInstances = append(scene.GltfInstances, TileInstance{Mesh: instance.Mesh, Transform: combined})
				}
				if emitAc3d {
					scene.AcInstances = append(scene.AcInstances, TileInstance{Mesh: instance.Mesh, Transform: AcTransform(combined)})
				}
			}
		}
	}

	return scene
}

func importModel(ref ModelReference, source BglSource, assetIndex *AssetIndex) (NeutralScene, bool) {
	raw, err := source.ModelBytes(ref)
	if err != nil {
		log.Printf("scone: model %s in %s: %v", ref.Guid, ref.SourceFile, err)
		return NeutralScene{}, false
	}

	model, err := WalkRiff(raw)
	if err != nil {
		log.Printf("scone: model %s in %s: %v", ref.Guid, ref.SourceFile, err)
		return NeutralScene{}, false
	}

	doc, _, err := DecodeGlb(model.Glb)
	if err != nil {
		log.Printf("scone: model %s in %s: decoding GLB: %v", ref.Guid, ref.SourceFile, err)
		return NeutralScene{}, false
	}

	return ImportGltfScene(doc, assetIndex, ref.SourceFile), true
}

// tileCenter computes the arithmetic mean of (lat, lon, alt) over
// every library placement whose tile index equals tileIndex, or
// (0,0,0) if there are none (§4.9).
func tileCenter(tileIndex TileIndex, placementsByGuid map[Guid][]LibraryPlacement) (lat, lon, alt float64) {
	var count int
	for _, placements := range placementsByGuid {
		for _, p := range placements {
			tile, err := p.TileIndex()
			if err != nil || tile != tileIndex {
				continue
			}
			lat += p.Latitude
			lon += p.Longitude
			alt += p.Altitude
			count++
		}
	}
	if count == 0 {
		return 0, 0, 0
	}
	return lat / float64(count), lon / float64(count), alt / float64(count)
}
