package scone

import (
	"context"
	"log"
	"runtime"
	"sort"
	"sync"

	"github.com/alitto/pond"

	"github.com/naviat-dev/scone/search"
)

// Progress is the out-of-band observer a caller may supply to watch a
// conversion run, per §6's "progress reporting is out-of-band" note.
// Any field left nil is simply never called.
type Progress struct {
	BglWalked  func(path string, stats WalkStats)
	TileDone   func(tile TileIndex, index, total int)
}

// ConvertOptions configures one ConvertScenery run.
type ConvertOptions struct {
	InputUri  string
	OutputUri string
	ConfigUri string
	AssetRoot string
	Terrain   TerrainService
	EmitGltf  bool
	EmitAc3d  bool
	// Workers bounds the tile-assembly worker pool; 0 defaults to
	// 2*NumCPU, matching the teacher's fixed-pool sizing.
	Workers  int
	Flags    *AbortFlags
	Progress *Progress
}

// ConvertScenery runs the full two-pass pipeline described in §5 and
// §6: pass 1 walks every BGL found under InputUri collecting
// placements, airports and model records; pass 2 starts only once pass
// 1 has fully completed for every source file, and submits tiles in
// ascending tile-index order to a pool of Workers goroutines, so several
// tiles may be assembled and emitted at the same time.
func ConvertScenery(opts ConvertOptions) error {
	if opts.Terrain == nil {
		opts.Terrain = NullTerrainService{}
	}

	bglPaths, err := search.FindBGL(opts.InputUri, opts.ConfigUri)
	if err != nil {
		return err
	}

	var assetIndex *AssetIndex
	if opts.AssetRoot != "" {
		assetIndex, err = BuildAssetIndex(opts.AssetRoot)
		if err != nil {
			return err
		}
	}

	var allLibs []LibraryPlacement
	var allModels []ModelRecordRef

	for _, path := range bglPaths {
		if opts.Flags != nil && opts.Flags.ShouldCancel() {
			return nil
		}

		bgl, err := OpenBGL(path, opts.ConfigUri)
		if err != nil {
			log.Printf("scone: opening %s: %v", path, err)
			continue
		}

		result, err := bgl.Walk(opts.Terrain)
		bgl.Close()
		if err != nil {
			log.Printf("scone: walking %s: %v", path, err)
			continue
		}

		allLibs = append(allLibs, result.LibraryPlacements...)
		allModels = append(allModels, result.ModelRecords...)

		if opts.Progress != nil && opts.Progress.BglWalked != nil {
			opts.Progress.BglWalked(path, result.Stats)
		}
	}

	placementsByGuid := PlacementsByGuid(allLibs)
	index := BuildModelIndex(placementsByGuid, allModels)

	tiles := make([]TileIndex, 0, len(index.ReferencesByTile))
	for tile := range index.ReferencesByTile {
		tiles = append(tiles, tile)
	}
	sort.Slice(tiles, func(i, j int) bool { return tiles[i] < tiles[j] })

	source := newBglFileCache(opts.ConfigUri)
	defer source.Close()

	n := opts.Workers
	if n <= 0 {
		n = runtime.NumCPU() * 2
	}

	poolCtx, cancelPool := context.WithCancel(context.Background())
	defer cancelPool()
	pool := pond.New(n, 0, pond.MinWorkers(n), pond.Context(poolCtx))

	var done int
	var mu sync.Mutex

	for i, tile := range tiles {
		if opts.Flags != nil && opts.Flags.ShouldCancel() {
			break
		}
		if opts.Flags != nil && opts.Flags.ShouldSave() && i > 0 {
			break
		}

		tile := tile
		pool.Submit(func() {
			scene := AssembleTile(tile, index.ReferencesByTile[tile], placementsByGuid, source, assetIndex, opts.Flags, opts.EmitGltf, opts.EmitAc3d)

			if err := emitTile(scene, opts.OutputUri, opts.EmitGltf, opts.EmitAc3d); err != nil {
				log.Printf("scone: emitting tile %d: %v", tile, err)
			}

			if opts.Progress != nil && opts.Progress.TileDone != nil {
				mu.Lock()
				done++
				opts.Progress.TileDone(tile, done, len(tiles))
				mu.Unlock()
			}
		})
	}

	pool.StopAndWait()
	return nil
}

// emitTile writes a single assembled tile's output files: the glTF
// and/or AC3D geometry, the composite XML when both formats exist,
// and the .stg line that ties whichever file into FlightGear's scenery
// database (§4.12).
func emitTile(scene TileScene, outputRoot string, emitGltf, emitAc3d bool) error {
	hasGltf := emitGltf && len(scene.GltfInstances) > 0
	hasAc3d := emitAc3d && len(scene.AcInstances) > 0

	if hasGltf {
		if _, err := EmitGltf(scene, outputRoot); err != nil {
			return err
		}
	}
	if hasAc3d {
		if _, err := EmitAc3d(scene, outputRoot); err != nil {
			return err
		}
	}
	if hasGltf && hasAc3d {
		if _, err := EmitXmlModel(scene, outputRoot); err != nil {
			return err
		}
	}
	if hasGltf || hasAc3d {
		if _, err := EmitStg(scene, outputRoot, hasGltf, hasAc3d); err != nil {
			return err
		}
	}

	return nil
}
