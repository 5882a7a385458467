package scone

import "testing"

func TestTileCenterEmptyPlacementsIsZero(t *testing.T) {
	lat, lon, alt := tileCenter(TileIndex(42), map[Guid][]LibraryPlacement{})
	if lat != 0 || lon != 0 || alt != 0 {
		t.Errorf("expected (0,0,0) center for a tile with no placements, got (%v,%v,%v)", lat, lon, alt)
	}
}

func TestTileCenterAveragesOnlyMatchingTile(t *testing.T) {
	tile, err := GetTileIndex(10, 20)
	if err != nil {
		t.Fatalf("GetTileIndex: %v", err)
	}
	other, err := GetTileIndex(-10, -20)
	if err != nil {
		t.Fatalf("GetTileIndex: %v", err)
	}
	if tile == other {
		t.Fatalf("test fixture needs two distinct tiles")
	}

	placements := map[Guid][]LibraryPlacement{
		makeGuid(1): {
			{placementCommon: placementCommon{Latitude: 10, Longitude: 20, Altitude: 100}},
			{placementCommon: placementCommon{Latitude: 10, Longitude: 20, Altitude: 200}},
		},
		makeGuid(2): {
			{placementCommon: placementCommon{Latitude: -10, Longitude: -20, Altitude: 9999}},
		},
	}

	lat, lon, alt := tileCenter(tile, placements)
	if lat != 10 || lon != 20 {
		t.Errorf("expected the average over the matching tile's two placements, got lat=%v lon=%v", lat, lon)
	}
	if alt != 150 {
		t.Errorf("expected altitude average 150, got %v", alt)
	}
}

// emptyBglSource.ModelBytes always fails, modeling a tile whose model
// references resolve to nothing (the "empty-placement tile produces no
// output files" boundary case): AssembleTile must return a TileScene
// with no instances rather than erroring.
type emptyBglSource struct{}

func (emptyBglSource) ModelBytes(ref ModelReference) ([]byte, error) {
	return nil, ErrTruncatedRecord
}

func TestAssembleTileNoModelRefsProducesEmptyScene(t *testing.T) {
	tile := TileIndex(7)
	scene := AssembleTile(tile, nil, map[Guid][]LibraryPlacement{}, emptyBglSource{}, nil, nil, true, true)

	if scene.TileIndex != tile {
		t.Errorf("tile index: got %v, want %v", scene.TileIndex, tile)
	}
	if len(scene.GltfInstances) != 0 || len(scene.AcInstances) != 0 {
		t.Errorf("expected no instances for a tile with no model references")
	}
}

func TestAssembleTileUnresolvableModelBytesSkipped(t *testing.T) {
	tile := TileIndex(7)
	refs := []ModelReference{
		{Guid: makeGuid(1), SourceFile: "missing.bgl", ByteOffset: 0, ByteSize: 10},
	}
	scene := AssembleTile(tile, refs, map[Guid][]LibraryPlacement{}, emptyBglSource{}, nil, nil, true, true)

	if len(scene.GltfInstances) != 0 || len(scene.AcInstances) != 0 {
		t.Errorf("expected no instances when every model reference fails to resolve")
	}
}

func TestAssembleTileCancelFlagReturnsEmptyScene(t *testing.T) {
	flags := &AbortFlags{}
	flags.Cancel()

	refs := []ModelReference{
		{Guid: makeGuid(1), SourceFile: "missing.bgl", ByteOffset: 0, ByteSize: 10},
	}
	scene := AssembleTile(TileIndex(7), refs, map[Guid][]LibraryPlacement{}, emptyBglSource{}, nil, flags, true, true)

	if scene.TileIndex != 0 || len(scene.GltfInstances) != 0 {
		t.Errorf("expected a zero-value TileScene once cancellation is observed, got %+v", scene)
	}
}
