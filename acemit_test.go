package scone

import (
	"os"
	"strings"
	"testing"
)

func TestEmitAc3dVertexDedup(t *testing.T) {
	// A quad built from two triangles sharing an edge: 4 distinct
	// positions, but listed 6 times across the two triangles. The
	// emitted vertex pool must collapse these to exactly 4 entries.
	mesh := MeshBuilder{
		Positions: [][3]float32{
			{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
		},
		TexCoords: [][2]float32{
			{0, 0}, {1, 0}, {1, 1}, {0, 1},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}

	scene := TileScene{
		TileIndex: TileIndex(1),
		AcInstances: []TileInstance{
			{Mesh: mesh, Transform: Identity4()},
		},
	}

	dir := t.TempDir()
	path, err := EmitAc3d(scene, dir)
	if err != nil {
		t.Fatalf("EmitAc3d: %v", err)
	}

	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading emitted file: %v", err)
	}
	text := string(body)

	if !strings.HasPrefix(text, "AC3Db\n") {
		t.Errorf("expected file to start with AC3Db magic line")
	}
	if !strings.Contains(text, "numvert 4\n") {
		t.Errorf("expected exactly 4 deduplicated vertices, file:\n%s", text)
	}
	if !strings.Contains(text, "numsurf 2\n") {
		t.Errorf("expected 2 surfaces, file:\n%s", text)
	}
	if !strings.Contains(text, "kids 1\n") {
		t.Errorf("expected OBJECT world to declare 1 kid, file:\n%s", text)
	}
}

func TestEmitAc3dMaterialDedup(t *testing.T) {
	mat := MaterialRef{BaseColor: [4]float64{1, 0, 0, 1}, RoughnessFactor: 0.5}

	mesh := func() MeshBuilder {
		return MeshBuilder{
			Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
			Indices:   []uint32{0, 1, 2},
			Material:  &mat,
		}
	}

	scene := TileScene{
		TileIndex: TileIndex(2),
		AcInstances: []TileInstance{
			{Mesh: mesh(), Transform: Identity4()},
			{Mesh: mesh(), Transform: Identity4()},
		},
	}

	dir := t.TempDir()
	path, err := EmitAc3d(scene, dir)
	if err != nil {
		t.Fatalf("EmitAc3d: %v", err)
	}

	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading emitted file: %v", err)
	}
	text := string(body)

	// DefaultWhite plus exactly one deduplicated material for both
	// instances, which share an identical MaterialRef.
	if strings.Count(text, "MATERIAL ") != 2 {
		t.Errorf("expected DefaultWhite + 1 deduplicated material, got:\n%s", text)
	}
}

func TestEmitAc3dSkipsDegenerateMesh(t *testing.T) {
	scene := TileScene{
		TileIndex: TileIndex(3),
		AcInstances: []TileInstance{
			{Mesh: MeshBuilder{Positions: [][3]float32{{0, 0, 0}}, Indices: []uint32{0}}, Transform: Identity4()},
		},
	}

	dir := t.TempDir()
	path, err := EmitAc3d(scene, dir)
	if err != nil {
		t.Fatalf("EmitAc3d: %v", err)
	}

	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading emitted file: %v", err)
	}
	if !strings.Contains(string(body), "kids 0\n") {
		t.Errorf("expected OBJECT world to declare 0 kids for a degenerate mesh, file:\n%s", string(body))
	}
}
