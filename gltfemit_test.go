package scone

import (
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
)

func TestEmitGltfImageArrayUniqueByUri(t *testing.T) {
	mat := MaterialRef{BaseColor: [4]float64{1, 1, 1, 1}, BaseColorTexturePath: "/assets/tex.png"}

	mesh := func() MeshBuilder {
		return MeshBuilder{
			Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
			TexCoords: [][2]float32{{0, 0}, {1, 0}, {0, 1}},
			Indices:   []uint32{0, 1, 2},
			Material:  &mat,
		}
	}

	scene := TileScene{
		TileIndex: TileIndex(5),
		GltfInstances: []TileInstance{
			{Mesh: mesh(), Transform: Identity4()},
			{Mesh: mesh(), Transform: Identity4()},
		},
	}

	dir := t.TempDir()
	path, err := EmitGltf(scene, dir)
	if err != nil {
		t.Fatalf("EmitGltf: %v", err)
	}

	doc, err := gltf.Open(path)
	if err != nil {
		t.Fatalf("re-opening emitted glTF: %v", err)
	}

	if len(doc.Images) != 1 {
		t.Errorf("expected exactly 1 deduplicated image, got %d", len(doc.Images))
	}
	if len(doc.Materials) != 1 {
		t.Errorf("expected exactly 1 deduplicated material, got %d", len(doc.Materials))
	}
	if len(doc.Nodes) != 2 {
		t.Errorf("expected 2 node instances, got %d", len(doc.Nodes))
	}
}

func TestEmitGltfSkipsDegenerateMesh(t *testing.T) {
	scene := TileScene{
		TileIndex: TileIndex(6),
		GltfInstances: []TileInstance{
			{Mesh: MeshBuilder{Positions: [][3]float32{{0, 0, 0}}, Indices: []uint32{0}}, Transform: Identity4()},
		},
	}

	dir := t.TempDir()
	path, err := EmitGltf(scene, dir)
	if err != nil {
		t.Fatalf("EmitGltf: %v", err)
	}

	doc, err := gltf.Open(path)
	if err != nil {
		t.Fatalf("re-opening emitted glTF: %v", err)
	}
	if len(doc.Meshes) != 0 {
		t.Errorf("expected no meshes emitted for a degenerate mesh, got %d", len(doc.Meshes))
	}
}

func TestTileOutputDirBucketsBySign(t *testing.T) {
	dir := TileOutputDir("/out", -33.9, 151.2)
	want := filepath.Join("/out", "Objects", "e150", "s30", "e151", "s33")
	if dir != want {
		t.Errorf("TileOutputDir(-33.9, 151.2): got %q, want %q", dir, want)
	}
}
