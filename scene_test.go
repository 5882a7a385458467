package scone

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/qmuntal/gltf"
)

func u32(v uint32) *uint32 { return &v }

// buildTriangleDoc assembles a minimal *gltf.Document holding one node
// with one mesh, one primitive (a single triangle, no material), so
// ImportGltfScene has something concrete to walk.
func buildTriangleDoc() *gltf.Document {
	positions := [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}

	data := make([]byte, 0, 36+6)
	for _, p := range positions {
		for _, c := range p {
			b := make([]byte, 4)
			binary.LittleEndian.PutUint32(b, math.Float32bits(c))
			data = append(data, b...)
		}
	}
	idxOffset := uint32(len(data))
	for _, idx := range []uint16{0, 1, 2} {
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, idx)
		data = append(data, b...)
	}

	doc := &gltf.Document{
		Buffers: []*gltf.Buffer{{ByteLength: uint32(len(data)), Data: data}},
		BufferViews: []*gltf.BufferView{
			{Buffer: 0, ByteOffset: 0, ByteLength: 36},
			{Buffer: 0, ByteOffset: idxOffset, ByteLength: 6},
		},
		Accessors: []*gltf.Accessor{
			{BufferView: u32(0), ComponentType: gltf.ComponentFloat, Type: gltf.AccessorVec3, Count: 3},
			{BufferView: u32(1), ComponentType: gltf.ComponentUshort, Type: gltf.AccessorScalar, Count: 3},
		},
		Meshes: []*gltf.Mesh{
			{Primitives: []*gltf.Primitive{
				{
					Attributes: gltf.Attribute{gltf.POSITION: 0},
					Indices:    u32(1),
				},
			}},
		},
		Nodes: []*gltf.Node{
			{Mesh: u32(0)},
		},
	}
	return doc
}

func TestImportGltfSceneSingleTriangle(t *testing.T) {
	doc := buildTriangleDoc()
	scene := ImportGltfScene(doc, nil, "tree.glb")

	if len(scene.Instances) != 1 {
		t.Fatalf("expected 1 mesh instance, got %d", len(scene.Instances))
	}
	inst := scene.Instances[0]
	if len(inst.Mesh.Positions) != 3 {
		t.Errorf("expected 3 positions, got %d", len(inst.Mesh.Positions))
	}
	if len(inst.Mesh.Indices) != 3 {
		t.Errorf("expected 3 indices, got %d", len(inst.Mesh.Indices))
	}
	if inst.Transform != Identity4() {
		t.Errorf("expected identity transform for a node with no TRS/matrix set, got %+v", inst.Transform)
	}
}

func TestImportGltfSceneSkipsSubTriangleIndexCount(t *testing.T) {
	doc := buildTriangleDoc()
	// truncate the index accessor to 2 indices, below the 3-index floor
	doc.Accessors[1].Count = 2

	scene := ImportGltfScene(doc, nil, "tree.glb")
	if len(scene.Instances) != 0 {
		t.Errorf("expected no instances for a primitive with fewer than 3 indices, got %d", len(scene.Instances))
	}
}

func TestLocalNodeTransformDefaultsToIdentity(t *testing.T) {
	node := &gltf.Node{}
	if got := localNodeTransform(node); got != Identity4() {
		t.Errorf("expected identity for a node with no matrix/TRS set, got %+v", got)
	}
}

func TestQuaternionMat4ZeroNormIsIdentity(t *testing.T) {
	if got := quaternionMat4(0, 0, 0, 0); got != Identity4() {
		t.Errorf("expected identity for a zero-norm quaternion, got %+v", got)
	}
}
