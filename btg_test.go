package scone

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestDecodeBTGInvalidHeader(t *testing.T) {
	if _, err := DecodeBTG([]byte{0, 0, 0, 0}); err != ErrInvalidHeader {
		t.Errorf("expected ErrInvalidHeader for a too-short stream, got %v", err)
	}

	bad := make([]byte, 8)
	binary.LittleEndian.PutUint16(bad[2:4], 0xDEAD)
	if _, err := DecodeBTG(bad); err != ErrInvalidHeader {
		t.Errorf("expected ErrInvalidHeader for wrong magic, got %v", err)
	}
}

// buildBoundingSphereBTG constructs the smallest well-formed BTG
// stream: a header declaring one object with zero properties and one
// element (a bounding-sphere record), so DecodeBTG has something
// concrete to parse without needing a full vertex/triangle mesh.
func buildBoundingSphereBTG() []byte {
	var buf []byte
	header := make([]byte, 8)
	binary.LittleEndian.PutUint16(header[2:4], btgMagic)
	binary.LittleEndian.PutUint16(header[6:8], 1) // objectCount
	buf = append(buf, header...)

	objHdr := make([]byte, 5)
	objHdr[0] = btgObjBoundingSphere
	binary.LittleEndian.PutUint16(objHdr[1:3], 0) // propCount
	binary.LittleEndian.PutUint16(objHdr[3:5], 1) // elemCount
	buf = append(buf, objHdr...)

	elem := make([]byte, 28)
	binary.LittleEndian.PutUint64(elem[0:8], math.Float64bits(100))
	binary.LittleEndian.PutUint64(elem[8:16], math.Float64bits(200))
	binary.LittleEndian.PutUint64(elem[16:24], math.Float64bits(300))
	binary.LittleEndian.PutUint32(elem[24:28], math.Float32bits(50))

	elemHdr := make([]byte, 4)
	binary.LittleEndian.PutUint32(elemHdr, uint32(len(elem)))
	buf = append(buf, elemHdr...)
	buf = append(buf, elem...)

	return buf
}

func TestDecodeBTGBoundingSphere(t *testing.T) {
	mesh, err := DecodeBTG(buildBoundingSphereBTG())
	if err != nil {
		t.Fatalf("DecodeBTG: %v", err)
	}
	if mesh.Center != (Ecef{X: 100, Y: 200, Z: 300}) {
		t.Errorf("center: got %+v", mesh.Center)
	}
	if math.Abs(float64(mesh.Radius)-50) > 1e-4 {
		t.Errorf("radius: got %v, want 50", mesh.Radius)
	}
}

func TestDecodeBTGElementSizeZeroIsNoop(t *testing.T) {
	var buf []byte
	header := make([]byte, 8)
	binary.LittleEndian.PutUint16(header[2:4], btgMagic)
	binary.LittleEndian.PutUint16(header[6:8], 1)
	buf = append(buf, header...)

	objHdr := make([]byte, 5)
	objHdr[0] = btgObjVertexList
	binary.LittleEndian.PutUint16(objHdr[3:5], 1)
	buf = append(buf, objHdr...)

	// a zero-length element: the 4-byte size prefix is 0, no payload follows.
	buf = append(buf, 0, 0, 0, 0)

	mesh, err := DecodeBTG(buf)
	if err != nil {
		t.Fatalf("DecodeBTG: %v", err)
	}
	if len(mesh.Vertices) != 0 {
		t.Errorf("expected no vertices from a zero-size element, got %d", len(mesh.Vertices))
	}
}

func TestBtgTriangleTupleSlots(t *testing.T) {
	if got := btgTriangleTupleSlots(0); got != 4 {
		t.Errorf("indexFlags=0: got %d, want 4", got)
	}
	if got := btgTriangleTupleSlots(1 | 2); got != 2 {
		t.Errorf("indexFlags=0x3: got %d, want 2", got)
	}
	if got := btgTriangleTupleSlots(0x10); got != 2 {
		t.Errorf("indexFlags with no recognised bits set: got %d, want fallback 2", got)
	}
}

func TestSampleAltitudeEmptyMesh(t *testing.T) {
	var mesh TerrainMesh
	if _, ok := mesh.SampleAltitude(Ecef{}); ok {
		t.Errorf("expected ok=false when the mesh has no vertices")
	}
}
