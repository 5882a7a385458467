package scone

import (
	"encoding/binary"
	"log"
	"math"
)

// btgMagic is the fixed magic word at byte offset 2 of a BTG stream
// (§4.6, §6).
const btgMagic = 0x5347

// btgObjAbsurdSize bounds prop/elem sizes the decoder will trust; past
// this the stream is considered corrupt and decoding aborts, returning
// whatever mesh was assembled so far (§4.6, §7 CorruptProperty/Element).
const btgObjAbsurdSize = 1e8

// btgAbsurdObjectCount bounds the declared object count (§4.6).
const btgAbsurdObjectCount = 10000

const (
	btgObjBoundingSphere = 0
	btgObjVertexList     = 1
	btgObjTriangles      = 10
	btgObjTriangleStrip  = 11
	btgObjTriangleFan    = 12
)

// btgTri is one triangle of vertex indices into a mesh's vertex list.
type btgTri struct {
	A, B, C uint32
}

// TerrainMesh is a decoded BTG object's triangle mesh plus bounding
// sphere, in ECEF coordinates (§4.5, §4.6).
type TerrainMesh struct {
	Center Ecef
	Radius float32

	Vertices []Ecef
	Tris     []btgTri
}

// SampleAltitude samples the mesh's terrain altitude under query (an
// ECEF point at the surface, alt=0) using the lat/lon interpolation
// method of §4.5: every triangle is projected into (lat, lon, alt) via
// the ECEF->geodetic inverse, and whichever triangle contains the
// query point's (lat, lon) contributes a barycentric-interpolated
// altitude. If none contains it, the nearest vertex's altitude is
// used.
func (m TerrainMesh) SampleAltitude(query Ecef) (float64, bool) {
	if len(m.Vertices) == 0 {
		return 0, false
	}

	qLat, qLon, _ := EcefToGeodetic(query)

	type geo struct{ lat, lon, alt float64 }
	geos := make([]geo, len(m.Vertices))
	for i, v := range m.Vertices {
		lat, lon, alt := EcefToGeodetic(Ecef{
			X: v.X + m.Center.X,
			Y: v.Y + m.Center.Y,
			Z: v.Z + m.Center.Z,
		})
		geos[i] = geo{lat, lon, alt}
	}

	for _, tri := range m.Tris {
		a, b, c := geos[tri.A], geos[tri.B], geos[tri.C]
		if alt, ok := barycentricAltitude(qLat, qLon, a, b, c); ok {
			return alt, true
		}
	}

	nearest := 0
	nearestDist := math.MaxFloat64
	for i, g := range geos {
		d := (g.lat-qLat)*(g.lat-qLat) + (g.lon-qLon)*(g.lon-qLon)
		if d < nearestDist {
			nearestDist = d
			nearest = i
		}
	}
	return geos[nearest].alt, true
}

func barycentricAltitude(qLat, qLon float64, a, b, c struct{ lat, lon, alt float64 }) (float64, bool) {
	denom := (b.lon-c.lon)*(a.lat-c.lat) + (c.lat-b.lat)*(a.lon-c.lon)
	if denom == 0 {
		return 0, false
	}

	w1 := ((b.lon-c.lon)*(qLat-c.lat) + (c.lat-b.lat)*(qLon-c.lon)) / denom
	w2 := ((c.lon-a.lon)*(qLat-c.lat) + (a.lat-c.lat)*(qLon-c.lon)) / denom
	w3 := 1 - w1 - w2

	const eps = -1e-9
	if w1 < eps || w2 < eps || w3 < eps {
		return 0, false
	}

	return w1*a.alt + w2*b.alt + w3*c.alt, true
}

// DecodeBTG decodes a single BTG binary terrain mesh (§4.6). Corruption
// beyond the bounded-resync thresholds aborts decoding and returns the
// partial mesh assembled so far, per §7's CorruptProperty/CorruptElement
// policy.
func DecodeBTG(data []byte) (TerrainMesh, error) {
	var mesh TerrainMesh

	if len(data) < 8 {
		return mesh, ErrInvalidHeader
	}
	magic := binary.LittleEndian.Uint16(data[2:4])
	if magic != btgMagic {
		return mesh, ErrInvalidHeader
	}

	objectCount := binary.LittleEndian.Uint16(data[6:8])
	if objectCount > btgAbsurdObjectCount {
		log.Printf("scone: BTG declares %d objects, exceeds sanity bound, aborting", objectCount)
		return mesh, ErrCorruptElement
	}

	pos := 8
	for i := uint16(0); i < objectCount; i++ {
		next, err := decodeBtgObject(data, pos, &mesh)
		if err != nil {
			log.Printf("scone: BTG object %d: %v, returning partial mesh", i, err)
			return mesh, err
		}
		pos = next
	}

	return mesh, nil
}

func decodeBtgObject(data []byte, pos int, mesh *TerrainMesh) (int, error) {
	if pos+5 > len(data) {
		return pos, ErrTruncatedRecord
	}
	objType := data[pos]
	propCount := binary.LittleEndian.Uint16(data[pos+1 : pos+3])
	elemCount := binary.LittleEndian.Uint16(data[pos+3 : pos+5])
	pos += 5

	var indexFlags byte
	for p := uint16(0); p < propCount; p++ {
		if pos+5 > len(data) {
			return pos, ErrTruncatedRecord
		}
		propType := data[pos]
		propSize := binary.LittleEndian.Uint32(data[pos+1 : pos+5])
		start := pos + 5

		if propSize > btgObjAbsurdSize || start+int(propSize) > len(data) {
			log.Printf("scone: BTG property declares size %d, exceeds stream/sanity bound", propSize)
			return pos, ErrCorruptProperty
		}

		if propType == 1 && propSize > 0 {
			indexFlags = data[start]
		}

		pos = start + int(propSize)
	}

	for e := uint16(0); e < elemCount; e++ {
		if pos+4 > len(data) {
			return pos, ErrTruncatedRecord
		}
		elemSize := binary.LittleEndian.Uint32(data[pos : pos+4])
		start := pos + 4

		if elemSize > btgObjAbsurdSize || start+int(elemSize) > len(data) {
			log.Printf("scone: BTG element declares size %d, exceeds stream/sanity bound", elemSize)
			return pos, ErrCorruptElement
		}

		if elemSize > 0 {
			decodeBtgElement(data[start:start+int(elemSize)], objType, indexFlags, mesh)
		}

		pos = start + int(elemSize)
	}

	return pos, nil
}

func decodeBtgElement(elem []byte, objType byte, indexFlags byte, mesh *TerrainMesh) {
	switch objType {
	case btgObjBoundingSphere:
		if len(elem) < 28 {
			return
		}
		mesh.Center = Ecef{
			X: math.Float64frombits(binary.LittleEndian.Uint64(elem[0:8])),
			Y: math.Float64frombits(binary.LittleEndian.Uint64(elem[8:16])),
			Z: math.Float64frombits(binary.LittleEndian.Uint64(elem[16:24])),
		}
		mesh.Radius = math.Float32frombits(binary.LittleEndian.Uint32(elem[24:28]))

	case btgObjVertexList:
		for off := 0; off+12 <= len(elem); off += 12 {
			mesh.Vertices = append(mesh.Vertices, Ecef{
				X: float64(math.Float32frombits(binary.LittleEndian.Uint32(elem[off : off+4]))),
				Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(elem[off+4 : off+8]))),
				Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(elem[off+8 : off+12]))),
			})
		}

	case btgObjTriangles:
		tupleLen := btgTriangleTupleSlots(indexFlags)
		stride := tupleLen * 2
		if stride == 0 {
			return
		}
		idxs := make([]uint32, 0, len(elem)/stride)
		for off := 0; off+stride <= len(elem); off += stride {
			idxs = append(idxs, uint32(binary.LittleEndian.Uint16(elem[off:off+2])))
		}
		for i := 0; i+2 < len(idxs); i += 3 {
			mesh.Tris = append(mesh.Tris, btgTri{A: idxs[i], B: idxs[i+2], C: idxs[i+1]})
		}

	case btgObjTriangleStrip:
		idxs := decodeU16Indices(elem)
		for i := 0; i+2 < len(idxs); i++ {
			if i%2 == 0 {
				mesh.Tris = append(mesh.Tris, btgTri{A: idxs[i], B: idxs[i+1], C: idxs[i+2]})
			} else {
				mesh.Tris = append(mesh.Tris, btgTri{A: idxs[i+1], B: idxs[i], C: idxs[i+2]})
			}
		}

	case btgObjTriangleFan:
		idxs := decodeU16Indices(elem)
		for i := 1; i+1 < len(idxs); i++ {
			mesh.Tris = append(mesh.Tris, btgTri{A: idxs[0], B: idxs[i], C: idxs[i+1]})
		}
	}
}

// btgTriangleTupleSlots returns how many 2-byte slots make up one
// vertex tuple of a type-10 triangle element: a flat list of per-vertex
// (vertex, normal?, color?, texcoord?) indices depending on
// indexFlags, with the two special-cased counts named in §4.6.
func btgTriangleTupleSlots(indexFlags byte) int {
	if indexFlags == 0 {
		return 4
	}
	slots := 0
	for _, bit := range []byte{1, 2, 4, 8} {
		if indexFlags&bit != 0 {
			slots++
		}
	}
	if slots == 0 {
		return 2
	}
	return slots
}

func decodeU16Indices(elem []byte) []uint32 {
	idxs := make([]uint32, 0, len(elem)/2)
	for off := 0; off+2 <= len(elem); off += 2 {
		idxs = append(idxs, uint32(binary.LittleEndian.Uint16(elem[off:off+2])))
	}
	return idxs
}
