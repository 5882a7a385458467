package scone

import (
	"encoding/binary"
	"math"
	"testing"
)

// buildLibraryPlacementEntry assembles one id=0x0B placement entry the
// way a SceneryObject subrecord payload packs it: a 4-byte id+length
// header, the fixed-layout common fields padded to placementHeaderSize
// (44 bytes, including the reserved/empty-guid trailer), then a
// 16-byte GUID and a float32 scale.
func buildLibraryPlacementEntry(lon, lat, alt, pitch, bank, heading, scale float64, guid Guid) []byte {
	const tailLen = 20
	total := placementHeaderSize + tailLen
	buf := make([]byte, total)

	binary.LittleEndian.PutUint16(buf[0:2], placementIdLibraryObject)
	binary.LittleEndian.PutUint16(buf[2:4], uint16(total))

	lonRaw := uint32((lon + 180) * 805306368 / 360)
	latRaw := uint32((90 - lat) * 536870912 / 180)
	altMilli := int32(alt * 1000)
	pitchRaw := uint16(pitch * 65536 / 360)
	bankRaw := uint16(bank * 65536 / 360)
	headingRaw := uint16(heading * 65536 / 360)

	binary.LittleEndian.PutUint32(buf[4:8], lonRaw)
	binary.LittleEndian.PutUint32(buf[8:12], latRaw)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(altMilli))
	binary.LittleEndian.PutUint16(buf[16:18], 0) // flags
	binary.LittleEndian.PutUint16(buf[18:20], pitchRaw)
	binary.LittleEndian.PutUint16(buf[20:22], bankRaw)
	binary.LittleEndian.PutUint16(buf[22:24], headingRaw)
	binary.LittleEndian.PutUint16(buf[24:26], 0) // image complexity

	tail := buf[placementHeaderSize:]
	copy(tail[0:16], guid[:])
	binary.LittleEndian.PutUint32(tail[16:20], math.Float32bits(float32(scale)))

	return buf
}

func TestDecodePlacementsAngularRoundTrip(t *testing.T) {
	var guid Guid
	copy(guid[:], []byte("0123456789abcdef"))

	entry := buildLibraryPlacementEntry(12.5, 45.25, 1200, 3.5, -2.25, 90.0, 1.5, guid)

	libs, sims := DecodePlacements(entry, NullTerrainService{})
	if len(sims) != 0 {
		t.Fatalf("expected no sim objects, got %d", len(sims))
	}
	if len(libs) != 1 {
		t.Fatalf("expected 1 library placement, got %d", len(libs))
	}

	// Longitude/latitude pass through a fixed-point quantization step
	// (~4.5e-7 and ~3.4e-7 degrees respectively), so the round-trip
	// tolerance allows for one quantization step, not exact equality.
	p := libs[0]
	if math.Abs(p.Longitude-12.5) > 1e-6 {
		t.Errorf("longitude: got %v, want 12.5", p.Longitude)
	}
	if math.Abs(p.Latitude-45.25) > 1e-6 {
		t.Errorf("latitude: got %v, want 45.25", p.Latitude)
	}
	if math.Abs(p.Altitude-1200) > 1e-9 {
		t.Errorf("altitude: got %v, want 1200", p.Altitude)
	}
	if math.Abs(p.Heading-90.0) > 1e-9 {
		t.Errorf("heading: got %v, want 90.0", p.Heading)
	}
	if math.Abs(p.Scale-1.5) > 1e-6 {
		t.Errorf("scale: got %v, want 1.5", p.Scale)
	}
	if p.Guid != guid {
		t.Errorf("guid mismatch: got %v, want %v", p.Guid, guid)
	}

	tile, err := p.TileIndex()
	if err != nil {
		t.Fatalf("TileIndex: %v", err)
	}
	want, err := GetTileIndex(p.Latitude, p.Longitude)
	if err != nil {
		t.Fatalf("GetTileIndex: %v", err)
	}
	if tile != want {
		t.Errorf("TileIndex mismatch: got %v, want %v", tile, want)
	}
}

// stubTerrain records every GetElevation call and always returns a
// fixed elevation, used to verify the IsAboveAGL invariant of §4.5/§8:
// an AGL placement's decoded altitude must equal its raw altitude plus
// whatever the terrain service reports at that point.
type stubTerrain struct {
	elevation float64
	calls     int
}

func (s *stubTerrain) GetElevation(lat, lon float64) float64 {
	s.calls++
	return s.elevation
}

func TestDecodePlacementsIsAboveAGL(t *testing.T) {
	var guid Guid
	entry := buildLibraryPlacementEntry(0, 0, 50, 0, 0, 0, 1, guid)
	// set the IsAboveAGL flag
	binary.LittleEndian.PutUint16(entry[16:18], uint16(FlagIsAboveAGL))

	terrain := &stubTerrain{elevation: 250}
	libs, _ := DecodePlacements(entry, terrain)
	if len(libs) != 1 {
		t.Fatalf("expected 1 library placement, got %d", len(libs))
	}
	if terrain.calls != 1 {
		t.Errorf("expected exactly 1 terrain lookup, got %d", terrain.calls)
	}
	if math.Abs(libs[0].Altitude-300) > 1e-9 {
		t.Errorf("AGL altitude: got %v, want 50+250=300", libs[0].Altitude)
	}
}

func TestDecodePlacementsAGLUnaffectedByZeroElevation(t *testing.T) {
	var guid Guid
	entry := buildLibraryPlacementEntry(0, 0, 50, 0, 0, 0, 1, guid)
	binary.LittleEndian.PutUint16(entry[16:18], uint16(FlagIsAboveAGL))

	libs, _ := DecodePlacements(entry, NullTerrainService{})
	if math.Abs(libs[0].Altitude-50) > 1e-9 {
		t.Errorf("altitude should be unchanged when terrain reports 0: got %v", libs[0].Altitude)
	}
}

func TestDecodePlacementsUnknownIdSkipped(t *testing.T) {
	// a single bogus entry with an id outside the valid set, declaring
	// a length that exactly consumes the buffer -- the walker should
	// resync past it without decoding anything.
	buf := make([]byte, 10)
	binary.LittleEndian.PutUint16(buf[0:2], 0xFFFF)
	binary.LittleEndian.PutUint16(buf[2:4], 10)

	libs, sims := DecodePlacements(buf, NullTerrainService{})
	if len(libs) != 0 || len(sims) != 0 {
		t.Errorf("expected no placements decoded from an unknown id, got libs=%d sims=%d", len(libs), len(sims))
	}
}
