package scone

import (
	"math"
	"testing"
)

func TestTileIndexRoundTrip(t *testing.T) {
	cases := []struct {
		lat, lon float64
	}{
		{0, 0},
		{45.5, -122.3},
		{-33.9, 151.2},
		{63.1, 10.4},
		{85.5, 120.0},
		{-89.9, -179.9},
	}

	for _, c := range cases {
		index, err := GetTileIndex(c.lat, c.lon)
		if err != nil {
			t.Fatalf("GetTileIndex(%v, %v): %v", c.lat, c.lon, err)
		}

		lat, lon, err := GetLatLonOfTile(index)
		if err != nil {
			t.Fatalf("GetLatLonOfTile(%d): %v", index, err)
		}

		width := TileWidth(c.lat)
		if lat > c.lat || c.lat-lat >= 0.125 {
			t.Errorf("lat origin not the south edge of the input's 1/8 degree row: got %v, input %v", lat, c.lat)
		}
		if c.lon-lon < -width || c.lon-lon > width {
			t.Errorf("lon origin not within one tile width of input: got %v, input %v, width %v", lon, c.lon, width)
		}
	}
}

func TestGetTileIndexOutOfRange(t *testing.T) {
	if _, err := GetTileIndex(91, 0); err != ErrTileOutOfRange {
		t.Errorf("expected ErrTileOutOfRange for lat=91, got %v", err)
	}
	if _, err := GetTileIndex(0, 181); err != ErrTileOutOfRange {
		t.Errorf("expected ErrTileOutOfRange for lon=181, got %v", err)
	}
}

func TestGeodeticEcefRoundTrip(t *testing.T) {
	cases := []struct {
		lat, lon, alt float64
	}{
		{0, 0, 0},
		{45, -122, 500},
		{-33.9, 151.2, 35},
		{89, 0, 100},
	}

	for _, c := range cases {
		ecef := GeodeticToEcef(c.lat, c.lon, c.alt)
		lat, lon, alt := EcefToGeodetic(ecef)

		if math.Abs(lat-c.lat) > 1e-6 {
			t.Errorf("lat round-trip: got %v, want %v", lat, c.lat)
		}
		if math.Abs(lon-c.lon) > 1e-6 {
			t.Errorf("lon round-trip: got %v, want %v", lon, c.lon)
		}
		if math.Abs(alt-c.alt) > 1e-3 {
			t.Errorf("alt round-trip: got %v, want %v", alt, c.alt)
		}
	}
}

func TestMul4Identity(t *testing.T) {
	id := Identity4()
	m := TranslationMat4(Vec3{X: 1, Y: 2, Z: 3})

	if Mul4(id, m) != m {
		t.Errorf("identity * m != m")
	}
	if Mul4(m, id) != m {
		t.Errorf("m * identity != m")
	}
}

func TestAcTransformFlipsTranslationZ(t *testing.T) {
	m := TranslationMat4(Vec3{X: 1, Y: 2, Z: 3})
	flipped := AcTransform(m)

	p := TransformPoint(flipped, Vec3{})
	if math.Abs(p.X-1) > 1e-9 || math.Abs(p.Y-2) > 1e-9 || math.Abs(p.Z-(-3)) > 1e-9 {
		t.Errorf("AcTransform translation mismatch: got %+v", p)
	}
}

func TestIsFiniteMat4(t *testing.T) {
	if !IsFiniteMat4(Identity4()) {
		t.Errorf("identity matrix should be finite")
	}

	bad := Identity4()
	bad[0] = math.NaN()
	if IsFiniteMat4(bad) {
		t.Errorf("matrix containing NaN should not be finite")
	}

	bad2 := Identity4()
	bad2[5] = math.Inf(1)
	if IsFiniteMat4(bad2) {
		t.Errorf("matrix containing +Inf should not be finite")
	}
}
