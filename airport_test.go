package scone

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestDecodeBase38RoundTrip(t *testing.T) {
	// "KSEA" encoded as base-38 digits (K=12+10=22, S=12+18=30, E=12+4=16, A=12+0=12).
	value := uint32(0)
	for _, digit := range []uint32{22, 30, 16, 12} {
		value = value*38 + digit
	}
	if got := decodeBase38(value); got != "KSEA" {
		t.Errorf("decodeBase38: got %q, want %q", got, "KSEA")
	}
}

func TestDecodeBase38TrimsPadding(t *testing.T) {
	// A single-character code "K" followed by padding digit-0 (space).
	value := uint32(22)*38 + 0
	if got := decodeBase38(value); got != "K" {
		t.Errorf("decodeBase38: got %q, want %q", got, "K")
	}
}

func buildAirportPayload(lat, lon, alt float64) []byte {
	buf := make([]byte, 0x44)

	lonRaw := uint32((lon + 180) * 805306368 / 360)
	latRaw := uint32((90 - lat) * 536870912 / 180)
	binary.LittleEndian.PutUint32(buf[0x0A:0x0E], lonRaw)
	binary.LittleEndian.PutUint32(buf[0x0E:0x12], latRaw)
	binary.LittleEndian.PutUint32(buf[0x12:0x16], uint32(int32(alt*1000)))
	binary.LittleEndian.PutUint32(buf[0x22:0x26], math.Float32bits(1.5))

	return buf
}

func TestDecodeAirportGeodeticFields(t *testing.T) {
	payload := buildAirportPayload(47.45, -122.31, 130)
	airport, libs, sims, err := DecodeAirport(payload, NullTerrainService{})
	if err != nil {
		t.Fatalf("DecodeAirport: %v", err)
	}
	if math.Abs(airport.Latitude-47.45) > 1e-6 {
		t.Errorf("latitude: got %v, want ~47.45", airport.Latitude)
	}
	if math.Abs(airport.Longitude-(-122.31)) > 1e-6 {
		t.Errorf("longitude: got %v, want ~-122.31", airport.Longitude)
	}
	if math.Abs(airport.Altitude-130) > 1e-9 {
		t.Errorf("altitude: got %v, want 130", airport.Altitude)
	}
	if len(libs) != 0 || len(sims) != 0 {
		t.Errorf("expected no embedded placements for a body-less payload")
	}
}

func TestDecodeAirportTruncatedHeader(t *testing.T) {
	if _, _, _, err := DecodeAirport(make([]byte, 0x20), NullTerrainService{}); err != ErrTruncatedRecord {
		t.Errorf("expected ErrTruncatedRecord for a too-short payload, got %v", err)
	}
}

func TestDecodeAirportBodyJetwayPlacementsCollected(t *testing.T) {
	header := buildAirportPayload(0, 0, 0)

	jetway := buildLibraryPlacementEntry(10, 20, 500, 0, 0, 0, 1, makeGuid(7))
	body := make([]byte, 6+len(jetway))
	binary.LittleEndian.PutUint16(body[0:2], airportRecJetway)
	binary.LittleEndian.PutUint32(body[2:6], uint32(len(body))) // recordSize counts the 6-byte id+size header
	copy(body[6:], jetway)

	payload := append(header, body...)

	airport, libs, _, err := DecodeAirport(payload, NullTerrainService{})
	if err != nil {
		t.Fatalf("DecodeAirport: %v", err)
	}
	if len(libs) != 1 {
		t.Fatalf("expected 1 embedded library placement from the jetway record, got %d", len(libs))
	}
	if libs[0].Guid != makeGuid(7) {
		t.Errorf("unexpected guid on embedded placement: %v", libs[0].Guid)
	}
	_ = airport
}

func TestDecodeAirportBodyStopsOnOversizedRecord(t *testing.T) {
	header := buildAirportPayload(0, 0, 0)

	body := make([]byte, 6)
	binary.LittleEndian.PutUint16(body[0:2], airportRecName)
	binary.LittleEndian.PutUint32(body[2:6], 9999) // declares far more than remains

	payload := append(header, body...)

	airport, libs, sims, err := DecodeAirport(payload, NullTerrainService{})
	if err != nil {
		t.Fatalf("DecodeAirport: %v", err)
	}
	if airport.Name != "" {
		t.Errorf("expected no name to be decoded from an oversized record, got %q", airport.Name)
	}
	if len(libs) != 0 || len(sims) != 0 {
		t.Errorf("expected no placements when body walk stops early")
	}
}
