package scone

import (
	"encoding/binary"
	"math"
)

// placement subrecord ids within a SceneryObject payload (§4.2).
const (
	placementIdLibraryObject uint16 = 0x0B
	placementIdSimObject     uint16 = 0x19
)

// placementHeaderSize is the fixed-layout prefix shared by both
// placement kinds: id:uint16, size:uint16, lon:uint32, lat:uint32,
// alt:int32, flags:uint16, pitch:uint16, bank:uint16, heading:uint16,
// imageComplexity:int16, reserved:2B, emptyGuid:16B (§4.2) -- 44 bytes
// total, before the per-kind tail begins.
const placementHeaderSize = 44

// PlacementFlags is the bit set carried by every placement record
// (§3).
type PlacementFlags uint16

const (
	FlagIsAboveAGL PlacementFlags = 1 << iota
	FlagNoAutogenSuppression
	FlagNoCrash
	FlagNoFog
	FlagNoShadow
	FlagNoZWrite
	FlagNoZTest
)

func (f PlacementFlags) Has(bit PlacementFlags) bool { return f&bit != 0 }

// placementCommon holds the fields shared by LibraryPlacement and
// SimObjectPlacement, decoded once from the fixed-layout header.
type placementCommon struct {
	Longitude       float64
	Latitude        float64
	Altitude        float64
	Flags           PlacementFlags
	Pitch           float64
	Bank            float64
	Heading         float64
	ImageComplexity int16
}

// LibraryPlacement is an instance of a library (GUID-identified) model
// placed somewhere in the world (§3).
type LibraryPlacement struct {
	placementCommon
	Guid  Guid
	Scale float64
}

// SimObjectPlacement is like LibraryPlacement but identified by a
// (title, path) pair instead of a GUID (§3).
type SimObjectPlacement struct {
	placementCommon
	Scale float64
	Title string
	Path  string
}

// TileIndex computes the packed tile index this placement falls in.
func (p placementCommon) TileIndex() (TileIndex, error) {
	return GetTileIndex(p.Latitude, p.Longitude)
}

// round3 rounds to 3 decimal places, matching §4.2's angular/scale
// rounding.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func decodePlacementCommon(payload []byte, terrain TerrainService) placementCommon {
	longitudeRaw := binary.LittleEndian.Uint32(payload[4:8])
	latitudeRaw := binary.LittleEndian.Uint32(payload[8:12])
	altitudeMilli := int32(binary.LittleEndian.Uint32(payload[12:16]))
	flags := PlacementFlags(binary.LittleEndian.Uint16(payload[16:18]))
	pitchRaw := binary.LittleEndian.Uint16(payload[18:20])
	bankRaw := binary.LittleEndian.Uint16(payload[20:22])
	headingRaw := binary.LittleEndian.Uint16(payload[22:24])
	imageComplexity := int16(binary.LittleEndian.Uint16(payload[24:26]))

	longitude := float64(longitudeRaw)*360/805306368 - 180
	latitude := 90 - float64(latitudeRaw)*180/536870912
	altitude := float64(altitudeMilli) / 1000

	if flags.Has(FlagIsAboveAGL) && terrain != nil {
		altitude += terrain.GetElevation(latitude, longitude)
	}

	return placementCommon{
		Longitude:       longitude,
		Latitude:        latitude,
		Altitude:        altitude,
		Flags:           flags,
		Pitch:           round3(float64(pitchRaw) * 360 / 65536),
		Bank:            round3(float64(bankRaw) * 360 / 65536),
		Heading:         round3(float64(headingRaw) * 360 / 65536),
		ImageComplexity: imageComplexity,
	}
}

// DecodePlacements walks a SceneryObject subrecord payload (which may
// pack several placement entries back to back) and returns every
// library and sim-object placement found (§4.1, §4.2).
func DecodePlacements(payload []byte, terrain TerrainService) ([]LibraryPlacement, []SimObjectPlacement) {
	var (
		libs []LibraryPlacement
		sims []SimObjectPlacement
	)

	validIDs := map[uint16]bool{
		placementIdLibraryObject: true,
		placementIdSimObject:     true,
	}

	walkBoundedEntries(payload, validIDs, func(id uint16, entry []byte) error {
		if len(entry) < placementHeaderSize {
			return ErrTruncatedRecord
		}
		common := decodePlacementCommon(entry, terrain)
		tail := entry[placementHeaderSize:]

		switch id {
		case placementIdLibraryObject:
			lib, err := decodeLibraryTail(common, tail)
			if err != nil {
				return err
			}
			libs = append(libs, lib)
		case placementIdSimObject:
			sim, err := decodeSimObjectTail(common, tail)
			if err != nil {
				return err
			}
			sims = append(sims, sim)
		}
		return nil
	})

	return libs, sims
}

// decodeLibraryTail decodes the id=0x0B tail: guid:16B, scale:float32.
func decodeLibraryTail(common placementCommon, tail []byte) (LibraryPlacement, error) {
	if len(tail) < 20 {
		return LibraryPlacement{}, ErrTruncatedRecord
	}
	var guid Guid
	copy(guid[:], tail[0:16])
	scale := round3(float64(math.Float32frombits(binary.LittleEndian.Uint32(tail[16:20]))))

	return LibraryPlacement{placementCommon: common, Guid: guid, Scale: scale}, nil
}

// decodeSimObjectTail decodes the id=0x19 tail: scale:float32,
// titleLen:uint16, pathLen:uint16, title, path.
func decodeSimObjectTail(common placementCommon, tail []byte) (SimObjectPlacement, error) {
	if len(tail) < 8 {
		return SimObjectPlacement{}, ErrTruncatedRecord
	}
	scale := round3(float64(math.Float32frombits(binary.LittleEndian.Uint32(tail[0:4]))))
	titleLen := int(binary.LittleEndian.Uint16(tail[4:6]))
	pathLen := int(binary.LittleEndian.Uint16(tail[6:8]))

	if len(tail) < 8+titleLen+pathLen {
		return SimObjectPlacement{}, ErrTruncatedRecord
	}
	title := string(tail[8 : 8+titleLen])
	path := string(tail[8+titleLen : 8+titleLen+pathLen])

	return SimObjectPlacement{placementCommon: common, Scale: scale, Title: title, Path: path}, nil
}
