package scone

import (
	"encoding/binary"
	"log"
	"math"
)

// airport body record ids, recognized from offset 0x44 onward (§4.3).
const (
	airportRecName         uint16 = 0x0019
	airportRecRunway       uint16 = 0x00CE
	airportRecStart        uint16 = 0x0011
	airportRecTaxiPoint    uint16 = 0x001A
	airportRecTaxiParking  uint16 = 0x00E7
	airportRecTaxiPath     uint16 = 0x00D4
	airportRecTaxiName     uint16 = 0x001D
	airportRecApron        uint16 = 0x00D3
	airportRecTaxiSign     uint16 = 0x00D9
	airportRecPaintedLine  uint16 = 0x00CF
	airportRecPaintedHatch uint16 = 0x00D8
	airportRecJetway       uint16 = 0x00DE
	airportRecLightSupport uint16 = 0x0057
	airportRecApproach     uint16 = 0x0024
	airportRecApronLights  uint16 = 0x0031
	airportRecHelipad      uint16 = 0x0026
	airportRecProjMesh     uint16 = 0x00E8
)

// Airport is the aggregate decoded from an airport subrecord. Only its
// embedded placements feed the rest of the pipeline; the remaining
// sub-structures are retained for inspection but not further processed
// (§3, "Airport").
type Airport struct {
	Icao   string
	Region string
	MagVar float32

	Latitude  float64
	Longitude float64
	Altitude  float64

	TowerLatitude  float64
	TowerLongitude float64
	TowerAltitude  float64

	RunwayCount      int
	ComCount         int
	StartCount       int
	ApproachCount    int
	LegacyApronCount int
	HelipadCount     int
	DepartureCount   int
	ArrivalCount     int
	ApronCount       int

	Name string
}

// base38Char maps a base-38 digit to its ICAO character, per §4.3.
func base38Char(digit uint32) byte {
	switch {
	case digit == 0:
		return ' '
	case digit >= 2 && digit <= 11:
		return byte('0' + (digit - 2))
	case digit >= 12 && digit <= 37:
		return byte('A' + (digit - 12))
	default:
		return ' '
	}
}

// decodeBase38 unpacks a little-endian uint32 into an up-to-5-character
// ICAO-style identifier by repeated division, prepending characters
// (§4.3).
func decodeBase38(value uint32) string {
	var chars []byte
	for i := 0; i < 5 && value > 0; i++ {
		digit := value % 38
		value /= 38
		chars = append([]byte{base38Char(digit)}, chars...)
	}
	result := string(chars)
	return trimSpaceBoth(result)
}

func trimSpaceBoth(s string) string {
	start, end := 0, len(s)
	for start < end && s[start] == ' ' {
		start++
	}
	for end > start && s[end-1] == ' ' {
		end--
	}
	return s[start:end]
}

// DecodeAirport decodes an airport subrecord payload (§4.3), returning
// the Airport aggregate and the LibraryPlacement/SimObjectPlacement
// values embedded in Jetway and ProjectedMesh sub-records.
func DecodeAirport(payload []byte, terrain TerrainService) (Airport, []LibraryPlacement, []SimObjectPlacement, error) {
	var airport Airport

	if len(payload) < 0x44 {
		return airport, nil, nil, ErrTruncatedRecord
	}

	// size:uint32 occupies 0x00-0x04; the six count bytes follow
	// immediately, then the geodetic/tower/magvar/icao/region fields
	// (§4.3's literal header order).
	airport.RunwayCount = int(payload[0x04])
	airport.ComCount = int(payload[0x05])
	airport.StartCount = int(payload[0x06])
	airport.ApproachCount = int(payload[0x07])
	airport.LegacyApronCount = int(payload[0x08])
	airport.HelipadCount = int(payload[0x09])

	lonRaw := binary.LittleEndian.Uint32(payload[0x0A:0x0E])
	latRaw := binary.LittleEndian.Uint32(payload[0x0E:0x12])
	altMilli := int32(binary.LittleEndian.Uint32(payload[0x12:0x16]))
	towerLatRaw := binary.LittleEndian.Uint32(payload[0x16:0x1A])
	towerLonRaw := binary.LittleEndian.Uint32(payload[0x1A:0x1E])
	towerAltMilli := int32(binary.LittleEndian.Uint32(payload[0x1E:0x22]))
	magvar := math.Float32frombits(binary.LittleEndian.Uint32(payload[0x22:0x26]))
	icao := binary.LittleEndian.Uint32(payload[0x26:0x2A])
	region := binary.LittleEndian.Uint32(payload[0x2A:0x2E])

	airport.Longitude = float64(lonRaw)*360/805306368 - 180
	airport.Latitude = 90 - float64(latRaw)*180/536870912
	airport.Altitude = float64(altMilli) / 1000
	airport.TowerLongitude = float64(towerLonRaw)*360/805306368 - 180
	airport.TowerLatitude = 90 - float64(towerLatRaw)*180/536870912
	airport.TowerAltitude = float64(towerAltMilli) / 1000
	airport.MagVar = magvar
	airport.Icao = decodeBase38(icao)
	airport.Region = decodeBase38(region)

	if len(payload) > 0x37 {
		airport.DepartureCount = int(payload[0x37])
	}
	if len(payload) > 0x39 {
		airport.ArrivalCount = int(payload[0x39])
	}
	if len(payload) >= 0x3E {
		airport.ApronCount = int(binary.LittleEndian.Uint16(payload[0x3C:0x3E]))
	}

	libs, sims := decodeAirportBody(payload[0x44:], &airport, terrain)
	return airport, libs, sims, nil
}

// decodeAirportBody walks the variable-length record sequence from
// offset 0x44 onward. Each record is id:uint16, recordSize:uint32,
// payload; after each the walker reseeks to stay aligned even if fewer
// bytes were consumed than recordSize declares (§4.3).
func decodeAirportBody(body []byte, airport *Airport, terrain TerrainService) ([]LibraryPlacement, []SimObjectPlacement) {
	var (
		libs []LibraryPlacement
		sims []SimObjectPlacement
	)

	pos := 0
	for pos+6 <= len(body) {
		id := binary.LittleEndian.Uint16(body[pos : pos+2])
		recordSize := binary.LittleEndian.Uint32(body[pos+2 : pos+6])
		payloadStart := pos + 6

		if recordSize > uint32(len(body)-pos) {
			log.Printf("scone: airport record %#x declares size %d beyond remaining body, stopping", id, recordSize)
			break
		}
		payloadEnd := pos + int(recordSize)
		recordPayload := body[payloadStart:payloadEnd]

		switch id {
		case airportRecName:
			airport.Name = string(recordPayload)
		case airportRecJetway, airportRecProjMesh:
			l, s := DecodePlacements(recordPayload, terrain)
			libs = append(libs, l...)
			sims = append(sims, s...)
		default:
			// recognized-but-unprocessed record ids (runway, taxiway,
			// apron, paint, approach, ...): retained in the raw bytes
			// only, per §3's "decoded and available ... but not
			// further processed".
		}

		pos = payloadEnd
	}

	return libs, sims
}
