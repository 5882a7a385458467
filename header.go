package scone

import "encoding/binary"

// bglMagicA and bglMagicB are the two four-byte magic sequences a valid
// BGL file carries at offsets 0x00 and 0x10 respectively (§4.1, §6).
var (
	bglMagicA = [4]byte{0x01, 0x02, 0x92, 0x19}
	bglMagicB = [4]byte{0x03, 0x18, 0x05, 0x08}
)

// bglHeaderSize is the byte offset of the top-level record table (0x38).
const bglHeaderSize = 0x38

// bglRecordTableOffset is where DecodeTopLevelRecords starts reading.
const bglRecordTableOffset = 0x38

// CheckBGLHeader validates the two magic sequences of a BGL file and
// returns the declared top-level record count (a little-endian uint32
// at offset 0x14). It returns ErrInvalidHeader without reading further
// if either magic mismatches, matching the "skip this file, log a
// warning, continue" policy of §7.
func CheckBGLHeader(data []byte) (recordCount uint32, err error) {
	if len(data) < bglHeaderSize {
		return 0, ErrInvalidHeader
	}
	if [4]byte(data[0:4]) != bglMagicA {
		return 0, ErrInvalidHeader
	}
	if [4]byte(data[0x10:0x14]) != bglMagicB {
		return 0, ErrInvalidHeader
	}

	recordCount = binary.LittleEndian.Uint32(data[0x14:0x18])
	return recordCount, nil
}
