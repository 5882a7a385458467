package scone

import (
	"encoding/binary"
	"log"
)

// RecordType identifies a BGL top-level record's purpose. Only the
// three named below are decoded further; for every other value only
// its 16-byte table entry is read and its subrecords are not indexed
// (§4.1).
type RecordType uint32

const (
	RecordAirport       RecordType = 0x0003
	RecordSceneryObject RecordType = 0x0025
	RecordModelData     RecordType = 0x002B
)

// RecordHdr is one entry of the BGL top-level record table: 16 bytes
// giving the record's type, how many subrecords it holds, where its
// subrecord index starts, and its total size.
type RecordHdr struct {
	RecType                RecordType
	SubrecordCount         uint32
	SubrecordSectionOffset uint32
	RecordSize             uint32
}

// DecodeTopLevelRecords reads the BGL record table starting at 0x38,
// recordCount entries of 16 bytes each (§4.1).
func DecodeTopLevelRecords(data []byte, recordCount uint32) ([]RecordHdr, error) {
	records := make([]RecordHdr, 0, recordCount)

	for i := uint32(0); i < recordCount; i++ {
		off := bglRecordTableOffset + int(i)*16
		if off+16 > len(data) {
			return records, ErrTruncatedRecord
		}

		records = append(records, RecordHdr{
			RecType:                RecordType(binary.LittleEndian.Uint32(data[off : off+4])),
			SubrecordCount:         binary.LittleEndian.Uint32(data[off+4 : off+8]),
			SubrecordSectionOffset: binary.LittleEndian.Uint32(data[off+8 : off+12]),
			RecordSize:             binary.LittleEndian.Uint32(data[off+12 : off+16]),
		})
	}

	return records, nil
}

// SubrecordEntry is one 16-byte entry of a record's subrecord index:
// the payload's byte offset (at +8) and size (at +12) within the file.
type SubrecordEntry struct {
	SubOffset uint32
	Size      uint32
}

// DecodeSubrecordIndex reads rec.SubrecordCount subrecord-index entries
// starting at rec.SubrecordSectionOffset (§4.1).
func DecodeSubrecordIndex(data []byte, rec RecordHdr) ([]SubrecordEntry, error) {
	entries := make([]SubrecordEntry, 0, rec.SubrecordCount)

	for i := uint32(0); i < rec.SubrecordCount; i++ {
		off := int(rec.SubrecordSectionOffset) + int(i)*16
		if off+16 > len(data) {
			log.Printf("scone: subrecord index entry %d of record type %#x truncated, stopping", i, rec.RecType)
			return entries, ErrTruncatedRecord
		}

		entries = append(entries, SubrecordEntry{
			SubOffset: binary.LittleEndian.Uint32(data[off+8 : off+12]),
			Size:      binary.LittleEndian.Uint32(data[off+12 : off+16]),
		})
	}

	return entries, nil
}

// ReadSubrecordPayload slices out a subrecord's declared byte range.
func ReadSubrecordPayload(data []byte, entry SubrecordEntry) ([]byte, error) {
	start := int(entry.SubOffset)
	end := start + int(entry.Size)
	if start < 0 || end > len(data) || start > end {
		return nil, ErrTruncatedRecord
	}
	return data[start:end], nil
}

// walkBoundedEntries iterates the variable-length entries packed back
// to back inside a subrecord payload (used by PlacementDecoder, which
// packs one or more placements per SceneryObject subrecord). Each entry
// starts with a 2-byte id and a 2-byte declared length (counting those
// 4 bytes); visit is called with the entry's bytes. When the id is
// outside validIDs the walker performs the bounded resync described in
// §4.1: skip the declared length and continue, without attempting
// heuristic recovery.
func walkBoundedEntries(
	payload []byte,
	validIDs map[uint16]bool,
	visit func(id uint16, entry []byte) error,
) {
	pos := 0
	for pos+4 <= len(payload) {
		id := binary.LittleEndian.Uint16(payload[pos : pos+2])
		length := int(binary.LittleEndian.Uint16(payload[pos+2 : pos+4]))

		if length <= 0 || pos+length > len(payload) {
			log.Printf("scone: placement entry at offset %d declares length %d beyond remaining %d bytes, stopping", pos, length, len(payload)-pos)
			return
		}

		if !validIDs[id] {
			log.Printf("scone: unrecognised subrecord id %#x at offset %d, skipping %d bytes", id, pos, length)
			pos += length
			continue
		}

		if err := visit(id, payload[pos:pos+length]); err != nil {
			log.Printf("scone: entry at offset %d (id %#x): %v", pos, id, err)
		}
		pos += length
	}
}
