package scone

import (
	"encoding/binary"
	"encoding/json"

	"github.com/qmuntal/gltf"
)

// glbHeaderSize is the fixed 12-byte glTF binary header, followed
// immediately by the JSON chunk's own 8-byte chunk header (§4.7).
const glbHeaderSize = 12

// DecodeGlb parses a GLB 2.0 blob into a *gltf.Document and its BIN
// chunk bytes (§4.7), cut to buffer 0's byteLength when the document
// declares a buffer. The JSON chunk's non-printable bytes are
// replaced with ASCII spaces before unmarshaling, since MSFS exports
// are known to pad the JSON chunk irregularly; encoding/json tolerates
// the resulting whitespace runs.
func DecodeGlb(data []byte) (*gltf.Document, []byte, error) {
	if len(data) < glbHeaderSize+8 {
		return nil, nil, ErrTruncatedRecord
	}

	jsonLength := binary.LittleEndian.Uint32(data[0x0C:0x10])
	jsonStart := 0x14
	if jsonStart+int(jsonLength) > len(data) {
		return nil, nil, ErrTruncatedRecord
	}
	jsonChunk := append([]byte(nil), data[jsonStart:jsonStart+int(jsonLength)]...)
	cleanNonPrintable(jsonChunk)

	doc := new(gltf.Document)
	if err := json.Unmarshal(jsonChunk, doc); err != nil {
		return nil, nil, err
	}

	binStart := jsonStart + int(jsonLength)
	if binStart+8 > len(data) {
		return doc, nil, nil
	}
	binLength := binary.LittleEndian.Uint32(data[binStart : binStart+4])
	binDataStart := binStart + 8
	if binDataStart+int(binLength) > len(data) {
		return doc, nil, ErrTruncatedRecord
	}
	binData := data[binDataStart : binDataStart+int(binLength)]

	if len(doc.Buffers) > 0 {
		// the chunk is padded to 4 bytes; buffer 0 holds only its declared byteLength.
		if n := int(doc.Buffers[0].ByteLength); n > 0 && n <= len(binData) {
			binData = binData[:n]
		}
		doc.Buffers[0].Data = binData
	}

	return doc, binData, nil
}

// cleanNonPrintable replaces every byte outside the printable ASCII
// range (tab, newline and carriage return included) with a space, in
// place.
func cleanNonPrintable(b []byte) {
	for i, c := range b {
		if c < 0x20 || c > 0x7E {
			b[i] = ' '
		}
	}
}
