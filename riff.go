package scone

import (
	"encoding/binary"
	"fmt"
	"log"
	"strings"
)

// ModelLod names one LOD entry parsed from a GXML chunk's <LOD .../>
// element (§4.7).
type ModelLod struct {
	ModelFile string
	MinSize   float64
}

// ModelInfo is the parsed contents of a GXML chunk's <ModelInfo> body.
type ModelInfo struct {
	Name string
	Lods []ModelLod
}

// RiffModel is everything RiffWalker extracted from one ModelReference
// payload: the model metadata (if a GXML chunk was present) and the
// first, highest-LOD GLB blob.
type RiffModel struct {
	Info ModelInfo
	Glb  []byte
}

// WalkRiff decodes a RIFF-contained model payload per §4.7: validates
// the "RIFF" magic, scans for GXML/GLBD chunks, and within GLBD keeps
// only the first "GLB\0"-marked blob (the highest-LOD model).
func WalkRiff(payload []byte) (RiffModel, error) {
	var model RiffModel

	if len(payload) < 8 || string(payload[0:4]) != "RIFF" {
		return model, ErrNotRiff
	}

	pos := 8
	sawGlbd := false
	for pos+8 <= len(payload) {
		chunkID := string(payload[pos : pos+4])
		size := binary.LittleEndian.Uint32(payload[pos+4 : pos+8])
		start := pos + 8

		if size > uint32(len(payload)-start) {
			log.Printf("scone: RIFF chunk %q declares size %d beyond remaining stream, stopping", chunkID, size)
			break
		}
		chunk := payload[start : start+int(size)]

		switch chunkID {
		case "GXML":
			model.Info = parseGxml(chunk)
		case "GLBD":
			sawGlbd = true
			if glb, ok := firstGlb(chunk); ok {
				model.Glb = glb
			}
		}

		pos = start + int(size)
		if pos%4 != 0 {
			pos += 4 - pos%4
		}
	}

	if !sawGlbd || model.Glb == nil {
		return model, ErrNoGlb
	}
	return model, nil
}

// firstGlb scans a GLBD chunk 4-byte aligned for "GLB\0" markers and
// returns only the first one found (§4.7).
func firstGlb(chunk []byte) ([]byte, bool) {
	for pos := 0; pos+8 <= len(chunk); pos += 4 {
		if string(chunk[pos:pos+4]) != "GLB\x00" {
			continue
		}
		size := binary.LittleEndian.Uint32(chunk[pos+4 : pos+8])
		start := pos + 8
		if start+int(size) > len(chunk) {
			log.Printf("scone: GLB marker at offset %d declares size %d beyond remaining chunk, skipping", pos, size)
			return nil, false
		}
		return chunk[start : start+int(size)], true
	}
	return nil, false
}

// parseGxml extracts <ModelInfo name="..."> and each <LOD .../> from a
// GXML chunk's XML text. The real files are a restricted, predictable
// subset of XML so a small attribute scanner is used rather than
// encoding/xml, which would choke on the occasional malformed entity
// these exports are known to emit.
func parseGxml(chunk []byte) ModelInfo {
	text := string(chunk)
	var info ModelInfo

	if name, ok := xmlAttr(text, "ModelInfo", "name"); ok {
		info.Name = strings.ReplaceAll(strings.TrimSuffix(name, ".gltf"), " ", "_")
	}

	pos := 0
	for {
		idx := strings.Index(text[pos:], "<LOD")
		if idx < 0 {
			break
		}
		start := pos + idx
		end := strings.Index(text[start:], ">")
		if end < 0 {
			break
		}
		tag := text[start : start+end]

		lod := ModelLod{}
		if file, ok := xmlAttrInTag(tag, "ModelFile"); ok {
			lod.ModelFile = file
		}
		if size, ok := xmlAttrInTag(tag, "minSize"); ok {
			lod.MinSize = parseFloatOrZero(size)
		}
		if lod.ModelFile != "" {
			info.Lods = append(info.Lods, lod)
		}

		pos = start + end + 1
	}

	return info
}

func xmlAttr(text, element, attr string) (string, bool) {
	idx := strings.Index(text, "<"+element)
	if idx < 0 {
		return "", false
	}
	end := strings.Index(text[idx:], ">")
	if end < 0 {
		return "", false
	}
	return xmlAttrInTag(text[idx:idx+end], attr)
}

func xmlAttrInTag(tag, attr string) (string, bool) {
	marker := attr + "=\""
	idx := strings.Index(tag, marker)
	if idx < 0 {
		return "", false
	}
	rest := tag[idx+len(marker):]
	end := strings.Index(rest, "\"")
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

func parseFloatOrZero(s string) float64 {
	var v float64
	if n, err := fmt.Sscan(s, &v); err != nil || n != 1 {
		return 0
	}
	return v
}
