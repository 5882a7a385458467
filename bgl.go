package scone

import (
	"encoding/binary"
	"log"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
)

// BglFile is an opened BGL scenery container, read fully into memory
// for random-offset access (the record table and every subrecord index
// address their payloads by absolute file offset, so unlike the
// teacher's forward-only GSF walk this format wants random access).
type BglFile struct {
	Uri  string
	data []byte

	config *tiledb.Config
	ctx    *tiledb.Context
	vfs    *tiledb.VFS
}

// OpenBGL opens a BGL file through TileDB's VFS abstraction (local
// filesystem or any registered object store) and reads it fully into
// memory. Unlike the teacher's OpenGSF, failures here are returned
// rather than panicked -- a single malformed scenery package must not
// take down a whole directory conversion (§7, InputPathMissing aside).
func OpenBGL(uri, configUri string) (*BglFile, error) {
	var (
		config *tiledb.Config
		err    error
	)

	if configUri == "" {
		config, err = tiledb.NewConfig()
	} else {
		config, err = tiledb.LoadConfig(configUri)
	}
	if err != nil {
		return nil, err
	}

	ctx, err := tiledb.NewContext(config)
	if err != nil {
		config.Free()
		return nil, err
	}

	vfs, err := tiledb.NewVFS(ctx, config)
	if err != nil {
		ctx.Free()
		config.Free()
		return nil, err
	}

	handle, err := vfs.Open(uri, tiledb.TILEDB_VFS_READ)
	if err != nil {
		vfs.Free()
		ctx.Free()
		config.Free()
		return nil, err
	}
	defer handle.Close()

	size, err := vfs.FileSize(uri)
	if err != nil {
		vfs.Free()
		ctx.Free()
		config.Free()
		return nil, err
	}

	buffer := make([]byte, size)
	if err := binary.Read(handle, binary.BigEndian, &buffer); err != nil {
		vfs.Free()
		ctx.Free()
		config.Free()
		return nil, err
	}

	return &BglFile{Uri: uri, data: buffer, config: config, ctx: ctx, vfs: vfs}, nil
}

// Close releases the VFS/context/config handles.
func (b *BglFile) Close() {
	b.vfs.Free()
	b.ctx.Free()
	b.config.Free()
}

// WalkStats counts what a Walk pass observed, surfaced to the caller's
// progress observer for troubleshooting (§4, debug introspection).
type WalkStats struct {
	RecordsSeen      map[RecordType]int
	SubrecordsSkipped int
}

// WalkResult is everything BgWalker+PlacementDecoder+AirportDecoder
// extract from a single BGL file's pass-1 walk.
type WalkResult struct {
	LibraryPlacements []LibraryPlacement
	SimObjects        []SimObjectPlacement
	Airports          []Airport
	ModelRecords      []ModelRecordRef
	Stats             WalkStats
}

// ModelRecordRef points at one ModelData subrecord's raw bytes inside
// this file, keyed by the GUID its header carries. Pass 2 (ModelIndex)
// turns these into ModelReference values once it knows which GUIDs are
// actually placed anywhere.
type ModelRecordRef struct {
	Guid       Guid
	SourceFile string
	ByteOffset int64
	ByteSize   int64
}

// Walk validates the BGL header and iterates every top-level record,
// dispatching Airport/SceneryObject/ModelData records to their
// decoders and skipping everything else (§4.1).
func (b *BglFile) Walk(terrain TerrainService) (WalkResult, error) {
	var result WalkResult
	result.Stats.RecordsSeen = make(map[RecordType]int)

	count, err := CheckBGLHeader(b.data)
	if err != nil {
		return result, err
	}

	records, err := DecodeTopLevelRecords(b.data, count)
	if err != nil {
		log.Printf("scone: %s: %v, proceeding with %d records recovered", b.Uri, err, len(records))
	}

	for _, rec := range records {
		result.Stats.RecordsSeen[rec.RecType]++

		switch rec.RecType {
		case RecordSceneryObject:
			entries, err := DecodeSubrecordIndex(b.data, rec)
			if err != nil {
				log.Printf("scone: %s: scenery object subrecord index: %v", b.Uri, err)
			}
			for _, entry := range entries {
				payload, err := ReadSubrecordPayload(b.data, entry)
				if err != nil {
					log.Printf("scone: %s: scenery object subrecord payload: %v", b.Uri, err)
					result.Stats.SubrecordsSkipped++
					continue
				}
				libs, sims := DecodePlacements(payload, terrain)
				result.LibraryPlacements = append(result.LibraryPlacements, libs...)
				result.SimObjects = append(result.SimObjects, sims...)
			}
		case RecordAirport:
			entries, err := DecodeSubrecordIndex(b.data, rec)
			if err != nil {
				log.Printf("scone: %s: airport subrecord index: %v", b.Uri, err)
			}
			for _, entry := range entries {
				payload, err := ReadSubrecordPayload(b.data, entry)
				if err != nil {
					log.Printf("scone: %s: airport subrecord payload: %v", b.Uri, err)
					result.Stats.SubrecordsSkipped++
					continue
				}
				airport, libs, sims, err := DecodeAirport(payload, terrain)
				if err != nil {
					log.Printf("scone: %s: airport record: %v", b.Uri, err)
					result.Stats.SubrecordsSkipped++
					continue
				}
				result.Airports = append(result.Airports, airport)
				result.LibraryPlacements = append(result.LibraryPlacements, libs...)
				result.SimObjects = append(result.SimObjects, sims...)
			}
		case RecordModelData:
			entries, err := DecodeSubrecordIndex(b.data, rec)
			if err != nil {
				log.Printf("scone: %s: model data subrecord index: %v", b.Uri, err)
			}
			for _, entry := range entries {
				ref, ok := decodeModelRecordRef(b.data, entry, b.Uri)
				if ok {
					result.ModelRecords = append(result.ModelRecords, ref)
				} else {
					result.Stats.SubrecordsSkipped++
				}
			}
		default:
			// not of interest; its bytes are simply not indexed further.
		}
	}

	return result, nil
}

// modelDataGuidOffset is the empirically-observed byte offset between a
// ModelData subrecord's start and the embedded GUID that precedes its
// RIFF container (§9 Open Questions: "derived empirically; validate
// per-file rather than assume").
const modelDataGuidOffset = 0x08

// modelDataRiffOffset is the offset from the subrecord start to the
// start of the RIFF bytes themselves.
const modelDataRiffOffset = 0x18

func decodeModelRecordRef(data []byte, entry SubrecordEntry, sourceFile string) (ModelRecordRef, bool) {
	payload, err := ReadSubrecordPayload(data, entry)
	if err != nil {
		log.Printf("scone: %s: model data subrecord payload: %v", sourceFile, err)
		return ModelRecordRef{}, false
	}
	if len(payload) < modelDataRiffOffset+4 {
		log.Printf("scone: %s: model data subrecord too small for a GUID+RIFF header", sourceFile)
		return ModelRecordRef{}, false
	}

	var guid Guid
	copy(guid[:], payload[modelDataGuidOffset:modelDataGuidOffset+16])

	return ModelRecordRef{
		Guid:       guid,
		SourceFile: sourceFile,
		ByteOffset: int64(entry.SubOffset) + modelDataRiffOffset,
		ByteSize:   int64(entry.Size) - modelDataRiffOffset,
	}, true
}

// ModelBytes returns the raw bytes of a ModelRecordRef taken from this
// same file (used when assembling a tile whose model lives in a BGL
// that is still open; cross-file references reopen the source BGL).
func (b *BglFile) ModelBytes(ref ModelRecordRef) ([]byte, error) {
	start := ref.ByteOffset
	end := start + ref.ByteSize
	if start < 0 || end > int64(len(b.data)) || start > end {
		return nil, ErrTruncatedRecord
	}
	return b.data[start:end], nil
}
