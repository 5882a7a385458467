package scone

import (
	"bytes"
	"encoding/binary"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
)

// Stream is a generic reader so a BGL/BTG file can be walked whether it
// was opened from local disk, from a TileDB-VFS-backed object store, or
// already slurped into memory. All the decoders in this module need is
// Read and Seek.
type Stream interface {
	Read(p []byte) (int, error)
	Seek(offset int64, whence int) (int64, error)
}

// GenericStream mirrors the open-file decision between keeping a VFS
// handle live for streamed IO versus reading the whole file into memory
// up front. BGL files are typically small enough that in-memory reading
// is the common case; the VFS handle path exists for very large scenery
// packages where streaming avoids the up-front read.
func GenericStream(handle *tiledb.VFSfh, size uint64, inMemory bool) (Stream, error) {
	if !inMemory {
		return handle, nil
	}

	buffer := make([]byte, size)
	if err := binary.Read(handle, binary.BigEndian, &buffer); err != nil {
		return nil, err
	}

	return bytes.NewReader(buffer), nil
}

// Tell reports the current position within a stream opened for reading.
func Tell(stream Stream) (int64, error) {
	return stream.Seek(0, 1)
}
