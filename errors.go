package scone

import "errors"

// Sentinel errors for the error kinds in the conversion pipeline's
// error-handling design. Every kind below fatal severity is logged and
// the caller continues with a partial result. ConvertScenery aborts
// before any tile work only when the input tree cannot be listed or the
// asset root cannot be indexed, and then returns that underlying error;
// no function in this package returns ErrInputPathMissing.
var (
	ErrInvalidHeader      = errors.New("invalid BGL header magic")
	ErrTruncatedRecord    = errors.New("record declares more bytes than remain in the stream")
	ErrUnknownSubrecordId = errors.New("subrecord id not recognised for this record class")
	ErrCorruptProperty    = errors.New("BTG property size exceeds the stream or a sanity bound")
	ErrCorruptElement     = errors.New("BTG element size exceeds the stream or a sanity bound")
	ErrTextureMiss        = errors.New("referenced texture file not found")
	ErrTransformInvalid   = errors.New("resolved world transform contains a non-finite component")
	ErrInputPathMissing   = errors.New("input path does not exist")
	ErrNotRiff            = errors.New("model payload is not a RIFF container")
	ErrNoGlb              = errors.New("RIFF container has no GLBD chunk")
	ErrTileOutOfRange     = errors.New("latitude or longitude out of range for a tile index")
)

// TileDB elevation-cache error kinds (terraincache.go), kept distinct
// from the BGL/glTF/AC3D errors above since they name a different
// subsystem and are always wrapped with errors.Join at the call site.
var (
	ErrCreateElevationTdb = errors.New("error creating elevation TileDB array")
	ErrWriteElevationTdb  = errors.New("error writing elevation TileDB array")
	ErrCreateAttributeTdb = errors.New("error creating attribute for TileDB array")
	ErrCreateSchemaTdb    = errors.New("error creating TileDB schema")
	ErrCreateDimTdb       = errors.New("error creating TileDB dimension")
	ErrAddFilters         = errors.New("error adding filter to filter list")
	ErrSetBuff            = errors.New("error setting TileDB buffer")
)
