package encode

import (
	tiledb "github.com/TileDB-Inc/TileDB-Go"
)

// WriteJson writes data to fileUri through TileDB's VFS abstraction,
// so debug snapshots can land on a local path or an object store the
// same way the rest of the pipeline's IO does.
func WriteJson(fileUri string, configUri string, data []byte) (int, error) {
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
		return 0, err
	}
	defer config.Free()

	ctx, err := tiledb.NewContext(config)
	if err != nil {
		return 0, err
	}
	defer ctx.Free()

	vfs, err := tiledb.NewVFS(ctx, config)
	if err != nil {
		return 0, err
	}
	defer vfs.Free()

	stream, err := vfs.Open(fileUri, tiledb.TILEDB_VFS_WRITE)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	bytesWritten, err := stream.Write(data)
	if err != nil {
		return 0, err
	}

	return bytesWritten, nil
}
