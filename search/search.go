package search

import (
	"path/filepath"
	"strings"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
)

// trawl recursively walks uri collecting every file whose basename
// case-insensitively matches pattern. Errors from the VFS are
// returned rather than panicked so a single unreadable subtree does
// not abort an entire directory scan.
func trawl(vfs *tiledb.VFS, pattern string, uri string, items []string) ([]string, error) {
	dirs, files, err := vfs.List(uri)
	if err != nil {
		return items, err
	}

	for _, file := range files {
		match, err := filepath.Match(pattern, strings.ToLower(filepath.Base(file)))
		if err != nil {
			return items, err
		}
		if match {
			items = append(items, file)
		}
	}

	for _, dir := range dirs {
		items, err = trawl(vfs, pattern, dir, items)
		if err != nil {
			return items, err
		}
	}

	return items, nil
}

// FindBGL recursively searches for *.bgl files (case-insensitive)
// under uri. The TileDB Go VFS bindings let the same code search
// either a local filesystem or an object store such as S3; configUri
// points at a TileDB config for object-store credentials, or "" for a
// plain local config.
func FindBGL(uri string, configUri string) ([]string, error) {
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
	defer config.Free()

	ctx, err := tiledb.NewContext(config)
	if err != nil {
		return nil, err
	}
	defer ctx.Free()

	vfs, err := tiledb.NewVFS(ctx, config)
	if err != nil {
		return nil, err
	}
	defer vfs.Free()

	return trawl(vfs, "*.bgl", uri, make([]string, 0))
}
