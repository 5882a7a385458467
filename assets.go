package scone

import (
	"os"
	"path/filepath"
	"strings"
)

// AssetIndex is a case-insensitive recursive index of every file under
// an asset root, built once per conversion run and reused across every
// tile's texture resolution instead of re-walking the tree per
// placement (§4.8 ADD: texture resolution).
type AssetIndex struct {
	root string
	// byBasename maps a lowercased basename to every full path sharing it.
	byBasename map[string][]string
}

// BuildAssetIndex walks root (a local directory tree) once, recording
// every file's lowercased basename for later case-insensitive lookup.
func BuildAssetIndex(root string) (*AssetIndex, error) {
	index := &AssetIndex{root: root, byBasename: make(map[string][]string)}

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		key := strings.ToLower(filepath.Base(path))
		index.byBasename[key] = append(index.byBasename[key], path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return index, nil
}

// Resolve finds the best match for basename, breaking ties by longest
// common prefix with sourcePath (§4.8).
func (idx *AssetIndex) Resolve(basename, sourcePath string) (string, bool) {
	candidates := idx.byBasename[strings.ToLower(basename)]
	if len(candidates) == 0 {
		return "", false
	}
	if len(candidates) == 1 {
		return candidates[0], true
	}

	best := candidates[0]
	bestLen := commonPrefixLen(best, sourcePath)
	for _, c := range candidates[1:] {
		if l := commonPrefixLen(c, sourcePath); l > bestLen {
			best, bestLen = c, l
		}
	}
	return best, true
}

func commonPrefixLen(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// ResolveAssetPath resolves a texture uri (as found in a glTF image's
// URI field) against the given asset index. Returns "" (a
// TextureResolutionMiss, §7) when no match exists.
func ResolveAssetPath(assetIndex *AssetIndex, sourcePath, uri string) string {
	if assetIndex == nil {
		return ""
	}
	basename := filepath.Base(uri)
	resolved, ok := assetIndex.Resolve(basename, sourcePath)
	if !ok {
		return ""
	}
	return resolved
}
