package scone

import (
	"fmt"
	"os"
	"path/filepath"
)

// EmitStg writes the tile's single OBJECT_STATIC line into a .stg
// file beside the tile's model file(s) (§4.12). The referenced
// filename and orientation angles depend on which formats the tile
// actually produced:
//
//   - both glTF and AC3D: references the composite <tile>.xml, heading
//     set (0, 0, 90)
//   - glTF only: references <tile>.gltf, heading set (270, 0, 90)
//   - AC3D only: references <tile>.ac, heading set (90, 0, 0)
func EmitStg(scene TileScene, outputRoot string, hasGltf, hasAc3d bool) (string, error) {
	dir := TileOutputDir(outputRoot, scene.CenterLat, scene.CenterLon)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	var filename string
	var heading, pitch, roll float64
	switch {
	case hasGltf && hasAc3d:
		filename = tileFileName(scene.TileIndex, "xml")
		heading, pitch, roll = 0, 0, 90
	case hasGltf:
		filename = tileFileName(scene.TileIndex, "gltf")
		heading, pitch, roll = 270, 0, 90
	case hasAc3d:
		filename = tileFileName(scene.TileIndex, "ac")
		heading, pitch, roll = 90, 0, 0
	default:
		return "", nil
	}

	line := fmt.Sprintf("OBJECT_STATIC %s %.6f %.6f %.6f %.6f %.6f %.6f\n",
		filename, scene.CenterLon, scene.CenterLat, scene.CenterAlt, heading, pitch, roll)

	path := filepath.Join(dir, tileFileName(scene.TileIndex, "stg"))
	if err := os.WriteFile(path, []byte(line), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
