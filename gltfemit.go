package scone

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// EmitGltf serializes scene's glTF instances into a standalone glTF
// 2.0 document and writes it (with a sibling satellite .bin, per
// §4.10's "satellite image writing") to outputRoot's tile directory.
// Texture files referenced by materials are copied alongside it.
// Returns the written .gltf file's path.
func EmitGltf(scene TileScene, outputRoot string) (string, error) {
	doc := gltf.NewDocument()
	doc.Scenes = []*gltf.Scene{{}}
	doc.Scene = gltf.Index(0)

	imageIndexByPath := make(map[string]uint32)
	materialIndexByTexture := make(map[string]uint32)

	for _, instance := range scene.GltfInstances {
		meshIdx := buildGltfMesh(doc, instance.Mesh, imageIndexByPath, materialIndexByTexture)
		if meshIdx == nil {
			continue
		}

		node := &gltf.Node{Mesh: meshIdx}
		m := instance.Transform
		node.Matrix = [16]float32{
			float32(m[0]), float32(m[4]), float32(m[8]), float32(m[12]),
			float32(m[1]), float32(m[5]), float32(m[9]), float32(m[13]),
			float32(m[2]), float32(m[6]), float32(m[10]), float32(m[14]),
			float32(m[3]), float32(m[7]), float32(m[11]), float32(m[15]),
		}

		nodeIdx := uint32(len(doc.Nodes))
		doc.Nodes = append(doc.Nodes, node)
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, nodeIdx)
	}

	annotateDdsTextures(doc)

	dir := TileOutputDir(outputRoot, scene.CenterLat, scene.CenterLon)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, tileFileName(scene.TileIndex, "gltf"))

	if err := gltf.Save(doc, path); err != nil {
		return "", err
	}

	copyTileTextures(imageIndexByPath, dir)

	return path, nil
}

func buildGltfMesh(doc *gltf.Document, mesh MeshBuilder, imageIndexByPath map[string]uint32, materialIndexByTexture map[string]uint32) *uint32 {
	if len(mesh.Indices) < 3 || len(mesh.Positions) == 0 {
		return nil
	}

	posAccessor := modeler.WritePosition(doc, mesh.Positions)
	indicesAccessor := modeler.WriteIndices(doc, mesh.Indices)

	attributes := map[string]uint32{gltf.POSITION: posAccessor}
	if len(mesh.TexCoords) > 0 {
		attributes[gltf.TEXCOORD_0] = modeler.WriteTextureCoord(doc, mesh.TexCoords)
	}

	prim := &gltf.Primitive{
		Attributes: attributes,
		Indices:    gltf.Index(indicesAccessor),
		Mode:       gltf.PrimitiveTriangles,
	}
	if mesh.Material != nil {
		prim.Material = gltf.Index(materialIndex(doc, *mesh.Material, imageIndexByPath, materialIndexByTexture))
	}

	gltfMesh := &gltf.Mesh{Primitives: []*gltf.Primitive{prim}}
	meshIdx := uint32(len(doc.Meshes))
	doc.Meshes = append(doc.Meshes, gltfMesh)
	return &meshIdx
}

// materialIndex adds (deduplicated by its full set of texture paths) a
// PBR material to doc and returns its index. Every texture slot is
// wired through so annotateDdsTextures can re-thread MSFT_texture_dds
// onto all of them, not just the base color map (§4.10).
func materialIndex(doc *gltf.Document, ref MaterialRef, imageIndexByPath map[string]uint32, materialIndexByTexture map[string]uint32) uint32 {
	key := ref.BaseColorTexturePath + "|" + ref.MetallicRoughnessTexturePath + "|" +
		ref.NormalTexturePath + "|" + ref.OcclusionTexturePath + "|" + ref.EmissiveTexturePath
	if idx, ok := materialIndexByTexture[key]; ok && key != "||||" {
		return idx
	}

	mat := &gltf.Material{
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float32{
				float32(ref.BaseColor[0]), float32(ref.BaseColor[1]),
				float32(ref.BaseColor[2]), float32(ref.BaseColor[3]),
			},
			MetallicFactor:  gltf.Float(float32(ref.MetallicFactor)),
			RoughnessFactor: gltf.Float(float32(ref.RoughnessFactor)),
		},
		EmissiveFactor: [3]float32{
			float32(ref.EmissiveFactor[0]), float32(ref.EmissiveFactor[1]), float32(ref.EmissiveFactor[2]),
		},
		DoubleSided: ref.DoubleSided,
	}

	if ref.BaseColorTexturePath != "" {
		texIdx := textureIndex(doc, imageIndexByPath, ref.BaseColorTexturePath)
		mat.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: texIdx}
	}
	if ref.MetallicRoughnessTexturePath != "" {
		texIdx := textureIndex(doc, imageIndexByPath, ref.MetallicRoughnessTexturePath)
		mat.PBRMetallicRoughness.MetallicRoughnessTexture = &gltf.TextureInfo{Index: texIdx}
	}
	if ref.NormalTexturePath != "" {
		texIdx := textureIndex(doc, imageIndexByPath, ref.NormalTexturePath)
		mat.NormalTexture = &gltf.NormalTexture{Index: gltf.Index(texIdx)}
	}
	if ref.OcclusionTexturePath != "" {
		texIdx := textureIndex(doc, imageIndexByPath, ref.OcclusionTexturePath)
		mat.OcclusionTexture = &gltf.OcclusionTexture{Index: gltf.Index(texIdx)}
	}
	if ref.EmissiveTexturePath != "" {
		texIdx := textureIndex(doc, imageIndexByPath, ref.EmissiveTexturePath)
		mat.EmissiveTexture = &gltf.TextureInfo{Index: texIdx}
	}

	matIdx := uint32(len(doc.Materials))
	doc.Materials = append(doc.Materials, mat)
	if key != "||||" {
		materialIndexByTexture[key] = matIdx
	}
	return matIdx
}

// textureIndex adds (deduplicated by source path) a texture/image pair
// to doc and returns the texture's index.
func textureIndex(doc *gltf.Document, imageIndexByPath map[string]uint32, path string) uint32 {
	imageIdx, ok := imageIndexByPath[path]
	if !ok {
		imageIdx = uint32(len(doc.Images))
		doc.Images = append(doc.Images, &gltf.Image{URI: filepath.Base(path)})
		imageIndexByPath[path] = imageIdx
	}
	texIdx := uint32(len(doc.Textures))
	doc.Textures = append(doc.Textures, &gltf.Texture{Source: gltf.Index(imageIdx)})
	return texIdx
}

// msftTextureDds is the extension payload attached to a texture that
// has a DDS sibling, per §4.10.
type msftTextureDds struct {
	Source uint32 `json:"source"`
}

// annotateDdsTextures attaches extensions.MSFT_texture_dds.source to
// every texture used by a material with an image, mirroring the plain
// source with the DDS-aware one (§4.10).
func annotateDdsTextures(doc *gltf.Document) {
	if len(doc.Textures) == 0 {
		return
	}
	doc.ExtensionsUsed = append(doc.ExtensionsUsed, "MSFT_texture_dds")
	for _, tex := range doc.Textures {
		if tex.Source == nil {
			continue
		}
		if tex.Extensions == nil {
			tex.Extensions = gltf.Extensions{}
		}
		tex.Extensions["MSFT_texture_dds"] = msftTextureDds{Source: *tex.Source}
	}
}

// copyTileTextures copies every resolved texture source path into dir,
// retaining the source filename, skipping destinations that already
// exist (§4.10, §4.11 "Texture copying").
func copyTileTextures(imageIndexByPath map[string]uint32, dir string) {
	for srcPath := range imageIndexByPath {
		dest := filepath.Join(dir, filepath.Base(srcPath))
		if _, err := os.Stat(dest); err == nil {
			continue
		}
		if err := copyFile(srcPath, dest); err != nil {
			log.Printf("scone: copying texture %s to %s: %v", srcPath, dest, err)
		}
	}
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// TileOutputDir computes the Objects/<lonBucket10>/<latBucket10>/<lonBucket1>/<latBucket1>
// directory a tile's outputs live in (§4.10, §6).
func TileOutputDir(outputRoot string, lat, lon float64) string {
	lonDir10 := bucketDir(lon, 10, 3, "e", "w")
	latDir10 := bucketDir(lat, 10, 2, "n", "s")
	lonDir1 := bucketDir(lon, 1, 3, "e", "w")
	latDir1 := bucketDir(lat, 1, 2, "n", "s")
	return filepath.Join(outputRoot, "Objects", lonDir10, latDir10, lonDir1, latDir1)
}

func tileFileName(tileIndex TileIndex, ext string) string {
	return strconv.FormatUint(uint64(tileIndex), 10) + "." + ext
}
