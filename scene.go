package scone

import (
	"math"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// MaterialRef is one imported glTF material's values already mapped to
// the fields both emitters need (§4.8's Materials section). Every
// texture slot glTF's metallic-roughness model defines is carried
// through (not just base color) so §4.10's MSFT_texture_dds
// rethreading can re-annotate all of them, not only the diffuse map.
type MaterialRef struct {
	BaseColor       [4]float64
	MetallicFactor  float64
	RoughnessFactor float64
	EmissiveFactor  [3]float64
	DoubleSided     bool

	BaseColorTexturePath         string
	MetallicRoughnessTexturePath string
	NormalTexturePath            string
	OcclusionTexturePath         string
	EmissiveTexturePath          string
}

// MeshBuilder is one imported glTF mesh primitive's triangle soup,
// already triangulated and in the primitive's local space (§4.8).
type MeshBuilder struct {
	Positions [][3]float32
	TexCoords [][2]float32
	Indices   []uint32
	Material  *MaterialRef
}

// NeutralScene is everything GltfSceneImporter extracts from a single
// GLB document: one MeshBuilder per non-empty primitive instance, each
// already carrying its node's resolved world transform (§4.8).
type NeutralScene struct {
	Instances []MeshInstance
}

// MeshInstance pairs a MeshBuilder with the world transform of the
// node that referenced it.
type MeshInstance struct {
	Mesh      MeshBuilder
	Transform Mat4
}

// ImportGltfScene walks doc's node hierarchy, resolving world
// transforms and extracting mesh/material data (§4.8). Any mesh whose
// resolved transform contains a non-finite component is skipped
// (§7 TransformInvalid).
func ImportGltfScene(doc *gltf.Document, assetIndex *AssetIndex, sourcePath string) NeutralScene {
	var scene NeutralScene

	materials := importMaterials(doc, assetIndex, sourcePath)

	parent := make([]int, len(doc.Nodes))
	for i := range parent {
		parent[i] = -1
	}
	for i, node := range doc.Nodes {
		for _, child := range node.Children {
			if int(child) < len(parent) {
				parent[child] = i
			}
		}
	}

	worldCache := make(map[int]Mat4)
	var worldTransform func(i int) Mat4
	worldTransform = func(i int) Mat4 {
		if m, ok := worldCache[i]; ok {
			return m
		}
		local := localNodeTransform(doc.Nodes[i])
		m := local
		if p := parent[i]; p >= 0 {
			m = Mul4(worldTransform(p), local)
		}
		worldCache[i] = m
		return m
	}

	for i, node := range doc.Nodes {
		if node.Mesh == nil {
			continue
		}
		transform := worldTransform(i)
		if !IsFiniteMat4(transform) {
			continue
		}

		mesh := doc.Meshes[*node.Mesh]
		for _, prim := range mesh.Primitives {
			builder, ok := buildPrimitive(doc, prim, materials)
			if !ok || len(builder.Indices) < 3 {
				continue
			}
			scene.Instances = append(scene.Instances, MeshInstance{Mesh: builder, Transform: transform})
		}
	}

	return scene
}

// localNodeTransform resolves a node's local matrix: a direct 4x4
// matrix if present, otherwise scale*rotation*translation composed
// from TRS components (§4.8). A non-finite or non-positive scale is
// replaced with a uniform scale equal to the scalar average of the
// declared components, per §4.8's substitution rule.
func localNodeTransform(node *gltf.Node) Mat4 {
	m := node.MatrixOrDefault()
	identity := [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
	row := Mat4{
		float64(m[0]), float64(m[4]), float64(m[8]), float64(m[12]),
		float64(m[1]), float64(m[5]), float64(m[9]), float64(m[13]),
		float64(m[2]), float64(m[6]), float64(m[10]), float64(m[14]),
		float64(m[3]), float64(m[7]), float64(m[11]), float64(m[15]),
	}
	if Mat4(identity) != row {
		return row
	}

	t := node.TranslationOrDefault()
	r := node.RotationOrDefault()
	s := node.ScaleOrDefault()

	sx, sy, sz := float64(s[0]), float64(s[1]), float64(s[2])
	if !finite3(sx, sy, sz) || sx <= 0 || sy <= 0 || sz <= 0 {
		avg := (sx + sy + sz) / 3
		sx, sy, sz = avg, avg, avg
	}

	rotation := quaternionMat4(float64(r[0]), float64(r[1]), float64(r[2]), float64(r[3]))
	scaleM := Mat4{
		sx, 0, 0, 0,
		0, sy, 0, 0,
		0, 0, sz, 0,
		0, 0, 0, 1,
	}
	translation := TranslationMat4(Vec3{X: float64(t[0]), Y: float64(t[1]), Z: float64(t[2])})

	return Mul4(scaleM, Mul4(rotation, translation))
}

func finite3(a, b, c float64) bool {
	for _, v := range []float64{a, b, c} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// quaternionMat4 builds a rotation matrix from a normalized
// (x, y, z, w) quaternion.
func quaternionMat4(x, y, z, w float64) Mat4 {
	n := math.Sqrt(x*x + y*y + z*z + w*w)
	if n == 0 {
		return Identity4()
	}
	x, y, z, w = x/n, y/n, z/n, w/n

	return Mat4{
		1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w), 0,
		2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w), 0,
		2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y), 0,
		0, 0, 0, 1,
	}
}

func buildPrimitive(doc *gltf.Document, prim *gltf.Primitive, materials []MaterialRef) (MeshBuilder, bool) {
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return MeshBuilder{}, false
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return MeshBuilder{}, false
	}

	var texcoords [][2]float32
	if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		texcoords, _ = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil)
		for i := range texcoords {
			texcoords[i][1] = 1 - texcoords[i][1]
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return MeshBuilder{}, false
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	indices = applyAsoboPrimitiveExtras(prim, indices)

	builder := MeshBuilder{Positions: positions, TexCoords: texcoords, Indices: indices}
	if prim.Material != nil && int(*prim.Material) < len(materials) {
		builder.Material = &materials[*prim.Material]
	}
	return builder, true
}

// asoboPrimitiveExtras mirrors the MSFS-specific extras object that
// lets one accessor back several primitives (§4.8).
type asoboPrimitiveExtras struct {
	BaseVertexIndex int `json:"BaseVertexIndex"`
	StartIndex      int `json:"StartIndex"`
	PrimitiveCount  int `json:"PrimitiveCount"`
}

func applyAsoboPrimitiveExtras(prim *gltf.Primitive, indices []uint32) []uint32 {
	extras, ok := decodeAsoboExtras(prim.Extras)
	if !ok {
		return indices
	}

	start := extras.StartIndex
	count := extras.PrimitiveCount * 3
	if start < 0 || count <= 0 || start+count > len(indices) {
		return indices
	}

	sliced := make([]uint32, count)
	for i := 0; i < count; i++ {
		sliced[i] = indices[start+i] + uint32(extras.BaseVertexIndex)
	}
	return sliced
}

func decodeAsoboExtras(extras interface{}) (asoboPrimitiveExtras, bool) {
	m, ok := extras.(map[string]interface{})
	if !ok {
		return asoboPrimitiveExtras{}, false
	}
	obj, ok := m["ASOBO_primitive"].(map[string]interface{})
	if !ok {
		return asoboPrimitiveExtras{}, false
	}

	read := func(key string) int {
		if v, ok := obj[key].(float64); ok {
			return int(v)
		}
		return 0
	}

	return asoboPrimitiveExtras{
		BaseVertexIndex: read("BaseVertexIndex"),
		StartIndex:      read("StartIndex"),
		PrimitiveCount:  read("PrimitiveCount"),
	}, true
}

func importMaterials(doc *gltf.Document, assetIndex *AssetIndex, sourcePath string) []MaterialRef {
	materials := make([]MaterialRef, len(doc.Materials))
	for i, gm := range doc.Materials {
		ref := MaterialRef{
			BaseColor:       [4]float64{1, 1, 1, 1},
			MetallicFactor:  1,
			RoughnessFactor: 1,
			DoubleSided:     gm.DoubleSided,
		}
		if pbr := gm.PBRMetallicRoughness; pbr != nil {
			cf := pbr.BaseColorFactorOrDefault()
			for c := 0; c < 4; c++ {
				ref.BaseColor[c] = clamp01(float64(cf[c]))
			}
			ref.MetallicFactor = pbr.MetallicFactorOrDefault()
			ref.RoughnessFactor = pbr.RoughnessFactorOrDefault()

			if pbr.BaseColorTexture != nil {
				ref.BaseColorTexturePath = resolveTextureUri(doc, int(pbr.BaseColorTexture.Index), assetIndex, sourcePath)
			}
			if pbr.MetallicRoughnessTexture != nil {
				ref.MetallicRoughnessTexturePath = resolveTextureUri(doc, int(pbr.MetallicRoughnessTexture.Index), assetIndex, sourcePath)
			}
		}
		if gm.NormalTexture != nil && gm.NormalTexture.Index != nil {
			ref.NormalTexturePath = resolveTextureUri(doc, int(*gm.NormalTexture.Index), assetIndex, sourcePath)
		}
		if gm.OcclusionTexture != nil && gm.OcclusionTexture.Index != nil {
			ref.OcclusionTexturePath = resolveTextureUri(doc, int(*gm.OcclusionTexture.Index), assetIndex, sourcePath)
		}
		if gm.EmissiveTexture != nil {
			ref.EmissiveTexturePath = resolveTextureUri(doc, int(gm.EmissiveTexture.Index), assetIndex, sourcePath)
		}
		ef := gm.EmissiveFactorOrDefault()
		ref.EmissiveFactor = [3]float64{float64(ef[0]), float64(ef[1]), float64(ef[2])}

		materials[i] = ref
	}
	return materials
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// resolveTextureUri resolves textures[idx]'s image URI against the
// asset root by case-insensitive recursive search, breaking ties by
// longest common prefix with sourcePath (§4.8).
func resolveTextureUri(doc *gltf.Document, idx int, assetIndex *AssetIndex, sourcePath string) string {
	if idx < 0 || idx >= len(doc.Textures) {
		return ""
	}
	tex := doc.Textures[idx]
	if tex.Source == nil {
		return ""
	}
	img := doc.Images[*tex.Source]
	if img.URI == "" {
		return ""
	}
	return ResolveAssetPath(assetIndex, sourcePath, img.URI)
}
