package scone

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// acMaterial is one deduplicated AC3D material line (§4.11).
type acMaterial struct {
	Name         string
	Diffuse      [3]float64
	Ambient      [3]float64
	Emissive     [3]float64
	Specular     float64
	Shininess    int
	Transparency float64
}

// acVertexKey is the integer-quantized dedup key for an AC3D vertex
// pool: round(v*10000) per axis (§4.11, §8).
type acVertexKey [3]int64

// acObject is one `OBJECT poly` emitted into the tile file.
type acObject struct {
	Name        string
	Texture     string
	TexRepeatU  float64
	TexRepeatV  float64
	Vertices    []Vec3
	vertexIndex map[acVertexKey]int
	Surfaces    []acSurface
	MaterialIdx int
}

type acSurface struct {
	A, B, C     int
	UvA, UvB, UvC [2]float64
	DoubleSided bool
}

// EmitAc3d writes scene's AC3D instances as an AC3D ASCII v11 tile
// file (§4.11). Returns the written .ac file's path.
func EmitAc3d(scene TileScene, outputRoot string) (string, error) {
	materials := []acMaterial{defaultWhiteMaterial()}
	materialIndexByKey := map[string]int{materialKey(materials[0]): 0}

	var objects []acObject
	textures := make(map[string]uint32)

	for i, instance := range scene.AcInstances {
		ref := instance.Mesh.Material
		matIdx := 0
		if ref != nil {
			m := acMaterialFromRef(*ref)
			key := materialKey(m)
			idx, ok := materialIndexByKey[key]
			if !ok {
				idx = len(materials)
				materials = append(materials, m)
				materialIndexByKey[key] = idx
			}
			matIdx = idx
		}

		obj := buildAcObject(fmt.Sprintf("poly_%d", i), instance, matIdx)
		if obj == nil {
			continue
		}
		objects = append(objects, *obj)
		if obj.Texture != "" {
			textures[obj.Texture] = uint32(len(textures))
		}
	}

	dir := TileOutputDir(outputRoot, scene.CenterLat, scene.CenterLon)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, tileFileName(scene.TileIndex, "ac"))

	var sb strings.Builder
	sb.WriteString("AC3Db\n")
	for _, m := range materials {
		writeAcMaterial(&sb, m)
	}
	sb.WriteString("OBJECT world\n")
	sb.WriteString(fmt.Sprintf("kids %d\n", len(objects)))
	for _, obj := range objects {
		writeAcObject(&sb, obj)
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return "", err
	}

	copyTileTextures(textures, dir)

	return path, nil
}

func defaultWhiteMaterial() acMaterial {
	return acMaterial{
		Name:      "DefaultWhite",
		Diffuse:   [3]float64{1, 1, 1},
		Ambient:   [3]float64{0.2, 0.2, 0.2},
		Specular:  0.04,
		Shininess: 0,
	}
}

func acMaterialFromRef(ref MaterialRef) acMaterial {
	diffuse := [3]float64{ref.BaseColor[0], ref.BaseColor[1], ref.BaseColor[2]}
	ambient := [3]float64{diffuse[0] * 0.2, diffuse[1] * 0.2, diffuse[2] * 0.2}

	shininess := int(math.Round((1 - ref.RoughnessFactor) * 128))
	if shininess < 0 {
		shininess = 0
	}
	if shininess > 128 {
		shininess = 128
	}

	return acMaterial{
		Name:         "mat",
		Diffuse:      diffuse,
		Ambient:      ambient,
		Emissive:     ref.EmissiveFactor,
		Specular:     0.04 + ref.MetallicFactor*0.5,
		Shininess:    shininess,
		Transparency: 1 - ref.BaseColor[3],
	}
}

// materialKey is the canonical dedup key of §4.11: every component
// formatted to 3 decimals.
func materialKey(m acMaterial) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }
	return strings.Join([]string{
		f(m.Diffuse[0]), f(m.Diffuse[1]), f(m.Diffuse[2]),
		f(m.Ambient[0]), f(m.Ambient[1]), f(m.Ambient[2]),
		f(m.Emissive[0]), f(m.Emissive[1]), f(m.Emissive[2]),
		f(m.Specular), strconv.Itoa(m.Shininess), f(m.Transparency),
	}, ",")
}

func writeAcMaterial(sb *strings.Builder, m acMaterial) {
	fmt.Fprintf(sb, "MATERIAL %q rgb %.3f %.3f %.3f  amb %.3f %.3f %.3f  emis %.3f %.3f %.3f  spec %.3f %.3f %.3f  shi %d  trans %.3f\n",
		m.Name,
		m.Diffuse[0], m.Diffuse[1], m.Diffuse[2],
		m.Ambient[0], m.Ambient[1], m.Ambient[2],
		m.Emissive[0], m.Emissive[1], m.Emissive[2],
		m.Specular, m.Specular, m.Specular,
		m.Shininess, m.Transparency,
	)
}

// buildAcObject assembles one OBJECT poly from an instanced mesh,
// deduplicating its vertex pool by integer quantization and flipping
// (x, y, z) -> (-x, y, z) on emission (§4.11).
func buildAcObject(name string, instance TileInstance, matIdx int) *acObject {
	mesh := instance.Mesh
	if len(mesh.Indices) < 3 {
		return nil
	}

	obj := &acObject{
		Name:        sanitizeAcName(name),
		MaterialIdx: matIdx,
		vertexIndex: make(map[acVertexKey]int),
	}
	if mesh.Material != nil {
		obj.Texture = mesh.Material.BaseColorTexturePath
		obj.TexRepeatU, obj.TexRepeatV = 1, 1
	}

	addVertex := func(p [3]float32) int {
		world := TransformPoint(instance.Transform, Vec3{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])})
		flipped := Vec3{X: -world.X, Y: world.Y, Z: world.Z}
		key := acVertexKey{
			int64(math.Round(flipped.X * 10000)),
			int64(math.Round(flipped.Y * 10000)),
			int64(math.Round(flipped.Z * 10000)),
		}
		if idx, ok := obj.vertexIndex[key]; ok {
			return idx
		}
		idx := len(obj.Vertices)
		obj.Vertices = append(obj.Vertices, flipped)
		obj.vertexIndex[key] = idx
		return idx
	}

	uvAt := func(i int) [2]float64 {
		if i < len(mesh.TexCoords) {
			uv := mesh.TexCoords[i]
			return [2]float64{float64(uv[0]), 1 - float64(uv[1])}
		}
		return [2]float64{0, 0}
	}

	for i := 0; i+2 < len(mesh.Indices); i += 3 {
		ia, ib, ic := mesh.Indices[i], mesh.Indices[i+1], mesh.Indices[i+2]
		if int(ia) >= len(mesh.Positions) || int(ib) >= len(mesh.Positions) || int(ic) >= len(mesh.Positions) {
			continue
		}
		a := addVertex(mesh.Positions[ia])
		b := addVertex(mesh.Positions[ib])
		c := addVertex(mesh.Positions[ic])

		obj.Surfaces = append(obj.Surfaces, acSurface{
			A: a, B: b, C: c,
			UvA: uvAt(int(ia)), UvB: uvAt(int(ib)), UvC: uvAt(int(ic)),
			DoubleSided: mesh.Material != nil && mesh.Material.DoubleSided,
		})
	}

	return obj
}

func sanitizeAcName(name string) string {
	return strings.ReplaceAll(name, `"`, "")
}

func writeAcObject(sb *strings.Builder, obj acObject) {
	fmt.Fprintf(sb, "OBJECT poly\n")
	fmt.Fprintf(sb, "name %q\n", obj.Name)
	sb.WriteString("crease 30.0\n")
	if obj.Texture != "" {
		fmt.Fprintf(sb, "texture %q\n", filepath.Base(obj.Texture))
		if obj.TexRepeatU != 1 || obj.TexRepeatV != 1 {
			fmt.Fprintf(sb, "texrep %.3f %.3f\n", obj.TexRepeatU, obj.TexRepeatV)
		}
	}

	fmt.Fprintf(sb, "numvert %d\n", len(obj.Vertices))
	for _, v := range obj.Vertices {
		fmt.Fprintf(sb, "%.6f %.6f %.6f\n", v.X, v.Y, v.Z)
	}

	fmt.Fprintf(sb, "numsurf %d\n", len(obj.Surfaces))
	for _, s := range obj.Surfaces {
		flags := 0x10
		if s.DoubleSided {
			flags |= 0x20
		}
		fmt.Fprintf(sb, "SURF 0x%x\n", flags)
		fmt.Fprintf(sb, "mat %d\n", obj.MaterialIdx)
		fmt.Fprintf(sb, "refs 3\n")
		for _, corner := range []struct {
			idx int
			uv  [2]float64
		}{{s.A, s.UvA}, {s.B, s.UvB}, {s.C, s.UvC}} {
			fmt.Fprintf(sb, "%d %.6f %.6f\n", corner.idx, corner.uv[0], corner.uv[1])
		}
	}

	sb.WriteString("kids 0\n")
}
