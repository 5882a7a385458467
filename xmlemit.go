package scone

import (
	"encoding/xml"
	"os"
	"path/filepath"
)

// xmlPropertyList is the FlightGear PropertyList root of a composite
// model file referencing both the AC3D and glTF renditions of the
// same tile, gated by /sim/version/flightgear (§4.12).
type xmlPropertyList struct {
	XMLName xml.Name     `xml:"PropertyList"`
	Model   []xmlModel   `xml:"model"`
	Anim    []xmlAnimate `xml:"animation"`
}

type xmlModel struct {
	Path string `xml:"path"`
	Name string `xml:"name"`
}

type xmlAnimate struct {
	Type       string        `xml:"type,attr"`
	ObjectName string        `xml:"object-name,omitempty"`
	Axis       *xmlAxis      `xml:"axis,omitempty"`
	OffsetDeg  *float64      `xml:"offset-deg,omitempty"`
	Condition  *xmlCondition `xml:"condition,omitempty"`
}

type xmlAxis struct {
	X float64 `xml:"x"`
	Y float64 `xml:"y"`
	Z float64 `xml:"z"`
}

// xmlCondition holds either a direct <equals> test or its negation
// <not><equals>...</not>, so a select animation can gate one model on
// a version match and its counterpart on the inverse (§4.12).
type xmlCondition struct {
	Equals *xmlEquals `xml:"equals,omitempty"`
	Not    *xmlEquals `xml:"not>equals,omitempty"`
}

type xmlEquals struct {
	Property string `xml:"property"`
	Value    string `xml:"value"`
}

func equalsCondition(property, value string) *xmlCondition {
	return &xmlCondition{Equals: &xmlEquals{Property: property, Value: value}}
}

func notEqualsCondition(property, value string) *xmlCondition {
	return &xmlCondition{Not: &xmlEquals{Property: property, Value: value}}
}

// EmitXmlModel writes the composite PropertyList XML for a tile that
// produced both a glTF and an AC3D rendition: two <model> entries
// (ac, gltf), three rotate animations (Z+90 ac, Z+270 gltf, X+90
// gltf), and two select animations gating each model on the running
// FlightGear version (§4.12). Only called when both formats exist; the
// caller decides that via StgEmitter's same hasGltf/hasAc3d switch.
func EmitXmlModel(scene TileScene, outputRoot string) (string, error) {
	dir := TileOutputDir(outputRoot, scene.CenterLat, scene.CenterLon)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	acPath := tileFileName(scene.TileIndex, "ac")
	gltfPath := tileFileName(scene.TileIndex, "gltf")

	const (
		acName      = "ac"
		gltfName    = "gltf"
		versionProp = "/sim/version/flightgear"
		minVersion  = "2024.2.0"
	)

	deg := func(v float64) *float64 { return &v }

	doc := xmlPropertyList{
		Model: []xmlModel{{Path: acPath, Name: acName}, {Path: gltfPath, Name: gltfName}},
		Anim: []xmlAnimate{
			{Type: "rotate", ObjectName: acName, Axis: &xmlAxis{Z: 1}, OffsetDeg: deg(90)},
			{Type: "rotate", ObjectName: gltfName, Axis: &xmlAxis{Z: 1}, OffsetDeg: deg(270)},
			{Type: "rotate", ObjectName: gltfName, Axis: &xmlAxis{X: 1}, OffsetDeg: deg(90)},
			{Type: "select", ObjectName: gltfName, Condition: equalsCondition(versionProp, minVersion)},
			{Type: "select", ObjectName: acName, Condition: notEqualsCondition(versionProp, minVersion)},
		},
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, tileFileName(scene.TileIndex, "xml"))
	out := append([]byte(xml.Header), body...)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
