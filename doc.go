// Package scone converts a directory of Microsoft Flight Simulator scenery
// packages (BGL containers plus their textures) into a tile-organized
// FlightGear scenery tree.
//
// The pipeline runs in two passes: pass one walks every BGL to collect
// placements (LibraryPlacement / SimObjectPlacement, keyed by GUID or by
// title+path) and resolves terrain elevation for AGL-relative altitudes;
// pass two indexes the model payloads referenced by those placements,
// groups everything by FlightGear tile, and emits a composite glTF and/or
// AC3D model plus an STG placement line per tile.
package scone
