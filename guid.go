package scone

import "fmt"

// Guid is a 128-bit little-endian-encoded identifier as stored in a BGL
// SceneryObject library-placement record. It is used verbatim as the
// PlacementsByGuid / ModelReference key.
type Guid [16]byte

// String formats the GUID in the conventional
// 8-4-4-4-12 hex grouping (Microsoft GUID byte order: the first three
// fields are little-endian, the last two are big-endian byte strings).
func (g Guid) String() string {
	return fmt.Sprintf(
		"%08x-%04x-%04x-%02x%02x-%02x%02x%02x%02x%02x%02x",
		uint32(g[3])<<24|uint32(g[2])<<16|uint32(g[1])<<8|uint32(g[0]),
		uint16(g[5])<<8|uint16(g[4]),
		uint16(g[7])<<8|uint16(g[6]),
		g[8], g[9],
		g[10], g[11], g[12], g[13], g[14], g[15],
	)
}

// IsZero reports whether the GUID is the all-zero "empty" value BGL uses
// as a placeholder in library-placement headers.
func (g Guid) IsZero() bool {
	return g == Guid{}
}
