package scone

import (
	"compress/gzip"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"
)

// TerrainService is the abstract elevation-sampling capability
// PlacementDecoder consults for IsAboveAGL placements (§4.5).
type TerrainService interface {
	GetElevation(lat, lon float64) float64
}

// NullTerrainService always returns 0, the acceptable stub when no
// terrain source is configured (§4.5).
type NullTerrainService struct{}

func (NullTerrainService) GetElevation(lat, lon float64) float64 { return 0 }

// TerrainProvider fetches the two artifacts a tile needs: its .stg
// index (a text list of BTG filenames) and the gzipped BTG bytes named
// within it. Implementations may be local (TerraSync directory) or
// remote (HTTP), per §4.5/§6.
type TerrainProvider interface {
	FetchIndex(tileIndex TileIndex) (lines []string, err error)
	FetchBtg(tileIndex TileIndex, name string) (gzipped []byte, err error)
}

// HttpTerrainProvider implements TerrainProvider against the wire
// protocol in §6: `<baseUrl>/Terrain/<lonDir10><latDir10>/<lonDir1><latDir1>/<tileIndex>.stg`
// and a sibling `<name>.btg.gz`.
type HttpTerrainProvider struct {
	BaseUrl string
	Client  *http.Client
}

func NewHttpTerrainProvider(baseUrl string) *HttpTerrainProvider {
	return &HttpTerrainProvider{BaseUrl: baseUrl, Client: http.DefaultClient}
}

func (p *HttpTerrainProvider) tileDir(lat, lon float64) string {
	lonDir10 := bucketDir(lon, 10, 3, "e", "w")
	latDir10 := bucketDir(lat, 10, 2, "n", "s")
	lonDir1 := bucketDir(lon, 1, 3, "e", "w")
	latDir1 := bucketDir(lat, 1, 2, "n", "s")
	return fmt.Sprintf("%s%s/%s%s", lonDir10, latDir10, lonDir1, latDir1)
}

func (p *HttpTerrainProvider) FetchIndex(tileIndex TileIndex) ([]string, error) {
	lat, lon, err := GetLatLonOfTile(tileIndex)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/Terrain/%s/%d.stg", p.BaseUrl, p.tileDir(lat, lon), tileIndex)

	resp, err := p.Client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scone: fetching %s: status %s", url, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return strings.Split(strings.TrimSpace(string(body)), "\n"), nil
}

func (p *HttpTerrainProvider) FetchBtg(tileIndex TileIndex, name string) ([]byte, error) {
	lat, lon, err := GetLatLonOfTile(tileIndex)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/Terrain/%s/%s.gz", p.BaseUrl, p.tileDir(lat, lon), name)

	resp, err := p.Client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scone: fetching %s: status %s", url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// tileMeshEntry is one cached tile's decoded meshes, guarded by the
// process-wide cache lock (§5, "Shared resources").
type tileMeshEntry struct {
	meshes    []TerrainMesh
	fetchedAt time.Time
	locked    bool
}

// DefaultTerrainService implements §4.5's caching elevation sampler:
// fetch-parse-cache per tile, sample by lifting the query point into
// ECEF and testing against each cached mesh.
type DefaultTerrainService struct {
	provider TerrainProvider

	mu    sync.RWMutex
	cache map[TileIndex]*tileMeshEntry
}

func NewDefaultTerrainService(provider TerrainProvider) *DefaultTerrainService {
	return &DefaultTerrainService{provider: provider, cache: make(map[TileIndex]*tileMeshEntry)}
}

func (s *DefaultTerrainService) GetElevation(lat, lon float64) float64 {
	tileIndex, err := GetTileIndex(lat, lon)
	if err != nil {
		return 0
	}

	entry, err := s.tile(tileIndex)
	if err != nil {
		return 0
	}

	query := GeodeticToEcef(lat, lon, 0)

	var maxAlt float64
	found := false
	for _, mesh := range entry.meshes {
		alt, ok := mesh.SampleAltitude(query)
		if !ok {
			continue
		}
		if !found || alt > maxAlt {
			maxAlt = alt
			found = true
		}
	}
	return maxAlt
}

func (s *DefaultTerrainService) tile(tileIndex TileIndex) (*tileMeshEntry, error) {
	s.mu.RLock()
	entry, ok := s.cache[tileIndex]
	s.mu.RUnlock()
	if ok {
		return entry, nil
	}

	lines, err := s.provider.FetchIndex(tileIndex)
	if err != nil {
		return nil, err
	}

	var meshes []TerrainMesh
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if fields[0] != "OBJECT" && fields[0] != "OBJECT_BASE" {
			continue
		}
		name := fields[1]

		gzipped, err := s.provider.FetchBtg(tileIndex, name)
		if err != nil {
			continue
		}
		raw, err := gunzip(gzipped)
		if err != nil {
			continue
		}
		mesh, err := DecodeBTG(raw)
		if err != nil {
			continue
		}
		meshes = append(meshes, mesh)
	}

	entry = &tileMeshEntry{meshes: meshes, fetchedAt: wallClock()}

	s.mu.Lock()
	s.cache[tileIndex] = entry
	s.mu.Unlock()

	return entry, nil
}

func gunzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(strings.NewReader(string(data)))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// wallClock is isolated behind a function var so callers needing
// deterministic cache timestamps in tests can override it.
var wallClock = time.Now

// bucketDir formats one "<letter><digits>" directory component used by
// both §4.10's output path and §6's terrain URL:
// floor(|value|/bucket)*bucket, zero-padded to width, prefixed with
// positiveLetter/negativeLetter depending on sign (e/w for longitude,
// n/s for latitude).
func bucketDir(value, bucket float64, width int, positiveLetter, negativeLetter string) string {
	letter := positiveLetter
	if value < 0 {
		letter = negativeLetter
	}
	abs := value
	if abs < 0 {
		abs = -abs
	}
	v := int(math.Floor(abs/bucket) * bucket)
	return fmt.Sprintf("%s%0*d", letter, width, v)
}
