package vector

import (
	"strconv"

	"github.com/stormlens/tileindex/internal/db"
	"github.com/stormlens/tileindex/internal/domain/tile"
)

// vectorField is the hash field holding the raw embedding bytes.
const vectorField = "__vector"

// Reserved hash fields written by the adapter. Caller-supplied metadata is
// flattened first so a colliding key cannot shadow these.
const (
	fieldImageID   = "image_id"
	fieldTileURL   = "tile_url"
	fieldThumbURL  = "thumb_url"
	fieldWest      = "west"
	fieldSouth     = "south"
	fieldEast      = "east"
	fieldNorth     = "north"
	fieldCenterLat = "center_lat"
	fieldCenterLon = "center_lon"
	fieldURLHash   = "url_hash"
	fieldTimestamp = "timestamp"
	fieldIndexedAt = "indexed_at"
)

// returnFields enumerates what a KNN query brings back per hit. The embedding
// itself is excluded to keep responses small.
var returnFields = []string{
	fieldImageID,
	fieldTileURL,
	fieldThumbURL,
	fieldWest,
	fieldSouth,
	fieldEast,
	fieldNorth,
	fieldCenterLat,
	fieldCenterLon,
	fieldURLHash,
	fieldTimestamp,
	fieldIndexedAt,
}

func buildHashFields(vec []float32, t tile.Tile) map[string]string {
	m := make(map[string]string, len(t.Metadata)+len(returnFields)+1)
	for k, v := range t.Metadata {
		m[k] = v
	}
	m[fieldImageID] = t.ImageID
	m[fieldTileURL] = t.TileURL
	m[fieldThumbURL] = t.ThumbURL
	m[fieldWest] = formatFloat(t.Bounds.West)
	m[fieldSouth] = formatFloat(t.Bounds.South)
	m[fieldEast] = formatFloat(t.Bounds.East)
	m[fieldNorth] = formatFloat(t.Bounds.North)
	m[fieldCenterLat] = formatFloat(t.CenterLat)
	m[fieldCenterLon] = formatFloat(t.CenterLon)
	m[fieldURLHash] = t.URLHash
	m[fieldTimestamp] = t.Timestamp
	m[fieldIndexedAt] = t.IndexedAt
	m[vectorField] = db.VectorBytes(vec)
	return m
}

func parseHashFields(fields map[string]string) tile.Tile {
	t := tile.Tile{
		ImageID:   fields[fieldImageID],
		TileURL:   fields[fieldTileURL],
		ThumbURL:  fields[fieldThumbURL],
		URLHash:   fields[fieldURLHash],
		Timestamp: fields[fieldTimestamp],
		IndexedAt: fields[fieldIndexedAt],
		CenterLat: parseFloat(fields[fieldCenterLat]),
		CenterLon: parseFloat(fields[fieldCenterLon]),
	}
	t.Bounds.West = parseFloat(fields[fieldWest])
	t.Bounds.South = parseFloat(fields[fieldSouth])
	t.Bounds.East = parseFloat(fields[fieldEast])
	t.Bounds.North = parseFloat(fields[fieldNorth])
	return t
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
