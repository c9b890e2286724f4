// Package tile defines the tile record and the validation rules guarding the
// indexing write path.
package tile

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/stormlens/tileindex/internal/domain/geo"
)

// Tile is the unit of indexing: one georeferenced imagery tile with its
// derived fields and caller-supplied metadata.
type Tile struct {
	ImageID   string     `json:"image_id"`
	TileURL   string     `json:"tile_url"`
	ThumbURL  string     `json:"thumb_url,omitempty"`
	Bounds    geo.Bounds `json:"bounds"`
	CenterLat float64    `json:"center_lat"`
	CenterLon float64    `json:"center_lon"`
	URLHash   string     `json:"url_hash"`
	// Timestamp is the caller-supplied capture time, stored verbatim.
	Timestamp string `json:"timestamp,omitempty"`
	// IndexedAt is the server-assigned ingestion time, RFC3339 UTC.
	IndexedAt string `json:"indexed_at"`
	// Metadata carries caller extras merged into the record verbatim.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// hashLen is the number of hex characters kept from the URL digest.
const hashLen = 16

// URLHash returns the dedup key for a tile URL: a truncated hex SHA-256
// digest. It identifies re-submission of the same imagery, not the record.
func URLHash(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])[:hashLen]
}
