package chi

import (
	"github.com/stormlens/tileindex/internal/domain/geo"
	searchuc "github.com/stormlens/tileindex/internal/usecase/search"
)

// indexTileRequest is the POST /index_tile body.
type indexTileRequest struct {
	ImageID   string            `json:"image_id"`
	TileURL   string            `json:"tile_url"`
	ThumbURL  string            `json:"thumb_url,omitempty"`
	Bounds    *geo.Bounds       `json:"bounds"`
	Timestamp string            `json:"timestamp,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// searchRequest is the POST /search_images body.
type searchRequest struct {
	Query string      `json:"query"`
	K     *int        `json:"k,omitempty"`
	ROI   *geo.Bounds `json:"roi,omitempty"`
}

type centerResponse struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type indexedResponse struct {
	Status  string         `json:"status"`
	ImageID string         `json:"image_id"`
	Center  centerResponse `json:"center"`
}

type duplicateResponse struct {
	Warning         string `json:"warning"`
	ExistingImageID string `json:"existing_image_id"`
	Action          string `json:"action"`
}

type searchHitResponse struct {
	ImageID    string         `json:"image_id"`
	TileURL    string         `json:"tile_url"`
	ThumbURL   string         `json:"thumb_url,omitempty"`
	Center     centerResponse `json:"center"`
	Bounds     geo.Bounds     `json:"bounds"`
	Timestamp  string         `json:"timestamp,omitempty"`
	Distance   float64        `json:"distance"`
	Similarity float64        `json:"similarity"`
}

type searchResponse struct {
	Query     string              `json:"query"`
	Results   []searchHitResponse `json:"results"`
	Count     int                 `json:"count"`
	Requested int                 `json:"requested"`
}

type deletedResponse struct {
	Status  string `json:"status"`
	ImageID string `json:"image_id"`
}

type healthResponse struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Components map[string]string `json:"components"`
	Metrics    map[string]int    `json:"metrics"`
}

type statsResponse struct {
	TotalImages  int      `json:"total_images"`
	RecentImages []string `json:"recent_images"`
	Timestamp    string   `json:"timestamp"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func searchHitFromResult(r searchuc.Result) searchHitResponse {
	return searchHitResponse{
		ImageID:    r.Tile.ImageID,
		TileURL:    r.Tile.TileURL,
		ThumbURL:   r.Tile.ThumbURL,
		Center:     centerResponse{Lat: r.Tile.CenterLat, Lon: r.Tile.CenterLon},
		Bounds:     r.Tile.Bounds,
		Timestamp:  r.Tile.Timestamp,
		Distance:   r.Distance,
		Similarity: r.Similarity,
	}
}
