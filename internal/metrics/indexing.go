package metrics

import "github.com/prometheus/client_golang/prometheus"

// Indexing pipeline Prometheus metrics.
var (
	TilesIndexedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tileindex",
			Name:      "tiles_indexed_total",
			Help:      "Total number of tile index attempts",
		},
		[]string{"outcome"}, // "indexed" / "duplicate" / "error"
	)

	TilesDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tileindex",
			Name:      "tiles_deleted_total",
			Help:      "Total number of tiles deleted",
		},
	)

	TileFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tileindex",
			Name:      "tile_fetch_duration_seconds",
			Help:      "Tile image download duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
		[]string{"status"}, // "success" / "error"
	)

	TileFetchBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tileindex",
			Name:      "tile_fetch_bytes",
			Help:      "Downloaded tile image size in bytes",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		},
	)
)

var indexingMetricsRegistered bool

// RegisterIndexingMetrics registers Prometheus indexing metrics. Must be called once from main.
func RegisterIndexingMetrics() {
	if indexingMetricsRegistered {
		return
	}
	prometheus.MustRegister(TilesIndexedTotal)
	prometheus.MustRegister(TilesDeletedTotal)
	prometheus.MustRegister(TileFetchDuration)
	prometheus.MustRegister(TileFetchBytes)
	indexingMetricsRegistered = true
}
