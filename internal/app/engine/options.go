package engine

import (
	"time"

	"github.com/TexasCoding/projectx-go/pkg/interval"
)

// Options represents configuration options for the Engine.
type Options struct {
	// Timeframes to aggregate per instrument.
	Timeframes []interval.Timeframe

	// MaxBars bounds each timeframe series ring buffer.
	MaxBars int

	// TradeWindowCount and TradeWindowAge bound the recent-trade window.
	TradeWindowCount int
	TradeWindowAge   time.Duration

	// IcebergWindow is how long per-level volume sightings are retained for
	// iceberg detection.
	IcebergWindow time.Duration

	// SnapshotDepth is the default number of levels returned per book side.
	SnapshotDepth int

	// StaleAfter marks the engine unhealthy when no event arrived for this
	// long while nominally live.
	StaleAfter time.Duration
}

// DefaultEngineOptions returns the default engine options.
func DefaultEngineOptions() *Options {
	return &Options{
		Timeframes:       interval.AllTimeframes,
		MaxBars:          1000,
		TradeWindowCount: 1000,
		TradeWindowAge:   time.Hour,
		IcebergWindow:    10 * time.Minute,
		SnapshotDepth:    10,
		StaleAfter:       30 * time.Second,
	}
}
