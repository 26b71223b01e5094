package analytics

import "time"

// LiquidityConfig tunes significant-level detection.
type LiquidityConfig struct {
	MinVolume    float64       // volume threshold for a level to count as liquidity
	Levels       int           // levels per side to scan
	RecencyDecay time.Duration // half-life of the recency weight
}

// DefaultLiquidityConfig returns default configuration.
func DefaultLiquidityConfig() LiquidityConfig {
	return LiquidityConfig{
		MinVolume:    100,
		Levels:       25,
		RecencyDecay: 5 * time.Minute,
	}
}

// ClusterConfig tunes the grouping of price levels into clusters.
type ClusterConfig struct {
	PriceTolerance float64 // max distance between adjacent levels in one cluster
	MinClusterSize int     // minimum constituent levels per cluster
}

// DefaultClusterConfig returns default configuration.
func DefaultClusterConfig() ClusterConfig {
	return ClusterConfig{
		PriceTolerance: 0.25,
		MinClusterSize: 3,
	}
}

// IcebergConfig tunes iceberg candidate detection. The outputs are
// confidence-scored signals, never guaranteed classifications.
type IcebergConfig struct {
	MinRefreshCount      int           // refreshes required to qualify
	ConsistencyThreshold float64       // max coefficient of variation of observed volumes
	TimeWindow           time.Duration // sliding observation window
	MinTotalVolume       float64       // advanced detection: minimum observed volume
}

// DefaultIcebergConfig returns default configuration.
func DefaultIcebergConfig() IcebergConfig {
	return IcebergConfig{
		MinRefreshCount:      3,
		ConsistencyThreshold: 0.5,
		TimeWindow:           10 * time.Minute,
		MinTotalVolume:       0,
	}
}

// AdvancedIcebergConfig adds the execution-evidence tunables to the basic
// detector thresholds.
type AdvancedIcebergConfig struct {
	IcebergConfig
	PriceTolerance float64 // max distance between a trade print and the level
}

// DefaultAdvancedIcebergConfig returns default configuration.
func DefaultAdvancedIcebergConfig() AdvancedIcebergConfig {
	return AdvancedIcebergConfig{
		IcebergConfig:  DefaultIcebergConfig(),
		PriceTolerance: 0.0,
	}
}

// DeltaConfig tunes cumulative delta trend classification. Thresholds are
// multiples of the average per-trade volume in the window.
type DeltaConfig struct {
	TimeWindow      time.Duration
	StrongThreshold float64
	WeakThreshold   float64
}

// DefaultDeltaConfig returns default configuration.
func DefaultDeltaConfig() DeltaConfig {
	return DeltaConfig{
		TimeWindow:      30 * time.Minute,
		StrongThreshold: 50,
		WeakThreshold:   10,
	}
}

// ImbalanceConfig tunes the combined book/flow imbalance signal.
type ImbalanceConfig struct {
	TopLevels     int           // book levels per side feeding the volume ratio
	FlowWindow    time.Duration // trailing trade-flow window
	StrongRatio   float64       // ratio past which one signal alone is decisive
	ModerateRatio float64       // ratio past which a signal leans directional
}

// DefaultImbalanceConfig returns default configuration.
func DefaultImbalanceConfig() ImbalanceConfig {
	return ImbalanceConfig{
		TopLevels:     5,
		FlowWindow:    5 * time.Minute,
		StrongRatio:   2.0,
		ModerateRatio: 1.25,
	}
}

// ProfileConfig tunes the volume profile histogram.
type ProfileConfig struct {
	BucketSize      float64       // fixed price bucket width, aligned to tick size
	Lookback        time.Duration // trailing trade window
	ValueAreaTarget float64       // fraction of volume the value area must contain
}

// DefaultProfileConfig returns default configuration.
func DefaultProfileConfig() ProfileConfig {
	return ProfileConfig{
		BucketSize:      0.25,
		Lookback:        30 * time.Minute,
		ValueAreaTarget: 0.70,
	}
}

// SupportResistanceConfig tunes support/resistance scoring.
type SupportResistanceConfig struct {
	Lookback    time.Duration // bar lookback for local extrema
	MaxLevels   int           // levels returned per direction
	MinVolume   float64       // liquidity volume for a book level to qualify
	PriceMerge  float64       // candidates closer than this are merged
	TouchWeight float64       // contribution of one extrema touch to the score
}

// DefaultSupportResistanceConfig returns default configuration.
func DefaultSupportResistanceConfig() SupportResistanceConfig {
	return SupportResistanceConfig{
		Lookback:    time.Hour,
		MaxLevels:   5,
		MinVolume:   50,
		PriceMerge:  0.25,
		TouchWeight: 25,
	}
}
