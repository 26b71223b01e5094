package analytics

import (
	"math"
	"sort"
	"time"

	marketdatav1 "github.com/TexasCoding/projectx-go/internal/domain/marketdata/v1"
)

// IcebergLevel is a price level suspected of hiding reserve volume behind a
// repeatedly replenished visible tip.
type IcebergLevel struct {
	Price             float64
	Side              marketdatav1.Side
	RefreshCount      int
	AvgVisibleVolume  float64
	VolumeConsistency float64
	TotalObserved     float64
	// EstimatedHiddenSize projects the reserve as the average visible clip
	// replenished once per refresh.
	EstimatedHiddenSize float64
	Confidence          float64
	ConfidenceLabel     string
}

// IcebergAnalysis lists the suspected iceberg levels, strongest first.
type IcebergAnalysis struct {
	Levels []IcebergLevel
}

// DetectIcebergs flags levels that were replenished at least MinRefreshCount
// times inside the observation window with consistently sized reloads. The
// consistency score is 1 - coefficient of variation of the observed volumes.
func DetectIcebergs(obs *Observer, now time.Time, cfg IcebergConfig) IcebergAnalysis {
	var analysis IcebergAnalysis

	for key, hist := range obs.snapshotLevels(now) {
		if hist.RefreshCount < cfg.MinRefreshCount {
			continue
		}

		avg, consistency, total := volumeStats(hist.Observations)
		if consistency < cfg.ConsistencyThreshold {
			continue
		}
		if total < cfg.MinTotalVolume {
			continue
		}

		level := IcebergLevel{
			Price:               key.Price,
			Side:                key.Side,
			RefreshCount:        hist.RefreshCount,
			AvgVisibleVolume:    avg,
			VolumeConsistency:   consistency,
			TotalObserved:       total,
			EstimatedHiddenSize: avg * float64(hist.RefreshCount),
		}
		level.Confidence = icebergConfidence(level, cfg)
		level.ConfidenceLabel = confidenceLabel(level.Confidence)
		analysis.Levels = append(analysis.Levels, level)
	}

	sort.Slice(analysis.Levels, func(i, j int) bool {
		return analysis.Levels[i].Confidence > analysis.Levels[j].Confidence
	})
	return analysis
}

func volumeStats(observations []observation) (avg, consistency, total float64) {
	if len(observations) == 0 {
		return 0, 0, 0
	}
	for _, obs := range observations {
		total += obs.Volume
	}
	avg = total / float64(len(observations))
	if avg == 0 {
		return avg, 0, total
	}

	var variance float64
	for _, obs := range observations {
		diff := obs.Volume - avg
		variance += diff * diff
	}
	variance /= float64(len(observations))

	consistency = 1 - math.Sqrt(variance)/avg
	if consistency < 0 {
		consistency = 0
	}
	return avg, consistency, total
}

// icebergConfidence blends refresh activity, reload consistency, and the
// share of observed volume over the minimum into one 0..1 score.
func icebergConfidence(level IcebergLevel, cfg IcebergConfig) float64 {
	refreshFactor := float64(level.RefreshCount) / float64(cfg.MinRefreshCount*2)
	if refreshFactor > 1 {
		refreshFactor = 1
	}

	volumeFactor := 1.0
	if cfg.MinTotalVolume > 0 {
		volumeFactor = level.TotalObserved / (cfg.MinTotalVolume * 2)
		if volumeFactor > 1 {
			volumeFactor = 1
		}
	}

	return 0.4*refreshFactor + 0.4*level.VolumeConsistency + 0.2*volumeFactor
}

func confidenceLabel(confidence float64) string {
	switch {
	case confidence >= 0.8:
		return "high"
	case confidence >= 0.6:
		return "medium"
	default:
		return "low"
	}
}

// AdvancedIcebergLevel extends the basic signal with reload timing and
// execution evidence.
type AdvancedIcebergLevel struct {
	IcebergLevel
	IntervalRegularity   float64
	ExecutionConsistency float64
	ExecutedVolume       float64
}

// DetectIcebergsAdvanced layers two more factors on the basic detector:
// regularity of the reload cadence (automated replenishment reloads on a
// steady clock) and execution consistency (trades printing at the level mean
// the visible tip is actually absorbing flow, not just flickering).
func DetectIcebergsAdvanced(obs *Observer, trades []marketdatav1.TradeRecord, now time.Time, cfg AdvancedIcebergConfig) []AdvancedIcebergLevel {
	var levels []AdvancedIcebergLevel

	for key, hist := range obs.snapshotLevels(now) {
		if hist.RefreshCount < cfg.MinRefreshCount {
			continue
		}

		avg, consistency, total := volumeStats(hist.Observations)
		if consistency < cfg.ConsistencyThreshold {
			continue
		}
		if total < cfg.MinTotalVolume {
			continue
		}

		level := AdvancedIcebergLevel{
			IcebergLevel: IcebergLevel{
				Price:               key.Price,
				Side:                key.Side,
				RefreshCount:        hist.RefreshCount,
				AvgVisibleVolume:    avg,
				VolumeConsistency:   consistency,
				TotalObserved:       total,
				EstimatedHiddenSize: avg * float64(hist.RefreshCount),
			},
			IntervalRegularity: intervalRegularity(hist.Observations),
		}
		level.ExecutionConsistency, level.ExecutedVolume = executionEvidence(trades, key.Price, avg, cfg.PriceTolerance)
		level.Confidence = advancedConfidence(level, cfg)
		level.ConfidenceLabel = confidenceLabel(level.Confidence)
		levels = append(levels, level)
	}

	sort.Slice(levels, func(i, j int) bool {
		return levels[i].Confidence > levels[j].Confidence
	})
	return levels
}

// intervalRegularity scores how evenly spaced the reload sightings are,
// 1 - coefficient of variation of the gaps. Fewer than two gaps scores zero.
func intervalRegularity(observations []observation) float64 {
	if len(observations) < 3 {
		return 0
	}

	gaps := make([]float64, 0, len(observations)-1)
	var total float64
	for i := 1; i < len(observations); i++ {
		gap := observations[i].At.Sub(observations[i-1].At).Seconds()
		gaps = append(gaps, gap)
		total += gap
	}

	avg := total / float64(len(gaps))
	if avg == 0 {
		return 0
	}

	var variance float64
	for _, gap := range gaps {
		diff := gap - avg
		variance += diff * diff
	}
	variance /= float64(len(gaps))

	regularity := 1 - math.Sqrt(variance)/avg
	if regularity < 0 {
		regularity = 0
	}
	return regularity
}

// executionEvidence measures how much trade volume printed at the level
// relative to its average visible clip, capped at 1. Heavy printing against a
// level that keeps its size is the strongest absorption signal available from
// public data.
func executionEvidence(trades []marketdatav1.TradeRecord, price, avgVisible, tolerance float64) (float64, float64) {
	var executed float64
	for _, trade := range trades {
		if math.Abs(trade.Price-price) <= tolerance {
			executed += trade.Volume
		}
	}
	if avgVisible <= 0 {
		return 0, executed
	}

	consistency := executed / (avgVisible * 2)
	if consistency > 1 {
		consistency = 1
	}
	return consistency, executed
}

func advancedConfidence(level AdvancedIcebergLevel, cfg AdvancedIcebergConfig) float64 {
	refreshFactor := float64(level.RefreshCount) / float64(cfg.MinRefreshCount*2)
	if refreshFactor > 1 {
		refreshFactor = 1
	}

	return 0.3*refreshFactor +
		0.3*level.VolumeConsistency +
		0.2*level.IntervalRegularity +
		0.2*level.ExecutionConsistency
}
