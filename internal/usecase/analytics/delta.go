package analytics

import (
	"time"

	marketdatav1 "github.com/TexasCoding/projectx-go/internal/domain/marketdata/v1"
)

// DeltaTrend classifies cumulative delta pressure.
type DeltaTrend string

const (
	DeltaStronglyBullish DeltaTrend = "strongly_bullish"
	DeltaBullish         DeltaTrend = "bullish"
	DeltaNeutral         DeltaTrend = "neutral"
	DeltaBearish         DeltaTrend = "bearish"
	DeltaStronglyBearish DeltaTrend = "strongly_bearish"
)

// DeltaAnalysis summarises aggressor-signed volume over the window.
type DeltaAnalysis struct {
	CumulativeDelta float64
	BuyVolume       float64
	SellVolume      float64
	UnknownVolume   float64
	TradeCount      int
	Trend           DeltaTrend
}

// CumulativeDelta sums buy volume minus sell volume for trades inside the
// window. Trades with an unknown aggressor are counted but excluded from the
// delta itself.
func CumulativeDelta(trades []marketdatav1.TradeRecord, now time.Time, cfg DeltaConfig) DeltaAnalysis {
	cutoff := now.Add(-cfg.TimeWindow)

	var analysis DeltaAnalysis
	for _, trade := range trades {
		if !trade.Timestamp.After(cutoff) {
			continue
		}
		analysis.TradeCount++
		switch trade.Aggressor {
		case marketdatav1.AggressorBuy:
			analysis.BuyVolume += trade.Volume
		case marketdatav1.AggressorSell:
			analysis.SellVolume += trade.Volume
		default:
			analysis.UnknownVolume += trade.Volume
		}
	}

	analysis.CumulativeDelta = analysis.BuyVolume - analysis.SellVolume
	analysis.Trend = classifyDelta(analysis, cfg)
	return analysis
}

// classifyDelta compares the delta in units of the average per-trade volume,
// so the same thresholds work across thin and heavy instruments.
func classifyDelta(analysis DeltaAnalysis, cfg DeltaConfig) DeltaTrend {
	if analysis.TradeCount == 0 {
		return DeltaNeutral
	}
	avg := (analysis.BuyVolume + analysis.SellVolume + analysis.UnknownVolume) / float64(analysis.TradeCount)
	if avg <= 0 {
		return DeltaNeutral
	}

	scaled := analysis.CumulativeDelta / avg
	switch {
	case scaled >= cfg.StrongThreshold:
		return DeltaStronglyBullish
	case scaled >= cfg.WeakThreshold:
		return DeltaBullish
	case scaled <= -cfg.StrongThreshold:
		return DeltaStronglyBearish
	case scaled <= -cfg.WeakThreshold:
		return DeltaBearish
	default:
		return DeltaNeutral
	}
}
