package analytics

import (
	"time"

	marketdatav1 "github.com/TexasCoding/projectx-go/internal/domain/marketdata/v1"
	orderbookv1 "github.com/TexasCoding/projectx-go/internal/domain/orderbook/v1"
)

// ImbalanceDirection is the side the combined pressure favours.
type ImbalanceDirection string

const (
	ImbalanceBullish ImbalanceDirection = "bullish"
	ImbalanceBearish ImbalanceDirection = "bearish"
	ImbalanceNeutral ImbalanceDirection = "neutral"
)

// ImbalanceStrength grades how decisive the pressure is.
type ImbalanceStrength string

const (
	ImbalanceStrong   ImbalanceStrength = "strong"
	ImbalanceModerate ImbalanceStrength = "moderate"
	ImbalanceWeak     ImbalanceStrength = "weak"
)

// ImbalanceAnalysis combines resting-book pressure with recent trade flow.
type ImbalanceAnalysis struct {
	BookRatio float64
	FlowRatio float64
	Direction ImbalanceDirection
	Strength  ImbalanceStrength
}

// MarketImbalance measures bid/ask volume over the top book levels against
// buy/sell flow over the window. The two ratios vote: agreement gives the
// stronger grade, disagreement falls back to the book side at weak strength.
func MarketImbalance(snap *orderbookv1.Snapshot, trades []marketdatav1.TradeRecord, now time.Time, cfg ImbalanceConfig) ImbalanceAnalysis {
	analysis := ImbalanceAnalysis{
		BookRatio: bookRatio(snap, cfg.TopLevels),
		FlowRatio: flowRatio(trades, now.Add(-cfg.FlowWindow)),
	}

	bookDir := ratioDirection(analysis.BookRatio, cfg.ModerateRatio)
	flowDir := ratioDirection(analysis.FlowRatio, cfg.ModerateRatio)

	switch {
	case bookDir == ImbalanceNeutral && flowDir == ImbalanceNeutral:
		analysis.Direction = ImbalanceNeutral
		analysis.Strength = ImbalanceWeak
	case bookDir == flowDir:
		analysis.Direction = bookDir
		analysis.Strength = agreementStrength(analysis.BookRatio, analysis.FlowRatio, cfg)
	case bookDir == ImbalanceNeutral:
		analysis.Direction = flowDir
		analysis.Strength = ImbalanceWeak
	case flowDir == ImbalanceNeutral:
		analysis.Direction = bookDir
		analysis.Strength = ImbalanceWeak
	default:
		// Book and flow disagree outright; the resting book wins but
		// with no conviction.
		analysis.Direction = bookDir
		analysis.Strength = ImbalanceWeak
	}
	return analysis
}

// bookRatio returns bid volume over ask volume across the top levels.
// A ratio above 1 favours bids, below 1 favours asks.
func bookRatio(snap *orderbookv1.Snapshot, topLevels int) float64 {
	bidVol := sideVolume(snap.Bids, topLevels)
	askVol := sideVolume(snap.Asks, topLevels)
	if askVol == 0 {
		if bidVol == 0 {
			return 1
		}
		return bidVol
	}
	return bidVol / askVol
}

func sideVolume(levels []orderbookv1.PriceLevel, top int) float64 {
	if top <= 0 || top > len(levels) {
		top = len(levels)
	}
	var total float64
	for _, level := range levels[:top] {
		total += level.Volume
	}
	return total
}

func flowRatio(trades []marketdatav1.TradeRecord, cutoff time.Time) float64 {
	var buy, sell float64
	for _, trade := range trades {
		if !trade.Timestamp.After(cutoff) {
			continue
		}
		switch trade.Aggressor {
		case marketdatav1.AggressorBuy:
			buy += trade.Volume
		case marketdatav1.AggressorSell:
			sell += trade.Volume
		}
	}
	if sell == 0 {
		if buy == 0 {
			return 1
		}
		return buy
	}
	return buy / sell
}

func ratioDirection(ratio, moderate float64) ImbalanceDirection {
	switch {
	case ratio >= moderate:
		return ImbalanceBullish
	case ratio <= 1/moderate:
		return ImbalanceBearish
	default:
		return ImbalanceNeutral
	}
}

func agreementStrength(bookRatio, flowRatio float64, cfg ImbalanceConfig) ImbalanceStrength {
	if exceeds(bookRatio, cfg.StrongRatio) && exceeds(flowRatio, cfg.StrongRatio) {
		return ImbalanceStrong
	}
	return ImbalanceModerate
}

func exceeds(ratio, threshold float64) bool {
	return ratio >= threshold || ratio <= 1/threshold
}
