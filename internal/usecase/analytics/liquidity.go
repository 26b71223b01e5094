package analytics

import (
	"math"
	"sort"
	"time"

	orderbookv1 "github.com/TexasCoding/projectx-go/internal/domain/orderbook/v1"
)

// LiquidityLevel is one significant price level scored by volume and recency.
type LiquidityLevel struct {
	Price       float64
	Volume      float64
	UpdateCount int64
	Score       float64
}

// LiquidityAnalysis holds the scored levels per side.
type LiquidityAnalysis struct {
	BidLevels []LiquidityLevel
	AskLevels []LiquidityLevel

	AvgBidVolume float64
	AvgAskVolume float64
	Crossed      bool
}

// LiquidityLevels scans the book snapshot for levels whose resting volume
// meets the threshold and scores each by volume x recency weight, where the
// weight decays exponentially with time since the level's last update.
func LiquidityLevels(snap *orderbookv1.Snapshot, now time.Time, cfg LiquidityConfig) LiquidityAnalysis {
	analysis := LiquidityAnalysis{Crossed: snap.Crossed}

	analysis.BidLevels, analysis.AvgBidVolume = scoreSide(snap.Bids, now, cfg)
	analysis.AskLevels, analysis.AvgAskVolume = scoreSide(snap.Asks, now, cfg)
	return analysis
}

func scoreSide(levels []orderbookv1.PriceLevel, now time.Time, cfg LiquidityConfig) ([]LiquidityLevel, float64) {
	limit := cfg.Levels
	if limit <= 0 || limit > len(levels) {
		limit = len(levels)
	}

	var total float64
	scored := make([]LiquidityLevel, 0, limit)
	for _, level := range levels[:limit] {
		total += level.Volume
		if level.Volume < cfg.MinVolume {
			continue
		}
		scored = append(scored, LiquidityLevel{
			Price:       level.Price,
			Volume:      level.Volume,
			UpdateCount: level.UpdateCount,
			Score:       level.Volume * recencyWeight(now.Sub(level.UpdatedAt), cfg.RecencyDecay),
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	var avg float64
	if limit > 0 {
		avg = total / float64(limit)
	}
	return scored, avg
}

// recencyWeight halves for every decay interval since the last update.
func recencyWeight(age, decay time.Duration) float64 {
	if decay <= 0 || age <= 0 {
		return 1
	}
	return math.Exp2(-float64(age) / float64(decay))
}
