package analytics

import (
	orderbookv1 "github.com/TexasCoding/projectx-go/internal/domain/orderbook/v1"
)

// Cluster is a run of adjacent price levels acting as one liquidity zone.
type Cluster struct {
	Side        string
	PriceLow    float64
	PriceHigh   float64
	Center      float64
	TotalVolume float64
	LevelCount  int
}

// ClusterAnalysis groups the detected clusters per side.
type ClusterAnalysis struct {
	BidClusters []Cluster
	AskClusters []Cluster
}

// DetectClusters walks each side of the book and merges consecutive levels
// whose price gap is within the tolerance. Runs shorter than the minimum
// cluster size are discarded.
func DetectClusters(snap *orderbookv1.Snapshot, cfg ClusterConfig) ClusterAnalysis {
	return ClusterAnalysis{
		BidClusters: clusterSide(snap.Bids, "bid", cfg),
		AskClusters: clusterSide(snap.Asks, "ask", cfg),
	}
}

func clusterSide(levels []orderbookv1.PriceLevel, side string, cfg ClusterConfig) []Cluster {
	var clusters []Cluster
	var run []orderbookv1.PriceLevel

	flush := func() {
		if len(run) >= cfg.MinClusterSize {
			clusters = append(clusters, buildCluster(run, side))
		}
		run = run[:0]
	}

	for _, level := range levels {
		if len(run) > 0 {
			gap := level.Price - run[len(run)-1].Price
			if gap < 0 {
				gap = -gap
			}
			if gap > cfg.PriceTolerance {
				flush()
			}
		}
		run = append(run, level)
	}
	flush()

	return clusters
}

func buildCluster(run []orderbookv1.PriceLevel, side string) Cluster {
	c := Cluster{
		Side:       side,
		PriceLow:   run[0].Price,
		PriceHigh:  run[0].Price,
		LevelCount: len(run),
	}
	var weighted float64
	for _, level := range run {
		if level.Price < c.PriceLow {
			c.PriceLow = level.Price
		}
		if level.Price > c.PriceHigh {
			c.PriceHigh = level.Price
		}
		c.TotalVolume += level.Volume
		weighted += level.Price * level.Volume
	}
	if c.TotalVolume > 0 {
		c.Center = weighted / c.TotalVolume
	} else {
		c.Center = (c.PriceLow + c.PriceHigh) / 2
	}
	return c
}
