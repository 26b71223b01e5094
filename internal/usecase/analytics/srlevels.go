package analytics

import (
	"math"
	"sort"
	"time"

	marketdatav1 "github.com/TexasCoding/projectx-go/internal/domain/marketdata/v1"
	orderbookv1 "github.com/TexasCoding/projectx-go/internal/domain/orderbook/v1"
)

// PriceZone is a candidate support or resistance level.
type PriceZone struct {
	Price         float64
	Score         float64
	Touches       int
	RestingVolume float64
}

// SupportResistance splits the ranked zones around the reference price.
type SupportResistance struct {
	Support    []PriceZone
	Resistance []PriceZone
}

// FindSupportResistance derives price zones from two sources: bar extrema
// inside the lookback (each visit to a zone counts as a touch) and resting
// book liquidity above the volume threshold. Zones within the merge distance
// collapse into one, scored by resting volume plus touch count x weight,
// then split into support below and resistance above the reference price.
func FindSupportResistance(bars []marketdatav1.Bar, snap *orderbookv1.Snapshot, refPrice float64, now time.Time, cfg SupportResistanceConfig) SupportResistance {
	cutoff := now.Add(-cfg.Lookback)

	var zones []PriceZone
	for _, bar := range bars {
		if bar.Start.Before(cutoff) {
			continue
		}
		zones = mergeZone(zones, PriceZone{Price: bar.High, Touches: 1}, cfg.PriceMerge)
		zones = mergeZone(zones, PriceZone{Price: bar.Low, Touches: 1}, cfg.PriceMerge)
	}

	if snap != nil {
		for _, level := range snap.Bids {
			if level.Volume >= cfg.MinVolume {
				zones = mergeZone(zones, PriceZone{Price: level.Price, RestingVolume: level.Volume}, cfg.PriceMerge)
			}
		}
		for _, level := range snap.Asks {
			if level.Volume >= cfg.MinVolume {
				zones = mergeZone(zones, PriceZone{Price: level.Price, RestingVolume: level.Volume}, cfg.PriceMerge)
			}
		}
	}

	for i := range zones {
		zones[i].Score = zones[i].RestingVolume + float64(zones[i].Touches)*cfg.TouchWeight
	}
	sort.Slice(zones, func(i, j int) bool {
		return zones[i].Score > zones[j].Score
	})

	var sr SupportResistance
	for _, zone := range zones {
		switch {
		case zone.Price < refPrice && len(sr.Support) < cfg.MaxLevels:
			sr.Support = append(sr.Support, zone)
		case zone.Price > refPrice && len(sr.Resistance) < cfg.MaxLevels:
			sr.Resistance = append(sr.Resistance, zone)
		}
	}

	sort.Slice(sr.Support, func(i, j int) bool {
		return sr.Support[i].Price > sr.Support[j].Price
	})
	sort.Slice(sr.Resistance, func(i, j int) bool {
		return sr.Resistance[i].Price < sr.Resistance[j].Price
	})
	return sr
}

// mergeZone folds the candidate into an existing zone when their prices are
// within the merge distance, keeping a volume-weighted center.
func mergeZone(zones []PriceZone, candidate PriceZone, merge float64) []PriceZone {
	for i := range zones {
		if math.Abs(zones[i].Price-candidate.Price) <= merge {
			existingWeight := zones[i].RestingVolume + float64(zones[i].Touches)
			candidateWeight := candidate.RestingVolume + float64(candidate.Touches)
			if existingWeight+candidateWeight > 0 {
				zones[i].Price = (zones[i].Price*existingWeight + candidate.Price*candidateWeight) / (existingWeight + candidateWeight)
			}
			zones[i].Touches += candidate.Touches
			zones[i].RestingVolume += candidate.RestingVolume
			return zones
		}
	}
	return append(zones, candidate)
}
