package analytics

import (
	"math"
	"sort"
	"time"

	marketdatav1 "github.com/TexasCoding/projectx-go/internal/domain/marketdata/v1"
)

// ProfileBucket is one price bin of the volume profile.
type ProfileBucket struct {
	Price      float64
	Volume     float64
	TradeCount int
}

// VolumeProfile is the traded-volume histogram with its point of control and
// value area.
type VolumeProfile struct {
	Buckets        []ProfileBucket
	PointOfControl float64
	ValueAreaHigh  float64
	ValueAreaLow   float64
	TotalVolume    float64
}

// BuildVolumeProfile bins trade volume into fixed-size price buckets over the
// lookback window. The point of control is the highest-volume bucket; the
// value area expands outward from it, one neighbouring bucket at a time
// taking the larger side, until it covers the target share of total volume.
func BuildVolumeProfile(trades []marketdatav1.TradeRecord, now time.Time, cfg ProfileConfig) VolumeProfile {
	cutoff := now.Add(-cfg.Lookback)

	bins := make(map[float64]*ProfileBucket)
	var total float64
	for _, trade := range trades {
		if !trade.Timestamp.After(cutoff) {
			continue
		}
		price := bucketPrice(trade.Price, cfg.BucketSize)
		bucket, ok := bins[price]
		if !ok {
			bucket = &ProfileBucket{Price: price}
			bins[price] = bucket
		}
		bucket.Volume += trade.Volume
		bucket.TradeCount++
		total += trade.Volume
	}

	profile := VolumeProfile{TotalVolume: total}
	if len(bins) == 0 {
		return profile
	}

	profile.Buckets = make([]ProfileBucket, 0, len(bins))
	for _, bucket := range bins {
		profile.Buckets = append(profile.Buckets, *bucket)
	}
	sort.Slice(profile.Buckets, func(i, j int) bool {
		return profile.Buckets[i].Price < profile.Buckets[j].Price
	})

	poc := 0
	for i, bucket := range profile.Buckets {
		if bucket.Volume > profile.Buckets[poc].Volume {
			poc = i
		}
	}
	profile.PointOfControl = profile.Buckets[poc].Price

	low, high := expandValueArea(profile.Buckets, poc, total*cfg.ValueAreaTarget)
	profile.ValueAreaLow = profile.Buckets[low].Price
	profile.ValueAreaHigh = profile.Buckets[high].Price
	return profile
}

func bucketPrice(price, size float64) float64 {
	if size <= 0 {
		return price
	}
	return math.Floor(price/size) * size
}

func expandValueArea(buckets []ProfileBucket, poc int, target float64) (low, high int) {
	low, high = poc, poc
	covered := buckets[poc].Volume

	for covered < target {
		var below, above float64
		if low > 0 {
			below = buckets[low-1].Volume
		}
		if high < len(buckets)-1 {
			above = buckets[high+1].Volume
		}
		if below == 0 && above == 0 && low == 0 && high == len(buckets)-1 {
			break
		}
		if above > below || low == 0 {
			if high < len(buckets)-1 {
				high++
				covered += buckets[high].Volume
				continue
			}
		}
		if low > 0 {
			low--
			covered += buckets[low].Volume
		}
	}
	return low, high
}
