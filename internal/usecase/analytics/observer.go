package analytics

import (
	"sync"
	"time"

	marketdatav1 "github.com/TexasCoding/projectx-go/internal/domain/marketdata/v1"
)

// observation is a single sighting of resting volume at a price level.
type observation struct {
	Volume float64
	At     time.Time
}

type levelKey struct {
	Side  marketdatav1.Side
	Price float64
}

type levelHistory struct {
	Observations []observation
	RefreshCount int
	LastVolume   float64
}

// Observer keeps a rolling history of per-level volume sightings fed from
// depth events. It is the stateful input to iceberg detection: a refresh is
// counted whenever a level's volume is replenished after shrinking.
type Observer struct {
	mu     sync.Mutex
	levels map[levelKey]*levelHistory
	window time.Duration
}

func NewObserver(window time.Duration) *Observer {
	return &Observer{
		levels: make(map[levelKey]*levelHistory),
		window: window,
	}
}

// Observe records the current volume at a price level. Deletions pass zero
// volume, which resets the replenish baseline without counting a refresh.
func (o *Observer) Observe(event marketdatav1.MarketEvent) {
	if !event.Kind.IsDepth() || event.Kind == marketdatav1.KindDepthReset {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	key := levelKey{Side: event.Side, Price: event.Price}
	hist, ok := o.levels[key]
	if !ok {
		hist = &levelHistory{}
		o.levels[key] = hist
	}

	if event.Kind == marketdatav1.KindDepthDelete {
		hist.LastVolume = 0
		o.prune(key, hist, event.Timestamp)
		return
	}

	// Only sightings of the full visible clip matter for sizing: the first
	// appearance of a level and every replenishment. Shrinking volume is
	// consumption and only moves the baseline.
	switch {
	case hist.LastVolume == 0:
		hist.Observations = append(hist.Observations, observation{Volume: event.Volume, At: event.Timestamp})
	case event.Volume > hist.LastVolume:
		hist.RefreshCount++
		hist.Observations = append(hist.Observations, observation{Volume: event.Volume, At: event.Timestamp})
	}
	hist.LastVolume = event.Volume
	o.prune(key, hist, event.Timestamp)
}

// Reset drops all tracked history, used after a feed resync.
func (o *Observer) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.levels = make(map[levelKey]*levelHistory)
}

func (o *Observer) prune(key levelKey, hist *levelHistory, now time.Time) {
	cutoff := now.Add(-o.window)
	kept := hist.Observations[:0]
	for _, obs := range hist.Observations {
		if obs.At.After(cutoff) {
			kept = append(kept, obs)
		}
	}
	hist.Observations = kept
	if len(hist.Observations) == 0 && hist.LastVolume == 0 {
		delete(o.levels, key)
	}
}

// snapshotLevels copies the tracked state out under the lock so detection
// can run without holding it.
func (o *Observer) snapshotLevels(now time.Time) map[levelKey]levelHistory {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make(map[levelKey]levelHistory, len(o.levels))
	cutoff := now.Add(-o.window)
	for key, hist := range o.levels {
		var obs []observation
		for _, ob := range hist.Observations {
			if ob.At.After(cutoff) {
				obs = append(obs, ob)
			}
		}
		if len(obs) == 0 {
			continue
		}
		out[key] = levelHistory{
			Observations: obs,
			RefreshCount: hist.RefreshCount,
			LastVolume:   hist.LastVolume,
		}
	}
	return out
}
