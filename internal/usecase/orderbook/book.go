package orderbook

import (
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	marketdatav1 "github.com/TexasCoding/projectx-go/internal/domain/marketdata/v1"
	orderbookv1 "github.com/TexasCoding/projectx-go/internal/domain/orderbook/v1"
)

// Book maintains the Level-2 order book for one instrument. Exactly one
// goroutine calls Apply and Reset; any number of goroutines may read through
// the published snapshot, which is swapped atomically after every applied
// event so readers never see a level half-updated.
type Book struct {
	instrument string

	// working state, owned by the writer
	bids      map[float64]*orderbookv1.PriceLevel
	asks      map[float64]*orderbookv1.PriceLevel
	lastSeq   int64
	resyncing bool

	published atomic.Pointer[orderbookv1.Snapshot]
}

// NewBook creates an empty book for the instrument.
func NewBook(instrument string) *Book {
	b := &Book{
		instrument: instrument,
		bids:       make(map[float64]*orderbookv1.PriceLevel),
		asks:       make(map[float64]*orderbookv1.PriceLevel),
	}
	b.published.Store(b.buildSnapshot(time.Time{}))
	return b
}

// Apply applies one depth event. Depth feeds carry absolute sizes, so add and
// update both replace the resting volume at the price. Deleting an absent
// level is a no-op. Events whose sequence number is not greater than the last
// applied one are rejected without mutating the book.
func (b *Book) Apply(event marketdatav1.MarketEvent) error {
	if !event.Kind.IsDepth() {
		return fmt.Errorf("orderbook cannot apply %s event", event.Kind)
	}
	if event.Sequence <= b.lastSeq {
		return fmt.Errorf("%w: seq %d, last applied %d",
			orderbookv1.ErrOutOfSequence, event.Sequence, b.lastSeq)
	}

	switch event.Kind {
	case marketdatav1.KindDepthAdd, marketdatav1.KindDepthUpdate:
		b.upsert(event)
		b.resyncing = false
	case marketdatav1.KindDepthDelete:
		delete(b.side(event.Side), event.Price)
	case marketdatav1.KindDepthReset:
		b.bids = make(map[float64]*orderbookv1.PriceLevel)
		b.asks = make(map[float64]*orderbookv1.PriceLevel)
		b.resyncing = true
	}

	b.lastSeq = event.Sequence
	b.published.Store(b.buildSnapshot(event.Timestamp))
	return nil
}

func (b *Book) upsert(event marketdatav1.MarketEvent) {
	levels := b.side(event.Side)
	level, exists := levels[event.Price]
	if !exists {
		levels[event.Price] = &orderbookv1.PriceLevel{
			Price:       event.Price,
			Volume:      event.Volume,
			UpdatedAt:   event.Timestamp,
			UpdateCount: 1,
		}
		return
	}
	level.Volume = event.Volume
	level.UpdatedAt = event.Timestamp
	level.UpdateCount++
}

func (b *Book) side(side marketdatav1.Side) map[float64]*orderbookv1.PriceLevel {
	if side == marketdatav1.SideBid {
		return b.bids
	}
	return b.asks
}

// Reset clears both sides and the resync flag without touching the sequence
// counter. Used when a reconnect replays a fresh snapshot under new sequence
// numbers the gateway guarantees to be higher.
func (b *Book) Reset() {
	b.bids = make(map[float64]*orderbookv1.PriceLevel)
	b.asks = make(map[float64]*orderbookv1.PriceLevel)
	b.resyncing = true
	b.published.Store(b.buildSnapshot(time.Time{}))
}

// LastSequence returns the last applied sequence number.
func (b *Book) LastSequence() int64 {
	return b.published.Load().Sequence
}

// BestBidAsk returns the top of book and the spread from the published
// snapshot. Returns ErrNoQuote if either side is empty.
func (b *Book) BestBidAsk() (orderbookv1.BestBidAsk, error) {
	snap := b.published.Load()
	bid, bidOK := snap.BestBid()
	ask, askOK := snap.BestAsk()
	if !bidOK || !askOK {
		return orderbookv1.BestBidAsk{}, orderbookv1.ErrNoQuote
	}
	return orderbookv1.BestBidAsk{
		Bid:    bid.Price,
		Ask:    ask.Price,
		Spread: ask.Price - bid.Price,
	}, nil
}

// Snapshot returns the top `levels` price levels per side plus aggregate
// metadata. levels <= 0 returns every level. The returned value is immutable
// and safe to retain.
func (b *Book) Snapshot(levels int) *orderbookv1.Snapshot {
	snap := b.published.Load()
	if levels <= 0 || (levels >= len(snap.Bids) && levels >= len(snap.Asks)) {
		return snap
	}

	trimmed := *snap
	if levels < len(snap.Bids) {
		trimmed.Bids = snap.Bids[:levels]
	}
	if levels < len(snap.Asks) {
		trimmed.Asks = snap.Asks[:levels]
	}
	return &trimmed
}

// LevelCounts reports how many price levels each side currently holds.
func (b *Book) LevelCounts() (bids, asks int) {
	snap := b.published.Load()
	return len(snap.Bids), len(snap.Asks)
}

// DepthWithinRange sums bid and ask volume within priceRange of the mid price.
func (b *Book) DepthWithinRange(priceRange float64) orderbookv1.DepthStats {
	snap := b.published.Load()
	stats := orderbookv1.DepthStats{
		Mid:        snap.Mid,
		PriceRange: priceRange,
	}
	if snap.Mid == 0 {
		return stats
	}

	low, high := snap.Mid-priceRange, snap.Mid+priceRange
	for _, level := range snap.Bids {
		if level.Price >= low {
			stats.BidVolume += level.Volume
			stats.BidLevels++
		}
	}
	for _, level := range snap.Asks {
		if level.Price <= high {
			stats.AskVolume += level.Volume
			stats.AskLevels++
		}
	}
	return stats
}

func (b *Book) buildSnapshot(ts time.Time) *orderbookv1.Snapshot {
	snap := &orderbookv1.Snapshot{
		Instrument: b.instrument,
		Bids:       make([]orderbookv1.PriceLevel, 0, len(b.bids)),
		Asks:       make([]orderbookv1.PriceLevel, 0, len(b.asks)),
		Sequence:   b.lastSeq,
		Timestamp:  ts,
		Resyncing:  b.resyncing,
	}

	for _, level := range b.bids {
		snap.Bids = append(snap.Bids, *level)
		snap.TotalBidVolume += level.Volume
	}
	for _, level := range b.asks {
		snap.Asks = append(snap.Asks, *level)
		snap.TotalAskVolume += level.Volume
	}

	sort.Slice(snap.Bids, func(i, j int) bool {
		return snap.Bids[i].Price > snap.Bids[j].Price
	})
	sort.Slice(snap.Asks, func(i, j int) bool {
		return snap.Asks[i].Price < snap.Asks[j].Price
	})

	if len(snap.Bids) > 0 && len(snap.Asks) > 0 {
		bestBid := snap.Bids[0].Price
		bestAsk := snap.Asks[0].Price
		snap.Mid = (bestBid + bestAsk) / 2
		snap.Spread = bestAsk - bestBid
		// Crossed books happen transiently with out-of-order delivery inside
		// one burst; accept the state but flag it for analytics.
		snap.Crossed = bestBid >= bestAsk
	}
	return snap
}
