package orderbookv1

import (
	"errors"
	"time"
)

var (
	// ErrNoQuote is returned when either side of the book is empty.
	ErrNoQuote = errors.New("no quote available")
	// ErrOutOfSequence is returned when an event's sequence number is not
	// greater than the last applied sequence number.
	ErrOutOfSequence = errors.New("event sequence not greater than last applied")
)

// PriceLevel is the aggregated resting volume at one price on one side.
type PriceLevel struct {
	Price       float64
	Volume      float64
	UpdatedAt   time.Time
	UpdateCount int64
}

// BestBidAsk is the top of book with its spread.
type BestBidAsk struct {
	Bid    float64
	Ask    float64
	Spread float64
}

// Snapshot is a point-in-time immutable view of the book. Bids are sorted
// descending, asks ascending. A snapshot is built by the single writer and
// published in one step; readers never observe a partially applied update.
type Snapshot struct {
	Instrument     string
	Bids           []PriceLevel
	Asks           []PriceLevel
	Sequence       int64
	Timestamp      time.Time
	TotalBidVolume float64
	TotalAskVolume float64
	Mid            float64
	Spread         float64

	// Crossed marks a transient best-bid >= best-ask condition caused by
	// out-of-order delivery within a burst. Analytics discount crossed books.
	Crossed bool
	// Resyncing marks the window between a depth-reset and the first levels
	// of the fresh snapshot.
	Resyncing bool
}

// BestBid returns the highest bid level, if any.
func (s *Snapshot) BestBid() (PriceLevel, bool) {
	if len(s.Bids) == 0 {
		return PriceLevel{}, false
	}
	return s.Bids[0], true
}

// BestAsk returns the lowest ask level, if any.
func (s *Snapshot) BestAsk() (PriceLevel, bool) {
	if len(s.Asks) == 0 {
		return PriceLevel{}, false
	}
	return s.Asks[0], true
}

// DepthStats sums resting volume within a price range of the mid price.
type DepthStats struct {
	Mid        float64
	PriceRange float64
	BidVolume  float64
	AskVolume  float64
	BidLevels  int
	AskLevels  int
}
