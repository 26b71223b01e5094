package marketdatav1

import (
	"time"
)

// EventKind identifies the type of a normalized market event.
type EventKind string

const (
	// KindQuoteBid is a best-bid quote update.
	KindQuoteBid EventKind = "quote_bid"
	// KindQuoteAsk is a best-ask quote update.
	KindQuoteAsk EventKind = "quote_ask"
	// KindTrade is an executed trade.
	KindTrade EventKind = "trade"
	// KindDepthAdd adds a price level to one side of the book.
	KindDepthAdd EventKind = "depth_add"
	// KindDepthUpdate replaces the resting volume at a price level.
	KindDepthUpdate EventKind = "depth_update"
	// KindDepthDelete removes a price level.
	KindDepthDelete EventKind = "depth_delete"
	// KindDepthReset clears both sides of the book.
	KindDepthReset EventKind = "depth_reset"
)

// IsDepth reports whether the kind mutates the order book.
func (k EventKind) IsDepth() bool {
	switch k {
	case KindDepthAdd, KindDepthUpdate, KindDepthDelete, KindDepthReset:
		return true
	}
	return false
}

// IsQuote reports whether the kind is a quote update.
func (k EventKind) IsQuote() bool {
	return k == KindQuoteBid || k == KindQuoteAsk
}

// Side identifies one side of the order book.
type Side string

const (
	// SideBid is the buy side of the book.
	SideBid Side = "bid"
	// SideAsk is the sell side of the book.
	SideAsk Side = "ask"
)

// Aggressor identifies which side initiated a trade.
type Aggressor string

const (
	// AggressorBuy marks a buy-initiated trade (price at or above the ask).
	AggressorBuy Aggressor = "buy"
	// AggressorSell marks a sell-initiated trade (price at or below the bid).
	AggressorSell Aggressor = "sell"
	// AggressorUnknown marks a trade inside the spread.
	AggressorUnknown Aggressor = "unknown"
)

// MarketEvent is one normalized wire event. Sequence numbers are assigned by
// the exchange and strictly increase per instrument; the engine never invents
// them.
type MarketEvent struct {
	Kind       EventKind
	Instrument string
	Price      float64
	Volume     float64
	Side       Side
	Sequence   int64
	Timestamp  time.Time
}

// TradeRecord is one executed trade kept in the bounded recent-trade window.
type TradeRecord struct {
	Price     float64
	Volume    float64
	Aggressor Aggressor
	Timestamp time.Time
}

// Bar is one OHLCV candle for one timeframe.
type Bar struct {
	Start      time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
	TradeCount int64
	Closed     bool
}

// ConnectionState describes the feed lifecycle state visible to callers.
type ConnectionState string

const (
	// StateConnecting means the transport dial or initial seeding is in progress.
	StateConnecting ConnectionState = "connecting"
	// StateLive means events are being applied in sequence order.
	StateLive ConnectionState = "live"
	// StateResyncing means working state was discarded and a fresh snapshot is pending.
	StateResyncing ConnectionState = "resyncing"
	// StateDisconnected means the transport dropped and reconnection is backing off.
	StateDisconnected ConnectionState = "disconnected"
	// StateStopped means the feed was cancelled and must be reinitialized explicitly.
	StateStopped ConnectionState = "stopped"
)

// Notification is a lifecycle condition surfaced to subscribers alongside the
// query surface, never as an error on the query path.
type Notification string

const (
	// NotifyFeedGapDetected is raised when the ingest queue overflowed or the
	// sequence numbers skipped ahead.
	NotifyFeedGapDetected Notification = "feed_gap_detected"
	// NotifyResyncOccurred is raised after working state was discarded and
	// re-seeded from a fresh snapshot.
	NotifyResyncOccurred Notification = "resync_occurred"
	// NotifyConnectionStateChanged is raised on every connection state transition.
	NotifyConnectionStateChanged Notification = "connection_state_changed"
)
