package engine

import (
	"time"

	marketdatav1 "github.com/TexasCoding/projectx-go/internal/domain/marketdata/v1"
	orderbookv1 "github.com/TexasCoding/projectx-go/internal/domain/orderbook/v1"
	"github.com/TexasCoding/projectx-go/internal/usecase/analytics"
	"github.com/TexasCoding/projectx-go/internal/usecase/bars"
	"github.com/TexasCoding/projectx-go/internal/usecase/feed"
	"github.com/TexasCoding/projectx-go/internal/usecase/trades"
	"github.com/TexasCoding/projectx-go/pkg/errors"
)

// Queries never block on network I/O: they read the latest published state
// and return immediately, even while the feed is reconnecting.

// CurrentPrice returns the last traded price, falling back to the book mid
// when no trade has been seen this session.
func (e *Engine) CurrentPrice(instrument string) (float64, error) {
	state, err := e.state(instrument)
	if err != nil {
		return 0, err
	}

	state.mu.RLock()
	last := state.lastTradePrice
	state.mu.RUnlock()
	if last > 0 {
		return last, nil
	}

	if snap := state.book.Snapshot(1); snap.Mid > 0 {
		return snap.Mid, nil
	}
	return 0, errors.NewErrorDetails("no trade or quote seen yet", string(errors.HistoryEmptyError), "instrument")
}

// Bars returns the most recent count bars for the timeframe, oldest first,
// including the still-open bar.
func (e *Engine) Bars(instrument, timeframe string, count int) ([]marketdatav1.Bar, error) {
	state, err := e.state(instrument)
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, errors.NewErrorDetails("count must not be negative", string(errors.InvalidParameterError), "count")
	}
	return state.bars.LatestBars(timeframe, count)
}

// AllTimeframes returns a synchronized view across every configured
// timeframe for the instrument.
func (e *Engine) AllTimeframes(instrument string) (bars.View, error) {
	state, err := e.state(instrument)
	if err != nil {
		return bars.View{}, err
	}
	return state.bars.AllTimeframes(), nil
}

// BestBidAsk returns the top of book with its spread.
func (e *Engine) BestBidAsk(instrument string) (orderbookv1.BestBidAsk, error) {
	state, err := e.state(instrument)
	if err != nil {
		return orderbookv1.BestBidAsk{}, err
	}
	return state.book.BestBidAsk()
}

// OrderBookSnapshot returns the latest published book snapshot truncated to
// levels per side. Zero levels means the engine default depth.
func (e *Engine) OrderBookSnapshot(instrument string, levels int) (*orderbookv1.Snapshot, error) {
	state, err := e.state(instrument)
	if err != nil {
		return nil, err
	}
	if levels < 0 {
		return nil, errors.NewErrorDetails("levels must not be negative", string(errors.InvalidParameterError), "levels")
	}
	if levels == 0 {
		levels = e.options.SnapshotDepth
	}

	snap := state.book.Snapshot(levels)
	if len(snap.Bids) == 0 && len(snap.Asks) == 0 && snap.Sequence == 0 {
		return nil, errors.NewErrorDetails("no depth seen yet", string(errors.HistoryEmptyError), "instrument")
	}
	return snap, nil
}

// DepthWithinRange sums resting volume within price distance of the mid.
func (e *Engine) DepthWithinRange(instrument string, priceRange float64) (orderbookv1.DepthStats, error) {
	state, err := e.state(instrument)
	if err != nil {
		return orderbookv1.DepthStats{}, err
	}
	if priceRange <= 0 {
		return orderbookv1.DepthStats{}, errors.NewErrorDetails("price range must be positive", string(errors.InvalidParameterError), "priceRange")
	}
	return state.book.DepthWithinRange(priceRange), nil
}

// RecentTrades returns up to count trades, oldest first.
func (e *Engine) RecentTrades(instrument string, count int) ([]marketdatav1.TradeRecord, error) {
	state, err := e.state(instrument)
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, errors.NewErrorDetails("count must not be negative", string(errors.InvalidParameterError), "count")
	}
	return state.trades.Recent(count), nil
}

// TradeFlow summarises buy/sell volume over the window.
func (e *Engine) TradeFlow(instrument string, window time.Duration) (trades.FlowSummary, error) {
	state, err := e.state(instrument)
	if err != nil {
		return trades.FlowSummary{}, err
	}
	return state.trades.Flow(e.now(), window), nil
}

// LiquidityLevels scores significant resting-volume levels per book side.
func (e *Engine) LiquidityLevels(instrument string, cfg analytics.LiquidityConfig) (analytics.LiquidityAnalysis, error) {
	state, err := e.state(instrument)
	if err != nil {
		return analytics.LiquidityAnalysis{}, err
	}
	return analytics.LiquidityLevels(state.book.Snapshot(0), e.now(), cfg), nil
}

// OrderClusters groups adjacent price levels into liquidity zones.
func (e *Engine) OrderClusters(instrument string, cfg analytics.ClusterConfig) (analytics.ClusterAnalysis, error) {
	state, err := e.state(instrument)
	if err != nil {
		return analytics.ClusterAnalysis{}, err
	}
	return analytics.DetectClusters(state.book.Snapshot(0), cfg), nil
}

// IcebergLevels flags price levels suspected of hiding reserve volume.
func (e *Engine) IcebergLevels(instrument string, cfg analytics.IcebergConfig) (analytics.IcebergAnalysis, error) {
	state, err := e.state(instrument)
	if err != nil {
		return analytics.IcebergAnalysis{}, err
	}
	return analytics.DetectIcebergs(state.observer, e.now(), cfg), nil
}

// IcebergLevelsAdvanced adds reload-cadence and execution evidence to the
// basic iceberg signal.
func (e *Engine) IcebergLevelsAdvanced(instrument string, cfg analytics.AdvancedIcebergConfig) ([]analytics.AdvancedIcebergLevel, error) {
	state, err := e.state(instrument)
	if err != nil {
		return nil, err
	}
	return analytics.DetectIcebergsAdvanced(state.observer, state.trades.Recent(0), e.now(), cfg), nil
}

// CumulativeDelta sums aggressor-signed volume over the window.
func (e *Engine) CumulativeDelta(instrument string, cfg analytics.DeltaConfig) (analytics.DeltaAnalysis, error) {
	state, err := e.state(instrument)
	if err != nil {
		return analytics.DeltaAnalysis{}, err
	}
	return analytics.CumulativeDelta(state.trades.Recent(0), e.now(), cfg), nil
}

// MarketImbalance combines resting-book pressure with recent trade flow.
func (e *Engine) MarketImbalance(instrument string, cfg analytics.ImbalanceConfig) (analytics.ImbalanceAnalysis, error) {
	state, err := e.state(instrument)
	if err != nil {
		return analytics.ImbalanceAnalysis{}, err
	}
	return analytics.MarketImbalance(state.book.Snapshot(0), state.trades.Recent(0), e.now(), cfg), nil
}

// VolumeProfile bins traded volume into price buckets over the lookback.
func (e *Engine) VolumeProfile(instrument string, cfg analytics.ProfileConfig) (analytics.VolumeProfile, error) {
	state, err := e.state(instrument)
	if err != nil {
		return analytics.VolumeProfile{}, err
	}
	return analytics.BuildVolumeProfile(state.trades.Recent(0), e.now(), cfg), nil
}

// SupportResistance derives support and resistance zones from bar extrema
// and resting liquidity, split around the current price.
func (e *Engine) SupportResistance(instrument, timeframe string, cfg analytics.SupportResistanceConfig) (analytics.SupportResistance, error) {
	state, err := e.state(instrument)
	if err != nil {
		return analytics.SupportResistance{}, err
	}

	series, err := state.bars.LatestBars(timeframe, 0)
	if err != nil {
		return analytics.SupportResistance{}, err
	}

	refPrice, err := e.CurrentPrice(instrument)
	if err != nil {
		// No reference price yet: everything would land on one side anyway.
		return analytics.SupportResistance{}, nil
	}

	return analytics.FindSupportResistance(series, state.book.Snapshot(0), refPrice, e.now(), cfg), nil
}

// Status describes the engine's health for decision-making callers.
type Status struct {
	Feed        feed.Stats
	Stale       bool
	Instruments map[string]InstrumentStatus
}

// InstrumentStatus is the per-instrument slice of Status.
type InstrumentStatus struct {
	LastEventAt    time.Time
	LastTradePrice float64
	TradeCount     int
	BookSequence   int64
	BidLevels      int
	AskLevels      int
	BarCounts      map[string]int
	EventCounts    map[marketdatav1.EventKind]int64
}

// Status reports connection state, staleness and per-instrument progress.
// Callers must check Stale before trusting snapshots for decision-making.
func (e *Engine) Status() Status {
	stats := e.manager.Stats()

	status := Status{
		Feed:        stats,
		Instruments: make(map[string]InstrumentStatus, len(e.instruments)),
	}

	var newest time.Time
	for name, state := range e.instruments {
		state.mu.RLock()
		lastEvent := state.lastEventAt
		lastPrice := state.lastTradePrice
		counts := make(map[marketdatav1.EventKind]int64, len(state.eventCounts))
		for kind, n := range state.eventCounts {
			counts[kind] = n
		}
		state.mu.RUnlock()

		if lastEvent.After(newest) {
			newest = lastEvent
		}
		bidLevels, askLevels := state.book.LevelCounts()
		status.Instruments[name] = InstrumentStatus{
			LastEventAt:    lastEvent,
			LastTradePrice: lastPrice,
			TradeCount:     state.trades.Len(),
			BookSequence:   state.book.LastSequence(),
			BidLevels:      bidLevels,
			AskLevels:      askLevels,
			BarCounts:      state.bars.BarCounts(),
			EventCounts:    counts,
		}
	}

	status.Stale = stats.State != marketdatav1.StateLive ||
		newest.IsZero() || e.now().Sub(newest) > e.options.StaleAfter
	return status
}

// Healthy reports whether the feed is live, events are flowing and at least
// one instrument has resting depth.
func (e *Engine) Healthy() bool {
	status := e.Status()
	if status.Stale {
		return false
	}
	for _, inst := range status.Instruments {
		if inst.BidLevels > 0 || inst.AskLevels > 0 {
			return true
		}
	}
	return false
}

// ConnectionState returns the feed lifecycle state.
func (e *Engine) ConnectionState() marketdatav1.ConnectionState {
	return e.manager.State()
}
