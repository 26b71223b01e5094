package engine

import (
	"context"
	"sync"
	"time"

	marketdatav1 "github.com/TexasCoding/projectx-go/internal/domain/marketdata/v1"
	"github.com/TexasCoding/projectx-go/internal/instrumentation"
	"github.com/TexasCoding/projectx-go/internal/usecase/analytics"
	"github.com/TexasCoding/projectx-go/internal/usecase/bars"
	"github.com/TexasCoding/projectx-go/internal/usecase/feed"
	"github.com/TexasCoding/projectx-go/internal/usecase/orderbook"
	"github.com/TexasCoding/projectx-go/internal/usecase/trades"
	"github.com/TexasCoding/projectx-go/pkg/errors"
	"github.com/TexasCoding/projectx-go/pkg/logger"
)

// instrumentState bundles the per-instrument working state. The feed manager
// goroutine is the only writer; queries read through each component's own
// synchronized view.
type instrumentState struct {
	book     *orderbook.Book
	bars     *bars.Aggregator
	trades   *trades.Window
	observer *analytics.Observer

	mu             sync.RWMutex
	lastTradePrice float64
	lastEventAt    time.Time
	eventCounts    map[marketdatav1.EventKind]int64
}

// Engine is the real-time market data engine: it owns the per-instrument
// order books, timeframe series and trade windows, drives the feed lifecycle,
// and exposes the synchronous query surface.
type Engine struct {
	logger    logger.Interface
	history   marketdatav1.HistoricalSource
	publisher marketdatav1.NotificationPublisher
	metrics   *instrumentation.Metrics
	options   *Options

	manager     *feed.Manager
	instruments map[string]*instrumentState

	// Shutdown coordination.
	cancel context.CancelFunc
	wg     sync.WaitGroup
	runErr error
	errMu  sync.Mutex

	callbacks callbackRegistry

	now func() time.Time
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithPublisher fans bar closes and lifecycle notifications out to an
// external publisher.
func WithPublisher(publisher marketdatav1.NotificationPublisher) Option {
	return func(e *Engine) { e.publisher = publisher }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(metrics *instrumentation.Metrics) Option {
	return func(e *Engine) { e.metrics = metrics }
}

// WithHistoricalSource seeds timeframe series at startup and resync.
func WithHistoricalSource(history marketdatav1.HistoricalSource) Option {
	return func(e *Engine) { e.history = history }
}

// NewEngine creates an engine with the default options.
func NewEngine(feedCfg feed.Config, transport marketdatav1.Transport, log logger.Interface, opts ...Option) *Engine {
	return NewEngineWithOptions(feedCfg, transport, log, DefaultEngineOptions(), opts...)
}

// NewEngineWithOptions creates an engine with custom options.
func NewEngineWithOptions(feedCfg feed.Config, transport marketdatav1.Transport, log logger.Interface, options *Options, opts ...Option) *Engine {
	e := &Engine{
		logger:      log,
		options:     options,
		instruments: make(map[string]*instrumentState, len(feedCfg.Instruments)),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, instrument := range feedCfg.Instruments {
		e.instruments[instrument] = e.newInstrumentState(instrument)
	}

	managerOpts := []feed.Option{}
	if e.publisher != nil {
		managerOpts = append(managerOpts, feed.WithPublisher(e.publisher))
	}
	if e.metrics != nil {
		managerOpts = append(managerOpts, feed.WithMetrics(e.metrics))
	}
	e.manager = feed.NewManager(feedCfg, transport, e, log, managerOpts...)

	return e
}

func (e *Engine) newInstrumentState(instrument string) *instrumentState {
	state := &instrumentState{
		book:        orderbook.NewBook(instrument),
		bars:        bars.NewAggregator(instrument, e.options.Timeframes, e.options.MaxBars),
		trades:      trades.NewWindow(e.options.TradeWindowCount, e.options.TradeWindowAge),
		observer:    analytics.NewObserver(e.options.IcebergWindow),
		eventCounts: make(map[marketdatav1.EventKind]int64),
	}
	state.bars.SetBarClosedFunc(func(timeframe string, bar marketdatav1.Bar) {
		e.handleBarClosed(instrument, timeframe, bar)
	})
	return state
}

// Start brings the feed up and begins applying events. It returns
// immediately; the engine runs until Stop or context cancellation.
func (e *Engine) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.manager.Run(runCtx); err != nil && runCtx.Err() == nil {
			e.logger.Error(errors.TracerFromError(err), logger.Field{
				Key:   "component",
				Value: "feed",
			})
			e.errMu.Lock()
			e.runErr = err
			e.errMu.Unlock()
		}
	}()

	e.logger.Info("Engine started", logger.Field{
		Key:   "instruments",
		Value: e.instrumentNames(),
	})
	return nil
}

// Stop shuts the feed down and waits for the apply loop to drain.
func (e *Engine) Stop(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("Engine stopped")
		return nil
	case <-ctx.Done():
		e.logger.Warn("Engine stop timeout exceeded")
		return ctx.Err()
	}
}

// Err returns the terminal feed error, if Run gave up before Stop was called.
func (e *Engine) Err() error {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.runErr
}

// ApplyEvent routes one normalized event into the instrument's working
// state. Invoked by the feed manager goroutine only.
func (e *Engine) ApplyEvent(event marketdatav1.MarketEvent) {
	state, ok := e.instruments[event.Instrument]
	if !ok {
		e.logger.Warn("Event for unknown instrument dropped", logger.Field{
			Key:   "instrument",
			Value: event.Instrument,
		})
		return
	}

	start := time.Now()
	switch {
	case event.Kind.IsDepth():
		e.applyDepth(state, event)
	case event.Kind == marketdatav1.KindTrade:
		e.applyTrade(state, event)
	case event.Kind.IsQuote():
		e.applyQuote(state, event)
	}

	state.mu.Lock()
	state.lastEventAt = event.Timestamp
	state.eventCounts[event.Kind]++
	state.mu.Unlock()

	if e.metrics != nil {
		e.metrics.ApplyLatency.Observe(time.Since(start).Seconds())
	}
}

func (e *Engine) applyDepth(state *instrumentState, event marketdatav1.MarketEvent) {
	if err := state.book.Apply(event); err != nil {
		// Out-of-sequence deliveries inside a burst are expected noise.
		e.logger.Debug("Depth event rejected", logger.Field{
			Key:   "sequence",
			Value: event.Sequence,
		}, logger.Field{
			Key:   "error",
			Value: err.Error(),
		})
		return
	}

	if event.Kind == marketdatav1.KindDepthReset {
		state.observer.Reset()
	} else {
		state.observer.Observe(event)
	}

	if e.metrics != nil {
		snap := state.book.Snapshot(0)
		e.metrics.BookLevels.WithLabelValues(event.Instrument, "bid").Set(float64(len(snap.Bids)))
		e.metrics.BookLevels.WithLabelValues(event.Instrument, "ask").Set(float64(len(snap.Asks)))
	}
	e.callbacks.fireBookUpdate(e.logger, event.Instrument, state.book.Snapshot(e.options.SnapshotDepth))
}

func (e *Engine) applyTrade(state *instrumentState, event marketdatav1.MarketEvent) {
	record := marketdatav1.TradeRecord{
		Price:     event.Price,
		Volume:    event.Volume,
		Aggressor: e.classifyAggressor(state, event),
		Timestamp: event.Timestamp,
	}
	state.trades.Add(record)
	state.bars.Apply(event)

	state.mu.Lock()
	state.lastTradePrice = event.Price
	state.mu.Unlock()

	e.callbacks.firePriceUpdate(e.logger, event.Instrument, event.Price, event.Timestamp)
}

func (e *Engine) applyQuote(state *instrumentState, event marketdatav1.MarketEvent) {
	state.bars.Apply(event)
	e.callbacks.firePriceUpdate(e.logger, event.Instrument, event.Price, event.Timestamp)
}

// classifyAggressor decides which side initiated the trade. The wire side
// wins when present; otherwise the price is compared against the prevailing
// best bid and ask. Trades inside the spread stay unknown rather than being
// guessed.
func (e *Engine) classifyAggressor(state *instrumentState, event marketdatav1.MarketEvent) marketdatav1.Aggressor {
	switch event.Side {
	case marketdatav1.SideBid:
		return marketdatav1.AggressorBuy
	case marketdatav1.SideAsk:
		return marketdatav1.AggressorSell
	}

	best, err := state.book.BestBidAsk()
	if err != nil {
		return marketdatav1.AggressorUnknown
	}
	switch {
	case best.Ask > 0 && event.Price >= best.Ask:
		return marketdatav1.AggressorBuy
	case best.Bid > 0 && event.Price <= best.Bid:
		return marketdatav1.AggressorSell
	default:
		return marketdatav1.AggressorUnknown
	}
}

// SeedHistory backfills every timeframe series from the historical source.
func (e *Engine) SeedHistory(ctx context.Context, instrument string, lookback int) error {
	state, ok := e.instruments[instrument]
	if !ok {
		return unknownInstrument(instrument)
	}
	if e.history == nil {
		return nil
	}

	for _, tf := range state.bars.Timeframes() {
		seed, err := e.history.FetchBars(ctx, instrument, tf, lookback)
		if err != nil {
			return err
		}
		if len(seed) == 0 {
			continue
		}
		if err := state.bars.Seed(tf.Name, seed); err != nil {
			return err
		}
	}

	e.logger.Info("Series seeded", logger.Field{
		Key:   "instrument",
		Value: instrument,
	}, logger.Field{
		Key:   "lookback",
		Value: lookback,
	})
	return nil
}

// DiscardWorkingState drops the instrument's book, series, trades and
// iceberg history ahead of a resync.
func (e *Engine) DiscardWorkingState(instrument string) {
	state, ok := e.instruments[instrument]
	if !ok {
		return
	}
	state.book.Reset()
	state.bars.Reset()
	state.trades.Clear()
	state.observer.Reset()

	state.mu.Lock()
	state.lastTradePrice = 0
	state.mu.Unlock()
}

func (e *Engine) handleBarClosed(instrument, timeframe string, bar marketdatav1.Bar) {
	if e.metrics != nil {
		e.metrics.BarsClosed.WithLabelValues(instrument, timeframe).Inc()
	}
	if e.publisher != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := e.publisher.PublishBarClosed(ctx, instrument, timeframe, bar); err != nil {
				e.logger.Warn("Bar close publish failed", logger.Field{
					Key:   "timeframe",
					Value: timeframe,
				}, logger.Field{
					Key:   "error",
					Value: err.Error(),
				})
			}
		}()
	}
	e.callbacks.fireBarClosed(e.logger, instrument, timeframe, bar)
}

func (e *Engine) state(instrument string) (*instrumentState, error) {
	state, ok := e.instruments[instrument]
	if !ok {
		return nil, unknownInstrument(instrument)
	}
	return state, nil
}

func (e *Engine) instrumentNames() []string {
	names := make([]string, 0, len(e.instruments))
	for name := range e.instruments {
		names = append(names, name)
	}
	return names
}

func unknownInstrument(instrument string) error {
	return errors.NewErrorDetails("instrument not configured: "+instrument, string(errors.UnknownInstrumentError), "instrument")
}

var _ feed.Sink = (*Engine)(nil)
