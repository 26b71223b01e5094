package bars

import (
	"sync"
	"time"

	marketdatav1 "github.com/TexasCoding/projectx-go/internal/domain/marketdata/v1"
	"github.com/TexasCoding/projectx-go/pkg/errors"
	"github.com/TexasCoding/projectx-go/pkg/interval"
)

// BarClosedFunc receives every bar the aggregator closes, filler bars
// included. Invoked synchronously on the writer; the engine wraps it in an
// asynchronous dispatcher.
type BarClosedFunc func(timeframe string, bar marketdatav1.Bar)

// Aggregator buckets trade and quote events into OHLCV bars for every
// configured timeframe. A single writer applies events in sequence order,
// which is what keeps all timeframes synchronized at the same sequence
// number; readers copy bars out under a read lock.
type Aggregator struct {
	mu sync.RWMutex

	instrument string
	series     map[string]*Series
	order      []interval.Timeframe
	lastSeq    int64
	onClosed   BarClosedFunc
}

// NewAggregator creates an aggregator with one empty series per timeframe,
// each bounded to maxBars.
func NewAggregator(instrument string, timeframes []interval.Timeframe, maxBars int) *Aggregator {
	a := &Aggregator{
		instrument: instrument,
		series:     make(map[string]*Series, len(timeframes)),
		order:      timeframes,
	}
	for _, tf := range timeframes {
		a.series[tf.Name] = NewSeries(tf, maxBars)
	}
	return a
}

// SetBarClosedFunc registers the closed-bar hook. Must be called before the
// writer starts.
func (a *Aggregator) SetBarClosedFunc(fn BarClosedFunc) {
	a.onClosed = fn
}

// Seed backfills a series with historical bars, oldest first. Every seeded
// bar except the most recent is marked closed; the most recent stays open so
// live events landing in its bucket keep updating it. Gaps between seeded
// bars are filled with zero-volume bars carrying the prior close, the same
// shape live rollover produces.
func (a *Aggregator) Seed(timeframe string, seed []marketdatav1.Bar) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	series, ok := a.series[timeframe]
	if !ok {
		return errors.NewErrorDetails("timeframe not configured", string(errors.UnsupportedTimeframeError), "timeframe")
	}

	var prevStart time.Time
	var prevClose float64
	for i, bar := range seed {
		bar.Closed = i < len(seed)-1
		if i > 0 {
			for start := prevStart.Add(series.Timeframe.Duration); start.Before(bar.Start); start = start.Add(series.Timeframe.Duration) {
				series.Push(marketdatav1.Bar{
					Start:  start,
					Open:   prevClose,
					High:   prevClose,
					Low:    prevClose,
					Close:  prevClose,
					Closed: true,
				})
			}
		}
		series.Push(bar)
		prevStart, prevClose = bar.Start, bar.Close
	}
	return nil
}

// Reset drops every series back to empty. Used on full resynchronization
// before re-seeding.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for name, s := range a.series {
		a.series[name] = NewSeries(s.Timeframe, len(s.buf))
	}
	a.lastSeq = 0
}

// Apply buckets one trade or quote event into every timeframe. Trade events
// contribute volume; quote events move OHLC only. Events older than the
// current open bar of a series are discarded for that series (stale delivery
// after seeding).
func (a *Aggregator) Apply(event marketdatav1.MarketEvent) {
	if event.Kind != marketdatav1.KindTrade && !event.Kind.IsQuote() {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	isTrade := event.Kind == marketdatav1.KindTrade
	for _, tf := range a.order {
		a.applyToSeries(a.series[tf.Name], event, isTrade)
	}
	a.lastSeq = event.Sequence
}

func (a *Aggregator) applyToSeries(series *Series, event marketdatav1.MarketEvent, isTrade bool) {
	bucket := series.Timeframe.CalculateBucketTime(event.Timestamp)

	current := series.Current()
	if current == nil {
		series.Push(newBar(bucket, event.Price, tradeVolume(event, isTrade), isTrade))
		return
	}

	switch {
	case bucket.After(current.Start):
		a.rollForward(series, bucket)
		series.Push(newBar(bucket, event.Price, tradeVolume(event, isTrade), isTrade))
	case bucket.Equal(current.Start):
		if event.Price > current.High {
			current.High = event.Price
		}
		if event.Price < current.Low {
			current.Low = event.Price
		}
		current.Close = event.Price
		if isTrade {
			current.Volume += event.Volume
			current.TradeCount++
		}
	default:
		// older than the open bar: discard
	}
}

// rollForward closes the open bar and synthesizes zero-volume fillers for any
// skipped buckets so consecutive bars are always exactly one duration apart.
func (a *Aggregator) rollForward(series *Series, bucket time.Time) {
	current := series.Current()
	current.Closed = true
	a.fireClosed(series.Timeframe.Name, *current)

	prevClose := current.Close
	for start := current.Start.Add(series.Timeframe.Duration); start.Before(bucket); start = start.Add(series.Timeframe.Duration) {
		filler := marketdatav1.Bar{
			Start:  start,
			Open:   prevClose,
			High:   prevClose,
			Low:    prevClose,
			Close:  prevClose,
			Closed: true,
		}
		series.Push(filler)
		a.fireClosed(series.Timeframe.Name, filler)
	}
}

func (a *Aggregator) fireClosed(timeframe string, bar marketdatav1.Bar) {
	if a.onClosed != nil {
		a.onClosed(timeframe, bar)
	}
}

func newBar(start time.Time, price, volume float64, isTrade bool) marketdatav1.Bar {
	bar := marketdatav1.Bar{
		Start:  start,
		Open:   price,
		High:   price,
		Low:    price,
		Close:  price,
		Volume: volume,
	}
	if isTrade {
		bar.TradeCount = 1
	}
	return bar
}

func tradeVolume(event marketdatav1.MarketEvent, isTrade bool) float64 {
	if isTrade {
		return event.Volume
	}
	return 0
}

// LatestBars returns the most recent count bars for the timeframe, oldest
// first, including the still-open bar.
func (a *Aggregator) LatestBars(timeframe string, count int) ([]marketdatav1.Bar, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	series, ok := a.series[timeframe]
	if !ok {
		return nil, errors.NewErrorDetails("timeframe not configured", string(errors.UnsupportedTimeframeError), "timeframe")
	}
	return series.Latest(count), nil
}

// View is a synchronized snapshot across every configured timeframe: all
// series reflect events up to Sequence.
type View struct {
	Instrument string
	Sequence   int64
	Series     map[string][]marketdatav1.Bar
}

// AllTimeframes copies out every series at the same instant.
func (a *Aggregator) AllTimeframes() View {
	a.mu.RLock()
	defer a.mu.RUnlock()

	view := View{
		Instrument: a.instrument,
		Sequence:   a.lastSeq,
		Series:     make(map[string][]marketdatav1.Bar, len(a.series)),
	}
	for name, series := range a.series {
		view.Series[name] = series.Latest(0)
	}
	return view
}

// Timeframes lists the configured timeframes in registration order.
func (a *Aggregator) Timeframes() []interval.Timeframe {
	return a.order
}

// BarCounts reports how many bars each timeframe currently retains.
func (a *Aggregator) BarCounts() map[string]int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	counts := make(map[string]int, len(a.series))
	for name, series := range a.series {
		counts[name] = series.Len()
	}
	return counts
}
