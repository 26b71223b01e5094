package engine

import (
	"fmt"
	"sync"
	"time"

	marketdatav1 "github.com/TexasCoding/projectx-go/internal/domain/marketdata/v1"
	orderbookv1 "github.com/TexasCoding/projectx-go/internal/domain/orderbook/v1"
	"github.com/TexasCoding/projectx-go/pkg/errors"
	"github.com/TexasCoding/projectx-go/pkg/logger"
)

// BarClosedFunc receives every closed bar, filler bars included.
type BarClosedFunc func(instrument, timeframe string, bar marketdatav1.Bar)

// PriceUpdateFunc receives every traded or quoted price.
type PriceUpdateFunc func(instrument string, price float64, at time.Time)

// BookUpdateFunc receives a book snapshot after every applied depth event.
type BookUpdateFunc func(instrument string, snap *orderbookv1.Snapshot)

// callbackRegistry dispatches subscriber callbacks. Each invocation runs on
// its own goroutine with panic isolation, so a subscriber can neither block
// nor crash the apply loop.
type callbackRegistry struct {
	mu          sync.RWMutex
	barClosed   []BarClosedFunc
	priceUpdate []PriceUpdateFunc
	bookUpdate  []BookUpdateFunc
}

// OnBarClosed registers a bar close subscriber.
func (e *Engine) OnBarClosed(fn BarClosedFunc) {
	e.callbacks.mu.Lock()
	defer e.callbacks.mu.Unlock()
	e.callbacks.barClosed = append(e.callbacks.barClosed, fn)
}

// OnPriceUpdate registers a price subscriber.
func (e *Engine) OnPriceUpdate(fn PriceUpdateFunc) {
	e.callbacks.mu.Lock()
	defer e.callbacks.mu.Unlock()
	e.callbacks.priceUpdate = append(e.callbacks.priceUpdate, fn)
}

// OnBookUpdate registers a book snapshot subscriber.
func (e *Engine) OnBookUpdate(fn BookUpdateFunc) {
	e.callbacks.mu.Lock()
	defer e.callbacks.mu.Unlock()
	e.callbacks.bookUpdate = append(e.callbacks.bookUpdate, fn)
}

func (r *callbackRegistry) fireBarClosed(log logger.Interface, instrument, timeframe string, bar marketdatav1.Bar) {
	r.mu.RLock()
	subscribers := append([]BarClosedFunc(nil), r.barClosed...)
	r.mu.RUnlock()

	for _, fn := range subscribers {
		go dispatch(log, "bar_closed", func() { fn(instrument, timeframe, bar) })
	}
}

func (r *callbackRegistry) firePriceUpdate(log logger.Interface, instrument string, price float64, at time.Time) {
	r.mu.RLock()
	subscribers := append([]PriceUpdateFunc(nil), r.priceUpdate...)
	r.mu.RUnlock()

	for _, fn := range subscribers {
		go dispatch(log, "price_update", func() { fn(instrument, price, at) })
	}
}

func (r *callbackRegistry) fireBookUpdate(log logger.Interface, instrument string, snap *orderbookv1.Snapshot) {
	if snap == nil {
		return
	}
	r.mu.RLock()
	subscribers := append([]BookUpdateFunc(nil), r.bookUpdate...)
	r.mu.RUnlock()

	for _, fn := range subscribers {
		go dispatch(log, "book_update", func() { fn(instrument, snap) })
	}
}

func dispatch(log logger.Interface, name string, fn func()) {
	defer func() {
		if recovered := recover(); recovered != nil {
			log.Error(errors.NewTracer(fmt.Sprintf("subscriber panic in %s: %v", name, recovered)), logger.Field{
				Key:   "callback",
				Value: name,
			})
		}
	}()
	fn()
}
