package trades

import (
	"sync"
	"time"

	marketdatav1 "github.com/TexasCoding/projectx-go/internal/domain/marketdata/v1"
)

// Window is the bounded recent-trade buffer. Records are evicted FIFO by age
// and by count; the writer appends, readers copy out.
type Window struct {
	mu sync.RWMutex

	records  []marketdatav1.TradeRecord
	maxCount int
	maxAge   time.Duration
}

// NewWindow creates a window bounded to maxCount records no older than maxAge.
func NewWindow(maxCount int, maxAge time.Duration) *Window {
	if maxCount <= 0 {
		maxCount = 1000
	}
	return &Window{
		records:  make([]marketdatav1.TradeRecord, 0, maxCount),
		maxCount: maxCount,
		maxAge:   maxAge,
	}
}

// Add appends a trade and prunes anything out of bounds.
func (w *Window) Add(record marketdatav1.TradeRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.records = append(w.records, record)
	w.prune(record.Timestamp)
}

func (w *Window) prune(now time.Time) {
	if len(w.records) > w.maxCount {
		w.records = w.records[len(w.records)-w.maxCount:]
	}
	if w.maxAge <= 0 {
		return
	}
	cutoff := now.Add(-w.maxAge)
	keep := 0
	for keep < len(w.records) && w.records[keep].Timestamp.Before(cutoff) {
		keep++
	}
	if keep > 0 {
		w.records = w.records[keep:]
	}
}

// Clear drops every record. Used on full resynchronization.
func (w *Window) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.records = w.records[:0]
}

// Len returns the number of retained trades.
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.records)
}

// Recent copies out the most recent count trades, oldest first. count <= 0
// returns everything retained.
func (w *Window) Recent(count int) []marketdatav1.TradeRecord {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if count <= 0 || count > len(w.records) {
		count = len(w.records)
	}
	out := make([]marketdatav1.TradeRecord, count)
	copy(out, w.records[len(w.records)-count:])
	return out
}

// Since copies out every trade at or after cutoff, oldest first.
func (w *Window) Since(cutoff time.Time) []marketdatav1.TradeRecord {
	w.mu.RLock()
	defer w.mu.RUnlock()

	start := len(w.records)
	for start > 0 && !w.records[start-1].Timestamp.Before(cutoff) {
		start--
	}
	out := make([]marketdatav1.TradeRecord, len(w.records)-start)
	copy(out, w.records[start:])
	return out
}

// FlowSummary aggregates the trade flow over a trailing window.
type FlowSummary struct {
	Window        time.Duration
	BuyVolume     float64
	SellVolume    float64
	UnknownVolume float64
	TradeCount    int
	AvgTradeSize  float64
	NetDelta      float64
}

// Flow summarizes buy/sell pressure over the trailing window ending at now.
func (w *Window) Flow(now time.Time, window time.Duration) FlowSummary {
	summary := FlowSummary{Window: window}

	records := w.Since(now.Add(-window))
	var total float64
	for _, record := range records {
		total += record.Volume
		switch record.Aggressor {
		case marketdatav1.AggressorBuy:
			summary.BuyVolume += record.Volume
		case marketdatav1.AggressorSell:
			summary.SellVolume += record.Volume
		default:
			summary.UnknownVolume += record.Volume
		}
	}
	summary.TradeCount = len(records)
	if summary.TradeCount > 0 {
		summary.AvgTradeSize = total / float64(summary.TradeCount)
	}
	summary.NetDelta = summary.BuyVolume - summary.SellVolume
	return summary
}
