package trades

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	marketdatav1 "github.com/TexasCoding/projectx-go/internal/domain/marketdata/v1"
)

func record(price, volume float64, aggressor marketdatav1.Aggressor, at time.Time) marketdatav1.TradeRecord {
	return marketdatav1.TradeRecord{
		Price:     price,
		Volume:    volume,
		Aggressor: aggressor,
		Timestamp: at,
	}
}

func TestWindow_CountBound(t *testing.T) {
	w := NewWindow(3, time.Hour)
	base := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		w.Add(record(5000+float64(i), 1, marketdatav1.AggressorBuy, base.Add(time.Duration(i)*time.Second)))
	}

	assert.Equal(t, 3, w.Len())
	out := w.Recent(0)
	require.Len(t, out, 3)
	// Oldest evicted first; remaining are the most recent three, oldest first.
	assert.Equal(t, 5002.0, out[0].Price)
	assert.Equal(t, 5004.0, out[2].Price)
}

func TestWindow_AgeBound(t *testing.T) {
	w := NewWindow(100, 10*time.Minute)
	base := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)

	w.Add(record(5000, 1, marketdatav1.AggressorBuy, base.Add(-30*time.Minute)))
	w.Add(record(5001, 1, marketdatav1.AggressorBuy, base))

	out := w.Recent(0)
	require.Len(t, out, 1)
	assert.Equal(t, 5001.0, out[0].Price)
}

func TestWindow_RecentLimit(t *testing.T) {
	w := NewWindow(100, time.Hour)
	base := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		w.Add(record(5000+float64(i), 1, marketdatav1.AggressorBuy, base.Add(time.Duration(i)*time.Second)))
	}

	out := w.Recent(2)
	require.Len(t, out, 2)
	assert.Equal(t, 5003.0, out[0].Price)
	assert.Equal(t, 5004.0, out[1].Price)
}

func TestWindow_Flow(t *testing.T) {
	w := NewWindow(100, time.Hour)
	now := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)

	// Oldest first, outside the five minute flow window.
	w.Add(record(5000, 99, marketdatav1.AggressorBuy, now.Add(-20*time.Minute)))
	w.Add(record(5000, 2, marketdatav1.AggressorUnknown, now.Add(-3*time.Minute)))
	w.Add(record(5000, 4, marketdatav1.AggressorSell, now.Add(-2*time.Minute)))
	w.Add(record(5000, 10, marketdatav1.AggressorBuy, now.Add(-time.Minute)))

	flow := w.Flow(now, 5*time.Minute)
	assert.InDelta(t, 10, flow.BuyVolume, 1e-9)
	assert.InDelta(t, 4, flow.SellVolume, 1e-9)
	assert.InDelta(t, 2, flow.UnknownVolume, 1e-9)
	assert.Equal(t, 3, flow.TradeCount)
	assert.InDelta(t, 16.0/3, flow.AvgTradeSize, 1e-9)
	assert.InDelta(t, 6, flow.NetDelta, 1e-9)
}

func TestWindow_Clear(t *testing.T) {
	w := NewWindow(100, time.Hour)
	w.Add(record(5000, 1, marketdatav1.AggressorBuy, time.Now()))
	w.Clear()
	assert.Zero(t, w.Len())
}
