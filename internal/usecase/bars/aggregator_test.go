package bars

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	marketdatav1 "github.com/TexasCoding/projectx-go/internal/domain/marketdata/v1"
	"github.com/TexasCoding/projectx-go/pkg/interval"
)

func trade(seq int64, price, volume float64, at time.Time) marketdatav1.MarketEvent {
	return marketdatav1.MarketEvent{
		Kind:       marketdatav1.KindTrade,
		Instrument: "CON.F.US.MNQ.U25",
		Price:      price,
		Volume:     volume,
		Sequence:   seq,
		Timestamp:  at,
	}
}

func quote(seq int64, kind marketdatav1.EventKind, price float64, at time.Time) marketdatav1.MarketEvent {
	return marketdatav1.MarketEvent{
		Kind:       kind,
		Instrument: "CON.F.US.MNQ.U25",
		Price:      price,
		Sequence:   seq,
		Timestamp:  at,
	}
}

func fiveSecondAggregator() *Aggregator {
	return NewAggregator("CON.F.US.MNQ.U25", []interval.Timeframe{interval.Timeframe5s}, 100)
}

func TestAggregator_FiveSecondBar(t *testing.T) {
	agg := fiveSecondAggregator()
	base := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)

	agg.Apply(trade(1, 100.25, 2, base.Add(1*time.Second)))
	agg.Apply(trade(2, 100.75, 1, base.Add(2*time.Second)))
	agg.Apply(trade(3, 99.50, 3, base.Add(3*time.Second)))
	agg.Apply(trade(4, 100.00, 1, base.Add(4*time.Second)))

	out, err := agg.LatestBars(interval.Timeframe5s.Name, 1)
	require.NoError(t, err)
	require.Len(t, out, 1)

	bar := out[0]
	assert.Equal(t, base, bar.Start)
	assert.Equal(t, 100.25, bar.Open)
	assert.Equal(t, 100.75, bar.High)
	assert.Equal(t, 99.50, bar.Low)
	assert.Equal(t, 100.00, bar.Close)
	assert.InDelta(t, 7, bar.Volume, 1e-9)
	assert.Equal(t, int64(4), bar.TradeCount)
	assert.False(t, bar.Closed)
}

func TestAggregator_BucketRollCloses(t *testing.T) {
	agg := fiveSecondAggregator()
	base := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)

	var closed []marketdatav1.Bar
	agg.SetBarClosedFunc(func(timeframe string, bar marketdatav1.Bar) {
		closed = append(closed, bar)
	})

	agg.Apply(trade(1, 100.00, 1, base.Add(time.Second)))
	agg.Apply(trade(2, 101.00, 1, base.Add(6*time.Second)))

	require.Len(t, closed, 1)
	assert.Equal(t, base, closed[0].Start)
	assert.True(t, closed[0].Closed)

	out, err := agg.LatestBars(interval.Timeframe5s.Name, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, base.Add(5*time.Second), out[1].Start)
	assert.Equal(t, 101.00, out[1].Open)
}

func TestAggregator_GapFilling(t *testing.T) {
	agg := fiveSecondAggregator()
	base := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)

	agg.Apply(trade(1, 100.00, 1, base))
	// Next trade lands three buckets later: two fillers must appear.
	agg.Apply(trade(2, 102.00, 1, base.Add(15*time.Second)))

	out, err := agg.LatestBars(interval.Timeframe5s.Name, 0)
	require.NoError(t, err)
	require.Len(t, out, 4)

	// Consecutive starts are exactly one duration apart.
	for i := 1; i < len(out); i++ {
		assert.Equal(t, interval.Timeframe5s.Duration, out[i].Start.Sub(out[i-1].Start))
	}

	// Fillers carry the prior close with zero volume.
	for _, filler := range out[1:3] {
		assert.Equal(t, 100.00, filler.Open)
		assert.Equal(t, 100.00, filler.High)
		assert.Equal(t, 100.00, filler.Low)
		assert.Equal(t, 100.00, filler.Close)
		assert.Zero(t, filler.Volume)
		assert.Zero(t, filler.TradeCount)
		assert.True(t, filler.Closed)
	}
}

func TestAggregator_FillersFireBarClosed(t *testing.T) {
	agg := fiveSecondAggregator()
	base := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)

	var closed int
	agg.SetBarClosedFunc(func(string, marketdatav1.Bar) { closed++ })

	agg.Apply(trade(1, 100.00, 1, base))
	agg.Apply(trade(2, 102.00, 1, base.Add(15*time.Second)))

	// The real bar plus two fillers.
	assert.Equal(t, 3, closed)
}

func TestAggregator_QuotesMoveOHLCWithoutVolume(t *testing.T) {
	agg := fiveSecondAggregator()
	base := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)

	agg.Apply(trade(1, 100.00, 2, base.Add(time.Second)))
	agg.Apply(quote(2, marketdatav1.KindQuoteBid, 99.00, base.Add(2*time.Second)))
	agg.Apply(quote(2, marketdatav1.KindQuoteAsk, 101.50, base.Add(2*time.Second)))

	out, err := agg.LatestBars(interval.Timeframe5s.Name, 1)
	require.NoError(t, err)
	require.Len(t, out, 1)

	bar := out[0]
	assert.Equal(t, 101.50, bar.High)
	assert.Equal(t, 99.00, bar.Low)
	assert.Equal(t, 101.50, bar.Close)
	assert.InDelta(t, 2, bar.Volume, 1e-9)
	assert.Equal(t, int64(1), bar.TradeCount)
}

func TestAggregator_StaleEventDiscarded(t *testing.T) {
	agg := fiveSecondAggregator()
	base := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)

	agg.Apply(trade(1, 100.00, 1, base.Add(6*time.Second)))
	agg.Apply(trade(2, 50.00, 9, base)) // older than the open bar

	out, err := agg.LatestBars(interval.Timeframe5s.Name, 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 100.00, out[0].Low)
	assert.InDelta(t, 1, out[0].Volume, 1e-9)
}

func TestAggregator_MultipleTimeframesStayAligned(t *testing.T) {
	agg := NewAggregator("CON.F.US.MNQ.U25", []interval.Timeframe{
		interval.Timeframe5s, interval.Timeframe1m,
	}, 100)
	base := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)

	agg.Apply(trade(1, 100.00, 1, base.Add(3*time.Second)))
	agg.Apply(trade(2, 101.00, 2, base.Add(58*time.Second)))
	agg.Apply(trade(3, 99.00, 1, base.Add(61*time.Second)))

	view := agg.AllTimeframes()
	assert.Equal(t, int64(3), view.Sequence)

	minute := view.Series[interval.Timeframe1m.Name]
	require.Len(t, minute, 2)
	assert.Equal(t, 100.00, minute[0].Open)
	assert.Equal(t, 101.00, minute[0].Close)
	assert.InDelta(t, 3, minute[0].Volume, 1e-9)
	assert.True(t, minute[0].Closed)
	assert.Equal(t, 99.00, minute[1].Close)

	fiveSec := view.Series[interval.Timeframe5s.Name]
	require.NotEmpty(t, fiveSec)
	// 14:30:00 through 14:31:00 inclusive.
	assert.Len(t, fiveSec, 13)
}

func TestAggregator_SeedMarksHistoryClosed(t *testing.T) {
	agg := fiveSecondAggregator()
	base := time.Date(2026, 3, 2, 14, 29, 0, 0, time.UTC)

	seed := []marketdatav1.Bar{
		{Start: base, Open: 99, High: 100, Low: 98, Close: 99.5, Volume: 10},
		{Start: base.Add(5 * time.Second), Open: 99.5, High: 101, Low: 99, Close: 100, Volume: 8},
	}
	require.NoError(t, agg.Seed(interval.Timeframe5s.Name, seed))

	out, err := agg.LatestBars(interval.Timeframe5s.Name, 0)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, out[0].Closed)
	assert.False(t, out[1].Closed)

	// A live trade in the last seeded bucket keeps updating it.
	agg.Apply(trade(1, 102.00, 1, base.Add(7*time.Second)))
	out, err = agg.LatestBars(interval.Timeframe5s.Name, 1)
	require.NoError(t, err)
	assert.Equal(t, 102.00, out[0].High)
	assert.InDelta(t, 9, out[0].Volume, 1e-9)
}

func TestAggregator_SeedFillsHistoricalGaps(t *testing.T) {
	agg := fiveSecondAggregator()
	base := time.Date(2026, 3, 2, 14, 29, 0, 0, time.UTC)

	// Three buckets missing between the two rows, as after a session break.
	seed := []marketdatav1.Bar{
		{Start: base, Open: 99, High: 100, Low: 98, Close: 99.5, Volume: 10},
		{Start: base.Add(20 * time.Second), Open: 100, High: 101, Low: 99, Close: 100, Volume: 8},
	}
	require.NoError(t, agg.Seed(interval.Timeframe5s.Name, seed))

	out, err := agg.LatestBars(interval.Timeframe5s.Name, 0)
	require.NoError(t, err)
	require.Len(t, out, 5)

	for i, bar := range out[1:4] {
		assert.Equal(t, base.Add(time.Duration(i+1)*5*time.Second), bar.Start)
		assert.Equal(t, 99.5, bar.Open)
		assert.Equal(t, 99.5, bar.Close)
		assert.Zero(t, bar.Volume)
		assert.True(t, bar.Closed)
	}
	assert.False(t, out[4].Closed)
}

func TestAggregator_UnknownTimeframe(t *testing.T) {
	agg := fiveSecondAggregator()
	_, err := agg.LatestBars("42m", 1)
	assert.Error(t, err)
	assert.Error(t, agg.Seed("42m", nil))
}

func TestAggregator_ResetClearsSeries(t *testing.T) {
	agg := fiveSecondAggregator()
	base := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)

	agg.Apply(trade(1, 100.00, 1, base))
	agg.Reset()

	out, err := agg.LatestBars(interval.Timeframe5s.Name, 0)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSeries_RingBufferEvicts(t *testing.T) {
	series := NewSeries(interval.Timeframe5s, 3)
	base := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		series.Push(marketdatav1.Bar{Start: base.Add(time.Duration(i*5) * time.Second)})
	}

	assert.Equal(t, 3, series.Len())
	out := series.Latest(0)
	require.Len(t, out, 3)
	assert.Equal(t, base.Add(10*time.Second), out[0].Start)
	assert.Equal(t, base.Add(20*time.Second), out[2].Start)
}
