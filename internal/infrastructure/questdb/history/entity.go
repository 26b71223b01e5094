package history

import (
	"time"

	marketdatav1 "github.com/TexasCoding/projectx-go/internal/domain/marketdata/v1"
)

// BarRow is a single persisted bar. Timeframe is the canonical label from
// pkg/interval ("5s", "1m", ...); the table is partitioned by timestamp.
type BarRow struct {
	Timestamp  time.Time
	Instrument string
	Timeframe  string
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
	TradeCount int64
}

// ToBar converts the row to a domain bar. Persisted bars are always closed.
func (r *BarRow) ToBar() marketdatav1.Bar {
	return marketdatav1.Bar{
		Start:      r.Timestamp,
		Open:       r.Open,
		High:       r.High,
		Low:        r.Low,
		Close:      r.Close,
		Volume:     r.Volume,
		TradeCount: r.TradeCount,
		Closed:     true,
	}
}

// RowFromBar builds a persistable row from a closed bar.
func RowFromBar(instrument, timeframe string, bar marketdatav1.Bar) BarRow {
	return BarRow{
		Timestamp:  bar.Start,
		Instrument: instrument,
		Timeframe:  timeframe,
		Open:       bar.Open,
		High:       bar.High,
		Low:        bar.Low,
		Close:      bar.Close,
		Volume:     bar.Volume,
		TradeCount: bar.TradeCount,
	}
}
