package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	marketdatav1 "github.com/TexasCoding/projectx-go/internal/domain/marketdata/v1"
	orderbookv1 "github.com/TexasCoding/projectx-go/internal/domain/orderbook/v1"
)

func bookWithVolumes(bidVol, askVol float64) *orderbookv1.Snapshot {
	return &orderbookv1.Snapshot{
		Bids: []orderbookv1.PriceLevel{{Price: 5000.00, Volume: bidVol}},
		Asks: []orderbookv1.PriceLevel{{Price: 5000.25, Volume: askVol}},
	}
}

func flowTrades(buyVol, sellVol float64, at time.Time) []marketdatav1.TradeRecord {
	return []marketdatav1.TradeRecord{
		{Volume: buyVol, Aggressor: marketdatav1.AggressorBuy, Timestamp: at},
		{Volume: sellVol, Aggressor: marketdatav1.AggressorSell, Timestamp: at},
	}
}

func TestMarketImbalance(t *testing.T) {
	now := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	recent := now.Add(-time.Minute)
	cfg := DefaultImbalanceConfig()

	tests := []struct {
		name          string
		snap          *orderbookv1.Snapshot
		trades        []marketdatav1.TradeRecord
		wantDirection ImbalanceDirection
		wantStrength  ImbalanceStrength
	}{
		{
			name:          "book and flow both strongly bid",
			snap:          bookWithVolumes(300, 100),
			trades:        flowTrades(80, 20, recent),
			wantDirection: ImbalanceBullish,
			wantStrength:  ImbalanceStrong,
		},
		{
			name:          "agreement below strong threshold",
			snap:          bookWithVolumes(150, 100),
			trades:        flowTrades(30, 20, recent),
			wantDirection: ImbalanceBullish,
			wantStrength:  ImbalanceModerate,
		},
		{
			name:          "book and flow disagree",
			snap:          bookWithVolumes(300, 100),
			trades:        flowTrades(20, 80, recent),
			wantDirection: ImbalanceBullish,
			wantStrength:  ImbalanceWeak,
		},
		{
			name:          "balanced book and flow",
			snap:          bookWithVolumes(100, 100),
			trades:        flowTrades(50, 50, recent),
			wantDirection: ImbalanceNeutral,
			wantStrength:  ImbalanceWeak,
		},
		{
			name:          "ask-heavy book with no flow",
			snap:          bookWithVolumes(100, 400),
			wantDirection: ImbalanceBearish,
			wantStrength:  ImbalanceWeak,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := MarketImbalance(tt.snap, tt.trades, now, cfg)
			assert.Equal(t, tt.wantDirection, analysis.Direction)
			assert.Equal(t, tt.wantStrength, analysis.Strength)
		})
	}
}

func TestMarketImbalance_TopLevelsOnly(t *testing.T) {
	now := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	cfg := DefaultImbalanceConfig()
	cfg.TopLevels = 2

	snap := &orderbookv1.Snapshot{
		Bids: []orderbookv1.PriceLevel{
			{Price: 5000.00, Volume: 50},
			{Price: 4999.75, Volume: 50},
			// Deep size that must not count.
			{Price: 4999.50, Volume: 10000},
		},
		Asks: []orderbookv1.PriceLevel{
			{Price: 5000.25, Volume: 100},
			{Price: 5000.50, Volume: 100},
		},
	}

	analysis := MarketImbalance(snap, nil, now, cfg)
	assert.InDelta(t, 0.5, analysis.BookRatio, 1e-9)
	assert.Equal(t, ImbalanceBearish, analysis.Direction)
}
