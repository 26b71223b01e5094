package orderbook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	marketdatav1 "github.com/TexasCoding/projectx-go/internal/domain/marketdata/v1"
	orderbookv1 "github.com/TexasCoding/projectx-go/internal/domain/orderbook/v1"
)

func depth(seq int64, kind marketdatav1.EventKind, side marketdatav1.Side, price, volume float64) marketdatav1.MarketEvent {
	return marketdatav1.MarketEvent{
		Kind:       kind,
		Instrument: "CON.F.US.MNQ.U25",
		Price:      price,
		Volume:     volume,
		Side:       side,
		Sequence:   seq,
		Timestamp:  time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC),
	}
}

func TestBook_ReplaceNotAccumulate(t *testing.T) {
	book := NewBook("CON.F.US.MNQ.U25")

	require.NoError(t, book.Apply(depth(1, marketdatav1.KindDepthAdd, marketdatav1.SideBid, 5000.00, 100)))
	require.NoError(t, book.Apply(depth(2, marketdatav1.KindDepthUpdate, marketdatav1.SideBid, 5000.00, 40)))

	snap := book.Snapshot(0)
	require.Len(t, snap.Bids, 1)
	// Depth feeds carry absolute sizes: 40 replaces 100, it does not add.
	assert.InDelta(t, 40, snap.Bids[0].Volume, 1e-9)
	assert.Equal(t, int64(2), snap.Bids[0].UpdateCount)
}

func TestBook_RejectsOutOfSequence(t *testing.T) {
	book := NewBook("CON.F.US.MNQ.U25")

	require.NoError(t, book.Apply(depth(5, marketdatav1.KindDepthAdd, marketdatav1.SideBid, 5000.00, 100)))

	err := book.Apply(depth(5, marketdatav1.KindDepthUpdate, marketdatav1.SideBid, 5000.00, 1))
	require.ErrorIs(t, err, orderbookv1.ErrOutOfSequence)
	err = book.Apply(depth(3, marketdatav1.KindDepthUpdate, marketdatav1.SideBid, 5000.00, 1))
	require.ErrorIs(t, err, orderbookv1.ErrOutOfSequence)

	// The rejected events must not have mutated anything.
	snap := book.Snapshot(0)
	assert.InDelta(t, 100, snap.Bids[0].Volume, 1e-9)
	assert.Equal(t, int64(5), book.LastSequence())
}

func TestBook_DeleteAbsentLevelIsNoOp(t *testing.T) {
	book := NewBook("CON.F.US.MNQ.U25")

	require.NoError(t, book.Apply(depth(1, marketdatav1.KindDepthAdd, marketdatav1.SideAsk, 5000.25, 50)))
	require.NoError(t, book.Apply(depth(2, marketdatav1.KindDepthDelete, marketdatav1.SideAsk, 5001.00, 0)))

	snap := book.Snapshot(0)
	assert.Len(t, snap.Asks, 1)
	assert.Equal(t, int64(2), book.LastSequence())
}

func TestBook_DeleteRemovesLevel(t *testing.T) {
	book := NewBook("CON.F.US.MNQ.U25")

	require.NoError(t, book.Apply(depth(1, marketdatav1.KindDepthAdd, marketdatav1.SideAsk, 5000.25, 50)))
	require.NoError(t, book.Apply(depth(2, marketdatav1.KindDepthDelete, marketdatav1.SideAsk, 5000.25, 0)))

	snap := book.Snapshot(0)
	assert.Empty(t, snap.Asks)
}

func TestBook_BestBidAskAndMid(t *testing.T) {
	book := NewBook("CON.F.US.MNQ.U25")

	require.NoError(t, book.Apply(depth(1, marketdatav1.KindDepthAdd, marketdatav1.SideBid, 5000.00, 100)))
	require.NoError(t, book.Apply(depth(2, marketdatav1.KindDepthAdd, marketdatav1.SideBid, 4999.75, 50)))
	require.NoError(t, book.Apply(depth(3, marketdatav1.KindDepthAdd, marketdatav1.SideAsk, 5000.50, 70)))

	best, err := book.BestBidAsk()
	require.NoError(t, err)
	assert.Equal(t, 5000.00, best.Bid)
	assert.Equal(t, 5000.50, best.Ask)
	assert.InDelta(t, 0.50, best.Spread, 1e-9)

	snap := book.Snapshot(0)
	assert.InDelta(t, 5000.25, snap.Mid, 1e-9)
	assert.False(t, snap.Crossed)
}

func TestBook_EmptySideHasNoQuote(t *testing.T) {
	book := NewBook("CON.F.US.MNQ.U25")
	_, err := book.BestBidAsk()
	assert.ErrorIs(t, err, orderbookv1.ErrNoQuote)
}

func TestBook_CrossedBookFlagged(t *testing.T) {
	book := NewBook("CON.F.US.MNQ.U25")

	require.NoError(t, book.Apply(depth(1, marketdatav1.KindDepthAdd, marketdatav1.SideBid, 5001.00, 10)))
	require.NoError(t, book.Apply(depth(2, marketdatav1.KindDepthAdd, marketdatav1.SideAsk, 5000.50, 10)))

	// Out-of-order delivery inside a burst: accepted, flagged, not dropped.
	snap := book.Snapshot(0)
	assert.True(t, snap.Crossed)
	require.Len(t, snap.Bids, 1)
	require.Len(t, snap.Asks, 1)
}

func TestBook_ResetClearsAndMarksResyncing(t *testing.T) {
	book := NewBook("CON.F.US.MNQ.U25")

	require.NoError(t, book.Apply(depth(1, marketdatav1.KindDepthAdd, marketdatav1.SideBid, 5000.00, 100)))
	require.NoError(t, book.Apply(depth(2, marketdatav1.KindDepthReset, "", 0, 0)))

	snap := book.Snapshot(0)
	assert.Empty(t, snap.Bids)
	assert.Empty(t, snap.Asks)
	assert.True(t, snap.Resyncing)

	// First levels of the fresh snapshot clear the flag.
	require.NoError(t, book.Apply(depth(3, marketdatav1.KindDepthAdd, marketdatav1.SideBid, 5000.00, 25)))
	assert.False(t, book.Snapshot(0).Resyncing)
}

func TestBook_SnapshotDepthTruncation(t *testing.T) {
	book := NewBook("CON.F.US.MNQ.U25")

	seq := int64(1)
	for i := 0; i < 5; i++ {
		require.NoError(t, book.Apply(depth(seq, marketdatav1.KindDepthAdd, marketdatav1.SideBid, 5000.00-float64(i)*0.25, 10)))
		seq++
	}

	snap := book.Snapshot(2)
	require.Len(t, snap.Bids, 2)
	// Sorted best-first.
	assert.Equal(t, 5000.00, snap.Bids[0].Price)
	assert.Equal(t, 4999.75, snap.Bids[1].Price)
	// Aggregates still cover the whole book.
	assert.InDelta(t, 50, snap.TotalBidVolume, 1e-9)
}

func TestBook_SnapshotImmutableUnderWrites(t *testing.T) {
	book := NewBook("CON.F.US.MNQ.U25")

	require.NoError(t, book.Apply(depth(1, marketdatav1.KindDepthAdd, marketdatav1.SideBid, 5000.00, 100)))
	before := book.Snapshot(0)

	require.NoError(t, book.Apply(depth(2, marketdatav1.KindDepthUpdate, marketdatav1.SideBid, 5000.00, 7)))

	// The previously returned snapshot still shows the old volume.
	assert.InDelta(t, 100, before.Bids[0].Volume, 1e-9)
	assert.InDelta(t, 7, book.Snapshot(0).Bids[0].Volume, 1e-9)
}

func TestBook_DepthWithinRange(t *testing.T) {
	book := NewBook("CON.F.US.MNQ.U25")

	require.NoError(t, book.Apply(depth(1, marketdatav1.KindDepthAdd, marketdatav1.SideBid, 5000.00, 100)))
	require.NoError(t, book.Apply(depth(2, marketdatav1.KindDepthAdd, marketdatav1.SideBid, 4995.00, 900)))
	require.NoError(t, book.Apply(depth(3, marketdatav1.KindDepthAdd, marketdatav1.SideAsk, 5000.50, 60)))

	stats := book.DepthWithinRange(1.0)
	assert.InDelta(t, 100, stats.BidVolume, 1e-9)
	assert.Equal(t, 1, stats.BidLevels)
	assert.InDelta(t, 60, stats.AskVolume, 1e-9)
	assert.Equal(t, 1, stats.AskLevels)
}
