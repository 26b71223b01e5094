package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	marketdatav1 "github.com/TexasCoding/projectx-go/internal/domain/marketdata/v1"
	"github.com/TexasCoding/projectx-go/pkg/logger"
)

type fakeTransport struct {
	mu               sync.Mutex
	connectErrs      []error
	connectCalls     int
	subscribed       [][]string
	snapshotRequests []string
	messages         chan []byte
	errs             chan error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		messages: make(chan []byte, 64),
		errs:     make(chan error, 1),
	}
}

func (t *fakeTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connectCalls++
	if len(t.connectErrs) > 0 {
		err := t.connectErrs[0]
		t.connectErrs = t.connectErrs[1:]
		return err
	}
	return nil
}

func (t *fakeTransport) Subscribe(ctx context.Context, contractIDs []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subscribed = append(t.subscribed, contractIDs)
	return nil
}

func (t *fakeTransport) Unsubscribe(ctx context.Context, contractIDs []string) error {
	return nil
}

func (t *fakeTransport) RequestDepthSnapshot(ctx context.Context, contractID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snapshotRequests = append(t.snapshotRequests, contractID)
	return nil
}

func (t *fakeTransport) Messages() <-chan []byte { return t.messages }
func (t *fakeTransport) Errors() <-chan error    { return t.errs }
func (t *fakeTransport) Close() error            { return nil }

func (t *fakeTransport) snapshotCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.snapshotRequests)
}

type fakeSink struct {
	mu        sync.Mutex
	applied   []marketdatav1.MarketEvent
	seeded    []string
	discarded []string
}

func (s *fakeSink) ApplyEvent(event marketdatav1.MarketEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied = append(s.applied, event)
}

func (s *fakeSink) SeedHistory(ctx context.Context, instrument string, lookback int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeded = append(s.seeded, instrument)
	return nil
}

func (s *fakeSink) DiscardWorkingState(instrument string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discarded = append(s.discarded, instrument)
}

func (s *fakeSink) appliedSequences() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	seqs := make([]int64, 0, len(s.applied))
	for _, event := range s.applied {
		seqs = append(seqs, event.Sequence)
	}
	return seqs
}

func testManager(t *testing.T, transport *fakeTransport, sink *fakeSink) *Manager {
	t.Helper()
	log, err := logger.NewLogger()
	require.NoError(t, err)

	cfg := DefaultConfig("CON.F.US.MNQ.U25")
	cfg.MinBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	return NewManager(cfg, transport, sink, log)
}

func depthEvent(seq int64, price float64) marketdatav1.MarketEvent {
	return marketdatav1.MarketEvent{
		Kind:       marketdatav1.KindDepthUpdate,
		Instrument: "CON.F.US.MNQ.U25",
		Price:      price,
		Volume:     10,
		Side:       marketdatav1.SideBid,
		Sequence:   seq,
		Timestamp:  time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC),
	}
}

func TestManager_AppliesInSequenceOrder(t *testing.T) {
	transport := newFakeTransport()
	sink := &fakeSink{}
	m := testManager(t, transport, sink)
	m.startSession()

	ctx := context.Background()
	for _, seq := range []int64{1, 2, 3} {
		m.applyEvent(ctx, depthEvent(seq, 5000.00))
	}

	assert.Equal(t, []int64{1, 2, 3}, sink.appliedSequences())
	assert.Equal(t, int64(3), m.Stats().EventsApplied)
	assert.Zero(t, m.Stats().SequenceGaps)
}

func TestManager_SequenceGapTriggersResync(t *testing.T) {
	transport := newFakeTransport()
	sink := &fakeSink{}
	m := testManager(t, transport, sink)
	m.startSession()

	ctx := context.Background()
	for _, seq := range []int64{1, 2, 3, 7} {
		m.applyEvent(ctx, depthEvent(seq, 5000.00))
	}

	// Sequence 7 skipped ahead: not applied, state discarded and re-seeded.
	assert.Equal(t, []int64{1, 2, 3}, sink.appliedSequences())
	assert.Equal(t, []string{"CON.F.US.MNQ.U25"}, sink.discarded)
	assert.Equal(t, []string{"CON.F.US.MNQ.U25"}, sink.seeded)
	assert.Equal(t, 1, transport.snapshotCount())
	assert.Equal(t, int64(1), m.Stats().SequenceGaps)
	assert.Equal(t, int64(1), m.Stats().Resyncs)
}

func TestManager_DuplicateSequenceDropped(t *testing.T) {
	transport := newFakeTransport()
	sink := &fakeSink{}
	m := testManager(t, transport, sink)
	m.startSession()

	ctx := context.Background()
	m.applyEvent(ctx, depthEvent(5, 5000.00))
	m.applyEvent(ctx, depthEvent(4, 5000.00))

	assert.Equal(t, []int64{5}, sink.appliedSequences())
	assert.Empty(t, sink.discarded)
}

func TestManager_SharedSequenceApplied(t *testing.T) {
	// Quote frames fan out into a bid and an ask event carrying the same
	// sequence number; both must apply.
	transport := newFakeTransport()
	sink := &fakeSink{}
	m := testManager(t, transport, sink)
	m.startSession()

	ctx := context.Background()
	m.applyEvent(ctx, depthEvent(1, 5000.00))

	bid := depthEvent(2, 5000.00)
	bid.Kind = marketdatav1.KindQuoteBid
	ask := depthEvent(2, 5000.25)
	ask.Kind = marketdatav1.KindQuoteAsk
	ask.Side = marketdatav1.SideAsk
	m.applyEvent(ctx, bid)
	m.applyEvent(ctx, ask)

	assert.Equal(t, []int64{1, 2, 2}, sink.appliedSequences())
	assert.Zero(t, m.Stats().SequenceGaps)
}

func TestManager_SeedsAfterFirstEventRegardlessOfSequence(t *testing.T) {
	// The first event of a session defines the baseline; a large starting
	// sequence is not a gap.
	transport := newFakeTransport()
	sink := &fakeSink{}
	m := testManager(t, transport, sink)
	m.startSession()

	m.applyEvent(context.Background(), depthEvent(900001, 5000.00))

	assert.Equal(t, []int64{900001}, sink.appliedSequences())
	assert.Zero(t, m.Stats().SequenceGaps)
}

func TestManager_MalformedPayloadCounted(t *testing.T) {
	transport := newFakeTransport()
	sink := &fakeSink{}
	m := testManager(t, transport, sink)
	m.startSession()

	m.applyPayload(context.Background(), []byte("{not json"))

	assert.Empty(t, sink.applied)
	assert.Equal(t, int64(1), m.Stats().MalformedMessages)
}

func TestManager_ConnectBackoffGivesUp(t *testing.T) {
	transport := newFakeTransport()
	transport.connectErrs = []error{
		assert.AnError, assert.AnError, assert.AnError,
	}
	sink := &fakeSink{}
	m := testManager(t, transport, sink)
	m.cfg.MaxReconnectAttempts = 3

	err := m.connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, 3, transport.connectCalls)
}

func TestManager_ConnectRetriesUntilSuccess(t *testing.T) {
	transport := newFakeTransport()
	transport.connectErrs = []error{assert.AnError, assert.AnError}
	sink := &fakeSink{}
	m := testManager(t, transport, sink)

	err := m.connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, transport.connectCalls)
	assert.Equal(t, int64(1), m.Stats().Reconnects)
}

func TestManager_RunStopsOnCancel(t *testing.T) {
	transport := newFakeTransport()
	sink := &fakeSink{}
	m := testManager(t, transport, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	// Give the session time to come up, then cancel.
	require.Eventually(t, func() bool {
		return m.State() == marketdatav1.StateLive
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
	assert.Equal(t, marketdatav1.StateStopped, m.State())
}
