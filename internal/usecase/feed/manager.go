package feed

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	marketdatav1 "github.com/TexasCoding/projectx-go/internal/domain/marketdata/v1"
	"github.com/TexasCoding/projectx-go/internal/instrumentation"
	"github.com/TexasCoding/projectx-go/internal/usecase/normalizer"
	"github.com/TexasCoding/projectx-go/pkg/errors"
	"github.com/TexasCoding/projectx-go/pkg/logger"
	"github.com/TexasCoding/projectx-go/pkg/util"
)

// Sink consumes normalized events in sequence order and owns the
// per-instrument working state that a resync discards.
type Sink interface {
	ApplyEvent(event marketdatav1.MarketEvent)

	// SeedHistory re-seeds the instrument's timeframe series from the
	// historical source.
	SeedHistory(ctx context.Context, instrument string, lookback int) error

	// DiscardWorkingState drops the instrument's book, series and trade
	// window ahead of a fresh snapshot.
	DiscardWorkingState(instrument string)
}

// StateChangedFunc observes connection state transitions.
type StateChangedFunc func(state marketdatav1.ConnectionState, sessionID string)

// Stats is a point-in-time copy of the manager's counters.
type Stats struct {
	State             marketdatav1.ConnectionState
	SessionID         string
	EventsApplied     int64
	MalformedMessages int64
	MessagesDropped   int64
	SequenceGaps      int64
	Resyncs           int64
	Reconnects        int64
	LastEventAt       time.Time
}

// Manager owns the transport connection for a set of instruments: it pumps
// raw messages through the normalizer into the sink, detects sequence gaps,
// and drives reconnect and resynchronization. One Manager per connection;
// Run is the only goroutine that touches the sink.
type Manager struct {
	cfg       Config
	transport marketdatav1.Transport
	norm      *normalizer.Normalizer
	sink      Sink
	publisher marketdatav1.NotificationPublisher
	log       logger.Interface
	metrics   *instrumentation.Metrics
	onState   StateChangedFunc

	queue      chan []byte
	gapPending atomic.Bool

	mu        sync.Mutex
	state     marketdatav1.ConnectionState
	sessionID string
	lastSeq   map[string]int64

	eventsApplied     atomic.Int64
	malformedMessages atomic.Int64
	messagesDropped   atomic.Int64
	sequenceGaps      atomic.Int64
	resyncs           atomic.Int64
	reconnects        atomic.Int64
	lastEventNanos    atomic.Int64
}

// Option configures optional manager collaborators.
type Option func(*Manager)

// WithPublisher fans lifecycle notifications out to an external publisher.
func WithPublisher(publisher marketdatav1.NotificationPublisher) Option {
	return func(m *Manager) { m.publisher = publisher }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(metrics *instrumentation.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithStateChangedFunc registers a state transition observer. The callback
// runs on the manager goroutine and must not block.
func WithStateChangedFunc(fn StateChangedFunc) Option {
	return func(m *Manager) { m.onState = fn }
}

// NewManager wires a feed lifecycle manager.
func NewManager(cfg Config, transport marketdatav1.Transport, sink Sink, log logger.Interface, opts ...Option) *Manager {
	m := &Manager{
		cfg:       cfg,
		transport: transport,
		norm:      normalizer.New(),
		sink:      sink,
		log:       log,
		state:     marketdatav1.StateConnecting,
		lastSeq:   make(map[string]int64),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run drives the connection until the context is cancelled or the reconnect
// budget is exhausted. It blocks; start it on its own goroutine.
func (m *Manager) Run(ctx context.Context) error {
	defer m.setState(ctx, marketdatav1.StateStopped)

	for {
		m.setState(ctx, marketdatav1.StateConnecting)
		if err := m.connect(ctx); err != nil {
			return err
		}

		m.startSession()
		sessionCtx := util.WithSessionID(ctx, m.SessionID())
		if err := m.seedAll(sessionCtx); err != nil {
			m.log.ErrorContext(sessionCtx, errors.TracerFromError(err), logger.Field{Key: "phase", Value: "seed"})
			_ = m.transport.Close()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		m.setState(sessionCtx, marketdatav1.StateLive)
		m.pump(sessionCtx)

		_ = m.transport.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.setState(ctx, marketdatav1.StateDisconnected)
	}
}

// connect dials with exponential backoff plus jitter, capped at MaxBackoff.
func (m *Manager) connect(ctx context.Context) error {
	baseDelay := m.cfg.MinBackoff
	maxDelay := m.cfg.MaxBackoff

	for attempt := 0; ; attempt++ {
		connectCtx := ctx
		var cancel context.CancelFunc
		if m.cfg.ConnectTimeout > 0 {
			connectCtx, cancel = context.WithTimeout(ctx, m.cfg.ConnectTimeout)
		}
		err := m.transport.Connect(connectCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			if attempt > 0 {
				m.reconnects.Add(1)
				if m.metrics != nil {
					m.metrics.Reconnects.Inc()
				}
			}
			return nil
		}

		m.log.Error(errors.TracerFromError(err), logger.Field{
			Key:   "attempt",
			Value: attempt + 1,
		})

		if m.cfg.MaxReconnectAttempts > 0 && attempt+1 >= m.cfg.MaxReconnectAttempts {
			return errors.NewErrorDetails("Reconnect attempts exhausted", string(errors.FeedDisconnectedError), "connect")
		}

		backoff := min(baseDelay*time.Duration(math.Pow(2, float64(attempt))), maxDelay)
		totalDelay := backoff
		if baseDelay > 0 {
			totalDelay += time.Duration(rand.Int63n(int64(baseDelay)))
		}

		m.log.Info("Reconnecting feed", logger.Field{
			Key:   "attempt",
			Value: attempt + 1,
		}, logger.Field{
			Key:   "delay",
			Value: totalDelay,
		})

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(totalDelay):
		}
	}
}

func (m *Manager) startSession() {
	m.mu.Lock()
	m.sessionID = ulid.Make().String()
	m.lastSeq = make(map[string]int64)
	m.mu.Unlock()

	m.queue = make(chan []byte, m.cfg.QueueSize)
	m.gapPending.Store(false)
}

// seedAll subscribes and seeds every instrument before live events flow.
func (m *Manager) seedAll(ctx context.Context) error {
	if err := m.transport.Subscribe(ctx, m.cfg.Instruments); err != nil {
		return err
	}
	for _, instrument := range m.cfg.Instruments {
		if err := m.sink.SeedHistory(ctx, instrument, m.cfg.SeedLookback); err != nil {
			return err
		}
		if err := m.transport.RequestDepthSnapshot(ctx, instrument); err != nil {
			return err
		}
	}
	return nil
}

// pump moves messages from the transport into the bounded queue and applies
// them. It returns when the transport closes its channel or ctx is done.
func (m *Manager) pump(ctx context.Context) {
	readerDone := make(chan struct{})
	go m.readTransport(ctx, readerDone)

	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-m.transport.Errors():
			if ok && err != nil {
				m.log.ErrorContext(ctx, errors.TracerFromError(err), logger.Field{Key: "phase", Value: "transport"})
			}
		case payload, ok := <-m.queue:
			if !ok {
				return
			}
			if m.metrics != nil {
				m.metrics.QueueDepth.Set(float64(len(m.queue)))
			}
			if m.gapPending.Swap(false) {
				m.resyncAll(ctx)
			}
			m.applyPayload(ctx, payload)
		case <-readerDone:
			// Drain whatever the reader enqueued before the close.
			for payload := range m.queue {
				m.applyPayload(ctx, payload)
			}
			return
		}
	}
}

// readTransport feeds the bounded queue, dropping the oldest unapplied
// message on overflow rather than buffering without bound.
func (m *Manager) readTransport(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	defer close(m.queue)

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-m.transport.Messages():
			if !ok {
				return
			}
			select {
			case m.queue <- payload:
			default:
				select {
				case <-m.queue:
					m.messagesDropped.Add(1)
				default:
				}
				m.queue <- payload
				m.raiseGap(ctx, "", "ingest queue overflow, oldest message dropped")
			}
		}
	}
}

func (m *Manager) applyPayload(ctx context.Context, payload []byte) {
	events, err := m.norm.Normalize(payload)
	if err != nil {
		m.malformedMessages.Add(1)
		if m.metrics != nil {
			m.metrics.MalformedMessages.WithLabelValues("").Inc()
		}
		m.log.WarnContext(ctx, "Dropping malformed message", logger.Field{
			Key:   "error",
			Value: err.Error(),
		})
		return
	}

	for _, event := range events {
		m.applyEvent(ctx, event)
	}
}

// applyEvent enforces non-decreasing sequence order per instrument. A skip
// ahead means missed updates: the event is not applied and a full resync is
// triggered instead of guessing at the missing deltas.
func (m *Manager) applyEvent(ctx context.Context, event marketdatav1.MarketEvent) {
	m.mu.Lock()
	last := m.lastSeq[event.Instrument]
	m.mu.Unlock()

	if last != 0 {
		if event.Sequence < last {
			// Duplicate or stale replay.
			return
		}
		if event.Sequence > last+1 {
			m.sequenceGaps.Add(1)
			if m.metrics != nil {
				m.metrics.SequenceGaps.WithLabelValues(event.Instrument).Inc()
			}
			m.raiseGap(ctx, event.Instrument, "sequence skipped ahead")
			m.resync(ctx, event.Instrument)
			return
		}
	}

	m.sink.ApplyEvent(event)

	m.mu.Lock()
	m.lastSeq[event.Instrument] = event.Sequence
	m.mu.Unlock()

	m.eventsApplied.Add(1)
	m.lastEventNanos.Store(event.Timestamp.UnixNano())
	if m.metrics != nil {
		m.metrics.EventsApplied.WithLabelValues(event.Instrument, string(event.Kind)).Inc()
	}
}

// resync discards the instrument's working state and re-seeds it from
// history plus a fresh depth snapshot.
func (m *Manager) resync(ctx context.Context, instrument string) {
	ctx = util.WithInstrument(ctx, instrument)
	m.setState(ctx, marketdatav1.StateResyncing)
	m.resyncs.Add(1)
	if m.metrics != nil {
		m.metrics.Resyncs.WithLabelValues(instrument).Inc()
	}

	m.sink.DiscardWorkingState(instrument)

	m.mu.Lock()
	delete(m.lastSeq, instrument)
	m.mu.Unlock()

	if err := m.sink.SeedHistory(ctx, instrument, m.cfg.SeedLookback); err != nil {
		m.log.ErrorContext(ctx, errors.TracerFromError(err), logger.Field{Key: "phase", Value: "seed"})
	}
	if err := m.transport.RequestDepthSnapshot(ctx, instrument); err != nil {
		m.log.ErrorContext(ctx, errors.TracerFromError(err), logger.Field{Key: "phase", Value: "depth_snapshot"})
	}

	m.notify(ctx, instrument, marketdatav1.NotifyResyncOccurred, "working state discarded and re-seeded")
	m.setState(ctx, marketdatav1.StateLive)
}

func (m *Manager) resyncAll(ctx context.Context) {
	for _, instrument := range m.cfg.Instruments {
		m.resync(ctx, instrument)
	}
}

func (m *Manager) raiseGap(ctx context.Context, instrument, detail string) {
	m.gapPending.Store(true)
	if instrument != "" {
		if m.metrics != nil {
			m.metrics.DroppedMessages.WithLabelValues(instrument).Inc()
		}
		ctx = util.WithInstrument(ctx, instrument)
	}
	m.log.WarnContext(ctx, "Feed gap detected", logger.Field{
		Key:   "detail",
		Value: detail,
	})
	m.notify(ctx, instrument, marketdatav1.NotifyFeedGapDetected, detail)
}

func (m *Manager) notify(ctx context.Context, instrument string, notification marketdatav1.Notification, detail string) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.PublishNotification(ctx, instrument, notification, detail); err != nil {
		m.log.Warn("Notification publish failed", logger.Field{
			Key:   "notification",
			Value: string(notification),
		}, logger.Field{
			Key:   "error",
			Value: err.Error(),
		})
	}
}

func (m *Manager) setState(ctx context.Context, state marketdatav1.ConnectionState) {
	m.mu.Lock()
	if m.state == state {
		m.mu.Unlock()
		return
	}
	m.state = state
	sessionID := m.sessionID
	m.mu.Unlock()

	m.log.Info("Connection state changed", logger.Field{
		Key:   "state",
		Value: string(state),
	}, logger.Field{
		Key:   "session_id",
		Value: sessionID,
	})
	if m.onState != nil {
		m.onState(state, sessionID)
	}
	m.notify(ctx, "", marketdatav1.NotifyConnectionStateChanged, string(state))
}

// State returns the current connection state.
func (m *Manager) State() marketdatav1.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SessionID returns the ULID of the current connection session.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Stats copies the manager's counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	state := m.state
	sessionID := m.sessionID
	m.mu.Unlock()

	var lastEvent time.Time
	if nanos := m.lastEventNanos.Load(); nanos > 0 {
		lastEvent = time.Unix(0, nanos).UTC()
	}

	return Stats{
		State:             state,
		SessionID:         sessionID,
		EventsApplied:     m.eventsApplied.Load(),
		MalformedMessages: m.malformedMessages.Load(),
		MessagesDropped:   m.messagesDropped.Load(),
		SequenceGaps:      m.sequenceGaps.Load(),
		Resyncs:           m.resyncs.Load(),
		Reconnects:        m.reconnects.Load(),
		LastEventAt:       lastEvent,
	}
}
