package kafka

import (
	"context"
	"sync"

	"github.com/segmentio/kafka-go"

	marketdatav1 "github.com/TexasCoding/projectx-go/internal/domain/marketdata/v1"
	"github.com/TexasCoding/projectx-go/pkg/logger"
)

// Config describes the recorded-feed topic to replay from.
type Config struct {
	Brokers     []string
	Topic       string
	Partition   int
	StartOffset int64
}

// ReplayTransport feeds the engine from a Kafka topic holding recorded
// gateway payloads, one raw message per record. It satisfies the same
// transport contract as the live websocket, which lets a recorded session
// drive the full pipeline for backtesting and replay debugging.
//
// Subscribe and RequestDepthSnapshot are acknowledgement-only: the recorded
// stream already contains the subscription's messages and depth snapshots in
// their original order.
type ReplayTransport struct {
	cfg Config
	log logger.Interface

	mu       sync.Mutex
	reader   *kafka.Reader
	messages chan []byte
	errs     chan error
	done     chan struct{}
}

var _ marketdatav1.Transport = (*ReplayTransport)(nil)

func NewReplayTransport(cfg Config, log logger.Interface) *ReplayTransport {
	return &ReplayTransport{
		cfg:      cfg,
		log:      log,
		messages: make(chan []byte, 256),
		errs:     make(chan error, 16),
	}
}

func (t *ReplayTransport) Connect(ctx context.Context) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     t.cfg.Brokers,
		Topic:       t.cfg.Topic,
		Partition:   t.cfg.Partition,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
	if t.cfg.StartOffset > 0 {
		if err := reader.SetOffset(t.cfg.StartOffset); err != nil {
			_ = reader.Close()
			return err
		}
	}

	messages := make(chan []byte, 256)
	done := make(chan struct{})

	t.mu.Lock()
	t.reader = reader
	t.messages = messages
	t.errs = make(chan error, 16)
	t.done = done
	t.mu.Unlock()

	go t.readLoop(reader, messages, done)
	return nil
}

func (t *ReplayTransport) Subscribe(ctx context.Context, contractIDs []string) error {
	t.log.Info("Replay subscribe acknowledged", logger.Field{
		Key:   "contracts",
		Value: contractIDs,
	}, logger.Field{
		Key:   "topic",
		Value: t.cfg.Topic,
	})
	return nil
}

func (t *ReplayTransport) Unsubscribe(ctx context.Context, contractIDs []string) error {
	return nil
}

func (t *ReplayTransport) RequestDepthSnapshot(ctx context.Context, contractID string) error {
	// The recording carries its own reset/add sequences.
	return nil
}

func (t *ReplayTransport) Messages() <-chan []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.messages
}

func (t *ReplayTransport) Errors() <-chan error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.errs
}

func (t *ReplayTransport) Close() error {
	t.mu.Lock()
	reader := t.reader
	done := t.done
	t.reader = nil
	t.done = nil
	t.mu.Unlock()

	if done != nil {
		close(done)
	}
	if reader == nil {
		return nil
	}
	return reader.Close()
}

func (t *ReplayTransport) readLoop(reader *kafka.Reader, messages chan []byte, done <-chan struct{}) {
	defer close(messages)

	for {
		msg, err := reader.ReadMessage(context.Background())
		if err != nil {
			select {
			case <-done:
			default:
				t.pushErr(err)
			}
			return
		}

		select {
		case messages <- msg.Value:
		case <-done:
			return
		}
	}
}

func (t *ReplayTransport) pushErr(err error) {
	t.mu.Lock()
	errs := t.errs
	t.mu.Unlock()

	select {
	case errs <- err:
	default:
	}
}
