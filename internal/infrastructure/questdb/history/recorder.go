package history

import (
	"context"
	"sync"
	"time"

	marketdatav1 "github.com/TexasCoding/projectx-go/internal/domain/marketdata/v1"
	"github.com/TexasCoding/projectx-go/pkg/errors"
	"github.com/TexasCoding/projectx-go/pkg/logger"
)

// Recorder buffers closed bars and flushes them to the repository in
// batches. Record is safe to call from the engine's bar-closed callback; the
// flush loop runs on its own goroutine.
type Recorder struct {
	repo     *Repository
	log      logger.Interface
	interval time.Duration
	maxBatch int

	mu      sync.Mutex
	pending []BarRow

	cancel context.CancelFunc
	done   chan struct{}
}

// NewRecorder creates a recorder flushing every interval or when maxBatch
// rows accumulate, whichever comes first.
func NewRecorder(repo *Repository, log logger.Interface, interval time.Duration, maxBatch int) *Recorder {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if maxBatch <= 0 {
		maxBatch = 500
	}
	return &Recorder{
		repo:     repo,
		log:      log,
		interval: interval,
		maxBatch: maxBatch,
	}
}

// Record queues a closed bar for the next flush. Open bars are ignored.
func (r *Recorder) Record(instrument, timeframe string, bar marketdatav1.Bar) {
	if !bar.Closed {
		return
	}

	r.mu.Lock()
	r.pending = append(r.pending, RowFromBar(instrument, timeframe, bar))
	full := len(r.pending) >= r.maxBatch
	r.mu.Unlock()

	if full {
		r.flush(context.Background())
	}
}

// Start launches the flush loop.
func (r *Recorder) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.flush(ctx)
			}
		}
	}()
}

// Stop halts the flush loop and writes whatever is still pending.
func (r *Recorder) Stop(ctx context.Context) {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
	r.flush(ctx)
}

func (r *Recorder) flush(ctx context.Context) {
	r.mu.Lock()
	batch := r.pending
	r.pending = nil
	r.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	if err := r.repo.StoreBatch(ctx, batch); err != nil {
		r.log.Error(errors.TracerFromError(err), logger.Field{
			Key:   "bars",
			Value: len(batch),
		})
		// Requeue so a transient write failure does not lose the batch.
		r.mu.Lock()
		r.pending = append(batch, r.pending...)
		r.mu.Unlock()
	}
}
