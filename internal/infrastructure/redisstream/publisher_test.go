package redisstream

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	v9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	marketdatav1 "github.com/TexasCoding/projectx-go/internal/domain/marketdata/v1"
)

type fakeRedis struct {
	added       []*v9.XAddArgs
	err         error
	pingErr     error
	reconnects  int
	reconnectOK bool
}

func (f *fakeRedis) Connect(ctx context.Context) error    { return nil }
func (f *fakeRedis) Disconnect(ctx context.Context) error { return nil }
func (f *fakeRedis) Ping(ctx context.Context) error       { return f.pingErr }

func (f *fakeRedis) Reconnect(ctx context.Context) bool {
	f.reconnects++
	if f.reconnectOK {
		// Connection restored: subsequent commands succeed.
		f.err = nil
		f.pingErr = nil
	}
	return f.reconnectOK
}

func (f *fakeRedis) XAdd(ctx context.Context, args *v9.XAddArgs) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.added = append(f.added, args)
	return "1-1", nil
}

func TestPublisher_PublishBarClosed(t *testing.T) {
	fake := &fakeRedis{}
	publisher := NewPublisher(fake, 0)

	bar := marketdatav1.Bar{
		Start:      time.Date(2025, 6, 20, 13, 30, 0, 0, time.UTC),
		Open:       5000.25,
		High:       5001.50,
		Low:        4999.75,
		Close:      5001.00,
		Volume:     42,
		TradeCount: 17,
		Closed:     true,
	}

	err := publisher.PublishBarClosed(context.Background(), "CON.F.US.MNQ.U25", "1m", bar)
	require.NoError(t, err)

	require.Len(t, fake.added, 1)
	args := fake.added[0]
	assert.Equal(t, BarStream, args.Stream)
	assert.Equal(t, int64(100_000), args.MaxLen)
	assert.True(t, args.Approx)
	assert.Equal(t, "CON.F.US.MNQ.U25", args.Values.(map[string]any)["instrument"])
	assert.Equal(t, "1m", args.Values.(map[string]any)["timeframe"])

	var payload barPayload
	require.NoError(t, json.Unmarshal(args.Values.(map[string]any)["bar"].([]byte), &payload))
	assert.Equal(t, 5000.25, payload.Open)
	assert.Equal(t, 5001.00, payload.Close)
	assert.Equal(t, float64(42), payload.Volume)
	assert.Equal(t, int64(17), payload.TradeCount)
	assert.Equal(t, "2025-06-20T13:30:00Z", payload.Start)
}

func TestPublisher_PublishNotification(t *testing.T) {
	fake := &fakeRedis{}
	publisher := NewPublisher(fake, 500)

	err := publisher.PublishNotification(context.Background(), "CON.F.US.MNQ.U25", marketdatav1.NotifyFeedGapDetected, "sequence skipped ahead")
	require.NoError(t, err)

	require.Len(t, fake.added, 1)
	args := fake.added[0]
	assert.Equal(t, NotificationStream, args.Stream)
	assert.Equal(t, int64(500), args.MaxLen)

	values := args.Values.(map[string]any)
	assert.Equal(t, "CON.F.US.MNQ.U25", values["instrument"])
	assert.Equal(t, string(marketdatav1.NotifyFeedGapDetected), values["notification"])
	assert.Equal(t, "sequence skipped ahead", values["detail"])
	assert.NotEmpty(t, values["at"])
}

func TestPublisher_XAddErrorPropagates(t *testing.T) {
	// Connection is healthy, so the rejected command is not retried.
	fake := &fakeRedis{err: assert.AnError}
	publisher := NewPublisher(fake, 0)

	err := publisher.PublishNotification(context.Background(), "CON.F.US.MNQ.U25", marketdatav1.NotifyResyncOccurred, "")
	assert.Error(t, err)
	assert.Zero(t, fake.reconnects)
}

func TestPublisher_RetriesThroughReconnect(t *testing.T) {
	fake := &fakeRedis{err: assert.AnError, pingErr: assert.AnError, reconnectOK: true}
	publisher := NewPublisher(fake, 0)

	err := publisher.PublishNotification(context.Background(), "CON.F.US.MNQ.U25", marketdatav1.NotifyResyncOccurred, "")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.reconnects)
	require.Len(t, fake.added, 1)
	assert.Equal(t, NotificationStream, fake.added[0].Stream)
}

func TestPublisher_ReconnectFailureSurfacesError(t *testing.T) {
	fake := &fakeRedis{err: assert.AnError, pingErr: assert.AnError}
	publisher := NewPublisher(fake, 0)

	err := publisher.PublishNotification(context.Background(), "CON.F.US.MNQ.U25", marketdatav1.NotifyResyncOccurred, "")
	assert.Error(t, err)
	assert.Equal(t, 1, fake.reconnects)
	assert.Empty(t, fake.added)
}
