package redisstream

import (
	"context"
	"encoding/json"
	"time"

	v9 "github.com/redis/go-redis/v9"

	marketdatav1 "github.com/TexasCoding/projectx-go/internal/domain/marketdata/v1"
	"github.com/TexasCoding/projectx-go/pkg/redis"
)

// Streams written by the publisher.
const (
	BarStream          = "marketdata:bars"
	NotificationStream = "marketdata:notifications"
)

// Publisher fans bar closes and lifecycle notifications out on Redis
// streams. Consumers read with XREAD from the last seen ID; stream length is
// capped so an idle consumer cannot grow Redis without bound.
type Publisher struct {
	client redis.Client
	maxLen int64
}

var _ marketdatav1.NotificationPublisher = (*Publisher)(nil)

// NewPublisher creates a stream publisher. maxLen <= 0 keeps the default cap
// of 100k entries per stream.
func NewPublisher(client redis.Client, maxLen int64) *Publisher {
	if maxLen <= 0 {
		maxLen = 100_000
	}
	return &Publisher{
		client: client,
		maxLen: maxLen,
	}
}

type barPayload struct {
	Instrument string  `json:"instrument"`
	Timeframe  string  `json:"timeframe"`
	Start      string  `json:"start"`
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Close      float64 `json:"close"`
	Volume     float64 `json:"volume"`
	TradeCount int64   `json:"tradeCount"`
}

// PublishBarClosed writes a closed bar to the bar stream.
func (p *Publisher) PublishBarClosed(ctx context.Context, instrument string, timeframe string, bar marketdatav1.Bar) error {
	payload, err := json.Marshal(barPayload{
		Instrument: instrument,
		Timeframe:  timeframe,
		Start:      bar.Start.UTC().Format(time.RFC3339Nano),
		Open:       bar.Open,
		High:       bar.High,
		Low:        bar.Low,
		Close:      bar.Close,
		Volume:     bar.Volume,
		TradeCount: bar.TradeCount,
	})
	if err != nil {
		return err
	}

	return p.xadd(ctx, &v9.XAddArgs{
		Stream: BarStream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			"instrument": instrument,
			"timeframe":  timeframe,
			"bar":        payload,
		},
	})
}

// PublishNotification writes a lifecycle notification to the notification
// stream.
func (p *Publisher) PublishNotification(ctx context.Context, instrument string, notification marketdatav1.Notification, detail string) error {
	return p.xadd(ctx, &v9.XAddArgs{
		Stream: NotificationStream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			"instrument":   instrument,
			"notification": string(notification),
			"detail":       detail,
			"at":           time.Now().UTC().Format(time.RFC3339Nano),
		},
	})
}

// xadd retries once through a reconnect when the connection is down, so a
// dropped Redis connection costs latency on one entry rather than the entry.
func (p *Publisher) xadd(ctx context.Context, args *v9.XAddArgs) error {
	_, err := p.client.XAdd(ctx, args)
	if err == nil {
		return nil
	}
	if p.client.Ping(ctx) == nil {
		// Connection is up; the command itself was rejected.
		return err
	}
	if !p.client.Reconnect(ctx) {
		return err
	}
	_, err = p.client.XAdd(ctx, args)
	return err
}
