package marketdatav1

import (
	"context"

	"github.com/TexasCoding/projectx-go/pkg/interval"
)

// Transport is the subscription abstraction over the gateway feed. The feed
// lifecycle manager owns exactly one transport per connection session.
type Transport interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, contractIDs []string) error
	Unsubscribe(ctx context.Context, contractIDs []string) error

	// RequestDepthSnapshot asks the gateway to replay a full-depth snapshot
	// for the contract: a depth-reset followed by depth-add messages.
	RequestDepthSnapshot(ctx context.Context, contractID string) error

	// Messages yields raw wire payloads in arrival order. The channel is
	// closed when the connection drops.
	Messages() <-chan []byte
	Errors() <-chan error
	Close() error
}

// HistoricalSource seeds timeframe series with bars before live events are
// applied. Used only at initialization and resynchronization.
type HistoricalSource interface {
	FetchBars(ctx context.Context, instrument string, tf interval.Timeframe, lookback int) ([]Bar, error)
}

// NotificationPublisher fans lifecycle conditions out to external consumers.
type NotificationPublisher interface {
	PublishBarClosed(ctx context.Context, instrument string, timeframe string, bar Bar) error
	PublishNotification(ctx context.Context, instrument string, notification Notification, detail string) error
}
