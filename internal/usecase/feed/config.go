package feed

import "time"

// Config controls the feed lifecycle: queue sizing, reconnect backoff and
// seeding depth.
type Config struct {
	// Instruments are the contract IDs to subscribe on connect.
	Instruments []string

	// QueueSize bounds the ingest queue between the transport reader and the
	// apply loop. On overflow the oldest unapplied message is dropped and a
	// gap is raised.
	QueueSize int

	// MinBackoff and MaxBackoff bound the exponential reconnect delay.
	// A random jitter of up to one second is added on top.
	MinBackoff time.Duration
	MaxBackoff time.Duration

	// MaxReconnectAttempts caps consecutive failed connects before Run gives
	// up. Zero means retry forever.
	MaxReconnectAttempts int

	// ConnectTimeout bounds a single transport dial.
	ConnectTimeout time.Duration

	// SeedLookback is how many historical bars to fetch per timeframe when
	// seeding series at startup and after a resync.
	SeedLookback int
}

// DefaultConfig returns the production defaults.
func DefaultConfig(instruments ...string) Config {
	return Config{
		Instruments:    instruments,
		QueueSize:      4096,
		MinBackoff:     500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		ConnectTimeout: 10 * time.Second,
		SeedLookback:   1000,
	}
}
