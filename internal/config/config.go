package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/TexasCoding/projectx-go/pkg/questdb"
	"github.com/TexasCoding/projectx-go/pkg/redis"
)

// MustLoad loads the configuration from environment variables and .env file.
func MustLoad[T any](cfg T) {
	_ = godotenv.Load()

	env.Must(cfg, env.Parse(cfg))
}

// Load loads the configuration from environment variables and .env file.
func Load[T any](cfg T) error {
	_ = godotenv.Load()

	return env.Parse(cfg)
}

// Config holds the engine configuration.
type Config struct {
	Instruments []string `env:"INSTRUMENTS,required"` // Comma-separated contract IDs, e.g. CON.F.US.MNQ.U25

	FeedConfig    `envPrefix:"FEED_"`
	KafkaConfig   `envPrefix:"KAFKA_"`
	QuestDBConfig questdb.Config `envPrefix:"QUESTDB_"`
	RedisConfig   redis.Config   `envPrefix:"REDIS_"`

	// Source selects the transport: "websocket" for the live gateway feed,
	// "kafka" for recorded replay.
	Source string `env:"SOURCE" envDefault:"websocket"`

	Timeframes []string `env:"TIMEFRAMES" envDefault:"5s,15s,1m,5m,15m,30m,1h,4h"`
	MaxBars    int      `env:"MAX_BARS" envDefault:"1000"`

	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9183"`

	RecorderEnabled  bool          `env:"RECORDER_ENABLED" envDefault:"true"`
	RecorderInterval time.Duration `env:"RECORDER_INTERVAL" envDefault:"5s"`
	RecorderBatch    int           `env:"RECORDER_BATCH" envDefault:"500"`
}

// FeedConfig holds the websocket gateway settings and lifecycle tunables.
type FeedConfig struct {
	URL                  string        `env:"URL" envDefault:"wss://gateway.topstepx.com/hubs/market"`
	QueueSize            int           `env:"QUEUE_SIZE" envDefault:"4096"`
	MinBackoff           time.Duration `env:"MIN_BACKOFF" envDefault:"500ms"`
	MaxBackoff           time.Duration `env:"MAX_BACKOFF" envDefault:"30s"`
	MaxReconnectAttempts int           `env:"MAX_RECONNECT_ATTEMPTS" envDefault:"0"`
	ConnectTimeout       time.Duration `env:"CONNECT_TIMEOUT" envDefault:"10s"`
	SeedLookback         int           `env:"SEED_LOOKBACK" envDefault:"1000"`
}

// KafkaConfig holds the recorded-feed replay settings.
type KafkaConfig struct {
	Brokers     []string `env:"BROKER" envDefault:"localhost:9092"`
	Topic       string   `env:"TOPIC" envDefault:"marketdata.raw"`
	Partition   int      `env:"PARTITION" envDefault:"0"`
	StartOffset int64    `env:"START_OFFSET" envDefault:"0"`
}
