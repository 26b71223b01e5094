package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("INSTRUMENTS", "CON.F.US.MNQ.U25")

	cfg := &Config{}
	require.NoError(t, Load(cfg))

	assert.Equal(t, []string{"CON.F.US.MNQ.U25"}, cfg.Instruments)
	assert.Equal(t, "websocket", cfg.Source)
	assert.Equal(t, []string{"5s", "15s", "1m", "5m", "15m", "30m", "1h", "4h"}, cfg.Timeframes)
	assert.Equal(t, 1000, cfg.MaxBars)
	assert.Equal(t, 4096, cfg.FeedConfig.QueueSize)
	assert.Equal(t, 500*time.Millisecond, cfg.FeedConfig.MinBackoff)
	assert.Equal(t, 30*time.Second, cfg.FeedConfig.MaxBackoff)
	assert.Equal(t, 0, cfg.FeedConfig.MaxReconnectAttempts)
	assert.Equal(t, 1000, cfg.FeedConfig.SeedLookback)
	assert.Equal(t, "marketdata.raw", cfg.KafkaConfig.Topic)
	assert.True(t, cfg.RecorderEnabled)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("INSTRUMENTS", "CON.F.US.MNQ.U25,CON.F.US.ES.U25")
	t.Setenv("SOURCE", "kafka")
	t.Setenv("TIMEFRAMES", "1m,5m")
	t.Setenv("FEED_QUEUE_SIZE", "128")
	t.Setenv("FEED_MAX_RECONNECT_ATTEMPTS", "5")
	t.Setenv("KAFKA_TOPIC", "replay.session42")
	t.Setenv("RECORDER_ENABLED", "false")

	cfg := &Config{}
	require.NoError(t, Load(cfg))

	assert.Equal(t, []string{"CON.F.US.MNQ.U25", "CON.F.US.ES.U25"}, cfg.Instruments)
	assert.Equal(t, "kafka", cfg.Source)
	assert.Equal(t, []string{"1m", "5m"}, cfg.Timeframes)
	assert.Equal(t, 128, cfg.FeedConfig.QueueSize)
	assert.Equal(t, 5, cfg.FeedConfig.MaxReconnectAttempts)
	assert.Equal(t, "replay.session42", cfg.KafkaConfig.Topic)
	assert.False(t, cfg.RecorderEnabled)
}

func TestLoad_MissingInstruments(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, Load(cfg))
}
