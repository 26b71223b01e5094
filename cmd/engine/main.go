package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	app "github.com/TexasCoding/projectx-go/internal/app/engine"
	"github.com/TexasCoding/projectx-go/internal/config"
	marketdatav1 "github.com/TexasCoding/projectx-go/internal/domain/marketdata/v1"
	kafkatransport "github.com/TexasCoding/projectx-go/internal/infrastructure/kafka"
	"github.com/TexasCoding/projectx-go/internal/infrastructure/questdb/history"
	"github.com/TexasCoding/projectx-go/internal/infrastructure/redisstream"
	wstransport "github.com/TexasCoding/projectx-go/internal/infrastructure/websocket"
	"github.com/TexasCoding/projectx-go/internal/instrumentation"
	"github.com/TexasCoding/projectx-go/internal/usecase/feed"
	"github.com/TexasCoding/projectx-go/pkg/httplib/healthcheck"
	"github.com/TexasCoding/projectx-go/pkg/interval"
	"github.com/TexasCoding/projectx-go/pkg/logger"
	"github.com/TexasCoding/projectx-go/pkg/questdb"
	"github.com/TexasCoding/projectx-go/pkg/redis"
	"github.com/TexasCoding/projectx-go/pkg/util"
)

var cfg *config.Config
var log *logger.Logger

func init() {
	cfg = &config.Config{}
	if err := config.Load(cfg); err != nil {
		panic(err)
	}

	l, err := logger.NewLogger()
	if err != nil {
		panic(err)
	}
	log = l
}

func main() {
	// Every context-aware log line in this process carries the same run id.
	ctx, cancel := context.WithCancel(util.WithRequestID(context.Background(), ""))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	timeframes, err := interval.ParseTimeframes(cfg.Timeframes)
	if err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "parse_timeframes",
		})
		return
	}

	registry := prometheus.NewRegistry()
	metrics := instrumentation.New(registry)

	rclient := redis.NewClient(log, &cfg.RedisConfig)
	if err := rclient.Connect(ctx); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "connect_redis",
		})
		return
	}
	publisher := redisstream.NewPublisher(rclient, 0)

	qclient, err := questdb.NewClient(ctx, cfg.QuestDBConfig)
	if err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "connect_questdb",
		})
		return
	}
	defer qclient.Close()

	barRepo := history.NewRepository(qclient)

	var transport marketdatav1.Transport
	switch cfg.Source {
	case "kafka":
		transport = kafkatransport.NewReplayTransport(kafkatransport.Config{
			Brokers:     cfg.KafkaConfig.Brokers,
			Topic:       cfg.KafkaConfig.Topic,
			Partition:   cfg.KafkaConfig.Partition,
			StartOffset: cfg.KafkaConfig.StartOffset,
		}, log)
	default:
		transport = wstransport.NewClient(cfg.FeedConfig.URL)
	}

	feedCfg := feed.Config{
		Instruments:          cfg.Instruments,
		QueueSize:            cfg.FeedConfig.QueueSize,
		MinBackoff:           cfg.FeedConfig.MinBackoff,
		MaxBackoff:           cfg.FeedConfig.MaxBackoff,
		MaxReconnectAttempts: cfg.FeedConfig.MaxReconnectAttempts,
		ConnectTimeout:       cfg.FeedConfig.ConnectTimeout,
		SeedLookback:         cfg.FeedConfig.SeedLookback,
	}

	options := app.DefaultEngineOptions()
	options.Timeframes = timeframes
	options.MaxBars = cfg.MaxBars

	engine := app.NewEngineWithOptions(
		feedCfg,
		transport,
		log,
		options,
		app.WithPublisher(publisher),
		app.WithMetrics(metrics),
		app.WithHistoricalSource(barRepo),
	)

	go serveMetrics(registry, engine.Healthy)

	var recorder *history.Recorder
	if cfg.RecorderEnabled {
		recorder = history.NewRecorder(barRepo, log, cfg.RecorderInterval, cfg.RecorderBatch)
		recorder.Start(ctx)
		engine.OnBarClosed(func(instrument, timeframe string, bar marketdatav1.Bar) {
			recorder.Record(instrument, timeframe, bar)
		})
	}

	if err := engine.Start(ctx); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "start_engine",
		})
		return
	}

	log.Info("Market data engine started", logger.Field{
		Key:   "instruments",
		Value: cfg.Instruments,
	}, logger.Field{
		Key:   "source",
		Value: cfg.Source,
	})

	sig := <-sigChan
	log.Info("Received shutdown signal", logger.Field{
		Key:   "signal",
		Value: sig.String(),
	})

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := engine.Stop(shutdownCtx); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "stop_engine",
		})
	}

	if recorder != nil {
		recorder.Stop(shutdownCtx)
	}

	if err := rclient.Disconnect(shutdownCtx); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "disconnect_redis",
		})
	}

	log.Info("Market data engine stopped")
}

func serveMetrics(registry *prometheus.Registry, healthy healthcheck.HealthFunc) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	if err := http.ListenAndServe(cfg.MetricsAddr, healthcheck.New(healthy).Handler(mux)); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "serve_metrics",
		})
	}
}
