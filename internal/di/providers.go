package di

import (
	"context"
	"fmt"
	"time"

	"TickBrain/internal/domain/repository"
	"TickBrain/internal/engine"
	"TickBrain/internal/handler/api"
	mid "TickBrain/internal/middleware"
	internalrepo "TickBrain/internal/repository"
	"TickBrain/internal/service/ratelimit"
	"TickBrain/internal/service/venue"
	"TickBrain/internal/services/sink"
	"TickBrain/internal/usecase"
	"TickBrain/pkg/cache"
	pkgch "TickBrain/pkg/clickhouse"
	"TickBrain/pkg/config"
	pkgkafka "TickBrain/pkg/kafka"
	applogger "TickBrain/pkg/logger"
	"TickBrain/pkg/metrics"
	"TickBrain/pkg/server"
)

// ProvideLogger creates the application logger from environment.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	level := "info"
	if cfg.Environment == "development" {
		format = "console"
		level = "debug"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideEngineOptions maps configuration durations to engine thresholds.
func ProvideEngineOptions(cfg *config.Config) engine.Options {
	e := cfg.Engine
	return engine.Options{
		MaxDriftPct:       e.MaxDriftPct,
		MaxDriftPctTrend:  e.MaxDriftPctTrend,
		MaxDriftPctRange:  e.MaxDriftPctRange,
		AutoExpireEnabled: e.AutoExpireEnabled,
		AutoExpirePct:     e.AutoExpirePct,
		ActivationTTLMs:   e.ActivationTTL.Milliseconds(),
		ExitCooldownMs:    e.ExitCooldown.Milliseconds(),

		RequireFreshHeartbeat: e.RequireFreshHeartbeat,
		HeartbeatMaxAgeMs:     e.HeartbeatMaxAge.Milliseconds(),

		RegimeEnabled:    e.RegimeEnabled,
		SlopeWindowMs:    e.SlopeWindow.Milliseconds(),
		VolWindowMs:      e.VolWindow.Milliseconds(),
		TickRetentionMs:  e.TickRetention.Milliseconds(),
		RegimeMinTicks:   e.RegimeMinTicks,
		TrendSlopeOnPct:  e.TrendSlopeOnPct,
		TrendSlopeOffPct: e.TrendSlopeOffPct,
		RangeSlopeOnPct:  e.RangeSlopeOnPct,
		RangeSlopeOffPct: e.RangeSlopeOffPct,
		VolFloorPct:      e.VolFloorPct,

		CrashEnabled:    e.CrashEnabled,
		CrashDrop1mPct:  e.CrashDrop1m,
		CrashDrop5mPct:  e.CrashDrop5m,
		CrashCooldownMs: e.CrashCooldown.Milliseconds(),

		ExitEnabled:      e.ExitEnabled,
		AdaptiveExit:     e.AdaptiveExit,
		ArmPct:           e.ArmPct,
		GivebackPct:      e.GivebackPct,
		ArmVolMultTrend:  e.ArmVolMultTrend,
		GiveVolMultTrend: e.GiveVolMultTrend,
		ArmVolMultRange:  e.ArmVolMultRange,
		GiveVolMultRange: e.GiveVolMultRange,
		MinArmPct:        e.MinArmPct,
		MinGivebackPct:   e.MinGivebackPct,
		MaxArmPct:        e.MaxArmPct,
		MaxGivebackPct:   e.MaxGivebackPct,
		MinExitProfitPct: e.MinExitProfitPct,
		ShortSide:        e.ShortSide,

		StabilizerEnabled:     e.StabilizerEnabled,
		LossStreak2CooldownMs: e.LossStreak2Cooldown.Milliseconds(),
		LossStreak3CooldownMs: e.LossStreak3Cooldown.Milliseconds(),
		ConservativeMs:        e.ConservativeDuration.Milliseconds(),

		ReentryEnabled:      e.ReentryEnabled,
		ReentryWindowMs:     e.ReentryWindow.Milliseconds(),
		ReentryMaxTries:     e.ReentryMaxTries,
		ReentryMaxFallPct:   e.ReentryMaxFallPct,
		ReentryMaxRisePct:   e.ReentryMaxRisePct,
		ReentrySkipPnLPct:   e.ReentrySkipPnLPct,
		ReentryRequireTrend: e.ReentryRequireTrend,

		PendingTTLMs:        e.PendingTTL.Milliseconds(),
		PendingTolerancePct: e.PendingTolerancePct,
	}
}

// ProvideEngine creates the signal gate engine.
func ProvideEngine(opts engine.Options, log *applogger.Logger, m repository.Metrics) *engine.Engine {
	return engine.New(opts, engine.SystemClock(), log, m)
}

// ProvideClickHouseClient creates a ClickHouse client, nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideJournal creates the decision journal, nil when ClickHouse is off.
func ProvideJournal(chClient *pkgch.Client) (repository.Journal, error) {
	if chClient == nil {
		return nil, nil
	}
	j := internalrepo.NewClickHouseJournal(chClient)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := j.Init(ctx); err != nil {
		return nil, fmt.Errorf("journal schema: %w", err)
	}
	return j, nil
}

// ProvideKafkaProducer creates a Kafka producer, nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideTransitionPublisher creates the broker fan-out for transitions.
func ProvideTransitionPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.TransitionPublisher {
	if producer == nil || cfg.Kafka.TransitionsTopic == "" {
		return nil
	}
	return internalrepo.NewKafkaTransitionPublisher(producer, cfg.Kafka.TransitionsTopic)
}

// ProvideKafkaConsumer creates a Kafka consumer, nil when no ticks topic.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.TicksTopic == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaTicksHandler registers the gate as the ticks topic consumer.
func ProvideKafkaTicksHandler(gate *usecase.Gatekeeper, m repository.Metrics, cfg *config.Config) *usecase.KafkaTicksHandler {
	return usecase.NewKafkaTicksHandler(cfg.Kafka.TicksTopic, gate, m)
}

// ProvideDedupCache selects the dedup backend: Redis when configured,
// in-process memory otherwise.
func ProvideDedupCache(cfg *config.Config) (cache.Service, error) {
	r := cfg.Dedup.Redis
	if r.Enabled {
		c, err := cache.NewRedisCache(
			cache.WithRedisHost(r.Host),
			cache.WithRedisPort(r.Port),
			cache.WithRedisPassword(r.Password),
			cache.WithRedisDB(r.DB),
			cache.WithRedisPrefix("tickbrain"),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return cache.NewLayeredCache(c), nil
	}
	return cache.NewMemoryCache(), nil
}

// ProvideDeduper creates the event ID deduper.
func ProvideDeduper(c cache.Service, cfg *config.Config, log *applogger.Logger) repository.Deduper {
	return internalrepo.NewCacheDeduper(c, cfg.Dedup.TTL, log)
}

// ProvideSink creates the execution sink adapter.
func ProvideSink(cfg *config.Config, log *applogger.Logger) repository.Sink {
	return sink.New(cfg, log)
}

// ProvideGatekeeper wires the ingress orchestrator.
func ProvideGatekeeper(
	eng *engine.Engine,
	snk repository.Sink,
	pub repository.TransitionPublisher,
	journal repository.Journal,
	dedup repository.Deduper,
	m repository.Metrics,
	log *applogger.Logger,
	cfg *config.Config,
) *usecase.Gatekeeper {
	return usecase.NewGatekeeper(eng, snk, pub, journal, dedup, m, log,
		cfg.Webhook.SharedSecret, cfg.Sink.Timeout)
}

// ProvideVenueStream creates the venue WebSocket stream, nil when disabled.
func ProvideVenueStream(cfg *config.Config, log *applogger.Logger) repository.MarketStream {
	if !cfg.Venue.Enabled {
		return nil
	}
	return venue.New(
		cfg.Venue.APIKey,
		cfg.Venue.WebSocketURL,
		cfg.Venue.Symbols,
		cfg.Venue.ReconnectDelay,
		cfg.Venue.PingInterval,
		log,
	)
}

// ProvideTickCollector creates the stream collector, nil without a stream.
func ProvideTickCollector(
	stream repository.MarketStream,
	gate *usecase.Gatekeeper,
	m repository.Metrics,
) *usecase.TickCollector {
	if stream == nil {
		return nil
	}
	pipe := mid.NewRealtimePipeline(gate, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewTickCollector(stream, gate, m, pipe)
}

// ProvideRateLimiter creates the webhook token bucket limiter.
func ProvideRateLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideWebhookHandler creates the HTTP handler.
func ProvideWebhookHandler(
	log *applogger.Logger,
	gate *usecase.Gatekeeper,
	limiter *ratelimit.Limiter,
	cfg *config.Config,
) *api.WebhookHandler {
	return api.NewWebhookHandler(log, gate, limiter, cfg)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	handler *api.WebhookHandler,
	collector *usecase.TickCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaTicksHandler,
	chClient *pkgch.Client,
	pub repository.TransitionPublisher,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	return server.New(cfg, log, handler, collector, consumer, kh, chClient, pub)
}
