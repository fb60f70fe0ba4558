package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/medspa-demo-receptionist/internal/analytics"
	"github.com/wolfman30/medspa-demo-receptionist/internal/chat"
	appconfig "github.com/wolfman30/medspa-demo-receptionist/internal/config"
	"github.com/wolfman30/medspa-demo-receptionist/internal/observability/metrics"
	"github.com/wolfman30/medspa-demo-receptionist/internal/safety"
	"github.com/wolfman30/medspa-demo-receptionist/internal/schedule"
	"github.com/wolfman30/medspa-demo-receptionist/internal/webchat"
	"github.com/wolfman30/medspa-demo-receptionist/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	if !verify {
		return client
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis not available; analytics stream disabled", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildAnalytics wires the analytics dispatcher. Events always reach the
// log and metrics sinks; the Redis stream sink is added when redisClient
// is non-nil. The caller runs the dispatcher.
func BuildAnalytics(cfg *appconfig.Config, redisClient *redis.Client, m *metrics.DemoMetrics, logger *logging.Logger) *analytics.Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	buffer := 256
	stream := "demo:analytics"
	if cfg != nil {
		buffer = cfg.AnalyticsBuffer
		if cfg.AnalyticsStream != "" {
			stream = cfg.AnalyticsStream
		}
	}

	sinks := []analytics.Sink{
		analytics.NewLogSink(logger),
		analytics.NewMetricsSink(m),
	}
	if redisClient != nil {
		sinks = append(sinks, analytics.NewRedisStreamSink(redisClient, stream, 0))
		logger.Info("analytics stream enabled", "stream", stream)
	}
	return analytics.NewDispatcher(buffer, logger, sinks...).WithDropObserver(m)
}

// BuildSessionStore wires the in-memory demo session registry. Every
// session shares the screener, slot provider and analytics recorder.
func BuildSessionStore(cfg *appconfig.Config, recorder analytics.Recorder, m *metrics.DemoMetrics, logger *logging.Logger) *webchat.SessionStore {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		cfg = &appconfig.Config{}
	}
	screener := safety.NewScreener(logger)
	provider := BuildSlotProvider(cfg)

	factory := func(id string) *chat.Machine {
		return chat.New(
			chat.WithSessionID(id),
			chat.WithScreener(screener),
			chat.WithProvider(provider),
			chat.WithRecorder(recorder),
			chat.WithLogger(logger.WithSession(id)),
			chat.WithClinicName(cfg.ClinicName),
		)
	}
	return webchat.NewSessionStore(factory, cfg.SessionTTL, cfg.MaxSessions,
		webchat.WithStoreMetrics(m),
		webchat.WithStoreLogger(logger),
	)
}

// BuildSlotProvider returns the mock schedule in the clinic's time zone.
func BuildSlotProvider(cfg *appconfig.Config) *schedule.Provider {
	if cfg == nil || cfg.ClinicTimezone == "" {
		return schedule.NewProvider()
	}
	return schedule.NewProvider(schedule.WithLocation(schedule.ClinicLocation(cfg.ClinicTimezone)))
}
