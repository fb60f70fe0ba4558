package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/medspa-demo-receptionist/internal/observability/metrics"
	"github.com/wolfman30/medspa-demo-receptionist/pkg/logging"
)

var tracer = otel.Tracer("medspa/analytics")

// LogSink writes each event as a structured log line.
type LogSink struct {
	logger *logging.Logger
}

func NewLogSink(logger *logging.Logger) *LogSink {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Write(_ context.Context, e Event) error {
	s.logger.Info("analytics event",
		"event_id", e.ID,
		"kind", e.Kind,
		"session_id", e.SessionID,
		"intent", e.Intent,
		"confidence", e.Confidence,
		"flag_ids", e.FlagIDs,
		"flow", e.Flow,
	)
	return nil
}

// MetricsSink counts events in prometheus.
type MetricsSink struct {
	metrics *metrics.DemoMetrics
}

func NewMetricsSink(m *metrics.DemoMetrics) *MetricsSink {
	return &MetricsSink{metrics: m}
}

func (s *MetricsSink) Name() string { return "metrics" }

func (s *MetricsSink) Write(_ context.Context, e Event) error {
	s.metrics.ObserveEvent(string(e.Kind))
	switch e.Kind {
	case KindIntentClassified:
		s.metrics.ObserveIntent(e.Intent)
	case KindSafetyFlagRaised:
		for _, id := range e.FlagIDs {
			s.metrics.ObserveSafetyFlag(id)
		}
	}
	return nil
}

// RedisStreamSink appends events to a capped Redis stream.
type RedisStreamSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

const defaultStreamMaxLen = 10000

// NewRedisStreamSink creates a sink on stream. maxLen <= 0 uses a default
// cap; trimming is approximate.
func NewRedisStreamSink(client *redis.Client, stream string, maxLen int64) *RedisStreamSink {
	if maxLen <= 0 {
		maxLen = defaultStreamMaxLen
	}
	return &RedisStreamSink{client: client, stream: stream, maxLen: maxLen}
}

func (s *RedisStreamSink) Name() string { return "redis" }

func (s *RedisStreamSink) Write(ctx context.Context, e Event) error {
	ctx, span := tracer.Start(ctx, "analytics.redis.xadd")
	defer span.End()
	span.SetAttributes(attribute.String("analytics.kind", string(e.Kind)))

	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("analytics: marshal event: %w", err)
	}
	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"id":         e.ID,
			"kind":       string(e.Kind),
			"session_id": e.SessionID,
			"intent":     e.Intent,
			"flags":      strings.Join(e.FlagIDs, ","),
			"payload":    string(payload),
		},
	}).Err()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("analytics: xadd %s: %w", s.stream, err)
	}
	return nil
}
