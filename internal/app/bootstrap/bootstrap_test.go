package bootstrap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/medspa-demo-receptionist/internal/analytics"
	"github.com/wolfman30/medspa-demo-receptionist/internal/assistant"
	"github.com/wolfman30/medspa-demo-receptionist/internal/chat"
	appconfig "github.com/wolfman30/medspa-demo-receptionist/internal/config"
	"github.com/wolfman30/medspa-demo-receptionist/internal/observability/metrics"
	"github.com/wolfman30/medspa-demo-receptionist/pkg/logging"
)

func TestBuildRedisClientDisabledWithoutAddr(t *testing.T) {
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{}, nil, true))
	assert.Nil(t, BuildRedisClient(context.Background(), nil, nil, true))
}

func TestBuildRedisClientVerifies(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{RedisAddr: mr.Addr()}

	client := BuildRedisClient(context.Background(), cfg, logging.New("error"), true)
	require.NotNil(t, client)
	defer client.Close()

	mr.Close()
	assert.Nil(t, BuildRedisClient(context.Background(), cfg, logging.New("error"), true))
}

func TestBuildAnalyticsWritesToRedisStream(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{RedisAddr: mr.Addr(), AnalyticsStream: "test:analytics", AnalyticsBuffer: 8}
	logger := logging.New("error")
	client := BuildRedisClient(context.Background(), cfg, logger, false)
	defer client.Close()

	d := BuildAnalytics(cfg, client, metrics.NewDemoMetrics(prometheus.NewRegistry()), logger)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	d.Record(analytics.NewEvent(analytics.KindDemoReplayed, "sess-1", time.Now()))
	require.Eventually(t, func() bool {
		n, err := client.XLen(context.Background(), "test:analytics").Result()
		return err == nil && n == 1
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	entries, err := client.XRange(context.Background(), "test:analytics", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "sess-1", entries[0].Values["session_id"])
}

func TestBuildSessionStoreSharesClinicAndRecorder(t *testing.T) {
	var events []analytics.Event
	recorder := analytics.RecorderFunc(func(e analytics.Event) { events = append(events, e) })
	cfg := &appconfig.Config{ClinicName: "Radiance Aesthetics", SessionTTL: time.Minute, MaxSessions: 2}

	store := BuildSessionStore(cfg, recorder, nil, logging.New("error"))
	id, machine := store.Create()

	msgs := machine.Messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Radiance Aesthetics")

	machine.Reset()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, analytics.KindDemoReplayed, last.Kind)
	assert.Equal(t, id, last.SessionID)
	assert.Equal(t, chat.StateGreeting, machine.State())
}

func TestBuildLLMClientDisabled(t *testing.T) {
	_, _, err := BuildLLMClient(context.Background(), nil, nil, nil)
	assert.Error(t, err)

	for _, cfg := range []*appconfig.Config{
		{LLMProvider: "none", GeminiAPIKey: "key"},
		{LLMProvider: "auto"},
		{LLMProvider: "bedrock"},
	} {
		client, closeFn, err := BuildLLMClient(context.Background(), cfg, nil, logging.New("error"))
		require.NoError(t, err)
		assert.Nil(t, client)
		closeFn()
	}
}

func TestBuildLLMClientBedrock(t *testing.T) {
	cfg := &appconfig.Config{LLMProvider: "bedrock", BedrockModelID: "anthropic.claude-3-haiku"}
	loads := 0
	loader := func(context.Context) (aws.Config, error) {
		loads++
		return aws.Config{Region: "us-east-1"}, nil
	}

	client, closeFn, err := BuildLLMClient(context.Background(), cfg, loader, logging.New("error"))
	require.NoError(t, err)
	defer closeFn()

	assert.IsType(t, &assistant.BedrockLLMClient{}, client)
	assert.Equal(t, 1, loads)
}

func TestBuildLLMClientBedrockLoaderErrors(t *testing.T) {
	cfg := &appconfig.Config{LLMProvider: "bedrock", BedrockModelID: "model"}

	_, _, err := BuildLLMClient(context.Background(), cfg, nil, logging.New("error"))
	assert.Error(t, err)

	boom := errors.New("no credentials")
	_, _, err = BuildLLMClient(context.Background(), cfg, func(context.Context) (aws.Config, error) {
		return aws.Config{}, boom
	}, logging.New("error"))
	assert.ErrorIs(t, err, boom)
}

func TestBuildAssistantWithoutClient(t *testing.T) {
	svc := BuildAssistant(&appconfig.Config{ClinicName: "Radiance Aesthetics"}, nil, nil, logging.New("error"))
	require.NotNil(t, svc)
	assert.False(t, svc.Enabled())

	resp, err := svc.Respond(context.Background(), assistant.Request{Message: "What are your hours?"})
	require.NoError(t, err)
	assert.True(t, resp.Fallback)
	assert.Equal(t, assistant.StandardChips, resp.Chips)
}
