package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/medspa-demo-receptionist/internal/observability/metrics"
	"github.com/wolfman30/medspa-demo-receptionist/pkg/logging"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (c *captureSink) Name() string { return "capture" }

func (c *captureSink) Write(_ context.Context, e Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return c.err
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

type dropCounter struct{ n int }

func (d *dropCounter) ObserveDropped() { d.n++ }

func testEvent(kind Kind) Event {
	return NewEvent(kind, "sess-1", time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC))
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	drops := &dropCounter{}
	d := NewDispatcher(1, logging.New("error")).WithDropObserver(drops)

	d.Record(testEvent(KindIntentClassified))
	d.Record(testEvent(KindBookingCompleted))
	d.Record(testEvent(KindDemoReplayed))

	assert.Equal(t, int64(2), d.Dropped())
	assert.Equal(t, 2, drops.n)
}

func TestDispatcher_FansOutAndSurvivesSinkErrors(t *testing.T) {
	failing := &captureSink{err: errors.New("sink down")}
	healthy := &captureSink{}
	d := NewDispatcher(16, logging.New("error"), failing, healthy)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	for i := 0; i < 5; i++ {
		d.Record(testEvent(KindIntentClassified))
	}
	require.Eventually(t, func() bool { return healthy.count() == 5 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 5, failing.count())

	cancel()
	<-done
	d.Record(testEvent(KindDemoReplayed))
	assert.Equal(t, int64(1), d.Dropped())
}

func TestDispatcher_DrainsOnShutdown(t *testing.T) {
	sink := &captureSink{}
	d := NewDispatcher(8, logging.New("error"), sink)
	for i := 0; i < 3; i++ {
		d.Record(testEvent(KindBookingCompleted))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Run(ctx)
	assert.Equal(t, 3, sink.count())
}

func TestRedisStreamSink(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sink := NewRedisStreamSink(client, "demo:analytics", 0)

	e := testEvent(KindSafetyFlagRaised)
	e.FlagIDs = []string{"pregnancy", "anticoagulants"}
	require.NoError(t, sink.Write(context.Background(), e))

	entries, err := client.XRange(context.Background(), "demo:analytics", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	values := entries[0].Values
	assert.Equal(t, "safety_flag_raised", values["kind"])
	assert.Equal(t, "pregnancy,anticoagulants", values["flags"])
	assert.Equal(t, "sess-1", values["session_id"])

	var decoded Event
	require.NoError(t, json.Unmarshal([]byte(values["payload"].(string)), &decoded))
	assert.Equal(t, e.ID, decoded.ID)

	mr.Close()
	assert.Error(t, sink.Write(context.Background(), e))
}

func TestMetricsSink(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewDemoMetrics(reg)
	sink := NewMetricsSink(m)

	e := testEvent(KindSafetyFlagRaised)
	e.FlagIDs = []string{"pregnancy"}
	require.NoError(t, sink.Write(context.Background(), e))

	e = testEvent(KindIntentClassified)
	e.Intent = "pricing"
	require.NoError(t, sink.Write(context.Background(), e))

	count, err := testutil.GatherAndCount(reg, "medspa_demo_events_total", "medspa_demo_intents_total", "medspa_demo_safety_flags_total")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestLogSinkAndRecorders(t *testing.T) {
	require.NoError(t, NewLogSink(logging.New("error")).Write(context.Background(), testEvent(KindDemoReplayed)))

	var got []Kind
	var r Recorder = RecorderFunc(func(e Event) { got = append(got, e.Kind) })
	r.Record(testEvent(KindBookingCompleted))
	NopRecorder{}.Record(testEvent(KindBookingCompleted))
	assert.Equal(t, []Kind{KindBookingCompleted}, got)

	e := testEvent(KindIntentClassified)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, time.UTC, e.At.Location())
}
