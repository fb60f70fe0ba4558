package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/medspa-demo-receptionist/internal/config"
	"github.com/wolfman30/medspa-demo-receptionist/pkg/logging"
)

func TestSetupMetricsExposesMetrics(t *testing.T) {
	handler, demoMetrics := setupMetrics()
	require.NotNil(t, handler)
	require.NotNil(t, demoMetrics)

	demoMetrics.ObserveEvent("booking_completed")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "medspa_demo_events_total")
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := &appconfig.Config{Port: "0", LLMProvider: "none", AnalyticsBuffer: 4}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, logging.New("error")) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestRunReportsListenError(t *testing.T) {
	cfg := &appconfig.Config{Port: "not-a-port", LLMProvider: "none"}

	err := run(context.Background(), cfg, logging.New("error"))
	assert.Error(t, err)
}
