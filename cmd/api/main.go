package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/medspa-demo-receptionist/cmd/mainconfig"
	"github.com/wolfman30/medspa-demo-receptionist/internal/api/router"
	"github.com/wolfman30/medspa-demo-receptionist/internal/app/bootstrap"
	appconfig "github.com/wolfman30/medspa-demo-receptionist/internal/config"
	httpmiddleware "github.com/wolfman30/medspa-demo-receptionist/internal/http/middleware"
	"github.com/wolfman30/medspa-demo-receptionist/internal/observability/metrics"
	"github.com/wolfman30/medspa-demo-receptionist/internal/webchat"
	"github.com/wolfman30/medspa-demo-receptionist/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting medspa demo receptionist API",
		"env", cfg.Env,
		"port", cfg.Port,
		"clinic", cfg.ClinicName,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	fmt.Println("Server exited gracefully")
}

func run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	metricsHandler, demoMetrics := setupMetrics()

	llmClient, closeLLM, err := bootstrap.BuildLLMClient(ctx, cfg, func(ctx context.Context) (aws.Config, error) {
		return mainconfig.LoadAWSConfig(ctx, cfg)
	}, logger)
	if err != nil {
		return err
	}
	defer closeLLM()
	assistantSvc := bootstrap.BuildAssistant(cfg, llmClient, demoMetrics, logger)

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	dispatcher := bootstrap.BuildAnalytics(cfg, redisClient, demoMetrics, logger)
	analyticsCtx, stopAnalytics := context.WithCancel(context.Background())
	analyticsDone := make(chan struct{})
	go func() {
		dispatcher.Run(analyticsCtx)
		close(analyticsDone)
	}()

	store := bootstrap.BuildSessionStore(cfg, dispatcher, demoMetrics, logger)
	go store.RunJanitor(ctx, time.Minute)

	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.RunCleanup(ctx, 5*time.Minute, 10*time.Minute)

	demoHandler := webchat.NewHandler(store, assistantSvc, bootstrap.BuildSlotProvider(cfg), cfg.ClinicName, logger)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: router.New(&router.Config{
			Logger:             logger,
			Metrics:            demoMetrics,
			MetricsHandler:     metricsHandler,
			DemoHandler:        demoHandler,
			RateLimiter:        limiter,
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		stopAnalytics()
		<-analyticsDone
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	stopAnalytics()
	<-analyticsDone
	logger.Info("server stopped", "analytics_dropped", dispatcher.Dropped())
	return nil
}

// setupMetrics builds a private registry with runtime and demo collectors.
func setupMetrics() (http.Handler, *metrics.DemoMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewDemoMetrics(reg)
}
