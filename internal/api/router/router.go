package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpmiddleware "github.com/wolfman30/medspa-demo-receptionist/internal/http/middleware"
	"github.com/wolfman30/medspa-demo-receptionist/internal/observability/metrics"
	"github.com/wolfman30/medspa-demo-receptionist/internal/webchat"
	"github.com/wolfman30/medspa-demo-receptionist/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Metrics            *metrics.DemoMetrics
	MetricsHandler     http.Handler
	DemoHandler        *webchat.Handler
	RateLimiter        *httpmiddleware.RateLimiter
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger, cfg.Metrics))

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.DemoHandler != nil {
		r.Route("/demo", func(demo chi.Router) {
			if cfg.RateLimiter != nil {
				demo.Use(httpmiddleware.RateLimit(cfg.RateLimiter, cfg.Logger))
			}
			demo.Mount("/", cfg.DemoHandler.Routes())
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
