package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// DemoMetrics exposes counters and histograms for demo sessions.
type DemoMetrics struct {
	eventsTotal      *prometheus.CounterVec
	intentsTotal     *prometheus.CounterVec
	safetyFlagsTotal *prometheus.CounterVec
	droppedTotal     prometheus.Counter
	assistantTotal   *prometheus.CounterVec
	assistantLatency *prometheus.HistogramVec
	httpTotal        *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
	activeSessions   prometheus.Gauge
}

func NewDemoMetrics(reg prometheus.Registerer) *DemoMetrics {
	m := &DemoMetrics{
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medspa",
			Subsystem: "demo",
			Name:      "events_total",
			Help:      "Analytics events by kind",
		}, []string{"kind"}),
		intentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medspa",
			Subsystem: "demo",
			Name:      "intents_total",
			Help:      "Classified intents",
		}, []string{"intent"}),
		safetyFlagsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medspa",
			Subsystem: "demo",
			Name:      "safety_flags_total",
			Help:      "Safety flags raised by flag id",
		}, []string{"flag"}),
		droppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medspa",
			Subsystem: "demo",
			Name:      "analytics_dropped_total",
			Help:      "Analytics events dropped because the buffer was full",
		}),
		assistantTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medspa",
			Subsystem: "assistant",
			Name:      "requests_total",
			Help:      "AI fallback requests by outcome",
		}, []string{"outcome"}),
		assistantLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medspa",
			Subsystem: "assistant",
			Name:      "latency_seconds",
			Help:      "Latency of AI fallback requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		httpTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medspa",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method and status",
		}, []string{"method", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medspa",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "medspa",
			Subsystem: "demo",
			Name:      "active_sessions",
			Help:      "Live demo sessions held in memory",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.eventsTotal, m.intentsTotal, m.safetyFlagsTotal, m.droppedTotal,
		m.assistantTotal, m.assistantLatency,
		m.httpTotal, m.httpLatency, m.activeSessions,
	)
	return m
}

func (m *DemoMetrics) ObserveEvent(kind string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(kind).Inc()
}

func (m *DemoMetrics) ObserveIntent(intent string) {
	if m == nil {
		return
	}
	m.intentsTotal.WithLabelValues(intent).Inc()
}

func (m *DemoMetrics) ObserveSafetyFlag(flagID string) {
	if m == nil {
		return
	}
	m.safetyFlagsTotal.WithLabelValues(flagID).Inc()
}

func (m *DemoMetrics) ObserveDropped() {
	if m == nil {
		return
	}
	m.droppedTotal.Inc()
}

// ObserveAssistant records one AI request. outcome is ok, fallback,
// blocked or safety.
func (m *DemoMetrics) ObserveAssistant(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.assistantTotal.WithLabelValues(outcome).Inc()
	m.assistantLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *DemoMetrics) ObserveHTTP(method string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.httpTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method).Observe(seconds)
}

func (m *DemoMetrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
