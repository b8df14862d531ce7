package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so several servers can coexist in one
// process (tests start many). A nil *Metrics is a valid no-op.
type Metrics struct {
	registry          *prometheus.Registry
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	notifications     *prometheus.CounterVec
	alertTicks        *prometheus.CounterVec
	presence          prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arcsched_http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arcsched_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arcsched_notifications_fired_total",
			Help: "Notifications fired by kind (single, summary, clear).",
		}, []string{"kind"}),
		alertTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arcsched_alert_ticks_total",
			Help: "Notification checks by trigger (auto, forced) and outcome.",
		}, []string{"trigger", "outcome"}),
		presence: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arcsched_presence_peers",
			Help: "Number of live viewers reported by the presence tracker.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpDuration,
		m.notifications,
		m.alertTicks,
		m.presence,
	)
	m.presence.Set(1)
	return m
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler records request count and latency under route.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		if m == nil {
			return
		}
		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) NotificationFired(kind string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind).Inc()
}

// AlertTick counts one notification check. outcome is "fired", "silent" or
// "skipped".
func (m *Metrics) AlertTick(forced bool, outcome string) {
	if m == nil {
		return
	}
	trigger := "auto"
	if forced {
		trigger = "forced"
	}
	m.alertTicks.WithLabelValues(trigger, outcome).Inc()
}

func (m *Metrics) SetPresence(n int) {
	if m == nil {
		return
	}
	m.presence.Set(float64(n))
}
