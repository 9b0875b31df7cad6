package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/platinummonkey/gatekeeper/pkg/httputil"
)

const namespace = "gatekeeper"

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authentication metrics
	TokenVerificationsTotal *prometheus.CounterVec
	AgentAuthTotal          *prometheus.CounterVec

	// Registration code metrics
	RegistrationCodeOperationsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics. A nil registry
// gets a fresh one.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		TokenVerificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_verifications_total",
				Help:      "Bearer token verifications by accepting tier and outcome",
			},
			[]string{"tier", "outcome"},
		),
		AgentAuthTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "agent_auth_total",
				Help:      "Agent API key authentications by outcome",
			},
			[]string{"outcome"},
		),
		RegistrationCodeOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registration_code_operations_total",
				Help:      "Registration code operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.TokenVerificationsTotal,
		m.AgentAuthTotal,
		m.RegistrationCodeOperationsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the registry the metrics are registered with
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterDBStats exports connection pool statistics for db
func (m *Metrics) RegisterDBStats(db *sql.DB) error {
	return m.registry.Register(collectors.NewDBStatsCollector(db, namespace))
}

// RecordTokenVerification implements auth.VerificationRecorder
func (m *Metrics) RecordTokenVerification(tier, outcome string) {
	if tier == "" {
		tier = "none"
	}
	m.TokenVerificationsTotal.WithLabelValues(tier, outcome).Inc()
}

// RecordAgentAuth implements agents.Recorder
func (m *Metrics) RecordAgentAuth(outcome string) {
	m.AgentAuthTotal.WithLabelValues(outcome).Inc()
}

// RecordRegistrationCode implements regcodes.Recorder
func (m *Metrics) RecordRegistrationCode(operation, outcome string) {
	m.RegistrationCodeOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// SetUserID forwards to the request logger's writer
func (rw *responseWriter) SetUserID(id string) {
	if s, ok := rw.ResponseWriter.(httputil.UserIDSetter); ok {
		s.SetUserID(id)
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// HTTPMetricsMiddleware instruments HTTP requests. It is meant to be
// installed with Router.Use so the route template is known; requests that
// matched no route are labelled "unmatched".
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := routeTemplate(r)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// routeTemplate keeps label cardinality bounded by path variables
func routeTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return "unmatched"
	}
	tmpl, err := route.GetPathTemplate()
	if err != nil {
		return "unmatched"
	}
	return tmpl
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(router *mux.Router, metrics *Metrics) {
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
}
