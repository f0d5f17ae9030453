// Package telemetry keeps the prometheus metrics of the bot
// and serves them over http.
package telemetry

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gravitational/trace"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const NAMESPACE = "toornabot"

// Metrics observes the requests sent to the platform, the token refreshes
// and the commands handled by the bot
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	tokenRefreshes  *prometheus.CounterVec
	commands        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Name:      "platform_requests_total",
			Help:      "Requests sent to the tournament platform, by endpoint and status code",
		}, []string{"endpoint", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: NAMESPACE,
			Name:      "platform_request_duration_seconds",
			Help:      "Latency of the requests sent to the tournament platform",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		tokenRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Name:      "token_refreshes_total",
			Help:      "Token refreshes against the platform, by result",
		}, []string{"result"}),
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Name:      "commands_total",
			Help:      "Commands handled, by command and outcome",
		}, []string{"command", "outcome"}),
		commandDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: NAMESPACE,
			Name:      "command_duration_seconds",
			Help:      "Time spent handling a command, requests included",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"command"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveRequest(route string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveTokenRefresh(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.tokenRefreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveCommand(command string, outcome string, elapsed time.Duration) {
	m.commands.WithLabelValues(command, outcome).Inc()
	m.commandDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}

// Server exposes the metrics on /metrics
type Server struct {
	server *http.Server
}

func NewServer(addr string, metrics *Metrics) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
	return &Server{server: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}}
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start listens in the background. Failures after startup are only logged
func (s *Server) Start() {
	go func() {
		log.Info().Str("addr", s.server.Addr).Msg("Serving metrics")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", s.server.Addr).Msg("Metrics listener failed")
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	return trace.Wrap(s.server.Shutdown(ctx))
}
