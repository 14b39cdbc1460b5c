// Package metrics exports the service's operational signals to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/moments/pkg/core"
)

const namespace = "moments"

// Collector implements core.Observer on top of Prometheus metrics.
type Collector struct {
	mutations     *prometheus.CounterVec
	mutationDur   *prometheus.SummaryVec
	emissions     prometheus.Counter
	emissionSize  prometheus.Summary
	subscriptions prometheus.Gauge
}

// NewCollector creates the metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Number of write attempts by operation and outcome",
		}, []string{"op", "status"}),
		mutationDur: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Namespace: namespace,
			Name:      "mutation_duration_seconds",
			Help:      "Time spent in the repository per write",
		}, []string{"op"}),
		emissions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emissions_total",
			Help:      "Number of result sets delivered to subscribers",
		}),
		emissionSize: prometheus.NewSummary(prometheus.SummaryOpts{
			Namespace: namespace,
			Name:      "emission_size",
			Help:      "Number of moments per delivered result set",
		}),
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscriptions",
			Help:      "Number of live subscriptions",
		}),
	}
	reg.MustRegister(c.mutations, c.mutationDur, c.emissions, c.emissionSize, c.subscriptions)
	return c
}

// ObserveMutation implements core.Observer.
func (c *Collector) ObserveMutation(op string, took time.Duration, err error) {
	c.mutations.WithLabelValues(op, status(err)).Inc()
	c.mutationDur.WithLabelValues(op).Observe(took.Seconds())
}

// ObserveEmission implements core.Observer.
func (c *Collector) ObserveEmission(size int) {
	c.emissions.Inc()
	c.emissionSize.Observe(float64(size))
}

// ObserveSubscriptions implements core.Observer.
func (c *Collector) ObserveSubscriptions(active int) {
	c.subscriptions.Set(float64(active))
}

func status(err error) string {
	var ve *core.ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &ve):
		return "invalid"
	case errors.Is(err, core.ErrNotFound):
		return "not_found"
	case errors.Is(err, core.ErrQuotaExceeded):
		return "quota_exceeded"
	default:
		return "error"
	}
}

var _ core.Observer = (*Collector)(nil)

// Server exposes /metrics and /healthz.
type Server struct {
	server *http.Server
}

// NewServer serves the metrics gathered by g on addr.
func NewServer(addr string, g prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &Server{server: &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}}
}

// Handler returns the HTTP handler, mostly for tests.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// Serve blocks until the server stops. http.ErrServerClosed is not an error.
func (s *Server) Serve() error {
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error { return s.server.Shutdown(ctx) }
