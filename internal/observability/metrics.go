package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sl2676/TexQuery/internal/core/ports/driven"
	"github.com/sl2676/TexQuery/internal/logger"
)

// Ensure Metrics implements the interface.
var _ driven.PipelineObserver = (*Metrics)(nil)

// Metrics records pipeline events on a private Prometheus registry.
type Metrics struct {
	registry      *prometheus.Registry
	chunks        *prometheus.CounterVec
	upserts       *prometheus.CounterVec
	upsertRecords prometheus.Counter
	queries       *prometheus.CounterVec
	queryDuration prometheus.Histogram
}

// NewMetrics creates and registers the pipeline metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		chunks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "texquery_chunks_total",
				Help: "Chunks processed by outcome (stored, skipped, failed).",
			},
			[]string{"outcome"},
		),
		upserts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "texquery_upserts_total",
				Help: "Upsert calls by outcome.",
			},
			[]string{"outcome"},
		),
		upsertRecords: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "texquery_upsert_records_total",
				Help: "Records carried by upsert calls.",
			},
		),
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "texquery_queries_total",
				Help: "Retrieval and answer requests by outcome.",
			},
			[]string{"outcome"},
		),
		queryDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "texquery_query_duration_seconds",
				Help:    "Retrieval and answer latency in seconds.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
	m.registry.MustRegister(m.chunks, m.upserts, m.upsertRecords, m.queries, m.queryDuration)
	return m
}

// ChunkProcessed records the fate of one chunk.
func (m *Metrics) ChunkProcessed(outcome string) {
	m.chunks.WithLabelValues(outcome).Inc()
}

// BatchUpserted records one upsert call.
func (m *Metrics) BatchUpserted(outcome string, records int) {
	m.upserts.WithLabelValues(outcome).Inc()
	m.upsertRecords.Add(float64(records))
}

// QueryAnswered records one query.
func (m *Metrics) QueryAnswered(outcome string, elapsed time.Duration) {
	m.queries.WithLabelValues(outcome).Inc()
	m.queryDuration.Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info().Str("addr", addr).Msg("serving metrics")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
