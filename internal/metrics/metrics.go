// Package metrics is the one process-wide, late-initialized resource
// spec.md §9 names besides the durable-tier connection pool: a Prometheus
// registry exposed over HTTP, with per-stage counters and histograms
// (spec.md §6 "blocks processed, cache hit/miss, extern writes").
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles every metric the pipeline stages update, plus the HTTP
// server that exposes them.
type Registry struct {
	reg *prometheus.Registry
	srv *http.Server

	BlocksDownloaded prometheus.Counter
	BlocksFiltered   prometheus.Counter
	BlocksProcessed  prometheus.Counter
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	ExternWrites     prometheus.Counter

	HandlerDuration     prometheus.Histogram
	DurableWriteDuration prometheus.Histogram
}

// New builds and registers every metric under a fresh registry.
func New() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		reg: reg,
		BlocksDownloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "datafast_blocks_downloaded_total",
			Help: "Blocks received from the Block Source.",
		}),
		BlocksFiltered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "datafast_blocks_filtered_total",
			Help: "Blocks that passed through the Data Filter.",
		}),
		BlocksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "datafast_blocks_processed_total",
			Help: "Blocks the Subgraph Dispatcher finished without error.",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "datafast_database_cache_hits_total",
			Help: "Memory-tier reads served without a durable-tier lookup.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "datafast_database_cache_misses_total",
			Help: "Memory-tier reads that fell through to the durable tier.",
		}),
		ExternWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "datafast_database_extern_writes_total",
			Help: "Durable-tier write operations issued.",
		}),
		HandlerDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "datafast_handler_duration_seconds",
			Help:    "Wall time of one guest handler export call.",
			Buckets: prometheus.DefBuckets,
		}),
		DurableWriteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "datafast_durable_write_duration_seconds",
			Help:    "Wall time of one durable-tier write.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		r.BlocksDownloaded, r.BlocksFiltered, r.BlocksProcessed,
		r.CacheHits, r.CacheMisses, r.ExternWrites,
		r.HandlerDuration, r.DurableWriteDuration,
	)
	return r
}

// Serve starts the /metrics HTTP endpoint on addr and blocks until ctx is
// cancelled, then shuts the server down gracefully.
func (r *Registry) Serve(ctx context.Context, addr string) error {
	mux := chi.NewRouter()
	mux.Handle("/metrics", promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}))
	r.srv = &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- r.srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return r.srv.Shutdown(shutdownCtx)
	}
}
