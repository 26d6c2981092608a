// Package metrics exposes Prometheus counters for grid runs.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Cell outcome labels for CellsTotal.
const (
	StatusComputed     = "computed"
	StatusMasked       = "masked"
	StatusInsufficient = "insufficient"
	StatusFailed       = "failed"
)

var (
	CellsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phenotrack_cells_total",
			Help: "Grid cells visited, by analysis variant and outcome",
		},
		[]string{"variant", "status"},
	)

	ProgressCells = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "phenotrack_progress_cells",
			Help: "Cells finished in the current run",
		},
		[]string{"variant"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "phenotrack_run_duration_seconds",
			Help:    "Wall time of a full grid run",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		},
		[]string{"variant"},
	)

	StoreWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phenotrack_store_writes_total",
			Help: "Result sets written per storage engine",
		},
		[]string{"engine", "status"},
	)
)

// Server serves /metrics until its context is cancelled.
type Server struct {
	addr   string
	logger *zap.SugaredLogger
}

// NewServer returns a metrics server listening on addr.
func NewServer(addr string, logger *zap.SugaredLogger) *Server {
	return &Server{addr: addr, logger: logger}
}

// Handler returns the router used by the server.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)
	return router
}

// Run blocks serving metrics and shuts down gracefully when ctx ends.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Infof("serving metrics on %s", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
