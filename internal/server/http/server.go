package http

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	middleware "github.com/autopeer-io/brokerlink/internal/pkg/middleware/http"
	"github.com/autopeer-io/brokerlink/internal/supervisor"
	"github.com/autopeer-io/brokerlink/pkg/log"
	"github.com/autopeer-io/brokerlink/pkg/options"
)

// StatusSource provides the connection snapshot served by the status routes.
type StatusSource interface {
	Status() supervisor.Status
}

type Server struct {
	server  *http.Server
	options *options.HttpOptions
	log     log.Logger
}

func NewServer(opts *options.HttpOptions, src StatusSource, gatherer prometheus.Gatherer, logger log.Logger) *Server {
	if logger == nil {
		logger = log.Std()
	}
	logger = logger.WithName("http")

	return &Server{
		server: &http.Server{
			Addr:              opts.Addr,
			Handler:           NewHandler(src, gatherer, logger),
			ReadHeaderTimeout: 5 * time.Second,
		},
		options: opts,
		log:     logger,
	}
}

// NewHandler builds the router for the status server.
func NewHandler(src StatusSource, gatherer prometheus.Gatherer, logger log.Logger) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Logging(logger), middleware.Timeout(middleware.DefaultRequestTimeout))

	// Liveness
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	// Readiness follows the broker connection.
	r.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		st := src.Status()
		if !st.IsConnected() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(st.State.String()))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(src.Status().View()); err != nil {
			logger.Error(err, "Failed to encode status")
		}
	}).Methods(http.MethodGet)

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	return r
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen(s.options.Network, s.server.Addr)
	if err != nil {
		return err
	}
	s.log.Info("Starting HTTP Server", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.options.ShutdownTimeout)
		defer cancel()
		s.log.Info("Shutting down HTTP Server")
		return s.server.Shutdown(shutdownCtx)
	}
}
