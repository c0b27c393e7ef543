// Package diag serves the optional diagnostics HTTP surface of the echo
// responder: on-demand NCP counters and Prometheus metrics.
package diag

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/and161185/ncp-diag/internal/config"
	"github.com/and161185/ncp-diag/internal/diag/middleware"
	"github.com/and161185/ncp-diag/internal/ncp"
	"github.com/and161185/ncp-diag/model"
)

const shutdownTimeout = 5 * time.Second

// Querier runs an NCP counter query.
type Querier interface {
	Query(ctx context.Context) (model.CounterRecord, error)
}

type Server struct {
	Querier  Querier
	Registry *prometheus.Registry
	Config   *config.EchoConfig
}

func NewServer(q Querier, reg *prometheus.Registry, cfg *config.EchoConfig) *Server {
	return &Server{
		Querier:  q,
		Registry: reg,
		Config:   cfg,
	}
}

// Router builds the HTTP handler. It fails on an invalid trusted subnet.
func (srv *Server) Router() (http.Handler, error) {
	trusted, err := middleware.TrustedCIDR(srv.Config.TrustedSubnet)
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	router.Use(chiMiddleware.StripSlashes)
	router.Use(middleware.LogMiddleware(srv.Config.Logger))
	router.Use(trusted)

	// promhttp negotiates its own compression
	router.Get("/metrics", promhttp.HandlerFor(srv.Registry, promhttp.HandlerOpts{}).ServeHTTP)

	router.Group(func(r chi.Router) {
		r.Use(middleware.CompressMiddleware)
		r.Get("/ping", srv.PingHandler)
		r.Get("/counters", srv.CountersHandler)
	})

	return router, nil
}

// Run serves HTTP on Config.HTTPAddr until ctx is cancelled.
func (srv *Server) Run(ctx context.Context) error {
	router, err := srv.Router()
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              srv.Config.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		srv.Config.Logger.Infow("diagnostics http listening", "address", srv.Config.HTTPAddr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (srv *Server) PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte("pong")); err != nil {
		srv.Config.Logger.Warnw("failed to write ping response", "error", err)
	}
}

func (srv *Server) CountersHandler(w http.ResponseWriter, r *http.Request) {
	record, err := srv.Querier.Query(r.Context())

	switch {
	case err == nil:
		srv.writeJSON(w, http.StatusOK, record)
	case errors.Is(err, ncp.ErrMarkerNotFound):
		w.Header().Set("X-NCP-Warning", "marker not found")
		srv.writeJSON(w, http.StatusOK, record)
	case errors.Is(err, ncp.ErrCommandFailed):
		srv.Config.Logger.Warnw("ncp counter query failed", "error", err)
		srv.writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	default:
		srv.Config.Logger.Errorw("ncp counter query failed", "error", err)
		srv.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func (srv *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		srv.Config.Logger.Warnw("failed to write response JSON", "error", err)
	}
}
