package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-faster/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/and161185/ncp-diag/internal/buildinfo"
	"github.com/and161185/ncp-diag/internal/config"
	"github.com/and161185/ncp-diag/internal/diag"
	"github.com/and161185/ncp-diag/internal/echo"
	"github.com/and161185/ncp-diag/internal/ncp"
	"github.com/and161185/ncp-diag/model"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewEchoConfig()
	if err != nil {
		bootstrap, _ := zap.NewProduction()
		bootstrap.Sugar().Fatalw("invalid configuration", "error", err)
	}
	logger := cfg.Logger
	defer func() { _ = logger.Sync() }()

	buildinfo.Log(logger, buildVersion, buildDate, buildCommit)
	logger.Infow("echo config",
		"address", cfg.Addr,
		"group", cfg.Group,
		"interface", cfg.Interface,
		"http", cfg.HTTPAddr,
		"command", cfg.Command,
		"query_timeout", cfg.QueryTimeout,
	)

	querier, err := ncp.NewQuerier(nil, cfg.Command, time.Duration(cfg.QueryTimeout)*time.Second)
	if err != nil {
		logger.Fatalw("invalid ncp command", "error", err)
	}

	reg := prometheus.NewRegistry()
	metrics := diag.NewEchoMetrics(reg)

	responder, err := echo.Listen(echo.Config{
		Addr:      cfg.Addr,
		Group:     cfg.Group,
		Interface: cfg.Interface,
	}, logger, echo.WithObserver(metrics))
	if err != nil {
		logger.Fatalw("failed to bind echo socket", "address", cfg.Addr, "error", err)
	}

	go logCounters(ctx, querier, logger)

	if cfg.HTTPAddr != "" {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			diag.NewCounterCollector(querier, logger),
		)
		srv := diag.NewServer(querier, reg, cfg)
		go func() {
			if err := srv.Run(ctx); err != nil {
				logger.Errorw("diagnostics http stopped", "error", err)
			}
		}()
	}

	if err := responder.Serve(ctx); err != nil {
		logger.Fatalw("echo responder failed", "error", err)
	}
	logger.Infow("echo responder stopped")
}

type counterQuerier interface {
	Query(ctx context.Context) (model.CounterRecord, error)
}

// logCounters runs one counter query and logs its outcome. It never
// affects the echo loop.
func logCounters(ctx context.Context, q counterQuerier, logger *zap.SugaredLogger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorw("ncp counter query panicked", "panic", r)
		}
	}()

	record, err := q.Query(ctx)
	switch {
	case err == nil:
		logger.Infow("ncp counters", "count", len(record), "counters", record)
	case errors.Is(err, ncp.ErrMarkerNotFound):
		logger.Warnw("ncp counters unavailable", "error", err, "counters", record)
	default:
		logger.Errorw("ncp counter query failed", "error", err, "counters", record)
	}
}
