// Command ncp-counters runs the NCP status query once and prints the
// counter record.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/and161185/ncp-diag/internal/buildinfo"
	"github.com/and161185/ncp-diag/internal/config"
	"github.com/and161185/ncp-diag/internal/ncp"
	"github.com/and161185/ncp-diag/model"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewCountersConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		return 2
	}
	defer func() { _ = cfg.Logger.Sync() }()

	buildinfo.Log(cfg.Logger, buildVersion, buildDate, buildCommit)

	q, err := ncp.NewQuerier(nil, cfg.Command, time.Duration(cfg.QueryTimeout)*time.Second)
	if err != nil {
		cfg.Logger.Errorw("invalid ncp command", "error", err)
		return 2
	}

	return query(ctx, q, cfg.Format, os.Stdout, cfg.Logger)
}

type counterQuerier interface {
	Query(ctx context.Context) (model.CounterRecord, error)
}

// query prints the record in format and returns the process exit code.
// A missing marker still prints the (empty) record and exits zero.
func query(ctx context.Context, q counterQuerier, format string, w io.Writer, logger *zap.SugaredLogger) int {
	record, err := q.Query(ctx)
	code := 0
	switch {
	case err == nil:
	case errors.Is(err, ncp.ErrMarkerNotFound):
		logger.Warnw("ncp counter marker not found", "error", err)
	default:
		logger.Errorw("ncp counter query failed", "error", err)
		code = 1
	}

	if record == nil {
		record = model.CounterRecord{}
	}
	if werr := writeRecord(w, format, record); werr != nil {
		logger.Errorw("failed to write counters", "error", werr)
		return 1
	}
	return code
}

func writeRecord(w io.Writer, format string, record model.CounterRecord) error {
	switch format {
	case config.FormatYAML:
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(record); err != nil {
			return err
		}
		return enc.Close()
	case config.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	default:
		return errors.Errorf("unsupported output format %q", format)
	}
}
