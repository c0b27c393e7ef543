package testutils

import (
	"context"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/and161185/ncp-diag/internal/config"
	"github.com/and161185/ncp-diag/internal/diag"
	"github.com/and161185/ncp-diag/model"
)

// StubQuerier returns a fixed record and error and counts calls.
type StubQuerier struct {
	Record model.CounterRecord
	Err    error
	Calls  atomic.Int32
}

func (q *StubQuerier) Query(ctx context.Context) (model.CounterRecord, error) {
	q.Calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return q.Record, q.Err
}

func NewTestServer(q diag.Querier) *diag.Server {
	return diag.NewServer(q, prometheus.NewRegistry(), &config.EchoConfig{
		HTTPAddr: "127.0.0.1:0",
		Logger:   zap.NewNop().Sugar(),
	})
}
