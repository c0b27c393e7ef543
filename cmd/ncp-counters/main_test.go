package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/and161185/ncp-diag/internal/config"
	"github.com/and161185/ncp-diag/internal/ncp"
	"github.com/and161185/ncp-diag/model"
)

type stubQuerier struct {
	record model.CounterRecord
	err    error
}

func (q stubQuerier) Query(context.Context) (model.CounterRecord, error) {
	return q.record, q.err
}

func TestQuery(t *testing.T) {
	rec := model.CounterRecord{"TxTotal": "1126", "RxErrFcs": "7"}

	tests := []struct {
		name     string
		querier  stubQuerier
		wantCode int
		wantOut  map[string]string
	}{
		{"ok", stubQuerier{record: rec}, 0, rec},
		{
			"marker_not_found",
			stubQuerier{record: model.CounterRecord{}, err: errors.Wrap(ncp.ErrMarkerNotFound, "cmd")},
			0,
			map[string]string{},
		},
		{
			"command_failed_partial",
			stubQuerier{record: model.CounterRecord{"TxTotal": "1"}, err: errors.Wrap(ncp.ErrCommandFailed, "cmd")},
			1,
			map[string]string{"TxTotal": "1"},
		},
		{
			"command_failed_nil_record",
			stubQuerier{err: errors.Wrap(ncp.ErrCommandFailed, "cmd")},
			1,
			map[string]string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			code := query(context.Background(), tc.querier, config.FormatJSON, &out, zap.NewNop().Sugar())
			require.Equal(t, tc.wantCode, code)

			var got map[string]string
			require.NoError(t, json.Unmarshal(out.Bytes(), &got))
			require.Equal(t, tc.wantOut, got)
		})
	}
}

func TestWriteRecord_YAML(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, writeRecord(&out, config.FormatYAML, model.CounterRecord{"TxTotal": "1126"}))

	var got map[string]string
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
	require.Equal(t, map[string]string{"TxTotal": "1126"}, got)
}

func TestWriteRecord_UnknownFormat(t *testing.T) {
	var out bytes.Buffer
	require.Error(t, writeRecord(&out, "xml", model.CounterRecord{}))
	require.Zero(t, out.Len())
}
