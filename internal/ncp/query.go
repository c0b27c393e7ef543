package ncp

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/and161185/ncp-diag/model"
)

// DefaultCommand prints the MAC counter property of the NCP.
const DefaultCommand = "sudo wpanctl getprop " + Marker

var (
	// ErrCommandFailed reports that the status tool could not be started or exited non-zero.
	ErrCommandFailed = errors.New("ncp status command failed")
	// ErrMarkerNotFound reports that the tool ran but printed no counter block.
	ErrMarkerNotFound = errors.New("ncp counter marker not found")
	// ErrEmptyCommand reports a querier configured without a command.
	ErrEmptyCommand = errors.New("ncp status command is empty")
)

// Runner executes an external program and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs programs with os/exec. Standard error is discarded.
type ExecRunner struct{}

// Run executes name with args and returns whatever was written to stdout,
// also when the process fails.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var outBuf bytes.Buffer
	cmd.Stdout = &outBuf

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return outBuf.Bytes(), errors.Wrapf(err, "exit code %d", exitErr.ExitCode())
		}
		return outBuf.Bytes(), err
	}
	return outBuf.Bytes(), nil
}

// Querier runs the status command and parses its counters.
type Querier struct {
	runner  Runner
	argv    []string
	timeout time.Duration
}

// NewQuerier builds a Querier for a whitespace-separated command line.
// A zero timeout means the command may run indefinitely.
func NewQuerier(runner Runner, command string, timeout time.Duration) (*Querier, error) {
	argv := strings.Fields(command)
	if len(argv) == 0 {
		return nil, ErrEmptyCommand
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Querier{runner: runner, argv: argv, timeout: timeout}, nil
}

// Command returns the command line the querier runs.
func (q *Querier) Command() string {
	return strings.Join(q.argv, " ")
}

// Query runs the status command and parses its output.
//
// The returned record is always non-nil and holds whatever could be parsed
// from the captured output. The error wraps ErrCommandFailed when the
// command failed and ErrMarkerNotFound when it succeeded without printing
// the counter block.
func (q *Querier) Query(ctx context.Context) (model.CounterRecord, error) {
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	out, err := q.runner.Run(ctx, q.argv[0], q.argv[1:]...)
	text := string(out)
	record := ParseCounters(text)

	if err != nil {
		return record, errors.Wrapf(ErrCommandFailed, "%s: %v", q.Command(), err)
	}
	if !strings.Contains(text, Marker) {
		return record, errors.Wrap(ErrMarkerNotFound, q.Command())
	}
	return record, nil
}
