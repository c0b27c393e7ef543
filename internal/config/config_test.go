package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/and161185/ncp-diag/internal/ncp"
)

var configEnv = []string{
	"ADDRESS", "GROUP", "INTERFACE", "HTTP_ADDRESS", "TRUSTED_SUBNET",
	"NCP_COMMAND", "QUERY_TIMEOUT", "LOG_LEVEL", "OUTPUT", "CONFIG",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnv {
		t.Setenv(k, "")
	}
}

func newFlagSet() *pflag.FlagSet {
	return pflag.NewFlagSet("test", pflag.ContinueOnError)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseEchoConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := parseEchoConfig(newFlagSet(), nil)
	require.NoError(t, err)
	require.Equal(t, DefaultEchoAddr, cfg.Addr)
	require.Equal(t, ncp.DefaultCommand, cfg.Command)
	require.Equal(t, 0, cfg.QueryTimeout)
	require.Empty(t, cfg.HTTPAddr)
	require.Empty(t, cfg.Group)
	require.NotNil(t, cfg.Logger)
}

func TestParseEchoConfig_Flags(t *testing.T) {
	clearEnv(t)

	cfg, err := parseEchoConfig(newFlagSet(), []string{
		"-a", "[::1]:2000",
		"--group", "ff03::1",
		"-i", "wpan0",
		"--http", "127.0.0.1:8080",
		"-t", "10.0.0.0/8",
		"--command", "wpanctl status",
		"--query-timeout", "5",
		"--log-level", "debug",
	})
	require.NoError(t, err)
	require.Equal(t, "[::1]:2000", cfg.Addr)
	require.Equal(t, "ff03::1", cfg.Group)
	require.Equal(t, "wpan0", cfg.Interface)
	require.Equal(t, "127.0.0.1:8080", cfg.HTTPAddr)
	require.Equal(t, "10.0.0.0/8", cfg.TrustedSubnet)
	require.Equal(t, "wpanctl status", cfg.Command)
	require.Equal(t, 5, cfg.QueryTimeout)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestParseEchoConfig_FileBelowFlags(t *testing.T) {
	clearEnv(t)

	path := writeFile(t, "echo.yaml", `
address: "[::]:3000"
group: ff02::1
http_address: ":9090"
command: wpanctl get
query_timeout: 7s
`)

	cfg, err := parseEchoConfig(newFlagSet(), []string{"-c", path, "--command", "from-flag"})
	require.NoError(t, err)
	require.Equal(t, "[::]:3000", cfg.Addr)
	require.Equal(t, "ff02::1", cfg.Group)
	require.Equal(t, ":9090", cfg.HTTPAddr)
	require.Equal(t, "from-flag", cfg.Command)
	require.Equal(t, 7, cfg.QueryTimeout)
}

func TestParseEchoConfig_JSONFile(t *testing.T) {
	clearEnv(t)

	path := writeFile(t, "echo.json", `{"address": "[::]:4000", "log_level": "warn"}`)
	t.Setenv("CONFIG", path)

	cfg, err := parseEchoConfig(newFlagSet(), nil)
	require.NoError(t, err)
	require.Equal(t, "[::]:4000", cfg.Addr)
	require.Equal(t, "warn", cfg.LogLevel)
}

func TestParseEchoConfig_EnvWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("ADDRESS", "[::]:5000")
	t.Setenv("QUERY_TIMEOUT", "9")
	t.Setenv("NCP_COMMAND", "wpanctl status")

	cfg, err := parseEchoConfig(newFlagSet(), []string{"-a", "[::]:6000", "--query-timeout", "1"})
	require.NoError(t, err)
	require.Equal(t, "[::]:5000", cfg.Addr)
	require.Equal(t, 9, cfg.QueryTimeout)
	require.Equal(t, "wpanctl status", cfg.Command)
}

func TestParseEchoConfig_Errors(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		args  []string
		files map[string]string
	}{
		{name: "bad_env_int", env: map[string]string{"QUERY_TIMEOUT": "soon"}},
		{name: "bad_flag_int", args: []string{"--query-timeout", "x"}},
		{name: "bad_log_level", args: []string{"--log-level", "loud"}},
		{name: "missing_config_file", args: []string{"-c", "/nonexistent/echo.yaml"}},
		{name: "missing_explicit_env_file", args: []string{"--env-file", "/nonexistent/.env"}},
		{name: "bad_file_timeout", files: map[string]string{"echo.yaml": "query_timeout: never\n"}},
		{name: "sub_second_file_timeout", files: map[string]string{"echo.yaml": "query_timeout: 500ms\n"}},
		{name: "fractional_file_timeout", files: map[string]string{"echo.yaml": "query_timeout: 1.5s\n"}},
		{name: "negative_file_timeout", files: map[string]string{"echo.yaml": "query_timeout: -5s\n"}},
		{name: "bad_yaml", files: map[string]string{"echo.yaml": "address: [\n"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			args := tc.args
			for name, content := range tc.files {
				args = append(args, "-c", writeFile(t, name, content))
			}

			_, err := parseEchoConfig(newFlagSet(), args)
			require.Error(t, err)
		})
	}
}

func TestParseEchoConfig_EnvFile(t *testing.T) {
	clearEnv(t)
	// dotenv never overrides variables that exist, even empty ones
	require.NoError(t, os.Unsetenv("ADDRESS"))
	require.NoError(t, os.Unsetenv("GROUP"))

	path := writeFile(t, "diag.env", "ADDRESS=[::]:7000\nGROUP=ff03::fc\n")

	cfg, err := parseEchoConfig(newFlagSet(), []string{"--env-file", path})
	require.NoError(t, err)
	require.Equal(t, "[::]:7000", cfg.Addr)
	require.Equal(t, "ff03::fc", cfg.Group)
}

func TestParseCountersConfig(t *testing.T) {
	clearEnv(t)

	cfg, err := parseCountersConfig(newFlagSet(), nil)
	require.NoError(t, err)
	require.Equal(t, FormatJSON, cfg.Format)
	require.Equal(t, ncp.DefaultCommand, cfg.Command)

	cfg, err = parseCountersConfig(newFlagSet(), []string{"-o", "yaml", "--command", "wpanctl status"})
	require.NoError(t, err)
	require.Equal(t, FormatYAML, cfg.Format)
	require.Equal(t, "wpanctl status", cfg.Command)

	path := writeFile(t, "counters.yaml", "output: yaml\nquery_timeout: 2s\n")
	cfg, err = parseCountersConfig(newFlagSet(), []string{"--config", path})
	require.NoError(t, err)
	require.Equal(t, FormatYAML, cfg.Format)
	require.Equal(t, 2, cfg.QueryTimeout)

	t.Setenv("OUTPUT", "xml")
	_, err = parseCountersConfig(newFlagSet(), nil)
	require.Error(t, err)
}

func TestReadEchoEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("ADDRESS", "[::]:19086")
	t.Setenv("HTTP_ADDRESS", ":8081")
	t.Setenv("TRUSTED_SUBNET", "fd00::/8")

	cfg := &EchoConfig{}
	require.NoError(t, readEchoEnvironment(cfg))
	require.Equal(t, "[::]:19086", cfg.Addr)
	require.Equal(t, ":8081", cfg.HTTPAddr)
	require.Equal(t, "fd00::/8", cfg.TrustedSubnet)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug", "stderr")
	require.NoError(t, err)
	require.True(t, logger.Desugar().Core().Enabled(zapcore.DebugLevel))

	_, err = NewLogger("loud", "stdout")
	require.Error(t, err)
}

func TestParseDurationSeconds(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "0s", want: 0},
		{in: "7s", want: 7},
		{in: "2m", want: 120},
		{in: "1500ms", wantErr: true},
		{in: "500ms", wantErr: true},
		{in: "-1s", wantErr: true},
		{in: "5", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := parseDurationSeconds(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestParseCountersConfig_SubSecondFileTimeout(t *testing.T) {
	clearEnv(t)

	path := writeFile(t, "counters.yaml", "query_timeout: 500ms\n")
	_, err := parseCountersConfig(newFlagSet(), []string{"-c", path, "--env-file", ""})
	require.Error(t, err)
}
