package config

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/and161185/ncp-diag/internal/ncp"
)

// Output formats supported by the counters command.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// CountersConfig holds the configuration settings for the one-shot counters command.
type CountersConfig struct {
	Command      string // NCP status command line
	QueryTimeout int    // Status command timeout (in seconds), 0 for none
	Format       string // Output format: json or yaml
	LogLevel     string
	Logger       *zap.SugaredLogger
}

// NewCountersConfig creates and returns a new CountersConfig by parsing flags and environment variables.
func NewCountersConfig() (*CountersConfig, error) {
	return parseCountersConfig(pflag.CommandLine, os.Args[1:])
}

func parseCountersConfig(fs *pflag.FlagSet, args []string) (*CountersConfig, error) {
	cfg := &CountersConfig{
		Command:  ncp.DefaultCommand,
		Format:   FormatJSON,
		LogLevel: defaultLogLevel,
	}

	var fCmd, fFormat, fLevel, fConf, fEnv strFlag
	var fTimeout intFlag
	fCmd.v = cfg.Command
	fFormat.v = cfg.Format
	fLevel.v = cfg.LogLevel
	fEnv.v = defaultEnvFile

	fs.Var(&fCmd, "command", "NCP status command")
	fs.Var(&fTimeout, "query-timeout", "status command timeout (seconds)")
	fs.VarP(&fFormat, "output", "o", "output format (json|yaml)")
	fs.Var(&fLevel, "log-level", "log level")
	fs.VarP(&fConf, "config", "c", "path to YAML/JSON config file")
	fs.Var(&fEnv, "env-file", "dotenv file loaded before reading the environment")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.Command = fCmd.v
	cfg.QueryTimeout = fTimeout.v
	cfg.Format = fFormat.v
	cfg.LogLevel = fLevel.v

	if err := loadEnvFile(fEnv.v, fEnv.set); err != nil {
		return nil, err
	}

	if fConf.v == "" {
		fConf.v = os.Getenv("CONFIG")
	}
	if fConf.v != "" {
		f, err := loadCountersFile(fConf.v)
		if err != nil {
			return nil, err
		}
		if f.Command != nil && !fCmd.set {
			cfg.Command = *f.Command
		}
		if f.QueryTimeout != nil && !fTimeout.set {
			sec, err := parseDurationSeconds(*f.QueryTimeout)
			if err != nil {
				return nil, fmt.Errorf("invalid query_timeout: %w", err)
			}
			cfg.QueryTimeout = sec
		}
		if f.Output != nil && !fFormat.set {
			cfg.Format = *f.Output
		}
		if f.LogLevel != nil && !fLevel.set {
			cfg.LogLevel = *f.LogLevel
		}
	}

	if err := readCountersEnvironment(cfg); err != nil {
		return nil, err
	}

	if cfg.Format != FormatJSON && cfg.Format != FormatYAML {
		return nil, fmt.Errorf("unsupported output format %q", cfg.Format)
	}

	logger, err := NewLogger(cfg.LogLevel, "stderr")
	if err != nil {
		return nil, err
	}
	cfg.Logger = logger

	return cfg, nil
}

func readCountersEnvironment(cfg *CountersConfig) error {
	envString("NCP_COMMAND", &cfg.Command)
	envString("OUTPUT", &cfg.Format)
	envString("LOG_LEVEL", &cfg.LogLevel)

	return envInt("QUERY_TIMEOUT", &cfg.QueryTimeout)
}
