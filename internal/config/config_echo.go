package config

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/and161185/ncp-diag/internal/ncp"
)

// EchoConfig holds the configuration settings for the echo responder.
type EchoConfig struct {
	Addr          string // UDP listen address
	Group         string // Multicast group to join, empty to skip
	Interface     string // Interface for the multicast join
	HTTPAddr      string // Diagnostics HTTP address, empty to disable
	TrustedSubnet string // CIDR allowed to use the HTTP surface, ex. "fd00::/64"
	Command       string // NCP status command line
	QueryTimeout  int    // Status command timeout (in seconds), 0 for none
	LogLevel      string
	Logger        *zap.SugaredLogger
}

// DefaultEchoAddr is the UDP address the responder binds by default.
const DefaultEchoAddr = "[::]:19085"

// NewEchoConfig creates and returns a new EchoConfig by parsing flags and environment variables.
func NewEchoConfig() (*EchoConfig, error) {
	return parseEchoConfig(pflag.CommandLine, os.Args[1:])
}

func parseEchoConfig(fs *pflag.FlagSet, args []string) (*EchoConfig, error) {
	// 0) defaults
	cfg := &EchoConfig{
		Addr:     DefaultEchoAddr,
		Command:  ncp.DefaultCommand,
		LogLevel: defaultLogLevel,
	}

	// 1) flags
	var fAddr, fGroup, fIface, fHTTP, fSubnet, fCmd, fLevel, fConf, fEnv strFlag
	var fTimeout intFlag
	fAddr.v = cfg.Addr
	fCmd.v = cfg.Command
	fLevel.v = cfg.LogLevel
	fEnv.v = defaultEnvFile

	fs.VarP(&fAddr, "address", "a", "UDP listen address")
	fs.VarP(&fGroup, "group", "g", "multicast group to join")
	fs.VarP(&fIface, "interface", "i", "interface for the multicast join")
	fs.Var(&fHTTP, "http", "diagnostics HTTP address (disabled when empty)")
	fs.VarP(&fSubnet, "trusted-subnet", "t", "trusted subnet for the HTTP surface")
	fs.Var(&fCmd, "command", "NCP status command")
	fs.Var(&fTimeout, "query-timeout", "status command timeout (seconds)")
	fs.Var(&fLevel, "log-level", "log level")
	fs.VarP(&fConf, "config", "c", "path to YAML/JSON config file")
	fs.Var(&fEnv, "env-file", "dotenv file loaded before reading the environment")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.Addr = fAddr.v
	cfg.Group = fGroup.v
	cfg.Interface = fIface.v
	cfg.HTTPAddr = fHTTP.v
	cfg.TrustedSubnet = fSubnet.v
	cfg.Command = fCmd.v
	cfg.QueryTimeout = fTimeout.v
	cfg.LogLevel = fLevel.v

	if err := loadEnvFile(fEnv.v, fEnv.set); err != nil {
		return nil, err
	}

	// 2) config file (below flags)
	if fConf.v == "" {
		fConf.v = os.Getenv("CONFIG")
	}
	if fConf.v != "" {
		f, err := loadEchoFile(fConf.v)
		if err != nil {
			return nil, err
		}
		if f.Address != nil && !fAddr.set {
			cfg.Addr = *f.Address
		}
		if f.Group != nil && !fGroup.set {
			cfg.Group = *f.Group
		}
		if f.Interface != nil && !fIface.set {
			cfg.Interface = *f.Interface
		}
		if f.HTTPAddress != nil && !fHTTP.set {
			cfg.HTTPAddr = *f.HTTPAddress
		}
		if f.TrustedSubnet != nil && !fSubnet.set {
			cfg.TrustedSubnet = *f.TrustedSubnet
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
		if f.LogLevel != nil && !fLevel.set {
			cfg.LogLevel = *f.LogLevel
		}
	}

	// 3) environment
	if err := readEchoEnvironment(cfg); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.LogLevel, "stdout")
	if err != nil {
		return nil, err
	}
	cfg.Logger = logger

	return cfg, nil
}

func readEchoEnvironment(cfg *EchoConfig) error {
	envString("ADDRESS", &cfg.Addr)
	envString("GROUP", &cfg.Group)
	envString("INTERFACE", &cfg.Interface)
	envString("HTTP_ADDRESS", &cfg.HTTPAddr)
	envString("TRUSTED_SUBNET", &cfg.TrustedSubnet)
	envString("NCP_COMMAND", &cfg.Command)
	envString("LOG_LEVEL", &cfg.LogLevel)

	return envInt("QUERY_TIMEOUT", &cfg.QueryTimeout)
}
