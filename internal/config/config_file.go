package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config files are YAML; plain JSON parses too.

type echoFile struct {
	Address       *string `yaml:"address"`
	Group         *string `yaml:"group"`
	Interface     *string `yaml:"interface"`
	HTTPAddress   *string `yaml:"http_address"`
	TrustedSubnet *string `yaml:"trusted_subnet"`
	Command       *string `yaml:"command"`
	QueryTimeout  *string `yaml:"query_timeout"` // "5s"
	LogLevel      *string `yaml:"log_level"`
}

type countersFile struct {
	Command      *string `yaml:"command"`
	QueryTimeout *string `yaml:"query_timeout"`
	LogLevel     *string `yaml:"log_level"`
	Output       *string `yaml:"output"`
}

func loadEchoFile(path string) (*echoFile, error) {
	var f echoFile
	if err := loadYAML(path, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func loadCountersFile(path string) (*countersFile, error) {
	var f countersFile
	if err := loadYAML(path, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func loadYAML(path string, dst any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// parseDurationSeconds converts a duration string to whole seconds. Values
// that do not convert exactly are rejected, since 0 means no timeout.
func parseDurationSeconds(s string) (int, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("%s is negative", s)
	}
	if d%time.Second != 0 {
		return 0, fmt.Errorf("%s is not a whole number of seconds", s)
	}
	return int(d / time.Second), nil
}
