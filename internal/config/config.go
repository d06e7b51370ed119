// Package config loads the daemon configuration from a YAML file.
package config

import (
	"bytes"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	yaml "go.yaml.in/yaml/v3"
)

// Config is the top-level daemon configuration. All durations are Go
// duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Broker    BrokerConfig    `yaml:"broker"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// SchedulerConfig controls the polling loop. Defaults when omitted:
// poll_interval "10s", workers 8, batch_size 100, dispatch_per_sec 100.
type SchedulerConfig struct {
	PollInterval   string `yaml:"poll_interval,omitempty"`
	Workers        int64  `yaml:"workers,omitempty"`
	BatchSize      int    `yaml:"batch_size,omitempty"`
	DispatchPerSec int    `yaml:"dispatch_per_sec,omitempty"`
}

// BrokerConfig enables job-result publishing. The broker is optional;
// with an empty URL no results are published.
type BrokerConfig struct {
	URL         string `yaml:"url,omitempty"`
	ResultQueue string `yaml:"result_queue,omitempty"`
}

type LoggingConfig struct {
	Level   string `yaml:"level,omitempty"`
	Console bool   `yaml:"console,omitempty"`
}

// Load reads and validates the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}

	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if _, err := cfg.PollInterval(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// PollInterval parses scheduler.poll_interval, zero when omitted.
func (c *Config) PollInterval() (time.Duration, error) {
	return parseDurationField("scheduler.poll_interval", c.Scheduler.PollInterval)
}

func parseDurationField(path, raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.Wrapf(err, "%s: invalid duration %q", path, raw)
	}
	if d < 0 {
		return 0, errors.Newf("%s: duration must be >= 0", path)
	}
	return d, nil
}
