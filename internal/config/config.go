package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Sampling SamplingConfig `toml:"sampling"`
	Report   ReportConfig   `toml:"report"`
	Probe    ProbeConfig    `toml:"probe"`
	Logging  LoggingConfig  `toml:"logging"`
	Targets  []TargetConfig `toml:"targets"`
}

type SamplingConfig struct {
	IntervalMS int `toml:"interval_ms"`
}

type ReportConfig struct {
	IntervalSecs int    `toml:"interval_secs"`
	Dir          string `toml:"dir"`
}

type ProbeConfig struct {
	ConnectTimeoutMS int      `toml:"connect_timeout_ms"`
	DNSTimeoutMS     int      `toml:"dns_timeout_ms"`
	Resolvers        []string `toml:"resolvers"`
}

type LoggingConfig struct {
	Dir      string `toml:"dir"`
	MaxMB    int    `toml:"max_mb"`
	MaxFiles int    `toml:"max_files"`
}

type TargetConfig struct {
	Service  string `toml:"service"`
	Hostname string `toml:"hostname"`
	Port     uint16 `toml:"port"`
}

func Load(path string) (Config, error) {
	var cfg Config

	if _, err := os.Stat(path); err != nil {
		return cfg, fmt.Errorf("config file not found: %w", err)
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Sampling.IntervalMS == 0 {
		c.Sampling.IntervalMS = 2000
	}
	if c.Report.IntervalSecs == 0 {
		c.Report.IntervalSecs = 300
	}
	if c.Probe.ConnectTimeoutMS == 0 {
		c.Probe.ConnectTimeoutMS = 5000
	}
	if c.Probe.DNSTimeoutMS == 0 {
		c.Probe.DNSTimeoutMS = 5000
	}
	if c.Logging.MaxMB == 0 {
		c.Logging.MaxMB = 10
	}
	if c.Logging.MaxFiles == 0 {
		c.Logging.MaxFiles = 5
	}
}

func (c *Config) validate() error {
	var errs []string

	if c.Sampling.IntervalMS <= 0 {
		errs = append(errs, "sampling.interval_ms must be > 0")
	}
	if c.Report.IntervalSecs <= 0 {
		errs = append(errs, "report.interval_secs must be > 0")
	}
	if strings.TrimSpace(c.Report.Dir) == "" {
		errs = append(errs, "report.dir is required")
	}
	if c.Probe.ConnectTimeoutMS <= 0 {
		errs = append(errs, "probe.connect_timeout_ms must be > 0")
	}
	if c.Probe.DNSTimeoutMS <= 0 {
		errs = append(errs, "probe.dns_timeout_ms must be > 0")
	}
	if strings.TrimSpace(c.Logging.Dir) == "" {
		errs = append(errs, "logging.dir is required")
	}
	if c.Logging.MaxMB <= 0 {
		errs = append(errs, "logging.max_mb must be > 0")
	}
	if c.Logging.MaxFiles <= 0 {
		errs = append(errs, "logging.max_files must be > 0")
	}
	if len(c.Targets) == 0 {
		errs = append(errs, "targets must not be empty")
	}
	for i, t := range c.Targets {
		if strings.TrimSpace(t.Service) == "" {
			errs = append(errs, fmt.Sprintf("targets[%d].service is required", i))
		}
		if strings.TrimSpace(t.Hostname) == "" {
			errs = append(errs, fmt.Sprintf("targets[%d].hostname is required", i))
		}
		if t.Port == 0 {
			errs = append(errs, fmt.Sprintf("targets[%d].port is required", i))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}
