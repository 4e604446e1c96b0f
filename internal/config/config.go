// Package config holds podracer's run settings, loaded from a YAML or JSON
// file and overridden by command-line flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"

	"podracer/internal/affinity"
	"podracer/internal/linkcheck"
)

// Duration is a time.Duration written as "15s" or "500ms" in config files.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) { return []byte(time.Duration(d).String()), nil }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std converts to time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type LinkCheck struct {
	Enabled   bool     `json:"enabled" yaml:"enabled"`
	Timeout   Duration `json:"timeout" yaml:"timeout"`
	Delay     Duration `json:"delay" yaml:"delay"`
	Rate      float64  `json:"rate,omitempty" yaml:"rate,omitempty"` // probes per second; 0 uses Delay
	Burst     int      `json:"burst,omitempty" yaml:"burst,omitempty"`
	Parallel  int      `json:"parallel" yaml:"parallel"`
	UserAgent string   `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
}

type Cluster struct {
	Enabled               bool    `json:"enabled" yaml:"enabled"`
	Damping               float64 `json:"damping" yaml:"damping"`
	MaxIterations         int     `json:"max_iterations" yaml:"max_iterations"`
	ConvergenceIterations int     `json:"convergence_iterations" yaml:"convergence_iterations"`
	Seed                  uint64  `json:"seed" yaml:"seed"`
}

type Report struct {
	Format      string `json:"format" yaml:"format"`
	Verbose     bool   `json:"verbose" yaml:"verbose"`
	MetricsFile string `json:"metrics_file,omitempty" yaml:"metrics_file,omitempty"`
}

type Manifest struct {
	Timeout     Duration `json:"timeout" yaml:"timeout"`
	InsecureTLS bool     `json:"insecure_tls" yaml:"insecure_tls"`
}

// Config is the full set of run settings.
type Config struct {
	Manifest  Manifest  `json:"manifest" yaml:"manifest"`
	LinkCheck LinkCheck `json:"link_check" yaml:"link_check"`
	Cluster   Cluster   `json:"cluster" yaml:"cluster"`
	Report    Report    `json:"report" yaml:"report"`
}

// Default returns the settings used when no file or flag overrides them.
func Default() *Config {
	return &Config{
		Manifest: Manifest{Timeout: Duration(2 * time.Minute)},
		LinkCheck: LinkCheck{
			Timeout:  Duration(linkcheck.DefaultTimeout),
			Delay:    Duration(linkcheck.DefaultDelay),
			Burst:    1,
			Parallel: 1,
		},
		Cluster: Cluster{
			Damping:               affinity.DefaultDamping,
			MaxIterations:         affinity.DefaultMaxIterations,
			ConvergenceIterations: affinity.DefaultConvergenceIterations,
		},
		Report: Report{Format: "text"},
	}
}

// Validate rejects settings the run cannot honour.
func (c *Config) Validate() error {
	var errs []error
	if c.Manifest.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("manifest.timeout must be positive, got %s", c.Manifest.Timeout.Std()))
	}
	if c.LinkCheck.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("link_check.timeout must be positive, got %s", c.LinkCheck.Timeout.Std()))
	}
	if c.LinkCheck.Delay < 0 {
		errs = append(errs, fmt.Errorf("link_check.delay must not be negative, got %s", c.LinkCheck.Delay.Std()))
	}
	if c.LinkCheck.Rate < 0 {
		errs = append(errs, fmt.Errorf("link_check.rate must not be negative, got %g", c.LinkCheck.Rate))
	}
	if c.LinkCheck.Parallel < 1 {
		errs = append(errs, fmt.Errorf("link_check.parallel must be at least 1, got %d", c.LinkCheck.Parallel))
	}
	if c.Cluster.Damping < 0.5 || c.Cluster.Damping >= 1 {
		errs = append(errs, fmt.Errorf("cluster.damping must be in [0.5, 1), got %g", c.Cluster.Damping))
	}
	if c.Cluster.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("cluster.max_iterations must be at least 1, got %d", c.Cluster.MaxIterations))
	}
	if c.Cluster.ConvergenceIterations < 1 {
		errs = append(errs, fmt.Errorf("cluster.convergence_iterations must be at least 1, got %d", c.Cluster.ConvergenceIterations))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadFromPath reads a config file (YAML or JSON) on top of Default().
// Format is detected by extension (.yaml/.yml or .json) or by content.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Load(data, filepath.Ext(path))
}

// Load parses config bytes on top of Default(). ext is a format hint such
// as ".json" or ".yaml"; empty means detect from content.
func Load(data []byte, ext string) (*Config, error) {
	decode := decodeYAML
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
	case ".json":
		decode = decodeJSON
	default:
		if strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
			decode = decodeJSON
		}
	}
	c := Default()
	if err := decode(data, c); err != nil {
		return nil, err
	}
	return c, nil
}

func decodeYAML(data []byte, c *Config) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}
	return nil
}

func decodeJSON(data []byte, c *Config) error {
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config json: %w", err)
	}
	return nil
}

// CheckerOptions translates the link_check settings into checker options.
// A positive rate replaces the fixed delay with a token bucket.
func (c *Config) CheckerOptions() []linkcheck.Option {
	var pacer linkcheck.Pacer = linkcheck.FixedDelay(c.LinkCheck.Delay.Std())
	if c.LinkCheck.Rate > 0 {
		pacer = linkcheck.NewRateLimit(c.LinkCheck.Rate, max(c.LinkCheck.Burst, 1))
	}
	opts := []linkcheck.Option{
		linkcheck.WithTimeout(c.LinkCheck.Timeout.Std()),
		linkcheck.WithPacer(pacer),
	}
	if c.LinkCheck.UserAgent != "" {
		opts = append(opts, linkcheck.WithUserAgent(c.LinkCheck.UserAgent))
	}
	return opts
}

// ClusterOptions translates the cluster settings into affinity options.
func (c *Config) ClusterOptions() []affinity.Option {
	return []affinity.Option{
		affinity.WithDamping(c.Cluster.Damping),
		affinity.WithMaxIterations(c.Cluster.MaxIterations),
		affinity.WithConvergenceIterations(c.Cluster.ConvergenceIterations),
		affinity.WithSeed(c.Cluster.Seed),
	}
}
