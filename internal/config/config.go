// Package config provides configuration structures and defaults for the engine.
package config

import (
	"os"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/kowanietz/lsm-tree-kv/internal/dberr"
)

const (
	defaultMaxMemtableSize     = 4 * 1024
	defaultRecoveryConcurrency = 4
)

// Config holds the tunable parameters of a tree.
type Config struct {
	// MaxMemtableSize is the memtable size in bytes at which a write
	// triggers a flush.
	MaxMemtableSize int `yaml:"max_memtable_size"`
	// RecoveryConcurrency bounds how many SSTables are opened in parallel
	// when a directory is recovered.
	RecoveryConcurrency int `yaml:"recovery_concurrency"`

	Logger logrus.FieldLogger `yaml:"-"`
	// Registerer receives the engine metrics. Metrics are disabled when nil.
	Registerer prometheus.Registerer `yaml:"-"`
}

// DefaultConfig returns a Config struct populated with default values.
func DefaultConfig() *Config {
	return &Config{
		MaxMemtableSize:     defaultMaxMemtableSize,
		RecoveryConcurrency: defaultRecoveryConcurrency,
		Logger:              logrus.StandardLogger(),
	}
}

// FillDefaults sets any zero-value fields in the Config to their default values.
func (c *Config) FillDefaults() {
	def := DefaultConfig()
	if c.MaxMemtableSize == 0 {
		c.MaxMemtableSize = def.MaxMemtableSize
	}
	if c.RecoveryConcurrency == 0 {
		c.RecoveryConcurrency = def.RecoveryConcurrency
	}
	if c.Logger == nil {
		c.Logger = def.Logger
	}
}

// Validate reports an invalid argument error for settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.MaxMemtableSize <= 0 {
		return dberr.InvalidArgument("max memtable size must be positive, got %d", c.MaxMemtableSize)
	}
	if c.RecoveryConcurrency < 0 {
		return dberr.InvalidArgument("recovery concurrency must not be negative, got %d", c.RecoveryConcurrency)
	}
	return nil
}

// Load reads a YAML config file. Fields missing from the file keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, dberr.IO(err, "read config "+path)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(dberr.InvalidArgument("%v", err), "parse config "+path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}
