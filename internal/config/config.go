// Package config loads eventdb's YAML configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultDatabase is the database path used when none is configured.
const DefaultDatabase = "./eventdb.sqlite"

// Config is the process configuration.
type Config struct {
	// Database is the path to the SQLite database file.
	Database string `yaml:"db"`

	Relay Relay `yaml:"relay"`
	Gate  Gate  `yaml:"gate"`
}

// Relay holds settings for serving clients.
type Relay struct {
	// NoFiles is the target soft limit for open file descriptors.
	// Zero leaves the limit untouched.
	NoFiles uint64 `yaml:"nofiles"`
}

// Gate holds startup compatibility settings.
type Gate struct {
	// ExemptCommands may read stores with an older format revision. An
	// empty list exempts nothing; omitting the key keeps the default.
	ExemptCommands []string `yaml:"exempt_commands"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Database: DefaultDatabase,
		Gate: Gate{
			ExemptCommands: []string{"export"},
		},
	}
}

// Load reads the configuration file at path. An empty path returns
// Default(). Fields absent from the file keep their defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration over Default(). Unknown fields are
// rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks required fields.
func (c Config) Validate() error {
	if c.Database == "" {
		return errors.New("db is required")
	}
	for _, cmd := range c.Gate.ExemptCommands {
		if cmd == "" {
			return errors.New("gate.exempt_commands contains an empty command name")
		}
	}
	return nil
}
