package workctl

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds worker settings in a form that can be read from YAML, e.g.
//
//	name: tracker
//	delay: 500ms
//	timeout: 1m
//	daemon: true
type Config struct {
	Name    string        `yaml:"name"`
	Delay   time.Duration `yaml:"delay"`
	Timeout time.Duration `yaml:"timeout"`
	Daemon  bool          `yaml:"daemon"`
}

// Returns the settings a worker gets when no options are given.
func DefaultConfig() Config {
	return Config{
		Delay:   DefaultDelay,
		Timeout: DefaultTimeout,
	}
}

// Checks that the durations are non-negative.
func (c Config) Validate() error {
	if c.Delay < 0 {
		return fmt.Errorf("invalid delay %s: %w", c.Delay, ErrNegativeDelay)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("invalid timeout %s: %w", c.Timeout, ErrNegativeTimeout)
	}
	return nil
}

// Decodes a YAML document on top of DefaultConfig and validates the result.
// Fields missing from the document keep their defaults.
func LoadConfig(r io.Reader) (Config, error) {
	c := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("decode worker config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Reads a YAML config from a file.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	return LoadConfig(f)
}
