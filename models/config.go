// Package models defines data structures for configuration and the worker RPC contract.
package models

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxRetries      = 3
	DefaultRetryDelay      = 10 * time.Second
	DefaultResponseTimeout = 30 * time.Second
)

// DefaultPorts are the worker ports used when no endpoints are configured.
var DefaultPorts = []int{18861, 18862, 18863}

// RetryPolicy bounds connection establishment and the response wait of one worker call.
// MaxRetries is the total number of connection attempts made before giving up.
type RetryPolicy struct {
	MaxRetries      int           `yaml:"max_retries"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
	ResponseTimeout time.Duration `yaml:"response_timeout"`
}

// DefaultRetryPolicy returns the policy used when nothing is overridden.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      DefaultMaxRetries,
		RetryDelay:      DefaultRetryDelay,
		ResponseTimeout: DefaultResponseTimeout,
	}
}

// WithDefaults fills zero or negative fields with the defaults. A zero
// RetryDelay is unset, not "no pause"; use a small positive delay for fast redials.
func (p RetryPolicy) WithDefaults() RetryPolicy {
	if p.MaxRetries <= 0 {
		p.MaxRetries = DefaultMaxRetries
	}
	if p.RetryDelay <= 0 {
		p.RetryDelay = DefaultRetryDelay
	}
	if p.ResponseTimeout <= 0 {
		p.ResponseTimeout = DefaultResponseTimeout
	}
	return p
}

// DispatchConfig holds everything one dispatch needs. It is resolved once per
// invocation (file, then CLI flags) and passed explicitly.
type DispatchConfig struct {
	Endpoints []Endpoint  `yaml:"endpoints"`
	Retry     RetryPolicy `yaml:"retry"`

	// Deadline bounds the whole dispatch from the caller side. Zero means none.
	Deadline  time.Duration `yaml:"deadline"`
	Normalize bool          `yaml:"normalize"`
}

// DefaultDispatchConfig returns localhost workers on DefaultPorts with the default retry policy.
func DefaultDispatchConfig() *DispatchConfig {
	endpoints := make([]Endpoint, len(DefaultPorts))
	for i, port := range DefaultPorts {
		endpoints[i] = Endpoint{Host: "localhost", Port: port}
	}
	return &DispatchConfig{
		Endpoints: endpoints,
		Retry:     DefaultRetryPolicy(),
	}
}

// LoadConfig reads a YAML config file. Missing fields keep their defaults.
func LoadConfig(path string) (*DispatchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultDispatchConfig()
	config.Endpoints = nil
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if len(config.Endpoints) == 0 {
		config.Endpoints = DefaultDispatchConfig().Endpoints
	}
	config.Retry = config.Retry.WithDefaults()

	for _, ep := range config.Endpoints {
		if err := ep.Validate(); err != nil {
			return nil, fmt.Errorf("invalid endpoint in %s: %w", path, err)
		}
	}
	return config, nil
}
