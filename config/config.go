package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/falaki/spark/errors"
)

// Config represents the complete session configuration
type Config struct {
	NATS    NATSConfig    `json:"nats"`
	Runtime RuntimeConfig `json:"runtime"`
	Infer   InferConfig   `json:"infer"`
	Logging LoggingConfig `json:"logging"`
}

// NATSConfig defines the JetStream connection used by object-store backed
// tables. A session without a store never dials it.
type NATSConfig struct {
	URL           string        `json:"url,omitempty"`
	MaxReconnects int           `json:"max_reconnects,omitempty"`
	ReconnectWait time.Duration `json:"reconnect_wait,omitempty"`
	Username      string        `json:"username,omitempty"`
	Password      string        `json:"password,omitempty"`
	Token         string        `json:"token,omitempty"`
}

// RuntimeConfig sizes the partition worker pool. The pool's queue is sized
// per run to the partition count, so only the worker count is configurable.
type RuntimeConfig struct {
	Workers int `json:"workers,omitempty"`
}

// InferConfig carries session-wide inference defaults
type InferConfig struct {
	SampleRatio float64 `json:"sample_ratio,omitempty"`
	Delimiter   string  `json:"delimiter,omitempty"`
	Quote       string  `json:"quote,omitempty"`
}

// LoggingConfig controls the slog handler
type LoggingConfig struct {
	Level  string `json:"level,omitempty"`  // debug, info, warn, error
	Format string `json:"format,omitempty"` // text or json
}

// Default returns the configuration used when no file or environment
// override is present.
func Default() *Config {
	return &Config{
		NATS: NATSConfig{
			URL:           "nats://localhost:4222",
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
		},
		Runtime: RuntimeConfig{
			Workers: 4,
		},
		Infer: InferConfig{
			SampleRatio: 1.0,
			Delimiter:   ",",
			Quote:       `"`,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the configuration for values the session cannot run with.
// The NATS block is deliberately not validated here: sessions without an
// object-store backend never dial it, and WithObjectStore checks the block
// when it is actually needed.
func (c *Config) Validate() error {
	if c.Runtime.Workers < 1 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: runtime.workers must be at least 1, got %d",
				errors.ErrInvalidConfig, c.Runtime.Workers),
			"config", "Validate", "runtime check")
	}
	if c.Infer.SampleRatio <= 0 || c.Infer.SampleRatio > 1.0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: infer.sample_ratio %v outside (0.0, 1.0]",
				errors.ErrInvalidConfig, c.Infer.SampleRatio),
			"config", "Validate", "infer check")
	}
	if r := []rune(c.Infer.Delimiter); len(r) != 1 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: infer.delimiter %q must be a single rune",
				errors.ErrInvalidConfig, c.Infer.Delimiter),
			"config", "Validate", "infer check")
	}
	if r := []rune(c.Infer.Quote); len(r) != 1 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: infer.quote %q must be a single rune",
				errors.ErrInvalidConfig, c.Infer.Quote),
			"config", "Validate", "infer check")
	}
	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("%w: logging.format %q (must be text or json)",
				errors.ErrInvalidConfig, c.Logging.Format),
			"config", "Validate", "logging check")
	}
	return nil
}

// SlogLevel maps the configured level name to a slog.Level
func (lc LoggingConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(lc.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, errors.WrapInvalid(
			fmt.Errorf("%w: logging.level %q", errors.ErrInvalidConfig, lc.Level),
			"config", "SlogLevel", "level parsing")
	}
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}
	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}
	return &clone
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Loader handles configuration loading with file layers and env overrides
type Loader struct {
	layers    []string
	envPrefix string
}

// NewLoader creates a loader with the SPARK env prefix
func NewLoader() *Loader {
	return &Loader{envPrefix: "SPARK"}
}

// AddLayer adds a configuration file layer. Later layers override earlier
// ones field by field.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load merges defaults, file layers, and environment overrides, then
// validates the result.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	for _, path := range l.layers {
		raw, err := l.loadRawJSON(path)
		if err != nil {
			return nil, errors.WrapInvalid(
				fmt.Errorf("layer %s: %w", path, err),
				"config", "Load", "layer loading")
		}
		cfg = l.mergeFromMap(cfg, raw)
	}

	l.applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) loadRawJSON(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	// Duration fields arrive as strings in files
	if nats, ok := raw["nats"].(map[string]any); ok {
		if wait, ok := nats["reconnect_wait"].(string); ok {
			if d, err := time.ParseDuration(wait); err == nil {
				nats["reconnect_wait"] = d.Nanoseconds()
			}
		}
	}
	return raw, nil
}

// mergeFromMap merges a raw map over the base config, only overriding
// fields present in the map.
func (l *Loader) mergeFromMap(base *Config, override map[string]any) *Config {
	if override == nil {
		return base
	}

	baseJSON, err := json.Marshal(base)
	if err != nil {
		return base
	}
	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return base
	}

	merged := deepMergeMaps(baseMap, override)

	mergedJSON, err := json.Marshal(merged)
	if err != nil {
		return base
	}
	var cfg Config
	if err := json.Unmarshal(mergedJSON, &cfg); err != nil {
		return base
	}
	return &cfg
}

func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}

func (l *Loader) applyEnvOverrides(cfg *Config) {
	if val := os.Getenv(l.envPrefix + "_NATS_URL"); val != "" {
		cfg.NATS.URL = val
	}
	if val := os.Getenv(l.envPrefix + "_NATS_USERNAME"); val != "" {
		cfg.NATS.Username = val
	}
	if val := os.Getenv(l.envPrefix + "_NATS_PASSWORD"); val != "" {
		cfg.NATS.Password = val
	}
	if val := os.Getenv(l.envPrefix + "_NATS_TOKEN"); val != "" {
		cfg.NATS.Token = val
	}
	if val := os.Getenv(l.envPrefix + "_WORKERS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Runtime.Workers = n
		}
	}
	if val := os.Getenv(l.envPrefix + "_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Infer.SampleRatio = f
		}
	}
	if val := os.Getenv(l.envPrefix + "_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv(l.envPrefix + "_LOG_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
}
