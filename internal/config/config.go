// Package config provides configuration management for flashkv.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/flashdb/flashkv/internal/engine"
	"github.com/flashdb/flashkv/internal/server"
	"github.com/flashdb/flashkv/internal/store"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Duration is a time.Duration written as a Go duration string ("30s").
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler. Plain numbers are taken as
// nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n int64
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("config: duration must be a string or integer: %s", b)
		}
		*d = Duration(n)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	*d = Duration(v)
	return nil
}

// Config holds the flashkv server configuration.
type Config struct {
	// Server settings
	Addr        string   `json:"addr"`
	Password    string   `json:"password"`
	MaxClients  int      `json:"max_clients"`
	ReadTimeout Duration `json:"read_timeout"`
	LockFile    string   `json:"lock_file"`

	// Logging
	LogLevel string `json:"log_level"`

	Expire  ExpireConfig  `json:"expire"`
	Reclaim ReclaimConfig `json:"reclaim"`
	Script  ScriptConfig  `json:"script"`
}

// ExpireConfig tunes the background expiration cycle.
type ExpireConfig struct {
	Hz         int `json:"hz"`
	SampleSize int `json:"sample_size"`
	MaxRounds  int `json:"max_rounds"`
}

// ReclaimConfig tunes deferred release of large values. Thresholds are
// element counts.
type ReclaimConfig struct {
	Enabled       bool `json:"enabled"`
	Workers       int  `json:"workers"`
	QueueSize     int  `json:"queue_size"`
	ListThreshold int  `json:"list_threshold"`
	HashThreshold int  `json:"hash_threshold"`
	SetThreshold  int  `json:"set_threshold"`
	ZSetThreshold int  `json:"zset_threshold"`
}

// ScriptConfig limits the scripting bridge.
type ScriptConfig struct {
	// MaxBody is a size such as "1MB" or "512KiB". Empty means no limit.
	MaxBody string `json:"max_body"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	th := store.DefaultThresholds()
	return &Config{
		Addr:       ":6379",
		MaxClients: 10000,
		LockFile:   "flashkv.lock",
		LogLevel:   "info",
		Expire: ExpireConfig{
			Hz:         10,
			SampleSize: 20,
			MaxRounds:  4,
		},
		Reclaim: ReclaimConfig{
			Enabled:       true,
			Workers:       4,
			QueueSize:     1024,
			ListThreshold: th.List,
			HashThreshold: th.Hash,
			SetThreshold:  th.Set,
			ZSetThreshold: th.ZSet,
		},
		Script: ScriptConfig{MaxBody: "1MB"},
	}
}

// Load loads configuration from a JSON file. A missing file yields the
// defaults; fields absent from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves the configuration to a JSON file.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var problems []string
	if c.Addr == "" {
		problems = append(problems, "addr is empty")
	}
	if c.MaxClients < 0 {
		problems = append(problems, "max_clients is negative")
	}
	if c.ReadTimeout < 0 {
		problems = append(problems, "read_timeout is negative")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}
	if c.Expire.Hz < 0 {
		problems = append(problems, "expire.hz is negative")
	}
	if c.Expire.SampleSize <= 0 || c.Expire.MaxRounds <= 0 {
		problems = append(problems, "expire.sample_size and expire.max_rounds must be positive")
	}
	if c.Reclaim.Workers <= 0 {
		problems = append(problems, "reclaim.workers must be positive")
	}
	if c.Reclaim.QueueSize <= 0 {
		problems = append(problems, "reclaim.queue_size must be positive")
	}
	if c.Reclaim.ListThreshold < 0 || c.Reclaim.HashThreshold < 0 ||
		c.Reclaim.SetThreshold < 0 || c.Reclaim.ZSetThreshold < 0 {
		problems = append(problems, "reclaim thresholds must not be negative")
	}
	if _, err := c.Script.MaxBodyBytes(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// MaxBodyBytes parses MaxBody. Zero means no limit.
func (s ScriptConfig) MaxBodyBytes() (uint64, error) {
	if s.MaxBody == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s.MaxBody)
	if err != nil {
		return 0, fmt.Errorf("script.max_body %q: %v", s.MaxBody, err)
	}
	return n, nil
}

// EngineOptions maps the expire and reclaim sections onto engine options.
func (c *Config) EngineOptions() engine.Options {
	o := engine.DefaultOptions()
	o.ExpireHz = c.Expire.Hz
	o.ExpireSampleSize = c.Expire.SampleSize
	o.ExpireMaxRounds = c.Expire.MaxRounds
	o.ReclaimEnabled = c.Reclaim.Enabled
	o.ReclaimWorkers = c.Reclaim.Workers
	o.ReclaimQueue = c.Reclaim.QueueSize
	o.Thresholds = store.Thresholds{
		List: c.Reclaim.ListThreshold,
		Hash: c.Reclaim.HashThreshold,
		Set:  c.Reclaim.SetThreshold,
		ZSet: c.Reclaim.ZSetThreshold,
	}
	return o
}

// ServerConfig returns the connection settings.
func (c *Config) ServerConfig() server.Config {
	return server.Config{
		Password:    c.Password,
		MaxClients:  c.MaxClients,
		ReadTimeout: time.Duration(c.ReadTimeout),
	}
}
