package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const maxStoreLifetime = 7 * 24 * time.Hour

type RenewalConfig struct {
	ExpiryBuffer      time.Duration `koanf:"expiry_buffer" mapstructure:"expiry_buffer"`
	RefreshInterval   time.Duration `koanf:"refresh_interval" mapstructure:"refresh_interval"`
	HeartbeatInterval time.Duration `koanf:"heartbeat_interval" mapstructure:"heartbeat_interval"`
	MaxAttempts       int           `koanf:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff    time.Duration `koanf:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff        time.Duration `koanf:"max_backoff" mapstructure:"max_backoff"`
}

type RetryConfig struct {
	TimeoutRetries        int           `koanf:"timeout_retries" mapstructure:"timeout_retries"`
	TimeoutInitialBackoff time.Duration `koanf:"timeout_initial_backoff" mapstructure:"timeout_initial_backoff"`
	TimeoutMaxBackoff     time.Duration `koanf:"timeout_max_backoff" mapstructure:"timeout_max_backoff"`
	ServerErrorRetries    int           `koanf:"server_error_retries" mapstructure:"server_error_retries"`
	ServerErrorStep       time.Duration `koanf:"server_error_step" mapstructure:"server_error_step"`
	AuthRetries           int           `koanf:"auth_retries" mapstructure:"auth_retries"`
}

type QueueConfig struct {
	// MaxLength bounds the offline replay queue; the oldest entry is evicted
	// (and its caller rejected) when the bound is exceeded. Zero disables
	// the bound.
	MaxLength int `koanf:"max_length" mapstructure:"max_length"`
}

type StoreConfig struct {
	// MaxLifetime bounds how long a persisted credential slot survives
	// across process restarts, clamped to seven days.
	MaxLifetime time.Duration `koanf:"max_lifetime" mapstructure:"max_lifetime"`
}

type Config struct {
	ServiceName string        `koanf:"service_name" mapstructure:"service_name"`
	BaseURL     string        `koanf:"base_url" mapstructure:"base_url"`
	VerifyPath  string        `koanf:"verify_path" mapstructure:"verify_path"`
	Renewal     RenewalConfig `koanf:"renewal" mapstructure:"renewal"`
	Retry       RetryConfig   `koanf:"retry" mapstructure:"retry"`
	Queue       QueueConfig   `koanf:"queue" mapstructure:"queue"`
	Store       StoreConfig   `koanf:"store" mapstructure:"store"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "authclient",
		VerifyPath:  "/auth/verify",
		Renewal: RenewalConfig{
			ExpiryBuffer:      5 * time.Minute,
			RefreshInterval:   45 * time.Minute,
			HeartbeatInterval: 10 * time.Minute,
			MaxAttempts:       3,
			InitialBackoff:    time.Second,
			MaxBackoff:        4 * time.Second,
		},
		Retry: RetryConfig{
			TimeoutRetries:        3,
			TimeoutInitialBackoff: time.Second,
			TimeoutMaxBackoff:     4 * time.Second,
			ServerErrorRetries:    2,
			ServerErrorStep:       2 * time.Second,
			AuthRetries:           2,
		},
		Queue: QueueConfig{
			MaxLength: 128,
		},
		Store: StoreConfig{
			MaxLifetime: maxStoreLifetime,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if trimmed := strings.TrimSpace(c.BaseURL); trimmed != "" {
		parsed, err := url.Parse(trimmed)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("core: base_url must be an absolute url")
		}
	}
	if c.Renewal.MaxAttempts < 1 {
		return fmt.Errorf("core: renewal.max_attempts must be >= 1")
	}
	if c.Renewal.ExpiryBuffer < 0 {
		return fmt.Errorf("core: renewal.expiry_buffer must be >= 0")
	}
	if c.Retry.TimeoutRetries < 0 || c.Retry.ServerErrorRetries < 0 || c.Retry.AuthRetries < 0 {
		return fmt.Errorf("core: retry counts must be >= 0")
	}
	if c.Queue.MaxLength < 0 {
		return fmt.Errorf("core: queue.max_length must be >= 0")
	}
	if c.Store.MaxLifetime < 0 {
		return fmt.Errorf("core: store.max_lifetime must be >= 0")
	}
	return nil
}

// normalize clamps values the validator accepts but the runtime bounds.
func (c Config) normalize() Config {
	out := c
	if out.Store.MaxLifetime == 0 || out.Store.MaxLifetime > maxStoreLifetime {
		out.Store.MaxLifetime = maxStoreLifetime
	}
	if out.Renewal.InitialBackoff <= 0 {
		out.Renewal.InitialBackoff = time.Second
	}
	if out.Renewal.MaxBackoff <= 0 {
		out.Renewal.MaxBackoff = 4 * time.Second
	}
	if strings.TrimSpace(out.VerifyPath) == "" {
		out.VerifyPath = "/auth/verify"
	}
	return out
}
