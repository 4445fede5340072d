package core

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.Renewal.ExpiryBuffer != 5*time.Minute {
		t.Fatalf("expected 5m expiry buffer, got %v", cfg.Renewal.ExpiryBuffer)
	}
	if cfg.Retry.TimeoutRetries != 3 || cfg.Retry.ServerErrorRetries != 2 || cfg.Retry.AuthRetries != 2 {
		t.Fatalf("unexpected retry defaults %+v", cfg.Retry)
	}
	if cfg.Queue.MaxLength != 128 {
		t.Fatalf("expected queue bound 128, got %d", cfg.Queue.MaxLength)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing service name",
			mutate:  func(c *Config) { c.ServiceName = " " },
			wantErr: "service_name",
		},
		{
			name:    "relative base url",
			mutate:  func(c *Config) { c.BaseURL = "/not-absolute" },
			wantErr: "base_url",
		},
		{
			name:    "zero renewal attempts",
			mutate:  func(c *Config) { c.Renewal.MaxAttempts = 0 },
			wantErr: "max_attempts",
		},
		{
			name:    "negative expiry buffer",
			mutate:  func(c *Config) { c.Renewal.ExpiryBuffer = -time.Second },
			wantErr: "expiry_buffer",
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.Retry.TimeoutRetries = -1 },
			wantErr: "retry counts",
		},
		{
			name:    "negative queue bound",
			mutate:  func(c *Config) { c.Queue.MaxLength = -1 },
			wantErr: "max_length",
		},
		{
			name:    "negative store lifetime",
			mutate:  func(c *Config) { c.Store.MaxLifetime = -time.Hour },
			wantErr: "max_lifetime",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tc.wantErr, err)
			}
		})
	}

	valid := DefaultConfig()
	valid.BaseURL = "https://api.internal.test"
	if err := valid.Validate(); err != nil {
		t.Fatalf("absolute base url must validate: %v", err)
	}
}

func TestConfigNormalize_ClampsBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.MaxLifetime = 30 * 24 * time.Hour
	cfg.Renewal.InitialBackoff = 0
	cfg.Renewal.MaxBackoff = 0
	cfg.VerifyPath = "  "

	out := cfg.normalize()
	if out.Store.MaxLifetime != maxStoreLifetime {
		t.Fatalf("expected store lifetime clamped to %v, got %v", maxStoreLifetime, out.Store.MaxLifetime)
	}
	if out.Renewal.InitialBackoff != time.Second || out.Renewal.MaxBackoff != 4*time.Second {
		t.Fatalf("expected backoff defaults restored, got %+v", out.Renewal)
	}
	if out.VerifyPath != "/auth/verify" {
		t.Fatalf("expected default verify path, got %q", out.VerifyPath)
	}
}
