package config

import (
	"strings"
	"testing"
	"time"
)

// valid returns a config with the defaults go-flags would apply.
func valid() *Config {
	return &Config{
		Webhook: Webhook{
			URI:      "https://discord.com/api/webhooks/1/abc",
			Interval: 300 * time.Second,
			Timeout:  10 * time.Second,
		},
		A2S: A2S{
			Host:         "127.0.0.1",
			Port:         27015,
			PollInterval: 15 * time.Second,
		},
		IP:        IP{Port: 27015},
		RateLimit: RateLimit{EventBurst: 3, EventEvery: 10 * time.Second},
	}
}

func TestValidate_OK(t *testing.T) {
	if err := Validate(valid()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing uri", func(c *Config) { c.Webhook.URI = "" }, "HERALD_WEBHOOK_URI"},
		{"bad scheme", func(c *Config) { c.Webhook.URI = "ftp://discord.com/api/webhooks/1/abc" }, "invalid webhook uri"},
		{"short interval", func(c *Config) { c.Webhook.Interval = 10 * time.Millisecond }, "at least 1s"},
		{"bad a2s port", func(c *Config) { c.A2S.Port = 70000 }, "invalid a2s port"},
		{"api without token", func(c *Config) { c.Server.Address = ":8080" }, "HERALD_API_AUTH_TOKEN"},
		{"zero burst", func(c *Config) { c.RateLimit.EventBurst = 0 }, "event burst"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidate_A2SDisabled(t *testing.T) {
	cfg := valid()
	cfg.A2S.Host = ""
	cfg.A2S.Port = 0

	if err := Validate(cfg); err != nil {
		t.Fatalf("disabled a2s must not be validated: %v", err)
	}
}

func TestValidate_RedactsToken(t *testing.T) {
	cfg := valid()
	cfg.Webhook.URI = "ftp://discord.com/api/webhooks/1/secret-token"

	err := Validate(cfg)
	if err == nil || strings.Contains(err.Error(), "secret-token") {
		t.Fatalf("token leaked or no error: %v", err)
	}
}

func TestRedact(t *testing.T) {
	if got := Redact("https://discord.com/api/webhooks/1/abc"); got != "https://discord.com/api/webhooks/1/***" {
		t.Fatalf("got %q", got)
	}
	if got := Redact("plain"); got != "plain" {
		t.Fatalf("got %q", got)
	}
}
