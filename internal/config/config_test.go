package config

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerPort != "9090" {
		t.Fatalf("expected port from env, got %q", cfg.ServerPort)
	}
	if cfg.WSSendBuffer != 256 {
		t.Fatalf("expected default send buffer 256, got %d", cfg.WSSendBuffer)
	}
	if cfg.TranscriptRetention != 50 {
		t.Fatalf("expected default retention 50, got %d", cfg.TranscriptRetention)
	}
	if cfg.RateLimitWindow != time.Minute {
		t.Fatalf("expected 1m rate window, got %v", cfg.RateLimitWindow)
	}
	if cfg.NATSEventSubjectPrefix != "tracker.events" {
		t.Fatalf("unexpected subject prefix %q", cfg.NATSEventSubjectPrefix)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("WS_ORIGIN_PATTERNS", "dashboard.example.com,*.example.org")
	t.Setenv("WS_PING_INTERVAL", "0s")
	t.Setenv("DAILY_RESET_LOCATION", "UTC")
	t.Setenv("NATS_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{"dashboard.example.com", "*.example.org"}
	if !reflect.DeepEqual(cfg.WSOriginPatterns, want) {
		t.Fatalf("origin patterns = %v, want %v", cfg.WSOriginPatterns, want)
	}
	if cfg.WSPingInterval != 0 {
		t.Fatalf("expected ping disabled, got %v", cfg.WSPingInterval)
	}
	if !cfg.NATSEnabled {
		t.Fatalf("expected NATS enabled")
	}

	loc, err := cfg.ResetLocation()
	if err != nil || loc != time.UTC {
		t.Fatalf("expected UTC location, got %v (%v)", loc, err)
	}
}

func TestLoadRejectsDefaultSecretInProduction(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET error, got %v", err)
	}

	t.Setenv("ENV", "development")
	os.Unsetenv("JWT_SECRET")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("development load: %v", err)
	}
	if cfg.JWTSecret != DefaultJWTSecret {
		t.Fatalf("default secret drifted from envconfig tag: %q", cfg.JWTSecret)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("WS_WRITE_TIMEOUT", "soon")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unparseable duration")
	}
}

func TestValidate(t *testing.T) {
	valid := Config{WSSendBuffer: 8, TranscriptRetention: 0, DailyResetLocation: "UTC"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero send buffer", func(c *Config) { c.WSSendBuffer = 0 }, "WS_SEND_BUFFER"},
		{"negative retention", func(c *Config) { c.TranscriptRetention = -1 }, "TRANSCRIPT_RETENTION"},
		{"unknown zone", func(c *Config) { c.DailyResetLocation = "Mars/Olympus_Mons" }, "DAILY_RESET_LOCATION"},
		{"default secret in production", func(c *Config) { c.Env = "production"; c.JWTSecret = DefaultJWTSecret }, "JWT_SECRET"},
		{"twilio validation without token", func(c *Config) { c.TwilioValidateWebhooks = true }, "TWILIO_AUTH_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}
}
