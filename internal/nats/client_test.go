package nats

import (
	"context"
	"strings"
	"testing"

	"github.com/jpisa-a11y/time-and-attention-ai/pkg/logger"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"ok", Config{URL: "nats://localhost:4222"}, ""},
		{"tls", Config{URL: "tls://nats:4222", CAFile: "ca.pem", CertFile: "c.pem", KeyFile: "k.pem"}, ""},
		{"missing url", Config{}, "url"},
		{"cert without key", Config{URL: "nats://x", CertFile: "c.pem"}, "cert and key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConnectOptionsGrowWithCredentials(t *testing.T) {
	log := logger.NewNop()
	base := len(connectOptions(Config{URL: "nats://x"}, log))
	full := len(connectOptions(Config{URL: "nats://x", Token: "t", CAFile: "ca", CertFile: "c", KeyFile: "k"}, log))
	if full != base+3 {
		t.Fatalf("expected token, root CA and client cert options, got %d extra", full-base)
	}
}

func TestConnectRejectsInvalidConfig(t *testing.T) {
	if _, err := Connect(context.Background(), Config{}, logger.NewNop()); err == nil {
		t.Fatalf("expected error for empty config")
	}
}

func TestCloseWithoutConnection(t *testing.T) {
	c := &Client{logger: logger.NewNop()}
	c.Close()
	if c.IsConnected() {
		t.Fatalf("nil connection reported connected")
	}
}
