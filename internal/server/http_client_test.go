package server

import (
	"testing"
	"time"

	"github.com/checkup/checkup/internal/config"
)

func TestNewUpstreamClientUsesConfiguredTimeout(t *testing.T) {
	cfg := &config.Config{}
	cfg.Global.UpstreamTimeout = config.Duration(5 * time.Second)

	client := NewUpstreamClient(cfg)
	if client.Timeout != 5*time.Second {
		t.Fatalf("Timeout = %v, 期望 5s", client.Timeout)
	}
}

func TestNewUpstreamClientDefaultsWithoutConfig(t *testing.T) {
	client := NewUpstreamClient(nil)
	if client.Timeout != 30*time.Second {
		t.Fatalf("Timeout = %v, 期望 30s", client.Timeout)
	}
	if client.Transport == nil {
		t.Fatalf("Transport 不应为空")
	}
}
