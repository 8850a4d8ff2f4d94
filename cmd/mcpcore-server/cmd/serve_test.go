package cmd

import (
	"testing"

	"github.com/mcpcore/mcpcore-go/internal/config"
	"github.com/mcpcore/mcpcore-go/internal/engine"
	"github.com/mcpcore/mcpcore-go/internal/handler"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	cfg := &config.Config{}
	cfg.SetDefaults()

	eng, err := engine.New(engine.Options{
		Config: cfg,
		ServerInfo: handler.ServerInfo{
			Name:    "test-server",
			Version: "0.0.0",
		},
		Capabilities: handler.ServerCapabilities{
			Tools:     &handler.ListChangedCapability{ListChanged: true},
			Resources: &handler.ResourcesCapability{ListChanged: true},
			Prompts:   &handler.ListChangedCapability{ListChanged: true},
			Roots:     &handler.ListChangedCapability{ListChanged: true},
		},
	})
	if err != nil {
		t.Fatalf("engine.New() error = %v", err)
	}
	return eng
}

func TestServeCmd_Registered(t *testing.T) {
	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "serve" {
			found = true
			break
		}
	}
	if !found {
		t.Error("serve command not registered with rootCmd")
	}
}

func TestServeCmd_FlagDefaults(t *testing.T) {
	dev, err := serveCmd.Flags().GetBool("dev")
	if err != nil {
		t.Fatalf("failed to get dev flag: %v", err)
	}
	if dev {
		t.Error("dev default = true, want false")
	}

	addr, err := serveCmd.Flags().GetString("metrics-addr")
	if err != nil {
		t.Fatalf("failed to get metrics-addr flag: %v", err)
	}
	if addr != "" {
		t.Errorf("metrics-addr default = %q, want empty", addr)
	}

	tracing, err := serveCmd.Flags().GetBool("tracing")
	if err != nil {
		t.Fatalf("failed to get tracing flag: %v", err)
	}
	if tracing {
		t.Error("tracing default = true, want false")
	}
}

func TestRegisterDemoProviders(t *testing.T) {
	eng := newTestEngine(t)
	if err := registerDemoProviders(eng); err != nil {
		t.Fatalf("registerDemoProviders() error = %v", err)
	}
	if err := registerDemoProviders(eng); err == nil {
		t.Fatal("second registerDemoProviders() error = nil, want duplicate registration error")
	}
}
