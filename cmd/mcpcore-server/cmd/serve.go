package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/mcpcore/mcpcore-go/internal/config"
	"github.com/mcpcore/mcpcore-go/internal/demo"
	"github.com/mcpcore/mcpcore-go/internal/engine"
	"github.com/mcpcore/mcpcore-go/internal/handler"
	"github.com/mcpcore/mcpcore-go/internal/obslog"
	"github.com/mcpcore/mcpcore-go/internal/obsmetrics"
	"github.com/mcpcore/mcpcore-go/internal/obstrace"
	"github.com/mcpcore/mcpcore-go/internal/transport"
)

var (
	devMode    bool
	metricsAddr string
	tracingOn  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the engine over stdio",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&devMode, "dev", false, "enable permissive dev defaults and debug logging")
	serveCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus /metrics on (empty disables)")
	serveCmd.Flags().BoolVar(&tracingOn, "tracing", false, "enable stdout OpenTelemetry tracing/metrics export")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if devMode {
		cfg.DevMode = true
	}
	cfg.SetDevDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	logger := obslog.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registerer := prometheus.NewRegistry()
	metrics := obsmetrics.New(registerer)

	telemetry, err := obstrace.New(ctx, obstrace.Config{
		Enabled:        tracingOn,
		ServiceName:    "mcpcore-server",
		ServiceVersion: serverVersion,
	})
	if err != nil {
		logger.Warn("telemetry initialization degraded", "error", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown error", "error", err)
		}
	}()

	var metricsServer *http.Server
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registerer, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	eng, err := engine.New(engine.Options{
		Config: cfg,
		ServerInfo: handler.ServerInfo{
			Name:    "mcpcore-server",
			Version: serverVersion,
		},
		Capabilities: handler.ServerCapabilities{
			Tools:     &handler.ListChangedCapability{ListChanged: true},
			Resources: &handler.ResourcesCapability{ListChanged: true},
			Prompts:   &handler.ListChangedCapability{ListChanged: true},
			Roots:     &handler.ListChangedCapability{ListChanged: true},
			Logging:   &struct{}{},
		},
		Logger:  logger,
		Metrics: metrics,
		Tracer:  telemetry.Tracer("mcpcore"),
	})
	if err != nil {
		return fmt.Errorf("constructing engine: %w", err)
	}

	if err := registerDemoProviders(eng); err != nil {
		return fmt.Errorf("registering demo providers: %w", err)
	}
	eng.Start(ctx)

	stdio := transport.NewStdio(os.Stdin, os.Stdout)
	if _, err := eng.AcceptConnection(ctx, stdio); err != nil {
		return fmt.Errorf("accepting stdio connection: %w", err)
	}

	logger.Info("mcpcore-server ready", "dev_mode", cfg.DevMode)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := eng.Shutdown(shutdownCtx); err != nil {
		logger.Warn("engine shutdown error", "error", err)
	}
	_ = stdio.Close()

	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}

	return nil
}

func registerDemoProviders(eng *engine.Engine) error {
	if err := eng.Tools.Register(demo.EchoTool{}); err != nil {
		return err
	}
	if err := eng.Tools.Register(demo.WordCountTool{}); err != nil {
		return err
	}
	if err := eng.Resources.Register(demo.NewMemoResourceProvider(map[string]string{
		"welcome": "Welcome to mcpcore-server.",
	})); err != nil {
		return err
	}
	if err := eng.Prompts.Register(demo.GreetingPromptProvider{}); err != nil {
		return err
	}
	return nil
}

const serverVersion = "0.1.0"
