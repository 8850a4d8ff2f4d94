// Package cmd provides the CLI commands for mcpcore-server.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcpcore/mcpcore-go/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "mcpcore-server",
	Short: "mcpcore-server - reference MCP engine host",
	Long: `mcpcore-server hosts the transport-agnostic MCP engine over stdio.

It demonstrates wiring the engine's connection manager, router, method
handlers, rate limiter, and claims-based authorization with a minimal set
of in-memory tool, resource, and prompt providers.

Configuration is loaded from mcpcore.yaml in the current directory,
$HOME/.mcpcore/, or /etc/mcpcore/. Environment variables override config
values with the MCP_CORE_ prefix, e.g. MCP_CORE_LOGGING_LEVEL=debug.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./mcpcore.yaml)")
	rootCmd.AddCommand(serveCmd)
}

func initConfig() {
	config.InitViper(cfgFile)
}
