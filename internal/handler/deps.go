package handler

import (
	"github.com/mcpcore/mcpcore-go/internal/notify"
	"github.com/mcpcore/mcpcore-go/internal/progress"
	"github.com/mcpcore/mcpcore-go/internal/registry"
	"github.com/mcpcore/mcpcore-go/internal/router"
	"github.com/mcpcore/mcpcore-go/internal/sampling"
	"github.com/mcpcore/mcpcore-go/internal/version"
)

// Deps bundles everything the method handlers need. Built once by the
// host/engine and shared across all connections.
type Deps struct {
	ServerInfo   ServerInfo
	Capabilities ServerCapabilities

	Negotiator *version.Negotiator

	Tools     *ToolSet
	Resources *registry.ResourceRegistry
	Prompts   *registry.PromptRegistry
	Roots     *registry.RootRegistry

	Notify   *notify.Bus
	Progress *progress.Tracker
	Cancel   *progress.CancellationManager
	Sampling *sampling.Caller

	// Router is consulted by Cancel to cancel the in-flight request
	// matching a $/cancelRequest id.
	Router *router.Router
}
