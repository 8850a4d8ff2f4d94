// Package port defines the Go interfaces through which the core engine
// consumes capability providers and authenticators, and through which a
// host drives the engine over a transport. These are the only contracts
// external collaborators must satisfy; concrete transports, tool
// implementations, and authenticators live outside this module.
package port

import (
	"context"

	"github.com/mcpcore/mcpcore-go/internal/auth"
	"github.com/mcpcore/mcpcore-go/internal/registry"
)

// ContentBlock is one unit of a tool execution result.
type ContentBlock struct {
	Type string // "text", "image", "resource"
	Text string
	Data string // base64-encoded binary payload, when Type != "text"
}

// ToolResult is the outcome of executing a Tool.
type ToolResult struct {
	Content []ContentBlock
	IsError bool
}

// ProgressReporter lets a long-running Tool report incremental progress
// against the token piggybacked on its invocation, if any.
type ProgressReporter interface {
	Report(progress, total float64, message string)
}

// Tool is a capability provider executing a named operation.
type Tool interface {
	Name() string
	Description() string
	Schema() registry.Schema
	Execute(ctx context.Context, args map[string]any, progress ProgressReporter) (ToolResult, error)
}

// Authenticator validates inbound credentials for a named scheme and
// resolves a Principal on success.
type Authenticator interface {
	Authenticate(ctx context.Context, scheme string, credentials []byte) (*auth.Principal, error)
}
