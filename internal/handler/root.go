package handler

import (
	"context"
	"encoding/json"

	"github.com/mcpcore/mcpcore-go/internal/connection"
	"github.com/mcpcore/mcpcore-go/pkg/jsonrpc"
)

// RootsList returns a snapshot of the configured roots.
func (d *Deps) RootsList(ctx context.Context, conn *connection.Connection, msg *jsonrpc.Message) (json.RawMessage, error) {
	roots := d.Roots.List()
	out := make([]RootDescriptor, 0, len(roots))
	for _, r := range roots {
		out = append(out, RootDescriptor{URI: r.URI, Name: r.Name})
	}
	return json.Marshal(RootsListResult{Roots: out})
}
