package handler

import (
	"context"
	"encoding/json"

	"github.com/mcpcore/mcpcore-go/internal/connection"
	"github.com/mcpcore/mcpcore-go/internal/mcperr"
	"github.com/mcpcore/mcpcore-go/pkg/jsonrpc"
)

// ResourcesList iterates every registered ResourceProvider and concatenates
// their listings.
func (d *Deps) ResourcesList(ctx context.Context, conn *connection.Connection, msg *jsonrpc.Message) (json.RawMessage, error) {
	var out []ResourceDescriptor
	for _, p := range d.Resources.Providers() {
		items, err := p.List(ctx)
		if err != nil {
			return nil, mcperr.Wrap(mcperr.TypeInternalError, "resource provider listing failed", err)
		}
		for _, r := range items {
			out = append(out, ResourceDescriptor{URI: r.URI, Name: r.Name, Description: r.Description})
		}
	}
	if out == nil {
		out = []ResourceDescriptor{}
	}
	return json.Marshal(ResourcesListResult{Resources: out})
}

// ResourcesRead enforces root boundaries, then asks each provider in turn
// to read uri, returning the first successful match.
func (d *Deps) ResourcesRead(ctx context.Context, conn *connection.Connection, msg *jsonrpc.Message) (json.RawMessage, error) {
	var params ResourcesReadParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil, mcperr.Wrap(mcperr.TypeInvalidParams, "invalid resources/read params", err)
	}

	if err := d.Roots.Validate(params.URI); err != nil {
		return nil, mcperr.Wrap(mcperr.TypeResourceAccessDenied, "uri is outside all configured roots", err)
	}

	var lastErr error
	for _, p := range d.Resources.Providers() {
		content, err := p.Read(ctx, params.URI)
		if err != nil {
			lastErr = err
			continue
		}
		return json.Marshal(ResourcesReadResult{Contents: []ResourceContentBlock{
			{URI: content.URI, MimeType: content.MimeType, Text: content.Text, Blob: content.Blob},
		}})
	}
	if lastErr != nil {
		return nil, mcperr.Wrap(mcperr.TypeResourceNotFound, "resource not found", lastErr)
	}
	return nil, mcperr.Newf(mcperr.TypeResourceNotFound, "no provider produced uri %q", params.URI)
}

// ResourcesSubscribe records uri in the connection's subscription set.
func (d *Deps) ResourcesSubscribe(ctx context.Context, conn *connection.Connection, msg *jsonrpc.Message) (json.RawMessage, error) {
	var params ResourcesSubscribeParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil, mcperr.Wrap(mcperr.TypeInvalidParams, "invalid resources/subscribe params", err)
	}
	conn.Subscribe(params.URI)
	return json.RawMessage(`{}`), nil
}

// ResourcesUnsubscribe removes uri from the connection's subscription set.
// After this returns, no further notifications/resources/updated for uri
// are delivered to conn.
func (d *Deps) ResourcesUnsubscribe(ctx context.Context, conn *connection.Connection, msg *jsonrpc.Message) (json.RawMessage, error) {
	var params ResourcesSubscribeParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil, mcperr.Wrap(mcperr.TypeInvalidParams, "invalid resources/unsubscribe params", err)
	}
	conn.Unsubscribe(params.URI)
	return json.RawMessage(`{}`), nil
}
