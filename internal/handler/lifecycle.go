package handler

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mcpcore/mcpcore-go/internal/connection"
	"github.com/mcpcore/mcpcore-go/internal/mcperr"
	"github.com/mcpcore/mcpcore-go/internal/version"
	"github.com/mcpcore/mcpcore-go/pkg/jsonrpc"
)

// Initialize handles the initialize request: negotiates protocol version,
// records client capabilities, and returns server info and capabilities.
func (d *Deps) Initialize(ctx context.Context, conn *connection.Connection, msg *jsonrpc.Message) (json.RawMessage, error) {
	var params InitializeParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return nil, mcperr.Wrap(mcperr.TypeInvalidParams, "invalid initialize params", err)
		}
	}

	negotiated, err := d.Negotiator.Negotiate(params.ProtocolVersion)
	if err != nil {
		mcpErr := mcperr.Wrap(mcperr.TypeProtocolVersionUnsupported, "unsupported protocol version", err)
		var unsupported *version.ErrUnsupportedVersion
		if errors.As(err, &unsupported) {
			mcpErr = mcpErr.WithData(map[string]any{"supported": unsupported.Supported})
		}
		return nil, mcpErr
	}

	conn.SetClientInfo(connection.ClientInfo{Name: params.ClientInfo.Name, Version: params.ClientInfo.Version})
	conn.SetNegotiatedVersion(negotiated)
	conn.SetSamplingCapable(params.Capabilities.HasSampling())

	if err := conn.Transition(connection.Initialized); err != nil {
		return nil, mcperr.Wrap(mcperr.TypeInternalError, "failed to transition connection", err)
	}

	result := InitializeResult{
		ProtocolVersion: negotiated,
		Capabilities:    d.Capabilities,
		ServerInfo:      d.ServerInfo,
	}
	return json.Marshal(result)
}

// Initialized handles the initialized notification: flips the connection
// to Ready. Returns nil always, since notifications never produce a
// response; a failed transition is logged by the caller's discretion, not
// surfaced (there is nowhere to surface it to).
func (d *Deps) Initialized(ctx context.Context, conn *connection.Connection, msg *jsonrpc.Message) (json.RawMessage, error) {
	_ = conn.Transition(connection.Ready)
	return nil, nil
}

// Ping returns an empty result and refreshes the connection's activity
// timestamp.
func (d *Deps) Ping(ctx context.Context, conn *connection.Connection, msg *jsonrpc.Message) (json.RawMessage, error) {
	conn.Touch()
	return json.RawMessage(`{}`), nil
}
