package handler

import (
	"context"
	"encoding/json"

	"github.com/mcpcore/mcpcore-go/internal/connection"
	"github.com/mcpcore/mcpcore-go/internal/mcperr"
	"github.com/mcpcore/mcpcore-go/internal/notify"
	"github.com/mcpcore/mcpcore-go/pkg/jsonrpc"
)

// LoggingSetLevel parses and records the connection's minimum log level;
// subsequent notifications/message emissions are filtered against it.
func (d *Deps) LoggingSetLevel(ctx context.Context, conn *connection.Connection, msg *jsonrpc.Message) (json.RawMessage, error) {
	var params LoggingSetLevelParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil, mcperr.Wrap(mcperr.TypeInvalidParams, "invalid logging/setLevel params", err)
	}
	level, ok := notify.ParseLevel(params.Level)
	if !ok {
		return nil, mcperr.Newf(mcperr.TypeInvalidParams, "unknown log level %q", params.Level)
	}
	conn.SetMinLogLevel(string(level))
	return json.RawMessage(`{}`), nil
}
