package handler

import (
	"context"
	"encoding/json"

	"github.com/mcpcore/mcpcore-go/internal/connection"
	"github.com/mcpcore/mcpcore-go/pkg/jsonrpc"
)

// Cancel handles $/cancelRequest: looks up the target id in the router's
// in-flight table and cancels it. Absent ids are silently ignored, since
// this is always dispatched as a notification and has no response to
// carry an error on.
func (d *Deps) Cancel(ctx context.Context, conn *connection.Connection, msg *jsonrpc.Message) (json.RawMessage, error) {
	var params CancelParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil, nil
	}
	d.Router.Cancel(conn.ID, params.ID)
	return nil, nil
}
