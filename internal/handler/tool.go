package handler

import (
	"context"
	"encoding/json"

	"github.com/mcpcore/mcpcore-go/internal/connection"
	"github.com/mcpcore/mcpcore-go/internal/mcperr"
	"github.com/mcpcore/mcpcore-go/internal/port"
	"github.com/mcpcore/mcpcore-go/internal/registry"
	"github.com/mcpcore/mcpcore-go/pkg/jsonrpc"
)

// ToolsList enumerates the registered tools.
func (d *Deps) ToolsList(ctx context.Context, conn *connection.Connection, msg *jsonrpc.Message) (json.RawMessage, error) {
	tools := d.Tools.Registry().List()
	out := make([]ToolDescriptor, 0, len(tools))
	for _, t := range tools {
		out = append(out, ToolDescriptor{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schemaToJSONSchema(t.Schema),
		})
	}
	return json.Marshal(ToolsListResult{Tools: out})
}

// schemaToJSONSchema renders a registry.Schema as a plain JSON Schema
// object for the wire, for clients that expect the standard shape.
func schemaToJSONSchema(s registry.Schema) map[string]any {
	props := make(map[string]any, len(s.Properties))
	for name, p := range s.Properties {
		props[name] = map[string]any{"type": p.Type}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             s.Required,
		"additionalProperties": s.AdditionalProperties,
	}
}

type progressReporter struct {
	deps  *Deps
	token string
}

func (r progressReporter) Report(progress, total float64, message string) {
	if r.token == "" {
		return
	}
	if !r.deps.Progress.Update(r.token, progress, total, message) {
		return
	}
	_ = r.deps.Notify.Broadcast("notifications/progress", map[string]any{
		"progressToken": r.token,
		"progress":      progress,
		"total":         total,
		"message":       message,
	}, "")
}

// ToolsCall locates a tool, validates its arguments against the declared
// schema, and executes it, piggybacking a progress token when supplied.
func (d *Deps) ToolsCall(ctx context.Context, conn *connection.Connection, msg *jsonrpc.Message) (json.RawMessage, error) {
	var params ToolsCallParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil, mcperr.Wrap(mcperr.TypeInvalidParams, "invalid tools/call params", err)
	}

	tool, ok := d.Tools.Executor(params.Name)
	if !ok {
		return nil, mcperr.Newf(mcperr.TypeToolNotFound, "tool %q is not registered", params.Name)
	}

	args, err := registry.DecodeArguments(params.Arguments)
	if err != nil {
		return nil, mcperr.Wrap(mcperr.TypeInvalidParams, "invalid tool arguments", err)
	}

	if issues := tool.Schema().Validate(args); len(issues) > 0 {
		return nil, mcperr.InvalidParams(toValidationIssues(issues))
	}

	var token string
	if params.Meta != nil {
		token = params.Meta.ProgressToken
	}
	if token != "" {
		d.Progress.Begin(token)
		cancelCtx, cancel := context.WithCancel(ctx)
		d.Cancel.Register(token, cancel)
		defer d.Cancel.Unregister(token)
		ctx = cancelCtx
		defer d.Progress.Complete(token)
	}

	result, err := tool.Execute(ctx, args, progressReporter{deps: d, token: token})
	if err != nil {
		if ctx.Err() != nil {
			return nil, mcperr.New(mcperr.TypeOperationCancelled, "tool execution was cancelled")
		}
		return nil, mcperr.Wrap(mcperr.TypeInternalError, "tool execution failed", err)
	}

	return json.Marshal(toolResultToWire(result))
}

func toolResultToWire(r port.ToolResult) ToolsCallResult {
	blocks := make([]ContentBlock, 0, len(r.Content))
	for _, c := range r.Content {
		blocks = append(blocks, ContentBlock{Type: c.Type, Text: c.Text, Data: c.Data})
	}
	return ToolsCallResult{Content: blocks, IsError: r.IsError}
}

func toValidationIssues(in []registry.ValidationError) []mcperr.ValidationIssue {
	out := make([]mcperr.ValidationIssue, 0, len(in))
	for _, v := range in {
		out = append(out, mcperr.ValidationIssue{Path: v.Path, Message: v.Message, Code: v.Code})
	}
	return out
}
