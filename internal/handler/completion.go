package handler

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mcpcore/mcpcore-go/internal/connection"
	"github.com/mcpcore/mcpcore-go/internal/mcperr"
	"github.com/mcpcore/mcpcore-go/pkg/jsonrpc"
)

// CompletionComplete produces candidate completions for a prompt argument
// name or a resource uri, depending on the reference type.
func (d *Deps) CompletionComplete(ctx context.Context, conn *connection.Connection, msg *jsonrpc.Message) (json.RawMessage, error) {
	var params CompletionCompleteParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil, mcperr.Wrap(mcperr.TypeInvalidParams, "invalid completion/complete params", err)
	}

	var values []string
	switch params.Ref.Type {
	case "ref/prompt":
		values = d.completePromptArgument(ctx, params.Ref.Name, params.Argument.Value)
	case "ref/resource":
		values = d.completeResourceURI(ctx, params.Argument.Value)
	default:
		return nil, mcperr.Newf(mcperr.TypeInvalidParams, "unknown completion reference type %q", params.Ref.Type)
	}

	return json.Marshal(CompletionValues{Completion: CompletionResult{Values: values, Total: len(values)}})
}

// completePromptArgument matches the named prompt's argument names by
// case-insensitive prefix. An empty value matches every argument.
func (d *Deps) completePromptArgument(ctx context.Context, promptName, value string) []string {
	lowValue := strings.ToLower(value)
	for _, p := range d.Prompts.Providers() {
		prompts, err := p.List(ctx)
		if err != nil {
			continue
		}
		for _, pr := range prompts {
			if pr.Name != promptName {
				continue
			}
			var out []string
			for _, arg := range pr.Arguments {
				if value == "" || strings.HasPrefix(strings.ToLower(arg.Name), lowValue) {
					out = append(out, arg.Name)
				}
			}
			return out
		}
	}
	return nil
}

// completeResourceURI matches any provider's resource uris by
// case-insensitive substring of value.
func (d *Deps) completeResourceURI(ctx context.Context, value string) []string {
	lowValue := strings.ToLower(value)
	var out []string
	for _, p := range d.Resources.Providers() {
		resources, err := p.List(ctx)
		if err != nil {
			continue
		}
		for _, r := range resources {
			if strings.Contains(strings.ToLower(r.URI), lowValue) {
				out = append(out, r.URI)
			}
		}
	}
	return out
}
