package handler

import (
	"context"
	"encoding/json"

	"github.com/mcpcore/mcpcore-go/internal/connection"
	"github.com/mcpcore/mcpcore-go/internal/mcperr"
	"github.com/mcpcore/mcpcore-go/pkg/jsonrpc"
)

// PromptsList iterates every registered PromptProvider and concatenates
// their listings.
func (d *Deps) PromptsList(ctx context.Context, conn *connection.Connection, msg *jsonrpc.Message) (json.RawMessage, error) {
	var out []PromptDescriptor
	for _, p := range d.Prompts.Providers() {
		items, err := p.List(ctx)
		if err != nil {
			return nil, mcperr.Wrap(mcperr.TypeInternalError, "prompt provider listing failed", err)
		}
		for _, pr := range items {
			args := make([]PromptArgumentDescriptor, 0, len(pr.Arguments))
			for _, a := range pr.Arguments {
				args = append(args, PromptArgumentDescriptor{Name: a.Name, Description: a.Description, Required: a.Required})
			}
			out = append(out, PromptDescriptor{Name: pr.Name, Description: pr.Description, Arguments: args})
		}
	}
	if out == nil {
		out = []PromptDescriptor{}
	}
	return json.Marshal(PromptsListResult{Prompts: out})
}

// PromptsGet renders the named prompt, trying each registered provider in
// turn until one succeeds.
func (d *Deps) PromptsGet(ctx context.Context, conn *connection.Connection, msg *jsonrpc.Message) (json.RawMessage, error) {
	var params PromptsGetParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil, mcperr.Wrap(mcperr.TypeInvalidParams, "invalid prompts/get params", err)
	}

	var lastErr error
	for _, p := range d.Prompts.Providers() {
		rendered, err := p.Render(ctx, params.Name, params.Arguments)
		if err != nil {
			lastErr = err
			continue
		}
		messages := make([]PromptMessageBlock, 0, len(rendered.Messages))
		for _, m := range rendered.Messages {
			messages = append(messages, PromptMessageBlock{Role: m.Role, Content: m.Content})
		}
		return json.Marshal(PromptsGetResult{Description: rendered.Description, Messages: messages})
	}
	if lastErr != nil {
		return nil, mcperr.Wrap(mcperr.TypeInvalidParams, "prompt not found", lastErr)
	}
	return nil, mcperr.Newf(mcperr.TypeInvalidParams, "no provider produced prompt %q", params.Name)
}
