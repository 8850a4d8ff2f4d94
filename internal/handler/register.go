package handler

import "github.com/mcpcore/mcpcore-go/internal/router"

// Register binds every method handler to r.
func Register(r *router.Router, d *Deps) {
	r.Handle("initialize", d.Initialize)
	r.Handle("initialized", d.Initialized)
	r.Handle("ping", d.Ping)
	r.Handle("$/cancelRequest", d.Cancel)
	r.Handle("cancel", d.Cancel)

	r.Handle("tools/list", d.ToolsList)
	r.Handle("tools/call", d.ToolsCall)

	r.Handle("resources/list", d.ResourcesList)
	r.Handle("resources/read", d.ResourcesRead)
	r.Handle("resources/subscribe", d.ResourcesSubscribe)
	r.Handle("resources/unsubscribe", d.ResourcesUnsubscribe)

	r.Handle("prompts/list", d.PromptsList)
	r.Handle("prompts/get", d.PromptsGet)

	r.Handle("logging/setLevel", d.LoggingSetLevel)
	r.Handle("roots/list", d.RootsList)
	r.Handle("completion/complete", d.CompletionComplete)
}
