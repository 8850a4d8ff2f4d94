// Package handler implements the per-method request handlers registered
// with the router: initialize, tools/*, resources/*, prompts/*,
// logging/setLevel, roots/list, completion/complete, ping, and
// $/cancelRequest. Each handler consults the capability registries and
// the notification bus rather than owning any state of its own.
package handler

import "encoding/json"

// ClientInfo is the client-reported name/version from initialize.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ClientCapabilities is the subset of client-declared capabilities the
// core acts on directly.
type ClientCapabilities struct {
	Sampling *struct{} `json:"sampling,omitempty"`
}

// HasSampling reports whether the client declared the sampling capability.
func (c ClientCapabilities) HasSampling() bool { return c.Sampling != nil }

// InitializeParams is the decoded params object of an initialize request.
type InitializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      ClientInfo         `json:"clientInfo"`
}

// ListChangedCapability declares whether a registry family emits
// list_changed notifications.
type ListChangedCapability struct {
	ListChanged bool `json:"listChanged"`
}

// ResourcesCapability additionally declares subscribe support.
type ResourcesCapability struct {
	Subscribe   bool `json:"subscribe"`
	ListChanged bool `json:"listChanged"`
}

// ServerCapabilities is what this server declares back during initialize.
type ServerCapabilities struct {
	Tools     *ListChangedCapability `json:"tools,omitempty"`
	Resources *ResourcesCapability   `json:"resources,omitempty"`
	Prompts   *ListChangedCapability `json:"prompts,omitempty"`
	Roots     *ListChangedCapability `json:"roots,omitempty"`
	Logging   *struct{}              `json:"logging,omitempty"`
}

// ServerInfo is this server's reported name/version.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult is the result payload of a successful initialize call.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
}

// ToolsListResult is the result payload of tools/list.
type ToolsListResult struct {
	Tools []ToolDescriptor `json:"tools"`
}

// ToolDescriptor is the wire shape of one registered tool.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema,omitempty"`
}

// ToolsCallParams is the decoded params object of a tools/call request.
type ToolsCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
	Meta      *RequestMeta    `json:"_meta,omitempty"`
}

// RequestMeta carries the optional progress token piggybacked on a request.
type RequestMeta struct {
	ProgressToken string `json:"progressToken,omitempty"`
}

// ContentBlock mirrors port.ContentBlock on the wire.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Data string `json:"data,omitempty"`
}

// ToolsCallResult is the result payload of tools/call.
type ToolsCallResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// ResourcesListResult is the result payload of resources/list.
type ResourcesListResult struct {
	Resources []ResourceDescriptor `json:"resources"`
}

// ResourceDescriptor is the wire shape of one listed resource.
type ResourceDescriptor struct {
	URI         string `json:"uri"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// ResourcesReadParams is the decoded params object of resources/read.
type ResourcesReadParams struct {
	URI string `json:"uri"`
}

// ResourceContentBlock is the wire shape of one resources/read content item.
type ResourceContentBlock struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     []byte `json:"blob,omitempty"`
}

// ResourcesReadResult is the result payload of resources/read.
type ResourcesReadResult struct {
	Contents []ResourceContentBlock `json:"contents"`
}

// ResourcesSubscribeParams is the decoded params object of
// resources/subscribe and resources/unsubscribe.
type ResourcesSubscribeParams struct {
	URI string `json:"uri"`
}

// PromptsListResult is the result payload of prompts/list.
type PromptsListResult struct {
	Prompts []PromptDescriptor `json:"prompts"`
}

// PromptDescriptor is the wire shape of one listed prompt.
type PromptDescriptor struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description,omitempty"`
	Arguments   []PromptArgumentDescriptor `json:"arguments,omitempty"`
}

// PromptArgumentDescriptor is the wire shape of one prompt argument.
type PromptArgumentDescriptor struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// PromptsGetParams is the decoded params object of prompts/get.
type PromptsGetParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

// PromptMessageBlock is the wire shape of one rendered prompt message.
type PromptMessageBlock struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PromptsGetResult is the result payload of prompts/get.
type PromptsGetResult struct {
	Description string               `json:"description,omitempty"`
	Messages    []PromptMessageBlock `json:"messages"`
}

// RootsListResult is the result payload of roots/list.
type RootsListResult struct {
	Roots []RootDescriptor `json:"roots"`
}

// RootDescriptor is the wire shape of one configured root.
type RootDescriptor struct {
	URI  string `json:"uri"`
	Name string `json:"name,omitempty"`
}

// LoggingSetLevelParams is the decoded params object of logging/setLevel.
type LoggingSetLevelParams struct {
	Level string `json:"level"`
}

// CompletionReference identifies what a completion/complete call is
// completing against.
type CompletionReference struct {
	Type string `json:"type"` // "ref/prompt" or "ref/resource"
	Name string `json:"name"`
}

// CompletionArgument is the partial argument being completed.
type CompletionArgument struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CompletionCompleteParams is the decoded params object of completion/complete.
type CompletionCompleteParams struct {
	Ref      CompletionReference `json:"ref"`
	Argument CompletionArgument  `json:"argument"`
}

// CompletionValues is the result payload of completion/complete.
type CompletionValues struct {
	Completion CompletionResult `json:"completion"`
}

// CompletionResult carries the candidate completion values.
type CompletionResult struct {
	Values  []string `json:"values"`
	Total   int      `json:"total,omitempty"`
	HasMore bool     `json:"hasMore,omitempty"`
}

// CancelParams is the decoded params object of $/cancelRequest.
type CancelParams struct {
	ID json.RawMessage `json:"id"`
}
