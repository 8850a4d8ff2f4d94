// Package demo provides in-memory tool, resource, and prompt providers
// that exercise the engine's registries without any external dependency,
// for the reference mcpcore-server host.
package demo

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mcpcore/mcpcore-go/internal/port"
	"github.com/mcpcore/mcpcore-go/internal/registry"
)

// EchoTool returns its input arguments back as text, reporting progress at
// the halfway point when a progress reporter is attached.
type EchoTool struct{}

func (EchoTool) Name() string        { return "echo" }
func (EchoTool) Description() string { return "Echoes the provided message argument back to the caller." }
func (EchoTool) Schema() registry.Schema {
	return registry.Schema{
		Properties: map[string]registry.PropertySchema{
			"message": {Type: "string"},
		},
		Required: []string{"message"},
	}
}

func (EchoTool) Execute(ctx context.Context, args map[string]any, progress port.ProgressReporter) (port.ToolResult, error) {
	message, _ := args["message"].(string)
	if progress != nil {
		progress.Report(0.5, 1, "echoing")
	}
	return port.ToolResult{
		Content: []port.ContentBlock{{Type: "text", Text: message}},
	}, nil
}

// WordCountTool counts words in its input text.
type WordCountTool struct{}

func (WordCountTool) Name() string        { return "word_count" }
func (WordCountTool) Description() string { return "Counts the whitespace-delimited words in the provided text." }
func (WordCountTool) Schema() registry.Schema {
	return registry.Schema{
		Properties: map[string]registry.PropertySchema{
			"text": {Type: "string"},
		},
		Required: []string{"text"},
	}
}

func (WordCountTool) Execute(ctx context.Context, args map[string]any, progress port.ProgressReporter) (port.ToolResult, error) {
	text, _ := args["text"].(string)
	count := len(strings.Fields(text))
	return port.ToolResult{
		Content: []port.ContentBlock{{Type: "text", Text: fmt.Sprintf("%d", count)}},
	}, nil
}

var _ port.Tool = EchoTool{}
var _ port.Tool = WordCountTool{}

// MemoResourceProvider serves a small in-memory key/value document store
// under the "memo://" URI scheme.
type MemoResourceProvider struct {
	mu    sync.RWMutex
	memos map[string]string
}

// NewMemoResourceProvider seeds the provider with initial memos.
func NewMemoResourceProvider(seed map[string]string) *MemoResourceProvider {
	memos := make(map[string]string, len(seed))
	for k, v := range seed {
		memos[k] = v
	}
	return &MemoResourceProvider{memos: memos}
}

func (p *MemoResourceProvider) Name() string { return "memos" }

func (p *MemoResourceProvider) List(ctx context.Context) ([]registry.Resource, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]registry.Resource, 0, len(p.memos))
	for k := range p.memos {
		out = append(out, registry.Resource{URI: "memo://" + k, Name: k})
	}
	return out, nil
}

func (p *MemoResourceProvider) Read(ctx context.Context, uri string) (registry.ResourceContent, error) {
	key := strings.TrimPrefix(uri, "memo://")
	p.mu.RLock()
	text, ok := p.memos[key]
	p.mu.RUnlock()
	if !ok {
		return registry.ResourceContent{}, fmt.Errorf("demo: no memo at %q", uri)
	}
	return registry.ResourceContent{URI: uri, MimeType: "text/plain", Text: text}, nil
}

// Put sets a memo's content, for host-side seeding or test setup.
func (p *MemoResourceProvider) Put(key, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.memos[key] = text
}

var _ registry.ResourceProvider = (*MemoResourceProvider)(nil)

// GreetingPromptProvider renders a single parameterized greeting prompt.
type GreetingPromptProvider struct{}

func (GreetingPromptProvider) Name() string { return "greetings" }

func (GreetingPromptProvider) List(ctx context.Context) ([]registry.Prompt, error) {
	return []registry.Prompt{
		{
			Name:        "greet",
			Description: "Greets the named person.",
			Arguments: []registry.PromptArgument{
				{Name: "name", Description: "Who to greet", Required: true},
			},
		},
	}, nil
}

func (GreetingPromptProvider) Render(ctx context.Context, name string, args map[string]string) (registry.RenderedPrompt, error) {
	if name != "greet" {
		return registry.RenderedPrompt{}, fmt.Errorf("demo: unknown prompt %q", name)
	}
	who := args["name"]
	if who == "" {
		who = "there"
	}
	return registry.RenderedPrompt{
		Messages: []registry.PromptMessage{
			{Role: "user", Content: "Hello, " + who + "!"},
		},
	}, nil
}

var _ registry.PromptProvider = GreetingPromptProvider{}
