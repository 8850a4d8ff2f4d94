package registry

import (
	"context"
	"sync"
)

// PromptArgument describes one named input a prompt accepts.
type PromptArgument struct {
	Name        string
	Description string
	Required    bool
}

// Prompt describes a renderable prompt template.
type Prompt struct {
	Name        string
	Description string
	Arguments   []PromptArgument
}

// RenderedPrompt is the materialized output of rendering a Prompt.
type RenderedPrompt struct {
	Description string
	Messages    []PromptMessage
}

// PromptMessage is one message in a rendered prompt's message list.
type PromptMessage struct {
	Role    string
	Content string
}

// PromptProvider lists and renders prompts.
type PromptProvider interface {
	Name() string
	List(ctx context.Context) ([]Prompt, error)
	Render(ctx context.Context, name string, args map[string]string) (RenderedPrompt, error)
}

// PromptRegistry is a thread-safe indexed collection of PromptProviders.
type PromptRegistry struct {
	mu        sync.RWMutex
	providers map[string]PromptProvider
	observers []ProviderObserver
}

// NewPromptRegistry creates an empty PromptRegistry.
func NewPromptRegistry() *PromptRegistry {
	return &PromptRegistry{providers: make(map[string]PromptProvider)}
}

// Register adds a provider keyed by its Name(). Returns
// *ErrDuplicateProvider if the name is already registered.
func (r *PromptRegistry) Register(p PromptProvider) error {
	r.mu.Lock()
	if _, exists := r.providers[p.Name()]; exists {
		r.mu.Unlock()
		return &ErrDuplicateProvider{Name: p.Name()}
	}
	r.providers[p.Name()] = p
	observers := append([]ProviderObserver(nil), r.observers...)
	r.mu.Unlock()

	notifyProvider(observers, ProviderEvent{Kind: EventRegistered, Name: p.Name()})
	return nil
}

// Unregister removes a provider by name. No-op if absent.
func (r *PromptRegistry) Unregister(name string) {
	r.mu.Lock()
	if _, exists := r.providers[name]; !exists {
		r.mu.Unlock()
		return
	}
	delete(r.providers, name)
	observers := append([]ProviderObserver(nil), r.observers...)
	r.mu.Unlock()

	notifyProvider(observers, ProviderEvent{Kind: EventRemoved, Name: name})
}

// Providers returns all registered providers in no particular order.
func (r *PromptRegistry) Providers() []PromptProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PromptProvider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	return out
}

// Observe registers a callback invoked on every future registration event.
func (r *PromptRegistry) Observe(obs ProviderObserver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, obs)
}
