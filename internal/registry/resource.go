package registry

import (
	"context"
	"fmt"
	"sync"
)

// Resource describes one item a ResourceProvider can produce.
type Resource struct {
	URI         string
	Name        string
	Description string
}

// ResourceContent is the materialized content of a Resource read.
type ResourceContent struct {
	URI      string
	MimeType string
	Text     string
	Blob     []byte
}

// ResourceChangedEvent is emitted by a subscription-capable provider when a
// subscribed resource's content changes.
type ResourceChangedEvent struct {
	URI string
}

// ResourceProvider lists and reads resources, optionally supporting
// subscription to change notifications.
type ResourceProvider interface {
	Name() string
	List(ctx context.Context) ([]Resource, error)
	Read(ctx context.Context, uri string) (ResourceContent, error)
}

// SubscribableResourceProvider is implemented by providers that can push
// ResourceChangedEvent notifications for subscribed URIs.
type SubscribableResourceProvider interface {
	ResourceProvider
	Subscribe(ctx context.Context, uri string, onChange func(ResourceChangedEvent)) (unsubscribe func(), err error)
}

// ErrDuplicateProvider is returned by Register when a provider name already exists.
type ErrDuplicateProvider struct{ Name string }

func (e *ErrDuplicateProvider) Error() string {
	return fmt.Sprintf("provider %q is already registered", e.Name)
}

// ProviderEvent describes a registration-state change in a provider registry.
type ProviderEvent struct {
	Kind EventKind
	Name string
}

// ProviderObserver is notified of registry changes.
type ProviderObserver func(ProviderEvent)

// ResourceRegistry is a thread-safe indexed collection of ResourceProviders.
type ResourceRegistry struct {
	mu        sync.RWMutex
	providers map[string]ResourceProvider
	observers []ProviderObserver
}

// NewResourceRegistry creates an empty ResourceRegistry.
func NewResourceRegistry() *ResourceRegistry {
	return &ResourceRegistry{providers: make(map[string]ResourceProvider)}
}

// Register adds a provider keyed by its Name(). Returns
// *ErrDuplicateProvider if the name is already registered.
func (r *ResourceRegistry) Register(p ResourceProvider) error {
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
func (r *ResourceRegistry) Unregister(name string) {
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
func (r *ResourceRegistry) Providers() []ResourceProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ResourceProvider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	return out
}

// Observe registers a callback invoked on every future registration event.
func (r *ResourceRegistry) Observe(obs ProviderObserver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, obs)
}

func notifyProvider(observers []ProviderObserver, ev ProviderEvent) {
	for _, obs := range observers {
		obs(ev)
	}
}
