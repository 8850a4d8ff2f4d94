package registry

import (
	"context"
	"testing"
)

type stubPromptProvider struct {
	name string
}

func (s *stubPromptProvider) Name() string { return s.name }
func (s *stubPromptProvider) List(ctx context.Context) ([]Prompt, error) {
	return []Prompt{{Name: "greet"}}, nil
}
func (s *stubPromptProvider) Render(ctx context.Context, name string, args map[string]string) (RenderedPrompt, error) {
	return RenderedPrompt{Messages: []PromptMessage{{Role: "user", Content: "hi " + args["name"]}}}, nil
}

var _ PromptProvider = (*stubPromptProvider)(nil)

func TestPromptRegistry_RegisterAndProviders(t *testing.T) {
	r := NewPromptRegistry()
	if err := r.Register(&stubPromptProvider{name: "greetings"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if got := len(r.Providers()); got != 1 {
		t.Fatalf("Providers() len = %d, want 1", got)
	}
}

func TestPromptRegistry_DuplicateNameIsError(t *testing.T) {
	r := NewPromptRegistry()
	_ = r.Register(&stubPromptProvider{name: "greetings"})
	if err := r.Register(&stubPromptProvider{name: "greetings"}); err == nil {
		t.Fatal("Register() expected error on duplicate name")
	}
}

func TestPromptRegistry_Unregister(t *testing.T) {
	r := NewPromptRegistry()
	_ = r.Register(&stubPromptProvider{name: "greetings"})
	r.Unregister("greetings")
	if got := len(r.Providers()); got != 0 {
		t.Errorf("Providers() len = %d after unregister, want 0", got)
	}
}
