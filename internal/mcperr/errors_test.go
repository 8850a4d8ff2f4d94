package mcperr

import (
	"errors"
	"testing"

	"github.com/mcpcore/mcpcore-go/pkg/jsonrpc"
)

func TestError_Code(t *testing.T) {
	t.Parallel()

	cases := []struct {
		kind Type
		want int
	}{
		{TypeParseError, jsonrpc.CodeParseError},
		{TypeMethodNotFound, jsonrpc.CodeMethodNotFound},
		{TypeRateLimited, jsonrpc.CodeRateLimited},
		{TypeOperationCancelled, jsonrpc.CodeOperationCancelled},
		{TypeInternalError, jsonrpc.CodeInternalError},
	}
	for _, c := range cases {
		err := New(c.kind, "x")
		if got := err.Code(); got != c.want {
			t.Errorf("New(%s).Code() = %d, want %d", c.kind, got, c.want)
		}
	}
}

func TestError_UnknownKindFallsBackToInternal(t *testing.T) {
	t.Parallel()

	err := &Error{Kind: Type("bogus")}
	if got := err.Code(); got != jsonrpc.CodeInternalError {
		t.Errorf("Code() = %d, want %d", got, jsonrpc.CodeInternalError)
	}
}

func TestRateLimited_CarriesRetryAfter(t *testing.T) {
	t.Parallel()

	err := RateLimited(2.5)
	data, ok := err.Data.(map[string]any)
	if !ok {
		t.Fatalf("Data = %T, want map[string]any", err.Data)
	}
	if data["retryAfter"] != 2.5 {
		t.Errorf("retryAfter = %v, want 2.5", data["retryAfter"])
	}
}

func TestWrap_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := Wrap(TypeInternalError, "handler failed", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestAs_FindsWrappedEngineError(t *testing.T) {
	t.Parallel()

	inner := New(TypeToolNotFound, "no such tool")
	wrapped := fmtWrap(inner)

	found, ok := As(wrapped)
	if !ok {
		t.Fatal("As() ok = false, want true")
	}
	if found.Kind != TypeToolNotFound {
		t.Errorf("Kind = %s, want %s", found.Kind, TypeToolNotFound)
	}
}

// fmtWrap simulates a caller wrapping an *Error with %w through a plain error.
func fmtWrap(err error) error {
	return &wrapper{err}
}

type wrapper struct{ err error }

func (w *wrapper) Error() string { return "wrapped: " + w.err.Error() }
func (w *wrapper) Unwrap() error { return w.err }
