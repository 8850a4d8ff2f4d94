package router

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mcpcore/mcpcore-go/internal/connection"
	"github.com/mcpcore/mcpcore-go/internal/mcperr"
	"github.com/mcpcore/mcpcore-go/pkg/jsonrpc"
)

func decodeResponse(t *testing.T, raw []byte) *jsonrpc.Message {
	t.Helper()
	msg, err := jsonrpc.Decode(raw)
	if err != nil {
		t.Fatalf("Decode(response) error = %v", err)
	}
	return msg
}

func TestRouter_DispatchesRequestToHandler(t *testing.T) {
	r := New(false)
	r.Handle("ping", func(ctx context.Context, conn *connection.Connection, msg *jsonrpc.Message) (json.RawMessage, error) {
		return json.RawMessage(`{}`), nil
	})

	conn := connection.New("c1", 4)
	_ = conn.Transition(connection.Connected)
	_ = conn.Transition(connection.Initialized)
	_ = conn.Transition(connection.Ready)

	req, err := jsonrpc.Decode([]byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	raw := r.Route(context.Background(), conn, req)
	resp := decodeResponse(t, raw)
	if !resp.IsResponse() || resp.Error != nil {
		t.Fatalf("response = %+v, want success", resp)
	}
}

func TestRouter_UnknownMethodRequest_MethodNotFound(t *testing.T) {
	r := New(false)
	conn := connection.New("c1", 4)
	_ = conn.Transition(connection.Connected)
	_ = conn.Transition(connection.Initialized)
	_ = conn.Transition(connection.Ready)

	req, _ := jsonrpc.Decode([]byte(`{"jsonrpc":"2.0","id":1,"method":"nope"}`))
	raw := r.Route(context.Background(), conn, req)
	resp := decodeResponse(t, raw)
	if resp.Error == nil || resp.Error.Code != jsonrpc.CodeMethodNotFound {
		t.Fatalf("Error = %+v, want MethodNotFound", resp.Error)
	}
}

func TestRouter_UnknownMethodNotification_Dropped(t *testing.T) {
	r := New(false)
	conn := connection.New("c1", 4)
	_ = conn.Transition(connection.Connected)
	_ = conn.Transition(connection.Initialized)
	_ = conn.Transition(connection.Ready)

	note, _ := jsonrpc.Decode([]byte(`{"jsonrpc":"2.0","method":"nope"}`))
	raw := r.Route(context.Background(), conn, note)
	if raw != nil {
		t.Fatalf("Route(notification) = %v, want nil (dropped)", raw)
	}
}

func TestRouter_PreInitRejectsOtherMethods(t *testing.T) {
	r := New(false)
	r.Handle("tools/list", func(ctx context.Context, conn *connection.Connection, msg *jsonrpc.Message) (json.RawMessage, error) {
		return json.RawMessage(`{}`), nil
	})
	conn := connection.New("c1", 4) // still Accepted

	req, _ := jsonrpc.Decode([]byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw := r.Route(context.Background(), conn, req)
	resp := decodeResponse(t, raw)
	if resp.Error == nil || resp.Error.Code != jsonrpc.CodeInvalidRequest {
		t.Fatalf("Error = %+v, want InvalidRequest", resp.Error)
	}
}

func TestRouter_PreInitAllowsPing(t *testing.T) {
	r := New(false)
	r.Handle("ping", func(ctx context.Context, conn *connection.Connection, msg *jsonrpc.Message) (json.RawMessage, error) {
		return json.RawMessage(`{}`), nil
	})
	conn := connection.New("c1", 4) // Accepted

	req, _ := jsonrpc.Decode([]byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))
	raw := r.Route(context.Background(), conn, req)
	resp := decodeResponse(t, raw)
	if resp.Error != nil {
		t.Fatalf("Error = %+v, want nil", resp.Error)
	}
}

func TestRouter_DuplicateInitializeRejected(t *testing.T) {
	r := New(false)
	r.Handle("initialize", func(ctx context.Context, conn *connection.Connection, msg *jsonrpc.Message) (json.RawMessage, error) {
		return json.RawMessage(`{}`), nil
	})
	conn := connection.New("c1", 4)
	_ = conn.Transition(connection.Connected)
	_ = conn.Transition(connection.Initialized)

	req, _ := jsonrpc.Decode([]byte(`{"jsonrpc":"2.0","id":2,"method":"initialize"}`))
	raw := r.Route(context.Background(), conn, req)
	resp := decodeResponse(t, raw)
	if resp.Error == nil || resp.Error.Code != jsonrpc.CodeInvalidRequest {
		t.Fatalf("Error = %+v, want InvalidRequest (already initialized)", resp.Error)
	}
}

func TestRouter_HandlerErrorMapsToDeclaredCode(t *testing.T) {
	r := New(false)
	r.Handle("tools/call", func(ctx context.Context, conn *connection.Connection, msg *jsonrpc.Message) (json.RawMessage, error) {
		return nil, mcperr.New(mcperr.TypeInvalidParams, "bad args")
	})
	conn := connection.New("c1", 4)
	_ = conn.Transition(connection.Connected)
	_ = conn.Transition(connection.Initialized)
	_ = conn.Transition(connection.Ready)

	req, _ := jsonrpc.Decode([]byte(`{"jsonrpc":"2.0","id":3,"method":"tools/call"}`))
	raw := r.Route(context.Background(), conn, req)
	resp := decodeResponse(t, raw)
	if resp.Error == nil || resp.Error.Code != jsonrpc.CodeInvalidParams {
		t.Fatalf("Error = %+v, want InvalidParams", resp.Error)
	}
}

func TestRouter_PlainErrorBecomesInternalError(t *testing.T) {
	r := New(false)
	r.Handle("tools/call", func(ctx context.Context, conn *connection.Connection, msg *jsonrpc.Message) (json.RawMessage, error) {
		return nil, strings.NewReader("unused").UnreadByte()
	})
	conn := connection.New("c1", 4)
	_ = conn.Transition(connection.Connected)
	_ = conn.Transition(connection.Initialized)
	_ = conn.Transition(connection.Ready)

	req, _ := jsonrpc.Decode([]byte(`{"jsonrpc":"2.0","id":4,"method":"tools/call"}`))
	raw := r.Route(context.Background(), conn, req)
	resp := decodeResponse(t, raw)
	if resp.Error == nil || resp.Error.Code != jsonrpc.CodeInternalError {
		t.Fatalf("Error = %+v, want InternalError", resp.Error)
	}
}

func TestRouter_HandlerPanicRecovered(t *testing.T) {
	r := New(true)
	r.Handle("tools/call", func(ctx context.Context, conn *connection.Connection, msg *jsonrpc.Message) (json.RawMessage, error) {
		panic("boom")
	})
	conn := connection.New("c1", 4)
	_ = conn.Transition(connection.Connected)
	_ = conn.Transition(connection.Initialized)
	_ = conn.Transition(connection.Ready)

	req, _ := jsonrpc.Decode([]byte(`{"jsonrpc":"2.0","id":5,"method":"tools/call"}`))
	raw := r.Route(context.Background(), conn, req)
	resp := decodeResponse(t, raw)
	if resp.Error == nil || resp.Error.Code != jsonrpc.CodeInternalError {
		t.Fatalf("Error = %+v, want InternalError after recovered panic", resp.Error)
	}
	if resp.Error.Data == nil {
		t.Error("Data = nil, want trace in debug mode")
	}
}

func TestRouter_InFlightTrackingAndCancel(t *testing.T) {
	r := New(false)
	started := make(chan struct{})
	finished := make(chan error, 1)
	r.Handle("tools/call", func(ctx context.Context, conn *connection.Connection, msg *jsonrpc.Message) (json.RawMessage, error) {
		close(started)
		<-ctx.Done()
		finished <- ctx.Err()
		return nil, mcperr.New(mcperr.TypeOperationCancelled, "cancelled")
	})
	conn := connection.New("c1", 4)
	_ = conn.Transition(connection.Connected)
	_ = conn.Transition(connection.Initialized)
	_ = conn.Transition(connection.Ready)

	req, _ := jsonrpc.Decode([]byte(`{"jsonrpc":"2.0","id":9,"method":"tools/call"}`))
	done := make(chan []byte, 1)
	go func() {
		done <- r.Route(context.Background(), conn, req)
	}()

	<-started
	if !r.Cancel("c1", json.RawMessage("9")) {
		t.Fatal("Cancel() = false, want true for in-flight request")
	}
	if err := <-finished; err == nil {
		t.Error("handler ctx.Err() = nil, want context.Canceled")
	}
	<-done

	if r.Cancel("c1", json.RawMessage("9")) {
		t.Error("Cancel() on already-completed request = true, want false")
	}
}

func TestRouter_Cancel_UnknownIDIgnored(t *testing.T) {
	r := New(false)
	if r.Cancel("c1", json.RawMessage("999")) {
		t.Error("Cancel() on unknown id = true, want false (silently ignored)")
	}
}
