// Package router dispatches decoded JSON-RPC messages to registered method
// handlers, enforcing pre-initialization admission and mapping handler
// errors onto wire error codes.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/mcpcore/mcpcore-go/internal/auth"
	"github.com/mcpcore/mcpcore-go/internal/connection"
	"github.com/mcpcore/mcpcore-go/internal/mcperr"
	"github.com/mcpcore/mcpcore-go/internal/obslog"
	"github.com/mcpcore/mcpcore-go/pkg/jsonrpc"
)

// Handler processes one decoded request or notification for a connection.
// A non-nil result is only meaningful for requests; notifications ignore
// it. Returning an *mcperr.Error controls the wire error code and data
// reported to the client; any other error becomes InternalError.
type Handler func(ctx context.Context, conn *connection.Connection, msg *jsonrpc.Message) (json.RawMessage, error)

// InFlightRequest tracks one in-progress request for cancellation. Entries
// are keyed by connection id and request id; a second request reusing an
// in-flight id replaces the earlier entry.
type InFlightRequest struct {
	ConnectionID string
	ID           string
	Method       string
	Principal    *auth.Principal
	Start        time.Time
	cancel       context.CancelFunc
}

// Router owns the method dispatch table and the in-flight request set.
type Router struct {
	debug  bool
	logger *slog.Logger

	mu       sync.Mutex
	handlers map[string]Handler

	inFlightMu sync.Mutex
	inFlight   map[string]*InFlightRequest
}

// New creates an empty Router. debugMode controls whether InternalError
// responses carry debugging data: a truncated stack trace for a recovered
// handler panic, or the Go type of any other non-*mcperr.Error error.
func New(debugMode bool) *Router {
	return &Router{
		debug:    debugMode,
		handlers: make(map[string]Handler),
		inFlight: make(map[string]*InFlightRequest),
	}
}

// SetLogger installs the base logger enriched with per-request fields
// before every handler invocation. A nil logger resets to slog.Default().
func (r *Router) SetLogger(logger *slog.Logger) {
	r.logger = logger
}

// Handle registers h for method. Re-registering a method overwrites the
// previous handler.
func (r *Router) Handle(method string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[method] = h
}

// Route dispatches msg for conn. Returns the wire-encoded response bytes
// for a request, or nil for a notification (or a dropped unknown
// notification). Errors are never returned directly: they are encoded
// into the Response per the JSON-RPC error mapping rules.
func (r *Router) Route(ctx context.Context, conn *connection.Connection, msg *jsonrpc.Message) []byte {
	isRequest := msg.IsRequest()

	if preInit := isPreInitState(conn.State()); preInit && !connection.PreInitAllowed[msg.Method] {
		if !isRequest {
			return nil
		}
		return r.errorResponse(msg.ID, jsonrpc.CodeInvalidRequest, "connection is not initialized: method "+msg.Method+" is not permitted", nil)
	}

	if msg.Method == "initialize" && !isPreInitState(conn.State()) {
		if !isRequest {
			return nil
		}
		return r.errorResponse(msg.ID, jsonrpc.CodeInvalidRequest, "connection is already initialized", nil)
	}

	r.mu.Lock()
	handler, ok := r.handlers[msg.Method]
	r.mu.Unlock()
	if !ok {
		if !isRequest {
			return nil
		}
		return r.errorResponse(msg.ID, jsonrpc.CodeMethodNotFound, "method not found: "+msg.Method, nil)
	}

	reqCtx, cancel := context.WithCancel(ctx)
	reqCtx = obslog.Enrich(reqCtx, r.logger, conn.ID, string(msg.ID), msg.Method)
	var key string
	if isRequest {
		key = conn.ID + ":" + string(msg.ID)
		r.registerInFlight(key, conn, msg.Method, cancel)
		defer r.unregisterInFlight(key)
	} else {
		defer cancel()
	}

	result, err := r.invoke(reqCtx, handler, conn, msg)
	if !isRequest {
		return nil
	}
	if err != nil {
		return r.encodeErr(msg.ID, err)
	}
	raw, encErr := jsonrpc.Encode(jsonrpc.NewResult(msg.ID, result))
	if encErr != nil {
		return r.errorResponse(msg.ID, jsonrpc.CodeInternalError, "failed to encode response", nil)
	}
	return raw
}

// invoke calls h, recovering from panics so one misbehaving handler never
// brings down the connection's dispatch loop.
func (r *Router) invoke(ctx context.Context, h Handler, conn *connection.Connection, msg *jsonrpc.Message) (result json.RawMessage, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			mcpErr := mcperr.Newf(mcperr.TypeInternalError, "handler panic: %v", rec)
			if r.debug {
				trace := debug.Stack()
				if len(trace) > 2048 {
					trace = trace[:2048]
				}
				mcpErr = mcpErr.WithData(map[string]string{"panic": fmt.Sprint(rec), "trace": string(trace)})
			}
			err = mcpErr
		}
	}()
	return h(ctx, conn, msg)
}

func (r *Router) encodeErr(id json.RawMessage, err error) []byte {
	if me, ok := mcperr.As(err); ok {
		var data json.RawMessage
		if me.Data != nil {
			data, _ = json.Marshal(me.Data)
		}
		return r.errorResponse(id, me.Code(), me.Message, data)
	}
	var data json.RawMessage
	if r.debug {
		data, _ = json.Marshal(map[string]string{"type": fmt.Sprintf("%T", err)})
	}
	return r.errorResponse(id, jsonrpc.CodeInternalError, err.Error(), data)
}

func (r *Router) errorResponse(id json.RawMessage, code int, message string, data json.RawMessage) []byte {
	raw, err := jsonrpc.Encode(jsonrpc.NewError(id, code, message, data))
	if err != nil {
		// Encoding a plain error object cannot realistically fail; fall
		// back to a minimal hand-built frame rather than return nothing.
		return []byte(fmt.Sprintf(`{"jsonrpc":"2.0","id":%s,"error":{"code":%d,"message":%q}}`, string(id), code, message))
	}
	return raw
}

func (r *Router) registerInFlight(key string, conn *connection.Connection, method string, cancel context.CancelFunc) {
	r.inFlightMu.Lock()
	defer r.inFlightMu.Unlock()
	r.inFlight[key] = &InFlightRequest{
		ConnectionID: conn.ID,
		Method:       method,
		Principal:    conn.Principal(),
		Start:        time.Now(),
		cancel:       cancel,
	}
}

func (r *Router) unregisterInFlight(key string) {
	r.inFlightMu.Lock()
	defer r.inFlightMu.Unlock()
	delete(r.inFlight, key)
}

// Cancel cancels the in-flight request identified by (connID, id), if
// still present. Returns true if a request was found and cancelled.
// Absent ids are silently ignored per the cancellation contract.
func (r *Router) Cancel(connID string, id json.RawMessage) bool {
	key := connID + ":" + string(id)
	r.inFlightMu.Lock()
	defer r.inFlightMu.Unlock()
	req, ok := r.inFlight[key]
	if !ok {
		return false
	}
	req.cancel()
	delete(r.inFlight, key)
	return true
}

// InFlightCount returns the number of requests currently tracked, for
// diagnostics and tests.
func (r *Router) InFlightCount() int {
	r.inFlightMu.Lock()
	defer r.inFlightMu.Unlock()
	return len(r.inFlight)
}

func isPreInitState(s connection.State) bool {
	return s == connection.Accepted || s == connection.Connected
}
