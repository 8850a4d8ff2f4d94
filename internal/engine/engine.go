// Package engine wires every core subsystem -- connection plane, router,
// method handlers, registries, notification bus, progress/cancellation
// tracking, sampling, version negotiation, sessions, rate limiting, and
// claims-based authorization -- into one transport-agnostic object a host
// drives by handing it one port.Transport per accepted connection.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/mcpcore/mcpcore-go/internal/auth"
	"github.com/mcpcore/mcpcore-go/internal/authz"
	"github.com/mcpcore/mcpcore-go/internal/config"
	"github.com/mcpcore/mcpcore-go/internal/connection"
	"github.com/mcpcore/mcpcore-go/internal/handler"
	"github.com/mcpcore/mcpcore-go/internal/mcperr"
	"github.com/mcpcore/mcpcore-go/internal/notify"
	"github.com/mcpcore/mcpcore-go/internal/obsmetrics"
	"github.com/mcpcore/mcpcore-go/internal/port"
	"github.com/mcpcore/mcpcore-go/internal/progress"
	"github.com/mcpcore/mcpcore-go/internal/ratelimit"
	"github.com/mcpcore/mcpcore-go/internal/registry"
	"github.com/mcpcore/mcpcore-go/internal/router"
	"github.com/mcpcore/mcpcore-go/internal/sampling"
	"github.com/mcpcore/mcpcore-go/internal/session"
	"github.com/mcpcore/mcpcore-go/internal/version"
	"github.com/mcpcore/mcpcore-go/pkg/jsonrpc"
)

// Options bundles everything New needs. Logger, Metrics, Tracer, and
// SessionStore are optional: nil values fall back to slog.Default(), a
// no-op metrics recorder, the global (possibly no-op) tracer, and an
// in-memory session store, respectively.
type Options struct {
	Config       *config.Config
	ServerInfo   handler.ServerInfo
	Capabilities handler.ServerCapabilities

	Logger  *slog.Logger
	Metrics *obsmetrics.Metrics
	Tracer  oteltrace.Tracer

	SessionStore session.Store

	// Authenticator validates inbound credentials. A nil Authenticator
	// means every connection is treated as unauthenticated: no
	// Principal is attached, so the built-in claim check is skipped, while
	// policies installed with SetPolicy are still evaluated with an empty
	// identity.
	Authenticator port.Authenticator
}

// Engine owns every long-lived subsystem and the set of live connections.
// One Engine instance serves a whole process; AcceptConnection is called
// once per inbound transport.
type Engine struct {
	logger  *slog.Logger
	metrics *obsmetrics.Metrics
	tracer  oteltrace.Tracer

	cfg *config.Config

	Connections *connection.Manager
	Router      *router.Router
	Sessions    *session.Manager
	RateLimit   *ratelimit.Limiter
	Authz       *authz.Evaluator

	Tools     *handler.ToolSet
	Resources *registry.ResourceRegistry
	Prompts   *registry.PromptRegistry
	Roots     *registry.RootRegistry

	Notify   *notify.Bus
	Progress *progress.Tracker
	Cancel   *progress.CancellationManager
	Sampling *sampling.Caller

	authenticator port.Authenticator

	mu         sync.Mutex
	transports map[string]port.Transport
	policies   map[string]cel.Program

	wg sync.WaitGroup
}

// New wires all subsystems per opts.Config and returns a ready Engine. The
// returned Engine has not accepted any connections yet; call
// AcceptConnection for each inbound transport.
func New(opts Options) (*Engine, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}
	cfg := opts.Config

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.GetTracerProvider().Tracer("mcpcore")
	}

	e := &Engine{
		logger:        logger,
		metrics:       opts.Metrics,
		tracer:        tracer,
		cfg:           cfg,
		authenticator: opts.Authenticator,
		transports:    make(map[string]port.Transport),
		policies:      make(map[string]cel.Program),
	}

	e.Connections = connection.NewManager(
		connectionConfig(cfg.Server.MaxConnections, cfg.Server.IdleTimeout, cfg.Server.SendBufferSize),
		e.writeFrame,
		logger,
	)

	negotiator, err := version.New(cfg.Server.SupportedVersions, cfg.Server.BackwardCompatibleVersioning)
	if err != nil {
		return nil, fmt.Errorf("engine: building version negotiator: %w", err)
	}

	e.Router = router.New(cfg.DevMode)
	e.Router.SetLogger(logger)

	e.Notify = notify.New(e.Connections, defaultLogRateLimit)
	e.Progress = progress.NewTracker(defaultProgressSweepAge)
	e.Cancel = progress.NewCancellationManager()
	e.Sampling = sampling.New(e.Connections, parseDurationOr(cfg.Server.SamplingTimeout, defaultSamplingTimeout))

	e.Tools = handler.NewToolSet(registry.NewToolRegistry())
	e.Resources = registry.NewResourceRegistry()
	e.Prompts = registry.NewPromptRegistry()
	e.Roots = registry.NewRootRegistry()

	deps := &handler.Deps{
		ServerInfo:   opts.ServerInfo,
		Capabilities: opts.Capabilities,
		Negotiator:   negotiator,
		Tools:        e.Tools,
		Resources:    e.Resources,
		Prompts:      e.Prompts,
		Roots:        e.Roots,
		Notify:       e.Notify,
		Progress:     e.Progress,
		Cancel:       e.Cancel,
		Sampling:     e.Sampling,
		Router:       e.Router,
	}
	handler.Register(e.Router, deps)

	store := opts.SessionStore
	if store == nil {
		store = session.NewMemoryStore()
	}
	e.Sessions = session.NewManager(store, sessionConfig(
		cfg.Session.Timeout, cfg.Session.RefreshTimeout, cfg.Session.SlidingExpiration, cfg.Session.MaxSessionsPerUser,
	))

	if cfg.RateLimit.Enabled {
		e.RateLimit = ratelimit.New(
			rateLimitConfig(cfg.RateLimit.Mode, cfg.RateLimit.GlobalLimit, cfg.RateLimit.Duration),
			ratelimit.WithSweep(
				parseDurationOr(cfg.RateLimit.SweepInterval, 5*time.Minute),
				parseDurationOr(cfg.RateLimit.MaxIdle, time.Hour),
			),
			ratelimit.WithLogger(logger),
			ratelimit.WithAllowlist(cfg.RateLimit.Allowlist),
		)
	}

	evaluator, err := authz.NewEvaluator()
	if err != nil {
		return nil, fmt.Errorf("engine: building authorization evaluator: %w", err)
	}
	e.Authz = evaluator

	return e, nil
}

const (
	defaultLogRateLimit     = 20
	defaultProgressSweepAge = time.Hour
	defaultSamplingTimeout  = 5 * time.Minute
	idleReaperInterval      = time.Minute
)

// Start launches the engine's background maintenance goroutines: the rate
// limiter's idle-window sweep and the connection manager's idle reaper.
// Both are no-ops if disabled (nil RateLimit, zero IdleTimeout). ctx
// governs their lifetime; Shutdown also stops the rate limiter sweep
// regardless of ctx.
func (e *Engine) Start(ctx context.Context) {
	if e.RateLimit != nil {
		e.RateLimit.StartSweep(ctx)
	}
	e.Connections.StartIdleReaper(ctx, idleReaperInterval)
}

// SetPolicy compiles expression and associates it with method: every
// request for method is additionally gated on the policy evaluating true,
// on top of the built-in role/claim check. Pass an empty expression to
// clear a previously set policy.
func (e *Engine) SetPolicy(method, expression string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if expression == "" {
		delete(e.policies, method)
		return nil
	}
	if err := e.Authz.ValidateExpression(expression); err != nil {
		return err
	}
	prg, err := e.Authz.Compile(expression)
	if err != nil {
		return err
	}
	e.policies[method] = prg
	return nil
}

// writeFrame is the connection.Manager's WriteFunc: it looks up the
// transport registered for conn.ID and writes frame to it.
func (e *Engine) writeFrame(ctx context.Context, conn *connection.Connection, frame []byte) error {
	e.mu.Lock()
	t, ok := e.transports[conn.ID]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("engine: no transport registered for connection %s", conn.ID)
	}
	return t.Send(ctx, frame)
}

// AcceptConnection registers transport under a new connection id and
// launches its ingress loop in the background. Returns the accepted
// Connection, or an error if the connection plane is at capacity.
func (e *Engine) AcceptConnection(ctx context.Context, transport port.Transport) (*connection.Connection, error) {
	id := uuid.NewString()

	e.mu.Lock()
	e.transports[id] = transport
	e.mu.Unlock()

	conn, err := e.Connections.Accept(id)
	if err != nil {
		e.mu.Lock()
		delete(e.transports, id)
		e.mu.Unlock()
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.ConnectionsTotal.Inc()
		e.metrics.ConnectionsActive.Inc()
	}

	e.wg.Add(1)
	go e.runIngress(ctx, conn, transport)

	return conn, nil
}

// runIngress reads frames from transport until it errors (disconnect or
// ctx cancellation). Each frame is dispatched in its own goroutine so a
// slow or blocked handler never prevents the loop from reading the next
// frame on the connection -- in particular, so a $/cancelRequest for an
// earlier in-flight request can always be received and acted on.
func (e *Engine) runIngress(ctx context.Context, conn *connection.Connection, transport port.Transport) {
	defer e.wg.Done()
	defer e.teardownConnection(conn.ID)

	var inflight sync.WaitGroup
	defer inflight.Wait()

	for {
		frame, err := transport.Recv(ctx)
		if err != nil {
			return
		}
		conn.Touch()

		inflight.Add(1)
		go func(frame []byte) {
			defer inflight.Done()
			resp := e.dispatch(ctx, conn, frame)
			if resp == nil {
				return
			}
			if err := conn.Send(resp); err != nil {
				e.logger.Debug("failed to enqueue response", "connection_id", conn.ID, "error", err)
			}
		}(frame)
	}
}

func (e *Engine) teardownConnection(id string) {
	e.Connections.Close(id, "ingress loop exited")
	e.mu.Lock()
	delete(e.transports, id)
	e.mu.Unlock()
	if e.metrics != nil {
		e.metrics.ConnectionsActive.Dec()
	}
}

// dispatch decodes one frame, applies rate limiting and authorization, and
// routes it. Returns the wire-encoded response, or nil for notifications
// and for malformed frames with no recoverable id. A frame that is not
// valid JSON is answered with a ParseError carrying a null id.
func (e *Engine) dispatch(ctx context.Context, conn *connection.Connection, frame []byte) []byte {
	msg, err := jsonrpc.Decode(frame)
	if err != nil {
		var de *jsonrpc.DecodeError
		if errors.As(err, &de) {
			if de.ID == nil {
				if de.Code == jsonrpc.CodeParseError {
					return encodeError(jsonrpc.NullID, de.Code, de.Message)
				}
				return nil
			}
			return encodeError(de.ID, de.Code, de.Message)
		}
		return nil
	}

	ctx, span := e.tracer.Start(ctx, "mcp."+msg.Method)
	defer span.End()

	start := time.Now()
	if err := e.checkRateLimit(ctx, conn, msg.Method); err != nil {
		if !msg.IsRequest() {
			return nil
		}
		return encodeHandlerError(msg.ID, err)
	}
	if err := e.checkAuthorization(ctx, conn, msg.Method); err != nil {
		if !msg.IsRequest() {
			return nil
		}
		return encodeHandlerError(msg.ID, err)
	}

	resp := e.Router.Route(ctx, conn, msg)
	if e.metrics != nil {
		e.metrics.ObserveRequest(msg.Method, !hasWireError(resp), time.Since(start).Seconds())
	}
	return resp
}

func (e *Engine) checkRateLimit(ctx context.Context, conn *connection.Connection, method string) error {
	if e.RateLimit == nil {
		return nil
	}
	identity := conn.ID
	if p := conn.Principal(); p != nil && p.IdentityID != "" {
		identity = p.IdentityID
	}
	cfg := rateLimitConfig(e.cfg.RateLimit.Mode, e.cfg.RateLimit.DefaultLimit, e.cfg.RateLimit.Duration)
	result, err := e.RateLimit.Check(ctx, identity, method, cfg)
	if err != nil {
		return nil
	}
	if e.metrics != nil {
		e.metrics.ObserveRateLimit(result.Allowed)
	}
	if !result.Allowed {
		return mcperr.RateLimited(result.RetryAfter.Seconds())
	}
	return nil
}

func (e *Engine) checkAuthorization(ctx context.Context, conn *connection.Connection, method string) error {
	principal := conn.Principal()

	e.mu.Lock()
	prg, hasPolicy := e.policies[method]
	e.mu.Unlock()

	resource, action := splitMethod(method)

	if principal != nil && len(principal.Claims) > 0 {
		if !auth.Authorize(principal, resource, action) {
			return mcperr.New(mcperr.TypeUnauthorized, "not authorized for "+method)
		}
	}

	if !hasPolicy {
		return nil
	}
	evalCtx := authz.EvaluationContext{
		Resource:  resource,
		Action:    action,
		RequestAt: time.Now(),
	}
	if principal != nil {
		evalCtx.IdentityID = principal.IdentityID
		evalCtx.Claims = principal.Claims
		for _, r := range principal.Roles {
			evalCtx.Roles = append(evalCtx.Roles, string(r))
		}
	}
	allowed, err := e.Authz.Evaluate(ctx, prg, evalCtx)
	if err != nil {
		return mcperr.Wrap(mcperr.TypeInternalError, "policy evaluation failed", err)
	}
	if !allowed {
		return mcperr.New(mcperr.TypeUnauthorized, "denied by policy for "+method)
	}
	return nil
}

// encodeError builds a raw JSON-RPC error response frame for id.
func encodeError(id json.RawMessage, code int, message string) []byte {
	raw, err := jsonrpc.Encode(jsonrpc.NewError(id, code, message, nil))
	if err != nil {
		return nil
	}
	return raw
}

// encodeHandlerError maps a pre-dispatch rejection (rate limit, authz)
// onto a wire error response, using the same mcperr.Error-to-code mapping
// the router applies to handler errors.
func encodeHandlerError(id json.RawMessage, err error) []byte {
	if me, ok := mcperr.As(err); ok {
		var data json.RawMessage
		if me.Data != nil {
			data, _ = json.Marshal(me.Data)
		}
		return encodeErrorWithData(id, me.Code(), me.Message, data)
	}
	return encodeError(id, jsonrpc.CodeInternalError, err.Error())
}

func encodeErrorWithData(id json.RawMessage, code int, message string, data json.RawMessage) []byte {
	raw, err := jsonrpc.Encode(jsonrpc.NewError(id, code, message, data))
	if err != nil {
		return nil
	}
	return raw
}

// splitMethod breaks a JSON-RPC method like "tools/call" into a
// resource/action pair ("tools", "call") for claim matching. Methods
// without a slash use the whole name as the resource and "execute" as
// the action.
func splitMethod(method string) (resource, action string) {
	for i := 0; i < len(method); i++ {
		if method[i] == '/' {
			return method[:i], method[i+1:]
		}
	}
	return method, "execute"
}

func hasWireError(resp []byte) bool {
	return resp != nil && containsErrorField(resp)
}

// containsErrorField is a cheap heuristic: a JSON-RPC error response
// contains the literal `"error":` member, which a result response never
// does, avoiding a full re-decode just to classify a response for metrics.
func containsErrorField(resp []byte) bool {
	const needle = `"error":`
	for i := 0; i+len(needle) <= len(resp); i++ {
		if string(resp[i:i+len(needle)]) == needle {
			return true
		}
	}
	return false
}

// Authenticate validates credentials via the configured Authenticator and
// attaches the resolved Principal to conn. Returns an error if no
// Authenticator is configured or validation fails.
func (e *Engine) Authenticate(ctx context.Context, conn *connection.Connection, scheme string, credentials []byte) (*auth.Principal, error) {
	if e.authenticator == nil {
		return nil, errors.New("engine: no authenticator configured")
	}
	principal, err := e.authenticator.Authenticate(ctx, scheme, credentials)
	if err != nil {
		return nil, err
	}
	conn.SetPrincipal(principal)
	return principal, nil
}

// Shutdown drains the connection plane, stops the rate limiter's sweep
// goroutine, and waits for every ingress loop to exit, bounded by ctx's
// deadline. Each registered transport is closed to unblock its pending
// Recv, since a still-open AcceptConnection ctx alone would otherwise
// leave the ingress loop parked waiting for the next frame.
func (e *Engine) Shutdown(ctx context.Context) error {
	if e.RateLimit != nil {
		e.RateLimit.Stop()
	}

	e.mu.Lock()
	transports := make([]port.Transport, 0, len(e.transports))
	for _, t := range e.transports {
		transports = append(transports, t)
	}
	e.mu.Unlock()
	for _, t := range transports {
		_ = t.Close()
	}

	err := e.Connections.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}
