package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mcpcore/mcpcore-go/internal/connection"
	"github.com/mcpcore/mcpcore-go/internal/ratelimit"
	"github.com/mcpcore/mcpcore-go/pkg/jsonrpc"
)

// ErrUnknownConnection is returned by Direct when the target connection id
// is not registered with the manager.
var ErrUnknownConnection = errors.New("notify: unknown connection")

// DefaultLogRateLimit is the default maximum log notifications emitted per
// logger per second.
const DefaultLogRateLimit = 20

// Bus fans JSON-RPC notifications out to connections owned by a
// connection.Manager: direct sends, broadcast to all Ready connections,
// and subscription-scoped resource-change fan-out.
type Bus struct {
	manager      *connection.Manager
	logLimiter   *ratelimit.Limiter
	logRateLimit int
}

// New builds a Bus over manager. logRateLimit is the max log
// notifications per logger per second; zero uses DefaultLogRateLimit.
func New(manager *connection.Manager, logRateLimit int) *Bus {
	if logRateLimit <= 0 {
		logRateLimit = DefaultLogRateLimit
	}
	globalCfg := ratelimit.Config{Mode: ratelimit.ModeFixed, Limit: logRateLimit, Duration: time.Second}
	return &Bus{
		manager:      manager,
		logLimiter:   ratelimit.New(globalCfg),
		logRateLimit: logRateLimit,
	}
}

func encodeNotification(method string, params any) ([]byte, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	return jsonrpc.Encode(jsonrpc.NewNotification(method, raw))
}

// Direct sends a notification to one connection by id.
func (b *Bus) Direct(connID, method string, params any) error {
	conn, ok := b.manager.Get(connID)
	if !ok {
		return ErrUnknownConnection
	}
	frame, err := encodeNotification(method, params)
	if err != nil {
		return err
	}
	return conn.Send(frame)
}

// Broadcast sends a notification to every Ready connection except
// excludeID. Used for tools/resources/prompts/roots list_changed events.
func (b *Bus) Broadcast(method string, params any, excludeID string) error {
	frame, err := encodeNotification(method, params)
	if err != nil {
		return err
	}
	b.manager.Broadcast(frame, excludeID)
	return nil
}

// ResourceChanged fans a resources/updated notification to every Ready
// connection subscribed to uri.
func (b *Bus) ResourceChanged(uri string) error {
	frame, err := encodeNotification("notifications/resources/updated", map[string]string{"uri": uri})
	if err != nil {
		return err
	}
	for _, conn := range b.manager.List() {
		if conn.State() != connection.Ready {
			continue
		}
		if !conn.IsSubscribed(uri) {
			continue
		}
		_ = conn.Send(frame)
	}
	return nil
}

// LogMessage is the payload shape of a notifications/message emission.
type LogMessage struct {
	Level  LogLevel `json:"level"`
	Logger string   `json:"logger,omitempty"`
	Data   any      `json:"data"`
}

// Log emits a notifications/message to every Ready connection whose
// minimum log level permits it, provided the per-logger rate limit has
// not been exhausted. The payload is sanitized before encoding.
func (b *Bus) Log(logger string, level LogLevel, data any) error {
	res, err := b.logLimiter.Check(context.Background(), logger, "log", ratelimit.Config{
		Mode:     ratelimit.ModeFixed,
		Limit:    b.logRateLimit,
		Duration: time.Second,
	})
	if err != nil {
		return err
	}
	if !res.Allowed {
		return nil
	}

	payload := LogMessage{Level: level, Logger: logger, Data: Sanitize(data)}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame, err := jsonrpc.Encode(jsonrpc.NewNotification("notifications/message", raw))
	if err != nil {
		return err
	}

	for _, conn := range b.manager.List() {
		if conn.State() != connection.Ready {
			continue
		}
		if !meetsMinimum(level, LogLevel(conn.MinLogLevel())) {
			continue
		}
		_ = conn.Send(frame)
	}
	return nil
}
