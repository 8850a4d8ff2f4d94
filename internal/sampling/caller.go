// Package sampling implements the server-initiated sampling/createMessage
// call: the engine asks a connected client to run a model completion and
// awaits the matching response.
package sampling

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcpcore/mcpcore-go/internal/connection"
	"github.com/mcpcore/mcpcore-go/internal/mcperr"
	"github.com/mcpcore/mcpcore-go/pkg/jsonrpc"
)

// DefaultTimeout bounds how long Call waits for a client response.
const DefaultTimeout = 5 * time.Minute

func errCapabilityNotSupported() *mcperr.Error {
	return mcperr.New(mcperr.TypeCapabilityNotSupported, "client does not declare the sampling capability")
}

func errTimeout() *mcperr.Error {
	return mcperr.New(mcperr.TypeOperationTimeout, "sampling/createMessage timed out awaiting client response")
}

func errCancelled() *mcperr.Error {
	return mcperr.New(mcperr.TypeOperationCancelled, "sampling/createMessage cancelled")
}

type waiter struct {
	resultCh chan *jsonrpc.Message
}

// Caller issues server-initiated sampling/createMessage requests and
// correlates client responses back to the waiting caller.
type Caller struct {
	manager *connection.Manager
	timeout time.Duration

	nextID int64

	mu      sync.Mutex
	waiters map[string]*waiter
}

// New builds a Caller over manager. timeout <= 0 uses DefaultTimeout.
func New(manager *connection.Manager, timeout time.Duration) *Caller {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Caller{manager: manager, timeout: timeout, waiters: make(map[string]*waiter)}
}

// Call sends a sampling/createMessage request to connID and blocks for a
// matching response, up to the configured timeout or ctx cancellation.
// clientSupportsSampling gates the call per the client's declared
// capabilities: when false, Call fails fast without sending anything.
func (c *Caller) Call(ctx context.Context, connID string, clientSupportsSampling bool, params any) (json.RawMessage, error) {
	if !clientSupportsSampling {
		return nil, errCapabilityNotSupported()
	}

	conn, ok := c.manager.Get(connID)
	if !ok {
		return nil, mcperr.New(mcperr.TypeInternalError, "target connection no longer exists")
	}

	id := c.allocateID()
	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, mcperr.Wrap(mcperr.TypeInternalError, "failed to encode sampling params", err)
	}
	frame, err := jsonrpc.Encode(jsonrpc.NewRequest(id, "sampling/createMessage", rawParams))
	if err != nil {
		return nil, mcperr.Wrap(mcperr.TypeInternalError, "failed to encode sampling request", err)
	}

	w := &waiter{resultCh: make(chan *jsonrpc.Message, 1)}
	key := string(id)
	c.mu.Lock()
	c.waiters[key] = w
	c.mu.Unlock()
	defer c.drop(key)

	if err := conn.Send(frame); err != nil {
		return nil, mcperr.Wrap(mcperr.TypeInternalError, "failed to send sampling request", err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp := <-w.resultCh:
		if resp.Error != nil {
			return nil, mcperr.FromWire(resp.Error.Code, resp.Error.Message)
		}
		return resp.Result, nil
	case <-timer.C:
		return nil, errTimeout()
	case <-ctx.Done():
		return nil, errCancelled()
	}
}

// HandleResponse delivers an inbound Response message to its waiting
// caller, if any. Returns true if the id was recognized and consumed;
// responses for unknown ids are ignored per the correlation contract.
func (c *Caller) HandleResponse(msg *jsonrpc.Message) bool {
	key := string(msg.ID)
	c.mu.Lock()
	w, ok := c.waiters[key]
	if ok {
		delete(c.waiters, key)
	}
	c.mu.Unlock()
	if !ok {
		return false
	}
	w.resultCh <- msg
	return true
}

func (c *Caller) drop(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.waiters, key)
}

func (c *Caller) allocateID() json.RawMessage {
	n := atomic.AddInt64(&c.nextID, 1)
	return json.RawMessage(fmt.Sprintf("%d", n))
}

// PendingCount returns the number of calls currently awaiting a response,
// for diagnostics and tests.
func (c *Caller) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}
