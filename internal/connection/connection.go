package connection

import (
	"sync"
	"time"

	"github.com/mcpcore/mcpcore-go/internal/auth"
)

// ClientInfo is the client-reported identity from initialize.
type ClientInfo struct {
	Name    string
	Version string
}

// Connection tracks one client connection's protocol state. Mutated only
// by its own ingress task plus the single writer goroutine that drains
// Outbound; other components must go through ConnectionManager for
// cross-connection operations (broadcast, lookup).
type Connection struct {
	ID string

	mu                sync.Mutex
	state             State
	lastActivity      time.Time
	clientInfo        ClientInfo
	negotiatedVersion string
	minLogLevel       string
	principal         *auth.Principal
	subscribed        map[string]struct{}
	samplingCapable   bool

	// Outbound is the bounded send channel; the connection's writer
	// goroutine drains it. Sends block (backpressure) when full.
	Outbound chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

// New creates a Connection in the Accepted state with a send buffer of
// the given size.
func New(id string, sendBufferSize int) *Connection {
	return &Connection{
		ID:           id,
		state:        Accepted,
		lastActivity: time.Now(),
		subscribed:   make(map[string]struct{}),
		Outbound:     make(chan []byte, sendBufferSize),
		closed:       make(chan struct{}),
	}
}

// State returns the current state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transition attempts to move the connection to 'to', returning
// *ErrIllegalTransition if the edge is not permitted.
func (c *Connection) Transition(to State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !canTransition(c.state, to) {
		return &ErrIllegalTransition{From: c.state, To: to}
	}
	c.state = to
	return nil
}

// Touch updates lastActivity to now.
func (c *Connection) Touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActivity = time.Now()
}

// LastActivity returns the last recorded activity time.
func (c *Connection) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// SetClientInfo records the client's reported identity, typically from initialize.
func (c *Connection) SetClientInfo(info ClientInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clientInfo = info
}

// ClientInfo returns the client's reported identity.
func (c *Connection) ClientInfo() ClientInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clientInfo
}

// SetNegotiatedVersion records the protocol version agreed during initialize.
func (c *Connection) SetNegotiatedVersion(v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.negotiatedVersion = v
}

// NegotiatedVersion returns the protocol version agreed during initialize.
func (c *Connection) NegotiatedVersion() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.negotiatedVersion
}

// SetSamplingCapable records whether the client declared the sampling
// capability during initialize.
func (c *Connection) SetSamplingCapable(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samplingCapable = v
}

// SamplingCapable reports whether the client declared the sampling
// capability during initialize.
func (c *Connection) SamplingCapable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.samplingCapable
}

// SetPrincipal attaches the authenticated principal for this connection.
func (c *Connection) SetPrincipal(p *auth.Principal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.principal = p
}

// Principal returns the authenticated principal, or nil if none.
func (c *Connection) Principal() *auth.Principal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.principal
}

// SetMinLogLevel records the minimum log level set via logging/setLevel.
func (c *Connection) SetMinLogLevel(level string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.minLogLevel = level
}

// MinLogLevel returns the minimum log level set via logging/setLevel.
func (c *Connection) MinLogLevel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.minLogLevel
}

// Subscribe records uri in the connection's subscription set.
func (c *Connection) Subscribe(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribed[uri] = struct{}{}
}

// Unsubscribe removes uri from the connection's subscription set.
func (c *Connection) Unsubscribe(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscribed, uri)
}

// IsSubscribed reports whether uri is in the connection's subscription set.
func (c *Connection) IsSubscribed(uri string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subscribed[uri]
	return ok
}

// Send enqueues frame onto Outbound, blocking if the buffer is full
// (backpressure), or returning immediately if the connection is already
// closed.
func (c *Connection) Send(frame []byte) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	select {
	case c.Outbound <- frame:
		return nil
	case <-c.closed:
		return ErrClosed
	}
}

// MarkClosed signals that no further sends will be accepted, and closes
// the Outbound channel so the writer goroutine drains and exits. Safe to
// call more than once.
func (c *Connection) MarkClosed() {
	c.closeOnce.Do(func() {
		close(c.closed)
		close(c.Outbound)
	})
}

// Done returns a channel closed once MarkClosed has been called.
func (c *Connection) Done() <-chan struct{} {
	return c.closed
}
