package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrClosed is returned by Send when the connection has already closed.
var ErrClosed = errors.New("connection closed")

// ErrMaxConnections is returned by Manager.Accept when MaxConnections would
// be exceeded.
var ErrMaxConnections = errors.New("maximum connections exceeded")

// WriteFunc performs the transport-level write of one outbound frame for a
// connection. Errors are logged and treated as a fatal connection fault.
type WriteFunc func(ctx context.Context, conn *Connection, frame []byte) error

// Config configures a Manager.
type Config struct {
	MaxConnections int
	// IdleTimeout, when > 0, closes connections whose LastActivity
	// exceeds this duration. 0 disables the idle reaper.
	IdleTimeout time.Duration
	// SendBufferSize sizes each connection's outbound channel.
	SendBufferSize int
}

// Manager owns the set of live connections keyed by id: a connection is
// either registered (observable via Get/List) or fully torn down, never
// half-registered.
type Manager struct {
	cfg    Config
	write  WriteFunc
	logger *slog.Logger

	mu          sync.RWMutex
	connections map[string]*Connection

	reaperStopCh chan struct{}
	reaperOnce   sync.Once
	wg           sync.WaitGroup
}

// NewManager creates a Manager. write performs the transport-level send
// for a connection's egress goroutine.
func NewManager(cfg Config, write WriteFunc, logger *slog.Logger) *Manager {
	if cfg.SendBufferSize == 0 {
		cfg.SendBufferSize = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:          cfg,
		write:        write,
		logger:       logger,
		connections:  make(map[string]*Connection),
		reaperStopCh: make(chan struct{}),
	}
}

// Accept registers a new connection with the given id, launching its
// egress (writer) goroutine. Returns ErrMaxConnections if the manager is
// already at capacity.
func (m *Manager) Accept(id string) (*Connection, error) {
	m.mu.Lock()
	if m.cfg.MaxConnections > 0 && len(m.connections) >= m.cfg.MaxConnections {
		m.mu.Unlock()
		return nil, ErrMaxConnections
	}
	conn := New(id, m.cfg.SendBufferSize)
	m.connections[id] = conn
	m.mu.Unlock()

	if err := conn.Transition(Connected); err != nil {
		m.logger.Warn("unexpected transition failure on accept", "connection_id", id, "error", err)
	}

	m.wg.Add(1)
	go m.runEgress(conn)

	return conn, nil
}

// runEgress drains conn.Outbound, writing each frame via m.write. Exits
// when the channel is closed (conn.MarkClosed called).
func (m *Manager) runEgress(conn *Connection) {
	defer m.wg.Done()
	ctx := context.Background()
	for frame := range conn.Outbound {
		if err := m.write(ctx, conn, frame); err != nil {
			m.logger.Warn("connection write failed, closing", "connection_id", conn.ID, "error", err)
			m.Close(conn.ID, "write error")
			return
		}
	}
}

// Get retrieves a connection by id.
func (m *Manager) Get(id string) (*Connection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.connections[id]
	return c, ok
}

// List returns all currently registered connections, in no particular order.
func (m *Manager) List() []*Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Connection, 0, len(m.connections))
	for _, c := range m.connections {
		out = append(out, c)
	}
	return out
}

// Count returns the number of currently registered connections.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// Close transitions a connection through Closing -> Closed and removes it
// from the set. Safe to call more than once; subsequent calls are no-ops.
func (m *Manager) Close(id string, reason string) {
	m.mu.Lock()
	conn, ok := m.connections[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.connections, id)
	m.mu.Unlock()

	_ = conn.Transition(Closing)
	conn.MarkClosed()
	_ = conn.Transition(Closed)
	m.logger.Debug("connection closed", "connection_id", id, "reason", reason)
}

// Broadcast sends frame to every connection in the Ready state, except
// excludeID (if non-empty). A send failure on one connection does not
// prevent delivery to others.
func (m *Manager) Broadcast(frame []byte, excludeID string) {
	for _, conn := range m.List() {
		if conn.ID == excludeID {
			continue
		}
		if conn.State() != Ready {
			continue
		}
		if err := conn.Send(frame); err != nil {
			m.logger.Debug("broadcast send failed", "connection_id", conn.ID, "error", err)
		}
	}
}

// StartIdleReaper launches the background goroutine that closes
// connections whose LastActivity exceeds cfg.IdleTimeout. No-op if
// IdleTimeout is 0.
func (m *Manager) StartIdleReaper(ctx context.Context, interval time.Duration) {
	if m.cfg.IdleTimeout <= 0 {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.reaperStopCh:
				return
			case <-ticker.C:
				m.reapIdle()
			}
		}
	}()
}

func (m *Manager) reapIdle() {
	cutoff := time.Now().Add(-m.cfg.IdleTimeout)
	for _, conn := range m.List() {
		if conn.LastActivity().Before(cutoff) {
			m.Close(conn.ID, "idle")
		}
	}
}

// Shutdown closes every connection and waits for egress goroutines to
// exit, bounded by ctx's deadline.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.reaperOnce.Do(func() {
		close(m.reaperStopCh)
	})

	for _, conn := range m.List() {
		m.Close(conn.ID, "shutdown")
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown deadline exceeded: %w", ctx.Err())
	}
}
