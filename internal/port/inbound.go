package port

import "context"

// Transport produces a sequence of inbound text frames, accepts outbound
// frames, and signals disconnect. One Transport instance corresponds to
// one connection.
type Transport interface {
	// Recv blocks until the next inbound frame is available, the
	// transport disconnects (returns io.EOF), or ctx is cancelled.
	Recv(ctx context.Context) ([]byte, error)

	// Send writes one outbound frame. Implementations must be safe to
	// call concurrently with Recv, but not with other concurrent Send
	// calls -- the engine serializes its own writes per connection.
	Send(ctx context.Context, frame []byte) error

	// Close disconnects the transport, unblocking any in-flight Recv.
	Close() error
}
