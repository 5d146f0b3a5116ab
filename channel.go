package aiohttp

// ConnState tracks the registration state of a connection with its poller.
// It replaces a nullable back-reference: callers ask the channel directly
// instead of probing for a missing attachment.
type ConnState int32

const (
	StateActive ConnState = iota
	StateCancelled
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateCancelled:
		return "cancelled"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Channel is a byte-oriented, non-blocking transport endpoint.
//
// Implementations never suspend the caller: TryWrite transfers whatever the
// socket accepts right now and returns. Blocking semantics are emulated above
// this interface by waiting on Writable between attempts.
type Channel interface {
	// TryWrite transfers as many bytes of p as the socket accepts without
	// blocking. (0, nil) means the socket is not currently writable.
	TryWrite(p []byte) (int, error)

	// Flush pushes protocol-level pending data held below the engine, such
	// as a TLS record tail or chunked trailer. done reports nothing is left
	// pending. Plain channels report done immediately.
	Flush(block bool) (done bool, err error)

	// Writable delivers a signal when the socket may accept more bytes.
	// The channel is closed when the transport shuts down.
	Writable() <-chan struct{}

	// State reports the connection's registration state.
	State() ConnState
}
