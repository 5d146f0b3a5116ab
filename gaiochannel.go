package aiohttp

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/xtaci/gaio"
)

// GaioChannel adapts a connection managed by a gaio.Watcher into a Channel.
//
// The watcher queues submitted writes internally, so TryWrite accepts the
// whole payload immediately; actual wire transmission completes
// asynchronously and the event loop reports it back through writeDone. The
// engine's overflow machinery therefore rarely engages on this channel, the
// watcher is the backlog.
type GaioChannel struct {
	watcher  *gaio.Watcher
	conn     net.Conn
	owner    interface{} // opaque per-connection state for the event loop
	writable chan struct{}
	pending  int32 // writes submitted but not yet completed, atomic
	state    int32 // ConnState, atomic
	dead     sync.Once
}

// NewGaioChannel wraps conn, which must already be managed by watcher.
func NewGaioChannel(watcher *gaio.Watcher, conn net.Conn) *GaioChannel {
	return &GaioChannel{
		watcher:  watcher,
		conn:     conn,
		writable: make(chan struct{}, 1),
	}
}

// TryWrite submits an asynchronous write to the watcher. The payload is
// copied, the engine reuses its transmit buffer before completion arrives.
func (c *GaioChannel) TryWrite(p []byte) (int, error) {
	if c.State() != StateActive {
		return 0, ErrTransportClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	buf := make([]byte, len(p))
	copy(buf, p)
	if err := c.watcher.Write(c, c.conn, buf); err != nil {
		return 0, err
	}
	atomic.AddInt32(&c.pending, 1)
	return len(p), nil
}

// Flush reports done immediately; the watcher owns transmission of
// submitted writes.
func (c *GaioChannel) Flush(block bool) (bool, error) {
	if c.State() != StateActive {
		return false, ErrTransportClosed
	}
	return true, nil
}

// Writable pulses on write completion and is closed when the transport dies.
func (c *GaioChannel) Writable() <-chan struct{} {
	return c.writable
}

// State reports the registration state.
func (c *GaioChannel) State() ConnState {
	return ConnState(atomic.LoadInt32(&c.state))
}

// Pending returns the count of submitted writes not yet completed.
func (c *GaioChannel) Pending() int {
	return int(atomic.LoadInt32(&c.pending))
}

// writeDone is called by the event loop for every OpWrite completion on
// this channel. The submitted write is accounted either way; a completion
// error additionally kills the channel.
func (c *GaioChannel) writeDone(err error) {
	atomic.AddInt32(&c.pending, -1)
	if err != nil {
		c.terminate(StateClosed)
		return
	}
	select {
	case c.writable <- struct{}{}:
	default:
	}
}

// terminate moves the channel to a dead state and wakes readiness waiters.
func (c *GaioChannel) terminate(s ConnState) {
	c.dead.Do(func() {
		atomic.StoreInt32(&c.state, int32(s))
		close(c.writable)
	})
}

// Cancel marks the registration gone; engine calls fail from here on.
func (c *GaioChannel) Cancel() {
	c.terminate(StateCancelled)
}
