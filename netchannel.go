//go:build !windows
// +build !windows

package aiohttp

import (
	"sync/atomic"
	"syscall"
	"time"
)

// NetChannel adapts a net.Conn exposing syscall.Conn into a non-blocking
// Channel. Writes go through the raw file descriptor so EWOULDBLOCK surfaces
// as zero progress instead of suspending the caller; a would-block arms a
// background monitor that signals Writable once the descriptor is ready.
type NetChannel struct {
	conn     syscallConn
	raw      syscall.RawConn
	writable chan struct{}
	state    int32 // ConnState, atomic
	armed    int32
}

type syscallConn interface {
	SetWriteDeadline(t time.Time) error
	Close() error
	SyscallConn() (syscall.RawConn, error)
}

// NewNetChannel wraps conn. The connection must support raw descriptor
// access (unix stream sockets do).
func NewNetChannel(conn syscallConn) (*NetChannel, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return nil, err
	}
	return &NetChannel{
		conn:     conn,
		raw:      raw,
		writable: make(chan struct{}, 1),
	}, nil
}

// sysWrite is the raw descriptor write, indirect for tests.
var sysWrite = syscall.Write

// TryWrite performs a single non-blocking write on the descriptor.
// (0, nil) means the socket would block.
func (c *NetChannel) TryWrite(p []byte) (int, error) {
	if ConnState(atomic.LoadInt32(&c.state)) != StateActive {
		return 0, ErrTransportClosed
	}
	var n int
	var serr error
	err := c.raw.Write(func(fd uintptr) bool {
		for {
			n, serr = sysWrite(int(fd), p)
			if serr == syscall.EINTR {
				continue
			}
			return true // one shot, never let the runtime park us
		}
	})
	if err != nil {
		return 0, err
	}
	if serr != nil {
		if n < 0 {
			n = 0
		}
		if serr == syscall.EAGAIN || serr == syscall.EWOULDBLOCK {
			c.armWritable()
			return n, nil
		}
		return n, serr
	}
	return n, nil
}

// armWritable starts a single waiter for descriptor writability.
func (c *NetChannel) armWritable() {
	if !atomic.CompareAndSwapInt32(&c.armed, 0, 1) {
		return
	}
	go func() {
		first := true
		// the runtime parks us until the descriptor is writable
		err := c.raw.Write(func(fd uintptr) bool {
			if first {
				first = false
				return false
			}
			return true
		})
		atomic.StoreInt32(&c.armed, 0)
		if err != nil {
			return
		}
		select {
		case c.writable <- struct{}{}:
		default:
		}
	}()
}

// Flush reports done immediately; a plain TCP channel holds no
// protocol-level pending data below the engine.
func (c *NetChannel) Flush(block bool) (bool, error) {
	return true, nil
}

// Writable delivers writability signals armed by would-block writes.
func (c *NetChannel) Writable() <-chan struct{} {
	return c.writable
}

// State reports the registration state.
func (c *NetChannel) State() ConnState {
	return ConnState(atomic.LoadInt32(&c.state))
}

// Cancel marks the registration gone without closing the socket; subsequent
// engine calls fail with ErrTransportClosed.
func (c *NetChannel) Cancel() {
	atomic.CompareAndSwapInt32(&c.state, int32(StateActive), int32(StateCancelled))
}

// Close shuts the transport down and wakes any readiness waiter.
func (c *NetChannel) Close() error {
	if !atomic.CompareAndSwapInt32(&c.state, int32(StateActive), int32(StateClosed)) {
		atomic.StoreInt32(&c.state, int32(StateClosed))
	}
	// unblock a parked readiness monitor
	c.conn.SetWriteDeadline(time.Now())
	return c.conn.Close()
}
