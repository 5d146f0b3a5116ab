package aiohttp

import (
	"sync/atomic"
	"time"
)

const defaultWriteTimeout = 30 * time.Second

// Conn wraps a Channel with per-connection bookkeeping the output engine
// relies on: the write timeout, the idle-liveness marker, and single-shot
// write-interest registration.
//
// A Conn is shared between the application worker and the readiness callback
// path; every field mutated from both sides is atomic.
type Conn struct {
	ch           Channel
	writeTimeout int64 // nanoseconds, atomic
	lastActive   int64 // unix nanoseconds, atomic

	// write-interest registration; both container and application code can
	// trigger registration, the flag makes sure it happens only once until
	// the readiness event fires.
	interested int32
	onWritable func()
}

// NewConn wraps ch. onWritable is invoked at most once per AddWriteInterest
// when the channel becomes writable; nil disables the callback path.
func NewConn(ch Channel, onWritable func()) *Conn {
	c := &Conn{ch: ch, onWritable: onWritable}
	atomic.StoreInt64(&c.writeTimeout, int64(defaultWriteTimeout))
	c.Touch()
	return c
}

// Channel returns the wrapped transport.
func (c *Conn) Channel() Channel { return c.ch }

// SetWriteTimeout adjusts the bound on a single blocked write wait.
func (c *Conn) SetWriteTimeout(d time.Duration) {
	atomic.StoreInt64(&c.writeTimeout, int64(d))
}

// WriteTimeout returns the bound on a single blocked write wait.
func (c *Conn) WriteTimeout() time.Duration {
	return time.Duration(atomic.LoadInt64(&c.writeTimeout))
}

// Touch resets idle-timeout accounting. Called after every successful write
// or flush so client-observable I/O is not penalized by idle eviction.
func (c *Conn) Touch() {
	atomic.StoreInt64(&c.lastActive, time.Now().UnixNano())
}

// IdleFor reports how long the connection has been without I/O activity.
func (c *Conn) IdleFor() time.Duration {
	return time.Since(time.Unix(0, atomic.LoadInt64(&c.lastActive)))
}

// AddWriteInterest requests a single writable-readiness callback. Repeated
// calls before the event fires collapse into one registration.
func (c *Conn) AddWriteInterest() error {
	if c.ch.State() != StateActive {
		return ErrTransportClosed
	}
	if !atomic.CompareAndSwapInt32(&c.interested, 0, 1) {
		return nil
	}
	go func() {
		_, ok := <-c.ch.Writable()
		atomic.StoreInt32(&c.interested, 0)
		if ok && c.onWritable != nil {
			c.onWritable()
		}
	}()
	return nil
}
