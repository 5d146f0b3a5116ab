package aiohttp

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

const defaultWriteBufferSize = 16 * 1024

// interim response emitted by SendAck before the response is committed
var ackBytes = []byte("HTTP/1.1 100 Continue\r\n\r\n")

// OutputBuffer is the output-side data path of a connection: it accepts
// response bytes from the protocol layer, transmits them over a non-blocking
// Channel, and emulates blocking semantics through the SelectorPool when the
// caller asks for them.
//
// Bytes that a non-blocking write cannot place on the wire are kept, in
// order, in the primary buffer and the overflow queue; a later Flush resumes
// from exactly where transmission stopped.
//
// Both the application worker and the writable-readiness callback re-enter
// the engine, so every operation that touches buffer state runs under the
// per-connection mutex.
type OutputBuffer struct {
	mu   sync.Mutex
	conn *Conn
	ch   Channel
	pool *SelectorPool

	buf   *WriteBuffer
	queue *overflowQueue

	committed bool
	blocking  int32 // atomic; set by the owning connection
}

// NewOutputBuffer creates the engine for conn. bufSize <= 0 selects the
// default primary buffer size.
func NewOutputBuffer(conn *Conn, pool *SelectorPool, bufSize int) *OutputBuffer {
	if bufSize <= 0 {
		bufSize = defaultWriteBufferSize
	}
	return &OutputBuffer{
		conn:  conn,
		ch:    conn.Channel(),
		pool:  pool,
		buf:   NewWriteBuffer(bufSize),
		queue: newOverflowQueue(bufSize),
	}
}

// SetBlocking switches between blocking and non-blocking write semantics.
// The owning connection sets this, not the engine.
func (out *OutputBuffer) SetBlocking(block bool) {
	var v int32
	if block {
		v = 1
	}
	atomic.StoreInt32(&out.blocking, v)
}

// Blocking reports the current write mode.
func (out *OutputBuffer) Blocking() bool {
	return atomic.LoadInt32(&out.blocking) == 1
}

// Commit marks the response headers as sent; SendAck becomes a no-op.
func (out *OutputBuffer) Commit() {
	out.mu.Lock()
	out.committed = true
	out.mu.Unlock()
}

// Committed reports whether the response has been committed.
func (out *OutputBuffer) Committed() bool {
	out.mu.Lock()
	defer out.mu.Unlock()
	return out.committed
}

// Buffered returns the byte count accepted by Write but not yet on the wire.
func (out *OutputBuffer) Buffered() int {
	out.mu.Lock()
	defer out.mu.Unlock()
	n := out.queue.Len()
	if out.buf.Flipped() {
		n += out.buf.Remaining()
	} else {
		n += out.buf.Cap() - out.buf.Free()
	}
	return n
}

// Write queues p for transmission and returns once every byte is either on
// the wire or buffered. In blocking mode it returns only after the wire has
// everything, bounded per stall by the connection write timeout. In
// non-blocking mode the unwritten remainder moves to the overflow queue,
// never dropped, never reordered.
func (out *OutputBuffer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	out.mu.Lock()
	defer out.mu.Unlock()

	block := out.Blocking()
	total := len(p)

	// drain previously buffered data first, nothing new may overtake it
	dataLeft, err := out.flushLocked(block)
	if err != nil {
		return 0, err
	}

	for !dataLeft && len(p) > 0 {
		n := out.buf.Put(p)
		p = p[n:]
		written, werr := out.writeToSocket(out.buf, block, true)
		if werr != nil {
			return total - len(p), werr
		}
		if written == 0 {
			// socket not currently writable
			dataLeft = true
		} else {
			dataLeft, err = out.flushLocked(block)
			if err != nil {
				return total - len(p), err
			}
		}
	}

	// writing is client-observable I/O, don't let idle eviction count it
	out.conn.Touch()

	if !block && len(p) > 0 {
		out.queue.push(p)
	}
	return total, nil
}

// Flush pushes buffered data toward the wire. dataLeft reports that the
// primary buffer or the overflow queue still holds bytes; the caller uses it
// to decide whether to register for write readiness.
func (out *OutputBuffer) Flush(block bool) (dataLeft bool, err error) {
	out.mu.Lock()
	defer out.mu.Unlock()
	return out.flushLocked(block)
}

// flushLocked drains the primary buffer, then the overflow queue in FIFO
// order through the primary buffer. Callers hold out.mu.
func (out *OutputBuffer) flushLocked(block bool) (bool, error) {
	// an asynchronous flush is activity too, prevent spurious timeout
	out.conn.Touch()

	if out.buf.HasPending() {
		if _, err := out.writeToSocket(out.buf, block, !out.buf.Flipped()); err != nil {
			return true, err
		}
	}
	if out.buf.HasPending() {
		return true, nil
	}

	for !out.queue.empty() {
		chunk := out.queue.front()
		chunk.flip()

		for !out.buf.HasPending() && !chunk.drained() {
			n := out.buf.Put(chunk.readable())
			chunk.consume(n)
			out.queue.consumed(n)
			written, err := out.writeToSocket(out.buf, block, true)
			if err != nil {
				return true, err
			}
			if written == 0 && out.buf.HasPending() {
				// zero progress, socket not writable; resume here later
				return true, nil
			}
		}
		if !chunk.drained() {
			// cannot advance to the next chunk ahead of this one
			return true, nil
		}
		out.queue.pop()
		if out.buf.HasPending() {
			break
		}
	}

	return out.buf.HasPending() || !out.queue.empty(), nil
}

// writeToSocket is the sole transmission point for the connection; callers
// hold out.mu so an application write and a readiness callback cannot
// interleave on the buffer state.
func (out *OutputBuffer) writeToSocket(buf *WriteBuffer, block bool, flip bool) (int, error) {
	if flip {
		buf.Flip()
	}
	if out.ch.State() != StateActive {
		return 0, ErrTransportClosed
	}

	// best-effort borrow; without a handle the write degrades to
	// non-waiting channel semantics
	sel, _ := out.pool.Get()
	defer out.pool.Put(sel)

	written, err := out.pool.Write(buf, out.ch, sel, out.conn.WriteTimeout(), block)
	if err != nil {
		return written, err
	}

	// make sure protocol-level pending data is flushed, regardless of mode
	for {
		done, ferr := out.ch.Flush(true)
		if ferr != nil {
			return written, ferr
		}
		if done {
			break
		}
	}

	if block || buf.Remaining() == 0 {
		// blocking writes must empty the buffer,
		// and if remaining==0 then we did empty it
		buf.Clear()
	}
	return written, nil
}

// SendAck emits an interim 100 Continue unless the response has been
// committed. The ack is written blocking and ahead of any overflow-queued
// body bytes; callers invoke it before body bytes are appended, so the
// primary buffer is writable and has room.
func (out *OutputBuffer) SendAck() error {
	out.mu.Lock()
	defer out.mu.Unlock()
	if out.committed {
		return nil
	}
	out.buf.Put(ackBytes)
	if _, err := out.writeToSocket(out.buf, true, true); err != nil {
		return errors.Wrap(err, "failed to write ack")
	}
	return nil
}

// RegisterWriteInterest asks the connection's poller registration for a
// writable-readiness callback. This is the engine's only backpressure
// signal; it never polls for writability outside a bounded blocking write.
func (out *OutputBuffer) RegisterWriteInterest() error {
	if out.ch.State() != StateActive {
		return ErrTransportClosed
	}
	return out.conn.AddWriteInterest()
}

// Recycle resets the engine for connection reuse: primary buffer cleared,
// overflow queue discarded, committed flag reset. In-flight state is
// invalidated, not awaited.
func (out *OutputBuffer) Recycle() {
	out.mu.Lock()
	defer out.mu.Unlock()
	out.buf.Clear()
	out.queue.discard()
	out.committed = false
}
