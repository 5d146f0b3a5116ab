package aiohttp

import (
	"github.com/valyala/bytebufferpool"
)

// default size for a freshly allocated overflow chunk
const defaultOverflowChunkSize = 64 * 1024

// overflowChunk holds bytes that could not be written in non-blocking mode.
// It follows the same flip discipline as WriteBuffer: appended to while
// unflipped, drained after flipping, never appended to again once flipped.
type overflowChunk struct {
	bb      *bytebufferpool.ByteBuffer
	rpos    int
	flipped bool
}

func (c *overflowChunk) flip() {
	c.flipped = true
}

// room returns the remaining append capacity against the chunk's target size.
func (c *overflowChunk) room(target int) int {
	if c.flipped {
		return 0
	}
	return target - len(c.bb.B)
}

func (c *overflowChunk) put(p []byte) {
	c.bb.B = append(c.bb.B, p...)
}

func (c *overflowChunk) readable() []byte {
	if !c.flipped {
		return nil
	}
	return c.bb.B[c.rpos:]
}

func (c *overflowChunk) consume(n int) {
	c.rpos += n
	if c.rpos > len(c.bb.B) {
		c.rpos = len(c.bb.B)
	}
}

func (c *overflowChunk) drained() bool {
	return c.flipped && c.rpos >= len(c.bb.B)
}

func (c *overflowChunk) release() {
	c.bb.Reset()
	bytebufferpool.Put(c.bb)
	c.bb = nil
}

// overflowQueue is the FIFO backlog of bytes awaiting retransmission.
// Insertion order is transmission order. Callers hold the engine lock.
type overflowQueue struct {
	chunks    []*overflowChunk
	chunkSize int
	size      int // total queued bytes
}

func newOverflowQueue(chunkSize int) *overflowQueue {
	if chunkSize <= 0 {
		chunkSize = defaultOverflowChunkSize
	}
	return &overflowQueue{chunkSize: chunkSize}
}

// push appends p to the queue, reusing the last chunk when it is still
// appendable and has room, amortizing allocation across small writes.
func (q *overflowQueue) push(p []byte) {
	if len(p) == 0 {
		return
	}

	var last *overflowChunk
	if n := len(q.chunks); n > 0 {
		last = q.chunks[n-1]
	}
	if last == nil || last.flipped || last.room(q.chunkSize) < len(p) {
		last = &overflowChunk{bb: bytebufferpool.Get()}
		q.chunks = append(q.chunks, last)
	}
	last.put(p)
	q.size += len(p)
}

// front returns the oldest chunk, or nil when the queue is empty.
func (q *overflowQueue) front() *overflowChunk {
	if len(q.chunks) == 0 {
		return nil
	}
	return q.chunks[0]
}

// pop removes the front chunk and returns its storage to the pool.
func (q *overflowQueue) pop() {
	if len(q.chunks) == 0 {
		return
	}
	c := q.chunks[0]
	q.chunks[0] = nil
	q.chunks = q.chunks[1:]
	c.release()
}

// consumed accounts n bytes moved out of the queue toward the wire.
func (q *overflowQueue) consumed(n int) {
	q.size -= n
	if q.size < 0 {
		q.size = 0
	}
}

func (q *overflowQueue) empty() bool { return len(q.chunks) == 0 }

// Len returns total queued bytes, the amount buffered but not yet sent.
func (q *overflowQueue) Len() int { return q.size }

// discard drops all chunks, returning their storage to the pool.
func (q *overflowQueue) discard() {
	for _, c := range q.chunks {
		c.release()
	}
	q.chunks = nil
	q.size = 0
}
