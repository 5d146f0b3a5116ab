package aiohttp

// WriteBuffer is a fixed-capacity transmit buffer with two explicit states.
//
// In writable state, Put appends bytes at the write cursor. Flip transitions
// to readable state, fixing the readable window to exactly the bytes put since
// the last Clear. In readable state, Readable exposes the unread window and
// Consume advances past transmitted bytes. Clear returns the buffer to
// writable state with full capacity.
//
// The two states never overlap: a buffer is either being appended to or being
// drained, and only Flip/Clear move between them.
type WriteBuffer struct {
	store   []byte
	wpos    int  // write cursor, valid while writable
	rpos    int  // read cursor, valid while readable
	limit   int  // readable limit, fixed by Flip
	flipped bool // true: readable, false: writable
}

// NewWriteBuffer allocates a buffer of the given capacity.
func NewWriteBuffer(capacity int) *WriteBuffer {
	if capacity <= 0 {
		panic(ErrBufferSize)
	}
	return &WriteBuffer{store: make([]byte, capacity)}
}

// Cap returns the fixed capacity.
func (b *WriteBuffer) Cap() int { return len(b.store) }

// Flipped reports whether the buffer is in readable state.
func (b *WriteBuffer) Flipped() bool { return b.flipped }

// Put copies as many bytes of p as fit and returns the count.
// Put on a flipped buffer is a programming error.
func (b *WriteBuffer) Put(p []byte) int {
	if b.flipped {
		panic("aiohttp: Put on flipped WriteBuffer")
	}
	n := copy(b.store[b.wpos:], p)
	b.wpos += n
	return n
}

// Free returns the remaining writable capacity.
func (b *WriteBuffer) Free() int {
	if b.flipped {
		return 0
	}
	return len(b.store) - b.wpos
}

// Flip transitions to readable state. Flipping an already flipped buffer is a
// no-op, so multiple call sites may request a flip on the same pending write.
func (b *WriteBuffer) Flip() {
	if b.flipped {
		return
	}
	b.limit = b.wpos
	b.rpos = 0
	b.flipped = true
}

// Clear resets to writable state with full capacity.
func (b *WriteBuffer) Clear() {
	b.wpos = 0
	b.rpos = 0
	b.limit = 0
	b.flipped = false
}

// Readable returns the unread window. Empty unless flipped.
func (b *WriteBuffer) Readable() []byte {
	if !b.flipped {
		return nil
	}
	return b.store[b.rpos:b.limit]
}

// Consume advances the read cursor past n transmitted bytes.
func (b *WriteBuffer) Consume(n int) {
	b.rpos += n
	if b.rpos > b.limit {
		b.rpos = b.limit
	}
}

// Remaining returns the count of unread bytes in a flipped buffer.
func (b *WriteBuffer) Remaining() int {
	if !b.flipped {
		return 0
	}
	return b.limit - b.rpos
}

// HasPending reports whether the buffer holds bytes not yet on the wire,
// in either state.
func (b *WriteBuffer) HasPending() bool {
	if b.flipped {
		return b.limit-b.rpos > 0
	}
	return b.wpos > 0
}
