package aiohttp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteBufferFlipDiscipline(t *testing.T) {
	buf := NewWriteBuffer(8)
	assert.False(t, buf.Flipped())
	assert.Equal(t, 8, buf.Cap())

	n := buf.Put([]byte("HELLO"))
	assert.Equal(t, 5, n)
	assert.Equal(t, 3, buf.Free())
	assert.True(t, buf.HasPending())

	buf.Flip()
	assert.True(t, buf.Flipped())
	assert.Equal(t, []byte("HELLO"), buf.Readable())
	assert.Equal(t, 5, buf.Remaining())

	// flipping an already flipped buffer must be a no-op
	buf.Consume(2)
	buf.Flip()
	assert.Equal(t, []byte("LLO"), buf.Readable())
	assert.Equal(t, 3, buf.Remaining())

	buf.Consume(3)
	assert.False(t, buf.HasPending())

	buf.Clear()
	assert.False(t, buf.Flipped())
	assert.Equal(t, 8, buf.Free())

	// clear-append-flip reproduces exactly the newly appended bytes
	buf.Put([]byte("WORLD"))
	buf.Flip()
	assert.Equal(t, []byte("WORLD"), buf.Readable())
}

func TestWriteBufferPutOverflow(t *testing.T) {
	buf := NewWriteBuffer(4)
	n := buf.Put([]byte("HELLO"))
	assert.Equal(t, 4, n)
	assert.Equal(t, 0, buf.Free())
	buf.Flip()
	assert.Equal(t, []byte("HELL"), buf.Readable())
}

func TestWriteBufferPutWhileFlipped(t *testing.T) {
	buf := NewWriteBuffer(4)
	buf.Put([]byte("ab"))
	buf.Flip()
	assert.Panics(t, func() { buf.Put([]byte("cd")) })
}

func TestWriteBufferBadCapacity(t *testing.T) {
	assert.Panics(t, func() { NewWriteBuffer(0) })
}
