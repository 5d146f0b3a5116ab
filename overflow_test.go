package aiohttp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverflowQueueCoalesce(t *testing.T) {
	q := newOverflowQueue(16)
	q.push([]byte("aaa"))
	q.push([]byte("bbb"))
	// both fit the first chunk's target size, one allocation
	assert.Equal(t, 1, len(q.chunks))
	assert.Equal(t, 6, q.Len())

	// a payload that no longer fits the last chunk opens a new one
	q.push([]byte("0123456789abcdef"))
	assert.Equal(t, 2, len(q.chunks))
	assert.Equal(t, 22, q.Len())
}

func TestOverflowQueueNoAppendAfterFlip(t *testing.T) {
	q := newOverflowQueue(16)
	q.push([]byte("aaa"))
	q.front().flip()
	q.push([]byte("bbb"))
	assert.Equal(t, 2, len(q.chunks))
}

func TestOverflowQueueFIFODrain(t *testing.T) {
	q := newOverflowQueue(4)
	q.push([]byte("HELLO"))
	q.push([]byte(" WORLD"))

	var got []byte
	for !q.empty() {
		c := q.front()
		c.flip()
		for !c.drained() {
			r := c.readable()
			got = append(got, r...)
			c.consume(len(r))
			q.consumed(len(r))
		}
		q.pop()
	}
	assert.Equal(t, []byte("HELLO WORLD"), got)
	assert.Equal(t, 0, q.Len())
}

func TestOverflowQueueDiscard(t *testing.T) {
	q := newOverflowQueue(8)
	q.push([]byte("pending"))
	q.discard()
	assert.True(t, q.empty())
	assert.Equal(t, 0, q.Len())
}
