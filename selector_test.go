package aiohttp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSelectorPoolBorrowReturn(t *testing.T) {
	pool, err := NewSelectorPool(1)
	assert.Nil(t, err)

	s, err := pool.Get()
	assert.Nil(t, err)
	assert.NotNil(t, s)

	// exhausted pool degrades to a nil handle, never an error
	s2, err := pool.Get()
	assert.Nil(t, err)
	assert.Nil(t, s2)

	pool.Put(s)
	s3, err := pool.Get()
	assert.Nil(t, err)
	assert.NotNil(t, s3)
}

func TestSelectorPoolBadSize(t *testing.T) {
	_, err := NewSelectorPool(0)
	assert.Equal(t, ErrSelectorPool, err)
}

func TestSelectorPoolWriteNonBlocking(t *testing.T) {
	pool, _ := NewSelectorPool(1)
	ch := newFakeChannel()
	ch.setBudget(2)

	buf := NewWriteBuffer(16)
	buf.Put([]byte("HELLO"))
	buf.Flip()

	n, err := pool.Write(buf, ch, nil, 0, false)
	assert.Nil(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 3, buf.Remaining())
	assert.Equal(t, []byte("HE"), ch.bytes())
}

func TestSelectorPoolWriteDegradedTimeout(t *testing.T) {
	pool, _ := NewSelectorPool(1)
	ch := newFakeChannel()
	ch.setBudget(0)

	buf := NewWriteBuffer(16)
	buf.Put([]byte("STUCK"))
	buf.Flip()

	// blocking write without a selector handle polls up to the deadline
	start := time.Now()
	_, err := pool.Write(buf, ch, nil, 50*time.Millisecond, true)
	assert.Equal(t, ErrTimeout, err)
	assert.True(t, time.Since(start) >= 40*time.Millisecond)
}

func TestSelectorWaitTransportShutdown(t *testing.T) {
	pool, _ := NewSelectorPool(1)
	ch := newFakeChannel()
	ch.setBudget(0)
	close(ch.writable)

	buf := NewWriteBuffer(16)
	buf.Put([]byte("GONE"))
	buf.Flip()

	sel, _ := pool.Get()
	defer pool.Put(sel)
	_, err := pool.Write(buf, ch, sel, time.Second, true)
	assert.Equal(t, ErrTransportClosed, err)
}
