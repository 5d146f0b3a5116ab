package aiohttp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConnWriteInterestSingleShot(t *testing.T) {
	ch := newFakeChannel()
	fired := make(chan struct{}, 8)
	conn := NewConn(ch, func() { fired <- struct{}{} })

	assert.Nil(t, conn.AddWriteInterest())
	// second registration before the event collapses into the first
	assert.Nil(t, conn.AddWriteInterest())

	ch.signalWritable()
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("callback never fired")
	}
	select {
	case <-fired:
		t.Fatal("collapsed registration fired twice")
	case <-time.After(50 * time.Millisecond):
	}

	// re-arming after the event fires again
	assert.Nil(t, conn.AddWriteInterest())
	ch.signalWritable()
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("re-armed callback never fired")
	}
}

func TestConnWriteInterestCancelled(t *testing.T) {
	ch := newFakeChannel()
	ch.setState(StateCancelled)
	conn := NewConn(ch, nil)
	assert.Equal(t, ErrTransportClosed, conn.AddWriteInterest())
}

func TestConnTouch(t *testing.T) {
	ch := newFakeChannel()
	conn := NewConn(ch, nil)

	time.Sleep(30 * time.Millisecond)
	assert.True(t, conn.IdleFor() >= 20*time.Millisecond)

	conn.Touch()
	assert.True(t, conn.IdleFor() < 20*time.Millisecond)
}

func TestConnWriteTimeout(t *testing.T) {
	ch := newFakeChannel()
	conn := NewConn(ch, nil)
	assert.Equal(t, defaultWriteTimeout, conn.WriteTimeout())
	conn.SetWriteTimeout(time.Second)
	assert.Equal(t, time.Second, conn.WriteTimeout())
}
