package aiohttp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGaioChannelWriteDoneAccounting(t *testing.T) {
	ch := NewGaioChannel(nil, nil)
	ch.pending = 2

	ch.writeDone(nil)
	assert.Equal(t, 1, ch.Pending())
	assert.Equal(t, StateActive, ch.State())
	// completion pulses writable
	select {
	case <-ch.Writable():
	default:
		t.Fatal("completion did not pulse writable")
	}

	// a failed completion still accounts the submitted write, so a
	// draining connection with no other traffic can be released
	ch.writeDone(errors.New("broken pipe"))
	assert.Equal(t, 0, ch.Pending())
	assert.Equal(t, StateClosed, ch.State())

	// writable closes on termination
	_, ok := <-ch.Writable()
	assert.False(t, ok)
}

func TestGaioChannelCancel(t *testing.T) {
	ch := NewGaioChannel(nil, nil)
	ch.Cancel()
	assert.Equal(t, StateCancelled, ch.State())
	_, err := ch.TryWrite([]byte("x"))
	assert.Equal(t, ErrTransportClosed, err)
	_, err = ch.Flush(true)
	assert.Equal(t, ErrTransportClosed, err)
}
