package aiohttp

import (
	"time"
)

// interval between write retries when a blocking write could not borrow a
// selector and has to poll the channel directly
const degradedPollInterval = 10 * time.Millisecond

// Selector is a readiness-wait handle lent out by a SelectorPool. It carries
// a reusable timer so a blocked write can wait for writability with a bound.
type Selector struct {
	timer *time.Timer
}

func newSelector() *Selector {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		<-t.C
	}
	return &Selector{timer: t}
}

// awaitWritable blocks until ch signals writability, the transport shuts
// down, or the timeout elapses.
func (s *Selector) awaitWritable(ch Channel, timeout time.Duration) error {
	if timeout <= 0 {
		_, ok := <-ch.Writable()
		if !ok {
			return ErrTransportClosed
		}
		return nil
	}

	s.timer.Reset(timeout)
	select {
	case _, ok := <-ch.Writable():
		if !s.timer.Stop() {
			<-s.timer.C
		}
		if !ok {
			return ErrTransportClosed
		}
		return nil
	case <-s.timer.C:
		return ErrTimeout
	}
}

// SelectorPool lends Selector handles for blocking-write emulation. The pool
// is shared across all connections; handles are borrowed per write call and
// must be returned unconditionally, including on error paths.
type SelectorPool struct {
	free chan *Selector
}

// NewSelectorPool creates a pool holding size handles.
func NewSelectorPool(size int) (*SelectorPool, error) {
	if size <= 0 {
		return nil, ErrSelectorPool
	}
	p := &SelectorPool{free: make(chan *Selector, size)}
	for i := 0; i < size; i++ {
		p.free <- newSelector()
	}
	return p, nil
}

// Get borrows a handle. A nil handle with nil error means the pool is
// exhausted; callers degrade to a non-waiting write rather than failing.
func (p *SelectorPool) Get() (*Selector, error) {
	select {
	case s := <-p.free:
		return s, nil
	default:
		return nil, nil
	}
}

// Put returns a borrowed handle.
func (p *SelectorPool) Put(s *Selector) {
	if s == nil {
		return
	}
	select {
	case p.free <- s:
	default:
		// pool is full, handle was not ours; drop it
	}
}

// Write drains buf into ch. In non-blocking mode it transfers whatever the
// channel accepts and returns. In blocking mode it waits, bounded by timeout
// per stall, for writability between attempts until the buffer is empty.
//
// Without a selector handle a blocking write degrades to a deadline-bounded
// retry loop with a poll interval, so a channel that keeps reporting zero
// progress cannot busy-spin.
func (p *SelectorPool) Write(buf *WriteBuffer, ch Channel, sel *Selector, timeout time.Duration, block bool) (int, error) {
	var written int
	var deadline time.Time
	if block && sel == nil && timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for buf.Remaining() > 0 {
		n, err := ch.TryWrite(buf.Readable())
		if n > 0 {
			buf.Consume(n)
			written += n
			continue
		}
		if err != nil {
			return written, err
		}
		if !block {
			break
		}
		if sel != nil {
			if err := sel.awaitWritable(ch, timeout); err != nil {
				return written, err
			}
			continue
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return written, ErrTimeout
		}
		time.Sleep(degradedPollInterval)
	}
	return written, nil
}
