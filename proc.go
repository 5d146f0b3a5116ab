package aiohttp

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/xtaci/gaio"
)

var (
	RequestEndFlag = []byte{0xD, 0xA, 0xD, 0xA}
)

const (
	stateRequest = iota
	stateBody
	stateClosing // response handed to the output engine, draining
)

const defaultSelectorPoolSize = 128

// AIOHttpContext carries per-connection protocol state. The read side is the
// header/body state machine; the write side is the output engine over a
// GaioChannel.
type AIOHttpContext struct {
	state         int
	buf           *bytes.Buffer
	contentLength int64
	req           *http.Request

	ch   *GaioChannel
	conn *Conn
	out  *OutputBuffer
}

// body defines a body reader
type body struct {
	limitedReader *io.LimitedReader
}

func newBody(r io.Reader, n int64) *body {
	b := new(body)
	b.limitedReader = &io.LimitedReader{R: r, N: n}
	return b
}

func (b *body) Read(p []byte) (n int, err error) {
	return b.limitedReader.Read(p)
}

func (*body) Close() error {
	return nil
}

// response collects handler output before framing
type response struct {
	header     http.Header
	statusCode int
	buf        *bytes.Buffer
}

func newResponse() *response {
	res := new(response)
	res.header = make(http.Header)
	res.statusCode = http.StatusOK
	res.buf = new(bytes.Buffer)
	return res
}

func (r *response) Header() http.Header {
	return r.header
}

func (r *response) Write(bts []byte) (int, error) {
	return r.buf.Write(bts)
}

func (r *response) WriteHeader(statusCode int) {
	r.statusCode = statusCode
}

type AIOHttpProcessor struct {
	watcher *gaio.Watcher
	handler http.Handler
	pool    *SelectorPool
}

// Create processor context
func NewAIOHttpProcessor(watcher *gaio.Watcher, handler http.Handler) (*AIOHttpProcessor, error) {
	if handler == nil {
		return nil, ErrRequestHandlerEmpty
	}
	pool, err := NewSelectorPool(defaultSelectorPoolSize)
	if err != nil {
		return nil, err
	}
	proc := new(AIOHttpProcessor)
	proc.watcher = watcher
	proc.handler = handler
	proc.pool = pool
	return proc, nil
}

// Add connection to this processor
func (proc *AIOHttpProcessor) AddConn(conn net.Conn) (err error) {
	ctx := new(AIOHttpContext)
	ctx.buf = new(bytes.Buffer)
	ctx.ch = NewGaioChannel(proc.watcher, conn)
	ctx.ch.owner = ctx
	ctx.conn = NewConn(ctx.ch, func() { proc.resumeWrite(ctx, conn) })
	ctx.out = NewOutputBuffer(ctx.conn, proc.pool, 0)
	return proc.watcher.Read(ctx, conn, nil)
}

// Processor loop
func (proc *AIOHttpProcessor) Processor() {
	for {
		// loop wait for any IO events
		results, err := proc.watcher.WaitIO()
		if err != nil {
			logrus.WithError(err).Error("watcher terminated")
			return
		}

		for _, res := range results {
			switch res.Operation {
			case gaio.OpRead: // read completion event
				ctx, ok := res.Context.(*AIOHttpContext)
				if !ok {
					continue
				}
				if res.Error == nil {
					proc.processRequest(ctx, &res)
				} else {
					ctx.ch.terminate(StateClosed)
					proc.watcher.Free(res.Conn)
				}
			case gaio.OpWrite: // write completion event, context is the channel
				ch, ok := res.Context.(*GaioChannel)
				if !ok {
					continue
				}
				ch.writeDone(res.Error)
				ctx, ok := ch.owner.(*AIOHttpContext)
				if !ok {
					continue
				}
				if ctx.state == stateClosing && ch.Pending() == 0 && ctx.out.Buffered() == 0 {
					ch.terminate(StateClosed)
					proc.watcher.Free(res.Conn)
				}
			}
		}
	}
}

// resumeWrite is the writable-readiness callback: drain what the engine has
// buffered, re-register if the channel still cannot take it all.
func (proc *AIOHttpProcessor) resumeWrite(ctx *AIOHttpContext, conn net.Conn) {
	dataLeft, err := ctx.out.Flush(false)
	if err != nil {
		logrus.WithError(err).Warn("async flush failed")
		ctx.ch.terminate(StateClosed)
		proc.watcher.Free(conn)
		return
	}
	if dataLeft {
		if err := ctx.out.RegisterWriteInterest(); err != nil {
			logrus.WithError(err).Warn("write interest registration failed")
		}
	}
}

// process request
func (proc *AIOHttpProcessor) processRequest(ctx *AIOHttpContext, res *gaio.OpResult) {
	ctx.buf.Write(res.Buffer[:res.Size])

	switch ctx.state {
	case stateRequest:
		buffer := ctx.buf.Bytes()
		s := len(buffer) - res.Size - 3 // traceback at most 3 extra bytes
		if s < 0 {
			s = 0
		}

		// O(n) search of CRLF-CRLF
		if i := bytes.Index(buffer[s:], RequestEndFlag); i != -1 {
			reader := bufio.NewReader(ctx.buf)
			req, err := http.ReadRequest(reader)
			if err != nil {
				return
			}

			// body bytes already pulled past the header stay with the context
			rest := new(bytes.Buffer)
			io.Copy(rest, reader)
			ctx.buf = rest

			ctx.contentLength = req.ContentLength
			if ctx.contentLength < 0 {
				ctx.contentLength = 0
			}
			ctx.req = req
			ctx.state = stateBody
			proc.respond(ctx, res.Conn)
		}
	case stateBody:
		proc.respond(ctx, res.Conn)
	}

	err := proc.watcher.Read(ctx, res.Conn, nil)
	if err != nil {
		return
	}
}

// respond runs the handler once the body is complete and pushes the framed
// response through the output engine.
func (proc *AIOHttpProcessor) respond(ctx *AIOHttpContext, conn net.Conn) {
	if ctx.state != stateBody || int64(ctx.buf.Len()) < ctx.contentLength {
		return
	}

	ctx.req.Body = newBody(ctx.buf, ctx.contentLength)
	r := newResponse()
	proc.handler.ServeHTTP(r, ctx.req)
	codeText := http.StatusText(r.statusCode)

	// status line and headers
	respHeader := fmt.Sprintf("HTTP/1.1 %v %v\r\nContent-Length: %v\r\nConnection: close\r\n\r\n",
		r.statusCode, codeText, r.buf.Len())

	if _, err := ctx.out.Write([]byte(respHeader)); err != nil {
		logrus.WithError(err).Warn("write response header")
		ctx.ch.terminate(StateClosed)
		proc.watcher.Free(conn)
		return
	}
	ctx.out.Commit()
	if _, err := ctx.out.Write(r.buf.Bytes()); err != nil {
		logrus.WithError(err).Warn("write response body")
		ctx.ch.terminate(StateClosed)
		proc.watcher.Free(conn)
		return
	}

	ctx.state = stateClosing
	if dataLeft, err := ctx.out.Flush(false); err == nil && dataLeft {
		if rerr := ctx.out.RegisterWriteInterest(); rerr != nil {
			logrus.WithError(rerr).Warn("write interest registration failed")
		}
	}
}
