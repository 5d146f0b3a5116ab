package aiohttp

import (
	"net"
	"net/http"

	"github.com/libp2p/go-reuseport"
	"github.com/xtaci/gaio"
)

type Server struct {
	// addr optionally specifies the TCP address for the server to listen on,
	// in the form "host:port". If empty, ":http" (port 80) is used.
	// The service names are defined in RFC 6335 and assigned by IANA.
	// See net.Dial for details of the address format.
	addr    string
	handler http.Handler      // handler to invoke
	proc    *AIOHttpProcessor // I/O processor
}

func newServer(addr string, handler http.Handler) (*Server, error) {
	watcher, err := gaio.NewWatcher()
	if err != nil {
		return nil, err
	}
	proc, err := NewAIOHttpProcessor(watcher, handler)
	if err != nil {
		return nil, err
	}
	return &Server{addr: addr, handler: handler, proc: proc}, nil
}

func ListenAndServe(addr string, handler http.Handler) error {
	srv, err := newServer(addr, handler)
	if err != nil {
		return err
	}
	return srv.ListenAndServe()
}

// ListenAndServeReuseport is ListenAndServe over a SO_REUSEPORT listener, so
// multiple server processes can share one port.
func ListenAndServeReuseport(addr string, handler http.Handler) error {
	srv, err := newServer(addr, handler)
	if err != nil {
		return err
	}
	if srv.addr == "" {
		srv.addr = ":http"
	}
	ln, err := reuseport.Listen("tcp", srv.addr)
	if err != nil {
		return err
	}
	go srv.proc.Processor()
	return srv.Serve(ln)
}

func (srv *Server) ListenAndServe() error {
	addr := srv.addr
	if addr == "" {
		addr = ":http"
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	// start processor loop
	go srv.proc.Processor()

	return srv.Serve(ln)
}

func (srv *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}

		err = srv.proc.AddConn(conn)
		if err != nil {
			return err
		}
	}
}
