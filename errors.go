package aiohttp

import "errors"

var (
	ErrTransportClosed     = errors.New("connection registration cancelled")
	ErrSelectorPool        = errors.New("selector pool size must be positive")
	ErrBufferSize          = errors.New("write buffer size must be positive")
	ErrRequestHandlerEmpty = errors.New("empty request handler")
)

type timeoutError struct{}

func (e *timeoutError) Error() string {
	return "i/o timeout"
}

// Only implement the Timeout() function of the net.Error interface.
// This allows for checks like:
//
//	if x, ok := err.(interface{ Timeout() bool }); ok && x.Timeout() {
func (e *timeoutError) Timeout() bool {
	return true
}

// ErrTimeout is returned from timed out blocking writes.
var ErrTimeout = &timeoutError{}
