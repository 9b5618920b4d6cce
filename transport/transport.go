// Package transport describes a raw, callback-driven TCP transport in the spirit of
// embedded network stacks: nothing blocks, the data is delivered through callbacks and
// the writes are limited by the send window the transport currently has.
//
// All the callbacks of a single connection are serialized by the transport, and none of
// the PCB methods may be called outside of them.
package transport

import (
	"errors"
	"net"
)

var (
	// ErrMem is returned by PCB.Write when the data can't be accepted right now, because
	// either the send buffer or the segments queue is exhausted. It's not fatal, the write
	// may be retried with less data or later.
	ErrMem = errors.New("transport: not enough send buffer space")
	// ErrClosed is returned on operations over the closed PCB.
	ErrClosed = errors.New("transport: connection is closed")
)

// Events are the callbacks a connection consumer registers via PCB.Bind.
type Events interface {
	// Recv delivers a chain of received buffers. The buffers are owned by the transport
	// and are valid only until the callback returns. A nil chain means the remote host
	// has closed the connection. The consumer must report every processed chain via
	// PCB.Recved, otherwise the receive window stays closed.
	Recv(chain [][]byte, err error)
	// Sent reports the number of bytes acknowledged by the transport.
	Sent(n int)
	// Poll is called periodically, regardless of any traffic.
	Poll()
	// Err reports a fatal error. The PCB is already released at this point and must not
	// be used anymore, including closing it.
	Err(err error)
}

// PCB is a protocol control block of a single connection.
type PCB interface {
	// SendBuffer returns how many bytes can be written right now.
	SendBuffer() int
	// QueueFull tells whether the transport has no free segments left, so no write can
	// succeed regardless of the free send buffer space.
	QueueFull() bool
	// Write copies the data into the send buffer. It never blocks, instead ErrMem is
	// returned if the data doesn't fit.
	Write(b []byte) error
	// Output hints the transport to transmit the buffered data now.
	Output() error
	// Recved opens the receive window by n bytes.
	Recved(n int)
	// Remote returns the address of the remote host.
	Remote() net.Addr
	// Bind registers the callbacks. Passing nil deregisters them.
	Bind(events Events)
	// Close closes the connection gracefully: the data already accepted by the send buffer
	// is still transmitted.
	Close() error
}

// AcceptFunc is called on every new connection. In case it returns an error, the
// connection is aborted.
type AcceptFunc func(pcb PCB) error

type Listener interface {
	Addr() net.Addr
	Close() error
}

// Stack creates listening endpoints.
type Stack interface {
	Listen(addr string, accept AcceptFunc) (Listener, error)
}
