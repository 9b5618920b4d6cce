package dummy

import (
	"net"

	"github.com/indigo-web/ahttpd/transport"
)

var _ transport.PCB = new(PCB)

// PCB is an in-memory connection driven manually by tests. Every written byte occupies
// the send window until it's acknowledged via Ack, and every write occupies a segment
// until the next acknowledgement, so flow control can be reproduced deterministically.
type PCB struct {
	window, inflight   int
	queueLen, segments int
	memFailures        int
	writeErr           error
	written            []byte
	recved             int
	outputs            int
	closes             int
	closed             bool
	events             transport.Events
	remote             net.Addr
}

// NewPCB returns a connection with the send window of the passed size.
func NewPCB(window int) *PCB {
	return &PCB{
		window: window,
		remote: Addr("remote"),
	}
}

// QueueLimit sets the maximal number of segments. Zero means unlimited.
func (p *PCB) QueueLimit(n int) *PCB {
	p.queueLen = n
	return p
}

// FailWrites makes the next n writes fail with transport.ErrMem regardless of the window.
func (p *PCB) FailWrites(n int) *PCB {
	p.memFailures = n
	return p
}

// BreakWrites makes every following write fail with the error.
func (p *PCB) BreakWrites(err error) *PCB {
	p.writeErr = err
	return p
}

func (p *PCB) WithRemote(addr net.Addr) *PCB {
	p.remote = addr
	return p
}

func (p *PCB) SendBuffer() int {
	if p.closed {
		return 0
	}

	return p.window - p.inflight
}

func (p *PCB) QueueFull() bool {
	return p.queueLen > 0 && p.segments >= p.queueLen
}

func (p *PCB) Write(b []byte) error {
	switch {
	case p.closed:
		return transport.ErrClosed
	case p.writeErr != nil:
		return p.writeErr
	case p.memFailures > 0:
		p.memFailures--
		return transport.ErrMem
	case len(b) > p.SendBuffer() || p.QueueFull():
		return transport.ErrMem
	}

	p.written = append(p.written, b...)
	p.inflight += len(b)
	p.segments++

	return nil
}

func (p *PCB) Output() error {
	p.outputs++
	return nil
}

func (p *PCB) Recved(n int) {
	p.recved += n
}

func (p *PCB) Remote() net.Addr {
	return p.remote
}

func (p *PCB) Bind(events transport.Events) {
	p.events = events
}

func (p *PCB) Close() error {
	p.closes++
	if p.closed {
		return transport.ErrClosed
	}

	p.closed = true
	return nil
}

// Deliver passes the chunks as a single chain to the recv callback. Chunks are copied
// before and poisoned after the callback, so nobody can rely on them outliving it.
func (p *PCB) Deliver(chunks ...[]byte) {
	if p.events == nil {
		return
	}

	chain := make([][]byte, len(chunks))
	for i, chunk := range chunks {
		chain[i] = append([]byte(nil), chunk...)
	}

	p.events.Recv(chain, nil)

	for _, buff := range chain {
		for i := range buff {
			buff[i] = '#'
		}
	}
}

// DeliverString is a shorthand for delivering a single chunk.
func (p *PCB) DeliverString(data string) {
	p.Deliver([]byte(data))
}

// Hangup emulates the remote host closing the connection.
func (p *PCB) Hangup() {
	if p.events != nil {
		p.events.Recv(nil, nil)
	}
}

// Ack acknowledges at most n bytes of the in-flight data, freeing the send window.
func (p *PCB) Ack(n int) {
	n = min(n, p.inflight)
	p.inflight -= n
	p.segments = 0

	if p.events != nil {
		p.events.Sent(n)
	}
}

// AckAll acknowledges everything in flight.
func (p *PCB) AckAll() {
	p.Ack(p.inflight)
}

// Tick fires a single poll.
func (p *PCB) Tick() {
	if p.events != nil {
		p.events.Poll()
	}
}

// Fail emulates a fatal transport error. The PCB is considered freed afterwards.
func (p *PCB) Fail(err error) {
	events := p.events
	p.events = nil
	p.closed = true

	if events != nil {
		events.Err(err)
	}
}

// Written returns everything ever accepted by Write.
func (p *PCB) Written() string {
	return string(p.written)
}

func (p *PCB) Inflight() int {
	return p.inflight
}

func (p *PCB) Outputs() int {
	return p.outputs
}

// Received returns the total of bytes reported via Recved.
func (p *PCB) Received() int {
	return p.recved
}

// Closes returns how many times Close was called.
func (p *PCB) Closes() int {
	return p.closes
}

func (p *PCB) Closed() bool {
	return p.closed
}

// Bound tells whether any callbacks are registered.
func (p *PCB) Bound() bool {
	return p.events != nil
}
