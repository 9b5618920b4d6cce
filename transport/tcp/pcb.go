package tcp

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/indigo-web/ahttpd/transport"
)

var _ transport.PCB = new(pcb)

// pcb is a single connection. Fields without a comment belong to the event loop.
type pcb struct {
	stack  *Stack
	conn   net.Conn
	events transport.Events
	// inflight is the number of bytes accepted by Write, but not yet reported as sent
	inflight int
	segments int
	closed   bool
	released bool
	// credit opens the receive window, so the reader may proceed
	credit chan struct{}
	// kick wakes the writer up
	kick chan struct{}
	quit chan struct{}

	// guarded by mu, shared with the writer
	mu          sync.Mutex
	pending     []byte
	pendingSegs int
	closing     bool
}

func newPCB(stack *Stack, conn net.Conn) *pcb {
	return &pcb{
		stack:  stack,
		conn:   conn,
		credit: make(chan struct{}, 1),
		kick:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
	}
}

func (p *pcb) SendBuffer() int {
	if p.closed {
		return 0
	}

	return max(p.stack.cfg.SendBufferSize-p.inflight, 0)
}

func (p *pcb) QueueFull() bool {
	return p.segments >= p.stack.cfg.SendQueueLen
}

func (p *pcb) Write(b []byte) error {
	if p.closed {
		return transport.ErrClosed
	}

	if len(b) > p.SendBuffer() || p.QueueFull() {
		return transport.ErrMem
	}

	p.mu.Lock()
	p.pending = append(p.pending, b...)
	p.pendingSegs++
	p.mu.Unlock()

	p.inflight += len(b)
	p.segments++

	return nil
}

func (p *pcb) Output() error {
	if p.closed {
		return transport.ErrClosed
	}

	p.wake()

	return nil
}

func (p *pcb) Recved(int) {
	select {
	case p.credit <- struct{}{}:
	default:
	}
}

func (p *pcb) Remote() net.Addr {
	return p.conn.RemoteAddr()
}

func (p *pcb) Bind(events transport.Events) {
	p.events = events
}

// Close stops the callbacks and closes the socket as soon as everything already
// written is transmitted. The pcb stays tracked until then, so closing the stack
// releases it too.
func (p *pcb) Close() error {
	if p.closed {
		return transport.ErrClosed
	}

	p.closed = true
	p.events = nil

	p.mu.Lock()
	p.closing = true
	p.mu.Unlock()
	p.wake()

	return nil
}

func (p *pcb) wake() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// abort drops the connection immediately, without any notifications.
func (p *pcb) abort() {
	p.closed = true
	p.events = nil
	p.release()
}

func (p *pcb) release() {
	if p.released {
		return
	}

	p.released = true
	delete(p.stack.pcbs, p)
	close(p.quit)
	_ = p.conn.Close()
}

func (p *pcb) poll() {
	if p.events != nil {
		p.events.Poll()
	}
}

func (p *pcb) recv(data []byte) {
	if p.events == nil {
		p.Recved(len(data))
		return
	}

	p.events.Recv([][]byte{data}, nil)
}

func (p *pcb) hangup() {
	if p.events != nil {
		p.events.Recv(nil, nil)
	}
}

func (p *pcb) sent(n, segs int) {
	p.inflight -= n
	p.segments -= segs

	if p.events != nil {
		p.events.Sent(n)
	}
}

// fail reports a fatal error. The connection is released before the callback is
// called, as the consumer must not touch it anymore.
func (p *pcb) fail(err error) {
	if p.released {
		return
	}

	events := p.events
	p.closed = true
	p.events = nil
	p.release()

	if events != nil {
		events.Err(err)
	}
}

func (p *pcb) reader() {
	buff := make([]byte, p.stack.cfg.ReadBufferSize)

	for {
		n, err := p.conn.Read(buff)
		if n > 0 {
			data := buff[:n]
			if !p.stack.post(func() { p.recv(data) }) {
				return
			}

			// the buffer is reused only after the consumer is done with it
			select {
			case <-p.credit:
			case <-p.quit:
				return
			case <-p.stack.done:
				return
			}
		}

		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			p.stack.post(p.hangup)
			return
		default:
			p.stack.post(func() { p.fail(err) })
			return
		}
	}
}

func (p *pcb) writer() {
	for {
		select {
		case <-p.kick:
		case <-p.quit:
			return
		case <-p.stack.done:
			return
		}

		p.mu.Lock()
		data, segs, closing := p.pending, p.pendingSegs, p.closing
		p.pending, p.pendingSegs = nil, 0
		p.mu.Unlock()

		if len(data) > 0 {
			if timeout := p.stack.cfg.WriteTimeout; timeout > 0 {
				_ = p.conn.SetWriteDeadline(time.Now().Add(timeout))
			}

			if _, err := p.conn.Write(data); err != nil {
				p.stack.post(func() { p.fail(err) })
				return
			}

			if !p.stack.post(func() { p.sent(len(data), segs) }) {
				return
			}
		}

		if closing {
			p.mu.Lock()
			drained := len(p.pending) == 0
			p.mu.Unlock()

			if drained {
				p.stack.post(p.release)
				return
			}

			p.wake()
		}
	}
}
