package dummy

import (
	"net"

	"github.com/indigo-web/ahttpd/transport"
)

var _ transport.Stack = new(Stack)

// Addr is a net.Addr of the dummy network.
type Addr string

func (a Addr) Network() string {
	return "dummy"
}

func (a Addr) String() string {
	return string(a)
}

// Stack hands the connections passed to Connect over to the latest listener.
type Stack struct {
	listenErr error
	listener  *Listener
}

func NewStack() *Stack {
	return new(Stack)
}

// FailListen makes every following Listen call fail with the error.
func (s *Stack) FailListen(err error) *Stack {
	s.listenErr = err
	return s
}

func (s *Stack) Listen(addr string, accept transport.AcceptFunc) (transport.Listener, error) {
	if s.listenErr != nil {
		return nil, s.listenErr
	}

	s.listener = &Listener{
		addr:   Addr(addr),
		accept: accept,
	}

	return s.listener, nil
}

// Connect emulates an incoming connection. If the accept callback fails, the connection
// is aborted and the error is returned.
func (s *Stack) Connect(pcb *PCB) error {
	if s.listener == nil || s.listener.closed {
		return transport.ErrClosed
	}

	if err := s.listener.accept(pcb); err != nil {
		pcb.Bind(nil)
		pcb.closed = true
		return err
	}

	return nil
}

// Listener returns the latest listener, if any.
func (s *Stack) Listener() *Listener {
	return s.listener
}

type Listener struct {
	addr   Addr
	accept transport.AcceptFunc
	closed bool
}

func (l *Listener) Addr() net.Addr {
	return l.addr
}

func (l *Listener) Close() error {
	if l.closed {
		return transport.ErrClosed
	}

	l.closed = true
	return nil
}

func (l *Listener) Closed() bool {
	return l.closed
}
