// Package tcp implements transport.Stack over real network connections. Every callback
// of every connection runs on a single event loop goroutine, while the blocking socket
// operations are done by per-connection reader and writer goroutines.
package tcp

import (
	"net"
	"sync"
	"time"

	"github.com/indigo-web/ahttpd/config"
	"github.com/indigo-web/ahttpd/transport"
)

var _ transport.Stack = new(Stack)

// ListenerConstructor creates the listening socket. net.Listen is the default one.
type ListenerConstructor func(network, addr string) (net.Listener, error)

type Option func(*Stack)

// WithListener replaces the listener constructor, e.g. by TLS or AutoTLS.
func WithListener(constructor ListenerConstructor) Option {
	return func(s *Stack) {
		s.listen = constructor
	}
}

type Stack struct {
	cfg       config.NET
	listen    ListenerConstructor
	events    chan func()
	done      chan struct{}
	closeOnce sync.Once
	// pcbs are the connections having callbacks to poll. Accessed only by the loop.
	pcbs map[*pcb]struct{}

	mu        sync.Mutex
	listeners []net.Listener
}

// New starts the event loop. It runs until Close is called.
func New(cfg config.NET, opts ...Option) *Stack {
	s := &Stack{
		cfg:    cfg,
		listen: net.Listen,
		events: make(chan func(), 64),
		done:   make(chan struct{}),
		pcbs:   make(map[*pcb]struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cfg.PollInterval <= 0 {
		s.cfg.PollInterval = config.Default().NET.PollInterval
	}

	go s.loop()

	return s
}

func (s *Stack) Listen(addr string, accept transport.AcceptFunc) (transport.Listener, error) {
	sock, err := s.listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.listeners = append(s.listeners, sock)
	s.mu.Unlock()

	go s.acceptLoop(sock, accept)

	return sock, nil
}

// Close stops the event loop, all the listeners and aborts every connection. Bound
// connections are notified via Events.Err.
func (s *Stack) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)

		s.mu.Lock()
		for _, sock := range s.listeners {
			_ = sock.Close()
		}
		s.listeners = nil
		s.mu.Unlock()
	})

	return nil
}

func (s *Stack) acceptLoop(sock net.Listener, accept transport.AcceptFunc) {
	for {
		conn, err := sock.Accept()
		if err != nil {
			return
		}

		p := newPCB(s, conn)
		if !s.post(func() { s.accept(p, accept) }) {
			_ = conn.Close()
			return
		}
	}
}

func (s *Stack) accept(p *pcb, accept transport.AcceptFunc) {
	if err := accept(p); err != nil {
		p.abort()
		return
	}

	s.pcbs[p] = struct{}{}
	go p.reader()
	go p.writer()
}

// post schedules fn on the event loop. Returns false if the stack is closed.
func (s *Stack) post(fn func()) bool {
	select {
	case s.events <- fn:
		return true
	case <-s.done:
		return false
	}
}

func (s *Stack) loop() {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case fn := <-s.events:
			fn()
		case <-ticker.C:
			for p := range s.pcbs {
				p.poll()
			}
		case <-s.done:
			for p := range s.pcbs {
				p.fail(transport.ErrClosed)
			}

			return
		}
	}
}
