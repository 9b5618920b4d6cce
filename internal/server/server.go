package server

import (
	"errors"
	"sync/atomic"

	"github.com/indigo-web/ahttpd/config"
	"github.com/indigo-web/ahttpd/http"
	"github.com/indigo-web/ahttpd/transport"
	"github.com/indigo-web/utils/pool"
)

// ErrServerClosed is returned by Accept after Close, so the new connection is aborted.
var ErrServerClosed = errors.New("server is closed")

// idleFields is how many released fields buffers are kept for upcoming connections.
const idleFields = 32

// Server creates a connection state for every accepted connection. Accept and all the
// connection callbacks must be called from a single goroutine, which is what transports
// guarantee.
type Server struct {
	cfg     *config.Config
	handler http.Handler
	fields  *pool.ObjectPool[*fields]
	active  atomic.Int64
	closed  atomic.Bool
}

// New returns a server invoking the handler on every request. Usually the handler is
// a router.
func New(cfg *config.Config, handler http.Handler) *Server {
	return &Server{
		cfg:     cfg,
		handler: handler,
		fields:  pool.NewObjectPool[*fields](idleFields),
	}
}

// Accept registers the callbacks of a freshly accepted connection.
func (s *Server) Accept(pcb transport.PCB) error {
	if s.closed.Load() {
		return ErrServerClosed
	}

	c := newConn(s, pcb)
	s.active.Add(1)
	pcb.Bind(c)
	c.phase = eActive
	c.debugf("accepted connection from %s", pcb.Remote())

	return nil
}

// Close makes the server refuse all the following connections. The existing ones are
// served until they are done.
func (s *Server) Close() {
	s.closed.Store(true)
}

// Active returns the number of connections, which aren't destroyed yet.
func (s *Server) Active() int {
	return int(s.active.Load())
}

func (s *Server) acquireFields() *fields {
	if f := s.fields.Acquire(); f != nil {
		return f
	}

	return newFields()
}

func (s *Server) releaseFields(f *fields) {
	if f == nil {
		return
	}

	f.clear()
	s.fields.Release(f)
}

func (s *Server) forget(*conn) {
	s.active.Add(-1)
}
