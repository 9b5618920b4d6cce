// Package ahttpd is a small non-blocking HTTP/1.x server. Every connection is driven by
// the transport callbacks, and the handlers are invoked repeatedly until they report
// the response is done, so a single event loop serves any number of slow clients.
package ahttpd

import (
	"io"
	"net"
	"strconv"

	"github.com/indigo-web/ahttpd/config"
	"github.com/indigo-web/ahttpd/internal/server"
	"github.com/indigo-web/ahttpd/router"
	"github.com/indigo-web/ahttpd/transport"
	"github.com/indigo-web/ahttpd/transport/tcp"
	"github.com/indigo-web/iter"
)

// Options describe where and what to serve.
type Options struct {
	// IP to bind to. Empty means all the interfaces.
	IP   string
	Port uint16
	// Router handles all the requests. If nil, every request gets 404.
	Router *router.Router
	// Stack is the network the server listens on. If nil, a tcp.Stack is created and
	// owned by the server, so it's closed by Stop as well.
	Stack transport.Stack
	// Config is config.Default() if nil.
	Config *config.Config
}

func DefaultOptions() Options {
	return Options{
		IP:   "0.0.0.0",
		Port: 80,
	}
}

type Server struct {
	cfg      *config.Config
	engine   *server.Server
	listener transport.Listener
	owned    io.Closer
	bind     string
}

// Start binds the listener and starts serving. Errors of binding the address are the
// only ones ever returned, any failure of a single connection is handled by the server
// itself.
func Start(opts Options) (*Server, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	r := opts.Router
	if r == nil {
		r = router.New(nil)
	}

	s := &Server{
		cfg:    cfg,
		engine: server.New(cfg, r.Handle),
		bind:   bindString(opts.IP, opts.Port),
	}

	stack := opts.Stack
	if stack == nil {
		owned := tcp.New(cfg.NET)
		s.owned, stack = owned, owned
	}

	addr := net.JoinHostPort(opts.IP, strconv.Itoa(int(opts.Port)))
	listener, err := stack.Listen(addr, s.engine.Accept)
	if err != nil {
		cfg.Log.Logger.Printf("ahttpd: failed to listen on %s: %s", s.bind, err)
		s.closeOwned()
		return nil, err
	}

	s.listener = listener
	cfg.Log.Logger.Printf("ahttpd: listening on %s", s.bind)
	if cfg.Log.Debug {
		logRoutes(cfg.Log.Logger, r)
	}

	return s, nil
}

// Addr returns the address the server actually listens on, which matters if the port
// was 0.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Stop closes the listener. The connections being served at the moment are not
// interrupted, unless the stack is owned by the server.
func (s *Server) Stop() error {
	s.engine.Close()
	err := s.listener.Close()
	s.closeOwned()
	s.cfg.Log.Logger.Printf("ahttpd: stopped listening on %s", s.bind)

	return err
}

// Active returns the number of connections being served.
func (s *Server) Active() int {
	return s.engine.Active()
}

func (s *Server) closeOwned() {
	if s.owned != nil {
		_ = s.owned.Close()
		s.owned = nil
	}
}

func logRoutes(logger config.Logger, r *router.Router) {
	routes := iter.Map(func(route router.Route) string {
		return route.Method.String() + " " + route.URL
	}, r.Iter())

	for route, ok := routes.Next(); ok; route, ok = routes.Next() {
		logger.Printf("ahttpd: route %s", route)
	}
}

func bindString(ip string, port uint16) string {
	return "[" + ip + "]:" + strconv.Itoa(int(port))
}
