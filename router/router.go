// Package router dispatches requests over a fixed table of routes.
package router

import (
	"strings"

	"github.com/indigo-web/ahttpd/http"
	"github.com/indigo-web/ahttpd/http/method"
	"github.com/indigo-web/ahttpd/http/status"
	"github.com/indigo-web/iter"
)

// Route binds a handler to the method and the URL. The URL matches either exactly, or,
// if it ends with '*', as a prefix. Data is put into the request's Data while the
// handler runs.
type Route struct {
	Method  method.Method
	URL     string
	Handler http.Handler
	Data    any
}

func (r Route) matches(m method.Method, path string) bool {
	if !r.Method.Matches(m) {
		return false
	}

	if prefix, ok := strings.CutSuffix(r.URL, "*"); ok {
		return strings.HasPrefix(path, prefix)
	}

	return r.URL == path
}

type Option func(*Router)

// WithNotFound replaces the default 404 handler.
func WithNotFound(handler http.Handler) Option {
	return func(r *Router) {
		r.notFound = handler
	}
}

// Router is immutable after construction, so a single instance may be shared by any
// number of servers.
type Router struct {
	routes   []Route
	notFound http.Handler
}

// New copies the routes. They are tried in the same order.
func New(routes []Route, opts ...Option) *Router {
	r := &Router{
		routes:   append([]Route(nil), routes...),
		notFound: NotFound,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Routes returns a copy of the routes table.
func (r *Router) Routes() []Route {
	return append([]Route(nil), r.routes...)
}

// Iter returns an iterator over the routes, in the order they are tried.
func (r *Router) Iter() iter.Iterator[Route] {
	return iter.Slice(r.routes)
}

// Handle finds the first route accepting the request. A route handler may decline the
// request by returning http.NotFound, so the next matching route is tried. The route
// handler replaces the request handler before it's called, so the following invocations
// go to it directly, unless the handler retargets the request itself.
func (r *Router) Handle(req *http.Request) http.Status {
	path := req.Path()

	for _, route := range r.routes {
		if route.Handler == nil || !route.matches(req.Method, path) {
			continue
		}

		data, handler := req.Data, req.Handler
		req.Data, req.Handler = route.Data, route.Handler

		if result := route.Handler(req); result != http.NotFound {
			return result
		}

		req.Data, req.Handler = data, handler
	}

	req.Handler = r.notFound

	return r.notFound(req)
}

// NotFound is the default 404 handler.
func NotFound(req *http.Request) http.Status {
	req.StartResponse(status.NotFound)
	req.SendHeader("Server", "AHTTPD/1.0")
	req.EndHeaders()
	req.SendString("Not Found")

	return http.Done
}

// Redirect returns a route responding with 302 Found pointing at dest, regardless of
// the request method.
func Redirect(url, dest string) Route {
	return Route{
		Method:  method.Any,
		URL:     url,
		Handler: redirect,
		Data:    dest,
	}
}

func redirect(req *http.Request) http.Status {
	dest, _ := req.Data.(string)
	req.StartResponse(status.Found)
	req.SendHeader("Location", dest)
	req.SendHeader("Content-Length", "0")
	req.EndHeaders()

	return http.Done
}
