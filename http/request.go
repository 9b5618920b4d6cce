package http

import (
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/indigo-web/ahttpd/http/method"
	"github.com/indigo-web/ahttpd/http/mime"
	"github.com/indigo-web/ahttpd/http/status"
	json "github.com/json-iterator/go"
)

// Status is what a handler reports back to the engine after each invocation.
type Status uint8

const (
	// More means the handler isn't done yet and wants to be invoked again.
	More Status = iota
	// Done means the response is complete. The connection is closed as soon as all the
	// pending output is transmitted.
	Done
	// NotFound means the handler declines the request. Routers use it to try the next
	// route, the connection engine treats it as More.
	NotFound
)

func (s Status) String() string {
	switch s {
	case More:
		return "MORE"
	case Done:
		return "DONE"
	case NotFound:
		return "NOT_FOUND"
	default:
		return "Status(" + strconv.Itoa(int(s)) + ")"
	}
}

// Handler may be invoked many times per request: when headers are completed, once per
// every body chunk, when the message is completed and on every poll tick as long as there
// is no pending output. Therefore, it must keep its own progress in Request.Data.
type Handler func(*Request) Status

// Output accepts the response bytes. Implementations must not retain b.
type Output interface {
	Write(b []byte)
}

// Request represents an HTTP request in progress.
type Request struct {
	// Method is an enum representing the request method.
	Method method.Method
	// URL is the request target as it was received, including the query.
	URL string
	// Headers is the chain of the request headers.
	Headers *Header
	// Body is a view into the currently processed chunk of the request body. It is valid
	// only during the handler invocation it was passed to and must never be retained.
	// Outside of body callbacks it is nil.
	Body []byte
	// Data is the application-managed slot. Handlers store their progress here. If it
	// implements io.Closer, it'll be closed when the connection is torn down.
	Data any
	// Handler is invoked on every request event. Routers replace it with the matched route
	// handler, so later invocations skip the matching.
	Handler Handler
	out     Output
	remote  net.Addr
	scratch []byte
}

func NewRequest(out Output, remote net.Addr, handler Handler) *Request {
	return &Request{
		Method:  method.Unknown,
		Handler: handler,
		out:     out,
		remote:  remote,
	}
}

// Path returns the URL without the query part.
func (r *Request) Path() string {
	if q := strings.IndexByte(r.URL, '?'); q != -1 {
		return r.URL[:q]
	}

	return r.URL
}

// FindHeader returns the first header matching the name case-insensitively, or nil.
func (r *Request) FindHeader(name string) *Header {
	return r.Headers.Find(name)
}

// Remote returns the remote address of the connection.
func (r *Request) Remote() net.Addr {
	return r.remote
}

// StartResponse writes the status line.
func (r *Request) StartResponse(code status.Code) {
	r.scratch = status.AppendLine(r.scratch[:0], code)
	r.write(r.scratch)
}

// SendHeader writes a single header line.
func (r *Request) SendHeader(name, value string) {
	r.scratch = appendHeader(r.scratch[:0], name, value)
	r.write(r.scratch)
}

// SendHeaders writes every header of the chain in the chain order.
func (r *Request) SendHeaders(headers *Header) {
	for node := headers; node != nil; node = node.Next {
		r.SendHeader(node.Name, node.Value)
	}
}

// EndHeaders terminates the headers section.
func (r *Request) EndHeaders() {
	r.write(crlf)
}

// Send writes the body bytes. The slice may be reused right after the call returns.
func (r *Request) Send(b []byte) {
	r.write(b)
}

func (r *Request) SendString(s string) {
	r.scratch = append(r.scratch[:0], s...)
	r.write(r.scratch)
}

// JSON writes a complete response with the value marshalled as a body.
func (r *Request) JSON(code status.Code, v any) (Status, error) {
	body, err := json.ConfigCompatibleWithStandardLibrary.Marshal(v)
	if err != nil {
		return Done, err
	}

	r.StartResponse(code)
	r.SendHeader("Content-Type", mime.JSON)
	r.SendHeader("Content-Length", strconv.Itoa(len(body)))
	r.EndHeaders()
	r.Send(body)

	return Done, nil
}

// Detach disconnects the request from its output. Every following write is silently
// discarded. If Data implements io.Closer, it's closed.
func (r *Request) Detach() error {
	r.out = nil
	r.Headers = nil
	r.Body = nil
	r.scratch = nil

	closer, ok := r.Data.(io.Closer)
	r.Data = nil
	if ok {
		return closer.Close()
	}

	return nil
}

func (r *Request) write(b []byte) {
	if r.out != nil {
		r.out.Write(b)
	}
}

var crlf = []byte("\r\n")

func appendHeader(dst []byte, name, value string) []byte {
	dst = append(dst, name...)
	dst = append(dst, ": "...)
	dst = append(dst, value...)

	return append(dst, crlf...)
}
