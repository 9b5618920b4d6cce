package server

import (
	"errors"

	"github.com/indigo-web/ahttpd/config"
	"github.com/indigo-web/ahttpd/http"
	"github.com/indigo-web/ahttpd/http/status"
	"github.com/indigo-web/ahttpd/internal/parser"
	"github.com/indigo-web/utils/buffer"
)

var _ parser.Callbacks = new(conn)

// fields accumulate the request line and header pieces, which may arrive split across
// many chunks. Every buffer holds at most one field, so its maximal space is the limit
// of a single field.
type fields struct {
	url, name, value *buffer.Buffer[byte]
}

func newFields() *fields {
	return &fields{
		url:   buffer.NewBuffer[byte](64, config.MaxURLSize-1),
		name:  buffer.NewBuffer[byte](32, config.MaxHeaderNameSize-1),
		value: buffer.NewBuffer[byte](64, config.MaxHeaderValueSize-1),
	}
}

func (f *fields) clear() {
	f.url.Clear()
	f.name.Clear()
	f.value.Clear()
}

// errDiscard stops the parser once the response is done: whatever the client sends
// afterwards is dropped while the queued response drains.
var errDiscard = errors.New("response is done, discarding input")

func (c *conn) OnURL(b []byte) error {
	if c.completed {
		if c.status == http.Done {
			c.discard = true
			return errDiscard
		}

		return status.ErrPipelining
	}

	if !c.fields.url.Append(b...) {
		c.errorf("url exceeds %d bytes", config.MaxURLSize-1)
		return status.ErrURITooLong
	}

	c.request.Method = c.parser.Method()

	return nil
}

func (c *conn) OnHeaderField(b []byte) error {
	if !c.inName {
		if c.inValue {
			c.commitHeader()
		}

		if c.headers == config.MaxHeaders {
			c.errorf("more than %d headers", config.MaxHeaders)
			return status.ErrTooManyHeaders
		}

		c.headers++
		c.inName = true
	}

	if !c.fields.name.Append(b...) {
		c.errorf("header name exceeds %d bytes", config.MaxHeaderNameSize-1)
		return status.ErrHeaderNameTooLong
	}

	return nil
}

func (c *conn) OnHeaderValue(b []byte) error {
	if !c.inName && !c.inValue {
		c.errorf("header value without a name")
		return status.ErrValueWithoutName
	}

	c.inName = false
	c.inValue = true

	if !c.fields.value.Append(b...) {
		c.errorf("header value exceeds %d bytes", config.MaxHeaderValueSize-1)
		return status.ErrHeaderValueTooLong
	}

	return nil
}

// commitHeader prepends the accumulated pair to the headers chain.
func (c *conn) commitHeader() {
	name := string(c.fields.name.Finish())
	value := string(c.fields.value.Finish())
	c.fields.name.Clear()
	c.fields.value.Clear()
	c.request.Headers = c.request.Headers.Prepend(name, value)
	c.inName, c.inValue = false, false
}

func (c *conn) OnHeadersComplete() (skipBody bool, err error) {
	if c.inName || c.inValue {
		c.commitHeader()
	}

	url := c.fields.url.Finish()
	if len(url) == 0 {
		c.errorf("headers completed without url")
		return false, status.ErrNoURL
	}

	c.request.URL = string(url)
	c.started = true
	c.debugf("new request: %s %s", c.request.Method, c.request.URL)
	c.callHandler()

	// nothing is expected from the client anymore, if the response is already done
	return c.status == http.Done, c.err
}

func (c *conn) OnBody(b []byte) error {
	c.request.Body = b
	c.callHandler()
	c.request.Body = nil

	return c.err
}

func (c *conn) OnMessageComplete() error {
	c.request.Body = nil
	c.completed = true
	c.callHandler()

	return c.err
}
