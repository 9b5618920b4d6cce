package server

import (
	"github.com/dchest/uniuri"
	"github.com/indigo-web/ahttpd/config"
	"github.com/indigo-web/ahttpd/http"
	"github.com/indigo-web/ahttpd/internal/parser"
	"github.com/indigo-web/ahttpd/internal/unsent"
	"github.com/indigo-web/ahttpd/transport"
)

var (
	_ transport.Events = new(conn)
	_ http.Output      = new(conn)
)

// conn is the state of a single connection. It serves exactly one request and is
// destroyed exactly once: either when the response is completely handed over to the
// transport, or on the first fatal condition.
type conn struct {
	id      string
	srv     *Server
	pcb     transport.PCB
	parser  *parser.Parser
	request *http.Request
	queue   unsent.Queue
	fields  *fields
	phase   phase
	status  http.Status
	retries int
	// err is the first fatal error. Once set, the connection is torn down as soon as
	// the current event is processed.
	err       error
	headers   int
	inName    bool
	inValue   bool
	started   bool
	completed bool
	// discard drops all the following input
	discard bool
}

func newConn(srv *Server, pcb transport.PCB) *conn {
	c := &conn{
		id:     uniuri.NewLen(8),
		srv:    srv,
		pcb:    pcb,
		fields: srv.acquireFields(),
		phase:  eAccepting,
		status: http.More,
	}
	c.parser = parser.New(c)
	c.request = http.NewRequest(c, pcb.Remote(), srv.handler)

	return c
}

// Write implements http.Output. The data is sent right away if possible, the rest is
// queued. Transport failures are remembered and handled after the current event.
func (c *conn) Write(b []byte) {
	if c.phase >= eClosed || c.err != nil {
		return
	}

	n, err := c.queue.Enqueue(c.pcb, b)
	if err != nil {
		c.err = err
		return
	}

	if n > 0 {
		c.retries = 0
	}
}

func (c *conn) Recv(chain [][]byte, err error) {
	if c.phase >= eClosed {
		return
	}

	if chain == nil {
		c.debugf("remote host closed connection")
		c.teardown()
		return
	}

	var total int
	for _, buff := range chain {
		total += len(buff)
	}

	if err != nil {
		c.errorf("receive: %s", err)
		c.pcb.Recved(total)
		c.teardown()
		return
	}

	if c.discard {
		c.pcb.Recved(total)
		c.checkCompletion()
		return
	}

	for _, buff := range chain {
		n, perr := c.parser.Execute(buff)
		if c.discard || (perr != nil && c.status == http.Done) {
			// the response is already done, so nothing else matters
			c.discard = true
			break
		}

		if c.parser.Upgrade() {
			c.errorf("protocol upgrade is not supported, dropping connection")
			c.pcb.Recved(total)
			c.teardown()
			return
		}

		if perr == nil {
			perr = c.err
		}

		if perr != nil || n != len(buff) {
			c.errorf("parsing error (consumed %d of %d): %v", n, len(buff), perr)
			c.pcb.Recved(total)
			c.teardown()
			return
		}
	}

	c.pcb.Recved(total)
	c.retries = 0
	c.checkCompletion()
}

func (c *conn) Sent(int) {
	if c.phase >= eClosed {
		return
	}

	c.retries = 0
	if _, err := c.queue.Flush(c.pcb); err != nil {
		c.err = err
	}

	c.checkCompletion()
}

func (c *conn) Poll() {
	if c.phase >= eClosed {
		return
	}

	if !c.queue.Empty() {
		n, err := c.queue.Flush(c.pcb)
		if err != nil {
			c.err = err
		} else if n > 0 {
			c.retries = 0
		} else {
			c.retries++
		}
	} else {
		c.retries++
		if c.retries < config.MaxPollRetries {
			c.callHandler()
		}
	}

	if c.retries >= config.MaxPollRetries {
		c.debugf("send retries exceeded")
		c.teardown()
		return
	}

	c.checkCompletion()
}

func (c *conn) Err(err error) {
	if c.phase >= eClosed {
		return
	}

	c.debugf("transport error: %s", err)
	c.phase = eErrored
	c.release()
}

// callHandler invokes the handler as long as the response isn't done yet. Before the
// request headers are completed there's nothing to handle.
func (c *conn) callHandler() {
	if !c.started || c.status == http.Done || c.request.Handler == nil || c.err != nil {
		return
	}

	c.status = c.request.Handler(c.request)
}

// checkCompletion runs at the end of every event. It tears the connection down on
// a pending fatal error, or as soon as the response is done and fully handed over.
func (c *conn) checkCompletion() {
	switch {
	case c.err != nil:
		c.errorf("write: %s", c.err)
		c.teardown()
	case c.status != http.Done:
	case c.queue.Empty():
		c.teardown()
	default:
		c.phase = eDraining
	}
}

func (c *conn) teardown() {
	if c.phase >= eClosed {
		return
	}

	c.debugf("closing connection")
	c.phase = eClosed
	c.pcb.Bind(nil)
	c.release()

	if err := c.pcb.Close(); err != nil {
		c.errorf("close: %s", err)
	}
}

func (c *conn) release() {
	url := c.request.URL
	if len(url) == 0 {
		url = "<none>"
	}

	c.debugf("freeing state of %s", url)
	c.queue.Clear()

	if err := c.request.Detach(); err != nil {
		c.errorf("releasing request data: %s", err)
	}

	c.parser = nil
	c.srv.releaseFields(c.fields)
	c.fields = nil
	c.srv.forget(c)
}

func (c *conn) debugf(format string, v ...any) {
	if c.srv.cfg.Log.Debug {
		c.logf(format, v...)
	}
}

func (c *conn) errorf(format string, v ...any) {
	c.logf(format, v...)
}

func (c *conn) logf(format string, v ...any) {
	c.srv.cfg.Log.Logger.Printf("ahttpd: ["+c.id+"] "+format, v...)
}
