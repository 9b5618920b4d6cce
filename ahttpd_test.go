package ahttpd

import (
	"errors"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/indigo-web/ahttpd/config"
	"github.com/indigo-web/ahttpd/http"
	"github.com/indigo-web/ahttpd/http/method"
	"github.com/indigo-web/ahttpd/http/status"
	"github.com/indigo-web/ahttpd/router"
	"github.com/indigo-web/ahttpd/transport/dummy"
	"github.com/stretchr/testify/require"
)

type journal struct {
	lines []string
}

func (j *journal) Printf(format string, v ...any) {
	j.lines = append(j.lines, fmt.Sprintf(format, v...))
}

func testConfig() (*config.Config, *journal) {
	cfg := config.Default()
	j := new(journal)
	cfg.Log.Logger = j
	cfg.NET.PollInterval = 20 * time.Millisecond

	return cfg, j
}

func getRouter() *router.Router {
	return router.New([]router.Route{
		{Method: method.GET, URL: "/hello", Handler: func(req *http.Request) http.Status {
			req.StartResponse(status.OK)
			req.SendHeader("Content-Type", "text/plain")
			req.EndHeaders()
			req.SendString("hi")

			return http.Done
		}},
		router.Redirect("/old", "/hello"),
	})
}

func TestServer(t *testing.T) {
	t.Run("dummy stack", func(t *testing.T) {
		cfg, j := testConfig()
		stack := dummy.NewStack()
		srv, err := Start(Options{
			IP:     "10.0.0.1",
			Port:   8080,
			Router: getRouter(),
			Stack:  stack,
			Config: cfg,
		})
		require.NoError(t, err)
		require.Equal(t, "10.0.0.1:8080", srv.Addr().String())
		require.Equal(t, []string{"ahttpd: listening on [10.0.0.1]:8080"}, j.lines)

		pcb := dummy.NewPCB(1024)
		require.NoError(t, stack.Connect(pcb))
		require.Equal(t, 1, srv.Active())
		pcb.DeliverString("GET /hello HTTP/1.1\r\nHost: x\r\n\r\n")
		require.Equal(t, "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\n\r\nhi", pcb.Written())
		require.True(t, pcb.Closed())
		require.Zero(t, srv.Active())

		pcb = dummy.NewPCB(1024)
		require.NoError(t, stack.Connect(pcb))
		pcb.DeliverString("GET /nowhere HTTP/1.1\r\n\r\n")
		require.Equal(t, "HTTP/1.1 404 Not Found\r\nServer: AHTTPD/1.0\r\n\r\nNot Found", pcb.Written())

		require.NoError(t, srv.Stop())
		require.True(t, stack.Listener().Closed())
		require.Error(t, stack.Connect(dummy.NewPCB(1024)))
	})

	t.Run("debug logs routes", func(t *testing.T) {
		cfg, j := testConfig()
		cfg.Log.Debug = true
		srv, err := Start(Options{
			IP:     "10.0.0.1",
			Port:   8080,
			Router: getRouter(),
			Stack:  dummy.NewStack(),
			Config: cfg,
		})
		require.NoError(t, err)
		defer srv.Stop()

		require.Equal(t, []string{
			"ahttpd: listening on [10.0.0.1]:8080",
			"ahttpd: route GET /hello",
			"ahttpd: route * /old",
		}, j.lines)
	})

	t.Run("no router", func(t *testing.T) {
		cfg, _ := testConfig()
		stack := dummy.NewStack()
		srv, err := Start(Options{Stack: stack, Config: cfg})
		require.NoError(t, err)
		defer srv.Stop()

		pcb := dummy.NewPCB(1024)
		require.NoError(t, stack.Connect(pcb))
		pcb.DeliverString("GET /hello HTTP/1.1\r\n\r\n")
		require.Equal(t, "HTTP/1.1 404 Not Found\r\nServer: AHTTPD/1.0\r\n\r\nNot Found", pcb.Written())
	})

	t.Run("bind failure", func(t *testing.T) {
		cfg, j := testConfig()
		bindErr := errors.New("address already in use")
		_, err := Start(Options{
			IP:     "0.0.0.0",
			Port:   80,
			Stack:  dummy.NewStack().FailListen(bindErr),
			Config: cfg,
		})
		require.ErrorIs(t, err, bindErr)
		require.Equal(t, []string{"ahttpd: failed to listen on [0.0.0.0]:80: address already in use"}, j.lines)
	})

	t.Run("tcp", func(t *testing.T) {
		cfg, _ := testConfig()
		srv, err := Start(Options{
			IP:     "127.0.0.1",
			Port:   0,
			Router: getRouter(),
			Config: cfg,
		})
		require.NoError(t, err)
		defer srv.Stop()

		conn, err := net.Dial("tcp", srv.Addr().String())
		require.NoError(t, err)
		defer conn.Close()

		require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
		_, err = conn.Write([]byte("GET /old HTTP/1.1\r\nHost: x\r\n\r\n"))
		require.NoError(t, err)
		response, err := io.ReadAll(conn)
		require.NoError(t, err)
		require.Equal(t, "HTTP/1.1 302 Found\r\nLocation: /hello\r\nContent-Length: 0\r\n\r\n", string(response))
	})

	t.Run("tcp bind failure", func(t *testing.T) {
		cfg, _ := testConfig()
		_, err := Start(Options{IP: "256.0.0.1", Port: 0, Config: cfg})
		require.Error(t, err)
	})
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	require.Equal(t, "0.0.0.0", opts.IP)
	require.Equal(t, uint16(80), opts.Port)
	require.Equal(t, "[0.0.0.0]:80", bindString(opts.IP, opts.Port))
}
