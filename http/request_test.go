package http

import (
	"errors"
	"net"
	"testing"

	"github.com/indigo-web/ahttpd/http/status"
	"github.com/stretchr/testify/require"
)

type journal struct {
	writes []string
}

func (j *journal) Write(b []byte) {
	j.writes = append(j.writes, string(b))
}

func (j *journal) String() (str string) {
	for _, w := range j.writes {
		str += w
	}

	return str
}

type closerFunc func() error

func (c closerFunc) Close() error {
	return c()
}

func TestRequest(t *testing.T) {
	t.Run("response", func(t *testing.T) {
		out := new(journal)
		request := NewRequest(out, nil, nil)
		request.StartResponse(status.OK)
		request.SendHeader("Content-Type", "text/plain")
		request.EndHeaders()
		request.Send([]byte("hi"))

		require.Equal(t, "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\n\r\nhi", out.String())
		require.Equal(t, []string{
			"HTTP/1.1 200 OK\r\n", "Content-Type: text/plain\r\n", "\r\n", "hi",
		}, out.writes)
	})

	t.Run("send headers", func(t *testing.T) {
		out := new(journal)
		request := NewRequest(out, nil, nil)
		var chain *Header
		chain = chain.Prepend("A", "1").Prepend("B", "2")
		request.SendHeaders(chain)

		require.Equal(t, "B: 2\r\nA: 1\r\n", out.String())
	})

	t.Run("json", func(t *testing.T) {
		out := new(journal)
		request := NewRequest(out, nil, nil)
		s, err := request.JSON(status.Created, map[string]int{"answer": 42})
		require.NoError(t, err)
		require.Equal(t, Done, s)

		want := "HTTP/1.1 201 Created\r\n" +
			"Content-Type: application/json\r\n" +
			"Content-Length: 13\r\n" +
			"\r\n" +
			`{"answer":42}`
		require.Equal(t, want, out.String())
	})

	t.Run("path", func(t *testing.T) {
		request := NewRequest(nil, nil, nil)
		request.URL = "/hello?name=world"
		require.Equal(t, "/hello", request.Path())
		request.URL = "/hello"
		require.Equal(t, "/hello", request.Path())
	})

	t.Run("remote", func(t *testing.T) {
		addr := &net.TCPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 4242}
		request := NewRequest(nil, addr, nil)
		require.Equal(t, addr, request.Remote())
	})

	t.Run("detach", func(t *testing.T) {
		out := new(journal)
		request := NewRequest(out, nil, nil)
		closed := 0
		request.Data = closerFunc(func() error {
			closed++
			return errors.New("whatever")
		})

		require.Error(t, request.Detach())
		require.Equal(t, 1, closed)
		require.Nil(t, request.Data)
		require.NoError(t, request.Detach())
		require.Equal(t, 1, closed)

		request.SendString("dropped")
		require.Empty(t, out.writes)
	})
}

func TestStatus(t *testing.T) {
	require.Equal(t, "MORE", More.String())
	require.Equal(t, "DONE", Done.String())
	require.Equal(t, "NOT_FOUND", NotFound.String())
	require.Equal(t, "Status(7)", Status(7).String())
}
