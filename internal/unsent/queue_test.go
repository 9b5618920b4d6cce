package unsent

import (
	"errors"
	"strings"
	"testing"

	"github.com/indigo-web/ahttpd/transport/dummy"
	"github.com/stretchr/testify/require"
)

func TestSend(t *testing.T) {
	t.Run("fits", func(t *testing.T) {
		pcb := dummy.NewPCB(100)
		n, err := Send(pcb, []byte("hello"))
		require.NoError(t, err)
		require.Equal(t, 5, n)
		require.Equal(t, "hello", pcb.Written())
		require.Equal(t, 1, pcb.Outputs())
	})

	t.Run("clamped by window", func(t *testing.T) {
		pcb := dummy.NewPCB(3)
		n, err := Send(pcb, []byte("hello"))
		require.NoError(t, err)
		require.Equal(t, 3, n)
		require.Equal(t, "hel", pcb.Written())
	})

	t.Run("zero window", func(t *testing.T) {
		pcb := dummy.NewPCB(0)
		n, err := Send(pcb, []byte("hello"))
		require.NoError(t, err)
		require.Zero(t, n)
		require.Zero(t, pcb.Outputs())
	})

	t.Run("halving", func(t *testing.T) {
		pcb := dummy.NewPCB(100).FailWrites(2)
		n, err := Send(pcb, []byte(strings.Repeat("a", 64)))
		require.NoError(t, err)
		require.Equal(t, 16, n)
		require.Equal(t, 16, len(pcb.Written()))
	})

	t.Run("halving down to zero", func(t *testing.T) {
		pcb := dummy.NewPCB(100).FailWrites(100)
		n, err := Send(pcb, []byte("abcd"))
		require.NoError(t, err)
		require.Zero(t, n)
		require.Empty(t, pcb.Written())
	})

	t.Run("segments exhausted", func(t *testing.T) {
		pcb := dummy.NewPCB(100).QueueLimit(1)
		_, err := Send(pcb, []byte("a"))
		require.NoError(t, err)
		n, err := Send(pcb, []byte("b"))
		require.NoError(t, err)
		require.Zero(t, n)
	})

	t.Run("fatal", func(t *testing.T) {
		broken := errors.New("connection reset")
		pcb := dummy.NewPCB(100).BreakWrites(broken)
		_, err := Send(pcb, []byte("a"))
		require.ErrorIs(t, err, broken)
	})
}

func TestQueue(t *testing.T) {
	t.Run("immediate", func(t *testing.T) {
		pcb := dummy.NewPCB(100)
		var q Queue
		n, err := q.Enqueue(pcb, []byte("hello"))
		require.NoError(t, err)
		require.Equal(t, 5, n)
		require.True(t, q.Empty())
	})

	t.Run("remainder is queued", func(t *testing.T) {
		pcb := dummy.NewPCB(3)
		var q Queue
		buff := []byte("hello")
		n, err := q.Enqueue(pcb, buff)
		require.NoError(t, err)
		require.Equal(t, 3, n)
		require.Equal(t, 2, q.Len())

		// the caller is free to reuse its buffer
		copy(buff, "#####")
		pcb.AckAll()
		n, err = q.Flush(pcb)
		require.NoError(t, err)
		require.Equal(t, 2, n)
		require.True(t, q.Empty())
		require.Equal(t, "hello", pcb.Written())
	})

	t.Run("nothing overtakes pending output", func(t *testing.T) {
		pcb := dummy.NewPCB(2)
		var q Queue
		_, err := q.Enqueue(pcb, []byte("abc"))
		require.NoError(t, err)
		pcb.AckAll()

		// the window is open now, however "c" is still pending
		n, err := q.Enqueue(pcb, []byte("de"))
		require.NoError(t, err)
		require.Zero(t, n)
		require.Equal(t, 2, q.Nodes())
		require.Equal(t, "ab", pcb.Written())
	})

	t.Run("partial flush keeps remainder at head", func(t *testing.T) {
		pcb := dummy.NewPCB(0)
		var q Queue
		q.Push([]byte("first"))
		q.Push([]byte("second"))

		pcb = dummy.NewPCB(2)
		n, err := q.Flush(pcb)
		require.NoError(t, err)
		require.Equal(t, 2, n)
		require.Equal(t, 2, q.Nodes())
		require.Equal(t, 9, q.Len())

		pcb.AckAll()
		_, err = q.Flush(pcb)
		require.NoError(t, err)
		pcb.AckAll()
		_, err = q.Flush(pcb)
		require.NoError(t, err)
		require.Equal(t, "first", pcb.Written())
		require.Equal(t, 1, q.Nodes())
	})

	t.Run("order under arbitrary windows", func(t *testing.T) {
		pieces := []string{"HTTP/1.1 200 OK\r\n", "Content-Type: text/plain\r\n", "\r\n"}
		for i := 0; i < 20; i++ {
			pieces = append(pieces, strings.Repeat(string(rune('a'+i)), i*7+1))
		}

		for window := 1; window < 64; window += 5 {
			pcb := dummy.NewPCB(window)
			var q Queue
			for _, piece := range pieces {
				_, err := q.Enqueue(pcb, []byte(piece))
				require.NoError(t, err)
			}

			for !q.Empty() {
				pcb.AckAll()
				_, err := q.Flush(pcb)
				require.NoError(t, err)
			}

			require.Equal(t, strings.Join(pieces, ""), pcb.Written(), window)
		}
	})

	t.Run("clear", func(t *testing.T) {
		var q Queue
		q.Push([]byte("a"))
		q.Push(nil)
		require.Equal(t, 1, q.Nodes())
		q.Clear()
		require.True(t, q.Empty())
		require.Zero(t, q.Len())

		n, err := q.Flush(dummy.NewPCB(10))
		require.NoError(t, err)
		require.Zero(t, n)
	})
}
