package dummy

import (
	"errors"
	"testing"

	"github.com/indigo-web/ahttpd/transport"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	chains [][]string
	sent   []int
	polls  int
	err    error
}

func (r *recorder) Recv(chain [][]byte, _ error) {
	var strs []string
	for _, buff := range chain {
		strs = append(strs, string(buff))
	}

	r.chains = append(r.chains, strs)
}

func (r *recorder) Sent(n int) {
	r.sent = append(r.sent, n)
}

func (r *recorder) Poll() {
	r.polls++
}

func (r *recorder) Err(err error) {
	r.err = err
}

func TestPCB(t *testing.T) {
	t.Run("send window", func(t *testing.T) {
		pcb := NewPCB(10)
		require.NoError(t, pcb.Write([]byte("hello")))
		require.Equal(t, 5, pcb.SendBuffer())
		require.ErrorIs(t, pcb.Write([]byte("world!")), transport.ErrMem)
		require.NoError(t, pcb.Write([]byte("world")))
		require.Zero(t, pcb.SendBuffer())

		events := new(recorder)
		pcb.Bind(events)
		pcb.Ack(4)
		require.Equal(t, 4, pcb.SendBuffer())
		pcb.AckAll()
		require.Equal(t, 10, pcb.SendBuffer())
		require.Equal(t, []int{4, 6}, events.sent)
		require.Equal(t, "helloworld", pcb.Written())
	})

	t.Run("segments", func(t *testing.T) {
		pcb := NewPCB(100).QueueLimit(2)
		require.NoError(t, pcb.Write([]byte("a")))
		require.NoError(t, pcb.Write([]byte("b")))
		require.True(t, pcb.QueueFull())
		require.ErrorIs(t, pcb.Write([]byte("c")), transport.ErrMem)
		pcb.AckAll()
		require.False(t, pcb.QueueFull())
	})

	t.Run("injected failures", func(t *testing.T) {
		pcb := NewPCB(100).FailWrites(1)
		require.ErrorIs(t, pcb.Write([]byte("a")), transport.ErrMem)
		require.NoError(t, pcb.Write([]byte("a")))

		broken := errors.New("broken pipe")
		pcb.BreakWrites(broken)
		require.ErrorIs(t, pcb.Write([]byte("a")), broken)
	})

	t.Run("deliver poisons buffers", func(t *testing.T) {
		pcb := NewPCB(100)
		var retained []byte
		pcb.Bind(recvFunc(func(chain [][]byte) {
			retained = chain[0]
		}))
		pcb.DeliverString("GET")
		require.Equal(t, "###", string(retained))
	})

	t.Run("fail unbinds", func(t *testing.T) {
		pcb := NewPCB(100)
		events := new(recorder)
		pcb.Bind(events)
		pcb.Fail(transport.ErrClosed)
		require.ErrorIs(t, events.err, transport.ErrClosed)
		require.False(t, pcb.Bound())
		require.True(t, pcb.Closed())
		require.Zero(t, pcb.Closes())
	})
}

type recvFunc func(chain [][]byte)

func (r recvFunc) Recv(chain [][]byte, _ error) {
	r(chain)
}

func (recvFunc) Sent(int)  {}
func (recvFunc) Poll()     {}
func (recvFunc) Err(error) {}

func TestStack(t *testing.T) {
	stack := NewStack()
	var accepted []transport.PCB
	listener, err := stack.Listen("[0.0.0.0]:80", func(pcb transport.PCB) error {
		accepted = append(accepted, pcb)
		if len(accepted) > 1 {
			return transport.ErrMem
		}

		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "[0.0.0.0]:80", listener.Addr().String())

	require.NoError(t, stack.Connect(NewPCB(10)))
	rejected := NewPCB(10)
	require.ErrorIs(t, stack.Connect(rejected), transport.ErrMem)
	require.True(t, rejected.Closed())

	require.NoError(t, listener.Close())
	require.ErrorIs(t, stack.Connect(NewPCB(10)), transport.ErrClosed)
}
