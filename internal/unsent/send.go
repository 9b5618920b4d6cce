package unsent

import (
	"errors"

	"github.com/indigo-web/ahttpd/transport"
)

// Send hands as much of b over to the transport, as its send window admits right now,
// and returns the number of accepted bytes. On transport.ErrMem the attempted length is
// halved until it either succeeds or drops to zero, so the call never blocks. Any other
// error is fatal for the connection.
func Send(pcb transport.PCB, b []byte) (int, error) {
	n := min(len(b), pcb.SendBuffer())
	if n <= 0 {
		return 0, nil
	}

	err := pcb.Write(b[:n])
	for errors.Is(err, transport.ErrMem) {
		if pcb.SendBuffer() == 0 || pcb.QueueFull() {
			return 0, nil
		}

		n /= 2
		if n == 0 {
			return 0, nil
		}

		err = pcb.Write(b[:n])
	}

	if err != nil {
		return 0, err
	}

	// the data is already in the send buffer, so the output is going to be retried by
	// the transport itself anyway
	_ = pcb.Output()

	return n, nil
}
