package unsent

import (
	"github.com/indigo-web/ahttpd/transport"
)

type node struct {
	buff []byte
	next *node
}

// Queue holds the output, which couldn't be accepted by the transport immediately. It's
// strictly FIFO: only the head is ever transmitted, and nothing gets ahead of it.
type Queue struct {
	head, tail *node
	size       int
}

// Enqueue transmits b right away only if nothing is pending, queueing whatever wasn't
// accepted. Otherwise b is queued as a whole, so the output order is always preserved.
// Returns the number of transmitted bytes.
func (q *Queue) Enqueue(pcb transport.PCB, b []byte) (int, error) {
	if !q.Empty() {
		q.Push(b)
		return 0, nil
	}

	n, err := Send(pcb, b)
	if err != nil {
		return 0, err
	}

	q.Push(b[n:])

	return n, nil
}

// Push appends a copy of b to the tail.
func (q *Queue) Push(b []byte) {
	if len(b) == 0 {
		return
	}

	n := &node{buff: append(make([]byte, 0, len(b)), b...)}
	if q.tail == nil {
		q.head = n
	} else {
		q.tail.next = n
	}

	q.tail = n
	q.size += len(b)
}

// Flush tries to transmit the head node only. A fully accepted head is dropped, otherwise
// it is replaced by its unaccepted remainder. Returns the number of transmitted bytes.
func (q *Queue) Flush(pcb transport.PCB) (int, error) {
	if q.head == nil {
		return 0, nil
	}

	n, err := Send(pcb, q.head.buff)
	if err != nil {
		return 0, err
	}

	q.size -= n

	if n == len(q.head.buff) {
		q.pop()
	} else {
		q.head = &node{
			buff: q.head.buff[n:],
			next: q.head.next,
		}

		if q.head.next == nil {
			q.tail = q.head
		}
	}

	return n, nil
}

func (q *Queue) pop() {
	q.head = q.head.next
	if q.head == nil {
		q.tail = nil
	}
}

// Empty tells whether there's no pending output.
func (q *Queue) Empty() bool {
	return q.head == nil
}

// Len returns the total number of pending bytes.
func (q *Queue) Len() int {
	return q.size
}

// Nodes returns the number of pending buffers.
func (q *Queue) Nodes() (n int) {
	for cur := q.head; cur != nil; cur = cur.next {
		n++
	}

	return n
}

// Clear drops all the pending output.
func (q *Queue) Clear() {
	q.head, q.tail = nil, nil
	q.size = 0
}
