package http

import (
	"github.com/indigo-web/utils/strcomp"
)

// Header is a single node of the request headers chain. The chain is built by prepending,
// so it holds the headers in reverse order they were received in. Don't rely on the
// order, look the headers up by their names instead.
type Header struct {
	Name  string
	Value string
	Next  *Header
}

// Prepend returns a new chain head, holding the pair and followed by h.
func (h *Header) Prepend(name, value string) *Header {
	return &Header{
		Name:  name,
		Value: value,
		Next:  h,
	}
}

// Find returns the first node in the chain, whose name equals to the passed one
// case-insensitively. Returns nil if nothing found.
func (h *Header) Find(name string) *Header {
	for node := h; node != nil; node = node.Next {
		if strcomp.EqualFold(node.Name, name) {
			return node
		}
	}

	return nil
}

// Len returns the number of nodes in the chain.
func (h *Header) Len() (n int) {
	for node := h; node != nil; node = node.Next {
		n++
	}

	return n
}
