package server

type phase uint8

const (
	eAccepting phase = iota
	eActive
	// eDraining means the handler is done, but some output is still queued
	eDraining
	eClosed
	// eErrored means the transport has gone away on its own, so the connection must not
	// be closed anymore
	eErrored
)

func (p phase) String() string {
	switch p {
	case eAccepting:
		return "accepting"
	case eActive:
		return "active"
	case eDraining:
		return "draining"
	case eClosed:
		return "closed"
	case eErrored:
		return "errored"
	default:
		return "unknown"
	}
}
