package multisock

import (
	"github.com/wippyai/multisock/errors"
	"github.com/wippyai/multisock/socket"
)

// Attr holds the socket type and protocol a group creates descriptors with.
type Attr struct {
	SocketType socket.Type
	Protocol   socket.Protocol
}

// DefaultAttr returns stream/TCP.
func DefaultAttr() Attr {
	return Attr{SocketType: socket.Stream, Protocol: socket.ProtoTCP}
}

// NewAttr returns an Attr initialised to DefaultAttr.
func NewAttr() *Attr {
	a := DefaultAttr()
	return &a
}

// SetSocketType sets the socket type.
func (a *Attr) SetSocketType(t socket.Type) {
	a.SocketType = t
}

// SetProtocol sets the protocol.
func (a *Attr) SetProtocol(p socket.Protocol) {
	a.Protocol = p
}

// Release is a no-op. Groups copy their Attr at creation.
func (a *Attr) Release() {}

func (a Attr) validate() error {
	switch a.SocketType {
	case socket.Stream, socket.Datagram, socket.SeqPacket:
	default:
		return errors.InvalidInput(errors.PhaseCreate, "unknown socket type "+a.SocketType.String())
	}
	if a.Protocol < 0 {
		return errors.InvalidInput(errors.PhaseCreate, "negative protocol")
	}
	return nil
}

// listens reports whether descriptors of this type accept connections.
func (a Attr) listens() bool {
	return a.SocketType != socket.Datagram
}
