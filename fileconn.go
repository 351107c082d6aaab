package multisock

import (
	"net"
	"os"
	"strconv"

	"github.com/wippyai/multisock/errors"
	"github.com/wippyai/multisock/socket"
)

func fileOf(fd socket.FD) (*os.File, error) {
	if fd < 0 {
		return nil, errors.InvalidInput(errors.PhaseCreate, "invalid descriptor "+strconv.Itoa(int(fd)))
	}
	return os.NewFile(uintptr(fd), "multisock:"+strconv.Itoa(int(fd))), nil
}

// FileConn wraps a caller-owned stream descriptor as a net.Conn. It takes
// ownership of fd: the descriptor is closed whether or not the call succeeds,
// and the returned conn must be closed instead.
func FileConn(fd socket.FD) (net.Conn, error) {
	f, err := fileOf(fd)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return net.FileConn(f)
}

// FilePacketConn is FileConn for datagram descriptors.
func FilePacketConn(fd socket.FD) (net.PacketConn, error) {
	f, err := fileOf(fd)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return net.FilePacketConn(f)
}
