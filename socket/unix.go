//go:build unix

package socket

import (
	"net"
	"net/netip"
	"os"
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"
)

type unixPrimitive struct{}

// Unix returns the Primitive backed by the host's socket system calls.
// Descriptors are blocking and close-on-exec. IPv6 descriptors are created
// IPV6_V6ONLY so an IPv4 and an IPv6 member can share a port.
func Unix() Primitive {
	return unixPrimitive{}
}

func domainOf(f Family) (int, error) {
	switch f {
	case FamilyIPv4:
		return unix.AF_INET, nil
	case FamilyIPv6:
		return unix.AF_INET6, nil
	case FamilyUnix:
		return unix.AF_UNIX, nil
	}
	return 0, unix.EAFNOSUPPORT
}

func sotypeOf(t Type) (int, error) {
	switch t {
	case Stream:
		return unix.SOCK_STREAM, nil
	case Datagram:
		return unix.SOCK_DGRAM, nil
	case SeqPacket:
		return unix.SOCK_SEQPACKET, nil
	}
	return 0, unix.ESOCKTNOSUPPORT
}

func (unixPrimitive) Socket(family Family, sotype Type, proto Protocol) (FD, error) {
	domain, err := domainOf(family)
	if err != nil {
		return InvalidFD, os.NewSyscallError("socket", err)
	}
	typ, err := sotypeOf(sotype)
	if err != nil {
		return InvalidFD, os.NewSyscallError("socket", err)
	}
	if family == FamilyUnix && (proto == ProtoTCP || proto == ProtoUDP) {
		// AF_UNIX only accepts protocol 0; the IP protocol follows the type.
		proto = ProtoDefault
	}

	// Hold ForkLock so a concurrent fork cannot inherit the descriptor
	// before close-on-exec is set.
	syscall.ForkLock.RLock()
	fd, err := unix.Socket(domain, typ, int(proto))
	if err == nil {
		unix.CloseOnExec(fd)
	}
	syscall.ForkLock.RUnlock()
	if err != nil {
		return InvalidFD, os.NewSyscallError("socket", err)
	}

	if family == FamilyIPv6 {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 1); err != nil {
			unix.Close(fd)
			return InvalidFD, os.NewSyscallError("setsockopt", err)
		}
	}
	return FD(fd), nil
}

func (unixPrimitive) Bind(fd FD, addr Address) error {
	sa, err := toSockaddr(addr)
	if err != nil {
		return os.NewSyscallError("bind", err)
	}

	if addr.Family != FamilyUnix {
		if typ, err := unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_TYPE); err == nil && typ == unix.SOCK_STREAM {
			if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
				return os.NewSyscallError("setsockopt", err)
			}
		}
	}

	return os.NewSyscallError("bind", unix.Bind(int(fd), sa))
}

func (unixPrimitive) Listen(fd FD, backlog int) error {
	return os.NewSyscallError("listen", unix.Listen(int(fd), backlog))
}

func (unixPrimitive) Accept(fd FD) (FD, Address, error) {
	syscall.ForkLock.RLock()
	nfd, sa, err := unix.Accept(int(fd))
	if err == nil {
		unix.CloseOnExec(nfd)
	}
	syscall.ForkLock.RUnlock()
	if err != nil {
		return InvalidFD, Address{}, os.NewSyscallError("accept", err)
	}
	return FD(nfd), fromSockaddr(sa), nil
}

func (unixPrimitive) Connect(fd FD, addr Address) error {
	sa, err := toSockaddr(addr)
	if err != nil {
		return os.NewSyscallError("connect", err)
	}
	err = unix.Connect(int(fd), sa)
	if err == unix.EINTR {
		// The handshake continues in the kernel; wait for its outcome.
		err = waitConnected(int(fd))
	}
	return os.NewSyscallError("connect", err)
}

func waitConnected(fd int) error {
	pfds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
	for {
		_, err := unix.Poll(pfds, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		break
	}

	soerr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if soerr != 0 {
		return unix.Errno(soerr)
	}
	return nil
}

func (unixPrimitive) Close(fd FD) error {
	return os.NewSyscallError("close", unix.Close(int(fd)))
}

func (unixPrimitive) WaitReadable(fds []FD) ([]FD, error) {
	if len(fds) == 0 {
		return nil, os.NewSyscallError("poll", unix.EINVAL)
	}

	pfds := make([]unix.PollFd, len(fds))
	for i, fd := range fds {
		pfds[i] = unix.PollFd{Fd: int32(fd), Events: unix.POLLIN}
	}

	for {
		_, err := unix.Poll(pfds, -1)
		if err == unix.EINTR {
			// The runtime's own signals interrupt poll; they are not
			// caller-visible events.
			continue
		}
		if err != nil {
			return nil, os.NewSyscallError("poll", err)
		}
		break
	}

	ready := make([]FD, 0, 1)
	for i, p := range pfds {
		if p.Revents&unix.POLLNVAL != 0 {
			return nil, os.NewSyscallError("poll", unix.EBADF)
		}
		if p.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			ready = append(ready, fds[i])
		}
	}
	return ready, nil
}

func toSockaddr(addr Address) (unix.Sockaddr, error) {
	if !addr.IsValid() {
		return nil, unix.EINVAL
	}
	switch addr.Family {
	case FamilyIPv4:
		return &unix.SockaddrInet4{Port: int(addr.Port), Addr: addr.IP.As4()}, nil
	case FamilyIPv6:
		sa := &unix.SockaddrInet6{Port: int(addr.Port), Addr: addr.IP.As16()}
		if zone := addr.IP.Zone(); zone != "" {
			sa.ZoneId = zoneIndex(zone)
		}
		return sa, nil
	case FamilyUnix:
		return &unix.SockaddrUnix{Name: addr.Path}, nil
	}
	return nil, unix.EAFNOSUPPORT
}

func zoneIndex(zone string) uint32 {
	if ifi, err := net.InterfaceByName(zone); err == nil {
		return uint32(ifi.Index)
	}
	n, _ := strconv.Atoi(zone)
	return uint32(n)
}

func zoneName(index uint32) string {
	if ifi, err := net.InterfaceByIndex(int(index)); err == nil {
		return ifi.Name
	}
	return strconv.FormatUint(uint64(index), 10)
}

func fromSockaddr(sa unix.Sockaddr) Address {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return Address{Family: FamilyIPv4, IP: netip.AddrFrom4(sa.Addr), Port: uint16(sa.Port)}
	case *unix.SockaddrInet6:
		ip := netip.AddrFrom16(sa.Addr)
		if sa.ZoneId != 0 {
			ip = ip.WithZone(zoneName(sa.ZoneId))
		}
		return Address{Family: FamilyIPv6, IP: ip, Port: uint16(sa.Port)}
	case *unix.SockaddrUnix:
		return Address{Family: FamilyUnix, Path: sa.Name}
	}
	return Address{}
}

// LocalAddress returns the address a descriptor is bound to.
func LocalAddress(fd FD) (Address, error) {
	sa, err := unix.Getsockname(int(fd))
	if err != nil {
		return Address{}, os.NewSyscallError("getsockname", err)
	}
	return fromSockaddr(sa), nil
}
