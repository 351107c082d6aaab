package socket

import (
	"net"
	"net/netip"
	"strconv"
	"strings"

	"github.com/wippyai/multisock/errors"
)

// FD is a raw socket descriptor.
type FD int

// InvalidFD is returned alongside errors.
const InvalidFD FD = -1

// Family is an address family.
type Family uint8

const (
	FamilyUnspec Family = iota
	FamilyIPv4
	FamilyIPv6
	FamilyUnix
)

func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	case FamilyUnix:
		return "unix"
	default:
		return "unspec"
	}
}

// Type is a socket type.
type Type uint8

const (
	Stream Type = iota + 1
	Datagram
	SeqPacket
)

func (t Type) String() string {
	switch t {
	case Stream:
		return "stream"
	case Datagram:
		return "datagram"
	case SeqPacket:
		return "seqpacket"
	default:
		return "type(" + strconv.Itoa(int(t)) + ")"
	}
}

// ParseType parses "stream", "datagram"/"dgram" or "seqpacket".
func ParseType(s string) (Type, error) {
	switch strings.ToLower(s) {
	case "stream", "":
		return Stream, nil
	case "datagram", "dgram":
		return Datagram, nil
	case "seqpacket":
		return SeqPacket, nil
	}
	return 0, errors.InvalidInput(errors.PhaseConfig, "unknown socket type "+strconv.Quote(s))
}

// Protocol is an IANA protocol number. Zero selects the family default.
type Protocol int

const (
	ProtoDefault Protocol = 0
	ProtoTCP     Protocol = 6
	ProtoUDP     Protocol = 17
)

func (p Protocol) String() string {
	switch p {
	case ProtoDefault:
		return "default"
	case ProtoTCP:
		return "tcp"
	case ProtoUDP:
		return "udp"
	default:
		return "proto(" + strconv.Itoa(int(p)) + ")"
	}
}

// ParseProtocol parses "tcp", "udp", "default" or a protocol number.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(s) {
	case "tcp":
		return ProtoTCP, nil
	case "udp":
		return ProtoUDP, nil
	case "default", "":
		return ProtoDefault, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 255 {
		return 0, errors.InvalidInput(errors.PhaseConfig, "unknown protocol "+strconv.Quote(s))
	}
	return Protocol(n), nil
}

// Network returns the Go network name ("tcp", "udp", ...) used for service
// lookups with this type/protocol pair.
func Network(t Type, p Protocol) string {
	switch p {
	case ProtoTCP:
		return "tcp"
	case ProtoUDP:
		return "udp"
	}
	if t == Datagram {
		return "udp"
	}
	return "tcp"
}

// Address is a socket endpoint with its family embedded.
type Address struct {
	Family Family
	IP     netip.Addr
	Port   uint16
	Path   string
}

// AddressFrom builds an IPv4 or IPv6 address from ap.
// IPv4-mapped IPv6 addresses are unmapped to IPv4.
func AddressFrom(ap netip.AddrPort) Address {
	ip := ap.Addr().Unmap()
	family := FamilyIPv6
	if ip.Is4() {
		family = FamilyIPv4
	}
	return Address{Family: family, IP: ip, Port: ap.Port()}
}

// UnixAddress builds a Unix domain socket address.
func UnixAddress(path string) Address {
	return Address{Family: FamilyUnix, Path: path}
}

// ParseAddress parses "ip:port", "[ipv6]:port", "unix:/path" or an absolute path.
// Host names are not resolved.
func ParseAddress(s string) (Address, error) {
	if rest, ok := strings.CutPrefix(s, "unix:"); ok {
		s = rest
		if s == "" {
			return Address{}, errors.InvalidInput(errors.PhaseConfig, "empty unix socket path")
		}
		return UnixAddress(s), nil
	}
	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, "@") {
		return UnixAddress(s), nil
	}
	ap, err := netip.ParseAddrPort(s)
	if err != nil {
		return Address{}, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Addr(s).
			Cause(err).
			Detail("parse address").
			Build()
	}
	return AddressFrom(ap), nil
}

// IsValid reports whether the address is usable for bind or connect.
func (a Address) IsValid() bool {
	switch a.Family {
	case FamilyIPv4:
		return a.IP.Is4()
	case FamilyIPv6:
		return a.IP.Is6()
	case FamilyUnix:
		return a.Path != ""
	}
	return false
}

// Equal reports whether a and b name the same endpoint.
func (a Address) Equal(b Address) bool {
	return a == b
}

// AddrPort returns the IP endpoint, or the zero value for Unix addresses.
func (a Address) AddrPort() netip.AddrPort {
	if a.Family == FamilyUnix {
		return netip.AddrPort{}
	}
	return netip.AddrPortFrom(a.IP, a.Port)
}

func (a Address) String() string {
	switch a.Family {
	case FamilyUnix:
		return "unix:" + a.Path
	case FamilyIPv4, FamilyIPv6:
		return net.JoinHostPort(a.IP.String(), strconv.Itoa(int(a.Port)))
	}
	return ""
}

// Primitive is the OS socket API a group is built on.
type Primitive interface {
	// Socket creates a descriptor.
	Socket(family Family, sotype Type, proto Protocol) (FD, error)

	// Bind assigns a local address.
	Bind(fd FD, addr Address) error

	// Listen marks a stream descriptor as passive.
	Listen(fd FD, backlog int) error

	// Accept takes one pending connection from a listening descriptor.
	Accept(fd FD) (FD, Address, error)

	// Connect connects a descriptor to a remote address. It blocks until the
	// connection is established or fails.
	Connect(fd FD, addr Address) error

	// Close releases a descriptor.
	Close(fd FD) error

	// WaitReadable blocks until at least one descriptor in fds is readable
	// and returns the readable subset. An empty result with a nil error is a
	// spurious wake.
	WaitReadable(fds []FD) ([]FD, error)
}
