// Package resolve maps a node/service pair to an ordered list of socket
// addresses for multisock.Group.ConnectByName.
//
// Three resolvers are provided:
//   - System - the Go net.Resolver (getaddrinfo ordering with cgo, RFC 6724
//     sorting otherwise)
//   - DNS - direct A/AAAA queries against one server using miekg/dns
//   - Static - a fixed table, for tests and pinned deployments
//
// Every resolver preserves preference order; callers try candidates first to last.
package resolve

import (
	"context"
	"net"
	"net/netip"

	"github.com/wippyai/multisock/socket"
)

// Hints restrict the candidates a resolver returns.
type Hints struct {
	SocketType socket.Type
	Protocol   socket.Protocol
	// Family limits results to one family; FamilyUnspec allows all.
	Family socket.Family
}

// Candidate is one resolved address, tagged with the type and protocol it
// should be connected with.
type Candidate struct {
	Address    socket.Address
	SocketType socket.Type
	Protocol   socket.Protocol
}

// Family returns the candidate's address family.
func (c Candidate) Family() socket.Family {
	return c.Address.Family
}

// Resolver resolves a node and service to candidates in preference order.
type Resolver interface {
	Resolve(ctx context.Context, node, service string, hints Hints) ([]Candidate, error)
}

// Func adapts a function to Resolver.
type Func func(ctx context.Context, node, service string, hints Hints) ([]Candidate, error)

// Resolve calls f.
func (f Func) Resolve(ctx context.Context, node, service string, hints Hints) ([]Candidate, error) {
	return f(ctx, node, service, hints)
}

// LookupPort resolves a service name or number for the hinted network.
// An empty service resolves to port 0.
func LookupPort(ctx context.Context, service string, hints Hints) (uint16, error) {
	if service == "" {
		return 0, nil
	}
	port, err := net.DefaultResolver.LookupPort(ctx, socket.Network(hints.SocketType, hints.Protocol), service)
	if err != nil {
		return 0, err
	}
	return uint16(port), nil
}

// literal returns the address when node is an IP literal.
func literal(node string) (netip.Addr, bool) {
	ip, err := netip.ParseAddr(node)
	if err != nil {
		return netip.Addr{}, false
	}
	return ip.Unmap(), true
}

// loopback is what an empty node resolves to, matching getaddrinfo without AI_PASSIVE.
func loopback() []netip.Addr {
	return []netip.Addr{netip.IPv6Loopback(), netip.AddrFrom4([4]byte{127, 0, 0, 1})}
}

// candidates tags addrs with port and hints, dropping families the hints exclude.
func candidates(addrs []netip.Addr, port uint16, hints Hints) []Candidate {
	out := make([]Candidate, 0, len(addrs))
	for _, ip := range addrs {
		addr := socket.AddressFrom(netip.AddrPortFrom(ip, port))
		if hints.Family != socket.FamilyUnspec && addr.Family != hints.Family {
			continue
		}
		out = append(out, Candidate{
			Address:    addr,
			SocketType: hints.SocketType,
			Protocol:   hints.Protocol,
		})
	}
	return out
}

func notFound(node string) error {
	return &net.DNSError{Err: "no such host", Name: node, IsNotFound: true}
}
