package resolve

import (
	"context"
	"net"
	"net/netip"

	"go.uber.org/zap"
)

// System resolves through a net.Resolver.
type System struct {
	// Resolver defaults to net.DefaultResolver.
	Resolver *net.Resolver
}

// NewSystem creates a resolver backed by net.DefaultResolver.
func NewSystem() *System {
	return &System{}
}

// Resolve implements Resolver.
func (s *System) Resolve(ctx context.Context, node, service string, hints Hints) ([]Candidate, error) {
	port, err := LookupPort(ctx, service, hints)
	if err != nil {
		return nil, err
	}

	var addrs []netip.Addr
	switch ip, ok := literal(node); {
	case ok:
		addrs = []netip.Addr{ip}
	case node == "":
		addrs = loopback()
	default:
		r := s.Resolver
		if r == nil {
			r = net.DefaultResolver
		}
		addrs, err = r.LookupNetIP(ctx, "ip", node)
		if err != nil {
			return nil, err
		}
	}

	out := candidates(addrs, port, hints)
	Logger().Debug("system resolve",
		zap.String("node", node),
		zap.String("service", service),
		zap.Int("candidates", len(out)))
	if len(out) == 0 {
		return nil, notFound(node)
	}
	return out, nil
}
