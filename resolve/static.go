package resolve

import (
	"context"
	"net/netip"
	"strings"
)

// Static resolves nodes from a fixed table. Addresses are returned in the
// order given. Lookups are case-insensitive; an exact key match wins over
// other spellings of the same name.
type Static map[string][]netip.Addr

// Resolve implements Resolver.
func (s Static) Resolve(ctx context.Context, node, service string, hints Hints) ([]Candidate, error) {
	port, err := LookupPort(ctx, service, hints)
	if err != nil {
		return nil, err
	}

	addrs, ok := s.lookup(node)
	if !ok {
		if ip, isLit := literal(node); isLit {
			addrs = []netip.Addr{ip}
		} else {
			return nil, notFound(node)
		}
	}
	return nonEmpty(node, candidates(addrs, port, hints))
}

func (s Static) lookup(node string) ([]netip.Addr, bool) {
	if addrs, ok := s[node]; ok {
		return addrs, true
	}
	for name, addrs := range s {
		if strings.EqualFold(name, node) {
			return addrs, true
		}
	}
	return nil, false
}
