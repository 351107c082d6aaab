package resolve

import (
	"context"
	"net"
	"net/netip"
	"os"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DefaultDNSTimeout bounds a single DNS exchange.
const DefaultDNSTimeout = 2 * time.Second

// DNS resolves by querying one DNS server directly for AAAA and A records.
// Results keep the answer order within each record type; IPv6 answers come
// first unless PreferIPv4 is set.
type DNS struct {
	// Server is the nameserver address, host:port.
	Server string
	// Client performs exchanges; defaults to UDP with DefaultDNSTimeout.
	Client     *dns.Client
	PreferIPv4 bool
}

// NewDNS creates a resolver that queries server over UDP, retrying over TCP
// when a response is truncated.
func NewDNS(server string) *DNS {
	return &DNS{
		Server: server,
		Client: &dns.Client{Net: "udp", Timeout: DefaultDNSTimeout},
	}
}

// Resolve implements Resolver.
func (d *DNS) Resolve(ctx context.Context, node, service string, hints Hints) ([]Candidate, error) {
	port, err := LookupPort(ctx, service, hints)
	if err != nil {
		return nil, err
	}

	if ip, ok := literal(node); ok {
		return nonEmpty(node, candidates([]netip.Addr{ip}, port, hints))
	}
	if node == "" {
		return nonEmpty(node, candidates(loopback(), port, hints))
	}

	order := []uint16{dns.TypeAAAA, dns.TypeA}
	if d.PreferIPv4 {
		order = []uint16{dns.TypeA, dns.TypeAAAA}
	}

	name := dns.Fqdn(node)
	var (
		addrs []netip.Addr
		errs  error
	)
	for _, qtype := range order {
		got, err := d.query(ctx, name, qtype)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		addrs = append(addrs, got...)
	}

	Logger().Debug("dns resolve",
		zap.String("node", node),
		zap.String("server", d.Server),
		zap.Int("addrs", len(addrs)),
		zap.Error(errs))

	if len(addrs) == 0 {
		if errs != nil {
			return nil, errs
		}
		return nil, notFound(node)
	}
	return nonEmpty(node, candidates(addrs, port, hints))
}

func (d *DNS) client() *dns.Client {
	if d.Client != nil {
		return d.Client
	}
	return &dns.Client{Net: "udp", Timeout: DefaultDNSTimeout}
}

func (d *DNS) query(ctx context.Context, name string, qtype uint16) ([]netip.Addr, error) {
	m := new(dns.Msg)
	m.SetQuestion(name, qtype)
	m.RecursionDesired = true

	c := d.client()
	resp, _, err := c.ExchangeContext(ctx, m, d.Server)
	if err == nil && resp.Truncated && c.Net != "tcp" {
		tcp := *c
		tcp.Net = "tcp"
		resp, _, err = tcp.ExchangeContext(ctx, m, d.Server)
	}
	if err != nil {
		return nil, &net.DNSError{
			Err:         err.Error(),
			Name:        name,
			Server:      d.Server,
			IsTimeout:   os.IsTimeout(err),
			IsTemporary: true,
		}
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, &net.DNSError{Err: "no such host", Name: name, Server: d.Server, IsNotFound: true}
	case dns.RcodeServerFailure:
		return nil, &net.DNSError{Err: "server failure", Name: name, Server: d.Server, IsTemporary: true}
	default:
		return nil, &net.DNSError{Err: dns.RcodeToString[resp.Rcode], Name: name, Server: d.Server}
	}

	var addrs []netip.Addr
	for _, rr := range resp.Answer {
		switch rr := rr.(type) {
		case *dns.A:
			if ip, ok := netip.AddrFromSlice(rr.A.To4()); ok {
				addrs = append(addrs, ip)
			}
		case *dns.AAAA:
			if ip, ok := netip.AddrFromSlice(rr.AAAA.To16()); ok {
				addrs = append(addrs, ip)
			}
		}
	}
	return addrs, nil
}

func nonEmpty(node string, out []Candidate) ([]Candidate, error) {
	if len(out) == 0 {
		return nil, notFound(node)
	}
	return out, nil
}
