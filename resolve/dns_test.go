package resolve

import (
	"context"
	stderrors "errors"
	"net"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/miekg/dns"
)

// startDNS runs an in-process DNS server on loopback UDP and returns its address.
func startDNS(t *testing.T, handler dns.HandlerFunc) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	started := make(chan struct{})
	srv := &dns.Server{
		PacketConn:        pc,
		Handler:           handler,
		NotifyStartedFunc: func() { close(started) },
	}
	go srv.ActivateAndServe()
	<-started
	t.Cleanup(func() { srv.Shutdown() })

	return pc.LocalAddr().String()
}

func zone(records map[string][]dns.RR) dns.HandlerFunc {
	return func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		q := r.Question[0]

		rrs, ok := records[q.Name]
		if !ok {
			m.SetRcode(r, dns.RcodeNameError)
			w.WriteMsg(m)
			return
		}
		for _, rr := range rrs {
			if rr.Header().Rrtype == q.Qtype {
				m.Answer = append(m.Answer, rr)
			}
		}
		w.WriteMsg(m)
	}
}

func mustRR(t *testing.T, s string) dns.RR {
	t.Helper()
	rr, err := dns.NewRR(s)
	if err != nil {
		t.Fatalf("NewRR(%q): %v", s, err)
	}
	return rr
}

func TestDNS_Resolve(t *testing.T) {
	server := startDNS(t, zone(map[string][]dns.RR{
		"example-host.": {
			mustRR(t, "example-host. 60 IN A 192.0.2.1"),
			mustRR(t, "example-host. 60 IN A 192.0.2.2"),
			mustRR(t, "example-host. 60 IN AAAA 2001:db8::5"),
		},
	}))

	tests := []struct {
		name       string
		preferIPv4 bool
		want       []string
	}{
		{"ipv6 first", false, []string{"[2001:db8::5]:80", "192.0.2.1:80", "192.0.2.2:80"}},
		{"prefer ipv4", true, []string{"192.0.2.1:80", "192.0.2.2:80", "[2001:db8::5]:80"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewDNS(server)
			r.PreferIPv4 = tt.preferIPv4

			cands, err := r.Resolve(context.Background(), "example-host", "80", Hints{})
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if diff := cmp.Diff(tt.want, addrsOf(cands)); diff != "" {
				t.Errorf("candidates mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDNS_NXDomain(t *testing.T) {
	server := startDNS(t, zone(nil))

	_, err := NewDNS(server).Resolve(context.Background(), "missing.test", "80", Hints{})
	if err == nil {
		t.Fatal("expected error")
	}
	var dnsErr *net.DNSError
	if !stderrors.As(err, &dnsErr) || !dnsErr.IsNotFound {
		t.Errorf("expected not-found DNSError, got %v", err)
	}
}

func TestDNS_NoRecords(t *testing.T) {
	server := startDNS(t, zone(map[string][]dns.RR{
		"empty.test.": {mustRR(t, "empty.test. 60 IN TXT \"nothing\"")},
	}))

	_, err := NewDNS(server).Resolve(context.Background(), "empty.test", "80", Hints{})
	var dnsErr *net.DNSError
	if !stderrors.As(err, &dnsErr) || !dnsErr.IsNotFound {
		t.Errorf("expected not-found DNSError, got %v", err)
	}
}

func TestDNS_ServerFailure(t *testing.T) {
	server := startDNS(t, func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetRcode(r, dns.RcodeServerFailure)
		w.WriteMsg(m)
	})

	_, err := NewDNS(server).Resolve(context.Background(), "any.test", "80", Hints{})
	var dnsErr *net.DNSError
	if !stderrors.As(err, &dnsErr) || !dnsErr.IsTemporary {
		t.Errorf("expected temporary DNSError, got %v", err)
	}
}

func TestDNS_LiteralSkipsServer(t *testing.T) {
	// No server listens here; a literal must not trigger a query.
	r := NewDNS("127.0.0.1:1")

	cands, err := r.Resolve(context.Background(), "2001:db8::9", "443", Hints{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"[2001:db8::9]:443"}, addrsOf(cands)); diff != "" {
		t.Error(diff)
	}
}
