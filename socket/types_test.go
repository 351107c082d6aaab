package socket

import (
	stderrors "errors"
	"net/netip"
	"testing"

	"github.com/wippyai/multisock/errors"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in     string
		family Family
		str    string
	}{
		{"127.0.0.1:8080", FamilyIPv4, "127.0.0.1:8080"},
		{"[::1]:443", FamilyIPv6, "[::1]:443"},
		{"[::ffff:10.0.0.1]:53", FamilyIPv4, "10.0.0.1:53"},
		{"0.0.0.0:0", FamilyIPv4, "0.0.0.0:0"},
		{"unix:/tmp/a.sock", FamilyUnix, "unix:/tmp/a.sock"},
		{"/run/b.sock", FamilyUnix, "unix:/run/b.sock"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			addr, err := ParseAddress(tt.in)
			if err != nil {
				t.Fatalf("ParseAddress(%q): %v", tt.in, err)
			}
			if addr.Family != tt.family {
				t.Errorf("family = %v, want %v", addr.Family, tt.family)
			}
			if got := addr.String(); got != tt.str {
				t.Errorf("String() = %q, want %q", got, tt.str)
			}
			if !addr.IsValid() {
				t.Error("expected valid address")
			}
		})
	}
}

func TestParseAddress_Invalid(t *testing.T) {
	for _, in := range []string{"", "example.com:80", "127.0.0.1", "unix:"} {
		_, err := ParseAddress(in)
		if err == nil {
			t.Errorf("ParseAddress(%q) should fail", in)
			continue
		}
		if !stderrors.Is(err, &errors.Error{Kind: errors.KindInvalidInput}) {
			t.Errorf("ParseAddress(%q) error kind: %v", in, err)
		}
	}
}

func TestAddress_IsValid(t *testing.T) {
	if (Address{}).IsValid() {
		t.Error("zero address should be invalid")
	}
	mismatched := Address{Family: FamilyIPv6, IP: netip.MustParseAddr("10.0.0.1")}
	if mismatched.IsValid() {
		t.Error("IPv4 IP with IPv6 family should be invalid")
	}
}

func TestParseTypeAndProtocol(t *testing.T) {
	typ, err := ParseType("dgram")
	if err != nil || typ != Datagram {
		t.Fatalf("ParseType(dgram) = %v, %v", typ, err)
	}
	if _, err := ParseType("raw"); err == nil {
		t.Error("ParseType(raw) should fail")
	}

	proto, err := ParseProtocol("udp")
	if err != nil || proto != ProtoUDP {
		t.Fatalf("ParseProtocol(udp) = %v, %v", proto, err)
	}
	proto, err = ParseProtocol("132")
	if err != nil || proto != Protocol(132) {
		t.Fatalf("ParseProtocol(132) = %v, %v", proto, err)
	}
	if _, err := ParseProtocol("bogus"); err == nil {
		t.Error("ParseProtocol(bogus) should fail")
	}
}

func TestNetwork(t *testing.T) {
	tests := []struct {
		typ   Type
		proto Protocol
		want  string
	}{
		{Stream, ProtoTCP, "tcp"},
		{Datagram, ProtoUDP, "udp"},
		{Datagram, ProtoDefault, "udp"},
		{Stream, ProtoDefault, "tcp"},
	}
	for _, tt := range tests {
		if got := Network(tt.typ, tt.proto); got != tt.want {
			t.Errorf("Network(%v, %v) = %q, want %q", tt.typ, tt.proto, got, tt.want)
		}
	}
}
