package main

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/multisock"
	"github.com/wippyai/multisock/socket"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestResolveCommand(t *testing.T) {
	out, err := execute(t, "resolve", "127.0.0.1", "8080")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !strings.Contains(out, "127.0.0.1:8080") || !strings.Contains(out, "stream/tcp") {
		t.Errorf("output = %q", out)
	}
}

func TestResolveCommand_TypeFlagDerivesProtocol(t *testing.T) {
	out, err := execute(t, "--type", "dgram", "resolve", "::1", "53")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !strings.Contains(out, "[::1]:53") || !strings.Contains(out, "datagram/udp") {
		t.Errorf("output = %q", out)
	}
}

func TestRootCommand_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "msock.toml")
	if err := os.WriteFile(path, []byte("[group]\nsocket_type = \"seqpacket\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "--config", path, "resolve", "127.0.0.1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !strings.Contains(out, "seqpacket/default") {
		t.Errorf("output = %q", out)
	}

	if _, err := execute(t, "--log-level", "loud", "resolve", "127.0.0.1"); err == nil {
		t.Error("expected invalid log level to fail")
	}
}

func TestGetCommand(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	requests := make(chan string, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		line, _ := bufio.NewReader(c).ReadString('\n')
		requests <- line
		io.WriteString(c, "HTTP/1.0 200 OK\r\n\r\nbody")
	}()

	port := strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)
	out, err := execute(t, "get", "127.0.0.1", port, "--path", "/status")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := <-requests; got != "GET /status HTTP/1.0\r\n" {
		t.Errorf("request line = %q", got)
	}
	if !strings.HasSuffix(out, "body") {
		t.Errorf("output = %q", out)
	}
}

func TestEchoServer(t *testing.T) {
	g, err := multisock.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()

	fd, err := g.Listen(socket.AddressFrom(netip.MustParseAddrPort("127.0.0.1:0")), 8)
	if err != nil {
		t.Fatal(err)
	}
	addr, err := socket.LocalAddress(fd)
	if err != nil {
		t.Fatal(err)
	}

	events := make(chan connEvent, 16)
	srv := &echoServer{g: g, log: zap.NewNop(), events: events, wake: []socket.Address{addr}, sotype: socket.Stream}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.serve(ctx) }()

	c, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatal(err)
	}
	c.SetDeadline(time.Now().Add(5 * time.Second))

	if _, err := io.WriteString(c, "hello"); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 5)
	if _, err := io.ReadFull(c, buf); err != nil {
		t.Fatalf("read echo: %v", err)
	}
	if string(buf) != "hello" {
		t.Errorf("echo = %q", buf)
	}

	if e := <-events; !e.opened || e.listener != fd {
		t.Errorf("first event = %+v", e)
	}

	c.Close()
	cancel()

	// serve wakes its own Accept; once it returns the group is idle.
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
	if err := g.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if g.Len() != 0 {
		t.Errorf("members after Close: %v", g.Members())
	}
}
