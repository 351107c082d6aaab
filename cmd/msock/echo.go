package main

import (
	"context"
	"io"
	"net"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/multisock"
	"github.com/wippyai/multisock/errors"
	"github.com/wippyai/multisock/resolve"
	"github.com/wippyai/multisock/socket"
)

func newEchoCommand(a *app) *cobra.Command {
	var (
		listen      []string
		backlog     int
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "echo",
		Short: "Echo every connection accepted on any of the listen addresses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(listen) > 0 {
				a.cfg.Group.Listen = listen
			}
			if cmd.Flags().Changed("backlog") {
				a.cfg.Group.Backlog = backlog
			}
			if interactive {
				// Log lines would tear the terminal UI.
				a.log = zap.NewNop()
				multisock.SetLogger(a.log)
				resolve.SetLogger(a.log)
			}
			return runEcho(cmd.Context(), a, interactive)
		},
	}
	cmd.Flags().StringArrayVarP(&listen, "listen", "l", nil, "listen address, repeatable (ip:port, [ip6]:port, unix:/path)")
	cmd.Flags().IntVar(&backlog, "backlog", 128, "listen backlog")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "show connections in a terminal UI")
	return cmd
}

// connEvent reports a change to one echoed connection.
type connEvent struct {
	err      error
	peer     string
	listener socket.FD
	id       int
	bytes    int64
	opened   bool
	closed   bool
}

// acceptStopTimeout bounds how long shutdown waits for a woken Accept.
const acceptStopTimeout = 2 * time.Second

type echoServer struct {
	g      *multisock.Group
	log    *zap.Logger
	events chan<- connEvent

	// wake lists the bound member addresses used to unblock Accept.
	wake   []socket.Address
	sotype socket.Type
}

func runEcho(ctx context.Context, a *app, interactive bool) error {
	addrs, err := a.cfg.ListenAddresses()
	if err != nil {
		return err
	}
	if len(addrs) == 0 {
		return errors.InvalidInput(errors.PhaseListen, "at least one --listen address is required")
	}

	g, err := a.newGroup()
	if err != nil {
		return err
	}
	defer g.Close()

	if g.Attr().SocketType == socket.Datagram {
		return errors.Unsupported(errors.PhaseAccept, "echo needs a stream or seqpacket group")
	}

	srv := &echoServer{g: g, log: a.log, sotype: g.Attr().SocketType}
	for _, addr := range addrs {
		fd, err := g.Listen(addr, a.cfg.Group.Backlog)
		if err != nil {
			return err
		}
		if local, err := socket.LocalAddress(fd); err == nil {
			addr = local
		}
		srv.wake = append(srv.wake, addr)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.serveMetrics(ctx)

	if !interactive {
		return srv.serve(ctx)
	}

	events := make(chan connEvent, 64)
	srv.events = events

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.serve(ctx) }()

	p := tea.NewProgram(newEchoModel(addrs, events), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	cancel()
	return <-serveErr
}

// report forwards e to the UI. Byte count updates are dropped when the UI is
// behind; open and close events wait for it.
func (s *echoServer) report(ctx context.Context, e connEvent) {
	if s.events == nil {
		return
	}
	if !e.opened && !e.closed {
		select {
		case s.events <- e:
		default:
		}
		return
	}
	select {
	case s.events <- e:
	case <-ctx.Done():
	}
}

// serve accepts until ctx is done or Accept fails. Only the accept goroutine
// touches the group while serve runs; on shutdown serve wakes it with a
// connection to one of the members and waits for it to exit.
func (s *echoServer) serve(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	accepted := make(chan *multisock.Accepted)
	acceptErr := make(chan error, 1)
	acceptDone := make(chan struct{})
	go func() {
		defer close(acceptDone)
		for ctx.Err() == nil {
			acc, err := s.g.Accept()
			if err != nil {
				if socket.IsTemporary(err) {
					continue
				}
				acceptErr <- err
				return
			}
			if acc == nil {
				continue
			}
			select {
			case accepted <- acc:
			case <-ctx.Done():
				socket.Unix().Close(acc.FD)
				return
			}
		}
	}()

	id := 0
	for {
		select {
		case <-ctx.Done():
			s.log.Info("shutting down")
			s.stopAccept(acceptDone)
			return eg.Wait()
		case err := <-acceptErr:
			s.log.Error("accept failed", zap.Error(err))
			if werr := eg.Wait(); werr != nil {
				return werr
			}
			return err
		case acc := <-accepted:
			id++
			connID := id
			eg.Go(func() error {
				s.handle(ctx, connID, acc)
				return nil
			})
		}
	}
}

func (s *echoServer) stopAccept(done <-chan struct{}) {
	s.wakeAccept()
	select {
	case <-done:
	case <-time.After(acceptStopTimeout):
		s.log.Warn("accept goroutine still blocked")
	}
}

// wakeAccept connects to the first reachable member so a blocked Accept
// returns.
func (s *echoServer) wakeAccept() {
	for _, addr := range s.wake {
		network, target := "tcp", addr.String()
		if addr.Family == socket.FamilyUnix {
			network, target = "unix", addr.Path
			if s.sotype == socket.SeqPacket {
				network = "unixpacket"
			}
		}
		c, err := net.DialTimeout(network, target, time.Second)
		if err != nil {
			s.log.Debug("wake accept", zap.Stringer("addr", addr), zap.Error(err))
			continue
		}
		c.Close()
		return
	}
}

func (s *echoServer) handle(ctx context.Context, id int, acc *multisock.Accepted) {
	log := s.log.With(zap.Int("conn", id), zap.Stringer("peer", acc.Peer))

	conn, err := multisock.FileConn(acc.FD)
	if err != nil {
		log.Warn("wrap connection", zap.Error(err))
		return
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	log.Info("connection opened", zap.Int("listener", int(acc.Listener)))
	s.report(ctx, connEvent{id: id, peer: acc.Peer.String(), listener: acc.Listener, opened: true})

	w := &countingWriter{w: conn, onWrite: func(total int64) {
		s.report(ctx, connEvent{id: id, bytes: total})
	}}
	n, err := io.Copy(w, conn)
	if ctx.Err() != nil {
		err = nil
	}

	log.Info("connection closed", zap.Int64("bytes", n), zap.Error(err))
	s.report(ctx, connEvent{id: id, bytes: n, closed: true, err: err})
}

type countingWriter struct {
	w       io.Writer
	onWrite func(total int64)
	total   atomic.Int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.onWrite(c.total.Add(int64(n)))
	return n, err
}
