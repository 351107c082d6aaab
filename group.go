package multisock

import (
	"context"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/multisock/errors"
	"github.com/wippyai/multisock/resolve"
	"github.com/wippyai/multisock/resource"
	"github.com/wippyai/multisock/socket"
)

var (
	// ErrClosed matches errors from operations on a closed group.
	ErrClosed = &errors.Error{Kind: errors.KindClosed, Detail: "group closed"}
	// ErrNoSources matches errors from Accept on a group with no members.
	ErrNoSources = &errors.Error{Kind: errors.KindEmptyGroup, Detail: "no sources registered"}
)

// Option configures a Group.
type Option func(*Group)

// WithPrimitive sets the socket primitive. Defaults to socket.Unix.
func WithPrimitive(p socket.Primitive) Option {
	return func(g *Group) { g.prim = p }
}

// WithResolver sets the resolver used by ConnectByName. Defaults to resolve.System.
func WithResolver(r resolve.Resolver) Option {
	return func(g *Group) { g.resolver = r }
}

// WithLogger sets the group's logger. Defaults to Logger().
func WithLogger(l *zap.Logger) Option {
	return func(g *Group) { g.log = l }
}

// WithObserver adds an observer for lifecycle events.
func WithObserver(o Observer) Option {
	return func(g *Group) { g.observers = append(g.observers, o) }
}

// Accepted is a connection returned by Accept.
type Accepted struct {
	Peer     socket.Address
	FD       socket.FD
	Listener socket.FD
}

// Group is a set of source sockets used as one endpoint.
// Not safe for concurrent use.
type Group struct {
	prim      socket.Primitive
	resolver  resolve.Resolver
	log       *zap.Logger
	reg       *registry
	observers []Observer
	attr      Attr
	closed    atomic.Bool
}

// New creates an empty group. attr is copied; nil means DefaultAttr.
func New(attr *Attr, opts ...Option) (*Group, error) {
	a := DefaultAttr()
	if attr != nil {
		a = *attr
	}
	if err := a.validate(); err != nil {
		return nil, err
	}

	g := &Group{attr: a}
	for _, opt := range opts {
		opt(g)
	}
	if g.prim == nil {
		g.prim = defaultPrimitive()
		if g.prim == nil {
			return nil, errors.Unsupported(errors.PhaseCreate, "no socket primitive for this platform")
		}
	}
	if g.resolver == nil {
		g.resolver = resolve.NewSystem()
	}
	if g.log == nil {
		g.log = Logger()
	}
	g.reg = newRegistry(g.prim, g.log, g.emit)
	return g, nil
}

func (g *Group) emit(e Event) {
	for _, o := range g.observers {
		o.OnGroupEvent(e)
	}
}

// Attr returns the group's attributes.
func (g *Group) Attr() Attr {
	return g.attr
}

// Members returns the registered descriptors in registry order.
func (g *Group) Members() []socket.FD {
	return g.reg.members()
}

// Len returns the number of registered descriptors.
func (g *Group) Len() int {
	return g.reg.len()
}

// Listen creates a member socket bound to addr. Stream and seqpacket members
// are also marked listening with the given backlog; datagram members are only
// bound. On failure nothing stays registered and the group remains usable.
func (g *Group) Listen(addr socket.Address, backlog int) (socket.FD, error) {
	if g.closed.Load() {
		return socket.InvalidFD, errors.Closed(errors.PhaseListen)
	}
	if !addr.IsValid() {
		return socket.InvalidFD, errors.New(errors.PhaseListen, errors.KindInvalidInput).
			Addr(addr.String()).
			Detail("invalid address").
			Build()
	}
	if backlog < 0 {
		return socket.InvalidFD, errors.InvalidInput(errors.PhaseListen, "negative backlog")
	}

	fd, err := g.prim.Socket(addr.Family, g.attr.SocketType, g.attr.Protocol)
	if err != nil {
		return socket.InvalidFD, errors.OS(errors.PhaseListen, "socket", addr.String(), socket.Classify(err), err)
	}

	src := &Source{FD: fd, Family: addr.Family, Role: RoleMember, Addr: addr}
	h, err := g.reg.add(errors.PhaseListen, src)
	if err != nil {
		g.prim.Close(fd)
		return socket.InvalidFD, err
	}

	if err := g.prim.Bind(fd, addr); err != nil {
		g.reg.removeAndClose(h)
		return socket.InvalidFD, errors.OS(errors.PhaseListen, "bind", addr.String(), socket.Classify(err), err)
	}
	src.bound = true
	if g.attr.listens() {
		if err := g.prim.Listen(fd, backlog); err != nil {
			g.reg.removeAndClose(h)
			return socket.InvalidFD, errors.OS(errors.PhaseListen, "listen", addr.String(), socket.Classify(err), err)
		}
	}

	g.log.Info("listening", zap.Int("fd", int(fd)), zap.Stringer("addr", addr))
	return fd, nil
}

// Accept waits until a member is readable and accepts one connection from
// the first ready member in registry order. It returns (nil, nil) when the
// wait woke without any member being ready; the caller should retry.
func (g *Group) Accept() (*Accepted, error) {
	if g.closed.Load() {
		return nil, errors.Closed(errors.PhaseAccept)
	}
	if g.reg.len() == 0 {
		return nil, errors.EmptyGroup(errors.PhaseAccept)
	}

	ready, err := g.prim.WaitReadable(g.reg.members())
	if err != nil {
		return nil, errors.OS(errors.PhaseAccept, "poll", "", socket.Classify(err), err)
	}
	if len(ready) == 0 {
		return nil, nil
	}

	readySet := make(map[socket.FD]struct{}, len(ready))
	for _, fd := range ready {
		readySet[fd] = struct{}{}
	}

	var (
		chosen *Source
		handle resource.Handle
	)
	g.reg.each(func(h resource.Handle, src *Source) bool {
		if _, ok := readySet[src.FD]; ok {
			chosen, handle = src, h
			return false
		}
		return true
	})
	if chosen == nil {
		return nil, nil
	}

	fd, peer, err := g.prim.Accept(chosen.FD)
	if err != nil {
		return nil, errors.OS(errors.PhaseAccept, "accept", chosen.Addr.String(), socket.Classify(err), err)
	}

	g.log.Debug("accepted",
		zap.Int("listener", int(chosen.FD)),
		zap.Int("fd", int(fd)),
		zap.Stringer("peer", peer))
	g.emit(Event{Type: EventAccepted, Handle: handle, Source: *chosen, Peer: peer})
	return &Accepted{FD: fd, Peer: peer, Listener: chosen.FD}, nil
}

// Connect connects a new descriptor to addr and hands it to the caller. The
// registered members are the same before and after the call.
func (g *Group) Connect(addr socket.Address) (socket.FD, error) {
	if g.closed.Load() {
		return socket.InvalidFD, errors.Closed(errors.PhaseConnect)
	}
	if !addr.IsValid() {
		return socket.InvalidFD, errors.New(errors.PhaseConnect, errors.KindInvalidInput).
			Addr(addr.String()).
			Detail("invalid address").
			Build()
	}

	fd, err := g.prim.Socket(addr.Family, g.attr.SocketType, g.attr.Protocol)
	if err != nil {
		return socket.InvalidFD, errors.OS(errors.PhaseConnect, "socket", addr.String(), socket.Classify(err), err)
	}

	src := &Source{FD: fd, Family: addr.Family, Role: RoleTransient, Addr: addr}
	h, err := g.reg.add(errors.PhaseConnect, src)
	if err != nil {
		g.prim.Close(fd)
		return socket.InvalidFD, err
	}

	g.emit(Event{Type: EventConnectAttempt, Handle: h, Source: *src, Peer: addr})
	if err := g.prim.Connect(fd, addr); err != nil {
		cerr := errors.OS(errors.PhaseConnect, "connect", addr.String(), socket.Classify(err), err)
		g.log.Debug("connect failed", zap.Stringer("addr", addr), zap.Error(err))
		g.emit(Event{Type: EventConnectFailed, Handle: h, Source: *src, Peer: addr, Err: cerr})
		g.reg.removeAndClose(h)
		return socket.InvalidFD, cerr
	}

	g.reg.remove(h)
	g.log.Debug("connected", zap.Int("fd", int(fd)), zap.Stringer("addr", addr))
	return fd, nil
}

// ConnectByName resolves node and service and connects to the first
// candidate that accepts, trying them in resolver order. ctx bounds
// resolution only.
func (g *Group) ConnectByName(ctx context.Context, node, service string) (socket.FD, error) {
	if g.closed.Load() {
		return socket.InvalidFD, errors.Closed(errors.PhaseConnect)
	}

	cands, err := g.resolver.Resolve(ctx, node, service, resolve.Hints{
		SocketType: g.attr.SocketType,
		Protocol:   g.attr.Protocol,
	})
	if err != nil {
		return socket.InvalidFD, errors.Resolution(node, service, err)
	}
	if len(cands) == 0 {
		return socket.InvalidFD, errors.Resolution(node, service, nil)
	}

	var errs error
	for _, c := range cands {
		fd, err := g.Connect(c.Address)
		if err == nil {
			return fd, nil
		}
		errs = multierr.Append(errs, err)
	}

	g.log.Debug("all candidates failed",
		zap.String("node", node),
		zap.String("service", service),
		zap.Int("candidates", len(cands)))
	return socket.InvalidFD, errors.Exhausted(node, service, len(cands), errs)
}

// Close closes every registered descriptor and marks the group closed. Close
// failures are collected and returned together; every descriptor is detached
// regardless. Closing a closed group returns nil.
func (g *Group) Close() error {
	if g.closed.Swap(true) {
		return nil
	}
	g.reg.table.Close()

	var errs error
	for _, h := range g.reg.table.Handles() {
		errs = multierr.Append(errs, g.reg.removeAndClose(h))
	}

	g.log.Debug("group closed", zap.Error(errs))
	return errs
}
