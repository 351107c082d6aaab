package multisock

import (
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/multisock/errors"
	"github.com/wippyai/multisock/resource"
	"github.com/wippyai/multisock/socket"
)

// Role distinguishes long-lived members from connect attempts.
type Role uint8

const (
	// RoleMember is a bound descriptor created by Listen.
	RoleMember Role = iota
	// RoleTransient is a descriptor registered for the duration of one connect attempt.
	RoleTransient
)

func (r Role) String() string {
	if r == RoleTransient {
		return "transient"
	}
	return "member"
}

// Source is one registered descriptor.
type Source struct {
	Addr   socket.Address
	FD     socket.FD
	Family socket.Family
	Role   Role

	// bound is set once Bind created the member's filesystem entry, if any.
	bound bool
}

// socketFile returns the filesystem path a bound Unix member owns.
// Abstract names start with '@' and have no file.
func (s *Source) socketFile() (string, bool) {
	if !s.bound || s.Addr.Family != socket.FamilyUnix {
		return "", false
	}
	if s.Addr.Path == "" || strings.HasPrefix(s.Addr.Path, "@") {
		return "", false
	}
	return s.Addr.Path, true
}

// registry tracks the descriptors a group owns. A registered Source always
// wraps an open descriptor.
type registry struct {
	table  *resource.Table[*Source]
	prim   socket.Primitive
	log    *zap.Logger
	notify func(Event)
}

func newRegistry(prim socket.Primitive, log *zap.Logger, notify func(Event)) *registry {
	return &registry{
		table:  resource.NewTable[*Source](),
		prim:   prim,
		log:    log,
		notify: notify,
	}
}

// add registers an open descriptor. On failure the descriptor is not closed.
func (r *registry) add(phase errors.Phase, src *Source) (resource.Handle, error) {
	h, err := r.table.Insert(src)
	if err != nil {
		return resource.InvalidHandle, errors.Allocation(phase, err)
	}

	r.log.Debug("source added",
		zap.Uint32("handle", uint32(h)),
		zap.Int("fd", int(src.FD)),
		zap.Stringer("role", src.Role),
		zap.Stringer("addr", src.Addr))
	r.notify(Event{Type: EventSourceAdded, Handle: h, Source: *src})
	return h, nil
}

// remove detaches a source without closing it. Ownership passes to the caller.
func (r *registry) remove(h resource.Handle) (*Source, bool) {
	src, ok := r.table.Take(h)
	if !ok {
		return nil, false
	}

	r.log.Debug("source removed",
		zap.Uint32("handle", uint32(h)),
		zap.Int("fd", int(src.FD)))
	r.notify(Event{Type: EventSourceRemoved, Handle: h, Source: *src})
	return src, true
}

// removeAndClose detaches a source and closes its descriptor. The source is
// gone even when close fails; the failure is logged and returned.
func (r *registry) removeAndClose(h resource.Handle) error {
	src, ok := r.table.Take(h)
	if !ok {
		return nil
	}

	var cerr error
	if err := r.prim.Close(src.FD); err != nil {
		cerr = errors.OS(errors.PhaseClose, "close", src.Addr.String(), socket.Classify(err), err)
		r.log.Warn("close source failed",
			zap.Uint32("handle", uint32(h)),
			zap.Int("fd", int(src.FD)),
			zap.Error(err))
	} else {
		r.log.Debug("source closed",
			zap.Uint32("handle", uint32(h)),
			zap.Int("fd", int(src.FD)))
	}
	if path, ok := src.socketFile(); ok {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			r.log.Warn("remove socket file failed",
				zap.String("path", path),
				zap.Error(err))
		}
	}
	r.notify(Event{Type: EventSourceClosed, Handle: h, Source: *src, Err: cerr})
	return cerr
}

// each visits every source once in slot order until fn returns false.
func (r *registry) each(fn func(resource.Handle, *Source) bool) {
	r.table.Each(fn)
}

func (r *registry) members() []socket.FD {
	fds := make([]socket.FD, 0, r.table.Len())
	r.each(func(_ resource.Handle, src *Source) bool {
		fds = append(fds, src.FD)
		return true
	})
	return fds
}

func (r *registry) len() int {
	return r.table.Len()
}
