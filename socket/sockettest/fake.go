// Package sockettest provides an in-memory socket.Primitive for tests.
//
// The fake hands out increasing descriptor numbers, records every call, and
// lets a test script failures per address or descriptor and queue incoming
// connections on listeners. WaitReadable never blocks: with nothing queued it
// reports a spurious wake, or ErrWouldHang when spurious wakes are disabled.
package sockettest

import (
	"errors"
	"os"
	"sort"
	"sync"
	"syscall"

	"github.com/wippyai/multisock/socket"
)

// ErrWouldHang is returned by WaitReadable when no descriptor can ever
// become readable and spurious wakes are disabled.
var ErrWouldHang = errors.New("sockettest: wait would block forever")

// Created describes one Socket call.
type Created struct {
	FD       socket.FD
	Family   socket.Family
	Type     socket.Type
	Protocol socket.Protocol
}

type fdState struct {
	created   Created
	bound     socket.Address
	listening bool
	backlog   int
	peer      socket.Address
	pending   []socket.Address
}

// Fake is a scriptable socket.Primitive. The zero value is not usable; call New.
type Fake struct {
	mu sync.Mutex

	next   socket.FD
	open   map[socket.FD]*fdState
	closed []socket.FD

	created  []Created
	attempts []socket.Address
	waits    [][]socket.FD

	socketErr    error
	bindErr      map[socket.Address]error
	listenErr    map[socket.Address]error
	connectErr   map[socket.Address]error
	closeErr     map[socket.FD]error
	waitErr      error
	spurious     bool
	doubleCloses int
}

// New returns a Fake whose first descriptor is 100.
func New() *Fake {
	return &Fake{
		next:       100,
		open:       make(map[socket.FD]*fdState),
		bindErr:    make(map[socket.Address]error),
		listenErr:  make(map[socket.Address]error),
		connectErr: make(map[socket.Address]error),
		closeErr:   make(map[socket.FD]error),
		spurious:   true,
	}
}

func syscallErr(call string, errno syscall.Errno) error {
	return os.NewSyscallError(call, errno)
}

// FailSocket makes every following Socket call return err (nil clears it).
func (f *Fake) FailSocket(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.socketErr = err
}

// FailBind makes Bind to addr return err.
func (f *Fake) FailBind(addr socket.Address, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bindErr[addr] = err
}

// FailListen makes Listen on a descriptor bound to addr return err.
func (f *Fake) FailListen(addr socket.Address, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listenErr[addr] = err
}

// FailConnect makes Connect to addr return err.
func (f *Fake) FailConnect(addr socket.Address, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectErr[addr] = err
}

// FailClose makes Close of fd return err. The descriptor still counts as
// closed, as with close(2) on Linux.
func (f *Fake) FailClose(fd socket.FD, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeErr[fd] = err
}

// FailWait makes WaitReadable return err (nil clears it).
func (f *Fake) FailWait(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waitErr = err
}

// SetSpurious controls whether an idle WaitReadable reports a spurious wake
// (true, the default) or ErrWouldHang.
func (f *Fake) SetSpurious(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spurious = on
}

// Enqueue queues an incoming connection from peer on listener fd.
func (f *Fake) Enqueue(fd socket.FD, peer socket.Address) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := f.open[fd]; ok {
		st.pending = append(st.pending, peer)
	}
}

func (f *Fake) Socket(family socket.Family, sotype socket.Type, proto socket.Protocol) (socket.FD, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.socketErr != nil {
		return socket.InvalidFD, f.socketErr
	}
	if family == socket.FamilyUnspec {
		return socket.InvalidFD, syscallErr("socket", syscall.EAFNOSUPPORT)
	}

	fd := f.next
	f.next++
	c := Created{FD: fd, Family: family, Type: sotype, Protocol: proto}
	f.created = append(f.created, c)
	f.open[fd] = &fdState{created: c}
	return fd, nil
}

func (f *Fake) state(fd socket.FD) (*fdState, error) {
	st, ok := f.open[fd]
	if !ok {
		return nil, syscall.EBADF
	}
	return st, nil
}

func (f *Fake) Bind(fd socket.FD, addr socket.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, err := f.state(fd)
	if err != nil {
		return os.NewSyscallError("bind", err)
	}
	if err := f.bindErr[addr]; err != nil {
		return err
	}
	if addr.Family != st.created.Family {
		return syscallErr("bind", syscall.EAFNOSUPPORT)
	}
	st.bound = addr
	return nil
}

func (f *Fake) Listen(fd socket.FD, backlog int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, err := f.state(fd)
	if err != nil {
		return os.NewSyscallError("listen", err)
	}
	if err := f.listenErr[st.bound]; err != nil {
		return err
	}
	if st.created.Type == socket.Datagram {
		return syscallErr("listen", syscall.EOPNOTSUPP)
	}
	st.listening = true
	st.backlog = backlog
	return nil
}

func (f *Fake) Accept(fd socket.FD) (socket.FD, socket.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, err := f.state(fd)
	if err != nil {
		return socket.InvalidFD, socket.Address{}, os.NewSyscallError("accept", err)
	}
	if !st.listening {
		return socket.InvalidFD, socket.Address{}, syscallErr("accept", syscall.EINVAL)
	}
	if len(st.pending) == 0 {
		return socket.InvalidFD, socket.Address{}, syscallErr("accept", syscall.EAGAIN)
	}

	peer := st.pending[0]
	st.pending = st.pending[1:]

	nfd := f.next
	f.next++
	f.open[nfd] = &fdState{created: Created{FD: nfd, Family: st.created.Family, Type: st.created.Type, Protocol: st.created.Protocol}, peer: peer}
	return nfd, peer, nil
}

func (f *Fake) Connect(fd socket.FD, addr socket.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, err := f.state(fd)
	if err != nil {
		return os.NewSyscallError("connect", err)
	}
	f.attempts = append(f.attempts, addr)
	if err := f.connectErr[addr]; err != nil {
		return err
	}
	st.peer = addr
	return nil
}

func (f *Fake) Close(fd socket.FD) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.open[fd]; !ok {
		f.doubleCloses++
		return syscallErr("close", syscall.EBADF)
	}
	delete(f.open, fd)
	f.closed = append(f.closed, fd)
	return f.closeErr[fd]
}

func (f *Fake) WaitReadable(fds []socket.FD) ([]socket.FD, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.waits = append(f.waits, append([]socket.FD(nil), fds...))

	if f.waitErr != nil {
		return nil, f.waitErr
	}
	if len(fds) == 0 {
		return nil, syscallErr("poll", syscall.EINVAL)
	}

	var ready []socket.FD
	for _, fd := range fds {
		st, ok := f.open[fd]
		if !ok {
			return nil, syscallErr("poll", syscall.EBADF)
		}
		if len(st.pending) > 0 {
			ready = append(ready, fd)
		}
	}
	if len(ready) == 0 && !f.spurious {
		return nil, ErrWouldHang
	}
	return ready, nil
}

// Created returns every Socket call in order.
func (f *Fake) Created() []Created {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Created(nil), f.created...)
}

// Closed returns closed descriptors in close order.
func (f *Fake) Closed() []socket.FD {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]socket.FD(nil), f.closed...)
}

// Open returns the descriptors still open, sorted.
func (f *Fake) Open() []socket.FD {
	f.mu.Lock()
	defer f.mu.Unlock()

	fds := make([]socket.FD, 0, len(f.open))
	for fd := range f.open {
		fds = append(fds, fd)
	}
	sort.Slice(fds, func(i, j int) bool { return fds[i] < fds[j] })
	return fds
}

// IsOpen reports whether fd is open.
func (f *Fake) IsOpen(fd socket.FD) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.open[fd]
	return ok
}

// Peer returns the address fd is connected to or was accepted from.
func (f *Fake) Peer(fd socket.FD) (socket.Address, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.open[fd]
	if !ok {
		return socket.Address{}, false
	}
	return st.peer, st.peer.Family != socket.FamilyUnspec
}

// Listening reports whether fd is open and listening.
func (f *Fake) Listening(fd socket.FD) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.open[fd]
	return ok && st.listening
}

// ConnectAttempts returns every address passed to Connect, in order.
func (f *Fake) ConnectAttempts() []socket.Address {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]socket.Address(nil), f.attempts...)
}

// Waits returns the descriptor sets passed to WaitReadable.
func (f *Fake) Waits() [][]socket.FD {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]socket.FD(nil), f.waits...)
}

// DoubleCloses counts Close calls on descriptors that were not open.
func (f *Fake) DoubleCloses() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.doubleCloses
}
