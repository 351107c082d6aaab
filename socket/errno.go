package socket

import (
	stderrors "errors"
	"net"
	"os"
	"syscall"

	"github.com/wippyai/multisock/errors"
)

// Classify converts an OS or net package error to an errors.Code.
func Classify(err error) errors.Code {
	if err == nil {
		return ""
	}

	var errno syscall.Errno
	if stderrors.As(err, &errno) {
		return classifyErrno(errno)
	}

	var dnsErr *net.DNSError
	if stderrors.As(err, &dnsErr) {
		if dnsErr.IsTemporary {
			return errors.CodeTemporaryResolverFailure
		}
		if dnsErr.IsNotFound {
			return errors.CodeNameUnresolvable
		}
		return errors.CodePermanentResolverFailure
	}

	var addrErr *net.AddrError
	if stderrors.As(err, &addrErr) {
		return errors.CodeInvalidArgument
	}

	if os.IsTimeout(err) {
		return errors.CodeTimeout
	}

	if os.IsPermission(err) {
		return errors.CodeAccessDenied
	}

	return errors.CodeUnknown
}

func classifyErrno(errno syscall.Errno) errors.Code {
	switch errno {
	case syscall.EACCES, syscall.EPERM:
		return errors.CodeAccessDenied
	case syscall.EADDRINUSE:
		return errors.CodeAddressInUse
	case syscall.EADDRNOTAVAIL:
		return errors.CodeAddressNotBindable
	case syscall.ECONNREFUSED:
		return errors.CodeConnectionRefused
	case syscall.ECONNRESET:
		return errors.CodeConnectionReset
	case syscall.ECONNABORTED:
		return errors.CodeConnectionAborted
	case syscall.EHOSTUNREACH, syscall.ENETUNREACH:
		return errors.CodeRemoteUnreachable
	case syscall.ETIMEDOUT:
		return errors.CodeTimeout
	case syscall.EINVAL:
		return errors.CodeInvalidArgument
	case syscall.ENOMEM, syscall.ENOBUFS:
		return errors.CodeOutOfMemory
	case syscall.EAGAIN, syscall.EINPROGRESS:
		return errors.CodeWouldBlock
	case syscall.EINTR:
		return errors.CodeInterrupted
	case syscall.EBADF:
		return errors.CodeBadDescriptor
	case syscall.EAFNOSUPPORT, syscall.EPROTONOSUPPORT, syscall.EPROTOTYPE, syscall.EOPNOTSUPP:
		return errors.CodeNotSupported
	case syscall.EALREADY, syscall.ENOTSOCK, syscall.ENOTCONN, syscall.EISCONN:
		return errors.CodeInvalidState
	case syscall.EMFILE, syscall.ENFILE:
		return errors.CodeNewSocketLimit
	default:
		return errors.CodeUnknown
	}
}

// IsTemporary reports whether err is worth retrying on the same descriptor,
// as accept loops do after a spurious or interrupted wake.
func IsTemporary(err error) bool {
	switch Classify(err) {
	case errors.CodeWouldBlock, errors.CodeInterrupted, errors.CodeConnectionAborted:
		return true
	}
	return false
}
