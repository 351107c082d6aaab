package socket

import (
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/wippyai/multisock/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errors.Code
	}{
		{"nil", nil, ""},
		{"refused", syscall.ECONNREFUSED, errors.CodeConnectionRefused},
		{"syscall error", os.NewSyscallError("bind", syscall.EADDRINUSE), errors.CodeAddressInUse},
		{"wrapped", fmt.Errorf("outer: %w", os.NewSyscallError("connect", syscall.ENETUNREACH)), errors.CodeRemoteUnreachable},
		{"fd limit", syscall.EMFILE, errors.CodeNewSocketLimit},
		{"interrupted", syscall.EINTR, errors.CodeInterrupted},
		{"bad fd", syscall.EBADF, errors.CodeBadDescriptor},
		{"dns not found", &net.DNSError{Err: "no such host", IsNotFound: true}, errors.CodeNameUnresolvable},
		{"dns temporary", &net.DNSError{Err: "timeout", IsTemporary: true}, errors.CodeTemporaryResolverFailure},
		{"dns other", &net.DNSError{Err: "server misbehaving"}, errors.CodePermanentResolverFailure},
		{"addr error", &net.AddrError{Err: "missing port", Addr: "x"}, errors.CodeInvalidArgument},
		{"unknown", fmt.Errorf("something else"), errors.CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTemporary(t *testing.T) {
	if !IsTemporary(syscall.EAGAIN) {
		t.Error("EAGAIN should be temporary")
	}
	if !IsTemporary(os.NewSyscallError("accept", syscall.ECONNABORTED)) {
		t.Error("ECONNABORTED should be temporary")
	}
	if IsTemporary(syscall.EBADF) {
		t.Error("EBADF should not be temporary")
	}
}
