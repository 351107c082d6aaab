package errors

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseListen,
				Kind:   KindOS,
				Code:   CodeAddressInUse,
				Addr:   "127.0.0.1:80",
				Detail: "bind",
				Cause:  syscall.EADDRINUSE,
			},
			contains: []string{"[listen]", "os", "address_in_use", "127.0.0.1:80", "bind", "caused by"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseAccept,
				Kind:  KindEmptyGroup,
			},
			contains: []string{"[accept]", "empty_group"},
		},
		{
			name: "sentinel without phase",
			err: &Error{
				Kind: KindClosed,
			},
			contains: []string{"closed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	err := OS(PhaseConnect, "connect", "[::1]:1", CodeConnectionRefused, syscall.ECONNREFUSED)

	if !errors.Is(err, syscall.ECONNREFUSED) {
		t.Error("errors.Is did not reach the errno cause")
	}

	var errno syscall.Errno
	if !errors.As(err, &errno) || errno != syscall.ECONNREFUSED {
		t.Errorf("errors.As errno = %v", errno)
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseConnect,
		Kind:  KindOS,
		Addr:  "foo",
	}

	if !err.Is(&Error{Phase: PhaseConnect, Kind: KindOS}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseListen, Kind: KindOS}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseConnect, Kind: KindClosed}) {
		t.Error("Is should not match different kind")
	}
	if !err.Is(&Error{Kind: KindOS}) {
		t.Error("phase-less target should match on kind")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	if !errors.Is(wrapped, &Error{Kind: KindOS}) {
		t.Error("errors.Is should match through wrapping")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseListen, KindOS).
		Addr("0.0.0.0:80").
		Code(CodeAccessDenied).
		Cause(cause).
		Detail("bind %s", "0.0.0.0:80").
		Build()

	if err.Phase != PhaseListen {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseListen)
	}
	if err.Kind != KindOS {
		t.Errorf("Kind = %v, want %v", err.Kind, KindOS)
	}
	if err.Code != CodeAccessDenied {
		t.Errorf("Code = %v, want %v", err.Code, CodeAccessDenied)
	}
	if err.Addr != "0.0.0.0:80" {
		t.Errorf("Addr = %v", err.Addr)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "bind 0.0.0.0:80" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("Allocation", func(t *testing.T) {
		err := Allocation(PhaseListen, errors.New("table closed"))
		if err.Kind != KindAllocation {
			t.Errorf("Kind = %v, want %v", err.Kind, KindAllocation)
		}
	})

	t.Run("Resolution", func(t *testing.T) {
		err := Resolution("example.com", "http", nil)
		if err.Kind != KindResolution || err.Phase != PhaseResolve {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
		if err.Addr != "example.com/http" {
			t.Errorf("Addr = %q", err.Addr)
		}
	})

	t.Run("Exhausted", func(t *testing.T) {
		err := Exhausted("example.com", "80", 3, errors.New("refused"))
		if err.Kind != KindExhausted {
			t.Errorf("Kind = %v, want %v", err.Kind, KindExhausted)
		}
		if !strings.Contains(err.Detail, "3") {
			t.Errorf("Detail = %q, should contain attempt count", err.Detail)
		}
	})

	t.Run("Closed", func(t *testing.T) {
		err := Closed(PhaseAccept)
		if !errors.Is(err, &Error{Kind: KindClosed}) || err.Phase != PhaseAccept {
			t.Errorf("got %v", err)
		}
	})

	t.Run("EmptyGroup", func(t *testing.T) {
		err := EmptyGroup(PhaseAccept)
		if err.Kind != KindEmptyGroup {
			t.Errorf("Kind = %v, want %v", err.Kind, KindEmptyGroup)
		}
	})

	t.Run("InvalidInput", func(t *testing.T) {
		err := InvalidInput(PhaseListen, "negative backlog")
		if err.Kind != KindInvalidInput {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidInput)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		err := Unsupported(PhaseCreate, "address family 99")
		if err.Kind != KindUnsupported {
			t.Errorf("Kind = %v, want %v", err.Kind, KindUnsupported)
		}
	})
}

func TestCodeOf(t *testing.T) {
	err := OS(PhaseConnect, "connect", "", CodeConnectionRefused, syscall.ECONNREFUSED)
	if got := CodeOf(fmt.Errorf("wrap: %w", err)); got != CodeConnectionRefused {
		t.Errorf("CodeOf = %v", got)
	}
	if got := CodeOf(errors.New("plain")); got != CodeUnknown {
		t.Errorf("CodeOf(plain) = %v", got)
	}
	if got := CodeOf(nil); got != CodeUnknown {
		t.Errorf("CodeOf(nil) = %v", got)
	}
}
