package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which operation produced the error
type Phase string

const (
	PhaseCreate  Phase = "create"  // group or descriptor creation
	PhaseListen  Phase = "listen"  // bind + listen of a member
	PhaseAccept  Phase = "accept"  // readiness wait + accept
	PhaseConnect Phase = "connect" // single-address connect
	PhaseResolve Phase = "resolve" // name resolution
	PhaseClose   Phase = "close"   // teardown
	PhaseConfig  Phase = "config"  // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindAllocation   Kind = "allocation"
	KindOS           Kind = "os"
	KindResolution   Kind = "resolution"
	KindExhausted    Kind = "exhausted"
	KindEmptyGroup   Kind = "empty_group"
	KindClosed       Kind = "closed"
	KindInvalidInput Kind = "invalid_input"
	KindUnsupported  Kind = "unsupported"
)

// Code classifies an OS-level failure independently of the platform errno.
type Code string

const (
	CodeUnknown                  Code = "unknown"
	CodeAccessDenied             Code = "access_denied"
	CodeNotSupported             Code = "not_supported"
	CodeInvalidArgument          Code = "invalid_argument"
	CodeOutOfMemory              Code = "out_of_memory"
	CodeTimeout                  Code = "timeout"
	CodeWouldBlock               Code = "would_block"
	CodeInterrupted              Code = "interrupted"
	CodeBadDescriptor            Code = "bad_descriptor"
	CodeInvalidState             Code = "invalid_state"
	CodeNewSocketLimit           Code = "new_socket_limit"
	CodeAddressNotBindable       Code = "address_not_bindable"
	CodeAddressInUse             Code = "address_in_use"
	CodeRemoteUnreachable        Code = "remote_unreachable"
	CodeConnectionRefused        Code = "connection_refused"
	CodeConnectionReset          Code = "connection_reset"
	CodeConnectionAborted        Code = "connection_aborted"
	CodeNameUnresolvable         Code = "name_unresolvable"
	CodeTemporaryResolverFailure Code = "temporary_resolver_failure"
	CodePermanentResolverFailure Code = "permanent_resolver_failure"
)

// Error is the structured error type used throughout multisock
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Code   Code
	Addr   string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.Code != "" {
		b.WriteString(" (")
		b.WriteString(string(e.Code))
		b.WriteByte(')')
	}

	if e.Addr != "" {
		b.WriteString(" at ")
		b.WriteString(e.Addr)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target without a Phase matches on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Addr sets the socket address involved
func (b *Builder) Addr(addr string) *Builder {
	b.err.Addr = addr
	return b
}

// Code sets the OS failure classification
func (b *Builder) Code(c Code) *Builder {
	b.err.Code = c
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// OS creates an error for a failed socket system call
func OS(phase Phase, call, addr string, code Code, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOS,
		Code:   code,
		Addr:   addr,
		Detail: call,
		Cause:  cause,
	}
}

// Allocation creates an error for a source that could not be stored
func Allocation(phase Phase, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: "register source",
		Cause:  cause,
	}
}

// Resolution creates a name resolution error
func Resolution(node, service string, cause error) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindResolution,
		Addr:   nodeService(node, service),
		Detail: "no usable candidates",
		Cause:  cause,
	}
}

// Exhausted creates an error for a connect-by-name that tried every candidate
func Exhausted(node, service string, attempts int, cause error) *Error {
	return &Error{
		Phase:  PhaseConnect,
		Kind:   KindExhausted,
		Addr:   nodeService(node, service),
		Detail: fmt.Sprintf("all %d candidate(s) failed", attempts),
		Cause:  cause,
	}
}

// Closed creates an error for an operation on a closed group
func Closed(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: "group closed",
	}
}

// EmptyGroup creates an error for an accept on a group without sources
func EmptyGroup(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindEmptyGroup,
		Detail: "no sources registered",
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Config creates a configuration loading error
func Config(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindInvalidInput,
		Detail: detail,
		Cause:  cause,
	}
}

// CodeOf returns the Code of the first *Error in err's chain, or CodeUnknown.
func CodeOf(err error) Code {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Code != "" {
			return e.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return CodeUnknown
}

func nodeService(node, service string) string {
	if service == "" {
		return node
	}
	return node + "/" + service
}
