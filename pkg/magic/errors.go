package magic

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/hsiuhsiu/magic-go/pkg/magic/internal/backend"
)

// Kind classifies an *Error. Callers branch on the kind, never on the
// message text.
type Kind int

const (
	// KindArgument reports a rejected argument. No native call was made
	// and the handle was not modified.
	KindArgument Kind = iota + 1
	// KindLibraryState reports an operation on a closed handle, or a
	// detection before any database was loaded.
	KindLibraryState
	// KindParameter reports an unknown parameter tag or a value the
	// native engine refused.
	KindParameter
	// KindFlags reports an unknown flag bit or one the linked engine does
	// not implement.
	KindFlags
	// KindLibrary reports a failed native operation. Code carries errno.
	KindLibrary
	// KindInitialization reports that a cookie could not be allocated.
	KindInitialization
)

func (k Kind) String() string {
	switch k {
	case KindArgument:
		return "argument"
	case KindLibraryState:
		return "library state"
	case KindParameter:
		return "parameter"
	case KindFlags:
		return "flags"
	case KindLibrary:
		return "library"
	case KindInitialization:
		return "initialization"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Reason refines a Kind where the taxonomy distinguishes sub-cases.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonClosed
	ReasonNotLoaded
	ReasonInvalidType
	ReasonInvalidValue
	ReasonNotImplemented
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonClosed:
		return "closed"
	case ReasonNotLoaded:
		return "not loaded"
	case ReasonInvalidType:
		return "invalid type"
	case ReasonInvalidValue:
		return "invalid value"
	case ReasonNotImplemented:
		return "not implemented"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// Error is the structured error returned by every operation in this
// package. It is never modified after construction.
type Error struct {
	Kind    Kind
	Reason  Reason
	Code    int // native errno, 0 when absent
	Message string

	err error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("magic: %s (errno %d)", e.Message, e.Code)
	}
	return "magic: " + e.Message
}

func (e *Error) Unwrap() error { return e.err }

// Is matches the kind sentinels below, and for ErrClosed / ErrNotLoaded the
// reason as well.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Message != "" || t.Code != 0 {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == ReasonNone || t.Reason == e.Reason
}

// Sentinels for errors.Is.
var (
	ErrArgument       = &Error{Kind: KindArgument}
	ErrLibraryState   = &Error{Kind: KindLibraryState}
	ErrClosed         = &Error{Kind: KindLibraryState, Reason: ReasonClosed}
	ErrNotLoaded      = &Error{Kind: KindLibraryState, Reason: ReasonNotLoaded}
	ErrParameter      = &Error{Kind: KindParameter}
	ErrFlags          = &Error{Kind: KindFlags}
	ErrLibrary        = &Error{Kind: KindLibrary}
	ErrInitialization = &Error{Kind: KindInitialization}

	// ErrNotBuilt is wrapped by initialization errors when no native
	// binding is available in this build.
	ErrNotBuilt = backend.ErrNotBuilt
	// ErrLibraryNotFound is wrapped by initialization errors when the
	// shared library could not be loaded at runtime.
	ErrLibraryNotFound = backend.ErrLibraryNotFound
)

// Messages shared with the native library's wrapper conventions.
const (
	msgUnknown         = "an unknown error has occurred"
	msgInitialize      = "failed to initialize Magic library"
	msgClosed          = "Magic library is not open"
	msgNotLoaded       = "Magic library not loaded"
	msgListEmpty       = "arguments list cannot be empty"
	msgParamType       = "unknown or invalid parameter specified"
	msgParamValue      = "invalid parameter value specified"
	msgFlagUnsupported = "flag is not implemented"
	msgFlagType        = "unknown or invalid flag specified"
)

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// ReasonOf returns the Reason of err, or ReasonNone when err is not an
// *Error.
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ReasonNone
}

func argumentError(format string, args ...any) *Error {
	return &Error{Kind: KindArgument, Message: fmt.Sprintf(format, args...)}
}

func argumentTypeError(got any, expected string) *Error {
	return argumentError("wrong argument type %T (expected %s)", got, expected)
}

func closedError() *Error {
	return &Error{Kind: KindLibraryState, Reason: ReasonClosed, Code: int(syscall.EFAULT), Message: msgClosed}
}

func notLoadedError() *Error {
	return &Error{Kind: KindLibraryState, Reason: ReasonNotLoaded, Code: int(syscall.EFAULT), Message: msgNotLoaded}
}

func parameterError(r Reason, format string, args ...any) *Error {
	msg := msgParamType
	if r == ReasonInvalidValue {
		msg = msgParamValue
	}
	if format != "" {
		msg += ": " + fmt.Sprintf(format, args...)
	}
	return &Error{Kind: KindParameter, Reason: r, Code: int(syscall.EINVAL), Message: msg}
}

func flagsError(r Reason, format string, args ...any) *Error {
	msg := msgFlagType
	code := syscall.EINVAL
	if r == ReasonNotImplemented {
		msg = msgFlagUnsupported
		code = syscall.ENOSYS
	}
	if format != "" {
		msg += ": " + fmt.Sprintf(format, args...)
	}
	return &Error{Kind: KindFlags, Reason: r, Code: int(code), Message: msg}
}

// nativeError builds a KindLibrary error from the diagnostic and errno the
// engine reported for cookie. It must be called inside the Gate, before the
// next native call overwrites the diagnostic.
func nativeError(e Engine, c Cookie) *Error {
	msg := e.Error(c)
	code := e.Errno(c)
	if msg == "" {
		msg = msgUnknown
	}
	return &Error{Kind: KindLibrary, Code: code, Message: msg}
}

// readError reports a failure reading a detection target on the Go side.
// Code carries the errno when err wraps one.
func readError(err error) *Error {
	out := &Error{Kind: KindLibrary, Message: "read: " + err.Error(), err: err}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		out.Code = int(errno)
	}
	return out
}

// remapError converts backend errors into the public taxonomy.
func remapError(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	out := &Error{Kind: KindInitialization, Message: msgInitialize, err: err}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		out.Code = int(errno)
	} else if errors.Is(err, backend.ErrOpen) {
		out.Code = int(syscall.ENOMEM)
	}
	return out
}
