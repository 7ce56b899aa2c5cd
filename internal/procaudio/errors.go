package procaudio

import "errors"

// ErrorKind is the typed failure surface every backend and the façade map
// their errors onto.
type ErrorKind uint8

const (
	KindInvalidTarget ErrorKind = iota
	KindTargetNotFound
	KindUnsupportedOS
	KindPermissionDenied
	KindBackendUnavailable
	KindBackendTimeout
	KindBackendLost
	KindFormatUnsupported
	KindSessionStopped
	KindSessionClosed
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidTarget:
		return "InvalidTarget"
	case KindTargetNotFound:
		return "TargetNotFound"
	case KindUnsupportedOS:
		return "UnsupportedOS"
	case KindPermissionDenied:
		return "PermissionDenied"
	case KindBackendUnavailable:
		return "BackendUnavailable"
	case KindBackendTimeout:
		return "BackendTimeout"
	case KindBackendLost:
		return "BackendLost"
	case KindFormatUnsupported:
		return "FormatUnsupported"
	case KindSessionStopped:
		return "SessionStopped"
	case KindSessionClosed:
		return "SessionClosed"
	case KindInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Error wraps a Kind and the operation that produced it around an optional
// cause, so callers can errors.As to recover Kind while errors.Unwrap keeps
// the original cause reachable.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.String()
	}
	return e.Op + ": " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, SessionStopped) read naturally: it matches any
// *Error sharing the same Kind, not just an identical pointer.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// NewError constructs a typed error for the given operation.
func NewError(kind ErrorKind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// Sentinel kind markers for errors.Is comparisons, following the teacher's
// plain sentinel-error idiom in audio/types.go but carrying a Kind.
var (
	ErrInvalidTarget      = &Error{Kind: KindInvalidTarget, Op: "sentinel"}
	ErrTargetNotFound     = &Error{Kind: KindTargetNotFound, Op: "sentinel"}
	ErrUnsupportedOS      = &Error{Kind: KindUnsupportedOS, Op: "sentinel"}
	ErrPermissionDenied   = &Error{Kind: KindPermissionDenied, Op: "sentinel"}
	ErrBackendUnavailable = &Error{Kind: KindBackendUnavailable, Op: "sentinel"}
	ErrBackendTimeout     = &Error{Kind: KindBackendTimeout, Op: "sentinel"}
	ErrBackendLost        = &Error{Kind: KindBackendLost, Op: "sentinel"}
	ErrFormatUnsupported  = &Error{Kind: KindFormatUnsupported, Op: "sentinel"}
	ErrSessionStopped     = &Error{Kind: KindSessionStopped, Op: "sentinel"}
	ErrSessionClosed      = &Error{Kind: KindSessionClosed, Op: "sentinel"}
	ErrInternal           = &Error{Kind: KindInternal, Op: "sentinel"}
)
