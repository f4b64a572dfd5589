// Package errs defines the error taxonomy shared across the session,
// dispatch, and map-actor layers, matching the kinds enumerated in the
// system design: invalid framing, packet manipulation, and the
// per-domain lookup/auth failures.
package errs

import "errors"

// Kind classifies an error for the dispatch layer's propagation policy:
// a handler error of a session-fatal kind (see Fatal) closes the
// connection; any other kind leaves the session open and is only
// logged, handlers sending their own alert to the client where one applies.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidPacket
	KindPacketManipulation
	KindInvalidSocket
	KindMultiLogin
	KindRegisterFail
	KindUserNotFound
	KindIncorrectPassword
	KindMapNotFound
	KindNpcNotFound
	KindPacketCacheNotFound
	KindInvalidPacketSize
	KindIO
	KindDecode
	KindAddress
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindInvalidPacket:
		return "invalid_packet"
	case KindPacketManipulation:
		return "packet_manipulation"
	case KindInvalidSocket:
		return "invalid_socket"
	case KindMultiLogin:
		return "multi_login"
	case KindRegisterFail:
		return "register_fail"
	case KindUserNotFound:
		return "user_not_found"
	case KindIncorrectPassword:
		return "incorrect_password"
	case KindMapNotFound:
		return "map_not_found"
	case KindNpcNotFound:
		return "npc_not_found"
	case KindPacketCacheNotFound:
		return "packet_cache_not_found"
	case KindInvalidPacketSize:
		return "invalid_packet_size"
	case KindIO:
		return "io"
	case KindDecode:
		return "decode"
	case KindAddress:
		return "address"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Error wraps Kind with context, preserving the original cause for
// errors.Is / errors.As.
type Error struct {
	Kind  Kind
	Msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Kind.String() + ": " + e.Msg + ": " + e.cause.Error()
	}
	return e.Kind.String() + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.cause }

func New(k Kind, msg string) error {
	return &Error{Kind: k, Msg: msg}
}

func Wrap(k Kind, msg string, cause error) error {
	return &Error{Kind: k, Msg: msg, cause: cause}
}

// Is reports whether err carries the given Kind.
func Is(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}

// Fatal reports whether a Kind should terminate the owning session.
func Fatal(k Kind) bool {
	switch k {
	case KindPacketManipulation, KindInvalidPacketSize, KindIO, KindInvalidSocket:
		return true
	default:
		return false
	}
}
