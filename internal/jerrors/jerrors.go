// Package jerrors is the fabric's error taxonomy (spec §7). A Kind is
// attached to every error that crosses a driver/session/client boundary so
// it can be mapped to a gRPC status without losing the underlying message.
package jerrors

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Kind int

const (
	Unknown Kind = iota
	InvalidArgument
	NotFound
	PermissionDenied
	Unavailable
	DeadlineExceeded
	Internal
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case NotFound:
		return "NotFound"
	case PermissionDenied:
		return "PermissionDenied"
	case Unavailable:
		return "Unavailable"
	case DeadlineExceeded:
		return "DeadlineExceeded"
	case Internal:
		return "Internal"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

func (k Kind) code() codes.Code {
	switch k {
	case InvalidArgument:
		return codes.InvalidArgument
	case NotFound:
		return codes.NotFound
	case PermissionDenied:
		return codes.PermissionDenied
	case Unavailable:
		return codes.Unavailable
	case DeadlineExceeded:
		return codes.DeadlineExceeded
	case Cancelled:
		return codes.Canceled
	case Internal:
		return codes.Internal
	default:
		return codes.Unknown
	}
}

// Error is a taxonomy-tagged error. The message is preserved verbatim, per
// spec §7's propagation policy for Internal errors.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// ToStatus maps the error to a gRPC status, the same adapter role the
// teacher's handler/grpc layer plays with status.Error at its boundary.
func (e *Error) ToStatus() error {
	return status.Error(e.Kind.code(), e.Error())
}

func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind carried by err, unwrapping task-group aggregates
// exactly like spec §7's "the first recognised kind wins": it walks the
// unwrap chain and returns the first *Error it finds. Failing that, a gRPC
// status error (what a client receives) maps back to the Kind whose code
// it carries; anything else defaults to Internal.
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	var je *Error
	if errors.As(err, &je) {
		return je.Kind
	}
	if s, ok := status.FromError(err); ok {
		for k := InvalidArgument; k <= Cancelled; k++ {
			if k.code() == s.Code() {
				return k
			}
		}
	}
	return Internal
}

// ToStatus is the package-level adapter used at transport boundaries that
// only have a plain error, not necessarily a *Error.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	var je *Error
	if errors.As(err, &je) {
		return je.ToStatus()
	}
	return status.Error(codes.Internal, err.Error())
}
