// Package mcperr defines the core engine's error taxonomy: a small set of
// typed errors with stable Type tags, mapped to JSON-RPC error codes by
// the router when a handler returns one.
package mcperr

import (
	"fmt"

	"github.com/mcpcore/mcpcore-go/pkg/jsonrpc"
)

// Type is a stable tag identifying an error kind, safe to expose to
// clients and to assert on in tests.
type Type string

const (
	TypeParseError              Type = "parse_error"
	TypeInvalidRequest          Type = "invalid_request"
	TypeInvalidParams           Type = "invalid_params"
	TypeMethodNotFound          Type = "method_not_found"
	TypeNotInitialized          Type = "not_initialized"
	TypeAlreadyInitialized      Type = "already_initialized"
	TypeCapabilityNotSupported  Type = "capability_not_supported"
	TypeProtocolVersionUnsupported Type = "protocol_version_unsupported"
	TypeAuthenticationRequired  Type = "authentication_required"
	TypeUnauthorized            Type = "unauthorized"
	TypeRateLimited              Type = "rate_limited"
	TypeOperationTimeout         Type = "operation_timeout"
	TypeOperationCancelled       Type = "operation_cancelled"
	TypeResourceNotFound         Type = "resource_not_found"
	TypeResourceAccessDenied     Type = "resource_access_denied"
	TypeToolNotFound             Type = "tool_not_found"
	TypeInternalError            Type = "internal_error"
)

// code maps each Type to its JSON-RPC wire code.
var code = map[Type]int{
	TypeParseError:                 jsonrpc.CodeParseError,
	TypeInvalidRequest:             jsonrpc.CodeInvalidRequest,
	TypeInvalidParams:              jsonrpc.CodeInvalidParams,
	TypeMethodNotFound:             jsonrpc.CodeMethodNotFound,
	TypeNotInitialized:             jsonrpc.CodeInvalidRequest,
	TypeAlreadyInitialized:         jsonrpc.CodeInvalidRequest,
	TypeCapabilityNotSupported:     jsonrpc.CodeCapabilityNotSupported,
	TypeProtocolVersionUnsupported: jsonrpc.CodeInvalidRequest,
	TypeAuthenticationRequired:     jsonrpc.CodeUnauthorized,
	TypeUnauthorized:               jsonrpc.CodeUnauthorized,
	TypeRateLimited:                jsonrpc.CodeRateLimited,
	TypeOperationTimeout:           jsonrpc.CodeOperationTimeout,
	TypeOperationCancelled:         jsonrpc.CodeOperationCancelled,
	TypeResourceNotFound:           jsonrpc.CodeInvalidParams,
	TypeResourceAccessDenied:       jsonrpc.CodeUnauthorized,
	TypeToolNotFound:               jsonrpc.CodeInvalidParams,
	TypeInternalError:              jsonrpc.CodeInternalError,
}

// Error is the engine's structured error type. It satisfies the standard
// `error` interface and carries enough information for the router to build
// a wire-level error Response without re-deriving it.
type Error struct {
	Kind    Type
	Message string

	// Data is attached to the response's error.data field. For
	// RateLimited it conventionally holds {"retryAfter": <seconds>}; for
	// InvalidParams a {"errors": [...]} validation list; for InternalError
	// in debug mode, a truncated stack trace.
	Data any

	// Cause is the original error this wraps, if any, for %w unwrapping
	// and logging -- never exposed directly to clients.
	Cause error

	// RawCode overrides Code() when set. Used to carry a wire code that
	// didn't originate locally (e.g. an error echoed back from a remote
	// peer) without forcing it into one of the declared Types.
	RawCode int
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Code returns the JSON-RPC wire code for this error's Type, or RawCode
// when explicitly set.
func (e *Error) Code() int {
	if e.RawCode != 0 {
		return e.RawCode
	}
	if c, ok := code[e.Kind]; ok {
		return c
	}
	return jsonrpc.CodeInternalError
}

// FromWire builds an Error carrying a code received from a remote peer
// verbatim, without mapping it onto a local Type.
func FromWire(code int, message string) *Error {
	return &Error{Kind: TypeInternalError, Message: message, RawCode: code}
}

// New constructs an Error of the given kind with a message.
func New(kind Type, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf constructs an Error of the given kind with a formatted message.
func Newf(kind Type, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind, preserving cause for logs.
func Wrap(kind Type, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithData attaches structured data and returns e for chaining.
func (e *Error) WithData(data any) *Error {
	e.Data = data
	return e
}

// RateLimited builds the RateLimited error with a retryAfter seconds payload.
func RateLimited(retryAfterSeconds float64) *Error {
	return New(TypeRateLimited, "rate limit exceeded").WithData(map[string]any{
		"retryAfter": retryAfterSeconds,
	})
}

// ValidationIssue is one entry of an InvalidParams error's data.errors list.
type ValidationIssue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// InvalidParams builds an InvalidParams error carrying a structured issue list.
func InvalidParams(issues []ValidationIssue) *Error {
	return New(TypeInvalidParams, "invalid parameters").WithData(map[string]any{
		"errors": issues,
	})
}

// As reports whether err is (or wraps) an *Error, returning it when so --
// a thin convenience over the standard errors.As pattern used
// throughout the router and handlers.
func As(err error) (*Error, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}
