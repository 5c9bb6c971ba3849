// Package apperr is the single place where failures become HTTP responses.
//
// Every failure that may reach a client is an *Error: a closed set of kinds,
// each with a stable numeric code, a user-facing message and an HTTP status.
// Errors are built only through the constructors in this file, which wrap the
// collaborator failure (database, captcha verifier, …) without discarding it.
//
// Codes are part of the public API. Clients branch on them, so a code is
// never reassigned; new kinds take new, unused codes. 500000 is reserved for
// the render fallback and for a zero-value Error.
//
// Example response body:
//
//	HTTP/1.1 403 Forbidden
//	Content-Type: application/json
//
//	{"code":410000,"err":"captcha verification failed: timeout"}
package apperr

import (
	"errors"
	"net/http"

	"github.com/tbourn/go-guestbook-backend/internal/captcha"
)

// Kind identifies an error category.
type Kind uint8

const (
	kindUnknown Kind = iota
	KindStorage
	KindChallengeRejected
	KindInvalid
	KindNotFound
	KindMethodNotAllowed
	KindRateLimited
	KindInternal
)

// Stable error codes.
const (
	CodeStorage           uint64 = 510000
	CodeChallengeRejected uint64 = 410000
	CodeInvalid           uint64 = 420000
	CodeNotFound          uint64 = 430000
	CodeMethodNotAllowed  uint64 = 431000
	CodeRateLimited       uint64 = 440000
	CodeInternal          uint64 = 520000

	// CodeFallback is used when a response cannot be rendered normally.
	CodeFallback uint64 = 500000
)

const (
	msgStorage          = "database error"
	msgInternal         = "internal server error"
	msgMethodNotAllowed = "method not allowed"
	msgRateLimited      = "rate limit exceeded"
)

// String returns the kind name used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindStorage:
		return "storage"
	case KindChallengeRejected:
		return "challenge_rejected"
	case KindInvalid:
		return "invalid"
	case KindNotFound:
		return "not_found"
	case KindMethodNotAllowed:
		return "method_not_allowed"
	case KindRateLimited:
		return "rate_limited"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is a classified failure ready to be rendered.
//
// The zero value is valid and renders as a generic internal error.
// Error values are immutable and safe for concurrent use.
type Error struct {
	kind  Kind
	msg   string // caller-supplied display text (Invalid, NotFound)
	cause error
}

// Storage wraps a persistence failure. The cause is kept for logs and
// errors.Is/As; it is never shown to clients.
func Storage(err error) *Error {
	return &Error{kind: KindStorage, cause: err}
}

// ChallengeRejected wraps a failed captcha verification. The cause's text is
// shown to the client verbatim.
func ChallengeRejected(err *captcha.Error) *Error {
	if err == nil {
		err = captcha.NewError()
	}
	return &Error{kind: KindChallengeRejected, cause: err}
}

// Invalid reports a request the service refuses to process. msg is shown to
// the client and must not contain internal detail.
func Invalid(msg string) *Error {
	return &Error{kind: KindInvalid, msg: msg}
}

// NotFound reports a missing resource; msg is shown to the client.
func NotFound(msg string) *Error {
	return &Error{kind: KindNotFound, msg: msg}
}

// MethodNotAllowed reports an unsupported method on a known route.
func MethodNotAllowed() *Error {
	return &Error{kind: KindMethodNotAllowed}
}

// RateLimited reports that the caller exhausted its request budget.
func RateLimited() *Error {
	return &Error{kind: KindRateLimited}
}

// Internal wraps an unexpected failure (panic, programming error). The cause
// is hidden from clients.
func Internal(err error) *Error {
	return &Error{kind: KindInternal, cause: err}
}

// From classifies err at a package boundary:
//   - nil stays nil
//   - an *Error (anywhere in the chain) is returned unchanged
//   - a *captcha.Error becomes ChallengeRejected
//   - anything else becomes Storage
//
// Use it where the only collaborators are the database and the verifier;
// prefer the specific constructors elsewhere.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	var ce *captcha.Error
	if errors.As(err, &ce) {
		return ChallengeRejected(ce)
	}
	return Storage(err)
}

// Kind returns the error category.
func (e *Error) Kind() Kind {
	if e == nil {
		return kindUnknown
	}
	return e.kind
}

// Code returns the stable numeric code for the error's kind.
func (e *Error) Code() uint64 {
	switch e.Kind() {
	case KindStorage:
		return CodeStorage
	case KindChallengeRejected:
		return CodeChallengeRejected
	case KindInvalid:
		return CodeInvalid
	case KindNotFound:
		return CodeNotFound
	case KindMethodNotAllowed:
		return CodeMethodNotAllowed
	case KindRateLimited:
		return CodeRateLimited
	case KindInternal:
		return CodeInternal
	default:
		return CodeFallback
	}
}

// UserMessage returns the message sent to the client. Storage and Internal
// failures always yield a fixed string regardless of cause.
func (e *Error) UserMessage() string {
	switch e.Kind() {
	case KindStorage:
		return msgStorage
	case KindChallengeRejected:
		return e.cause.Error()
	case KindInvalid, KindNotFound:
		return e.msg
	case KindMethodNotAllowed:
		return msgMethodNotAllowed
	case KindRateLimited:
		return msgRateLimited
	default:
		return msgInternal
	}
}

// StatusCode returns the HTTP status for the error's kind.
func (e *Error) StatusCode() int {
	switch e.Kind() {
	case KindStorage:
		return http.StatusInternalServerError
	case KindChallengeRejected:
		return http.StatusForbidden
	case KindInvalid:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error returns diagnostic text for logs, including the cause. It is not the
// client-facing message; see UserMessage.
func (e *Error) Error() string {
	k := e.Kind().String()
	switch {
	case e == nil:
		return k
	case e.cause != nil:
		return k + ": " + e.cause.Error()
	case e.msg != "":
		return k + ": " + e.msg
	default:
		return k
	}
}

// Unwrap returns the wrapped collaborator failure.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}
