// Errors.
//
// This file defines the verifier's error type. Every failure produced by the
// package is a *Error, whose text is written for end users: it names the
// rejection reason and never includes secrets, URLs or transport internals.

package captcha

import "strings"

// Reason identifies why a captcha check was rejected. Values mirror the
// hCaptcha siteverify error codes, plus a few local ones for transport
// failures.
type Reason string

// Reasons reported by the siteverify endpoint.
const (
	ReasonMissingInput     Reason = "missing-input-response"
	ReasonInvalidInput     Reason = "invalid-input-response"
	ReasonMissingSecret    Reason = "missing-input-secret"
	ReasonInvalidSecret    Reason = "invalid-input-secret"
	ReasonBadRequest       Reason = "bad-request"
	ReasonExpired          Reason = "expired-input-response"
	ReasonAlreadySeen      Reason = "already-seen-response"
	ReasonTimeoutDuplicate Reason = "timeout-or-duplicate"
	ReasonSitekeyMismatch  Reason = "sitekey-secret-mismatch"
	ReasonInvalidSitekey   Reason = "invalid-or-already-seen-response"
)

// Local reasons.
const (
	// ReasonUnreachable means the verification endpoint could not be reached
	// or did not answer before the deadline.
	ReasonUnreachable Reason = "unreachable"
	// ReasonBadResponse means the endpoint answered with something that is
	// not a siteverify document.
	ReasonBadResponse Reason = "bad-response"
	// ReasonRejected is used when the endpoint reports failure without codes.
	ReasonRejected Reason = "rejected"
)

var reasonText = map[Reason]string{
	ReasonMissingInput:     "missing captcha response",
	ReasonInvalidInput:     "invalid captcha response",
	ReasonMissingSecret:    "captcha is not configured",
	ReasonInvalidSecret:    "captcha is misconfigured",
	ReasonBadRequest:       "malformed verification request",
	ReasonExpired:          "captcha response expired",
	ReasonAlreadySeen:      "captcha response already used",
	ReasonTimeoutDuplicate: "timeout",
	ReasonSitekeyMismatch:  "captcha is misconfigured",
	ReasonInvalidSitekey:   "invalid or reused captcha response",
	ReasonUnreachable:      "verification service unavailable",
	ReasonBadResponse:      "unexpected verification response",
	ReasonRejected:         "rejected",
}

// Error is a rejected captcha verification. Its Error text is safe to show to
// the end user verbatim.
type Error struct {
	// Reasons holds every reason reported for the rejection, first one wins
	// for display.
	Reasons []Reason

	// err is the underlying transport/decoding failure, if any. It is kept for
	// errors.Is/As and logs but never becomes part of the displayed text.
	err error
}

// NewError returns an *Error for the given reasons. With no reasons the
// error reads as a plain rejection.
func NewError(reasons ...Reason) *Error {
	if len(reasons) == 0 {
		reasons = []Reason{ReasonRejected}
	}
	return &Error{Reasons: reasons}
}

// wrapError returns an *Error for reason that keeps err for unwrapping.
func wrapError(reason Reason, err error) *Error {
	return &Error{Reasons: []Reason{reason}, err: err}
}

// Reason returns the primary rejection reason.
func (e *Error) Reason() Reason {
	if e == nil || len(e.Reasons) == 0 {
		return ReasonRejected
	}
	return e.Reasons[0]
}

// Error implements error. The format is
// "captcha verification failed: <reason text>".
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("captcha verification failed: ")
	b.WriteString(describe(e.Reason()))
	return b.String()
}

// Unwrap exposes the transport failure behind ReasonUnreachable and
// ReasonBadResponse.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// describe maps a reason to its display text; unknown codes from the
// endpoint are shown as-is since they are plain identifiers.
func describe(r Reason) string {
	if s, ok := reasonText[r]; ok {
		return s
	}
	return string(r)
}
