package apperr

import (
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ContentType is set on every error response.
const ContentType = "application/json"

// fallbackBody is written when the display record cannot be encoded.
const fallbackBody = `{"code":500000,"err":"internal server error"}`

// marshalDisplay encodes the wire record. Tests swap it to force the
// fallback path.
var marshalDisplay = func(d Display) ([]byte, error) { return json.Marshal(d) }

// Display is the wire form of an Error.
type Display struct {
	// Stable, machine-readable code.
	Code uint64 `json:"code" example:"410000"`
	// Message safe to show to users.
	Err string `json:"err" example:"captcha verification failed: timeout"`
}

// Display returns the wire record for e.
func (e *Error) Display() Display {
	return Display{Code: e.Code(), Err: e.UserMessage()}
}

// Response is a rendered error: status, headers and body.
//
// It implements gin's render.Render, so handlers can write it with
// c.Render(resp.Status, resp).
type Response struct {
	Status int
	// Code is the code carried by Body: e.Code(), or CodeFallback when the
	// fallback body was substituted.
	Code   uint64
	Header http.Header
	Body   []byte
}

// Render builds the HTTP response for e. It never fails: if the body cannot
// be encoded it logs the encoding error to lg (the global logger when nil)
// and substitutes a fixed internal-error body. The status always follows
// StatusCode, even when the fallback body is used.
func (e *Error) Render(lg *zerolog.Logger) Response {
	h := make(http.Header, 1)
	h.Set("Content-Type", ContentType)

	d := e.Display()
	code := d.Code
	body, err := marshalDisplay(d)
	if err != nil {
		logEncodeFailure(lg, e, err)
		body = []byte(fallbackBody)
		code = CodeFallback
	}
	return Response{Status: e.StatusCode(), Code: code, Header: h, Body: body}
}

// logEncodeFailure emits one diagnostic. A broken sink must not affect the
// response, so panics raised while logging are dropped.
func logEncodeFailure(lg *zerolog.Logger, e *Error, err error) {
	defer func() { _ = recover() }()
	if lg == nil {
		lg = &log.Logger
	}
	lg.Error().
		Err(err).
		Str("kind", e.Kind().String()).
		Uint64("code", e.Code()).
		Msg("error occurred when generating error response")
}

// Render writes headers and body. Write failures on the connection are not
// reported; the client is gone at that point.
func (r Response) Render(w http.ResponseWriter) error {
	r.writeHeaders(w)
	_, _ = w.Write(r.Body)
	return nil
}

// WriteContentType sets the JSON content type.
func (r Response) WriteContentType(w http.ResponseWriter) {
	w.Header().Set("Content-Type", ContentType)
}

// ServeTo writes the complete response to a plain http.ResponseWriter.
func (r Response) ServeTo(w http.ResponseWriter) {
	r.writeHeaders(w)
	w.WriteHeader(r.Status)
	_, _ = w.Write(r.Body)
}

func (r Response) writeHeaders(w http.ResponseWriter) {
	dst := w.Header()
	for k, vv := range r.Header {
		dst.Del(k)
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
	r.WriteContentType(w)
}
