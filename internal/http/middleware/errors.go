// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds AbortWithError, the one function that writes an
// *apperr.Error to the wire. Handlers, the recovery middleware, the rate
// limiter and the router fallbacks all go through it, so every error body
// has the same shape and every failure is counted and traced the same way.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-guestbook-backend/internal/apperr"
	"github.com/tbourn/go-guestbook-backend/internal/observability"
)

// errorKey is the Gin context key holding the last rendered *apperr.Error.
const errorKey = "apperr"

// AbortWithError renders e, aborts the handler chain, and records the failure:
//   - 5xx errors are logged at error level with the full diagnostic text
//   - the active span gets the error code, and 5xx mark it as failed
//   - api_errors_total{code,status} is incremented with the code and status
//     the client actually received
//
// A nil e renders as a generic internal error.
func AbortWithError(c *gin.Context, e *apperr.Error) {
	lg := LoggerFrom(c)
	resp := e.Render(lg)

	if resp.Status >= http.StatusInternalServerError {
		lg.Error().
			Int("status", resp.Status).
			Uint64("code", resp.Code).
			Str("kind", e.Kind().String()).
			Str("error", e.Error()).
			Msg("api error")
	}
	if c.Request != nil {
		observability.RecordAPIError(c.Request.Context(), e, resp.Status)
	}

	ObserveError(resp.Code, resp.Status)
	c.Set(errorKey, e)
	c.Abort()
	c.Render(resp.Status, resp)
}

// ErrorFrom returns the error rendered for this request by AbortWithError,
// or nil.
func ErrorFrom(c *gin.Context) *apperr.Error {
	if v, ok := c.Get(errorKey); ok {
		if e, ok := v.(*apperr.Error); ok {
			return e
		}
	}
	return nil
}
