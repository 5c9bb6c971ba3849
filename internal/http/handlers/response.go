// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response utilities shared by all endpoints. Handlers
// return *apperr.Error instead of writing failures themselves; Handle adapts
// them to gin.HandlerFunc and renders whatever they return, so every error
// response has the same shape:
//
//	HTTP/1.1 403 Forbidden
//	Content-Type: application/json
//
//	{"code":410000,"err":"captcha verification failed: timeout"}
//
// Conventions:
//   - A handler writes its success response with ok() and returns nil.
//   - A handler that fails returns the *apperr.Error and writes nothing.
//   - 5xx responses are logged with the request-scoped logger (see
//     middleware.AbortWithError); the client only sees the display record.
//
// Example success response:
//
//	HTTP/1.1 201 Created
//	{ "id": "141add05-4415-4938-b5a1-17e0d3171aff", "author": "Ada", "body": "hi" }
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-guestbook-backend/internal/apperr"
	"github.com/tbourn/go-guestbook-backend/internal/http/middleware"
)

// HandlerFunc is an endpoint that reports failure by returning an error
// instead of writing it.
type HandlerFunc func(c *gin.Context) *apperr.Error

// Handle adapts fn to a gin.HandlerFunc. A non-nil result is rendered and
// the chain is aborted; a nil result leaves the response to fn.
func Handle(fn HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if e := fn(c); e != nil {
			fail(c, e)
		}
	}
}

// fail renders e unless the handler already started a response, in which
// case the error is only recorded.
func fail(c *gin.Context, e *apperr.Error) {
	if c.Writer.Written() {
		middleware.LoggerFrom(c).Error().
			Str("error", e.Error()).
			Msg("error after response was written")
		_ = c.Error(e)
		c.Abort()
		return
	}
	middleware.AbortWithError(c, e)
}

// NoRoute is the router fallback for unknown paths.
func NoRoute(c *gin.Context) { fail(c, apperr.NotFound(msgRouteMissing)) }

// NoMethod is the router fallback for known paths with an unsupported method.
func NoMethod(c *gin.Context) { fail(c, apperr.MethodNotAllowed()) }

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
