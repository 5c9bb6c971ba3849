// Package handlers – request validation messages.
//
// These strings are returned to clients inside apperr.Invalid and
// apperr.NotFound bodies (code 420000 / 430000). Clients branch on the code,
// not on the text, so wording may change between releases.
package handlers

const (
	msgInvalidJSON  = "invalid JSON body"
	msgBadEntryID   = "entry id must be a UUID"
	msgRouteMissing = "route not found"
)
