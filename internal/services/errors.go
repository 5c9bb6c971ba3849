// Package services defines the business logic of the guestbook.
// This file centralizes the service-level validation errors. Their text is
// written for end users; EntryService turns them into apperr.Invalid /
// apperr.NotFound values before they leave the package.
package services

import "errors"

// Entry-related errors.
var (
	// ErrEmptyBody is returned when a post has no text after normalization.
	ErrEmptyBody = errors.New("body is required")

	// ErrBodyTooLong is returned when a post exceeds the configured rune limit.
	ErrBodyTooLong = errors.New("body is too long")

	// ErrAuthorTooLong is returned when the author name exceeds its rune limit.
	ErrAuthorTooLong = errors.New("author is too long")

	// ErrEntryNotFound indicates that the requested entry does not exist or
	// was removed by moderation.
	ErrEntryNotFound = errors.New("entry not found")
)
