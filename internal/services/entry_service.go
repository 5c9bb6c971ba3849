// Package services – EntryService
//
// This file implements EntryService, which owns the guestbook write path:
// text normalization and validation, captcha verification, persistence and
// idempotent replays. It is also the conversion boundary for failures:
// everything it returns is an *apperr.Error, so database and verifier errors
// never travel past this package in their native form.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/go-guestbook-backend/internal/apperr"
	"github.com/tbourn/go-guestbook-backend/internal/captcha"
	"github.com/tbourn/go-guestbook-backend/internal/domain"
	"github.com/tbourn/go-guestbook-backend/internal/repo"
	"github.com/tbourn/go-guestbook-backend/internal/utils"
)

// IdempotencyScope namespaces idempotency keys used by Post.
const IdempotencyScope = "entries"

// defaultAuthor is stored when a poster leaves the name blank.
const defaultAuthor = "Anonymous"

// EntryRepo defines the repository contract required by EntryService.
type EntryRepo interface {
	// CreateEntry inserts a new entry row.
	CreateEntry(ctx context.Context, db *gorm.DB, clientID, author, body string) (*domain.Entry, error)

	// GetEntry fetches a visible entry by ID.
	GetEntry(ctx context.Context, db *gorm.DB, id string) (*domain.Entry, error)

	// CountEntries returns the number of visible entries.
	CountEntries(ctx context.Context, db *gorm.DB) (int64, error)

	// ListEntriesPage returns a page of entries, newest first.
	ListEntriesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Entry, error)

	// EntriesStats returns count and latest update time for ETags.
	EntriesStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error)

	// GetIdempotency returns a live idempotency record or repo.ErrNotFound.
	GetIdempotency(ctx context.Context, db *gorm.DB, clientID, scope, key string, now time.Time) (*domain.Idempotency, error)

	// CreateIdempotency stores a completed request; repo.ErrDuplicate on conflict.
	CreateIdempotency(ctx context.Context, db *gorm.DB, clientID, scope, key, entryID string, status int, ttl time.Duration) (*domain.Idempotency, error)
}

// PostInput carries a guestbook submission.
type PostInput struct {
	Author       string
	Body         string
	CaptchaToken string
	RemoteIP     string
	// ClientID identifies the poster for idempotency scoping.
	ClientID string
	// IdempotencyKey is optional; when set, retries return the first result.
	IdempotencyKey string
}

// PostResult is the outcome of Post.
type PostResult struct {
	Entry *domain.Entry
	// Replayed is true when the entry was created by an earlier request with
	// the same idempotency key.
	Replayed bool
}

// EntryService provides guestbook operations.
type EntryService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the entry repository.
	Repo EntryRepo
	// Verifier checks captcha tokens on Post.
	Verifier captcha.Verifier

	// MaxBodyRunes caps the body length after normalization.
	MaxBodyRunes int
	// MaxAuthorRunes caps the author length after normalization.
	MaxAuthorRunes int
	// IdempotencyTTL is how long a stored key answers replays.
	IdempotencyTTL time.Duration
}

// NewEntryService constructs an EntryService with default limits.
func NewEntryService(db *gorm.DB, r EntryRepo, v captcha.Verifier) *EntryService {
	return &EntryService{
		DB:             db,
		Repo:           r,
		Verifier:       v,
		MaxBodyRunes:   2000,
		MaxAuthorRunes: 64,
		IdempotencyTTL: 24 * time.Hour,
	}
}

// Post validates and stores a new entry.
//
// Order of checks:
//  1. replay lookup (when an idempotency key is given) – no captcha needed
//  2. text validation                                   → apperr.Invalid
//  3. captcha verification                              → apperr.ChallengeRejected
//  4. insert entry + idempotency record in one tx       → apperr.Storage
func (s *EntryService) Post(ctx context.Context, in PostInput) (*PostResult, *apperr.Error) {
	lg := zerolog.Ctx(ctx)

	if in.IdempotencyKey != "" {
		res, aerr := s.replay(ctx, in.ClientID, in.IdempotencyKey)
		if aerr != nil || res != nil {
			return res, aerr
		}
	}

	author := normalizeAuthor(in.Author)
	body := normalizeBody(in.Body)
	if body == "" {
		return nil, apperr.Invalid(ErrEmptyBody.Error())
	}
	if s.MaxBodyRunes > 0 && utf8.RuneCountInString(body) > s.MaxBodyRunes {
		return nil, apperr.Invalid(ErrBodyTooLong.Error())
	}
	if author == "" {
		author = defaultAuthor
	}
	if s.MaxAuthorRunes > 0 && utf8.RuneCountInString(author) > s.MaxAuthorRunes {
		return nil, apperr.Invalid(ErrAuthorTooLong.Error())
	}

	if err := s.Verifier.Verify(ctx, in.CaptchaToken, in.RemoteIP); err != nil {
		var ce *captcha.Error
		if !errors.As(err, &ce) {
			ce = captcha.NewError()
		}
		lg.Debug().Str("reason", string(ce.Reason())).Err(ce.Unwrap()).Msg("captcha rejected")
		return nil, apperr.ChallengeRejected(ce)
	}

	var created *domain.Entry
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := s.Repo.CreateEntry(ctx, tx, in.ClientID, author, body)
		if err != nil {
			return err
		}
		if in.IdempotencyKey != "" {
			if _, err := s.Repo.CreateIdempotency(ctx, tx, in.ClientID, IdempotencyScope, in.IdempotencyKey, e.ID, 201, s.ttl()); err != nil {
				return err
			}
		}
		created = e
		return nil
	})
	if errors.Is(err, repo.ErrDuplicate) {
		// A concurrent request with the same key won; answer with its entry.
		res, aerr := s.replay(ctx, in.ClientID, in.IdempotencyKey)
		if aerr != nil {
			return nil, aerr
		}
		if res != nil {
			return res, nil
		}
		return nil, apperr.Storage(err)
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return &PostResult{Entry: created}, nil
}

// replay returns the stored entry for key, or (nil, nil) when there is none.
func (s *EntryService) replay(ctx context.Context, clientID, key string) (*PostResult, *apperr.Error) {
	rec, err := s.Repo.GetIdempotency(ctx, s.DB, clientID, IdempotencyScope, key, time.Now().UTC())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}
	e, err := s.Repo.GetEntry(ctx, s.DB, rec.EntryID)
	if errors.Is(err, repo.ErrNotFound) {
		// Entry removed by moderation since; treat the key as unused.
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return &PostResult{Entry: e, Replayed: true}, nil
}

// Get returns a single entry.
func (s *EntryService) Get(ctx context.Context, id string) (*domain.Entry, *apperr.Error) {
	e, err := s.Repo.GetEntry(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, apperr.NotFound(ErrEntryNotFound.Error())
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return e, nil
}

// ListPage returns a page of entries and the total count. Invalid page
// arguments fall back to defaults.
func (s *EntryService) ListPage(ctx context.Context, page, pageSize int) ([]domain.Entry, int64, *apperr.Error) {
	p := utils.NewPage(page, pageSize)

	total, err := s.Repo.CountEntries(ctx, s.DB)
	if err != nil {
		return nil, 0, apperr.Storage(err)
	}
	if total == 0 {
		return []domain.Entry{}, 0, nil
	}

	items, err := s.Repo.ListEntriesPage(ctx, s.DB, p.Offset(), p.Size)
	if err != nil {
		return nil, 0, apperr.Storage(err)
	}
	return items, total, nil
}

// Stats returns the entry count and the latest update time (nil when empty).
func (s *EntryService) Stats(ctx context.Context) (int64, *time.Time, *apperr.Error) {
	n, ts, err := s.Repo.EntriesStats(ctx, s.DB)
	if err != nil {
		return 0, nil, apperr.Storage(err)
	}
	return n, ts, nil
}

func (s *EntryService) ttl() time.Duration {
	if s.IdempotencyTTL > 0 {
		return s.IdempotencyTTL
	}
	return 24 * time.Hour
}

// normalizeAuthor applies NFC, trims, and collapses runs of whitespace.
func normalizeAuthor(s string) string {
	s = norm.NFC.String(s)
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// normalizeBody applies NFC, unifies line endings, strips trailing spaces on
// each line and limits blank-line runs to one.
func normalizeBody(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimRight(ln, " \t")
	}
	s = strings.Join(lines, "\n")
	s = blankLinesRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

var (
	// whitespaceRE collapses consecutive whitespace to a single space.
	whitespaceRE = regexp.MustCompile(`\s+`)
	// blankLinesRE matches three or more consecutive newlines.
	blankLinesRE = regexp.MustCompile(`\n{3,}`)
)
