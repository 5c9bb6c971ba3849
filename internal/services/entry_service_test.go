package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-guestbook-backend/internal/apperr"
	"github.com/tbourn/go-guestbook-backend/internal/captcha"
	"github.com/tbourn/go-guestbook-backend/internal/domain"
	"github.com/tbourn/go-guestbook-backend/internal/repo"
)

// ----- Test helpers -----

// dbRepo forwards to the repo package; individual methods can be
// overridden to inject failures.
type dbRepo struct {
	createErr error
	countErr  error
	getErr    error
}

func (r dbRepo) CreateEntry(ctx context.Context, db *gorm.DB, clientID, author, body string) (*domain.Entry, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	return repo.CreateEntry(ctx, db, clientID, author, body)
}

func (r dbRepo) GetEntry(ctx context.Context, db *gorm.DB, id string) (*domain.Entry, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return repo.GetEntry(ctx, db, id)
}

func (r dbRepo) CountEntries(ctx context.Context, db *gorm.DB) (int64, error) {
	if r.countErr != nil {
		return 0, r.countErr
	}
	return repo.CountEntries(ctx, db)
}

func (dbRepo) ListEntriesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Entry, error) {
	return repo.ListEntriesPage(ctx, db, offset, limit)
}

func (dbRepo) EntriesStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error) {
	return repo.EntriesStats(ctx, db)
}

func (dbRepo) GetIdempotency(ctx context.Context, db *gorm.DB, clientID, scope, key string, now time.Time) (*domain.Idempotency, error) {
	return repo.GetIdempotency(ctx, db, clientID, scope, key, now)
}

func (dbRepo) CreateIdempotency(ctx context.Context, db *gorm.DB, clientID, scope, key, entryID string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	return repo.CreateIdempotency(ctx, db, clientID, scope, key, entryID, status, ttl)
}

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(&domain.Entry{}, &domain.Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// acceptAll counts verifier calls and accepts every token.
func acceptAll(calls *int32) captcha.Verifier {
	return captcha.Func(func(context.Context, string, string) error {
		atomic.AddInt32(calls, 1)
		return nil
	})
}

func newSvc(t *testing.T, r EntryRepo, v captcha.Verifier) *EntryService {
	t.Helper()
	return NewEntryService(newServiceDB(t), r, v)
}

// ----- Post -----

func TestPost_Success_NormalizesAndStores(t *testing.T) {
	var calls int32
	s := newSvc(t, dbRepo{}, acceptAll(&calls))

	res, aerr := s.Post(context.Background(), PostInput{
		Author:       "  Ada \t Lovelace ",
		Body:         "hello  \r\nworld\n\n\n\nbye",
		CaptchaToken: "tok",
		ClientID:     "ip:1",
	})
	if aerr != nil {
		t.Fatalf("Post: %v", aerr)
	}
	if res.Replayed {
		t.Fatalf("fresh post must not be a replay")
	}
	if res.Entry.Author != "Ada Lovelace" {
		t.Fatalf("author=%q", res.Entry.Author)
	}
	if res.Entry.Body != "hello\nworld\n\nbye" {
		t.Fatalf("body=%q", res.Entry.Body)
	}
	if calls != 1 {
		t.Fatalf("verifier calls=%d", calls)
	}
	if _, err := repo.GetEntry(context.Background(), s.DB, res.Entry.ID); err != nil {
		t.Fatalf("entry not persisted: %v", err)
	}
}

func TestPost_BlankAuthorBecomesAnonymous(t *testing.T) {
	var calls int32
	s := newSvc(t, dbRepo{}, acceptAll(&calls))
	res, aerr := s.Post(context.Background(), PostInput{Author: "   ", Body: "hi"})
	if aerr != nil || res.Entry.Author != "Anonymous" {
		t.Fatalf("got %+v, %v", res, aerr)
	}
}

func TestPost_Validation_NoCaptchaCall(t *testing.T) {
	var calls int32
	s := newSvc(t, dbRepo{}, acceptAll(&calls))
	s.MaxBodyRunes = 5
	s.MaxAuthorRunes = 3

	cases := []struct {
		name string
		in   PostInput
		msg  string
	}{
		{"empty body", PostInput{Body: " \n\t "}, "body is required"},
		{"body too long", PostInput{Body: "ééééééé"}, ErrBodyTooLong.Error()},
		{"author too long", PostInput{Author: "abcd", Body: "ok"}, ErrAuthorTooLong.Error()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, aerr := s.Post(context.Background(), tc.in)
			if aerr == nil || aerr.Kind() != apperr.KindInvalid {
				t.Fatalf("expected invalid, got %v", aerr)
			}
			if aerr.Code() != 420000 || aerr.UserMessage() != tc.msg {
				t.Fatalf("code=%d msg=%q", aerr.Code(), aerr.UserMessage())
			}
		})
	}
	if calls != 0 {
		t.Fatalf("captcha must not be consulted for invalid input, calls=%d", calls)
	}
}

func TestPost_CaptchaRejected(t *testing.T) {
	v := captcha.Func(func(context.Context, string, string) error {
		return captcha.NewError(captcha.ReasonTimeoutDuplicate)
	})
	s := newSvc(t, dbRepo{}, v)

	_, aerr := s.Post(context.Background(), PostInput{Body: "hi", CaptchaToken: "old"})
	if aerr == nil || aerr.Kind() != apperr.KindChallengeRejected {
		t.Fatalf("expected challenge rejection, got %v", aerr)
	}
	if aerr.StatusCode() != 403 || aerr.Code() != 410000 {
		t.Fatalf("status=%d code=%d", aerr.StatusCode(), aerr.Code())
	}
	if aerr.UserMessage() != "captcha verification failed: timeout" {
		t.Fatalf("msg=%q", aerr.UserMessage())
	}
	if n, _ := repo.CountEntries(context.Background(), s.DB); n != 0 {
		t.Fatalf("rejected post must not be stored, count=%d", n)
	}
}

func TestPost_CaptchaForeignError_StillChallenge(t *testing.T) {
	v := captcha.Func(func(context.Context, string, string) error { return errors.New("boom") })
	s := newSvc(t, dbRepo{}, v)

	_, aerr := s.Post(context.Background(), PostInput{Body: "hi"})
	if aerr == nil || aerr.Kind() != apperr.KindChallengeRejected {
		t.Fatalf("expected challenge rejection, got %v", aerr)
	}
	if aerr.UserMessage() != "captcha verification failed: rejected" {
		t.Fatalf("msg=%q", aerr.UserMessage())
	}
}

func TestPost_StorageFailure_IsHidden(t *testing.T) {
	var calls int32
	cause := errors.New("database is locked")
	s := newSvc(t, dbRepo{createErr: cause}, acceptAll(&calls))

	_, aerr := s.Post(context.Background(), PostInput{Body: "hi"})
	if aerr == nil || aerr.Kind() != apperr.KindStorage {
		t.Fatalf("expected storage, got %v", aerr)
	}
	if aerr.UserMessage() != "database error" || aerr.Code() != 510000 {
		t.Fatalf("unexpected display %+v", aerr.Display())
	}
	if !errors.Is(aerr, cause) {
		t.Fatalf("cause should be reachable for diagnostics")
	}
}

func TestPost_IdempotentReplay(t *testing.T) {
	var calls int32
	s := newSvc(t, dbRepo{}, acceptAll(&calls))
	in := PostInput{Body: "once", ClientID: "ip:1", IdempotencyKey: "k-1", CaptchaToken: "t"}

	first, aerr := s.Post(context.Background(), in)
	if aerr != nil {
		t.Fatalf("first: %v", aerr)
	}
	in.CaptchaToken = "" // a replay must not need a fresh token
	second, aerr := s.Post(context.Background(), in)
	if aerr != nil {
		t.Fatalf("second: %v", aerr)
	}
	if !second.Replayed || second.Entry.ID != first.Entry.ID {
		t.Fatalf("expected replay of %s, got %+v", first.Entry.ID, second)
	}
	if calls != 1 {
		t.Fatalf("verifier calls=%d", calls)
	}
	if n, _ := repo.CountEntries(context.Background(), s.DB); n != 1 {
		t.Fatalf("count=%d", n)
	}

	// Another client with the same key gets its own entry.
	in.ClientID = "ip:2"
	third, aerr := s.Post(context.Background(), in)
	if aerr != nil || third.Replayed {
		t.Fatalf("expected fresh post for other client, got %+v %v", third, aerr)
	}
}

// ----- Reads -----

func TestGet_NotFoundAndStorage(t *testing.T) {
	var calls int32
	s := newSvc(t, dbRepo{}, acceptAll(&calls))

	_, aerr := s.Get(context.Background(), "00000000-0000-0000-0000-000000000000")
	if aerr == nil || aerr.Kind() != apperr.KindNotFound || aerr.UserMessage() != "entry not found" {
		t.Fatalf("expected not found, got %v", aerr)
	}

	s.Repo = dbRepo{getErr: errors.New("disk I/O error")}
	_, aerr = s.Get(context.Background(), "x")
	if aerr == nil || aerr.Kind() != apperr.KindStorage {
		t.Fatalf("expected storage, got %v", aerr)
	}
}

func TestListPage_NewestFirstAndTotals(t *testing.T) {
	var calls int32
	s := newSvc(t, dbRepo{}, acceptAll(&calls))
	ctx := context.Background()

	items, total, aerr := s.ListPage(ctx, 1, 10)
	if aerr != nil || total != 0 || items == nil || len(items) != 0 {
		t.Fatalf("empty list: items=%v total=%d err=%v", items, total, aerr)
	}

	for i := 0; i < 3; i++ {
		if _, aerr := s.Post(ctx, PostInput{Body: fmt.Sprintf("m%d", i)}); aerr != nil {
			t.Fatalf("seed: %v", aerr)
		}
		time.Sleep(2 * time.Millisecond)
	}

	items, total, aerr = s.ListPage(ctx, 1, 2)
	if aerr != nil || total != 3 || len(items) != 2 {
		t.Fatalf("page1: len=%d total=%d err=%v", len(items), total, aerr)
	}
	if items[0].Body != "m2" {
		t.Fatalf("expected newest first, got %q", items[0].Body)
	}

	items, _, _ = s.ListPage(ctx, 2, 2)
	if len(items) != 1 || items[0].Body != "m0" {
		t.Fatalf("page2: %+v", items)
	}

	s.Repo = dbRepo{countErr: errors.New("no such table")}
	if _, _, aerr := s.ListPage(ctx, 1, 2); aerr == nil || aerr.Kind() != apperr.KindStorage {
		t.Fatalf("expected storage, got %v", aerr)
	}
}

func TestStats(t *testing.T) {
	var calls int32
	s := newSvc(t, dbRepo{}, acceptAll(&calls))
	ctx := context.Background()

	n, ts, aerr := s.Stats(ctx)
	if aerr != nil || n != 0 || ts != nil {
		t.Fatalf("empty stats: %d %v %v", n, ts, aerr)
	}
	if _, aerr := s.Post(ctx, PostInput{Body: "hi"}); aerr != nil {
		t.Fatalf("seed: %v", aerr)
	}
	n, ts, aerr = s.Stats(ctx)
	if aerr != nil || n != 1 || ts == nil {
		t.Fatalf("stats: %d %v %v", n, ts, aerr)
	}
}

func TestNormalizeBody(t *testing.T) {
	got := normalizeBody("  é \r\nline2\t\r\r\r\rend  ")
	if got != "é\nline2\n\nend" {
		t.Fatalf("got %q", got)
	}
}
