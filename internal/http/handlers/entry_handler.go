// Entry HTTP handlers.
//
// This file exposes REST endpoints for guestbook entries:
//   - POST /entries        (captcha-gated create, idempotent with Idempotency-Key)
//   - GET  /entries        (list, paginated, ETag support)
//   - GET  /entries/{id}   (single entry)
//
// Handlers are transport-thin: they bind input, call EntryService and write
// the success response. Failures come back from the service already
// classified as *apperr.Error and are returned as-is for Handle to render.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-guestbook-backend/internal/apperr"
	"github.com/tbourn/go-guestbook-backend/internal/domain"
	"github.com/tbourn/go-guestbook-backend/internal/http/middleware"
	"github.com/tbourn/go-guestbook-backend/internal/services"
	"github.com/tbourn/go-guestbook-backend/internal/utils"
)

// HeaderCaptchaToken carries the hCaptcha response token when the client
// does not send it in the JSON body.
const HeaderCaptchaToken = "X-HCaptcha-Token"

//
// Service contracts (context-aware)
//

// EntryService defines guestbook operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type EntryService interface {
	// Post validates, verifies the captcha and stores a new entry.
	Post(ctx context.Context, in services.PostInput) (*services.PostResult, *apperr.Error)
	// Get returns one entry by ID.
	Get(ctx context.Context, id string) (*domain.Entry, *apperr.Error)
	// ListPage returns a page of entries (newest first) and the total count.
	ListPage(ctx context.Context, page, pageSize int) ([]domain.Entry, int64, *apperr.Error)
	// Stats returns the entry count and latest update time for ETags.
	Stats(ctx context.Context) (int64, *time.Time, *apperr.Error)
}

//
// Handler wiring
//

// Handlers groups the guestbook HTTP endpoints.
type Handlers struct {
	entrySvc EntryService
}

// New constructs and returns a Handlers instance bound to the given service.
func New(entrySvc EntryService) *Handlers {
	return &Handlers{entrySvc: entrySvc}
}

//
// DTOs
//

// PostEntryRequest is the JSON payload for signing the guestbook.
type PostEntryRequest struct {
	// Author is optional; blank names are stored as "Anonymous".
	Author string `json:"author" example:"Ada"`
	// Body is the message text.
	Body string `json:"body" example:"Lovely site, thanks!"`
	// CaptchaToken is the widget response; the X-HCaptcha-Token header is
	// used when this is empty.
	CaptchaToken string `json:"h-captcha-response" example:"P1_eyJ0eXAiOiJKV1Qi..."`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListEntriesResponse wraps a page of entries and pagination information.
type ListEntriesResponse struct {
	Entries    []domain.Entry `json:"entries"`
	Pagination Pagination     `json:"pagination"`
}

//
// Handlers
//

// PostEntry godoc
// @ID          postEntry
// @Summary     Sign the guestbook
// @Description Verifies the hCaptcha token and stores a new entry.
// @Description Supports idempotency via the Idempotency-Key header (same key → same entry, no new captcha needed).
// @Tags        Entries
// @Accept      json
// @Produce     json
//
// @Param       X-HCaptcha-Token  header  string  false "Captcha token when not sent in the body"
// @Param       Idempotency-Key   header  string  false "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body              body    handlers.PostEntryRequest  true  "Entry payload"
//
// @Success     201  {object}  domain.Entry    "Created"
// @Success     200  {object}  domain.Entry    "Replayed"
// @Header      201  {string}  Location        "URL of the new entry"
// @Failure     400  {object}  apperr.Display  "Invalid input (420000)"
// @Failure     403  {object}  apperr.Display  "Captcha rejected (410000)"
// @Failure     429  {object}  apperr.Display  "Rate limited (440000)"
// @Failure     500  {object}  apperr.Display  "Database error (510000)"
// @Router      /entries [post]
func (h *Handlers) PostEntry(c *gin.Context) *apperr.Error {
	var req PostEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return apperr.Invalid(msgInvalidJSON)
	}
	token := strings.TrimSpace(req.CaptchaToken)
	if token == "" {
		token = strings.TrimSpace(c.GetHeader(HeaderCaptchaToken))
	}
	idemKey, _ := middleware.GetIdempotencyKey(c)

	res, aerr := h.entrySvc.Post(c.Request.Context(), services.PostInput{
		Author:         req.Author,
		Body:           req.Body,
		CaptchaToken:   token,
		RemoteIP:       c.ClientIP(),
		ClientID:       middleware.ClientID(c),
		IdempotencyKey: idemKey,
	})
	if aerr != nil {
		return aerr
	}

	if res.Replayed {
		c.Header("Idempotency-Replayed", "true")
		ok(c, http.StatusOK, res.Entry)
		return nil
	}
	c.Header("Location", strings.TrimSuffix(c.FullPath(), "/")+"/"+res.Entry.ID)
	ok(c, http.StatusCreated, res.Entry)
	return nil
}

// ListEntries godoc
// @ID          listEntries
// @Summary     List entries (paginated)
// @Description Returns a page of entries, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Entries
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"entries:1:20:3:1700000000\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListEntriesResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} apperr.Display "Database error (510000)"
// @Router      /entries [get]
func (h *Handlers) ListEntries(c *gin.Context) *apperr.Error {
	ctx := c.Request.Context()
	p := utils.ParsePage(c.Query("page"), c.Query("page_size"))

	// ETag pre-check (best effort: a stats failure only disables caching).
	if count, maxTS, aerr := h.entrySvc.Stats(ctx); aerr == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := fmt.Sprintf(`W/"entries:%d:%d:%d:%d"`, p.Number, p.Size, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return nil
		}
	} else {
		middleware.LoggerFrom(c).Debug().Err(aerr).Msg("etag stats unavailable")
	}

	items, total, aerr := h.entrySvc.ListPage(ctx, p.Number, p.Size)
	if aerr != nil {
		return aerr
	}

	ok(c, http.StatusOK, ListEntriesResponse{
		Entries: items,
		Pagination: Pagination{
			Page:       p.Number,
			PageSize:   p.Size,
			Total:      total,
			TotalPages: p.TotalPages(total),
			HasNext:    p.HasNext(total),
		},
	})
	return nil
}

// GetEntry godoc
// @ID          getEntry
// @Summary     Get an entry
// @Tags        Entries
// @Produce     json
//
// @Param       id  path  string  true  "Entry ID (UUID)"  format(uuid) example(141add05-4415-4938-b5a1-17e0d3171aff)
//
// @Success     200  {object} domain.Entry
// @Failure     400  {object} apperr.Display "Invalid id (420000)"
// @Failure     404  {object} apperr.Display "Entry not found (430000)"
// @Failure     500  {object} apperr.Display "Database error (510000)"
// @Router      /entries/{id} [get]
func (h *Handlers) GetEntry(c *gin.Context) *apperr.Error {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return apperr.Invalid(msgBadEntryID)
	}

	e, aerr := h.entrySvc.Get(c.Request.Context(), id)
	if aerr != nil {
		return aerr
	}
	ok(c, http.StatusOK, e)
	return nil
}
