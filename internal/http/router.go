// Package httpapi wires the HTTP transport (Gin) to the guestbook service,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, rate limiting, and compression.
//
// Every error that leaves this router, including 404/405 fallbacks, rate
// limiting and recovered panics, is an *apperr.Error rendered by
// middleware.AbortWithError.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-guestbook-backend/internal/captcha"
	"github.com/tbourn/go-guestbook-backend/internal/config"
	"github.com/tbourn/go-guestbook-backend/internal/domain"
	"github.com/tbourn/go-guestbook-backend/internal/http/handlers"
	"github.com/tbourn/go-guestbook-backend/internal/http/middleware"
	"github.com/tbourn/go-guestbook-backend/internal/repo"
	"github.com/tbourn/go-guestbook-backend/internal/services"
)

// entryRepoShim adapts the repository free functions to the
// services.EntryRepo interface expected by the EntryService. This keeps
// services decoupled from the concrete repo package while reusing existing
// functions.
type entryRepoShim struct{}

// CreateEntry proxies repo.CreateEntry.
func (entryRepoShim) CreateEntry(ctx context.Context, db *gorm.DB, clientID, author, body string) (*domain.Entry, error) {
	return repo.CreateEntry(ctx, db, clientID, author, body)
}

// GetEntry proxies repo.GetEntry.
func (entryRepoShim) GetEntry(ctx context.Context, db *gorm.DB, id string) (*domain.Entry, error) {
	return repo.GetEntry(ctx, db, id)
}

// CountEntries proxies repo.CountEntries (pagination support).
func (entryRepoShim) CountEntries(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountEntries(ctx, db)
}

// ListEntriesPage proxies repo.ListEntriesPage (pagination support).
func (entryRepoShim) ListEntriesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Entry, error) {
	return repo.ListEntriesPage(ctx, db, offset, limit)
}

// EntriesStats proxies repo.EntriesStats (ETag support).
func (entryRepoShim) EntriesStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error) {
	return repo.EntriesStats(ctx, db)
}

// GetIdempotency proxies repo.GetIdempotency.
func (entryRepoShim) GetIdempotency(ctx context.Context, db *gorm.DB, clientID, scope, key string, now time.Time) (*domain.Idempotency, error) {
	return repo.GetIdempotency(ctx, db, clientID, scope, key, now)
}

// CreateIdempotency proxies repo.CreateIdempotency.
func (entryRepoShim) CreateIdempotency(ctx context.Context, db *gorm.DB, clientID, scope, key, entryID string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	return repo.CreateIdempotency(ctx, db, clientID, scope, key, entryID, status, ttl)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. verifier checks captcha tokens on POST /entries; pass
// captcha.Disabled{} when captcha is switched off.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Access logger (redacting by default) with request-scoped logger
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per user/IP, bypass on replay)
//  9. CORS and Security headers
//  10. Gzip
func RegisterRoutes(r *gin.Engine, db *gorm.DB, verifier captcha.Verifier, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging, with redaction unless disabled
	if cfg.LogRedact {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{
			MaskHeaders: []string{"X-API-Key"},
		}))
	} else {
		r.Use(middleware.Logger())
	}

	// 4) Panic recovery to apperr.Internal
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, clientID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, clientID, services.IdempotencyScope, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{"Origin", "Content-Type", "Accept", handlers.HeaderCaptchaToken, middleware.HeaderIdempotencyKey}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag", "Location", "Idempotency-Replayed"}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only on HTTPS; writes are never cached)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:    cfg.Security.EnableHSTS,
		HSTSMaxAge:    cfg.Security.HSTSMaxAge,
		NoStoreWrites: true,
		EnablePolicy:  true,
	}))

	// 10) Compress JSON responses; /metrics negotiates its own encoding.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// Fallbacks
	r.NoRoute(handlers.NoRoute)
	r.NoMethod(handlers.NoMethod)

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: service ← repo/db/verifier
	entrySvc := services.NewEntryService(db, entryRepoShim{}, verifier)
	if cfg.Entries.MaxBodyRunes > 0 {
		entrySvc.MaxBodyRunes = cfg.Entries.MaxBodyRunes
	}
	if cfg.Entries.MaxAuthorRunes > 0 {
		entrySvc.MaxAuthorRunes = cfg.Entries.MaxAuthorRunes
	}
	if cfg.IdempotencyTTL > 0 {
		entrySvc.IdempotencyTTL = cfg.IdempotencyTTL
	}
	h := handlers.New(entrySvc)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		api.POST("/entries", handlers.Handle(h.PostEntry))
		api.GET("/entries", handlers.Handle(h.ListEntries))
		api.GET("/entries/:id", handlers.Handle(h.GetEntry))
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
