// Command server runs the guestbook HTTP API.
//
// @title       Guestbook API
// @version     1.0
// @description Captcha-gated guestbook. Every error response is {"code":<int>,"err":<string>}.
// @BasePath    /api/v1
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	_ "github.com/tbourn/go-guestbook-backend/docs"
	"github.com/tbourn/go-guestbook-backend/internal/captcha"
	"github.com/tbourn/go-guestbook-backend/internal/config"
	httpapi "github.com/tbourn/go-guestbook-backend/internal/http"
	"github.com/tbourn/go-guestbook-backend/internal/observability"
	"github.com/tbourn/go-guestbook-backend/internal/repo"
	"github.com/tbourn/go-guestbook-backend/internal/sysutil"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = ""

func main() {
	// .env is optional; real environment wins.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	flush := sysutil.SetupLogger(os.Stdout, cfg.LogLevel, cfg.LogPretty)
	defer func() { _ = flush() }()

	gin.SetMode(cfg.GinMode)
	ver := sysutil.FirstNonEmpty(version, os.Getenv("APP_VERSION"), "dev")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	var verifier captcha.Verifier = captcha.Disabled{}
	if cfg.Captcha.Enabled {
		verifier = captcha.NewClient(captcha.Options{
			Secret:    cfg.Captcha.Secret,
			Sitekey:   cfg.Captcha.Sitekey,
			VerifyURL: cfg.Captcha.VerifyURL,
			Timeout:   cfg.Captcha.Timeout,
		})
	} else {
		log.Warn().Msg("captcha verification disabled")
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, db, verifier, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", ver).Str("base_path", cfg.APIBasePath).Msg("guestbook listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
