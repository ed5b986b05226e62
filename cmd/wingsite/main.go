// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/olegiv/wingsite/internal/auth"
	"github.com/olegiv/wingsite/internal/cache"
	"github.com/olegiv/wingsite/internal/config"
	"github.com/olegiv/wingsite/internal/defaults"
	"github.com/olegiv/wingsite/internal/geoip"
	"github.com/olegiv/wingsite/internal/handler/api"
	"github.com/olegiv/wingsite/internal/logging"
	"github.com/olegiv/wingsite/internal/mailer"
	"github.com/olegiv/wingsite/internal/middleware"
	"github.com/olegiv/wingsite/internal/model"
	"github.com/olegiv/wingsite/internal/scheduler"
	"github.com/olegiv/wingsite/internal/service"
	"github.com/olegiv/wingsite/internal/store"
	"github.com/olegiv/wingsite/internal/version"
	"github.com/olegiv/wingsite/internal/webhook"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")
	migrateOnly := flag.Bool("migrate-only", false, "Run database migrations and seeding, then exit")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "wingsite - content backend for the company website\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  WINGS_JWT_SECRET         Token signing key (required outside development, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  WINGS_DB_DRIVER          sqlite|sqlite3|mysql (default: sqlite)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  WINGS_DB_DSN             Database DSN or path (default: ./data/wingsite.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  WINGS_SERVER_PORT        Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  WINGS_ENV                development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  WINGS_CORS_ORIGINS       Comma-separated allowed origins (default: *)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  WINGS_EMAIL_API_KEY      Email provider key; enables /api/send-email\n")
		_, _ = fmt.Fprintf(os.Stderr, "  WINGS_WEBHOOK_SECRET     Shared secret for inbound webhook signatures\n")
		_, _ = fmt.Fprintf(os.Stderr, "  WINGS_REDIS_URL          Redis URL for distributed caching (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  WINGS_GEOIP_DB           GeoLite2-Country database for audit events (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  WINGS_ADMIN_EMAIL        Initial admin email, used when no users exist\n")
		_, _ = fmt.Fprintf(os.Stderr, "  WINGS_ADMIN_PASSWORD     Initial admin password\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Printf("wingsite %s (commit: %s, built: %s)\n", appVersion, appGitCommit, appBuildTime)
		os.Exit(0)
	}

	if err := run(*migrateOnly); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(migrateOnly bool) error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	versionInfo := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	production := !cfg.IsDevelopment()
	logger := logging.New(os.Stdout, cfg.LogLevel, production, nil)
	slog.SetDefault(logger)

	if cfg.DBDriver != config.DriverMySQL {
		if err := os.MkdirAll(filepath.Dir(cfg.DBDSN), 0o755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	dialect, err := store.DialectFor(cfg.DBDriver)
	if err != nil {
		return err
	}

	slog.Info("initializing database", "driver", cfg.DBDriver)
	db, err := store.NewDB(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}()

	slog.Info("running database migrations")
	if err := store.Migrate(db, dialect); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	s := store.New(db, dialect)

	// Upgrade logger to also write WARN and ERROR logs to the event log
	logger = logging.New(os.Stdout, cfg.LogLevel, production, s)
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	ctx := context.Background()
	if err := seed(ctx, s, cfg); err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}

	if migrateOnly {
		slog.Info("migrations complete, exiting")
		return nil
	}

	c := cache.New(cache.Config{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: cfg.CacheTTLDuration(),
	}, logger)
	defer func() { _ = c.Close() }()

	geo, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		slog.Warn("geoip disabled", "error", err)
	}
	defer func() { _ = geo.Close() }()

	tokens := auth.NewTokenManager(cfg.JWTSecret)
	authService := auth.NewService(s, tokens, logger)
	authService.SetCountryLookup(geo)
	loginGuard := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	defer loginGuard.Close()

	var mail *mailer.Client
	if cfg.EmailEnabled() {
		mail = mailer.New(mailer.Config{
			APIURL:    cfg.EmailAPIURL,
			APIKey:    cfg.EmailAPIKey,
			From:      cfg.EmailFrom,
			Recipient: cfg.ContactRecipient,
		}, &http.Client{Timeout: 15 * time.Second}, logger)
	} else {
		slog.Warn("email not configured; /api/send-email will return 503")
	}

	emailLimiter := middleware.NewRateLimiter("send-email", 0.2, 3)
	webhookLimiter := middleware.NewRateLimiter("webhook", 5, 20)

	sched := scheduler.New(logger)
	jobs := []scheduler.Job{
		scheduler.RetentionJob(s, time.Duration(cfg.RetentionDays)*24*time.Hour, logger),
		scheduler.CacheStatsJob(c, logger),
		scheduler.FuncJob("geoip-reload", "Pick up a replaced GeoIP database", "@daily", func() {
			if err := geo.Reload(); err != nil {
				slog.Warn("geoip reload failed", "error", err)
			}
		}),
		scheduler.FuncJob("prune-limiters", "Drop idle per-IP rate limiters", "*/10 * * * *", func() {
			emailLimiter.Prune()
			webhookLimiter.Prune()
		}),
	}
	for _, j := range jobs {
		if err := sched.Add(j); err != nil {
			return fmt.Errorf("scheduling %s: %w", j.Name, err)
		}
	}
	sched.Start()
	defer sched.Stop()

	h := api.NewHandler(api.Deps{
		Store:      s,
		Auth:       authService,
		Users:      service.NewUserService(s),
		Content:    service.NewContentService(s, c, cfg.CacheTTLDuration(), logger),
		Events:     service.NewEventService(s),
		Mailer:     mail,
		Webhooks:   webhook.NewReceiver(cfg.WebhookSecret, s, logger),
		LoginGuard: loginGuard,
		Scheduler:  sched,
		SiteStatus: cfg.SiteStatus,
		Version:    versionInfo,
		Logger:     logger,
	})

	router := api.NewRouter(h, api.RouterConfig{
		CORSOrigins:    cfg.CORSOrigins,
		IsDevelopment:  cfg.IsDevelopment(),
		EmailLimiter:   emailLimiter,
		WebhookLimiter: webhookLimiter,
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", srv.Addr, "env", cfg.Env, "version", versionInfo.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// seed creates the first admin and the default site settings on an empty
// database.
func seed(ctx context.Context, s *store.Store, cfg *config.Config) error {
	email, password := cfg.AdminEmail, cfg.AdminPassword
	if email == "" && password == "" && cfg.IsDevelopment() {
		email, password = store.DefaultAdminEmail, store.DefaultAdminPassword
	}

	var hash string
	if email != "" && password != "" {
		var err error
		if hash, err = auth.HashPassword(password); err != nil {
			return fmt.Errorf("hashing admin password: %w", err)
		}
	}

	patch, err := defaults.SettingsPatch()
	if err != nil {
		return err
	}

	return store.Seed(ctx, s, store.SeedParams{
		AdminEmail:        model.NormalizeEmail(email),
		AdminPasswordHash: hash,
		Settings:          model.FlattenSettings(patch),
		Socials:           model.PatchSocials(patch),
	})
}
