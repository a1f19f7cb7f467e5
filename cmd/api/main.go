// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the HealthID authentication server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool) and Redis.
//  4. Run database migrations (idempotent).
//  5. Build the provider clients (BankID, Twilio Verify, SMTP) once.
//  6. Wire the auth core and its HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taibuivan/healthid/internal/api"
	"github.com/taibuivan/healthid/internal/platform/config"
	"github.com/taibuivan/healthid/internal/platform/constants"
	"github.com/taibuivan/healthid/internal/platform/migration"
	pgstore "github.com/taibuivan/healthid/internal/platform/postgres"
	redisstore "github.com/taibuivan/healthid/internal/platform/redis"
	"github.com/taibuivan/healthid/internal/platform/sec"
	"github.com/taibuivan/healthid/internal/users/account"
	"github.com/taibuivan/healthid/internal/users/auth"
	"github.com/taibuivan/healthid/internal/users/authmode"
	"github.com/taibuivan/healthid/internal/users/bankid"
	"github.com/taibuivan/healthid/internal/users/otp"
	"github.com/taibuivan/healthid/internal/users/token"
	"github.com/taibuivan/healthid/pkg/snowflake"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Misconfiguration fails within 30s.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL & Redis ─────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 4. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 5. Provider Clients ───────────────────────────────────────────────
	bankIDClient, err := bankid.NewClient(bankid.ClientConfig{
		BaseURL:    cfg.BankIDAPIURL,
		CertPath:   cfg.BankIDCertPath,
		KeyPath:    cfg.BankIDKeyPath,
		CACertPath: cfg.BankIDCACertPath,
		Passphrase: cfg.BankIDCertPassphrase,
	})
	must(log, err, "initialize bankid client")

	twilioProvider := otp.NewTwilioProvider(cfg.TwilioSID, cfg.TwilioAuthToken, cfg.TwilioServiceID)

	var sender otp.Sender = otp.NewLogSender(log)
	if cfg.SMTPHost != "" {
		sender, err = otp.NewSMTPSender(otp.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.FromEmail,
		})
		must(log, err, "initialize smtp sender")
	} else if cfg.IsProduction() {
		log.Warn("smtp_not_configured", slog.String("fallback", "log"))
	}

	// ── 6. Auth Core ──────────────────────────────────────────────────────
	signer, err := sec.NewTokenService(cfg.JWTSecret, constants.AuthIssuer)
	must(log, err, "initialize jwt service")

	ids, err := snowflake.NewGenerator(cfg.NodeID)
	must(log, err, "initialize id generator")

	tokenManager := token.NewManager(
		signer,
		token.NewRefreshRepository(pool),
		token.NewMirrorStore(rdb),
		token.Config{
			AccessTTL:  cfg.AccessTokenTTL(),
			RefreshTTL: cfg.RefreshTokenTTL(),
			Strict:     cfg.RefreshStrict,
		},
		log,
	)

	resolver := account.NewResolver(account.NewRepository(pool), ids, tokenManager, log)

	codeEngine := otp.NewEngine(
		otp.NewCodeRepository(pool),
		otp.NewCodeCache(rdb),
		sender,
		otp.EngineConfig{Length: cfg.OTPLength, TTL: cfg.OTPTTL()},
		log,
	)

	bankIDService := bankid.NewService(bankIDClient, bankid.NewOrderStore(rdb), bankid.Config{
		OrderTTL:        cfg.BankIDOrderTTL,
		PollInterval:    cfg.BankIDPollInterval,
		PollTimeout:     cfg.BankIDPollTimeout,
		MaxPollAttempts: cfg.BankIDMaxPollAttempts,
		MaxRetries:      cfg.BankIDMaxRetries,
	}, log)

	authService := auth.NewService(auth.Dependencies{
		Codes:     codeEngine,
		Delegate:  otp.NewDelegated(twilioProvider, cfg.WhitelistedNumbers, cfg.IsProduction(), log),
		Federated: bankIDService,
		Modes:     authmode.NewRegistry(rdb, constants.AuthModeTTL),
		Accounts:  resolver,
		Tokens:    tokenManager,
		Logger:    log,
	})

	// ── 7. Health & HTTP Server ───────────────────────────────────────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{Checks: []api.Check{
		{Name: "postgres", Probe: pgstore.Probe(pool)},
		{Name: "redis", Probe: redisstore.Probe(rdb)},
	}}, log)

	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(authService, cfg.OTPLength),
		Account:   account.NewHandler(resolver),
	}

	// Background workers (rate-limit janitor) stop with this context.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	server := api.NewServer(rootCtx, cfg, log, tokenManager, handlers)

	// ── 8. Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// In-flight BankID polls are bounded by the request timeout.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// newLogger builds the JSON logger every log entry of the process goes through.
func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", constants.AppName))
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned and
// handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
