package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"umnico/internal/api"
	"umnico/internal/api/handlers"
	"umnico/internal/api/middleware"
	"umnico/internal/engine/events"
	"umnico/internal/engine/linker"
	"umnico/internal/engine/subscriptions"
	"umnico/internal/pkg/logger"
	"umnico/internal/platform/audit"
	"umnico/internal/platform/auth"
	"umnico/internal/platform/config"
	"umnico/internal/platform/database"
	"umnico/internal/platform/repositories"
	"umnico/internal/platform/umnico"
	"umnico/migrations"

	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.Logger.WithContext(ctx)

	mode, err := linker.ParseMode(cfg.Linker.Mode)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid linker mode")
	}

	// Database
	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	applied, err := database.Migrate(ctx, db, migrations.FS)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}
	if len(applied) > 0 {
		log.Info().Strs("migrations", applied).Msg("Applied migrations")
	}

	// Repositories
	store := repositories.NewRecordStore(db)
	deliveries := repositories.NewDeliveryRepository(db)
	auditLogger := audit.NewLogger(db)

	if mode == linker.ModeHardened {
		if err := store.ExternalIDs().EnsureUniqueIndex(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to install external id unique index")
		}
	}

	// Services
	client := umnico.NewClient(cfg.Umnico)
	identity := subscriptions.NewIdentity(cfg.Umnico.AccountID)
	manager := subscriptions.NewManager(client, identity)
	recordLinker := linker.New(store, mode, nil)
	dispatcher := events.NewDispatcher(manager, recordLinker)
	tokenSvc := auth.NewTokenService(cfg.JWT)

	if cfg.Server.ResolveOnStart {
		if _, err := manager.ResolveIdentity(ctx); err != nil {
			log.Warn().Err(err).Msg("Account identity not resolved at startup; will retry on first event")
		}
	}

	// Router
	deps := &api.Dependencies{
		AuthHandler:         handlers.NewAuthHandler(cfg, tokenSvc),
		AccountHandler:      handlers.NewAccountHandler(manager, auditLogger),
		SubscriptionHandler: handlers.NewSubscriptionHandler(manager, auditLogger),
		DeliveryHandler:     handlers.NewDeliveryHandler(deliveries),
		AuditHandler:        handlers.NewAuditHandler(auditLogger),
		WebhookHandler:      handlers.NewWebhookHandler(dispatcher, deliveries),
		HealthHandler:       handlers.NewHealthHandler(db, identity),
		MetricsHandler:      handlers.NewMetricsHandler(deliveries, identity),
		AuthMiddleware:      middleware.NewAuthMiddleware(tokenSvc),
		RateLimiter:         middleware.NewRateLimiter(cfg.RateLimit),
	}
	router := api.NewRouter(deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return log.Logger.WithContext(context.Background()) },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown failed")
		}
	}()

	log.Info().
		Str("addr", addr).
		Str("linker_mode", string(mode)).
		Int64("seed_account_id", cfg.Umnico.AccountID).
		Msg("Server starting")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
	log.Info().Msg("Server stopped")
}
