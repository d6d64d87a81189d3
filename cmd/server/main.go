package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vn.io.arda/tenant-manager/internal/application"
	"vn.io.arda/tenant-manager/internal/config"
	"vn.io.arda/tenant-manager/internal/domain"
	"vn.io.arda/tenant-manager/internal/infrastructure/keycloak"
	"vn.io.arda/tenant-manager/internal/infrastructure/postgres"
	kafkaconsumer "vn.io.arda/tenant-manager/internal/kafka"
	transporthttp "vn.io.arda/tenant-manager/internal/transport/http"
)

func main() {
	// ── Logging ──────────────────────────────────────────────────────────────
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// ── Config ───────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if cfg.Server.Env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().Str("env", cfg.Server.Env).Str("port", cfg.Server.Port).Msg("starting arda-tenant-manager")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Database (audit trail) ───────────────────────────────────────────────
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("postgres ping failed")
	}
	log.Info().Msg("postgres connected")

	// ── Directory Gateway (Keycloak Admin API) ───────────────────────────────
	directory := keycloak.New(
		cfg.Keycloak.BaseURL,
		cfg.Keycloak.Realm,
		cfg.Keycloak.AdminRealm,
		cfg.Keycloak.AdminClientID,
		cfg.Keycloak.AdminClientSecret,
	)

	// ── Application Service ──────────────────────────────────────────────────
	audit := postgres.New(pool)
	hub := transporthttp.NewHub()
	svc := application.NewService(
		directory,
		domain.NewNaming(cfg.Sync.TenantPrefix),
		application.NewRoleCatalog(directory, cfg.Sync.ExcludedRoles),
		audit,
		hub,
		cfg.Access.SystemAdminRole,
	)

	// ── Syncer (reconciliation worker) ───────────────────────────────────────
	syncer := application.NewSyncer(svc)
	go syncer.Start(ctx)

	// ── HTTP Server ──────────────────────────────────────────────────────────
	handler := transporthttp.NewHandler(svc, hub)
	router := transporthttp.NewRouter(handler, cfg.Keycloak.BaseURL, cfg.Keycloak.Realm)

	// ── Kafka Consumer (role lifecycle events) ───────────────────────────────
	consumer, err := kafkaconsumer.New(
		cfg.Kafka.Brokers,
		cfg.Kafka.ConsumerGroupID,
		cfg.Kafka.Topics,
		syncer,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create kafka consumer")
	}

	// Start Kafka consumer in background
	go consumer.Start(ctx)
	log.Info().Strs("topics", cfg.Kafka.Topics).Msg("kafka consumer started")

	// ── Periodic full sync ───────────────────────────────────────────────────
	if interval := cfg.Sync.Interval(); interval > 0 {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					syncer.Request("periodic")
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// ── Start HTTP Server ────────────────────────────────────────────────────
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("HTTP server listening")
		if err := router.Start(":" + cfg.Server.Port); err != nil {
			log.Info().Msg("HTTP server stopped")
		}
	}()

	// ── Graceful Shutdown ────────────────────────────────────────────────────
	<-ctx.Done()
	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := router.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("arda-tenant-manager stopped")
}
