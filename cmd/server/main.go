package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"zkcomply/internal/audit"
	"zkcomply/internal/platform/config"
	"zkcomply/internal/platform/database"
	"zkcomply/internal/platform/health"
	"zkcomply/internal/platform/httpserver"
	"zkcomply/internal/platform/kafka/producer"
	"zkcomply/internal/platform/logger"
	platformredis "zkcomply/internal/platform/redis"
	"zkcomply/internal/proof"
	registrymetrics "zkcomply/internal/registry/metrics"
	"zkcomply/internal/registry/models"
	registryservice "zkcomply/internal/registry/service"
	registrystore "zkcomply/internal/registry/store"
	"zkcomply/internal/sanctions"
	"zkcomply/internal/screening"
	httptransport "zkcomply/internal/transport/http"
)

// main wires dependencies and owns the server lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	log.Info("initializing zkcomply",
		"addr", cfg.Addr,
		"proof_backend", cfg.ProofBackend,
		"circuit_capacity", cfg.CircuitCapacity,
	)

	var backend proof.Backend
	switch cfg.ProofBackend {
	case "groth16":
		g16, err := proof.NewGroth16(cfg.CircuitCapacity)
		if err != nil {
			log.Error("groth16 setup failed", "error", err)
			os.Exit(1)
		}
		backend = g16
	default:
		log.Warn("using simulated proof backend, no zero-knowledge guarantees")
		backend = proof.NewSimulated(cfg.CircuitCapacity)
	}

	healthHandler := health.New(cfg.Environment)

	pool, err := database.New(database.DefaultConfig(cfg.DatabaseURL))
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
		healthHandler.RegisterCheck("database", func() error { return pool.Health(context.Background()) })
	}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		healthHandler.RegisterCheck("redis", func() error { return redisClient.Health(context.Background()) })
	}

	// Postgres when configured, in-memory otherwise. The replay guard
	// prefers Redis so multiple registry nodes share one fingerprint set.
	var store registryservice.Store
	var usedProofs registryservice.UsedProofStore
	if pool != nil {
		pg := registrystore.NewPostgres(pool.DB())
		store, usedProofs = pg, pg
	} else {
		mem := registrystore.NewInMemory()
		store, usedProofs = mem, mem
	}
	if redisClient != nil {
		usedProofs = registrystore.NewRedisUsedProofStore(redisClient, cfg.ValidityPeriod)
	}

	auditOpts := []audit.PublisherOption{
		audit.WithAsyncBuffer(1024),
		audit.WithPublisherLogger(log),
	}
	if cfg.KafkaBrokers != "" {
		kafkaProducer, err := producer.New(cfg.KafkaBrokers, log)
		if err != nil {
			log.Error("kafka init failed", "error", err)
			os.Exit(1)
		}
		defer kafkaProducer.Close()
		auditOpts = append(auditOpts, audit.WithKafka(kafkaProducer, "zkcomply.audit"))
	}
	auditor := audit.NewPublisher(audit.NewInMemoryStore(), auditOpts...)
	defer auditor.Close()

	provider := sanctions.NewProvider(sanctions.Builtin())
	screeningSvc := screening.NewService(provider, []byte(cfg.JWTSigningKey),
		screening.WithAuditor(auditor),
		screening.WithLogger(log),
	)
	registrySvc := registryservice.NewService(store, usedProofs, backend,
		models.Identity(cfg.OwnerIdentity),
		registryservice.WithValidityPeriod(cfg.ValidityPeriod),
		registryservice.WithAuditor(auditor),
		registryservice.WithMetrics(registrymetrics.New()),
		registryservice.WithLogger(log),
	)

	router := httptransport.NewRouter(
		httptransport.NewScreeningHandler(screeningSvc, provider, cfg.CircuitCapacity, log),
		httptransport.NewRegistryHandler(registrySvc, auditor, log),
		healthHandler,
		log,
	)

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
