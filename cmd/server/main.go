package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cerberus100/Telehealthcrm-sub001/internal/audit"
	audithandler "github.com/cerberus100/Telehealthcrm-sub001/internal/audit/handler"
	auditmetrics "github.com/cerberus100/Telehealthcrm-sub001/internal/audit/metrics"
	auditmemory "github.com/cerberus100/Telehealthcrm-sub001/internal/audit/store/memory"
	auditpostgres "github.com/cerberus100/Telehealthcrm-sub001/internal/audit/store/postgres"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/authz"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/consults"
	httpapi "github.com/cerberus100/Telehealthcrm-sub001/internal/http"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/identity"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/platform/config"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/platform/httpserver"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/platform/kafka"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/platform/logger"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/platform/metrics"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/platform/middleware"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/platform/redis"
	rlmetrics "github.com/cerberus100/Telehealthcrm-sub001/internal/ratelimit/metrics"
	ratelimitmw "github.com/cerberus100/Telehealthcrm-sub001/internal/ratelimit/middleware"
	rlservice "github.com/cerberus100/Telehealthcrm-sub001/internal/ratelimit/service"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/ratelimit/store/counter"
	tenanthandler "github.com/cerberus100/Telehealthcrm-sub001/internal/tenant/handler"
	tenantmetrics "github.com/cerberus100/Telehealthcrm-sub001/internal/tenant/metrics"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/tenant/resolver"
	tenantservice "github.com/cerberus100/Telehealthcrm-sub001/internal/tenant/service"
	tenantstore "github.com/cerberus100/Telehealthcrm-sub001/internal/tenant/store"
	orgstore "github.com/cerberus100/Telehealthcrm-sub001/internal/tenant/store/org"
)

const shutdownTimeout = 10 * time.Second

// main wires configuration, stores, the audit pipeline, and the HTTP
// middleware chain, then runs the server until interrupted. Business logic
// lives in the internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	platformMetrics := metrics.New()
	tenantMetrics := tenantmetrics.New()
	rateLimitMetrics := rlmetrics.New()
	auditMetrics := auditmetrics.New()

	var (
		orgs       tenantservice.OrgStore
		auditStore audit.Store
		pool       *pgxpool.Pool
		auditDB    *sql.DB
	)
	if cfg.PostgresDSN != "" {
		var err error
		pool, err = pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Error("postgres pool init failed", "error", err)
			os.Exit(1)
		}
		orgPG := orgstore.NewPostgres(pool)
		if err := orgPG.Migrate(ctx); err != nil {
			log.Error("organizations migration failed", "error", err)
			os.Exit(1)
		}
		orgs = orgPG

		auditDB, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("audit database open failed", "error", err)
			os.Exit(1)
		}
		auditPG := auditpostgres.NewPostgres(auditDB)
		if err := auditPG.Migrate(ctx); err != nil {
			log.Error("audit migration failed", "error", err)
			os.Exit(1)
		}
		auditStore = auditPG
	} else {
		mem := orgstore.NewInMemory()
		if !cfg.Environment.IsProduction() {
			tenantstore.SeedDemoOrganizations(mem)
		}
		orgs = mem
		auditStore = auditmemory.NewInMemory()
		log.Warn("POSTGRES_DSN not set, using in-memory stores")
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}

	auditOpts := []audit.Option{audit.WithMetrics(auditMetrics)}
	var kafkaPublisher *kafka.Publisher
	if len(cfg.Audit.KafkaBrokers) > 0 {
		kafkaPublisher, err = kafka.NewPublisher(ctx, cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic, log)
		if err != nil {
			log.Error("kafka publisher init failed", "error", err)
			os.Exit(1)
		}
		auditOpts = append(auditOpts, audit.WithPublisher(kafkaPublisher))
	}
	recorder := audit.NewRecorder(auditStore, log, auditOpts...)

	tenantResolver := resolver.New(orgs, log, resolver.WithMetrics(tenantMetrics))
	tenantSvc := tenantservice.New(orgs,
		tenantservice.WithLogger(log),
		tenantservice.WithInvalidator(tenantResolver),
		tenantservice.WithMetrics(tenantMetrics),
	)

	var counterStore rlservice.CounterStore
	if redisClient != nil {
		counterStore = counter.NewRedis(redisClient.Client)
	} else {
		counterStore = counter.NewInMemory()
	}
	limiter := rlservice.New(counterStore, log,
		rlservice.WithLimit(cfg.RateLimit.Limit),
		rlservice.WithWindow(cfg.RateLimit.Window),
		rlservice.WithMetrics(rateLimitMetrics),
	)

	validator := identity.NewValidator(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience,
		identity.WithDemoMode(cfg.Environment == config.EnvDemo))

	authMW := middleware.NewAuth(validator, log,
		middleware.WithProduction(cfg.Environment.IsProduction()),
		middleware.WithDevAuthSecret(cfg.DevAuthSecretHash),
		middleware.WithAuthMetrics(platformMetrics),
	)
	rbacMW := middleware.NewRBAC(authz.NewRouteTable(), log,
		middleware.WithRBACMetrics(platformMetrics),
		middleware.WithDenialRecorder(recorder),
	)
	tenantMW := middleware.NewTenant(tenantResolver, log)
	rateLimitMW := ratelimitmw.New(limiter, log,
		ratelimitmw.WithDisabled(cfg.RateLimit.Disabled))

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:        log,
		Metrics:       platformMetrics,
		Auth:          authMW,
		Tenant:        tenantMW,
		RBAC:          rbacMW,
		RateLimit:     rateLimitMW,
		Recorder:      recorder,
		Organizations: tenanthandler.New(tenantSvc, log),
		AuditLog:      audithandler.New(recorder, log),
		Consults:      consults.New(recorder, log),
		Redis:         redisHealth(redisClient),
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	go purgeExpiredEvents(ctx, recorder, cfg.Audit.RetentionDays, log)

	go func() {
		log.Info("server starting", "addr", cfg.Server.Addr, "env", string(cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}

	if kafkaPublisher != nil {
		kafkaPublisher.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if auditDB != nil {
		_ = auditDB.Close()
	}
	if pool != nil {
		pool.Close()
	}
	log.Info("server stopped")
}

// redisHealth adapts the optional redis client to the router's health
// interface without handing it a typed nil.
func redisHealth(c *redis.Client) httpapi.HealthChecker {
	if c == nil {
		return nil
	}
	return c
}

// purgeExpiredEvents deletes audit events past the retention horizon once a
// day. Retention defaults to seven years, so the first run mostly matters
// for long-lived deployments.
func purgeExpiredEvents(ctx context.Context, recorder *audit.Recorder, retentionDays int, log *slog.Logger) {
	if retentionDays <= 0 {
		retentionDays = audit.DefaultRetentionDays
	}
	retention := time.Duration(retentionDays) * 24 * time.Hour

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := recorder.Cleanup(ctx, retention)
			if err != nil {
				log.Error("audit retention purge failed", "error", err)
				continue
			}
			if purged > 0 {
				log.Info("audit retention purge completed", "purged", purged)
			}
		}
	}
}
