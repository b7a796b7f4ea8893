// Command server wires the loan-origination orchestrator: configuration,
// stores, stage services, HTTP transport and the optional Kafka audit
// mirror. Business logic lives in the internal packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"greenlight/internal/artifact"
	"greenlight/internal/audit"
	"greenlight/internal/bureau"
	"greenlight/internal/crm"
	jwttoken "greenlight/internal/jwt_token"
	"greenlight/internal/mandate"
	"greenlight/internal/orchestrator"
	"greenlight/internal/orchestrator/handler"
	orchmetrics "greenlight/internal/orchestrator/metrics"
	"greenlight/internal/platform/config"
	"greenlight/internal/platform/httpserver"
	"greenlight/internal/platform/logger"
	platformmetrics "greenlight/internal/platform/metrics"
	platformredis "greenlight/internal/platform/redis"
	"greenlight/internal/renderer"
	"greenlight/internal/sanction"
	"greenlight/internal/session"
	"greenlight/internal/underwriting"
	"greenlight/internal/verification"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	policy, err := loadPolicy(cfg, log)
	if err != nil {
		return err
	}

	artifacts, err := artifact.NewFS(cfg.ArtifactDir)
	if err != nil {
		return fmt.Errorf("artifact store: %w", err)
	}

	stores, cleanup, err := buildStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	group, groupCtx := errgroup.WithContext(ctx)

	gateOpts := []audit.GateOption{audit.WithLogger(log)}
	var notifier crm.Notifier = crm.NewLogNotifier(log)
	if len(cfg.Kafka.Brokers) > 0 {
		mirror := make(chan audit.Record, 256)
		publisher, err := audit.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return fmt.Errorf("audit kafka publisher: %w", err)
		}
		defer publisher.Close()
		worker := audit.NewWorker(publisher, mirror, log)
		group.Go(func() error {
			if err := worker.Run(groupCtx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		gateOpts = append(gateOpts, audit.WithMirror(mirror))

		kafkaNotifier, err := crm.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.CRMTopic)
		if err != nil {
			return fmt.Errorf("crm kafka notifier: %w", err)
		}
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
	}
	gate := audit.NewGate(stores.audit, gateOpts...)

	service := orchestrator.New(
		stores.sessions,
		stores.events,
		verification.New(gate, verification.WithLogger(log)),
		underwriting.New(policy, bureau.NewStub(), gate, underwriting.WithLogger(log)),
		sanction.New(
			mandate.NewStub(),
			renderer.NewLetter(artifacts),
			artifacts,
			gate,
			sanction.WithLogger(log),
			sanction.WithNotifier(notifier),
		),
		orchestrator.WithLogger(log),
		orchestrator.WithMetrics(orchmetrics.New()),
	)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "greenlight", "greenlight-ops")

	router := chi.NewRouter()
	h := handler.New(
		service,
		artifacts,
		stores.audit,
		stores.events,
		log,
		platformmetrics.New(),
		jwttoken.NewJWTServiceAdapter(jwtService),
	)
	h.Register(router)
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)

	group.Go(func() error {
		log.Info("starting greenlight server",
			"addr", cfg.Addr,
			"session_backend", cfg.SessionBackend,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

func loadPolicy(cfg config.Config, log *slog.Logger) (underwriting.Policy, error) {
	if cfg.PolicyPath == "" {
		return underwriting.DefaultPolicy(), nil
	}
	policy, err := underwriting.LoadPolicy(cfg.PolicyPath)
	if err != nil {
		return underwriting.Policy{}, fmt.Errorf("load policy %s: %w", cfg.PolicyPath, err)
	}
	log.Info("loaded underwriting policy", "path", cfg.PolicyPath)
	return policy, nil
}

// backingStores holds the selected persistence for sessions, events and the
// audit trail.
type backingStores struct {
	sessions session.Store
	events   session.EventStore
	audit    audit.Store
}

func buildStores(ctx context.Context, cfg config.Config, log *slog.Logger) (backingStores, func(), error) {
	cleanup := func() {}

	switch cfg.SessionBackend {
	case "postgres":
		if cfg.Postgres.DSN == "" {
			return backingStores{}, cleanup, errors.New("postgres backend selected but GREENLIGHT_POSTGRES_DSN is empty")
		}
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			return backingStores{}, cleanup, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return backingStores{}, cleanup, fmt.Errorf("ping postgres: %w", err)
		}

		sessions := session.NewPostgres(db)
		auditStore := audit.NewPostgres(db)
		if err := sessions.EnsureSchema(ctx); err != nil {
			db.Close()
			return backingStores{}, cleanup, err
		}
		if err := auditStore.EnsureSchema(ctx); err != nil {
			db.Close()
			return backingStores{}, cleanup, err
		}
		return backingStores{
			sessions: sessions,
			events:   session.NewPostgresEvents(db),
			audit:    auditStore,
		}, func() { db.Close() }, nil

	case "redis":
		client, err := platformredis.New(cfg.Redis)
		if err != nil {
			return backingStores{}, cleanup, fmt.Errorf("redis client: %w", err)
		}
		if client == nil {
			return backingStores{}, cleanup, errors.New("redis backend selected but GREENLIGHT_REDIS_URL is empty")
		}
		// Audit records stay in memory unless Postgres is also configured;
		// a compliance deployment should set both.
		auditStore := buildAuditFallback(ctx, cfg, log)
		return backingStores{
			sessions: session.NewRedis(client.Client),
			events:   session.NewRedisEvents(client.Client),
			audit:    auditStore,
		}, func() { client.Close() }, nil

	default:
		return backingStores{
			sessions: session.NewInMemoryStore(),
			events:   session.NewInMemoryEventStore(),
			audit:    audit.NewInMemoryStore(),
		}, cleanup, nil
	}
}

// buildAuditFallback prefers Postgres for the audit trail when a DSN is set
// even if sessions live elsewhere.
func buildAuditFallback(ctx context.Context, cfg config.Config, log *slog.Logger) audit.Store {
	if cfg.Postgres.DSN == "" {
		log.Warn("audit trail using in-memory store; set GREENLIGHT_POSTGRES_DSN for durability")
		return audit.NewInMemoryStore()
	}
	db, err := sql.Open("postgres", cfg.Postgres.DSN)
	if err != nil {
		log.Error("audit postgres open failed, falling back to memory", "error", err)
		return audit.NewInMemoryStore()
	}
	store := audit.NewPostgres(db)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Error("audit postgres schema failed, falling back to memory", "error", err)
		db.Close()
		return audit.NewInMemoryStore()
	}
	return store
}
