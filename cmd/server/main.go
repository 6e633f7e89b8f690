package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	citizenstore "vigil/internal/citizen/store/citizen"
	"vigil/internal/platform/config"
	"vigil/internal/platform/httpserver"
	"vigil/internal/platform/logger"
	"vigil/internal/platform/postgres"
	platformredis "vigil/internal/platform/redis"
	"vigil/internal/visit/handler"
	"vigil/internal/visit/lock"
	visitmetrics "vigil/internal/visit/metrics"
	"vigil/internal/visit/service"
	visitstore "vigil/internal/visit/store/visit"
	"vigil/pkg/platform/audit"
	auditkafka "vigil/pkg/platform/audit/kafka"
	auditmemory "vigil/pkg/platform/audit/store/memory"
	auditpostgres "vigil/pkg/platform/audit/store/postgres"
	"vigil/pkg/platform/audit/publisher"
	"vigil/pkg/platform/audit/worker"
	authmw "vigil/pkg/platform/middleware/auth"
	"vigil/pkg/platform/middleware/device"
	"vigil/pkg/platform/middleware/metadata"
	"vigil/pkg/platform/middleware/requestid"
	"vigil/pkg/platform/middleware/requesttime"
)

// main wires dependencies and owns the process lifecycle. Postgres, redis,
// and kafka are all optional: with none configured the service runs fully
// in-memory, which is the local development mode.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(cfg.Postgres)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var (
		visits     service.VisitStore
		citizens   service.CitizenStore
		auditStore audit.Store
	)
	if db != nil {
		visits = visitstore.NewPostgres(db)
		citizens = citizenstore.NewPostgres(db)
		auditStore = auditpostgres.New(db)
	} else {
		visits = visitstore.NewInMemory()
		citizens = citizenstore.NewInMemory()
		auditStore = auditmemory.NewInMemoryStore()
	}

	auditPublisher := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(256),
		publisher.WithLogger(log),
	)
	defer auditPublisher.Close()

	var transitionLock service.TransitionLock = lock.NewMemory()
	if redisClient != nil {
		transitionLock = lock.NewRedis(redisClient.Client)
	}

	opts := []service.Option{
		service.WithLogger(log),
		service.WithAuditPublisher(auditPublisher),
		service.WithMetrics(visitmetrics.New()),
		service.WithTransitionLock(transitionLock),
	}
	if db != nil {
		opts = append(opts, service.WithStoreTx(newVisitPostgresTx(db)))
	}
	engine := service.NewEngine(visits, citizens, opts...)

	validator := authmw.NewValidator(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer)
	visitHandler := handler.New(engine, log, cfg.Geofence)

	router := chi.NewRouter()
	router.Use(requestid.Middleware)
	router.Use(requesttime.Middleware)
	router.Use(metadata.ClientMetadata)
	router.Use(device.Middleware)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		r.Use(authmw.RequireOfficer(validator, log))
		visitHandler.Register(r)
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting vigil", "addr", cfg.Server.Addr, "postgres", db != nil, "redis", redisClient != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if len(cfg.Kafka.Seeds) > 0 && db != nil {
		sink, err := auditkafka.NewPublisher(ctx, cfg.Kafka.Seeds)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer sink.Close()

		outbox := worker.New(db, sink, log, time.Second)
		group.Go(func() error {
			if err := outbox.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
