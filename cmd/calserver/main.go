package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relevance-labs/cal-engine/internal/api"
	"github.com/relevance-labs/cal-engine/internal/auth/apikey"
	"github.com/relevance-labs/cal-engine/internal/auth/ratelimit"
	"github.com/relevance-labs/cal-engine/internal/cache/batchcache"
	"github.com/relevance-labs/cal-engine/internal/cal/controller"
	"github.com/relevance-labs/cal-engine/internal/cal/dataset"
	"github.com/relevance-labs/cal-engine/internal/cal/events"
	"github.com/relevance-labs/cal-engine/internal/rpcapi"
	"github.com/relevance-labs/cal-engine/internal/store/auditlog"
	"github.com/relevance-labs/cal-engine/pkg/config"
	"github.com/relevance-labs/cal-engine/pkg/grpc"
	"github.com/relevance-labs/cal-engine/pkg/health"
	"github.com/relevance-labs/cal-engine/pkg/kafka"
	"github.com/relevance-labs/cal-engine/pkg/logger"
	pkgmetrics "github.com/relevance-labs/cal-engine/pkg/metrics"
	pkgmw "github.com/relevance-labs/cal-engine/pkg/middleware"
	"github.com/relevance-labs/cal-engine/pkg/postgres"
	pkgredis "github.com/relevance-labs/cal-engine/pkg/redis"
	"github.com/relevance-labs/cal-engine/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting cal engine", "rpc_addr", cfg.RPC.Addr, "target_n", cfg.Controller.TargetN)

	documents, err := dataset.LoadDocuments(cfg.Corpus.DocumentsPath, cfg.Corpus.NumFeatures)
	if err != nil {
		slog.Error("failed to load document corpus", "error", err)
		os.Exit(1)
	}
	paragraphs, err := dataset.LoadParagraphs(cfg.Corpus.ParagraphsPath, cfg.Corpus.NumFeatures, documents)
	if err != nil {
		slog.Error("failed to load paragraph corpus", "error", err)
		os.Exit(1)
	}
	slog.Info("corpus loaded", "documents", documents.Size(), "paragraphs", paragraphs.Size())

	ctrl, policy, err := controller.NewScalability(
		cfg.Controller.Seed,
		documents,
		paragraphs,
		cfg.Controller.NumThreads,
		cfg.Learner.TrainingIterations,
		cfg.Controller.TargetN,
		cfg.Controller.SeedBatchSize,
	)
	if err != nil {
		slog.Error("failed to construct controller", "error", err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *postgres.Client
	err = resilience.Retry(ctx, "postgres-connect", resilience.RetryConfig{MaxAttempts: 3}, func() error {
		db, err = postgres.New(cfg.Postgres)
		return err
	})
	if err != nil {
		slog.Warn("postgres unavailable, api key auth and snapshotting disabled", "error", err)
		db = nil
	} else {
		defer db.Close()
	}

	var redisClient *pkgredis.Client
	var cache *batchcache.BatchCache
	err = resilience.Retry(ctx, "redis-connect", resilience.RetryConfig{MaxAttempts: 3}, func() error {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		return err
	})
	if err != nil {
		slog.Warn("redis unavailable, batch caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		cache = batchcache.New(redisClient, cfg.Redis)
		slog.Info("batch cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	eventsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IterationComplete)
	collector := events.NewCollector(eventsProducer, 100, 5*time.Second)
	collector.Start(ctx)
	defer collector.Close()
	slog.Info("events collector started", "topic", cfg.Kafka.Topics.IterationComplete)
	ctrl.SetEventSink(collector)

	// aggregator is referenced by the consumer's handler before it exists
	// (the handler needs a *running* aggregator to update, and the
	// consumer needs a handler to be constructed) — the closure captures
	// the variable, not its value, so by the time any message actually
	// arrives aggregator has been assigned below.
	var aggregator *events.Aggregator
	eventsConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IterationComplete,
		func(ctx context.Context, key, value []byte) error {
			return events.HandleEvent(aggregator)(ctx, key, value)
		})
	aggregator = events.NewAggregator(eventsConsumer)
	statsHandler := events.NewHandler(aggregator)

	go func() {
		if err := aggregator.Start(ctx); err != nil {
			slog.Error("events aggregator error", "error", err)
		}
	}()
	slog.Info("events aggregator started")

	var audit *auditlog.Store
	if db != nil {
		store := events.NewStore(db)
		store.StartPeriodicSave(ctx, aggregator, time.Minute)
		audit = auditlog.NewStore(db)
	}

	metrics := pkgmetrics.New()

	checker := health.NewChecker()
	checker.Register("controller", func(ctx context.Context) health.ComponentHealth {
		n, t, r, b := policy.Snapshot()
		return health.ComponentHealth{
			Status: health.StatusUp,
			Message: fmt.Sprintf("queue_len=%d relevants=%d n=%d t=%d r=%d b=%d",
				ctrl.QueueLength(), ctrl.CumulativeRelevants(), n, t, r, b),
		}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if db == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := db.DB.PingContext(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	// RPC session server (assessor-facing).
	rpcServer := grpc.NewServer()
	rpcapi.NewService(ctrl, cache, audit, cfg.RPC.RequestTimeout, cfg.Tracing.Enabled).Register(rpcServer)
	go func() {
		if err := rpcServer.Serve(cfg.RPC.Addr); err != nil {
			slog.Error("rpc server error", "error", err)
		}
	}()
	slog.Info("rpc session server listening", "addr", cfg.RPC.Addr)

	// Admin HTTP server (operator-facing).
	var validator *apikey.Validator
	if db != nil {
		validator = apikey.NewValidator(db)
	}
	limiter := ratelimit.New(time.Minute)
	adminHandler := api.New(ctrl, validator)
	router := api.NewRouter(adminHandler, statsHandler, validator, limiter, cfg.Server.WriteTimeout)

	mux := http.NewServeMux()
	mux.Handle("/", router)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	if cfg.Metrics.Enabled {
		mux.Handle("GET /metrics", pkgmetrics.Handler())
	}

	var handler http.Handler = mux
	handler = pkgmw.Metrics(metrics)(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		rpcServer.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("admin api listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("cal engine stopped")
}
