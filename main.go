package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"meriawaaz-be/config"
	"meriawaaz-be/controllers"
	"meriawaaz-be/locks"
	"meriawaaz-be/logger"
	"meriawaaz-be/metrics"
	"meriawaaz-be/pipeline"
	"meriawaaz-be/repository"
	"meriawaaz-be/reprocessor"
	"meriawaaz-be/routes"
	"meriawaaz-be/storage"
	authUtils "meriawaaz-be/utils"
	"meriawaaz-be/verification"
	"meriawaaz-be/votes"
	"meriawaaz-be/worker"
)

const (
	lockPrefix      = "lock:issue:"
	lockTTL         = 10 * time.Second
	shutdownTimeout = 30 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logr := logger.New(cfg.Server, cfg.Logger)
	defer func() { _ = logr.Sync() }()

	if err := run(cfg, logr); err != nil {
		logr.Fatalw("server stopped with error", "error", err)
	}
}

func run(cfg config.Config, logr *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoClient, db, err := config.ConnectDB(ctx, cfg.Mongo)
	if err != nil {
		return err
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	logr.Infow("MongoDB connection established", "database", cfg.Mongo.Database)

	redisClient, err := config.ConnectRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	logr.Infow("Redis connection established", "address", cfg.Redis.Address)

	if err := repository.EnsureIndexes(ctx, db); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewCollector(registry)

	issues := repository.NewIssueRepository(db, logr)
	voteRepo := repository.NewVoteRepository(db)
	users := repository.NewUserRepository(db)

	ledger := votes.NewLedger(voteRepo, issues, locks.NewRedisLocker(redisClient, lockPrefix, lockTTL), rec, logr)

	var limiter *rate.Limiter
	if cfg.Pipeline.StageRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Pipeline.StageRate), cfg.Pipeline.StageBurst)
	}
	orchestrator := pipeline.NewOrchestrator(
		issues,
		pipeline.SimulatedVision{Latency: cfg.Pipeline.VisionLatency},
		pipeline.SimulatedAnalysis{Latency: cfg.Pipeline.AnalysisLatency},
		pipeline.SimulatedTriage{Latency: cfg.Pipeline.TriageLatency},
		pipeline.Options{RunTimeout: cfg.Pipeline.RunTimeout, StageTimeout: cfg.Pipeline.StageTimeout, Limiter: limiter},
		rec,
		logr,
	)

	pool := worker.NewPool(cfg.Worker.Workers, cfg.Worker.QueueSize, orchestrator.Task(), rec, logr)
	pool.Start(context.Background())

	var dispatcher worker.Dispatcher = pool
	consumeDone := make(chan struct{})
	if cfg.Worker.Backend == "redis" {
		queue := worker.NewRedisQueue(redisClient, cfg.Worker.QueueKey, rec, logr)
		dispatcher = queue
		go func() {
			defer close(consumeDone)
			if err := queue.Consume(ctx, pool); err != nil {
				logr.Errorw("queue consumer stopped", "error", err)
			}
		}()
	} else {
		close(consumeDone)
	}
	logr.Infow("task queue ready", "backend", cfg.Worker.Backend, "workers", cfg.Worker.Workers)

	scheduler := gocron.NewScheduler(time.UTC)
	rp := reprocessor.New(issues, dispatcher, reprocessor.Options{
		StaleAfter: cfg.Reprocessor.StaleAfter,
		BatchSize:  cfg.Reprocessor.BatchSize,
		ScanLimit:  cfg.Reprocessor.ScanLimit,
	}, rec, logr)
	if _, err := rp.Schedule(scheduler, cfg.Reprocessor.Interval); err != nil {
		return err
	}
	scheduler.StartAsync()
	defer scheduler.Stop()

	var blobs storage.BlobStore
	if cfg.Storage.Enabled() {
		store, err := storage.NewMinioStore(ctx, cfg.Storage, logr)
		if err != nil {
			return err
		}
		blobs = store
		logr.Infow("object storage ready", "endpoint", cfg.Storage.Endpoint, "bucket", cfg.Storage.Bucket)
	} else {
		logr.Warnw("object storage not configured, uploads are disabled")
	}

	tokens := authUtils.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	verifier := verification.NewRedisProvider(redisClient, verification.LogDeliverer{Log: logr}, verification.Options{
		CodeTTL:     cfg.Verification.CodeTTL,
		MaxAttempts: cfg.Verification.MaxAttempts,
	}, logr)

	handler := controllers.New(controllers.Deps{
		Issues:     issues,
		Votes:      voteRepo,
		Users:      users,
		Ledger:     ledger,
		Dispatcher: dispatcher,
		Tokens:     tokens,
		Verifier:   verifier,
		Blobs:      blobs,
		Checks: map[string]controllers.HealthCheck{
			"mongodb": func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
			"redis":   func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
		Options: controllers.Options{
			CookieName:     cfg.Auth.CookieName,
			TokenTTL:       cfg.Auth.TokenTTL,
			SecureCookies:  !cfg.Server.IsDevelopment(),
			PageMultiplier: cfg.Server.PageMultiplier,
			MaxUploadBytes: cfg.Storage.MaxBytes,
		},
		Log: logr,
	})

	if !cfg.Server.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := routes.Setup(routes.Router{
		Handler:  handler,
		Verifier: tokens,
		Redis:    redisClient,
		Gatherer: registry,
		Config:   cfg,
		Log:      logr,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logr.Infow("server listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logr.Infow("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Errorw("http shutdown failed", "error", err)
	}
	stop()
	<-consumeDone
	pool.Stop(shutdownCtx)
	logr.Infow("shutdown complete", "stats", pool.Stats())
	return nil
}
