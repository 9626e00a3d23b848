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

	_ "github.com/lib/pq"
	"github.com/spf13/afero"

	"recordvault/internal/attachment"
	"recordvault/internal/audit"
	httpapi "recordvault/internal/http"
	"recordvault/internal/identity"
	"recordvault/internal/platform/config"
	"recordvault/internal/platform/httpserver"
	"recordvault/internal/platform/logger"
	platformmetrics "recordvault/internal/platform/metrics"
	platformredis "recordvault/internal/platform/redis"
	recordhandler "recordvault/internal/record/handler"
	recordmetrics "recordvault/internal/record/metrics"
	"recordvault/internal/record/policy"
	"recordvault/internal/record/scheduler"
	"recordvault/internal/record/service"
	"recordvault/internal/record/store"
)

// main wires dependencies and owns process lifecycle. Business logic lives in
// the internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	recordStore, closeStore, err := buildStore(cfg, log)
	if err != nil {
		log.Error("store initialization failed", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	auditInbox := make(chan audit.Event, 256)
	auditStore := audit.NewInMemoryStore()
	auditPublisher := audit.NewPublisher(auditInbox, log)
	auditWorker := audit.NewWorker(auditStore, auditInbox)

	svc := service.New(recordStore, policy.NewEngine(), auditPublisher, recordmetrics.New(), log)

	tokens := identity.NewTokenService(cfg.JWTSigningKey, "recordvault")

	blobs := attachment.NewBlobStore(afero.NewBasePathFs(afero.NewOsFs(), cfg.AttachmentsDir))
	attachments := attachment.NewFacade(blobs, auditPublisher, log)

	router := httpapi.NewRouter(httpapi.Deps{
		Records:     recordhandler.New(svc, log),
		Attachments: attachment.NewHandler(attachments, log),
		Tokens:      tokens,
		HTTPMetrics: platformmetrics.NewHTTP(),
		Logger:      log,
	})

	var runLock scheduler.RunLock = scheduler.NoopLock{}
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis initialization failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		runLock = scheduler.NewRedisLock(redisClient.Client)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := auditWorker.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit worker stopped", "error", err)
		}
	}()

	archiver := scheduler.NewArchiver(svc, runLock, scheduler.NewMetrics(), log)
	archiver.Start(rootCtx)
	defer archiver.Stop()

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("recordvault listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-rootCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// buildStore selects Postgres when DATABASE_URL is set, otherwise the
// in-memory store for local development.
func buildStore(cfg config.Server, log *slog.Logger) (store.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory record store")
		return store.NewInMemory(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, err
	}
	log.Info("connected to postgres")
	return store.NewPostgres(db), func() { _ = db.Close() }, nil
}
