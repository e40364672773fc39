// Command reconcile reintenta las inscripciones que quedaron aplicadas a
// medias. Pensado para ejecutarse desde un scheduler externo (cron, k8s job).
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"edunexus/internal/config"
	"edunexus/internal/db"
	"edunexus/internal/metrics"
	"edunexus/internal/repository"
	"edunexus/internal/service"
)

func main() {
	os.Exit(run())
}

func run() int {
	limit := flag.Int("limit", 100, "máximo de reparaciones a procesar")
	timeout := flag.Duration("timeout", 5*time.Minute, "tiempo máximo de la corrida")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required to read the repair ledger")
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg, "edunexus-reconcile")
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()
	repairs := repository.NewPgRepairRepository(pool)
	if err := repairs.EnsureSchema(ctx); err != nil {
		logger.Fatal("repair ledger schema", zap.Error(err))
	}

	mongoClient, mongoDB, err := db.NewMongo(ctx, cfg)
	if err != nil {
		logger.Fatal("mongo connect", zap.Error(err))
	}
	defer func() {
		_ = mongoClient.Disconnect(context.Background())
	}()

	var reconciler service.Reconciler = service.NewEnrollmentReconciler(
		logger,
		repairs,
		repository.NewMongoUserRepository(mongoDB),
		repository.NewMongoCourseRepository(mongoDB),
		metrics.New("edunexus_reconcile"),
	)

	report, err := reconciler.Reconcile(ctx, *limit)
	logger.Info("reconciliation finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("resolved", report.Resolved),
		zap.Int("failed", report.Failed),
		zap.Error(err),
	)
	if err != nil || report.Failed > 0 {
		return 1
	}
	return 0
}
