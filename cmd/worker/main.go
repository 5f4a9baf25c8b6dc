// Command worker consumes verification jobs and drives them to their
// terminal status. It also runs the reconciliation sweep and serves
// /metrics and /health for the scraper.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"talanta/internal/audit"
	auditpg "talanta/internal/audit/store/postgres"
	"talanta/internal/platform/config"
	"talanta/internal/platform/httpserver"
	"talanta/internal/platform/kafka"
	"talanta/internal/platform/logger"
	"talanta/internal/platform/postgres"
	platformredis "talanta/internal/platform/redis"
	"talanta/internal/verification/cache"
	"talanta/internal/verification/extractor"
	"talanta/internal/verification/graph"
	"talanta/internal/verification/metrics"
	"talanta/internal/verification/objectstore"
	"talanta/internal/verification/queue"
	"talanta/internal/verification/recon"
	"talanta/internal/verification/service"
	"talanta/internal/verification/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "worker:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	minioClient, err := minio.New(cfg.ObjectStore.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.ObjectStore.AccessKey, cfg.ObjectStore.SecretKey, ""),
		Secure: cfg.ObjectStore.UseSSL,
		Region: cfg.ObjectStore.Region,
	})
	if err != nil {
		return fmt.Errorf("connecting to object store: %w", err)
	}
	objects := objectstore.NewMinioGateway(minioClient, cfg.ObjectStore.Bucket)

	driver, err := neo4j.NewDriverWithContext(cfg.Neo4j.URI,
		neo4j.BasicAuth(cfg.Neo4j.User, cfg.Neo4j.Password, ""))
	if err != nil {
		return fmt.Errorf("connecting to neo4j: %w", err)
	}
	defer driver.Close(context.Background())

	producer, err := kafka.NewProducer(cfg.Kafka)
	if err != nil {
		return err
	}
	defer producer.Close()
	if err := kafka.EnsureTopic(ctx, cfg.Kafka, cfg.Kafka.JobTopic, 8); err != nil {
		return err
	}

	consumer, err := kafka.NewConsumer(cfg.Kafka, []string{cfg.Kafka.JobTopic}, log)
	if err != nil {
		return err
	}
	defer consumer.Close()

	ocr, err := extractor.ForMode(cfg.OCR.Mode)
	if err != nil {
		return err
	}

	m := metrics.New()
	publisher := audit.NewPublisher(1024, log)
	auditWorker := audit.NewWorker(auditpg.New(db), publisher.Inbox(), log)

	records := store.NewPostgresRecordStore(db)
	skills := graph.NewNeo4jGraph(driver)
	jobs := queue.NewKafkaQueue(producer, cfg.Kafka.JobTopic)

	svc := service.New(
		records,
		store.NewPostgresUserStore(db),
		store.NewSQLTxRunner(db),
		objects,
		skills,
		ocr,
		jobs,
		cache.NewRedisCache(redisClient.Client, time.Hour),
		publisher,
		m,
		log,
	)

	dispatcher := queue.NewDispatcher(svc,
		queue.NewRedisLocker(redisClient.Client),
		queue.DispatcherConfig{
			MaxAttempts:   cfg.Worker.MaxAttempts,
			RetryBackoff:  cfg.Worker.RetryBackoff,
			SoftTimeLimit: cfg.Worker.SoftTimeLimit,
			HardTimeLimit: cfg.Worker.HardTimeLimit,
			LockTTL:       cfg.Worker.LockTTL,
		}, m, log)

	sweeper := recon.New(records, skills, jobs, publisher, m, log, recon.Config{
		Interval:       cfg.Worker.SweepInterval,
		StuckThreshold: cfg.Worker.StuckThreshold,
	})

	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreCanceled(auditWorker.Run(ctx))
	})
	g.Go(func() error {
		log.Info("starting verification worker",
			"topic", cfg.Kafka.JobTopic, "group", cfg.Kafka.ConsumerGroup)
		return ignoreCanceled(consumer.Run(ctx, dispatcher))
	})
	g.Go(func() error {
		return ignoreCanceled(sweeper.Run(ctx))
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
