// Command server runs the talanta API: document upload, status reads and
// skill claims. Processing happens in the worker binary; the two share the
// stores and the job topic.
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
	"talanta/internal/platform/jwtauth"
	"talanta/internal/platform/kafka"
	"talanta/internal/platform/logger"
	"talanta/internal/platform/postgres"
	platformredis "talanta/internal/platform/redis"
	"talanta/internal/verification/cache"
	"talanta/internal/verification/extractor"
	"talanta/internal/verification/graph"
	"talanta/internal/verification/handler"
	"talanta/internal/verification/metrics"
	"talanta/internal/verification/objectstore"
	"talanta/internal/verification/queue"
	"talanta/internal/verification/service"
	"talanta/internal/verification/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
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
	if err := objects.EnsureBucket(ctx); err != nil {
		return err
	}

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

	ocr, err := extractor.ForMode(cfg.OCR.Mode)
	if err != nil {
		return err
	}

	m := metrics.New()
	publisher := audit.NewPublisher(1024, log)
	auditWorker := audit.NewWorker(auditpg.New(db), publisher.Inbox(), log)

	svc := service.New(
		store.NewPostgresRecordStore(db),
		store.NewPostgresUserStore(db),
		store.NewSQLTxRunner(db),
		objects,
		graph.NewNeo4jGraph(driver),
		ocr,
		queue.NewKafkaQueue(producer, cfg.Kafka.JobTopic),
		cache.NewRedisCache(redisClient.Client, time.Hour),
		publisher,
		m,
		log,
	)

	jwtService := jwtauth.NewService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer)

	router := chi.NewRouter()
	handler.New(svc, jwtService, log).Register(router)
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
		err := auditWorker.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		log.Info("starting talanta api", "addr", cfg.Server.Addr)
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
