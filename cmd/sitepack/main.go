// Package main wires together the sitepack service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	gstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/sitepack/sitepack/internal/api"
	"github.com/sitepack/sitepack/internal/archive"
	"github.com/sitepack/sitepack/internal/clock/system"
	"github.com/sitepack/sitepack/internal/config"
	"github.com/sitepack/sitepack/internal/dispatcher"
	collyfetcher "github.com/sitepack/sitepack/internal/fetcher/colly"
	"github.com/sitepack/sitepack/internal/id/uuid"
	"github.com/sitepack/sitepack/internal/logging"
	"github.com/sitepack/sitepack/internal/metrics"
	memorypublisher "github.com/sitepack/sitepack/internal/publisher/memory"
	pubsubpublisher "github.com/sitepack/sitepack/internal/publisher/pubsub"
	queueMemory "github.com/sitepack/sitepack/internal/queue/memory"
	"github.com/sitepack/sitepack/internal/scraper"
	"github.com/sitepack/sitepack/internal/sitemap"
	gcsStorage "github.com/sitepack/sitepack/internal/storage/gcs"
	memoryStorage "github.com/sitepack/sitepack/internal/storage/memory"
	memoryStore "github.com/sitepack/sitepack/internal/store/memory"
	postgresStore "github.com/sitepack/sitepack/internal/store/postgres"
	"github.com/sitepack/sitepack/internal/worker"
	"github.com/sitepack/sitepack/internal/workflow"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		logger.Fatal("store init failed", zap.Error(err))
	}
	defer closeStore()

	blobs, err := buildBlobStore(ctx, cfg)
	if err != nil {
		logger.Fatal("blob store init failed", zap.Error(err))
	}

	publisher, err := buildPublisher(ctx, cfg)
	if err != nil {
		logger.Fatal("publisher init failed", zap.Error(err))
	}

	queue := queueMemory.NewQueue(cfg.Workflow.QueueDepth)
	clock := system.New()
	idGen := uuid.New()

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Sitemap.UserAgent,
		Timeout:   cfg.SitemapTimeout(),
	})
	extractor := sitemap.NewExtractor(fetcher, sitemap.Config{
		MaxLinks: cfg.Sitemap.MaxLinks,
	}, logger.Named("sitemap"))
	pageScraper := scraper.New(scraper.Config{
		APIURL:       cfg.Scraper.APIURL,
		APIToken:     cfg.Scraper.APIToken,
		RequestDelay: cfg.ScrapeDelay(),
		Timeout:      cfg.ScrapeTimeout(),
	}, logger.Named("scraper"))

	orchestrator := workflow.NewOrchestrator(
		store.Instances,
		store.Steps,
		queue,
		blobs,
		publisher,
		extractor,
		pageScraper,
		archive.NewBuilder(),
		clock,
		idGen,
		workflow.Config{
			PublicBaseURL: cfg.Storage.PublicBaseURL,
			Topic:         cfg.PubSub.TopicName,
			Steps:         workflow.DefaultStepConfigs(),
		},
		logger.Named("workflow"),
	)

	var workers []*worker.Worker
	for i := 0; i < cfg.Workflow.Workers; i++ {
		workers = append(workers, worker.New(
			queue,
			orchestrator,
			logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	dispatch := dispatcher.New(queue, workers)

	apiServer := api.NewServer(orchestrator, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("dispatcher started", zap.Int("workers", cfg.Workflow.Workers))
		dispatch.Run(ctx)
	}()

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	queue.Close()
	logger.Info("shutdown complete")
}

// stores bundles the two persistence facets one backend provides.
type stores struct {
	Instances workflow.InstanceStore
	Steps     workflow.StepLog
}

func buildStore(ctx context.Context, cfg config.Config) (stores, func(), error) {
	switch cfg.Store.Provider {
	case "postgres":
		pg, err := postgresStore.NewStore(ctx, postgresStore.Config{DSN: cfg.Store.DSN})
		if err != nil {
			return stores{}, nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return stores{}, nil, err
		}
		return stores{Instances: pg, Steps: pg}, pg.Close, nil
	case "memory":
		mem := memoryStore.NewStore()
		return stores{Instances: mem, Steps: mem}, func() {}, nil
	default:
		return stores{}, nil, fmt.Errorf("unknown store provider: %s", cfg.Store.Provider)
	}
}

func buildBlobStore(ctx context.Context, cfg config.Config) (workflow.BlobStore, error) {
	switch cfg.Storage.Provider {
	case "gcs":
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		return gcsStorage.New(client, gcsStorage.Config{Bucket: cfg.Storage.GCSBucket})
	case "memory":
		return memoryStorage.NewBlobStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.Storage.Provider)
	}
}

func buildPublisher(ctx context.Context, cfg config.Config) (workflow.Publisher, error) {
	if cfg.PubSub.ProjectID == "" || cfg.PubSub.TopicName == "" {
		return memorypublisher.New(), nil
	}
	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return pubsubpublisher.New(client), nil
}
