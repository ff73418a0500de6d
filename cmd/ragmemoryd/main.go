// Package main runs the memory engine server: dual-store ingestion over
// Postgres (pgvector) and Neo4j, with semantic and graph search.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/codingthefuturewithai/rag-memory-sub001/internal/api"
	"github.com/codingthefuturewithai/rag-memory-sub001/internal/config"
	"github.com/codingthefuturewithai/rag-memory-sub001/internal/crawl"
	"github.com/codingthefuturewithai/rag-memory-sub001/internal/db"
	"github.com/codingthefuturewithai/rag-memory-sub001/internal/db/migrations"
	"github.com/codingthefuturewithai/rag-memory-sub001/internal/dbpool"
	"github.com/codingthefuturewithai/rag-memory-sub001/internal/extract"
	"github.com/codingthefuturewithai/rag-memory-sub001/internal/graph"
	"github.com/codingthefuturewithai/rag-memory-sub001/internal/service"
	"github.com/codingthefuturewithai/rag-memory-sub001/internal/store"
)

const version = "1.0.0"

const shutdownTimeout = 15 * time.Second

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("loading configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithError(err).Fatal("parsing log level")
	}

	log.SetLevel(level)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := dbpool.NewPool(ctx, cfg.DatabaseURL.Value())
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, log, migrations.FS); err != nil {
		return err
	}

	if err := db.EnsureVectorDimensions(ctx, pool, log, cfg.EmbeddingDimensions); err != nil {
		return err
	}

	base := store.Base{Pool: pool, Log: log}
	collections := store.NewCollectionStore(base)
	documents := store.NewDocumentStore(base)
	search := store.NewSearchStore(base)

	var (
		adapter     *graph.Adapter
		graphPinger api.GraphPinger
	)

	if cfg.GraphEnabled() {
		client, err := graph.NewClient(ctx, graph.ClientConfig{
			URI:      cfg.Neo4jURI,
			User:     cfg.Neo4jUser,
			Password: cfg.Neo4jPassword.Value(),
			Database: cfg.Neo4jDatabase,
		}, log)
		if err != nil {
			return err
		}

		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			client.Close(closeCtx) //nolint:errcheck // shutdown path.
		}()

		extractor := extract.NewOllamaExtractor(cfg.OllamaURL, cfg.ExtractionModel)
		engine := graph.NewNeo4jEngine(client, extractor, log)
		adapter = graph.NewAdapter(engine, log)
		graphPinger = client

		log.WithField("uri", cfg.Neo4jURI).Info("graph engine enabled")
	} else {
		log.Info("graph engine disabled (NEO4J_URI not set)")
	}

	embedder := service.NewEmbeddingService(cfg.OllamaURL, cfg.EmbeddingModel)
	chunker := service.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)

	// adapter is passed through typed nil guards: a nil *graph.Adapter must
	// stay a nil interface inside the services.
	var (
		graphDeleter  service.GraphDeleter
		graphEnricher service.GraphEnricher
		graphSearcher service.GraphSearcher
	)

	if adapter != nil {
		graphDeleter = adapter
		graphEnricher = adapter
		graphSearcher = adapter
	}

	deleter := service.NewDeleter(documents, graphDeleter, log)
	mediator := service.NewMediator(collections, documents, deleter, embedder, chunker, graphEnricher, log)
	files := service.NewFileIngestor(mediator, cfg.IngestConcurrency)
	fetcher := crawl.NewHTTPFetcher(cfg.CrawlRatePerSec)
	crawler := service.NewCrawler(collections, documents, mediator, deleter, fetcher, cfg.IngestConcurrency, cfg.CrawlMaxPages, log)
	searchSvc := service.NewSearchService(collections, search, embedder, graphSearcher, log)
	collectionSvc := service.NewCollectionService(collections, documents, deleter, log)

	router := api.NewRouter(&api.RouterDeps{
		Log:         log,
		Pool:        pool,
		Graph:       graphPinger,
		Collections: collectionSvc,
		Mediator:    mediator,
		Files:       files,
		Crawler:     crawler,
		Search:      searchSvc,
		Documents:   documents,
		CORSOrigins: cfg.CORSOrigins,
		Version:     version,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		log.WithField("addr", cfg.Addr()).Info("server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
