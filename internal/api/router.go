package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/codingthefuturewithai/rag-memory-sub001/internal/dbpool"
	"github.com/codingthefuturewithai/rag-memory-sub001/internal/middleware"
	"github.com/codingthefuturewithai/rag-memory-sub001/internal/service"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log         *logrus.Logger
	Pool        *dbpool.Pool
	Graph       GraphPinger
	Collections *service.CollectionService
	Mediator    *service.Mediator
	Files       *service.FileIngestor
	Crawler     *service.Crawler
	Search      *service.SearchService
	Documents   DocumentReader
	CORSOrigins []string
	Version     string
}

// maxBodySize limits request bodies; document content arrives inline so the
// cap matches the file ingestion limit.
const maxBodySize = 10 << 20 // 10 MB

// setupMiddleware configures all middleware on the Gin engine.
func setupMiddleware(r *gin.Engine, deps *RouterDeps) {
	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	r.Use(middleware.RequestID(deps.Log))
	r.Use(ginLogger(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.MaxBodySize(maxBodySize))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type"},
		MaxAge:           1 * time.Hour,
		AllowCredentials: false,
	}))
	r.Use(middleware.PrometheusMiddleware())

	// Metrics endpoint (unauthenticated, like health).
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// registerRoutes sets up all API route handlers on the given router group.
func registerRoutes(api *gin.RouterGroup, deps *RouterDeps) {
	log := deps.Log

	health := NewHealthHandler(deps.Pool, deps.Graph, log, deps.Version)
	collections := NewCollectionHandler(deps.Collections, log)
	ingest := NewIngestHandler(deps.Mediator, deps.Files, deps.Crawler, log)
	search := NewSearchHandler(deps.Search, log)
	documents := NewDocumentHandler(deps.Documents, deps.Mediator, log)

	api.GET("/health", health.Liveness)
	api.GET("/ready", health.Readiness)

	// Collections.
	api.POST("/collections", collections.Create)
	api.GET("/collections", collections.List)
	api.GET("/collections/:name", collections.Get)
	api.DELETE("/collections/:name", collections.Delete)

	// Ingestion.
	api.POST("/ingest/text", ingest.Text)
	api.POST("/ingest/file", ingest.File)
	api.POST("/ingest/directory", ingest.Directory)
	api.POST("/ingest/url", ingest.URL)

	// Search.
	api.POST("/search", search.Semantic)
	api.POST("/search/relationships", search.Relationships)
	api.POST("/search/temporal", search.Temporal)

	// Documents.
	api.GET("/documents/:id", documents.Get)
	api.DELETE("/documents/:id", documents.Delete)
}

// NewRouter creates and configures the Gin engine with all middleware and routes.
func NewRouter(deps *RouterDeps) http.Handler {
	r := gin.New()
	setupMiddleware(r, deps)
	registerRoutes(r.Group("/api/v1"), deps)

	return r
}
