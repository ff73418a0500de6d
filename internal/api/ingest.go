package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/codingthefuturewithai/rag-memory-sub001/internal/models"
	"github.com/codingthefuturewithai/rag-memory-sub001/internal/service"
)

// IngestHandler serves the four ingestion endpoints: text, file, directory, URL.
type IngestHandler struct {
	mediator *service.Mediator
	files    *service.FileIngestor
	crawler  *service.Crawler
	log      *logrus.Logger
}

// NewIngestHandler creates an IngestHandler.
func NewIngestHandler(mediator *service.Mediator, files *service.FileIngestor, crawler *service.Crawler, log *logrus.Logger) *IngestHandler {
	return &IngestHandler{mediator: mediator, files: files, crawler: crawler, log: log}
}

type ingestTextRequest struct {
	Content    string            `json:"content"`
	Collection string            `json:"collection"`
	Title      string            `json:"title"`
	Mode       models.IngestMode `json:"mode"`
	Metadata   models.Metadata   `json:"metadata"`
}

// Text handles POST /api/v1/ingest/text. The title doubles as the
// identifying key for deduplication.
func (h *IngestHandler) Text(c *gin.Context) {
	var req ingestTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if req.Title == "" {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, "title is required")

		return
	}

	result, err := h.mediator.Ingest(c.Request.Context(), service.IngestRequest{
		Collection:     req.Collection,
		IdentifyingKey: req.Title,
		Title:          req.Title,
		Content:        req.Content,
		SourceType:     models.SourceText,
		Mode:           defaultMode(req.Mode),
		Metadata:       req.Metadata,
	})
	if err != nil {
		h.logIngestError(err, req.Collection, req.Title)
		respondDomainError(c, err)

		return
	}

	c.JSON(http.StatusCreated, result)
}

type ingestFileRequest struct {
	Path       string            `json:"path"`
	Collection string            `json:"collection"`
	Mode       models.IngestMode `json:"mode"`
	Metadata   models.Metadata   `json:"metadata"`
}

// File handles POST /api/v1/ingest/file.
func (h *IngestHandler) File(c *gin.Context) {
	var req ingestFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if req.Path == "" {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, "path is required")

		return
	}

	result, err := h.files.IngestFile(c.Request.Context(), req.Path, req.Collection, defaultMode(req.Mode), req.Metadata)
	if err != nil {
		h.logIngestError(err, req.Collection, req.Path)
		respondDomainError(c, err)

		return
	}

	c.JSON(http.StatusCreated, result)
}

type ingestDirectoryRequest struct {
	Path       string            `json:"path"`
	Collection string            `json:"collection"`
	Mode       models.IngestMode `json:"mode"`
	Extensions []string          `json:"extensions"`
	Metadata   models.Metadata   `json:"metadata"`
}

// Directory handles POST /api/v1/ingest/directory. Per-file errors are
// reported in the response body, not as an HTTP failure.
func (h *IngestHandler) Directory(c *gin.Context) {
	var req ingestDirectoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if req.Path == "" {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, "path is required")

		return
	}

	results, err := h.files.IngestDirectory(
		c.Request.Context(), req.Path, req.Collection, defaultMode(req.Mode), req.Extensions, req.Metadata,
	)
	if err != nil {
		h.logIngestError(err, req.Collection, req.Path)
		respondDomainError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"files": results})
}

type ingestURLRequest struct {
	URL         string            `json:"url"`
	Collection  string            `json:"collection"`
	Mode        models.IngestMode `json:"mode"`
	FollowLinks bool              `json:"follow_links"`
	MaxDepth    int               `json:"max_depth"`
	MaxPages    int               `json:"max_pages"`
	Metadata    models.Metadata   `json:"metadata"`
}

// URL handles POST /api/v1/ingest/url.
func (h *IngestHandler) URL(c *gin.Context) {
	var req ingestURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if req.URL == "" {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, "url is required")

		return
	}

	result, err := h.crawler.IngestURL(c.Request.Context(), service.CrawlRequest{
		RootURL:     req.URL,
		Collection:  req.Collection,
		Mode:        defaultMode(req.Mode),
		FollowLinks: req.FollowLinks,
		MaxDepth:    req.MaxDepth,
		MaxPages:    req.MaxPages,
		Metadata:    req.Metadata,
	})
	if err != nil {
		h.logIngestError(err, req.Collection, req.URL)
		respondDomainError(c, err)

		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *IngestHandler) logIngestError(err error, collection, key string) {
	h.log.WithError(err).WithFields(logrus.Fields{
		"collection":      collection,
		"identifying_key": key,
	}).Error("ingestion failed")
}

func defaultMode(mode models.IngestMode) models.IngestMode {
	if mode == "" {
		return models.ModeIngest
	}

	return mode
}
