package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codingthefuturewithai/rag-memory-sub001/internal/models"
	"github.com/codingthefuturewithai/rag-memory-sub001/internal/service"
)

// DocumentReader is the read-side document access the handler depends on.
type DocumentReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.SourceDocument, error)
	GetChunks(ctx context.Context, documentID uuid.UUID) ([]models.Chunk, error)
}

// DocumentHandler serves document lookup and deletion endpoints.
type DocumentHandler struct {
	reader   DocumentReader
	mediator *service.Mediator
	log      *logrus.Logger
}

// NewDocumentHandler creates a DocumentHandler.
func NewDocumentHandler(reader DocumentReader, mediator *service.Mediator, log *logrus.Logger) *DocumentHandler {
	return &DocumentHandler{reader: reader, mediator: mediator, log: log}
}

// Get handles GET /api/v1/documents/:id.
func (h *DocumentHandler) Get(c *gin.Context) {
	id, ok := parseDocumentID(c)
	if !ok {
		return
	}

	doc, err := h.reader.GetByID(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)

		return
	}

	chunks, err := h.reader.GetChunks(c.Request.Context(), id)
	if err != nil {
		h.log.WithError(err).WithField("document_id", id).Error("loading chunks")
		respondDomainError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"document": doc, "chunks": chunks})
}

// Delete handles DELETE /api/v1/documents/:id. It is the public entry to the
// centralized deletion procedure; a verification failure surfaces here as a
// 500 with the document's identifying context.
func (h *DocumentHandler) Delete(c *gin.Context) {
	id, ok := parseDocumentID(c)
	if !ok {
		return
	}

	if err := h.mediator.DeleteDocument(c.Request.Context(), id); err != nil {
		h.log.WithError(err).WithField("document_id", id).Error("deleting document")
		respondDomainError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func parseDocumentID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid document id")

		return uuid.Nil, false
	}

	return id, true
}
