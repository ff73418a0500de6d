package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/codingthefuturewithai/rag-memory-sub001/internal/models"
	"github.com/codingthefuturewithai/rag-memory-sub001/internal/service"
)

// CollectionHandler serves collection lifecycle endpoints.
type CollectionHandler struct {
	svc *service.CollectionService
	log *logrus.Logger
}

// NewCollectionHandler creates a CollectionHandler.
func NewCollectionHandler(svc *service.CollectionService, log *logrus.Logger) *CollectionHandler {
	return &CollectionHandler{svc: svc, log: log}
}

// Create handles POST /api/v1/collections.
func (h *CollectionHandler) Create(c *gin.Context) {
	var req models.CreateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	col, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		h.log.WithError(err).WithField("collection", req.Name).Error("creating collection")
		respondDomainError(c, err)

		return
	}

	c.JSON(http.StatusCreated, col)
}

// List handles GET /api/v1/collections.
func (h *CollectionHandler) List(c *gin.Context) {
	summaries, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("listing collections")
		respondDomainError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"collections": summaries})
}

// Get handles GET /api/v1/collections/:name.
func (h *CollectionHandler) Get(c *gin.Context) {
	name := c.Param("name")
	if err := validatePathID(name); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	col, err := h.svc.Get(c.Request.Context(), name)
	if err != nil {
		respondDomainError(c, err)

		return
	}

	c.JSON(http.StatusOK, col)
}

// Delete handles DELETE /api/v1/collections/:name. The teardown runs every
// member document through the centralized deletion procedure, so this call
// can take a while on large collections.
func (h *CollectionHandler) Delete(c *gin.Context) {
	name := c.Param("name")
	if err := validatePathID(name); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	if err := h.svc.Delete(c.Request.Context(), name); err != nil {
		h.log.WithError(err).WithField("collection", name).Error("deleting collection")
		respondDomainError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": name})
}
