package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/codingthefuturewithai/rag-memory-sub001/internal/models"
	"github.com/codingthefuturewithai/rag-memory-sub001/internal/service"
)

// SearchHandler serves semantic and graph search endpoints.
type SearchHandler struct {
	svc *service.SearchService
	log *logrus.Logger
}

// NewSearchHandler creates a SearchHandler.
func NewSearchHandler(svc *service.SearchService, log *logrus.Logger) *SearchHandler {
	return &SearchHandler{svc: svc, log: log}
}

type searchRequest struct {
	Query      string          `json:"query"`
	Collection string          `json:"collection"`
	Filter     models.Metadata `json:"metadata_filter"`
	Limit      int             `json:"limit"`
	Threshold  float64         `json:"threshold"`
}

// Semantic handles POST /api/v1/search. An empty hit list is a normal
// response, never an error.
func (h *SearchHandler) Semantic(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	hits, err := h.svc.Search(c.Request.Context(), service.SearchRequest{
		Collection: req.Collection,
		Query:      req.Query,
		Filter:     req.Filter,
		Limit:      req.Limit,
		Threshold:  req.Threshold,
	})
	if err != nil {
		h.log.WithError(err).WithField("collection", req.Collection).Error("semantic search failed")
		respondDomainError(c, err)

		return
	}

	if hits == nil {
		hits = []models.ScoredChunk{}
	}

	c.JSON(http.StatusOK, gin.H{"results": hits})
}

type graphSearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// Relationships handles POST /api/v1/search/relationships.
func (h *SearchHandler) Relationships(c *gin.Context) {
	var req graphSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	hits, err := h.svc.SearchRelationships(c.Request.Context(), req.Query, req.Limit)
	if err != nil {
		h.log.WithError(err).Error("relationship search failed")
		respondDomainError(c, err)

		return
	}

	if hits == nil {
		hits = []models.RelationshipHit{}
	}

	c.JSON(http.StatusOK, gin.H{"results": hits})
}

// Temporal handles POST /api/v1/search/temporal.
func (h *SearchHandler) Temporal(c *gin.Context) {
	var req graphSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	facts, err := h.svc.QueryTemporal(c.Request.Context(), req.Query, req.Limit)
	if err != nil {
		h.log.WithError(err).Error("temporal query failed")
		respondDomainError(c, err)

		return
	}

	if facts == nil {
		facts = []models.TemporalFact{}
	}

	c.JSON(http.StatusOK, gin.H{"results": facts})
}
