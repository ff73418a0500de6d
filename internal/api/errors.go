package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codingthefuturewithai/rag-memory-sub001/internal/metrics"
	"github.com/codingthefuturewithai/rag-memory-sub001/internal/models"
)

// Error code constants for standardized API responses.
const (
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeDuplicate        = "duplicate"
	ErrCodeReingestAborted  = "reingest_aborted"
	ErrCodeDeletionFailed   = "deletion_failed"
	ErrCodeInternalError    = "internal_error"
	ErrCodeValidationError  = "validation_error"
	ErrCodeGraphUnavailable = "graph_unavailable"
)

// respondError writes a standardized JSON error response, pulling the request
// ID from the Gin context (set by the request ID middleware).
func respondError(c *gin.Context, status int, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()

	var requestID string
	if rid, exists := c.Get("request_id"); exists {
		if s, ok := rid.(string); ok {
			requestID = s
		}
	}

	resp := map[string]string{
		"code":    code,
		"message": message,
	}

	if requestID != "" {
		resp["request_id"] = requestID
	}

	c.AbortWithStatusJSON(status, resp)
}

// respondDomainError maps the error taxonomy onto HTTP statuses. Deletion
// failures and reingest aborts keep their full message, which carries the
// identifying key and collection name an operator needs to reconcile the
// affected record by hand.
func respondDomainError(c *gin.Context, err error) {
	var (
		dupContent *models.DuplicateContentError
		dupCrawl   *models.DuplicateCrawlError
		aborted    *models.ReingestAbortedError
		deletion   *models.DeletionError
	)

	switch {
	case errors.Is(err, models.ErrCollectionNotFound):
		respondError(c, http.StatusNotFound, ErrCodeNotFound, "collection not found")
	case errors.Is(err, models.ErrDocumentNotFound):
		respondError(c, http.StatusNotFound, ErrCodeNotFound, "document not found")
	case errors.As(err, &dupContent):
		respondError(c, http.StatusConflict, ErrCodeDuplicate, dupContent.Error())
	case errors.As(err, &dupCrawl):
		respondError(c, http.StatusConflict, ErrCodeDuplicate, dupCrawl.Error())
	case errors.Is(err, models.ErrDuplicateKey):
		respondError(c, http.StatusConflict, ErrCodeDuplicate, "already exists")
	case errors.As(err, &aborted):
		respondError(c, http.StatusInternalServerError, ErrCodeReingestAborted, aborted.Error())
	case errors.As(err, &deletion):
		respondError(c, http.StatusInternalServerError, ErrCodeDeletionFailed, deletion.Error())
	case isValidationError(err):
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
	}
}

func isValidationError(err error) bool {
	return errors.Is(err, models.ErrMissingName) ||
		errors.Is(err, models.ErrMissingDomain) ||
		errors.Is(err, models.ErrMissingContent) ||
		errors.Is(err, models.ErrMissingKey) ||
		errors.Is(err, models.ErrInvalidMode)
}
