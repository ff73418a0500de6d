package models

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors for validation.
var (
	ErrMissingName    = errors.New("name is required")
	ErrMissingDomain  = errors.New("domain is required")
	ErrMissingContent = errors.New("content is required")
	ErrMissingKey     = errors.New("identifying key is required")
	ErrInvalidMode    = errors.New("mode must be ingest or reingest")
)

// Sentinel errors for entity lookups.
var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrDocumentNotFound   = errors.New("document not found")
)

// ErrDuplicateKey indicates a unique constraint violation at the store layer.
// The mediator treats it during document creation as a reingest race lost,
// equivalent to a duplicate, not a bug.
var ErrDuplicateKey = errors.New("duplicate key")

// ErrFieldTooLong returns an error indicating a field exceeds its maximum length.
func ErrFieldTooLong(field string, maxLen int) error {
	return fmt.Errorf("%s exceeds maximum length of %d", field, maxLen)
}

// DuplicateContentError reports that a document with the same identifying key
// already exists in the collection. Recoverable: retry with mode=reingest.
type DuplicateContentError struct {
	Collection     string
	IdentifyingKey string
	ExistingID     uuid.UUID
}

func (e *DuplicateContentError) Error() string {
	return fmt.Sprintf("document %q already exists in collection %q (id %s); use mode=reingest to replace it",
		e.IdentifyingKey, e.Collection, e.ExistingID)
}

// DuplicateCrawlError reports that pages from the same root URL already exist
// in the collection. Recoverable: retry with mode=reingest.
type DuplicateCrawlError struct {
	Collection string
	RootURL    string
}

func (e *DuplicateCrawlError) Error() string {
	return fmt.Sprintf("pages from %q already exist in collection %q; use mode=reingest to replace them",
		e.RootURL, e.Collection)
}

// DeletionStage identifies which step of the centralized deletion procedure failed.
type DeletionStage string

// Deletion stages, in execution order.
const (
	StageGraph  DeletionStage = "graph"
	StageStore  DeletionStage = "store"
	StageVerify DeletionStage = "verify"
)

// DeletionError is a fatal failure of the centralized deletion procedure.
// It always carries the identifying key and collection name so an operator
// can locate and manually reconcile the affected record. A StageVerify error
// means the delete reported success but the document is still resolvable,
// which would allow a duplicate to be created next; it must never be ignored.
type DeletionError struct {
	Stage          DeletionStage
	DocumentID     uuid.UUID
	Collection     string
	IdentifyingKey string
	Err            error
}

func (e *DeletionError) Error() string {
	switch e.Stage {
	case StageGraph:
		return fmt.Sprintf("graph deletion failed for document %s (key %q, collection %q): %v",
			e.DocumentID, e.IdentifyingKey, e.Collection, e.Err)
	case StageStore:
		return fmt.Sprintf("store deletion failed for document %s (key %q, collection %q): %v",
			e.DocumentID, e.IdentifyingKey, e.Collection, e.Err)
	case StageVerify:
		return fmt.Sprintf("CRITICAL: deletion did not take effect for document %s (key %q, collection %q)",
			e.DocumentID, e.IdentifyingKey, e.Collection)
	}

	return fmt.Sprintf("deletion failed for document %s: %v", e.DocumentID, e.Err)
}

func (e *DeletionError) Unwrap() error { return e.Err }

// ReingestAbortedError reports that a reingest stopped before creating any new
// records because deleting the existing document failed. The caller must
// retry the whole operation.
type ReingestAbortedError struct {
	Collection     string
	IdentifyingKey string
	Err            error
}

func (e *ReingestAbortedError) Error() string {
	return fmt.Sprintf("reingest of %q in collection %q aborted, no new records created: %v",
		e.IdentifyingKey, e.Collection, e.Err)
}

func (e *ReingestAbortedError) Unwrap() error { return e.Err }

// GraphEnrichmentError is the non-fatal failure of episode creation after the
// document side has committed. The document remains valid and searchable.
type GraphEnrichmentError struct {
	DocumentID uuid.UUID
	Err        error
}

func (e *GraphEnrichmentError) Error() string {
	return fmt.Sprintf("graph enrichment failed for document %s: %v", e.DocumentID, e.Err)
}

func (e *GraphEnrichmentError) Unwrap() error { return e.Err }
