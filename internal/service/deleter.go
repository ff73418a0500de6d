package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codingthefuturewithai/rag-memory-sub001/internal/metrics"
	"github.com/codingthefuturewithai/rag-memory-sub001/internal/models"
)

// DeleterDocumentStore is the data-access interface Deleter depends on.
type DeleterDocumentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.SourceDocument, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// GraphDeleter removes a document's knowledge-graph episode. A nil GraphDeleter
// means graph support is disabled and the graph stage is skipped.
type GraphDeleter interface {
	DeleteDocumentEpisode(ctx context.Context, documentID uuid.UUID, collectionName string) error
}

// Deleter is the single place document deletion happens. Every caller that
// removes a document (explicit delete, reingest replacement, crawl refresh,
// collection teardown) goes through Delete so the graph-then-store ordering
// and the read-back verification cannot be skipped.
type Deleter struct {
	documents DeleterDocumentStore
	graph     GraphDeleter
	log       *logrus.Logger
}

// NewDeleter creates a Deleter. graph may be nil when graph support is disabled.
func NewDeleter(documents DeleterDocumentStore, graph GraphDeleter, log *logrus.Logger) *Deleter {
	return &Deleter{documents: documents, graph: graph, log: log}
}

// Delete removes doc from both stores: graph episode first, then the document
// row (chunks cascade). The order matters because the episode name is derived
// from the document ID; deleting the row first would orphan the episode with
// no record pointing at it.
//
// After the store delete, the document is read back to confirm removal. A
// document still resolvable after a successful delete would let a fresh
// ingest under the same key create a true duplicate, so verification failure
// is fatal and must surface to the caller.
func (d *Deleter) Delete(ctx context.Context, doc *models.SourceDocument) error {
	fields := logrus.Fields{
		"document_id":     doc.ID,
		"collection":      doc.CollectionName,
		"identifying_key": doc.IdentifyingKey,
	}

	if d.graph != nil {
		if err := d.graph.DeleteDocumentEpisode(ctx, doc.ID, doc.CollectionName); err != nil {
			metrics.DeletionFailures.WithLabelValues(string(models.StageGraph)).Inc()
			d.log.WithFields(fields).WithError(err).Error("deleter.graph_stage_failed")

			return &models.DeletionError{
				Stage:          models.StageGraph,
				DocumentID:     doc.ID,
				Collection:     doc.CollectionName,
				IdentifyingKey: doc.IdentifyingKey,
				Err:            err,
			}
		}
	}

	if err := d.documents.Delete(ctx, doc.ID); err != nil {
		// A concurrent delete winning the race leaves the desired end
		// state; verification below still runs.
		if !errors.Is(err, models.ErrDocumentNotFound) {
			metrics.DeletionFailures.WithLabelValues(string(models.StageStore)).Inc()
			d.log.WithFields(fields).WithError(err).Error("deleter.store_stage_failed")

			return &models.DeletionError{
				Stage:          models.StageStore,
				DocumentID:     doc.ID,
				Collection:     doc.CollectionName,
				IdentifyingKey: doc.IdentifyingKey,
				Err:            err,
			}
		}
	}

	if err := d.verify(ctx, doc.ID); err != nil {
		metrics.DeletionFailures.WithLabelValues(string(models.StageVerify)).Inc()
		d.log.WithFields(fields).WithError(err).Error("deleter.verify_stage_failed")

		return &models.DeletionError{
			Stage:          models.StageVerify,
			DocumentID:     doc.ID,
			Collection:     doc.CollectionName,
			IdentifyingKey: doc.IdentifyingKey,
			Err:            err,
		}
	}

	d.log.WithFields(fields).Info("deleter.document_deleted")

	return nil
}

// verify reads the document back and succeeds only when the lookup reports
// not-found.
func (d *Deleter) verify(ctx context.Context, id uuid.UUID) error {
	_, err := d.documents.GetByID(ctx, id)

	switch {
	case errors.Is(err, models.ErrDocumentNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("verifying deletion: %w", err)
	default:
		return fmt.Errorf("document %s still resolvable after delete", id)
	}
}
