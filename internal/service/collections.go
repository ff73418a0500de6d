package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codingthefuturewithai/rag-memory-sub001/internal/models"
)

// CollectionAdminStore is the data-access interface CollectionService depends on.
type CollectionAdminStore interface {
	Create(ctx context.Context, req models.CreateCollectionRequest) (*models.Collection, error)
	GetByName(ctx context.Context, name string) (*models.Collection, error)
	List(ctx context.Context) ([]models.CollectionSummary, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CollectionDocumentLister pages through a collection's documents for teardown.
type CollectionDocumentLister interface {
	ListByCollection(ctx context.Context, collectionID uuid.UUID, limit int) ([]models.SourceDocument, error)
}

// CollectionService manages collection lifecycle. Deletion tears down every
// member document through the centralized procedure so graph episodes are
// removed before the store cascade drops the rows.
type CollectionService struct {
	collections CollectionAdminStore
	documents   CollectionDocumentLister
	deleter     *Deleter
	log         *logrus.Logger
}

// NewCollectionService creates a CollectionService.
func NewCollectionService(
	collections CollectionAdminStore,
	documents CollectionDocumentLister,
	deleter *Deleter,
	log *logrus.Logger,
) *CollectionService {
	return &CollectionService{
		collections: collections,
		documents:   documents,
		deleter:     deleter,
		log:         log,
	}
}

// Create validates and persists a new collection.
func (s *CollectionService) Create(ctx context.Context, req models.CreateCollectionRequest) (*models.Collection, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	col, err := s.collections.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"collection": col.Name,
		"domain":     col.Domain,
	}).Info("collections.created")

	return col, nil
}

// Get returns a collection by name.
func (s *CollectionService) Get(ctx context.Context, name string) (*models.Collection, error) {
	return s.collections.GetByName(ctx, name)
}

// List returns all collections with their document and chunk counts.
func (s *CollectionService) List(ctx context.Context) ([]models.CollectionSummary, error) {
	return s.collections.List(ctx)
}

// Delete removes a collection and everything in it. Each document goes
// through the centralized deletion procedure first; a failure there stops the
// teardown with the collection still present, so no graph episode is orphaned
// by a premature row cascade.
func (s *CollectionService) Delete(ctx context.Context, name string) error {
	col, err := s.collections.GetByName(ctx, name)
	if err != nil {
		return err
	}

	const batchSize = 500

	for {
		docs, err := s.documents.ListByCollection(ctx, col.ID, batchSize)
		if err != nil {
			return err
		}

		if len(docs) == 0 {
			break
		}

		for i := range docs {
			if err := s.deleter.Delete(ctx, &docs[i]); err != nil {
				return err
			}
		}
	}

	if err := s.collections.Delete(ctx, col.ID); err != nil {
		return err
	}

	s.log.WithField("collection", col.Name).Info("collections.deleted")

	return nil
}
