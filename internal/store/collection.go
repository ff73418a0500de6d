package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/codingthefuturewithai/rag-memory-sub001/internal/models"
)

// CollectionStore handles collection lifecycle operations.
type CollectionStore struct {
	Base
}

// NewCollectionStore creates a new CollectionStore.
func NewCollectionStore(base Base) *CollectionStore {
	return &CollectionStore{Base: base}
}

const collectionColumns = "id, name, description, domain, domain_scope, created_at"

func scanCollection(scan func(...any) error) (*models.Collection, error) {
	var c models.Collection

	if err := scan(&c.ID, &c.Name, &c.Description, &c.Domain, &c.DomainScope, &c.CreatedAt); err != nil {
		return nil, err
	}

	return &c, nil
}

// Create inserts a new collection and returns the created record.
func (s *CollectionStore) Create(ctx context.Context, req models.CreateCollectionRequest) (*models.Collection, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := s.Pool.QueryRow(ctx,
		`INSERT INTO collections (name, description, domain, domain_scope)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+collectionColumns,
		req.Name, req.Description, req.Domain, req.DomainScope,
	)

	c, err := scanCollection(row.Scan)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, models.ErrDuplicateKey
		}

		return nil, fmt.Errorf("scanning created collection: %w", err)
	}

	return c, nil
}

// GetByName returns a collection by its unique name.
func (s *CollectionStore) GetByName(ctx context.Context, name string) (*models.Collection, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := s.Pool.QueryRow(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE name = $1`, name)

	c, err := scanCollection(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrCollectionNotFound
		}

		return nil, fmt.Errorf("scanning collection: %w", err)
	}

	return c, nil
}

// List returns all collections with document and chunk counts, ordered by name.
func (s *CollectionStore) List(ctx context.Context) ([]models.CollectionSummary, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx,
		`SELECT c.id, c.name, c.description, c.domain, c.domain_scope, c.created_at,
			COUNT(DISTINCT d.id) AS document_count,
			COUNT(ch.id) AS chunk_count
		 FROM collections c
		 LEFT JOIN source_documents d ON d.collection_id = c.id
		 LEFT JOIN chunks ch ON ch.source_document_id = d.id
		 GROUP BY c.id
		 ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	defer rows.Close()

	var out []models.CollectionSummary

	for rows.Next() {
		var cs models.CollectionSummary
		if err := rows.Scan(&cs.ID, &cs.Name, &cs.Description, &cs.Domain, &cs.DomainScope,
			&cs.CreatedAt, &cs.DocumentCount, &cs.ChunkCount); err != nil {
			return nil, fmt.Errorf("scanning collection summary: %w", err)
		}

		out = append(out, cs)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating collections: %w", err)
	}

	return out, nil
}

// Delete removes a collection by id. Member documents and their chunks are
// removed by ON DELETE CASCADE.
func (s *CollectionStore) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tag, err := s.Pool.Exec(ctx, `DELETE FROM collections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("executing collection delete: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return models.ErrCollectionNotFound
	}

	return nil
}
