package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/codingthefuturewithai/rag-memory-sub001/internal/models"
)

// DocumentStore handles source document and chunk persistence. It owns the
// dedup primitive: the UNIQUE (collection_id, identifying_key) constraint,
// surfaced as models.ErrDuplicateKey.
type DocumentStore struct {
	Base
}

// NewDocumentStore creates a new DocumentStore.
func NewDocumentStore(base Base) *DocumentStore {
	return &DocumentStore{Base: base}
}

const documentColumns = `d.id, d.collection_id, c.name, d.identifying_key, d.source_type,
	d.title, d.content_sha256, d.metadata, d.created_at,
	(SELECT COUNT(*) FROM chunks ch WHERE ch.source_document_id = d.id)`

func scanDocument(scan func(...any) error) (*models.SourceDocument, error) {
	var (
		d       models.SourceDocument
		rawMeta []byte
	)

	if err := scan(&d.ID, &d.CollectionID, &d.CollectionName, &d.IdentifyingKey, &d.SourceType,
		&d.Title, &d.ContentSHA256, &rawMeta, &d.CreatedAt, &d.ChunkCount); err != nil {
		return nil, err
	}

	md, err := unmarshalMetadata(rawMeta)
	if err != nil {
		return nil, err
	}

	d.Metadata = md

	return &d, nil
}

// CreateWithChunks persists a document and all of its chunks in a single
// transaction, so no other process can observe a half-written document.
// A unique violation on (collection_id, identifying_key) is returned as
// models.ErrDuplicateKey; the caller decides whether that is a duplicate or
// a reingest race lost.
func (s *DocumentStore) CreateWithChunks(ctx context.Context, doc *models.SourceDocument, chunks []models.Chunk) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx)
	if err != nil {
		return fmt.Errorf("creating document: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	docMeta, err := marshalMetadata(doc.Metadata)
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO source_documents (id, collection_id, identifying_key, source_type, title, content_sha256, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		doc.ID, doc.CollectionID, doc.IdentifyingKey, doc.SourceType, doc.Title, doc.ContentSHA256, docMeta,
	).Scan(&doc.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrDuplicateKey
		}

		return fmt.Errorf("inserting document: %w", err)
	}

	for i := range chunks {
		ch := &chunks[i]
		ch.SourceDocumentID = doc.ID

		chunkMeta, err := marshalMetadata(ch.Metadata)
		if err != nil {
			return err
		}

		err = tx.QueryRow(ctx,
			`INSERT INTO chunks (source_document_id, ordinal, content, embedding, metadata)
			 VALUES ($1, $2, $3, $4::vector, $5)
			 RETURNING id`,
			doc.ID, ch.Ordinal, ch.Content, formatEmbedding(ch.Embedding), chunkMeta,
		).Scan(&ch.ID)
		if err != nil {
			return fmt.Errorf("inserting chunk %d: %w", ch.Ordinal, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing document create: %w", err)
	}

	doc.ChunkCount = len(chunks)

	return nil
}

// GetByID returns a document by id, or models.ErrDocumentNotFound.
func (s *DocumentStore) GetByID(ctx context.Context, id uuid.UUID) (*models.SourceDocument, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := s.Pool.QueryRow(ctx,
		`SELECT `+documentColumns+`
		 FROM source_documents d
		 JOIN collections c ON c.id = d.collection_id
		 WHERE d.id = $1`, id)

	d, err := scanDocument(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDocumentNotFound
		}

		return nil, fmt.Errorf("scanning document: %w", err)
	}

	return d, nil
}

// GetByKey returns the document holding identifyingKey within a collection,
// or models.ErrDocumentNotFound. This is the dedup lookup; callers must not
// cache the result across a delete-then-create sequence.
func (s *DocumentStore) GetByKey(ctx context.Context, collectionID uuid.UUID, identifyingKey string) (*models.SourceDocument, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := s.Pool.QueryRow(ctx,
		`SELECT `+documentColumns+`
		 FROM source_documents d
		 JOIN collections c ON c.id = d.collection_id
		 WHERE d.collection_id = $1 AND d.identifying_key = $2`,
		collectionID, identifyingKey)

	d, err := scanDocument(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDocumentNotFound
		}

		return nil, fmt.Errorf("scanning document by key: %w", err)
	}

	return d, nil
}

// ListByCrawlRoot returns every document in the collection whose metadata
// carries the given crawl_root_url, regardless of session or depth. Documents
// from other collections are never returned.
func (s *DocumentStore) ListByCrawlRoot(ctx context.Context, collectionID uuid.UUID, rootURL string) ([]models.SourceDocument, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx,
		`SELECT `+documentColumns+`
		 FROM source_documents d
		 JOIN collections c ON c.id = d.collection_id
		 WHERE d.collection_id = $1 AND d.metadata->>$2 = $3
		 ORDER BY d.created_at`,
		collectionID, models.MetaKeyCrawlRootURL, rootURL)
	if err != nil {
		return nil, fmt.Errorf("listing documents by crawl root: %w", err)
	}
	defer rows.Close()

	return collectDocuments(rows)
}

// ListByCollection returns all documents in a collection, ordered by creation time.
func (s *DocumentStore) ListByCollection(ctx context.Context, collectionID uuid.UUID, limit int) ([]models.SourceDocument, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := s.Pool.Query(ctx,
		`SELECT `+documentColumns+`
		 FROM source_documents d
		 JOIN collections c ON c.id = d.collection_id
		 WHERE d.collection_id = $1
		 ORDER BY d.created_at
		 LIMIT $2`, collectionID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	return collectDocuments(rows)
}

func collectDocuments(rows pgx.Rows) ([]models.SourceDocument, error) {
	var out []models.SourceDocument

	for rows.Next() {
		d, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}

		out = append(out, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document rows: %w", err)
	}

	return out, nil
}

// GetChunks returns a document's chunks in insertion order.
func (s *DocumentStore) GetChunks(ctx context.Context, documentID uuid.UUID) ([]models.Chunk, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx,
		`SELECT id, source_document_id, ordinal, content, metadata
		 FROM chunks
		 WHERE source_document_id = $1
		 ORDER BY ordinal`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var out []models.Chunk

	for rows.Next() {
		var (
			ch      models.Chunk
			rawMeta []byte
		)

		if err := rows.Scan(&ch.ID, &ch.SourceDocumentID, &ch.Ordinal, &ch.Content, &rawMeta); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}

		md, err := unmarshalMetadata(rawMeta)
		if err != nil {
			return nil, err
		}

		ch.Metadata = md
		out = append(out, ch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return out, nil
}

// Delete removes a document by id; its chunks are removed by ON DELETE
// CASCADE in the same statement's transaction.
func (s *DocumentStore) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tag, err := s.Pool.Exec(ctx, `DELETE FROM source_documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("executing document delete: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return models.ErrDocumentNotFound
	}

	return nil
}
