package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/codingthefuturewithai/rag-memory-sub001/internal/models"
)

// SearchStore handles similarity search over persisted chunks.
type SearchStore struct {
	Base
}

// NewSearchStore creates a new SearchStore.
func NewSearchStore(base Base) *SearchStore {
	return &SearchStore{Base: base}
}

// SemanticSearch finds chunks in one collection similar to the given
// embedding, applying conjunctive equality filters over chunk metadata.
// Results are ordered by descending similarity with ties broken by chunk
// insertion order, and results below threshold are dropped. An empty result
// set is valid, not an error.
func (s *SearchStore) SemanticSearch(
	ctx context.Context,
	collectionID uuid.UUID,
	embedding []float32,
	filter models.Metadata,
	limit int,
	threshold float64,
) ([]models.ScoredChunk, error) {
	if limit <= 0 {
		limit = 10
	}

	if limit > maxListLimit {
		limit = maxListLimit
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // read-only tx, rollback is cleanup.

	sql := `SELECT ch.id, ch.source_document_id, ch.ordinal, ch.content, ch.metadata,
			1 - (ch.embedding <=> $1::vector) AS similarity
		FROM chunks ch
		JOIN source_documents d ON d.id = ch.source_document_id
		WHERE d.collection_id = $2 AND ch.embedding IS NOT NULL`

	args := []any{formatEmbedding(embedding), collectionID}
	argIdx := 3

	filterSQL, filterArgs, err := buildMetadataFilter(filter, &argIdx)
	if err != nil {
		return nil, err
	}

	sql += filterSQL
	args = append(args, filterArgs...)

	sql += fmt.Sprintf(` ORDER BY ch.embedding <=> $1::vector, ch.ordinal LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("executing semantic search: %w", err)
	}
	defer rows.Close()

	scored := make([]models.ScoredChunk, 0, limit)

	for rows.Next() {
		var (
			sc      models.ScoredChunk
			rawMeta []byte
		)

		if err := rows.Scan(&sc.ID, &sc.SourceDocumentID, &sc.Ordinal, &sc.Content, &rawMeta, &sc.Similarity); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}

		md, err := unmarshalMetadata(rawMeta)
		if err != nil {
			return nil, err
		}

		sc.Metadata = md

		if sc.Similarity < threshold {
			continue
		}

		scored = append(scored, sc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing semantic search: %w", err)
	}

	return scored, nil
}

// buildMetadataFilter renders conjunctive jsonb equality clauses for each
// filter key, in sorted key order for deterministic SQL. Comparison uses
// exact JSON equality, so absent fields never match a non-null filter value.
func buildMetadataFilter(filter models.Metadata, argIdx *int) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	var (
		sql  string
		args []any
	)

	for _, k := range keys {
		val, err := json.Marshal(filter[k])
		if err != nil {
			return "", nil, fmt.Errorf("encoding filter value for %q: %w", k, err)
		}

		sql += fmt.Sprintf(" AND ch.metadata->$%d = $%d::jsonb", *argIdx, *argIdx+1)
		args = append(args, k, string(val))
		*argIdx += 2
	}

	return sql, args, nil
}
