package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codingthefuturewithai/rag-memory-sub001/internal/metrics"
	"github.com/codingthefuturewithai/rag-memory-sub001/internal/models"
)

// CollectionResolver looks collections up by name.
type CollectionResolver interface {
	GetByName(ctx context.Context, name string) (*models.Collection, error)
}

// MediatorDocumentStore is the data-access interface Mediator depends on.
type MediatorDocumentStore interface {
	CreateWithChunks(ctx context.Context, doc *models.SourceDocument, chunks []models.Chunk) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.SourceDocument, error)
	GetByKey(ctx context.Context, collectionID uuid.UUID, identifyingKey string) (*models.SourceDocument, error)
}

// GraphEnricher creates knowledge-graph episodes for committed documents.
// A nil GraphEnricher means graph support is disabled and enrichment is skipped.
type GraphEnricher interface {
	AddDocumentEpisode(ctx context.Context, doc *models.SourceDocument, content string) (int, error)
}

// IngestRequest carries one document into the mediator.
type IngestRequest struct {
	Collection     string
	IdentifyingKey string
	Title          string
	Content        string
	SourceType     models.SourceType
	Mode           models.IngestMode
	Metadata       models.Metadata
}

// Validate checks the request fields the mediator cannot default.
func (r *IngestRequest) Validate() error {
	if r.Collection == "" {
		return models.ErrMissingName
	}

	if r.IdentifyingKey == "" {
		return models.ErrMissingKey
	}

	if r.Content == "" {
		return models.ErrMissingContent
	}

	if !r.Mode.Valid() {
		return models.ErrInvalidMode
	}

	return nil
}

// Mediator decides new-vs-duplicate for every ingestion and drives the two
// stores in fixed order: existing-record check, deletion on reingest, chunked
// document persist, then graph episode creation. All ingestion paths (text,
// file, directory, crawl) funnel through Ingest so the ordering and the
// abort-on-deletion-failure rule hold everywhere.
type Mediator struct {
	collections CollectionResolver
	documents   MediatorDocumentStore
	deleter     *Deleter
	embedder    Embedder
	chunker     *Chunker
	graph       GraphEnricher
	log         *logrus.Logger
}

// NewMediator creates a Mediator. graph may be nil when graph support is disabled.
func NewMediator(
	collections CollectionResolver,
	documents MediatorDocumentStore,
	deleter *Deleter,
	embedder Embedder,
	chunker *Chunker,
	graph GraphEnricher,
	log *logrus.Logger,
) *Mediator {
	return &Mediator{
		collections: collections,
		documents:   documents,
		deleter:     deleter,
		embedder:    embedder,
		chunker:     chunker,
		graph:       graph,
		log:         log,
	}
}

// Ingest runs the full ingestion sequence for one document.
//
// The existence check always goes to the store of record; no cached identity
// survives across calls. When a concurrent reingest wins the race between our
// check and our insert, the unique constraint on (collection, identifying key)
// fires and the violation is reported as DuplicateContent rather than a
// storage fault.
//
// Graph enrichment runs after the document commit and its failure does not
// roll the document back. The result carries a warning instead; the document
// side stays valid and searchable until a reingest reconciles the two stores.
func (m *Mediator) Ingest(ctx context.Context, req IngestRequest) (*models.IngestResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	col, err := m.collections.GetByName(ctx, req.Collection)
	if err != nil {
		return nil, err
	}

	md := col.Stamp(req.Metadata)
	contentHash := hashContent(req.Content)

	existing, err := m.documents.GetByKey(ctx, col.ID, req.IdentifyingKey)

	switch {
	case err == nil:
		if req.Mode == models.ModeIngest {
			metrics.IngestionsTotal.WithLabelValues(string(req.Mode), "duplicate").Inc()

			return nil, &models.DuplicateContentError{
				Collection:     col.Name,
				IdentifyingKey: req.IdentifyingKey,
				ExistingID:     existing.ID,
			}
		}

		if existing.ContentSHA256 == contentHash {
			m.log.WithFields(logrus.Fields{
				"collection":      col.Name,
				"identifying_key": req.IdentifyingKey,
			}).Info("mediator.reingest_content_unchanged")
		}

		if err := m.deleter.Delete(ctx, existing); err != nil {
			metrics.IngestionsTotal.WithLabelValues(string(req.Mode), "aborted").Inc()

			return nil, &models.ReingestAbortedError{
				Collection:     col.Name,
				IdentifyingKey: req.IdentifyingKey,
				Err:            err,
			}
		}
	case errors.Is(err, models.ErrDocumentNotFound):
		// New document, proceed.
	default:
		return nil, err
	}

	doc := &models.SourceDocument{
		ID:             uuid.New(),
		CollectionID:   col.ID,
		CollectionName: col.Name,
		IdentifyingKey: req.IdentifyingKey,
		SourceType:     req.SourceType,
		Title:          req.Title,
		ContentSHA256:  contentHash,
		Metadata:       md,
		CreatedAt:      time.Now().UTC(),
	}

	chunks, err := m.buildChunks(ctx, doc.ID, req.Content, md)
	if err != nil {
		metrics.IngestionsTotal.WithLabelValues(string(req.Mode), "error").Inc()

		return nil, err
	}

	if err := m.documents.CreateWithChunks(ctx, doc, chunks); err != nil {
		if errors.Is(err, models.ErrDuplicateKey) {
			// A concurrent ingest for the same key committed between our
			// existence check and this insert. The constraint is the
			// serialization point; report it as a duplicate, not a fault.
			metrics.IngestionsTotal.WithLabelValues(string(req.Mode), "duplicate").Inc()

			return nil, m.raceLost(ctx, col, req.IdentifyingKey)
		}

		metrics.IngestionsTotal.WithLabelValues(string(req.Mode), "error").Inc()

		return nil, err
	}

	metrics.ChunksPersisted.Add(float64(len(chunks)))

	result := &models.IngestResult{
		SourceDocumentID: doc.ID,
		IdentifyingKey:   req.IdentifyingKey,
		Collection:       col.Name,
		ChunkCount:       len(chunks),
	}

	if m.graph != nil {
		entities, err := m.graph.AddDocumentEpisode(ctx, doc, req.Content)
		if err != nil {
			metrics.GraphEnrichmentFailures.Inc()
			enrichErr := &models.GraphEnrichmentError{DocumentID: doc.ID, Err: err}
			m.log.WithFields(logrus.Fields{
				"document_id": doc.ID,
				"collection":  col.Name,
			}).WithError(err).Warn("mediator.graph_enrichment_failed")

			result.Warning = enrichErr.Error()
		} else {
			result.EntitiesExtracted = entities
		}
	}

	metrics.IngestionsTotal.WithLabelValues(string(req.Mode), "success").Inc()
	m.log.WithFields(logrus.Fields{
		"document_id":     doc.ID,
		"collection":      col.Name,
		"identifying_key": req.IdentifyingKey,
		"chunks":          len(chunks),
		"entities":        result.EntitiesExtracted,
	}).Info("mediator.document_ingested")

	return result, nil
}

// DeleteDocument is the public alias of the centralized deletion procedure for
// explicit user-initiated deletes.
func (m *Mediator) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	doc, err := m.documents.GetByID(ctx, id)
	if err != nil {
		return err
	}

	return m.deleter.Delete(ctx, doc)
}

// buildChunks splits the document content and embeds each chunk. Chunk
// metadata copies the stamped document metadata so search filters apply at
// chunk granularity.
func (m *Mediator) buildChunks(ctx context.Context, docID uuid.UUID, content string, md models.Metadata) ([]models.Chunk, error) {
	texts := m.chunker.Split(content)
	if len(texts) == 0 {
		return nil, models.ErrMissingContent
	}

	chunks := make([]models.Chunk, 0, len(texts))

	for i, text := range texts {
		embedding, err := m.embedder.Generate(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding chunk %d: %w", i, err)
		}

		chunks = append(chunks, models.Chunk{
			ID:               uuid.New(),
			SourceDocumentID: docID,
			Ordinal:          i,
			Content:          text,
			Embedding:        embedding,
			Metadata:         md.Clone(),
		})
	}

	return chunks, nil
}

// raceLost builds the DuplicateContentError for an insert that lost a
// concurrent race, naming the winner's id when it can still be resolved.
func (m *Mediator) raceLost(ctx context.Context, col *models.Collection, key string) error {
	dup := &models.DuplicateContentError{Collection: col.Name, IdentifyingKey: key}

	if winner, err := m.documents.GetByKey(ctx, col.ID, key); err == nil {
		dup.ExistingID = winner.ID
	}

	return dup
}

func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))

	return hex.EncodeToString(sum[:])
}
