package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codingthefuturewithai/rag-memory-sub001/internal/models"
)

// SemanticStore is the data-access interface SearchService depends on.
type SemanticStore interface {
	SemanticSearch(
		ctx context.Context,
		collectionID uuid.UUID,
		embedding []float32,
		filter models.Metadata,
		limit int,
		threshold float64,
	) ([]models.ScoredChunk, error)
}

// GraphSearcher exposes knowledge-graph retrieval. A nil GraphSearcher means
// graph support is disabled and graph queries report that plainly.
type GraphSearcher interface {
	SearchRelationships(ctx context.Context, query string, limit int) ([]models.RelationshipHit, error)
	QueryTemporal(ctx context.Context, query string, limit int) ([]models.TemporalFact, error)
}

// SearchRequest is one semantic search call against a collection.
type SearchRequest struct {
	Collection string
	Query      string
	Filter     models.Metadata
	Limit      int
	Threshold  float64
}

// SearchService embeds query text and retrieves chunks by similarity, with
// conjunctive equality filtering over chunk metadata.
type SearchService struct {
	collections CollectionResolver
	store       SemanticStore
	embedder    Embedder
	graph       GraphSearcher
	log         *logrus.Logger
}

// NewSearchService creates a SearchService. graph may be nil.
func NewSearchService(
	collections CollectionResolver,
	store SemanticStore,
	embedder Embedder,
	graph GraphSearcher,
	log *logrus.Logger,
) *SearchService {
	return &SearchService{
		collections: collections,
		store:       store,
		embedder:    embedder,
		graph:       graph,
		log:         log,
	}
}

// Search embeds the query text and returns chunks ordered by descending
// similarity. An empty result set is a valid answer, not an error.
func (s *SearchService) Search(ctx context.Context, req SearchRequest) ([]models.ScoredChunk, error) {
	if req.Query == "" {
		return nil, models.ErrMissingContent
	}

	col, err := s.collections.GetByName(ctx, req.Collection)
	if err != nil {
		return nil, err
	}

	embedding, err := s.embedder.Generate(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := s.store.SemanticSearch(ctx, col.ID, embedding, req.Filter, req.Limit, req.Threshold)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"collection": col.Name,
		"hits":       len(hits),
		"filter":     len(req.Filter),
	}).Debug("search.semantic")

	return hits, nil
}

// SearchRelationships passes the query through to the graph engine.
func (s *SearchService) SearchRelationships(ctx context.Context, query string, limit int) ([]models.RelationshipHit, error) {
	if s.graph == nil {
		return nil, fmt.Errorf("graph support is disabled")
	}

	if query == "" {
		return nil, models.ErrMissingContent
	}

	return s.graph.SearchRelationships(ctx, query, limit)
}

// QueryTemporal passes the query through to the graph engine's temporal index.
func (s *SearchService) QueryTemporal(ctx context.Context, query string, limit int) ([]models.TemporalFact, error) {
	if s.graph == nil {
		return nil, fmt.Errorf("graph support is disabled")
	}

	if query == "" {
		return nil, models.ErrMissingContent
	}

	return s.graph.QueryTemporal(ctx, query, limit)
}
