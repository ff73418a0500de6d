package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codingthefuturewithai/rag-memory-sub001/internal/models"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func testCollection() *models.Collection {
	return &models.Collection{
		ID:          uuid.New(),
		Name:        "docs",
		Domain:      "backend",
		DomainScope: "services",
	}
}

func resolverFor(col *models.Collection) *mockCollections {
	return &mockCollections{
		getByName: func(_ context.Context, name string) (*models.Collection, error) {
			if name != col.Name {
				return nil, models.ErrCollectionNotFound
			}
			return col, nil
		},
	}
}

func newTestMediator(col *models.Collection, docs *mockDocuments, graph *mockGraph) *Mediator {
	log := testLogger()

	var (
		gd GraphDeleter
		ge GraphEnricher
	)

	if graph != nil {
		gd = graph
		ge = graph
	}

	deleter := NewDeleter(docs, gd, log)

	return NewMediator(resolverFor(col), docs, deleter, &mockEmbedder{}, NewChunker(0, 0), ge, log)
}

func textRequest(collection, key string, mode models.IngestMode) IngestRequest {
	return IngestRequest{
		Collection:     collection,
		IdentifyingKey: key,
		Title:          key,
		Content:        "PostgreSQL is a database",
		SourceType:     models.SourceText,
		Mode:           mode,
	}
}

func TestMediator_Ingest_NewDocument(t *testing.T) {
	col := testCollection()

	var created *models.SourceDocument
	var createdChunks []models.Chunk

	docs := &mockDocuments{
		getByKey: func(_ context.Context, _ uuid.UUID, _ string) (*models.SourceDocument, error) {
			return nil, models.ErrDocumentNotFound
		},
		createWithChunks: func(_ context.Context, doc *models.SourceDocument, chunks []models.Chunk) error {
			created = doc
			createdChunks = chunks
			return nil
		},
	}
	graph := &mockGraph{
		addEpisode: func(_ context.Context, _ *models.SourceDocument, _ string) (int, error) {
			return 3, nil
		},
	}

	m := newTestMediator(col, docs, graph)

	result, err := m.Ingest(context.Background(), textRequest("docs", "pg", models.ModeIngest))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.ChunkCount < 1 {
		t.Errorf("got chunk count %d, want >= 1", result.ChunkCount)
	}
	if result.EntitiesExtracted != 3 {
		t.Errorf("got entities %d, want 3", result.EntitiesExtracted)
	}
	if result.Warning != "" {
		t.Errorf("unexpected warning: %q", result.Warning)
	}
	if created == nil {
		t.Fatal("document was not persisted")
	}
	if created.ID != result.SourceDocumentID {
		t.Errorf("result id %s does not match persisted id %s", result.SourceDocumentID, created.ID)
	}

	// Collection classification must overwrite caller metadata.
	if got := created.Metadata.GetString(models.MetaKeyDomain); got != "backend" {
		t.Errorf("document domain = %q, want %q", got, "backend")
	}
	for i, ch := range createdChunks {
		if got := ch.Metadata.GetString(models.MetaKeyDomain); got != "backend" {
			t.Errorf("chunk %d domain = %q, want %q", i, got, "backend")
		}
		if ch.Ordinal != i {
			t.Errorf("chunk %d ordinal = %d", i, ch.Ordinal)
		}
	}
}

func TestMediator_Ingest_DuplicateNamesExistingID(t *testing.T) {
	col := testCollection()
	existingID := uuid.New()

	docs := &mockDocuments{
		getByKey: func(_ context.Context, _ uuid.UUID, _ string) (*models.SourceDocument, error) {
			return &models.SourceDocument{ID: existingID, CollectionName: col.Name, IdentifyingKey: "pg"}, nil
		},
	}

	m := newTestMediator(col, docs, &mockGraph{})

	_, err := m.Ingest(context.Background(), textRequest("docs", "pg", models.ModeIngest))

	var dup *models.DuplicateContentError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateContentError, got %v", err)
	}
	if dup.ExistingID != existingID {
		t.Errorf("got existing id %s, want %s", dup.ExistingID, existingID)
	}

	for _, call := range docs.callList() {
		if call == "CreateWithChunks" || call == "Delete" {
			t.Errorf("unexpected store call %s on duplicate", call)
		}
	}
}

func TestMediator_Reingest_ReplacesDocument(t *testing.T) {
	col := testCollection()
	oldID := uuid.New()

	var created *models.SourceDocument

	docs := &mockDocuments{
		getByKey: func(_ context.Context, _ uuid.UUID, _ string) (*models.SourceDocument, error) {
			return &models.SourceDocument{ID: oldID, CollectionName: col.Name, IdentifyingKey: "pg"}, nil
		},
		deleteDoc: func(_ context.Context, id uuid.UUID) error {
			if id != oldID {
				t.Errorf("deleted wrong document %s", id)
			}
			return nil
		},
		getByID: func(_ context.Context, _ uuid.UUID) (*models.SourceDocument, error) {
			return nil, models.ErrDocumentNotFound
		},
		createWithChunks: func(_ context.Context, doc *models.SourceDocument, _ []models.Chunk) error {
			created = doc
			return nil
		},
	}
	graph := &mockGraph{}

	m := newTestMediator(col, docs, graph)

	result, err := m.Ingest(context.Background(), textRequest("docs", "pg", models.ModeReingest))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.SourceDocumentID == oldID {
		t.Error("reingest reused the old document id")
	}
	if created == nil {
		t.Fatal("replacement document was not persisted")
	}

	// Graph episode of the old document must be removed before the new
	// document exists anywhere.
	calls := docs.callList()
	deleteIdx, createIdx := -1, -1
	for i, call := range calls {
		switch call {
		case "Delete":
			deleteIdx = i
		case "CreateWithChunks":
			createIdx = i
		}
	}
	if deleteIdx == -1 || createIdx == -1 || deleteIdx > createIdx {
		t.Errorf("expected delete before create, got call order %v", calls)
	}
	if len(graph.calls) == 0 || graph.calls[0] != "DeleteDocumentEpisode" {
		t.Errorf("expected graph episode deletion first, got %v", graph.calls)
	}
}

func TestMediator_Reingest_AbortsWhenGraphDeleteFails(t *testing.T) {
	col := testCollection()
	oldID := uuid.New()

	docs := &mockDocuments{
		getByKey: func(_ context.Context, _ uuid.UUID, _ string) (*models.SourceDocument, error) {
			return &models.SourceDocument{ID: oldID, CollectionName: col.Name, IdentifyingKey: "pg"}, nil
		},
	}
	graph := &mockGraph{
		deleteEpisode: func(_ context.Context, _ uuid.UUID, _ string) error {
			return errors.New("neo4j unreachable")
		},
	}

	m := newTestMediator(col, docs, graph)

	_, err := m.Ingest(context.Background(), textRequest("docs", "pg", models.ModeReingest))

	var aborted *models.ReingestAbortedError
	if !errors.As(err, &aborted) {
		t.Fatalf("expected ReingestAbortedError, got %v", err)
	}

	var del *models.DeletionError
	if !errors.As(err, &del) || del.Stage != models.StageGraph {
		t.Fatalf("expected wrapped DeletionError at graph stage, got %v", err)
	}

	// Nothing new may be created and the old row must be untouched.
	for _, call := range docs.callList() {
		if call == "CreateWithChunks" || call == "Delete" {
			t.Errorf("unexpected store call %s after aborted deletion", call)
		}
	}
}

func TestMediator_RaceLostMapsToDuplicate(t *testing.T) {
	col := testCollection()
	winnerID := uuid.New()
	lookups := 0

	docs := &mockDocuments{
		getByKey: func(_ context.Context, _ uuid.UUID, _ string) (*models.SourceDocument, error) {
			lookups++
			if lookups == 1 {
				// Existence check: nothing there yet.
				return nil, models.ErrDocumentNotFound
			}
			// After the race was lost, the winner is resolvable.
			return &models.SourceDocument{ID: winnerID}, nil
		},
		createWithChunks: func(_ context.Context, _ *models.SourceDocument, _ []models.Chunk) error {
			return models.ErrDuplicateKey
		},
	}

	m := newTestMediator(col, docs, &mockGraph{})

	_, err := m.Ingest(context.Background(), textRequest("docs", "pg", models.ModeIngest))

	var dup *models.DuplicateContentError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateContentError for lost race, got %v", err)
	}
	if dup.ExistingID != winnerID {
		t.Errorf("got existing id %s, want winner %s", dup.ExistingID, winnerID)
	}
}

func TestMediator_GraphEnrichmentFailureIsNonFatal(t *testing.T) {
	col := testCollection()

	docs := &mockDocuments{
		getByKey: func(_ context.Context, _ uuid.UUID, _ string) (*models.SourceDocument, error) {
			return nil, models.ErrDocumentNotFound
		},
		createWithChunks: func(_ context.Context, _ *models.SourceDocument, _ []models.Chunk) error {
			return nil
		},
	}
	graph := &mockGraph{
		addEpisode: func(_ context.Context, _ *models.SourceDocument, _ string) (int, error) {
			return 0, errors.New("extraction timed out")
		},
	}

	m := newTestMediator(col, docs, graph)

	result, err := m.Ingest(context.Background(), textRequest("docs", "pg", models.ModeIngest))
	if err != nil {
		t.Fatalf("enrichment failure must not fail the ingest: %v", err)
	}

	if result.Warning == "" {
		t.Error("expected a warning on enrichment failure")
	}
	if result.EntitiesExtracted != 0 {
		t.Errorf("got entities %d, want 0", result.EntitiesExtracted)
	}
}

func TestMediator_UnknownCollection(t *testing.T) {
	col := testCollection()
	m := newTestMediator(col, &mockDocuments{}, &mockGraph{})

	_, err := m.Ingest(context.Background(), textRequest("nope", "pg", models.ModeIngest))
	if !errors.Is(err, models.ErrCollectionNotFound) {
		t.Fatalf("expected ErrCollectionNotFound, got %v", err)
	}
}

func TestMediator_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  IngestRequest
		want error
	}{
		{"missing collection", IngestRequest{IdentifyingKey: "k", Content: "c", Mode: models.ModeIngest}, models.ErrMissingName},
		{"missing key", IngestRequest{Collection: "docs", Content: "c", Mode: models.ModeIngest}, models.ErrMissingKey},
		{"missing content", IngestRequest{Collection: "docs", IdentifyingKey: "k", Mode: models.ModeIngest}, models.ErrMissingContent},
		{"bad mode", IngestRequest{Collection: "docs", IdentifyingKey: "k", Content: "c", Mode: "upsert"}, models.ErrInvalidMode},
	}

	col := testCollection()
	m := newTestMediator(col, &mockDocuments{}, &mockGraph{})

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.Ingest(context.Background(), tc.req)
			if !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
}
