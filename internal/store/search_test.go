package store_test

import (
	"context"
	"testing"

	"github.com/codingthefuturewithai/rag-memory-sub001/internal/models"
	"github.com/codingthefuturewithai/rag-memory-sub001/internal/store"
)

func TestSemanticSearch_EmptyCollection(t *testing.T) {
	base, col := setupTestBase(t)
	ss := store.NewSearchStore(base)

	hits, err := ss.SemanticSearch(context.Background(), col.ID, testEmbedding(1), nil, 10, 0)
	if err != nil {
		t.Fatalf("an empty collection is a valid search target: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("got %d hits, want 0", len(hits))
	}
}

func TestSemanticSearch_MetadataFilterExcludes(t *testing.T) {
	base, col := setupTestBase(t)
	ds := store.NewDocumentStore(base)
	ss := store.NewSearchStore(base)
	ctx := context.Background()

	backend := testDocument(col, "backend.md")
	chunksA := testChunks(backend.ID, 1)
	chunksA[0].Metadata = models.Metadata{"domain": models.String("backend")}

	frontend := testDocument(col, "frontend.md")
	chunksB := testChunks(frontend.ID, 1)
	chunksB[0].Metadata = models.Metadata{"domain": models.String("frontend")}

	if err := ds.CreateWithChunks(ctx, backend, chunksA); err != nil {
		t.Fatalf("CreateWithChunks: %v", err)
	}
	if err := ds.CreateWithChunks(ctx, frontend, chunksB); err != nil {
		t.Fatalf("CreateWithChunks: %v", err)
	}

	filter := models.Metadata{"domain": models.String("backend")}

	hits, err := ss.SemanticSearch(ctx, col.ID, testEmbedding(1), filter, 10, 0)
	if err != nil {
		t.Fatalf("SemanticSearch: %v", err)
	}

	if len(hits) == 0 {
		t.Fatal("expected at least one hit")
	}
	for _, hit := range hits {
		if got := hit.Metadata.GetString("domain"); got != "backend" {
			t.Errorf("filter leaked a chunk with domain %q", got)
		}
	}

	// A filter value nothing carries matches nothing.
	none, err := ss.SemanticSearch(ctx, col.ID, testEmbedding(1), models.Metadata{
		"domain": models.String("ops"),
	}, 10, 0)
	if err != nil {
		t.Fatalf("SemanticSearch: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("got %d hits for unmatched filter, want 0", len(none))
	}
}

func TestSemanticSearch_ThresholdDropsWeakMatches(t *testing.T) {
	base, col := setupTestBase(t)
	ds := store.NewDocumentStore(base)
	ss := store.NewSearchStore(base)
	ctx := context.Background()

	doc := testDocument(col, "scored.md")
	if err := ds.CreateWithChunks(ctx, doc, testChunks(doc.ID, 2)); err != nil {
		t.Fatalf("CreateWithChunks: %v", err)
	}

	all, err := ss.SemanticSearch(ctx, col.ID, testEmbedding(1), nil, 10, 0)
	if err != nil {
		t.Fatalf("SemanticSearch: %v", err)
	}
	if len(all) == 0 {
		t.Fatal("expected hits without a threshold")
	}

	// An impossible threshold yields an empty, non-error result.
	none, err := ss.SemanticSearch(ctx, col.ID, testEmbedding(1), nil, 10, 1.01)
	if err != nil {
		t.Fatalf("SemanticSearch: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("got %d hits above impossible threshold", len(none))
	}

	// Ordering is by descending similarity.
	for i := 1; i < len(all); i++ {
		if all[i].Similarity > all[i-1].Similarity {
			t.Errorf("results out of order at %d: %f > %f", i, all[i].Similarity, all[i-1].Similarity)
		}
	}
}
