package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/codingthefuturewithai/rag-memory-sub001/internal/models"
	"github.com/codingthefuturewithai/rag-memory-sub001/internal/store"
)

func TestCreateWithChunksAndLookup(t *testing.T) {
	base, col := setupTestBase(t)
	ds := store.NewDocumentStore(base)
	ctx := context.Background()

	doc := testDocument(col, "notes.md")

	if err := ds.CreateWithChunks(ctx, doc, testChunks(doc.ID, 3)); err != nil {
		t.Fatalf("CreateWithChunks: %v", err)
	}

	got, err := ds.GetByKey(ctx, col.ID, "notes.md")
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	if got.ID != doc.ID {
		t.Errorf("ID = %s, want %s", got.ID, doc.ID)
	}
	if got.ChunkCount != 3 {
		t.Errorf("ChunkCount = %d, want 3", got.ChunkCount)
	}
	if got.Metadata.GetString("domain") != "testing" {
		t.Errorf("metadata domain = %q, want %q", got.Metadata.GetString("domain"), "testing")
	}

	chunks, err := ds.GetChunks(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetChunks: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Ordinal != i {
			t.Errorf("chunk %d ordinal = %d (order not preserved)", i, ch.Ordinal)
		}
	}
}

func TestCreateWithChunks_DuplicateKey(t *testing.T) {
	base, col := setupTestBase(t)
	ds := store.NewDocumentStore(base)
	ctx := context.Background()

	first := testDocument(col, "same-key")
	if err := ds.CreateWithChunks(ctx, first, testChunks(first.ID, 1)); err != nil {
		t.Fatalf("CreateWithChunks: %v", err)
	}

	second := testDocument(col, "same-key")

	err := ds.CreateWithChunks(ctx, second, testChunks(second.ID, 1))
	if !errors.Is(err, models.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	// The failed insert must leave no partial state behind.
	if _, err := ds.GetByID(ctx, second.ID); !errors.Is(err, models.ErrDocumentNotFound) {
		t.Errorf("half-written document visible after duplicate insert: %v", err)
	}
}

func TestDeleteDocument(t *testing.T) {
	base, col := setupTestBase(t)
	ds := store.NewDocumentStore(base)
	ctx := context.Background()

	doc := testDocument(col, "to-delete")
	if err := ds.CreateWithChunks(ctx, doc, testChunks(doc.ID, 2)); err != nil {
		t.Fatalf("CreateWithChunks: %v", err)
	}

	if err := ds.Delete(ctx, doc.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := ds.GetByID(ctx, doc.ID); !errors.Is(err, models.ErrDocumentNotFound) {
		t.Errorf("document still resolvable after delete: %v", err)
	}

	if chunks, err := ds.GetChunks(ctx, doc.ID); err != nil || len(chunks) != 0 {
		t.Errorf("chunks survived document delete: %d, %v", len(chunks), err)
	}

	if err := ds.Delete(ctx, doc.ID); !errors.Is(err, models.ErrDocumentNotFound) {
		t.Errorf("second delete should report not found, got %v", err)
	}
}

func TestListByCrawlRoot_IsCollectionScoped(t *testing.T) {
	base, colA := setupTestBase(t)
	_, colB := setupTestBase(t)
	ds := store.NewDocumentStore(base)
	ctx := context.Background()

	const root = "https://example.com/docs"

	crawlDoc := func(col *models.Collection, key string) *models.SourceDocument {
		doc := testDocument(col, key)
		doc.SourceType = models.SourceURL
		doc.Metadata[models.MetaKeyCrawlRootURL] = models.String(root)
		return doc
	}

	inA := crawlDoc(colA, root+"/page1")
	alsoA := crawlDoc(colA, root+"/page2")
	inB := crawlDoc(colB, root+"/page1")

	for _, doc := range []*models.SourceDocument{inA, alsoA, inB} {
		if err := ds.CreateWithChunks(ctx, doc, testChunks(doc.ID, 1)); err != nil {
			t.Fatalf("CreateWithChunks: %v", err)
		}
	}

	docs, err := ds.ListByCrawlRoot(ctx, colA.ID, root)
	if err != nil {
		t.Fatalf("ListByCrawlRoot: %v", err)
	}

	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}
	for _, doc := range docs {
		if doc.CollectionID != colA.ID {
			t.Errorf("document %s leaked from another collection", doc.ID)
		}
	}

	// The same root in collection B is invisible from A and vice versa.
	docsB, err := ds.ListByCrawlRoot(ctx, colB.ID, root)
	if err != nil {
		t.Fatalf("ListByCrawlRoot: %v", err)
	}
	if len(docsB) != 1 || docsB[0].ID != inB.ID {
		t.Errorf("collection B listing wrong: %v", docsB)
	}
}

func TestSameKeyAcrossCollections(t *testing.T) {
	base, colA := setupTestBase(t)
	_, colB := setupTestBase(t)
	ds := store.NewDocumentStore(base)
	ctx := context.Background()

	docA := testDocument(colA, "shared-key")
	docB := testDocument(colB, "shared-key")

	if err := ds.CreateWithChunks(ctx, docA, testChunks(docA.ID, 1)); err != nil {
		t.Fatalf("CreateWithChunks in A: %v", err)
	}
	if err := ds.CreateWithChunks(ctx, docB, testChunks(docB.ID, 1)); err != nil {
		t.Fatalf("same key must be allowed in another collection: %v", err)
	}
}

func TestGetByKeyNotFound(t *testing.T) {
	base, col := setupTestBase(t)
	ds := store.NewDocumentStore(base)

	_, err := ds.GetByKey(context.Background(), col.ID, "missing")
	if !errors.Is(err, models.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}

	_, err = ds.GetByID(context.Background(), uuid.New())
	if !errors.Is(err, models.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}
