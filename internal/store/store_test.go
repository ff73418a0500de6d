package store_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codingthefuturewithai/rag-memory-sub001/internal/dbpool"
	"github.com/codingthefuturewithai/rag-memory-sub001/internal/models"
	"github.com/codingthefuturewithai/rag-memory-sub001/internal/store"
)

// testEnv holds shared test infrastructure (single pool across all tests).
type testEnv struct {
	pool *dbpool.Pool
	log  *logrus.Logger
}

var sharedEnv *testEnv

func getTestEnv(t *testing.T) *testEnv {
	t.Helper()

	if sharedEnv != nil {
		return sharedEnv
	}

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()

	pool, err := dbpool.NewPool(ctx, dbURL)
	if err != nil {
		t.Fatalf("connecting to test DB: %v", err)
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	sharedEnv = &testEnv{
		pool: pool,
		log:  log,
	}

	return sharedEnv
}

// setupTestBase creates a Base with a fresh test collection, cleaned up after the test.
func setupTestBase(t *testing.T) (store.Base, *models.Collection) {
	t.Helper()

	env := getTestEnv(t)
	base := store.Base{Pool: env.pool, Log: env.log}
	ctx := context.Background()

	cs := store.NewCollectionStore(base)

	name := fmt.Sprintf("test-%s", uuid.New().String()[:8])

	col, err := cs.Create(ctx, models.CreateCollectionRequest{
		Name:        name,
		Description: "integration test collection",
		Domain:      "testing",
		DomainScope: "store",
	})
	if err != nil {
		t.Fatalf("creating test collection: %v", err)
	}

	t.Cleanup(func() {
		cleanCtx := context.Background()
		// Chunks and documents cascade from the collection delete.
		env.pool.Exec(cleanCtx, "DELETE FROM collections WHERE id = $1", col.ID) //nolint:errcheck // best-effort cleanup
	})

	return base, col
}

// testEmbedding returns a deterministic unit-ish vector sized for the schema.
func testEmbedding(seed float32) []float32 {
	v := make([]float32, 1024)
	for i := range v {
		v[i] = seed / float32(i+1)
	}
	return v
}

func testDocument(col *models.Collection, key string) *models.SourceDocument {
	return &models.SourceDocument{
		ID:             uuid.New(),
		CollectionID:   col.ID,
		CollectionName: col.Name,
		IdentifyingKey: key,
		SourceType:     models.SourceText,
		Title:          key,
		ContentSHA256:  "deadbeef",
		Metadata: models.Metadata{
			"domain": models.String(col.Domain),
		},
	}
}

func testChunks(docID uuid.UUID, n int) []models.Chunk {
	chunks := make([]models.Chunk, n)
	for i := range chunks {
		chunks[i] = models.Chunk{
			ID:               uuid.New(),
			SourceDocumentID: docID,
			Ordinal:          i,
			Content:          fmt.Sprintf("chunk %d content", i),
			Embedding:        testEmbedding(float32(i + 1)),
			Metadata:         models.Metadata{"domain": models.String("testing")},
		}
	}
	return chunks
}
