package service

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/codingthefuturewithai/rag-memory-sub001/internal/crawl"
	"github.com/codingthefuturewithai/rag-memory-sub001/internal/models"
)

// mockCollections records calls and returns configured responses.
type mockCollections struct {
	mu    sync.Mutex
	calls []string

	getByName func(ctx context.Context, name string) (*models.Collection, error)
}

func (m *mockCollections) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockCollections) GetByName(ctx context.Context, name string) (*models.Collection, error) {
	m.record("GetByName")
	return m.getByName(ctx, name)
}

// mockDocuments implements the full document-store surface the services use.
type mockDocuments struct {
	mu    sync.Mutex
	calls []string

	createWithChunks func(ctx context.Context, doc *models.SourceDocument, chunks []models.Chunk) error
	getByID          func(ctx context.Context, id uuid.UUID) (*models.SourceDocument, error)
	getByKey         func(ctx context.Context, collectionID uuid.UUID, key string) (*models.SourceDocument, error)
	listByCrawlRoot  func(ctx context.Context, collectionID uuid.UUID, rootURL string) ([]models.SourceDocument, error)
	listByCollection func(ctx context.Context, collectionID uuid.UUID, limit int) ([]models.SourceDocument, error)
	deleteDoc        func(ctx context.Context, id uuid.UUID) error
}

func (m *mockDocuments) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockDocuments) callList() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *mockDocuments) CreateWithChunks(ctx context.Context, doc *models.SourceDocument, chunks []models.Chunk) error {
	m.record("CreateWithChunks")
	return m.createWithChunks(ctx, doc, chunks)
}

func (m *mockDocuments) GetByID(ctx context.Context, id uuid.UUID) (*models.SourceDocument, error) {
	m.record("GetByID")
	return m.getByID(ctx, id)
}

func (m *mockDocuments) GetByKey(ctx context.Context, collectionID uuid.UUID, key string) (*models.SourceDocument, error) {
	m.record("GetByKey")
	return m.getByKey(ctx, collectionID, key)
}

func (m *mockDocuments) ListByCrawlRoot(ctx context.Context, collectionID uuid.UUID, rootURL string) ([]models.SourceDocument, error) {
	m.record("ListByCrawlRoot")
	return m.listByCrawlRoot(ctx, collectionID, rootURL)
}

func (m *mockDocuments) ListByCollection(ctx context.Context, collectionID uuid.UUID, limit int) ([]models.SourceDocument, error) {
	m.record("ListByCollection")
	return m.listByCollection(ctx, collectionID, limit)
}

func (m *mockDocuments) Delete(ctx context.Context, id uuid.UUID) error {
	m.record("Delete")
	return m.deleteDoc(ctx, id)
}

// mockGraph implements the graph-facing interfaces with per-method hooks.
type mockGraph struct {
	mu    sync.Mutex
	calls []string

	addEpisode    func(ctx context.Context, doc *models.SourceDocument, content string) (int, error)
	deleteEpisode func(ctx context.Context, documentID uuid.UUID, collectionName string) error
	searchRels    func(ctx context.Context, query string, limit int) ([]models.RelationshipHit, error)
	queryTemporal func(ctx context.Context, query string, limit int) ([]models.TemporalFact, error)
}

func (m *mockGraph) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockGraph) AddDocumentEpisode(ctx context.Context, doc *models.SourceDocument, content string) (int, error) {
	m.record("AddDocumentEpisode")
	if m.addEpisode == nil {
		return 0, nil
	}
	return m.addEpisode(ctx, doc, content)
}

func (m *mockGraph) DeleteDocumentEpisode(ctx context.Context, documentID uuid.UUID, collectionName string) error {
	m.record("DeleteDocumentEpisode")
	if m.deleteEpisode == nil {
		return nil
	}
	return m.deleteEpisode(ctx, documentID, collectionName)
}

func (m *mockGraph) SearchRelationships(ctx context.Context, query string, limit int) ([]models.RelationshipHit, error) {
	m.record("SearchRelationships")
	return m.searchRels(ctx, query, limit)
}

func (m *mockGraph) QueryTemporal(ctx context.Context, query string, limit int) ([]models.TemporalFact, error) {
	m.record("QueryTemporal")
	return m.queryTemporal(ctx, query, limit)
}

// mockEmbedder returns a fixed-size vector for any input.
type mockEmbedder struct {
	mu    sync.Mutex
	count int
	err   error
}

func (m *mockEmbedder) Generate(_ context.Context, _ string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count++
	if m.err != nil {
		return nil, m.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

// mockFetcher serves pages from an in-memory map keyed by URL.
type mockFetcher struct {
	mu      sync.Mutex
	pages   map[string]*crawl.Page
	fetched []string
	errs    map[string]error
}

func (m *mockFetcher) Fetch(_ context.Context, pageURL string) (*crawl.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetched = append(m.fetched, pageURL)
	if err, ok := m.errs[pageURL]; ok {
		return nil, err
	}
	page, ok := m.pages[pageURL]
	if !ok {
		return nil, context.DeadlineExceeded
	}
	return page, nil
}

func (m *mockFetcher) fetchedURLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.fetched))
	copy(out, m.fetched)
	return out
}
