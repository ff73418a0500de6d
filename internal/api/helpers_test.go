package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codingthefuturewithai/rag-memory-sub001/internal/models"
	"github.com/codingthefuturewithai/rag-memory-sub001/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)

	return l
}

// doRequest performs an HTTP request against the router and returns the recorder.
func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, http.NoBody)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

// fakeCollections resolves a single fixed collection by name.
type fakeCollections struct {
	col *models.Collection
}

func (f *fakeCollections) GetByName(_ context.Context, name string) (*models.Collection, error) {
	if f.col != nil && name == f.col.Name {
		return f.col, nil
	}

	return nil, models.ErrCollectionNotFound
}

// fakeDocuments backs the mediator and deleter with an in-memory map.
type fakeDocuments struct {
	byID map[uuid.UUID]*models.SourceDocument
}

func newFakeDocuments() *fakeDocuments {
	return &fakeDocuments{byID: make(map[uuid.UUID]*models.SourceDocument)}
}

func (f *fakeDocuments) CreateWithChunks(_ context.Context, doc *models.SourceDocument, _ []models.Chunk) error {
	for _, d := range f.byID {
		if d.CollectionID == doc.CollectionID && d.IdentifyingKey == doc.IdentifyingKey {
			return models.ErrDuplicateKey
		}
	}

	f.byID[doc.ID] = doc

	return nil
}

func (f *fakeDocuments) GetByID(_ context.Context, id uuid.UUID) (*models.SourceDocument, error) {
	if doc, ok := f.byID[id]; ok {
		return doc, nil
	}

	return nil, models.ErrDocumentNotFound
}

func (f *fakeDocuments) GetByKey(_ context.Context, collectionID uuid.UUID, key string) (*models.SourceDocument, error) {
	for _, d := range f.byID {
		if d.CollectionID == collectionID && d.IdentifyingKey == key {
			return d, nil
		}
	}

	return nil, models.ErrDocumentNotFound
}

func (f *fakeDocuments) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.byID[id]; !ok {
		return models.ErrDocumentNotFound
	}

	delete(f.byID, id)

	return nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Generate(context.Context, string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func testCollection() *models.Collection {
	return &models.Collection{
		ID:          uuid.MustParse("10000000-0000-0000-0000-000000000001"),
		Name:        "docs",
		Domain:      "backend",
		DomainScope: "services",
	}
}

// newTestMediator wires a real mediator over in-memory fakes without graph support.
func newTestMediator(docs *fakeDocuments) *service.Mediator {
	log := testLogger()
	deleter := service.NewDeleter(docs, nil, log)

	return service.NewMediator(
		&fakeCollections{col: testCollection()},
		docs,
		deleter,
		fakeEmbedder{},
		service.NewChunker(50, 10),
		nil,
		log,
	)
}
