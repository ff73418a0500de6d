package api_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/codingthefuturewithai/rag-memory-sub001/internal/api"
)

func newIngestRouter(docs *fakeDocuments) *gin.Engine {
	h := api.NewIngestHandler(newTestMediator(docs), nil, nil, testLogger())

	r := gin.New()
	r.POST("/ingest/text", h.Text)

	return r
}

func TestIngestText_CreatesDocument(t *testing.T) {
	docs := newFakeDocuments()
	r := newIngestRouter(docs)

	w := doRequest(r, http.MethodPost, "/ingest/text",
		`{"collection":"docs","title":"setup guide","content":"install the service"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if body["identifying_key"] != "setup guide" {
		t.Errorf("identifying_key = %v", body["identifying_key"])
	}

	if body["collection"] != "docs" {
		t.Errorf("collection = %v", body["collection"])
	}

	if len(docs.byID) != 1 {
		t.Errorf("expected 1 stored document, got %d", len(docs.byID))
	}
}

func TestIngestText_DuplicateReturns409(t *testing.T) {
	docs := newFakeDocuments()
	r := newIngestRouter(docs)

	first := doRequest(r, http.MethodPost, "/ingest/text",
		`{"collection":"docs","title":"setup guide","content":"install the service"}`)
	if first.Code != http.StatusCreated {
		t.Fatalf("first ingest: expected 201, got %d", first.Code)
	}

	second := doRequest(r, http.MethodPost, "/ingest/text",
		`{"collection":"docs","title":"setup guide","content":"install the service"}`)
	if second.Code != http.StatusConflict {
		t.Fatalf("second ingest: expected 409, got %d: %s", second.Code, second.Body.String())
	}

	var body map[string]string
	if err := json.Unmarshal(second.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if body["code"] != "duplicate" {
		t.Errorf("code = %q, want duplicate", body["code"])
	}
}

func TestIngestText_ReingestReplaces(t *testing.T) {
	docs := newFakeDocuments()
	r := newIngestRouter(docs)

	first := doRequest(r, http.MethodPost, "/ingest/text",
		`{"collection":"docs","title":"setup guide","content":"v1"}`)
	if first.Code != http.StatusCreated {
		t.Fatalf("first ingest: expected 201, got %d", first.Code)
	}

	second := doRequest(r, http.MethodPost, "/ingest/text",
		`{"collection":"docs","title":"setup guide","content":"v2","mode":"reingest"}`)
	if second.Code != http.StatusCreated {
		t.Fatalf("reingest: expected 201, got %d: %s", second.Code, second.Body.String())
	}

	if len(docs.byID) != 1 {
		t.Errorf("expected 1 stored document after replacement, got %d", len(docs.byID))
	}
}

func TestIngestText_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing title", `{"collection":"docs","content":"text"}`},
		{"missing content", `{"collection":"docs","title":"t"}`},
		{"missing collection", `{"title":"t","content":"text"}`},
		{"bad mode", `{"collection":"docs","title":"t","content":"text","mode":"upsert"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := newFakeDocuments()
			r := newIngestRouter(docs)

			w := doRequest(r, http.MethodPost, "/ingest/text", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestIngestText_UnknownCollectionReturns404(t *testing.T) {
	docs := newFakeDocuments()
	r := newIngestRouter(docs)

	w := doRequest(r, http.MethodPost, "/ingest/text",
		`{"collection":"nope","title":"t","content":"text"}`)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}
