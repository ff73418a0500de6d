package models

import (
	"time"

	"github.com/google/uuid"
)

// SourceType identifies how a document entered the system.
type SourceType string

// Source types. The identifying key is the title for text, the absolute path
// for files, and the URL for crawled pages.
const (
	SourceText SourceType = "text"
	SourceFile SourceType = "file"
	SourceURL  SourceType = "url"
)

// SourceDocument is the unit of deduplication: at most one non-deleted
// document per (collection, identifying key).
type SourceDocument struct {
	ID             uuid.UUID  `json:"id"`
	CollectionID   uuid.UUID  `json:"collection_id"`
	CollectionName string     `json:"collection_name"`
	IdentifyingKey string     `json:"identifying_key"`
	SourceType     SourceType `json:"source_type"`
	Title          string     `json:"title"`
	ContentSHA256  string     `json:"content_sha256"`
	Metadata       Metadata   `json:"metadata"`
	ChunkCount     int        `json:"chunk_count"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Chunk is a retrievable sub-span of a document's text. Ordinal preserves
// insertion order within the parent document.
type Chunk struct {
	ID               uuid.UUID `json:"id"`
	SourceDocumentID uuid.UUID `json:"source_document_id"`
	Ordinal          int       `json:"ordinal"`
	Content          string    `json:"content"`
	Embedding        []float32 `json:"-"`
	Metadata         Metadata  `json:"metadata"`
}

// ScoredChunk pairs a chunk with its similarity to a search query.
type ScoredChunk struct {
	Chunk
	Similarity float64 `json:"similarity"`
}

// IngestMode selects duplicate handling for an ingestion request.
type IngestMode string

// Ingestion modes. Reingest atomically replaces an existing document under
// the same identifying key; plain ingest fails on duplicates.
const (
	ModeIngest   IngestMode = "ingest"
	ModeReingest IngestMode = "reingest"
)

// Valid reports whether m is a known mode.
func (m IngestMode) Valid() bool {
	return m == ModeIngest || m == ModeReingest
}

// IngestResult summarizes one ingestion call across both stores.
type IngestResult struct {
	SourceDocumentID  uuid.UUID `json:"source_document_id"`
	IdentifyingKey    string    `json:"identifying_key"`
	Collection        string    `json:"collection"`
	ChunkCount        int       `json:"chunk_count"`
	EntitiesExtracted int       `json:"entities_extracted"`
	// Warning is set when graph enrichment failed but the document side
	// committed; the stores are transiently inconsistent until a reingest.
	Warning string `json:"warning,omitempty"`
}

// FileResult pairs a file path with its ingestion outcome for batch calls.
type FileResult struct {
	Path   string        `json:"path"`
	Result *IngestResult `json:"result,omitempty"`
	Err    string        `json:"error,omitempty"`
}

// CrawlResult summarizes one crawl session.
type CrawlResult struct {
	SessionID uuid.UUID      `json:"session_id"`
	RootURL   string         `json:"root_url"`
	Pages     []IngestResult `json:"pages_ingested"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
}

// RelationshipHit is one fact returned by a relationship search.
type RelationshipHit struct {
	Fact          string    `json:"fact"`
	SourceEntity  string    `json:"source_entity"`
	TargetEntity  string    `json:"target_entity"`
	Episode       string    `json:"episode"`
	ReferenceTime time.Time `json:"reference_time"`
}

// TemporalFact is a fact with its validity interval. ValidUntil is nil for
// facts still considered current.
type TemporalFact struct {
	Fact       string     `json:"fact"`
	ValidFrom  time.Time  `json:"valid_from"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
}
