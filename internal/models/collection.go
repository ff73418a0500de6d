// Package models defines data types for the shared agent memory.
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Reserved metadata keys. domain and domain_scope are always copied from the
// owning collection at ingestion time; the crawl_* keys and parent_url carry
// crawl lineage for URL-sourced documents.
const (
	MetaKeyDomain       = "domain"
	MetaKeyDomainScope  = "domain_scope"
	MetaKeyCrawlRootURL = "crawl_root_url"
	MetaKeyCrawlSession = "crawl_session_id"
	MetaKeyCrawlDepth   = "crawl_depth"
	MetaKeyParentURL    = "parent_url"
)

// Collection is a named namespace grouping documents that share immutable
// classification metadata. Domain and DomainScope are fixed at creation.
type Collection struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Domain      string    `json:"domain"`
	DomainScope string    `json:"domain_scope"`
	CreatedAt   time.Time `json:"created_at"`
}

// CollectionSummary pairs a collection with its member counts for listings.
type CollectionSummary struct {
	Collection
	DocumentCount int `json:"document_count"`
	ChunkCount    int `json:"chunk_count"`
}

// CreateCollectionRequest is the payload for creating a collection.
type CreateCollectionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Domain      string `json:"domain"`
	DomainScope string `json:"domain_scope"`
}

// Validate checks required fields and length limits.
func (r *CreateCollectionRequest) Validate() error {
	if r.Name == "" {
		return ErrMissingName
	}

	if len(r.Name) > 255 {
		return ErrFieldTooLong("name", 255)
	}

	if r.Domain == "" {
		return ErrMissingDomain
	}

	if len(r.Domain) > 100 {
		return ErrFieldTooLong("domain", 100)
	}

	if len(r.DomainScope) > 255 {
		return ErrFieldTooLong("domain_scope", 255)
	}

	if len(r.Description) > 2000 {
		return ErrFieldTooLong("description", 2000)
	}

	return nil
}

// Stamp copies the collection's classification metadata into md, overwriting
// any caller-supplied values. Collection metadata always wins.
func (c *Collection) Stamp(md Metadata) Metadata {
	out := md.Clone()
	out[MetaKeyDomain] = String(c.Domain)
	out[MetaKeyDomainScope] = String(c.DomainScope)

	return out
}

// EpisodeName derives the deterministic graph episode name for a document id.
func EpisodeName(documentID uuid.UUID) string {
	return fmt.Sprintf("doc_%s", documentID)
}
