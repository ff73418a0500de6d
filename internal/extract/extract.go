// Package extract provides entity and relationship extraction from raw text
// via a local LLM. The graph engine delegates to an Extractor; it never
// performs extraction itself.
package extract

import "context"

// Entity is a named thing mentioned in a text passage.
type Entity struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Relation is a directed fact between two entities.
type Relation struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Fact   string `json:"fact"`
}

// Extraction is the result of analyzing one passage.
type Extraction struct {
	Entities  []Entity   `json:"entities"`
	Relations []Relation `json:"relations"`
}

// Extractor turns raw text into entities and relations.
type Extractor interface {
	Extract(ctx context.Context, text string) (*Extraction, error)
}
