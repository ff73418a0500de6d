package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codingthefuturewithai/rag-memory-sub001/internal/models"
)

// Adapter converts source documents into graph episodes and drives the
// engine. The episode references its document by naming convention only
// ("doc_<id>"); no referential integrity is assumed, so deletion is always
// driven explicitly by document id.
type Adapter struct {
	engine Engine
	log    *logrus.Logger
}

// NewAdapter creates an Adapter over the given engine.
func NewAdapter(engine Engine, log *logrus.Logger) *Adapter {
	return &Adapter{engine: engine, log: log}
}

// AddDocumentEpisode creates the episode for a document, with group_id set
// to the document's collection name and the document metadata serialized as
// the source description. Returns the number of entities extracted.
func (a *Adapter) AddDocumentEpisode(ctx context.Context, doc *models.SourceDocument, content string) (int, error) {
	desc, err := json.Marshal(doc.Metadata)
	if err != nil {
		return 0, fmt.Errorf("serializing metadata for episode: %w", err)
	}

	ep := Episode{
		Name:              models.EpisodeName(doc.ID),
		GroupID:           doc.CollectionName,
		Body:              content,
		ReferenceTime:     time.Now().UTC(),
		SourceDescription: string(desc),
	}

	count, err := a.engine.AddEpisode(ctx, ep)
	if err != nil {
		return 0, err
	}

	a.log.WithFields(logrus.Fields{
		"episode":  ep.Name,
		"group_id": ep.GroupID,
		"entities": count,
	}).Debug("episode created")

	return count, nil
}

// DeleteDocumentEpisode removes the episode derived from the document id,
// scoped to the collection's group.
func (a *Adapter) DeleteDocumentEpisode(ctx context.Context, documentID uuid.UUID, collectionName string) error {
	return a.engine.DeleteEpisode(ctx, models.EpisodeName(documentID), collectionName)
}

// SearchRelationships queries fact edges matching the text (pass-through).
func (a *Adapter) SearchRelationships(ctx context.Context, query string, limit int) ([]models.RelationshipHit, error) {
	return a.engine.Search(ctx, query, limit)
}

// QueryTemporal queries facts with validity intervals (pass-through).
func (a *Adapter) QueryTemporal(ctx context.Context, query string, limit int) ([]models.TemporalFact, error) {
	return a.engine.SearchTemporal(ctx, query, limit)
}
