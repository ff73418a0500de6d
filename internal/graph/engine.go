package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"

	"github.com/codingthefuturewithai/rag-memory-sub001/internal/extract"
	"github.com/codingthefuturewithai/rag-memory-sub001/internal/models"
)

// Episode is the graph engine's unit of ingested content.
type Episode struct {
	Name              string
	GroupID           string
	Body              string
	ReferenceTime     time.Time
	SourceDescription string
}

// Engine is the external graph engine surface the adapter delegates to.
type Engine interface {
	AddEpisode(ctx context.Context, ep Episode) (entitiesExtracted int, err error)
	DeleteEpisode(ctx context.Context, name, groupID string) error
	Search(ctx context.Context, query string, limit int) ([]models.RelationshipHit, error)
	SearchTemporal(ctx context.Context, query string, limit int) ([]models.TemporalFact, error)
}

const queryTimeout = 30 * time.Second

// Neo4jEngine stores episodes, entities, and fact edges in Neo4j, delegating
// entity extraction to an Extractor. Episode membership is tracked with
// explicit MENTIONS edges so deletion by episode is exact.
type Neo4jEngine struct {
	client    *Client
	extractor extract.Extractor
	log       *logrus.Logger
}

// NewNeo4jEngine creates an engine over the given client and extractor.
func NewNeo4jEngine(client *Client, extractor extract.Extractor, log *logrus.Logger) *Neo4jEngine {
	return &Neo4jEngine{client: client, extractor: extractor, log: log}
}

// normalizeName lowercases and collapses whitespace for entity identity.
func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// AddEpisode extracts entities and relations from the episode body and merges
// them into the graph, all tagged with the episode name. Returns the number
// of entities extracted.
func (e *Neo4jEngine) AddEpisode(ctx context.Context, ep Episode) (int, error) {
	extraction, err := e.extractor.Extract(ctx, ep.Body)
	if err != nil {
		return 0, fmt.Errorf("extracting entities for episode %s: %w", ep.Name, err)
	}

	refTime := ep.ReferenceTime.UTC().Format(time.RFC3339Nano)

	entityRows := make([]map[string]any, 0, len(extraction.Entities))
	for _, ent := range extraction.Entities {
		entityRows = append(entityRows, map[string]any{
			"name":      ent.Name,
			"name_norm": normalizeName(ent.Name),
			"type":      ent.Type,
		})
	}

	relationRows := make([]map[string]any, 0, len(extraction.Relations))
	for _, rel := range extraction.Relations {
		relationRows = append(relationRows, map[string]any{
			"src_norm": normalizeName(rel.Source),
			"dst_norm": normalizeName(rel.Target),
			"fact":     rel.Fact,
		})
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	session := e.client.session(ctx)
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if res, err := tx.Run(ctx, `
MERGE (ep:Episode {name: $name})
SET ep.group_id = $group_id,
    ep.reference_time = $reference_time,
    ep.source_description = $source_description
`, map[string]any{
			"name":               ep.Name,
			"group_id":           ep.GroupID,
			"reference_time":     refTime,
			"source_description": ep.SourceDescription,
		}); err != nil {
			return nil, err
		} else if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}

		if res, err := tx.Run(ctx, `
MATCH (ep:Episode {name: $episode})
UNWIND $entities AS ent
MERGE (n:Entity {group_id: $group_id, name_norm: ent.name_norm})
SET n.name = ent.name, n.type = ent.type
MERGE (ep)-[m:MENTIONS]->(n)
SET m.reference_time = $reference_time
`, map[string]any{
			"episode":        ep.Name,
			"group_id":       ep.GroupID,
			"entities":       entityRows,
			"reference_time": refTime,
		}); err != nil {
			return nil, err
		} else if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}

		if res, err := tx.Run(ctx, `
UNWIND $relations AS rel
MATCH (s:Entity {group_id: $group_id, name_norm: rel.src_norm})
MATCH (t:Entity {group_id: $group_id, name_norm: rel.dst_norm})
MERGE (s)-[r:RELATES_TO {episode: $episode, fact: rel.fact}]->(t)
SET r.group_id = $group_id, r.valid_from = $reference_time
`, map[string]any{
			"episode":        ep.Name,
			"group_id":       ep.GroupID,
			"relations":      relationRows,
			"reference_time": refTime,
		}); err != nil {
			return nil, err
		} else if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}

		return nil, nil
	})
	if err != nil {
		return 0, fmt.Errorf("writing episode %s: %w", ep.Name, err)
	}

	return len(extraction.Entities), nil
}

// DeleteEpisode removes the episode node, every fact edge it produced, and
// all entities mentioned only by it. Entities shared with other episodes are
// preserved.
func (e *Neo4jEngine) DeleteEpisode(ctx context.Context, name, groupID string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	session := e.client.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if res, err := tx.Run(ctx, `
MATCH ()-[r:RELATES_TO {episode: $episode, group_id: $group_id}]->()
DELETE r
`, map[string]any{"episode": name, "group_id": groupID}); err != nil {
			return nil, err
		} else if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}

		if res, err := tx.Run(ctx, `
MATCH (ep:Episode {name: $episode})-[:MENTIONS]->(n:Entity {group_id: $group_id})
WHERE NOT EXISTS {
	MATCH (other:Episode)-[:MENTIONS]->(n) WHERE other.name <> $episode
}
DETACH DELETE n
`, map[string]any{"episode": name, "group_id": groupID}); err != nil {
			return nil, err
		} else if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}

		if res, err := tx.Run(ctx, `
MATCH (ep:Episode {name: $episode})
DETACH DELETE ep
`, map[string]any{"episode": name}); err != nil {
			return nil, err
		} else if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}

		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("deleting episode %s: %w", name, err)
	}

	return nil
}

// Search returns fact edges whose text matches the query, newest first.
func (e *Neo4jEngine) Search(ctx context.Context, query string, limit int) ([]models.RelationshipHit, error) {
	if limit <= 0 {
		limit = 10
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	session := e.client.readSession(ctx)
	defer session.Close(ctx)

	records, err := neo4j.ExecuteRead(ctx, session, func(tx neo4j.ManagedTransaction) ([]*neo4j.Record, error) {
		res, err := tx.Run(ctx, `
MATCH (s:Entity)-[r:RELATES_TO]->(t:Entity)
WHERE toLower(r.fact) CONTAINS toLower($query)
RETURN r.fact AS fact, s.name AS source, t.name AS target, r.episode AS episode, r.valid_from AS valid_from
ORDER BY r.valid_from DESC
LIMIT $limit
`, map[string]any{"query": query, "limit": limit})
		if err != nil {
			return nil, err
		}

		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("searching relationships: %w", err)
	}

	hits := make([]models.RelationshipHit, 0, len(records))

	for _, rec := range records {
		hit := models.RelationshipHit{
			Fact:         recordString(rec, "fact"),
			SourceEntity: recordString(rec, "source"),
			TargetEntity: recordString(rec, "target"),
			Episode:      recordString(rec, "episode"),
		}

		if ts, err := time.Parse(time.RFC3339Nano, recordString(rec, "valid_from")); err == nil {
			hit.ReferenceTime = ts
		}

		hits = append(hits, hit)
	}

	return hits, nil
}

// SearchTemporal returns matching facts with their validity intervals.
// A fact with no valid_until is still considered current.
func (e *Neo4jEngine) SearchTemporal(ctx context.Context, query string, limit int) ([]models.TemporalFact, error) {
	if limit <= 0 {
		limit = 10
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	session := e.client.readSession(ctx)
	defer session.Close(ctx)

	records, err := neo4j.ExecuteRead(ctx, session, func(tx neo4j.ManagedTransaction) ([]*neo4j.Record, error) {
		res, err := tx.Run(ctx, `
MATCH (:Entity)-[r:RELATES_TO]->(:Entity)
WHERE toLower(r.fact) CONTAINS toLower($query)
RETURN r.fact AS fact, r.valid_from AS valid_from, r.valid_until AS valid_until
ORDER BY r.valid_from DESC
LIMIT $limit
`, map[string]any{"query": query, "limit": limit})
		if err != nil {
			return nil, err
		}

		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("searching temporal facts: %w", err)
	}

	facts := make([]models.TemporalFact, 0, len(records))

	for _, rec := range records {
		fact := models.TemporalFact{Fact: recordString(rec, "fact")}

		if ts, err := time.Parse(time.RFC3339Nano, recordString(rec, "valid_from")); err == nil {
			fact.ValidFrom = ts
		}

		if until := recordString(rec, "valid_until"); until != "" {
			if ts, err := time.Parse(time.RFC3339Nano, until); err == nil {
				fact.ValidUntil = &ts
			}
		}

		facts = append(facts, fact)
	}

	return facts, nil
}

// recordString pulls a string field from a record, tolerating nulls.
func recordString(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}

	s, _ := v.(string)

	return s
}
