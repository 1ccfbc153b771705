package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/chronicle-kb/chronicle/pkg/similarity"
	"github.com/chronicle-kb/chronicle/pkg/types"
	"github.com/chronicle-kb/chronicle/pkg/utils"
)

// Neo4jStore implements Store on Neo4j. Entities and facts are nodes,
// mentions are MENTIONS relationships from fact to entity, and full-text
// relevance comes from a db.index.fulltext index on fact text. Vector and
// fuzzy-name scoring are computed client-side over candidate rows, the same
// fallback the backends without native scoring use.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	run      cypherRunner
}

// cypherRunner abstracts query execution so the same store methods work
// against a session (autocommit) and a managed transaction (unit of work).
type cypherRunner interface {
	Run(ctx context.Context, cypher string, params map[string]interface{}) ([]map[string]interface{}, error)
}

type sessionRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

func (r *sessionRunner) Run(ctx context.Context, cypher string, params map[string]interface{}) ([]map[string]interface{}, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: r.database})
	defer session.Close(ctx)

	records, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		return collectRecords(ctx, tx, cypher, params)
	})
	if err != nil {
		return nil, err
	}
	return records.([]map[string]interface{}), nil
}

type txRunner struct {
	tx neo4j.ManagedTransaction
}

func (r *txRunner) Run(ctx context.Context, cypher string, params map[string]interface{}) ([]map[string]interface{}, error) {
	records, err := collectRecords(ctx, r.tx, cypher, params)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func collectRecords(ctx context.Context, tx neo4j.ManagedTransaction, cypher string, params map[string]interface{}) ([]map[string]interface{}, error) {
	result, err := tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	var records []map[string]interface{}
	for result.Next(ctx) {
		rec := result.Record()
		row := make(map[string]interface{}, len(rec.Keys))
		for _, key := range rec.Keys {
			value, _ := rec.Get(key)
			row[key] = value
		}
		records = append(records, row)
	}
	return records, result.Err()
}

// NewNeo4jStore connects to Neo4j and ensures constraints and the full-text
// index exist.
func NewNeo4jStore(uri, username, password, database string) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	s := &Neo4jStore{
		driver:   driver,
		database: database,
		run:      &sessionRunner{driver: driver, database: database},
	}
	if err := s.initialize(context.Background()); err != nil {
		driver.Close(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Neo4jStore) initialize(ctx context.Context) error {
	statements := []string{
		`CREATE CONSTRAINT entity_id IF NOT EXISTS FOR (e:Entity) REQUIRE e.id IS UNIQUE`,
		`CREATE CONSTRAINT fact_id IF NOT EXISTS FOR (f:Fact) REQUIRE f.id IS UNIQUE`,
		`CREATE CONSTRAINT fact_digest IF NOT EXISTS FOR (f:Fact) REQUIRE f.digest IS UNIQUE`,
		`CREATE FULLTEXT INDEX fact_text IF NOT EXISTS FOR (f:Fact) ON EACH [f.text]`,
	}
	for _, stmt := range statements {
		if _, err := s.run.Run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("failed to initialize neo4j schema: %w", err)
		}
	}
	return nil
}

// WithTx runs fn inside one Neo4j write transaction.
func (s *Neo4jStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if _, alreadyTx := s.run.(*txRunner); alreadyTx {
		return fn(s)
	}
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		txStore := &Neo4jStore{driver: s.driver, database: s.database, run: &txRunner{tx: tx}}
		return nil, fn(txStore)
	})
	return err
}

// Close shuts the driver down.
func (s *Neo4jStore) Close() error {
	return s.driver.Close(context.Background())
}

func (s *Neo4jStore) CreateEntity(ctx context.Context, e *types.Entity) error {
	if err := e.ValidateForCreate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	params, err := entityParams(e)
	if err != nil {
		return err
	}
	_, err = s.run.Run(ctx, `
		CREATE (e:Entity {id: $id, canonical_name: $canonical_name, kind: $kind,
			custom_kind: $custom_kind, status: $status, canonical_id: $canonical_id,
			aliases: $aliases, attributes: $attributes, embedding: $embedding,
			created_at: $created_at, updated_at: $updated_at})`, params)
	if err != nil {
		return fmt.Errorf("failed to create entity: %w", err)
	}
	return nil
}

func (s *Neo4jStore) GetEntity(ctx context.Context, id string) (*types.Entity, error) {
	records, err := s.run.Run(ctx, `MATCH (e:Entity {id: $id}) RETURN e`, map[string]interface{}{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("entity %s: %w", id, types.ErrEntityNotFound)
	}
	return entityFromRecord(records[0]["e"])
}

func (s *Neo4jStore) UpdateEntity(ctx context.Context, e *types.Entity) error {
	if err := e.ValidateForCreate(); err != nil {
		return err
	}
	e.UpdatedAt = time.Now().UTC()
	params, err := entityParams(e)
	if err != nil {
		return err
	}
	records, err := s.run.Run(ctx, `
		MATCH (e:Entity {id: $id})
		SET e.canonical_name = $canonical_name, e.kind = $kind, e.custom_kind = $custom_kind,
			e.status = $status, e.canonical_id = $canonical_id, e.aliases = $aliases,
			e.attributes = $attributes, e.embedding = $embedding, e.updated_at = $updated_at
		RETURN e.id AS id`, params)
	if err != nil {
		return fmt.Errorf("failed to update entity: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("entity %s: %w", e.ID, types.ErrEntityNotFound)
	}
	return nil
}

func (s *Neo4jStore) ListEntities(ctx context.Context, filter EntityFilter) ([]*types.Entity, error) {
	cypher := `MATCH (e:Entity) WHERE 1 = 1`
	params := map[string]interface{}{}
	if filter.Kind != nil {
		cypher += ` AND e.kind = $kind`
		params["kind"] = string(*filter.Kind)
	}
	if filter.CustomKind != "" {
		cypher += ` AND e.custom_kind = $custom_kind`
		params["custom_kind"] = filter.CustomKind
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		cypher += ` AND e.status IN $statuses`
		params["statuses"] = statuses
	}
	cypher += ` RETURN e ORDER BY e.id`
	if filter.Limit > 0 {
		cypher += ` LIMIT $limit`
		params["limit"] = filter.Limit
	}

	records, err := s.run.Run(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	result := make([]*types.Entity, 0, len(records))
	for _, rec := range records {
		e, err := entityFromRecord(rec["e"])
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, nil
}

func (s *Neo4jStore) CountMentions(ctx context.Context, entityID string) (int, error) {
	records, err := s.run.Run(ctx, `
		MATCH (:Fact)-[m:MENTIONS]->(e:Entity {id: $id})
		RETURN count(m) AS count`, map[string]interface{}{"id": entityID})
	if err != nil {
		return 0, fmt.Errorf("failed to count mentions: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}
	return int(asInt64(records[0]["count"])), nil
}

func (s *Neo4jStore) ReassignMentions(ctx context.Context, fromID, toID string) (int, error) {
	records, err := s.run.Run(ctx, `
		MATCH (f:Fact)-[m:MENTIONS]->(from:Entity {id: $from})
		MATCH (to:Entity {id: $to})
		CREATE (f)-[:MENTIONS {mention_text: m.mention_text, role: m.role,
			confidence: m.confidence, position: m.position}]->(to)
		DELETE m
		RETURN count(*) AS moved`, map[string]interface{}{"from": fromID, "to": toID})
	if err != nil {
		return 0, fmt.Errorf("failed to reassign mentions: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}
	return int(asInt64(records[0]["moved"])), nil
}

func (s *Neo4jStore) CreateFact(ctx context.Context, f *types.Fact) error {
	if err := f.ValidateForCreate(); err != nil {
		return err
	}
	digest := f.Digest()
	existing, err := s.run.Run(ctx, `MATCH (f:Fact {digest: $digest}) RETURN f.id AS id`,
		map[string]interface{}{"digest": digest})
	if err != nil {
		return fmt.Errorf("failed to check dedup key: %w", err)
	}
	if len(existing) > 0 {
		return &DuplicateFactError{WinnerID: existing[0]["id"].(string)}
	}

	now := time.Now().UTC()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now

	params, err := factParams(f)
	if err != nil {
		return err
	}
	_, err = s.run.Run(ctx, `
		CREATE (f:Fact {id: $id, text: $text, valid_at: $valid_at, invalid_at: $invalid_at,
			status: $status, confidence: $confidence, method: $method,
			superseded_by_id: $superseded_by_id, derived_from_ids: $derived_from_ids,
			corroborated_by_ids: $corroborated_by_ids, sources: $sources,
			metadata: $metadata, embedding: $embedding, digest: $digest,
			created_at: $created_at, updated_at: $updated_at})`, params)
	if err != nil {
		return fmt.Errorf("failed to create fact: %w", err)
	}
	return s.replaceMentionRels(ctx, f.ID, f.Mentions)
}

func (s *Neo4jStore) replaceMentionRels(ctx context.Context, factID string, mentions []types.EntityMention) error {
	if _, err := s.run.Run(ctx, `MATCH (f:Fact {id: $id})-[m:MENTIONS]->() DELETE m`,
		map[string]interface{}{"id": factID}); err != nil {
		return fmt.Errorf("failed to clear mentions: %w", err)
	}
	for i, m := range mentions {
		_, err := s.run.Run(ctx, `
			MATCH (f:Fact {id: $fact_id}), (e:Entity {id: $entity_id})
			CREATE (f)-[:MENTIONS {mention_text: $text, role: $role,
				confidence: $confidence, position: $position}]->(e)`,
			map[string]interface{}{
				"fact_id": factID, "entity_id": m.EntityID, "text": m.MentionText,
				"role": string(m.Role), "confidence": m.Confidence, "position": i,
			})
		if err != nil {
			return fmt.Errorf("failed to create mention: %w", err)
		}
	}
	return nil
}

func (s *Neo4jStore) GetFact(ctx context.Context, id string) (*types.Fact, error) {
	facts, err := s.queryFacts(ctx, `MATCH (f:Fact {id: $id})`, map[string]interface{}{"id": id}, 0)
	if err != nil {
		return nil, err
	}
	if len(facts) == 0 {
		return nil, fmt.Errorf("fact %s: %w", id, types.ErrFactNotFound)
	}
	return facts[0], nil
}

func (s *Neo4jStore) GetFactByDigest(ctx context.Context, digest string) (*types.Fact, error) {
	facts, err := s.queryFacts(ctx, `MATCH (f:Fact {digest: $digest})`,
		map[string]interface{}{"digest": digest}, 0)
	if err != nil {
		return nil, err
	}
	if len(facts) == 0 {
		return nil, nil
	}
	return facts[0], nil
}

func (s *Neo4jStore) UpdateFact(ctx context.Context, f *types.Fact) error {
	if err := f.ValidateForCreate(); err != nil {
		return err
	}
	f.UpdatedAt = time.Now().UTC()
	params, err := factParams(f)
	if err != nil {
		return err
	}
	records, err := s.run.Run(ctx, `
		MATCH (f:Fact {id: $id})
		SET f.text = $text, f.valid_at = $valid_at, f.invalid_at = $invalid_at,
			f.status = $status, f.confidence = $confidence, f.method = $method,
			f.superseded_by_id = $superseded_by_id, f.derived_from_ids = $derived_from_ids,
			f.corroborated_by_ids = $corroborated_by_ids, f.sources = $sources,
			f.metadata = $metadata, f.embedding = $embedding, f.digest = $digest,
			f.updated_at = $updated_at
		RETURN f.id AS id`, params)
	if err != nil {
		return fmt.Errorf("failed to update fact: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("fact %s: %w", f.ID, types.ErrFactNotFound)
	}
	return s.replaceMentionRels(ctx, f.ID, f.Mentions)
}

func (s *Neo4jStore) ListFacts(ctx context.Context, filter FactFilter) ([]*types.Fact, error) {
	cypher := `MATCH (f:Fact) WHERE 1 = 1`
	params := map[string]interface{}{}
	if filter.EntityID != "" {
		cypher = `MATCH (f:Fact)-[:MENTIONS]->(:Entity {id: $entity_id}) WITH DISTINCT f WHERE 1 = 1`
		params["entity_id"] = filter.EntityID
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		cypher += ` AND f.status IN $statuses`
		params["statuses"] = statuses
	}
	if filter.Topic != "" {
		cypher += ` AND toLower(f.text) CONTAINS toLower($topic)`
		params["topic"] = filter.Topic
	}
	return s.queryFacts(ctx, cypher, params, filter.Limit)
}

func (s *Neo4jStore) queryFacts(ctx context.Context, matchClause string, params map[string]interface{}, limit int) ([]*types.Fact, error) {
	cypher := matchClause + `
		OPTIONAL MATCH (f)-[m:MENTIONS]->(e:Entity)
		WITH f, m, e ORDER BY m.position
		RETURN f, collect({entity_id: e.id, mention_text: m.mention_text,
			role: m.role, confidence: m.confidence}) AS mentions
		ORDER BY f.valid_at, f.id`
	if limit > 0 {
		cypher += ` LIMIT $limit`
		if params == nil {
			params = map[string]interface{}{}
		}
		params["limit"] = limit
	}
	records, err := s.run.Run(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("failed to query facts: %w", err)
	}

	result := make([]*types.Fact, 0, len(records))
	for _, rec := range records {
		f, err := factFromRecord(rec["f"], rec["mentions"])
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, nil
}

// SearchFactText delegates to the full-text index; Lucene scores are
// normalized against the candidate maximum by the ranker.
func (s *Neo4jStore) SearchFactText(ctx context.Context, query string, limit int) ([]ScoredFact, error) {
	if limit <= 0 {
		limit = 50
	}
	records, err := s.run.Run(ctx, `
		CALL db.index.fulltext.queryNodes('fact_text', $query)
		YIELD node, score
		RETURN node.id AS id, score
		ORDER BY score DESC LIMIT $limit`,
		map[string]interface{}{"query": query, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("full-text search failed: %w", err)
	}
	result := make([]ScoredFact, 0, len(records))
	for _, rec := range records {
		result = append(result, ScoredFact{
			FactID: rec["id"].(string),
			Score:  asFloat64(rec["score"]),
		})
	}
	return result, nil
}

// SimilarFacts loads candidate embeddings and scores them client-side, the
// same in-process fallback used when the backend has no native vector index.
func (s *Neo4jStore) SimilarFacts(ctx context.Context, embedding []float32, limit int) ([]ScoredFact, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	records, err := s.run.Run(ctx, `
		MATCH (f:Fact) WHERE f.embedding IS NOT NULL
		RETURN f.id AS id, f.embedding AS embedding`, nil)
	if err != nil {
		return nil, fmt.Errorf("vector candidate load failed: %w", err)
	}

	var scored []ScoredFact
	for _, rec := range records {
		candidate := asFloat32Slice(rec["embedding"])
		score := utils.CosineSimilarity(embedding, candidate)
		if score > 0 {
			scored = append(scored, ScoredFact{FactID: rec["id"].(string), Score: score})
		}
	}
	sortScored(scored)
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// FuzzyEntities loads non-merged entities and scores them with the
// similarity kernel, which keeps the store-level fallback on exactly the
// resolver's confidence scale.
func (s *Neo4jStore) FuzzyEntities(ctx context.Context, name string, minSimilarity float64, limit int) ([]ScoredEntity, error) {
	if limit <= 0 {
		limit = 20
	}
	entities, err := s.ListEntities(ctx, EntityFilter{Statuses: []types.ResolutionStatus{
		types.ResolutionUnresolved, types.ResolutionResolved, types.ResolutionSplit,
	}})
	if err != nil {
		return nil, err
	}

	var scored []ScoredEntity
	for _, e := range entities {
		best := 0.0
		for _, candidate := range e.AllNames() {
			if sim := similarity.NameSimilarity(name, candidate); sim > best {
				best = sim
			}
		}
		if best >= minSimilarity {
			scored = append(scored, ScoredEntity{Entity: e, Similarity: best})
		}
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].Entity.ID < scored[j].Entity.ID
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func entityParams(e *types.Entity) (map[string]interface{}, error) {
	aliases, err := json.Marshal(e.Aliases)
	if err != nil {
		return nil, fmt.Errorf("failed to encode aliases: %w", err)
	}
	attributes, err := json.Marshal(e.Attributes)
	if err != nil {
		return nil, fmt.Errorf("failed to encode attributes: %w", err)
	}
	return map[string]interface{}{
		"id":             e.ID,
		"canonical_name": e.CanonicalName,
		"kind":           string(e.Kind),
		"custom_kind":    e.CustomKind,
		"status":         string(e.Status),
		"canonical_id":   e.CanonicalID,
		"aliases":        string(aliases),
		"attributes":     string(attributes),
		"embedding":      toFloat64Slice(e.Embedding),
		"created_at":     e.CreatedAt,
		"updated_at":     e.UpdatedAt,
	}, nil
}

func factParams(f *types.Fact) (map[string]interface{}, error) {
	sources, err := json.Marshal(f.Sources)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sources: %w", err)
	}
	metadata, err := json.Marshal(f.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	var invalidAt interface{}
	if f.InvalidAt != nil {
		invalidAt = *f.InvalidAt
	}
	return map[string]interface{}{
		"id":                  f.ID,
		"text":                f.Text,
		"valid_at":            f.ValidAt,
		"invalid_at":          invalidAt,
		"status":              string(f.Status),
		"confidence":          f.Confidence,
		"method":              string(f.Method),
		"superseded_by_id":    f.SupersededByID,
		"derived_from_ids":    f.DerivedFromIDs,
		"corroborated_by_ids": f.CorroboratedByIDs,
		"sources":             string(sources),
		"metadata":            string(metadata),
		"embedding":           toFloat64Slice(f.Embedding),
		"digest":              f.Digest(),
		"created_at":          f.CreatedAt,
		"updated_at":          f.UpdatedAt,
	}, nil
}

func entityFromRecord(value interface{}) (*types.Entity, error) {
	node, ok := value.(neo4j.Node)
	if !ok {
		return nil, fmt.Errorf("unexpected entity record type %T", value)
	}
	props := node.Props

	e := &types.Entity{
		ID:            asString(props["id"]),
		CanonicalName: asString(props["canonical_name"]),
		Kind:          types.EntityKind(asString(props["kind"])),
		CustomKind:    asString(props["custom_kind"]),
		Status:        types.ResolutionStatus(asString(props["status"])),
		CanonicalID:   asString(props["canonical_id"]),
		Embedding:     asFloat32Slice(props["embedding"]),
		CreatedAt:     asTime(props["created_at"]),
		UpdatedAt:     asTime(props["updated_at"]),
	}
	if raw := asString(props["aliases"]); raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &e.Aliases); err != nil {
			return nil, fmt.Errorf("failed to decode aliases: %w", err)
		}
	}
	if raw := asString(props["attributes"]); raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &e.Attributes); err != nil {
			return nil, fmt.Errorf("failed to decode attributes: %w", err)
		}
	}
	return e, nil
}

func factFromRecord(value interface{}, mentionsValue interface{}) (*types.Fact, error) {
	node, ok := value.(neo4j.Node)
	if !ok {
		return nil, fmt.Errorf("unexpected fact record type %T", value)
	}
	props := node.Props

	f := &types.Fact{
		ID:                asString(props["id"]),
		Text:              asString(props["text"]),
		ValidAt:           asTime(props["valid_at"]),
		Status:            types.FactStatus(asString(props["status"])),
		Confidence:        asFloat64(props["confidence"]),
		Method:            types.ExtractionMethod(asString(props["method"])),
		SupersededByID:    asString(props["superseded_by_id"]),
		DerivedFromIDs:    asStringSlice(props["derived_from_ids"]),
		CorroboratedByIDs: asStringSlice(props["corroborated_by_ids"]),
		Embedding:         asFloat32Slice(props["embedding"]),
		CreatedAt:         asTime(props["created_at"]),
		UpdatedAt:         asTime(props["updated_at"]),
	}
	if props["invalid_at"] != nil {
		t := asTime(props["invalid_at"])
		f.InvalidAt = &t
	}
	if raw := asString(props["sources"]); raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &f.Sources); err != nil {
			return nil, fmt.Errorf("failed to decode sources: %w", err)
		}
	}
	if raw := asString(props["metadata"]); raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &f.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
	}
	if mentionList, ok := mentionsValue.([]interface{}); ok {
		for _, mv := range mentionList {
			m, ok := mv.(map[string]interface{})
			if !ok || m["entity_id"] == nil {
				continue
			}
			f.Mentions = append(f.Mentions, types.EntityMention{
				EntityID:    asString(m["entity_id"]),
				MentionText: asString(m["mention_text"]),
				Role:        types.MentionRole(asString(m["role"])),
				Confidence:  asFloat64(m["confidence"]),
			})
		}
	}
	return f, nil
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func asFloat64(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}

func asTime(v interface{}) time.Time {
	if t, ok := v.(time.Time); ok {
		return t
	}
	return time.Time{}
}

func asStringSlice(v interface{}) []string {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	result := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			result = append(result, s)
		}
	}
	return result
}

func asFloat32Slice(v interface{}) []float32 {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	result := make([]float32, 0, len(list))
	for _, item := range list {
		result = append(result, float32(asFloat64(item)))
	}
	return result
}

func toFloat64Slice(v []float32) []float64 {
	if len(v) == 0 {
		return nil
	}
	result := make([]float64, len(v))
	for i, x := range v {
		result[i] = float64(x)
	}
	return result
}
