package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/chronicle-kb/chronicle/pkg/types"
)

// PostgresStore implements Store on PostgreSQL. It relies on three
// extensions that map directly onto the store contract: pgvector for
// nearest-neighbor similarity, pg_trgm for approximate string lookup, and
// the built-in tsvector machinery for full-text relevance. Mentions live in
// their own table so merge-time reassignment is a single UPDATE; everything
// else a fact owns is carried as jsonb on the fact row.
type PostgresStore struct {
	db   *sql.DB
	q    querier
	dims int
}

// querier is satisfied by both *sql.DB and *sql.Tx so the same methods serve
// inside and outside a unit of work.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// NewPostgresStore connects and ensures the schema exists.
func NewPostgresStore(connectionString string, embeddingDims int) (*PostgresStore, error) {
	if embeddingDims <= 0 {
		embeddingDims = 1536
	}
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &PostgresStore{db: db, q: db, dims: embeddingDims}
	if err := s.initialize(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) initialize(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE EXTENSION IF NOT EXISTS pg_trgm`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS entities (
			id TEXT PRIMARY KEY,
			canonical_name TEXT NOT NULL,
			kind TEXT NOT NULL,
			custom_kind TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			canonical_id TEXT NOT NULL DEFAULT '',
			aliases JSONB NOT NULL DEFAULT '[]',
			attributes JSONB NOT NULL DEFAULT '{}',
			embedding vector(%d),
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`, s.dims),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS facts (
			id TEXT PRIMARY KEY,
			fact_text TEXT NOT NULL,
			valid_at TIMESTAMPTZ NOT NULL,
			invalid_at TIMESTAMPTZ,
			status TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			method TEXT NOT NULL DEFAULT 'manual',
			superseded_by_id TEXT NOT NULL DEFAULT '',
			derived_from_ids JSONB NOT NULL DEFAULT '[]',
			corroborated_by_ids JSONB NOT NULL DEFAULT '[]',
			sources JSONB NOT NULL DEFAULT '[]',
			metadata JSONB NOT NULL DEFAULT '{}',
			embedding vector(%d),
			digest TEXT NOT NULL UNIQUE,
			tsv tsvector GENERATED ALWAYS AS (to_tsvector('english', fact_text)) STORED,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`, s.dims),
		`CREATE TABLE IF NOT EXISTS mentions (
			fact_id TEXT NOT NULL REFERENCES facts(id) ON DELETE CASCADE,
			entity_id TEXT NOT NULL,
			mention_text TEXT NOT NULL,
			role TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			position INT NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entities_name_trgm ON entities USING gin (lower(canonical_name) gin_trgm_ops)`,
		`CREATE INDEX IF NOT EXISTS idx_facts_tsv ON facts USING gin (tsv)`,
		`CREATE INDEX IF NOT EXISTS idx_facts_valid_at ON facts (valid_at)`,
		`CREATE INDEX IF NOT EXISTS idx_mentions_entity ON mentions (entity_id)`,
		`CREATE INDEX IF NOT EXISTS idx_mentions_fact ON mentions (fact_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.q.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// WithTx runs fn inside a database transaction.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if s.db == nil {
		// Already inside a transaction.
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	txStore := &PostgresStore{q: tx, dims: s.dims}
	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStore) CreateEntity(ctx context.Context, e *types.Entity) error {
	if err := e.ValidateForCreate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	aliases, attributes, err := marshalEntityJSON(e)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO entities (id, canonical_name, kind, custom_kind, status, canonical_id,
			aliases, attributes, embedding, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.CanonicalName, string(e.Kind), e.CustomKind, string(e.Status), e.CanonicalID,
		aliases, attributes, embeddingParam(e.Embedding), e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert entity: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetEntity(ctx context.Context, id string) (*types.Entity, error) {
	row := s.q.QueryRowContext(ctx, entitySelect+` WHERE id = $1`, id)
	e, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("entity %s: %w", id, types.ErrEntityNotFound)
	}
	return e, err
}

func (s *PostgresStore) UpdateEntity(ctx context.Context, e *types.Entity) error {
	if err := e.ValidateForCreate(); err != nil {
		return err
	}
	e.UpdatedAt = time.Now().UTC()
	aliases, attributes, err := marshalEntityJSON(e)
	if err != nil {
		return err
	}
	res, err := s.q.ExecContext(ctx, `
		UPDATE entities SET canonical_name = $2, kind = $3, custom_kind = $4, status = $5,
			canonical_id = $6, aliases = $7, attributes = $8, embedding = $9, updated_at = $10
		WHERE id = $1`,
		e.ID, e.CanonicalName, string(e.Kind), e.CustomKind, string(e.Status),
		e.CanonicalID, aliases, attributes, embeddingParam(e.Embedding), e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update entity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("entity %s: %w", e.ID, types.ErrEntityNotFound)
	}
	return nil
}

func (s *PostgresStore) ListEntities(ctx context.Context, filter EntityFilter) ([]*types.Entity, error) {
	query := entitySelect + ` WHERE 1=1`
	args := []interface{}{}
	if filter.Kind != nil {
		args = append(args, string(*filter.Kind))
		query += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	if filter.CustomKind != "" {
		args = append(args, filter.CustomKind)
		query += fmt.Sprintf(" AND custom_kind = $%d", len(args))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		statusJSON, _ := json.Marshal(statuses)
		args = append(args, string(statusJSON))
		query += fmt.Sprintf(" AND status IN (SELECT jsonb_array_elements_text($%d::jsonb))", len(args))
	}
	query += " ORDER BY id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	defer rows.Close()

	var result []*types.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (s *PostgresStore) CountMentions(ctx context.Context, entityID string) (int, error) {
	var count int
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM mentions WHERE entity_id = $1`, entityID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count mentions: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) ReassignMentions(ctx context.Context, fromID, toID string) (int, error) {
	res, err := s.q.ExecContext(ctx,
		`UPDATE mentions SET entity_id = $2 WHERE entity_id = $1`, fromID, toID)
	if err != nil {
		return 0, fmt.Errorf("failed to reassign mentions: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *PostgresStore) CreateFact(ctx context.Context, f *types.Fact) error {
	if err := f.ValidateForCreate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now

	derived, corroborated, sources, metadata, err := marshalFactJSON(f)
	if err != nil {
		return err
	}
	var insertedID string
	err = s.q.QueryRowContext(ctx, `
		INSERT INTO facts (id, fact_text, valid_at, invalid_at, status, confidence, method,
			superseded_by_id, derived_from_ids, corroborated_by_ids, sources, metadata,
			embedding, digest, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (digest) DO NOTHING
		RETURNING id`,
		f.ID, f.Text, f.ValidAt, f.InvalidAt, string(f.Status), f.Confidence, string(f.Method),
		f.SupersededByID, derived, corroborated, sources, metadata,
		embeddingParam(f.Embedding), f.Digest(), f.CreatedAt, f.UpdatedAt).Scan(&insertedID)
	if err == sql.ErrNoRows {
		// The dedup key is already taken; report the winner.
		var winner string
		if lookupErr := s.q.QueryRowContext(ctx,
			`SELECT id FROM facts WHERE digest = $1`, f.Digest()).Scan(&winner); lookupErr != nil {
			return fmt.Errorf("failed to look up dedup winner: %w", lookupErr)
		}
		return &DuplicateFactError{WinnerID: winner}
	}
	if err != nil {
		return fmt.Errorf("failed to insert fact: %w", err)
	}
	return s.replaceMentions(ctx, f.ID, f.Mentions)
}

func (s *PostgresStore) replaceMentions(ctx context.Context, factID string, mentions []types.EntityMention) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM mentions WHERE fact_id = $1`, factID); err != nil {
		return fmt.Errorf("failed to clear mentions: %w", err)
	}
	for i, m := range mentions {
		_, err := s.q.ExecContext(ctx, `
			INSERT INTO mentions (fact_id, entity_id, mention_text, role, confidence, position)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			factID, m.EntityID, m.MentionText, string(m.Role), m.Confidence, i)
		if err != nil {
			return fmt.Errorf("failed to insert mention: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) GetFact(ctx context.Context, id string) (*types.Fact, error) {
	row := s.q.QueryRowContext(ctx, factSelect+` WHERE id = $1`, id)
	f, err := scanFact(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("fact %s: %w", id, types.ErrFactNotFound)
	}
	if err != nil {
		return nil, err
	}
	return f, s.loadMentions(ctx, f)
}

func (s *PostgresStore) GetFactByDigest(ctx context.Context, digest string) (*types.Fact, error) {
	row := s.q.QueryRowContext(ctx, factSelect+` WHERE digest = $1`, digest)
	f, err := scanFact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f, s.loadMentions(ctx, f)
}

func (s *PostgresStore) UpdateFact(ctx context.Context, f *types.Fact) error {
	if err := f.ValidateForCreate(); err != nil {
		return err
	}
	f.UpdatedAt = time.Now().UTC()
	derived, corroborated, sources, metadata, err := marshalFactJSON(f)
	if err != nil {
		return err
	}
	res, err := s.q.ExecContext(ctx, `
		UPDATE facts SET fact_text = $2, valid_at = $3, invalid_at = $4, status = $5,
			confidence = $6, method = $7, superseded_by_id = $8, derived_from_ids = $9,
			corroborated_by_ids = $10, sources = $11, metadata = $12, embedding = $13,
			digest = $14, updated_at = $15
		WHERE id = $1`,
		f.ID, f.Text, f.ValidAt, f.InvalidAt, string(f.Status), f.Confidence, string(f.Method),
		f.SupersededByID, derived, corroborated, sources, metadata,
		embeddingParam(f.Embedding), f.Digest(), f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update fact: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("fact %s: %w", f.ID, types.ErrFactNotFound)
	}
	return s.replaceMentions(ctx, f.ID, f.Mentions)
}

func (s *PostgresStore) ListFacts(ctx context.Context, filter FactFilter) ([]*types.Fact, error) {
	query := factSelect + ` WHERE 1=1`
	args := []interface{}{}
	if filter.EntityID != "" {
		args = append(args, filter.EntityID)
		query += fmt.Sprintf(" AND id IN (SELECT fact_id FROM mentions WHERE entity_id = $%d)", len(args))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		statusJSON, _ := json.Marshal(statuses)
		args = append(args, string(statusJSON))
		query += fmt.Sprintf(" AND status IN (SELECT jsonb_array_elements_text($%d::jsonb))", len(args))
	}
	if filter.Topic != "" {
		args = append(args, "%"+filter.Topic+"%")
		query += fmt.Sprintf(" AND fact_text ILIKE $%d", len(args))
	}
	query += " ORDER BY valid_at, id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list facts: %w", err)
	}
	defer rows.Close()

	var result []*types.Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, f := range result {
		if err := s.loadMentions(ctx, f); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *PostgresStore) loadMentions(ctx context.Context, f *types.Fact) error {
	rows, err := s.q.QueryContext(ctx, `
		SELECT entity_id, mention_text, role, confidence
		FROM mentions WHERE fact_id = $1 ORDER BY position`, f.ID)
	if err != nil {
		return fmt.Errorf("failed to load mentions: %w", err)
	}
	defer rows.Close()

	f.Mentions = nil
	for rows.Next() {
		var m types.EntityMention
		var role string
		if err := rows.Scan(&m.EntityID, &m.MentionText, &role, &m.Confidence); err != nil {
			return err
		}
		m.Role = types.MentionRole(role)
		f.Mentions = append(f.Mentions, m)
	}
	return rows.Err()
}

// SearchFactText scores facts with ts_rank; scores are normalized against
// the candidate maximum by the ranker, so raw rank values are fine here.
func (s *PostgresStore) SearchFactText(ctx context.Context, query string, limit int) ([]ScoredFact, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, ts_rank(tsv, plainto_tsquery('english', $1)) AS rank
		FROM facts
		WHERE tsv @@ plainto_tsquery('english', $1)
		ORDER BY rank DESC, id
		LIMIT $2`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("full-text search failed: %w", err)
	}
	defer rows.Close()
	return scanScoredFacts(rows)
}

// SimilarFacts orders facts by cosine similarity using pgvector.
func (s *PostgresStore) SimilarFacts(ctx context.Context, embedding []float32, limit int) ([]ScoredFact, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, 1 - (embedding <=> $1) AS similarity
		FROM facts
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1, id
		LIMIT $2`, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer rows.Close()
	return scanScoredFacts(rows)
}

// FuzzyEntities uses pg_trgm similarity over canonical names and alias
// texts. Trigram similarity is not identical to the Levenshtein measure the
// resolver owns, but it lives on the same [0, 1] scale and is filtered at
// the same threshold; the resolver's own matcher remains the source of
// truth for accept decisions.
func (s *PostgresStore) FuzzyEntities(ctx context.Context, name string, minSimilarity float64, limit int) ([]ScoredEntity, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.q.QueryContext(ctx, entitySelect+`,
		GREATEST(
			similarity(lower(canonical_name), lower($1)),
			COALESCE((SELECT MAX(similarity(lower(a->>'text'), lower($1)))
			          FROM jsonb_array_elements(aliases) a), 0)
		) AS sim
		FROM entities
		WHERE status <> 'merged'
		  AND GREATEST(
			similarity(lower(canonical_name), lower($1)),
			COALESCE((SELECT MAX(similarity(lower(a->>'text'), lower($1)))
			          FROM jsonb_array_elements(aliases) a), 0)
		  ) >= $2
		ORDER BY sim DESC, id
		LIMIT $3`, name, minSimilarity, limit)
	if err != nil {
		return nil, fmt.Errorf("fuzzy entity search failed: %w", err)
	}
	defer rows.Close()

	var result []ScoredEntity
	for rows.Next() {
		e, sim, err := scanScoredEntity(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, ScoredEntity{Entity: e, Similarity: sim})
	}
	return result, rows.Err()
}

const entitySelect = `SELECT id, canonical_name, kind, custom_kind, status, canonical_id,
	aliases, attributes, embedding, created_at, updated_at FROM entities`

// Fuzzy search appends a similarity column, so it selects fields inline.
const factSelect = `SELECT id, fact_text, valid_at, invalid_at, status, confidence, method,
	superseded_by_id, derived_from_ids, corroborated_by_ids, sources, metadata,
	embedding, created_at, updated_at FROM facts`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntity(row rowScanner) (*types.Entity, error) {
	var (
		e          types.Entity
		kind       string
		status     string
		aliases    []byte
		attributes []byte
		embedding  nullVector
	)
	err := row.Scan(&e.ID, &e.CanonicalName, &kind, &e.CustomKind, &status, &e.CanonicalID,
		&aliases, &attributes, &embedding, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Kind = types.EntityKind(kind)
	e.Status = types.ResolutionStatus(status)
	if len(aliases) > 0 {
		if err := json.Unmarshal(aliases, &e.Aliases); err != nil {
			return nil, fmt.Errorf("failed to decode aliases: %w", err)
		}
	}
	if len(attributes) > 0 {
		if err := json.Unmarshal(attributes, &e.Attributes); err != nil {
			return nil, fmt.Errorf("failed to decode attributes: %w", err)
		}
	}
	e.Embedding = embedding.slice()
	return &e, nil
}

func scanScoredEntity(row rowScanner) (*types.Entity, float64, error) {
	var (
		e          types.Entity
		kind       string
		status     string
		aliases    []byte
		attributes []byte
		embedding  nullVector
		sim        float64
	)
	err := row.Scan(&e.ID, &e.CanonicalName, &kind, &e.CustomKind, &status, &e.CanonicalID,
		&aliases, &attributes, &embedding, &e.CreatedAt, &e.UpdatedAt, &sim)
	if err != nil {
		return nil, 0, err
	}
	e.Kind = types.EntityKind(kind)
	e.Status = types.ResolutionStatus(status)
	if len(aliases) > 0 {
		if err := json.Unmarshal(aliases, &e.Aliases); err != nil {
			return nil, 0, fmt.Errorf("failed to decode aliases: %w", err)
		}
	}
	if len(attributes) > 0 {
		if err := json.Unmarshal(attributes, &e.Attributes); err != nil {
			return nil, 0, fmt.Errorf("failed to decode attributes: %w", err)
		}
	}
	e.Embedding = embedding.slice()
	return &e, sim, nil
}

func scanFact(row rowScanner) (*types.Fact, error) {
	var (
		f            types.Fact
		status       string
		method       string
		invalidAt    sql.NullTime
		derived      []byte
		corroborated []byte
		sources      []byte
		metadata     []byte
		embedding    nullVector
	)
	err := row.Scan(&f.ID, &f.Text, &f.ValidAt, &invalidAt, &status, &f.Confidence, &method,
		&f.SupersededByID, &derived, &corroborated, &sources, &metadata,
		&embedding, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	f.Status = types.FactStatus(status)
	f.Method = types.ExtractionMethod(method)
	if invalidAt.Valid {
		t := invalidAt.Time
		f.InvalidAt = &t
	}
	if len(derived) > 0 {
		if err := json.Unmarshal(derived, &f.DerivedFromIDs); err != nil {
			return nil, fmt.Errorf("failed to decode derived_from_ids: %w", err)
		}
	}
	if len(corroborated) > 0 {
		if err := json.Unmarshal(corroborated, &f.CorroboratedByIDs); err != nil {
			return nil, fmt.Errorf("failed to decode corroborated_by_ids: %w", err)
		}
	}
	if len(sources) > 0 {
		if err := json.Unmarshal(sources, &f.Sources); err != nil {
			return nil, fmt.Errorf("failed to decode sources: %w", err)
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &f.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
	}
	f.Embedding = embedding.slice()
	return &f, nil
}

func scanScoredFacts(rows *sql.Rows) ([]ScoredFact, error) {
	var result []ScoredFact
	for rows.Next() {
		var sf ScoredFact
		if err := rows.Scan(&sf.FactID, &sf.Score); err != nil {
			return nil, err
		}
		result = append(result, sf)
	}
	return result, rows.Err()
}

func marshalEntityJSON(e *types.Entity) (aliases, attributes []byte, err error) {
	if e.Aliases == nil {
		aliases = []byte(`[]`)
	} else if aliases, err = json.Marshal(e.Aliases); err != nil {
		return nil, nil, fmt.Errorf("failed to encode aliases: %w", err)
	}
	if e.Attributes == nil {
		attributes = []byte(`{}`)
	} else if attributes, err = json.Marshal(e.Attributes); err != nil {
		return nil, nil, fmt.Errorf("failed to encode attributes: %w", err)
	}
	return aliases, attributes, nil
}

func marshalFactJSON(f *types.Fact) (derived, corroborated, sources, metadata []byte, err error) {
	derivedIDs := f.DerivedFromIDs
	if derivedIDs == nil {
		derivedIDs = []string{}
	}
	corroboratedIDs := f.CorroboratedByIDs
	if corroboratedIDs == nil {
		corroboratedIDs = []string{}
	}
	factSources := f.Sources
	if factSources == nil {
		factSources = []types.FactSource{}
	}
	meta := f.Metadata
	if meta == nil {
		meta = map[string]interface{}{}
	}
	if derived, err = json.Marshal(derivedIDs); err != nil {
		return
	}
	if corroborated, err = json.Marshal(corroboratedIDs); err != nil {
		return
	}
	if sources, err = json.Marshal(factSources); err != nil {
		return
	}
	metadata, err = json.Marshal(meta)
	return
}

func embeddingParam(embedding []float32) interface{} {
	if len(embedding) == 0 {
		return nil
	}
	return pgvector.NewVector(embedding)
}

// nullVector scans a nullable pgvector column.
type nullVector struct {
	vec   pgvector.Vector
	valid bool
}

func (n *nullVector) Scan(src interface{}) error {
	if src == nil {
		return nil
	}
	n.valid = true
	return n.vec.Scan(src)
}

func (n *nullVector) slice() []float32 {
	if !n.valid {
		return nil
	}
	return n.vec.Slice()
}
