package chronicle

import (
	"context"
	"strings"
	"unicode"

	"github.com/chronicle-kb/chronicle/pkg/search"
	"github.com/chronicle-kb/chronicle/pkg/types"
)

// retrievalCandidateLimit bounds how many candidates each index contributes
// before ranking.
const retrievalCandidateLimit = 50

// Retrieve answers a natural-language query: it gathers candidates from the
// full-text index and, when an embedder is configured, the vector index,
// merges them, resolves the entities the query names, and ranks everything
// with the multi-signal ranker.
func (c *Client) Retrieve(ctx context.Context, query string) (*types.QueryResult, error) {
	textScored, err := c.store.SearchFactText(ctx, query, retrievalCandidateLimit)
	if err != nil {
		return nil, err
	}

	fullText := make(map[string]float64, len(textScored))
	order := make([]string, 0, len(textScored))
	for _, sf := range textScored {
		fullText[sf.FactID] = sf.Score
		order = append(order, sf.FactID)
	}

	var queryEmbedding []float32
	if c.embedder != nil {
		queryEmbedding, err = c.embedder.EmbedSingle(ctx, query)
		if err != nil {
			c.logger.Warn("query embedding failed, ranking without vector signal", "error", err)
			queryEmbedding = nil
		}
		if len(queryEmbedding) > 0 {
			vectorScored, err := c.store.SimilarFacts(ctx, queryEmbedding, retrievalCandidateLimit)
			if err != nil {
				return nil, err
			}
			for _, sf := range vectorScored {
				if _, ok := fullText[sf.FactID]; !ok {
					fullText[sf.FactID] = 0
					order = append(order, sf.FactID)
				}
			}
		}
	}

	candidates := make([]search.Candidate, 0, len(order))
	entities := make(map[string]*types.Entity)
	for _, id := range order {
		f, err := c.store.GetFact(ctx, id)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, search.Candidate{
			Fact:          f,
			FullTextScore: fullText[id],
		})
		for _, mention := range f.Mentions {
			if _, ok := entities[mention.EntityID]; ok {
				continue
			}
			e, err := c.store.GetEntity(ctx, mention.EntityID)
			if err != nil {
				return nil, err
			}
			entities[mention.EntityID] = e
		}
	}

	queryEntities, err := c.resolveQueryEntities(ctx, query)
	if err != nil {
		return nil, err
	}

	ranked := c.ranker.Rank(search.Request{
		Query:          query,
		QueryEmbedding: queryEmbedding,
		Entities:       queryEntities,
		MinScore:       c.config.Search.MinScore,
		Limit:          c.config.Search.Limit,
	}, candidates)

	result := &types.QueryResult{
		Facts:    make([]*types.Fact, 0, len(ranked)),
		Entities: make(map[string]*types.Entity),
		Query:    query,
		Total:    len(ranked),
	}
	for _, rf := range ranked {
		result.Facts = append(result.Facts, rf.Fact)
		for _, mention := range rf.Fact.Mentions {
			if e, ok := entities[mention.EntityID]; ok {
				result.Entities[mention.EntityID] = e
			}
		}
	}
	return result, nil
}

// resolveQueryEntities resolves the capitalized name spans of a query into
// entities for the entity-overlap ranking signal.
func (c *Client) resolveQueryEntities(ctx context.Context, query string) ([]*types.Entity, error) {
	var entities []*types.Entity
	seen := map[string]bool{}
	for _, span := range nameSpans(query) {
		resolved, err := c.resolver.Resolve(ctx, span, "")
		if err != nil {
			return nil, err
		}
		if resolved != nil && !seen[resolved.Entity.ID] {
			seen[resolved.Entity.ID] = true
			entities = append(entities, resolved.Entity)
		}
	}
	return entities, nil
}

// nameSpans extracts maximal runs of capitalized words from a query, the
// spans most likely to be entity names.
func nameSpans(query string) []string {
	words := strings.Fields(query)
	var spans []string
	var current []string
	flush := func() {
		if len(current) > 0 {
			spans = append(spans, strings.Join(current, " "))
			current = nil
		}
	}
	for i, word := range words {
		trimmed := strings.Trim(word, `.,;:!?"'()[]`)
		if isCapitalized(trimmed) && (i > 0 || startsWithName(words)) {
			current = append(current, trimmed)
		} else {
			flush()
		}
	}
	flush()
	return spans
}

// startsWithName distinguishes a query opening with a name from plain
// sentence case: the first word counts when the word after it is capitalized
// too, or when it is the whole query.
func startsWithName(words []string) bool {
	if len(words) < 2 {
		return true
	}
	return isCapitalized(strings.Trim(words[1], `.,;:!?"'()[]`))
}

func isCapitalized(s string) bool {
	runes := []rune(s)
	return len(runes) > 0 && unicode.IsUpper(runes[0])
}
