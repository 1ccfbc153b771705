// Package search ranks candidate facts against a query by combining
// heterogeneous relevance signals into one weighted score.
//
// Each signal is bounded independently before weighting: full-text scores
// are normalized against the candidate set's maximum, cosine similarity is
// clamped to [0,1], and entity-mention overlap is capped so a fact dense in
// entity names cannot drown out the rest. Weights are configuration, usually
// summing to about 1.0, but the ranker does not enforce normalization.
package search

import (
	"regexp"
	"sort"
	"strings"

	"github.com/chronicle-kb/chronicle/pkg/types"
	"github.com/chronicle-kb/chronicle/pkg/utils"
)

// Weights control how much each signal contributes to the final score.
type Weights struct {
	FullText      float64 `json:"full_text" mapstructure:"full_text"`
	Vector        float64 `json:"vector" mapstructure:"vector"`
	EntityOverlap float64 `json:"entity_overlap" mapstructure:"entity_overlap"`
	TermOverlap   float64 `json:"term_overlap" mapstructure:"term_overlap"`
	Relationship  float64 `json:"relationship" mapstructure:"relationship"`
	DirectAnswer  float64 `json:"direct_answer" mapstructure:"direct_answer"`
	Confidence    float64 `json:"confidence" mapstructure:"confidence"`
}

// DefaultWeights returns the stock signal weights.
func DefaultWeights() Weights {
	return Weights{
		FullText:      0.25,
		Vector:        0.25,
		EntityOverlap: 0.15,
		TermOverlap:   0.15,
		Relationship:  0.05,
		DirectAnswer:  0.05,
		Confidence:    0.10,
	}
}

// entityOverlapCap bounds the entity-overlap signal at this multiple of its
// weight.
const entityOverlapCap = 3.0

// Candidate is one fact entering the ranker, with its precomputed
// index-level scores. FullTextScore is the external index's raw relevance
// value (any non-negative scale); QueryEmbedding missing or the fact having
// no embedding zeroes the vector signal.
type Candidate struct {
	Fact          *types.Fact
	FullTextScore float64
}

// SignalBreakdown records each signal's weighted contribution to a score.
type SignalBreakdown struct {
	FullText      float64 `json:"full_text"`
	Vector        float64 `json:"vector"`
	EntityOverlap float64 `json:"entity_overlap"`
	TermOverlap   float64 `json:"term_overlap"`
	Relationship  float64 `json:"relationship"`
	DirectAnswer  float64 `json:"direct_answer"`
	Confidence    float64 `json:"confidence"`
}

// RankedFact is one ranked result.
type RankedFact struct {
	Fact    *types.Fact
	Score   float64
	Signals SignalBreakdown
}

// Request carries everything one ranking pass needs.
type Request struct {
	Query string
	// QueryEmbedding, when present, enables the vector signal.
	QueryEmbedding []float32
	// Entities are the resolved query entities; their names and aliases
	// feed the entity-overlap signal.
	Entities []*types.Entity
	// MinScore drops candidates scoring below it before truncation.
	// Zero disables the filter.
	MinScore float64
	// Limit truncates the result after filtering. Zero means no limit.
	Limit int
}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "did": true, "do": true, "does": true, "for": true,
	"from": true, "has": true, "have": true, "how": true, "in": true,
	"is": true, "it": true, "of": true, "on": true, "or": true, "that": true,
	"the": true, "to": true, "was": true, "were": true, "what": true,
	"when": true, "where": true, "which": true, "who": true, "whom": true,
	"whose": true, "why": true, "will": true, "with": true,
}

// relationshipVocab are verbs and nouns that signal an assertion about a
// relationship between entities.
var relationshipVocab = []string{
	"married", "spouse", "wife", "husband", "partner",
	"works", "worked", "employed", "hired", "joined", "founded", "leads",
	"ceo", "cto", "president", "director", "chair",
	"located", "headquartered", "based", "moved", "lives", "lived",
	"owns", "acquired", "merged", "parent", "subsidiary",
	"born", "died", "graduated", "studied",
}

// Intent patterns for the direct-answer bonus. Each pattern pairs a query
// phrasing with the vocabulary an answering fact would use.
var intentPatterns = []struct {
	query  *regexp.Regexp
	answer []string
}{
	{regexp.MustCompile(`(?i)\b(married to|spouse|wife|husband)\b`),
		[]string{"married", "spouse", "wife", "husband"}},
	{regexp.MustCompile(`(?i)\bwhere (is|was|are|does|did)\b`),
		[]string{"located", "headquartered", "based", "in", "at", "lives", "moved"}},
	{regexp.MustCompile(`(?i)\bwho (is|was) the\b`),
		[]string{"is", "was", "ceo", "president", "director", "chair", "head"}},
	{regexp.MustCompile(`(?i)\bwork(s|ed)? (at|for)\b`),
		[]string{"works", "worked", "employed", "joined"}},
}

// Ranker scores candidates. The zero value is unusable; construct with
// NewRanker.
type Ranker struct {
	weights Weights
}

// NewRanker creates a Ranker with the given weights. Zero-valued weights are
// respected as written; callers wanting the defaults pass DefaultWeights().
func NewRanker(weights Weights) *Ranker {
	return &Ranker{weights: weights}
}

// Rank scores every candidate against the request and returns them ordered
// by score descending, after MinScore filtering and Limit truncation.
func (r *Ranker) Rank(req Request, candidates []Candidate) []RankedFact {
	queryTerms := contentTerms(req.Query)
	queryLower := strings.ToLower(req.Query)
	entityNames := collectEntityNames(req.Entities)
	maxFullText := 0.0
	for _, c := range candidates {
		if c.FullTextScore > maxFullText {
			maxFullText = c.FullTextScore
		}
	}

	ranked := make([]RankedFact, 0, len(candidates))
	for _, c := range candidates {
		signals := r.score(c, req, queryTerms, queryLower, entityNames, maxFullText)
		total := signals.FullText + signals.Vector + signals.EntityOverlap +
			signals.TermOverlap + signals.Relationship + signals.DirectAnswer +
			signals.Confidence
		if req.MinScore > 0 && total < req.MinScore {
			continue
		}
		ranked = append(ranked, RankedFact{Fact: c.Fact, Score: total, Signals: signals})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Fact.ID < ranked[j].Fact.ID
	})
	if req.Limit > 0 && len(ranked) > req.Limit {
		ranked = ranked[:req.Limit]
	}
	return ranked
}

func (r *Ranker) score(c Candidate, req Request, queryTerms []string, queryLower string, entityNames []string, maxFullText float64) SignalBreakdown {
	textLower := strings.ToLower(c.Fact.Text)
	var s SignalBreakdown

	if maxFullText > 0 {
		s.FullText = r.weights.FullText * (c.FullTextScore / maxFullText)
	}

	if len(req.QueryEmbedding) > 0 && len(c.Fact.Embedding) > 0 {
		cos := utils.Clamp01(utils.CosineSimilarity(req.QueryEmbedding, c.Fact.Embedding))
		s.Vector = r.weights.Vector * cos
	}

	if len(entityNames) > 0 {
		hits := 0
		for _, name := range entityNames {
			if strings.Contains(textLower, name) {
				hits++
			}
		}
		contribution := r.weights.EntityOverlap * float64(hits)
		if ceiling := r.weights.EntityOverlap * entityOverlapCap; contribution > ceiling {
			contribution = ceiling
		}
		s.EntityOverlap = contribution
	}

	if len(queryTerms) > 0 {
		hits := 0
		for _, term := range queryTerms {
			if strings.Contains(textLower, term) {
				hits++
			}
		}
		s.TermOverlap = r.weights.TermOverlap * float64(hits) / float64(len(queryTerms))
	}

	for _, word := range relationshipVocab {
		if strings.Contains(queryLower, word) && strings.Contains(textLower, word) {
			s.Relationship = r.weights.Relationship
			break
		}
	}

	for _, pattern := range intentPatterns {
		if !pattern.query.MatchString(req.Query) {
			continue
		}
		for _, word := range pattern.answer {
			if containsWord(textLower, word) {
				s.DirectAnswer = r.weights.DirectAnswer
				break
			}
		}
		if s.DirectAnswer > 0 {
			break
		}
	}

	s.Confidence = r.weights.Confidence * utils.Clamp01(c.Fact.Confidence)
	return s
}

// contentTerms extracts the lowercase non-stopword terms of a query.
func contentTerms(query string) []string {
	var terms []string
	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.Trim(word, `.,;:!?"'()[]`)
		if word == "" || stopwords[word] {
			continue
		}
		terms = append(terms, word)
	}
	return terms
}

func collectEntityNames(entities []*types.Entity) []string {
	var names []string
	for _, e := range entities {
		for _, name := range e.AllNames() {
			names = append(names, strings.ToLower(name))
		}
	}
	return names
}

func containsWord(textLower, word string) bool {
	for _, w := range strings.Fields(textLower) {
		if strings.Trim(w, `.,;:!?"'()[]`) == word {
			return true
		}
	}
	return false
}
