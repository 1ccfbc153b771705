package extraction

import (
	"context"
	"regexp"
	"strings"

	"github.com/chronicle-kb/chronicle/pkg/types"
)

// rulePattern pairs a sentence-level regexp with the kinds and roles its
// capture groups map to. Group 1 is always the subject, group 2 the object.
type rulePattern struct {
	re          *regexp.Regexp
	subjectKind string
	objectKind  string
	objectRole  string
}

// namePart matches one capitalized name of up to four words.
const namePart = `([A-Z][\w.&-]*(?:\s+[A-Z][\w.&-]*){0,3})`

var rulePatterns = []rulePattern{
	{
		re:          regexp.MustCompile(namePart + `\s+is\s+(?:the\s+)?CEO\s+of\s+` + namePart),
		subjectKind: "person", objectKind: "organization", objectRole: "object",
	},
	{
		re:          regexp.MustCompile(namePart + `\s+(?:is\s+married\s+to|married)\s+` + namePart),
		subjectKind: "person", objectKind: "person", objectRole: "object",
	},
	{
		re:          regexp.MustCompile(namePart + `\s+(?:is\s+(?:located|headquartered|based)\s+in|moved\s+to)\s+` + namePart),
		subjectKind: "organization", objectKind: "place", objectRole: "location",
	},
	{
		re:          regexp.MustCompile(namePart + `\s+works\s+(?:at|for)\s+` + namePart),
		subjectKind: "person", objectKind: "organization", objectRole: "object",
	},
	{
		re:          regexp.MustCompile(namePart + `\s+founded\s+` + namePart),
		subjectKind: "person", objectKind: "organization", objectRole: "object",
	},
}

// ruleConfidence is assigned to every rule-based candidate; pattern matches
// are precise but the patterns themselves cover little.
const ruleConfidence = 0.75

// Rules is a regexp-driven extraction method. It trades recall for zero
// external dependencies and deterministic output.
type Rules struct{}

// NewRules creates the rule-based method.
func NewRules() *Rules {
	return &Rules{}
}

func (r *Rules) Name() string { return string(types.ExtractionRuleBased) }

func (r *Rules) Extract(ctx context.Context, text string, opts Options) (*types.Candidates, error) {
	out := &types.Candidates{}
	seenEntities := map[string]bool{}

	for _, sentence := range splitSentences(text) {
		for _, pattern := range rulePatterns {
			match := pattern.re.FindStringSubmatch(sentence)
			if match == nil {
				continue
			}
			subject, object := strings.TrimSpace(match[1]), strings.TrimSpace(match[2])

			out.Facts = append(out.Facts, types.CandidateFact{
				Text:       strings.TrimSpace(match[0]),
				Confidence: ruleConfidence,
				Mentions: []types.CandidateMention{
					{Name: subject, Kind: pattern.subjectKind, Role: "subject", Confidence: ruleConfidence},
					{Name: object, Kind: pattern.objectKind, Role: pattern.objectRole, Confidence: ruleConfidence},
				},
			})
			for _, mention := range []struct{ name, kind string }{
				{subject, pattern.subjectKind}, {object, pattern.objectKind},
			} {
				key := strings.ToLower(mention.name)
				if !seenEntities[key] {
					seenEntities[key] = true
					out.Entities = append(out.Entities, types.CandidateEntity{
						Name: mention.name, Kind: mention.kind,
					})
				}
			}
		}
	}
	return out, nil
}

var sentenceSplit = regexp.MustCompile(`[.!?]\s+|\n+`)

func splitSentences(text string) []string {
	parts := sentenceSplit.Split(text, -1)
	var sentences []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}
