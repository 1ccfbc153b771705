package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	jsonrepair "github.com/kaptinlin/jsonrepair"
	openai "github.com/sashabaranov/go-openai"

	"github.com/chronicle-kb/chronicle/pkg/types"
)

const extractionSystemPrompt = `You extract factual assertions from text.
Return ONLY a JSON object of the form:
{
  "facts": [
    {
      "text": "one factual assertion, self-contained",
      "valid_at": "RFC3339 timestamp or null if unknown",
      "invalid_at": "RFC3339 timestamp or null",
      "confidence": 0.0-1.0,
      "mentions": [
        {"name": "entity surface form", "kind": "person|organization|place|product|event|concept", "role": "subject|object|location", "confidence": 0.0-1.0}
      ]
    }
  ],
  "entities": [
    {"name": "entity surface form", "kind": "person|organization|place|product|event|concept", "aliases": ["other surface forms"]}
  ]
}
Emit every distinct assertion as its own fact. Do not invent information.`

// LLMConfig holds settings for the LLM extraction method.
type LLMConfig struct {
	Model       string  `json:"model" mapstructure:"model"`
	BaseURL     string  `json:"base_url" mapstructure:"base_url"`
	Temperature float32 `json:"temperature" mapstructure:"temperature"`
}

// LLM extracts candidates with a chat-completion model. Model output is run
// through JSON repair before parsing, since models routinely emit fenced or
// slightly malformed JSON.
type LLM struct {
	client *openai.Client
	config LLMConfig
	logger *slog.Logger
}

// NewLLM creates the LLM extraction method. A nil logger falls back to
// slog.Default.
func NewLLM(apiKey string, config LLMConfig, logger *slog.Logger) *LLM {
	if config.Model == "" {
		config.Model = openai.GPT4oMini
	}
	clientConfig := openai.DefaultConfig(apiKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LLM{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		logger: logger,
	}
}

func (l *LLM) Name() string { return string(types.ExtractionLLM) }

func (l *LLM) Extract(ctx context.Context, text string, opts Options) (*types.Candidates, error) {
	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       l.config.Model,
		Temperature: l.config.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractionSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("extraction completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("extraction completion returned no choices")
	}

	candidates, err := parseCandidates(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("llm extraction complete",
		"facts", len(candidates.Facts),
		"entities", len(candidates.Entities))
	return candidates, nil
}

// parseCandidates decodes model output into candidates, stripping code
// fences and repairing malformed JSON first.
func parseCandidates(raw string) (*types.Candidates, error) {
	cleaned := stripCodeFences(raw)
	repaired, err := jsonrepair.JSONRepair(cleaned)
	if err != nil {
		repaired = cleaned
	}

	var candidates types.Candidates
	if err := json.Unmarshal([]byte(repaired), &candidates); err != nil {
		return nil, fmt.Errorf("failed to parse extraction output: %w", err)
	}
	return &candidates, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
