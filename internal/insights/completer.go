// Package insights turns a shortlist of articles into an InsightBundle using a
// chat-completion model: one call summarizes the articles, a second derives
// topic insights from the summaries.
package insights

import (
	"context"
	"errors"

	"github.com/content-factory/topic-monitor/internal/config"
)

// ErrEmptyCompletion is returned when a model answers with no content
var ErrEmptyCompletion = errors.New("model returned no content")

const maxTokens = 2500

// Completer is a single-turn chat completion backend
type Completer interface {
	Complete(ctx context.Context, system, prompt string, temperature float64) (string, error)
	ModelName() string
}

// NewCompleter builds the backend selected by LLM_PROVIDER. It returns nil when
// that provider has no API key, which disables insight generation.
func NewCompleter(cfg *config.Config) Completer {
	switch cfg.LLMProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil
		}
		return NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	default:
		if cfg.OpenAIAPIKey == "" {
			return nil
		}
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	}
}
