package generator

import (
	"context"

	"go.uber.org/zap"

	"github.com/jokebattles/backend/internal/config"
)

// BuildEnsemble wires the four production jokers from runtime configuration.
func BuildEnsemble(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (*Ensemble, error) {
	openAIJoker, err := NewOpenAIJoker(cfg.OpenAIAPIKey, cfg.OpenAIModel, "")
	if err != nil {
		return nil, err
	}
	anthropicJoker, err := NewAnthropicJoker(cfg.AnthropicAPIKey, cfg.AnthropicModel, "")
	if err != nil {
		return nil, err
	}
	geminiJoker, err := NewGeminiJoker(ctx, cfg.GoogleAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, err
	}
	llamaJoker := NewLlamaJoker(cfg.OllamaBaseURL, cfg.LlamaModel)

	return NewEnsemble(logger, openAIJoker, anthropicJoker, geminiJoker, llamaJoker)
}
