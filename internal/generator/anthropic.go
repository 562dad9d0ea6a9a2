package generator

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/jokebattles/backend/internal/arena"
)

// AnthropicJoker tells jokes through the Anthropic messages API.
type AnthropicJoker struct {
	client anthropic.Client
	model  string
}

// NewAnthropicJoker constructs the Anthropic joker.
func NewAnthropicJoker(apiKey, model, baseURL string) (*AnthropicJoker, error) {
	if apiKey == "" {
		return nil, errors.New("generator: anthropic api key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &AnthropicJoker{
		client: anthropic.NewClient(opts...),
		model:  model,
	}, nil
}

// Identity reports the generator this joker speaks for.
func (j *AnthropicJoker) Identity() arena.GeneratorIdentity {
	return arena.GeneratorAnthropic
}

// TellJoke requests a single joke for the topic.
func (j *AnthropicJoker) TellJoke(ctx context.Context, topic string) (string, error) {
	message, err := j.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(j.model),
		MaxTokens:   jokeMaxTokens,
		Temperature: anthropic.Float(jokeTemperature),
		System:      []anthropic.TextBlockParam{{Text: comedianSystemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(jokePrompt(topic))),
		},
	})
	if err != nil {
		return "", err
	}

	var joke strings.Builder
	for _, block := range message.Content {
		switch content := block.AsAny().(type) {
		case anthropic.TextBlock:
			joke.WriteString(content.Text)
		}
	}
	if joke.Len() == 0 {
		return "", errors.New("generator: anthropic returned no text")
	}
	return strings.TrimSpace(joke.String()), nil
}
