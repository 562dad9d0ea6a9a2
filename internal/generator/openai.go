package generator

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jokebattles/backend/internal/arena"
)

// OpenAIJoker tells jokes through the OpenAI chat completion API.
type OpenAIJoker struct {
	client *openai.Client
	model  string
}

// NewOpenAIJoker constructs the OpenAI joker. The base URL override exists
// for tests and OpenAI-compatible gateways.
func NewOpenAIJoker(apiKey, model, baseURL string) (*OpenAIJoker, error) {
	if apiKey == "" {
		return nil, errors.New("generator: openai api key is required")
	}
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAIJoker{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}, nil
}

// Identity reports the generator this joker speaks for.
func (j *OpenAIJoker) Identity() arena.GeneratorIdentity {
	return arena.GeneratorOpenAI
}

// TellJoke requests a single joke for the topic.
func (j *OpenAIJoker) TellJoke(ctx context.Context, topic string) (string, error) {
	resp, err := j.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: j.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: comedianSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: jokePrompt(topic)},
		},
		MaxTokens:   jokeMaxTokens,
		Temperature: jokeTemperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("generator: openai returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
