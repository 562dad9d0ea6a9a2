package generator

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"github.com/jokebattles/backend/internal/arena"
)

// GeminiJoker tells jokes through the Gemini API.
type GeminiJoker struct {
	client *genai.Client
	model  string
}

// NewGeminiJoker constructs the Gemini joker.
func NewGeminiJoker(ctx context.Context, apiKey, model string) (*GeminiJoker, error) {
	if apiKey == "" {
		return nil, errors.New("generator: google api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiJoker{client: client, model: model}, nil
}

// Identity reports the generator this joker speaks for.
func (j *GeminiJoker) Identity() arena.GeneratorIdentity {
	return arena.GeneratorGemini
}

// TellJoke requests a single joke for the topic.
func (j *GeminiJoker) TellJoke(ctx context.Context, topic string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(jokePrompt(topic), genai.RoleUser),
	}
	generateConfig := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(jokeTemperature)),
		MaxOutputTokens: jokeMaxTokens,
	}

	resp, err := j.client.Models.GenerateContent(ctx, j.model, contents, generateConfig)
	if err != nil {
		return "", err
	}
	joke := strings.TrimSpace(resp.Text())
	if joke == "" {
		return "", errors.New("generator: gemini returned no text")
	}
	return joke, nil
}
