package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/jokebattles/backend/internal/arena"
)

// LlamaJoker tells jokes through a local Ollama server's chat API.
type LlamaJoker struct {
	client *resty.Client
	model  string
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  ollamaChatOptions   `json:"options"`
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
}

// NewLlamaJoker constructs the Ollama-backed joker.
func NewLlamaJoker(baseURL, model string) *LlamaJoker {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetHeader("Content-Type", "application/json")
	return &LlamaJoker{client: client, model: model}
}

// Identity reports the generator this joker speaks for.
func (j *LlamaJoker) Identity() arena.GeneratorIdentity {
	return arena.GeneratorLlama
}

// TellJoke requests a single joke for the topic.
func (j *LlamaJoker) TellJoke(ctx context.Context, topic string) (string, error) {
	payload := ollamaChatRequest{
		Model: j.model,
		Messages: []ollamaChatMessage{
			{Role: "system", Content: comedianSystemPrompt},
			{Role: "user", Content: jokePrompt(topic)},
		},
		Stream: false,
		Options: ollamaChatOptions{
			Temperature: jokeTemperature,
			NumPredict:  jokeMaxTokens,
		},
	}

	var out ollamaChatResponse
	resp, err := j.client.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&out).
		Post("/api/chat")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("generator: ollama status %d", resp.StatusCode())
	}
	joke := strings.TrimSpace(out.Message.Content)
	if joke == "" {
		return "", errors.New("generator: ollama returned no text")
	}
	return joke, nil
}
