package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/remindly/remindly-server/internal/model"
)

// OllamaBackend serves embeddings and chat completions from a local Ollama
// instance. No credential is required.
type OllamaBackend struct {
	client     *resty.Client
	chatModel  string
	embedModel string
}

// NewOllama creates an Ollama backend against the given base URL.
func NewOllama(baseURL, chatModel, embedModel string) *OllamaBackend {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(60 * time.Second)
	return &OllamaBackend{client: client, chatModel: chatModel, embedModel: embedModel}
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
	Error     string    `json:"error"`
}

func (b *OllamaBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	var out ollamaEmbedResponse
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(&ollamaEmbedRequest{Model: b.embedModel, Prompt: text}).
		SetResult(&out).
		Post("/api/embeddings")
	if err != nil {
		return nil, fmt.Errorf("%w: ollama embeddings: %v", model.ErrProviderUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: ollama embeddings status %d", model.ErrProviderUnavailable, resp.StatusCode())
	}
	if out.Error != "" {
		return nil, fmt.Errorf("%w: ollama embeddings: %s", model.ErrProviderUnavailable, out.Error)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("%w: ollama returned no embedding", model.ErrProviderUnavailable)
	}
	vec := make([]float32, len(out.Embedding))
	for i, v := range out.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
	Error   string            `json:"error"`
}

func (b *OllamaBackend) Complete(ctx context.Context, system string, turns []model.ChatTurn) (string, error) {
	messages := make([]ollamaChatMessage, 0, len(turns)+1)
	if system != "" {
		messages = append(messages, ollamaChatMessage{Role: "system", Content: system})
	}
	for _, t := range turns {
		messages = append(messages, ollamaChatMessage{Role: t.Role, Content: t.Content})
	}

	var out ollamaChatResponse
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(&ollamaChatRequest{Model: b.chatModel, Messages: messages, Stream: false}).
		SetResult(&out).
		Post("/api/chat")
	if err != nil {
		return "", fmt.Errorf("%w: ollama chat: %v", model.ErrProviderUnavailable, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: ollama chat status %d", model.ErrProviderUnavailable, resp.StatusCode())
	}
	if out.Error != "" {
		return "", fmt.Errorf("%w: ollama chat: %s", model.ErrModelProvider, out.Error)
	}
	if out.Message.Content == "" {
		return "", fmt.Errorf("%w: ollama returned no text", model.ErrModelProvider)
	}
	return out.Message.Content, nil
}

// HealthPing checks /api/tags for the configured embedding model's presence.
func (b *OllamaBackend) HealthPing(ctx context.Context) error {
	var data struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	resp, err := b.client.R().SetContext(ctx).SetResult(&data).Get("/api/tags")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("ollama status %d", resp.StatusCode())
	}
	want := baseModelName(b.embedModel)
	for _, m := range data.Models {
		if baseModelName(m.Name) == want {
			return nil
		}
	}
	return fmt.Errorf("model %s not found", want)
}

func baseModelName(name string) string {
	return strings.Split(name, ":")[0]
}
