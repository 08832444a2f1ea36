package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/remindly/remindly-server/internal/model"
)

// OpenAIBackend serves both embeddings and chat completions through the
// OpenAI API.
type OpenAIBackend struct {
	client     openai.Client
	chatModel  string
	embedModel string
	dimensions int
}

// NewOpenAI creates an OpenAI backend.
func NewOpenAI(apiKey, chatModel, embedModel string, dimensions int) *OpenAIBackend {
	return &OpenAIBackend{
		client:     openai.NewClient(option.WithAPIKey(apiKey)),
		chatModel:  chatModel,
		embedModel: embedModel,
		dimensions: dimensions,
	}
}

func (b *OpenAIBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(b.embedModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
	}
	// Only v3 embedding models accept a dimensions override.
	if b.dimensions > 0 && strings.HasPrefix(b.embedModel, "text-embedding-3") {
		params.Dimensions = openai.Int(int64(b.dimensions))
	}

	resp, err := b.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, wrapOpenAIError("embeddings", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: openai returned no embedding data", model.ErrProviderUnavailable)
	}
	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	return vec, nil
}

func (b *OpenAIBackend) Complete(ctx context.Context, system string, turns []model.ChatTurn) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+1)
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	for _, t := range turns {
		switch t.Role {
		case model.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(t.Content))
		default:
			messages = append(messages, openai.UserMessage(t.Content))
		}
	}

	resp, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(b.chatModel),
		Messages: messages,
	})
	if err != nil {
		return "", wrapOpenAIError("chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai returned no choices", model.ErrModelProvider)
	}
	return resp.Choices[0].Message.Content, nil
}

func wrapOpenAIError(op string, err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return fmt.Errorf("%w: openai %s status %d", classifyStatus(apierr.StatusCode), op, apierr.StatusCode)
	}
	return fmt.Errorf("%w: openai %s: %v", model.ErrProviderUnavailable, op, err)
}
