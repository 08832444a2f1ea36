package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/remindly/remindly-server/internal/model"
)

// GeminiBackend serves embeddings and chat completions through the Gemini
// API.
type GeminiBackend struct {
	client     *genai.Client
	chatModel  string
	embedModel string
	dimensions int
}

// NewGemini creates a Gemini backend using an API key.
func NewGemini(ctx context.Context, apiKey, chatModel, embedModel string, dimensions int) (*GeminiBackend, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create genai client: %v", model.ErrProviderMisconfigured, err)
	}
	return &GeminiBackend{
		client:     client,
		chatModel:  chatModel,
		embedModel: embedModel,
		dimensions: dimensions,
	}, nil
}

func (b *GeminiBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	cfg := &genai.EmbedContentConfig{}
	if b.dimensions > 0 {
		dim := int32(b.dimensions)
		cfg.OutputDimensionality = &dim
	}
	resp, err := b.client.Models.EmbedContent(ctx, b.embedModel, genai.Text(text), cfg)
	if err != nil {
		return nil, wrapGeminiError("embed content", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("%w: gemini returned no embedding values", model.ErrProviderUnavailable)
	}
	return resp.Embeddings[0].Values, nil
}

func (b *GeminiBackend) Complete(ctx context.Context, system string, turns []model.ChatTurn) (string, error) {
	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, "")
	}
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		contents = append(contents, genai.NewContentFromText(t.Content, geminiRole(t.Role)))
	}

	resp, err := b.client.Models.GenerateContent(ctx, b.chatModel, contents, config)
	if err != nil {
		return "", wrapGeminiError("generate content", err)
	}

	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				sb.WriteString(part.Text)
			}
		}
		break
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: gemini returned no text", model.ErrModelProvider)
	}
	return sb.String(), nil
}

// geminiRole maps a conversation role onto the typed role the genai content
// constructors require.
func geminiRole(role string) genai.Role {
	if role == model.RoleAssistant {
		return genai.RoleModel
	}
	return genai.RoleUser
}

func wrapGeminiError(op string, err error) error {
	var apierr genai.APIError
	if errors.As(err, &apierr) {
		return fmt.Errorf("%w: gemini %s status %d", classifyStatus(apierr.Code), op, apierr.Code)
	}
	return fmt.Errorf("%w: gemini %s: %v", model.ErrProviderUnavailable, op, err)
}
