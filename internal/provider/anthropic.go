package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/remindly/remindly-server/internal/model"
)

// AnthropicBackend serves chat completions through the Anthropic API. The API
// has no embeddings endpoint, so this backend is chat-only; the router pairs
// it with the deployment's default embedding backend.
type AnthropicBackend struct {
	client    anthropic.Client
	chatModel string
	maxTokens int64
}

// NewAnthropic creates an Anthropic chat backend.
func NewAnthropic(apiKey, chatModel string) *AnthropicBackend {
	return &AnthropicBackend{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		chatModel: chatModel,
		maxTokens: 1024,
	}
}

func (b *AnthropicBackend) Complete(ctx context.Context, system string, turns []model.ChatTurn) (string, error) {
	messages := make([]anthropic.MessageParam, 0, len(turns))
	for _, t := range turns {
		block := anthropic.NewTextBlock(t.Content)
		if t.Role == model.RoleAssistant {
			messages = append(messages, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleAssistant,
				Content: []anthropic.ContentBlockParamUnion{block},
			})
			continue
		}
		messages = append(messages, anthropic.NewUserMessage(block))
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(b.chatModel),
		MaxTokens: b.maxTokens,
		Messages:  messages,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return "", wrapAnthropicError(err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: anthropic returned no text", model.ErrModelProvider)
	}
	return sb.String(), nil
}

func wrapAnthropicError(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return fmt.Errorf("%w: anthropic chat status %d", classifyStatus(apierr.StatusCode), apierr.StatusCode)
	}
	return fmt.Errorf("%w: anthropic chat: %v", model.ErrProviderUnavailable, err)
}
