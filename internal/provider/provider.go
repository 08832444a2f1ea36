// Package provider abstracts the embedding and chat model backends and routes
// each owner to the backend and credential configured for them.
package provider

import (
	"context"
	"fmt"

	"github.com/remindly/remindly-server/internal/model"
)

// Embedder produces vector representations for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ChatModel produces a completion for a conversation. system is prepended as
// the grounding instruction; turns are the caller-supplied history.
type ChatModel interface {
	Complete(ctx context.Context, system string, turns []model.ChatTurn) (string, error)
}

// fixedDimEmbedder enforces the deployment embedding dimension. Every vector
// that enters the record store or a similarity query passes through this
// wrapper; a mismatch is a configuration fault, never silently stored.
type fixedDimEmbedder struct {
	inner Embedder
	dim   int
}

// FixedDim wraps an embedder with a dimension check.
func FixedDim(inner Embedder, dim int) Embedder {
	return &fixedDimEmbedder{inner: inner, dim: dim}
}

func (e *fixedDimEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) != e.dim {
		return nil, fmt.Errorf("%w: embedding dimension %d, deployment requires %d",
			model.ErrConfiguration, len(vec), e.dim)
	}
	return vec, nil
}

// classifyStatus maps an HTTP status from a provider API to the error
// taxonomy: auth problems are misconfiguration, everything else is a
// transient upstream failure.
func classifyStatus(status int) error {
	switch status {
	case 401, 403:
		return model.ErrProviderMisconfigured
	default:
		return model.ErrProviderUnavailable
	}
}
