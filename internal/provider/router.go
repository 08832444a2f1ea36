package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/remindly/remindly-server/internal/config"
	"github.com/remindly/remindly-server/internal/model"
	"github.com/remindly/remindly-server/internal/store"
)

// Backends is the resolved model selection for one owner. The embedder is
// always wrapped with the deployment dimension check.
type Backends struct {
	Embedder     Embedder
	Chat         ChatModel
	Provider     string
	ChatModelID  string
	EmbedModelID string
}

// Router resolves which backend and credential each owner uses. An owner with
// a stored configuration gets that backend; everyone else gets the deployment
// defaults. Resolution fails with model.ErrConfiguration when no usable
// credential exists anywhere in the chain.
type Router struct {
	cfg     *config.Config
	configs store.OwnerConfigs
	secrets map[string]string
	log     zerolog.Logger
}

// NewRouter creates a router. secrets maps credential references from owner
// configurations to API keys; deployment default keys come from cfg.
func NewRouter(cfg *config.Config, configs store.OwnerConfigs, secrets map[string]string, log zerolog.Logger) *Router {
	if secrets == nil {
		secrets = map[string]string{}
	}
	return &Router{cfg: cfg, configs: configs, secrets: secrets, log: log}
}

// Resolve picks the backend, models and credential for ownerID.
func (r *Router) Resolve(ctx context.Context, ownerID string) (*Backends, error) {
	prov := r.cfg.DefaultProvider
	chatModel := r.cfg.DefaultChatModel
	embedModel := r.cfg.DefaultEmbedModel
	credRef := ""

	oc, err := r.configs.Get(ctx, ownerID)
	switch {
	case err == nil:
		if oc.Provider != "" {
			prov = oc.Provider
		}
		if oc.ChatModelID != "" {
			chatModel = oc.ChatModelID
		}
		if oc.EmbedModelID != "" {
			embedModel = oc.EmbedModelID
		}
		credRef = oc.CredentialRef
	case errors.Is(err, model.ErrNotFound):
		// deployment defaults
	default:
		return nil, fmt.Errorf("load owner model config: %w", err)
	}

	cred, err := r.credentialFor(prov, credRef)
	if err != nil {
		return nil, err
	}

	embedder, chat, err := r.build(ctx, prov, cred, chatModel, embedModel)
	if err != nil {
		return nil, err
	}

	r.log.Debug().
		Str("ownerId", ownerID).
		Str("provider", prov).
		Str("chatModel", chatModel).
		Str("embedModel", embedModel).
		Msg("resolved model backends")

	return &Backends{
		Embedder:     FixedDim(embedder, r.cfg.EmbedDimension),
		Chat:         chat,
		Provider:     prov,
		ChatModelID:  chatModel,
		EmbedModelID: embedModel,
	}, nil
}

// DefaultBackends resolves the deployment default backends, independent of
// any owner. Used by the health probes.
func (r *Router) DefaultBackends(ctx context.Context) (*Backends, error) {
	cred, err := r.credentialFor(r.cfg.DefaultProvider, "")
	if err != nil {
		return nil, err
	}
	embedder, chat, err := r.build(ctx, r.cfg.DefaultProvider, cred, r.cfg.DefaultChatModel, r.cfg.DefaultEmbedModel)
	if err != nil {
		return nil, err
	}
	return &Backends{
		Embedder:     FixedDim(embedder, r.cfg.EmbedDimension),
		Chat:         chat,
		Provider:     r.cfg.DefaultProvider,
		ChatModelID:  r.cfg.DefaultChatModel,
		EmbedModelID: r.cfg.DefaultEmbedModel,
	}, nil
}

// credentialFor resolves the API key for a provider. A non-empty credential
// reference must resolve through the secrets map; otherwise the deployment
// default key for that provider is used. Ollama needs no credential.
func (r *Router) credentialFor(prov, credRef string) (string, error) {
	if prov == "ollama" {
		return "", nil
	}
	if credRef != "" {
		key, ok := r.secrets[credRef]
		if !ok || key == "" {
			return "", fmt.Errorf("%w: credential reference %q does not resolve", model.ErrConfiguration, credRef)
		}
		return key, nil
	}
	var key string
	switch prov {
	case "openai":
		key = r.cfg.OpenAIAPIKey
	case "gemini":
		key = r.cfg.GeminiAPIKey
	case "anthropic":
		key = r.cfg.AnthropicAPIKey
	default:
		return "", fmt.Errorf("%w: unsupported provider %q", model.ErrConfiguration, prov)
	}
	if key == "" {
		return "", fmt.Errorf("%w: no credential configured for provider %q", model.ErrConfiguration, prov)
	}
	return key, nil
}

func (r *Router) build(ctx context.Context, prov, cred, chatModel, embedModel string) (Embedder, ChatModel, error) {
	switch prov {
	case "openai":
		b := NewOpenAI(cred, chatModel, embedModel, r.cfg.EmbedDimension)
		return b, b, nil
	case "gemini":
		b, err := NewGemini(ctx, cred, chatModel, embedModel, r.cfg.EmbedDimension)
		if err != nil {
			return nil, nil, err
		}
		return b, b, nil
	case "ollama":
		b := NewOllama(r.cfg.OllamaURL, chatModel, embedModel)
		return b, b, nil
	case "anthropic":
		// Anthropic has no embeddings API. Chat goes to Anthropic and
		// embeddings stay on the deployment default backend so every owner
		// shares one embedding space.
		chat := NewAnthropic(cred, chatModel)
		embedder, err := r.defaultEmbedder(ctx)
		if err != nil {
			return nil, nil, err
		}
		return embedder, chat, nil
	default:
		return nil, nil, fmt.Errorf("%w: unsupported provider %q", model.ErrConfiguration, prov)
	}
}

func (r *Router) defaultEmbedder(ctx context.Context) (Embedder, error) {
	prov := r.cfg.DefaultProvider
	if prov == "anthropic" {
		return nil, fmt.Errorf("%w: default provider %q cannot produce embeddings", model.ErrConfiguration, prov)
	}
	cred, err := r.credentialFor(prov, "")
	if err != nil {
		return nil, err
	}
	embedder, _, err := r.build(ctx, prov, cred, r.cfg.DefaultChatModel, r.cfg.DefaultEmbedModel)
	return embedder, err
}
