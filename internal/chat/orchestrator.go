package chat

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/remindly/remindly-server/internal/model"
	"github.com/remindly/remindly-server/internal/provider"
)

// Retriever finds the owner's memories relevant to a query vector.
type Retriever interface {
	Search(ctx context.Context, ownerID string, query []float32, threshold float64, topK int) ([]model.RetrievedMemory, error)
}

// BackendResolver selects the model backends for an owner.
type BackendResolver interface {
	Resolve(ctx context.Context, ownerID string) (*provider.Backends, error)
}

// Answer is the result of one grounded chat turn.
type Answer struct {
	Reply    string                  `json:"reply"`
	Memories []model.RetrievedMemory `json:"memories"`
}

// Orchestrator runs one stateless chat turn: embed the latest user message,
// retrieve relevant memories, assemble the grounding context and call the
// chat model. The caller supplies the whole conversation on every request.
type Orchestrator struct {
	router    BackendResolver
	retriever Retriever
	assembler *Assembler
	threshold float64
	topK      int
	log       zerolog.Logger
}

func NewOrchestrator(router BackendResolver, retriever Retriever, assembler *Assembler, threshold float64, topK int, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		router:    router,
		retriever: retriever,
		assembler: assembler,
		threshold: threshold,
		topK:      topK,
		log:       log,
	}
}

// Respond answers the latest user turn grounded in retrieved memories.
//
// An embedding or retrieval failure aborts the turn; answering without the
// intended grounding would be a silent quality regression the caller cannot
// detect. Empty retrieval is not a failure: the model is told no memories
// matched and answers accordingly.
func (o *Orchestrator) Respond(ctx context.Context, ownerID string, turns []model.ChatTurn) (*Answer, error) {
	query, err := latestUserMessage(turns)
	if err != nil {
		return nil, err
	}

	backends, err := o.router.Resolve(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	vec, err := backends.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	memories, err := o.retriever.Search(ctx, ownerID, vec, o.threshold, o.topK)
	if err != nil {
		return nil, err
	}

	reply, err := backends.Chat.Complete(ctx, o.assembler.SystemPrompt(memories), turns)
	if err != nil {
		return nil, err
	}

	o.log.Info().
		Str("ownerId", ownerID).
		Str("provider", backends.Provider).
		Int("memoriesUsed", len(memories)).
		Msg("chat turn answered")

	return &Answer{Reply: reply, Memories: memories}, nil
}

// latestUserMessage finds the query to embed: the content of the last user
// turn in the conversation.
func latestUserMessage(turns []model.ChatTurn) (string, error) {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == model.RoleUser && turns[i].Content != "" {
			return turns[i].Content, nil
		}
	}
	return "", fmt.Errorf("%w: conversation has no user message", model.ErrValidation)
}
