package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/remindly/remindly-server/internal/api/respond"
	"github.com/remindly/remindly-server/internal/api/validate"
	"github.com/remindly/remindly-server/internal/chat"
	"github.com/remindly/remindly-server/internal/model"
	"github.com/remindly/remindly-server/internal/provider"
)

// Responder runs one grounded chat turn.
type Responder interface {
	Respond(ctx context.Context, ownerID string, turns []model.ChatTurn) (*chat.Answer, error)
}

// Retriever finds memories relevant to a query vector.
type Retriever interface {
	Search(ctx context.Context, ownerID string, query []float32, threshold float64, topK int) ([]model.RetrievedMemory, error)
}

// BackendResolver selects the model backends for an owner.
type BackendResolver interface {
	Resolve(ctx context.Context, ownerID string) (*provider.Backends, error)
}

// ChatHandler serves the conversation and search endpoints.
type ChatHandler struct {
	orchestrator Responder
	retriever    Retriever
	router       BackendResolver
	threshold    float64
	topK         int
	log          zerolog.Logger
}

func NewChatHandler(orchestrator Responder, retriever Retriever, router BackendResolver, threshold float64, topK int, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		orchestrator: orchestrator,
		retriever:    retriever,
		router:       router,
		threshold:    threshold,
		topK:         topK,
		log:          log,
	}
}

// HandleChat handles POST /api/chat
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OwnerID  string           `json:"ownerId"`
		Messages []model.ChatTurn `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.OwnerID(req.OwnerID); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	if len(req.Messages) == 0 {
		respond.WriteBadRequest(w, "messages is required")
		return
	}

	ans, err := h.orchestrator.Respond(r.Context(), req.OwnerID, req.Messages)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, ans)
}

// HandleSearch handles POST /api/search
func (h *ChatHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OwnerID   string   `json:"ownerId"`
		Query     string   `json:"query"`
		Threshold *float64 `json:"threshold,omitempty"`
		TopK      *int     `json:"topK,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}

	threshold := h.threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	topK := h.topK
	if req.TopK != nil {
		topK = *req.TopK
	}
	if err := validate.Search(req.OwnerID, req.Query, threshold, topK); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	backends, err := h.router.Resolve(r.Context(), req.OwnerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	vec, err := backends.Embedder.Embed(r.Context(), req.Query)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	results, err := h.retriever.Search(r.Context(), req.OwnerID, vec, threshold, topK)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}
