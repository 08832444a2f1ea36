package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/remindly/remindly-server/internal/api/respond"
	"github.com/remindly/remindly-server/internal/api/validate"
	"github.com/remindly/remindly-server/internal/ingest"
	"github.com/remindly/remindly-server/internal/model"
	"github.com/remindly/remindly-server/internal/store"
)

// Ingestor runs the memory write path.
type Ingestor interface {
	Ingest(ctx context.Context, req *ingest.Request) (*model.Memory, error)
}

// MemoryHandler handles memory capture and browsing (thin transport layer).
type MemoryHandler struct {
	pipeline Ingestor
	memories store.Memories
	log      zerolog.Logger
}

func NewMemoryHandler(pipeline Ingestor, memories store.Memories, log zerolog.Logger) *MemoryHandler {
	return &MemoryHandler{pipeline: pipeline, memories: memories, log: log}
}

type ingestRequest struct {
	OwnerID     string `json:"ownerId"`
	FileName    string `json:"fileName"`
	FileType    string `json:"fileType"`
	FileData    string `json:"fileData"`
	ContentHash string `json:"contentHash,omitempty"`
	Comment     string `json:"comment,omitempty"`
}

// CreateMemory handles POST /api/memories
func (h *MemoryHandler) CreateMemory(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}

	if err := validate.Ingest(req.OwnerID, req.FileName, req.FileData); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	data, err := decodeFileData(req.FileData)
	if err != nil {
		respond.WriteBadRequest(w, "fileData must be base64 encoded")
		return
	}

	m, err := h.pipeline.Ingest(r.Context(), &ingest.Request{
		OwnerID:     req.OwnerID,
		FileName:    req.FileName,
		MimeType:    req.FileType,
		Data:        data,
		Comment:     req.Comment,
		ContentHash: req.ContentHash,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// The embedding is internal plumbing, not API surface.
	m.Embedding = nil
	respond.WriteJSON(w, http.StatusCreated, m)
}

// ListMemories handles GET /api/owners/{ownerId}/memories
func (h *MemoryHandler) ListMemories(w http.ResponseWriter, r *http.Request) {
	ownerID := mux.Vars(r)["ownerId"]
	if err := validate.OwnerID(ownerID); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	memories, err := h.memories.List(r.Context(), ownerID)
	if err != nil {
		h.log.Error().Str("ownerId", ownerID).Err(err).Msg("failed to list memories")
		respond.WriteInternalError(w, "failed to list memories")
		return
	}
	if memories == nil {
		memories = []*model.Memory{}
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"memories": memories,
		"count":    len(memories),
	})
}

// GetMemory handles GET /api/owners/{ownerId}/memories/{memoryId}
func (h *MemoryHandler) GetMemory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ownerID, memoryID := vars["ownerId"], vars["memoryId"]
	if err := validate.OwnerID(ownerID); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	m, err := h.memories.Get(r.Context(), ownerID, memoryID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	m.Embedding = nil
	respond.WriteJSON(w, http.StatusOK, m)
}

// UpdateComment handles PATCH /api/owners/{ownerId}/memories/{memoryId}/comment
func (h *MemoryHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ownerID, memoryID := vars["ownerId"], vars["memoryId"]
	if err := validate.OwnerID(ownerID); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	var req struct {
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.MaxLen("comment", req.Comment, 2000); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	m, err := h.memories.UpdateComment(r.Context(), ownerID, memoryID, req.Comment)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	m.Embedding = nil
	respond.WriteJSON(w, http.StatusOK, m)
}

// decodeFileData accepts raw base64 or the browser data-URL form
// ("data:<mime>;base64,<payload>").
func decodeFileData(s string) ([]byte, error) {
	if i := strings.Index(s, ";base64,"); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+len(";base64,"):]
	}
	return base64.StdEncoding.DecodeString(s)
}
