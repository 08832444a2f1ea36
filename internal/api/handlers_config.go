package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/remindly/remindly-server/internal/api/respond"
	"github.com/remindly/remindly-server/internal/api/validate"
	"github.com/remindly/remindly-server/internal/model"
	"github.com/remindly/remindly-server/internal/store"
)

// ConfigHandler serves the per-owner model selection surface. Raw API keys
// are never accepted or returned here; owners reference credentials by name.
type ConfigHandler struct {
	configs store.OwnerConfigs
	log     zerolog.Logger
}

func NewConfigHandler(configs store.OwnerConfigs, log zerolog.Logger) *ConfigHandler {
	return &ConfigHandler{configs: configs, log: log}
}

// GetModelConfig handles GET /api/owners/{ownerId}/model-config
func (h *ConfigHandler) GetModelConfig(w http.ResponseWriter, r *http.Request) {
	ownerID := mux.Vars(r)["ownerId"]
	if err := validate.OwnerID(ownerID); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	c, err := h.configs.Get(r.Context(), ownerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, c)
}

// PutModelConfig handles PUT /api/owners/{ownerId}/model-config
func (h *ConfigHandler) PutModelConfig(w http.ResponseWriter, r *http.Request) {
	ownerID := mux.Vars(r)["ownerId"]
	if err := validate.OwnerID(ownerID); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	var req struct {
		Provider      string `json:"provider"`
		ChatModelID   string `json:"chatModelId,omitempty"`
		EmbedModelID  string `json:"embedModelId,omitempty"`
		CredentialRef string `json:"credentialRef,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.ModelConfig(ownerID, req.Provider); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	c, err := h.configs.Put(r.Context(), &model.OwnerModelConfig{
		OwnerID:       ownerID,
		Provider:      req.Provider,
		ChatModelID:   req.ChatModelID,
		EmbedModelID:  req.EmbedModelID,
		CredentialRef: req.CredentialRef,
	})
	if err != nil {
		h.log.Error().Str("ownerId", ownerID).Err(err).Msg("failed to store model config")
		respond.WriteInternalError(w, "failed to store model config")
		return
	}
	respond.WriteJSON(w, http.StatusOK, c)
}
