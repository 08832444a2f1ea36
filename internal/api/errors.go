package api

import (
	"errors"
	"net/http"

	"github.com/remindly/remindly-server/internal/api/respond"
	"github.com/remindly/remindly-server/internal/model"
)

// writeDomainError maps the error taxonomy to HTTP statuses with safe
// messages. Credentials and internal detail never reach the response body.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrDuplicateContent):
		respond.WriteError(w, http.StatusConflict, "this content has already been captured")
	case errors.Is(err, model.ErrValidation):
		respond.WriteBadRequest(w, err.Error())
	case errors.Is(err, model.ErrNotFound):
		respond.WriteNotFound(w, "not found")
	case errors.Is(err, model.ErrProviderUnavailable):
		respond.WriteError(w, http.StatusServiceUnavailable, "model provider unavailable, retry later")
	case errors.Is(err, model.ErrModelProvider):
		respond.WriteError(w, http.StatusServiceUnavailable, "chat model failed to answer")
	case errors.Is(err, model.ErrProviderMisconfigured), errors.Is(err, model.ErrConfiguration):
		respond.WriteError(w, http.StatusInternalServerError, "model provider is not configured for this owner")
	case errors.Is(err, model.ErrStorageWrite):
		respond.WriteInternalError(w, "failed to persist memory")
	case errors.Is(err, model.ErrRetrieval):
		respond.WriteInternalError(w, "memory retrieval failed")
	default:
		respond.WriteInternalError(w, "internal error")
	}
}
