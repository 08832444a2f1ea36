package model

import "errors"

var (
	// ErrNotFound signals a missing record. Mapped to 404 at the HTTP edge.
	ErrNotFound = errors.New("not found")

	// ErrValidation signals malformed caller input. Mapped to 400.
	ErrValidation = errors.New("validation error")

	// ErrDuplicateContent signals that (ownerId, contentHash) already exists.
	// Expected outcome, not logged as an error. Mapped to 409.
	ErrDuplicateContent = errors.New("duplicate content")

	// ErrStorageWrite signals a failed blob or record write.
	ErrStorageWrite = errors.New("storage write failed")

	// ErrProviderUnavailable signals a transient upstream model-provider
	// failure. Retryable by the caller. Mapped to 503.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrProviderMisconfigured signals a missing or rejected credential on a
	// provider call. Not retryable without operator action.
	ErrProviderMisconfigured = errors.New("provider misconfigured")

	// ErrConfiguration signals that no usable credential or backend exists
	// anywhere in the resolution chain for an owner.
	ErrConfiguration = errors.New("configuration error")

	// ErrRetrieval signals a store-level search failure, distinct from an
	// empty result set.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrModelProvider signals a failed chat completion.
	ErrModelProvider = errors.New("model provider error")
)
