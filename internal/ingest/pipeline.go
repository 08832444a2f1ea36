// Package ingest implements the memory write path: dedup reservation, blob
// persistence, text extraction, embedding and finalization.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/remindly/remindly-server/internal/blob"
	"github.com/remindly/remindly-server/internal/extract"
	"github.com/remindly/remindly-server/internal/model"
	"github.com/remindly/remindly-server/internal/provider"
	"github.com/remindly/remindly-server/internal/store"
)

// BackendResolver selects the model backends for an owner.
type BackendResolver interface {
	Resolve(ctx context.Context, ownerID string) (*provider.Backends, error)
}

// Request carries one upload through the pipeline. ContentHash is optional; a
// caller that precomputed the digest sends it along and ingestion rejects the
// upload when it disagrees with the uploaded bytes.
type Request struct {
	OwnerID     string
	FileName    string
	MimeType    string
	Data        []byte
	Comment     string
	ContentHash string
}

// Pipeline runs the ingestion write path. The record store reservation is the
// only shared-state write before finalization; no locks are held across the
// blob or provider calls.
type Pipeline struct {
	memories  store.Memories
	blobs     blob.Store
	extractor extract.Extractor
	router    BackendResolver
	log       zerolog.Logger
}

func NewPipeline(memories store.Memories, blobs blob.Store, extractor extract.Extractor, router BackendResolver, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		memories:  memories,
		blobs:     blobs,
		extractor: extractor,
		router:    router,
		log:       log,
	}
}

// Ingest captures one upload as a finalized memory.
//
// Order matters: the reservation must come first so two concurrent uploads of
// the same content race on a single row insert, and the embedding must succeed
// before finalization so no active record ever lacks a vector. Extraction
// failure degrades to a fallback text instead of aborting; a memory is still
// useful as a file reference.
func (p *Pipeline) Ingest(ctx context.Context, req *Request) (*model.Memory, error) {
	contentHash := HashContent(req.Data)
	if req.ContentHash != "" && !strings.EqualFold(req.ContentHash, contentHash) {
		// The server-side digest is the dedup key; a disagreeing caller hash
		// means the payload was corrupted or mislabeled in transit.
		return nil, fmt.Errorf("%w: contentHash does not match the uploaded data", model.ErrValidation)
	}
	m := &model.Memory{
		MemoryID:    uuid.New().String(),
		OwnerID:     req.OwnerID,
		ContentHash: contentHash,
		UserComment: req.Comment,
		BlobPath:    blob.GeneratePath(req.OwnerID, req.FileName),
		BlobType:    req.MimeType,
		Status:      model.StatusPending,
	}

	reserved, err := p.memories.Reserve(ctx, m)
	if err != nil {
		// Duplicate is an expected outcome, not a fault; it passes through
		// for the caller to report and is not logged as an error.
		return nil, err
	}
	m = reserved

	if err := p.blobs.Put(ctx, m.BlobPath, req.Data, req.MimeType); err != nil {
		p.release(ctx, m)
		return nil, fmt.Errorf("%w: %v", model.ErrStorageWrite, err)
	}

	text, err := p.extractor.ExtractText(ctx, req.FileName, req.MimeType, req.Data)
	if err != nil {
		p.log.Warn().
			Str("ownerId", m.OwnerID).
			Str("memoryId", m.MemoryID).
			Err(err).
			Msg("text extraction failed, storing fallback text")
		text = extract.FallbackText(req.FileName)
	}
	m.ExtractedText = text

	backends, err := p.router.Resolve(ctx, req.OwnerID)
	if err != nil {
		p.release(ctx, m)
		return nil, err
	}
	vec, err := backends.Embedder.Embed(ctx, EmbedInput(m.UserComment, m.ExtractedText))
	if err != nil {
		p.release(ctx, m)
		return nil, err
	}
	m.Embedding = vec

	finalized, err := p.memories.Finalize(ctx, m)
	if err != nil {
		p.release(ctx, m)
		return nil, fmt.Errorf("%w: finalize memory: %v", model.ErrStorageWrite, err)
	}

	p.log.Info().
		Str("ownerId", finalized.OwnerID).
		Str("memoryId", finalized.MemoryID).
		Str("blobPath", finalized.BlobPath).
		Msg("memory ingested")
	return finalized, nil
}

// release rolls back a pending reservation. A failed rollback is logged and
// left for the sweeper; it never masks the primary error.
func (p *Pipeline) release(ctx context.Context, m *model.Memory) {
	if err := p.memories.Release(ctx, m.OwnerID, m.MemoryID); err != nil {
		p.log.Error().
			Str("ownerId", m.OwnerID).
			Str("memoryId", m.MemoryID).
			Err(err).
			Msg("failed to release reservation, sweeper will collect it")
	}
}

// HashContent computes the content address for dedup: SHA-256 over the raw
// upload bytes, hex encoded.
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// EmbedInput joins the user comment and extracted text into the one string
// that gets embedded, so recall matches against both.
func EmbedInput(comment, text string) string {
	return strings.TrimSpace(comment + "\n" + text)
}
