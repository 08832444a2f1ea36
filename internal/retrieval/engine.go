// Package retrieval scores an owner's memories against a query vector and
// returns the relevant ones.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/remindly/remindly-server/internal/blob"
	"github.com/remindly/remindly-server/internal/model"
	"github.com/remindly/remindly-server/internal/store"
)

// Engine runs owner-scoped similarity search over finalized memories.
// Candidates come from the record store pre-filtered by owner, so a query can
// never surface another owner's rows regardless of vector proximity.
type Engine struct {
	memories store.Memories
	blobs    blob.Store
	log      zerolog.Logger
}

func NewEngine(memories store.Memories, blobs blob.Store, log zerolog.Logger) *Engine {
	return &Engine{memories: memories, blobs: blobs, log: log}
}

// Search returns the owner's memories scoring at or above threshold against
// query, at most topK, ordered by score descending with newer memories first
// on ties. An empty result is a valid outcome, distinct from the
// model.ErrRetrieval returned on store failure.
func (e *Engine) Search(ctx context.Context, ownerID string, query []float32, threshold float64, topK int) ([]model.RetrievedMemory, error) {
	candidates, err := e.memories.Candidates(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: load candidates: %v", model.ErrRetrieval, err)
	}

	results := make([]model.RetrievedMemory, 0, len(candidates))
	for _, m := range candidates {
		if len(m.Embedding) != len(query) {
			// A record embedded in a different space is unscoreable. Skip it
			// rather than poison the whole query; it points at a migration
			// that was never run.
			e.log.Warn().
				Str("ownerId", ownerID).
				Str("memoryId", m.MemoryID).
				Int("recordDim", len(m.Embedding)).
				Int("queryDim", len(query)).
				Msg("skipping memory with mismatched embedding dimension")
			continue
		}
		score := cosineSimilarity(query, m.Embedding)
		if score < threshold {
			continue
		}
		results = append(results, model.RetrievedMemory{
			MemoryID:    m.MemoryID,
			Text:        m.ExtractedText,
			UserComment: m.UserComment,
			BlobPath:    m.BlobPath,
			SourceURL:   e.blobs.URL(m.BlobPath),
			Score:       score,
			CreatedAt:   m.CreatedAt,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if !results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].CreatedAt.After(results[j].CreatedAt)
		}
		// Memory ID breaks full ties so repeated queries return a stable
		// order.
		return results[i].MemoryID < results[j].MemoryID
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// cosineSimilarity computes the cosine of the angle between two equal-length
// vectors. Zero vectors score zero.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
